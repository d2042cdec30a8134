package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/canvasflow/canvasflow/internal/node"
	"github.com/canvasflow/canvasflow/internal/types"
)

// Validator provides structural validation for the canvas graph.
// It is stateless; every method takes the current nodes and connections.
type Validator struct{}

// NewValidator creates a new Validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs all structural checks and returns the first error:
// execution readiness, cycle detection, then duplicate-action detection.
func (v *Validator) Validate(nodes []*node.Node, conns []Connection, outputCount int) error {
	if err := v.CheckReadiness(len(nodes), outputCount); err != nil {
		return err
	}

	if cycle := v.DetectCycles(conns); len(cycle) > 0 {
		return &GraphError{
			Code:    GraphErrorCycleDetected,
			Message: "workflow contains a cycle",
			Nodes:   cycle,
		}
	}

	if dup := v.FindDuplicateAction(nodes); dup != nil {
		return &GraphError{
			Code:    GraphErrorDuplicateAction,
			Message: fmt.Sprintf("two %s nodes share the same inputs", dup.Type),
			Nodes:   []string{dup.First.String(), dup.Second.String()},
		}
	}

	return nil
}

// CheckReadiness verifies the workflow has something to execute. A workflow
// with zero nodes is still valid when at least one output entry exists,
// since direct file-to-output wiring needs no processing node.
func (v *Validator) CheckReadiness(nodeCount, outputCount int) error {
	if nodeCount == 0 && outputCount == 0 {
		return &GraphError{
			Code:    GraphErrorNotExecutable,
			Message: "workflow has no nodes and no promoted outputs",
		}
	}
	return nil
}

// DetectCycles runs a depth-first search with color marking over the
// node-to-node edges. Colors: white (0) = unvisited, gray (1) = in-progress,
// black (2) = done. It returns the node ids on the first cycle found, or nil
// for a DAG. Diamond shapes (shared ancestors without a back edge) are not
// flagged.
func (v *Validator) DetectCycles(conns []Connection) []string {
	adj := make(map[string][]string)
	var ids []string
	seen := make(map[string]bool)

	addID := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	for _, c := range conns {
		if !c.IsNodeEdge() {
			continue
		}
		adj[c.FromID] = append(adj[c.FromID], c.ToID)
		addID(c.FromID)
		addID(c.ToID)
	}
	sort.Strings(ids)

	color := make(map[string]int, len(ids))
	parent := make(map[string]string, len(ids))

	var dfs func(id string) []string
	dfs = func(id string) []string {
		color[id] = 1

		for _, next := range adj[id] {
			switch color[next] {
			case 0:
				parent[next] = id
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			case 1:
				// Back edge found; reconstruct the cycle path.
				cycle := []string{next}
				current := id
				for current != next {
					cycle = append([]string{current}, cycle...)
					current = parent[current]
				}
				return append([]string{next}, cycle...)
			}
		}

		color[id] = 2
		return nil
	}

	for _, id := range ids {
		if color[id] == 0 {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// HasCycle reports whether the node graph contains at least one cycle.
func (v *Validator) HasCycle(conns []Connection) bool {
	return len(v.DetectCycles(conns)) > 0
}

// Duplicate describes a pair of nodes flagged by duplicate-action detection.
type Duplicate struct {
	Type   string
	First  types.ID
	Second types.ID
}

// FindDuplicateAction flags the first pair of nodes with the same tool type
// and identical sorted input-label sets. User prompts are deliberately not
// compared, matching the shipped behavior.
func (v *Validator) FindDuplicateAction(nodes []*node.Node) *Duplicate {
	seen := make(map[string]types.ID)

	for _, n := range nodes {
		inputs := make([]string, len(n.Inputs))
		copy(inputs, n.Inputs)
		sort.Strings(inputs)

		if len(inputs) == 0 {
			// Unconfigured nodes of the same type are not duplicates.
			continue
		}

		key := n.Type.String() + "|" + strings.Join(inputs, ",")
		if first, ok := seen[key]; ok {
			return &Duplicate{Type: n.Type.String(), First: first, Second: n.ID}
		}
		seen[key] = n.ID
	}
	return nil
}
