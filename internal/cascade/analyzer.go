// Package cascade implements the cascading delete flow: analyzing the impact
// of removing a label, presenting it for confirmation, and applying it across
// the label stores, the node store, and the connection layer.
//
// Dependent labels are found by provenance reachability: every derived file
// records the labels it was produced from, and the closure follows those
// producer edges transitively. For convention-following names this matches
// the original substring-containment closure (a derived label always contains
// its sources' base letters) without the risk of over-matching unrelated
// labels that merely share letters.
package cascade

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/canvasflow/canvasflow/internal/catalog"
	"github.com/canvasflow/canvasflow/internal/events"
	"github.com/canvasflow/canvasflow/internal/graph"
	"github.com/canvasflow/canvasflow/internal/label"
	"github.com/canvasflow/canvasflow/internal/node"
	"github.com/canvasflow/canvasflow/internal/types"
)

// NodeAction says what happens to a node affected by a deletion.
type NodeAction string

const (
	// NodeActionDelete removes the node entirely: stripping the label would
	// leave it below its tool's minimum input count.
	NodeActionDelete NodeAction = "delete-entirely"

	// NodeActionModify strips the label from the node and regenerates its
	// outputs in place.
	NodeActionModify NodeAction = "modify"
)

// AffectedNode describes one node touched by a deletion.
type AffectedNode struct {
	NodeID types.ID   `json:"node_id"`
	Action NodeAction `json:"action"`

	// Labels are the node inputs that fall inside the deletion closure.
	Labels []string `json:"labels"`

	// Reason is a human-readable explanation shown in the confirmation dialog.
	Reason string `json:"reason"`
}

// Impact is the precomputed effect of deleting a label. It is presented to
// the user for confirmation before Apply makes any change.
type Impact struct {
	// Label is the label whose deletion was requested.
	Label string `json:"label"`

	// CascadingLabels are the other labels (across all three stores) that
	// must be deleted alongside, in deterministic order.
	CascadingLabels []string `json:"cascading_labels"`

	// AffectedNodes lists every node that loses an input.
	AffectedNodes []AffectedNode `json:"affected_nodes"`

	// RemovedConnections are the edges that disappear as a side effect.
	RemovedConnections []graph.Connection `json:"removed_connections"`
}

// Empty reports whether the deletion touches nothing beyond the label itself.
func (i Impact) Empty() bool {
	return len(i.CascadingLabels) == 0 && len(i.AffectedNodes) == 0 && len(i.RemovedConnections) == 0
}

// Analyzer computes and applies cascading deletions. It depends only on the
// store contracts: add/remove/has/get-all per label store, plus the node and
// connection stores.
type Analyzer struct {
	catalog *catalog.Catalog
	nodes   *node.Store
	conns   *graph.ConnectionStore
	stores  []*label.Store
	bus     events.Bus
	logger  *slog.Logger
}

// Option is a functional option for configuring an Analyzer.
type Option func(*Analyzer)

// WithLogger configures the analyzer to use the specified structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithBus configures the event bus used for cascade.applied events.
func WithBus(bus events.Bus) Option {
	return func(a *Analyzer) {
		if bus != nil {
			a.bus = bus
		}
	}
}

// NewAnalyzer creates an Analyzer over the given stores. The label stores are
// consulted in the order given; conventionally input, text, output.
func NewAnalyzer(cat *catalog.Catalog, nodes *node.Store, conns *graph.ConnectionStore, stores []*label.Store, opts ...Option) *Analyzer {
	a := &Analyzer{
		catalog: cat,
		nodes:   nodes,
		conns:   conns,
		stores:  stores,
		bus:     events.NopBus{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeDeletionImpact computes everything that would be removed if the
// given label were deleted: transitively dependent labels, nodes that lose
// inputs (deleted entirely or modified in place), and disappearing edges.
// It makes no changes.
func (a *Analyzer) AnalyzeDeletionImpact(lbl string) Impact {
	closure := a.closure(lbl)

	impact := Impact{Label: lbl}
	for cascaded := range closure {
		if cascaded != lbl {
			impact.CascadingLabels = append(impact.CascadingLabels, cascaded)
		}
	}
	sort.Strings(impact.CascadingLabels)

	deletedNodes := make(map[string]bool)
	for _, n := range a.nodes.List() {
		var hit []string
		for _, in := range n.Inputs {
			if closure[in] {
				hit = append(hit, in)
			}
		}
		if len(hit) == 0 {
			continue
		}

		spec, _ := a.catalog.Spec(n.Type)
		remaining := len(n.Inputs) - len(hit)

		affected := AffectedNode{NodeID: n.ID, Labels: hit}
		if remaining < spec.MinInputs {
			affected.Action = NodeActionDelete
			affected.Reason = fmt.Sprintf("%s node would drop to %d input(s), below its minimum of %d",
				n.Type, remaining, spec.MinInputs)
			deletedNodes[n.ID.String()] = true
		} else {
			affected.Action = NodeActionModify
			affected.Reason = fmt.Sprintf("label removed from %s node, outputs regenerated", n.Type)
		}
		impact.AffectedNodes = append(impact.AffectedNodes, affected)
	}

	for _, c := range a.conns.All() {
		switch {
		case closure[c.Label]:
			impact.RemovedConnections = append(impact.RemovedConnections, c)
		case c.FromKind == graph.EndpointNode && deletedNodes[c.FromID]:
			impact.RemovedConnections = append(impact.RemovedConnections, c)
		case c.ToKind == graph.EndpointNode && deletedNodes[c.ToID]:
			impact.RemovedConnections = append(impact.RemovedConnections, c)
		}
	}

	return impact
}

// Apply executes a previously analyzed and confirmed impact: labels are
// removed from every store, affected nodes are deleted or stripped, stripped
// nodes left with no inputs and no outputs are dropped, and the connection
// layer is cleaned up. Labels are never deleted outside this flow.
func (a *Analyzer) Apply(ctx context.Context, impact Impact) error {
	doomed := append([]string{impact.Label}, impact.CascadingLabels...)

	for _, lbl := range doomed {
		for _, store := range a.stores {
			if store.Remove(lbl) {
				a.publish(ctx, events.NewLabelEvent(events.EventLabelRemoved, store.Kind().String(), lbl))
			}
		}
	}

	var deleted, modified int
	for _, affected := range impact.AffectedNodes {
		switch affected.Action {
		case NodeActionDelete:
			if a.nodes.Delete(ctx, affected.NodeID) {
				deleted++
			}
		case NodeActionModify:
			for _, lbl := range affected.Labels {
				a.nodes.RemoveLabelFromNode(ctx, affected.NodeID, lbl)
			}
			modified++
		}
	}

	// Sweep modified nodes left with nothing to do. Only nodes this deletion
	// touched are candidates: a freshly dropped, still unconfigured node
	// elsewhere on the canvas is empty too and must survive.
	for _, affected := range impact.AffectedNodes {
		if affected.Action != NodeActionModify {
			continue
		}
		n, ok := a.nodes.Get(affected.NodeID)
		if !ok {
			continue
		}
		if len(n.Inputs) == 0 && len(n.Outputs) == 0 {
			if a.nodes.Delete(ctx, n.ID) {
				deleted++
				modified--
			}
		}
	}

	closure := make(map[string]bool, len(doomed))
	for _, lbl := range doomed {
		closure[lbl] = true
	}
	removedEdges := a.conns.RemoveWhere(func(c graph.Connection) bool {
		if closure[c.Label] {
			return true
		}
		if c.FromKind == graph.EndpointNode {
			if _, ok := a.nodes.Get(types.ID(c.FromID)); !ok {
				return true
			}
		}
		if c.ToKind == graph.EndpointNode {
			if _, ok := a.nodes.Get(types.ID(c.ToID)); !ok {
				return true
			}
		}
		return false
	})

	a.logger.Info("cascading delete applied",
		"label", impact.Label,
		"cascaded_labels", len(impact.CascadingLabels),
		"deleted_nodes", deleted,
		"modified_nodes", modified,
		"removed_edges", len(removedEdges),
	)

	a.publish(ctx, events.NewCascadeAppliedEvent(events.CascadeAppliedPayload{
		Label:          impact.Label,
		CascadedLabels: impact.CascadingLabels,
		DeletedNodes:   deleted,
		ModifiedNodes:  modified,
		RemovedEdges:   len(removedEdges),
	}))

	return nil
}

// Delete is the full protocol without an interactive confirmation step:
// analyze, then apply. The node store uses it to cascade a removed node's
// output labels.
func (a *Analyzer) Delete(ctx context.Context, lbl string) error {
	return a.Apply(ctx, a.AnalyzeDeletionImpact(lbl))
}

// closure computes the set of labels reachable from lbl over recorded
// producer edges, across every label store, including lbl itself.
func (a *Analyzer) closure(lbl string) map[string]bool {
	set := map[string]bool{lbl: true}

	for {
		grew := false
		for _, store := range a.stores {
			for _, f := range store.GetAll() {
				if set[f.Label] {
					continue
				}
				for _, src := range f.Sources {
					if set[src] {
						set[f.Label] = true
						grew = true
						break
					}
				}
			}
		}
		if !grew {
			return set
		}
	}
}

func (a *Analyzer) publish(ctx context.Context, event events.Event) {
	if err := a.bus.Publish(ctx, event); err != nil {
		a.logger.Debug("event publish failed", "type", event.Type, "error", err)
	}
}
