// Package node implements the node store: the canvas's record of configured
// tool instances, their input labels, and their derived output labels. Output
// labels are never stored independently of their node; they are a pure
// function of (tool type, input labels, user prompt) and are regenerated on
// every mutation that can change them.
package node

import (
	"time"

	"github.com/canvasflow/canvasflow/internal/catalog"
	"github.com/canvasflow/canvasflow/internal/types"
)

// Position is a node's location on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node represents a single configured tool instance in the graph.
type Node struct {
	ID   types.ID         `json:"id"`
	Type catalog.ToolType `json:"type"`

	Position Position `json:"position"`

	// Inputs is the ordered list of labels attached to this node.
	Inputs []string `json:"inputs"`

	// Outputs is the derived list of output labels. It is recomputed whenever
	// Inputs or Prompt change and must never be mutated directly.
	Outputs []string `json:"outputs"`

	// Prompt is the free-text user instruction. Whether it is required is
	// determined by the tool catalog.
	Prompt string `json:"prompt,omitempty"`

	// Processing is set while the execution orchestrator is running this node.
	Processing bool `json:"processing,omitempty"`

	// Failed is set when the node's last execution errored.
	Failed bool `json:"failed,omitempty"`

	// Interactive marks nodes created by a tool drop, which are subject to
	// auto-cleanup when their last input is removed. Imported or duplicated
	// nodes are not.
	Interactive bool `json:"interactive,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasInput reports whether the label is attached to this node.
func (n *Node) HasInput(lbl string) bool {
	for _, in := range n.Inputs {
		if in == lbl {
			return true
		}
	}
	return false
}

// HasOutput reports whether the node currently generates the given label.
func (n *Node) HasOutput(lbl string) bool {
	for _, out := range n.Outputs {
		if out == lbl {
			return true
		}
	}
	return false
}
