package node

import (
	"fmt"
	"strings"

	"github.com/canvasflow/canvasflow/internal/catalog"
)

// State is the advisory readiness state of a node, shown as a color indicator
// in the UI. It is recomputed on every input or prompt mutation.
type State string

const (
	// StateBlocked means the node cannot execute: inputs are below the
	// type's minimum, or a mandatory prompt is empty.
	StateBlocked State = "blocked"

	// StateNeedsInput means the node can execute but an optional prompt is
	// empty, so a default behavior will be used.
	StateNeedsInput State = "needs-input"

	// StateReady means the node is fully configured.
	StateReady State = "ready"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// Status pairs a state with a human-readable reason.
type Status struct {
	State  State  `json:"state"`
	Reason string `json:"reason,omitempty"`
}

// Evaluate computes the advisory status of a node against its tool spec.
// It is a pure function; the rules it applies come from the same catalog
// table the store's add-label validation reads.
func Evaluate(n *Node, spec catalog.ToolSpec) Status {
	if len(n.Inputs) < spec.MinInputs {
		return Status{
			State:  StateBlocked,
			Reason: fmt.Sprintf("needs at least %d input(s), has %d", spec.MinInputs, len(n.Inputs)),
		}
	}

	promptEmpty := strings.TrimSpace(n.Prompt) == ""

	if spec.Prompt == catalog.PromptMandatory && promptEmpty {
		return Status{
			State:  StateBlocked,
			Reason: "requires a prompt",
		}
	}

	if spec.Prompt == catalog.PromptOptional && promptEmpty {
		return Status{
			State:  StateNeedsInput,
			Reason: "no prompt set, default behavior will be used",
		}
	}

	return Status{State: StateReady}
}
