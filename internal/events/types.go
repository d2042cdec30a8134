package events

import (
	"time"

	"github.com/canvasflow/canvasflow/internal/types"
)

// EventType identifies the category and nature of an event on the canvas.
type EventType string

// Validation events
// Emitted when a user action is rejected without changing state.
const (
	EventValidationFailed EventType = "validation.failed"
)

// Node lifecycle events
// These track node creation, mutation, and removal on the canvas.
const (
	EventNodeCreated       EventType = "node.created"
	EventNodeRemoved       EventType = "node.removed"
	EventNodeStatusChanged EventType = "node.status_changed"
)

// Label lifecycle events
// These track records entering and leaving the three label stores.
const (
	EventLabelAdded   EventType = "label.added"
	EventLabelRemoved EventType = "label.removed"
)

// Cascade events
const (
	EventCascadeApplied EventType = "cascade.applied"
)

// Execution lifecycle events
// These track a workflow run from start to finish.
const (
	EventRunStarted   EventType = "run.started"
	EventRunNode      EventType = "run.node"
	EventRunCompleted EventType = "run.completed"
	EventRunFailed    EventType = "run.failed"
)

// String returns the string representation of the event type.
func (t EventType) String() string {
	return string(t)
}

// Event is a single observability event emitted by a canvas component.
// It is JSON-serializable and carries a typed payload; use the New*Event
// constructors so the payload shape always matches the event type.
type Event struct {
	// Type identifies the category and nature of the event
	Type EventType `json:"type"`

	// Timestamp records when the event occurred
	Timestamp time.Time `json:"timestamp"`

	// NodeID associates the event with a node (empty for store-level events)
	NodeID types.ID `json:"node_id,omitempty"`

	// Label associates the event with a file label (empty for node-only events)
	Label string `json:"label,omitempty"`

	// RunID associates the event with a workflow execution
	RunID types.ID `json:"run_id,omitempty"`

	// Payload contains event-specific typed data (use type assertion to access)
	Payload any `json:"payload,omitempty"`
}

// Filter defines criteria for filtering events in subscriptions.
// All filter fields use AND logic; empty fields act as wildcards.
type Filter struct {
	// Types filters by event types (empty = all types)
	Types []EventType `json:"types,omitempty"`

	// NodeID filters by node (empty = all nodes)
	NodeID types.ID `json:"node_id,omitempty"`

	// RunID filters by execution run (empty = all runs)
	RunID types.ID `json:"run_id,omitempty"`
}

// Matches determines if the given event matches this filter's criteria.
// Empty filter fields act as wildcards that match any value.
func (f *Filter) Matches(event Event) bool {
	if len(f.Types) > 0 {
		matched := false
		for _, t := range f.Types {
			if event.Type == t {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if f.NodeID != "" && event.NodeID != f.NodeID {
		return false
	}

	if f.RunID != "" && event.RunID != f.RunID {
		return false
	}

	return true
}

// Payload Types
// These structs define the typed payload data for each event type.

// ValidationFailedPayload contains data for validation.failed events.
type ValidationFailedPayload struct {
	NodeID   types.ID `json:"node_id"`
	ToolType string   `json:"tool_type"`
	Label    string   `json:"label,omitempty"`
	Reason   string   `json:"reason"`
}

// NodeStatusPayload contains data for node.status_changed events.
type NodeStatusPayload struct {
	NodeID types.ID `json:"node_id"`
	State  string   `json:"state"`
	Reason string   `json:"reason,omitempty"`
}

// LabelPayload contains data for label.added and label.removed events.
type LabelPayload struct {
	Store string `json:"store"`
	Label string `json:"label"`
}

// CascadeAppliedPayload contains data for cascade.applied events.
type CascadeAppliedPayload struct {
	Label          string   `json:"label"`
	CascadedLabels []string `json:"cascaded_labels,omitempty"`
	DeletedNodes   int      `json:"deleted_nodes"`
	ModifiedNodes  int      `json:"modified_nodes"`
	RemovedEdges   int      `json:"removed_edges"`
}

// RunStartedPayload contains data for run.started events.
type RunStartedPayload struct {
	RunID     types.ID `json:"run_id"`
	NodeCount int      `json:"node_count"`
}

// RunNodePayload contains data for run.node events.
type RunNodePayload struct {
	NodeID   types.ID      `json:"node_id"`
	ToolType string        `json:"tool_type"`
	Success  bool          `json:"success"`
	Duration time.Duration `json:"duration,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// RunCompletedPayload contains data for run.completed and run.failed events.
type RunCompletedPayload struct {
	RunID         types.ID      `json:"run_id"`
	Duration      time.Duration `json:"duration"`
	NodesExecuted int           `json:"nodes_executed"`
	Success       bool          `json:"success"`
	Error         string        `json:"error,omitempty"`
}

// NewValidationFailedEvent creates a validation.failed event.
func NewValidationFailedEvent(nodeID types.ID, toolType, lbl, reason string) Event {
	return Event{
		Type:      EventValidationFailed,
		Timestamp: time.Now(),
		NodeID:    nodeID,
		Label:     lbl,
		Payload: ValidationFailedPayload{
			NodeID:   nodeID,
			ToolType: toolType,
			Label:    lbl,
			Reason:   reason,
		},
	}
}

// NewNodeStatusEvent creates a node.status_changed event.
func NewNodeStatusEvent(nodeID types.ID, state, reason string) Event {
	return Event{
		Type:      EventNodeStatusChanged,
		Timestamp: time.Now(),
		NodeID:    nodeID,
		Payload: NodeStatusPayload{
			NodeID: nodeID,
			State:  state,
			Reason: reason,
		},
	}
}

// NewLabelEvent creates a label.added or label.removed event.
func NewLabelEvent(eventType EventType, store, lbl string) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Label:     lbl,
		Payload: LabelPayload{
			Store: store,
			Label: lbl,
		},
	}
}

// NewCascadeAppliedEvent creates a cascade.applied event.
func NewCascadeAppliedEvent(payload CascadeAppliedPayload) Event {
	return Event{
		Type:      EventCascadeApplied,
		Timestamp: time.Now(),
		Label:     payload.Label,
		Payload:   payload,
	}
}
