package node

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/canvasflow/canvasflow/internal/catalog"
	"github.com/canvasflow/canvasflow/internal/events"
	"github.com/canvasflow/canvasflow/internal/naming"
	"github.com/canvasflow/canvasflow/internal/types"
)

// LabelResolver answers whether a label exists anywhere in the system.
// The store uses it during output generation to avoid naming collisions with
// labels owned by other nodes or stores.
type LabelResolver interface {
	Exists(lbl string) bool
}

// CascadeFunc requests a cascading delete of a label. The node store invokes
// it for each output label before removing a node, so dependents are cleaned
// up first.
type CascadeFunc func(ctx context.Context, lbl string) error

// OutputAddedHook is invoked when a node's regenerated output set gains a
// label. sources are the input labels the output derives from; the owning
// controller records them as provenance in the derived text file store.
type OutputAddedHook func(n *Node, lbl string, sources []string)

// OutputRemovedHook is invoked when a node's regenerated output set loses a
// label.
type OutputRemovedHook func(n *Node, lbl string)

// Store holds all nodes on the canvas. All methods are safe for concurrent
// use; no lock is held while collaborator hooks run, so hooks may call back
// into the store.
type Store struct {
	catalog *catalog.Catalog
	logger  *slog.Logger
	bus     events.Bus

	resolver        LabelResolver
	onOutputAdded   OutputAddedHook
	onOutputRemoved OutputRemovedHook
	cascade         CascadeFunc

	mu    sync.RWMutex
	nodes map[types.ID]*Node
	order []types.ID
}

// StoreOption is a functional option for configuring a Store.
type StoreOption func(*Store)

// WithLogger configures the store to use the specified structured logger.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBus configures the event bus used for validation and status events.
func WithBus(bus events.Bus) StoreOption {
	return func(s *Store) {
		if bus != nil {
			s.bus = bus
		}
	}
}

// WithResolver configures the label resolver consulted during output naming.
func WithResolver(resolver LabelResolver) StoreOption {
	return func(s *Store) {
		s.resolver = resolver
	}
}

// WithOutputHooks configures the hooks invoked when regeneration adds or
// removes an output label.
func WithOutputHooks(added OutputAddedHook, removed OutputRemovedHook) StoreOption {
	return func(s *Store) {
		s.onOutputAdded = added
		s.onOutputRemoved = removed
	}
}

// WithCascade configures the cascading delete collaborator used by RemoveNode.
func WithCascade(fn CascadeFunc) StoreOption {
	return func(s *Store) {
		s.cascade = fn
	}
}

// NewStore creates an empty node store reading validation rules from cat.
func NewStore(cat *catalog.Catalog, opts ...StoreOption) *Store {
	s := &Store{
		catalog: cat,
		logger:  slog.Default(),
		bus:     events.NopBus{},
		nodes:   make(map[types.ID]*Node),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateNode allocates a new interactive node of the given type at the given
// position. Returns nil (and logs) if the tool type is not in the catalog.
func (s *Store) CreateNode(ctx context.Context, toolType catalog.ToolType, pos Position) *Node {
	if _, ok := s.catalog.Spec(toolType); !ok {
		s.logger.Warn("cannot create node: unknown tool type", "type", toolType)
		return nil
	}

	now := time.Now()
	n := &Node{
		ID:          types.NewID(),
		Type:        toolType,
		Position:    pos,
		Inputs:      []string{},
		Outputs:     []string{},
		Interactive: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	s.nodes[n.ID] = n
	s.order = append(s.order, n.ID)
	s.mu.Unlock()

	s.publish(ctx, events.Event{Type: events.EventNodeCreated, Timestamp: now, NodeID: n.ID})
	s.logger.Debug("node created", "node_id", n.ID, "type", toolType)
	return n
}

// Add inserts a pre-built node record, used by the import path and by node
// duplication. Returns nil (and logs) if required fields are missing or the
// id is already taken.
func (s *Store) Add(ctx context.Context, n *Node) *Node {
	if n == nil || n.ID.IsZero() || !n.Type.IsValid() {
		s.logger.Warn("cannot add node: missing required fields")
		return nil
	}
	if _, ok := s.catalog.Spec(n.Type); !ok {
		s.logger.Warn("cannot add node: unknown tool type", "type", n.Type)
		return nil
	}

	s.mu.Lock()
	if _, exists := s.nodes[n.ID]; exists {
		s.mu.Unlock()
		s.logger.Warn("cannot add node: id already exists", "node_id", n.ID)
		return nil
	}
	if n.Inputs == nil {
		n.Inputs = []string{}
	}
	if n.Outputs == nil {
		n.Outputs = []string{}
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	s.nodes[n.ID] = n
	s.order = append(s.order, n.ID)
	s.mu.Unlock()

	s.publish(ctx, events.Event{Type: events.EventNodeCreated, Timestamp: time.Now(), NodeID: n.ID})
	return n
}

// Get returns the node with the given id.
func (s *Store) Get(id types.ID) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	return n, ok
}

// List returns all nodes in creation order.
func (s *Store) List() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Node, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.nodes[id])
	}
	return out
}

// Len returns the number of nodes in the store.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// FindProducer returns the node whose current outputs include the label.
func (s *Store) FindProducer(lbl string) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.order {
		if s.nodes[id].HasOutput(lbl) {
			return s.nodes[id], true
		}
	}
	return nil, false
}

// AddLabelToNode attaches a label as an input to the node. It returns false
// and emits a validation.failed event when the label's suffix is not in the
// tool's accepted set, the label is already attached, the tool's maximum
// input count is reached, or the tool requires a prompt that is still empty.
// On success the node's outputs are regenerated and a status event is emitted.
func (s *Store) AddLabelToNode(ctx context.Context, nodeID types.ID, lbl string) bool {
	s.mu.Lock()
	n, ok := s.nodes[nodeID]
	if !ok {
		s.mu.Unlock()
		s.logger.Warn("cannot add label: node not found", "node_id", nodeID, "label", lbl)
		return false
	}

	spec, _ := s.catalog.Spec(n.Type)

	var reason string
	switch {
	case !spec.AcceptsLabel(lbl):
		reason = "file type not accepted by this tool"
	case n.HasInput(lbl):
		reason = "label is already attached to this node"
	case spec.MaxInputs > 0 && len(n.Inputs) >= spec.MaxInputs:
		reason = "maximum input count reached"
	case spec.Prompt == catalog.PromptMandatory && strings.TrimSpace(n.Prompt) == "":
		reason = "tool requires a prompt before inputs can be added"
	}

	if reason != "" {
		toolType := n.Type
		s.mu.Unlock()
		s.logger.Debug("label rejected", "node_id", nodeID, "label", lbl, "reason", reason)
		s.publish(ctx, events.NewValidationFailedEvent(nodeID, toolType.String(), lbl, reason))
		return false
	}

	n.Inputs = append(n.Inputs, lbl)
	n.UpdatedAt = time.Now()
	s.mu.Unlock()

	s.regenerateOutputs(ctx, nodeID)
	s.publishStatus(ctx, nodeID)
	return true
}

// RemoveLabelFromNode detaches a label from the node's inputs. The node's
// outputs are regenerated, and an interactive node left with zero inputs is
// auto-removed.
func (s *Store) RemoveLabelFromNode(ctx context.Context, nodeID types.ID, lbl string) bool {
	s.mu.Lock()
	n, ok := s.nodes[nodeID]
	if !ok {
		s.mu.Unlock()
		return false
	}

	idx := slices.Index(n.Inputs, lbl)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}

	n.Inputs = slices.Delete(n.Inputs, idx, idx+1)
	n.UpdatedAt = time.Now()
	cleanup := n.Interactive && len(n.Inputs) == 0
	s.mu.Unlock()

	s.regenerateOutputs(ctx, nodeID)
	s.publishStatus(ctx, nodeID)

	if cleanup {
		s.logger.Debug("auto-cleanup removing empty node", "node_id", nodeID)
		s.RemoveNode(ctx, nodeID)
	}
	return true
}

// RemoveNode removes a node. Every current output label is cascade-deleted
// first so dependents are cleaned up, then the record itself is dropped.
func (s *Store) RemoveNode(ctx context.Context, nodeID types.ID) {
	s.mu.RLock()
	n, ok := s.nodes[nodeID]
	if !ok {
		s.mu.RUnlock()
		return
	}
	outputs := slices.Clone(n.Outputs)
	s.mu.RUnlock()

	for _, out := range outputs {
		if s.cascade != nil {
			if err := s.cascade(ctx, out); err != nil {
				s.logger.Error("cascading delete failed", "label", out, "error", err)
			}
		} else if s.onOutputRemoved != nil {
			s.onOutputRemoved(n, out)
		}
	}

	s.Delete(ctx, nodeID)
}

// Delete drops the node record without touching its outputs. The cascading
// delete analyzer uses this directly once it has handled the node's labels;
// everything else should go through RemoveNode.
func (s *Store) Delete(ctx context.Context, nodeID types.ID) bool {
	s.mu.Lock()
	if _, ok := s.nodes[nodeID]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.nodes, nodeID)
	if i := slices.Index(s.order, nodeID); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	s.mu.Unlock()

	s.publish(ctx, events.Event{Type: events.EventNodeRemoved, Timestamp: time.Now(), NodeID: nodeID})
	s.logger.Debug("node removed", "node_id", nodeID)
	return true
}

// UpdateNodePrompt sets the node's free-text prompt and regenerates outputs,
// since prompt-gated tools may start or stop producing them.
func (s *Store) UpdateNodePrompt(ctx context.Context, nodeID types.ID, prompt string) bool {
	s.mu.Lock()
	n, ok := s.nodes[nodeID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	n.Prompt = prompt
	n.UpdatedAt = time.Now()
	s.mu.Unlock()

	s.regenerateOutputs(ctx, nodeID)
	s.publishStatus(ctx, nodeID)
	return true
}

// UpdateNodePosition moves the node on the canvas.
func (s *Store) UpdateNodePosition(nodeID types.ID, pos Position) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[nodeID]
	if !ok {
		return false
	}
	n.Position = pos
	n.UpdatedAt = time.Now()
	return true
}

// SetNodeProcessing toggles the processing flag used while a run is active.
func (s *Store) SetNodeProcessing(nodeID types.ID, processing bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[nodeID]
	if !ok {
		return false
	}
	n.Processing = processing
	return true
}

// SetNodeFailed toggles the error flag after an execution failure.
func (s *Store) SetNodeFailed(nodeID types.ID, failed bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.nodes[nodeID]
	if !ok {
		return false
	}
	n.Failed = failed
	return true
}

// Status evaluates the advisory readiness state of a node.
func (s *Store) Status(nodeID types.ID) (Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[nodeID]
	if !ok {
		return Status{}, false
	}
	spec, _ := s.catalog.Spec(n.Type)
	return Evaluate(n, spec), true
}

// regenerateOutputs recomputes the node's output labels from its current
// inputs and prompt, then reports the diff through the output hooks. The
// node's own previous outputs are excluded from the collision check so an
// unchanged input set always regenerates byte-identical names.
func (s *Store) regenerateOutputs(ctx context.Context, nodeID types.ID) {
	s.mu.Lock()
	n, ok := s.nodes[nodeID]
	if !ok {
		s.mu.Unlock()
		return
	}

	spec, _ := s.catalog.Spec(n.Type)
	old := slices.Clone(n.Outputs)

	exists := func(lbl string) bool {
		if slices.Contains(old, lbl) {
			return false
		}
		if s.resolver == nil {
			return false
		}
		return s.resolver.Exists(lbl)
	}

	gen := naming.Generate(spec, slices.Clone(n.Inputs), n.Prompt, exists)
	fresh := make([]string, 0, len(gen))
	for _, o := range gen {
		fresh = append(fresh, o.Label)
	}
	n.Outputs = fresh
	s.mu.Unlock()

	for _, lbl := range old {
		if !slices.Contains(fresh, lbl) && s.onOutputRemoved != nil {
			s.onOutputRemoved(n, lbl)
		}
	}
	for _, o := range gen {
		if !slices.Contains(old, o.Label) && s.onOutputAdded != nil {
			s.onOutputAdded(n, o.Label, o.Sources)
		}
	}
}

func (s *Store) publishStatus(ctx context.Context, nodeID types.ID) {
	status, ok := s.Status(nodeID)
	if !ok {
		return
	}
	s.publish(ctx, events.NewNodeStatusEvent(nodeID, status.State.String(), status.Reason))
}

func (s *Store) publish(ctx context.Context, event events.Event) {
	if err := s.bus.Publish(ctx, event); err != nil {
		s.logger.Debug("event publish failed", "type", event.Type, "error", err)
	}
}
