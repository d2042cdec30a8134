// Package workspace implements the canvas controller: the single owner of
// the label stores, the node store, the connection store, and the execution
// machinery. All user-level operations (upload, tool drop, wiring, deletion,
// execution) go through the Workspace so there is exactly one writer.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/canvasflow/canvasflow/internal/cascade"
	"github.com/canvasflow/canvasflow/internal/catalog"
	"github.com/canvasflow/canvasflow/internal/engine"
	"github.com/canvasflow/canvasflow/internal/events"
	"github.com/canvasflow/canvasflow/internal/graph"
	"github.com/canvasflow/canvasflow/internal/label"
	"github.com/canvasflow/canvasflow/internal/node"
	"github.com/canvasflow/canvasflow/internal/types"
)

// uploadExts is the set of file extensions accepted by UploadFile. It is the
// union of every suffix some catalog tool accepts plus plain text.
var uploadExts = map[string]bool{
	".txt":  true,
	".pdf":  true,
	".docx": true,
	".xlsx": true,
	".msg":  true,
}

// Workspace is the canvas controller. All methods are safe for concurrent
// use; user-level mutations are serialized by a single mutex.
type Workspace struct {
	catalog   *catalog.Catalog
	logger    *slog.Logger
	bus       events.Bus
	validator *graph.Validator

	seq     *label.Sequence
	inputs  *label.Store
	texts   *label.Store
	outputs *label.Store
	nodes   *node.Store
	conns   *graph.ConnectionStore

	analyzer *cascade.Analyzer
	orch     *engine.Orchestrator

	mu       sync.Mutex
	contents map[string]string
	pending  map[string]cascade.Impact
}

// Option is a functional option for configuring a Workspace.
type Option func(*settings)

type settings struct {
	logger    *slog.Logger
	bus       events.Bus
	processor engine.Processor
	tracer    trace.Tracer
}

// WithLogger configures the workspace to use the specified structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBus configures the event bus shared by all canvas components.
func WithBus(bus events.Bus) Option {
	return func(s *settings) {
		if bus != nil {
			s.bus = bus
		}
	}
}

// WithProcessor configures the processing backend used during execution.
func WithProcessor(p engine.Processor) Option {
	return func(s *settings) {
		if p != nil {
			s.processor = p
		}
	}
}

// WithTracer configures the OpenTelemetry tracer that spans execution runs.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *settings) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// New creates an empty workspace wired around the given tool catalog.
func New(cat *catalog.Catalog, opts ...Option) *Workspace {
	cfg := settings{
		logger:    slog.Default(),
		bus:       events.NopBus{},
		processor: &engine.SimulatedProcessor{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ws := &Workspace{
		catalog:   cat,
		logger:    cfg.logger,
		bus:       cfg.bus,
		validator: graph.NewValidator(),
		seq:       label.NewSequence(),
		inputs:    label.NewStore(label.KindInput),
		texts:     label.NewStore(label.KindText),
		outputs:   label.NewStore(label.KindOutput),
		conns:     graph.NewConnectionStore(),
		contents:  make(map[string]string),
		pending:   make(map[string]cascade.Impact),
	}

	ws.nodes = node.NewStore(cat,
		node.WithLogger(cfg.logger),
		node.WithBus(cfg.bus),
		node.WithResolver(ws),
		node.WithOutputHooks(ws.outputAdded, ws.outputRemoved),
		node.WithCascade(func(ctx context.Context, lbl string) error {
			return ws.analyzer.Delete(ctx, lbl)
		}),
	)

	ws.analyzer = cascade.NewAnalyzer(cat, ws.nodes, ws.conns,
		[]*label.Store{ws.inputs, ws.texts, ws.outputs},
		cascade.WithLogger(cfg.logger),
		cascade.WithBus(cfg.bus),
	)

	orchOpts := []engine.Option{
		engine.WithLogger(cfg.logger),
		engine.WithBus(cfg.bus),
	}
	if cfg.tracer != nil {
		orchOpts = append(orchOpts, engine.WithTracer(cfg.tracer))
	}
	ws.orch = engine.NewOrchestrator(cfg.processor, orchOpts...)

	return ws
}

// outputAdded mirrors a freshly generated node output into the text store,
// recording the inputs that output derives from as provenance for cascading
// deletes. Per-input tools attribute each output to one input only, so
// deleting that input never drags sibling outputs along.
func (ws *Workspace) outputAdded(n *node.Node, lbl string, sources []string) {
	err := ws.texts.Add(label.File{
		Label:    lbl,
		Sources:  slices.Clone(sources),
		Producer: n.ID.String(),
		Visible:  true,
	})
	if err != nil {
		ws.logger.Warn("output label already present", "label", lbl, "error", err)
		return
	}
	ws.publish(events.NewLabelEvent(events.EventLabelAdded, label.KindText.String(), lbl))
}

// outputRemoved retires a stale node output: text store entry, cached
// content, and any connection carrying the label.
func (ws *Workspace) outputRemoved(_ *node.Node, lbl string) {
	if ws.texts.Remove(lbl) {
		ws.publish(events.NewLabelEvent(events.EventLabelRemoved, label.KindText.String(), lbl))
	}
	ws.conns.RemoveForLabel(lbl)

	ws.mu.Lock()
	delete(ws.contents, lbl)
	ws.mu.Unlock()
}

// Exists reports whether the label is present in any store. It implements
// node.LabelResolver for output-name collision checks.
func (ws *Workspace) Exists(lbl string) bool {
	return ws.inputs.HasLabel(lbl) || ws.texts.HasLabel(lbl) || ws.outputs.HasLabel(lbl)
}

// Content resolves a label to its content. Uploaded bytes are served from
// memory; labels restored from a document carry no bytes, so a deterministic
// placeholder stands in for them. It implements engine.ContentSource.
func (ws *Workspace) Content(lbl string) (string, error) {
	ws.mu.Lock()
	content, ok := ws.contents[lbl]
	ws.mu.Unlock()
	if ok {
		return content, nil
	}
	if ws.Exists(lbl) {
		return fmt.Sprintf("(content of %s)", lbl), nil
	}
	return "", types.NewErrorf(types.CONTENT_NOT_FOUND, "no content for label %s", lbl)
}

// UploadFile registers an uploaded file: it allocates the next sequence
// letter, stores the input entry, and derives the companion text file that
// tools consume. Non-text uploads get a simulated text extraction.
func (ws *Workspace) UploadFile(ctx context.Context, displayName, content string) (label.File, error) {
	ext := strings.ToLower(filepath.Ext(displayName))
	if !uploadExts[ext] {
		return label.File{}, types.NewErrorf(types.UPLOAD_UNSUPPORTED, "unsupported file type %q", ext)
	}

	letter := ws.seq.Next()
	lbl := letter + ext

	in := label.File{
		Label:       lbl,
		DisplayName: displayName,
		Producer:    label.ProducerUpload,
		Visible:     true,
		CreatedAt:   time.Now(),
	}
	if err := ws.inputs.Add(in); err != nil {
		return label.File{}, err
	}

	derived := label.File{
		Label:     letter + ".txt",
		Producer:  label.ProducerUpload,
		Visible:   true,
		CreatedAt: in.CreatedAt,
	}
	if ext != ".txt" {
		derived.Sources = []string{lbl}
	}
	if err := ws.texts.Add(derived); err != nil {
		ws.inputs.Remove(lbl)
		return label.File{}, err
	}

	ws.mu.Lock()
	ws.contents[lbl] = content
	ws.contents[derived.Label] = content
	ws.mu.Unlock()

	ws.publish(events.NewLabelEvent(events.EventLabelAdded, label.KindInput.String(), lbl))
	ws.publish(events.NewLabelEvent(events.EventLabelAdded, label.KindText.String(), derived.Label))
	ws.logger.Info("file uploaded", "label", lbl, "name", displayName)
	return in, nil
}

// DropTool places a new node of the given type on the canvas.
func (ws *Workspace) DropTool(ctx context.Context, toolType catalog.ToolType, pos node.Position) (*node.Node, error) {
	n := ws.nodes.CreateNode(ctx, toolType, pos)
	if n == nil {
		return nil, types.NewErrorf(types.TOOL_TYPE_UNKNOWN, "unknown tool type %q", toolType)
	}
	return n, nil
}

// AttachLabel wires a label into a node: the node store validates and
// records the input, and on success a connection is drawn from the label's
// origin (upload, derived text file, or producing node) to the node.
func (ws *Workspace) AttachLabel(ctx context.Context, nodeID types.ID, lbl string) error {
	producer, produced := ws.nodes.FindProducer(lbl)
	if !produced && !ws.Exists(lbl) {
		return types.NewErrorf(types.LABEL_NOT_FOUND, "label %s does not exist", lbl)
	}

	if !ws.nodes.AddLabelToNode(ctx, nodeID, lbl) {
		return types.NewErrorf(types.NODE_INVALID, "label %s rejected by node %s", lbl, nodeID)
	}

	conn := graph.Connection{
		ToKind: graph.EndpointNode,
		ToID:   nodeID.String(),
		Label:  lbl,
	}
	switch {
	case produced:
		conn.FromKind = graph.EndpointNode
		conn.FromID = producer.ID.String()
	case ws.texts.HasLabel(lbl):
		conn.FromKind = graph.EndpointTextFile
		conn.FromID = lbl
	default:
		conn.FromKind = graph.EndpointInputFile
		conn.FromID = lbl
	}
	if err := ws.conns.Add(conn); err != nil {
		ws.logger.Warn("connection already present", "label", lbl, "node_id", nodeID)
	}
	return nil
}

// DetachLabel removes a label from a node along with the connection that
// carried it. Interactive nodes left without inputs are cleaned up by the
// node store.
func (ws *Workspace) DetachLabel(ctx context.Context, nodeID types.ID, lbl string) error {
	if !ws.nodes.RemoveLabelFromNode(ctx, nodeID, lbl) {
		return types.NewErrorf(types.NODE_NOT_FOUND, "label %s is not attached to node %s", lbl, nodeID)
	}
	ws.conns.RemoveWhere(func(c graph.Connection) bool {
		return c.Label == lbl && c.ToKind == graph.EndpointNode && c.ToID == nodeID.String()
	})
	return nil
}

// SetPrompt updates a node's free-text instruction, regenerating outputs.
func (ws *Workspace) SetPrompt(ctx context.Context, nodeID types.ID, prompt string) error {
	if !ws.nodes.UpdateNodePrompt(ctx, nodeID, prompt) {
		return types.NewErrorf(types.NODE_NOT_FOUND, "node %s does not exist", nodeID)
	}
	return nil
}

// MoveNode updates a node's canvas position.
func (ws *Workspace) MoveNode(nodeID types.ID, pos node.Position) error {
	if !ws.nodes.UpdateNodePosition(nodeID, pos) {
		return types.NewErrorf(types.NODE_NOT_FOUND, "node %s does not exist", nodeID)
	}
	return nil
}

// RemoveNode deletes a node, cascading each of its output labels first and
// dropping every connection touching the node.
func (ws *Workspace) RemoveNode(ctx context.Context, nodeID types.ID) error {
	if _, ok := ws.nodes.Get(nodeID); !ok {
		return types.NewErrorf(types.NODE_NOT_FOUND, "node %s does not exist", nodeID)
	}
	ws.nodes.RemoveNode(ctx, nodeID)
	ws.conns.RemoveForNode(nodeID.String())
	return nil
}

// PromoteOutput marks a derived text file as a final deliverable under a
// business name and wires it to the output zone.
func (ws *Workspace) PromoteOutput(ctx context.Context, lbl, businessName string) error {
	src, ok := ws.texts.Get(lbl)
	if !ok {
		return types.NewErrorf(types.LABEL_NOT_FOUND, "text file %s does not exist", lbl)
	}

	err := ws.outputs.Add(label.File{
		Label:       lbl,
		DisplayName: businessName,
		Sources:     slices.Clone(src.Sources),
		Producer:    src.Producer,
		Visible:     true,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		return err
	}

	if err := ws.conns.Add(graph.Connection{
		FromKind: graph.EndpointTextFile,
		FromID:   lbl,
		ToKind:   graph.EndpointOutputZone,
		ToID:     label.KindOutput.String(),
		Label:    lbl,
	}); err != nil {
		ws.logger.Warn("output connection already present", "label", lbl)
	}

	ws.publish(events.NewLabelEvent(events.EventLabelAdded, label.KindOutput.String(), lbl))
	return nil
}

// DemoteOutput removes a label from the output zone without touching the
// underlying text file.
func (ws *Workspace) DemoteOutput(lbl string) error {
	if !ws.outputs.Remove(lbl) {
		return types.NewErrorf(types.LABEL_NOT_FOUND, "output %s does not exist", lbl)
	}
	ws.conns.RemoveWhere(func(c graph.Connection) bool {
		return c.Label == lbl && c.ToKind == graph.EndpointOutputZone
	})
	ws.publish(events.NewLabelEvent(events.EventLabelRemoved, label.KindOutput.String(), lbl))
	return nil
}

// RequestDelete computes the full impact of deleting a label. Nothing is
// removed; the impact is held until ConfirmDelete or CancelDelete.
func (ws *Workspace) RequestDelete(lbl string) (cascade.Impact, error) {
	if !ws.Exists(lbl) {
		return cascade.Impact{}, types.NewErrorf(types.LABEL_NOT_FOUND, "label %s does not exist", lbl)
	}

	impact := ws.analyzer.AnalyzeDeletionImpact(lbl)
	ws.mu.Lock()
	ws.pending[lbl] = impact
	ws.mu.Unlock()
	return impact, nil
}

// ConfirmDelete applies a previously requested deletion.
func (ws *Workspace) ConfirmDelete(ctx context.Context, lbl string) error {
	ws.mu.Lock()
	impact, ok := ws.pending[lbl]
	delete(ws.pending, lbl)
	ws.mu.Unlock()
	if !ok {
		return types.NewErrorf(types.DELETE_NOT_REQUESTED, "no pending deletion for label %s", lbl)
	}

	if err := ws.analyzer.Apply(ctx, impact); err != nil {
		return err
	}

	ws.mu.Lock()
	delete(ws.contents, impact.Label)
	for _, gone := range impact.CascadingLabels {
		delete(ws.contents, gone)
	}
	ws.mu.Unlock()
	return nil
}

// CancelDelete discards a previously requested deletion.
func (ws *Workspace) CancelDelete(lbl string) bool {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	_, ok := ws.pending[lbl]
	delete(ws.pending, lbl)
	return ok
}

// Validate runs the structural checks that gate execution: readiness, cycle
// detection, and duplicate-action detection.
func (ws *Workspace) Validate() error {
	return ws.validator.Validate(ws.nodes.List(), ws.conns.All(), ws.outputs.Len())
}

// Execute validates the canvas and runs every node in dependency order.
// Content produced by successful nodes is cached so subsequent runs and
// downstream reads see the real results.
func (ws *Workspace) Execute(ctx context.Context) ([]engine.Result, error) {
	if err := ws.Validate(); err != nil {
		return nil, err
	}

	results, err := ws.orch.Execute(ctx, ws.nodes, ws.conns, ws)

	ws.mu.Lock()
	for _, r := range results {
		if !r.Success {
			continue
		}
		if n, ok := ws.nodes.Get(r.NodeID); ok {
			for _, out := range n.Outputs {
				ws.contents[out] = r.Content
			}
		}
	}
	ws.mu.Unlock()

	return results, err
}

// Executing reports whether a run is currently in flight.
func (ws *Workspace) Executing() bool {
	return ws.orch.Executing()
}

// Clear empties the whole canvas and restarts the label sequence.
func (ws *Workspace) Clear(ctx context.Context) {
	for _, n := range ws.nodes.List() {
		ws.nodes.Delete(ctx, n.ID)
	}
	ws.inputs.Clear()
	ws.texts.Clear()
	ws.outputs.Clear()
	ws.conns.Clear()
	ws.seq.Reset()

	ws.mu.Lock()
	ws.contents = make(map[string]string)
	ws.pending = make(map[string]cascade.Impact)
	ws.mu.Unlock()
}

// InputFiles returns the uploaded files in upload order.
func (ws *Workspace) InputFiles() []label.File { return ws.inputs.GetAll() }

// TextFiles returns the derived text files in creation order.
func (ws *Workspace) TextFiles() []label.File { return ws.texts.GetAll() }

// OutputFiles returns the promoted deliverables in promotion order.
func (ws *Workspace) OutputFiles() []label.File { return ws.outputs.GetAll() }

// Nodes returns the canvas nodes in insertion order.
func (ws *Workspace) Nodes() []*node.Node { return ws.nodes.List() }

// Connections returns every connection on the canvas.
func (ws *Workspace) Connections() []graph.Connection { return ws.conns.All() }

// Node returns the node with the given id.
func (ws *Workspace) Node(id types.ID) (*node.Node, bool) { return ws.nodes.Get(id) }

func (ws *Workspace) publish(event events.Event) {
	if err := ws.bus.Publish(context.Background(), event); err != nil {
		ws.logger.Debug("event publish failed", "type", event.Type, "error", err)
	}
}
