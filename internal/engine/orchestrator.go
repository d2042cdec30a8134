package engine

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/canvasflow/canvasflow/internal/events"
	"github.com/canvasflow/canvasflow/internal/graph"
	"github.com/canvasflow/canvasflow/internal/node"
	"github.com/canvasflow/canvasflow/internal/types"
)

// ContentSource resolves a file label to its content. The workspace backs
// this with uploaded file content; labels produced by upstream nodes during
// the run are resolved from the run's own results instead.
type ContentSource interface {
	Content(lbl string) (string, error)
}

// Result records the outcome of executing one node.
type Result struct {
	NodeID      types.ID  `json:"node_id"`
	Success     bool      `json:"success"`
	Content     string    `json:"content,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Orchestrator executes workflows strictly sequentially. Only one execution
// may be in flight at a time; a second Execute call fails fast while the
// first is still running. Cancellation beyond context expiry is not
// supported: a run proceeds until it completes or a node fails.
type Orchestrator struct {
	processor Processor
	logger    *slog.Logger
	tracer    trace.Tracer
	bus       events.Bus

	mu        sync.Mutex
	executing bool
}

// Option is a functional option for configuring an Orchestrator.
type Option func(*Orchestrator)

// WithLogger configures the orchestrator to use the specified structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracer configures the OpenTelemetry tracer used to span each node run.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithBus configures the event bus used for run lifecycle events.
func WithBus(bus events.Bus) Option {
	return func(o *Orchestrator) {
		if bus != nil {
			o.bus = bus
		}
	}
}

// NewOrchestrator creates an Orchestrator driving the given processor.
func NewOrchestrator(processor Processor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		processor: processor,
		logger:    slog.Default(),
		tracer:    noop.NewTracerProvider().Tracer("canvasflow/engine"),
		bus:       events.NopBus{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Executing reports whether a run is currently in flight.
func (o *Orchestrator) Executing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.executing
}

// Execute runs every node in dependency order. Each node's inputs are
// gathered from the content source or from the recorded output of an
// upstream node executed earlier in this run. The per-node results are
// returned in execution order; on a node failure the partial results are
// returned together with the error and the remaining nodes never run.
func (o *Orchestrator) Execute(ctx context.Context, nodes *node.Store, conns *graph.ConnectionStore, src ContentSource) ([]Result, error) {
	o.mu.Lock()
	if o.executing {
		o.mu.Unlock()
		return nil, types.NewError(types.EXECUTION_IN_PROGRESS, "an execution is already running")
	}
	o.executing = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.executing = false
		o.mu.Unlock()
	}()

	all := nodes.List()
	ids := make([]string, 0, len(all))
	byID := make(map[string]*node.Node, len(all))
	for _, n := range all {
		ids = append(ids, n.ID.String())
		byID[n.ID.String()] = n
	}

	order, err := graph.TopologicalSort(ids, conns.NodeEdges())
	if err != nil {
		return nil, err
	}

	runID := types.NewID()
	started := time.Now()
	o.publish(ctx, events.Event{
		Type:      events.EventRunStarted,
		Timestamp: started,
		RunID:     runID,
		Payload:   events.RunStartedPayload{RunID: runID, NodeCount: len(order)},
	})
	o.logger.Info("execution started", "run_id", runID, "nodes", len(order))

	// Content produced by upstream nodes in this run, keyed by output label.
	produced := make(map[string]string)
	results := make([]Result, 0, len(order))

	for _, id := range order {
		n := byID[id]

		nodes.SetNodeProcessing(n.ID, true)
		result, runErr := o.executeNode(ctx, runID, n, produced, src)
		nodes.SetNodeProcessing(n.ID, false)
		results = append(results, result)

		if runErr != nil {
			nodes.SetNodeFailed(n.ID, true)
			o.publish(ctx, events.Event{
				Type:      events.EventRunFailed,
				Timestamp: time.Now(),
				RunID:     runID,
				Payload: events.RunCompletedPayload{
					RunID:         runID,
					Duration:      time.Since(started),
					NodesExecuted: len(results),
					Success:       false,
					Error:         runErr.Error(),
				},
			})
			o.logger.Error("execution aborted", "run_id", runID, "node_id", n.ID, "error", runErr)
			return results, runErr
		}

		nodes.SetNodeFailed(n.ID, false)
		for _, out := range n.Outputs {
			produced[out] = result.Content
		}
	}

	o.publish(ctx, events.Event{
		Type:      events.EventRunCompleted,
		Timestamp: time.Now(),
		RunID:     runID,
		Payload: events.RunCompletedPayload{
			RunID:         runID,
			Duration:      time.Since(started),
			NodesExecuted: len(results),
			Success:       true,
		},
	})
	o.logger.Info("execution completed", "run_id", runID, "nodes", len(results), "duration", time.Since(started))
	return results, nil
}

// executeNode gathers one node's input content, invokes the processor, and
// builds the result record. The returned error is non-nil when the run must
// abort.
func (o *Orchestrator) executeNode(ctx context.Context, runID types.ID, n *node.Node, produced map[string]string, src ContentSource) (Result, error) {
	ctx, span := o.tracer.Start(ctx, "engine.node",
		trace.WithAttributes(
			attribute.String("node.id", n.ID.String()),
			attribute.String("node.type", n.Type.String()),
		),
	)
	defer span.End()

	nodeStarted := time.Now()

	var blocks []string
	for _, lbl := range n.Inputs {
		if content, ok := produced[lbl]; ok {
			blocks = append(blocks, content)
			continue
		}
		content, err := src.Content(lbl)
		if err != nil {
			wrapped := types.WrapError(types.CONTENT_NOT_FOUND, "cannot gather input "+lbl, err)
			o.publishNode(ctx, runID, n, false, time.Since(nodeStarted), wrapped.Error())
			return Result{
				NodeID:    n.ID,
				Success:   false,
				Error:     wrapped.Error(),
				Timestamp: time.Now(),
			}, wrapped
		}
		blocks = append(blocks, content)
	}

	res, err := o.processor.Process(ctx, ProcessRequest{
		Content:  strings.Join(blocks, "\n"),
		ToolType: n.Type,
		Prompt:   n.Prompt,
	})
	if err != nil || !res.Success {
		if err == nil {
			err = types.NewErrorf(types.EXECUTION_FAILED, "%s processing reported failure", n.Type)
		} else {
			err = types.WrapError(types.EXECUTION_FAILED, n.Type.String()+" processing failed", err)
		}
		o.publishNode(ctx, runID, n, false, time.Since(nodeStarted), err.Error())
		return Result{
			NodeID:    n.ID,
			Success:   false,
			Error:     err.Error(),
			Timestamp: time.Now(),
		}, err
	}

	o.publishNode(ctx, runID, n, true, time.Since(nodeStarted), "")
	return Result{
		NodeID:      n.ID,
		Success:     true,
		Content:     res.ResultText,
		ContentType: contentTypeFor(n.Outputs),
		Timestamp:   time.Now(),
	}, nil
}

func (o *Orchestrator) publishNode(ctx context.Context, runID types.ID, n *node.Node, success bool, duration time.Duration, errMsg string) {
	o.publish(ctx, events.Event{
		Type:      events.EventRunNode,
		Timestamp: time.Now(),
		NodeID:    n.ID,
		RunID:     runID,
		Payload: events.RunNodePayload{
			NodeID:   n.ID,
			ToolType: n.Type.String(),
			Success:  success,
			Duration: duration,
			Error:    errMsg,
		},
	})
}

func (o *Orchestrator) publish(ctx context.Context, event events.Event) {
	if err := o.bus.Publish(ctx, event); err != nil {
		o.logger.Debug("event publish failed", "type", event.Type, "error", err)
	}
}

// contentTypeFor derives a MIME type from the node's first output label.
func contentTypeFor(outputs []string) string {
	if len(outputs) > 0 && strings.HasSuffix(outputs[0], ".pdf") {
		return "application/pdf"
	}
	return "text/plain"
}
