package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/canvasflow/canvasflow/internal/catalog"
	"github.com/canvasflow/canvasflow/internal/graph"
	"github.com/canvasflow/canvasflow/internal/node"
	"github.com/canvasflow/canvasflow/internal/types"
)

type mapSource map[string]string

func (m mapSource) Content(lbl string) (string, error) {
	content, ok := m[lbl]
	if !ok {
		return "", fmt.Errorf("no content for label %s", lbl)
	}
	return content, nil
}

// recordingProcessor wraps SimulatedProcessor and records the request order.
type recordingProcessor struct {
	inner    SimulatedProcessor
	requests []ProcessRequest
	failOn   catalog.ToolType
}

func (p *recordingProcessor) Process(ctx context.Context, req ProcessRequest) (ProcessResult, error) {
	p.requests = append(p.requests, req)
	if p.failOn != "" && req.ToolType == p.failOn {
		return ProcessResult{}, errors.New("backend unavailable")
	}
	return p.inner.Process(ctx, req)
}

// buildChain creates summarize -> translate wired through the summarize
// node's output label.
func buildChain(t *testing.T) (*node.Store, *graph.ConnectionStore, *node.Node, *node.Node) {
	t.Helper()
	ctx := context.Background()

	nodes := node.NewStore(catalog.Default())
	conns := graph.NewConnectionStore()

	sum := nodes.CreateNode(ctx, catalog.ToolSummarize, node.Position{})
	require.True(t, nodes.AddLabelToNode(ctx, sum.ID, "A.txt"))
	require.Equal(t, []string{"A-sum.txt"}, sum.Outputs)

	tra := nodes.CreateNode(ctx, catalog.ToolTranslate, node.Position{})
	require.True(t, nodes.UpdateNodePrompt(ctx, tra.ID, "German"))
	require.True(t, nodes.AddLabelToNode(ctx, tra.ID, "A-sum.txt"))

	require.NoError(t, conns.Add(graph.Connection{
		FromKind: graph.EndpointNode, FromID: sum.ID.String(),
		ToKind: graph.EndpointNode, ToID: tra.ID.String(),
		Label: "A-sum.txt",
	}))

	return nodes, conns, sum, tra
}

func TestOrchestrator_Execute_Chain(t *testing.T) {
	nodes, conns, sum, tra := buildChain(t)
	processor := &recordingProcessor{}
	o := NewOrchestrator(processor)

	results, err := o.Execute(context.Background(), nodes, conns, mapSource{"A.txt": "hello world"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Upstream node runs first and its result feeds the downstream node.
	assert.Equal(t, sum.ID, results[0].NodeID)
	assert.Equal(t, tra.ID, results[1].NodeID)
	assert.True(t, results[0].Success)
	assert.True(t, results[1].Success)
	assert.Equal(t, "text/plain", results[0].ContentType)

	require.Len(t, processor.requests, 2)
	assert.Equal(t, catalog.ToolSummarize, processor.requests[0].ToolType)
	assert.Equal(t, "hello world", processor.requests[0].Content)
	assert.Equal(t, results[0].Content, processor.requests[1].Content)

	assert.False(t, o.Executing())
}

func TestOrchestrator_Execute_FailureAborts(t *testing.T) {
	nodes, conns, sum, tra := buildChain(t)
	processor := &recordingProcessor{failOn: catalog.ToolTranslate}
	o := NewOrchestrator(processor)

	results, err := o.Execute(context.Background(), nodes, conns, mapSource{"A.txt": "hello"})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.EXECUTION_FAILED))

	// Partial results are surfaced: the first success plus the failure.
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	assert.NotEmpty(t, results[1].Error)

	// Flags reflect the outcome on the nodes themselves.
	sumNode, _ := nodes.Get(sum.ID)
	traNode, _ := nodes.Get(tra.ID)
	assert.False(t, sumNode.Failed)
	assert.True(t, traNode.Failed)
	assert.False(t, traNode.Processing)
}

func TestOrchestrator_Execute_MissingContentAborts(t *testing.T) {
	nodes, conns, _, _ := buildChain(t)
	o := NewOrchestrator(&SimulatedProcessor{})

	results, err := o.Execute(context.Background(), nodes, conns, mapSource{})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.CONTENT_NOT_FOUND))
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
}

func TestOrchestrator_Execute_RejectsConcurrentRun(t *testing.T) {
	nodes, conns, _, _ := buildChain(t)

	var o *Orchestrator
	reentrant := processorFunc(func(ctx context.Context, req ProcessRequest) (ProcessResult, error) {
		// A second Execute while this run is in flight must fail fast.
		_, err := o.Execute(ctx, nodes, conns, mapSource{"A.txt": "x"})
		if !types.IsCode(err, types.EXECUTION_IN_PROGRESS) {
			return ProcessResult{}, fmt.Errorf("expected in-progress guard, got %v", err)
		}
		return (&SimulatedProcessor{}).Process(ctx, req)
	})
	o = NewOrchestrator(reentrant)

	_, err := o.Execute(context.Background(), nodes, conns, mapSource{"A.txt": "x"})
	require.NoError(t, err)
}

type processorFunc func(ctx context.Context, req ProcessRequest) (ProcessResult, error)

func (f processorFunc) Process(ctx context.Context, req ProcessRequest) (ProcessResult, error) {
	return f(ctx, req)
}

func TestOrchestrator_Execute_CycleFailsBeforeAnyNode(t *testing.T) {
	ctx := context.Background()
	nodes := node.NewStore(catalog.Default())
	conns := graph.NewConnectionStore()

	a := nodes.CreateNode(ctx, catalog.ToolSummarize, node.Position{})
	b := nodes.CreateNode(ctx, catalog.ToolSummarize, node.Position{})
	require.NoError(t, conns.Add(graph.Connection{
		FromKind: graph.EndpointNode, FromID: a.ID.String(),
		ToKind: graph.EndpointNode, ToID: b.ID.String(), Label: "x",
	}))
	require.NoError(t, conns.Add(graph.Connection{
		FromKind: graph.EndpointNode, FromID: b.ID.String(),
		ToKind: graph.EndpointNode, ToID: a.ID.String(), Label: "y",
	}))

	processor := &recordingProcessor{}
	o := NewOrchestrator(processor)

	results, err := o.Execute(ctx, nodes, conns, mapSource{})
	require.Error(t, err)

	var graphErr *graph.GraphError
	require.True(t, errors.As(err, &graphErr))
	assert.Equal(t, graph.GraphErrorDependency, graphErr.Code)
	assert.Nil(t, results)
	assert.Empty(t, processor.requests)
}

func TestOrchestrator_Execute_SpansEachNode(t *testing.T) {
	nodes, conns, _, _ := buildChain(t)

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	o := NewOrchestrator(&SimulatedProcessor{}, WithTracer(tp.Tracer("test")))

	_, err := o.Execute(context.Background(), nodes, conns, mapSource{"A.txt": "hello"})
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	for _, s := range spans {
		assert.Equal(t, "engine.node", s.Name())
	}
}

func TestSimulatedProcessor_AllToolTypes(t *testing.T) {
	p := &SimulatedProcessor{}
	ctx := context.Background()

	for _, toolType := range catalog.Default().Types() {
		res, err := p.Process(ctx, ProcessRequest{Content: "line", ToolType: toolType, Prompt: "p"})
		require.NoError(t, err, "tool %s", toolType)
		assert.True(t, res.Success)
		assert.NotEmpty(t, res.ResultText)
		assert.NotEmpty(t, res.OutputFileName)
	}
}

func TestSimulatedProcessor_UnknownTool(t *testing.T) {
	p := &SimulatedProcessor{}

	_, err := p.Process(context.Background(), ProcessRequest{ToolType: catalog.ToolType("shred")})
	require.Error(t, err)
}
