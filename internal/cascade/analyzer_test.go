package cascade

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvasflow/canvasflow/internal/catalog"
	"github.com/canvasflow/canvasflow/internal/graph"
	"github.com/canvasflow/canvasflow/internal/label"
	"github.com/canvasflow/canvasflow/internal/node"
)

// harness wires a node store, connection store, and the three label stores
// together the way the workspace controller does: node output regeneration
// keeps the text store in sync, and naming collisions consult all stores.
type harness struct {
	input    *label.Store
	text     *label.Store
	output   *label.Store
	nodes    *node.Store
	conns    *graph.ConnectionStore
	analyzer *Analyzer
}

func (h *harness) Exists(lbl string) bool {
	return h.input.HasLabel(lbl) || h.text.HasLabel(lbl) || h.output.HasLabel(lbl)
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		input:  label.NewStore(label.KindInput),
		text:   label.NewStore(label.KindText),
		output: label.NewStore(label.KindOutput),
		conns:  graph.NewConnectionStore(),
	}

	cat := catalog.Default()
	h.nodes = node.NewStore(cat,
		node.WithResolver(h),
		node.WithOutputHooks(
			func(n *node.Node, lbl string, sources []string) {
				_ = h.text.Add(label.File{
					Label:    lbl,
					Sources:  slices.Clone(sources),
					Producer: n.ID.String(),
					Visible:  true,
				})
			},
			func(_ *node.Node, lbl string) {
				h.text.Remove(lbl)
			},
		),
	)

	h.analyzer = NewAnalyzer(cat, h.nodes, h.conns, []*label.Store{h.input, h.text, h.output})
	return h
}

// upload registers an input file plus its auto-derived text file.
func (h *harness) upload(t *testing.T, lbl string) {
	t.Helper()
	require.NoError(t, h.input.Add(label.File{Label: lbl, Visible: true}))
	require.NoError(t, h.text.Add(label.File{
		Label:    label.Base(lbl) + ".txt",
		Sources:  []string{lbl},
		Producer: label.ProducerUpload,
		Visible:  true,
	}))
}

func TestAnalyze_NoDependents(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.input.Add(label.File{Label: "A.pdf", Visible: true}))

	impact := h.analyzer.AnalyzeDeletionImpact("A.pdf")

	assert.Equal(t, "A.pdf", impact.Label)
	assert.True(t, impact.Empty())
	assert.Empty(t, impact.AffectedNodes)
	assert.Empty(t, impact.CascadingLabels)
}

func TestAnalyze_NodeAtMinimumIsDeletedEntirely(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.upload(t, "A.pdf")
	h.upload(t, "B.pdf")

	// Join requires 2 inputs and has exactly 2, one of them cascading away.
	join := h.nodes.CreateNode(ctx, catalog.ToolJoin, node.Position{})
	require.True(t, h.nodes.AddLabelToNode(ctx, join.ID, "A.txt"))
	require.True(t, h.nodes.AddLabelToNode(ctx, join.ID, "B.txt"))

	impact := h.analyzer.AnalyzeDeletionImpact("A.txt")

	require.Len(t, impact.AffectedNodes, 1)
	affected := impact.AffectedNodes[0]
	assert.Equal(t, join.ID, affected.NodeID)
	assert.Equal(t, NodeActionDelete, affected.Action)
	assert.Equal(t, []string{"A.txt"}, affected.Labels)
	assert.NotEmpty(t, affected.Reason)
}

func TestAnalyze_NodeAboveMinimumIsModified(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.upload(t, "A.pdf")
	h.upload(t, "B.pdf")

	sum := h.nodes.CreateNode(ctx, catalog.ToolSummarize, node.Position{})
	require.True(t, h.nodes.AddLabelToNode(ctx, sum.ID, "A.txt"))
	require.True(t, h.nodes.AddLabelToNode(ctx, sum.ID, "B.txt"))

	impact := h.analyzer.AnalyzeDeletionImpact("A.txt")

	require.Len(t, impact.AffectedNodes, 1)
	assert.Equal(t, NodeActionModify, impact.AffectedNodes[0].Action)
}

func TestAnalyze_ProvenanceClosure(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.upload(t, "A.pdf")

	sum := h.nodes.CreateNode(ctx, catalog.ToolSummarize, node.Position{})
	require.True(t, h.nodes.AddLabelToNode(ctx, sum.ID, "A.txt"))
	require.Equal(t, []string{"A-sum.txt"}, sum.Outputs)

	// Deleting the upload cascades through its text file to the node output.
	impact := h.analyzer.AnalyzeDeletionImpact("A.pdf")

	assert.Equal(t, []string{"A-sum.txt", "A.txt"}, impact.CascadingLabels)
	require.Len(t, impact.AffectedNodes, 1)
	assert.Equal(t, NodeActionDelete, impact.AffectedNodes[0].Action)
}

func TestAnalyze_UnrelatedLabelsNotCascaded(t *testing.T) {
	h := newHarness(t)
	h.upload(t, "A.pdf")

	// A label that merely contains the letter A is not a dependent.
	require.NoError(t, h.text.Add(label.File{Label: "BANANA.txt", Producer: label.ProducerUpload, Visible: true}))

	impact := h.analyzer.AnalyzeDeletionImpact("A.pdf")
	assert.Equal(t, []string{"A.txt"}, impact.CascadingLabels)
}

func TestAnalyze_IncludesDisappearingConnections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.upload(t, "A.pdf")
	h.upload(t, "B.pdf")

	join := h.nodes.CreateNode(ctx, catalog.ToolJoin, node.Position{})
	require.True(t, h.nodes.AddLabelToNode(ctx, join.ID, "A.txt"))
	require.True(t, h.nodes.AddLabelToNode(ctx, join.ID, "B.txt"))
	require.NoError(t, h.conns.Add(graph.Connection{
		FromKind: graph.EndpointTextFile, FromID: "A.txt",
		ToKind: graph.EndpointNode, ToID: join.ID.String(), Label: "A.txt",
	}))
	require.NoError(t, h.conns.Add(graph.Connection{
		FromKind: graph.EndpointTextFile, FromID: "B.txt",
		ToKind: graph.EndpointNode, ToID: join.ID.String(), Label: "B.txt",
	}))

	impact := h.analyzer.AnalyzeDeletionImpact("A.txt")

	// Both edges go: one carries the label, the other touches the doomed node.
	assert.Len(t, impact.RemovedConnections, 2)
}

func TestApply_FullProtocol(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.upload(t, "A.pdf")
	h.upload(t, "B.pdf")

	sum := h.nodes.CreateNode(ctx, catalog.ToolSummarize, node.Position{})
	require.True(t, h.nodes.AddLabelToNode(ctx, sum.ID, "A.txt"))
	require.True(t, h.nodes.AddLabelToNode(ctx, sum.ID, "B.txt"))
	require.Equal(t, []string{"AB-sum.txt"}, sum.Outputs)

	impact := h.analyzer.AnalyzeDeletionImpact("A.pdf")
	require.NoError(t, h.analyzer.Apply(ctx, impact))

	// The upload, its text file, and the stale combined output are gone.
	assert.False(t, h.input.HasLabel("A.pdf"))
	assert.False(t, h.text.HasLabel("A.txt"))
	assert.False(t, h.text.HasLabel("AB-sum.txt"))

	// The node survives with B.txt and a regenerated output.
	n, ok := h.nodes.Get(sum.ID)
	require.True(t, ok)
	assert.Equal(t, []string{"B.txt"}, n.Inputs)
	assert.Equal(t, []string{"B-sum.txt"}, n.Outputs)
	assert.True(t, h.text.HasLabel("B-sum.txt"))

	// The untouched upload is still there.
	assert.True(t, h.input.HasLabel("B.pdf"))
}

func TestDelete_PerInputOutputsCascadeIndependently(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.upload(t, "A.pdf")
	h.upload(t, "B.pdf")

	// Translate is per-input: each output derives from exactly one input.
	tra := h.nodes.CreateNode(ctx, catalog.ToolTranslate, node.Position{})
	require.True(t, h.nodes.UpdateNodePrompt(ctx, tra.ID, "German"))
	require.True(t, h.nodes.AddLabelToNode(ctx, tra.ID, "A.txt"))
	require.True(t, h.nodes.AddLabelToNode(ctx, tra.ID, "B.txt"))
	require.Equal(t, []string{"A-tra.txt", "B-tra.txt"}, tra.Outputs)

	// Only the A lineage cascades; B-tra.txt does not derive from A.pdf.
	impact := h.analyzer.AnalyzeDeletionImpact("A.pdf")
	assert.Equal(t, []string{"A-tra.txt", "A.txt"}, impact.CascadingLabels)

	require.NoError(t, h.analyzer.Apply(ctx, impact))

	// The node survives with the B lineage intact, and its remaining output
	// is still registered in the text store.
	n, ok := h.nodes.Get(tra.ID)
	require.True(t, ok)
	assert.Equal(t, []string{"B.txt"}, n.Inputs)
	assert.Equal(t, []string{"B-tra.txt"}, n.Outputs)
	assert.True(t, h.text.HasLabel("B-tra.txt"))
	assert.False(t, h.text.HasLabel("A-tra.txt"))
}

func TestApply_LeavesUnconfiguredNodesAlone(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.upload(t, "A.pdf")

	// A freshly dropped tool with no inputs yet is empty but not affected.
	idle := h.nodes.CreateNode(ctx, catalog.ToolSummarize, node.Position{})

	require.NoError(t, h.analyzer.Delete(ctx, "A.pdf"))

	_, ok := h.nodes.Get(idle.ID)
	assert.True(t, ok)
}

func TestApply_RemovesNodeAndEdges(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.upload(t, "A.pdf")
	h.upload(t, "B.pdf")

	join := h.nodes.CreateNode(ctx, catalog.ToolJoin, node.Position{})
	require.True(t, h.nodes.AddLabelToNode(ctx, join.ID, "A.txt"))
	require.True(t, h.nodes.AddLabelToNode(ctx, join.ID, "B.txt"))
	require.NoError(t, h.conns.Add(graph.Connection{
		FromKind: graph.EndpointTextFile, FromID: "A.txt",
		ToKind: graph.EndpointNode, ToID: join.ID.String(), Label: "A.txt",
	}))

	require.NoError(t, h.analyzer.Delete(ctx, "A.txt"))

	_, ok := h.nodes.Get(join.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, h.conns.Len())
	assert.False(t, h.text.HasLabel("AB-joi.txt"))
}
