package node

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvasflow/canvasflow/internal/catalog"
	"github.com/canvasflow/canvasflow/internal/events"
	"github.com/canvasflow/canvasflow/internal/types"
)

type fakeResolver struct {
	taken map[string]bool
}

func (r *fakeResolver) Exists(lbl string) bool { return r.taken[lbl] }

func newTestStore(t *testing.T, opts ...StoreOption) *Store {
	t.Helper()
	return NewStore(catalog.Default(), opts...)
}

func TestStore_CreateNode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n := s.CreateNode(ctx, catalog.ToolJoin, Position{X: 100, Y: 50})
	require.NotNil(t, n)
	assert.False(t, n.ID.IsZero())
	assert.Equal(t, catalog.ToolJoin, n.Type)
	assert.Empty(t, n.Inputs)
	assert.Empty(t, n.Outputs)
	assert.False(t, n.Processing)
	assert.False(t, n.Failed)
	assert.True(t, n.Interactive)
	assert.Equal(t, 1, s.Len())
}

func TestStore_CreateNode_UnknownType(t *testing.T) {
	s := newTestStore(t)

	n := s.CreateNode(context.Background(), catalog.ToolType("shred"), Position{})
	assert.Nil(t, n)
	assert.Equal(t, 0, s.Len())
}

func TestStore_Add_RejectsDuplicateID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id := types.NewID()
	first := s.Add(ctx, &Node{ID: id, Type: catalog.ToolJoin})
	require.NotNil(t, first)

	second := s.Add(ctx, &Node{ID: id, Type: catalog.ToolSummarize})
	assert.Nil(t, second)
	assert.Equal(t, 1, s.Len())
}

func TestStore_Add_RejectsMissingFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	assert.Nil(t, s.Add(ctx, nil))
	assert.Nil(t, s.Add(ctx, &Node{Type: catalog.ToolJoin}))
	assert.Nil(t, s.Add(ctx, &Node{ID: types.NewID()}))
}

func TestStore_AddLabelToNode_SuffixRejected(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	ctx := context.Background()

	ch, cleanup := bus.Subscribe(ctx, events.Filter{Types: []events.EventType{events.EventValidationFailed}}, 10)
	defer cleanup()

	s := newTestStore(t, WithBus(bus))
	n := s.CreateNode(ctx, catalog.ToolSummarize, Position{})

	// Suffix not in the accepted set: add must fail and inputs stay unchanged.
	ok := s.AddLabelToNode(ctx, n.ID, "A.pdf")
	assert.False(t, ok)
	assert.Empty(t, n.Inputs)

	event := <-ch
	assert.Equal(t, events.EventValidationFailed, event.Type)
	payload := event.Payload.(events.ValidationFailedPayload)
	assert.Equal(t, "A.pdf", payload.Label)
}

func TestStore_AddLabelToNode_DuplicateLabel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n := s.CreateNode(ctx, catalog.ToolSummarize, Position{})
	require.True(t, s.AddLabelToNode(ctx, n.ID, "A.txt"))
	assert.False(t, s.AddLabelToNode(ctx, n.ID, "A.txt"))
	assert.Equal(t, []string{"A.txt"}, n.Inputs)
}

func TestStore_AddLabelToNode_MandatoryPromptGate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n := s.CreateNode(ctx, catalog.ToolTranslate, Position{})

	// Prompt empty: label rejected.
	assert.False(t, s.AddLabelToNode(ctx, n.ID, "A.txt"))

	require.True(t, s.UpdateNodePrompt(ctx, n.ID, "German"))
	assert.True(t, s.AddLabelToNode(ctx, n.ID, "A.txt"))
	assert.Equal(t, []string{"A-tra.txt"}, n.Outputs)
}

func TestStore_OutputRegeneration_Combined(t *testing.T) {
	var added, removed []string
	s := newTestStore(t, WithOutputHooks(
		func(_ *Node, lbl string, _ []string) { added = append(added, lbl) },
		func(_ *Node, lbl string) { removed = append(removed, lbl) },
	))
	ctx := context.Background()

	n := s.CreateNode(ctx, catalog.ToolSummarize, Position{})
	require.True(t, s.AddLabelToNode(ctx, n.ID, "B.txt"))
	assert.Equal(t, []string{"B-sum.txt"}, n.Outputs)

	// Adding a second input retracts the previous combined output.
	require.True(t, s.AddLabelToNode(ctx, n.ID, "A.txt"))
	assert.Equal(t, []string{"AB-sum.txt"}, n.Outputs)

	assert.Equal(t, []string{"B-sum.txt", "AB-sum.txt"}, added)
	assert.Equal(t, []string{"B-sum.txt"}, removed)
}

func TestStore_OutputRegeneration_Idempotent(t *testing.T) {
	// Resolver tracks the labels currently registered in the stores, kept in
	// sync through the output hooks the way the workspace controller does it.
	resolver := &fakeResolver{taken: map[string]bool{}}
	s := newTestStore(t,
		WithResolver(resolver),
		WithOutputHooks(
			func(_ *Node, lbl string, _ []string) { resolver.taken[lbl] = true },
			func(_ *Node, lbl string) { delete(resolver.taken, lbl) },
		),
	)
	ctx := context.Background()

	n := s.CreateNode(ctx, catalog.ToolJoin, Position{})
	n.Interactive = false // keep the node alive through the empty-input window

	require.True(t, s.AddLabelToNode(ctx, n.ID, "A.txt"))
	require.True(t, s.AddLabelToNode(ctx, n.ID, "B.txt"))
	first := slices.Clone(n.Outputs)
	require.Equal(t, []string{"AB-joi.txt"}, first)

	// Removing and re-adding the same input set must regenerate the exact
	// same name, not AB-joi2.txt.
	require.True(t, s.RemoveLabelFromNode(ctx, n.ID, "A.txt"))
	require.True(t, s.RemoveLabelFromNode(ctx, n.ID, "B.txt"))
	require.True(t, s.AddLabelToNode(ctx, n.ID, "B.txt"))
	require.True(t, s.AddLabelToNode(ctx, n.ID, "A.txt"))

	assert.Equal(t, first, n.Outputs)
}

func TestStore_OutputNaming_ConflictWithOtherNode(t *testing.T) {
	resolver := &fakeResolver{taken: map[string]bool{"AB-sum.txt": true}}
	s := newTestStore(t, WithResolver(resolver))
	ctx := context.Background()

	n := s.CreateNode(ctx, catalog.ToolSummarize, Position{})
	require.True(t, s.AddLabelToNode(ctx, n.ID, "A.txt"))
	require.True(t, s.AddLabelToNode(ctx, n.ID, "B.txt"))

	assert.Equal(t, []string{"AB-sum2.txt"}, n.Outputs)
}

func TestStore_RemoveLabel_ZeroInputsMeansZeroOutputs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n := s.CreateNode(ctx, catalog.ToolSummarize, Position{})
	n.Interactive = false

	require.True(t, s.AddLabelToNode(ctx, n.ID, "A.txt"))
	require.NotEmpty(t, n.Outputs)

	require.True(t, s.RemoveLabelFromNode(ctx, n.ID, "A.txt"))
	assert.Empty(t, n.Outputs)
}

func TestStore_AutoCleanup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n := s.CreateNode(ctx, catalog.ToolSummarize, Position{})
	require.True(t, s.AddLabelToNode(ctx, n.ID, "A.txt"))
	require.True(t, s.RemoveLabelFromNode(ctx, n.ID, "A.txt"))

	// Interactive node with zero inputs is removed automatically.
	_, exists := s.Get(n.ID)
	assert.False(t, exists)
}

func TestStore_AutoCleanup_SkipsImportedNodes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n := s.Add(ctx, &Node{ID: types.NewID(), Type: catalog.ToolSummarize})
	require.NotNil(t, n)
	require.True(t, s.AddLabelToNode(ctx, n.ID, "A.txt"))
	require.True(t, s.RemoveLabelFromNode(ctx, n.ID, "A.txt"))

	_, exists := s.Get(n.ID)
	assert.True(t, exists)
}

func TestStore_RemoveNode_CascadesOutputs(t *testing.T) {
	var cascaded []string
	s := newTestStore(t, WithCascade(func(_ context.Context, lbl string) error {
		cascaded = append(cascaded, lbl)
		return nil
	}))
	ctx := context.Background()

	n := s.CreateNode(ctx, catalog.ToolSummarize, Position{})
	require.True(t, s.AddLabelToNode(ctx, n.ID, "A.txt"))
	require.Equal(t, []string{"A-sum.txt"}, n.Outputs)

	s.RemoveNode(ctx, n.ID)

	assert.Equal(t, []string{"A-sum.txt"}, cascaded)
	_, exists := s.Get(n.ID)
	assert.False(t, exists)
}

func TestStore_UpdateNodePrompt_RegeneratesOutputs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n := s.CreateNode(ctx, catalog.ToolAnalyze, Position{})
	require.True(t, s.UpdateNodePrompt(ctx, n.ID, "find risks"))
	require.True(t, s.AddLabelToNode(ctx, n.ID, "A.txt"))
	require.Equal(t, []string{"A-anl.txt"}, n.Outputs)

	// Clearing a mandatory prompt retracts the outputs.
	require.True(t, s.UpdateNodePrompt(ctx, n.ID, ""))
	assert.Empty(t, n.Outputs)
}

func TestStore_UpdateNodePosition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n := s.CreateNode(ctx, catalog.ToolJoin, Position{})
	require.True(t, s.UpdateNodePosition(n.ID, Position{X: 10, Y: 20}))
	assert.Equal(t, Position{X: 10, Y: 20}, n.Position)

	assert.False(t, s.UpdateNodePosition(types.NewID(), Position{}))
}

func TestStore_ProcessingAndFailedFlags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n := s.CreateNode(ctx, catalog.ToolJoin, Position{})
	require.True(t, s.SetNodeProcessing(n.ID, true))
	assert.True(t, n.Processing)

	require.True(t, s.SetNodeFailed(n.ID, true))
	assert.True(t, n.Failed)
}

func TestStore_FindProducer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n := s.CreateNode(ctx, catalog.ToolSummarize, Position{})
	require.True(t, s.AddLabelToNode(ctx, n.ID, "A.txt"))

	producer, ok := s.FindProducer("A-sum.txt")
	require.True(t, ok)
	assert.Equal(t, n.ID, producer.ID)

	_, ok = s.FindProducer("Z.txt")
	assert.False(t, ok)
}
