package node

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/canvasflow/canvasflow/internal/catalog"
)

func toolSpec(t *testing.T, toolType catalog.ToolType) catalog.ToolSpec {
	t.Helper()
	spec, ok := catalog.Default().Spec(toolType)
	require.True(t, ok)
	return spec
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		toolType catalog.ToolType
		inputs   []string
		prompt   string
		expected State
	}{
		{
			name:     "below minimum inputs is blocked",
			toolType: catalog.ToolJoin,
			inputs:   []string{"A.txt"},
			expected: StateBlocked,
		},
		{
			name:     "zero inputs is blocked",
			toolType: catalog.ToolSummarize,
			expected: StateBlocked,
		},
		{
			name:     "mandatory prompt empty is blocked",
			toolType: catalog.ToolTranslate,
			inputs:   []string{"A.txt"},
			expected: StateBlocked,
		},
		{
			name:     "mandatory prompt whitespace is blocked",
			toolType: catalog.ToolTranslate,
			inputs:   []string{"A.txt"},
			prompt:   "   ",
			expected: StateBlocked,
		},
		{
			name:     "optional prompt empty is needs-input",
			toolType: catalog.ToolSummarize,
			inputs:   []string{"A.txt"},
			expected: StateNeedsInput,
		},
		{
			name:     "optional prompt set is ready",
			toolType: catalog.ToolSummarize,
			inputs:   []string{"A.txt"},
			prompt:   "short summary",
			expected: StateReady,
		},
		{
			name:     "no prompt requirement is ready",
			toolType: catalog.ToolJoin,
			inputs:   []string{"A.txt", "B.txt"},
			expected: StateReady,
		},
		{
			name:     "mandatory prompt set is ready",
			toolType: catalog.ToolTranslate,
			inputs:   []string{"A.txt"},
			prompt:   "German",
			expected: StateReady,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &Node{Type: tt.toolType, Inputs: tt.inputs, Prompt: tt.prompt}
			status := Evaluate(n, toolSpec(t, tt.toolType))
			assert.Equal(t, tt.expected, status.State)
			if tt.expected != StateReady {
				assert.NotEmpty(t, status.Reason)
			}
		})
	}
}
