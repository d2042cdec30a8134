// Package engine implements the execution orchestrator: it topologically
// sorts the canvas nodes and walks them strictly sequentially, handing each
// node to a processing backend and collecting per-node results. A single
// node failure aborts the remaining run; there is no retry and no rollback
// of labels already produced.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/canvasflow/canvasflow/internal/catalog"
)

// ProcessRequest is the unit of work handed to a processing backend.
type ProcessRequest struct {
	// Content is the gathered input content, one block per input label.
	Content string `json:"content"`

	// ToolType selects the tool-specific behavior.
	ToolType catalog.ToolType `json:"tool_type"`

	// Prompt is the node's free-text user instruction, possibly empty.
	Prompt string `json:"prompt,omitempty"`
}

// ProcessResult is what a processing backend returns for one node.
type ProcessResult struct {
	Success        bool   `json:"success"`
	ResultText     string `json:"result_text"`
	OutputFileName string `json:"output_file_name"`
}

// Processor is the opaque external processing collaborator. The orchestrator
// treats it as a black box that can fail.
type Processor interface {
	Process(ctx context.Context, req ProcessRequest) (ProcessResult, error)
}

// SimulatedProcessor is the shipped backend: it produces deterministic
// placeholder content per tool type after an artificial delay, standing in
// for a real processing service.
type SimulatedProcessor struct {
	// Delay is the artificial per-node processing time. Zero means no delay.
	Delay time.Duration
}

// Process generates placeholder output for the request. It honors context
// cancellation during the artificial delay.
func (p *SimulatedProcessor) Process(ctx context.Context, req ProcessRequest) (ProcessResult, error) {
	if p.Delay > 0 {
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return ProcessResult{}, ctx.Err()
		}
	}

	lines := strings.Count(req.Content, "\n") + 1
	if req.Content == "" {
		lines = 0
	}

	var text string
	switch req.ToolType {
	case catalog.ToolSummarize:
		text = fmt.Sprintf("[summary] condensed %d line(s) of input", lines)
	case catalog.ToolJoin:
		text = fmt.Sprintf("[joined] merged %d line(s) of input", lines)
	case catalog.ToolTranslate:
		text = fmt.Sprintf("[translated to %s] %d line(s)", req.Prompt, lines)
	case catalog.ToolAnalyze:
		text = fmt.Sprintf("[analysis: %s] examined %d line(s)", req.Prompt, lines)
	case catalog.ToolExtract:
		text = fmt.Sprintf("[extracted text] %d line(s)", lines)
	case catalog.ToolConvertPDF:
		text = fmt.Sprintf("[pdf document] rendered %d line(s)", lines)
	default:
		return ProcessResult{Success: false}, fmt.Errorf("unsupported tool type: %s", req.ToolType)
	}

	return ProcessResult{
		Success:        true,
		ResultText:     text,
		OutputFileName: "result" + outputExtension(req.ToolType),
	}, nil
}

func outputExtension(toolType catalog.ToolType) string {
	if toolType == catalog.ToolConvertPDF {
		return ".pdf"
	}
	return ".txt"
}
