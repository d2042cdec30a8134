// Package catalog defines the static tool catalog: the single authoritative
// table of tool types and their validation rules. Both the node store and the
// node status evaluator read this table; there is deliberately no second copy
// of these rules anywhere in the codebase.
package catalog

import (
	"sort"
	"strings"
)

// ToolType identifies a kind of processing tool that can be placed on the canvas.
type ToolType string

const (
	ToolSummarize  ToolType = "summarize"
	ToolJoin       ToolType = "join"
	ToolTranslate  ToolType = "translate"
	ToolAnalyze    ToolType = "analyze"
	ToolExtract    ToolType = "extract"
	ToolConvertPDF ToolType = "convert-pdf"
)

// String returns the string representation of the tool type.
func (t ToolType) String() string {
	return string(t)
}

// IsValid checks if the ToolType is a valid value.
func (t ToolType) IsValid() bool {
	switch t {
	case ToolSummarize, ToolJoin, ToolTranslate, ToolAnalyze, ToolExtract, ToolConvertPDF:
		return true
	default:
		return false
	}
}

// PromptRequirement describes whether a tool needs a free-text user prompt.
type PromptRequirement string

const (
	// PromptNone means the tool ignores the user prompt entirely.
	PromptNone PromptRequirement = "none"
	// PromptOptional means the tool uses the prompt when present and falls
	// back to a default behavior when it is empty.
	PromptOptional PromptRequirement = "optional"
	// PromptMandatory means the tool produces no outputs until a non-empty
	// prompt is set.
	PromptMandatory PromptRequirement = "mandatory"
)

// OutputShape describes how a tool maps input labels to output labels.
type OutputShape string

const (
	// ShapePerInput produces one output per input label by suffix substitution.
	ShapePerInput OutputShape = "per-input"
	// ShapeCombined produces a single output derived from all inputs jointly.
	ShapeCombined OutputShape = "combined"
)

// ToolSpec holds the validation and naming rules for a single tool type.
type ToolSpec struct {
	Type        ToolType
	DisplayName string

	// AcceptedSuffixes is the set of label suffixes (file extensions) this
	// tool accepts as inputs.
	AcceptedSuffixes []string

	// MinInputs is the minimum number of inputs required before the tool is
	// executable. MaxInputs of 0 means unlimited.
	MinInputs int
	MaxInputs int

	Prompt PromptRequirement
	Shape  OutputShape

	// OutputSuffix is appended to the generated base name, e.g. "-sum.txt".
	OutputSuffix string
}

// AcceptsLabel reports whether a label's suffix is in the tool's accepted set.
func (s ToolSpec) AcceptsLabel(label string) bool {
	for _, suffix := range s.AcceptedSuffixes {
		if strings.HasSuffix(label, suffix) {
			return true
		}
	}
	return false
}

// Catalog is a read-only lookup table of tool specifications.
type Catalog struct {
	specs map[ToolType]ToolSpec
}

// Default returns the built-in tool catalog.
func Default() *Catalog {
	specs := []ToolSpec{
		{
			Type:             ToolSummarize,
			DisplayName:      "Summarize",
			AcceptedSuffixes: []string{".txt"},
			MinInputs:        1,
			Prompt:           PromptOptional,
			Shape:            ShapeCombined,
			OutputSuffix:     "-sum.txt",
		},
		{
			Type:             ToolJoin,
			DisplayName:      "Join",
			AcceptedSuffixes: []string{".txt"},
			MinInputs:        2,
			Prompt:           PromptNone,
			Shape:            ShapeCombined,
			OutputSuffix:     "-joi.txt",
		},
		{
			Type:             ToolTranslate,
			DisplayName:      "Translate",
			AcceptedSuffixes: []string{".txt"},
			MinInputs:        1,
			Prompt:           PromptMandatory,
			Shape:            ShapePerInput,
			OutputSuffix:     "-tra.txt",
		},
		{
			Type:             ToolAnalyze,
			DisplayName:      "Analyze",
			AcceptedSuffixes: []string{".txt"},
			MinInputs:        1,
			Prompt:           PromptMandatory,
			Shape:            ShapeCombined,
			OutputSuffix:     "-anl.txt",
		},
		{
			Type:             ToolExtract,
			DisplayName:      "Extract",
			AcceptedSuffixes: []string{".pdf", ".docx", ".xlsx", ".msg"},
			MinInputs:        1,
			Prompt:           PromptNone,
			Shape:            ShapePerInput,
			OutputSuffix:     ".txt",
		},
		{
			Type:             ToolConvertPDF,
			DisplayName:      "Convert to PDF",
			AcceptedSuffixes: []string{".txt"},
			MinInputs:        1,
			Prompt:           PromptNone,
			Shape:            ShapePerInput,
			OutputSuffix:     ".pdf",
		},
	}

	m := make(map[ToolType]ToolSpec, len(specs))
	for _, s := range specs {
		m[s.Type] = s
	}
	return &Catalog{specs: m}
}

// Spec returns the specification for the given tool type.
// The second return value is false if the type is not in the catalog.
func (c *Catalog) Spec(t ToolType) (ToolSpec, bool) {
	s, ok := c.specs[t]
	return s, ok
}

// Types returns all tool types in the catalog in stable sorted order.
func (c *Catalog) Types() []ToolType {
	out := make([]ToolType, 0, len(c.specs))
	for t := range c.specs {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
