// Package naming generates output labels for tool nodes. Generation is a pure
// function of (tool spec, input labels, user prompt) plus an existence check
// used for conflict resolution, so a node's outputs can be recomputed at any
// time and must come out identical for the same inputs.
package naming

import (
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/canvasflow/canvasflow/internal/catalog"
	"github.com/canvasflow/canvasflow/internal/label"
)

// ExistsFunc reports whether a label is already taken anywhere in the system.
// Callers must exclude the node's own current outputs, otherwise regeneration
// of an unchanged input set would spuriously bump the conflict counter.
type ExistsFunc func(lbl string) bool

// Output pairs a generated label with the input labels it derives from.
// Per-input tools attribute each output to the single input whose suffix was
// substituted; combined tools attribute their one output to every input.
type Output struct {
	Label   string
	Sources []string
}

// Generate computes the outputs for a node with the given tool spec, input
// labels, and user prompt.
//
// Rules:
//   - zero inputs produce zero outputs
//   - a mandatory prompt that is empty gates generation to zero outputs
//   - per-input tools map each input by suffix substitution
//   - combined tools sort the inputs' base names and concatenate them
//   - name collisions are resolved with an incrementing numeric suffix
func Generate(spec catalog.ToolSpec, inputs []string, prompt string, exists ExistsFunc) []Output {
	if len(inputs) == 0 {
		return nil
	}
	if spec.Prompt == catalog.PromptMandatory && strings.TrimSpace(prompt) == "" {
		return nil
	}
	if exists == nil {
		exists = func(string) bool { return false }
	}

	switch spec.Shape {
	case catalog.ShapeCombined:
		return []Output{{
			Label:   Resolve(CombinedName(inputs, spec.OutputSuffix), exists),
			Sources: slices.Clone(inputs),
		}}
	default:
		out := make([]Output, 0, len(inputs))
		for _, in := range inputs {
			name := label.Base(in) + spec.OutputSuffix
			name = Resolve(name, func(l string) bool {
				if exists(l) {
					return true
				}
				// A name handed out earlier in this same generation pass
				// counts as taken too.
				for _, prev := range out {
					if prev.Label == l {
						return true
					}
				}
				return false
			})
			out = append(out, Output{Label: name, Sources: []string{in}})
		}
		return out
	}
}

// Outputs is Generate without the provenance: just the labels, in order.
func Outputs(spec catalog.ToolSpec, inputs []string, prompt string, exists ExistsFunc) []string {
	gen := Generate(spec, inputs, prompt, exists)
	if gen == nil {
		return nil
	}
	out := make([]string, 0, len(gen))
	for _, o := range gen {
		out = append(out, o.Label)
	}
	return out
}

// CombinedName builds the combined output name for the given inputs:
// base names sorted and concatenated, then the tool suffix appended.
// Input order does not matter; ["B","A"] and ["A","B"] both yield "AB" + suffix.
func CombinedName(inputs []string, suffix string) string {
	bases := make([]string, 0, len(inputs))
	for _, in := range inputs {
		bases = append(bases, label.Base(in))
	}
	sort.Strings(bases)
	return strings.Join(bases, "") + suffix
}

// Resolve returns name unchanged if it is free, otherwise the first variant
// with an incrementing numeric suffix before the extension that is free:
// "AB-sum.txt" -> "AB-sum2.txt" -> "AB-sum3.txt".
func Resolve(name string, exists ExistsFunc) string {
	if !exists(name) {
		return name
	}

	base := label.Base(name)
	ext := label.Ext(name)
	for n := 2; ; n++ {
		candidate := base + strconv.Itoa(n) + ext
		if !exists(candidate) {
			return candidate
		}
	}
}
