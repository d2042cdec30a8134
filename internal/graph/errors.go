package graph

import (
	"fmt"
	"strings"
)

// GraphErrorCode classifies structural graph errors. These block execution
// entirely and must be surfaced before any node runs.
type GraphErrorCode string

const (
	// GraphErrorCycleDetected indicates the node graph contains a cycle.
	GraphErrorCycleDetected GraphErrorCode = "CYCLE_DETECTED"

	// GraphErrorDuplicateAction indicates two nodes of the same type share
	// an identical input set.
	GraphErrorDuplicateAction GraphErrorCode = "DUPLICATE_ACTION"

	// GraphErrorNotExecutable indicates the workflow has nothing to run:
	// no nodes and no promoted outputs.
	GraphErrorNotExecutable GraphErrorCode = "NOT_EXECUTABLE"

	// GraphErrorDependency indicates the topological sort hit an unresolved
	// dependency, which means a cycle slipped past validation.
	GraphErrorDependency GraphErrorCode = "DEPENDENCY_ERROR"
)

// GraphError is a structural error in the canvas graph.
type GraphError struct {
	Code    GraphErrorCode `json:"code"`
	Message string         `json:"message"`

	// Nodes lists the node ids involved, e.g. the cycle path or the
	// duplicate pair.
	Nodes []string `json:"nodes,omitempty"`
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	if len(e.Nodes) > 0 {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(e.Nodes, " -> "))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches GraphErrors by code.
func (e *GraphError) Is(target error) bool {
	other, ok := target.(*GraphError)
	return ok && e.Code == other.Code
}
