// Package graph holds the connection layer and the structural validation for
// the canvas: duplicate-edge rejection, DFS cycle detection, duplicate-action
// detection, execution readiness, and topological sorting.
package graph

import (
	"sync"

	"github.com/canvasflow/canvasflow/internal/types"
)

// EndpointKind tags one end of a connection.
type EndpointKind string

const (
	EndpointNode       EndpointKind = "node"
	EndpointInputFile  EndpointKind = "input-file"
	EndpointTextFile   EndpointKind = "text-file"
	EndpointOutputZone EndpointKind = "output-zone"
)

// String returns the string representation of the endpoint kind.
func (k EndpointKind) String() string {
	return string(k)
}

// Connection is a directed edge on the canvas. Endpoints are tagged with
// their kind; Label is the file label flowing along the edge.
type Connection struct {
	FromKind EndpointKind `json:"from_kind"`
	FromID   string       `json:"from_id"`
	ToKind   EndpointKind `json:"to_kind"`
	ToID     string       `json:"to_id"`
	Label    string       `json:"label"`
}

// IsNodeEdge reports whether both endpoints are nodes. Only node edges
// participate in cycle detection and topological sorting.
func (c Connection) IsNodeEdge() bool {
	return c.FromKind == EndpointNode && c.ToKind == EndpointNode
}

// ConnectionStore holds all connections on the canvas.
type ConnectionStore struct {
	mu    sync.RWMutex
	conns []Connection
}

// NewConnectionStore creates an empty connection store.
func NewConnectionStore() *ConnectionStore {
	return &ConnectionStore{}
}

// Add appends a connection. A connection duplicating an existing
// (from, to, label) triple is rejected.
func (s *ConnectionStore) Add(c Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.conns {
		if existing == c {
			return types.NewErrorf(types.CONNECTION_INVALID,
				"duplicate connection %s/%s -> %s/%s (label %s)",
				c.FromKind, c.FromID, c.ToKind, c.ToID, c.Label)
		}
	}
	s.conns = append(s.conns, c)
	return nil
}

// All returns a copy of every connection.
func (s *ConnectionStore) All() []Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Connection, len(s.conns))
	copy(out, s.conns)
	return out
}

// NodeEdges returns only node-to-node connections.
func (s *ConnectionStore) NodeEdges() []Connection {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Connection
	for _, c := range s.conns {
		if c.IsNodeEdge() {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of connections.
func (s *ConnectionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// RemoveWhere deletes every connection matching the predicate and returns
// the removed connections.
func (s *ConnectionStore) RemoveWhere(match func(Connection) bool) []Connection {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept, removed []Connection
	for _, c := range s.conns {
		if match(c) {
			removed = append(removed, c)
		} else {
			kept = append(kept, c)
		}
	}
	s.conns = kept
	return removed
}

// RemoveForLabel deletes every connection carrying the given label.
func (s *ConnectionStore) RemoveForLabel(lbl string) []Connection {
	return s.RemoveWhere(func(c Connection) bool { return c.Label == lbl })
}

// RemoveForNode deletes every connection touching the given node.
func (s *ConnectionStore) RemoveForNode(id string) []Connection {
	return s.RemoveWhere(func(c Connection) bool {
		return (c.FromKind == EndpointNode && c.FromID == id) ||
			(c.ToKind == EndpointNode && c.ToID == id)
	})
}

// Clear removes every connection.
func (s *ConnectionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns = nil
}
