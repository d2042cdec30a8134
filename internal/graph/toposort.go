package graph

// TopologicalSort orders node ids so every node appears after all of its
// upstream dependencies. It runs a reverse depth-first search starting from
// the roots (nodes with no incoming node edge); nodes not touched by any
// edge keep their given relative order. A cycle yields a dependency error --
// the validator should have caught it before execution ever got here.
func TopologicalSort(nodeIDs []string, conns []Connection) ([]string, error) {
	adj := make(map[string][]string, len(nodeIDs))
	incoming := make(map[string]int, len(nodeIDs))
	known := make(map[string]bool, len(nodeIDs))
	for _, id := range nodeIDs {
		known[id] = true
	}

	for _, c := range conns {
		if !c.IsNodeEdge() || !known[c.FromID] || !known[c.ToID] {
			continue
		}
		adj[c.FromID] = append(adj[c.FromID], c.ToID)
		incoming[c.ToID]++
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(nodeIDs))
	var ordered []string

	var visit func(id string) error
	visit = func(id string) error {
		switch color[id] {
		case gray:
			return &GraphError{
				Code:    GraphErrorDependency,
				Message: "dependency cycle during execution ordering",
				Nodes:   []string{id},
			}
		case black:
			return nil
		}

		color[id] = gray
		for _, next := range adj[id] {
			if err := visit(next); err != nil {
				return err
			}
		}
		color[id] = black

		// Post-order prepend puts dependencies before dependents.
		ordered = append([]string{id}, ordered...)
		return nil
	}

	// Start from the roots, in the caller's node order for determinism.
	for _, id := range nodeIDs {
		if incoming[id] == 0 {
			if err := visit(id); err != nil {
				return nil, err
			}
		}
	}

	// Any node still white sits on a cycle unreachable from a root.
	for _, id := range nodeIDs {
		if color[id] != black {
			return nil, &GraphError{
				Code:    GraphErrorDependency,
				Message: "node unreachable from any root, dependency cycle suspected",
				Nodes:   []string{id},
			}
		}
	}

	return ordered, nil
}
