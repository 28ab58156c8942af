// Package graph holds the job dependency cycle check shared by the composer
// and the validator.
package graph

// Policy selects what happens when a node can reach a cycle
type Policy int

const (
	// ReportOnly lists every node from which a cycle is reachable
	ReportOnly Policy = iota
	// ClearEdges empties the outgoing edges of such nodes, in node order,
	// re-checking against the already mutated graph
	ClearEdges
)

func (p Policy) String() string {
	switch p {
	case ReportOnly:
		return "report-only"
	case ClearEdges:
		return "clear-edges"
	default:
		return "unknown"
	}
}

// Graph is an adjacency list keyed by node name. Edges to unknown nodes are ignored.
type Graph map[string][]string

// Clone returns a copy whose edge slices can be mutated independently
func (g Graph) Clone() Graph {
	c := make(Graph, len(g))
	for node, edges := range g {
		c[node] = append([]string(nil), edges...)
	}
	return c
}

// FindCycles walks nodes in the given order and returns, in that order, the
// nodes from which a cycle is reachable. Under ClearEdges the returned nodes
// have had their edges removed from g.
func FindCycles(nodes []string, g Graph, policy Policy) []string {
	var flagged []string
	for _, node := range nodes {
		if _, ok := g[node]; !ok {
			continue
		}
		if !reachesCycle(node, g) {
			continue
		}
		flagged = append(flagged, node)
		if policy == ClearEdges {
			g[node] = nil
		}
	}
	return flagged
}

// HasCycle reports whether any cycle exists in g
func HasCycle(g Graph) bool {
	for node := range g {
		if reachesCycle(node, g) {
			return true
		}
	}
	return false
}

const (
	unvisited = iota
	onStack
	done
)

// reachesCycle is an iterative DFS with a recursion stack so deep chains
// cannot overflow the goroutine stack.
func reachesCycle(start string, g Graph) bool {
	state := map[string]int{start: onStack}
	type frame struct {
		node string
		next int
	}
	stack := []frame{{node: start}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		edges := g[top.node]
		if top.next >= len(edges) {
			state[top.node] = done
			stack = stack[:len(stack)-1]
			continue
		}
		dep := edges[top.next]
		top.next++
		if _, known := g[dep]; !known {
			continue
		}
		switch state[dep] {
		case onStack:
			return true
		case unvisited:
			state[dep] = onStack
			stack = append(stack, frame{node: dep})
		}
	}
	return false
}
