package primitive

import "fmt"

// GraphEdge is a directed edge to Name "to", optionally weighted. Grounded on
// the reference graph model: an edge with no weight defaults to 1 when
// spread or used numerically.
type GraphEdge struct {
	From   string
	To     string
	Weight *float64
}

func NewGraphEdge(from, to string, weight *float64) GraphEdge {
	return GraphEdge{From: from, To: to, Weight: weight}
}

func (GraphEdge) Kind() Kind { return Simple(KindGraphEdge) }

func (e GraphEdge) String() string {
	if e.Weight != nil {
		return fmt.Sprintf("%s:%g", e.To, *e.Weight)
	}
	return e.To
}

func (e GraphEdge) WeightOr1() float64 {
	if e.Weight != nil {
		return *e.Weight
	}
	return 1
}

// GraphNode owns its outgoing edges keyed by neighbor name.
type GraphNode struct {
	Name  string
	Edges map[string]GraphEdge
	order []string // edge targets in the order first given
}

func NewGraphNode(name string, edges []GraphEdge) GraphNode {
	m := make(map[string]GraphEdge, len(edges))
	var order []string
	for _, e := range edges {
		if _, dup := m[e.To]; !dup {
			order = append(order, e.To)
		}
		m[e.To] = e
	}
	return GraphNode{Name: name, Edges: m, order: order}
}

func (GraphNode) Kind() Kind { return Simple(KindGraphNode) }

func (n GraphNode) String() string {
	s := n.Name + ": {"
	first := true
	for _, e := range n.SortedEdges() {
		if !first {
			s += ", "
		}
		first = false
		s += e.String()
	}
	return s + "}"
}

// SortedEdges returns this node's edges in stable insertion order: the order
// their targets first appeared in the list given to NewGraphNode (a repeated
// target keeps its first position and its last edge).
func (n GraphNode) SortedEdges() []GraphEdge {
	out := make([]GraphEdge, 0, len(n.Edges))
	for _, to := range n.order {
		out = append(out, n.Edges[to])
	}
	return out
}

// Graph is a named set of nodes, stored in stable insertion order.
type Graph struct {
	nodes     []GraphNode
	nodeIndex map[string]int
}

func NewGraph(nodes []GraphNode) Graph {
	idx := make(map[string]int, len(nodes))
	for i, n := range nodes {
		idx[n.Name] = i
	}
	return Graph{nodes: nodes, nodeIndex: idx}
}

func (Graph) Kind() Kind { return Simple(KindGraph) }

func (g Graph) String() string {
	s := "["
	for i, n := range g.nodes {
		if i > 0 {
			s += "\n"
		}
		s += n.String()
	}
	return s + "]"
}

// Nodes returns the nodes in stable insertion order.
func (g Graph) Nodes() []GraphNode { return g.nodes }

// Edges returns all edges of the graph in node-then-insertion order.
func (g Graph) Edges() []GraphEdge {
	var out []GraphEdge
	for _, n := range g.nodes {
		out = append(out, n.SortedEdges()...)
	}
	return out
}

// NeighborEdges returns the edges leaving the named node.
func (g Graph) NeighborEdges(name string) ([]GraphEdge, error) {
	i, ok := g.nodeIndex[name]
	if !ok {
		return nil, fmt.Errorf("node %q not found in graph", name)
	}
	return g.nodes[i].SortedEdges(), nil
}
