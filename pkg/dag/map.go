package dag

// Map is a string-keyed convenience wrapper over [Graph]. Adding an edge
// creates missing endpoints, and node names are deduplicated, which is the
// shape package dependency graphs want.
type Map struct {
	graph Graph[string]
	ids   map[string]NodeID
}

// NewMap returns an empty string-keyed graph.
func NewMap() *Map {
	return &Map{ids: make(map[string]NodeID)}
}

// AddNode inserts name if absent and returns its handle.
func (m *Map) AddNode(name string) NodeID {
	if id, ok := m.ids[name]; ok {
		return id
	}
	id := m.graph.AddNode(name)
	m.ids[name] = id
	return id
}

// HasNode reports whether name is present.
func (m *Map) HasNode(name string) bool {
	_, ok := m.ids[name]
	return ok
}

// AddEdge adds a from -> to edge, inserting either endpoint as needed.
func (m *Map) AddEdge(from, to string) {
	f := m.AddNode(from)
	t := m.AddNode(to)
	m.graph.AddEdge(f, t)
}

// NodeCount returns the number of distinct names.
func (m *Map) NodeCount() int { return m.graph.NodeCount() }

// TopoSort returns the names in topological order, or a Cycle error.
func (m *Map) TopoSort() ([]string, error) {
	ids, err := m.graph.TopoSort()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = m.graph.Node(id)
	}
	return names, nil
}

// HasCycle reports whether the graph contains any cycle.
func (m *Map) HasCycle() bool { return m.graph.HasCycle() }

// TreeDisplay renders the subtree below root, or "" when root is unknown.
func (m *Map) TreeDisplay(root string) string {
	id, ok := m.ids[root]
	if !ok {
		return ""
	}
	return m.graph.TreeDisplay(id, func(s string) string { return s })
}

// Inner exposes the underlying graph for read-only traversal.
func (m *Map) Inner() *Graph[string] { return &m.graph }
