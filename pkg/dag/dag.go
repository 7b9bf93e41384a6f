// Package dag implements the directed graph used for package dependency
// ordering: adjacency lists over small integer node handles, Kahn
// topological sorting (full and reachable-subgraph variants), cycle
// detection, and a tree renderer for CLI display.
//
// Nodes are addressed by the [NodeID] returned from [Graph.AddNode];
// ownership is flat and nothing holds pointers into the graph. The
// string-keyed [Map] wrapper is the form the resolver uses for package
// dependency graphs.
package dag

import (
	"sort"
	"strings"

	"github.com/loom-hdl/loom/pkg/errors"
)

// NodeID is a small integer handle addressing a node within one Graph.
type NodeID int

// Graph is a directed graph with parallel forward and reverse adjacency
// lists. The zero value is ready to use.
type Graph[T any] struct {
	nodes []T
	adj   [][]NodeID // forward edges
	radj  [][]NodeID // reverse edges
}

// AddNode appends a node and returns its handle.
func (g *Graph[T]) AddNode(data T) NodeID {
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, data)
	g.adj = append(g.adj, nil)
	g.radj = append(g.radj, nil)
	return id
}

// AddEdge adds a directed edge from -> to. Both handles must have been
// returned by AddNode on this graph.
func (g *Graph[T]) AddEdge(from, to NodeID) {
	g.adj[from] = append(g.adj[from], to)
	g.radj[to] = append(g.radj[to], from)
}

// HasEdge reports whether a from -> to edge exists.
func (g *Graph[T]) HasEdge(from, to NodeID) bool {
	for _, t := range g.adj[from] {
		if t == to {
			return true
		}
	}
	return false
}

// NodeCount returns the number of nodes.
func (g *Graph[T]) NodeCount() int { return len(g.nodes) }

// Node returns the data stored at id.
func (g *Graph[T]) Node(id NodeID) T { return g.nodes[id] }

// Successors returns the forward adjacency of id. The slice is shared with
// the graph and must not be mutated.
func (g *Graph[T]) Successors(id NodeID) []NodeID { return g.adj[id] }

// Predecessors returns the reverse adjacency of id.
func (g *Graph[T]) Predecessors(id NodeID) []NodeID { return g.radj[id] }

// InDegree returns the number of incoming edges at id.
func (g *Graph[T]) InDegree(id NodeID) int { return len(g.radj[id]) }

// OutDegree returns the number of outgoing edges at id.
func (g *Graph[T]) OutDegree(id NodeID) int { return len(g.adj[id]) }

// TopoSort orders the whole graph with Kahn's algorithm over in-degree
// counts. Every node appears after all of its predecessors. A cycle yields
// a Cycle error and no order.
func (g *Graph[T]) TopoSort() ([]NodeID, error) {
	n := len(g.nodes)
	inDeg := make([]int, n)
	for i := range g.radj {
		inDeg[i] = len(g.radj[i])
	}

	queue := make([]NodeID, 0, n)
	for i := 0; i < n; i++ {
		if inDeg[i] == 0 {
			queue = append(queue, NodeID(i))
		}
	}

	order := make([]NodeID, 0, n)
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		order = append(order, u)
		for _, v := range g.adj[u] {
			inDeg[v]--
			if inDeg[v] == 0 {
				queue = append(queue, v)
			}
		}
	}

	if len(order) != n {
		return nil, errors.New(errors.Cycle, "graph contains a cycle")
	}
	return order, nil
}

// TopoSortFrom orders only the nodes reachable from root. Both graph views
// are restricted to a BFS-precomputed reachable set before Kahn's
// algorithm runs.
func (g *Graph[T]) TopoSortFrom(root NodeID) ([]NodeID, error) {
	reachable := map[NodeID]bool{root: true}
	bfs := []NodeID{root}
	for len(bfs) > 0 {
		u := bfs[0]
		bfs = bfs[1:]
		for _, v := range g.adj[u] {
			if !reachable[v] {
				reachable[v] = true
				bfs = append(bfs, v)
			}
		}
	}

	inDeg := make(map[NodeID]int, len(reachable))
	for id := range reachable {
		inDeg[id] = 0
	}
	for id := range reachable {
		for _, v := range g.adj[id] {
			if reachable[v] {
				inDeg[v]++
			}
		}
	}

	var queue []NodeID
	for id, deg := range inDeg {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	// Map iteration order is random; sort the seed queue so the output is
	// deterministic for a given graph.
	sort.Slice(queue, func(i, j int) bool { return queue[i] < queue[j] })

	order := make([]NodeID, 0, len(reachable))
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		order = append(order, u)
		for _, v := range g.adj[u] {
			if reachable[v] {
				inDeg[v]--
				if inDeg[v] == 0 {
					queue = append(queue, v)
				}
			}
		}
	}

	if len(order) != len(reachable) {
		return nil, errors.New(errors.Cycle, "graph contains a cycle in reachable subgraph")
	}
	return order, nil
}

// HasCycle reports whether the graph contains any cycle.
func (g *Graph[T]) HasCycle() bool {
	_, err := g.TopoSort()
	return err != nil
}

// DFS walks depth-first from start, calling visit once per reachable node.
func (g *Graph[T]) DFS(start NodeID, visit func(NodeID)) {
	visited := make(map[NodeID]bool)
	g.dfs(start, visited, visit)
}

func (g *Graph[T]) dfs(u NodeID, visited map[NodeID]bool, visit func(NodeID)) {
	if visited[u] {
		return
	}
	visited[u] = true
	visit(u)
	for _, v := range g.adj[u] {
		g.dfs(v, visited, visit)
	}
}

// TreeDisplay renders the graph below root as a box-drawing tree. Nodes
// reached a second time are printed with a "(*)" marker and not expanded.
func (g *Graph[T]) TreeDisplay(root NodeID, label func(T) string) string {
	var b strings.Builder
	visited := make(map[NodeID]bool)
	g.treeDisplay(root, "", true, visited, label, &b)
	return b.String()
}

func (g *Graph[T]) treeDisplay(u NodeID, prefix string, isLast bool,
	visited map[NodeID]bool, label func(T) string, b *strings.Builder,
) {
	b.WriteString(prefix)
	if prefix != "" {
		if isLast {
			b.WriteString("└── ")
		} else {
			b.WriteString("├── ")
		}
	}
	b.WriteString(label(g.nodes[u]))

	if visited[u] {
		b.WriteString(" (*)\n")
		return
	}
	visited[u] = true
	b.WriteString("\n")

	edges := g.adj[u]
	for i, v := range edges {
		childPrefix := prefix
		if prefix != "" {
			if isLast {
				childPrefix += "    "
			} else {
				childPrefix += "│   "
			}
		} else {
			childPrefix = " "
		}
		g.treeDisplay(v, childPrefix, i == len(edges)-1, visited, label, b)
	}
}
