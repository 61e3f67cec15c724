package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/twmb/algoimpl/go/graph"
)

// ReachabilityIndex answers "what can function X reach" queries over
// the resolved call graph, built with twmb/algoimpl's directed graph
// and walked breadth-first -- the same BFS-over-an-adjacency-graph
// idiom o2lab-go2's happens-before-graph code (gorace/shbgraph.go)
// uses for its own reachability queries, repurposed here from
// goroutine happens-before edges to call-graph edges.
type ReachabilityIndex struct {
	g       *graph.Graph
	nodeIDs map[string]graph.Node
}

// BuildReachabilityIndex flattens every module's resolved call edges
// into a single directed graph keyed by "<module>:<function>" names.
// Unresolved indirect edges are skipped: an edge to Unresolved doesn't
// name a real node to reach.
func BuildReachabilityIndex(ctx *Context) *ReachabilityIndex {
	g := graph.New(graph.Directed)
	nodeIDs := map[string]graph.Node{}

	ensure := func(key string) graph.Node {
		if n, ok := nodeIDs[key]; ok {
			return n
		}
		n := g.MakeNode()
		*n.Value = key
		nodeIDs[key] = n
		return n
	}

	for module, edges := range ctx.Graph {
		for _, e := range edges {
			if e.IsIndirect && e.Callee == Unresolved {
				continue
			}
			from := ensure(module + ":" + e.Caller)
			to := ensure(module + ":" + e.Callee)
			g.MakeEdge(from, to)
		}
	}

	return &ReachabilityIndex{g: g, nodeIDs: nodeIDs}
}

// ReachableFrom returns every function key reachable from start via a
// breadth-first walk of the call graph, start itself excluded. Reports
// ok=false if start was never seen as a caller or callee.
func (r *ReachabilityIndex) ReachableFrom(start string) (reachable []string, ok bool) {
	root, ok := r.nodeIDs[start]
	if !ok {
		return nil, false
	}

	visited := map[graph.Node]bool{root: true}
	queue := []graph.Node{root}
	var out []string

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range r.g.Neighbors(cur) {
			if visited[next] {
				continue
			}
			visited[next] = true
			out = append(out, (*next.Value).(string))
			queue = append(queue, next)
		}
	}

	sort.Strings(out)
	return out, true
}

// EmitReachability prints the functions reachable from start.
func EmitReachability(w io.Writer, r *ReachabilityIndex, start string) {
	keys, ok := r.ReachableFrom(start)
	if !ok {
		fmt.Fprintf(w, "=== Reachable from %s ===\nunknown function: %s\n", start, start)
		return
	}
	fmt.Fprintf(w, "=== Reachable from %s (%d functions) ===\n", start, len(keys))
	for _, k := range keys {
		fmt.Fprintf(w, "  %s\n", k)
	}
}
