package plan

import "github.com/lsds/kungfu-ccl/srcs/go/plan/graph"

// GenDefaultReduceGraph reverses a broadcast graph and adds self loops so
// that every vertex accumulates its own contribution.
func GenDefaultReduceGraph(g *graph.Graph) *graph.Graph {
	g0 := g.Reverse()
	k := len(g.Nodes)
	for i := 0; i < k; i++ {
		g0.AddEdge(i, i)
	}
	return g0
}

// GenStarBcastGraph generates a star shape graph with k vertices and centered at vertice r (0 <= r < k)
func GenStarBcastGraph(k, r int) *graph.Graph {
	g := graph.New(k)
	for i := 0; i < k; i++ {
		if i != r {
			g.AddEdge(r, i)
		}
	}
	return g
}

// GenBinaryTree generates a binary tree with k vertices rooted at 0.
func GenBinaryTree(k int) *graph.Graph {
	return GenBinaryTreeRootedAt(k, 0)
}

// GenBinaryTreeRootedAt relabels the heap layout so that vertex r is the root.
func GenBinaryTreeRootedAt(k, r int) *graph.Graph {
	g := graph.New(k)
	idx := func(i int) int { return (i + r) % k }
	for i := 0; i < k; i++ {
		if j := i*2 + 1; j < k {
			g.AddEdge(idx(i), idx(j))
		}
		if j := i*2 + 2; j < k {
			g.AddEdge(idx(i), idx(j))
		}
	}
	return g
}
