package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lsds/kungfu-ccl/srcs/go/plan/graph"
)

type edge struct {
	from int
	to   int
}

func isValidGraph(g *graph.Graph) bool {
	k := len(g.Nodes)
	m := make(map[edge]int)
	for i := 0; i < k; i++ {
		if g.Nodes[i].Rank != i {
			return false
		}
		for _, j := range g.Nodes[i].Nexts {
			e := edge{i, j}
			if m[e]++; m[e] > 1 {
				return false
			}
		}
	}
	var n int
	for i := 0; i < k; i++ {
		for _, j := range g.Nodes[i].Prevs {
			n++
			if m[edge{j, i}] != 1 {
				return false
			}
		}
	}
	return n == len(m)
}

func isValidTreeWithRoot(g *graph.Graph, root int) bool {
	if !isValidGraph(g) {
		return false
	}
	k := len(g.Nodes)
	p := make(map[int]int)
	for i := 0; i < k; i++ {
		if g.Nodes[i].SelfLoop {
			return false
		}
		for _, j := range g.Nodes[i].Nexts {
			if _, ok := p[j]; ok {
				return false
			}
			p[j] = i
		}
	}
	if len(p) != k-1 {
		return false
	}
	_, ok := p[root]
	return !ok
}

func Test_bcast_trees(t *testing.T) {
	for k := 1; k <= 9; k++ {
		for r := 0; r < k; r++ {
			assert.True(t, isValidTreeWithRoot(GenStarBcastGraph(k, r), r), "star k=%d r=%d", k, r)
			assert.True(t, isValidTreeWithRoot(GenBinaryTreeRootedAt(k, r), r), "binary tree k=%d r=%d", k, r)
		}
	}
}

func Test_reduce_graph(t *testing.T) {
	g := GenDefaultReduceGraph(GenStarBcastGraph(3, 1))
	assert.True(t, isValidGraph(g))
	for i := 0; i < 3; i++ {
		assert.True(t, g.IsSelfLoop(i))
	}
	assert.Equal(t, []int{0, 2}, g.Prevs(1))
	assert.Empty(t, g.Nexts(1))
	assert.Equal(t, []int{1}, g.Nexts(0))
	assert.Equal(t, "[3]{(0)(1)(2)(0->1)(2->1)}", g.DebugString())
}

func Test_binary_tree_root_offset(t *testing.T) {
	g := GenBinaryTreeRootedAt(4, 2)
	assert.Equal(t, []int{3, 0}, g.Nexts(2))
	assert.Equal(t, []int{1}, g.Nexts(3))
	assert.Empty(t, g.Prevs(2))
}
