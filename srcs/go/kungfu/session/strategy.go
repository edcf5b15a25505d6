package session

import (
	"sync"

	kb "github.com/lsds/kungfu-ccl/srcs/go/kungfu/base"
	"github.com/lsds/kungfu-ccl/srcs/go/plan"
	"github.com/lsds/kungfu-ccl/srcs/go/plan/graph"
)

type strategy struct {
	reduceGraph *graph.Graph
	bcastGraph  *graph.Graph
}

type bcastGraphFunc func(k, r int) *graph.Graph

var bcastGraphs = map[kb.Strategy]bcastGraphFunc{
	kb.Star:       plan.GenStarBcastGraph,
	kb.BinaryTree: plan.GenBinaryTreeRootedAt,
}

// strategyCache builds the graph pair for each root once.
type strategyCache struct {
	sync.Mutex
	size   int
	gen    bcastGraphFunc
	byRoot map[int]strategy
}

func newStrategyCache(s kb.Strategy, size int) *strategyCache {
	gen, ok := bcastGraphs[s]
	if !ok {
		gen = bcastGraphs[kb.DefaultStrategy]
	}
	return &strategyCache{
		size:   size,
		gen:    gen,
		byRoot: make(map[int]strategy),
	}
}

func (c *strategyCache) get(root int) strategy {
	c.Lock()
	defer c.Unlock()
	if s, ok := c.byRoot[root]; ok {
		return s
	}
	bg := c.gen(c.size, root)
	s := strategy{
		reduceGraph: plan.GenDefaultReduceGraph(bg),
		bcastGraph:  bg,
	}
	c.byRoot[root] = s
	return s
}
