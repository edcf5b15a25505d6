package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Reverse(t *testing.T) {
	g := New(3)
	g.AddEdge(0, 1)
	g.AddEdge(1, 2)
	g.AddEdge(2, 2)
	r := g.Reverse()
	assert.Equal(t, []int{0}, r.Nexts(2))
	assert.Equal(t, []int{1}, r.Prevs(0))
	assert.False(t, r.IsSelfLoop(2))
}
