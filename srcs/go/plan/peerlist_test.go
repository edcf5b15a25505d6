package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ParsePeerList(t *testing.T) {
	pl, err := ParsePeerList("127.0.0.1:10001,127.0.0.1:10002,10.0.0.2:10001")
	require.NoError(t, err)
	require.Len(t, pl, 3)
	assert.Equal(t, "127.0.0.1:10002", pl[1].String())
	assert.True(t, pl[0].ColocatedWith(pl[1]))
	assert.False(t, pl[0].ColocatedWith(pl[2]))

	rank, ok := pl.Rank(pl[2])
	assert.True(t, ok)
	assert.Equal(t, 2, rank)

	assert.True(t, pl.Eq(pl.Select([]int{0, 1, 2})))
	assert.Equal(t, "127.0.0.1:10001,127.0.0.1:10002,10.0.0.2:10001", pl.String())

	_, err = ParsePeerList("127.0.0.1:1,127.0.0.1:1")
	assert.Error(t, err)
	_, err = ParsePeerList("localhost:1")
	assert.Error(t, err)
	_, err = ParsePeerList("127.0.0.1:70000")
	assert.Error(t, err)

	pl, err = ParsePeerList("")
	assert.NoError(t, err)
	assert.Empty(t, pl)
}

func Test_Addr(t *testing.T) {
	p := PeerID{IPv4: MustParseIPv4("192.168.1.2"), Port: 38080}
	a := p.WithName("x")
	assert.Equal(t, "x@192.168.1.2:38080", a.String())
	assert.Equal(t, p, a.Peer())
	assert.Equal(t, "0.0.0.0:38080", p.ListenAddr(false).String())
}

func Test_EvenPartition(t *testing.T) {
	parts := EvenPartition(Interval{Begin: 0, End: 10}, 3)
	assert.Equal(t, []Interval{{0, 4}, {4, 7}, {7, 10}}, parts)
	assert.Equal(t, 3, parts[1].Len())
}
