package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lsds/kungfu-ccl/srcs/go/plan"
)

func clearEnv(t *testing.T) {
	for _, k := range BootstrapEnvKeys {
		t.Setenv(k, "")
	}
	t.Setenv(ompiRankEnvKey, "")
}

func Test_ParseConfigFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(RankEnvKey, "1")
	t.Setenv(NRanksEnvKey, "2")
	t.Setenv(GroupEnvKey, "g0")
	t.Setenv(DeviceEnvKey, "3")
	t.Setenv(SelfEnvKey, "127.0.0.1:10001")
	t.Setenv(PeersEnvKey, "127.0.0.1:10000,127.0.0.1:10001")

	c, err := ParseConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "g0", c.GroupID)
	assert.Equal(t, 1, c.Rank)
	assert.Equal(t, 2, c.NRanks)
	assert.Equal(t, 3, c.DeviceID)
	assert.Equal(t, 0, c.RingID)
	assert.Len(t, c.Peers, 2)
	assert.Equal(t, uint16(10001), c.Self.Port)

	tc := c.TransportConfig()
	assert.Equal(t, plan.MustParseIPv4("127.0.0.1"), tc.Host)
	assert.Equal(t, c.Peers, tc.Peers)
}

func Test_ParseConfigFromEnvErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv(RankEnvKey, "x")
	_, err := ParseConfigFromEnv()
	assert.Error(t, err)

	t.Setenv(RankEnvKey, "0")
	t.Setenv(NRanksEnvKey, "2")
	t.Setenv(GroupEnvKey, "g")
	_, err = ParseConfigFromEnv()
	assert.Error(t, err, "no peers and no rendezvous")

	t.Setenv(RendezvousAddrEnvKey, "127.0.0.1:9999")
	c, err := ParseConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", c.RendezvousAddr)

	t.Setenv(SelfEnvKey, "127.0.0.1:10005")
	t.Setenv(PeersEnvKey, "127.0.0.1:10000,127.0.0.1:10001")
	_, err = ParseConfigFromEnv()
	assert.ErrorIs(t, err, errSelfPeers)
}

func Test_ParseConfigFromJSON(t *testing.T) {
	c, err := ParseConfigFromJSON(`{"group": "g", "peers": ["127.0.0.1:10000", "127.0.0.1:10001"], "rank": 1, "strategy": "BINARY_TREE"}`)
	require.NoError(t, err)
	assert.Equal(t, 2, c.NRanks)
	assert.Equal(t, c.Peers[1], c.Self)
	assert.Equal(t, "BINARY_TREE", c.Strategy.String())

	_, err = ParseConfigFromJSON(`{"group": "g", "peers": ["127.0.0.1"]}`)
	assert.Error(t, err)
}

func Test_ParseConfigFromOpenMPIEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(ompiRankEnvKey, "2")
	t.Setenv(ompiSizeEnvKey, "4")
	t.Setenv(ompiLocalRankEnvKey, "1")
	t.Setenv(RendezvousAddrEnvKey, "127.0.0.1:9999")

	c, err := ParseConfigFromOpenMPIEnv()
	require.NoError(t, err)
	assert.Equal(t, 2, c.Rank)
	assert.Equal(t, 4, c.NRanks)
	assert.Equal(t, 1, c.DeviceID)
	assert.Equal(t, "mpi", c.GroupID)
}
