package env

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pkg/errors"

	kb "github.com/lsds/kungfu-ccl/srcs/go/kungfu/base"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/config"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/transport/tcp"
	"github.com/lsds/kungfu-ccl/srcs/go/plan"
)

// Config is the bootstrap input of one worker: which group it joins and
// how it reaches the other members.
type Config struct {
	Self           plan.PeerID
	Peers          plan.PeerList
	RendezvousAddr string
	Strategy       kb.Strategy

	GroupID  string
	Rank     int
	NRanks   int
	DeviceID int
	RingID   int
}

var defaultSelf = plan.PeerID{IPv4: plan.MustParseIPv4(`127.0.0.1`)}

var (
	errMissing   = errors.New("not set")
	errSelfPeers = errors.New("self is not the peer of its rank")
)

func ParseConfigFromEnv() (*Config, error) {
	if _, ok := lookup(RankEnvKey); !ok {
		if _, ok := lookup(ompiRankEnvKey); ok {
			return ParseConfigFromOpenMPIEnv()
		}
	}
	rank, err := requireInt(RankEnvKey)
	if err != nil {
		return nil, err
	}
	nranks, err := requireInt(NRanksEnvKey)
	if err != nil {
		return nil, err
	}
	device, err := optionalInt(DeviceEnvKey, 0)
	if err != nil {
		return nil, err
	}
	ring, err := optionalInt(RingEnvKey, 0)
	if err != nil {
		return nil, err
	}
	group, ok := lookup(GroupEnvKey)
	if !ok {
		return nil, errors.Wrap(errMissing, GroupEnvKey)
	}
	self := defaultSelf
	if val, ok := lookup(SelfEnvKey); ok {
		id, err := plan.ParsePeerID(val)
		if err != nil {
			return nil, errors.Wrap(err, SelfEnvKey)
		}
		self = *id
	}
	peers, err := plan.ParsePeerList(os.Getenv(PeersEnvKey))
	if err != nil {
		return nil, errors.Wrap(err, PeersEnvKey)
	}
	strategy, err := kb.ParseStrategy(config.BcastStrategy)
	if err != nil {
		return nil, err
	}
	c := &Config{
		Self:           self,
		Peers:          peers,
		RendezvousAddr: os.Getenv(RendezvousAddrEnvKey),
		Strategy:       strategy,
		GroupID:        group,
		Rank:           rank,
		NRanks:         nranks,
		DeviceID:       device,
		RingID:         ring,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks what the bootstrap can check locally. Group level
// constraints are left to the communicator registry.
func (c *Config) Validate() error {
	if len(c.Peers) == 0 && len(c.RendezvousAddr) == 0 {
		return fmt.Errorf("one of %s and %s must be set", PeersEnvKey, RendezvousAddrEnvKey)
	}
	if len(c.Peers) > 0 && c.Rank >= 0 && c.Rank < len(c.Peers) && c.Self.Port != 0 {
		if c.Peers[c.Rank] != c.Self {
			return errors.Wrapf(errSelfPeers, "%s vs %s", c.Self, c.Peers[c.Rank])
		}
	}
	return nil
}

// TransportConfig is the tcp transport configuration of the worker.
func (c *Config) TransportConfig() tcp.Config {
	return tcp.Config{
		Host:           c.Self.IPv4,
		Peers:          c.Peers,
		RendezvousAddr: c.RendezvousAddr,
		Strategy:       c.Strategy,
	}
}

func (c *Config) String() string {
	return fmt.Sprintf("group=%s rank=%d/%d device=%d ring=%d self=%s", c.GroupID, c.Rank, c.NRanks, c.DeviceID, c.RingID, c.Self)
}

// lookup treats an empty variable as unset.
func lookup(key string) (string, bool) {
	val := os.Getenv(key)
	return val, len(val) > 0
}

func requireInt(key string) (int, error) {
	val, ok := lookup(key)
	if !ok {
		return 0, errors.Wrap(errMissing, key)
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, errors.Wrap(err, key)
	}
	return n, nil
}

func optionalInt(key string, def int) (int, error) {
	if _, ok := lookup(key); !ok {
		return def, nil
	}
	return requireInt(key)
}
