package env

import (
	"encoding/json"
	"net"
	"strconv"

	kb "github.com/lsds/kungfu-ccl/srcs/go/kungfu/base"
	"github.com/lsds/kungfu-ccl/srcs/go/plan"
)

type peerID plan.PeerID // customized JSON encoding

func (p peerID) MarshalJSON() ([]byte, error) {
	port := strconv.Itoa(int(p.Port))
	addr := net.JoinHostPort(plan.FormatIPv4(p.IPv4), port)
	return json.Marshal(addr)
}

func (p *peerID) UnmarshalJSON(bs []byte) error {
	var s string
	if err := json.Unmarshal(bs, &s); err != nil {
		return err
	}
	id, err := plan.ParsePeerID(s)
	if err != nil {
		return err
	}
	*p = peerID(*id)
	return nil
}

type jsonConfig struct {
	Group      string   `json:"group"`
	Peers      []peerID `json:"peers"`
	Rendezvous string   `json:"rendezvous"`
	Strategy   string   `json:"strategy"`
	Rank       int      `json:"rank"`
	NRanks     int      `json:"nranks"`
	Device     int      `json:"device"`
	Ring       int      `json:"ring"`
}

// ParseConfigFromJSON reads a worker config such as
//
//	{"group": "g", "peers": ["127.0.0.1:10000", "127.0.0.1:10001"], "rank": 1}
//
// nranks defaults to the number of peers.
func ParseConfigFromJSON(js string) (*Config, error) {
	var jc jsonConfig
	if err := json.Unmarshal([]byte(js), &jc); err != nil {
		return nil, err
	}
	var peers plan.PeerList
	for _, p := range jc.Peers {
		peers = append(peers, plan.PeerID(p))
	}
	strategy := kb.DefaultStrategy
	if len(jc.Strategy) > 0 {
		s, err := kb.ParseStrategy(jc.Strategy)
		if err != nil {
			return nil, err
		}
		strategy = s
	}
	c := &Config{
		Self:           defaultSelf,
		Peers:          peers,
		RendezvousAddr: jc.Rendezvous,
		Strategy:       strategy,
		GroupID:        jc.Group,
		Rank:           jc.Rank,
		NRanks:         jc.NRanks,
		DeviceID:       jc.Device,
		RingID:         jc.Ring,
	}
	if c.NRanks == 0 {
		c.NRanks = len(peers)
	}
	if c.Rank >= 0 && c.Rank < len(peers) {
		c.Self = peers[c.Rank]
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
