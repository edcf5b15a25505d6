package plan

import (
	"net"
	"strconv"

	"github.com/pkg/errors"
)

// PeerID identifies the endpoint of one rank.
type PeerID NetAddr

func (p PeerID) String() string {
	return NetAddr(p).String()
}

func (p PeerID) ColocatedWith(q PeerID) bool {
	return NetAddr(p).ColocatedWith(NetAddr(q))
}

func (p PeerID) WithName(name string) Addr {
	return NetAddr(p).WithName(name)
}

// ListenAddr returns the address to listen on, 0.0.0.0 when strict is false.
func (p PeerID) ListenAddr(strict bool) NetAddr {
	if strict {
		return NetAddr(p)
	}
	return NetAddr{IPv4: 0, Port: p.Port}
}

func ParsePeerID(val string) (*PeerID, error) {
	host, p, err := net.SplitHostPort(val)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	ipv4, err := ParseIPv4(host)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if int(uint16(port)) != port {
		return nil, errors.Wrap(errInvalidPort, p)
	}
	return &PeerID{
		IPv4: ipv4,
		Port: uint16(port),
	}, nil
}

// PeerIDFromAddr converts a bound TCP address.
func PeerIDFromAddr(addr net.Addr) (*PeerID, error) {
	return ParsePeerID(addr.String())
}
