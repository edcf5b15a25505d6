// Package tcp connects ranks of different processes over rchannel.
package tcp

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	kb "github.com/lsds/kungfu-ccl/srcs/go/kungfu/base"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/config"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/execution"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/rendezvous"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/session"
	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/transport"
	"github.com/lsds/kungfu-ccl/srcs/go/log"
	"github.com/lsds/kungfu-ccl/srcs/go/plan"
	"github.com/lsds/kungfu-ccl/srcs/go/rchannel/client"
	"github.com/lsds/kungfu-ccl/srcs/go/utils"
)

// Config selects how ranks find each other. With Peers set, rank r listens
// on Peers[r]; otherwise every Connect listens on an ephemeral port of
// Host and exchanges addresses through the rendezvous service.
type Config struct {
	Host           uint32
	Peers          plan.PeerList
	RendezvousAddr string
	Strategy       kb.Strategy
	Strict         bool
}

type Transport struct {
	config Config

	mu  sync.Mutex
	rdv *rendezvous.Client

	epMu   sync.Mutex
	shared *endpoint
}

var (
	ErrNoRendezvous  = errors.New("neither peers nor rendezvous address configured")
	ErrPeersMismatch = errors.New("peer list does not match nranks")
)

func New(config Config) (*Transport, error) {
	if len(config.Peers) == 0 && len(config.RendezvousAddr) == 0 {
		return nil, ErrNoRendezvous
	}
	return &Transport{config: config}, nil
}

func (t *Transport) rendezvousClient() (*rendezvous.Client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rdv == nil {
		c, err := rendezvous.Dial(t.config.RendezvousAddr)
		if err != nil {
			return nil, err
		}
		t.rdv = c
	}
	return t.rdv, nil
}

func (t *Transport) self(spec transport.GroupSpec) (plan.PeerID, error) {
	if len(t.config.Peers) > 0 {
		if len(t.config.Peers) != spec.NRanks {
			return plan.PeerID{}, errors.Wrapf(ErrPeersMismatch, "%d peers for %d ranks", len(t.config.Peers), spec.NRanks)
		}
		return t.config.Peers[spec.Rank], nil
	}
	return plan.PeerID{IPv4: t.config.Host}, nil
}

func (t *Transport) joinRequest(spec transport.GroupSpec, self plan.PeerID) rendezvous.JoinRequest {
	return rendezvous.JoinRequest{
		Group:  spec.GroupID,
		Ring:   spec.RingID,
		NRanks: spec.NRanks,
		Rank:   spec.Rank,
		Addr:   self.String(),
	}
}

func (t *Transport) peers(ctx context.Context, spec transport.GroupSpec, self plan.PeerID) (plan.PeerList, error) {
	if len(t.config.Peers) > 0 {
		return t.config.Peers, nil
	}
	rdv, err := t.rendezvousClient()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, config.RendezvousTimeout)
	defer cancel()
	addrs, err := rdv.Join(ctx, t.joinRequest(spec, self))
	if err != nil {
		return nil, errors.Wrapf(err, "rendezvous %s", spec)
	}
	var pl plan.PeerList
	for _, a := range addrs {
		id, err := plan.ParsePeerID(a)
		if err != nil {
			return nil, err
		}
		pl = append(pl, *id)
	}
	return pl, nil
}

// Connect implements transport.Transport. It returns after every peer
// answered a ping and a barrier over the new group completed.
func (t *Transport) Connect(ctx context.Context, spec transport.GroupSpec) (transport.Conn, error) {
	self, err := t.self(spec)
	if err != nil {
		return nil, err
	}
	e, release, err := t.acquire(spec, self)
	if err != nil {
		return nil, err
	}
	self = e.self
	peers, err := t.peers(ctx, spec, self)
	if err != nil {
		release()
		return nil, err
	}
	if got := peers[spec.Rank]; got != self {
		release()
		return nil, errors.Errorf("rank %d is %s in peer list, listening on %s", spec.Rank, got, self)
	}
	m := &messenger{
		prefix:   spec.Key() + "/",
		peers:    peers,
		client:   e.cli,
		endpoint: e.router.Collective,
	}
	sess := session.New(spec.Rank, spec.NRanks, t.config.Strategy, m)
	closeFn := func() error {
		errs := []error{release()}
		if len(t.config.Peers) == 0 {
			if rdv, err := t.rendezvousClient(); err == nil {
				errs = append(errs, rdv.Leave(context.Background(), t.joinRequest(spec, self)))
			}
		}
		return utils.MergeErrors(errs, "close "+spec.Key())
	}
	id := fmt.Sprintf("tcp:%s#%d@%s", spec.Key(), spec.Rank, self)
	conn := transport.NewSessionConn(id, sess, closeFn)

	if err := waitPeers(ctx, e.cli, peers, spec.Rank); err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "connect %s", spec)
	}
	done := make(chan error, 1)
	go func() { done <- conn.Barrier() }()
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "connect %s", spec)
	}
	log.Debugf("%s connected to %s", id, peers)
	return conn, nil
}

var errPeerUnreachable = errors.New("peer unreachable")

// waitPeers pings every other rank until it answers or ctx is done.
func waitPeers(ctx context.Context, cli *client.Client, peers plan.PeerList, rank int) error {
	var wait execution.RankFunc = func(r int) error {
		n, ok := cli.Wait(ctx, peers[r])
		if !ok {
			return errors.Wrapf(errPeerUnreachable, "rank %d at %s after %d attempts", r, peers[r], n)
		}
		return nil
	}
	return wait.Par(execution.Range(len(peers), rank))
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rdv == nil {
		return nil
	}
	err := t.rdv.Close()
	t.rdv = nil
	return err
}
