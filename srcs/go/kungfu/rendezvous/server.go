package rendezvous

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/config"
	"github.com/lsds/kungfu-ccl/srcs/go/log"
	"github.com/lsds/kungfu-ccl/srcs/go/utils"
)

type groupKey struct {
	group string
	ring  int
}

func (k groupKey) String() string {
	return fmt.Sprintf("%s/ring:%d", k.group, k.ring)
}

type pendingGroup struct {
	nranks int
	addrs  []string
	joined []bool
	count  int
	left   int
	ready  chan struct{}
}

func (g *pendingGroup) complete() bool {
	return g.count == g.nranks
}

// Server implements RendezvousServer.
type Server struct {
	mu     sync.Mutex
	groups map[groupKey]*pendingGroup

	srv *grpc.Server
}

func NewServer() *Server {
	return &Server{
		groups: make(map[groupKey]*pendingGroup),
	}
}

func (s *Server) register(req JoinRequest) (*pendingGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := req.key()
	g, ok := s.groups[k]
	if !ok {
		g = &pendingGroup{
			nranks: req.NRanks,
			addrs:  make([]string, req.NRanks),
			joined: make([]bool, req.NRanks),
			ready:  make(chan struct{}),
		}
		s.groups[k] = g
	}
	if g.nranks != req.NRanks {
		return nil, status.Errorf(codes.InvalidArgument, "%s: nranks %d, group has %d", k, req.NRanks, g.nranks)
	}
	if g.joined[req.Rank] {
		return nil, status.Errorf(codes.AlreadyExists, "%s: rank %d already joined", k, req.Rank)
	}
	g.addrs[req.Rank] = req.Addr
	g.joined[req.Rank] = true
	g.count++
	log.Debugf("rendezvous %s: rank %d joined (%d/%d)", k, req.Rank, g.count, g.nranks)
	if g.complete() {
		log.Infof("rendezvous %s complete: %d ranks", k, g.nranks)
		close(g.ready)
	}
	return g, nil
}

// abandon withdraws req from g. It reports false if g completed first.
func (s *Server) abandon(req JoinRequest, g *pendingGroup) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.complete() {
		return false
	}
	g.joined[req.Rank] = false
	g.addrs[req.Rank] = ""
	g.count--
	if g.count == 0 {
		delete(s.groups, req.key())
	}
	return true
}

// Join blocks until every rank of the group joined or the caller gives up.
func (s *Server) Join(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := joinRequestFromProto(in)
	if err != nil {
		return nil, err
	}
	if req.NRanks < 2 {
		return nil, status.Errorf(codes.InvalidArgument, "nranks must be > 1, got %d", req.NRanks)
	}
	if req.Rank < 0 || req.Rank >= req.NRanks {
		return nil, status.Errorf(codes.InvalidArgument, "rank %d out of [0, %d)", req.Rank, req.NRanks)
	}
	g, err := s.register(req)
	if err != nil {
		return nil, err
	}
	if config.EnableStallDetection {
		sd := utils.InstallStallDetector(fmt.Sprintf("rendezvous %s rank %d", req.key(), req.Rank), 10*time.Second)
		defer sd.Stop()
	}
	return s.wait(ctx, req, g)
}

func (s *Server) wait(ctx context.Context, req JoinRequest, g *pendingGroup) (*structpb.Struct, error) {
	select {
	case <-g.ready:
	case <-ctx.Done():
		if s.abandon(req, g) {
			return nil, status.FromContextError(ctx.Err()).Err()
		}
	}
	return peersToProto(g.addrs)
}

// Leave forgets a complete group once all its ranks have left.
func (s *Server) Leave(ctx context.Context, in *structpb.Struct) (*emptypb.Empty, error) {
	req, err := joinRequestFromProto(in)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := req.key()
	g, ok := s.groups[k]
	if !ok || !g.complete() {
		return nil, status.Errorf(codes.NotFound, "%s: no complete group", k)
	}
	g.left++
	if g.left >= g.nranks {
		delete(s.groups, k)
		log.Debugf("rendezvous %s released", k)
	}
	return &emptypb.Empty{}, nil
}

// Len returns the number of groups the server tracks.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.groups)
}

// Serve registers s on a new grpc.Server and serves lis until Stop.
func (s *Server) Serve(lis net.Listener) error {
	s.mu.Lock()
	s.srv = grpc.NewServer()
	s.srv.RegisterService(&ServiceDesc, s)
	srv := s.srv
	s.mu.Unlock()
	log.Infof("rendezvous server listening on %s", lis.Addr())
	return srv.Serve(lis)
}

func (s *Server) Stop() {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()
	if srv != nil {
		srv.Stop()
	}
}
