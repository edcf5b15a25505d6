package server

import (
	"errors"
	"net"
	"sync"

	"github.com/lsds/kungfu-ccl/srcs/go/log"
	"github.com/lsds/kungfu-ccl/srcs/go/plan"
	"github.com/lsds/kungfu-ccl/srcs/go/rchannel/connection"
)

// Server receives messages from remote endpoints
type Server interface {
	Start() error
	Self() plan.PeerID
	Close()
}

type server struct {
	listener net.Listener
	self     plan.PeerID
	handler  connection.Handler
	token    uint32
	strict   bool

	wg    sync.WaitGroup
	mu    sync.Mutex
	conns map[connection.Connection]struct{}
}

// New creates a TCP server for self. A zero port in self is replaced by the
// port the listener is bound to; Self reports the effective id after Start.
func New(self plan.PeerID, handler connection.Handler, token uint32, strict bool) Server {
	return &server{
		self:    self,
		handler: handler,
		token:   token,
		strict:  strict,
		conns:   make(map[connection.Connection]struct{}),
	}
}

func (s *server) Self() plan.PeerID {
	return s.self
}

func (s *server) Start() error {
	listenAddr := s.self.ListenAddr(s.strict)
	ln, err := net.Listen("tcp", listenAddr.String())
	if err != nil {
		return err
	}
	s.listener = ln
	if s.self.Port == 0 {
		s.self.Port = uint16(ln.Addr().(*net.TCPAddr).Port)
	}
	log.Debugf("listening: %s as %s", ln.Addr(), s.self)
	s.wg.Add(1)
	go s.serve()
	return nil
}

func (s *server) accept() (connection.Connection, error) {
	tcpConn, err := s.listener.Accept()
	if err != nil {
		return nil, err
	}
	conn, err := connection.UpgradeFrom(tcpConn, s.self, s.token)
	if err != nil {
		tcpConn.Close()
		return nil, err
	}
	return conn, nil
}

func (s *server) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Infof("Accept failed: %v", err)
			continue
		}
		s.track(conn, true)
		s.wg.Add(1)
		go s.handle(conn)
	}
}

func (s *server) track(conn connection.Connection, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

func (s *server) handle(conn connection.Connection) {
	defer s.wg.Done()
	defer s.track(conn, false)
	defer conn.Close()
	if n, err := s.handler.Handle(conn); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Debugf("handle conn from %s err: %v after handled %d messages", conn.Src(), err, n)
	}
}

// Close stops accepting, closes live connections and waits for handlers.
func (s *server) Close() {
	if s.listener == nil {
		return
	}
	s.listener.Close()
	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	log.Debugf("Server %s closed", s.self)
}
