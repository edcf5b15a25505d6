package monitor

import (
	"context"
	"net"
	"net/http"
	"strconv"

	"github.com/lsds/kungfu-ccl/srcs/go/log"
)

// Server exposes a Monitor on /metrics.
type Server struct {
	srv *http.Server
}

func StartServer(m Monitor, port int) (*Server, error) {
	addr := net.JoinHostPort("0.0.0.0", strconv.Itoa(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m)
	s := &Server{srv: &http.Server{Handler: mux}}
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Errorf("monitoring server: %v", err)
		}
	}()
	log.Infof("monitoring server listening on %s", ln.Addr())
	return s, nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
