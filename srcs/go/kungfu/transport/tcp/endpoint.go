package tcp

import (
	"github.com/pkg/errors"

	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/transport"
	"github.com/lsds/kungfu-ccl/srcs/go/plan"
	"github.com/lsds/kungfu-ccl/srcs/go/rchannel/client"
	"github.com/lsds/kungfu-ccl/srcs/go/rchannel/connection"
	"github.com/lsds/kungfu-ccl/srcs/go/rchannel/handler"
	"github.com/lsds/kungfu-ccl/srcs/go/rchannel/server"
)

// endpoint is a listening rchannel server with its router and client.
// With a fixed peer list all rings of a transport share one endpoint and
// are told apart by the prefix of their message names.
type endpoint struct {
	self   plan.PeerID
	router *handler.Router
	srv    server.Server
	cli    *client.Client
	refs   int
}

func openEndpoint(self plan.PeerID, token uint32, strict bool) (*endpoint, error) {
	router := handler.NewRouter()
	srv := server.New(self, router, token, strict)
	if err := srv.Start(); err != nil {
		return nil, errors.Wrapf(err, "listen %s", self)
	}
	self = srv.Self()
	return &endpoint{
		self:   self,
		router: router,
		srv:    srv,
		cli:    client.New(self, token),
	}, nil
}

func (e *endpoint) close() error {
	e.router.Close()
	err := e.cli.Close()
	e.srv.Close()
	return err
}

// acquire returns the endpoint for spec and the function that gives it back.
func (t *Transport) acquire(spec transport.GroupSpec, self plan.PeerID) (*endpoint, func() error, error) {
	if len(t.config.Peers) == 0 {
		e, err := openEndpoint(self, connection.GroupToken(spec.Key()), t.config.Strict)
		if err != nil {
			return nil, nil, err
		}
		return e, e.close, nil
	}
	t.epMu.Lock()
	defer t.epMu.Unlock()
	if t.shared == nil {
		e, err := openEndpoint(self, connection.GroupToken(t.config.Peers.String()), t.config.Strict)
		if err != nil {
			return nil, nil, err
		}
		t.shared = e
	}
	e := t.shared
	e.refs++
	return e, func() error {
		t.epMu.Lock()
		defer t.epMu.Unlock()
		e.refs--
		if e.refs > 0 {
			return nil
		}
		if t.shared == e {
			t.shared = nil
		}
		return e.close()
	}, nil
}
