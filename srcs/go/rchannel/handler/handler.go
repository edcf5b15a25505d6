package handler

import (
	"github.com/pkg/errors"

	"github.com/lsds/kungfu-ccl/srcs/go/rchannel/connection"
)

// Router dispatches a connection to the handler of its type.
type Router struct {
	Collective *CollectiveEndpoint
	Ping       *PingHandler
}

func NewRouter() *Router {
	return &Router{
		Collective: NewCollectiveEndpoint(),
		Ping:       &PingHandler{},
	}
}

// Handle implements connection.Handler
func (r *Router) Handle(conn connection.Connection) (int, error) {
	switch t := conn.Type(); t {
	case connection.ConnCollective:
		return r.Collective.Handle(conn)
	case connection.ConnPing:
		return r.Ping.Handle(conn)
	default:
		return 0, errors.Wrapf(connection.ErrInvalidConnectionType, "%d", t)
	}
}

func (r *Router) Close() {
	r.Collective.Close()
}
