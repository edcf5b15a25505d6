package tcp

import (
	"github.com/lsds/kungfu-ccl/srcs/go/plan"
	"github.com/lsds/kungfu-ccl/srcs/go/rchannel/client"
	"github.com/lsds/kungfu-ccl/srcs/go/rchannel/connection"
	"github.com/lsds/kungfu-ccl/srcs/go/rchannel/handler"
)

// messenger addresses rchannel queues by rank.
type messenger struct {
	prefix   string
	peers    plan.PeerList
	client   *client.Client
	endpoint *handler.CollectiveEndpoint
}

func (m *messenger) Send(rank int, name string, data []byte, flags uint32) error {
	return m.client.Send(m.peers[rank].WithName(m.prefix+name), data, connection.ConnCollective, flags)
}

func (m *messenger) Recv(rank int, name string) ([]byte, error) {
	msg, err := m.endpoint.Recv(m.peers[rank].WithName(m.prefix + name))
	if err != nil {
		return nil, err
	}
	return msg.Data, nil
}

func (m *messenger) RecvInto(rank int, name string, buf []byte) error {
	msg := connection.Message{Length: uint32(len(buf)), Data: buf}
	return m.endpoint.RecvInto(m.peers[rank].WithName(m.prefix+name), msg)
}
