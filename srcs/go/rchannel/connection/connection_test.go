package connection

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lsds/kungfu-ccl/srcs/go/plan"
)

func listenLoopback(t *testing.T, token uint32) (plan.PeerID, chan Connection) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	self, err := plan.PeerIDFromAddr(ln.Addr())
	require.NoError(t, err)
	conns := make(chan Connection, 4)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			conn, err := UpgradeFrom(c, *self, token)
			if err != nil {
				c.Close()
				continue
			}
			conns <- conn
		}
	}()
	return *self, conns
}

func Test_Open_token(t *testing.T) {
	token := GroupToken("group-a")
	remote, conns := listenLoopback(t, token)
	local := plan.PeerID{IPv4: plan.MustParseIPv4("127.0.0.1"), Port: 1}

	c, err := Open(remote, local, ConnCollective, token)
	require.NoError(t, err)
	defer c.Close()
	server := <-conns
	assert.Equal(t, local, server.Src())
	assert.Equal(t, ConnCollective, server.Type())

	require.NoError(t, c.Send("x", Message{Length: 2, Data: []byte("hi")}, NoFlag))
	var mh MessageHeader
	require.NoError(t, mh.Expect(server.Conn(), "x"))
	var m Message
	require.NoError(t, m.ReadFrom(server.Conn()))
	assert.Equal(t, "hi", string(m.Data))

	_, err = Open(remote, local, ConnCollective, GroupToken("group-b"))
	assert.ErrorIs(t, err, ErrInvalidToken)

	// ping connections ignore the token
	p, err := Open(remote, local, ConnPing, 0)
	require.NoError(t, err)
	p.Close()
}

func Test_closed_connection(t *testing.T) {
	remote, _ := listenLoopback(t, 0)
	c := New(remote, plan.PeerID{}, ConnPing, 0)
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Send("x", Message{}, NoFlag), errConnectionClosed)
}
