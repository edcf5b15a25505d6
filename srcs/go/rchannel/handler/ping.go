package handler

import "github.com/lsds/kungfu-ccl/srcs/go/rchannel/connection"

// PingHandler echoes every message back to the sender.
type PingHandler struct{}

func (h *PingHandler) Handle(conn connection.Connection) (int, error) {
	return connection.Stream(conn, accept, func(name string, msg *connection.Message, conn connection.Connection) {
		bs := []byte(name)
		mh := connection.MessageHeader{NameLength: uint32(len(bs)), Name: bs}
		if err := mh.WriteTo(conn.Conn()); err != nil {
			return
		}
		msg.WriteTo(conn.Conn())
	})
}

func accept(conn connection.Connection) (string, *connection.Message, error) {
	var mh connection.MessageHeader
	if err := mh.ReadFrom(conn.Conn()); err != nil {
		return "", nil, err
	}
	var msg connection.Message
	if err := msg.ReadFrom(conn.Conn()); err != nil {
		return "", nil, err
	}
	return string(mh.Name), &msg, nil
}
