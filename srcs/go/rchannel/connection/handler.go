package connection

import (
	"io"

	"github.com/pkg/errors"
)

type Handler interface {
	Handle(conn Connection) (int, error)
}

type HandlerFunc func(Connection) (int, error)

func (f HandlerFunc) Handle(c Connection) (int, error) { return f(c) }

type AcceptFunc func(conn Connection) (string, *Message, error)

type MsgHandleFunc func(name string, msg *Message, conn Connection)

// Stream accepts messages until the remote end closes the connection.
func Stream(conn Connection, accept AcceptFunc, handle MsgHandleFunc) (int, error) {
	for i := 0; ; i++ {
		name, msg, err := accept(conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return i, nil
			}
			return i, err
		}
		handle(name, msg, conn)
	}
}
