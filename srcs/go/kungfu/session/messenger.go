package session

// Messenger moves named messages between the ranks of one group.
// A message sent with connection.WaitRecvBuf must be received with
// RecvInto, any other message with Recv.
type Messenger interface {
	Send(rank int, name string, data []byte, flags uint32) error
	Recv(rank int, name string) ([]byte, error)
	RecvInto(rank int, name string, buf []byte) error
}
