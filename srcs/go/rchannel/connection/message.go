package connection

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

type ConnType uint16

const (
	ConnPing       ConnType = iota // 0
	ConnCollective ConnType = iota
)

var ErrInvalidConnectionType = errors.New("invalid connection type")

func (t ConnType) String() string {
	switch t {
	case ConnPing:
		return "Ping"
	case ConnCollective:
		return "Collective"
	default:
		return ""
	}
}

var endian = binary.LittleEndian

type connectionHeader struct {
	Type    uint16
	SrcPort uint16
	SrcIPv4 uint32
}

func (h connectionHeader) WriteTo(w io.Writer) error {
	return binary.Write(w, endian, &h)
}

func (h *connectionHeader) ReadFrom(r io.Reader) error {
	return binary.Read(r, endian, h)
}

type connectionACK struct {
	Token uint32
}

func (a connectionACK) WriteTo(w io.Writer) error {
	return binary.Write(w, endian, &a)
}

func (a *connectionACK) ReadFrom(r io.Reader) error {
	return binary.Read(r, endian, a)
}

const NoFlag uint32 = 0

const (
	WaitRecvBuf uint32 = 1 << iota // The receiver should wait receive buffer
)

type MessageHeader struct {
	NameLength uint32
	Name       []byte
	Flags      uint32
}

func (h *MessageHeader) HasFlag(flag uint32) bool {
	return h.Flags&flag == flag
}

func (h *MessageHeader) WriteTo(w io.Writer) error {
	if err := binary.Write(w, endian, h.NameLength); err != nil {
		return err
	}
	if _, err := w.Write(h.Name); err != nil {
		return err
	}
	return binary.Write(w, endian, h.Flags)
}

// ReadFrom reads the messageHeader from a reader into new buffer.
// The name length is obtained from the reader and should be trusted.
func (h *MessageHeader) ReadFrom(r io.Reader) error {
	if err := binary.Read(r, endian, &h.NameLength); err != nil {
		return err
	}
	h.Name = make([]byte, h.NameLength)
	if _, err := io.ReadFull(r, h.Name); err != nil {
		return err
	}
	return binary.Read(r, endian, &h.Flags)
}

// Expect reads the messageHeader and checks that it carries name.
func (h *MessageHeader) Expect(r io.Reader, name string) error {
	if err := h.ReadFrom(r); err != nil {
		return err
	}
	if string(h.Name) != name {
		return errors.Errorf("unexpected name %q, want %q", h.Name, name)
	}
	return nil
}

func (h MessageHeader) String() string {
	return fmt.Sprintf("messageHeader{length=%d,name=%s}", h.NameLength, string(h.Name))
}

// Message is the data transferred via channel
type Message struct {
	Length uint32
	Data   []byte
}

func (m *Message) Same(pm *Message) bool {
	if len(m.Data) == 0 || len(pm.Data) == 0 {
		return len(m.Data) == len(pm.Data)
	}
	return &m.Data[0] == &pm.Data[0]
}

func (m Message) WriteTo(w io.Writer) error {
	if err := binary.Write(w, endian, m.Length); err != nil {
		return err
	}
	_, err := w.Write(m.Data)
	return err
}

// ReadFrom reads the message from a reader into new buffer.
// The message length is obtained from the reader and should be trusted.
func (m *Message) ReadFrom(r io.Reader) error {
	if err := binary.Read(r, endian, &m.Length); err != nil {
		return err
	}
	m.Data = GetBuf(m.Length)
	_, err := io.ReadFull(r, m.Data)
	return err
}

var errUnexpectedMessageLength = errors.New("unexpected message length")

// ReadInto reads the message from a reader into existing buffer.
// The message length obtained from the reader should be checked.
func (m *Message) ReadInto(r io.Reader) error {
	var length uint32
	if err := binary.Read(r, endian, &length); err != nil {
		return err
	}
	if length != m.Length {
		return errors.Wrapf(errUnexpectedMessageLength, "got %d, want %d", length, m.Length)
	}
	_, err := io.ReadFull(r, m.Data)
	return err
}

func (m Message) String() string {
	return fmt.Sprintf("message{length=%d}", m.Length)
}
