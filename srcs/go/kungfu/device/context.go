package device

import (
	"fmt"
	"sync"
)

// Context is the per-device state shared by every communicator on a device.
type Context struct {
	ID      int
	Compute *Stream

	mu          sync.Mutex
	defaultComm string
}

func newContext(id, depth int) *Context {
	return &Context{
		ID:      id,
		Compute: NewStream(fmt.Sprintf("dev%d/compute", id), depth),
	}
}

// SetDefaultComm records the group whose ring 0 communicator lives here.
func (c *Context) SetDefaultComm(groupID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultComm = groupID
}

func (c *Context) DefaultComm() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.defaultComm
}

func (c *Context) String() string {
	return fmt.Sprintf("dev%d", c.ID)
}
