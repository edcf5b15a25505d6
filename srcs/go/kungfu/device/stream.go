package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/lsds/kungfu-ccl/srcs/go/kungfu/config"
	"github.com/lsds/kungfu-ccl/srcs/go/log"
	"github.com/lsds/kungfu-ccl/srcs/go/utils"
)

// Task is one unit of work on a Stream.
type Task func() error

// Event is signalled when every task enqueued before it has run.
type Event struct {
	done chan struct{}
}

func (e *Event) Wait(ctx context.Context) error {
	select {
	case <-e.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Event) Done() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

type item struct {
	task   Task
	marker bool // markers run even on a failed stream
}

// Stream is a FIFO execution queue served by one goroutine. The first
// failed task poisons the stream: later tasks are skipped and every
// Enqueue and Synchronize reports that error.
type Stream struct {
	name  string
	items chan item
	exit  chan struct{}

	sendMu sync.Mutex
	closed bool

	errMu sync.Mutex
	err   error
}

var ErrStreamClosed = errors.New("stream closed")

func NewStream(name string, depth int) *Stream {
	if depth < 1 {
		depth = 1
	}
	s := &Stream{
		name:  name,
		items: make(chan item, depth),
		exit:  make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Stream) String() string {
	return s.name
}

func (s *Stream) run() {
	defer close(s.exit)
	for it := range s.items {
		if !it.marker && s.Err() != nil {
			continue
		}
		if err := it.task(); err != nil {
			s.setErr(err)
		}
	}
}

func (s *Stream) setErr(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		log.Errorf("stream %s failed: %v", s.name, err)
		s.err = err
	}
}

// Err returns the error of the first failed task on this stream.
func (s *Stream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Stream) push(it item) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.closed {
		return errors.Wrap(ErrStreamClosed, s.name)
	}
	s.items <- it
	return nil
}

// Enqueue appends t and returns without waiting for it to run.
// It blocks while the stream is full.
func (s *Stream) Enqueue(t Task) error {
	if err := s.Err(); err != nil {
		return err
	}
	return s.push(item{task: t})
}

// Record enqueues an Event that completes once all earlier tasks ran.
func (s *Stream) Record() (*Event, error) {
	e := &Event{done: make(chan struct{})}
	err := s.push(item{
		task: func() error {
			close(e.done)
			return nil
		},
		marker: true,
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// WaitFor makes later tasks of s wait for the tasks currently queued on other.
func (s *Stream) WaitFor(other *Stream) error {
	e, err := other.Record()
	if err != nil {
		return err
	}
	return s.Enqueue(func() error {
		<-e.done
		return other.Err()
	})
}

// Synchronize blocks until all tasks enqueued so far have run or ctx is
// done. It returns the error of the stream, if any.
func (s *Stream) Synchronize(ctx context.Context) error {
	e, err := s.Record()
	if err != nil {
		return err
	}
	if config.EnableStallDetection {
		sd := utils.InstallStallDetector(fmt.Sprintf("synchronize %s", s.name), 5*time.Second)
		defer sd.Stop()
	}
	if err := e.Wait(ctx); err != nil {
		return err
	}
	return s.Err()
}

// Close runs the queued tasks to completion, then stops the stream.
// It is safe to call more than once.
func (s *Stream) Close() error {
	s.sendMu.Lock()
	if !s.closed {
		s.closed = true
		close(s.items)
	}
	s.sendMu.Unlock()
	<-s.exit
	return s.Err()
}
