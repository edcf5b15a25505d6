package utils

import (
	"fmt"
	"os"
	"time"
)

// StallDetector reports an operation that has not finished after a period.
type StallDetector struct {
	name    string
	tk      *time.Ticker
	stopped chan struct{}
}

// InstallStallDetector writes to stderr every period until Stop is called.
func InstallStallDetector(name string, period time.Duration) *StallDetector {
	s := &StallDetector{
		name:    name,
		tk:      time.NewTicker(period),
		stopped: make(chan struct{}),
	}
	go s.watch(time.Now())
	return s
}

func (s *StallDetector) watch(t0 time.Time) {
	var stalls int
	for {
		select {
		case <-s.tk.C:
			stalls++
			fmt.Fprintf(os.Stderr, "%s stalled for %s\n", s.name, time.Since(t0).Round(time.Millisecond))
		case <-s.stopped:
			if stalls > 0 {
				fmt.Fprintf(os.Stderr, "%s recovered after %s (%s)\n", s.name, time.Since(t0).Round(time.Millisecond), Pluralize(stalls, "report", "reports"))
			}
			return
		}
	}
}

func (s *StallDetector) Stop() {
	s.tk.Stop()
	close(s.stopped)
}
