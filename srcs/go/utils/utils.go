package utils

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

func Measure(f func() error) (time.Duration, error) {
	t0 := time.Now()
	err := f()
	d := time.Since(t0)
	return d, err
}

func Rate(n int64, d time.Duration) float64 {
	return float64(n) / (float64(d) / float64(time.Second))
}

func ShowRate(r float64) string {
	return fmt.Sprintf("%s/s", humanize.IBytes(uint64(r)))
}
