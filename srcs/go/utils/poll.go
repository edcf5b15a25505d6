package utils

import "context"

// Poll calls f until it returns true or ctx is done. It returns the number of
// failed calls and whether f eventually succeeded.
func Poll(ctx context.Context, f func() bool) (int, bool) {
	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return i, false
		default:
			if f() {
				return i, true
			}
		}
	}
}
