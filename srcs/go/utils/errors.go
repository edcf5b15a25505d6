package utils

import (
	"fmt"
	"os"
	"runtime"
)

func ExitErr(err error) {
	_, fn, line, _ := runtime.Caller(1)
	fmt.Fprintf(os.Stderr, "exit on error: %v at %s:%d\n", err, fn, line)
	os.Exit(1)
}

// MergeErrors joins the non-nil errors of errs into one error, nil if all of
// them are nil.
func MergeErrors(errs []error, hint string) error {
	var msg string
	var failed int
	var first error
	for _, e := range errs {
		if e != nil {
			failed++
			if first == nil {
				first = e
			}
			if len(msg) > 0 {
				msg += ", "
			}
			msg += e.Error()
		}
	}
	if failed == 0 {
		return nil
	}
	if failed == 1 {
		return fmt.Errorf("%s failed: %w", hint, first)
	}
	return fmt.Errorf("%s failed with %s: %s: %w", hint, Pluralize(failed, "error", "errors"), msg, first)
}

func pluralize(n int, singular, plural string) string {
	if n > 1 {
		return plural
	}
	return singular
}

func Pluralize(n int, singular, plural string) string {
	return fmt.Sprintf("%d %s", n, pluralize(n, singular, plural))
}
