package execution

import (
	"sync"

	"github.com/lsds/kungfu-ccl/srcs/go/utils"
)

// RankFunc is an action on one rank of a group.
type RankFunc func(rank int) error

// Par runs f for a list of ranks in parallel
func (f RankFunc) Par(ranks []int) error {
	errs := make([]error, len(ranks))
	var wg sync.WaitGroup
	for i, r := range ranks {
		wg.Add(1)
		go func(i, r int) {
			errs[i] = f(r)
			wg.Done()
		}(i, r)
	}
	wg.Wait()
	return utils.MergeErrors(errs, "par")
}

// Seq runs f for a list of ranks sequentially
func (f RankFunc) Seq(ranks []int) error {
	for _, r := range ranks {
		if err := f(r); err != nil {
			return err
		}
	}
	return nil
}

// Range returns the ranks [0, n) except skip.
func Range(n, skip int) []int {
	var rs []int
	for i := 0; i < n; i++ {
		if i != skip {
			rs = append(rs, i)
		}
	}
	return rs
}
