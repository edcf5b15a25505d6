package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Poll_OK(t *testing.T) {
	var n int
	f := func() bool {
		n++
		return n > 3
	}
	failed, ok := Poll(context.TODO(), f)
	assert.True(t, ok)
	assert.Equal(t, 3, failed)
}

func Test_Poll_Fail(t *testing.T) {
	ctx, cancel := context.WithCancel(context.TODO())
	var n int
	f := func() bool {
		n++
		if n == 2 {
			cancel()
		}
		return n > 3
	}
	failed, ok := Poll(ctx, f)
	assert.False(t, ok)
	assert.Equal(t, 2, failed)
}

func Test_MergeErrors(t *testing.T) {
	assert.NoError(t, MergeErrors([]error{nil, nil}, "par"))

	errA := errors.New("a")
	err := MergeErrors([]error{nil, errA}, "par")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errA))

	err = MergeErrors([]error{errA, errors.New("b")}, "par")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors")
	assert.True(t, errors.Is(err, errA))
}

func Test_ShowRate(t *testing.T) {
	assert.Equal(t, "1.0 KiB/s", ShowRate(Rate(2048, 2*time.Second)))
}
