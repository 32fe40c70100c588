package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Each store call derives its own deadline from the background context,
// so cancelling whatever context bootstrapped the store never poisons
// later operations.
func TestOpContextIsFreshPerCall(t *testing.T) {
	ctx, cancel := opCtx()
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok, "store operations must be time-bounded")
	assert.WithinDuration(t, time.Now().Add(redisOpTimeout), deadline, time.Second)
	assert.NoError(t, ctx.Err())

	ctx2, cancel2 := opCtx()
	defer cancel2()
	cancel()
	assert.NoError(t, ctx2.Err(), "cancelling one call must not affect another")
}
