package errs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesByKind(t *testing.T) {
	a := NotFound("workspace", "w1")
	b := NotFound("workspace", "w2")
	assert.True(t, errors.Is(a, b))

	c := AlreadyExists("workspace", "w1")
	assert.False(t, errors.Is(a, c))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := IoError("/tmp/x", "write failed", cause)
	assert.ErrorIs(t, wrapped, cause)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(EmbedError("timeout", nil)))
	assert.False(t, IsRetryable(NotFound("episode", "e1")))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(Corrupt("checksum mismatch")))
	assert.False(t, IsFatal(NotFound("episode", "e1")))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindScopeViolation, KindOf(ScopeViolation("/etc/passwd")))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}

func TestRetrySucceedsEventually(t *testing.T) {
	attempts := 0
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}
	err := Retry(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, DefaultRetryConfig(), func() error { return errors.New("x") })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCircuitBreakerOpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker("embedder", WithMaxFailures(2), WithResetTimeout(time.Hour))
	failing := func() error { return errors.New("down") }

	assert.ErrorContains(t, cb.Execute(failing), "down")
	assert.ErrorContains(t, cb.Execute(failing), "down")
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(failing), ErrCircuitOpen)
}

func TestCircuitBreakerRecoversOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker("embedder", WithMaxFailures(1), WithResetTimeout(time.Millisecond))
	_ = cb.Execute(func() error { return errors.New("down") })
	assert.Equal(t, StateOpen, cb.State())

	time.Sleep(2 * time.Millisecond)
	err := cb.Execute(func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}
