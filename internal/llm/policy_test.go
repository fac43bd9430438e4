package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyDo_RetriesUntilSuccess(t *testing.T) {
	p := Policy{Retries: 2}
	calls := 0

	out, err := p.Do(context.Background(), nil, "test", func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("503")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, calls)
}

func TestPolicyDo_Exhausted(t *testing.T) {
	p := Policy{Retries: 1}
	calls := 0

	_, err := p.Do(context.Background(), nil, "test", func(ctx context.Context) (string, error) {
		calls++
		return "", errors.New("connection refused")
	})

	require.ErrorIs(t, err, ErrGeneratorUnreachable)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 2, calls)
}

func TestPolicyDo_AttemptTimeout(t *testing.T) {
	p := Policy{Timeout: 10 * time.Millisecond}

	_, err := p.Do(context.Background(), nil, "test", func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	require.ErrorIs(t, err, ErrGeneratorUnreachable)
	assert.Contains(t, err.Error(), context.DeadlineExceeded.Error())
}

func TestPolicyDo_StopsWhenCallerCancels(t *testing.T) {
	p := Policy{Retries: 5}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	_, err := p.Do(ctx, nil, "test", func(ctx context.Context) (string, error) {
		calls++
		cancel()
		return "", ctx.Err()
	})

	require.ErrorIs(t, err, ErrGeneratorUnreachable)
	assert.Equal(t, 1, calls)
}

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, NewLimiter(0, 1))

	l := NewLimiter(2, 0)
	require.NotNil(t, l)
	assert.Equal(t, 1, l.Burst())
}
