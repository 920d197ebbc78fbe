package coursecode

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateReturnsFirstUniqueCode(t *testing.T) {
	calls := 0
	oracle := OracleFunc(func(ctx context.Context, code string) (bool, error) {
		calls++
		return true, nil
	})

	gen := New(oracle, rand.NewSource(1))

	code, err := gen.Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, code, Length)
	require.Equal(t, 1, calls)

	for _, r := range code {
		require.Contains(t, alphabet, string(r))
	}
}

func TestGenerateStopsProbingAfterAcceptance(t *testing.T) {
	for accepted := 1; accepted <= MaxAttempts; accepted++ {
		calls := 0
		oracle := OracleFunc(func(ctx context.Context, code string) (bool, error) {
			calls++
			return calls == accepted, nil
		})

		gen := New(oracle, rand.NewSource(int64(accepted)))

		code, err := gen.Generate(context.Background())
		require.NoError(t, err)
		require.NotEmpty(t, code)
		require.Equal(t, accepted, calls, "oracle must not be consulted after acceptance")
	}
}

func TestGenerateExhaustsAfterMaxAttempts(t *testing.T) {
	calls := 0
	oracle := OracleFunc(func(ctx context.Context, code string) (bool, error) {
		calls++
		return false, nil
	})

	var observed int
	gen := New(oracle, rand.NewSource(7), WithAttemptObserver(func(attempts int) {
		observed = attempts
	}))

	code, err := gen.Generate(context.Background())
	require.ErrorIs(t, err, ErrAttemptsExhausted)
	require.Empty(t, code)
	require.Equal(t, MaxAttempts, calls)
	require.Equal(t, MaxAttempts, observed)
}

func TestGeneratePropagatesOracleError(t *testing.T) {
	oracleErr := errors.New("lookup failed")
	oracle := OracleFunc(func(ctx context.Context, code string) (bool, error) {
		return false, oracleErr
	})

	gen := New(oracle, rand.NewSource(3))

	_, err := gen.Generate(context.Background())
	require.ErrorIs(t, err, oracleErr)
}

func TestGenerateHonoursContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := New(OracleFunc(func(ctx context.Context, code string) (bool, error) {
		t.Fatal("oracle must not be consulted after cancellation")
		return false, nil
	}), rand.NewSource(5))

	_, err := gen.Generate(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestGenerateDeterministicWithSeededSource(t *testing.T) {
	oracle := OracleFunc(func(ctx context.Context, code string) (bool, error) {
		return true, nil
	})

	first, err := New(oracle, rand.NewSource(42)).Generate(context.Background())
	require.NoError(t, err)
	second, err := New(oracle, rand.NewSource(42)).Generate(context.Background())
	require.NoError(t, err)

	require.Equal(t, first, second)
}
