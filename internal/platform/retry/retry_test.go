package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() Policy {
	return Policy{MaxTries: 4, InitialInterval: time.Millisecond}
}

func TestDoRetriesTransientErrors(t *testing.T) {
	attempts := 0
	v, err := Do(context.Background(), fastPolicy(), func() (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("i/o timeout")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 3, attempts)
}

func TestDoStopsAfterMaxTries(t *testing.T) {
	attempts := 0
	_, err := Do(context.Background(), fastPolicy(), func() (int, error) {
		attempts++
		return 0, errors.New("still down")
	})

	require.Error(t, err)
	assert.Equal(t, 4, attempts)
}

func TestPermanentErrorShortCircuits(t *testing.T) {
	sentinel := errors.New("precondition violated")
	attempts := 0
	_, err := Do(context.Background(), fastPolicy(), func() (int, error) {
		attempts++
		return 0, Permanent(sentinel)
	})

	require.ErrorIs(t, err, sentinel)
	assert.Equal(t, 1, attempts, "une erreur permanente ne se rejoue pas")
}

func TestDoVoid(t *testing.T) {
	attempts := 0
	err := DoVoid(context.Background(), fastPolicy(), func() error {
		attempts++
		if attempts < 2 {
			return errors.New("flaky")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}
