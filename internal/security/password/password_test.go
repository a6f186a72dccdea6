package password

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(bcrypt.MinCost, 2)
	require.NoError(t, err)
	return s
}

func TestHash_FreshSaltPerCall(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	h1, err := s.Hash(ctx, "testar")
	require.NoError(t, err)
	h2, err := s.Hash(ctx, "testar")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
	assert.NotContains(t, h1, "testar")
}

func TestVerify(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hash, err := s.Hash(ctx, "correct horse")
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{"match", "correct horse", hash, true},
		{"mismatch", "battery staple", hash, false},
		{"empty hash", "correct horse", "", false},
		{"malformed hash", "correct horse", "not-a-bcrypt-hash", false},
		{"plaintext stored", "testar", "testar", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := s.Verify(ctx, tt.password, tt.hash)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestHash_TooLong(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Hash(context.Background(), strings.Repeat("x", 73))
	assert.ErrorIs(t, err, ErrTooLong)
}

func TestNew_RejectsBadCost(t *testing.T) {
	_, err := New(bcrypt.MaxCost+1, 1)
	assert.Error(t, err)
}

func TestVerify_CancelledWhileWaiting(t *testing.T) {
	s, err := New(bcrypt.MinCost, 1)
	require.NoError(t, err)

	// Hold the only slot.
	require.NoError(t, s.slots.Acquire(context.Background(), 1))
	defer s.slots.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := s.Verify(ctx, "pw", "hash")
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBurn_DoesNotPanic(t *testing.T) {
	s := newTestStore(t)
	s.Burn(context.Background(), "anything")
}
