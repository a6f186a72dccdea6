// Package password hashes and verifies user passwords with bcrypt.
//
// bcrypt is CPU-bound; Store bounds the number of concurrent hash and
// compare operations so a burst of logins cannot starve request handling.
package password

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// ErrTooLong is returned by Hash for passwords bcrypt cannot represent.
var ErrTooLong = bcrypt.ErrPasswordTooLong

// Store hashes and verifies passwords.
type Store struct {
	cost  int
	slots *semaphore.Weighted
	// dummy is compared against when the stored hash is unusable so that
	// failures take as long as a real comparison.
	dummy []byte
}

// New returns a Store using the given bcrypt cost and at most maxConcurrent
// simultaneous operations. Zero values select bcrypt.DefaultCost and GOMAXPROCS.
func New(cost, maxConcurrent int) (*Store, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
	}
	if maxConcurrent <= 0 {
		maxConcurrent = runtime.GOMAXPROCS(0)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("timing-equalizer"), cost)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}

	return &Store{
		cost:  cost,
		slots: semaphore.NewWeighted(int64(maxConcurrent)),
		dummy: dummy,
	}, nil
}

// Hash returns a salted bcrypt hash of password. Every call uses a fresh salt.
func (s *Store) Hash(ctx context.Context, password string) (string, error) {
	if err := s.slots.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer s.slots.Release(1)

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether password matches hash. A malformed or empty hash
// yields false after a full-cost comparison against a dummy hash.
// The only error is ctx cancellation while waiting for a slot.
func (s *Store) Verify(ctx context.Context, password, hash string) (bool, error) {
	if err := s.slots.Acquire(ctx, 1); err != nil {
		return false, err
	}
	defer s.slots.Release(1)

	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		_ = bcrypt.CompareHashAndPassword(s.dummy, []byte(password))
		return false, nil
	}

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, nil
}

// Burn performs a comparison whose outcome is discarded. Callers use it
// when there is no user to verify against, so unknown usernames cost the
// same as wrong passwords.
func (s *Store) Burn(ctx context.Context, password string) {
	if err := s.slots.Acquire(ctx, 1); err != nil {
		return
	}
	defer s.slots.Release(1)
	_ = bcrypt.CompareHashAndPassword(s.dummy, []byte(password))
}
