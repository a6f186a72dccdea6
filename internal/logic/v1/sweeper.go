package v1

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper periodically removes expired sessions. It is optional: validation
// never depends on it having run.
type Sweeper struct {
	auth     *AuthService
	interval time.Duration
}

// NewSweeper returns a Sweeper running every interval.
func NewSweeper(auth *AuthService, interval time.Duration) *Sweeper {
	return &Sweeper{auth: auth, interval: interval}
}

// Run sweeps once per interval until ctx is cancelled. Failures are logged
// and retried on the next tick. A non-positive interval returns immediately.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.auth.SweepExpired(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn().Err(err).Msg("Session sweep failed")
				continue
			}
			if n > 0 {
				log.Info().Int64("count", n).Msg("Expired sessions removed")
			}
		}
	}
}
