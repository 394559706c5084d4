// Package services – Sweeper
//
// The sweeper is the background loop that removes deletion notices after
// their grace period and trims the processed-update dedup ledger. The queue
// is persisted, so notices posted before a restart are still removed.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/modguard/go-chat-moderator/internal/observability"
	"github.com/modguard/go-chat-moderator/internal/platform"
	"github.com/modguard/go-chat-moderator/internal/repo"
)

// defaultSweepInterval is the gap between sweep passes.
const defaultSweepInterval = 5 * time.Second

// Sweeper drains the scheduled-deletion queue against the platform.
type Sweeper struct {
	DB  *gorm.DB
	API platform.ChatAPI

	// Interval overrides the sweep cadence; zero means the default.
	Interval time.Duration
}

// Run sweeps until the context is cancelled. Intended to be started as a
// goroutine next to the HTTP server.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep performs one pass: delete every due notice, drop its queue entry,
// and trim expired dedup rows. A failed platform delete still drops the
// entry; the notice is not worth retrying forever.
func (s *Sweeper) sweep(ctx context.Context) {
	now := time.Now().UTC()

	due, err := repo.DueDeletions(ctx, s.DB, now)
	if err != nil {
		log.Warn().Err(err).Msg("sweeper: queue read failed")
		return
	}

	processed := make([]string, 0, len(due))
	for _, d := range due {
		if err := s.API.DeleteMessage(ctx, d.ChatID, d.MessageID); err != nil && !platform.IsSuccessEquivalent(err) {
			log.Debug().Err(err).
				Int64("chat_id", d.ChatID).
				Int64("message_id", d.MessageID).
				Msg("sweeper: notice delete failed")
		} else {
			observability.NoticesSwept.Inc()
		}
		processed = append(processed, d.ID)
	}
	if err := repo.RemoveScheduled(ctx, s.DB, processed); err != nil {
		log.Warn().Err(err).Msg("sweeper: queue trim failed")
	}

	if _, err := repo.PurgeExpiredUpdates(ctx, s.DB, now); err != nil {
		log.Warn().Err(err).Msg("sweeper: update ledger trim failed")
	}
}
