package classify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ModelSelector chooses the model for one classification call. The chat's
// configured model is the default; a selector may substitute a cheaper model
// when a service-wide budget has been reached.
type ModelSelector interface {
	Select(ctx context.Context, chatID int64, configured string) string
}

// StaticSelector always returns the chat's configured model.
type StaticSelector struct{}

// Select implements ModelSelector.
func (StaticSelector) Select(_ context.Context, _ int64, configured string) string {
	return configured
}

// QuotaSelector enforces a daily service-wide budget on premium models.
// Once the budget is spent, premium requests are downgraded to the fallback
// model until the next UTC day. Non-premium models pass through untouched.
type QuotaSelector struct {
	mu       sync.Mutex
	premium  map[string]bool
	fallback string
	dailyCap int
	day      string
	used     int
	now      func() time.Time
}

// NewQuotaSelector constructs a selector that allows dailyCap premium calls
// per UTC day across the whole service before downgrading to fallback.
func NewQuotaSelector(premiumModels []string, fallback string, dailyCap int) *QuotaSelector {
	premium := make(map[string]bool, len(premiumModels))
	for _, m := range premiumModels {
		premium[m] = true
	}
	return &QuotaSelector{
		premium:  premium,
		fallback: fallback,
		dailyCap: dailyCap,
		now:      time.Now,
	}
}

// Select implements ModelSelector. Each premium selection consumes one unit
// of the daily budget; the counter resets when the UTC day rolls over.
func (s *QuotaSelector) Select(_ context.Context, chatID int64, configured string) string {
	if !s.premium[configured] {
		return configured
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.now().UTC().Format("2006-01-02")
	if today != s.day {
		s.day = today
		s.used = 0
	}
	if s.used >= s.dailyCap {
		log.Debug().
			Int64("chat_id", chatID).
			Str("model", configured).
			Str("fallback", s.fallback).
			Msg("premium model budget spent, downgrading")
		return s.fallback
	}
	s.used++
	return configured
}
