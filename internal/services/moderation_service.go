// Package services – ModerationService
//
// This file implements ModerationService, the application-level component
// that owns the per-message moderation flow: webhook intake and
// deduplication, admin exemption, flood checking, classification, policy
// resolution, enforcement, auditing, and the public deletion notice.
//
// Observability: the pipeline entry points are OpenTelemetry-instrumented;
// spans include chat/user/message identifiers and the resolved action.
package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/modguard/go-chat-moderator/internal/domain"
	"github.com/modguard/go-chat-moderator/internal/observability"
	"github.com/modguard/go-chat-moderator/internal/platform"
	"github.com/modguard/go-chat-moderator/internal/policy"
	"github.com/modguard/go-chat-moderator/internal/repo"

	// OpenTelemetry
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	// defaultNoticeTTL is how long a public deletion notice stays visible
	// before the sweeper removes it.
	defaultNoticeTTL = time.Minute
	// defaultUpdateTTL bounds the processed-update dedup ledger.
	defaultUpdateTTL = 24 * time.Hour
	// defaultWorkers bounds concurrently moderated messages.
	defaultWorkers = 64
)

// FloodChecker is the flood guard surface the pipeline consumes.
type FloodChecker interface {
	Check(chatID, userID int64, text string, messageID int64) bool
}

// Classifier produces a verdict for one message. Implementations never
// return an error; failures collapse to a Good verdict.
type Classifier interface {
	Classify(ctx context.Context, msg domain.InboundMessage, cfg domain.ChatModerationConfig) domain.ModerationVerdict
}

// Enforcer executes a resolved action against the platform.
type Enforcer interface {
	Execute(ctx context.Context, resolved domain.ResolvedAction, msg domain.InboundMessage, verdict domain.ModerationVerdict, cfg domain.ChatModerationConfig) domain.EnforcementOutcome
}

// ModerationService coordinates the whole per-message pipeline.
type ModerationService struct {
	DB       *gorm.DB
	Guard    FloodChecker
	Engine   Classifier
	Executor Enforcer
	API      platform.ChatAPI
	Chats    *ChatInfoCache

	// NoticeTTL overrides the deletion-notice lifetime; zero means the
	// default. UpdateTTL bounds the webhook dedup ledger. Workers caps
	// concurrent pipeline tasks handled through Dispatch.
	NoticeTTL time.Duration
	UpdateTTL time.Duration
	Workers   int

	semOnce sync.Once
	sem     chan struct{}
}

// Dispatch moderates one webhook update on a background task, bounded by
// the worker cap. It returns immediately; the webhook handler acknowledges
// the platform without waiting for the pipeline.
func (s *ModerationService) Dispatch(upd *platform.Update) {
	s.semOnce.Do(func() {
		n := s.Workers
		if n <= 0 {
			n = defaultWorkers
		}
		s.sem = make(chan struct{}, n)
	})
	s.sem <- struct{}{}
	go func() {
		defer func() { <-s.sem }()
		if err := s.ProcessUpdate(context.Background(), upd); err != nil && !errors.Is(err, ErrDuplicateUpdate) {
			log.Error().Err(err).Int64("update_id", upd.UpdateID).Msg("moderation task failed")
		}
	}()
}

// ProcessUpdate deduplicates one webhook update and runs the pipeline on
// its message. Updates without a message are acknowledged silently.
func (s *ModerationService) ProcessUpdate(ctx context.Context, upd *platform.Update) error {
	if upd == nil || upd.Message == nil {
		return nil
	}

	ttl := s.UpdateTTL
	if ttl <= 0 {
		ttl = defaultUpdateTTL
	}
	if err := repo.MarkUpdateProcessed(ctx, s.DB, upd.UpdateID, ttl); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return ErrDuplicateUpdate
		}
		return err
	}

	return s.Moderate(ctx, mapMessage(upd.Message))
}

// Moderate runs the full pipeline for one inbound message.
func (s *ModerationService) Moderate(ctx context.Context, msg domain.InboundMessage) error {
	tr := otel.Tracer("services/ModerationService")
	ctx, span := tr.Start(ctx, "Moderate",
		trace.WithAttributes(
			attribute.Int64("chat.id", msg.ChatID),
			attribute.Int64("message.id", msg.MessageID),
			attribute.Int64("user.id", msg.UserID),
		),
	)
	defer span.End()

	if msg.IsSystem {
		return nil
	}

	cfg, err := repo.GetOrCreateChatConfig(ctx, s.DB, msg.ChatID)
	if err != nil {
		return err
	}
	if !cfg.Enabled {
		return nil
	}

	// Debug mode keeps admin traffic in the pipeline so moderators can see
	// what the bot would have done; outcomes are downgraded by the resolver.
	if !cfg.DebugMode && s.isExempt(ctx, msg) {
		observability.MessagesProcessed.WithLabelValues("exempt").Inc()
		return nil
	}

	key := msg.Key()
	count, err := repo.IncrementMessageCount(ctx, s.DB, key.ChatID, key.UserID)
	if err != nil {
		log.Warn().Err(err).Int64("chat_id", msg.ChatID).Msg("message counter update failed")
		count = 1
	}

	// The flood guard sees every message so its windows and the ban-cleanup
	// ledger reflect real traffic, even for users past the scrutiny cutoff.
	flood := s.Guard.Check(key.ChatID, key.UserID, msg.Text, msg.MessageID)
	if flood {
		observability.FloodFlags.Inc()
	}

	// A flood flag already decides the outcome, so the judgement call is
	// skipped and the mute goes out without waiting on the poll loop.
	verdict := domain.GoodVerdict(msg.Text)
	if !flood && policy.ShouldScrutinize(*cfg, count-1) {
		started := time.Now()
		verdict = s.Engine.Classify(ctx, msg, *cfg)
		observability.ClassifyDuration.Observe(time.Since(started).Seconds())
		observability.Verdicts.WithLabelValues(string(verdict.Judgement)).Inc()
	}

	resolved := policy.Resolve(verdict, flood, *cfg, msg)
	span.SetAttributes(
		attribute.String("moderation.judgement", string(verdict.Judgement)),
		attribute.String("moderation.action", string(resolved.Action)),
		attribute.String("moderation.trigger", string(resolved.Trigger)),
	)

	if resolved.Action == domain.ActionAllow {
		observability.MessagesProcessed.WithLabelValues("allowed").Inc()
		return nil
	}

	outcome := s.Executor.Execute(ctx, resolved, msg, verdict, *cfg)
	observability.MessagesProcessed.WithLabelValues("enforced").Inc()
	observability.EnforcementActions.WithLabelValues(string(outcome.Action), boolLabel(outcome.Succeeded)).Inc()
	if !outcome.Succeeded {
		log.Warn().
			Int64("chat_id", msg.ChatID).
			Int64("message_id", msg.MessageID).
			Str("action", string(outcome.Action)).
			Str("detail", outcome.Detail).
			Msg("enforcement failed")
	}

	s.audit(ctx, msg, verdict, resolved, outcome)

	if outcome.Succeeded && removesMessage(outcome.Action) && !cfg.Silent {
		s.postDeletionNotice(ctx, msg, *cfg)
	}
	return nil
}

// isExempt reports whether the sender is outside moderation scope: chat
// admins, the chat posting as itself (anonymous admins), and the chat's
// linked channel.
func (s *ModerationService) isExempt(ctx context.Context, msg domain.InboundMessage) bool {
	if msg.FromSenderChat() {
		if msg.SenderChatID == msg.ChatID {
			return true
		}
		return s.Chats != nil && msg.SenderChatID == s.Chats.LinkedChatID(ctx, msg.ChatID)
	}

	member, err := s.API.GetChatMember(ctx, msg.ChatID, msg.UserID)
	if err != nil {
		log.Debug().Err(err).
			Int64("chat_id", msg.ChatID).
			Int64("user_id", msg.UserID).
			Msg("member lookup failed, treating sender as regular user")
		return false
	}
	return member.IsAdmin()
}

// audit persists one non-allow pipeline outcome. Audit failures are logged,
// never fatal to the pipeline.
func (s *ModerationService) audit(ctx context.Context, msg domain.InboundMessage, verdict domain.ModerationVerdict, resolved domain.ResolvedAction, outcome domain.EnforcementOutcome) {
	rec := &domain.AuditRecord{
		ChatID:       msg.ChatID,
		UserID:       msg.UserID,
		SenderChatID: msg.SenderChatID,
		MessageID:    msg.MessageID,
		Judgement:    verdict.Judgement,
		Action:       outcome.Action,
		Trigger:      resolved.Trigger,
		Reasoning:    verdict.Reasoning,
		MessageText:  verdict.MessageText,
		Succeeded:    outcome.Succeeded,
	}
	if err := repo.CreateAudit(ctx, s.DB, rec); err != nil {
		log.Error().Err(err).Int64("chat_id", msg.ChatID).Msg("audit write failed")
	}
}

// postDeletionNotice posts the chat's removal notice and queues it for
// deletion once the grace period passes.
func (s *ModerationService) postDeletionNotice(ctx context.Context, msg domain.InboundMessage, cfg domain.ChatModerationConfig) {
	if cfg.DeletionMessage == "" {
		return
	}
	text := strings.ReplaceAll(cfg.DeletionMessage, "{user}", senderLabel(msg))
	noticeID, err := s.API.SendMessage(ctx, msg.ChatID, text)
	if err != nil {
		log.Warn().Err(err).Int64("chat_id", msg.ChatID).Msg("deletion notice failed")
		return
	}

	ttl := s.NoticeTTL
	if ttl <= 0 {
		ttl = defaultNoticeTTL
	}
	if err := repo.ScheduleDeletion(ctx, s.DB, msg.ChatID, noticeID, time.Now().UTC().Add(ttl)); err != nil {
		log.Warn().Err(err).Int64("chat_id", msg.ChatID).Msg("notice autodelete scheduling failed")
	}
}

// removesMessage reports whether the action removed the offending message,
// which is what the public notice announces.
func removesMessage(a domain.Action) bool {
	switch a {
	case domain.ActionDelete, domain.ActionTempMute, domain.ActionMute, domain.ActionBan:
		return true
	}
	return false
}

// senderLabel renders the "{user}" placeholder of the notice template.
func senderLabel(msg domain.InboundMessage) string {
	if msg.SenderName != "" {
		return msg.SenderName
	}
	if msg.FromSenderChat() {
		return "the channel"
	}
	return "the user"
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// mapMessage converts the platform wire shape into the pipeline's view of a
// message.
func mapMessage(m *platform.Message) domain.InboundMessage {
	msg := domain.InboundMessage{
		ChatID:      m.Chat.ID,
		MessageID:   m.MessageID,
		Text:        m.Body(),
		PhotoFileID: m.LargestPhoto(),
		IsSystem:    m.IsSystem(),
		Note:        m.AttachmentNote(),
	}
	if m.SenderChat != nil {
		msg.SenderChatID = m.SenderChat.ID
		msg.SenderName = m.SenderChat.Title
	} else if m.From != nil {
		msg.UserID = m.From.ID
		msg.SenderName = m.From.FirstName
	}
	return msg
}
