// Package services – AdminService
//
// This file implements the moderator-facing operations: reading and
// updating a chat's moderation configuration, listing the audit trail, and
// applying manual enforcement actions (the confirmation path for warn_mods
// reports).
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/modguard/go-chat-moderator/internal/domain"
	"github.com/modguard/go-chat-moderator/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ManualAPI is the subset of executor primitives manual actions reuse for
// their reverse operations. The enforcement executor implements it.
type ManualAPI interface {
	DeleteMessage(ctx context.Context, chatID, messageID int64) domain.EnforcementOutcome
	Unmute(ctx context.Context, chatID, userID int64) domain.EnforcementOutcome
	Unban(ctx context.Context, chatID, userID, senderChatID int64) domain.EnforcementOutcome
}

// AdminService owns configuration and manual-action handling.
type AdminService struct {
	DB       *gorm.DB
	Executor Enforcer
	Manual   ManualAPI
}

// GetConfig returns the chat's moderation configuration, or
// ErrConfigNotFound when the chat was never configured.
func (s *AdminService) GetConfig(ctx context.Context, chatID int64) (*domain.ChatModerationConfig, error) {
	cfg, err := repo.GetChatConfig(ctx, s.DB, chatID)
	if err != nil {
		return nil, ErrConfigNotFound
	}
	return cfg, nil
}

// UpdateConfig validates and persists a chat's configuration.
func (s *AdminService) UpdateConfig(ctx context.Context, cfg *domain.ChatModerationConfig) error {
	tr := otel.Tracer("services/AdminService")
	ctx, span := tr.Start(ctx, "UpdateConfig",
		trace.WithAttributes(attribute.Int64("chat.id", cfg.ChatID)),
	)
	defer span.End()

	if err := validateConfig(cfg); err != nil {
		return err
	}
	return repo.SaveChatConfig(ctx, s.DB, cfg)
}

// ListAudit returns one page of the chat's audit trail, newest first, with
// the total row count for pagination.
func (s *AdminService) ListAudit(ctx context.Context, chatID int64, offset, limit int) ([]domain.AuditRecord, int64, error) {
	total, err := repo.CountAudit(ctx, s.DB, chatID)
	if err != nil {
		return nil, 0, err
	}
	page, err := repo.ListAuditPage(ctx, s.DB, chatID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return page, total, nil
}

// ManualAction is one moderator-invoked enforcement request.
type ManualAction struct {
	ChatID       int64
	Action       domain.Action
	UserID       int64
	SenderChatID int64
	MessageID    int64
	// Undo selects the reverse operation: unban for ban, unmute for mute.
	Undo bool
}

// Apply executes a manual action through the same primitives the pipeline
// uses and records it in the audit trail.
func (s *AdminService) Apply(ctx context.Context, req ManualAction) (domain.EnforcementOutcome, error) {
	tr := otel.Tracer("services/AdminService")
	ctx, span := tr.Start(ctx, "Apply",
		trace.WithAttributes(
			attribute.Int64("chat.id", req.ChatID),
			attribute.String("moderation.action", string(req.Action)),
		),
	)
	defer span.End()

	outcome, err := s.apply(ctx, req)
	if err != nil {
		return outcome, err
	}

	rec := &domain.AuditRecord{
		ChatID:       req.ChatID,
		UserID:       req.UserID,
		SenderChatID: req.SenderChatID,
		MessageID:    req.MessageID,
		Judgement:    domain.JudgementGood,
		Action:       req.Action,
		Trigger:      domain.TriggerManual,
		Succeeded:    outcome.Succeeded,
	}
	if err := repo.CreateAudit(ctx, s.DB, rec); err != nil {
		return outcome, err
	}
	return outcome, nil
}

func (s *AdminService) apply(ctx context.Context, req ManualAction) (domain.EnforcementOutcome, error) {
	msg := domain.InboundMessage{
		ChatID:       req.ChatID,
		MessageID:    req.MessageID,
		UserID:       req.UserID,
		SenderChatID: req.SenderChatID,
	}
	cfg := domain.ChatModerationConfig{ChatID: req.ChatID}

	switch req.Action {
	case domain.ActionDelete:
		// The platform cannot restore a deleted message.
		if req.Undo {
			return domain.EnforcementOutcome{}, ErrInvalidAction
		}
		if req.MessageID == 0 {
			return domain.EnforcementOutcome{}, ErrInvalidTarget
		}
		return s.Manual.DeleteMessage(ctx, req.ChatID, req.MessageID), nil
	case domain.ActionMute, domain.ActionTempMute:
		if req.UserID == 0 {
			return domain.EnforcementOutcome{}, ErrInvalidTarget
		}
		if req.Undo {
			return s.Manual.Unmute(ctx, req.ChatID, req.UserID), nil
		}
		resolved := domain.ResolvedAction{Action: req.Action, Trigger: domain.TriggerManual}
		if req.Action == domain.ActionTempMute {
			resolved.MuteFor = domain.TempMuteDuration
		}
		return s.Executor.Execute(ctx, resolved, msg, domain.ModerationVerdict{}, cfg), nil
	case domain.ActionBan:
		if req.UserID == 0 && req.SenderChatID == 0 {
			return domain.EnforcementOutcome{}, ErrInvalidTarget
		}
		if req.Undo {
			return s.Manual.Unban(ctx, req.ChatID, req.UserID, req.SenderChatID), nil
		}
		resolved := domain.ResolvedAction{Action: domain.ActionBan, Trigger: domain.TriggerManual}
		return s.Executor.Execute(ctx, resolved, msg, domain.ModerationVerdict{}, cfg), nil
	}
	return domain.EnforcementOutcome{}, ErrInvalidAction
}

// validateConfig rejects configurations that name unknown judgements or
// actions, or carry a negative scrutiny cutoff.
func validateConfig(cfg *domain.ChatModerationConfig) error {
	if cfg.FirstMessages < 0 {
		return ErrInvalidConfig
	}
	for j, a := range cfg.Actions {
		if !j.Valid() || !a.Valid() {
			return ErrInvalidConfig
		}
	}
	return nil
}
