// Moderation config HTTP handlers.
//
// This file exposes REST endpoints for per-chat moderation settings:
//   - GET /chats/{id}/moderation   (read config)
//   - PUT /chats/{id}/moderation   (replace config)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/modguard/go-chat-moderator/internal/domain"
	"github.com/modguard/go-chat-moderator/internal/platform"
	"github.com/modguard/go-chat-moderator/internal/services"
)

//
// Service contracts (context-aware)
//

// ConfigService manages per-chat moderation settings.
type ConfigService interface {
	// GetConfig returns the stored config for a chat.
	GetConfig(ctx context.Context, chatID int64) (*domain.ChatModerationConfig, error)
	// UpdateConfig validates and persists a full config.
	UpdateConfig(ctx context.Context, cfg *domain.ChatModerationConfig) error
}

// AuditService lists past moderation decisions for a chat.
type AuditService interface {
	ListAudit(ctx context.Context, chatID int64, offset, limit int) ([]domain.AuditRecord, int64, error)
}

// ActionService applies moderator-initiated actions and their reversals.
type ActionService interface {
	Apply(ctx context.Context, req services.ManualAction) (domain.EnforcementOutcome, error)
}

// Dispatcher hands one webhook update to the moderation pipeline without
// blocking the HTTP response.
type Dispatcher interface {
	Dispatch(upd *platform.Update)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for webhook intake, moderation config,
// audit history, and manual actions.
type Handlers struct {
	cfgSvc    ConfigService
	auditSvc  AuditService
	actionSvc ActionService
	dispatch  Dispatcher

	// webhookSecret, when non-empty, must match the platform secret header
	// on every webhook delivery.
	webhookSecret string
}

// New constructs a Handlers instance bound to the given services.
func New(cfgSvc ConfigService, auditSvc AuditService, actionSvc ActionService, d Dispatcher, webhookSecret string) *Handlers {
	return &Handlers{
		cfgSvc:        cfgSvc,
		auditSvc:      auditSvc,
		actionSvc:     actionSvc,
		dispatch:      d,
		webhookSecret: webhookSecret,
	}
}

// chatIDParam parses the :id path segment as a chat identifier.
func chatIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid chat id")
		return 0, false
	}
	return id, true
}

//
// Handlers
//

// GetModerationConfig godoc
// @ID          getModerationConfig
// @Summary     Read a chat's moderation config
// @Tags        Moderation
// @Produce     json
// @Param       id path int true "Chat ID"
// @Success     200 {object} domain.ChatModerationConfig
// @Failure     404 {object} ErrorResponse
// @Router      /chats/{id}/moderation [get]
func (h *Handlers) GetModerationConfig(c *gin.Context) {
	chatID, okID := chatIDParam(c)
	if !okID {
		return
	}

	cfg, err := h.cfgSvc.GetConfig(c.Request.Context(), chatID)
	if err != nil {
		if errors.Is(err, services.ErrConfigNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chat has no moderation config")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load config")
		return
	}
	ok(c, http.StatusOK, cfg)
}

// UpdateModerationConfig godoc
// @ID          updateModerationConfig
// @Summary     Replace a chat's moderation config
// @Tags        Moderation
// @Accept      json
// @Produce     json
// @Param       id     path int                          true "Chat ID"
// @Param       config body domain.ChatModerationConfig true "Full config"
// @Success     200 {object} domain.ChatModerationConfig
// @Failure     400 {object} ErrorResponse
// @Router      /chats/{id}/moderation [put]
func (h *Handlers) UpdateModerationConfig(c *gin.Context) {
	chatID, okID := chatIDParam(c)
	if !okID {
		return
	}

	var cfg domain.ChatModerationConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid config payload")
		return
	}
	// The path segment is authoritative for the chat identity.
	cfg.ChatID = chatID

	if err := h.cfgSvc.UpdateConfig(c.Request.Context(), &cfg); err != nil {
		if errors.Is(err, services.ErrInvalidConfig) {
			fail(c, http.StatusBadRequest, ErrCodeInvalidConfig, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not save config")
		return
	}
	ok(c, http.StatusOK, &cfg)
}
