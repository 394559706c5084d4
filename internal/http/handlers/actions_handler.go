// Manual moderator action handler.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/modguard/go-chat-moderator/internal/domain"
	"github.com/modguard/go-chat-moderator/internal/services"
)

// ApplyActionRequest is the JSON payload for a manual moderation action.
//
// Exactly one target is required depending on the action: message_id for
// delete, user_id for mutes, user_id or sender_chat_id for bans. Undo
// selects the reverse operation (unmute, unban).
type ApplyActionRequest struct {
	Action       string `json:"action" binding:"required" example:"ban"`
	UserID       int64  `json:"user_id,omitempty"`
	SenderChatID int64  `json:"sender_chat_id,omitempty"`
	MessageID    int64  `json:"message_id,omitempty"`
	Undo         bool   `json:"undo,omitempty"`
}

// ActionResult reports what the platform did with a manual action.
type ActionResult struct {
	Action    string `json:"action"`
	Succeeded bool   `json:"succeeded"`
	Detail    string `json:"detail,omitempty"`
}

// ApplyAction godoc
// @ID          applyAction
// @Summary     Apply a manual moderation action
// @Tags        Moderation
// @Accept      json
// @Produce     json
// @Param       id     path int                true "Chat ID"
// @Param       action body ApplyActionRequest true "Action to apply"
// @Success     200 {object} ActionResult
// @Failure     400 {object} ErrorResponse
// @Router      /chats/{id}/actions [post]
func (h *Handlers) ApplyAction(c *gin.Context) {
	chatID, okID := chatIDParam(c)
	if !okID {
		return
	}

	var req ApplyActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid action payload")
		return
	}

	outcome, err := h.actionSvc.Apply(c.Request.Context(), services.ManualAction{
		ChatID:       chatID,
		Action:       domain.Action(req.Action),
		UserID:       req.UserID,
		SenderChatID: req.SenderChatID,
		MessageID:    req.MessageID,
		Undo:         req.Undo,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidAction):
			fail(c, http.StatusBadRequest, ErrCodeInvalidAction, "unsupported action")
		case errors.Is(err, services.ErrInvalidTarget):
			fail(c, http.StatusBadRequest, ErrCodeInvalidAction, "action is missing its target")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeActionFailed, "could not apply action")
		}
		return
	}

	ok(c, http.StatusOK, ActionResult{
		Action:    string(outcome.Action),
		Succeeded: outcome.Succeeded,
		Detail:    outcome.Detail,
	})
}
