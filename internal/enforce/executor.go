// Package enforce executes resolved moderation actions against the chat
// platform. Calls are one-shot: a failed platform call is reported in the
// outcome, never retried. Ban cleanup consumes the flood guard's per-user
// message-id ledger and deletes in platform-sized chunks.
package enforce

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/modguard/go-chat-moderator/internal/domain"
	"github.com/modguard/go-chat-moderator/internal/platform"
)

// Ledger exposes the recorded message ids of a user in a chat, oldest
// first. The flood guard implements it.
type Ledger interface {
	UserMessageIDs(chatID, userID int64) []int64
}

// Executor applies enforcement actions through the platform API.
type Executor struct {
	api    platform.ChatAPI
	ledger Ledger
	now    func() time.Time
}

// NewExecutor constructs an Executor. ledger may be nil, in which case ban
// cleanup only revokes what the platform revokes on its own.
func NewExecutor(api platform.ChatAPI, ledger Ledger) *Executor {
	return &Executor{api: api, ledger: ledger, now: time.Now}
}

// Execute applies resolved against the message's sender and reports what
// happened. Allow always succeeds without touching the platform.
func (e *Executor) Execute(ctx context.Context, resolved domain.ResolvedAction, msg domain.InboundMessage, verdict domain.ModerationVerdict, cfg domain.ChatModerationConfig) domain.EnforcementOutcome {
	switch resolved.Action {
	case domain.ActionAllow:
		return domain.EnforcementOutcome{Action: domain.ActionAllow, Succeeded: true}
	case domain.ActionDelete:
		return e.delete(ctx, msg)
	case domain.ActionTempMute, domain.ActionMute:
		return e.mute(ctx, resolved, msg)
	case domain.ActionBan:
		return e.ban(ctx, msg)
	case domain.ActionWarnMods:
		return e.warnMods(ctx, resolved, msg, verdict, cfg)
	}
	return failure(resolved.Action, fmt.Sprintf("unknown action %q", resolved.Action))
}

// DeleteMessage removes a single message, used by the pipeline and by the
// manual moderation surface.
func (e *Executor) DeleteMessage(ctx context.Context, chatID, messageID int64) domain.EnforcementOutcome {
	if out, ok := e.requireDeleteRights(ctx, chatID); !ok {
		return out
	}
	if err := e.api.DeleteMessage(ctx, chatID, messageID); err != nil && !platform.IsSuccessEquivalent(err) {
		return failure(domain.ActionDelete, platform.CleanErrorText(err))
	}
	return domain.EnforcementOutcome{Action: domain.ActionDelete, Succeeded: true}
}

// Mute restricts a user. A zero duration restricts indefinitely.
func (e *Executor) Mute(ctx context.Context, chatID, userID int64, muteFor time.Duration) domain.EnforcementOutcome {
	if out, ok := e.requireRestrictRights(ctx, chatID, domain.ActionMute); !ok {
		return out
	}
	var until time.Time
	if muteFor > 0 {
		until = e.now().Add(muteFor)
	}
	if err := e.api.RestrictMember(ctx, chatID, userID, until); err != nil && !platform.IsSuccessEquivalent(err) {
		return failure(domain.ActionMute, platform.CleanErrorText(err))
	}
	return domain.EnforcementOutcome{Action: domain.ActionMute, Succeeded: true}
}

// Unmute lifts a restriction, used by the manual moderation surface.
func (e *Executor) Unmute(ctx context.Context, chatID, userID int64) domain.EnforcementOutcome {
	if out, ok := e.requireRestrictRights(ctx, chatID, domain.ActionMute); !ok {
		return out
	}
	if err := e.api.UnrestrictMember(ctx, chatID, userID); err != nil && !platform.IsSuccessEquivalent(err) {
		return failure(domain.ActionMute, platform.CleanErrorText(err))
	}
	return domain.EnforcementOutcome{Action: domain.ActionMute, Succeeded: true}
}

// Unban lifts a ban on a user or sender chat, used by the manual surface.
func (e *Executor) Unban(ctx context.Context, chatID, userID, senderChatID int64) domain.EnforcementOutcome {
	if out, ok := e.requireRestrictRights(ctx, chatID, domain.ActionBan); !ok {
		return out
	}
	var err error
	if senderChatID != 0 {
		err = e.api.UnbanSenderChat(ctx, chatID, senderChatID)
	} else {
		err = e.api.UnbanMember(ctx, chatID, userID)
	}
	if err != nil && !platform.IsSuccessEquivalent(err) {
		return failure(domain.ActionBan, platform.CleanErrorText(err))
	}
	return domain.EnforcementOutcome{Action: domain.ActionBan, Succeeded: true}
}

func (e *Executor) delete(ctx context.Context, msg domain.InboundMessage) domain.EnforcementOutcome {
	return e.DeleteMessage(ctx, msg.ChatID, msg.MessageID)
}

// mute deletes the offending message and restricts its sender.
func (e *Executor) mute(ctx context.Context, resolved domain.ResolvedAction, msg domain.InboundMessage) domain.EnforcementOutcome {
	if out := e.DeleteMessage(ctx, msg.ChatID, msg.MessageID); !out.Succeeded {
		log.Warn().
			Int64("chat_id", msg.ChatID).
			Int64("message_id", msg.MessageID).
			Str("detail", out.Detail).
			Msg("mute: message deletion failed")
	}
	out := e.Mute(ctx, msg.ChatID, msg.Key().UserID, resolved.MuteFor)
	out.Action = resolved.Action
	return out
}

// ban bans the sender (user or anonymous sender chat), then batch-deletes
// the sender's recorded messages. Cleanup failures are logged, never fatal
// to the ban.
func (e *Executor) ban(ctx context.Context, msg domain.InboundMessage) domain.EnforcementOutcome {
	if out, ok := e.requireRestrictRights(ctx, msg.ChatID, domain.ActionBan); !ok {
		return out
	}

	var err error
	if msg.FromSenderChat() {
		err = e.api.BanSenderChat(ctx, msg.ChatID, msg.SenderChatID)
	} else {
		err = e.api.BanMember(ctx, msg.ChatID, msg.UserID, true)
	}
	if err != nil && !platform.IsSuccessEquivalent(err) {
		return failure(domain.ActionBan, platform.CleanErrorText(err))
	}

	e.cleanupMessages(ctx, msg)
	return domain.EnforcementOutcome{Action: domain.ActionBan, Succeeded: true}
}

// cleanupMessages deletes everything the ledger recorded for the banned
// sender, chunked to the platform's per-call limit.
func (e *Executor) cleanupMessages(ctx context.Context, msg domain.InboundMessage) {
	if e.ledger == nil {
		return
	}
	key := msg.Key()
	ids := e.ledger.UserMessageIDs(key.ChatID, key.UserID)
	for len(ids) > 0 {
		chunk := ids
		if len(chunk) > platform.MaxBatchDelete {
			chunk = chunk[:platform.MaxBatchDelete]
		}
		ids = ids[len(chunk):]
		if err := e.api.DeleteMessages(ctx, msg.ChatID, chunk); err != nil {
			log.Warn().Err(err).
				Int64("chat_id", msg.ChatID).
				Int64("user_id", key.UserID).
				Int("count", len(chunk)).
				Msg("ban cleanup: batch delete failed")
		}
	}
}

// warnMods posts the verdict and proposed action to the moderator chat for
// a human to act on. Nothing is enforced automatically on this path.
func (e *Executor) warnMods(ctx context.Context, resolved domain.ResolvedAction, msg domain.InboundMessage, verdict domain.ModerationVerdict, cfg domain.ChatModerationConfig) domain.EnforcementOutcome {
	target := msg.ChatID
	if cfg.ModeratorChat != nil {
		target = *cfg.ModeratorChat
	}
	if _, err := e.api.SendMessage(ctx, target, moderatorReport(resolved, msg, verdict)); err != nil {
		return failure(domain.ActionWarnMods, platform.CleanErrorText(err))
	}
	return domain.EnforcementOutcome{Action: domain.ActionWarnMods, Succeeded: true}
}

// moderatorReport renders the message a moderator sees for one flagged
// message: who, what was said, the verdict, and the action awaiting
// confirmation.
func moderatorReport(resolved domain.ResolvedAction, msg domain.InboundMessage, verdict domain.ModerationVerdict) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Flagged message %d in chat %d", msg.MessageID, msg.ChatID)
	if msg.FromSenderChat() {
		fmt.Fprintf(&b, " (anonymous sender %d)", msg.SenderChatID)
	} else {
		fmt.Fprintf(&b, " from user %d", msg.UserID)
	}
	b.WriteString("\n\n")
	if verdict.MessageText != "" {
		fmt.Fprintf(&b, "Message: %s\n", verdict.MessageText)
	}
	if verdict.Judgement != "" {
		fmt.Fprintf(&b, "Judgement: %s\n", verdict.Judgement)
	}
	if verdict.Reasoning != "" {
		fmt.Fprintf(&b, "Reasoning: %s\n", verdict.Reasoning)
	}
	fmt.Fprintf(&b, "Trigger: %s\n", resolved.Trigger)
	b.WriteString("\nConfirm with /mod_delete, /mod_mute, /mod_ban, or dismiss with /mod_allow.")
	return b.String()
}

// requireDeleteRights verifies the bot may delete messages in the chat.
// A failed membership lookup is logged and treated as permission granted,
// so the actual call decides.
func (e *Executor) requireDeleteRights(ctx context.Context, chatID int64) (domain.EnforcementOutcome, bool) {
	member, err := e.api.GetChatMember(ctx, chatID, e.api.BotID())
	if err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("permission lookup failed, attempting anyway")
		return domain.EnforcementOutcome{}, true
	}
	if member.Status == "creator" || member.CanDeleteMessages {
		return domain.EnforcementOutcome{}, true
	}
	return failure(domain.ActionDelete, "missing permission to delete messages in this chat"), false
}

// requireRestrictRights verifies the bot may restrict or ban members.
func (e *Executor) requireRestrictRights(ctx context.Context, chatID int64, action domain.Action) (domain.EnforcementOutcome, bool) {
	member, err := e.api.GetChatMember(ctx, chatID, e.api.BotID())
	if err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("permission lookup failed, attempting anyway")
		return domain.EnforcementOutcome{}, true
	}
	if member.Status == "creator" || member.CanRestrictMembers {
		return domain.EnforcementOutcome{}, true
	}
	return failure(action, "missing permission to restrict members in this chat"), false
}

func failure(action domain.Action, detail string) domain.EnforcementOutcome {
	return domain.EnforcementOutcome{Action: action, Detail: detail}
}
