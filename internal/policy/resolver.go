// Package policy computes the enforcement decision for one message. Every
// function here is pure: same inputs, same decision, no I/O. The precedence
// order is blocklist hit, then flood flag, then the chat's judgement-action
// table; debug mode downgrades whatever came out to a moderator warning.
package policy

import (
	"time"

	"github.com/modguard/go-chat-moderator/internal/domain"
)

// blocklistMuteFor is the restriction window applied on a word-blocklist
// hit. Blocklist hits are configuration-driven certainty, so they mute
// longer than a classifier temp-mute but still expire.
const blocklistMuteFor = time.Hour

// Resolve maps a verdict plus the flood flag onto the single action to
// execute for msg under cfg.
//
// Precedence, highest first: word-blocklist match, flood flag, the chat's
// judgement-action table. A Good judgement always resolves to allow.
// When the sender is an anonymous channel or group the restriction actions
// are adjusted (the platform cannot restrict a sender chat): mute becomes a
// sender-chat ban and temp_mute becomes a plain delete. Debug mode then
// downgrades flood and classifier outcomes to warn_mods so a human confirms
// first; blocklist hits enforce even in debug mode.
func Resolve(verdict domain.ModerationVerdict, isFlood bool, cfg domain.ChatModerationConfig, msg domain.InboundMessage) domain.ResolvedAction {
	resolved := domain.ResolvedAction{Action: domain.ActionAllow, Trigger: domain.TriggerClassifier}

	switch {
	case MatchesBlocklist(msg.Text, cfg.WordBlocklist):
		resolved = domain.ResolvedAction{
			Action:  domain.ActionMute,
			MuteFor: blocklistMuteFor,
			Trigger: domain.TriggerBlocklist,
		}
	case isFlood:
		resolved = domain.ResolvedAction{
			Action:  domain.ActionMute,
			Trigger: domain.TriggerFlood,
		}
	default:
		action := cfg.Actions.ActionFor(verdict.Judgement)
		resolved = domain.ResolvedAction{Action: action, Trigger: domain.TriggerClassifier}
		if action == domain.ActionTempMute {
			resolved.MuteFor = domain.TempMuteDuration
		}
	}

	if msg.FromSenderChat() {
		switch resolved.Action {
		case domain.ActionMute:
			resolved.Action = domain.ActionBan
			resolved.MuteFor = 0
		case domain.ActionTempMute:
			resolved.Action = domain.ActionDelete
			resolved.MuteFor = 0
		}
	}

	// Blocklist hits are explicit chat configuration, not model output, so
	// they enforce even in debug mode.
	if cfg.DebugMode && resolved.Action != domain.ActionAllow && resolved.Trigger != domain.TriggerBlocklist {
		resolved = domain.ResolvedAction{Action: domain.ActionWarnMods, Trigger: resolved.Trigger}
	}

	return resolved
}

// ShouldScrutinize reports whether a user's next message is subject to
// classification under cfg, given how many of their messages the chat has
// already seen. The gate runs before classification; a user past the
// first-N cutoff is allowed without a judgement call.
func ShouldScrutinize(cfg domain.ChatModerationConfig, priorMessages int) bool {
	if !cfg.Enabled {
		return false
	}
	if cfg.FirstMessages >= domain.CheckAllMessages {
		return true
	}
	return priorMessages < cfg.FirstMessages
}
