// Package domain defines the core types of the moderation pipeline: the
// classifier's judgement taxonomy, enforcement actions, per-chat moderation
// configuration, and the persistence models for audit records, per-user
// message counters, and scheduled notice deletions. The persistence models
// are mapped with GORM.
package domain

import (
	"time"
)

// Judgement is the classifier's categorical verdict on a message's policy
// compliance. The set mirrors the judgement schema the judgement service is
// instructed to answer with.
type Judgement string

const (
	// JudgementGood marks a message that complies with the chat rules.
	JudgementGood Judgement = "Good"
	// JudgementMoreContextNeeded marks a message the classifier could not
	// evaluate without conversation context. Treated like Good by default.
	JudgementMoreContextNeeded Judgement = "MoreContextNeeded"
	// JudgementInform marks disallowed content that a well-meaning user could
	// plausibly have sent without knowing the rules.
	JudgementInform Judgement = "Inform"
	// JudgementSuspicious marks content that is likely harmful but without an
	// obvious intent to harm.
	JudgementSuspicious Judgement = "Suspicious"
	// JudgementHarmful marks content explicitly disallowed by the chat rules.
	JudgementHarmful Judgement = "Harmful"
)

// Valid reports whether j is one of the known judgement values.
func (j Judgement) Valid() bool {
	switch j {
	case JudgementGood, JudgementMoreContextNeeded, JudgementInform,
		JudgementSuspicious, JudgementHarmful:
		return true
	}
	return false
}

// Action is a single enforcement decision kind.
type Action string

const (
	// ActionAllow takes no action against the message.
	ActionAllow Action = "allow"
	// ActionDelete removes the offending message.
	ActionDelete Action = "delete"
	// ActionTempMute deletes the message and restricts the sender for a
	// bounded duration.
	ActionTempMute Action = "temp_mute"
	// ActionMute deletes the message and restricts the sender indefinitely.
	ActionMute Action = "mute"
	// ActionBan bans the sender and batch-deletes their recent messages.
	ActionBan Action = "ban"
	// ActionWarnMods routes the verdict to the moderator chat for a human to
	// act on; nothing is enforced automatically.
	ActionWarnMods Action = "warn_mods"
)

// Valid reports whether a is one of the known action values.
func (a Action) Valid() bool {
	switch a {
	case ActionAllow, ActionDelete, ActionTempMute, ActionMute, ActionBan, ActionWarnMods:
		return true
	}
	return false
}

// TempMuteDuration is the restriction window applied by ActionTempMute.
const TempMuteDuration = 15 * time.Minute

// CheckAllMessages is the FirstMessages sentinel meaning every message is
// classified, regardless of how long the user has been in the chat.
const CheckAllMessages = 1<<31 - 1

// ActionMap maps a judgement to the action configured for it. Stored as a
// JSON column on ChatModerationConfig.
type ActionMap map[Judgement]Action

// DefaultActions returns the judgement→action table applied to chats that
// have not customized it.
func DefaultActions() ActionMap {
	return ActionMap{
		JudgementGood:              ActionAllow,
		JudgementMoreContextNeeded: ActionAllow,
		JudgementInform:            ActionDelete,
		JudgementSuspicious:        ActionTempMute,
		JudgementHarmful:           ActionBan,
	}
}

// ActionFor resolves the action for a judgement, falling back to the default
// table for judgements the chat has not mapped. Good always maps to allow.
func (m ActionMap) ActionFor(j Judgement) Action {
	if j == JudgementGood {
		return ActionAllow
	}
	if m != nil {
		if a, ok := m[j]; ok && a.Valid() {
			return a
		}
	}
	if a, ok := DefaultActions()[j]; ok {
		return a
	}
	return ActionAllow
}

// ChatUserKey identifies per-user moderation state within a single chat.
// Keys are never reused across chats.
type ChatUserKey struct {
	ChatID int64
	UserID int64
}

// ChatModerationConfig is the per-chat moderation configuration record.
// It is read by the pipeline on every message and rewritten only through the
// settings surface (or by model rotation).
//
// Fields:
//   - ChatID: platform chat identifier, primary key.
//   - Enabled: master switch; nothing runs when false.
//   - Prompt: free-text chat rules appended to the fixed system instruction.
//   - Model: judgement-service model identifier for this chat.
//   - Actions: judgement→action mapping table (JSON column).
//   - FirstMessages: number of a user's earliest messages subject to
//     classification; CheckAllMessages disables the cutoff.
//   - DebugMode: downgrade all enforcement to warn_mods (human approves).
//   - Silent: suppress the public deletion notice.
//   - ModeratorChat: chat that receives audit output; nil falls back to the
//     moderated chat itself.
//   - WordBlocklist: lowercase tokens matched case-insensitively against
//     message words; a hit mutes regardless of the verdict.
//   - DeletionMessage: notice template posted after a deletion; "{user}" is
//     replaced with a sender mention.
type ChatModerationConfig struct {
	ChatID          int64     `json:"chat_id"          gorm:"primaryKey;autoIncrement:false"`
	Enabled         bool      `json:"enabled"          gorm:"not null"`
	Prompt          string    `json:"prompt"           gorm:"type:text;not null"`
	Model           string    `json:"model"            gorm:"type:varchar(64);not null"`
	Actions         ActionMap `json:"actions"          gorm:"type:text;serializer:json"`
	FirstMessages   int       `json:"first_messages"   gorm:"not null"`
	DebugMode       bool      `json:"debug_mode"       gorm:"not null"`
	Silent          bool      `json:"silent"           gorm:"not null"`
	ModeratorChat   *int64    `json:"moderator_chat,omitempty"`
	WordBlocklist   []string  `json:"word_blocklist"   gorm:"type:text;serializer:json"`
	DeletionMessage string    `json:"deletion_message" gorm:"type:text;not null"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName returns the database table name for ChatModerationConfig.
func (ChatModerationConfig) TableName() string { return "chat_moderation_configs" }

// DefaultChatConfig returns the configuration applied to a chat the first
// time moderation is enabled for it. Debug mode starts on so admins can
// observe verdicts before any real enforcement happens.
func DefaultChatConfig(chatID int64) ChatModerationConfig {
	return ChatModerationConfig{
		ChatID:          chatID,
		Enabled:         true,
		Prompt:          "Not allowed: spam, scam, attempt of impersonation, or something that could be unwelcome to hear from a user who just joined a chat",
		Model:           "gpt-4o",
		Actions:         DefaultActions(),
		FirstMessages:   3,
		DebugMode:       true,
		Silent:          false,
		DeletionMessage: "{user}, your message was removed by the moderation bot. Mods have been notified and will review it shortly if it was a mistake",
	}
}

// ModerationVerdict is the classifier's structured output for one message.
// Produced at most once per message; never persisted beyond the pipeline
// invocation, except as audit text.
type ModerationVerdict struct {
	Judgement   Judgement
	Reasoning   string
	MessageText string
	// ImageFileID references the attached photo that was classified, if any.
	ImageFileID string
	// Skipped is true when classification did not run (system event, empty
	// body). Skipped verdicts are always Good and produce no audit output.
	Skipped bool
}

// GoodVerdict returns the fail-open verdict used whenever classification
// cannot produce a real one.
func GoodVerdict(text string) ModerationVerdict {
	return ModerationVerdict{Judgement: JudgementGood, MessageText: text}
}

// ResolvedAction is the single enforcement decision computed for one message.
// Computed fresh per message; never stored.
//
// Fields:
//   - Action: what to do.
//   - MuteFor: restriction window for temp_mute; zero means indefinite.
//   - Trigger: which signal produced the decision, surfaced in audit output.
type ResolvedAction struct {
	Action  Action
	MuteFor time.Duration
	Trigger Trigger
}

// Trigger names the signal that produced a resolved action.
type Trigger string

const (
	// TriggerBlocklist marks a word-blocklist hit.
	TriggerBlocklist Trigger = "blocklist"
	// TriggerFlood marks a flood-guard flag.
	TriggerFlood Trigger = "flood"
	// TriggerClassifier marks a classification verdict.
	TriggerClassifier Trigger = "classifier"
	// TriggerManual marks an action a moderator invoked by hand.
	TriggerManual Trigger = "manual"
)

// EnforcementOutcome reports what the executor actually did.
//
// Fields:
//   - Action: the action that was attempted.
//   - Succeeded: true when the action completed, including success-equivalent
//     platform responses such as "already banned".
//   - Detail: operator-facing failure text when Succeeded is false.
type EnforcementOutcome struct {
	Action    Action
	Succeeded bool
	Detail    string
}

// AuditRecord is the persisted trail of one non-allow pipeline outcome.
type AuditRecord struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	ChatID       int64     `json:"chat_id"       gorm:"not null;index:idx_chat_audit,priority:1"`
	UserID       int64     `json:"user_id"       gorm:"not null"`
	SenderChatID int64     `json:"sender_chat_id,omitempty"`
	MessageID    int64     `json:"message_id"    gorm:"not null"`
	Judgement    Judgement `json:"judgement"     gorm:"type:varchar(32);not null"`
	Action       Action    `json:"action"        gorm:"type:varchar(16);not null"`
	Trigger      Trigger   `json:"trigger"       gorm:"type:varchar(16);not null"`
	Reasoning    string    `json:"reasoning"     gorm:"type:text"`
	MessageText  string    `json:"message_text"  gorm:"type:text"`
	Succeeded    bool      `json:"succeeded"     gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"    gorm:"index:idx_chat_audit,priority:2"`
}

// TableName returns the database table name for AuditRecord.
func (AuditRecord) TableName() string { return "audit_records" }

// UserMessageCount tracks how many messages a user has sent in a chat, used
// by the first-N-messages scrutiny gate. Survives restarts so returning users
// are not re-scrutinized.
type UserMessageCount struct {
	ChatID    int64 `gorm:"primaryKey;autoIncrement:false"`
	UserID    int64 `gorm:"primaryKey;autoIncrement:false"`
	Count     int   `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName returns the database table name for UserMessageCount.
func (UserMessageCount) TableName() string { return "user_message_counts" }

// ScheduledDeletion is a deletion-notice message queued for removal after a
// short grace period. Persisted so restarts do not leak notices.
type ScheduledDeletion struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	ChatID    int64     `gorm:"not null"`
	MessageID int64     `gorm:"not null"`
	DeleteAt  time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}

// TableName returns the database table name for ScheduledDeletion.
func (ScheduledDeletion) TableName() string { return "scheduled_deletions" }
