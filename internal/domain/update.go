// Package domain defines the core types of the moderation pipeline.
// This file holds the inbound-message shape the pipeline consumes and the
// ProcessedUpdate model that deduplicates redelivered webhook updates.
package domain

import "time"

// InboundMessage is the platform-agnostic view of one chat message entering
// the pipeline. The webhook handler maps raw platform updates into this shape
// before dispatching.
//
// Fields:
//   - ChatID / MessageID: where the message lives on the platform.
//   - UserID: human sender; zero when the message came from a sender chat.
//   - SenderChatID: channel or group posting anonymously; zero for humans.
//   - Text: message text, or caption for media messages.
//   - PhotoFileID: largest photo attachment, empty when none.
//   - IsSystem: join/leave/pin and other service events that carry no
//     moderatable content.
//   - SenderName: display name used in notices and moderator reports.
//   - Note: short human-readable marker for unclassifiable attachments
//     (voice message, sticker), surfaced in audit output.
type InboundMessage struct {
	ChatID       int64
	MessageID    int64
	UserID       int64
	SenderChatID int64
	SenderName   string
	Text         string
	PhotoFileID  string
	IsSystem     bool
	Note         string
}

// Key returns the per-user moderation state key for the message. Anonymous
// sender chats are keyed by their chat id so their flood state is tracked too.
func (m InboundMessage) Key() ChatUserKey {
	if m.UserID != 0 {
		return ChatUserKey{ChatID: m.ChatID, UserID: m.UserID}
	}
	return ChatUserKey{ChatID: m.ChatID, UserID: m.SenderChatID}
}

// FromSenderChat reports whether the message was posted anonymously by a
// channel or group rather than a human account.
func (m InboundMessage) FromSenderChat() bool { return m.SenderChatID != 0 }

// IsCommand reports whether the message is a bot command. Commands are not
// classified.
func (m InboundMessage) IsCommand() bool {
	return len(m.Text) > 0 && m.Text[0] == '/'
}

// ProcessedUpdate records a webhook update id that has already been handled.
// The platform redelivers updates until they are acknowledged, so the intake
// handler checks this ledger before dispatching a pipeline task.
type ProcessedUpdate struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	UpdateID  int64     `gorm:"not null;uniqueIndex:ux_update_id"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (ProcessedUpdate) TableName() string { return "processed_updates" }
