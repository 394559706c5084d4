// Package platform defines the boundary to the chat platform: the ChatAPI
// interface the pipeline talks to, the wire types of inbound webhook updates,
// and the error shape platform calls can fail with. The concrete Bot API
// client lives in telegram.go; everything above this package depends only on
// the interface so tests can substitute a fake.
package platform

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxBatchDelete is the platform's per-call limit for batch message deletion.
const MaxBatchDelete = 100

// ChatAPI is the subset of the chat platform consumed by the moderation
// pipeline. All methods are one-shot: callers do not retry on failure.
type ChatAPI interface {
	// BotID returns the acting bot identity, used for permission lookups.
	BotID() int64

	// GetChat fetches chat metadata (title, linked channel).
	GetChat(ctx context.Context, chatID int64) (*Chat, error)
	// GetChatMember fetches membership and admin right flags for a user.
	GetChatMember(ctx context.Context, chatID, userID int64) (*ChatMember, error)

	// SendMessage posts text to a chat and returns the new message id.
	SendMessage(ctx context.Context, chatID int64, text string) (int64, error)
	// DeleteMessage removes a single message.
	DeleteMessage(ctx context.Context, chatID, messageID int64) error
	// DeleteMessages removes up to MaxBatchDelete messages in one call.
	DeleteMessages(ctx context.Context, chatID int64, messageIDs []int64) error

	// RestrictMember mutes a user. A zero until restricts indefinitely.
	RestrictMember(ctx context.Context, chatID, userID int64, until time.Time) error
	// UnrestrictMember lifts a restriction.
	UnrestrictMember(ctx context.Context, chatID, userID int64) error

	// BanMember bans a user, optionally revoking their recent messages.
	BanMember(ctx context.Context, chatID, userID int64, revokeMessages bool) error
	// UnbanMember lifts a ban.
	UnbanMember(ctx context.Context, chatID, userID int64) error
	// BanSenderChat bans an anonymous sender channel/group.
	BanSenderChat(ctx context.Context, chatID, senderChatID int64) error
	// UnbanSenderChat lifts a sender-chat ban.
	UnbanSenderChat(ctx context.Context, chatID, senderChatID int64) error

	// DownloadFile fetches file bytes by platform file id (photo content
	// passed to the classifier).
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}

// APIError is a structured platform failure. Description is rendered back to
// operators after CleanDescription strips transport prefixes.
type APIError struct {
	Code        int
	Description string
}

// Error implements the error interface.
func (e *APIError) Error() string { return e.Description }

// CleanDescription returns the operator-facing error text with the
// platform's transport prefix stripped.
func (e *APIError) CleanDescription() string {
	return strings.TrimPrefix(e.Description, "Bad Request: ")
}

// CleanErrorText renders any platform error for operators, stripping the
// transport prefix when the error is a structured APIError.
func CleanErrorText(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.CleanDescription()
	}
	return err.Error()
}

// IsSuccessEquivalent reports whether a platform failure means the desired
// state already holds ("already banned", "already restricted", membership
// already revoked). Enforcement treats these as success so re-invoking an
// action is never pipeline-fatal.
func IsSuccessEquivalent(err error) bool {
	if err == nil {
		return true
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	desc := strings.ToLower(apiErr.Description)
	switch {
	case strings.Contains(desc, "already banned"),
		strings.Contains(desc, "already restricted"),
		strings.Contains(desc, "user_already_participant"),
		strings.Contains(desc, "user is an administrator"),
		strings.Contains(desc, "chat_member_status_kicked"),
		strings.Contains(desc, "participant_id_invalid"):
		return true
	}
	return false
}

// Chat is platform chat metadata.
type Chat struct {
	ID           int64  `json:"id"`
	Type         string `json:"type"`
	Title        string `json:"title,omitempty"`
	Username     string `json:"username,omitempty"`
	LinkedChatID int64  `json:"linked_chat_id,omitempty"`
}

// User is a platform user account.
type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username,omitempty"`
}

// ChatMember carries membership status and the admin right flags the
// executor pre-checks before enforcement.
type ChatMember struct {
	Status             string `json:"status"` // creator|administrator|member|restricted|left|kicked
	User               User   `json:"user"`
	CanDeleteMessages  bool   `json:"can_delete_messages,omitempty"`
	CanRestrictMembers bool   `json:"can_restrict_members,omitempty"`
}

// IsAdmin reports whether the member holds any privileged status.
func (m *ChatMember) IsAdmin() bool {
	return m.Status == "creator" || m.Status == "administrator"
}

// PhotoSize is one rendition of a photo attachment; the last entry of a
// photo array is the largest.
type PhotoSize struct {
	FileID string `json:"file_id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Message is the wire shape of one chat message inside a webhook update.
// Only the fields the pipeline consumes are mapped.
type Message struct {
	MessageID      int64       `json:"message_id"`
	From           *User       `json:"from,omitempty"`
	SenderChat     *Chat       `json:"sender_chat,omitempty"`
	Chat           Chat        `json:"chat"`
	Date           int64       `json:"date"`
	Text           string      `json:"text,omitempty"`
	Caption        string      `json:"caption,omitempty"`
	Photo          []PhotoSize `json:"photo,omitempty"`
	Sticker        *struct{}   `json:"sticker,omitempty"`
	Voice          *struct{}   `json:"voice,omitempty"`
	VideoNote      *struct{}   `json:"video_note,omitempty"`
	NewChatMembers []User      `json:"new_chat_members,omitempty"`
	LeftChatMember *User       `json:"left_chat_member,omitempty"`
	PinnedMessage  *struct{}   `json:"pinned_message,omitempty"`
}

// IsSystem reports whether the message is a service event with no
// moderatable content.
func (m *Message) IsSystem() bool {
	return len(m.NewChatMembers) > 0 || m.LeftChatMember != nil || m.PinnedMessage != nil
}

// Body returns the moderatable text of the message: text for plain
// messages, caption for media.
func (m *Message) Body() string {
	if m.Text != "" {
		return m.Text
	}
	return m.Caption
}

// LargestPhoto returns the file id of the biggest photo rendition, or "".
func (m *Message) LargestPhoto() string {
	if len(m.Photo) == 0 {
		return ""
	}
	return m.Photo[len(m.Photo)-1].FileID
}

// AttachmentNote returns a short marker for attachments the classifier
// cannot inspect, or "".
func (m *Message) AttachmentNote() string {
	switch {
	case m.Voice != nil:
		return "+ voice message"
	case m.Sticker != nil:
		return "+ sticker"
	case m.VideoNote != nil:
		return "+ video note"
	}
	return ""
}

// Update is one webhook delivery from the platform.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}
