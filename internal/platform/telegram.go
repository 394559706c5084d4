package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// BotClient is the Bot API implementation of ChatAPI. It talks JSON over
// HTTP to the platform's method endpoints and maps failures into APIError.
type BotClient struct {
	baseURL string
	token   string
	botID   int64
	http    *http.Client
}

// NewBotClient constructs a client for the given API base URL and bot token.
// botID is the numeric account id the token belongs to (the leading segment
// of the token), used for permission lookups before enforcement.
func NewBotClient(baseURL, token string, botID int64, timeout time.Duration) *BotClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BotClient{
		baseURL: baseURL,
		token:   token,
		botID:   botID,
		http:    &http.Client{Timeout: timeout},
	}
}

// BotID implements ChatAPI.
func (c *BotClient) BotID() int64 { return c.botID }

// apiResponse is the envelope every Bot API method returns.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Description string          `json:"description,omitempty"`
}

// call performs one Bot API method invocation. The params map is sent as the
// JSON body; a non-ok envelope becomes an *APIError carrying the platform's
// error code and description verbatim.
func (c *BotClient) call(ctx context.Context, method string, params map[string]any, out any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("platform: encode %s params: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("platform: build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("platform: %s: %w", method, err)
	}
	defer resp.Body.Close()

	var env apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("platform: decode %s response: %w", method, err)
	}
	if !env.OK {
		log.Debug().
			Str("method", method).
			Int("error_code", env.ErrorCode).
			Str("description", env.Description).
			Msg("platform call failed")
		return &APIError{Code: env.ErrorCode, Description: env.Description}
	}
	if out != nil {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return fmt.Errorf("platform: decode %s result: %w", method, err)
		}
	}
	return nil
}

// GetChat implements ChatAPI.
func (c *BotClient) GetChat(ctx context.Context, chatID int64) (*Chat, error) {
	var chat Chat
	if err := c.call(ctx, "getChat", map[string]any{"chat_id": chatID}, &chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

// GetChatMember implements ChatAPI.
func (c *BotClient) GetChatMember(ctx context.Context, chatID, userID int64) (*ChatMember, error) {
	var member ChatMember
	params := map[string]any{"chat_id": chatID, "user_id": userID}
	if err := c.call(ctx, "getChatMember", params, &member); err != nil {
		return nil, err
	}
	return &member, nil
}

// SendMessage implements ChatAPI.
func (c *BotClient) SendMessage(ctx context.Context, chatID int64, text string) (int64, error) {
	var msg Message
	params := map[string]any{"chat_id": chatID, "text": text}
	if err := c.call(ctx, "sendMessage", params, &msg); err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// DeleteMessage implements ChatAPI.
func (c *BotClient) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	params := map[string]any{"chat_id": chatID, "message_id": messageID}
	return c.call(ctx, "deleteMessage", params, nil)
}

// DeleteMessages implements ChatAPI. The platform caps one call at
// MaxBatchDelete ids; callers chunk larger sets.
func (c *BotClient) DeleteMessages(ctx context.Context, chatID int64, messageIDs []int64) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if len(messageIDs) > MaxBatchDelete {
		return fmt.Errorf("platform: deleteMessages accepts at most %d ids, got %d", MaxBatchDelete, len(messageIDs))
	}
	params := map[string]any{"chat_id": chatID, "message_ids": messageIDs}
	return c.call(ctx, "deleteMessages", params, nil)
}

// RestrictMember implements ChatAPI. A zero until restricts indefinitely
// (the platform treats an absent until_date the same way).
func (c *BotClient) RestrictMember(ctx context.Context, chatID, userID int64, until time.Time) error {
	params := map[string]any{
		"chat_id": chatID,
		"user_id": userID,
		"permissions": map[string]any{
			"can_send_messages": false,
		},
	}
	if !until.IsZero() {
		params["until_date"] = until.Unix()
	}
	return c.call(ctx, "restrictChatMember", params, nil)
}

// UnrestrictMember implements ChatAPI.
func (c *BotClient) UnrestrictMember(ctx context.Context, chatID, userID int64) error {
	params := map[string]any{
		"chat_id": chatID,
		"user_id": userID,
		"permissions": map[string]any{
			"can_send_messages":         true,
			"can_send_other_messages":   true,
			"can_add_web_page_previews": true,
		},
	}
	return c.call(ctx, "restrictChatMember", params, nil)
}

// BanMember implements ChatAPI.
func (c *BotClient) BanMember(ctx context.Context, chatID, userID int64, revokeMessages bool) error {
	params := map[string]any{
		"chat_id":         chatID,
		"user_id":         userID,
		"revoke_messages": revokeMessages,
	}
	return c.call(ctx, "banChatMember", params, nil)
}

// UnbanMember implements ChatAPI. only_if_banned keeps the call from kicking
// a member who was never banned.
func (c *BotClient) UnbanMember(ctx context.Context, chatID, userID int64) error {
	params := map[string]any{
		"chat_id":        chatID,
		"user_id":        userID,
		"only_if_banned": true,
	}
	return c.call(ctx, "unbanChatMember", params, nil)
}

// BanSenderChat implements ChatAPI.
func (c *BotClient) BanSenderChat(ctx context.Context, chatID, senderChatID int64) error {
	params := map[string]any{"chat_id": chatID, "sender_chat_id": senderChatID}
	return c.call(ctx, "banChatSenderChat", params, nil)
}

// UnbanSenderChat implements ChatAPI.
func (c *BotClient) UnbanSenderChat(ctx context.Context, chatID, senderChatID int64) error {
	params := map[string]any{"chat_id": chatID, "sender_chat_id": senderChatID}
	return c.call(ctx, "unbanChatSenderChat", params, nil)
}

// DownloadFile implements ChatAPI: resolves the file path via getFile, then
// fetches the bytes from the file endpoint.
func (c *BotClient) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	var file struct {
		FilePath string `json:"file_path"`
	}
	if err := c.call(ctx, "getFile", map[string]any{"file_id": fileID}, &file); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("platform: build file request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("platform: download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Code: resp.StatusCode, Description: "file download failed"}
	}
	return io.ReadAll(resp.Body)
}
