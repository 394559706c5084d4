package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/modguard/go-chat-moderator/internal/platform"
)

// chatInfoTTL is how long fetched chat metadata stays fresh. Titles and
// linked-channel ids change rarely, so a short TTL keeps prompts current
// without a platform call per message.
const chatInfoTTL = 5 * time.Minute

// ChatInfoCache memoizes platform chat metadata. It implements the
// classifier's TitleSource. Failures are cached as absent so a dead platform
// does not turn every message into a lookup.
type ChatInfoCache struct {
	api platform.ChatAPI

	mu      sync.Mutex
	entries map[int64]chatInfoEntry
	now     func() time.Time
}

type chatInfoEntry struct {
	chat *platform.Chat // nil when the last fetch failed
	at   time.Time
}

// NewChatInfoCache constructs a cache over the given platform client.
func NewChatInfoCache(api platform.ChatAPI) *ChatInfoCache {
	return &ChatInfoCache{
		api:     api,
		entries: make(map[int64]chatInfoEntry),
		now:     time.Now,
	}
}

// Info returns the chat's metadata, fetching when the cached copy is stale.
// Returns nil when the platform lookup fails.
func (c *ChatInfoCache) Info(ctx context.Context, chatID int64) *platform.Chat {
	c.mu.Lock()
	entry, ok := c.entries[chatID]
	fresh := ok && c.now().Sub(entry.at) < chatInfoTTL
	c.mu.Unlock()
	if fresh {
		return entry.chat
	}

	chat, err := c.api.GetChat(ctx, chatID)
	if err != nil {
		log.Debug().Err(err).Int64("chat_id", chatID).Msg("chat info fetch failed")
		chat = nil
	}
	c.mu.Lock()
	c.entries[chatID] = chatInfoEntry{chat: chat, at: c.now()}
	c.mu.Unlock()
	return chat
}

// Title implements classify.TitleSource.
func (c *ChatInfoCache) Title(ctx context.Context, chatID int64) string {
	if chat := c.Info(ctx, chatID); chat != nil {
		return chat.Title
	}
	return ""
}

// LinkedChatID returns the id of the chat's linked channel, zero when there
// is none or the lookup failed.
func (c *ChatInfoCache) LinkedChatID(ctx context.Context, chatID int64) int64 {
	if chat := c.Info(ctx, chatID); chat != nil {
		return chat.LinkedChatID
	}
	return 0
}
