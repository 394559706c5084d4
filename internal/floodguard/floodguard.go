// Package floodguard implements the in-memory rate-limiting and
// duplicate-detection subsystem that runs ahead of classification. It is
// intentionally cheap and synchronous so the worst-case cost of a spam wave
// is bounded even when the classifier is slow or down.
//
// Three signals are combined, evaluated in order:
//   - Per (chat, user) token bucket using golang.org/x/time/rate
//     (capacity 3 tokens, 1 token/second refill).
//   - Chat-wide duplicate window: the same exact text appearing 10+ times in
//     the last 50 messages of a chat.
//   - Per-user duplicate window: the same text sent 3+ times by one user
//     within the last minute.
//
// All state is process-local and keyed per chat/user; writers for different
// keys never contend on a single state lock. Every check appends to the
// windows regardless of outcome, so the windows reflect real traffic even
// while a flood is being flagged.
package floodguard

import (
	"container/list"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/modguard/go-chat-moderator/internal/domain"
)

const (
	bucketCapacity = 3
	bucketRefill   = rate.Limit(1.0) // tokens per second

	chatWindowSize     = 50
	chatDupThreshold   = 10
	userDupThreshold   = 3
	userDupHorizon     = time.Minute
	userLedgerCap      = 5000
	idleEntryTTL       = 30 * time.Minute
	cleanupEveryChecks = 5000
)

// userEntry is one recorded message in a user's window. Entries double as the
// message-id ledger consumed by ban cleanup, so they are evicted by the count
// cap rather than by the duplicate-detection horizon.
type userEntry struct {
	text      string
	messageID int64
	at        time.Time
}

// userState is the per (chat, user) moderation state: the token bucket plus
// the bounded message window.
type userState struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	window   *list.List // of userEntry, oldest first
	lastSeen time.Time
}

// chatState is the chat-wide window of recent message texts.
type chatState struct {
	mu       sync.Mutex
	window   *list.List // of string, oldest first
	lastSeen time.Time
}

// Guard is the flood/abuse detector. Safe for concurrent use; the outer maps
// are guarded by a short-lived RWMutex and every per-key entry carries its
// own lock, so checks for different keys proceed in parallel.
type Guard struct {
	mu    sync.RWMutex
	users map[domain.ChatUserKey]*userState
	chats map[int64]*chatState

	now    func() time.Time
	checks uint64
}

// New constructs a Guard with real time. State is created lazily per key.
func New() *Guard {
	return &Guard{
		users: make(map[domain.ChatUserKey]*userState),
		chats: make(map[int64]*chatState),
		now:   time.Now,
	}
}

// NewWithClock constructs a Guard with an injectable clock, used by tests to
// drive the token bucket and the duplicate horizon deterministically.
func NewWithClock(now func() time.Time) *Guard {
	g := New()
	g.now = now
	return g
}

// Check runs the flood checks for one message and reports whether the
// message should be flagged as flood. The message is always appended to both
// windows, flagged or not.
func (g *Guard) Check(chatID, userID int64, text string, messageID int64) bool {
	now := g.now()
	key := domain.ChatUserKey{ChatID: chatID, UserID: userID}

	us := g.userState(key, now)
	cs := g.chatState(chatID, now)

	flagged := false

	// 1) Token bucket. Consume one token when available; an empty bucket
	// flags flood but never drives the balance negative.
	us.mu.Lock()
	us.lastSeen = now
	if !us.limiter.AllowN(now, 1) {
		log.Info().
			Int64("chat_id", chatID).
			Int64("user_id", userID).
			Msg("flood: token bucket exhausted")
		flagged = true
	}
	us.mu.Unlock()

	// 2) Chat-wide duplicate window: the current occurrence counts toward
	// the threshold, so the 10th posting of a text flags.
	cs.mu.Lock()
	cs.lastSeen = now
	same := 1
	for e := cs.window.Front(); e != nil; e = e.Next() {
		if e.Value.(string) == text {
			same++
		}
	}
	if !flagged && same >= chatDupThreshold {
		log.Info().
			Int64("chat_id", chatID).
			Int("occurrences", same).
			Msg("flood: text repeated across chat window")
		flagged = true
	}
	cs.window.PushBack(text)
	for cs.window.Len() > chatWindowSize {
		cs.window.Remove(cs.window.Front())
	}
	cs.mu.Unlock()

	// 3) Per-user duplicate window: only occurrences within the last minute
	// count, but entries stay in the window (up to the cap) because their
	// message ids feed ban-time batch cleanup.
	us.mu.Lock()
	horizon := now.Add(-userDupHorizon)
	same = 1
	for e := us.window.Front(); e != nil; e = e.Next() {
		ent := e.Value.(userEntry)
		if ent.text == text && ent.at.After(horizon) {
			same++
		}
	}
	if !flagged && same >= userDupThreshold {
		log.Info().
			Int64("chat_id", chatID).
			Int64("user_id", userID).
			Int("occurrences", same).
			Msg("flood: user repeated text within a minute")
		flagged = true
	}
	us.window.PushBack(userEntry{text: text, messageID: messageID, at: now})
	for us.window.Len() > userLedgerCap {
		us.window.Remove(us.window.Front())
	}
	us.mu.Unlock()

	return flagged
}

// UserMessageIDs returns the message ids recorded for a user in a chat,
// oldest first. Consumed by the enforcement executor for batch deletion after
// a ban.
func (g *Guard) UserMessageIDs(chatID, userID int64) []int64 {
	key := domain.ChatUserKey{ChatID: chatID, UserID: userID}

	g.mu.RLock()
	us, ok := g.users[key]
	g.mu.RUnlock()
	if !ok {
		return nil
	}

	us.mu.Lock()
	defer us.mu.Unlock()
	ids := make([]int64, 0, us.window.Len())
	for e := us.window.Front(); e != nil; e = e.Next() {
		ids = append(ids, e.Value.(userEntry).messageID)
	}
	return ids
}

// userState fetches or lazily creates the per-key state. Opportunistic GC of
// idle entries runs after a threshold of lookups so memory stays bounded
// without a background goroutine.
func (g *Guard) userState(key domain.ChatUserKey, now time.Time) *userState {
	g.mu.RLock()
	us, ok := g.users[key]
	g.mu.RUnlock()
	if ok {
		return us
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if us, ok = g.users[key]; ok {
		return us
	}
	g.maybeCleanupLocked(now)
	us = &userState{
		limiter:  rate.NewLimiter(bucketRefill, bucketCapacity),
		window:   list.New(),
		lastSeen: now,
	}
	g.users[key] = us
	return us
}

func (g *Guard) chatState(chatID int64, now time.Time) *chatState {
	g.mu.RLock()
	cs, ok := g.chats[chatID]
	g.mu.RUnlock()
	if ok {
		return cs
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if cs, ok = g.chats[chatID]; ok {
		return cs
	}
	cs = &chatState{window: list.New(), lastSeen: now}
	g.chats[chatID] = cs
	return cs
}

// maybeCleanupLocked evicts entries idle for longer than the TTL. Called with
// g.mu held for writing, before inserting a new entry, so an old entry can be
// evicted even when it is about to be recreated.
func (g *Guard) maybeCleanupLocked(now time.Time) {
	g.checks++
	if g.checks < cleanupEveryChecks {
		return
	}
	g.checks = 0
	for k, us := range g.users {
		if now.Sub(us.lastSeen) >= idleEntryTTL {
			delete(g.users, k)
		}
	}
	for k, cs := range g.chats {
		if now.Sub(cs.lastSeen) >= idleEntryTTL {
			delete(g.chats, k)
		}
	}
}
