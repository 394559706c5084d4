package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/modguard/go-chat-moderator/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestGetChatConfig_NotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := GetChatConfig(context.Background(), db, 1)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetOrCreateChatConfig_InsertsDefaults(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	cfg, err := GetOrCreateChatConfig(ctx, db, -100)
	if err != nil {
		t.Fatalf("GetOrCreateChatConfig: %v", err)
	}
	if !cfg.Enabled || !cfg.DebugMode {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.FirstMessages != 3 {
		t.Fatalf("first_messages = %d, want 3", cfg.FirstMessages)
	}
	if got := cfg.Actions.ActionFor(domain.JudgementHarmful); got != domain.ActionBan {
		t.Fatalf("default actions not persisted, Harmful -> %s", got)
	}

	// Second call must return the stored row, not insert again.
	again, err := GetOrCreateChatConfig(ctx, db, -100)
	if err != nil {
		t.Fatalf("second GetOrCreateChatConfig: %v", err)
	}
	if !again.CreatedAt.Equal(cfg.CreatedAt) {
		t.Fatal("config row was recreated")
	}
}

func TestSaveChatConfig_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	cfg, err := GetOrCreateChatConfig(ctx, db, -100)
	if err != nil {
		t.Fatalf("GetOrCreateChatConfig: %v", err)
	}
	cfg.DebugMode = false
	cfg.WordBlocklist = []string{"airdrop", "casino"}
	cfg.Actions[domain.JudgementInform] = domain.ActionWarnMods
	modChat := int64(-900)
	cfg.ModeratorChat = &modChat

	if err := SaveChatConfig(ctx, db, cfg); err != nil {
		t.Fatalf("SaveChatConfig: %v", err)
	}

	got, err := GetChatConfig(ctx, db, -100)
	if err != nil {
		t.Fatalf("GetChatConfig: %v", err)
	}
	if got.DebugMode {
		t.Fatal("debug flag not persisted")
	}
	if len(got.WordBlocklist) != 2 || got.WordBlocklist[0] != "airdrop" {
		t.Fatalf("blocklist = %v", got.WordBlocklist)
	}
	if got.Actions.ActionFor(domain.JudgementInform) != domain.ActionWarnMods {
		t.Fatal("action map not persisted")
	}
	if got.ModeratorChat == nil || *got.ModeratorChat != -900 {
		t.Fatalf("moderator chat = %v", got.ModeratorChat)
	}
}

func TestIncrementMessageCount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if n, err := GetMessageCount(ctx, db, 1, 100); err != nil || n != 0 {
		t.Fatalf("fresh count = %d, err = %v", n, err)
	}

	for want := 1; want <= 3; want++ {
		n, err := IncrementMessageCount(ctx, db, 1, 100)
		if err != nil {
			t.Fatalf("increment %d: %v", want, err)
		}
		if n != want {
			t.Fatalf("count = %d, want %d", n, want)
		}
	}

	// Other users and chats are independent.
	if n, _ := IncrementMessageCount(ctx, db, 1, 200); n != 1 {
		t.Fatalf("user 200 count = %d, want 1", n)
	}
	if n, _ := IncrementMessageCount(ctx, db, 2, 100); n != 1 {
		t.Fatalf("chat 2 count = %d, want 1", n)
	}
}

func TestAudit_CreateAndPage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := &domain.AuditRecord{
			ChatID:      -100,
			UserID:      100,
			MessageID:   int64(i),
			Judgement:   domain.JudgementSuspicious,
			Action:      domain.ActionTempMute,
			Trigger:     domain.TriggerClassifier,
			MessageText: fmt.Sprintf("msg %d", i),
			Succeeded:   true,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := CreateAudit(ctx, db, rec); err != nil {
			t.Fatalf("CreateAudit %d: %v", i, err)
		}
		if rec.ID == "" {
			t.Fatal("audit id not assigned")
		}
	}

	total, err := CountAudit(ctx, db, -100)
	if err != nil || total != 5 {
		t.Fatalf("count = %d, err = %v", total, err)
	}

	page, err := ListAuditPage(ctx, db, -100, 0, 2)
	if err != nil {
		t.Fatalf("ListAuditPage: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page size = %d, want 2", len(page))
	}
	if page[0].MessageID != 4 {
		t.Fatalf("page not newest-first: first message id = %d", page[0].MessageID)
	}

	rest, err := ListAuditPage(ctx, db, -100, 4, 10)
	if err != nil || len(rest) != 1 {
		t.Fatalf("last page = %d rows, err = %v", len(rest), err)
	}

	if n, _ := CountAudit(ctx, db, -999); n != 0 {
		t.Fatalf("foreign chat count = %d", n)
	}
}

func TestScheduledDeletions_DueAndRemove(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if err := ScheduleDeletion(ctx, db, -100, 1, now.Add(-time.Second)); err != nil {
		t.Fatalf("ScheduleDeletion: %v", err)
	}
	if err := ScheduleDeletion(ctx, db, -100, 2, now.Add(time.Minute)); err != nil {
		t.Fatalf("ScheduleDeletion: %v", err)
	}

	due, err := DueDeletions(ctx, db, now)
	if err != nil {
		t.Fatalf("DueDeletions: %v", err)
	}
	if len(due) != 1 || due[0].MessageID != 1 {
		t.Fatalf("due = %+v, want only message 1", due)
	}

	if err := RemoveScheduled(ctx, db, []string{due[0].ID}); err != nil {
		t.Fatalf("RemoveScheduled: %v", err)
	}
	due, _ = DueDeletions(ctx, db, now)
	if len(due) != 0 {
		t.Fatalf("processed entry still due: %+v", due)
	}

	// The future entry becomes due once its time passes.
	due, _ = DueDeletions(ctx, db, now.Add(2*time.Minute))
	if len(due) != 1 || due[0].MessageID != 2 {
		t.Fatalf("future entry not due: %+v", due)
	}

	if err := RemoveScheduled(ctx, db, nil); err != nil {
		t.Fatalf("RemoveScheduled(nil) must be a no-op, got %v", err)
	}
}

func TestMarkUpdateProcessed_Duplicate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := MarkUpdateProcessed(ctx, db, 777, time.Hour); err != nil {
		t.Fatalf("first mark: %v", err)
	}
	if err := MarkUpdateProcessed(ctx, db, 777, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("second mark err = %v, want ErrDuplicate", err)
	}
	if err := MarkUpdateProcessed(ctx, db, 778, time.Hour); err != nil {
		t.Fatalf("distinct update id rejected: %v", err)
	}
}

func TestPurgeExpiredUpdates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := MarkUpdateProcessed(ctx, db, 1, -time.Minute); err != nil {
		t.Fatalf("mark expired: %v", err)
	}
	if err := MarkUpdateProcessed(ctx, db, 2, time.Hour); err != nil {
		t.Fatalf("mark live: %v", err)
	}

	n, err := PurgeExpiredUpdates(ctx, db, time.Now().UTC())
	if err != nil {
		t.Fatalf("PurgeExpiredUpdates: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged %d rows, want 1", n)
	}

	// The live row must still dedupe.
	if err := MarkUpdateProcessed(ctx, db, 2, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("live row lost: %v", err)
	}
}
