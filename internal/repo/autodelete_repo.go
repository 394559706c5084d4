// Package repo implements the data persistence layer for moderation state,
// backed by GORM. This file queues deletion-notice messages for removal
// after their grace period. The queue is persisted so a restart does not
// leak notices into the chat.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/modguard/go-chat-moderator/internal/domain"
)

// ScheduleDeletion enqueues a message for removal at deleteAt.
func ScheduleDeletion(ctx context.Context, db *gorm.DB, chatID, messageID int64, deleteAt time.Time) error {
	rec := &domain.ScheduledDeletion{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		MessageID: messageID,
		DeleteAt:  deleteAt,
		CreatedAt: time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(rec).Error
}

// DueDeletions returns every queued deletion whose time has come.
func DueDeletions(ctx context.Context, db *gorm.DB, now time.Time) ([]domain.ScheduledDeletion, error) {
	var out []domain.ScheduledDeletion
	err := db.WithContext(ctx).
		Where("delete_at <= ?", now).
		Order("delete_at asc").
		Find(&out).Error
	return out, err
}

// RemoveScheduled drops processed queue entries by id.
func RemoveScheduled(ctx context.Context, db *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Delete(&domain.ScheduledDeletion{}, "id IN ?", ids).Error
}
