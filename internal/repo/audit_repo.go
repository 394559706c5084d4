// Package repo implements the data persistence layer for moderation state,
// backed by GORM. This file provides repository functions for the audit
// trail of pipeline outcomes.
//
// Functions:
//
//   - CreateAudit(ctx, db, rec) -> error
//     Inserts an audit row with UUID primary key and UTC timestamp.
//
//   - CountAudit(ctx, db, chatID) -> (int64, error)
//     Returns the total number of audit rows for a chat.
//
//   - ListAuditPage(ctx, db, chatID, offset, limit) -> []domain.AuditRecord, error
//     Returns a page of audit rows, newest first.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/modguard/go-chat-moderator/internal/domain"
)

// CreateAudit inserts one audit row. The ID and CreatedAt are assigned here
// when the caller left them empty.
func CreateAudit(ctx context.Context, db *gorm.DB, rec *domain.AuditRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(rec).Error
}

// CountAudit returns the total number of audit rows for chatID.
func CountAudit(ctx context.Context, db *gorm.DB, chatID int64) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.AuditRecord{}).
		Where("chat_id = ?", chatID).
		Count(&total).Error
	return total, err
}

// ListAuditPage returns a page of audit rows for chatID, newest first.
func ListAuditPage(ctx context.Context, db *gorm.DB, chatID int64, offset, limit int) ([]domain.AuditRecord, error) {
	var out []domain.AuditRecord
	err := db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
