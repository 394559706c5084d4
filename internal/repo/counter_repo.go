// Package repo implements the data persistence layer for moderation state,
// backed by GORM. This file tracks per-user message counts consumed by the
// first-N-messages scrutiny gate.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/modguard/go-chat-moderator/internal/domain"
)

// GetMessageCount returns how many messages the user has sent in the chat,
// zero when the user has never been seen.
func GetMessageCount(ctx context.Context, db *gorm.DB, chatID, userID int64) (int, error) {
	var rec domain.UserMessageCount
	err := db.WithContext(ctx).
		First(&rec, "chat_id = ? AND user_id = ?", chatID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return rec.Count, nil
}

// IncrementMessageCount bumps the user's counter by one and returns the new
// value. The row is created on first sight.
func IncrementMessageCount(ctx context.Context, db *gorm.DB, chatID, userID int64) (int, error) {
	now := time.Now().UTC()
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "chat_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"count":      gorm.Expr("count + 1"),
			"updated_at": now,
		}),
	}).Create(&domain.UserMessageCount{
		ChatID:    chatID,
		UserID:    userID,
		Count:     1,
		UpdatedAt: now,
	}).Error
	if err != nil {
		return 0, err
	}
	return GetMessageCount(ctx, db, chatID, userID)
}
