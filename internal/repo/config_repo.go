// Package repo implements the data persistence layer for moderation state,
// backed by GORM. This file provides repository functions for the per-chat
// moderation configuration.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a configuration is not found, functions return
//     gorm.ErrRecordNotFound (also exported here as ErrNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/modguard/go-chat-moderator/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetChatConfig fetches the moderation configuration of a chat, or
// ErrNotFound when the chat has never been configured.
func GetChatConfig(ctx context.Context, db *gorm.DB, chatID int64) (*domain.ChatModerationConfig, error) {
	var cfg domain.ChatModerationConfig
	err := db.WithContext(ctx).First(&cfg, "chat_id = ?", chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetOrCreateChatConfig fetches a chat's configuration, inserting the
// defaults first if the chat is new.
func GetOrCreateChatConfig(ctx context.Context, db *gorm.DB, chatID int64) (*domain.ChatModerationConfig, error) {
	cfg, err := GetChatConfig(ctx, db, chatID)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	fresh := domain.DefaultChatConfig(chatID)
	fresh.CreatedAt = time.Now().UTC()
	fresh.UpdatedAt = fresh.CreatedAt
	// Another worker may have inserted between the read and this write.
	if err := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&fresh).Error; err != nil {
		return nil, err
	}
	return GetChatConfig(ctx, db, chatID)
}

// SaveChatConfig upserts a chat's moderation configuration.
func SaveChatConfig(ctx context.Context, db *gorm.DB, cfg *domain.ChatModerationConfig) error {
	cfg.UpdatedAt = time.Now().UTC()
	return db.WithContext(ctx).Save(cfg).Error
}
