// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides helpers for the PollCursor model used to
// resume Telegram long polling across restarts.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-request-bot/internal/domain"
)

// GetPollCursor returns the stored update offset for bot, or 0 when no cursor
// has been saved yet.
func GetPollCursor(ctx context.Context, db *gorm.DB, bot string) (int64, error) {
	var c domain.PollCursor
	err := db.WithContext(ctx).Where("bot = ?", bot).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return c.Offset, nil
}

// SavePollCursor upserts the update offset for bot.
func SavePollCursor(ctx context.Context, db *gorm.DB, bot string, offset int64) error {
	c := domain.PollCursor{Bot: bot, Offset: offset, UpdatedAt: time.Now().UTC()}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "bot"}},
			DoUpdates: clause.AssignmentColumns([]string{"offset", "updated_at"}),
		}).
		Create(&c).Error
}
