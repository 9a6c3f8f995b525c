// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-interview-backend/internal/domain"
)

// MessagesStats returns aggregate metadata for messages within a session:
// the total number of rows and the latest SentAt among them.
//
// Messages are immutable, so (count, latest sent_at) changes exactly when the
// conversation does. When the session has no messages, the returned count is
// 0 and lastSentAt is nil.
func MessagesStats(ctx context.Context, db *gorm.DB, sessionID string) (count int64, lastSentAt *time.Time, err error) {
	q := func() *gorm.DB {
		return db.WithContext(ctx).Model(&domain.ChatMessage{}).Where("session_id = ?", sessionID)
	}

	if err = q().Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest sent_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		SentAt time.Time
	}
	if err = q().Select("sent_at").Order("seq DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.SentAt, nil
}
