// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ChatMessage model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-interview-backend/internal/domain"
)

// CreateMessage appends a message to the session, assigning the next seq.
// Callers serialize appends per session; a racing append surfaces as
// ErrDuplicate through the (session_id, seq) unique index.
func CreateMessage(ctx context.Context, db *gorm.DB, sessionID string, sender domain.Sender, content string) (*domain.ChatMessage, error) {
	var next int
	err := db.WithContext(ctx).
		Raw("SELECT COALESCE(MAX(seq), 0) + 1 FROM chat_messages WHERE session_id = ?", sessionID).
		Scan(&next).Error
	if err != nil {
		return nil, err
	}

	m := &domain.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Seq:       next,
		Sender:    sender,
		Content:   content,
		SentAt:    time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return m, nil
}

// ListMessages returns the whole conversation ordered by seq.
func ListMessages(ctx context.Context, db *gorm.DB, sessionID string) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("seq ASC").
		Find(&out).Error
	return out, err
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(ctx context.Context, db *gorm.DB, sessionID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM chat_messages WHERE session_id = ?", sessionID).
		Scan(&total).Error
	return total, err
}

// ListMessagesPage returns a paginated slice ordered by seq.
func ListMessagesPage(ctx context.Context, db *gorm.DB, sessionID string, offset, limit int) ([]domain.ChatMessage, error) {
	var out []domain.ChatMessage
	err := db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("seq ASC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// GetMessage fetches a message by ID.
func GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.ChatMessage, error) {
	var m domain.ChatMessage
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}
