package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-interview-backend/internal/domain"
	"github.com/tbourn/go-interview-backend/internal/repo"
)

// Role is the kind of principal calling into the services.
type Role string

const (
	RoleCandidate Role = "candidate"
	RoleHR        Role = "hr"
)

// Caller identifies the authenticated principal of a request.
type Caller struct {
	ID   string
	Role Role
}

// canRead reports whether c may view data belonging to app. HR staff see
// every application; candidates only their own.
func (c Caller) canRead(app *domain.Application) bool {
	if c.Role == RoleHR {
		return true
	}
	return c.ID != "" && c.ID == app.CandidateID
}

// loadSession resolves a session and its application, mapping missing rows
// to service errors.
func loadSession(ctx context.Context, db *gorm.DB, sessionID string) (*domain.ChatSession, *domain.Application, error) {
	sess, err := repo.GetSession(ctx, db, sessionID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	app, err := repo.GetApplication(ctx, db, sess.ApplicationID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return sess, app, nil
}
