package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-interview-backend/internal/domain"
)

func TestGetIdempotency_Lookups(t *testing.T) {
	db := newRepoDB(t, &domain.Idempotency{})
	ctx := context.Background()
	now := time.Now().UTC()

	seed := []domain.Idempotency{
		{ID: "live", UserID: "cand-1", SessionID: "sess-1", Key: "turn-4", MessageID: "ai-reply-4",
			CreatedAt: now.Add(-time.Minute), ExpiresAt: now.Add(time.Hour)},
		{ID: "stale", UserID: "cand-1", SessionID: "sess-1", Key: "turn-1", MessageID: "ai-reply-1",
			CreatedAt: now.Add(-48 * time.Hour), ExpiresAt: now.Add(-24 * time.Hour)},
	}
	if err := db.Create(&seed).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	cases := []struct {
		name                string
		user, session, key string
		wantMessage         string
	}{
		{"stored reply", "cand-1", "sess-1", "turn-4", "ai-reply-4"},
		{"expired", "cand-1", "sess-1", "turn-1", ""},
		{"unknown key", "cand-1", "sess-1", "turn-9", ""},
		{"other candidate", "cand-2", "sess-1", "turn-4", ""},
		{"other session", "cand-1", "sess-2", "turn-4", ""},
		{"blank session", "cand-1", "  ", "turn-4", ""},
	}
	for _, tc := range cases {
		rec, err := GetIdempotency(ctx, db, tc.user, tc.session, tc.key, now)
		if tc.wantMessage == "" {
			if rec != nil || !errors.Is(err, ErrNotFound) {
				t.Fatalf("%s: got (%+v, %v), want ErrNotFound", tc.name, rec, err)
			}
			continue
		}
		if err != nil || rec.MessageID != tc.wantMessage {
			t.Fatalf("%s: got (%+v, %v)", tc.name, rec, err)
		}
	}
}

func TestCreateIdempotency(t *testing.T) {
	db := newRepoDB(t, &domain.Idempotency{})
	ctx := context.Background()
	before := time.Now().UTC()

	rec, err := CreateIdempotency(ctx, db, "cand-7", "sess-7", "turn-2", "ai-reply-2", 24*time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.ID == "" || rec.MessageID != "ai-reply-2" {
		t.Fatalf("record = %+v", rec)
	}
	if ttl := rec.ExpiresAt.Sub(before); ttl < 24*time.Hour || ttl > 25*time.Hour {
		t.Fatalf("expires in %v", ttl)
	}

	got, err := GetIdempotency(ctx, db, "cand-7", "sess-7", "turn-2", time.Now().UTC())
	if err != nil || got.ID != rec.ID {
		t.Fatalf("readback: %+v %v", got, err)
	}

	if _, err := CreateIdempotency(ctx, db, "cand-7", "sess-7", "turn-2", "ai-reply-3", time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("reused key: %v", err)
	}
	// the same key is free for a different session
	if _, err := CreateIdempotency(ctx, db, "cand-7", "sess-8", "turn-2", "ai-reply-9", time.Hour); err != nil {
		t.Fatalf("other session: %v", err)
	}
}

func TestCreateIdempotency_StoreError(t *testing.T) {
	db := newRepoDB(t)
	_, err := CreateIdempotency(context.Background(), db, "cand-1", "sess-1", "k", "m", time.Minute)
	if err == nil || errors.Is(err, ErrDuplicate) {
		t.Fatalf("missing table: %v", err)
	}
}

func TestPurgeExpiredIdempotency(t *testing.T) {
	db := newRepoDB(t, &domain.Idempotency{})
	ctx := context.Background()
	now := time.Now().UTC()

	for i, exp := range []time.Duration{-time.Hour, -time.Second, 0, time.Hour} {
		rec := domain.Idempotency{
			ID: string(rune('a' + i)), UserID: "cand-1", SessionID: "sess-1",
			Key: string(rune('k' + i)), MessageID: "m", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(exp),
		}
		if err := db.Create(&rec).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	n, err := PurgeExpiredIdempotency(ctx, db, now)
	if err != nil || n != 3 {
		t.Fatalf("purged %d, err=%v; want 3", n, err)
	}
	var left []domain.Idempotency
	if err := db.Find(&left).Error; err != nil || len(left) != 1 || left[0].ID != "d" {
		t.Fatalf("remaining = %+v err=%v", left, err)
	}
}
