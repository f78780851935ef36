package repository

import (
	"context"
	"testing"

	"github.com/designmaster/backend/internal/model"
)

func TestUserRepositoryLookup(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &model.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x", AuthToken: "tok-1"}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create user error: %v", err)
	}

	got, err := repo.GetByAuthToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("GetByAuthToken error: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("unexpected user id: %d", got.ID)
	}

	if _, err := repo.GetByAuthToken(ctx, ""); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for empty token, got %v", err)
	}

	if err := repo.UpdateAuthToken(ctx, user.ID, "tok-2"); err != nil {
		t.Fatalf("UpdateAuthToken error: %v", err)
	}
	if _, err := repo.GetByAuthToken(ctx, "tok-1"); err != ErrNotFound {
		t.Fatalf("old token should no longer resolve, got %v", err)
	}
	if _, err := repo.GetByUsername(ctx, "alice"); err != nil {
		t.Fatalf("GetByUsername error: %v", err)
	}
	if _, err := repo.GetByEmail(ctx, "bob@example.com"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := repo.UpdateAuthToken(ctx, 999, "tok-3"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}
