package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AntonVanke/xuexinwang/internal/app/models"
	"github.com/AntonVanke/xuexinwang/internal/pkg/apperrors"
	"github.com/AntonVanke/xuexinwang/internal/testutil"
)

func TestAdminSingleton(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewDatabase(t)
	repo := NewAdminRepository(database.DB, database.Builder())

	exists, err := repo.Exists(ctx)
	if err != nil || exists {
		t.Fatalf("Exists = %v, %v; want false", exists, err)
	}

	if err := repo.Create(ctx, &models.Admin{Username: "admin", PasswordHash: "hash"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	err = repo.Create(ctx, &models.Admin{Username: "second", PasswordHash: "hash"})
	if !errors.Is(err, apperrors.ErrSetupClosed) {
		t.Fatalf("second Create should fail with ErrSetupClosed, got %v", err)
	}

	exists, _ = repo.Exists(ctx)
	if !exists {
		t.Error("Exists should be true after setup")
	}
}

func TestAdminLastLogin(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewDatabase(t)
	repo := NewAdminRepository(database.DB, database.Builder())

	admin := &models.Admin{Username: "admin", PasswordHash: "hash"}
	if err := repo.Create(ctx, admin); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if got.LastLogin != nil {
		t.Errorf("LastLogin should start empty, got %v", got.LastLogin)
	}

	at := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
	if err := repo.UpdateLastLogin(ctx, got.ID, at); err != nil {
		t.Fatalf("UpdateLastLogin: %v", err)
	}
	got, _ = repo.GetByUsername(ctx, "admin")
	if got.LastLogin == nil || !got.LastLogin.Equal(at) {
		t.Errorf("LastLogin = %v, want %v", got.LastLogin, at)
	}

	if _, err := repo.GetByUsername(ctx, "nobody"); !errors.Is(err, apperrors.ErrResourceNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
