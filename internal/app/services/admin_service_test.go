package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/AntonVanke/xuexinwang/internal/app/repositories"
	"github.com/AntonVanke/xuexinwang/internal/pkg/apperrors"
	"github.com/AntonVanke/xuexinwang/internal/pkg/auth"
	"github.com/AntonVanke/xuexinwang/internal/testutil"
)

func newAdminService(t *testing.T, exp time.Duration) (*AdminService, *repositories.AdminRepository) {
	t.Helper()
	auth.BcryptCost = 4
	database := testutil.NewDatabase(t)
	repo := repositories.NewAdminRepository(database.DB, database.Builder())
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:      "test-secret",
		AccessTokenExp: exp,
		TokenIssuer:    "xuexinwang-test",
	})
	return NewAdminService(repo, jwtService, zerolog.Nop()), repo
}

func TestAdminSetupOnce(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAdminService(t, time.Hour)

	required, err := svc.SetupRequired(ctx)
	if err != nil || !required {
		t.Fatalf("SetupRequired = %v, %v", required, err)
	}

	issued, err := svc.Setup(ctx, "admin", "secret123")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if issued.Token == "" || issued.Session.Username != "admin" {
		t.Errorf("issued = %+v", issued)
	}

	if _, err := svc.Setup(ctx, "other", "secret123"); !errors.Is(err, apperrors.ErrSetupClosed) {
		t.Errorf("second setup = %v, want ErrSetupClosed", err)
	}
	if required, _ := svc.SetupRequired(ctx); required {
		t.Error("setup still required after account creation")
	}
}

func TestAdminLogin(t *testing.T) {
	ctx := context.Background()
	svc, repo := newAdminService(t, time.Hour)
	if _, err := svc.Setup(ctx, "admin", "secret123"); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	if _, err := svc.Login(ctx, "admin", "wrong-pass"); !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Errorf("wrong password = %v", err)
	}
	if _, err := svc.Login(ctx, "nobody", "secret123"); !errors.Is(err, apperrors.ErrInvalidCredentials) {
		t.Errorf("unknown user = %v", err)
	}

	issued, err := svc.Login(ctx, "admin", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	session, err := svc.Verify(issued.Token)
	if err != nil || session.Username != "admin" {
		t.Errorf("Verify = %+v, %v", session, err)
	}

	admin, err := repo.GetByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if admin.LastLogin == nil {
		t.Error("last_login not recorded")
	}
}

func TestAdminVerifyRejects(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAdminService(t, -time.Minute)
	issued, err := svc.Setup(ctx, "admin", "secret123")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}

	if _, err := svc.Verify(issued.Token); !errors.Is(err, apperrors.ErrTokenExpired) {
		t.Errorf("expired token = %v", err)
	}
	if _, err := svc.Verify("not-a-token"); !errors.Is(err, apperrors.ErrTokenInvalid) {
		t.Errorf("garbage token = %v", err)
	}
}
