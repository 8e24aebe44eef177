package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/AntonVanke/xuexinwang/internal/app/models"
	"github.com/AntonVanke/xuexinwang/internal/pkg/apperrors"
	"github.com/AntonVanke/xuexinwang/internal/pkg/auth"
)

// IssuedSession is a freshly signed admin session
type IssuedSession struct {
	Token   string
	Session models.AdminSession
}

// AdminService handles setup, login and session verification
type AdminService struct {
	admins     AdminStore
	jwtService *auth.JWTService
	logger     zerolog.Logger
}

// NewAdminService creates a new AdminService
func NewAdminService(admins AdminStore, jwtService *auth.JWTService, logger zerolog.Logger) *AdminService {
	return &AdminService{
		admins:     admins,
		jwtService: jwtService,
		logger:     logger,
	}
}

// SetupRequired reports whether no admin account exists yet
func (s *AdminService) SetupRequired(ctx context.Context) (bool, error) {
	exists, err := s.admins.Exists(ctx)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// Setup creates the single admin account and signs it in.
// Fails with ErrSetupClosed once an account exists.
func (s *AdminService) Setup(ctx context.Context, username, password string) (*IssuedSession, error) {
	required, err := s.SetupRequired(ctx)
	if err != nil {
		return nil, err
	}
	if !required {
		return nil, apperrors.ErrAdminExists
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to hash password", err)
	}

	admin := &models.Admin{Username: username, PasswordHash: hash}
	if err := s.admins.Create(ctx, admin); err != nil {
		return nil, err
	}

	s.logger.Info().Str("username", username).Msg("Admin setup completed")
	return s.issue(username)
}

// Login verifies the credentials and refreshes last_login
func (s *AdminService) Login(ctx context.Context, username, password string) (*IssuedSession, error) {
	admin, err := s.admins.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			s.logger.Warn().Str("username", username).Msg("Login attempt for unknown admin")
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.CheckPassword(admin.PasswordHash, password) {
		s.logger.Warn().Str("username", username).Msg("Login attempt with wrong password")
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := s.admins.UpdateLastLogin(ctx, admin.ID, time.Now()); err != nil {
		return nil, err
	}

	s.logger.Info().Str("username", username).Msg("Admin logged in")
	return s.issue(admin.Username)
}

func (s *AdminService) issue(username string) (*IssuedSession, error) {
	token, expiresAt, err := s.jwtService.GenerateToken(username)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to sign session", err)
	}
	return &IssuedSession{
		Token:   token,
		Session: models.AdminSession{Username: username, ExpiresAt: expiresAt},
	}, nil
}

// Verify checks a session token without touching the store
func (s *AdminService) Verify(token string) (*models.AdminSession, error) {
	claims, err := s.jwtService.ValidateToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrTokenInvalid
	}
	return &models.AdminSession{
		Username:  claims.Username(),
		ExpiresAt: claims.ExpiresAt.Time.UTC(),
	}, nil
}
