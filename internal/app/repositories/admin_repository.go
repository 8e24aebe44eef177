package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/AntonVanke/xuexinwang/internal/app/models"
	"github.com/AntonVanke/xuexinwang/internal/pkg/apperrors"
	"github.com/AntonVanke/xuexinwang/internal/pkg/dberrors"
	"github.com/AntonVanke/xuexinwang/internal/pkg/helpers"
	"github.com/AntonVanke/xuexinwang/internal/pkg/logger"
)

// AdminRepository handles the singleton admin account
type AdminRepository struct {
	db *sql.DB
	sb squirrel.StatementBuilderType
}

// NewAdminRepository creates a new admin repository
func NewAdminRepository(conn *sql.DB, sb squirrel.StatementBuilderType) *AdminRepository {
	return &AdminRepository{
		db: conn,
		sb: sb,
	}
}

// Exists reports whether the admin account has been created
func (r *AdminRepository) Exists(ctx context.Context) (bool, error) {
	query, args, err := r.sb.Select("COUNT(*)").From("admins").ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build admin count query: %w", err)
	}

	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		logger.Error().Err(err).Msg("Error counting admin accounts")
		return false, apperrors.NewStorageError("failed to check admin account", err)
	}
	return n > 0, nil
}

// Create inserts the admin account. The singleton constraint turns a second
// insert into ErrAdminExists even when two setups race.
func (r *AdminRepository) Create(ctx context.Context, admin *models.Admin) error {
	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = time.Now().UTC()
	}

	query, args, err := r.sb.Insert("admins").
		Columns("singleton", "username", "password_hash", "created_at").
		Values(1, admin.Username, admin.PasswordHash, admin.CreatedAt.UTC()).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create admin SQL")
		return fmt.Errorf("failed to build create admin query: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&admin.ID); err != nil {
		if dberrors.IsUniqueViolation(err) {
			logger.Warn().Msg("Admin account already exists")
			return apperrors.ErrAdminExists
		}
		logger.Error().Err(err).Msg("Error executing create admin query")
		return apperrors.NewStorageError("failed to create admin account", err)
	}

	logger.Info().Str("username", admin.Username).Msg("Admin account created")
	return nil
}

// GetByUsername returns the admin account with the given username
func (r *AdminRepository) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	query, args, err := r.sb.Select("id", "username", "password_hash", "created_at", "last_login").
		From("admins").
		Where(squirrel.Eq{"username": username}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get admin query: %w", err)
	}

	var (
		admin     models.Admin
		lastLogin sql.NullTime
	)
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&admin.ID, &admin.Username, &admin.PasswordHash, &admin.CreatedAt, &lastLogin,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrAdminNotFound
		}
		logger.Error().Err(err).Msg("Error scanning admin row")
		return nil, apperrors.NewStorageError("failed to read admin account", err)
	}
	admin.CreatedAt = admin.CreatedAt.UTC()
	admin.LastLogin = helpers.NullTimePtr(lastLogin)
	return &admin, nil
}

// UpdateLastLogin stamps the admin's last successful login
func (r *AdminRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	query, args, err := r.sb.Update("admins").
		Set("last_login", at.UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update last login query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		logger.Error().Err(err).Int64("adminID", id).Msg("Error updating last login")
		return apperrors.NewStorageError("failed to update last login", err)
	}
	return nil
}
