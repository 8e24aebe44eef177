package services

import (
	"context"
	"time"

	"github.com/AntonVanke/xuexinwang/internal/app/models"
)

// Services defined in this package:
// - SubmissionService: resolves public submissions into create, update or conflict
// - UploadService: stores admission photos under sniffed, generated names and repairs legacy ones
// - StudentService: lookup and admin record management
// - CredentialService: renders the collection-code image for a record
// - AdminService: one-time setup, login and session verification

// StudentStore is the persistence the services need for student records.
// *repositories.StudentRepository implements it.
type StudentStore interface {
	Insert(ctx context.Context, student *models.Student) error
	UpdateByIdentity(ctx context.Context, identityNumber string, fields models.StudentFields, photo *string) error
	UpdateByQueryID(ctx context.Context, queryID string, fields models.StudentFields, photo *string) error
	GetByQueryID(ctx context.Context, queryID string) (*models.Student, error)
	GetByIdentity(ctx context.Context, identityNumber string) (*models.Student, error)
	ExistsByQueryID(ctx context.Context, queryID string) (bool, error)
	SoftDelete(ctx context.Context, queryID string) error
	ListPage(ctx context.Context, page, pageSize int) ([]*models.Student, int64, error)
	Search(ctx context.Context, term string, limit int) ([]*models.Student, error)
	ListAll(ctx context.Context) ([]*models.Student, error)
	CountActive(ctx context.Context) (int64, error)
	CountCreatedSince(ctx context.Context, since time.Time) (int64, error)
	CountDeleted(ctx context.Context) (int64, error)
}

// PhotoPathStore rewrites stored photo references after a file is renamed
type PhotoPathStore interface {
	ReplacePhotoPath(ctx context.Context, oldPath, newPath string) (int64, error)
}

// AdminStore is the persistence for the admin account.
// *repositories.AdminRepository implements it.
type AdminStore interface {
	Exists(ctx context.Context) (bool, error)
	Create(ctx context.Context, admin *models.Admin) error
	GetByUsername(ctx context.Context, username string) (*models.Admin, error)
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}
