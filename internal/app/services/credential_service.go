package services

import (
	"context"
	"encoding/base64"
	"errors"

	"github.com/rs/zerolog"

	"github.com/AntonVanke/xuexinwang/internal/pkg/apperrors"
	"github.com/AntonVanke/xuexinwang/internal/pkg/credential"
	"github.com/AntonVanke/xuexinwang/internal/pkg/metrics"
)

// CredentialService renders the collection-code image for a record
type CredentialService struct {
	students  *StudentService
	generator *credential.Generator
	logger    zerolog.Logger
}

// NewCredentialService creates a new CredentialService
func NewCredentialService(students *StudentService, generator *credential.Generator, logger zerolog.Logger) *CredentialService {
	return &CredentialService{
		students:  students,
		generator: generator,
		logger:    logger,
	}
}

// Generate returns the image as a data:image/png;base64 URL
func (s *CredentialService) Generate(ctx context.Context, queryID string) (string, error) {
	student, err := s.students.GetByQueryID(ctx, queryID)
	if err != nil {
		return "", err
	}

	png, err := s.generator.Generate(credential.Card{
		QueryID:        student.QueryID,
		Name:           student.Name,
		IdentityNumber: student.IdentityNumber,
		SchoolName:     student.SchoolName,
		College:        student.College,
		DegreeLevel:    student.DegreeLevel,
		StudentNumber:  student.StudentNumber,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("queryID", queryID).Msg("Failed to generate credential image")
		if errors.Is(err, credential.ErrTemplateUnavailable) {
			return "", apperrors.NewStorageError("credential template unavailable", err)
		}
		return "", err
	}

	metrics.CredentialImages.Inc()
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
