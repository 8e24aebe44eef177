package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/AntonVanke/xuexinwang/internal/app/models"
	"github.com/AntonVanke/xuexinwang/internal/pkg/apperrors"
	"github.com/AntonVanke/xuexinwang/internal/pkg/idcard"
	"github.com/AntonVanke/xuexinwang/internal/pkg/masking"
	"github.com/AntonVanke/xuexinwang/internal/pkg/metrics"
)

// maxQueryIDAttempts bounds query id generation and insert retries
const maxQueryIDAttempts = 5

// SubmitInput is a parsed public submission
type SubmitInput struct {
	IdentityNumber string
	ForceUpdate    bool
	Fields         models.StudentFields
	Photo          []byte // nil or empty when no photo was uploaded
	PhotoName      string
}

// SubmissionService decides between create, update and conflict for a submission
type SubmissionService struct {
	students StudentStore
	uploads  *UploadService
	newID    func() (string, error)
	logger   zerolog.Logger
}

// NewSubmissionService creates a new SubmissionService
func NewSubmissionService(students StudentStore, uploads *UploadService, logger zerolog.Logger) *SubmissionService {
	return &SubmissionService{
		students: students,
		uploads:  uploads,
		newID:    NewQueryID,
		logger:   logger,
	}
}

// NewQueryID returns 16 random lowercase hex characters
func NewQueryID() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Resolve validates the input and then creates, updates or reports a conflict.
// Validation failures return before anything is written.
func (s *SubmissionService) Resolve(ctx context.Context, in SubmitInput) (*models.Outcome, error) {
	identity := idcard.Normalize(in.IdentityNumber)
	if !idcard.Validate(identity) {
		metrics.Submissions.WithLabelValues(string(models.OutcomeRejected)).Inc()
		s.logger.Info().Msg("Submission rejected: invalid identity number")
		return &models.Outcome{Kind: models.OutcomeRejected, Reason: models.ReasonInvalidIdentity}, nil
	}

	if missing := in.Fields.MissingRequired(); missing != "" {
		return nil, apperrors.NewInvalidInputError(missing, missing+" is required")
	}

	if err := s.uploads.CheckSize(int64(len(in.Photo))); err != nil {
		return nil, err
	}

	existing, err := s.students.GetByIdentity(ctx, identity)
	if err != nil && !errors.Is(err, apperrors.ErrResourceNotFound) {
		return nil, err
	}

	var outcome *models.Outcome
	switch {
	case existing != nil && !in.ForceUpdate:
		outcome = conflictOutcome(existing)
	case existing != nil:
		outcome, err = s.update(ctx, existing, in)
	default:
		outcome, err = s.create(ctx, identity, in)
	}
	if err != nil {
		return nil, err
	}

	metrics.Submissions.WithLabelValues(string(outcome.Kind)).Inc()
	s.logger.Info().Str("outcome", string(outcome.Kind)).Str("queryID", outcome.QueryID).Msg("Submission resolved")
	return outcome, nil
}

func conflictOutcome(existing *models.Student) *models.Outcome {
	return &models.Outcome{
		Kind:         models.OutcomeConflict,
		QueryID:      existing.QueryID,
		ExistingName: masking.Name(existing.Name),
	}
}

// storePhoto writes the upload if one was supplied; nil means keep the current photo
func (s *SubmissionService) storePhoto(ctx context.Context, in SubmitInput, queryID string) (*string, error) {
	if len(in.Photo) == 0 {
		return nil, nil
	}
	path, err := s.uploads.Store(ctx, in.Photo, in.PhotoName, queryID)
	if err != nil {
		return nil, err
	}
	return &path, nil
}

func (s *SubmissionService) removePhoto(photo *string) {
	if photo != nil {
		s.uploads.Remove(*photo)
	}
}

func (s *SubmissionService) update(ctx context.Context, existing *models.Student, in SubmitInput) (*models.Outcome, error) {
	photo, err := s.storePhoto(ctx, in, existing.QueryID)
	if err != nil {
		return nil, err
	}

	if err := s.students.UpdateByIdentity(ctx, existing.IdentityNumber, in.Fields, photo); err != nil {
		s.removePhoto(photo)
		return nil, err
	}

	return &models.Outcome{Kind: models.OutcomeUpdated, QueryID: existing.QueryID}, nil
}

// freshQueryID generates an id not used by any active record
func (s *SubmissionService) freshQueryID(ctx context.Context) (string, error) {
	for i := 0; i < maxQueryIDAttempts; i++ {
		id, err := s.newID()
		if err != nil {
			return "", apperrors.NewStorageError("failed to generate query id", err)
		}
		taken, err := s.students.ExistsByQueryID(ctx, id)
		if err != nil {
			return "", err
		}
		if !taken {
			return id, nil
		}
		s.logger.Warn().Str("queryID", id).Msg("Generated query id already in use, retrying")
	}
	return "", apperrors.NewStorageError("failed to generate a unique query id",
		fmt.Errorf("%d attempts exhausted", maxQueryIDAttempts))
}

func (s *SubmissionService) create(ctx context.Context, identity string, in SubmitInput) (*models.Outcome, error) {
	queryID, err := s.freshQueryID(ctx)
	if err != nil {
		return nil, err
	}

	photo, err := s.storePhoto(ctx, in, queryID)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		student := &models.Student{
			QueryID:        queryID,
			IdentityNumber: identity,
			AdmissionPhoto: photo,
		}
		student.ApplyFields(in.Fields)

		err = s.students.Insert(ctx, student)
		switch {
		case err == nil:
			return &models.Outcome{Kind: models.OutcomeCreated, QueryID: queryID}, nil

		case errors.Is(err, apperrors.ErrDuplicateIdentity):
			// Lost a race with another submitter for the same identity number
			s.removePhoto(photo)
			winner, getErr := s.students.GetByIdentity(ctx, identity)
			if getErr != nil {
				return nil, apperrors.NewConflictError("identity number was registered concurrently")
			}
			return conflictOutcome(winner), nil

		case errors.Is(err, apperrors.ErrDuplicateQueryID) && attempt < maxQueryIDAttempts:
			if queryID, err = s.freshQueryID(ctx); err != nil {
				s.removePhoto(photo)
				return nil, err
			}

		default:
			s.removePhoto(photo)
			if errors.Is(err, apperrors.ErrDuplicateQueryID) {
				return nil, apperrors.NewStorageError("failed to allocate a unique query id",
					fmt.Errorf("%d insert attempts collided", attempt))
			}
			return nil, err
		}
	}
}
