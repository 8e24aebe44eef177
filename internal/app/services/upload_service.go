package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/AntonVanke/xuexinwang/internal/pkg/apperrors"
	"github.com/AntonVanke/xuexinwang/internal/pkg/filestorage"
	"github.com/AntonVanke/xuexinwang/internal/pkg/metrics"
)

// UploadService stores admission photos
type UploadService struct {
	storage filestorage.FileStorage
	maxSize int64
	logger  zerolog.Logger
}

// NewUploadService creates a new UploadService
func NewUploadService(storage filestorage.FileStorage, maxSize int64, logger zerolog.Logger) *UploadService {
	return &UploadService{
		storage: storage,
		maxSize: maxSize,
		logger:  logger,
	}
}

// MaxSize returns the upload ceiling in bytes
func (s *UploadService) MaxSize() int64 {
	return s.maxSize
}

// CheckSize fails with ErrFileTooLarge when size exceeds the ceiling
func (s *UploadService) CheckSize(size int64) error {
	if size > s.maxSize {
		return apperrors.NewCustomError(apperrors.ErrFileTooLarge,
			fmt.Sprintf("file exceeds the %d byte limit", s.maxSize))
	}
	return nil
}

// Store writes data under "{queryID}-{8 hex}{ext}" where ext comes from the
// leading magic bytes. declaredName is only logged. Returns the public path.
func (s *UploadService) Store(_ context.Context, data []byte, declaredName, queryID string) (string, error) {
	if err := s.CheckSize(int64(len(data))); err != nil {
		return "", err
	}

	ext := filestorage.DetectImageExtension(data)

	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", apperrors.NewStorageError("failed to generate file name", err)
	}
	name := queryID + "-" + hex.EncodeToString(suffix) + ext

	publicPath, err := s.storage.SaveBytes(name, data)
	if err != nil {
		s.logger.Error().Err(err).Str("queryID", queryID).Msg("Failed to store upload")
		return "", apperrors.NewStorageError("failed to store upload", err)
	}

	metrics.Uploads.WithLabelValues(ext).Inc()
	s.logger.Info().
		Str("queryID", queryID).
		Str("declaredName", declaredName).
		Str("detectedExt", ext).
		Str("path", publicPath).
		Msg("Admission photo stored")
	return publicPath, nil
}

// Remove deletes a stored upload on a best-effort basis
func (s *UploadService) Remove(publicPath string) {
	if publicPath == "" {
		return
	}
	if err := s.storage.DeleteFile(publicPath); err != nil {
		s.logger.Warn().Err(err).Str("path", publicPath).Msg("Failed to remove orphaned upload")
	}
}

// knownImageExtensions are left alone by RepairExtensions
var knownImageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".bmp": true, ".webp": true,
}

// RepairReport summarises a RepairExtensions run
type RepairReport struct {
	Fixed   int
	Skipped int
	Failed  int
}

// RepairExtensions renames stored files lacking a known image extension to
// the extension sniffed from their content and rewrites the records pointing at them.
func (s *UploadService) RepairExtensions(ctx context.Context, photos PhotoPathStore) (*RepairReport, error) {
	names, err := s.storage.ListFiles()
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list uploads", err)
	}

	report := &RepairReport{}
	for _, name := range names {
		if knownImageExtensions[strings.ToLower(filepath.Ext(name))] {
			report.Skipped++
			continue
		}

		head, err := s.storage.ReadHead(name, filestorage.SniffLength)
		if err != nil {
			s.logger.Warn().Err(err).Str("file", name).Msg("Failed to read upload")
			report.Failed++
			continue
		}

		base := strings.TrimSuffix(name, filepath.Ext(name))
		newName := base + filestorage.DetectImageExtension(head)
		newPath, err := s.storage.Rename(name, newName)
		if err != nil {
			s.logger.Warn().Err(err).Str("file", name).Msg("Failed to rename upload")
			report.Failed++
			continue
		}

		if _, err := photos.ReplacePhotoPath(ctx, s.storage.PublicPath(name), newPath); err != nil {
			// Put the file back so records keep resolving
			if _, rerr := s.storage.Rename(newName, name); rerr != nil {
				s.logger.Error().Err(rerr).Str("file", newName).Msg("Failed to roll back rename")
			}
			return report, err
		}

		s.logger.Info().Str("from", name).Str("to", newName).Msg("Upload extension repaired")
		report.Fixed++
	}
	return report, nil
}
