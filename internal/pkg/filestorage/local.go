package filestorage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/AntonVanke/xuexinwang/internal/pkg/logger"
)

// LocalStorage handles saving files to the local filesystem.
type LocalStorage struct {
	basePath     string // The root directory where files will be stored
	publicPrefix string // URL prefix under which basePath is served, e.g. /uploads
}

// NewLocalStorage creates a new LocalStorage instance and ensures basePath exists.
func NewLocalStorage(basePath, publicPrefix string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	logger.Info().Str("path", basePath).Msg("Local storage directory ensured")

	if publicPrefix == "" {
		publicPrefix = "/uploads"
	}

	return &LocalStorage{
		basePath:     basePath,
		publicPrefix: "/" + strings.Trim(publicPrefix, "/"),
	}, nil
}

// BasePath returns the storage root directory
func (ls *LocalStorage) BasePath() string {
	return ls.basePath
}

// PublicPrefix returns the URL prefix files are served under
func (ls *LocalStorage) PublicPrefix() string {
	return ls.publicPrefix
}

// SaveBytes writes data to basePath/filename. The name must be a bare file name.
func (ls *LocalStorage) SaveBytes(filename string, data []byte) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", fmt.Errorf("invalid file name %q", filename)
	}

	dstPath := filepath.Join(ls.basePath, filename)

	// O_EXCL refuses to overwrite an existing upload
	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}

	if _, err := dst.Write(data); err != nil {
		_ = dst.Close()
		_ = os.Remove(dstPath)
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to write uploaded file content")
		return "", fmt.Errorf("failed to save file content: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	publicPath := path.Join(ls.publicPrefix, filename)
	logger.Info().Str("saved_as", filename).Int("size", len(data)).Str("public_path", publicPath).Msg("File saved successfully")
	return publicPath, nil
}

// DeleteFile removes a file from the storage filesystem.
// Returns nil if deletion is successful or if the file doesn't exist.
func (ls *LocalStorage) DeleteFile(publicPath string) error {
	if publicPath == "" {
		return nil
	}

	physicalPath := ls.GetFullPath(publicPath)
	if physicalPath == "" {
		return fmt.Errorf("invalid file path: %s", publicPath)
	}

	if err := os.Remove(physicalPath); err != nil {
		if os.IsNotExist(err) {
			logger.Warn().Str("path", physicalPath).Msg("File to delete does not exist")
			return nil
		}
		logger.Error().Err(err).Str("path", physicalPath).Msg("Failed to delete file")
		return fmt.Errorf("failed to delete file: %w", err)
	}

	logger.Info().Str("path", physicalPath).Msg("File deleted successfully")
	return nil
}

// GetFullPath returns the full filesystem path for a given public path.
// Only the base name is used, so the result never escapes basePath.
func (ls *LocalStorage) GetFullPath(publicPath string) string {
	filename := path.Base(publicPath)
	if filename == "" || filename == "." || filename == "/" || filename == strings.Trim(ls.publicPrefix, "/") {
		return ""
	}
	return filepath.Join(ls.basePath, filename)
}

// ListFiles returns the names of regular files directly under basePath
func (ls *LocalStorage) ListFiles() ([]string, error) {
	entries, err := os.ReadDir(ls.basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to list storage directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// ReadHead returns up to n leading bytes of a stored file
func (ls *LocalStorage) ReadHead(filename string, n int) ([]byte, error) {
	f, err := os.Open(filepath.Join(ls.basePath, filepath.Base(filename)))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return buf[:read], nil
}

// Rename moves a stored file to a new bare name and returns the new public path.
// An existing target is never overwritten.
func (ls *LocalStorage) Rename(oldName, newName string) (string, error) {
	if newName == "" || newName != filepath.Base(newName) || strings.HasPrefix(newName, ".") {
		return "", fmt.Errorf("invalid file name %q", newName)
	}
	src := filepath.Join(ls.basePath, filepath.Base(oldName))
	dst := filepath.Join(ls.basePath, newName)

	if _, err := os.Stat(dst); err == nil {
		return "", fmt.Errorf("target %s already exists", newName)
	}
	if err := os.Rename(src, dst); err != nil {
		return "", fmt.Errorf("failed to rename %s: %w", oldName, err)
	}
	logger.Info().Str("from", oldName).Str("to", newName).Msg("File renamed")
	return path.Join(ls.publicPrefix, newName), nil
}

// PublicPath returns the public path a bare file name is served under
func (ls *LocalStorage) PublicPath(filename string) string {
	return path.Join(ls.publicPrefix, filename)
}
