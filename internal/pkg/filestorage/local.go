package filestorage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/yigit/thesisflow/internal/pkg/logger"
)

// DefaultMaxSize bounds a single proof upload
const DefaultMaxSize int64 = 10 << 20

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// LocalStorage keeps files on the local filesystem under basePath. References
// are slash separated paths relative to basePath, e.g. "proofs/12/<uuid>.pdf".
type LocalStorage struct {
	basePath string
	maxSize  int64
}

// NewLocalStorage creates the base directory when needed.
func NewLocalStorage(basePath string, maxSize int64) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &LocalStorage{basePath: basePath, maxSize: maxSize}, nil
}

// SaveFile copies the upload to a uuid-named file under subPath.
func (ls *LocalStorage) SaveFile(fileHeader *multipart.FileHeader, subPath string) (string, error) {
	if fileHeader == nil {
		return "", fmt.Errorf("no file uploaded")
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	if fileHeader.Size > ls.maxSize {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, fileHeader.Size, ls.maxSize)
	}

	ref := filepath.ToSlash(filepath.Join(subPath, uuid.New().String()+ext))
	dstPath, err := ls.GetFullPath(ref)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create subdirectory")
		return "", fmt.Errorf("failed to create subdirectory: %w", err)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return "", fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(src, ls.maxSize+1)); err != nil {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("failed to save file content: %w", err)
	}

	logger.Info().Str("filename", fileHeader.Filename).Str("ref", ref).Msg("File saved")
	return ref, nil
}

// DeleteFile removes the file behind ref.
func (ls *LocalStorage) DeleteFile(ref string) error {
	if ref == "" {
		return nil
	}
	path, err := ls.GetFullPath(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Error().Err(err).Str("path", path).Msg("Failed to delete file")
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// GetFullPath resolves ref inside the base directory. References that would
// escape it are rejected.
func (ls *LocalStorage) GetFullPath(ref string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(ref))
	if ref == "" || filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, ref)
	}
	return filepath.Join(ls.basePath, clean), nil
}
