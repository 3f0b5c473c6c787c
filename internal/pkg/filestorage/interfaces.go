package filestorage

import (
	"errors"
	"mime/multipart"
)

// Errors returned for rejected uploads
var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
	ErrInvalidPath     = errors.New("invalid file path")
)

// FileStorage stores uploaded payment proofs and returns a reference that can
// be kept on the verification.
type FileStorage interface {
	// SaveFile stores the upload under subPath and returns its reference.
	SaveFile(fileHeader *multipart.FileHeader, subPath string) (string, error)

	// DeleteFile removes a stored file. Missing files are not an error.
	DeleteFile(ref string) error

	// GetFullPath returns the filesystem path behind a reference.
	GetFullPath(ref string) (string, error)
}
