// Package storage keeps the raw bytes of uploaded datasets on local disk.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/firegrid/firegrid-engine/pkg/apperrors"
	"github.com/firegrid/firegrid-engine/pkg/crypto"
	"github.com/firegrid/firegrid-engine/pkg/models"
)

// FileStore persists uploaded files keyed by dataset id.
type FileStore interface {
	// Save writes the file and returns the path it was stored under.
	Save(ctx context.Context, id uuid.UUID, format models.FileFormat, data []byte) (string, error)
	// Load returns the original bytes. Missing files yield apperrors.ErrNotFound.
	Load(ctx context.Context, id uuid.UUID, format models.FileFormat) ([]byte, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type diskFileStore struct {
	baseDir   string
	encryptor *crypto.UploadEncryptor
	logger    *zap.Logger
}

var _ FileStore = (*diskFileStore)(nil)

// NewDiskFileStore stores files as <baseDir>/<id>/original.<ext>. When encryptor is
// non-nil, files are sealed at rest.
func NewDiskFileStore(baseDir string, encryptor *crypto.UploadEncryptor, logger *zap.Logger) (FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &diskFileStore{
		baseDir:   baseDir,
		encryptor: encryptor,
		logger:    logger.Named("file-store"),
	}, nil
}

func (s *diskFileStore) path(id uuid.UUID, format models.FileFormat) string {
	return filepath.Join(s.baseDir, id.String(), "original."+string(format))
}

func (s *diskFileStore) Save(ctx context.Context, id uuid.UUID, format models.FileFormat, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(s.baseDir, id.String())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create dataset directory: %w", err)
	}

	payload := data
	if s.encryptor != nil {
		sealed, err := s.encryptor.Seal(data)
		if err != nil {
			return "", fmt.Errorf("failed to encrypt upload: %w", err)
		}
		payload = sealed
	}

	// Write to a temp file first so readers never observe a partial upload.
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close upload: %w", err)
	}

	dest := s.path(id, format)
	if err := os.Rename(tmpName, dest); err != nil {
		return "", fmt.Errorf("failed to store upload: %w", err)
	}

	s.logger.Debug("Stored upload",
		zap.String("dataset_id", id.String()),
		zap.Int("bytes", len(data)),
		zap.Bool("encrypted", s.encryptor != nil))
	return dest, nil
}

func (s *diskFileStore) Load(ctx context.Context, id uuid.UUID, format models.FileFormat) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(id, format))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	if !crypto.IsSealed(data) {
		return data, nil
	}
	if s.encryptor == nil {
		return nil, apperrors.ErrEncryptionKeyMismatch
	}
	plain, err := s.encryptor.Open(data)
	if err != nil {
		if errors.Is(err, crypto.ErrDecryptionFailed) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrEncryptionKeyMismatch, err)
		}
		return nil, err
	}
	return plain, nil
}

func (s *diskFileStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(s.baseDir, id.String())); err != nil {
		return fmt.Errorf("failed to delete upload: %w", err)
	}
	return nil
}
