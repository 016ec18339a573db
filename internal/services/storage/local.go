package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/certiva/website-backend/internal/config"
	"github.com/certiva/website-backend/model"
)

// Local stores uploads on disk. The directory is served under PublicURL.
type Local struct {
	dir       string
	publicURL string
	maxBytes  int64
}

// NewLocal returns a Local uploader rooted at cfg.UploadDir.
func NewLocal(cfg config.StorageConfig) (*Local, error) {
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{
		dir:       cfg.UploadDir,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		maxBytes:  int64(cfg.MaxUploadMB) << 20,
	}, nil
}

// Dir returns the upload directory.
func (l *Local) Dir() string { return l.dir }

// Upload validates and writes the file.
func (l *Local) Upload(_ context.Context, in FileInput) (*model.Media, error) {
	p, err := Prepare(in, l.maxBytes)
	if err != nil {
		return nil, err
	}

	publicID := path.Join(sanitizeFolder(in.Folder), uuid.NewString()+p.Ext)
	target := filepath.Join(l.dir, filepath.FromSlash(publicID))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, fmt.Errorf("create upload folder: %w", err)
	}
	if err := os.WriteFile(target, p.Data, 0o644); err != nil {
		return nil, fmt.Errorf("write upload: %w", err)
	}

	return &model.Media{
		URL:          l.publicURL + "/" + publicID,
		PublicID:     publicID,
		ResourceType: p.ResourceType,
		Format:       strings.TrimPrefix(p.Ext, "."),
		Bytes:        int64(len(p.Data)),
		Filename:     path.Base(in.Filename),
	}, nil
}

// Delete removes a stored file. Deleting a missing file is not an error.
func (l *Local) Delete(_ context.Context, publicID, _ string) error {
	clean := path.Clean("/" + publicID)
	if publicID == "" || clean == "/" || strings.Contains(publicID, "..") {
		return ErrInvalidID
	}
	err := os.Remove(filepath.Join(l.dir, filepath.FromSlash(strings.TrimPrefix(clean, "/"))))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete upload: %w", err)
	}
	return nil
}

// New returns the uploader selected by cfg.Driver.
func New(cfg config.StorageConfig) (Uploader, error) {
	switch cfg.Driver {
	case "cloudinary":
		return NewCloudinary(cfg)
	case "local", "":
		return NewLocal(cfg)
	}
	return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
}
