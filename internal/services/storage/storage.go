// Package storage uploads images and documents to Cloudinary or local disk.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/certiva/website-backend/model"
)

var (
	// ErrUnsupportedType is returned for files outside the allowed types.
	ErrUnsupportedType = errors.New("storage: unsupported file type")
	// ErrTooLarge is returned for files over the size limit.
	ErrTooLarge = errors.New("storage: file too large")
	// ErrInvalidID is returned for a public id that does not name an upload.
	ErrInvalidID = errors.New("storage: invalid public id")
)

// Resource types.
const (
	ResourceImage = "image"
	ResourceRaw   = "raw"
)

type fileType struct {
	mime         string
	resourceType string
}

var allowed = map[string]fileType{
	".jpg":  {"image/jpeg", ResourceImage},
	".jpeg": {"image/jpeg", ResourceImage},
	".png":  {"image/png", ResourceImage},
	".webp": {"image/webp", ResourceImage},
	".gif":  {"image/gif", ResourceImage},
	".svg":  {"image/svg+xml", ResourceImage},
	".pdf":  {"application/pdf", ResourceRaw},
}

// FileInput is a file to upload.
type FileInput struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
	// Folder groups uploads, e.g. "blogs" or "resumes".
	Folder string
}

// Uploader stores files and returns where they can be fetched.
type Uploader interface {
	Upload(ctx context.Context, in FileInput) (*model.Media, error)
	Delete(ctx context.Context, publicID, resourceType string) error
}

// Prepared is a validated upload held in memory.
type Prepared struct {
	Ext          string
	ResourceType string
	Data         []byte
}

// Prepare checks the file type and size and reads the content. The reader is
// bounded so an understated Size cannot bypass the limit.
func Prepare(in FileInput, maxBytes int64) (*Prepared, error) {
	ext := strings.ToLower(path.Ext(in.Filename))
	ft, ok := allowed[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	if ct := baseContentType(in.ContentType); ct != "" && ct != "application/octet-stream" && ct != ft.mime {
		return nil, fmt.Errorf("%w: %s does not match %s", ErrUnsupportedType, ct, ext)
	}
	if in.Size > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, in.Size, maxBytes)
	}
	data, err := io.ReadAll(io.LimitReader(in.Reader, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrUnsupportedType)
	}
	return &Prepared{Ext: ext, ResourceType: ft.resourceType, Data: data}, nil
}

// Reader returns a reader over the prepared content.
func (p *Prepared) Reader() io.Reader { return bytes.NewReader(p.Data) }

// IsImage reports whether filename has an allowed image extension.
func IsImage(filename string) bool {
	ft, ok := allowed[strings.ToLower(path.Ext(filename))]
	return ok && ft.resourceType == ResourceImage
}

// IsPDF reports whether filename is a PDF.
func IsPDF(filename string) bool {
	return strings.ToLower(path.Ext(filename)) == ".pdf"
}

func baseContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

func sanitizeFolder(folder string) string {
	folder = strings.Trim(path.Clean("/"+folder), "/")
	if folder == "." {
		return ""
	}
	return folder
}
