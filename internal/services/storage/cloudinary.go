package storage

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"

	"github.com/certiva/website-backend/internal/config"
	"github.com/certiva/website-backend/model"
)

type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, uploadParams uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// Cloudinary stores uploads in a Cloudinary account.
type Cloudinary struct {
	api      uploadAPI
	folder   string
	maxBytes int64
}

// NewCloudinary returns a Cloudinary uploader for cfg.
func NewCloudinary(cfg config.StorageConfig) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	return &Cloudinary{
		api:      &cld.Upload,
		folder:   cfg.Folder,
		maxBytes: int64(cfg.MaxUploadMB) << 20,
	}, nil
}

// Upload validates and sends the file to Cloudinary.
func (c *Cloudinary) Upload(ctx context.Context, in FileInput) (*model.Media, error) {
	p, err := Prepare(in, c.maxBytes)
	if err != nil {
		return nil, err
	}

	publicID := uuid.NewString()
	if p.ResourceType == ResourceRaw {
		// raw assets keep their extension in the public id
		publicID += p.Ext
	}
	res, err := c.api.Upload(ctx, p.Reader(), uploader.UploadParams{
		PublicID:     publicID,
		Folder:       path.Join(c.folder, sanitizeFolder(in.Folder)),
		ResourceType: p.ResourceType,
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload: %s", res.Error.Message)
	}

	return &model.Media{
		URL:          res.SecureURL,
		PublicID:     res.PublicID,
		ResourceType: res.ResourceType,
		Format:       res.Format,
		Bytes:        int64(res.Bytes),
		Filename:     path.Base(in.Filename),
	}, nil
}

// Delete removes an asset from Cloudinary.
func (c *Cloudinary) Delete(ctx context.Context, publicID, resourceType string) error {
	if publicID == "" {
		return ErrInvalidID
	}
	if resourceType == "" {
		resourceType = ResourceImage
	}
	res, err := c.api.Destroy(ctx, uploader.DestroyParams{PublicID: publicID, ResourceType: resourceType})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if res.Error.Message != "" {
		return errors.New("cloudinary destroy: " + res.Error.Message)
	}
	return nil
}
