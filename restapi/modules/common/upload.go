package common

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"github.com/certiva/website-backend/internal/services/storage"
	"github.com/certiva/website-backend/model"
)

// IsMultipart reports whether the request carries a multipart form.
func IsMultipart(c *fiber.Ctx) bool {
	return len(c.Request().Header.MultipartFormBoundary()) > 0
}

// UploadFormFile stores one multipart file under folder.
func UploadFormFile(ctx context.Context, up storage.Uploader, fh *multipart.FileHeader, folder string) (*model.Media, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	return up.Upload(ctx, storage.FileInput{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Reader:      f,
		Folder:      folder,
	})
}
