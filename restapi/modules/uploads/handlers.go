// Package uploads lets the admin editor store images and documents.
package uploads

import (
	"path"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/certiva/website-backend/internal/services/storage"
	"github.com/certiva/website-backend/restapi/modules/common"
)

const defaultFolder = "uploads"

// Upload stores the multipart "file" under the optional "folder" field.
func Upload(up storage.Uploader, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return common.FieldError(c, "file", "a file is required")
		}
		folder := strings.Trim(path.Clean("/"+c.FormValue("folder", defaultFolder)), "/")
		if folder == "" {
			folder = defaultFolder
		}

		media, err := common.UploadFormFile(c.Context(), up, fh, folder)
		if err != nil {
			return common.WriteError(c, err)
		}
		logger.Info("File uploaded", zap.String("public_id", media.PublicID), zap.Int64("bytes", media.Bytes), zap.String("by", common.AdminKey(c)))
		return c.Status(fiber.StatusCreated).JSON(media)
	}
}

// Delete removes the upload named by ?public_id= and ?resource_type=.
func Delete(up storage.Uploader, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		publicID := c.Query("public_id")
		if publicID == "" {
			return common.FieldError(c, "public_id", "cannot be blank")
		}
		resourceType := c.Query("resource_type", storage.ResourceImage)
		if resourceType != storage.ResourceImage && resourceType != storage.ResourceRaw {
			return common.FieldError(c, "resource_type", "must be image or raw")
		}

		if err := up.Delete(c.Context(), publicID, resourceType); err != nil {
			return common.WriteError(c, err)
		}
		logger.Info("File deleted", zap.String("public_id", publicID), zap.String("by", common.AdminKey(c)))
		return c.JSON(fiber.Map{"message": "Deleted", "public_id": publicID})
	}
}
