// Package common holds the helpers shared by the REST modules: error
// mapping, paging, request context and response caching.
package common

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"

	"github.com/certiva/website-backend/database"
	"github.com/certiva/website-backend/internal/services/storage"
	"github.com/certiva/website-backend/internal/services/translator"
	"github.com/certiva/website-backend/model"
)

// ErrInvalidBody is returned when a request body cannot be decoded.
var ErrInvalidBody = errors.New("invalid request body")

// WriteError maps err to an HTTP status and JSON body. Errors it does not
// recognize are returned so the app error handler logs them as 500s.
func WriteError(c *fiber.Ctx, err error) error {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  "Validation failed",
			"fields": verrs,
		})
	}
	var verr validation.Error
	if errors.As(err, &verr) {
		return BadRequest(c, verr.Error())
	}

	var fe *fiber.Error
	switch {
	case errors.Is(err, ErrInvalidBody):
		return BadRequest(c, "Invalid request body")
	case errors.Is(err, model.ErrSlugInvalid),
		errors.Is(err, storage.ErrUnsupportedType),
		errors.Is(err, storage.ErrTooLarge),
		errors.Is(err, storage.ErrInvalidID),
		errors.Is(err, translator.ErrUnsupportedLanguage):
		return BadRequest(c, err.Error())
	case errors.Is(err, database.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Not found"})
	case errors.Is(err, database.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "A document with the same unique value already exists"})
	case errors.As(err, &fe):
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	return err
}

// BadRequest writes a 400 with msg.
func BadRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// FieldError writes a 400 for a single invalid field.
func FieldError(c *fiber.Ctx, field, msg string) error {
	return WriteError(c, validation.Errors{field: errors.New(msg)})
}
