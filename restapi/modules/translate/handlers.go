// Package translate exposes machine translation to the admin editor and the
// site's language switcher.
package translate

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/certiva/website-backend/internal/services/translator"
	"github.com/certiva/website-backend/restapi/modules/common"
)

const (
	maxTexts      = 100
	maxTextLength = 5000
)

// Translator translates a batch of texts.
type Translator interface {
	Translate(ctx context.Context, req translator.Request) ([]string, error)
}

// Response is the body returned by Handler.
type Response struct {
	Translations []string `json:"translations"`
}

// Handler translates {texts, source, target}.
func Handler(t Translator, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req translator.Request
		if err := c.BodyParser(&req); err != nil {
			return common.WriteError(c, common.ErrInvalidBody)
		}
		switch {
		case req.Target == "":
			return common.FieldError(c, "target", "cannot be blank")
		case len(req.Texts) == 0:
			return common.FieldError(c, "texts", "cannot be blank")
		case len(req.Texts) > maxTexts:
			return common.FieldError(c, "texts", "too many texts in one request")
		}
		for _, text := range req.Texts {
			if len(text) > maxTextLength {
				return common.FieldError(c, "texts", "text too long")
			}
		}

		out, err := t.Translate(c.Context(), req)
		if err != nil {
			if errors.Is(err, translator.ErrUnsupportedLanguage) {
				return common.WriteError(c, err)
			}
			logger.Error("Translation failed", zap.String("target", req.Target), zap.Error(err))
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Translation service unavailable"})
		}
		return c.JSON(Response{Translations: out})
	}
}
