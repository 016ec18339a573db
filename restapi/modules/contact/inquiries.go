package contact

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/certiva/website-backend/database"
	"github.com/certiva/website-backend/internal/services/mailer"
	"github.com/certiva/website-backend/model"
	"github.com/certiva/website-backend/restapi/modules/common"
	"github.com/certiva/website-backend/restapi/modules/crud"
)

// Inquiries serves the contact form and its admin inbox.
type Inquiries struct {
	crud.Resource[model.Inquiry]
	offices database.Store[model.ContactOffice]
	mailer  mailer.Mailer
	logger  *zap.Logger
}

// NewInquiries returns an Inquiries handler. Inquiries are not public
// content, so writes neither touch the cache nor publish events.
func NewInquiries(store database.Store[model.Inquiry], offices database.Store[model.ContactOffice], m mailer.Mailer, logger *zap.Logger) *Inquiries {
	return &Inquiries{
		Resource: crud.Resource[model.Inquiry]{
			Name:  database.ColInquiries,
			Store: store,
			Env:   crud.Env{Logger: logger},
		},
		offices: offices,
		mailer:  m,
		logger:  logger,
	}
}

// Submit stores a contact form submission and notifies the office.
func (h *Inquiries) Submit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		inquiry, err := crud.DecodeJSON[model.Inquiry](c)
		if err != nil {
			return common.WriteError(c, err)
		}
		inquiry.Key = ""
		inquiry.Status = model.InquiryNew

		ctx := c.Context()
		var office *model.ContactOffice
		if inquiry.OfficeKey != "" {
			office, err = h.offices.Get(ctx, inquiry.OfficeKey)
			if errors.Is(err, database.ErrNotFound) {
				return common.FieldError(c, "office_key", "unknown office")
			}
			if err != nil {
				return err
			}
		}

		if err := h.Store.Create(ctx, inquiry); err != nil {
			return common.WriteError(c, err)
		}

		if err := h.mailer.SendInquiryNotification(ctx, inquiry, office); err != nil {
			h.logger.Error("Failed to send inquiry notification", zap.String("inquiry", inquiry.Key), zap.Error(err))
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Thank you, we will be in touch shortly",
			"_key":    inquiry.Key,
		})
	}
}

// List returns inquiries, newest first, filtered by status and office_key.
func (h *Inquiries) List() fiber.Handler {
	return h.Resource.List(func(c *fiber.Ctx) database.ListOptions {
		opts := common.ParseListOptions(c, "created_at", true, "created_at", "status", "name")
		opts.SearchFields = []string{"name", "email", "company", "subject"}
		common.AddFilter(&opts, "status", c.Query("status"))
		common.AddFilter(&opts, "office_key", c.Query("office_key"))
		return opts
	})
}

// UpdateStatus sets the status of the inquiry named by :key.
func (h *Inquiries) UpdateStatus() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req struct {
			Status string `json:"status"`
		}
		if err := c.BodyParser(&req); err != nil {
			return common.WriteError(c, common.ErrInvalidBody)
		}

		ctx := c.Context()
		key := c.Params("key")
		inquiry, err := h.Store.Get(ctx, key)
		if err != nil {
			return common.WriteError(c, err)
		}
		inquiry.Status = req.Status
		if err := h.Store.Replace(ctx, key, inquiry); err != nil {
			return common.WriteError(c, err)
		}
		return c.JSON(inquiry)
	}
}
