package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// EmploymentTypes lists the accepted Career.EmploymentType values.
var EmploymentTypes = []any{"full-time", "part-time", "contract", "internship"}

// Career is an open position.
type Career struct {
	Base
	Title            string     `json:"title"`
	Slug             string     `json:"slug"`
	Department       string     `json:"department,omitempty"`
	Location         string     `json:"location,omitempty"`
	EmploymentType   string     `json:"employment_type"`
	Description      string     `json:"description"`
	Requirements     []string   `json:"requirements"`
	Responsibilities []string   `json:"responsibilities"`
	ApplyEmail       string     `json:"apply_email,omitempty"`
	IsActive         bool       `json:"is_active"`
	ClosingDate      *time.Time `json:"closing_date,omitempty"`
}

// Prepare derives the slug from the title.
func (c *Career) Prepare(time.Time) error {
	if c.Requirements == nil {
		c.Requirements = []string{}
	}
	if c.Responsibilities == nil {
		c.Responsibilities = []string{}
	}
	return ensureSlug(&c.Slug, c.Title)
}

// Validate implements Validator.
func (c *Career) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&c.Slug, validation.Required),
		validation.Field(&c.EmploymentType, validation.Required, validation.In(EmploymentTypes...)),
		validation.Field(&c.Description, validation.Required),
		validation.Field(&c.ApplyEmail, is.EmailFormat),
	)
}

// OpenAt reports whether the position accepts applications at now.
func (c *Career) OpenAt(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	return c.ClosingDate == nil || now.Before(*c.ClosingDate)
}

// JobApplication is a candidate's application to a Career.
type JobApplication struct {
	Base
	CareerKey string `json:"career_key"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Message   string `json:"message,omitempty"`
	Resume    *Media `json:"resume,omitempty"`
}

// Prepare normalizes the email.
func (a *JobApplication) Prepare(time.Time) error {
	a.Email = NormalizeEmail(a.Email)
	return nil
}

// Validate implements Validator.
func (a *JobApplication) Validate() error {
	return validation.ValidateStruct(a,
		validation.Field(&a.CareerKey, validation.Required),
		validation.Field(&a.Name, validation.Required, validation.Length(1, 120)),
		validation.Field(&a.Email, validation.Required, is.EmailFormat),
		validation.Field(&a.Phone, validation.Length(0, 40)),
		validation.Field(&a.Message, validation.Length(0, 5000)),
		validation.Field(&a.Resume, validation.Required.Error("resume is required")),
	)
}
