package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// IndustryStat is a headline figure shown on an industry page.
type IndustryStat struct {
	Base
	Industry string        `json:"industry"`
	Label    LocalizedText `json:"label"`
	Value    string        `json:"value"`
	Suffix   string        `json:"suffix,omitempty"`
	Icon     string        `json:"icon,omitempty"`
	Order    int           `json:"order"`
}

// IndustryKey normalizes an industry name the way stored stats are, so
// "Oil & Gas" finds "oil-gas". Names that cannot be slugified are returned
// unchanged.
func IndustryKey(name string) string {
	if slug, err := Slugify(name); err == nil {
		return slug
	}
	return name
}

// Prepare normalizes the industry slug.
func (s *IndustryStat) Prepare(time.Time) error {
	return ensureSlug(&s.Industry, s.Industry)
}

// Validate implements Validator.
func (s *IndustryStat) Validate() error {
	return validation.ValidateStruct(s,
		validation.Field(&s.Industry, validation.Required),
		validation.Field(&s.Label, validation.By(requireLocalized)),
		validation.Field(&s.Value, validation.Required, validation.Length(1, 40)),
	)
}

// LocalizedIndustryStat is an IndustryStat with its label resolved.
type LocalizedIndustryStat struct {
	Key      string `json:"_key"`
	Industry string `json:"industry"`
	Label    string `json:"label"`
	Value    string `json:"value"`
	Suffix   string `json:"suffix,omitempty"`
	Icon     string `json:"icon,omitempty"`
	Order    int    `json:"order"`
}

// Localize resolves the label for lang.
func (s *IndustryStat) Localize(lang, fallback string) LocalizedIndustryStat {
	return LocalizedIndustryStat{
		Key:      s.Key,
		Industry: s.Industry,
		Label:    s.Label.Resolve(lang, fallback),
		Value:    s.Value,
		Suffix:   s.Suffix,
		Icon:     s.Icon,
		Order:    s.Order,
	}
}
