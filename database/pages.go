package database

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/certiva/website-backend/model"
)

// PageSections loads the sections of page in page order. Sections that no
// longer exist are skipped with a warning so one deleted block does not take
// the page down.
func PageSections(ctx context.Context, sections Store[model.Section], page *model.Page, logger *zap.Logger) ([]*model.Section, error) {
	out := make([]*model.Section, 0, len(page.Sections))
	for _, key := range page.Sections {
		s, err := sections.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			logger.Warn("Page references a missing section", zap.String("page", page.Slug), zap.String("section", key))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load section %s: %w", key, err)
		}
		out = append(out, s)
	}
	return out, nil
}
