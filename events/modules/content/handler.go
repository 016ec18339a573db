package content

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Invalidator drops the cached responses of a collection.
type Invalidator func(ctx context.Context, collection string) error

// HandleContentChanged processes a content.changed message by invalidating
// the cached responses of the changed collection. Events from self were
// already applied locally and are skipped.
func HandleContentChanged(
	ctx context.Context,
	msg []byte,
	self string,
	invalidate Invalidator,
	logger *zap.Logger,
) error {
	var event ContentChangedEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		return fmt.Errorf("failed to unmarshal ContentChangedEvent: %w", err)
	}
	if event.EventType != EventTypeContentChanged || event.Collection == "" {
		return fmt.Errorf("invalid event: missing required fields")
	}
	if event.Source != "" && event.Source == self {
		return nil
	}

	if err := invalidate(ctx, event.Collection); err != nil {
		return fmt.Errorf("invalidate %s: %w", event.Collection, err)
	}
	logger.Debug("Invalidated cached content",
		zap.String("collection", event.Collection),
		zap.String("key", event.Key),
		zap.String("action", event.Action),
		zap.String("source", event.Source))
	return nil
}
