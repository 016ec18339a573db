// Package admin implements the REST API handlers for admin maintenance jobs.
// It provides endpoints to geocode contact offices in the background and to
// monitor that job.
package admin

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/certiva/website-backend/database"
	"github.com/certiva/website-backend/internal/services/geocoder"
	"github.com/certiva/website-backend/model"
	"github.com/certiva/website-backend/restapi/modules/contact"
	"github.com/certiva/website-backend/restapi/modules/crud"
)

// BackfillStatusResponse reports the state of the geocoding job.
type BackfillStatusResponse struct {
	Running    bool       `json:"running"`
	Status     string     `json:"status"`
	Updated    int        `json:"updated"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Backfill runs at most one office geocoding job at a time.
type Backfill struct {
	store    database.Store[model.ContactOffice]
	geocoder geocoder.Geocoder
	env      crud.Env
	timeout  time.Duration

	mu     sync.Mutex
	state  BackfillStatusResponse
	done   chan struct{}
	cancel context.CancelFunc
}

// NewBackfill returns a job runner. A nil geocoder makes every start fail
// with 503.
func NewBackfill(store database.Store[model.ContactOffice], g geocoder.Geocoder, env crud.Env) *Backfill {
	return &Backfill{store: store, geocoder: g, env: env, timeout: time.Hour, state: BackfillStatusResponse{Status: "idle"}}
}

// PostGeocodeOffices starts the job in the background.
func (b *Backfill) PostGeocodeOffices() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if b.geocoder == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Geocoding is disabled"})
		}
		if !b.start() {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error":  "Backfill already in progress",
				"status": b.Status().Status,
			})
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"message": "Office geocoding started",
			"status":  "processing",
		})
	}
}

// GetBackfillStatus returns the current status of the job.
func (b *Backfill) GetBackfillStatus() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(b.Status())
	}
}

// Status returns a snapshot of the job state.
func (b *Backfill) Status() BackfillStatusResponse {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Wait blocks until the running job, if any, has finished.
func (b *Backfill) Wait() {
	b.mu.Lock()
	done := b.done
	b.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Stop cancels the running job and waits for it.
func (b *Backfill) Stop() {
	b.mu.Lock()
	cancel := b.cancel
	b.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	b.Wait()
}

func (b *Backfill) start() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state.Running {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	b.cancel = cancel
	b.done = make(chan struct{})
	b.state = BackfillStatusResponse{Running: true, Status: "Geocoding offices without coordinates..."}
	go b.run(ctx, cancel, b.done)
	return true
}

func (b *Backfill) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	defer close(done)
	defer cancel()

	updated, err := contact.Backfill(ctx, b.store, b.geocoder, b.env.Logger)
	if updated > 0 {
		b.env.Changed(context.Background(), database.ColContactOffices, "", "backfill")
	}

	now := time.Now().UTC()
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BackfillStatusResponse{Updated: updated, FinishedAt: &now}
	if err != nil {
		b.state.Status = fmt.Sprintf("Failed: %v", err)
		b.env.Logger.Error("Office geocoding failed", zap.Int("updated", updated), zap.Error(err))
		return
	}
	b.state.Status = fmt.Sprintf("Completed: %d offices geocoded", updated)
	b.env.Logger.Info("Office geocoding completed", zap.Int("updated", updated))
}
