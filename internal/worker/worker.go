// Package worker runs periodic background maintenance.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/papertrail/internal/telemetry"
)

// OverdueMarker flips pending invoices past their due date to overdue.
// postgres.InvoiceRepository implements it.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, cutoff time.Time) (int, error)
}

// Config holds worker configuration
type Config struct {
	// WorkerID identifies this instance in logs
	WorkerID string

	// Interval between sweeps. Zero disables the sweeper.
	Interval time.Duration

	// Timeout bounds a single sweep
	Timeout time.Duration
}

// OverdueSweeper periodically marks pending invoices overdue.
type OverdueSweeper struct {
	config   Config
	invoices OverdueMarker
	logger   *slog.Logger
	now      func() time.Time
}

// NewOverdueSweeper creates a new sweeper
func NewOverdueSweeper(invoices OverdueMarker, config Config, logger *slog.Logger) *OverdueSweeper {
	if config.WorkerID == "" {
		config.WorkerID = fmt.Sprintf("sweeper-%s", uuid.New().String()[:8])
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &OverdueSweeper{
		config:   config,
		invoices: invoices,
		logger:   logger,
		now:      time.Now,
	}
}

// Start sweeps once immediately, then on every tick until ctx is cancelled.
// It returns nil at once when the interval is zero.
func (s *OverdueSweeper) Start(ctx context.Context) error {
	if s.config.Interval <= 0 {
		s.logger.Info("overdue sweeper disabled")
		return nil
	}

	s.logger.Info("overdue sweeper starting",
		"worker_id", s.config.WorkerID,
		"interval", s.config.Interval,
	)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("overdue sweep failed", "worker_id", s.config.WorkerID, "error", err)
		}

		select {
		case <-ctx.Done():
			s.logger.Info("overdue sweeper shutting down", "worker_id", s.config.WorkerID)
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Sweep runs one pass and returns how many invoices changed.
func (s *OverdueSweeper) Sweep(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	count, err := s.invoices.MarkOverdue(ctx, s.now())
	if err != nil {
		telemetry.CaptureError(err, map[string]interface{}{"worker_id": s.config.WorkerID})
		return 0, fmt.Errorf("mark overdue invoices: %w", err)
	}

	if count > 0 {
		telemetry.Business.RecordOverdue(count)
		s.logger.Info("marked invoices as overdue", "count", count)
	}
	return count, nil
}
