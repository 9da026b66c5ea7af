package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alextanhongpin/podreport/pkg/apperr"
)

var ErrNotUpdated = errors.New("store: not updated")

// Store persists job definitions. It is the only owner of Job records.
type Store interface {
	Create(ctx context.Context, job *Job) error
	FindByID(ctx context.Context, id string) (*Job, error)
	// FindByUser returns the owner's jobs, newest first.
	FindByUser(ctx context.Context, userID string) ([]Job, error)
	FindActive(ctx context.Context) ([]Job, error)
	UpdateStatus(ctx context.Context, id string, active bool, nextRun time.Time) (*Job, error)
	UpdateNextRun(ctx context.Context, id string, nextRun time.Time) error
	// RecordRun increments the run count and stores the run timestamps.
	RecordRun(ctx context.Context, id string, ranAt, nextRun time.Time) (*Job, error)
	Delete(ctx context.Context, id string) error
}

func notFound(id string) error {
	return fmt.Errorf("%w: job %s", apperr.ErrNotFound, id)
}

func notUpdated(id string) error {
	return fmt.Errorf("%w: %w: id=%s", ErrNotUpdated, apperr.ErrNotFound, id)
}
