package job

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/alextanhongpin/podreport/pkg/apperr"
)

// Service is the owner-scoped API over the store and the engine.
type Service struct {
	store  Store
	engine *Engine
	log    zerolog.Logger
}

func NewService(store Store, engine *Engine, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		engine: engine,
		log:    logger.With().Str("pkg", "job").Logger(),
	}
}

// Create persists an active job for owner and arms it.
func (s *Service) Create(ctx context.Context, owner string, in CreateInput) (*Job, error) {
	if owner == "" {
		return nil, apperr.ErrUnauthorized
	}

	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrValidation, err)
	}

	expr, err := in.Frequency.CronExpression()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrValidation, err)
	}

	next, err := s.engine.NextRun(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInternal, err)
	}

	params := Parameters{Period: in.Period}
	if in.Parameters != nil {
		params = *in.Parameters
		if params.Period == "" {
			params.Period = in.Period
		}
	}

	job := &Job{
		ID:             uuid.NewString(),
		UserID:         owner,
		Name:           in.Name,
		Type:           ReportGeneration,
		Frequency:      in.Frequency,
		Period:         in.Period,
		Parameters:     params,
		CronExpression: expr,
		IsActive:       true,
		NextRun:        next,
		RunCount:       0,
	}

	if err := s.store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInternal, err)
	}

	if err := s.engine.Arm(job); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInternal, err)
	}

	s.log.Info().
		Str("job_id", job.ID).
		Str("user_id", owner).
		Str("frequency", job.Frequency.String()).
		Time("next_run", job.NextRun).
		Msg("job scheduled")

	return job, nil
}

// List returns owner's jobs, most recently created first.
func (s *Service) List(ctx context.Context, owner string) ([]Job, error) {
	if owner == "" {
		return nil, apperr.ErrUnauthorized
	}

	jobs, err := s.store.FindByUser(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInternal, err)
	}

	if jobs == nil {
		jobs = []Job{}
	}

	return jobs, nil
}

// Stats scans owner's jobs at call time.
func (s *Service) Stats(ctx context.Context, owner string) (*Stats, error) {
	jobs, err := s.List(ctx, owner)
	if err != nil {
		return nil, err
	}

	stats := NewStats(jobs)

	owned := make(map[string]bool, len(jobs))
	for _, j := range jobs {
		owned[j.ID] = true
	}
	for _, entry := range s.engine.Entries() {
		if owned[entry.ID] {
			stats.Upcoming = append(stats.Upcoming, entry)
		}
	}

	return stats, nil
}

// Cancel removes the timer and deletes the job. Another owner's job is
// reported as not found and left untouched.
func (s *Service) Cancel(ctx context.Context, owner, id string) error {
	if _, err := s.find(ctx, owner, id); err != nil {
		return err
	}

	s.engine.Disarm(id)

	if err := s.store.Delete(ctx, id); err != nil {
		return s.wrap(err)
	}

	s.log.Info().Str("job_id", id).Str("user_id", owner).Msg("job cancelled")

	return nil
}

// UpdateStatus activates or deactivates a job. Activation recomputes the
// next run and re-arms; deactivation removes the timer.
func (s *Service) UpdateStatus(ctx context.Context, owner, id string, active bool) (*Job, error) {
	job, err := s.find(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	if !active {
		job, err = s.store.UpdateStatus(ctx, id, false, job.NextRun)
		if err != nil {
			return nil, s.wrap(err)
		}

		s.engine.Disarm(id)
		s.log.Info().Str("job_id", id).Msg("job deactivated")

		return job, nil
	}

	next, err := s.engine.NextRun(job.CronExpression)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInternal, err)
	}

	job, err = s.store.UpdateStatus(ctx, id, true, next)
	if err != nil {
		return nil, s.wrap(err)
	}

	if err := s.engine.Arm(job); err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInternal, err)
	}

	s.log.Info().Str("job_id", id).Time("next_run", next).Msg("job activated")

	return job, nil
}

func (s *Service) find(ctx context.Context, owner, id string) (*Job, error) {
	if owner == "" {
		return nil, apperr.ErrUnauthorized
	}

	if id == "" {
		return nil, fmt.Errorf("%w: job id is required", apperr.ErrValidation)
	}

	// Ids are uuids; anything else cannot exist in any store.
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: job %s", apperr.ErrNotFound, id)
	}

	job, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.wrap(err)
	}

	if job.UserID != owner {
		return nil, fmt.Errorf("%w: job %s", apperr.ErrNotFound, id)
	}

	return job, nil
}

func (s *Service) wrap(err error) error {
	if apperr.StatusCode(err) != http.StatusInternalServerError {
		return err
	}

	return fmt.Errorf("%w: %w", apperr.ErrInternal, err)
}
