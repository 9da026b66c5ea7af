package report

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/alextanhongpin/podreport/pkg/apperr"
	"github.com/alextanhongpin/podreport/pkg/job"
	"github.com/alextanhongpin/podreport/pkg/storage"
	"github.com/alextanhongpin/podreport/pkg/youtube"
)

// Download is a stored document ready to be sent.
type Download struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Service struct {
	gen     *Generator
	store   Store
	storage storage.Storage
	log     zerolog.Logger
}

func NewService(gen *Generator, store Store, st storage.Storage, logger zerolog.Logger) *Service {
	return &Service{
		gen:     gen,
		store:   store,
		storage: st,
		log:     logger.With().Str("pkg", "report").Logger(),
	}
}

// Generate defaults to a lifetime manual report.
func (s *Service) Generate(ctx context.Context, period string, generatedBy GeneratedBy) (*Report, error) {
	if period == "" {
		period = youtube.Lifetime
	}
	if generatedBy == "" {
		generatedBy = Manual
	}
	if !generatedBy.Valid() {
		return nil, fmt.Errorf("%w: generatedBy must be manual or scheduled", apperr.ErrValidation)
	}

	return s.gen.Generate(ctx, Options{
		Period:      period,
		GeneratedBy: generatedBy,
	})
}

// JobHandler generates a scheduled report for each fire of a job.
func (s *Service) JobHandler() job.Handler {
	return job.HandlerFunc(func(ctx context.Context, j *job.Job) error {
		period := j.Parameters.Period
		if period == "" {
			period = j.Period
		}

		_, err := s.Generate(ctx, period, Scheduled)

		return err
	})
}

func (s *Service) List(ctx context.Context) ([]Report, error) {
	reports, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInternal, err)
	}

	if reports == nil {
		reports = []Report{}
	}

	return reports, nil
}

func (s *Service) Download(ctx context.Context, id string) (*Download, error) {
	r, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err := s.storage.Get(ctx, storageKey(r))
	if errors.Is(err, apperr.ErrNotFound) {
		s.log.Warn().Str("report_id", id).Str("path", r.FilePath).Msg("report file not found")

		return nil, fmt.Errorf("%w: report file", apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read report file: %w", apperr.ErrUpstream, err)
	}

	return &Download{
		Filename:    storageKey(r),
		ContentType: ContentType,
		Data:        data,
	}, nil
}

// Delete removes the record. A document that cannot be deleted is logged and
// left behind.
func (s *Service) Delete(ctx context.Context, id string) (*Report, error) {
	r, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.storage.Delete(ctx, storageKey(r)); err != nil {
		s.log.Err(err).Str("report_id", id).Msg("failed to delete report file")
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return nil, s.wrap(err)
	}

	s.log.Info().Str("report_id", id).Msg("report deleted")

	return r, nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	reports, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	return NewStats(reports, s.storage.Kind()), nil
}

// Cleanup deletes records whose document no longer exists.
func (s *Service) Cleanup(ctx context.Context) (*CleanupResult, error) {
	reports, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	var orphans []string
	for i := range reports {
		ok, err := s.storage.Exists(ctx, storageKey(&reports[i]))
		if err != nil {
			s.log.Err(err).Str("report_id", reports[i].ID).Msg("failed to verify report file")

			continue
		}
		if !ok {
			orphans = append(orphans, reports[i].ID)
		}
	}

	n, err := s.store.DeleteMany(ctx, orphans)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrInternal, err)
	}

	if n > 0 {
		s.log.Info().Int("cleaned", n).Msg("cleaned up orphaned reports")
	}

	return &CleanupResult{
		Cleaned:   n,
		Remaining: len(reports) - n,
	}, nil
}

func (s *Service) find(ctx context.Context, id string) (*Report, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: Report ID is required", apperr.ErrValidation)
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, notFound(id)
	}

	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.wrap(err)
	}

	return r, nil
}

func (s *Service) wrap(err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return err
	}

	return fmt.Errorf("%w: %w", apperr.ErrInternal, err)
}

// storageKey is the key the document was stored under. Records written
// before keys were kept fall back to the file name.
func storageKey(r *Report) string {
	if r.PublicID != "" {
		return r.PublicID
	}

	return filepath.Base(r.FilePath)
}
