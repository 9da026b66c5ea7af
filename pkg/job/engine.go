package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/alextanhongpin/podreport/pkg/apperr"
)

var (
	ErrHandlerExists = errors.New("engine: handler exists")
	ErrUnknownType   = errors.New("engine: unknown job type")
	ErrJobInactive   = errors.New("engine: job is inactive")
)

// Handler executes one fire of a job.
type Handler interface {
	Handle(ctx context.Context, job *Job) error
}

type HandlerFunc func(ctx context.Context, job *Job) error

func (f HandlerFunc) Handle(ctx context.Context, job *Job) error {
	return f(ctx, job)
}

// FailurePolicy receives handler errors from scheduled fires. Nothing it does
// can reach a caller or change the job.
type FailurePolicy func(ctx context.Context, job *Job, err error)

// FireAndLog records the failure and moves on. The job stays armed.
func FireAndLog(logger zerolog.Logger) FailurePolicy {
	return func(ctx context.Context, job *Job, err error) {
		logger.Err(err).
			Str("job_id", job.ID).
			Str("job_name", job.Name).
			Str("user_id", job.UserID).
			Msg("scheduled execution failed")
	}
}

// Outcome labels a fire for the Recorder.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
	OutcomeIgnored Outcome = "ignored"
)

// Recorder observes engine activity.
type Recorder interface {
	ObserveFire(kind Type, outcome Outcome, elapsed time.Duration)
	SetArmed(n int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveFire(Type, Outcome, time.Duration) {}
func (nopRecorder) SetArmed(int)                             {}

type Option func(e *Engine)

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = logger.With().Str("pkg", "job").Logger()
	}
}

func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		e.loc = loc
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// DefaultTimeout bounds a fire unless WithTimeout says otherwise.
const DefaultTimeout = 10 * time.Minute

// WithTimeout bounds a single fire, including the handler. Non-positive
// values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func WithFailurePolicy(policy FailurePolicy) Option {
	return func(e *Engine) {
		e.policy = policy
	}
}

func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// Engine arms, fires and tears down job timers. Job state lives in the
// Store; the Registry is a cache that Start rebuilds from it.
type Engine struct {
	store    Store
	registry *Registry

	mu       sync.RWMutex
	handlers map[Type]Handler

	log      zerolog.Logger
	loc      *time.Location
	now      func() time.Time
	timeout  time.Duration
	policy   FailurePolicy
	recorder Recorder
}

func NewEngine(store Store, registry *Registry, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		registry: registry,
		handlers: make(map[Type]Handler),
		log:      zerolog.Nop(),
		loc:      time.UTC,
		now:      time.Now,
		timeout:  DefaultTimeout,
		recorder: nopRecorder{},
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.policy == nil {
		e.policy = FireAndLog(e.log)
	}

	return e
}

// Handle registers the handler for a job kind.
func (e *Engine) Handle(kind Type, h Handler) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownType, kind)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.handlers[kind]; ok {
		return fmt.Errorf("%w: %s", ErrHandlerExists, kind)
	}
	e.handlers[kind] = h

	return nil
}

// Now returns the current time in the engine's location.
func (e *Engine) Now() time.Time {
	return e.now().In(e.loc)
}

// NextRun computes the next fire of expr relative to Now.
func (e *Engine) NextRun(expr string) (time.Time, error) {
	return NextRun(expr, e.Now())
}

// Start re-derives schedule state from the store: every active job gets a
// fresh next run and a timer. A job that fails to arm is logged and skipped.
func (e *Engine) Start(ctx context.Context) error {
	jobs, err := e.store.FindActive(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to load active jobs", err)
	}

	for i := range jobs {
		job := &jobs[i]

		next, err := e.NextRun(job.CronExpression)
		if err != nil {
			e.log.Err(err).Str("job_id", job.ID).Msg("failed to compute next run")

			continue
		}

		if !job.NextRun.Equal(next) {
			if err := e.store.UpdateNextRun(ctx, job.ID, next); err != nil {
				e.log.Err(err).Str("job_id", job.ID).Msg("failed to refresh next run")

				continue
			}
			job.NextRun = next
		}

		if err := e.Arm(job); err != nil {
			e.log.Err(err).Str("job_id", job.ID).Msg("failed to arm job")
		}
	}

	e.registry.Start()
	e.log.Info().Int("armed", e.registry.Len()).Msg("engine started")

	return nil
}

// Stop halts the timers and waits for running fires.
func (e *Engine) Stop(ctx context.Context) error {
	err := e.registry.Stop(ctx)
	e.log.Info().Msg("engine stopped")

	return err
}

// Arm creates or replaces the timer for an active job.
func (e *Engine) Arm(job *Job) error {
	if !job.IsActive {
		return fmt.Errorf("%w: %s", ErrJobInactive, job.ID)
	}

	id := job.ID
	if err := e.registry.Arm(id, job.CronExpression, func() {
		e.run(id)
	}); err != nil {
		return err
	}

	e.recorder.SetArmed(e.registry.Len())
	e.log.Debug().Str("job_id", id).Str("cron", job.CronExpression).Msg("armed")

	return nil
}

// Disarm removes the timer for id if there is one.
func (e *Engine) Disarm(id string) bool {
	ok := e.registry.Disarm(id)
	e.recorder.SetArmed(e.registry.Len())

	return ok
}

// Armed reports whether id currently has a live timer.
func (e *Engine) Armed(id string) bool {
	return e.registry.Armed(id)
}

// Entries lists the armed job timers, soonest first. System tasks are not
// included.
func (e *Engine) Entries() []Entry {
	return e.registry.Entries()
}

// Scheduled reports whether a system task called name exists.
func (e *Engine) Scheduled(name string) bool {
	return e.registry.Scheduled(name)
}

// Schedule arms a process-level task that is not backed by a stored job.
// It shares the cron runner with job timers but is not counted as an armed
// job. Failures go through the same policy as job fires.
func (e *Engine) Schedule(name, spec string, fn func(ctx context.Context) error) error {
	system := &Job{ID: name, Name: name, UserID: "system"}

	return e.registry.Schedule(name, spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			e.policy(ctx, system, err)
		}
	})
}

// Fire runs one execution of the job: bookkeeping first, then the handler.
// Only bookkeeping errors are returned; handler errors are passed to the
// failure policy.
func (e *Engine) Fire(ctx context.Context, id string) (*Job, error) {
	job, err := e.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !job.IsActive {
		e.Disarm(id)

		return nil, fmt.Errorf("%w: %s", ErrJobInactive, id)
	}

	now := e.Now()
	next, err := NextRun(job.CronExpression, now)
	if err != nil {
		return nil, err
	}

	job, err = e.store.RecordRun(ctx, id, now, next)
	if err != nil {
		return nil, err
	}

	e.execute(ctx, job)

	return job, nil
}

func (e *Engine) run(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
	defer cancel()

	log := e.log.With().Str("job_id", id).Logger()
	log.Info().Msg("firing")

	if _, err := e.Fire(ctx, id); err != nil {
		log.Err(err).Msg("failed to fire job")

		// The record is gone; a timer without one must not keep firing.
		if errors.Is(err, apperr.ErrNotFound) {
			e.Disarm(id)
		}
	}
}

func (e *Engine) execute(ctx context.Context, job *Job) {
	e.mu.RLock()
	h, ok := e.handlers[job.Type]
	e.mu.RUnlock()

	if !ok {
		e.log.Warn().Str("job_id", job.ID).Str("type", job.Type.String()).Msg("no handler for job type")
		e.recorder.ObserveFire(job.Type, OutcomeIgnored, 0)

		return
	}

	start := time.Now()
	err := h.Handle(ctx, job)
	elapsed := time.Since(start)

	if err != nil {
		e.recorder.ObserveFire(job.Type, OutcomeFailed, elapsed)
		e.policy(ctx, job, err)

		return
	}

	e.recorder.ObserveFire(job.Type, OutcomeSuccess, elapsed)
	e.log.Info().
		Str("job_id", job.ID).
		Int("run_count", job.RunCount).
		Dur("elapsed", elapsed).
		Msg("job executed")
}
