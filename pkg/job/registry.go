package job

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

var ErrInvalidSchedule = errors.New("job: invalid schedule")

// Registry maps a job id to its live cron entry. It is populated by the
// startup scan and by create/reactivate, and cleared by cancel/deactivate.
// Compound updates are serialized so an id never owns two entries.
type Registry struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entries *AtomicMap[string, cron.EntryID]
	system  *AtomicMap[string, cron.EntryID]
}

// Entry describes one armed timer.
type Entry struct {
	ID   string    `json:"id"`
	Next time.Time `json:"next"`
}

// NewRegistry builds a registry whose timers run in loc. Overlapping fires
// of the same entry are skipped and panics are recovered.
func NewRegistry(loc *time.Location, logger zerolog.Logger) *Registry {
	if loc == nil {
		loc = time.UTC
	}

	l := cronLogger{logger.With().Str("pkg", "cron").Logger()}

	return &Registry{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
		entries: NewAtomicMap[string, cron.EntryID](),
		system:  NewAtomicMap[string, cron.EntryID](),
	}
}

// Arm registers fn under id, replacing any entry id already owns. On error
// the previous entry, if any, is left untouched.
func (r *Registry) Arm(id, spec string, fn func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entryID, err := r.cron.AddFunc(spec, fn)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidSchedule, spec, err)
	}

	if old, loaded := r.entries.Swap(id, entryID); loaded {
		r.cron.Remove(old)
	}

	return nil
}

// Schedule registers a system task under name. System tasks live beside job
// entries and are left out of Len, Armed and Entries.
func (r *Registry) Schedule(name, spec string, fn func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entryID, err := r.cron.AddFunc(spec, fn)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidSchedule, spec, err)
	}

	if old, loaded := r.system.Swap(name, entryID); loaded {
		r.cron.Remove(old)
	}

	return nil
}

func (r *Registry) Scheduled(name string) bool {
	_, ok := r.system.Get(name)

	return ok
}

// Disarm removes the entry for id. It reports whether one existed.
func (r *Registry) Disarm(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entryID, loaded := r.entries.LoadAndDelete(id)
	if loaded {
		r.cron.Remove(entryID)
	}

	return loaded
}

func (r *Registry) Armed(id string) bool {
	_, ok := r.entries.Get(id)

	return ok
}

func (r *Registry) Len() int {
	return r.entries.Len()
}

// Entries lists armed timers ordered by their next fire time.
func (r *Registry) Entries() []Entry {
	var res []Entry
	r.entries.Range(func(id string, entryID cron.EntryID) bool {
		res = append(res, Entry{
			ID:   id,
			Next: r.cron.Entry(entryID).Next,
		})

		return true
	})

	sort.Slice(res, func(i, j int) bool {
		return res[i].Next.Before(res[j].Next)
	})

	return res
}

func (r *Registry) Start() {
	r.cron.Start()
}

// Stop halts the runner and waits for in-flight fires or ctx, whichever is
// first.
func (r *Registry) Stop(ctx context.Context) error {
	done := r.cron.Stop().Done()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Err(err).Fields(keysAndValues).Msg(msg)
}
