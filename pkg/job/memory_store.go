package job

import (
	"context"
	"sort"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps jobs in process memory. It backs the "memory" database
// driver and the tests.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]Job
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs: make(map[string]Job),
		now:  time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	s.jobs[job.ID] = clone(*job)

	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, notFound(id)
	}

	job = clone(job)

	return &job, nil
}

func (s *MemoryStore) FindByUser(ctx context.Context, userID string) ([]Job, error) {
	return s.filter(func(j Job) bool {
		return j.UserID == userID
	}), nil
}

func (s *MemoryStore) FindActive(ctx context.Context) ([]Job, error) {
	return s.filter(func(j Job) bool {
		return j.IsActive
	}), nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id string, active bool, nextRun time.Time) (*Job, error) {
	return s.update(id, func(j *Job) {
		j.IsActive = active
		j.NextRun = nextRun
	})
}

func (s *MemoryStore) UpdateNextRun(ctx context.Context, id string, nextRun time.Time) error {
	_, err := s.update(id, func(j *Job) {
		j.NextRun = nextRun
	})

	return err
}

func (s *MemoryStore) RecordRun(ctx context.Context, id string, ranAt, nextRun time.Time) (*Job, error) {
	return s.update(id, func(j *Job) {
		j.RunCount++
		j.LastRun = &ranAt
		j.NextRun = nextRun
	})
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return notFound(id)
	}
	delete(s.jobs, id)

	return nil
}

func (s *MemoryStore) update(id string, fn func(j *Job)) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, notUpdated(id)
	}

	fn(&job)
	job.UpdatedAt = s.now()
	s.jobs[id] = job

	job = clone(job)

	return &job, nil
}

func (s *MemoryStore) filter(keep func(Job) bool) []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var res []Job
	for _, j := range s.jobs {
		if keep(j) {
			res = append(res, clone(j))
		}
	}

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})

	return res
}

func clone(j Job) Job {
	if j.LastRun != nil {
		t := *j.LastRun
		j.LastRun = &t
	}
	if j.Parameters.Metrics != nil {
		j.Parameters.Metrics = append([]string(nil), j.Parameters.Metrics...)
	}

	return j
}
