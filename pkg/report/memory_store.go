package report

import (
	"context"
	"sort"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]Report
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reports: make(map[string]Report),
	}
}

func (s *MemoryStore) Create(ctx context.Context, r *Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports[r.ID] = clone(*r)

	return nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[id]
	if !ok {
		return nil, notFound(id)
	}

	r = clone(r)

	return &r, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]Report, 0, len(s.reports))
	for _, r := range s.reports {
		res = append(res, clone(r))
	}

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].GeneratedAt.After(res[j].GeneratedAt)
	})

	return res, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[id]; !ok {
		return notFound(id)
	}
	delete(s.reports, id)

	return nil
}

func (s *MemoryStore) DeleteMany(ctx context.Context, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for _, id := range ids {
		if _, ok := s.reports[id]; ok {
			delete(s.reports, id)
			n++
		}
	}

	return n, nil
}

func clone(r Report) Report {
	r.Insights = append([]string(nil), r.Insights...)

	return r
}
