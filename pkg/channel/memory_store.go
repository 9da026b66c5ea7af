package channel

import (
	"context"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

type MemoryStore struct {
	mu       sync.RWMutex
	channels []Channel
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) FindLinked(ctx context.Context) (*Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.channels) == 0 {
		return nil, noChannel()
	}

	c := s.channels[0]

	return &c, nil
}

func (s *MemoryStore) FindByChannelID(ctx context.Context, channelID string) (*Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.index(channelID)
	if i < 0 {
		return nil, notFound(channelID)
	}

	c := s.channels[i]

	return &c, nil
}

func (s *MemoryStore) Create(ctx context.Context, c *Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index(c.ChannelID) >= 0 {
		return duplicate(c.ChannelID)
	}

	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.channels = append(s.channels, *c)

	return nil
}

func (s *MemoryStore) Update(ctx context.Context, channelID string, p Patch) (*Channel, error) {
	return s.update(channelID, p.apply)
}

func (s *MemoryStore) UpdateRefreshToken(ctx context.Context, channelID, refreshToken string) (*Channel, error) {
	return s.update(channelID, func(c *Channel) {
		c.RefreshToken = refreshToken
	})
}

func (s *MemoryStore) Delete(ctx context.Context, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(channelID)
	if i < 0 {
		return notFound(channelID)
	}
	s.channels = append(s.channels[:i], s.channels[i+1:]...)

	return nil
}

func (s *MemoryStore) update(channelID string, fn func(c *Channel)) (*Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(channelID)
	if i < 0 {
		return nil, notFound(channelID)
	}

	fn(&s.channels[i])
	s.channels[i].UpdatedAt = time.Now()
	c := s.channels[i]

	return &c, nil
}

func (s *MemoryStore) index(channelID string) int {
	for i, c := range s.channels {
		if c.ChannelID == channelID {
			return i
		}
	}

	return -1
}
