package channel

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/alextanhongpin/podreport/pkg/apperr"
	"github.com/alextanhongpin/podreport/pkg/youtube"
)

// StatsReader fetches live channel statistics.
type StatsReader interface {
	LiveStats(ctx context.Context, refreshToken string) (*youtube.LiveStats, error)
}

// Info is the linked channel with its live statistics.
type Info struct {
	Channel
	LiveStats *youtube.LiveStats `json:"liveStats"`
}

type Service struct {
	store Store
	stats StatsReader
	log   zerolog.Logger
}

func NewService(store Store, stats StatsReader, logger zerolog.Logger) *Service {
	return &Service{
		store: store,
		stats: stats,
		log:   logger.With().Str("pkg", "channel").Logger(),
	}
}

// Linked returns the channel reports are generated for.
func (s *Service) Linked(ctx context.Context) (*Channel, error) {
	return s.store.FindLinked(ctx)
}

func (s *Service) Info(ctx context.Context) (*Info, error) {
	c, err := s.store.FindLinked(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := s.stats.LiveStats(ctx, c.RefreshToken)
	if err != nil {
		return nil, err
	}

	return &Info{
		Channel:   *c,
		LiveStats: stats,
	}, nil
}

func (s *Service) Add(ctx context.Context, in CreateInput) (*Channel, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	c := &Channel{
		ID:           uuid.NewString(),
		ChannelID:    in.ChannelID,
		Title:        in.Title,
		Description:  in.Description,
		ThumbnailURL: in.ThumbnailURL,
		RefreshToken: in.RefreshToken,
		CustomName:   in.CustomName,
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}

	s.log.Info().Str("channel_id", c.ChannelID).Msg("channel registered")

	return c, nil
}

func (s *Service) Update(ctx context.Context, channelID string, p Patch) (*Channel, error) {
	if channelID == "" {
		return nil, fmt.Errorf("%w: Channel ID is required", apperr.ErrValidation)
	}

	return s.store.Update(ctx, channelID, p)
}

func (s *Service) Delete(ctx context.Context, channelID string) error {
	if channelID == "" {
		return fmt.Errorf("%w: Channel ID is required", apperr.ErrValidation)
	}

	if err := s.store.Delete(ctx, channelID); err != nil {
		return err
	}

	s.log.Info().Str("channel_id", channelID).Msg("channel deleted")

	return nil
}

// RegisterOrUpdate links the channel behind a fresh sign-in. A known channel
// only gets its refresh token replaced.
func (s *Service) RegisterOrUpdate(ctx context.Context, p *youtube.Profile, refreshToken string) (*Channel, error) {
	channelID := p.ChannelID
	if channelID == "" {
		channelID = p.UserID
	}

	c, err := s.store.FindByChannelID(ctx, channelID)
	switch {
	case err == nil:
		// Google only returns a refresh token on forced consent.
		if refreshToken == "" || refreshToken == c.RefreshToken {
			return c, nil
		}

		return s.store.UpdateRefreshToken(ctx, channelID, refreshToken)
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}

	title := p.ChannelTitle
	if title == "" {
		title = p.Name
	}
	if title == "" {
		title = "Unknown Channel"
	}

	c = &Channel{
		ID:           uuid.NewString(),
		ChannelID:    channelID,
		Title:        title,
		Description:  p.Description,
		ThumbnailURL: p.ThumbnailURL,
		RefreshToken: refreshToken,
	}
	if err := s.store.Create(ctx, c); err != nil {
		return nil, err
	}

	s.log.Info().Str("channel_id", channelID).Msg("channel linked on sign-in")

	return c, nil
}
