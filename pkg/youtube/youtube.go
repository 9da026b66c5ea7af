// Package youtube reads channel profiles, live statistics and analytics on
// behalf of a channel owner.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
	"google.golang.org/api/youtubeanalytics/v2"

	"github.com/alextanhongpin/podreport/pkg/apperr"
)

// LiveStats is the current public state of a channel.
type LiveStats struct {
	Title           string `json:"title"`
	ThumbnailURL    string `json:"thumbnailUrl"`
	ViewCount       uint64 `json:"viewCount"`
	SubscriberCount uint64 `json:"subscriberCount"`
	VideoCount      uint64 `json:"videoCount"`
}

// Profile identifies the Google account that signed in and the channel it
// owns, if any.
type Profile struct {
	UserID       string `json:"id"`
	Email        string `json:"email,omitempty"`
	Name         string `json:"displayName"`
	ChannelID    string `json:"channelId,omitempty"`
	ChannelTitle string `json:"channelTitle,omitempty"`
	Description  string `json:"-"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

type Client struct {
	config *oauth2.Config
	opts   []option.ClientOption
	log    zerolog.Logger
	now    func() time.Time
	cb     *gobreaker.CircuitBreaker
}

// New returns a client that authorizes every call with tokens minted by
// config. opts are applied to every Google API service.
//
// Calls share one circuit breaker. Once most recent calls failed upstream,
// further calls fail fast with ErrUpstream until the breaker half-opens.
func New(config *oauth2.Config, logger zerolog.Logger, opts ...option.ClientOption) *Client {
	log := logger.With().Str("pkg", "youtube").Logger()

	return &Client{
		config: config,
		opts:   opts,
		log:    log,
		now:    time.Now,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "youtube",
			MaxRequests: 3,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			// Missing channels and bad input are the caller's problem.
			IsSuccessful: func(err error) bool {
				return err == nil || !errors.Is(err, apperr.ErrUpstream)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().
					Str("breaker", name).
					Stringer("from", from).
					Stringer("to", to).
					Msg("circuit breaker state changed")
			},
		}),
	}
}

// guard runs fn through the client's circuit breaker.
func guard[T any](c *Client, fn func() (T, error)) (T, error) {
	v, err := c.cb.Execute(func() (interface{}, error) {
		return fn()
	})

	res, _ := v.(T)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return res, upstream(err, "youtube unavailable")
	}

	return res, err
}

// Profile reads the signed-in account and its channel with a freshly
// exchanged token.
func (c *Client) Profile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	return guard(c, func() (*Profile, error) {
		return c.profile(ctx, token)
	})
}

func (c *Client) profile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	hc := c.httpClient(ctx, c.config.TokenSource(ctx, token))

	users, err := oauth2api.NewService(ctx, c.options(hc)...)
	if err != nil {
		return nil, upstream(err, "failed to create oauth2 service")
	}

	info, err := users.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, upstream(err, "failed to fetch user info")
	}

	p := &Profile{
		UserID: info.Id,
		Email:  info.Email,
		Name:   info.Name,
	}

	ch, err := c.mine(ctx, hc)
	if err != nil {
		return nil, err
	}

	if ch != nil {
		p.ChannelID = ch.Id
		if ch.Snippet != nil {
			p.ChannelTitle = ch.Snippet.Title
			p.Description = ch.Snippet.Description
			p.ThumbnailURL = thumbnail(ch.Snippet.Thumbnails)
		}
	}

	return p, nil
}

// LiveStats reads the public counters of the channel owning refreshToken.
func (c *Client) LiveStats(ctx context.Context, refreshToken string) (*LiveStats, error) {
	return guard(c, func() (*LiveStats, error) {
		return c.liveStats(ctx, refreshToken)
	})
}

func (c *Client) liveStats(ctx context.Context, refreshToken string) (*LiveStats, error) {
	ch, err := c.mine(ctx, c.refreshClient(ctx, refreshToken))
	if err != nil {
		return nil, err
	}

	if ch == nil {
		return nil, fmt.Errorf("%w: channel not found", apperr.ErrNotFound)
	}

	stats := &LiveStats{}
	if ch.Snippet != nil {
		stats.Title = ch.Snippet.Title
		stats.ThumbnailURL = thumbnail(ch.Snippet.Thumbnails)
	}
	if ch.Statistics != nil {
		stats.ViewCount = ch.Statistics.ViewCount
		stats.SubscriberCount = ch.Statistics.SubscriberCount
		stats.VideoCount = ch.Statistics.VideoCount
	}

	return stats, nil
}

func (c *Client) mine(ctx context.Context, hc *http.Client) (*youtube.Channel, error) {
	svc, err := youtube.NewService(ctx, c.options(hc)...)
	if err != nil {
		return nil, upstream(err, "failed to create youtube service")
	}

	res, err := svc.Channels.List([]string{"snippet", "statistics"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return nil, upstream(err, "failed to list channels")
	}

	if len(res.Items) == 0 {
		return nil, nil
	}

	return res.Items[0], nil
}

func (c *Client) analytics(ctx context.Context, refreshToken string) (*youtubeanalytics.Service, error) {
	svc, err := youtubeanalytics.NewService(ctx, c.options(c.refreshClient(ctx, refreshToken))...)
	if err != nil {
		return nil, upstream(err, "failed to create analytics service")
	}

	return svc, nil
}

func (c *Client) refreshClient(ctx context.Context, refreshToken string) *http.Client {
	return c.httpClient(ctx, c.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}))
}

func (c *Client) httpClient(ctx context.Context, ts oauth2.TokenSource) *http.Client {
	return oauth2.NewClient(ctx, ts)
}

func (c *Client) options(hc *http.Client) []option.ClientOption {
	opts := make([]option.ClientOption, 0, len(c.opts)+1)
	opts = append(opts, c.opts...)

	return append(opts, option.WithHTTPClient(hc))
}

func thumbnail(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}

	for _, th := range []*youtube.Thumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}

	return ""
}

func upstream(err error, msg string) error {
	return fmt.Errorf("%w: %s: %w", apperr.ErrUpstream, msg, err)
}
