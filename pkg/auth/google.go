package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/youtube/v3"
	"google.golang.org/api/youtubeanalytics/v2"

	"github.com/alextanhongpin/podreport/pkg/apperr"
	"github.com/alextanhongpin/podreport/pkg/channel"
	ytclient "github.com/alextanhongpin/podreport/pkg/youtube"
)

// Scopes requested at sign in. Analytics needs its own read scope.
var Scopes = []string{
	oauth2api.OpenIDScope,
	oauth2api.UserinfoEmailScope,
	oauth2api.UserinfoProfileScope,
	youtube.YoutubeReadonlyScope,
	youtubeanalytics.YtAnalyticsReadonlyScope,
}

// GoogleConfig is the OAuth client used both for sign in and for refreshing
// the stored channel token.
func GoogleConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint:     google.Endpoint,
	}
}

var ErrMissingCode = errors.New("missing authorization code")

type ProfileReader interface {
	Profile(ctx context.Context, token *oauth2.Token) (*ytclient.Profile, error)
}

type ChannelRegistrar interface {
	RegisterOrUpdate(ctx context.Context, p *ytclient.Profile, refreshToken string) (*channel.Channel, error)
}

// Flow runs the authorization-code exchange and links the caller's channel.
type Flow struct {
	config   *oauth2.Config
	profiles ProfileReader
	channels ChannelRegistrar
	log      zerolog.Logger
}

func NewFlow(config *oauth2.Config, profiles ProfileReader, channels ChannelRegistrar, logger zerolog.Logger) *Flow {
	return &Flow{
		config:   config,
		profiles: profiles,
		channels: channels,
		log:      logger.With().Str("pkg", "auth").Logger(),
	}
}

// AuthCodeURL always asks for offline access with forced consent, so Google
// returns a refresh token on every sign in.
func (f *Flow) AuthCodeURL(state string) string {
	return f.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Complete exchanges code and registers the caller's channel.
func (f *Flow) Complete(ctx context.Context, code string) (*Identity, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: %w", apperr.ErrValidation, ErrMissingCode)
	}

	token, err := f.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange code: %w", apperr.ErrUnauthorized, err)
	}

	profile, err := f.profiles.Profile(ctx, token)
	if err != nil {
		return nil, err
	}

	ch, err := f.channels.RegisterOrUpdate(ctx, profile, token.RefreshToken)
	if err != nil {
		return nil, err
	}

	f.log.Info().
		Str("user_id", profile.UserID).
		Str("channel_id", ch.ChannelID).
		Msg("signed in")

	return &Identity{
		UserID:    profile.UserID,
		ChannelID: ch.ChannelID,
		Name:      profile.Name,
		Email:     profile.Email,
	}, nil
}
