package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/alextanhongpin/podreport/pkg/apperr"
	"github.com/alextanhongpin/podreport/pkg/channel"
	ytclient "github.com/alextanhongpin/podreport/pkg/youtube"
)

var alice = Identity{
	UserID:    "u-1",
	ChannelID: "UC1",
	Name:      "Alice",
	Email:     "alice@example.com",
}

func newSessions(t *testing.T, secure bool) *Sessions {
	t.Helper()

	s, err := NewSessions("s3cr3t", 0, secure)
	if err != nil {
		t.Fatal(err)
	}

	return s
}

func TestSessionsRoundTrip(t *testing.T) {
	s := newSessions(t, false)

	token, err := s.Issue(alice)
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.Parse(token)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(&alice, got); diff != "" {
		t.Fatalf("want(+), got(-): %s", diff)
	}
}

func TestSessionsReject(t *testing.T) {
	s := newSessions(t, false)

	token, err := s.Issue(alice)
	if err != nil {
		t.Fatal(err)
	}

	other, err := NewSessions("other", time.Hour, false)
	if err != nil {
		t.Fatal(err)
	}

	expired := newSessions(t, false)
	expired.now = func() time.Time { return time.Now().Add(-25 * time.Hour) }
	stale, err := expired.Issue(alice)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		s     *Sessions
		token string
	}{
		{"wrong secret", other, token},
		{"tampered", s, token + "x"},
		{"expired", s, stale},
		{"garbage", s, "not-a-jwt"},
		{"empty", s, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.s.Parse(tt.token); !errors.Is(err, apperr.ErrUnauthorized) {
				t.Fatalf("want ErrUnauthorized, got %v", err)
			}
		})
	}
}

func TestNewSessionsRequiresSecret(t *testing.T) {
	if _, err := NewSessions("", time.Hour, false); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}

func TestSessionsCookie(t *testing.T) {
	tests := []struct {
		name     string
		secure   bool
		sameSite http.SameSite
	}{
		{"development", false, http.SameSiteLaxMode},
		{"production", true, http.SameSiteNoneMode},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			s := newSessions(t, tt.secure)

			rec := httptest.NewRecorder()
			s.SetCookie(rec, "token")

			cookies := rec.Result().Cookies()
			if len(cookies) != 1 {
				t.Fatalf("want 1 cookie, got %d", len(cookies))
			}

			c := cookies[0]
			if c.Name != CookieName || c.Value != "token" || !c.HttpOnly {
				t.Fatalf("unexpected cookie: %+v", c)
			}

			if c.Secure != tt.secure || c.SameSite != tt.sameSite {
				t.Fatalf("want secure %t samesite %v, got %t %v", tt.secure, tt.sameSite, c.Secure, c.SameSite)
			}

			if c.MaxAge != int(DefaultTTL.Seconds()) {
				t.Fatalf("want max age %d, got %d", int(DefaultTTL.Seconds()), c.MaxAge)
			}

			rec = httptest.NewRecorder()
			s.ClearCookie(rec)
			if c := rec.Result().Cookies()[0]; c.MaxAge >= 0 || c.Value != "" {
				t.Fatalf("cookie should be cleared, got %+v", c)
			}
		})
	}
}

func TestRequire(t *testing.T) {
	s := newSessions(t, false)

	var owner string
	h := s.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner = Owner(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("no cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("want 401, got %d", rec.Code)
		}

		var body map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}

		if diff := cmp.Diff(map[string]string{"message": "Unauthorized"}, body); diff != "" {
			t.Fatalf("want(+), got(-): %s", diff)
		}
	})

	t.Run("valid session", func(t *testing.T) {
		token, err := s.Issue(alice)
		if err != nil {
			t.Fatal(err)
		}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: token})

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Fatalf("want 204, got %d", rec.Code)
		}

		if owner != "UC1" {
			t.Fatalf("want owner UC1, got %q", owner)
		}
	})
}

func TestOwner(t *testing.T) {
	if got := Owner(context.Background()); got != "" {
		t.Fatalf("want no owner, got %q", got)
	}

	ctx := WithIdentity(context.Background(), &Identity{UserID: "u-2"})
	if got := Owner(ctx); got != "u-2" {
		t.Fatalf("want user id fallback, got %q", got)
	}
}

type profileFunc func(ctx context.Context, token *oauth2.Token) (*ytclient.Profile, error)

func (f profileFunc) Profile(ctx context.Context, token *oauth2.Token) (*ytclient.Profile, error) {
	return f(ctx, token)
}

type registrarFunc func(ctx context.Context, p *ytclient.Profile, refreshToken string) (*channel.Channel, error)

func (f registrarFunc) RegisterOrUpdate(ctx context.Context, p *ytclient.Profile, refreshToken string) (*channel.Channel, error) {
	return f(ctx, p, refreshToken)
}

func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Error(err)
		}

		if r.Form.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access","token_type":"Bearer","refresh_token":"refresh","expires_in":3600}`))
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestFlowComplete(t *testing.T) {
	srv := newTokenServer(t)

	config := GoogleConfig("client", "secret", "http://localhost/callback")
	config.Endpoint = oauth2.Endpoint{
		AuthURL:  srv.URL + "/auth",
		TokenURL: srv.URL + "/token",
	}

	var gotRefresh string
	flow := NewFlow(config,
		profileFunc(func(ctx context.Context, token *oauth2.Token) (*ytclient.Profile, error) {
			if token.AccessToken != "access" {
				t.Errorf("unexpected access token %q", token.AccessToken)
			}

			return &ytclient.Profile{UserID: "u-1", Name: "Alice", Email: "alice@example.com", ChannelID: "UC1"}, nil
		}),
		registrarFunc(func(ctx context.Context, p *ytclient.Profile, refreshToken string) (*channel.Channel, error) {
			gotRefresh = refreshToken

			return &channel.Channel{ChannelID: p.ChannelID}, nil
		}),
		zerolog.Nop(),
	)

	t.Run("success", func(t *testing.T) {
		id, err := flow.Complete(context.Background(), "good-code")
		if err != nil {
			t.Fatal(err)
		}

		if diff := cmp.Diff(&alice, id); diff != "" {
			t.Fatalf("want(+), got(-): %s", diff)
		}

		if gotRefresh != "refresh" {
			t.Fatalf("want refresh token passed to the channel, got %q", gotRefresh)
		}
	})

	t.Run("bad code", func(t *testing.T) {
		if _, err := flow.Complete(context.Background(), "bad-code"); !errors.Is(err, apperr.ErrUnauthorized) {
			t.Fatalf("want ErrUnauthorized, got %v", err)
		}
	})

	t.Run("missing code", func(t *testing.T) {
		if _, err := flow.Complete(context.Background(), ""); !errors.Is(err, ErrMissingCode) {
			t.Fatalf("want ErrMissingCode, got %v", err)
		}
	})
}

func TestFlowAuthCodeURL(t *testing.T) {
	flow := NewFlow(GoogleConfig("client", "secret", "http://localhost/callback"), nil, nil, zerolog.Nop())

	u, err := url.Parse(flow.AuthCodeURL("state-1"))
	if err != nil {
		t.Fatal(err)
	}

	q := u.Query()
	for key, want := range map[string]string{
		"state":         "state-1",
		"access_type":   "offline",
		"prompt":        "consent",
		"client_id":     "client",
		"response_type": "code",
	} {
		if got := q.Get(key); got != want {
			t.Fatalf("%s: want %q, got %q", key, want, got)
		}
	}

	if !strings.Contains(q.Get("scope"), "youtube.readonly") {
		t.Fatalf("scope should include youtube.readonly, got %q", q.Get("scope"))
	}
}
