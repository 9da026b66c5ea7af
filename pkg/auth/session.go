package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/alextanhongpin/podreport/pkg/apperr"
)

const (
	CookieName = "sessionId"
	DefaultTTL = 24 * time.Hour
	issuer     = "podreport"
)

type claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"userId"`
	ChannelID string `json:"channelId,omitempty"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
}

// Sessions issues and verifies session tokens and the cookie that carries
// them.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewSessions returns sessions signed with secret. secure marks the cookie
// Secure with SameSite=None for cross-site frontends.
func NewSessions(secret string, ttl time.Duration, secure bool) (*Sessions, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: session secret is required", apperr.ErrValidation)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Sessions{
		secret: []byte(secret),
		ttl:    ttl,
		secure: secure,
		now:    time.Now,
	}, nil
}

func (s *Sessions) Issue(id Identity) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID:    id.UserID,
		ChannelID: id.ChannelID,
		Name:      id.Name,
		Email:     id.Email,
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("%w: failed to sign session: %w", apperr.ErrInternal, err)
	}

	return signed, nil
}

// Parse verifies token and returns its identity. Any failure is
// ErrUnauthorized.
func (s *Sessions) Parse(token string) (*Identity, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrUnauthorized, err)
	}

	if c.UserID == "" {
		return nil, fmt.Errorf("%w: session has no user", apperr.ErrUnauthorized)
	}

	return &Identity{
		UserID:    c.UserID,
		ChannelID: c.ChannelID,
		Name:      c.Name,
		Email:     c.Email,
	}, nil
}

// FromRequest reads the session cookie.
func (s *Sessions) FromRequest(r *http.Request) (*Identity, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, fmt.Errorf("%w: no session", apperr.ErrUnauthorized)
	}

	return s.Parse(cookie.Value)
}

func (s *Sessions) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, s.cookie(token, int(s.ttl.Seconds())))
}

func (s *Sessions) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, s.cookie("", -1))
}

func (s *Sessions) cookie(value string, maxAge int) *http.Cookie {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if s.secure {
		c.SameSite = http.SameSiteNoneMode
	}

	return c
}

// Require rejects requests without a valid session and puts the identity in
// the request context.
func (s *Sessions) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.FromRequest(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{
				"message": "Unauthorized",
			})

			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}
