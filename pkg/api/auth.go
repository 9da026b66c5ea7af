package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/google/uuid"

	"github.com/alextanhongpin/podreport/pkg/auth"
)

const (
	stateCookie = "oauthState"
	stateTTL    = 10 * time.Minute
)

// Authenticator runs the Google sign in.
type Authenticator interface {
	AuthCodeURL(state string) string
	Complete(ctx context.Context, code string) (*auth.Identity, error)
}

type statusResponse struct {
	Authenticated bool           `json:"authenticated"`
	User          *auth.Identity `json:"user"`
}

func (a *API) authRoutes(r chi.Router) {
	r.Get("/google", a.login)
	r.Get("/google/callback", a.callback)
	r.Get("/status", a.status)
	r.Post("/logout", a.logout)
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/api/auth",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, a.authenticator.AuthCodeURL(state), http.StatusFound)
}

func (a *API) callback(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Path:     "/api/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secure,
	})

	failed := a.frontendURL + "/login?error=auth_failed"

	cookie, err := r.Cookie(stateCookie)
	state := r.URL.Query().Get("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		a.log.Warn().Msg("oauth state mismatch")
		http.Redirect(w, r, failed, http.StatusFound)

		return
	}

	if e := r.URL.Query().Get("error"); e != "" {
		a.log.Warn().Str("error", e).Msg("google sign in denied")
		http.Redirect(w, r, failed, http.StatusFound)

		return
	}

	id, err := a.authenticator.Complete(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		a.log.Err(err).Msg("google sign in failed")
		http.Redirect(w, r, failed, http.StatusFound)

		return
	}

	token, err := a.sessions.Issue(*id)
	if err != nil {
		a.log.Err(err).Msg("failed to issue session")
		http.Redirect(w, r, failed, http.StatusFound)

		return
	}

	a.sessions.SetCookie(w, token)
	http.Redirect(w, r, a.frontendURL+"/dashboard", http.StatusFound)
}

// status answers with a bare {authenticated, user}.
func (a *API) status(w http.ResponseWriter, r *http.Request) {
	id, err := a.sessions.FromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusOK, statusResponse{})

		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Authenticated: true,
		User:          id,
	})
}

func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	a.sessions.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func trimSlash(s string) string {
	return strings.TrimRight(s, "/")
}
