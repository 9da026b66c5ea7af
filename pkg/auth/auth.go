// Package auth signs in channel owners with Google and keeps them signed in
// with a JWT session cookie.
package auth

import "context"

// Identity is the signed-in user carried by the session.
type Identity struct {
	UserID    string `json:"id"`
	ChannelID string `json:"channelId,omitempty"`
	Name      string `json:"displayName"`
	Email     string `json:"email,omitempty"`
}

// Owner is the id jobs are scoped to.
func (i Identity) Owner() string {
	if i.ChannelID != "" {
		return i.ChannelID
	}

	return i.UserID
}

type contextKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(*Identity)

	return id, ok && id != nil
}

// Owner returns the owner id of the signed-in user, or "" when there is none.
func Owner(ctx context.Context) string {
	id, ok := FromContext(ctx)
	if !ok {
		return ""
	}

	return id.Owner()
}
