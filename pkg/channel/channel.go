package channel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alextanhongpin/podreport/pkg/apperr"
)

var (
	ErrNoChannel = errors.New("no channel linked")
	ErrDuplicate = errors.New("channel already registered")
)

// Channel is a linked YouTube channel. The refresh token never leaves the
// server.
type Channel struct {
	ID           string    `json:"_id" bson:"_id"`
	ChannelID    string    `json:"channelId" bson:"channelId"`
	Title        string    `json:"title" bson:"title"`
	Description  string    `json:"description,omitempty" bson:"description,omitempty"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty" bson:"thumbnailUrl,omitempty"`
	RefreshToken string    `json:"-" bson:"refreshToken"`
	CustomName   string    `json:"customName,omitempty" bson:"customName,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// DisplayName is the name printed on reports.
func (c *Channel) DisplayName() string {
	if c.CustomName != "" {
		return c.CustomName
	}

	return c.Title
}

// CreateInput is the body of a manual channel registration.
type CreateInput struct {
	ChannelID    string `json:"channelId"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	RefreshToken string `json:"refreshToken"`
	CustomName   string `json:"customName,omitempty"`
}

func (in CreateInput) Validate() error {
	if strings.TrimSpace(in.ChannelID) == "" ||
		strings.TrimSpace(in.Title) == "" ||
		strings.TrimSpace(in.RefreshToken) == "" {
		return fmt.Errorf("%w: Channel ID, title, and refresh token are required", apperr.ErrValidation)
	}

	return nil
}

// Patch holds the editable fields. Nil fields are left unchanged.
type Patch struct {
	Title        *string `json:"title,omitempty"`
	Description  *string `json:"description,omitempty"`
	ThumbnailURL *string `json:"thumbnailUrl,omitempty"`
	CustomName   *string `json:"customName,omitempty"`
}

func (p Patch) apply(c *Channel) {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.ThumbnailURL != nil {
		c.ThumbnailURL = *p.ThumbnailURL
	}
	if p.CustomName != nil {
		c.CustomName = *p.CustomName
	}
}

// Store persists channels. FindLinked returns the oldest channel, which is
// the one reports are generated for.
type Store interface {
	FindLinked(ctx context.Context) (*Channel, error)
	FindByChannelID(ctx context.Context, channelID string) (*Channel, error)
	Create(ctx context.Context, c *Channel) error
	Update(ctx context.Context, channelID string, p Patch) (*Channel, error)
	UpdateRefreshToken(ctx context.Context, channelID, refreshToken string) (*Channel, error)
	Delete(ctx context.Context, channelID string) error
}

func notFound(channelID string) error {
	return fmt.Errorf("%w: channel %s", apperr.ErrNotFound, channelID)
}

func noChannel() error {
	return fmt.Errorf("%w: %w", apperr.ErrNotFound, ErrNoChannel)
}

func duplicate(channelID string) error {
	return fmt.Errorf("%w: %w: %s", apperr.ErrConflict, ErrDuplicate, channelID)
}
