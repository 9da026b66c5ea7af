package channel

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rs/zerolog"

	"github.com/alextanhongpin/podreport/pkg/apperr"
	"github.com/alextanhongpin/podreport/pkg/youtube"
)

type statsFunc func(ctx context.Context, refreshToken string) (*youtube.LiveStats, error)

func (f statsFunc) LiveStats(ctx context.Context, refreshToken string) (*youtube.LiveStats, error) {
	return f(ctx, refreshToken)
}

func newTestService(stats statsFunc) (*Service, *MemoryStore) {
	store := NewMemoryStore()
	if stats == nil {
		stats = func(ctx context.Context, refreshToken string) (*youtube.LiveStats, error) {
			return &youtube.LiveStats{Title: "live", ViewCount: uint64(len(refreshToken))}, nil
		}
	}

	return NewService(store, stats, zerolog.Nop()), store
}

var ignoreTimes = cmpopts.IgnoreFields(Channel{}, "ID", "CreatedAt", "UpdatedAt")

func TestServiceAdd(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	in := CreateInput{ChannelID: "UC1", Title: "Pod", RefreshToken: "r1", CustomName: "My Pod"}

	got, err := svc.Add(ctx, in)
	if err != nil {
		t.Fatal(err)
	}

	want := &Channel{ChannelID: "UC1", Title: "Pod", RefreshToken: "r1", CustomName: "My Pod"}
	if diff := cmp.Diff(want, got, ignoreTimes); diff != "" {
		t.Fatalf("want(+), got(-): %s", diff)
	}

	if got.DisplayName() != "My Pod" {
		t.Fatalf("custom name should win, got %q", got.DisplayName())
	}

	if _, err := svc.Add(ctx, in); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}

	if _, err := svc.Add(ctx, CreateInput{ChannelID: "UC2"}); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}

func TestServiceInfo(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	if _, err := svc.Info(ctx); !errors.Is(err, apperr.ErrNotFound) || !errors.Is(err, ErrNoChannel) {
		t.Fatalf("want ErrNoChannel, got %v", err)
	}

	for _, id := range []string{"UC1", "UC2"} {
		if _, err := svc.Add(ctx, CreateInput{ChannelID: id, Title: id, RefreshToken: "token-" + id}); err != nil {
			t.Fatal(err)
		}
	}

	info, err := svc.Info(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if info.ChannelID != "UC1" || info.LiveStats.Title != "live" || info.LiveStats.ViewCount != uint64(len("token-UC1")) {
		t.Fatalf("want the first channel with live stats, got %+v", info)
	}

	b, err := json.Marshal(info)
	if err != nil {
		t.Fatal(err)
	}

	if strings.Contains(string(b), "token-UC1") || strings.Contains(string(b), "refreshToken") {
		t.Fatalf("refresh token leaked: %s", b)
	}
}

func TestServiceInfoUpstreamError(t *testing.T) {
	svc, _ := newTestService(func(ctx context.Context, refreshToken string) (*youtube.LiveStats, error) {
		return nil, apperr.ErrUpstream
	})
	ctx := context.Background()

	if _, err := svc.Add(ctx, CreateInput{ChannelID: "UC1", Title: "Pod", RefreshToken: "r1"}); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Info(ctx); !errors.Is(err, apperr.ErrUpstream) {
		t.Fatalf("want ErrUpstream, got %v", err)
	}
}

func TestServiceUpdateDelete(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	if _, err := svc.Add(ctx, CreateInput{ChannelID: "UC1", Title: "Pod", RefreshToken: "r1"}); err != nil {
		t.Fatal(err)
	}

	name := "Renamed"
	got, err := svc.Update(ctx, "UC1", Patch{CustomName: &name})
	if err != nil {
		t.Fatal(err)
	}

	if got.CustomName != "Renamed" || got.Title != "Pod" {
		t.Fatalf("patch should only touch set fields, got %+v", got)
	}

	if _, err := svc.Update(ctx, "missing", Patch{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	if err := svc.Delete(ctx, "UC1"); err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, "UC1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	if err := svc.Delete(ctx, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}

func TestServiceRegisterOrUpdate(t *testing.T) {
	svc, store := newTestService(nil)
	ctx := context.Background()

	profile := &youtube.Profile{UserID: "G1", Name: "Host", ChannelID: "UC1", ChannelTitle: "Pod"}

	created, err := svc.RegisterOrUpdate(ctx, profile, "r1")
	if err != nil {
		t.Fatal(err)
	}

	want := &Channel{ChannelID: "UC1", Title: "Pod", RefreshToken: "r1"}
	if diff := cmp.Diff(want, created, ignoreTimes); diff != "" {
		t.Fatalf("want(+), got(-): %s", diff)
	}

	updated, err := svc.RegisterOrUpdate(ctx, profile, "r2")
	if err != nil {
		t.Fatal(err)
	}

	if updated.ID != created.ID || updated.RefreshToken != "r2" {
		t.Fatalf("want token replaced on the same channel, got %+v", updated)
	}

	// A sign-in without a new refresh token keeps the stored one.
	kept, err := svc.RegisterOrUpdate(ctx, profile, "")
	if err != nil {
		t.Fatal(err)
	}

	if kept.RefreshToken != "r2" {
		t.Fatalf("want r2 kept, got %q", kept.RefreshToken)
	}

	// Accounts without a channel fall back to the account id and name.
	noChannel, err := svc.RegisterOrUpdate(ctx, &youtube.Profile{UserID: "G2", Name: "Guest"}, "r3")
	if err != nil {
		t.Fatal(err)
	}

	if noChannel.ChannelID != "G2" || noChannel.Title != "Guest" {
		t.Fatalf("unexpected fallback channel: %+v", noChannel)
	}

	linked, err := store.FindLinked(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if linked.ChannelID != "UC1" {
		t.Fatalf("the first channel stays linked, got %s", linked.ChannelID)
	}
}
