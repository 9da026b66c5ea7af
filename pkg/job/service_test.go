package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/alextanhongpin/podreport/pkg/apperr"
)

func newTestService(t *testing.T) (*Service, *Engine, *MemoryStore) {
	t.Helper()

	engine, store := newTestEngine(t)

	return NewService(store, engine, zerolog.Nop()), engine, store
}

func TestServiceWeeklyDigest(t *testing.T) {
	svc, engine, store := newTestService(t)
	ctx := context.Background()

	job, err := svc.Create(ctx, "U1", CreateInput{
		Name:      "Weekly Digest",
		Frequency: Weekly,
		Period:    "last7days",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	want := &Job{
		ID:             job.ID,
		UserID:         "U1",
		Name:           "Weekly Digest",
		Type:           ReportGeneration,
		Frequency:      Weekly,
		Period:         "last7days",
		Parameters:     Parameters{Period: "last7days"},
		CronExpression: "0 9 * * 1",
		IsActive:       true,
		NextRun:        time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
		RunCount:       0,
	}
	if diff := cmp.Diff(want, job, cmpopts.IgnoreFields(Job{}, "CreatedAt", "UpdatedAt")); diff != "" {
		t.Fatalf("want(+), got(-): %s", diff)
	}

	if !engine.Armed(job.ID) {
		t.Fatal("created job should be armed")
	}

	jobs, err := svc.List(ctx, "U1")
	if err != nil {
		t.Fatal(err)
	}

	if len(jobs) != 1 || jobs[0].ID != job.ID {
		t.Fatalf("want the new job listed, got %v", jobs)
	}

	fired, err := engine.Fire(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}

	if fired.RunCount != 1 || fired.LastRun == nil {
		t.Fatalf("fire should record the run, got %+v", fired)
	}

	if err := svc.Cancel(ctx, "U1", job.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if engine.Armed(job.ID) {
		t.Fatal("cancelled job should be disarmed")
	}

	if _, err := store.FindByID(ctx, job.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("cancelled job should be deleted, got %v", err)
	}
}

func TestServiceCreateValidation(t *testing.T) {
	tests := []struct {
		name  string
		owner string
		in    CreateInput
		want  error
	}{
		{
			name:  "no owner",
			owner: "",
			in:    CreateInput{Name: "a", Frequency: Daily, Period: "lifetime"},
			want:  apperr.ErrUnauthorized,
		},
		{
			name:  "missing name",
			owner: "U1",
			in:    CreateInput{Frequency: Daily, Period: "lifetime"},
			want:  ErrMissingFields,
		},
		{
			name:  "missing everything",
			owner: "U1",
			in:    CreateInput{},
			want:  apperr.ErrValidation,
		},
		{
			name:  "unsupported frequency",
			owner: "U1",
			in:    CreateInput{Name: "a", Frequency: "hourly", Period: "lifetime"},
			want:  ErrInvalidFrequency,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			svc, engine, store := newTestService(t)

			_, err := svc.Create(context.Background(), tt.owner, tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("want %v, got %v", tt.want, err)
			}

			if engine.registry.Len() != 0 {
				t.Fatal("rejected job must not be armed")
			}

			if jobs, _ := store.FindActive(context.Background()); len(jobs) != 0 {
				t.Fatal("rejected job must not be stored")
			}
		})
	}
}

func TestServiceCreateMissingFieldsMessage(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), "U1", CreateInput{Frequency: Daily})
	if err == nil {
		t.Fatal("want error")
	}

	if want := "validation error: missing required fields: name, period"; err.Error() != want {
		t.Fatalf("want %q, got %q", want, err.Error())
	}
}

func TestServiceCreateKeepsParameters(t *testing.T) {
	svc, _, _ := newTestService(t)

	job, err := svc.Create(context.Background(), "U1", CreateInput{
		Name:       "Monthly",
		Frequency:  Monthly,
		Period:     "last28days",
		Parameters: &Parameters{Metrics: []string{"views"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	want := Parameters{Period: "last28days", Metrics: []string{"views"}}
	if diff := cmp.Diff(want, job.Parameters); diff != "" {
		t.Fatalf("want(+), got(-): %s", diff)
	}
}

func TestServiceListEmpty(t *testing.T) {
	svc, _, _ := newTestService(t)

	jobs, err := svc.List(context.Background(), "nobody")
	if err != nil {
		t.Fatal(err)
	}

	if jobs == nil || len(jobs) != 0 {
		t.Fatalf("want empty non-nil list, got %#v", jobs)
	}
}

func TestServiceListNewestFirst(t *testing.T) {
	svc, _, store := newTestService(t)

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Minute)

		return clock
	}

	ctx := context.Background()
	var ids []string
	for _, name := range []string{"first", "second", "third"} {
		job, err := svc.Create(ctx, "U1", CreateInput{Name: name, Frequency: Daily, Period: "lifetime"})
		if err != nil {
			t.Fatal(err)
		}
		ids = append([]string{job.ID}, ids...)
	}

	jobs, err := svc.List(ctx, "U1")
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, j := range jobs {
		got = append(got, j.ID)
	}

	if diff := cmp.Diff(ids, got); diff != "" {
		t.Fatalf("want(+), got(-): %s", diff)
	}
}

func TestServiceStats(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	daily, err := svc.Create(ctx, "U1", CreateInput{Name: "a", Frequency: Daily, Period: "lifetime"})
	if err != nil {
		t.Fatal(err)
	}

	weekly, err := svc.Create(ctx, "U1", CreateInput{Name: "b", Frequency: Weekly, Period: "lifetime"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Create(ctx, "U2", CreateInput{Name: "c", Frequency: Monthly, Period: "lifetime"}); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.UpdateStatus(ctx, "U1", daily.ID, false); err != nil {
		t.Fatal(err)
	}

	stats, err := svc.Stats(ctx, "U1")
	if err != nil {
		t.Fatal(err)
	}

	want := &Stats{
		Total:    2,
		Active:   1,
		Inactive: 1,
		ByFrequency: map[Frequency]int{
			Daily:  1,
			Weekly: 1,
		},
		Upcoming: []Entry{{ID: weekly.ID}},
	}
	if diff := cmp.Diff(want, stats, cmpopts.IgnoreFields(Entry{}, "Next")); diff != "" {
		t.Fatalf("want(+), got(-): %s", diff)
	}

	var sum int
	for _, n := range stats.ByFrequency {
		sum += n
	}
	if stats.Active+stats.Inactive != stats.Total || sum != stats.Total {
		t.Fatalf("stats do not add up: %+v", stats)
	}
}

func TestServiceCancelOtherOwner(t *testing.T) {
	svc, engine, store := newTestService(t)
	ctx := context.Background()

	job, err := svc.Create(ctx, "U1", CreateInput{Name: "mine", Frequency: Daily, Period: "lifetime"})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Cancel(ctx, "U2", job.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	if !engine.Armed(job.ID) {
		t.Fatal("job of another owner must stay armed")
	}

	if _, err := store.FindByID(ctx, job.ID); err != nil {
		t.Fatalf("job of another owner must stay stored: %v", err)
	}
}

func TestServiceCancelUnknown(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		if err := svc.Cancel(ctx, "U1", id); !errors.Is(err, apperr.ErrNotFound) {
			t.Fatalf("%s: want ErrNotFound, got %v", id, err)
		}
	}

	if err := svc.Cancel(ctx, "", uuid.NewString()); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("want ErrUnauthorized, got %v", err)
	}
}

func TestServiceUpdateStatusToggle(t *testing.T) {
	svc, engine, store := newTestService(t)
	ctx := context.Background()

	job, err := svc.Create(ctx, "U1", CreateInput{Name: "toggle", Frequency: Monthly, Period: "lifetime"})
	if err != nil {
		t.Fatal(err)
	}

	off, err := svc.UpdateStatus(ctx, "U1", job.ID, false)
	if err != nil {
		t.Fatal(err)
	}

	if off.IsActive || engine.Armed(job.ID) {
		t.Fatal("deactivated job should be inactive and disarmed")
	}

	// Deactivating twice is harmless.
	if _, err := svc.UpdateStatus(ctx, "U1", job.ID, false); err != nil {
		t.Fatal(err)
	}

	on, err := svc.UpdateStatus(ctx, "U1", job.ID, true)
	if err != nil {
		t.Fatal(err)
	}

	if !on.IsActive || !engine.Armed(job.ID) {
		t.Fatal("reactivated job should be active and armed")
	}

	if want := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC); !on.NextRun.Equal(want) {
		t.Fatalf("want next run %s, got %s", want, on.NextRun)
	}

	// Activating an active job replaces its timer.
	if _, err := svc.UpdateStatus(ctx, "U1", job.ID, true); err != nil {
		t.Fatal(err)
	}

	if n := len(engine.registry.cron.Entries()); n != 1 {
		t.Fatalf("want exactly one timer, got %d", n)
	}

	stored, err := store.FindByID(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}

	if !stored.IsActive {
		t.Fatal("stored job should be active")
	}
}

func TestServiceUpdateStatusOtherOwner(t *testing.T) {
	svc, engine, _ := newTestService(t)
	ctx := context.Background()

	job, err := svc.Create(ctx, "U1", CreateInput{Name: "mine", Frequency: Weekly, Period: "lifetime"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.UpdateStatus(ctx, "U2", job.ID, false); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	if !engine.Armed(job.ID) {
		t.Fatal("job of another owner must stay armed")
	}
}
