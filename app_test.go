package podreport

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/alextanhongpin/podreport/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		Environment: config.Development,
		Server:      config.ServerConfig{Port: 0, FrontendURL: "http://localhost:3000"},
		Database:    config.DatabaseConfig{Driver: config.DriverMemory},
		Storage:     config.StorageConfig{Driver: config.StorageLocal, LocalDir: t.TempDir()},
		Session:     config.SessionConfig{Secret: "s3cr3t", TTL: time.Hour},
		Scheduler: config.SchedulerConfig{
			Timezone:         "UTC",
			ExecutionTimeout: time.Minute,
			WeeklyDigest:     true,
		},
	}
}

func TestNew(t *testing.T) {
	app, err := New(context.Background(), testConfig(t), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = app.Close()
	})

	if !app.Engine().Scheduled(WeeklyDigest) {
		t.Fatal("weekly digest should be scheduled")
	}

	for path, want := range map[string]int{
		"/healthz":          http.StatusOK,
		"/metrics":          http.StatusOK,
		"/api/jobs/":        http.StatusUnauthorized,
		"/api/auth/status":  http.StatusOK,
		"/api/channel/info": http.StatusNotFound,
	} {
		rec := httptest.NewRecorder()
		app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		if rec.Code != want {
			t.Fatalf("%s: want %d, got %d", path, want, rec.Code)
		}
	}
}

func TestNewWithoutWeeklyDigest(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scheduler.WeeklyDigest = false

	app, err := New(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	if app.Engine().Scheduled(WeeklyDigest) {
		t.Fatal("weekly digest should not be scheduled")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	app, err := New(context.Background(), testConfig(t), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- app.Run(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("want clean stop, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestOpenStoresUnknownDriver(t *testing.T) {
	_, err := OpenStores(context.Background(), config.DatabaseConfig{Driver: "sqlite"})
	if !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}

	_, err = OpenStorage(context.Background(), config.StorageConfig{Driver: "cloudinary"})
	if !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("want ErrInvalid, got %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"message":"shown"`) {
		t.Fatalf("unexpected log output %q", out)
	}

	if _, err := NewLogger(config.LogConfig{Level: "loud"}, &buf); err == nil {
		t.Fatal("want error for an unknown level")
	}
}
