// Package podreport schedules and generates YouTube podcast performance
// reports.
package podreport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alextanhongpin/podreport/pkg/api"
	"github.com/alextanhongpin/podreport/pkg/auth"
	"github.com/alextanhongpin/podreport/pkg/channel"
	"github.com/alextanhongpin/podreport/pkg/config"
	"github.com/alextanhongpin/podreport/pkg/job"
	"github.com/alextanhongpin/podreport/pkg/metrics"
	"github.com/alextanhongpin/podreport/pkg/mongodb"
	"github.com/alextanhongpin/podreport/pkg/postgres"
	"github.com/alextanhongpin/podreport/pkg/report"
	"github.com/alextanhongpin/podreport/pkg/server"
	"github.com/alextanhongpin/podreport/pkg/storage"
	"github.com/alextanhongpin/podreport/pkg/youtube"
)

const (
	// WeeklyDigest is the built-in Sunday report.
	WeeklyDigest     = "weekly_digest"
	weeklyDigestCron = "0 9 * * 0"
)

// Version is set at build time.
var Version = "dev"

// NewLogger builds the process logger from cfg. Format "console" is meant
// for terminals, anything else writes JSON.
func NewLogger(cfg config.LogConfig, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// Stores are the three persistence ports backed by one database driver.
type Stores struct {
	Jobs     job.Store
	Reports  report.Store
	Channels channel.Store
	close    func() error
}

func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}

	return s.close()
}

// OpenStores connects to the configured database and prepares its schema.
func OpenStores(ctx context.Context, cfg config.DatabaseConfig) (*Stores, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}

		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()

			return nil, err
		}

		return &Stores{
			Jobs:     job.NewPostgresStore(db),
			Reports:  report.NewPostgresStore(db),
			Channels: channel.NewPostgresStore(db),
			close:    db.Close,
		}, nil
	case config.DriverMongo:
		db, err := mongodb.Connect(ctx, cfg.URL, cfg.Name)
		if err != nil {
			return nil, err
		}

		jobs := job.NewMongoStore(db)
		reports := report.NewMongoStore(db)
		channels := channel.NewMongoStore(db)

		for _, ensure := range []func(context.Context) error{
			jobs.EnsureIndexes,
			reports.EnsureIndexes,
			channels.EnsureIndexes,
		} {
			if err := ensure(ctx); err != nil {
				_ = mongodb.Disconnect(db)

				return nil, err
			}
		}

		return &Stores{
			Jobs:     jobs,
			Reports:  reports,
			Channels: channels,
			close: func() error {
				return mongodb.Disconnect(db)
			},
		}, nil
	case config.DriverMemory:
		return &Stores{
			Jobs:     job.NewMemoryStore(),
			Reports:  report.NewMemoryStore(),
			Channels: channel.NewMemoryStore(),
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown database driver %q", config.ErrInvalid, cfg.Driver)
	}
}

// OpenStorage returns the document storage for cfg.
func OpenStorage(ctx context.Context, cfg config.StorageConfig) (storage.Storage, error) {
	switch cfg.Driver {
	case config.StorageLocal:
		return storage.NewLocal(cfg.LocalDir)
	case config.StorageS3:
		return storage.NewS3(ctx, storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Prefix:          cfg.S3.Prefix,
		})
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", config.ErrInvalid, cfg.Driver)
	}
}

// App is one wired podreport process.
type App struct {
	cfg     *config.Config
	log     zerolog.Logger
	stores  *Stores
	engine  *job.Engine
	handler http.Handler
	Jobs    *job.Service
	Reports *report.Service
}

// New wires every component. Nothing runs until Run.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	stores, err := OpenStores(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	app, err := newApp(ctx, cfg, stores, logger)
	if err != nil {
		_ = stores.Close()

		return nil, err
	}

	return app, nil
}

func newApp(ctx context.Context, cfg *config.Config, stores *Stores, logger zerolog.Logger) (*App, error) {
	st, err := OpenStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	m := metrics.New()

	oauthConfig := auth.GoogleConfig(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
	yt := youtube.New(oauthConfig, logger)

	sessions, err := auth.NewSessions(cfg.Session.Secret, cfg.Session.TTL, cfg.Production())
	if err != nil {
		return nil, err
	}

	channels := channel.NewService(stores.Channels, yt, logger)

	gen := report.NewGenerator(stores.Channels, yt, st, stores.Reports, logger)
	gen.SetObserver(m)
	reports := report.NewService(gen, stores.Reports, st, logger)

	engine := job.NewEngine(stores.Jobs, job.NewRegistry(cfg.Location(), logger),
		job.WithLogger(logger),
		job.WithLocation(cfg.Location()),
		job.WithTimeout(cfg.Scheduler.ExecutionTimeout),
		job.WithFailurePolicy(job.FireAndLog(logger)),
		job.WithRecorder(m),
	)
	if err := engine.Handle(job.ReportGeneration, reports.JobHandler()); err != nil {
		return nil, err
	}

	if cfg.Scheduler.WeeklyDigest {
		if err := engine.Schedule(WeeklyDigest, weeklyDigestCron, func(ctx context.Context) error {
			_, err := reports.Generate(ctx, youtube.Lifetime, report.Scheduled)

			return err
		}); err != nil {
			return nil, err
		}
	}

	jobs := job.NewService(stores.Jobs, engine, logger)

	handler := api.New(api.Options{
		FrontendURL:    cfg.Server.FrontendURL,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		StaticDir:      cfg.Server.StaticDir,
		Secure:         cfg.Production(),
		Jobs:           jobs,
		Reports:        reports,
		Channels:       channels,
		Sessions:       sessions,
		Authenticator:  auth.NewFlow(oauthConfig, yt, channels, logger),
		Metrics:        m.Handler(),
		GenerateLimit:  api.GenerateLimiter(cfg.Server.GeneratePerMinute),
		Logger:         logger,
	})

	return &App{
		cfg:     cfg,
		log:     logger.With().Str("pkg", "podreport").Logger(),
		stores:  stores,
		engine:  engine,
		handler: handler,
		Jobs:    jobs,
		Reports: reports,
	}, nil
}

func (a *App) Handler() http.Handler {
	return a.handler
}

func (a *App) Engine() *job.Engine {
	return a.engine
}

// Run rearms stored jobs, serves HTTP until ctx is done, then stops the
// timers and closes the database.
func (a *App) Run(ctx context.Context) error {
	if err := a.engine.Start(ctx); err != nil {
		return err
	}

	a.log.Info().
		Str("version", Version).
		Str("environment", a.cfg.Environment).
		Str("database", a.cfg.Database.Driver).
		Str("storage", a.cfg.Storage.Driver).
		Msg("podreport started")

	runErr := server.New(a.handler, a.cfg.Server.Port, a.log).Run(ctx)

	stopCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Scheduler.ExecutionTimeout)
	defer cancel()

	return errors.Join(runErr, a.engine.Stop(stopCtx), a.stores.Close())
}

// Close releases the database without running.
func (a *App) Close() error {
	return a.stores.Close()
}

// DefaultLogger writes JSON to stderr at info level.
func DefaultLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
