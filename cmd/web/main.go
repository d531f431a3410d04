package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/myrjola/burnplan/internal/catalog"
	"github.com/myrjola/burnplan/internal/envstruct"
	"github.com/myrjola/burnplan/internal/errors"
	"github.com/myrjola/burnplan/internal/flightrecorder"
	"github.com/myrjola/burnplan/internal/jobs"
	"github.com/myrjola/burnplan/internal/logging"
	"github.com/myrjola/burnplan/internal/sqlite"
	"github.com/myrjola/burnplan/internal/workout"
)

type application struct {
	logger         *slog.Logger
	workoutService *workout.Service
	// now is the server clock used when a request does not name its day.
	now func() time.Time
	// traces captures an execution trace when a request times out. Nil disables capturing.
	traces traceCapturer
}

type traceCapturer interface {
	Capture(ctx context.Context, reason string) (string, error)
}

type config struct {
	// Addr is the address to listen on. It's possible to choose the address dynamically with localhost:0.
	Addr string `env:"BURNPLAN_ADDR" envDefault:"localhost:8082"`
	// SqliteURL is the URL to the SQLite database. You can use ":memory:" for an ethereal in-memory database.
	SqliteURL string `env:"BURNPLAN_SQLITE_URL" envDefault:"./burnplan.sqlite3"`
	// OpenAIAPIKey enables MET estimation for catalog records without a MET value.
	OpenAIAPIKey     string        `env:"BURNPLAN_OPENAI_API_KEY" envDefault:""`
	HorizonThreshold int           `env:"BURNPLAN_HORIZON_THRESHOLD" envDefault:"3"`
	BlockDays        int           `env:"BURNPLAN_BLOCK_DAYS" envDefault:"5"`
	SweepSchedule    string        `env:"BURNPLAN_SWEEP_SCHEDULE" envDefault:"@daily"`
	OptimizeSchedule string        `env:"BURNPLAN_OPTIMIZE_SCHEDULE" envDefault:"@hourly"`
	WriteQueueSize   int           `env:"BURNPLAN_WRITE_QUEUE_SIZE" envDefault:"256"`
	ShutdownTimeout  time.Duration `env:"BURNPLAN_SHUTDOWN_TIMEOUT" envDefault:"5s"`
	// TracesDirectory enables the flight recorder, which writes a trace there when a request times out.
	TracesDirectory string `env:"BURNPLAN_TRACES_DIRECTORY" envDefault:""`
}

func run(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) (err error) {
	var cancel context.CancelFunc
	ctx, cancel = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfg config
	if err = envstruct.Populate(&cfg, lookupEnv); err != nil {
		return errors.Wrap(err, "populate config")
	}

	db, err := sqlite.NewDatabase(ctx, cfg.SqliteURL, logger)
	if err != nil {
		return errors.Wrap(err, "open db", slog.String("url", cfg.SqliteURL))
	}
	defer func() {
		err = errors.Join(err, db.Close())
	}()
	logger.LogAttrs(ctx, slog.LevelInfo, "connected to db")

	estimators := []catalog.Estimator{catalog.TableEstimator{}}
	if cfg.OpenAIAPIKey != "" {
		estimators = append([]catalog.Estimator{catalog.NewOpenAIEstimator(cfg.OpenAIAPIKey, logger)}, estimators...)
	}
	exercises, err := catalog.Load(ctx, catalog.NewChain(logger, estimators...), logger)
	if err != nil {
		return errors.Wrap(err, "load exercise catalog")
	}

	svc := workout.NewService(db, exercises, logger, workout.Config{
		Horizon:        workout.HorizonConfig{Threshold: cfg.HorizonThreshold, BlockDays: cfg.BlockDays},
		WriteQueueSize: cfg.WriteQueueSize,
		NewRand:        workout.NewRandomRand,
	})
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer closeCancel()
		if closeErr := svc.Close(closeCtx); closeErr != nil {
			err = errors.Join(err, errors.Wrap(closeErr, "drain write queue"))
		}
	}()

	scheduler, err := jobs.New(ctx, jobs.Config{
		SweepSchedule:    cfg.SweepSchedule,
		OptimizeSchedule: cfg.OptimizeSchedule,
	}, svc, db, logger)
	if err != nil {
		return errors.Wrap(err, "configure jobs")
	}
	scheduler.Start()
	defer scheduler.Stop()

	app := application{
		logger:         logger,
		workoutService: svc,
		now:            time.Now,
		traces:         nil,
	}
	if cfg.TracesDirectory != "" {
		var recorder *flightrecorder.Recorder
		if recorder, err = flightrecorder.New(flightrecorder.Config{Directory: cfg.TracesDirectory}, logger); err != nil {
			return errors.Wrap(err, "configure flight recorder")
		}
		if err = recorder.Start(ctx); err != nil {
			return errors.Wrap(err, "start flight recorder")
		}
		defer recorder.Stop(context.WithoutCancel(ctx))
		app.traces = recorder
	}
	if err = app.configureAndStartServer(ctx, cfg.Addr, app.routes()); err != nil {
		return errors.Wrap(err, "start server")
	}
	return nil
}

func main() {
	ctx := context.Background()
	_, jsonLogs := os.LookupEnv("BURNPLAN_LOG_JSON")
	logger := logging.NewLogger(os.Stdout, slog.LevelDebug, jsonLogs)
	if err := run(ctx, logger, os.LookupEnv); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "failure starting application", errors.SlogError(err))
		os.Exit(1)
	}
}
