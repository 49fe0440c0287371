package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"geoquiz-service/internal/app"
	"geoquiz-service/internal/config"
	"geoquiz-service/internal/dataset"
	"geoquiz-service/internal/infra/memory"
	pgloader "geoquiz-service/internal/infra/postgres"
	rediscache "geoquiz-service/internal/infra/redis"
	"geoquiz-service/internal/logging"
	"geoquiz-service/internal/transport/http/health"
)

// runtime holds the process-wide dependencies shared by the subcommands.
type runtime struct {
	cfg     config.Config
	logger  zerolog.Logger
	logFile io.Closer
	pool    *pgxpool.Pool
	redis   *redis.Client
	ds      *dataset.Dataset
	svc     *app.GameService
	checks  []health.Dependency
}

func loadConfig(path string) (config.Config, zerolog.Logger, io.Closer, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, zerolog.Nop(), nil, fmt.Errorf("loading config: %w", err)
	}
	logger, closer, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Console: cfg.Log.Console,
		Rotation: logging.RotationConfig{
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
		},
	})
	if err != nil {
		return cfg, zerolog.Nop(), nil, fmt.Errorf("setting up logger: %w", err)
	}
	return cfg, logger, closer, nil
}

// bootstrap loads config, connects the configured backends, loads the
// dataset and wires the game service.
func bootstrap(ctx context.Context, configPath string) (*runtime, error) {
	cfg, logger, closer, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, logger: logger, logFile: closer}

	if cfg.Postgres.URL != "" {
		rt.pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		rt.checks = append(rt.checks, health.Dependency{
			Name:     "postgres",
			Checker:  pgloader.NewCountryLoader(rt.pool, logger),
			Optional: true,
		})
		logger.Info().Msg("connected to postgres")
	}

	if cfg.Redis.Addr != "" {
		rt.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ping := health.CheckerFunc(func(ctx context.Context) error {
			return rt.redis.Ping(ctx).Err()
		})
		rt.checks = append(rt.checks, health.Dependency{Name: "redis", Checker: ping, Optional: true})
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("using redis cache")
	}

	rt.ds, err = rt.loadDataset(ctx)
	if err != nil {
		rt.Close()
		return nil, err
	}
	ds := rt.ds
	rt.checks = append([]health.Dependency{{Name: "dataset", Checker: ds}}, rt.checks...)
	logger.Info().Int("countries", ds.Len()).Str("source", cfg.DatasetSource()).Msg("dataset loaded")

	session, err := cfg.SessionOptions()
	if err != nil {
		rt.Close()
		return nil, err
	}

	opts := app.ServiceOptions{
		Session:      session,
		QuizAttempts: cfg.Quiz.SingleAttempts,
		Logger:       logger,
	}
	builder := app.NewSuggestionBuilder(ds)
	cacheTTL := config.TTLDuration(cfg.Cache.TTL, 10*time.Minute)
	if rt.redis != nil {
		redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)
		opts.Suggestions = rediscache.NewSuggestionRepository(rt.redis, builder, redisTTL)
		opts.Memo = rediscache.NewResolutionMemo(rt.redis, redisTTL, logger)
	} else {
		opts.Suggestions = memory.NewSuggestionRepository(builder, cacheTTL)
		memoSize := cfg.Cache.MaxEntries
		if memoSize == 0 {
			memoSize = 512
		}
		opts.Memo = app.NewBoundedMemo(memoSize)
	}
	rt.svc = app.NewGameService(ds, opts)
	return rt, nil
}

func (rt *runtime) loadDataset(ctx context.Context) (*dataset.Dataset, error) {
	switch rt.cfg.DatasetSource() {
	case "file":
		return dataset.LoadFile(rt.cfg.Dataset.Path, rt.logger)
	case "postgres":
		if rt.pool == nil {
			return nil, fmt.Errorf("dataset source postgres needs postgres.url")
		}
		return pgloader.NewCountryLoader(rt.pool, rt.logger).LoadDataset(ctx)
	default:
		return dataset.Embedded(rt.logger)
	}
}

func (rt *runtime) Close() {
	if rt.redis != nil {
		_ = rt.redis.Close()
	}
	if rt.pool != nil {
		rt.pool.Close()
	}
	if rt.logFile != nil {
		_ = rt.logFile.Close()
	}
}
