package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"geoquiz-service/internal/app"
	"geoquiz-service/internal/domain"
)

// EnvPrefix prefixes every environment override, e.g. GEOQUIZ_REDIS_ADDR.
const EnvPrefix = "GEOQUIZ_"

type Config struct {
	Server struct {
		Port string `yaml:"port" env:"PORT"`
	} `yaml:"server" envPrefix:"SERVER_"`
	Log struct {
		Level      string `yaml:"level" env:"LEVEL"`
		File       string `yaml:"file" env:"FILE"`
		Console    bool   `yaml:"console" env:"CONSOLE"`
		MaxSizeMB  int    `yaml:"maxSizeMB" env:"MAX_SIZE_MB"`
		MaxBackups int    `yaml:"maxBackups" env:"MAX_BACKUPS"`
		MaxAgeDays int    `yaml:"maxAgeDays" env:"MAX_AGE_DAYS"`
		Compress   bool   `yaml:"compress" env:"COMPRESS"`
	} `yaml:"log" envPrefix:"LOG_"`
	Dataset struct {
		// Source is embedded, file or postgres; empty picks file when Path is set.
		Source string `yaml:"source" env:"SOURCE"`
		Path   string `yaml:"path" env:"PATH"`
	} `yaml:"dataset" envPrefix:"DATASET_"`
	Redis struct {
		Addr     string `yaml:"addr" env:"ADDR"`
		Password string `yaml:"password" env:"PASSWORD"`
		DB       int    `yaml:"db" env:"DB"`
		TTL      string `yaml:"ttl" env:"TTL"`
	} `yaml:"redis" envPrefix:"REDIS_"`
	Postgres struct {
		URL string `yaml:"url" env:"URL"`
	} `yaml:"postgres" envPrefix:"POSTGRES_"`
	Cache struct {
		TTL        string `yaml:"ttl" env:"TTL"`
		MaxEntries int    `yaml:"maxEntries" env:"MAX_ENTRIES"`
	} `yaml:"cache" envPrefix:"CACHE_"`
	Quiz struct {
		Attempts         map[string]int `yaml:"attempts" env:"ATTEMPTS"`
		SingleAttempts   int            `yaml:"singleAttempts" env:"SINGLE_ATTEMPTS"`
		AutoAdvance      string         `yaml:"autoAdvance" env:"AUTO_ADVANCE"`
		AutoAdvanceDelay string         `yaml:"autoAdvanceDelay" env:"AUTO_ADVANCE_DELAY"`
		PersistDebounce  string         `yaml:"persistDebounce" env:"PERSIST_DEBOUNCE"`
	} `yaml:"quiz" envPrefix:"QUIZ_"`
}

// Default returns the settings used when neither file nor environment set a value.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Log.Level = "info"
	cfg.Log.MaxSizeMB = 10
	cfg.Log.MaxBackups = 3
	cfg.Log.MaxAgeDays = 28
	cfg.Redis.TTL = "10m"
	cfg.Cache.TTL = "10m"
	cfg.Cache.MaxEntries = 512
	cfg.Quiz.SingleAttempts = app.DefaultQuizAttempts
	cfg.Quiz.AutoAdvance = string(app.AutoAdvanceOff)
	return cfg
}

// Load reads YAML config from path, applies GEOQUIZ_* environment overrides
// and validates the result. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects values the services cannot run with.
func (c Config) Validate() error {
	var errs []error
	switch c.DatasetSource() {
	case "embedded":
	case "file":
		if c.Dataset.Path == "" {
			errs = append(errs, errors.New("dataset.path is required for source file"))
		}
	case "postgres":
		if c.Postgres.URL == "" {
			errs = append(errs, errors.New("postgres.url is required for dataset source postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown dataset source %q", c.Dataset.Source))
	}
	for name, raw := range map[string]string{
		"redis.ttl":             c.Redis.TTL,
		"cache.ttl":             c.Cache.TTL,
		"quiz.autoAdvanceDelay": c.Quiz.AutoAdvanceDelay,
		"quiz.persistDebounce":  c.Quiz.PersistDebounce,
	} {
		if raw == "" {
			continue
		}
		if d, err := time.ParseDuration(raw); err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", name, raw))
		}
	}
	if c.Cache.MaxEntries < 0 {
		errs = append(errs, errors.New("cache.maxEntries must not be negative"))
	}
	if c.Quiz.SingleAttempts < 0 {
		errs = append(errs, errors.New("quiz.singleAttempts must not be negative"))
	}
	if _, err := c.Attempts(); err != nil {
		errs = append(errs, err)
	}
	if _, err := app.ParseAutoAdvance(c.Quiz.AutoAdvance); err != nil {
		errs = append(errs, fmt.Errorf("quiz.autoAdvance: %w", err))
	}
	return errors.Join(errs...)
}

// DatasetSource resolves the effective dataset source.
func (c Config) DatasetSource() string {
	src := strings.ToLower(strings.TrimSpace(c.Dataset.Source))
	if src == "" {
		if c.Dataset.Path != "" {
			return "file"
		}
		return "embedded"
	}
	return src
}

// Attempts converts the per-kind budgets; missing kinds keep their defaults.
func (c Config) Attempts() (app.AttemptsConfig, error) {
	out := app.DefaultAttempts()
	for raw, n := range c.Quiz.Attempts {
		kind := domain.StepKind(strings.ToLower(strings.TrimSpace(raw)))
		if _, ok := out[kind]; !ok {
			return nil, fmt.Errorf("quiz.attempts: unknown step kind %q", raw)
		}
		if n < 0 {
			return nil, fmt.Errorf("quiz.attempts.%s must not be negative", kind)
		}
		if n > 0 {
			out[kind] = n
		}
	}
	return out, nil
}

// SessionOptions builds the ultimate session settings.
func (c Config) SessionOptions() (app.SessionOptions, error) {
	attempts, err := c.Attempts()
	if err != nil {
		return app.SessionOptions{}, err
	}
	mode, err := app.ParseAutoAdvance(c.Quiz.AutoAdvance)
	if err != nil {
		return app.SessionOptions{}, err
	}
	return app.SessionOptions{
		Attempts:         attempts,
		PersistDebounce:  TTLDuration(c.Quiz.PersistDebounce, app.DefaultPersistDebounce),
		AutoAdvance:      mode,
		AutoAdvanceDelay: TTLDuration(c.Quiz.AutoAdvanceDelay, app.MinAutoAdvanceDelay),
	}, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
