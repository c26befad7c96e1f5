package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"coduxa"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres Postgres
	Redis    Redis
	Security Security
	Exam     Exam
	Runner   Runner
	CORS     CORS
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"PG_MAX_CONNS" envDefault:"10"`
}

// ConnString renders the pgx connection string.
func (p Postgres) ConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode, p.MaxConns)
}

// Redis holds cache and checkpoint store configuration.
type Redis struct {
	Addr          string `env:"REDIS_ADDR,notEmpty"`
	DB            int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize      int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
	EventsChannel string `env:"REDIS_EVENTS_CHANNEL" envDefault:"session:events"`
}

// Security stores secrets for token validation.
type Security struct {
	JWTSecret   string `env:"JWT_SECRET,notEmpty"`
	JWTIssuer   string `env:"JWT_ISSUER" envDefault:"coduxa"`
	JWTAudience string `env:"JWT_AUDIENCE" envDefault:""`
}

// Exam groups session and scoring behavior.
type Exam struct {
	PassingThreshold   float64       `env:"EXAM_PASSING_THRESHOLD" envDefault:"70"`
	AutosaveInterval   time.Duration `env:"AUTOSAVE_INTERVAL" envDefault:"30s"`
	CheckpointFresh    time.Duration `env:"CHECKPOINT_FRESHNESS" envDefault:"24h"`
	CheckpointTTL      time.Duration `env:"CHECKPOINT_TTL" envDefault:"25h"`
	StrictNavigation   bool          `env:"STRICT_NAVIGATION" envDefault:"true"`
	SessionRetention   time.Duration `env:"SESSION_RETENTION" envDefault:"15m"`
	QuestionCacheTTL   time.Duration `env:"QUESTION_CACHE_TTL" envDefault:"10m"`
	CacheWarmTimeout   time.Duration `env:"QUESTION_CACHE_WARM_TIMEOUT" envDefault:"5s"`
	AnalyticsTopN      int           `env:"ANALYTICS_TOP_N" envDefault:"10"`
	AnalyticsRetention time.Duration `env:"ANALYTICS_RETENTION" envDefault:"0s"`
}

// Runner selects the code executor used for coding questions.
// The local process runner executes candidate code on the host and is only
// accepted together with CODE_RUNNER_UNSAFE_LOCAL=true.
type Runner struct {
	Kind             string        `env:"CODE_RUNNER" envDefault:"piston"`
	Timeout          time.Duration `env:"CODE_RUNNER_TIMEOUT" envDefault:"5s"`
	PistonURL        string        `env:"PISTON_URL" envDefault:"https://emkc.org"`
	AllowUnsafeLocal bool          `env:"CODE_RUNNER_UNSAFE_LOCAL" envDefault:"false"`
	// Unprivileged account the local runner drops to; 0 keeps the server's user.
	UID uint32 `env:"CODE_RUNNER_UID" envDefault:"0"`
	GID uint32 `env:"CODE_RUNNER_GID" envDefault:"0"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Exam.PassingThreshold < 0 || cfg.Exam.PassingThreshold > 100 {
		return nil, fmt.Errorf("parse config: EXAM_PASSING_THRESHOLD must be within [0, 100], got %v", cfg.Exam.PassingThreshold)
	}
	if cfg.Runner.Kind == "process" && !cfg.Runner.AllowUnsafeLocal {
		return nil, fmt.Errorf("parse config: CODE_RUNNER=process runs untrusted code on the host and requires CODE_RUNNER_UNSAFE_LOCAL=true")
	}
	return cfg, nil
}
