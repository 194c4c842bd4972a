package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Engine   EngineConfig   `mapstructure:"engine"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains authentication settings. Requests may instead carry an
// anonymous session header, so the JWT secret only guards the user path.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// CacheConfig configures the seen-topic cache used to dedupe diagnostic
// probes across requests. With an empty RedisURL the in-process cache is
// used instead.
type CacheConfig struct {
	RedisURL   string `mapstructure:"redis_url"`
	TTLMinutes int    `mapstructure:"ttl_minutes" validate:"omitempty,gt=0"`
}

// EngineConfig tunes the scheduling algorithm. Zero values fall back to the
// built-in defaults; these knobs exist for content experiments, not for
// per-deployment drift.
type EngineConfig struct {
	MinIntervalDays int `mapstructure:"min_interval_days" validate:"omitempty,gt=0"`
	MaxIntervalDays int `mapstructure:"max_interval_days" validate:"omitempty,gt=0"`
	MinQuestions    int `mapstructure:"min_questions"     validate:"omitempty,gt=0"`
	MaxQuestions    int `mapstructure:"max_questions"     validate:"omitempty,gt=0"`
}
