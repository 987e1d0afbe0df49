package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"      validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database"    validate:"required"`
	Auth        AuthConfig        `mapstructure:"auth"        validate:"required"`
	LLM         LLMConfig         `mapstructure:"llm"         validate:"required"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"   validate:"required"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error fatal"`

	// Token-bucket limits applied to the mutating document endpoints.
	SubmitRatePerSecond int `mapstructure:"submit_rate_per_second" validate:"gte=0"`
	SubmitBurst         int `mapstructure:"submit_burst"           validate:"gte=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gt=0"`
	BcryptCost                  int    `mapstructure:"bcrypt_cost"                    validate:"omitempty,gte=4,lte=31"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName    string `mapstructure:"model_name"     validate:"required"`
	MaxRetries   int    `mapstructure:"max_retries"    validate:"gte=0"`
}

// SchedulerConfig contains the knobs for the asynchronous task scheduler.
// Durations are expressed in seconds so they can be set from flat env vars.
type SchedulerConfig struct {
	MaxConcurrentTasks     int `mapstructure:"max_concurrent_tasks"     validate:"required,gt=0"`
	MaxQueueSize           int `mapstructure:"max_queue_size"           validate:"required,gt=0"`
	DefaultTimeoutSeconds  int `mapstructure:"default_timeout_seconds"  validate:"required,gt=0"`
	CleanupIntervalSeconds int `mapstructure:"cleanup_interval_seconds" validate:"required,gt=0"`
	RetentionSeconds       int `mapstructure:"retention_seconds"        validate:"required,gt=0"`
	DefaultMaxRetries      int `mapstructure:"default_max_retries"      validate:"gte=0"`
	StopGraceSeconds       int `mapstructure:"stop_grace_seconds"       validate:"required,gt=0"`
}

// CacheConfig contains result-cache settings. An empty RedisAddr disables
// the cache entirely.
type CacheConfig struct {
	RedisAddr        string `mapstructure:"redis_addr"`
	ResultTTLSeconds int    `mapstructure:"result_ttl_seconds" validate:"gte=0"`
}

// MaintenanceConfig controls the recurring maintenance job. An empty
// CronSpec disables scheduling.
type MaintenanceConfig struct {
	CronSpec        string `mapstructure:"cron_spec"`
	PruneAfterHours int    `mapstructure:"prune_after_hours" validate:"gte=0"`
}
