package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"      validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm"       validate:"required"`
	Notifier  NotifierConfig  `mapstructure:"notifier"  validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
}

// ServerConfig contains all HTTP server related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains authentication settings for the single operator.
// The operator logs in with a password whose bcrypt hash is configured
// here and receives a short-lived HS256 token for the HTTP API.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
	OperatorID           int64  `mapstructure:"operator_id"            validate:"required"`
	OperatorPasswordHash string `mapstructure:"operator_password_hash" validate:"required"`
}

// LLMConfig contains all Gemini integration related settings.
type LLMConfig struct {
	GeminiAPIKey       string `mapstructure:"gemini_api_key"       validate:"required"`
	ModelName          string `mapstructure:"model_name"           validate:"required"`
	CallTimeoutSeconds int    `mapstructure:"call_timeout_seconds" validate:"required,gt=0"`
	MaxRetries         int    `mapstructure:"max_retries"          validate:"gte=0"`
	RetryDelaySeconds  int    `mapstructure:"retry_delay_seconds"  validate:"gte=0"`
}

// NotifierConfig contains the Telegram delivery settings: the bot token,
// the operator's group chat and the per-category topic threads tasks are
// routed to. A category missing from Topics falls back to the "other"
// topic.
type NotifierConfig struct {
	BotToken           string           `mapstructure:"bot_token"            validate:"required"`
	ChatID             int64            `mapstructure:"chat_id"              validate:"required"`
	GeneralTopicID     int64            `mapstructure:"general_topic_id"`
	Topics             map[string]int64 `mapstructure:"topics"`
	PollTimeoutSeconds int              `mapstructure:"poll_timeout_seconds" validate:"gte=0"`
}

// DestinationFor resolves the topic thread a category's notifications are
// routed to. Unknown categories route to the "other" topic; if that is
// unset too, the general topic is used.
func (c NotifierConfig) DestinationFor(category string) int64 {
	if id, ok := c.Topics[category]; ok && id != 0 {
		return id
	}
	if id, ok := c.Topics["other"]; ok && id != 0 {
		return id
	}
	return c.GeneralTopicID
}

// SchedulerConfig contains reminder scheduler settings. The reminder
// policy itself (48h floor, due-window) is fixed; only the cadence and
// per-cycle parallelism are configurable.
type SchedulerConfig struct {
	IntervalMinutes int `mapstructure:"interval_minutes" validate:"required,gt=0"`
	WorkerCount     int `mapstructure:"worker_count"     validate:"required,gt=0"`
}
