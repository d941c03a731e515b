package constants

import "time"

// CompletionPolicy controls how repeated completion marks for the same habit and day are stored
type CompletionPolicy string

// SessionBackend selects where per-user conversation state is kept
type SessionBackend string

const (
	AppName           = "habitbot"
	DefaultConfigDir  = "~/.config/habitbot"
	DefaultConfigPath = "~/.config/habitbot/habitbot.db"
	Version           = "v0.1.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// Keyring entries
	KeyringDatabase      = "database-connection"
	KeyringTelegramToken = "telegram-token"
	KeyringOpenRouterKey = "openrouter-api-key"

	// Habit limits
	MaxHabitNameLen = 200
	MaxPeriodLen    = 100
	MaxNoteLen      = 500

	// Completion policies
	PolicyAppend     CompletionPolicy = "append"
	PolicyOncePerDay CompletionPolicy = "once-per-day"

	// Session backends
	SessionMemory SessionBackend = "memory"
	SessionRedis  SessionBackend = "redis"

	DefaultSessionTTL = 24 * time.Hour
	SessionKeyPrefix  = "habitbot:session"

	// Storage
	DefaultOpTimeout     = 5 * time.Second
	SQLiteBusyTimeoutMs  = 5000
	PostgresConnTimeoutS = 5
	PostgresMaxOpenConns = 25
	PostgresMaxIdleConns = 25
	PostgresConnLifetime = 5 * time.Minute

	// Advice
	DefaultAdviceModel   = "openai/gpt-4o-mini"
	DefaultAdviceBaseURL = "https://openrouter.ai/api/v1"
	DefaultAdviceReferer = "https://github.com/julianstephens/habitbot"
	DefaultAdviceTitle   = "Habit Tracker Bot"
	DefaultAdviceTimeout = 30 * time.Second
	DefaultAdviceRate    = 6
	AdviceMaxTokens      = 200
	AdviceTemperature    = 0.8

	// Telegram
	DefaultPollTimeout = 30
	DefaultWorkers     = 8

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "habitbot-"
	BackupFileSuffix = ".db"
)
