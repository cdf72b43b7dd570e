package config

import "time"

const (
	Version = "0.1.0"

	// Pagination
	DefaultTasksPageSize = 50
	DefaultAdminPageSize = 20
	MaxPageSize          = 100
	AdminRecentCount     = 5

	// Input limits
	MaxLedgerAmount   = 1_000_000_000
	MaxTaskTitleLen   = 200
	MaxTaskContentLen = 10000

	// Referral codes
	ReferralCodeLength   = 8
	ReferralCodeAttempts = 10

	// Storage behaviour
	ReadRetryBackoff     = 100 * time.Millisecond
	CompensationTimeout  = 10 * time.Second
	ActivityWriteTimeout = 3 * time.Second
	SinkPublishTimeout   = 5 * time.Second

	// HTTP
	RequestTimeout  = 60 * time.Second
	ShutdownTimeout = 10 * time.Second
	BackendTimeout  = 15 * time.Second

	// Bot
	TasksShownInBot   = 10
	BotSessionTTL     = 30 * time.Minute
	RateLimitWindow   = time.Minute
	MaxTelegramMsg    = 4096
	OpsMessageTimeout = 10 * time.Second
)
