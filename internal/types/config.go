package types

type RunMode string

const (
	// ModeLocal runs the relay with local defaults and debug logging
	ModeLocal RunMode = "local"
	// ModeAPI runs just the webhook API server
	ModeAPI RunMode = "api"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
)
