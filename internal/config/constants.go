package config

import "time"

// Common constants shared between daemon and client
const (
	// ConfigDirName is the name of the config directory within XDG_CONFIG_HOME
	ConfigDirName = "volctrld"

	// SystemConfigDir is used when running as a system service
	SystemConfigDir = "/etc/volctrld"

	// DaemonConfigFilename is the base filename for daemon config
	DaemonConfigFilename = "volctrld.yaml"

	// ClientConfigFilename is the base filename for client config
	ClientConfigFilename = "volctrlctl.yaml"

	// SocketFilename is the base filename for the Unix socket
	SocketFilename = "volctrld.sock"

	// EnvPrefix prefixes every environment override, e.g. VOLCTRLD_API_KEY.
	EnvPrefix = "VOLCTRLD"

	// DefaultAPIListenAddress is the default HTTP API listen address
	DefaultAPIListenAddress = ":9124"
)

// Default timeouts and intervals
const (
	DefaultPollInterval       = 2 * time.Second
	DefaultTickInterval       = 50 * time.Millisecond
	DefaultQuietPeriod        = 300 * time.Millisecond
	DefaultMinCommandInterval = time.Second
	DefaultLongPress          = 800 * time.Millisecond
	DefaultMenuGuard          = time.Second

	DefaultSpeakerTimeout = time.Second

	DefaultCompanionRetry       = 30 * time.Second
	DefaultCompanionHTTPTimeout = 500 * time.Millisecond
	DefaultCompanionSOAPTimeout = 1500 * time.Millisecond

	// MinTickInterval keeps the control loop from spinning.
	MinTickInterval = 5 * time.Millisecond
)

// Speaker constraints
const (
	DefaultSpeakerPort = 45
	DefaultMaxVolume   = 120.0
	DefaultVolumeStep  = 1.0
)

// MQTT defaults
const (
	DefaultMQTTClientID    = "volctrld"
	DefaultMQTTTopicPrefix = "volctrld"
)

// Logging constants
const (
	// LogLevelDebug represents debug log level
	LogLevelDebug = "debug"

	// LogLevelInfo represents info log level
	LogLevelInfo = "info"

	// LogLevelWarn represents warning log level
	LogLevelWarn = "warn"

	// LogLevelError represents error log level
	LogLevelError = "error"

	// LogFormatText represents text log format
	LogFormatText = "text"

	// LogFormatJSON represents JSON log format
	LogFormatJSON = "json"
)
