package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmylchreest/volctrld/internal/errors"
)

// Config represents the daemon configuration
type Config struct {
	Devices   []DeviceConfig  `mapstructure:"devices"`
	Speaker   SpeakerConfig   `mapstructure:"speaker"`
	Control   ControlConfig   `mapstructure:"control"`
	Companion CompanionConfig `mapstructure:"companion"`
	Server    ServerConfig    `mapstructure:"server"`
	API       APIConfig       `mapstructure:"api"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Input     InputConfig     `mapstructure:"input"`
	Logging   LoggingConfig   `mapstructure:"logging"`

	v    *viper.Viper
	file string
}

// DeviceConfig is one monitor in the fixed device list.
type DeviceConfig struct {
	Name    string `mapstructure:"name"`
	Address string `mapstructure:"address"`
}

// SpeakerConfig holds wire protocol settings shared by all monitors.
type SpeakerConfig struct {
	Port       int           `mapstructure:"port"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxVolume  float64       `mapstructure:"max_volume"`
	VolumeStep float64       `mapstructure:"volume_step"`
}

// ControlConfig holds the control loop timings.
type ControlConfig struct {
	PollInterval       time.Duration `mapstructure:"poll_interval"`
	TickInterval       time.Duration `mapstructure:"tick_interval"`
	QuietPeriod        time.Duration `mapstructure:"quiet_period"`
	MinCommandInterval time.Duration `mapstructure:"min_command_interval"`
	LongPress          time.Duration `mapstructure:"long_press"`
	MenuGuard          time.Duration `mapstructure:"menu_guard"`
}

// CompanionConfig describes the optional streamer.
type CompanionConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Address       string        `mapstructure:"address"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
	HTTPTimeout   time.Duration `mapstructure:"http_timeout"`
	SOAPTimeout   time.Duration `mapstructure:"soap_timeout"`
}

// ServerConfig represents the local socket configuration
type ServerConfig struct {
	SocketPath string `mapstructure:"socket_path"`
}

// APIConfig represents the HTTP API configuration
type APIConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ListenAddress string `mapstructure:"listen_address"`
	Key           string `mapstructure:"key"`
	// RateLimit is requests per minute per client IP. Zero disables it.
	RateLimit int `mapstructure:"rate_limit"`
}

// MQTTConfig represents the automation hub bridge configuration
type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	QoS         byte   `mapstructure:"qos"`
}

// InputConfig selects the local encoder device.
type InputConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Device  string `mapstructure:"device"`
}

// LoggingConfig represents the logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// flagKeys maps daemon flags onto config keys.
var flagKeys = map[string]string{
	"log-level":  "logging.level",
	"log-format": "logging.format",
	"socket":     "server.socket_path",
	"http-addr":  "api.listen_address",
}

// SetDefaults registers a default for every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("speaker.port", DefaultSpeakerPort)
	v.SetDefault("speaker.timeout", DefaultSpeakerTimeout)
	v.SetDefault("speaker.max_volume", DefaultMaxVolume)
	v.SetDefault("speaker.volume_step", DefaultVolumeStep)

	v.SetDefault("control.poll_interval", DefaultPollInterval)
	v.SetDefault("control.tick_interval", DefaultTickInterval)
	v.SetDefault("control.quiet_period", DefaultQuietPeriod)
	v.SetDefault("control.min_command_interval", DefaultMinCommandInterval)
	v.SetDefault("control.long_press", DefaultLongPress)
	v.SetDefault("control.menu_guard", DefaultMenuGuard)

	v.SetDefault("companion.enabled", false)
	v.SetDefault("companion.address", "")
	v.SetDefault("companion.retry_interval", DefaultCompanionRetry)
	v.SetDefault("companion.http_timeout", DefaultCompanionHTTPTimeout)
	v.SetDefault("companion.soap_timeout", DefaultCompanionSOAPTimeout)

	v.SetDefault("server.socket_path", GetRuntimeSocketPath())

	v.SetDefault("api.enabled", true)
	v.SetDefault("api.listen_address", DefaultAPIListenAddress)
	v.SetDefault("api.key", "")
	v.SetDefault("api.rate_limit", 120)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", DefaultMQTTClientID)
	v.SetDefault("mqtt.topic_prefix", DefaultMQTTTopicPrefix)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.qos", 1)

	v.SetDefault("input.enabled", false)
	v.SetDefault("input.device", "")

	v.SetDefault("logging.level", LogLevelInfo)
	v.SetDefault("logging.format", LogFormatText)
}

// LoadDotEnv loads KEY=value pairs from the given files into the process
// environment. Missing files are skipped; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if stderrors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("%w: loading %s: %w", errors.ErrInvalidInput, f, err)
		}
		slog.Debug("Loaded environment file", "path", f)
	}
	return nil
}

// Load reads configuration from configFile (or the default search path when
// empty), the environment and flags, in increasing order of precedence.
// flags may be nil.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(strings.TrimSuffix(DaemonConfigFilename, ".yaml"))
		for _, dir := range ConfigSearchPaths() {
			v.AddConfigPath(dir)
		}
	}

	file := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) && !stderrors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: reading config: %w", errors.ErrInvalidInput, err)
		}
		slog.Debug("No config file found, using defaults")
	} else {
		file = v.ConfigFileUsed()
		slog.Info("Using config file", "path", file)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.Internalf("binding flag %s: %s", name, err)
				}
			}
		}
	}

	return decode(v, file)
}

func decode(v *viper.Viper, file string) (*Config, error) {
	cfg := &Config{v: v, file: file}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: decoding config: %w", errors.ErrInvalidInput, err)
	}
	return cfg, nil
}

// Reload re-reads the config file into a new Config.
func (c *Config) Reload() (*Config, error) {
	if err := c.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: reading config: %w", errors.ErrInvalidInput, err)
	}
	return decode(c.v, c.file)
}

// File returns the path of the config file in use, or "" when running on
// defaults.
func (c *Config) File() string {
	return c.file
}

// Get retrieves a value from the configuration
func (c *Config) Get(key string) any {
	if c.v == nil {
		return nil
	}
	return c.v.Get(key)
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len(c.Devices) == 0 {
		add("at least one device is required")
	}
	seen := make(map[string]bool, len(c.Devices))
	for i, d := range c.Devices {
		switch {
		case d.Address == "":
			add("devices[%d]: address is empty", i)
		case seen[d.Address]:
			add("devices[%d]: duplicate address %s", i, d.Address)
		}
		seen[d.Address] = true
	}

	if c.Speaker.Port <= 0 || c.Speaker.Port > 65535 {
		add("speaker.port %d out of range", c.Speaker.Port)
	}
	if c.Speaker.MaxVolume <= 0 {
		add("speaker.max_volume must be positive")
	}
	if c.Speaker.VolumeStep < 0 {
		add("speaker.volume_step must not be negative")
	}

	for key, d := range map[string]time.Duration{
		"speaker.timeout":              c.Speaker.Timeout,
		"control.poll_interval":        c.Control.PollInterval,
		"control.tick_interval":        c.Control.TickInterval,
		"control.quiet_period":         c.Control.QuietPeriod,
		"control.min_command_interval": c.Control.MinCommandInterval,
		"control.long_press":           c.Control.LongPress,
		"control.menu_guard":           c.Control.MenuGuard,
	} {
		if d <= 0 {
			add("%s must be positive", key)
		}
	}
	if c.Control.TickInterval > 0 && c.Control.TickInterval < MinTickInterval {
		add("control.tick_interval must be at least %s", MinTickInterval)
	}

	if c.Companion.Enabled && c.Companion.Address == "" {
		add("companion.address is required when the companion is enabled")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		add("mqtt.broker is required when mqtt is enabled")
	}
	if c.MQTT.QoS > 2 {
		add("mqtt.qos must be 0, 1 or 2")
	}
	if c.Input.Enabled && c.Input.Device == "" {
		add("input.device is required when input is enabled")
	}
	if c.Server.SocketPath == "" && !c.API.Enabled {
		add("either server.socket_path or api.enabled must be set")
	}

	if len(problems) > 0 {
		return errors.InvalidInputf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
