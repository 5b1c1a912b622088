package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/hnipps/huntarr/pkg/models"
)

// ErrInvalidConfig is returned by Validate for unusable configuration
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all configuration for the application
type Config struct {
	Radarr RadarrConfig
	State  StateConfig

	// Remote API settings
	RequestTimeout time.Duration `validate:"gt=0"`
	RequestDelay   time.Duration `validate:"gte=0"`

	// Per-cycle quotas
	HuntMissingMovies int
	HuntUpgradeMovies int

	// Scheduling
	SleepDuration     time.Duration `validate:"gt=0"`
	CycleSchedule     string
	ListingRetryDelay time.Duration `validate:"gt=0"`

	// Command polling
	WaitForCommands     bool
	CommandWaitDelay    time.Duration `validate:"gte=0"`
	CommandWaitAttempts int           `validate:"gt=0"`
	CommandSettleDelay  time.Duration `validate:"gte=0"`

	// Selection
	MinimumDownloadQueueSize int
	MonitoredOnly            bool
	RandomSelection          bool
	SkipFutureReleases       bool
	HuntMode                 models.HuntMode
	UpgradeSource            string `validate:"oneof=server client"`

	// Outer surfaces
	StatusAddr string
	ReportDir  string

	LogLevel string `validate:"oneof=DEBUG INFO WARN WARNING ERROR"`
	DryRun   bool

	// Warnings collects values that failed to parse and fell back to defaults
	Warnings []string
}

// RadarrConfig holds Radarr connection settings
type RadarrConfig struct {
	URL    string `validate:"required,url"`
	APIKey string `validate:"required"`
}

// StateConfig holds processed-ID store settings
type StateConfig struct {
	Backend       string `validate:"oneof=file sqlite badger"`
	Dir           string `validate:"required"`
	ResetInterval time.Duration
	MaxEntries    int   `validate:"gt=0"`
	TruncateBytes int64 `validate:"gte=0"`
}

// envKeys maps struct field names to the environment key reported in validation errors
var envKeys = map[string]string{
	"URL":                 "API_URL",
	"APIKey":              "API_KEY",
	"RequestTimeout":      "API_TIMEOUT",
	"RequestDelay":        "REQUEST_DELAY",
	"SleepDuration":       "SLEEP_DURATION",
	"ListingRetryDelay":   "LISTING_RETRY_DELAY",
	"CommandWaitDelay":    "COMMAND_WAIT_DELAY",
	"CommandWaitAttempts": "COMMAND_WAIT_ATTEMPTS",
	"CommandSettleDelay":  "COMMAND_SETTLE_DELAY",
	"UpgradeSource":       "UPGRADE_SOURCE",
	"LogLevel":            "LOG_LEVEL",
	"Backend":             "STATE_BACKEND",
	"Dir":                 "STATE_DIR",
	"MaxEntries":          "STATE_MAX_ENTRIES",
	"TruncateBytes":       "STATE_TRUNCATE_BYTES",
}

var validate = validator.New()

// LoadConfig loads configuration from the environment, an optional .env file
// and the YAML file named by HUNTARR_CONFIG
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(os.Getenv("HUNTARR_CONFIG"))
}

// LoadConfigFrom loads configuration using path as the YAML overlay.
// Environment variables take precedence over the file.
func LoadConfigFrom(path string) (*Config, error) {
	// Load .env file if it exists (ignore errors - .env file is optional)
	_ = godotenv.Load()

	src := &source{}
	if path != "" {
		file, err := readFile(path)
		if err != nil {
			return nil, err
		}
		src.file = file
	}

	config := &Config{}

	config.Radarr.URL = strings.TrimRight(src.string("API_URL", "http://127.0.0.1:7878"), "/")
	config.Radarr.APIKey = src.string("API_KEY", "")

	config.RequestTimeout = src.seconds("API_TIMEOUT", 60*time.Second)
	config.RequestDelay = src.duration("REQUEST_DELAY", 0)

	config.HuntMissingMovies = src.int("HUNT_MISSING_MOVIES", 1)
	config.HuntUpgradeMovies = src.int("HUNT_UPGRADE_MOVIES", 5)

	config.SleepDuration = src.seconds("SLEEP_DURATION", 900*time.Second)
	config.CycleSchedule = src.string("CYCLE_SCHEDULE", "")
	config.ListingRetryDelay = src.seconds("LISTING_RETRY_DELAY", 60*time.Second)

	config.WaitForCommands = src.bool("WAIT_FOR_COMMANDS", true)
	config.CommandWaitDelay = src.seconds("COMMAND_WAIT_DELAY", time.Second)
	config.CommandWaitAttempts = src.int("COMMAND_WAIT_ATTEMPTS", 600)
	config.CommandSettleDelay = src.seconds("COMMAND_SETTLE_DELAY", time.Second)

	config.MinimumDownloadQueueSize = src.int("MINIMUM_DOWNLOAD_QUEUE_SIZE", -1)
	config.MonitoredOnly = src.bool("MONITORED_ONLY", true)
	config.RandomSelection = src.bool("RANDOM_SELECTION", true)
	config.SkipFutureReleases = src.bool("SKIP_FUTURE_RELEASES", true)
	config.HuntMode = models.HuntMode(strings.ToLower(src.string("HUNT_MODE", string(models.HuntModeBoth))))
	config.UpgradeSource = strings.ToLower(src.string("UPGRADE_SOURCE", "server"))

	config.State.Backend = strings.ToLower(src.string("STATE_BACKEND", "file"))
	config.State.Dir = src.string("STATE_DIR", "/tmp/huntarr-radarr-state")
	config.State.ResetInterval = time.Duration(src.int("STATE_RESET_INTERVAL_HOURS", 168)) * time.Hour
	config.State.MaxEntries = src.int("STATE_MAX_ENTRIES", 500)
	config.State.TruncateBytes = int64(src.int("STATE_TRUNCATE_BYTES", 10000))

	config.StatusAddr = src.string("STATUS_ADDR", "")
	config.ReportDir = src.string("REPORT_DIR", "")

	config.LogLevel = strings.ToUpper(src.string("LOG_LEVEL", "INFO"))
	if src.bool("DEBUG_MODE", false) {
		config.LogLevel = "DEBUG"
	}
	config.DryRun = src.bool("DRY_RUN", false)

	config.Warnings = src.warnings
	return config, nil
}

// Validate checks if the configuration is usable by the hunt loop
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s", ErrInvalidConfig, describe(verrs[0]))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.CycleSchedule != "" {
		if _, err := cron.ParseStandard(c.CycleSchedule); err != nil {
			return fmt.Errorf("%w: CYCLE_SCHEDULE %q: %v", ErrInvalidConfig, c.CycleSchedule, err)
		}
	}

	return nil
}

// Quota returns the per-cycle quota for a category
func (c *Config) Quota(category models.Category) int {
	if category == models.CategoryUpgrade {
		return c.HuntUpgradeMovies
	}
	return c.HuntMissingMovies
}

func describe(fe validator.FieldError) string {
	key, ok := envKeys[fe.Field()]
	if !ok {
		key = fe.Field()
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", key)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", key)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", key, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be positive", key)
	case "gte":
		return fmt.Sprintf("%s must not be negative", key)
	default:
		return fmt.Sprintf("%s is invalid", key)
	}
}

// readFile reads a flat YAML document of lower-case keys into strings
func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, fmt.Errorf("config file %s: key %q: %w", path, k, err)
		}
		values[strings.ToLower(k)] = s
	}
	return values, nil
}

// source resolves keys from the environment first, then the config file
type source struct {
	file     map[string]string
	warnings []string
}

func (s *source) lookup(key string) (string, bool) {
	if value := os.Getenv(key); value != "" {
		return value, true
	}
	if value, ok := s.file[strings.ToLower(key)]; ok && value != "" {
		return value, true
	}
	return "", false
}

func (s *source) warn(key, value string, def interface{}) {
	s.warnings = append(s.warnings, fmt.Sprintf("Invalid %s value %q, using default: %v", key, value, def))
}

func (s *source) string(key, defaultValue string) string {
	if value, ok := s.lookup(key); ok {
		return value
	}
	return defaultValue
}

func (s *source) int(key string, defaultValue int) int {
	value, ok := s.lookup(key)
	if !ok {
		return defaultValue
	}
	parsed, err := toDecimal(value)
	if err != nil {
		s.warn(key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// toDecimal parses a base-10 integer. Leading zeros are ignored rather than
// read as octal, and hex or binary prefixes are rejected.
func toDecimal(value string) (int, error) {
	value = strings.TrimSpace(value)

	sign, digits := "", value
	if strings.HasPrefix(digits, "-") || strings.HasPrefix(digits, "+") {
		sign, digits = digits[:1], digits[1:]
	}
	if digits == "" || strings.TrimLeft(digits, "0123456789") != "" {
		return 0, fmt.Errorf("%q is not a decimal integer", value)
	}

	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		digits = "0"
	}
	return cast.ToIntE(sign + digits)
}

func (s *source) bool(key string, defaultValue bool) bool {
	value, ok := s.lookup(key)
	if !ok {
		return defaultValue
	}
	parsed, err := cast.ToBoolE(strings.ToLower(strings.TrimSpace(value)))
	if err != nil {
		s.warn(key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

// seconds accepts a plain number of seconds or a Go duration string
func (s *source) seconds(key string, defaultValue time.Duration) time.Duration {
	value, ok := s.lookup(key)
	if !ok {
		return defaultValue
	}
	value = strings.TrimSpace(value)
	if n, err := toDecimal(value); err == nil {
		return time.Duration(n) * time.Second
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	s.warn(key, value, defaultValue)
	return defaultValue
}

func (s *source) duration(key string, defaultValue time.Duration) time.Duration {
	value, ok := s.lookup(key)
	if !ok {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		s.warn(key, value, defaultValue)
		return defaultValue
	}
	return d
}
