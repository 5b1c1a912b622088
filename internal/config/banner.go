package config

import "time"

// Logger is the subset of logging needed to print the configuration banner
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
}

// LogConfiguration logs the effective settings, and any parse fallbacks
func (c *Config) LogConfiguration(logger Logger) {
	for _, w := range c.Warnings {
		logger.Warn("⚠️  %s", w)
	}

	logger.Info("API URL: %s", c.Radarr.URL)
	logger.Info("API Timeout: %s", c.RequestTimeout)
	logger.Info("Missing Content Configuration: HUNT_MISSING_MOVIES=%d", c.HuntMissingMovies)
	logger.Info("Upgrade Configuration: HUNT_UPGRADE_MOVIES=%d (source: %s)", c.HuntUpgradeMovies, c.UpgradeSource)
	if c.State.ResetInterval > 0 {
		logger.Info("State Reset Interval: %d hours", int(c.State.ResetInterval/time.Hour))
	} else {
		logger.Info("State Reset Interval: disabled")
	}
	logger.Info("State Backend: %s (%s)", c.State.Backend, c.State.Dir)
	logger.Info("Minimum Download Queue Size: %d", c.MinimumDownloadQueueSize)
	logger.Info("MONITORED_ONLY=%t, RANDOM_SELECTION=%t", c.MonitoredOnly, c.RandomSelection)
	logger.Info("SKIP_FUTURE_RELEASES=%t", c.SkipFutureReleases)
	if c.CycleSchedule != "" {
		logger.Info("HUNT_MODE=%s, CYCLE_SCHEDULE=%q", c.HuntMode, c.CycleSchedule)
	} else {
		logger.Info("HUNT_MODE=%s, SLEEP_DURATION=%s", c.HuntMode, c.SleepDuration)
	}
	logger.Info("COMMAND_WAIT_DELAY=%s, COMMAND_WAIT_ATTEMPTS=%d, WAIT_FOR_COMMANDS=%t",
		c.CommandWaitDelay, c.CommandWaitAttempts, c.WaitForCommands)
	logger.Debug("API_KEY=%s", MaskSecret(c.Radarr.APIKey))
}

// MaskSecret keeps the first four characters of a secret
func MaskSecret(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return secret[:4] + "****"
}
