package config

const (
	defaultIntervalMinutes = 10
	defaultVolume          = 70
	defaultDataDir         = "~/.local/share/chime"
	defaultLogDir          = "~/.local/share/chime/logs"
	defaultLogLevel        = "info"
	defaultLogFormat       = "console"
	defaultNtfyTimeout     = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Bell: Bell{
			IntervalMinutes: defaultIntervalMinutes,
			Volume:          defaultVolume,
		},
		Pause: Pause{
			OnSessionLock: true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
	}
}
