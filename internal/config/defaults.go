package config

const (
	defaultLibraryDir       = "~/Pictures/wallpapers"
	defaultFallbackDir      = "/usr/share/backgrounds"
	defaultRecycleDir       = ".retired"
	defaultStateDir         = "~/.local/share/mural"
	defaultLogDir           = "~/.local/share/mural/logs"
	defaultLogRetentionDays = 30

	defaultIntervalSeconds         = 600
	defaultRetireAfter             = 3
	defaultPlaylistRefreshSeconds  = 3600
	defaultFallbackCooldownSeconds = 120
	defaultSettleDelaySeconds      = 2
	defaultMaxErrorMinutes         = 60

	defaultLockInitialSeconds  = 10
	defaultLockMaxSeconds      = 600
	defaultEmptyInitialSeconds = 30
	defaultEmptyMaxSeconds     = 1800

	defaultPictureMode = "zoom"
	defaultLogFormat   = "console"
	defaultLogLevel    = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir:   defaultLibraryDir,
			FallbackDirs: []string{defaultFallbackDir},
			RecycleDir:   defaultRecycleDir,
			StateDir:     defaultStateDir,
			LogDir:       defaultLogDir,
		},
		Rotation: Rotation{
			IntervalSeconds:         defaultIntervalSeconds,
			RetireAfter:             defaultRetireAfter,
			RecycleEnabled:          true,
			PlaylistRefreshSeconds:  defaultPlaylistRefreshSeconds,
			FallbackCooldownSeconds: defaultFallbackCooldownSeconds,
			SettleDelaySeconds:      defaultSettleDelaySeconds,
			MaxErrorMinutes:         defaultMaxErrorMinutes,
			WatchSources:            true,
		},
		Backoff: Backoff{
			LockInitialSeconds:  defaultLockInitialSeconds,
			LockMaxSeconds:      defaultLockMaxSeconds,
			EmptyInitialSeconds: defaultEmptyInitialSeconds,
			EmptyMaxSeconds:     defaultEmptyMaxSeconds,
		},
		Desktop: Desktop{
			SetDarkVariant: true,
			PictureMode:    defaultPictureMode,
			LockDetection:  true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
