package config

import (
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.trai.ch/stow/internal/core/domain"
	"go.trai.ch/zerr"
)

// Setting keys. Each can be overridden by an environment variable with the
// STOW_ prefix and dots replaced by underscores, e.g. STOW_CACHE_DIR.
const (
	KeyCacheEnabled = "cache.enabled"
	KeyCacheShared  = "cache.shared"
	KeyCacheDir     = "cache.dir"
	KeyLogFormat    = "log.format"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "STOW"

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyCacheEnabled, true)
	v.SetDefault(KeyCacheShared, true)
	v.SetDefault(KeyCacheDir, "")
	v.SetDefault(KeyLogFormat, "pretty")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// loadSettings layers defaults, the project file (when configPath is set)
// and the environment. A relative cache dir is resolved against root.
func loadSettings(configPath, root string) (domain.Settings, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return domain.Settings{}, zerr.With(zerr.Wrap(domain.ErrSettingsLoadFailed, err.Error()), "path", configPath)
		}
	}

	settings := domain.Settings{
		CacheEnabled: v.GetBool(KeyCacheEnabled),
		SharedCache:  v.GetBool(KeyCacheShared),
		CacheDir:     v.GetString(KeyCacheDir),
		LogFormat:    v.GetString(KeyLogFormat),
	}

	if settings.CacheDir != "" && !filepath.IsAbs(settings.CacheDir) {
		settings.CacheDir = filepath.Join(root, settings.CacheDir)
	}

	switch settings.LogFormat {
	case "pretty", "json":
	default:
		return domain.Settings{}, zerr.With(zerr.New("unknown log format, expected 'pretty' or 'json'"), "format", settings.LogFormat)
	}

	return settings, nil
}
