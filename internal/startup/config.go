package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/KDE/macaw-movies/internal/logging"
)

const appName = "macaw-movies"

// Configuration keys. Each is also read from MACAW_<KEY>.
const (
	KeyDataDir       = "data_dir"
	KeyDatabaseFile  = "database_file"
	KeyLogLevel      = "log_level"
	KeyListen        = "listen"
	KeyMetricsPort   = "metrics_port"
	KeyPosterMaxSize = "poster_max_size"
	KeyBackupKeep    = "backup_keep"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "MACAW"
)

// Config holds all application configuration
type Config struct {
	ConfigDir     string
	DataDir       string
	DatabaseFile  string
	LogLevel      string
	Listen        string
	MetricsPort   string
	PosterMaxSize int
	BackupKeep    int

	// Derived paths
	DatabasePath string
	PosterDir    string
}

// NewViper returns a viper instance with the defaults set, MACAW_*
// environment variables bound and config.yaml from configDir read when
// present. An empty configDir selects the platform default.
func NewViper(configDir string) (*viper.Viper, error) {
	if configDir == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}

	v := viper.New()
	v.SetDefault(KeyDatabaseFile, "database.sqlite")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyListen, ":8080")
	v.SetDefault(KeyMetricsPort, "9090")
	v.SetDefault(KeyPosterMaxSize, 500)
	v.SetDefault(KeyBackupKeep, 5)
	v.Set("config_dir", configDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// LoadConfig resolves the configuration held by v, applies the log level and
// makes sure the data directory exists and is writable.
func LoadConfig(v *viper.Viper) (*Config, error) {
	level, err := logging.ParseLevel(v.GetString(KeyLogLevel))
	if err != nil {
		return nil, err
	}
	logging.SetLevel(level)

	dataDir := v.GetString(KeyDataDir)
	if dataDir == "" {
		if dataDir, err = DefaultDataDir(); err != nil {
			return nil, err
		}
	}
	dataDir, err = filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	dbFile := v.GetString(KeyDatabaseFile)
	if dbFile == "" || filepath.Base(dbFile) != dbFile {
		return nil, fmt.Errorf("invalid %s %q: want a plain file name", KeyDatabaseFile, dbFile)
	}

	maxSize := v.GetInt(KeyPosterMaxSize)
	if maxSize < 1 {
		return nil, fmt.Errorf("invalid %s %d: must be positive", KeyPosterMaxSize, maxSize)
	}

	config := &Config{
		ConfigDir:     v.GetString("config_dir"),
		DataDir:       dataDir,
		DatabaseFile:  dbFile,
		LogLevel:      level.String(),
		Listen:        v.GetString(KeyListen),
		MetricsPort:   v.GetString(KeyMetricsPort),
		PosterMaxSize: maxSize,
		BackupKeep:    v.GetInt(KeyBackupKeep),
		DatabasePath:  filepath.Join(dataDir, dbFile),
		PosterDir:     filepath.Join(dataDir, "posters"),
	}

	if err := ensureDirectory(dataDir, "data"); err != nil {
		return nil, fmt.Errorf("data directory error: %w", err)
	}
	if err := testWriteAccess(dataDir); err != nil {
		return nil, fmt.Errorf("data directory is not writable (required for database): %w", err)
	}
	return config, nil
}

// DefaultConfigDir returns $XDG_CONFIG_HOME/macaw-movies on Linux, with the
// usual ~/.config fallback, and the user config directory elsewhere.
func DefaultConfigDir() (string, error) {
	return platformDir("XDG_CONFIG_HOME", ".config", os.UserConfigDir)
}

// DefaultDataDir returns $XDG_DATA_HOME/macaw-movies on Linux, with the
// usual ~/.local/share fallback, and the user config directory elsewhere.
func DefaultDataDir() (string, error) {
	return platformDir("XDG_DATA_HOME", filepath.Join(".local", "share"), os.UserConfigDir)
}

func platformDir(xdgVar, homeRel string, fallback func() (string, error)) (string, error) {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv(xdgVar); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, homeRel, appName), nil
	}
	dir, err := fallback()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}
