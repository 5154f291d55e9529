package startup

import (
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	assert.NotEmpty(t, info.Version)
	assert.Equal(t, GoVersion, info.GoVersion)
	assert.Equal(t, runtime.GOOS, info.OS)
	assert.Equal(t, runtime.GOARCH, info.Arch)
}

func TestLoadConfigDefaults(t *testing.T) {
	configDir := t.TempDir()
	dataDir := filepath.Join(t.TempDir(), "data")
	t.Setenv("MACAW_DATA_DIR", dataDir)

	v, err := NewViper(configDir)
	require.NoError(t, err)
	cfg, err := LoadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, configDir, cfg.ConfigDir)
	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dataDir, "database.sqlite"), cfg.DatabasePath)
	assert.Equal(t, filepath.Join(dataDir, "posters"), cfg.PosterDir)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "9090", cfg.MetricsPort)
	assert.Equal(t, 500, cfg.PosterMaxSize)
	assert.Equal(t, 5, cfg.BackupKeep)

	info, err := os.Stat(dataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLoadConfigPrecedence(t *testing.T) {
	configDir := t.TempDir()
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(
		"data_dir: "+dataDir+"\ndatabase_file: library.db\nposter_max_size: 300\nlisten: 127.0.0.1:7000\n"), 0o600))
	t.Setenv("MACAW_POSTER_MAX_SIZE", "200")

	v, err := NewViper(configDir)
	require.NoError(t, err)
	cfg, err := LoadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dataDir, "library.db"), cfg.DatabasePath)
	assert.Equal(t, "127.0.0.1:7000", cfg.Listen)
	assert.Equal(t, 200, cfg.PosterMaxSize)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  any
	}{
		{name: "nested database file", key: KeyDatabaseFile, val: "../escape.db"},
		{name: "zero poster size", key: KeyPosterMaxSize, val: 0},
		{name: "unknown log level", key: KeyLogLevel, val: "chatty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewViper(t.TempDir())
			require.NoError(t, err)
			v.Set(KeyDataDir, t.TempDir())
			v.Set(tt.key, tt.val)

			_, err = LoadConfig(v)
			require.Error(t, err)
		})
	}
}

func TestLoadConfigDataDirIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	v, err := NewViper(t.TempDir())
	require.NoError(t, err)
	v.Set(KeyDataDir, file)

	_, err = LoadConfig(v)
	require.Error(t, err)
}

func TestDefaultDataDirHonoursXDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG directories are only used on Linux")
	}
	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")

	dir, err := DefaultDataDir()
	require.NoError(t, err)
	assert.Equal(t, "/xdg/data/macaw-movies", dir)

	dir, err = DefaultConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/xdg/config/macaw-movies", dir)
}

func TestGetRoutes(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(http.ResponseWriter, *http.Request) {}).Methods("GET")
	r.Handle("/metrics", http.NotFoundHandler())

	routes, err := GetRoutes(r)
	require.NoError(t, err)
	assert.ElementsMatch(t, []RouteInfo{
		{Method: "GET", Path: "/healthz"},
		{Method: "*", Path: "/metrics"},
	}, routes)
}

func TestHostPort(t *testing.T) {
	assert.Equal(t, "0.0.0.0:8080", hostPort(":8080"))
	assert.Equal(t, "127.0.0.1:9000", hostPort("127.0.0.1:9000"))
}
