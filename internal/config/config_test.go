package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps the developer's real config and env out of the test.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("TAGCACHE_CONFIG", "")
	for _, env := range []string{
		"TAGCACHE_NAMESPACE", "TAGCACHE_ADDR", "TAGCACHE_CODEC", "TAGCACHE_PROVIDER",
		"TAGCACHE_REDIS_ADDR", "TAGCACHE_REDIS_PASSWORD", "TAGCACHE_REDIS_DB",
		"TAGCACHE_LOG_BACKEND", "TAGCACHE_LOG_LEVEL", "TAGCACHE_TIME_BASED_TTL",
	} {
		if v, ok := os.LookupEnv(env); ok {
			os.Unsetenv(env)
			t.Cleanup(func() { os.Setenv(env, v) })
		}
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		testFile  string
		wantErr   bool
		checkFunc func(*testing.T, Config)
	}{
		{
			name:     "full file",
			testFile: "full.yaml",
			checkFunc: func(t *testing.T, cfg Config) {
				assert.Equal(t, "demo", cfg.Namespace)
				assert.Equal(t, "127.0.0.1:9090", cfg.Addr)
				assert.Equal(t, "cbor", cfg.Codec)
				assert.Equal(t, "ristretto", cfg.Provider.Kind)
				assert.Equal(t, int64(500), cfg.Provider.MaxItems)
				assert.Equal(t, time.Hour, cfg.Provider.BigCache.LifeWindow)
				assert.Equal(t, Log{Backend: "zap", Level: "debug"}, cfg.Log)
				assert.Equal(t, 30*time.Second, cfg.Strategies.TimeBasedTTL)
				assert.True(t, cfg.Strategies.AsyncHooks)
				assert.NotEmpty(t, cfg.Source)
			},
		},
		{
			name:     "partial file keeps defaults",
			testFile: "partial.yaml",
			checkFunc: func(t *testing.T, cfg Config) {
				assert.Equal(t, "tagcache", cfg.Namespace)
				assert.Equal(t, "json", cfg.Codec)
				assert.Equal(t, "redis", cfg.Provider.Kind)
				assert.Equal(t, Redis{Addr: "localhost:6379", DB: 2}, cfg.Provider.Redis)
				assert.Equal(t, 10*time.Second, cfg.Strategies.TimeBasedTTL)
			},
		},
		{name: "unknown provider kind", testFile: "bad-kind.yaml", wantErr: true},
		{name: "malformed yaml", testFile: "malformed.yaml", wantErr: true},
		{name: "explicit missing file", testFile: "does-not-exist.yaml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			cfg, err := Load(filepath.Join("testdata", tt.testFile))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.checkFunc != nil {
				tt.checkFunc(t, cfg)
			}
		})
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFindsFileInHome(t *testing.T) {
	isolate(t)
	home := os.Getenv("HOME")
	require.NoError(t, os.WriteFile(filepath.Join(home, fileName), []byte("namespace: from-home\n"), 0o600))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-home", cfg.Namespace)
	assert.Equal(t, filepath.Join(home, fileName), cfg.Source)
}

func TestEnvOverridesFile(t *testing.T) {
	isolate(t)
	t.Setenv("TAGCACHE_ADDR", ":7000")
	t.Setenv("TAGCACHE_LOG_LEVEL", "warn")
	t.Setenv("TAGCACHE_TIME_BASED_TTL", "5s")

	cfg, err := Load(filepath.Join("testdata", "full.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 5*time.Second, cfg.Strategies.TimeBasedTTL)
}

func TestEnvBadValues(t *testing.T) {
	isolate(t)
	t.Setenv("TAGCACHE_TIME_BASED_TTL", "soon")
	_, err := Load("")
	assert.Error(t, err)

	t.Setenv("TAGCACHE_TIME_BASED_TTL", "5s")
	t.Setenv("TAGCACHE_REDIS_DB", "zero")
	_, err = Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Provider.Kind = "redis"
	assert.ErrorContains(t, cfg.Validate(), "provider.redis.addr")

	cfg = Default()
	cfg.Log.Backend = "glog"
	cfg.Namespace = ""
	err := cfg.Validate()
	assert.ErrorContains(t, err, "log.backend")
	assert.ErrorContains(t, err, "namespace")
}
