package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"gopkg.in/yaml.v3"
)

const fileName = "tagcache.yaml"

type Config struct {
	Source string `yaml:"-"`

	Namespace  string     `yaml:"namespace"`
	Addr       string     `yaml:"addr"`
	Codec      string     `yaml:"codec"`
	Provider   Provider   `yaml:"provider"`
	Log        Log        `yaml:"log"`
	Strategies Strategies `yaml:"strategies"`
}

type Provider struct {
	Kind     string   `yaml:"kind"` // memory | ristretto | bigcache | redis
	MaxItems int64    `yaml:"max_items"`
	BigCache BigCache `yaml:"bigcache"`
	Redis    Redis    `yaml:"redis"`
}

type BigCache struct {
	LifeWindow         time.Duration `yaml:"life_window"`
	HardMaxCacheSizeMB int           `yaml:"hard_max_cache_size_mb"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Log struct {
	Backend string `yaml:"backend"` // zap | logrus | slog | apex
	Level   string `yaml:"level"`
}

type Strategies struct {
	TimeBasedTTL time.Duration `yaml:"time_based_ttl"`
	AsyncHooks   bool          `yaml:"async_hooks"`
}

var (
	providerKinds = []string{"memory", "ristretto", "bigcache", "redis"}
	logBackends   = []string{"zap", "logrus", "slog", "apex"}
	logLevels     = []string{"debug", "info", "warn", "error"}
)

func Default() Config {
	return Config{
		Namespace: "tagcache",
		Addr:      ":8080",
		Codec:     "json",
		Provider:  Provider{Kind: "memory", MaxItems: 10_000},
		Log:       Log{Backend: "slog", Level: "info"},
		Strategies: Strategies{
			TimeBasedTTL: 10 * time.Second,
		},
	}
}

// Load reads path over the defaults, then applies TAGCACHE_* env vars. With
// an empty path the file is looked up via TAGCACHE_CONFIG and the standard
// config dirs; finding none is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = findConfigPath()
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if explicit || !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		} else {
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
			cfg.Source = path
			log.Debugf("using config file: %s", path)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func findConfigPath() string {
	if p := os.Getenv("TAGCACHE_CONFIG"); p != "" {
		return p
	}
	for _, dir := range []string{os.Getenv("XDG_CONFIG_HOME"), os.Getenv("HOME")} {
		if dir == "" {
			continue
		}
		file := filepath.Join(dir, fileName)
		if fi, err := os.Stat(file); err == nil && !fi.IsDir() {
			return file
		}
	}
	return ""
}

func (c *Config) applyEnv() error {
	str := map[string]*string{
		"TAGCACHE_NAMESPACE":      &c.Namespace,
		"TAGCACHE_ADDR":           &c.Addr,
		"TAGCACHE_CODEC":          &c.Codec,
		"TAGCACHE_PROVIDER":       &c.Provider.Kind,
		"TAGCACHE_REDIS_ADDR":     &c.Provider.Redis.Addr,
		"TAGCACHE_REDIS_PASSWORD": &c.Provider.Redis.Password,
		"TAGCACHE_LOG_BACKEND":    &c.Log.Backend,
		"TAGCACHE_LOG_LEVEL":      &c.Log.Level,
	}
	for env, dst := range str {
		if v, ok := os.LookupEnv(env); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv("TAGCACHE_TIME_BASED_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TAGCACHE_TIME_BASED_TTL: %w", err)
		}
		c.Strategies.TimeBasedTTL = d
	}
	if v, ok := os.LookupEnv("TAGCACHE_REDIS_DB"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TAGCACHE_REDIS_DB: %w", err)
		}
		c.Provider.Redis.DB = n
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Namespace == "" {
		errs = append(errs, errors.New("namespace must not be empty"))
	}
	if !oneOf(c.Provider.Kind, providerKinds) {
		errs = append(errs, fmt.Errorf("provider.kind %q: want one of %s", c.Provider.Kind, strings.Join(providerKinds, ", ")))
	}
	if c.Provider.Kind == "redis" && c.Provider.Redis.Addr == "" {
		errs = append(errs, errors.New("provider.redis.addr is required for the redis provider"))
	}
	if !oneOf(c.Log.Backend, logBackends) {
		errs = append(errs, fmt.Errorf("log.backend %q: want one of %s", c.Log.Backend, strings.Join(logBackends, ", ")))
	}
	if !oneOf(strings.ToLower(c.Log.Level), logLevels) {
		errs = append(errs, fmt.Errorf("log.level %q: want one of %s", c.Log.Level, strings.Join(logLevels, ", ")))
	}
	if c.Strategies.TimeBasedTTL <= 0 {
		errs = append(errs, errors.New("strategies.time_based_ttl must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func oneOf(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}
