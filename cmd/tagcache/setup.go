package main

import (
	"context"
	"fmt"
	"os"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/unkn0wn-root/tagcache"
	"github.com/unkn0wn-root/tagcache/codec"
	"github.com/unkn0wn-root/tagcache/freshness"
	asynchook "github.com/unkn0wn-root/tagcache/hooks/async"
	"github.com/unkn0wn-root/tagcache/internal/config"
	"github.com/unkn0wn-root/tagcache/internal/logging"
	pr "github.com/unkn0wn-root/tagcache/provider"
	"github.com/unkn0wn-root/tagcache/provider/bigcache"
	"github.com/unkn0wn-root/tagcache/provider/memory"
	"github.com/unkn0wn-root/tagcache/provider/redis"
	"github.com/unkn0wn-root/tagcache/provider/ristretto"
	"github.com/unkn0wn-root/tagcache/sloghooks"
)

const maxDecode = 1 << 20

// registryFlags override the matching config keys when set.
func registryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "provider", Usage: "value store: memory, ristretto, bigcache or redis"},
		&cli.StringFlag{Name: "codec", Usage: "value codec: json, cbor, cbor-deterministic or msgpack"},
		&cli.StringFlag{Name: "log-level", Usage: "registry log level"},
	}
}

// loadConfig reads the config file named by --config and applies any
// command flags that were set explicitly.
func loadConfig(cmd *cli.Command) (config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return config.Config{}, err
	}
	if cmd.IsSet("addr") {
		cfg.Addr = cmd.String("addr")
	}
	if cmd.IsSet("provider") {
		cfg.Provider.Kind = cmd.String("provider")
	}
	if cmd.IsSet("codec") {
		cfg.Codec = cmd.String("codec")
	}
	if cmd.IsSet("log-level") {
		cfg.Log.Level = cmd.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	log.Debugf("config: source=%q provider=%s codec=%s", cfg.Source, cfg.Provider.Kind, cfg.Codec)
	return cfg, nil
}

// stack is everything a registry needs, plus how to shut it down.
type stack struct {
	reg     tagcache.Registry[freshness.Snapshot]
	logger  tagcache.Logger
	closers []func()
}

func (s *stack) Close(ctx context.Context) {
	if s.reg != nil {
		if err := s.reg.Close(ctx); err != nil {
			log.Warnf("closing registry: %v", err)
		}
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func buildStack(ctx context.Context, cfg config.Config) (*stack, error) {
	st := &stack{}

	logger, flush, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}
	st.logger = logger
	st.closers = append(st.closers, flush)

	sl, err := logging.Slog(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}
	var hooks tagcache.Hooks = sloghooks.New(sl, sloghooks.Options{SelfHealEvery: 10})
	if cfg.Strategies.AsyncHooks {
		ah := asynchook.New(hooks, 1, 1024)
		st.closers = append(st.closers, ah.Close)
		hooks = ah
	}

	prov, err := buildProvider(ctx, cfg.Provider)
	if err != nil {
		st.Close(ctx)
		return nil, err
	}

	cd, err := codec.ByName[freshness.Snapshot](cfg.Codec)
	if err != nil {
		_ = prov.Close(ctx)
		st.Close(ctx)
		return nil, err
	}

	reg, err := tagcache.New[freshness.Snapshot](tagcache.Options[freshness.Snapshot]{
		Namespace: cfg.Namespace,
		Codec:     codec.Limit[freshness.Snapshot]{Inner: cd, MaxDecode: maxDecode},
		Provider:  prov,
		Logger:    logger,
		Hooks:     hooks,
	})
	if err != nil {
		_ = prov.Close(ctx)
		st.Close(ctx)
		return nil, err
	}
	st.reg = reg
	return st, nil
}

func buildProvider(ctx context.Context, cfg config.Provider) (pr.Provider, error) {
	switch cfg.Kind {
	case "", "memory":
		return memory.New(), nil
	case "ristretto":
		return ristretto.New(ristretto.DefaultConfig(cfg.MaxItems))
	case "bigcache":
		return bigcache.New(bigcache.Config{
			LifeWindow:         cfg.BigCache.LifeWindow,
			HardMaxCacheSizeMB: cfg.BigCache.HardMaxCacheSizeMB,
		})
	case "redis":
		return redis.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Kind)
}
