package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/unkn0wn-root/tagcache"
	"github.com/unkn0wn-root/tagcache/freshness"
	"github.com/unkn0wn-root/tagcache/internal/httpapi"
)

func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "serve the freshness board and invalidation API over HTTP",
		Flags: append(registryFlags(),
			&cli.StringFlag{Name: "addr", Usage: "listen address", Sources: cli.EnvVars("TAGCACHE_ADDR")},
		),
		Action: ServeCommandAction,
	}
}

func ServeCommandAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := buildStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	board, err := freshness.NewBoard(st.reg, freshness.BoardOptions{TimeBasedTTL: cfg.Strategies.TimeBasedTTL})
	if err != nil {
		return err
	}
	for _, in := range board.Instances() {
		log.Debugf("instance %s key=%q tags=%v", in, in.Key(), in.Tags())
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.New(st.reg, board, st.logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	st.logger.Info("listening", tagcache.Fields{"addr": cfg.Addr, "ns": cfg.Namespace, "provider": cfg.Provider.Kind})

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	st.logger.Info("shutting down", nil)
	return srv.Shutdown(shutdownCtx)
}
