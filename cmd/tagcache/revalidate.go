package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"
)

func RevalidateCommand() *cli.Command {
	return &cli.Command{
		Name:  "revalidate",
		Usage: "trigger revalidation on a running server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Value:   "http://localhost:8080",
				Usage:   "base URL of a tagcache server",
				Sources: cli.EnvVars("TAGCACHE_SERVER"),
			},
			&cli.StringFlag{Name: "type", Value: "on-demand", Usage: "on-demand or time-based"},
			&cli.StringFlag{Name: "instance", Aliases: []string{"i"}, Usage: "instance id to revalidate"},
			&cli.StringFlag{Name: "tag", Usage: "revalidate a raw tag instead of an instance"},
			&cli.DurationFlag{Name: "timeout", Value: 10 * time.Second, Usage: "request timeout"},
		},
		Action: RevalidateCommandAction,
	}
}

func RevalidateCommandAction(ctx context.Context, cmd *cli.Command) error {
	u, err := revalidateURL(cmd.String("server"), cmd.String("type"), cmd.String("instance"), cmd.String("tag"))
	if err != nil {
		return err
	}
	log.Debugf("GET %s", u)

	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &e)
		return fmt.Errorf("revalidate: %s: %s (%s)", resp.Status, e.Message, e.Error)
	}

	var res struct {
		Message string `json:"message"`
		Count   int    `json:"count"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return fmt.Errorf("revalidate: decode response: %w", err)
	}
	fmt.Fprintf(cmd.Root().Writer, "%s (%d entries marked)\n", res.Message, res.Count)
	return nil
}

func revalidateURL(server, typ, instance, tag string) (string, error) {
	base, err := url.Parse(strings.TrimRight(server, "/"))
	if err != nil {
		return "", fmt.Errorf("bad --server: %w", err)
	}
	q := url.Values{}
	switch {
	case tag != "":
		base.Path += "/api/revalidate/tag"
		q.Set("tag", tag)
	case typ == "on-demand" || typ == "time-based":
		if instance == "" {
			return "", fmt.Errorf("--instance is required for %s", typ)
		}
		base.Path += "/api/revalidate/" + typ
		q.Set("instanceId", instance)
	default:
		return "", fmt.Errorf("unknown --type %q", typ)
	}
	base.RawQuery = q.Encode()
	return base.String(), nil
}
