package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/unkn0wn-root/tagcache/freshness"
)

func IsolationCommand() *cli.Command {
	return &cli.Command{
		Name:  "isolation",
		Usage: "render the board, revalidate one instance, render again",
		Flags: append(registryFlags(),
			&cli.StringFlag{
				Name:  "revalidate",
				Value: string(freshness.OnDemand),
				Usage: "strategy to revalidate between renders: on-demand or time-based",
			},
			&cli.DurationFlag{
				Name:  "pause",
				Usage: "wait between the two renders",
			},
		),
		Action: IsolationCommandAction,
	}
}

func IsolationCommandAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := buildStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	board, err := freshness.NewBoard(st.reg, freshness.BoardOptions{TimeBasedTTL: cfg.Strategies.TimeBasedTTL})
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	before, err := board.Render(ctx)
	if err != nil {
		return err
	}
	printView(w, "before", before)

	target := freshness.Strategy(cmd.String("revalidate"))
	var id string
	switch target {
	case freshness.OnDemand:
		id = board.OnDemand.ID
	case freshness.TimeBased:
		id = board.TimeBased.ID
	}
	res, err := freshness.Revalidate(ctx, st.reg, target, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%s (%s entries marked)\n\n", res.Message, humanize.Comma(int64(res.Count)))

	if d := cmd.Duration("pause"); d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	after, err := board.Render(ctx)
	if err != nil {
		return err
	}
	printView(w, "after", after)

	fmt.Fprintln(w)
	for _, c := range after.Cards {
		prev, _ := before.Card(c.Strategy)
		status := "unchanged"
		if prev.Snapshot.RequestID != c.Snapshot.RequestID {
			status = "regenerated"
		}
		fmt.Fprintf(w, "%-10s %s\n", c.Strategy, status)
	}
	return nil
}

func printView(w io.Writer, title string, v freshness.View) {
	fmt.Fprintf(w, "%s: rendered %s (nonce %s)\n", title, v.RenderedAt.Format(time.RFC3339), v.Nonce)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STRATEGY\tINSTANCE\tGEN\tREQUEST\tDATA TAG\tCOMPUTED")
	for _, c := range v.Cards {
		gen, computed := "-", "per request"
		if c.Cached {
			gen = humanize.Comma(int64(c.Generation))
			computed = humanize.RelTime(c.ComputedAt, v.RenderedAt, "ago", "from now")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Strategy, short(c.InstanceID), gen, short(c.Snapshot.RequestID), c.Snapshot.DataTag, computed)
	}
	_ = tw.Flush()
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
