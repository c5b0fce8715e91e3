package main

import (
	"context"
	"fmt"
	"os"

	"github.com/unkn0wn-root/tagcache/internal/logging"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	logging.InitCLI()

	ctx := context.Background()
	app := InitApp()
	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
