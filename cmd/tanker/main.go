package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/five82/tanker/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "override tanker config path (optional)")
	pollSeconds := flag.Int("poll", 0, "refresh interval in seconds (optional, defaults to 15s)")
	email := flag.String("email", "", "sign in with this email on start; the password is read from TANKER_PASSWORD")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := app.Options{ConfigPath: *configPath, Email: *email}
	if poll := *pollSeconds; poll > 0 {
		opts.PollEvery = time.Duration(poll) * time.Second
	}
	if opts.Email != "" {
		opts.Password = os.Getenv("TANKER_PASSWORD")
	}

	if err := app.Run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "tanker: %v\n", err)
		return 1
	}
	return 0
}
