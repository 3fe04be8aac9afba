package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	driverservice "delivery-realtime/cmd/driver_service"
	notificationservice "delivery-realtime/cmd/notification_service"
	"delivery-realtime/internal/cli"
)

func main() {
	// quick path for global help
	if len(os.Args) == 2 && (os.Args[1] == "--help" || os.Args[1] == "-h") {
		cli.PrintUsage(os.Stdout)
		os.Exit(0)
	}

	// parse mode and collect the remaining args for that mode
	mode, modeArgs, err := cli.ParseMode(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cli.PrintUsage(os.Stderr)
		os.Exit(2)
	}

	if mode == cli.ModeToken {
		f, err := cli.ParseTokenFlags(modeArgs, os.Stderr)
		exitOnFlagError(err)
		token, _, err := cli.GenerateToken(f)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	flags, err := cli.ParseServiceFlags(mode, modeArgs, os.Stderr)
	exitOnFlagError(err)

	// context cancelled on SIGINT/SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch mode {
	case cli.ModeDriver:
		err = driverservice.Run(ctx, driverservice.Options{
			ConfigPath:    flags.ConfigPath,
			MaxConcurrent: flags.MaxConcurrent,
		})
	case cli.ModeNotification:
		err = notificationservice.Run(ctx, notificationservice.Options{
			ConfigPath:    flags.ConfigPath,
			MaxConcurrent: flags.MaxConcurrent,
			Prefetch:      flags.Prefetch,
		})
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	// tiny delay to let deferred logs flush on very fast exits
	select {
	case <-ctx.Done():
	case <-time.After(10 * time.Millisecond):
	}
}

func exitOnFlagError(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, cli.ErrHelp) {
		os.Exit(0)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(2)
}
