package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"delivery-realtime/internal/general/config"

	"github.com/spf13/pflag"
)

const (
	ModeDriver       = "driver-service"
	ModeNotification = "notification-service"
	ModeToken        = "token"
)

// ErrHelp is returned when -h/--help was requested for a mode.
var ErrHelp = pflag.ErrHelp

// isKnownMode checks if the provided mode name is known.
func isKnownMode(s string) (string, bool) {
	switch s {
	case ModeDriver, "driver", "d":
		return ModeDriver, true
	case ModeNotification, "notification", "notify", "n":
		return ModeNotification, true
	case ModeToken, "tok", "t":
		return ModeToken, true
	default:
		return "", false
	}
}

// ParseMode supports:
//
//	--mode=<value>
//	<value> (subcommand shorthand), e.g., `driver-service --max-concurrent=300`
func ParseMode(args []string) (string, []string, error) {
	var mode string
	var out []string

	for _, arg := range args {
		if after, ok := strings.CutPrefix(arg, "--mode="); ok {
			mode = after
			continue
		}

		if mode == "" {
			if m, ok := isKnownMode(arg); ok {
				mode = m
				continue
			}
		}
		out = append(out, arg)
	}

	if mode == "" {
		return "", out, errors.New("no mode specified: use --mode=<service>")
	}

	m, ok := isKnownMode(mode)
	if !ok {
		return "", out, fmt.Errorf("unknown mode %q", mode)
	}
	return m, out, nil
}

// ServiceFlags are shared by both long-running services.
type ServiceFlags struct {
	ConfigPath    string
	MaxConcurrent int
	Prefetch      int
}

// ParseServiceFlags parses the flags of a service mode. Prefetch is only
// registered for the notification service, which is the only consumer.
func ParseServiceFlags(mode string, args []string, output io.Writer) (ServiceFlags, error) {
	var f ServiceFlags
	fs := pflag.NewFlagSet(mode, pflag.ContinueOnError)
	fs.StringVarP(&f.ConfigPath, "config", "c", config.DefaultPath, "Path to the YAML config file")

	switch mode {
	case ModeDriver:
		fs.IntVar(&f.MaxConcurrent, "max-concurrent", 200, "Maximum number of concurrent HTTP requests (websockets excluded)")
	case ModeNotification:
		fs.IntVar(&f.MaxConcurrent, "max-concurrent", 100, "Maximum number of concurrent HTTP requests (websockets excluded)")
		fs.IntVar(&f.Prefetch, "prefetch", 8, "RabbitMQ prefetch count for the order status consumer")
	default:
		return f, fmt.Errorf("mode %q has no service flags", mode)
	}
	AttachUsage(fs, mode, output)

	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if f.MaxConcurrent < 1 {
		return f, errors.New("--max-concurrent must be >= 1")
	}
	if mode == ModeNotification && f.Prefetch <= 0 {
		return f, errors.New("--prefetch must be > 0")
	}
	return f, nil
}

// PrintUsage prints the usage information with examples.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, "\033[36m") // cyan

	fmt.Fprintln(w, `Usage:
  ./delivery-realtime --mode=<mode> [flags]

Modes:
  driver-service               Driver websockets, order assignment, location relay
  notification-service         User websockets, order rooms, order status fan-out
  token                        Mint a development JWT

Examples:
  ./delivery-realtime --mode=driver-service --max-concurrent=300
  ./delivery-realtime --mode=notification-service --prefetch=16 --config=./config/config.yaml
  ./delivery-realtime token --id=D1 --role=delivery_driver --ttl=24h`)

	fmt.Fprint(w, "\033[0m") // reset
}

// AttachUsage wires a concise per-mode usage to a FlagSet.
func AttachUsage(fs *pflag.FlagSet, mode string, w io.Writer) {
	fs.SetOutput(w)
	fs.Usage = func() {
		fmt.Fprintf(w, "Usage: ./delivery-realtime --mode=%s [flags]\n", mode)
		fs.PrintDefaults()
	}
}
