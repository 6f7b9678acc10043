package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/taskflow-client/api"
	"github.com/jrsteele09/taskflow-client/auth"
	"github.com/jrsteele09/taskflow-client/gateway"
	"github.com/jrsteele09/taskflow-client/internal/config"
	"github.com/jrsteele09/taskflow-client/internal/logging"
	"github.com/jrsteele09/taskflow-client/token"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// app is everything a command needs: the session service over the
// configured credential storage, and the resource API on top of it.
type app struct {
	cfg   config.Config
	svc   *auth.Service
	api   *api.Client
	out   io.Writer
	close func() error
}

func run(ctx context.Context, args []string, out io.Writer) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	fs := flag.NewFlagSet("taskflow", flag.ContinueOnError)
	fs.SetOutput(out)
	configPath := fs.String("config", "", "YAML config file (environment variables override defaults)")
	metricsFile := fs.String("metrics-file", "", "write client metrics in Prometheus text format to this file on exit")
	fs.Usage = func() { usage(out, fs) }
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		usage(out, fs)
		return errUsage
	}

	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		fmt.Fprintf(out, "unknown command %q\n\n", fs.Arg(0))
		usage(out, fs)
		return errUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logging.SetGlobal(logging.New(cfg.GetLogLevel(), cfg.GetEnv()))

	var gatewayOpts []gateway.Option
	if *metricsFile != "" {
		reg := prometheus.NewRegistry()
		gatewayOpts = append(gatewayOpts, gateway.WithMetrics(reg))
		defer func() {
			if err := prometheus.WriteToTextfile(*metricsFile, reg); err != nil {
				log.Err(err).Str("path", *metricsFile).Msg("Failed to write metrics")
			}
		}()
	}

	a, err := newApp(cfg, out, gatewayOpts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			log.Err(err).Msg("Failed to close credential storage")
		}
	}()

	return cmd.run(ctx, a, fs.Args()[1:])
}

func newApp(cfg config.Config, out io.Writer, gatewayOpts ...gateway.Option) (*app, error) {
	repo, closeRepo, err := openRepo(cfg, log.Logger)
	if err != nil {
		return nil, err
	}
	store := token.NewStore(repo, token.WithLogger(log.Logger))
	svc, err := auth.New(cfg, store, auth.WithLogger(log.Logger), auth.WithGatewayOptions(gatewayOpts...))
	if err != nil {
		_ = closeRepo()
		return nil, err
	}
	return &app{
		cfg:   cfg,
		svc:   svc,
		api:   api.New(svc.Client()),
		out:   out,
		close: closeRepo,
	}, nil
}

func usage(out io.Writer, fs *flag.FlagSet) {
	figure.Write(out, figure.NewFigure("TaskFlow", "cybermedium", true))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage: taskflow [-config file] [-metrics-file file] <command> [flags]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	for _, name := range commandOrder {
		fmt.Fprintf(out, "  %-11s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(out)
	fs.PrintDefaults()
}
