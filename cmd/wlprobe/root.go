package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/waylink/internal/client"
	"github.com/danmuck/waylink/internal/config"
	"github.com/danmuck/waylink/internal/logging"
	"github.com/danmuck/waylink/internal/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath  string
	display     string
	metricsAddr string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "wlprobe",
		Short: "Inspect a Wayland compositor over its client socket",
		Long: `wlprobe connects to a compositor as an ordinary client and reports what it
advertises. It resolves the socket from --display, the config file, or the
WAYLAND_SOCKET / WAYLAND_DISPLAY / XDG_RUNTIME_DIR environment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "TOML config file")
	flags.StringVarP(&opts.display, "display", "d", "", "socket name or absolute path (overrides config)")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	flags.StringVar(&opts.logLevel, "log-level", "", "trace, debug, info, warn, error, off (overrides config)")

	cmd.AddCommand(
		globalsCmd(opts),
		roundtripCmd(opts),
		watchCmd(opts),
		configCmd(opts),
	)
	return cmd
}

func (o *rootOptions) load() (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if o.display != "" {
		cfg.Display = o.display
	}
	if o.logLevel != "" {
		level, ok := logging.ParseLevel(o.logLevel)
		if !ok {
			return config.Config{}, errors.New("unknown --log-level " + o.logLevel)
		}
		cfg.LogLevel = level
	}
	return cfg, nil
}

// session loads config, installs logging and metrics, dials, and starts the
// dispatch loop. The returned stop func closes everything it opened.
func (o *rootOptions) session(parent context.Context) (context.Context, *client.Client, func(), error) {
	cfg, err := o.load()
	if err != nil {
		return nil, nil, nil, err
	}
	logging.Apply(cfg.LoggingConfig())

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	stopMetrics := func() {}
	if o.metricsAddr != "" {
		stopMetrics, err = serveMetrics(o.metricsAddr)
		if err != nil {
			cancel()
			return nil, nil, nil, err
		}
	}

	c, err := client.Dial(ctx, cfg.ClientConfig())
	if err != nil {
		stopMetrics()
		cancel()
		return nil, nil, nil, err
	}
	c.Start(ctx)
	stop := func() {
		_ = c.Close()
		<-c.Done()
		stopMetrics()
		cancel()
	}
	return ctx, c, stop, nil
}

func serveMetrics(addr string) (func(), error) {
	observability.RegisterMetrics()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("wlprobe.serveMetrics stopped")
		}
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("wlprobe.serveMetrics listening")
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
