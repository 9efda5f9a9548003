package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/filenest/backend/internal/api"
	"github.com/filenest/backend/internal/catalog"
	"github.com/filenest/backend/internal/config"
	"github.com/filenest/backend/internal/logging"
	"github.com/filenest/backend/internal/mock"
	"github.com/filenest/backend/internal/snapshot"
	"github.com/filenest/backend/internal/ws"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// defaultChurnInterval applies when --mock is set without a configured interval.
const defaultChurnInterval = 10 * time.Second

type options struct {
	configPath string
	// configSet is true when --config was given explicitly; the file must
	// then exist.
	configSet bool
	port       int
	mock       bool
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:          "filenest-server",
		Short:        "FileNest backend: catalog REST API and live network stats over WebSocket",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.configSet = cmd.Flags().Changed("config")
			return run(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "config.yaml", "Path to config file")
	f.IntVar(&opts.port, "port", 0, "Override server port")
	f.BoolVar(&opts.mock, "mock", false, "Simulate peers going online and offline")
	f.StringVar(&opts.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
	return cmd
}

func loadConfig(opts options) (*config.Config, error) {
	load := config.LoadOrDefault
	if opts.configSet {
		load = config.Load
	}
	cfg, err := load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if opts.port > 0 {
		cfg.Server.Port = opts.port
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.mock && cfg.Mock.ChurnInterval == 0 {
		cfg.Mock.ChurnInterval = defaultChurnInterval
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logging.Init(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()

	store := catalog.NewStore()
	mock.Seed(store)

	var probe snapshot.HostProbe
	if cfg.HostProbe.Enabled {
		probe = snapshot.SystemProbe{}
	}
	source := snapshot.NewCatalogSource(store, probe, cfg.HostProbe.FailureThreshold, clock)

	registry := ws.NewRegistry(cfg.WS.MaxConnections)
	broadcaster := ws.NewBroadcaster(source, registry, clock, cfg.Broadcast.Interval, cfg.Broadcast.SnapshotTimeout)
	handler := ws.NewHandler(registry, broadcaster, clock, ws.HandlerConfig{
		Session: ws.SessionConfig{
			SendBuffer:     cfg.WS.SendBuffer,
			WriteTimeout:   cfg.WS.WriteTimeout,
			PongWait:       cfg.WS.PongWait,
			PingInterval:   cfg.WS.PingInterval,
			MaxMessageSize: cfg.WS.MaxMessageSize,
		},
		AllowedOrigins:    cfg.WS.AllowedOrigins,
		InboundRate:       cfg.WS.InboundRate,
		InboundBurst:      cfg.WS.InboundBurst,
		SnapshotOnConnect: cfg.Broadcast.SnapshotOnConnect,
	})

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: api.NewRouter(api.Deps{
			Store:          store,
			Source:         source,
			Sessions:       registry,
			WS:             handler,
			AllowedOrigins: cfg.WS.AllowedOrigins,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return broadcaster.Run(gctx)
	})

	if cfg.Mock.ChurnInterval > 0 {
		slog.Info("mock peer churn enabled", "interval", cfg.Mock.ChurnInterval)
		gen := mock.NewGenerator(store, clock, cfg.Mock.ChurnInterval)
		g.Go(func() error {
			return gen.Run(gctx)
		})
	}

	g.Go(func() error {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down", "sessions", registry.Len())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Shutdown does not wait for hijacked WebSocket connections; the
		// handler closes and joins those.
		err := srv.Shutdown(shutdownCtx)
		if herr := handler.Shutdown(shutdownCtx); herr != nil && err == nil {
			err = fmt.Errorf("close sessions: %w", herr)
		}
		return err
	})

	if err := g.Wait(); err != nil {
		slog.Error("server stopped", "error", err)
		return err
	}
	slog.Info("server stopped")
	return nil
}
