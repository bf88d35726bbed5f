// Command registrard runs the SIP registrar behind an HTTP API.
//
// Usage:
//
//	registrard [-config registrar.yaml] [-http-addr :8080] [-log-level debug] ...
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/ghettovoice/registrar/identity"
	"github.com/ghettovoice/registrar/internal/config"
	"github.com/ghettovoice/registrar/internal/httpapi"
	"github.com/ghettovoice/registrar/internal/log"
	"github.com/ghettovoice/registrar/location"
	"github.com/ghettovoice/registrar/registrar"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "registrard: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.Parse("registrard", args)
	if err != nil {
		return err
	}

	lvl, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger, err := log.New(log.Format(cfg.Log.Format), lvl, os.Stdout)
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open identity store: %w", err)
	}
	defer closeStore()

	g, ctx := errgroup.WithContext(ctx)

	locator, closeLocator, err := openLocator(ctx, g, cfg, logger)
	if err != nil {
		return fmt.Errorf("open location registry: %w", err)
	}
	defer closeLocator()

	access, err := cfg.AccessList()
	if err != nil {
		return err
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reg, err := registrar.New(store, locator, &registrar.Options{
		Logger:         logger,
		Metrics:        registrar.NewMetrics(promReg),
		Access:         access,
		DefaultExpires: cfg.Registrar.DefaultExpires,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.NewRouter(reg, locator, &httpapi.Options{Logger: logger, Gatherer: promReg}),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
	g.Go(func() error {
		logger.LogAttrs(ctx, slog.LevelInfo, "http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.LogAttrs(context.Background(), slog.LevelInfo, "shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (identity.Store, func(), error) {
	switch cfg.Identity.Backend {
	case config.BackendPostgres:
		s, err := identity.OpenPostgres(ctx, cfg.Identity.DSN)
		if err != nil {
			return nil, nil, err
		}
		logger.LogAttrs(ctx, slog.LevelInfo, "using postgres identity store")
		return s, func() {
			if err := s.Close(); err != nil {
				logger.LogAttrs(ctx, slog.LevelError, "failed to close identity store", slog.Any("error", err))
			}
		}, nil
	default:
		s := identity.NewMemoryStore()
		for _, p := range cfg.Peers() {
			if err := s.PutPeer(p); err != nil {
				return nil, nil, err
			}
		}
		for _, a := range cfg.Agents() {
			if err := s.PutAgent(a); err != nil {
				return nil, nil, err
			}
		}
		logger.LogAttrs(ctx, slog.LevelInfo, "using memory identity store",
			slog.Int("peers", len(cfg.Identity.Peers)),
			slog.Int("agents", len(cfg.Identity.Agents)),
		)
		return s, func() {}, nil
	}
}

func openLocator(ctx context.Context, g *errgroup.Group, cfg *config.Config, logger *slog.Logger) (location.Locator, func(), error) {
	switch cfg.Location.Backend {
	case config.BackendRedis:
		reg, client, err := location.OpenRedis(ctx, cfg.Location.RedisURL, &location.RedisOptions{Logger: logger})
		if err != nil {
			return nil, nil, err
		}
		logger.LogAttrs(ctx, slog.LevelInfo, "using redis location registry")
		return reg, func() {
			if err := client.Close(); err != nil {
				logger.LogAttrs(ctx, slog.LevelError, "failed to close redis client", slog.Any("error", err))
			}
		}, nil
	default:
		reg := location.NewMemoryRegistry(&location.MemoryOptions{Logger: logger})
		g.Go(func() error { return reg.Run(ctx, cfg.Location.SweepInterval) })
		logger.LogAttrs(ctx, slog.LevelInfo, "using memory location registry",
			slog.Duration("sweep_interval", cfg.Location.SweepInterval),
		)
		return reg, func() {}, nil
	}
}
