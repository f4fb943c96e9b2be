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

	"golang.org/x/sync/errgroup"

	"meshgate/internal/controlplane/handler"
	cpmetrics "meshgate/internal/controlplane/metrics"
	"meshgate/internal/controlplane/service"
	"meshgate/internal/keys"
	"meshgate/internal/membership"
	"meshgate/internal/platform/config"
	"meshgate/internal/platform/httpserver"
	"meshgate/internal/platform/logger"
	"meshgate/internal/platform/metrics"
	"meshgate/internal/platform/redis"
	"meshgate/internal/roster"
	"meshgate/internal/rotation"
	rotmetrics "meshgate/internal/rotation/metrics"
	"meshgate/internal/state"
	"meshgate/internal/status"
	statusmetrics "meshgate/internal/status/metrics"
	httptransport "meshgate/internal/transport/http"
	"meshgate/pkg/platform/circuit"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("meshgate exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	members, err := roster.New(cfg.NodeIDs...)
	if err != nil {
		return err
	}
	deriver, err := keys.ParseKDF(cfg.Epoch.KDF)
	if err != nil {
		return err
	}

	arena := state.New(nil)

	sinks, closeSinks, err := buildSinks(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSinks()

	publisher := status.NewPublisher(sinks,
		status.WithTimeout(cfg.Status.Timeout),
		status.WithLogger(log),
		status.WithMetrics(statusmetrics.New()),
		status.WithBreakerOptions(
			circuit.WithFailureThreshold(cfg.Status.FailureThreshold),
			circuit.WithCooldown(cfg.Status.Cooldown),
		),
	)

	rotator, err := rotation.New(arena, members,
		membership.Policy{Threshold: cfg.Policy.Threshold, MaxAge: cfg.Policy.MaxAge},
		cfg.Epoch.Interval,
		rotation.WithLogger(log),
		rotation.WithMetrics(rotmetrics.New()),
		rotation.WithPublisher(publisher),
	)
	if err != nil {
		return err
	}

	svc, err := service.New(arena, members,
		service.WithLogger(log),
		service.WithMetrics(cpmetrics.New()),
		service.WithDeriver(deriver),
		service.WithPSKLength(cfg.Epoch.PSKLength),
	)
	if err != nil {
		return err
	}

	// The first epoch exists before the listener accepts requests.
	if _, err := rotator.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap epoch: %w", err)
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:       log,
		Metrics:      metrics.New(),
		ControlPlane: handler.New(svc, log),
	})
	srv := httpserver.New(cfg.Server.Addr, router)

	log.Info("starting meshgate",
		"addr", cfg.Server.Addr,
		"nodes", members.IDs(),
		"epoch_interval", cfg.Epoch.Interval,
		"threshold", cfg.Policy.Threshold,
		"max_benchmark_age", cfg.Policy.MaxAge,
		"kdf", cfg.Epoch.KDF,
		"status_sinks", publisher.Len(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := rotator.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// buildSinks returns the configured status sinks and a func releasing them.
func buildSinks(ctx context.Context, cfg config.Config, log *slog.Logger) ([]status.Sink, func(), error) {
	var sinks []status.Sink
	closers := []func(){}
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.Status.File != "" {
		sinks = append(sinks, status.NewFileSink(cfg.Status.File))
	}
	if cfg.Redis.URL != "" {
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, closeAll, fmt.Errorf("connect status redis: %w", err)
		}
		closers = append(closers, func() {
			if err := client.Close(); err != nil {
				log.Warn("close redis", "error", err)
			}
		})
		sinks = append(sinks, status.NewRedisSink(client.Client, status.WithKeyPrefix(cfg.Redis.KeyPrefix)))
	}
	return sinks, closeAll, nil
}
