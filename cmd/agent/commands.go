package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"meshgate/internal/agent"
)

type emitFlags struct {
	mean     float64
	interval time.Duration
	once     bool
}

func (f *emitFlags) bind(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.mean, "mean", envFloat("SCORE_MEAN", 0.70), "Mean benchmark score")
	cmd.Flags().DurationVar(&f.interval, "interval", envSeconds("EMIT_INTERVAL_SEC", 10*time.Second), "Time between submissions")
}

func (f *emitFlags) emitter(opts *rootOptions, client *agent.Client) (*agent.Emitter, error) {
	return agent.NewEmitter(client, agent.EmitterConfig{
		NodeID:    opts.nodeID,
		ScoreMean: f.mean,
		Interval:  f.interval,
	}, agent.WithEmitterLogger(opts.log))
}

func emitCmd(opts *rootOptions) *cobra.Command {
	var flags emitFlags

	cmd := &cobra.Command{
		Use:   "emit",
		Short: "Submit synthetic benchmark evidence on an interval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			e, err := flags.emitter(opts, client)
			if err != nil {
				return err
			}
			if flags.once {
				return e.EmitOnce(cmd.Context())
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return ignoreCanceled(e.Run(ctx))
		},
	}
	flags.bind(cmd)
	cmd.Flags().BoolVar(&flags.once, "once", false, "Submit a single benchmark and exit")
	return cmd
}

func watchCmd(opts *rootOptions) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll node config and apply each epoch key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			w, err := agent.NewWatcher(client, opts.nodeID, interval, agent.WithWatcherLogger(opts.log))
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return ignoreCanceled(w.Run(ctx))
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", envSeconds("POLL_INTERVAL_SEC", 10*time.Second), "Time between config polls")
	return cmd
}

func runCmd(opts *rootOptions) *cobra.Command {
	var (
		flags        emitFlags
		pollInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Emit evidence and watch config together",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			e, err := flags.emitter(opts, client)
			if err != nil {
				return err
			}
			w, err := agent.NewWatcher(client, opts.nodeID, pollInterval, agent.WithWatcherLogger(opts.log))
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return ignoreCanceled(e.Run(gctx)) })
			g.Go(func() error { return ignoreCanceled(w.Run(gctx)) })
			return g.Wait()
		},
	}
	flags.bind(cmd)
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", envSeconds("POLL_INTERVAL_SEC", 10*time.Second), "Time between config polls")
	return cmd
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
