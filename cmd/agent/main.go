// Command meshgate-agent runs the node side of the control plane: it emits
// benchmark evidence and applies the keying material the controller issues.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"meshgate/internal/agent"
	"meshgate/internal/platform/logger"
)

type rootOptions struct {
	nodeID     string
	controller string
	timeout    time.Duration
	logLevel   string

	log *slog.Logger
}

func (o *rootOptions) client() (*agent.Client, error) {
	return agent.NewClient(o.controller, agent.WithTimeout(o.timeout))
}

func main() {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "meshgate-agent",
		Short:         "Node agent for the meshgate control plane",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(opts.nodeID) == "" {
				return fmt.Errorf("--node-id is required")
			}
			opts.log = logger.New(opts.logLevel, os.Stdout).With("node_id", opts.nodeID)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&opts.nodeID, "node-id", envOr("NODE_ID", "node-a"), "Node identifier in the controller roster")
	root.PersistentFlags().StringVar(&opts.controller, "controller", envOr("CONTROLLER_HOST", "http://controller:8000"), "Controller base URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 5*time.Second, "Per-request timeout")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", envOr("LOG_LEVEL", "INFO"), "Log level (DEBUG, INFO, WARN, ERROR)")

	root.AddCommand(emitCmd(opts))
	root.AddCommand(watchCmd(opts))
	root.AddCommand(runCmd(opts))

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if f, err := strconv.ParseFloat(envOr(key, ""), 64); err == nil {
		return f
	}
	return def
}

// envSeconds reads an integer number of seconds, as the node scripts did.
func envSeconds(key string, def time.Duration) time.Duration {
	if n, err := strconv.Atoi(envOr(key, "")); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}
