package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/heysubinoy/remotekv/internal/logging"
	"github.com/heysubinoy/remotekv/internal/server"
	"github.com/heysubinoy/remotekv/pkg/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		host       string
		backend    string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "kv-server <port> <service-name>",
		Short: "Serve an in-memory key-value store under a service name",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 {
				return errors.New("please enter PORT and name for the server")
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}

			port, err := strconv.Atoi(args[0])
			if err != nil {
				return errors.Wrapf(err, "invalid port %q", args[0])
			}
			cfg.Port = port
			cfg.ServiceName = args[1]

			flags := cmd.Flags()
			if flags.Changed("host") {
				cfg.Host = host
			}
			if flags.Changed("backend") {
				cfg.Backend = backend
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}

			// Usage output is for argument mistakes only.
			cmd.SilenceUsage = true
			return run(cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&host, "host", "", "interface to bind (default all)")
	flags.StringVar(&backend, "backend", config.BackendMemory, "store backend: memory or raft")
	flags.StringVar(&logLevel, "log-level", "info", "log level: trace, debug, info, warn, error")
	return cmd
}

func run(cfg *config.Config) error {
	logger := logging.New("kv-server", cfg.LogLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	srv, err := server.New(startCtx, cfg, logger, os.Stdout)
	if err != nil {
		if errors.Is(err, server.ErrBind) {
			return errors.Wrap(err, "Unable to Register or bind the server to the given PORT or name")
		}
		return err
	}

	fmt.Println("Server started...")
	return srv.Run(ctx)
}
