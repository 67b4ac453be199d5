package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/heysubinoy/remotekv/internal/cli"
	"github.com/heysubinoy/remotekv/pkg/client"
)

const lookupFailed = "Unable to connect to the Server. Please recheck address, PORT and name of the server and try again."

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("%v", err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		timeout     time.Duration
		prepopulate bool
	)

	cmd := &cobra.Command{
		Use:   "kv-cli <address> <port> <service-name>",
		Short: "Interactive client for a kv-server",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 3 {
				return errors.New("please enter address, PORT and name of the server")
			}
			return cobra.ExactArgs(3)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := strconv.Atoi(args[1])
			if err != nil {
				return errors.Wrapf(err, "invalid port %q", args[1])
			}
			cmd.SilenceUsage = true

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			c, err := client.New(client.Address(args[0], port), args[2], client.WithTimeout(timeout))
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.Lookup(ctx); err != nil {
				return errors.Wrap(err, lookupFailed)
			}

			session := &cli.Session{Caller: c, In: os.Stdin, Out: os.Stdout}
			if prepopulate {
				session.Prepopulate(ctx)
			}
			return session.Run(ctx)
		},
	}

	flags := cmd.Flags()
	flags.DurationVar(&timeout, "timeout", client.DefaultTimeout, "per-call timeout")
	flags.BoolVar(&prepopulate, "prepopulate", false, "run the warm-up script before the menu")
	return cmd
}
