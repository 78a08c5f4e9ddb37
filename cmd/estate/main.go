package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var a app

	root := &cobra.Command{
		Use:           "estate",
		Short:         "Browse properties and pay from the terminal",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.destination = destinationFor(cmd, args)
			return a.open(cmd.Context(), cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	root.AddCommand(
		loginCmd(&a),
		logoutCmd(&a),
		whoamiCmd(&a),
		registerCmd(&a),
		propertiesCmd(&a),
		propertyCmd(&a),
		interestCmd(&a),
		integrationsCmd(&a),
		payCmd(&a),
		statusCmd(&a),
	)
	return root
}
