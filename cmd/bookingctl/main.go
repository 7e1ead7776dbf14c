package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"staybook/pkg/config"
)

const ServiceName = "bookingctl"

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "bookingctl",
	Short: "Operator tooling for the bookings service",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load(ServiceName)
	},
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(redriveCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
