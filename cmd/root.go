package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/carfuel/app"
	"github.com/kilianp07/carfuel/config"
	coremon "github.com/kilianp07/carfuel/core/monitoring"
	"github.com/kilianp07/carfuel/infra/logger"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:          "carfuel",
	Short:        "Chat robot answering \"car fuel\" with the vehicle fuel level",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg, app.WithConsole(cmd.InOrStdin(), cmd.OutOrStdout()))
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	defer coremon.Recover()
	return svc.Run(ctx)
}
