package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/carfuel/app"
	"github.com/kilianp07/carfuel/config"
	"github.com/kilianp07/carfuel/core/fuel"
)

// errDisabled is returned when no API token is configured.
var errDisabled = errors.New("car fuel is disabled: set HUBOT_AUTOMATIC_TOKEN")

var fuelCmd = &cobra.Command{
	Use:   "fuel",
	Short: "Ask for the fuel level once and print the reply",
	Args:  cobra.NoArgs,
	RunE:  runFuel,
}

func init() {
	rootCmd.AddCommand(fuelCmd)
}

func runFuel(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Chat.Adapter = config.AdapterConsole
	svc, err := app.New(cfg, app.WithConsole(nil, cmd.OutOrStdout()))
	if err != nil {
		return err
	}
	n := svc.Ask(fuel.Pattern.String())
	if err := svc.Close(); err != nil {
		return err
	}
	if n == 0 {
		return errDisabled
	}
	return nil
}
