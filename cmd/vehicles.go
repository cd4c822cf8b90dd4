package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/carfuel/config"
	"github.com/kilianp07/carfuel/infra/automatic"
	"github.com/kilianp07/carfuel/infra/logger"
)

var vehiclesTimeout time.Duration

var vehiclesCmd = &cobra.Command{
	Use:   "vehicles",
	Short: "List the vehicles of the configured account",
	Args:  cobra.NoArgs,
	RunE:  runVehicles,
}

func init() {
	vehiclesCmd.Flags().DurationVar(&vehiclesTimeout, "timeout", 10*time.Second, "request timeout")
	rootCmd.AddCommand(vehiclesCmd)
}

func runVehicles(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !cfg.Automatic.Enabled() {
		return errDisabled
	}
	client := automatic.NewClient(cfg.Automatic, automatic.WithLogger(logger.NopLogger{}))
	ctx, cancel := context.WithTimeout(cmd.Context(), vehiclesTimeout)
	defer cancel()
	vehicles, err := client.ListVehicles(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tFUEL")
	for _, v := range vehicles {
		level, err := v.FuelLevelPercent.Text()
		if err != nil {
			level = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", v.ID, v.Name(), level)
	}
	return w.Flush()
}
