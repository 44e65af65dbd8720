package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"perfkit/internal/healthcheck"
)

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that the target and the trace collector are reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		report := healthcheck.Run(cmd.Context(), cfg.LoadGen.TargetURL, cfg.Telemetry.Endpoint)
		healthcheck.Format(os.Stdout, report)
		if !report.Healthy() {
			return &exitError{ExitError, errors.New("health check failed")}
		}
		return nil
	},
}
