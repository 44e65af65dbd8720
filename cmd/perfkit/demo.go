package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"perfkit/internal/appd"
	"perfkit/internal/demo"
	"perfkit/internal/export"
)

var demoOutput string

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Write a sample AppDynamics report without a controller",
	RunE: func(cmd *cobra.Command, args []string) error {
		samples := demo.Samples(time.Now())
		if err := export.WriteCSVFile(demoOutput, samples); err != nil {
			return &exitError{ExitError, err}
		}
		logger.Info("demo report written", zap.String("file", demoOutput))
		appd.FormatSummary(os.Stdout, appd.Summarize(samples))
		return nil
	},
}

func init() {
	demoCmd.Flags().StringVar(&demoOutput, "output", demo.DefaultOutput, "output CSV file")
}
