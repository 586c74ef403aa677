package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/crimson-sun/volcast/internal/config"
	"github.com/crimson-sun/volcast/internal/logging"
)

func NewRootCmd(version string) *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "volcast",
		Short:         "Predict prediction-market event volumes",
		Long:          `Estimate the trading volume of prediction-market events and pick comparable settled events.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return writeMetrics(cmd)
		},
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	addPersistentFlags(rootCmd)
	rootCmd.AddCommand(
		NewPredictCmd(a),
		NewCompareCmd(a),
		NewInspectCmd(a),
	)
	return rootCmd
}

func addPersistentFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String("config", "", "Config file (default $VOLCAST_CONFIG or ./volcast.yaml)")
	cmd.PersistentFlags().String("models-dir", "", "Directory holding the sentence model")
	cmd.PersistentFlags().String("bundle-dir", "", "Directory holding bundle.json")
	cmd.PersistentFlags().String("log-level", "", "Log level (debug|info|warn|error|off)")
	cmd.PersistentFlags().Bool("pretty", false, "Indent JSON output")
	cmd.PersistentFlags().String("metrics-file", "", "Write Prometheus metrics to this file on exit")
}

// setup loads configuration, applies flag overrides and initializes logging.
func (a *app) setup(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if v, _ := flags.GetString("models-dir"); v != "" {
		cfg.Engine.ModelsDir = v
	}
	if v, _ := flags.GetString("bundle-dir"); v != "" {
		cfg.Engine.BundleDir = v
	}
	if v, _ := flags.GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := flags.GetBool("pretty"); v {
		cfg.Output.Pretty = true
	}

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	a.cfg = cfg
	return nil
}

func writeMetrics(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("metrics-file")
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
