// Command modeller evaluates modelling scripts and exports the resulting
// parts.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/Jozo132/modeller-sub001/internal/config"
	"github.com/Jozo132/modeller-sub001/pkg/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// defaultConfigFile is read from the working directory when --config is
// not given.
const defaultConfigFile = "modeller.yaml"

var (
	configPath string
	verbose    bool
	kernelName string

	cfg    config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "modeller",
	Short: "Parametric part modeller",
	Long: `modeller evaluates Lisp modelling scripts (or serialized part files),
rebuilds their feature trees and reports or exports the resulting solids.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
		logging.SetLogger(&logger)

		var err error
		cfg, err = loadConfig()
		if err != nil {
			return err
		}
		if kernelName != "" {
			cfg.Kernel.Name = kernelName
			if err := cfg.Validate(); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file (default ./"+defaultConfigFile+" when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&kernelName, "kernel", "k", "", "boolean kernel (csg or sdfx), overrides the configuration")
}

func loadConfig() (config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	c, err := config.Load(defaultConfigFile)
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return c, err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
