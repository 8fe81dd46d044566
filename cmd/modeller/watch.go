package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/Jozo132/modeller-sub001/internal/watch"
	"github.com/spf13/cobra"
)

var watchSTL string

var watchCmd = &cobra.Command{
	Use:   "watch [file]",
	Short: "Re-evaluate a script whenever it changes",
	Long: `Evaluate the script, print its summary and keep watching it. Every save
re-evaluates from scratch; with --stl the solid is re-exported each time.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchSTL, "stl", "", "re-export binary STL to this file after each evaluation")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	path := args[0]
	rebuild := func(string) {
		m, err := loadModel(path, cfg, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("evaluation failed")
			return
		}
		printSummary(cmd.OutOrStdout(), m)
		if watchSTL == "" {
			return
		}
		n, err := exportSTL(m, "", watchSTL, cfg.UnitScale())
		if err != nil {
			logger.Error().Err(err).Msg("export failed")
			return
		}
		logger.Info().Str("file", watchSTL).Int("triangles", n).Msg("wrote STL")
	}

	w, err := watch.New(watch.DefaultDebounce, &logger)
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Watch([]string{path}, rebuild); err != nil {
		return err
	}

	rebuild(path)
	logger.Info().Str("file", path).Msg("watching for changes, press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
