package main

import (
	"encoding/json"
	"os"

	"github.com/Jozo132/modeller-sub001/pkg/preview"
	"github.com/spf13/cobra"
)

var previewIndent bool

var previewCmd = &cobra.Command{
	Use:   "preview [file]",
	Short: "Write the viewer payload for a script as JSON",
	Long: `Evaluate a modelling script and write the meshes, sketch wires and
diagnostics a viewer needs to stdout. Evaluation errors are part of the
payload, so the command only fails when the file cannot be read.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().BoolVar(&previewIndent, "indent", false, "indent the JSON output")
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	k, err := cfg.NewKernel()
	if err != nil {
		return err
	}
	s := preview.NewSession(newEngine(cfg, k, &logger), &logger)
	enc := json.NewEncoder(cmd.OutOrStdout())
	if previewIndent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(s.Evaluate(string(src)))
}
