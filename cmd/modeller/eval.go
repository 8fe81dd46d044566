package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Jozo132/modeller-sub001/pkg/engine"
	"github.com/spf13/cobra"
)

var evalJSON bool

var evalCmd = &cobra.Command{
	Use:   "eval [file]",
	Short: "Evaluate a script and summarize the parts it builds",
	Long: `Evaluate a modelling script or load a serialized part and print one
line per part. With --json the parts (or the assembly) are written to stdout
in the serialized document format.`,
	Args: cobra.ExactArgs(1),
	RunE: runEval,
}

func init() {
	evalCmd.Flags().BoolVar(&evalJSON, "json", false, "write the serialized model to stdout")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	m, err := loadModel(args[0], cfg, &logger)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if evalJSON {
		return writeJSON(out, m)
	}
	printSummary(out, m)
	return nil
}

func writeJSON(w io.Writer, m *engine.Model) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if m.Assembly != nil {
		return enc.Encode(m.Assembly)
	}
	if len(m.Parts) == 1 {
		return enc.Encode(m.Parts[0])
	}
	return enc.Encode(m.Parts)
}

// printSummary writes one line per part followed by the warnings.
func printSummary(w io.Writer, m *engine.Model) {
	if len(m.Parts) == 0 {
		fmt.Fprintln(w, "no parts")
	}
	for _, p := range m.Parts {
		b := p.Bounds()
		if b.IsEmpty() {
			fmt.Fprintf(w, "%s: %d features, no solid\n", p.Name, p.Tree().Len())
			continue
		}
		s := b.Size()
		fmt.Fprintf(w, "%s: %d features, %.3f x %.3f x %.3f, volume %.3f\n",
			p.Name, p.Tree().Len(), s.X, s.Y, s.Z, p.Volume())
	}
	if m.Assembly != nil {
		fmt.Fprintf(w, "assembly %s: %d components\n", m.Assembly.Name, len(m.Assembly.Components()))
	}
	for _, warn := range m.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", warn)
	}
}
