package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Jozo132/modeller-sub001/pkg/engine"
	"github.com/Jozo132/modeller-sub001/pkg/kernel"
	"github.com/Jozo132/modeller-sub001/pkg/tessellate"
	"github.com/spf13/cobra"
)

var (
	stlOutput string
	stlPart   string
)

var stlCmd = &cobra.Command{
	Use:   "stl [file]",
	Short: "Export the model as binary STL",
	Long: `Evaluate a model and write its solid as binary STL. An assembly is
exported with every component in place; otherwise all parts are merged
unless --part selects one. Coordinates are scaled to output.units.`,
	Args: cobra.ExactArgs(1),
	RunE: runSTL,
}

func init() {
	stlCmd.Flags().StringVarP(&stlOutput, "output", "o", "", "output file (default: input name with .stl)")
	stlCmd.Flags().StringVarP(&stlPart, "part", "p", "", "export only the named part")
	rootCmd.AddCommand(stlCmd)
}

func runSTL(cmd *cobra.Command, args []string) error {
	m, err := loadModel(args[0], cfg, &logger)
	if err != nil {
		return err
	}
	out := stlOutput
	if out == "" {
		out = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".stl"
	}
	n, err := exportSTL(m, stlPart, out, cfg.UnitScale())
	if err != nil {
		return err
	}
	logger.Info().Str("file", out).Int("triangles", n).Str("units", cfg.Output.Units).Msg("wrote STL")
	return nil
}

// renderMesh merges the meshes selected for export.
func renderMesh(m *engine.Model, only string) (*kernel.Mesh, error) {
	if only != "" {
		p, ok := m.Part(only)
		if !ok {
			return nil, fmt.Errorf("no part named %q", only)
		}
		return tessellate.Part(p)
	}
	if m.Assembly != nil {
		meshes, err := tessellate.Assembly(m.Assembly)
		if err != nil {
			return nil, err
		}
		out := &kernel.Mesh{PartName: m.Assembly.Name}
		for _, mesh := range meshes {
			out.Append(mesh)
		}
		return out, nil
	}
	var out *kernel.Mesh
	for _, p := range m.Parts {
		mesh, err := tessellate.Part(p)
		if err != nil {
			return nil, err
		}
		if mesh == nil {
			continue
		}
		if out == nil {
			out = mesh
			continue
		}
		out.Append(mesh)
	}
	return out, nil
}

// exportSTL writes the selected mesh and returns its triangle count.
func exportSTL(m *engine.Model, only, path string, scale float64) (int, error) {
	mesh, err := renderMesh(m, only)
	if err != nil {
		return 0, err
	}
	if mesh == nil || mesh.IsEmpty() {
		return 0, fmt.Errorf("model has no solid to export")
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	if err := mesh.WriteSTL(f, scale); err != nil {
		f.Close()
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	return mesh.TriangleCount(), f.Close()
}
