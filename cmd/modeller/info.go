package main

import (
	"fmt"
	"io"

	"github.com/Jozo132/modeller-sub001/pkg/feature"
	"github.com/Jozo132/modeller-sub001/pkg/geom"
	"github.com/Jozo132/modeller-sub001/pkg/part"
	"github.com/Jozo132/modeller-sub001/pkg/sketch"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Display the feature tree and mass properties of a model",
	Long:  "Show every feature with its status, sketch degrees of freedom, and the volume, mass, bounds and centre of mass of each part.",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	m, err := loadModel(args[0], cfg, &logger)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "File: %s\n", args[0])
	fmt.Fprintf(w, "Kernel: %s\n\n", cfg.Kernel.Name)
	for _, p := range m.Parts {
		printPart(w, p)
	}
	if a := m.Assembly; a != nil {
		fmt.Fprintf(w, "Assembly %s\n", a.Name)
		for _, c := range a.Components() {
			fmt.Fprintf(w, "  %-20s %-12s at %s rotated %s\n",
				c.Name, c.Part.Name, formatVec(c.Transform.Translation), formatVec(c.Transform.Rotation))
		}
		fmt.Fprintf(w, "  Mass: %.3f g\n", a.Mass())
		fmt.Fprintf(w, "  Center of mass: %s\n", formatVec(a.CenterOfMass()))
	}
	for _, warn := range m.Warnings {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", warn)
	}
	return nil
}

func printPart(w io.Writer, p *part.Part) {
	fmt.Fprintf(w, "Part %s\n", p.Name)
	if p.Material != nil {
		fmt.Fprintf(w, "  Material: %s (%g g/mm3)\n", p.Material.Name, p.Material.Density)
	}
	fmt.Fprintln(w, "  Features:")
	tree := p.Tree()
	for i, f := range tree.Features() {
		fmt.Fprintf(w, "    %2d. %-16s %-8s %s\n", i+1, f.Name, f.Type, featureStatus(tree, f))
	}
	for _, v := range tree.Validate() {
		fmt.Fprintf(w, "  %s\n", v.Error())
	}
	b := p.Bounds()
	if b.IsEmpty() {
		fmt.Fprintln(w, "  No solid")
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintf(w, "  Bounds: %s .. %s\n", formatVec(b.Min), formatVec(b.Max))
	fmt.Fprintf(w, "  Volume: %.3f mm3\n", p.Volume())
	if p.Material != nil {
		fmt.Fprintf(w, "  Mass: %.3f g\n", p.Mass())
	}
	fmt.Fprintf(w, "  Center of mass: %s\n\n", formatVec(p.CenterOfMass()))
}

// featureStatus describes a feature's last result.
func featureStatus(tree *feature.Tree, f *feature.Feature) string {
	switch {
	case f.Suppressed:
		return "suppressed"
	case f.Error != "":
		return "error: " + f.Error
	}
	r, ok := tree.Result(f.ID)
	if !ok {
		return "not executed"
	}
	if sd, ok := f.Data.(*feature.SketchData); ok && sd.Sketch != nil && sd.Sketch.Scene != nil {
		sc := sd.Sketch.Scene
		status := fmt.Sprintf("%d profiles, %d dof", len(r.Profiles), sketch.DegreesOfFreedom(sc))
		if sd.Sketch.HasConstraints() && !r.Converged {
			status += ", not converged"
		}
		return status
	}
	return fmt.Sprintf("volume %.3f", r.Volume)
}

func formatVec(v geom.Vec3) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}
