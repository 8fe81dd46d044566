package part

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Jozo132/modeller-sub001/pkg/feature"
	"github.com/Jozo132/modeller-sub001/pkg/formula"
	"github.com/Jozo132/modeller-sub001/pkg/geom"
	"github.com/Jozo132/modeller-sub001/pkg/kernel"
	"github.com/Jozo132/modeller-sub001/pkg/logging"
	"github.com/Jozo132/modeller-sub001/pkg/sketch"
	"github.com/rs/zerolog"
)

// ErrNotImplemented is returned by operations the modeller does not
// support yet.
var ErrNotImplemented = errors.New("part: not implemented")

// ErrNotSketch is returned when a solid feature is pointed at something
// other than a sketch feature.
var ErrNotSketch = errors.New("part: feature is not a sketch")

// OriginPlanes are the three default sketch planes of a part.
type OriginPlanes struct {
	XY, XZ, YZ geom.Plane
}

// Options configures a Part. Zero values select the defaults.
type Options struct {
	Kernel    kernel.Kernel // boolean kernel; csg when nil
	Solve     sketch.SolveOptions
	Variables *formula.Table // variable table for sketches; the global table when nil
	Logger    *zerolog.Logger
}

func (o Options) treeOptions() []feature.Option {
	var opts []feature.Option
	if o.Kernel != nil {
		opts = append(opts, feature.WithKernel(o.Kernel))
	}
	if o.Solve != (sketch.SolveOptions{}) {
		opts = append(opts, feature.WithSolveOptions(o.Solve))
	}
	if o.Logger != nil {
		opts = append(opts, feature.WithLogger(o.Logger))
	}
	return opts
}

func (o Options) sceneOptions() []sketch.SceneOption {
	var opts []sketch.SceneOption
	if o.Variables != nil {
		opts = append(opts, sketch.WithVariables(o.Variables))
	}
	if o.Logger != nil {
		opts = append(opts, sketch.WithLogger(o.Logger))
	}
	return opts
}

// Part is a single solid body described by a feature tree.
type Part struct {
	Name         string
	Material     *Material
	Planes       OriginPlanes
	ActiveSketch feature.ID

	tree *feature.Tree
	opts Options

	volume float64
	mass   float64
	com    geom.Vec3
}

// New returns an empty part.
func New(name string, opts Options) *Part {
	return &Part{
		Name:   name,
		Planes: OriginPlanes{XY: geom.PlaneXY, XZ: geom.PlaneXZ, YZ: geom.PlaneYZ},
		tree:   feature.NewTree(opts.treeOptions()...),
		opts:   opts,
	}
}

func (p *Part) log() *zerolog.Logger {
	if p.opts.Logger != nil {
		return p.opts.Logger
	}
	return logging.Logger()
}

// Tree returns the part's feature tree.
func (p *Part) Tree() *feature.Tree { return p.tree }

// NewSketch returns an empty sketch wired to the part's variable table.
func (p *Part) NewSketch(name string) *sketch.Sketch {
	return sketch.New(name, p.opts.sceneOptions()...)
}

// nextName numbers features of a type: "Extrude 1", "Extrude 2", ...
func (p *Part) nextName(t feature.Type) string {
	n := 1
	for _, f := range p.tree.Features() {
		if f.Type == t {
			n++
		}
	}
	label := t.String()
	return fmt.Sprintf("%s%s %d", strings.ToUpper(label[:1]), label[1:], n)
}

// AddSketch adds a sketch feature. A nil sketch gets an empty one and a
// nil plane selects the XY origin plane. The new sketch becomes active.
func (p *Part) AddSketch(sk *sketch.Sketch, plane *geom.Plane) (*feature.Feature, error) {
	name := p.nextName(feature.TypeSketch)
	if sk == nil {
		sk = p.NewSketch(name)
	}
	pl := p.Planes.XY
	if plane != nil {
		pl = *plane
	}
	f := feature.NewSketch(name, sk, pl)
	if err := p.tree.AddFeature(f); err != nil {
		return nil, err
	}
	p.ActiveSketch = f.ID
	p.refresh()
	return f, nil
}

func (p *Part) sketchFeature(id feature.ID) (*feature.Feature, error) {
	f, ok := p.tree.Feature(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", feature.ErrFeatureNotFound, id)
	}
	if f.Type != feature.TypeSketch {
		return nil, fmt.Errorf("%w: %d is a %s", ErrNotSketch, id, f.Type)
	}
	return f, nil
}

// Extrude extrudes the closed profiles of a sketch feature by distance.
// The Distance field of params is ignored.
func (p *Part) Extrude(sketchID feature.ID, distance float64, params feature.ExtrudeParams) (*feature.Feature, error) {
	sf, err := p.sketchFeature(sketchID)
	if err != nil {
		return nil, err
	}
	params.Distance = distance
	f := feature.NewExtrude(p.nextName(feature.TypeExtrude), sketchID, params)
	return p.addSolid(sf, f)
}

// Revolve revolves the closed profiles of a sketch feature by angle
// radians. The Angle field of params is ignored.
func (p *Part) Revolve(sketchID feature.ID, angle float64, params feature.RevolveParams) (*feature.Feature, error) {
	sf, err := p.sketchFeature(sketchID)
	if err != nil {
		return nil, err
	}
	params.Angle = angle
	f := feature.NewRevolve(p.nextName(feature.TypeRevolve), sketchID, params)
	return p.addSolid(sf, f)
}

// addSolid adds f and, when it produced a solid, hides the consumed
// sketch and links f as its child.
func (p *Part) addSolid(sf, f *feature.Feature) (*feature.Feature, error) {
	// The sketch may have been edited since it last ran.
	if err := p.tree.MarkModified(sf.ID); err != nil {
		return nil, err
	}
	if err := p.tree.AddFeature(f); err != nil {
		return nil, err
	}
	if r, ok := p.tree.Result(f.ID); ok && r.IsSolid() {
		sf.AddChild(f.ID)
		sf.Visible = false
	} else {
		p.log().Debug().Str("feature", f.Name).Str("error", f.Error).Msg("solid feature produced no solid")
	}
	p.refresh()
	return f, nil
}

// Fillet rounds edges. Not supported.
func (p *Part) Fillet(edges []geom.Edge, radius float64) (*feature.Feature, error) {
	return nil, fmt.Errorf("fillet: %w", ErrNotImplemented)
}

// Chamfer bevels edges. Not supported.
func (p *Part) Chamfer(edges []geom.Edge, distance float64) (*feature.Feature, error) {
	return nil, fmt.Errorf("chamfer: %w", ErrNotImplemented)
}

// SuppressFeature excludes a feature from recalculation.
func (p *Part) SuppressFeature(id feature.ID) error {
	return p.setSuppressed(id, true)
}

// UnsuppressFeature restores a suppressed feature.
func (p *Part) UnsuppressFeature(id feature.ID) error {
	return p.setSuppressed(id, false)
}

func (p *Part) setSuppressed(id feature.ID, on bool) error {
	if err := p.tree.SetSuppressed(id, on); err != nil {
		return err
	}
	p.refresh()
	return nil
}

// ReorderFeature moves a feature to newIndex in the tree.
func (p *Part) ReorderFeature(id feature.ID, newIndex int) error {
	if err := p.tree.ReorderFeature(id, newIndex); err != nil {
		return err
	}
	p.refresh()
	return nil
}

// RemoveFeature deletes a feature nothing depends on.
func (p *Part) RemoveFeature(id feature.ID) error {
	if err := p.tree.RemoveFeature(id); err != nil {
		return err
	}
	if p.ActiveSketch == id {
		p.ActiveSketch = 0
	}
	p.refresh()
	return nil
}

// ModifyFeature applies mutate to a feature and recalculates from it.
func (p *Part) ModifyFeature(id feature.ID, mutate func(f *feature.Feature)) error {
	f, ok := p.tree.Feature(id)
	if !ok {
		return fmt.Errorf("%w: %d", feature.ErrFeatureNotFound, id)
	}
	mutate(f)
	if err := p.tree.MarkModified(id); err != nil {
		return err
	}
	p.refresh()
	return nil
}

// Recalculate reruns the whole feature tree.
func (p *Part) Recalculate() {
	p.tree.ExecuteAll()
	p.refresh()
}

// SetMaterial assigns a material and updates the mass.
func (p *Part) SetMaterial(m Material) {
	p.Material = &m
	p.refresh()
}

// refresh recomputes the mass properties from the final solid.
func (p *Part) refresh() {
	p.volume, p.mass, p.com = 0, 0, geom.Vec3{}
	r, ok := p.tree.FinalSolid()
	if !ok {
		return
	}
	p.volume = r.Volume
	p.com = r.Mesh.CenterOfMass()
	if p.Material != nil {
		p.mass = p.volume * p.Material.Density
	}
}

// Result returns the final feature result, which may be a sketch.
func (p *Part) Result() (*feature.Result, bool) { return p.tree.FinalResult() }

// Mesh returns the final solid, or nil when the part has none.
func (p *Part) Mesh() *geom.Mesh {
	if r, ok := p.tree.FinalSolid(); ok {
		return r.Mesh
	}
	return nil
}

// Bounds returns the bounding box of the final solid.
func (p *Part) Bounds() geom.Box {
	if r, ok := p.tree.FinalSolid(); ok {
		return r.Bounds
	}
	return geom.EmptyBox()
}

// Volume returns the enclosed volume of the final solid.
func (p *Part) Volume() float64 { return p.volume }

// Mass returns volume times density; zero without a material.
func (p *Part) Mass() float64 { return p.mass }

// CenterOfMass returns the centroid of the final solid.
func (p *Part) CenterOfMass() geom.Vec3 { return p.com }
