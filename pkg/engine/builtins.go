package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/Jozo132/modeller-sub001/pkg/feature"
	"github.com/Jozo132/modeller-sub001/pkg/geom"
	"github.com/Jozo132/modeller-sub001/pkg/part"
	"github.com/Jozo132/modeller-sub001/pkg/sketch"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/spatial/r3"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms modelling source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: set-material -> set_material
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, kwPrefix...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Only a hyphen between identifier characters is kebab-case; anything
		// else is the minus operator.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpMaterial wraps a part.Material.
type sexpMaterial struct {
	m part.Material
}

func (m *sexpMaterial) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(material %q :density %g)", m.m.Name, m.m.Density)
}
func (m *sexpMaterial) Type() *zygo.RegisteredType { return nil }

// sexpPart refers to a part defined with defpart.
type sexpPart struct {
	p *part.Part
}

func (r *sexpPart) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(part %q)", r.p.Name)
}
func (r *sexpPart) Type() *zygo.RegisteredType { return nil }

// sexpFeature refers to a feature in the current part's tree.
type sexpFeature struct {
	id   feature.ID
	name string
}

func (f *sexpFeature) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(feature %q)", f.name)
}
func (f *sexpFeature) Type() *zygo.RegisteredType { return nil }

// sexpShape refers to a primitive of a sketch scene. Points, segments,
// circles and arcs share the type; kind tells them apart.
type sexpShape struct {
	scene *sketch.Scene
	id    sketch.ID
	kind  string
}

func (s *sexpShape) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %d)", s.kind, s.id)
}
func (s *sexpShape) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a geom.Vec3.
type sexpVec3 struct {
	vec geom.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpPlacement is a part positioned for an assembly.
type sexpPlacement struct {
	p         *part.Part
	name      string
	transform geom.Transform
}

func (pl *sexpPlacement) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(place (part %q))", pl.p.Name)
}
func (pl *sexpPlacement) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// floats extracts exactly n numbers from the positional arguments.
func floats(args []zygo.Sexp, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("expected %d numbers, got %d arguments", n, len(args))
	}
	out := make([]float64, n)
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = f
	}
	return out, nil
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_xy) and plain strings ("xy").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toBool accepts booleans; a bare trailing keyword counts as true.
func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return true, nil
		}
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toValue converts a number into a literal and a string into a formula
// expression resolved against the variable table.
func toValue(s zygo.Sexp) (sketch.Value, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		if strings.TrimSpace(str.S) == "" {
			return sketch.Value{}, fmt.Errorf("empty expression")
		}
		return sketch.Expr(str.S), nil
	}
	f, err := toFloat64(s)
	if err != nil {
		return sketch.Value{}, fmt.Errorf("expected number or expression: %w", err)
	}
	return sketch.Literal(f), nil
}

// toDegrees reads an angle given in degrees and returns radians.
func toDegrees(s zygo.Sexp) (float64, error) {
	f, err := toFloat64(s)
	if err != nil {
		return 0, err
	}
	return f * math.Pi / 180, nil
}

func toVec3(s zygo.Sexp) (geom.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return geom.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toMaterial accepts a material value or the name of a preset.
func toMaterial(s zygo.Sexp) (part.Material, error) {
	switch v := s.(type) {
	case *sexpMaterial:
		return v.m, nil
	case *zygo.SexpStr:
		return part.LookupMaterial(v.S)
	}
	return part.Material{}, fmt.Errorf("expected material, got %T (%s)", s, s.SexpString(nil))
}

func toFeature(s zygo.Sexp) (*sexpFeature, error) {
	if f, ok := s.(*sexpFeature); ok {
		return f, nil
	}
	return nil, fmt.Errorf("expected feature reference, got %T (%s)", s, s.SexpString(nil))
}

// toShape extracts a shape reference of one of the given kinds that belongs
// to scene.
func toShape(s zygo.Sexp, scene *sketch.Scene, kinds ...string) (sketch.ID, error) {
	ref, ok := s.(*sexpShape)
	if !ok {
		return 0, fmt.Errorf("expected %s, got %T (%s)", strings.Join(kinds, " or "), s, s.SexpString(nil))
	}
	if ref.scene != scene {
		return 0, fmt.Errorf("%s %d belongs to another sketch", ref.kind, ref.id)
	}
	if !lo.Contains(kinds, ref.kind) {
		return 0, fmt.Errorf("expected %s, got %s", strings.Join(kinds, " or "), ref.kind)
	}
	return ref.id, nil
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// toPlane resolves :xy, :xz or :yz against the part's origin planes.
func toPlane(s zygo.Sexp, p *part.Part) (geom.Plane, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return geom.Plane{}, fmt.Errorf("expected plane keyword (:xy, :xz, :yz): %w", err)
	}
	switch name {
	case "xy":
		return p.Planes.XY, nil
	case "xz":
		return p.Planes.XZ, nil
	case "yz":
		return p.Planes.YZ, nil
	}
	return geom.Plane{}, fmt.Errorf("invalid plane %q, expected xy, xz, or yz", name)
}

func toOperation(s zygo.Sexp) (feature.Operation, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected operation keyword: %w", err)
	}
	var op feature.Operation
	if err := op.UnmarshalText([]byte(name)); err != nil {
		return 0, err
	}
	return op, nil
}

func toAxis(s zygo.Sexp) (feature.Axis, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected axis keyword (:x, :y): %w", err)
	}
	var a feature.Axis
	if err := a.UnmarshalText([]byte(name)); err != nil {
		return 0, err
	}
	return a, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the modelling builtins into a zygomys
// environment. The builtins operate on st, which collects the parts and
// assembly built during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, st *buildState) {

	// -----------------------------------------------------------------------
	// (param "width" 100) binds a variable usable in constraint expressions.
	// -----------------------------------------------------------------------
	env.AddFunction("param", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("param requires a name and a value")
		}
		varName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("param: name: %w", err)
		}
		v, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("param: value: %w", err)
		}
		if err := st.vars.Set(varName, v); err != nil {
			return zygo.SexpNull, fmt.Errorf("param: %w", err)
		}
		return &zygo.SexpFloat{Val: v}, nil
	})

	// -----------------------------------------------------------------------
	// (material "steel") or (material :name "walnut" :density 0.00064)
	// -----------------------------------------------------------------------
	env.AddFunction("material", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) == 1 {
			m, err := toMaterial(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("material: %w", err)
			}
			return &sexpMaterial{m: m}, nil
		}
		m := part.Material{}
		if v, ok := pa.kw["name"]; ok {
			s, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("material: name: %w", err)
			}
			m.Name = s
		}
		v, ok := pa.kw["density"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("material: requires a preset name or :density")
		}
		d, err := toFloat64(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("material: density: %w", err)
		}
		if d <= 0 {
			return zygo.SexpNull, fmt.Errorf("material: density must be positive, got %g", d)
		}
		m.Density = d
		return &sexpMaterial{m: m}, nil
	})

	// -----------------------------------------------------------------------
	// (defpart "bracket" :material (material "steel"))
	// -----------------------------------------------------------------------
	env.AddFunction("defpart", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("defpart requires a name")
		}
		partName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defpart: name: %w", err)
		}
		if st.lookup(partName) != nil {
			return zygo.SexpNull, fmt.Errorf("defpart: part %q already defined", partName)
		}
		p := st.newPart(partName)
		if v, ok := pa.kw["material"]; ok {
			m, err := toMaterial(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("defpart: material: %w", err)
			}
			p.SetMaterial(m)
		}
		return &sexpPart{p: p}, nil
	})

	// -----------------------------------------------------------------------
	// (part "bracket") selects a defined part for the builtins that follow.
	// -----------------------------------------------------------------------
	env.AddFunction("part", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("part requires a name argument")
		}
		partName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("part: name: %w", err)
		}
		p := st.lookup(partName)
		if p == nil {
			return zygo.SexpNull, fmt.Errorf("part: no part named %q", partName)
		}
		st.selectPart(p)
		return &sexpPart{p: p}, nil
	})

	// -----------------------------------------------------------------------
	// (set-material "brass") on the current part
	// -----------------------------------------------------------------------
	env.AddFunction("set_material", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("set-material requires a material")
		}
		m, err := toMaterial(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("set-material: %w", err)
		}
		st.part().SetMaterial(m)
		return &sexpMaterial{m: m}, nil
	})

	// -----------------------------------------------------------------------
	// (sketch "outline" :plane :xz :offset 10)
	// -----------------------------------------------------------------------
	env.AddFunction("sketch", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		p := st.part()
		skName := ""
		if len(pa.positional) > 0 {
			s, err := toString(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("sketch: name: %w", err)
			}
			skName = s
		}
		plane := p.Planes.XY
		if v, ok := pa.kw["plane"]; ok {
			pl, err := toPlane(v, p)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("sketch: plane: %w", err)
			}
			plane = pl
		}
		if v, ok := pa.kw["offset"]; ok {
			off, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("sketch: offset: %w", err)
			}
			plane.Origin = r3.Add(plane.Origin, r3.Scale(off, plane.Normal))
		}
		sk := p.NewSketch(skName)
		f, err := p.AddSketch(sk, &plane)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sketch: %w", err)
		}
		if skName != "" {
			f.Name = skName
		}
		st.sketch = sk
		return &sexpFeature{id: f.ID, name: f.Name}, nil
	})

	// -----------------------------------------------------------------------
	// (line x1 y1 x2 y2)
	// -----------------------------------------------------------------------
	env.AddFunction("line", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		sc, err := st.scene("line")
		if err != nil {
			return zygo.SexpNull, err
		}
		c, err := floats(args, 4)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("line: %w", err)
		}
		g := sc.AddSegment(c[0], c[1], c[2], c[3], mergeEnds)
		return &sexpShape{scene: sc, id: g.ID, kind: "segment"}, nil
	})

	// -----------------------------------------------------------------------
	// (rect x y w h) returns the four edges, bottom first, counter-clockwise.
	// -----------------------------------------------------------------------
	env.AddFunction("rect", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		sc, err := st.scene("rect")
		if err != nil {
			return zygo.SexpNull, err
		}
		c, err := floats(args, 4)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("rect: %w", err)
		}
		x, y, w, h := c[0], c[1], c[2], c[3]
		if w == 0 || h == 0 {
			return zygo.SexpNull, fmt.Errorf("rect: width and height must be non-zero")
		}
		corners := [][2]float64{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}}
		edges := make([]zygo.Sexp, 4)
		for i := range corners {
			a, b := corners[i], corners[(i+1)%4]
			g := sc.AddSegment(a[0], a[1], b[0], b[1], mergeEnds)
			edges[i] = &sexpShape{scene: sc, id: g.ID, kind: "segment"}
		}
		return zygo.MakeList(edges), nil
	})

	// -----------------------------------------------------------------------
	// (circle cx cy r)
	// -----------------------------------------------------------------------
	env.AddFunction("circle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		sc, err := st.scene("circle")
		if err != nil {
			return zygo.SexpNull, err
		}
		c, err := floats(args, 3)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("circle: %w", err)
		}
		ci := sc.AddCircle(c[0], c[1], c[2], mergeEnds)
		return &sexpShape{scene: sc, id: ci.ID, kind: "circle"}, nil
	})

	// -----------------------------------------------------------------------
	// (arc cx cy r start end) with angles in degrees, counter-clockwise.
	// -----------------------------------------------------------------------
	env.AddFunction("arc", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		sc, err := st.scene("arc")
		if err != nil {
			return zygo.SexpNull, err
		}
		c, err := floats(args, 5)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("arc: %w", err)
		}
		a := sc.AddArc(c[0], c[1], c[2], c[3]*math.Pi/180, c[4]*math.Pi/180, mergeEnds)
		return &sexpShape{scene: sc, id: a.ID, kind: "arc"}, nil
	})

	// -----------------------------------------------------------------------
	// (start seg) (end seg) (center circle-or-arc)
	// -----------------------------------------------------------------------
	env.AddFunction("start", pointOf(st, "start"))
	env.AddFunction("end", pointOf(st, "end"))
	env.AddFunction("center", pointOf(st, "center"))

	// -----------------------------------------------------------------------
	// Constraints on the current sketch. Values are numbers or formula
	// expressions over variables: (length top "width / 2").
	// -----------------------------------------------------------------------
	constraints := []struct {
		name  string
		kinds [][]string
		value bool
		build func(ids []sketch.ID, v sketch.Value) sketch.Constraint
	}{
		{"coincident", [][]string{{"point"}, {"point"}}, false,
			func(ids []sketch.ID, _ sketch.Value) sketch.Constraint { return sketch.Coincident(ids[0], ids[1]) }},
		{"fixed", [][]string{{"point"}}, false,
			func(ids []sketch.ID, _ sketch.Value) sketch.Constraint { return sketch.Fixed(ids[0]) }},
		{"horizontal", [][]string{{"segment"}}, false,
			func(ids []sketch.ID, _ sketch.Value) sketch.Constraint { return sketch.Horizontal(ids[0]) }},
		{"vertical", [][]string{{"segment"}}, false,
			func(ids []sketch.ID, _ sketch.Value) sketch.Constraint { return sketch.Vertical(ids[0]) }},
		{"parallel", [][]string{{"segment"}, {"segment"}}, false,
			func(ids []sketch.ID, _ sketch.Value) sketch.Constraint { return sketch.Parallel(ids[0], ids[1]) }},
		{"perpendicular", [][]string{{"segment"}, {"segment"}}, false,
			func(ids []sketch.ID, _ sketch.Value) sketch.Constraint { return sketch.Perpendicular(ids[0], ids[1]) }},
		{"equal", [][]string{{"segment"}, {"segment"}}, false,
			func(ids []sketch.ID, _ sketch.Value) sketch.Constraint { return sketch.EqualLength(ids[0], ids[1]) }},
		{"tangent", [][]string{{"segment"}, {"circle", "arc"}}, false,
			func(ids []sketch.ID, _ sketch.Value) sketch.Constraint { return sketch.Tangent(ids[0], ids[1]) }},
		{"midpoint", [][]string{{"point"}, {"segment"}}, false,
			func(ids []sketch.ID, _ sketch.Value) sketch.Constraint { return sketch.Midpoint(ids[0], ids[1]) }},
		{"on_line", [][]string{{"point"}, {"segment"}}, false,
			func(ids []sketch.ID, _ sketch.Value) sketch.Constraint { return sketch.OnLine(ids[0], ids[1]) }},
		{"on_circle", [][]string{{"point"}, {"circle", "arc"}}, false,
			func(ids []sketch.ID, _ sketch.Value) sketch.Constraint { return sketch.OnCircle(ids[0], ids[1]) }},
		{"length", [][]string{{"segment"}}, true,
			func(ids []sketch.ID, v sketch.Value) sketch.Constraint { return sketch.Length(ids[0], v) }},
		{"radius", [][]string{{"circle", "arc"}}, true,
			func(ids []sketch.ID, v sketch.Value) sketch.Constraint { return sketch.Radius(ids[0], v) }},
		{"distance", [][]string{{"point"}, {"point"}}, true,
			func(ids []sketch.ID, v sketch.Value) sketch.Constraint { return sketch.Distance(ids[0], ids[1], v) }},
		{"hdistance", [][]string{{"point"}, {"point"}}, true,
			func(ids []sketch.ID, v sketch.Value) sketch.Constraint {
				return sketch.HorizontalDistance(ids[0], ids[1], v)
			}},
		{"vdistance", [][]string{{"point"}, {"point"}}, true,
			func(ids []sketch.ID, v sketch.Value) sketch.Constraint {
				return sketch.VerticalDistance(ids[0], ids[1], v)
			}},
		{"angle", [][]string{{"segment"}, {"segment"}}, true,
			func(ids []sketch.ID, v sketch.Value) sketch.Constraint { return sketch.Angle(ids[0], ids[1], v) }},
	}
	for _, c := range constraints {
		label := strings.ReplaceAll(c.name, "_", "-")
		env.AddFunction(c.name, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			sc, err := st.scene(label)
			if err != nil {
				return zygo.SexpNull, err
			}
			want := len(c.kinds)
			if c.value {
				want++
			}
			if len(args) != want {
				return zygo.SexpNull, fmt.Errorf("%s requires %d arguments, got %d", label, want, len(args))
			}
			ids := make([]sketch.ID, len(c.kinds))
			for i, kinds := range c.kinds {
				id, err := toShape(args[i], sc, kinds...)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: argument %d: %w", label, i+1, err)
				}
				ids[i] = id
			}
			var v sketch.Value
			if c.value {
				v, err = toValue(args[len(args)-1])
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: value: %w", label, err)
				}
			}
			added, err := sc.AddConstraint(c.build(ids, v))
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", label, err)
			}
			return &sexpShape{scene: sc, id: added.ID, kind: "constraint"}, nil
		})
	}

	// -----------------------------------------------------------------------
	// (solve) runs the constraint solver on the current sketch.
	// -----------------------------------------------------------------------
	env.AddFunction("solve", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		sc, err := st.scene("solve")
		if err != nil {
			return zygo.SexpNull, err
		}
		res := sc.Solve(st.part().Tree().SolveOptions())
		if n := len(res.Unresolved); n > 0 {
			st.warn(fmt.Sprintf("%d constraint value(s) could not be resolved and were skipped", n))
		}
		if !res.Converged {
			st.warn(fmt.Sprintf("sketch did not converge after %d iterations (error %g)", res.Iterations, res.Error))
		}
		return &zygo.SexpBool{Val: res.Converged}, nil
	})

	// -----------------------------------------------------------------------
	// (extrude sk 20 :op :subtract :symmetric true :reverse true)
	// -----------------------------------------------------------------------
	env.AddFunction("extrude", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("extrude requires a sketch and a distance")
		}
		sk, err := toFeature(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("extrude: sketch: %w", err)
		}
		dist, err := toFloat64(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("extrude: distance: %w", err)
		}
		params := feature.ExtrudeParams{Direction: 1}
		if v, ok := pa.kw["op"]; ok {
			if params.Operation, err = toOperation(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("extrude: op: %w", err)
			}
		}
		if v, ok := pa.kw["symmetric"]; ok {
			if params.Symmetric, err = toBool(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("extrude: symmetric: %w", err)
			}
		}
		if v, ok := pa.kw["reverse"]; ok {
			rev, err := toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("extrude: reverse: %w", err)
			}
			if rev {
				params.Direction = -1
			}
		}
		f, err := st.part().Extrude(sk.id, dist, params)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("extrude: %w", err)
		}
		st.checkFeature(st.part(), f)
		return &sexpFeature{id: f.ID, name: f.Name}, nil
	})

	// -----------------------------------------------------------------------
	// (revolve sk :angle 180 :segments 48 :axis :x :op :add)
	// -----------------------------------------------------------------------
	env.AddFunction("revolve", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("revolve requires a sketch")
		}
		sk, err := toFeature(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("revolve: sketch: %w", err)
		}
		angle := 2 * math.Pi
		if v, ok := pa.kw["angle"]; ok {
			if angle, err = toDegrees(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("revolve: angle: %w", err)
			}
		}
		params := feature.RevolveParams{}
		if v, ok := pa.kw["segments"]; ok {
			n, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("revolve: segments: %w", err)
			}
			if n < 3 {
				return zygo.SexpNull, fmt.Errorf("revolve: segments must be at least 3, got %g", n)
			}
			params.Segments = int(n)
		}
		if v, ok := pa.kw["axis"]; ok {
			if params.Axis, err = toAxis(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("revolve: axis: %w", err)
			}
		}
		if v, ok := pa.kw["op"]; ok {
			if params.Operation, err = toOperation(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("revolve: op: %w", err)
			}
		}
		f, err := st.part().Revolve(sk.id, angle, params)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("revolve: %w", err)
		}
		st.checkFeature(st.part(), f)
		return &sexpFeature{id: f.ID, name: f.Name}, nil
	})

	// -----------------------------------------------------------------------
	// (suppress feat)
	// -----------------------------------------------------------------------
	env.AddFunction("suppress", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("suppress requires a feature")
		}
		f, err := toFeature(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("suppress: %w", err)
		}
		if err := st.part().SuppressFeature(f.id); err != nil {
			return zygo.SexpNull, fmt.Errorf("suppress: %w", err)
		}
		return f, nil
	})

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		c, err := floats(args, 3)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: %w", err)
		}
		return &sexpVec3{vec: geom.Vec3{X: c[0], Y: c[1], Z: c[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (place (part "leg") :at (vec3 0 0 19) :rotate (vec3 0 0 90) :name "leg 1")
	// -----------------------------------------------------------------------
	env.AddFunction("place", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("place requires a part reference as first argument")
		}
		ref, ok := pa.positional[0].(*sexpPart)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("place: expected part reference, got %T (%s)",
				pa.positional[0], pa.positional[0].SexpString(nil))
		}
		pl := &sexpPlacement{p: ref.p}
		if v, ok := pa.kw["at"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: at: %w", err)
			}
			pl.transform.Translation = vec
		}
		if v, ok := pa.kw["rotate"]; ok {
			vec, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: rotate: %w", err)
			}
			pl.transform.Rotation = vec
		}
		if v, ok := pa.kw["name"]; ok {
			s, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("place: name: %w", err)
			}
			pl.name = s
		}
		return pl, nil
	})

	// -----------------------------------------------------------------------
	// (assembly "name" (place ...) (place ...) ...)
	// -----------------------------------------------------------------------
	env.AddFunction("assembly", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("assembly requires a name argument")
		}
		asmName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("assembly: name: %w", err)
		}
		if st.assembly != nil {
			return zygo.SexpNull, fmt.Errorf("assembly: %q already defined", st.assembly.Name)
		}
		a := part.NewAssembly(asmName)
		for i := 1; i < len(args); i++ {
			items := []zygo.Sexp{args[i]}
			if _, single := args[i].(*sexpPlacement); !single {
				// A list of placements, as built by a map over parts.
				if items, err = sexpListToSlice(args[i]); err != nil {
					return zygo.SexpNull, fmt.Errorf("assembly: child %d: %w", i, err)
				}
			}
			for _, item := range items {
				pl, ok := item.(*sexpPlacement)
				if !ok {
					return zygo.SexpNull, fmt.Errorf("assembly: child %d: expected placement, got %T (%s)",
						i, item, item.SexpString(nil))
				}
				if _, err := a.AddComponent(pl.p, pl.name, pl.transform); err != nil {
					return zygo.SexpNull, fmt.Errorf("assembly: %w", err)
				}
			}
		}
		st.assembly = a
		return zygo.SexpNull, nil
	})
}

// mergeEnds snaps new shape ends onto existing points so consecutive
// lines share vertices and form closed profiles.
var mergeEnds = sketch.AddOptions{Merge: true}

// pointOf returns a builtin yielding the start, end or center point of a
// shape reference.
func pointOf(st *buildState, which string) func(*zygo.Zlisp, string, []zygo.Sexp) (zygo.Sexp, error) {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		sc, err := st.scene(which)
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("%s requires one shape", which)
		}
		var pt sketch.ID
		if which == "center" {
			id, err := toShape(args[0], sc, "circle", "arc")
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", which, err)
			}
			if c, ok := sc.Circle(id); ok {
				pt = c.Center
			} else if a, ok := sc.Arc(id); ok {
				pt = a.Center
			}
		} else {
			id, err := toShape(args[0], sc, "segment")
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", which, err)
			}
			g, _ := sc.Segment(id)
			pt = g.P1
			if which == "end" {
				pt = g.P2
			}
		}
		return &sexpShape{scene: sc, id: pt, kind: "point"}, nil
	}
}
