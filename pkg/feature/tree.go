package feature

import (
	"fmt"

	"github.com/Jozo132/modeller-sub001/pkg/kernel"
	"github.com/Jozo132/modeller-sub001/pkg/kernel/csg"
	"github.com/Jozo132/modeller-sub001/pkg/logging"
	"github.com/Jozo132/modeller-sub001/pkg/sketch"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// recalcState guards recalculation against reentrant requests.
type recalcState int

const (
	stateIdle          recalcState = iota
	stateRecalculating             // a walk is running
	statePending                   // a walk is running and another was requested
)

// Tree is an ordered, dependency-respecting sequence of features with a
// result cache. Every dependency of a feature sits at a smaller index.
type Tree struct {
	features []*Feature
	index    map[ID]int
	results  map[ID]*Result
	state    recalcState

	kernel kernel.Kernel
	solve  sketch.SolveOptions
	logger *zerolog.Logger
}

// Option configures a Tree.
type Option func(*Tree)

// WithKernel sets the boolean kernel used by extrude and revolve.
func WithKernel(k kernel.Kernel) Option {
	return func(t *Tree) { t.kernel = k }
}

// WithSolveOptions sets the options sketch features solve with.
func WithSolveOptions(o sketch.SolveOptions) Option {
	return func(t *Tree) { t.solve = o }
}

// WithLogger sets the tree's logger. The default is the process logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(t *Tree) { t.logger = l }
}

// NewTree returns an empty tree using the csg kernel.
func NewTree(opts ...Option) *Tree {
	t := &Tree{
		index:   make(map[ID]int),
		results: make(map[ID]*Result),
		kernel:  csg.New(),
		solve:   sketch.DefaultSolveOptions(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Tree) log() *zerolog.Logger {
	if t.logger != nil {
		return t.logger
	}
	return logging.Logger()
}

// Kernel returns the boolean kernel in use.
func (t *Tree) Kernel() kernel.Kernel { return t.kernel }

// SolveOptions returns the options sketch features solve with.
func (t *Tree) SolveOptions() sketch.SolveOptions { return t.solve }

// Len returns the number of features.
func (t *Tree) Len() int { return len(t.features) }

// Features returns the features in tree order. The slice must not be
// modified.
func (t *Tree) Features() []*Feature { return t.features }

// Feature looks up a feature by ID.
func (t *Tree) Feature(id ID) (*Feature, bool) {
	i, ok := t.index[id]
	if !ok {
		return nil, false
	}
	return t.features[i], true
}

// Index returns the position of a feature, or -1.
func (t *Tree) Index(id ID) int {
	if i, ok := t.index[id]; ok {
		return i
	}
	return -1
}

// Result returns the cached result of a feature.
func (t *Tree) Result(id ID) (*Result, bool) {
	r, ok := t.results[id]
	return r, ok
}

// Dependents returns the features that list id as a dependency, in tree
// order.
func (t *Tree) Dependents(id ID) []*Feature {
	return lo.Filter(t.features, func(f *Feature, _ int) bool { return f.DependsOn(id) })
}

func (t *Tree) reindex() {
	clear(t.index)
	for i, f := range t.features {
		t.index[f.ID] = i
	}
}

// AddFeature appends f and recalculates from it.
func (t *Tree) AddFeature(f *Feature) error {
	return t.InsertFeature(f, len(t.features))
}

// InsertFeature inserts f at index and recalculates from it. Every
// dependency must already be in the tree at a smaller index.
func (t *Tree) InsertFeature(f *Feature, index int) error {
	if f == nil {
		return fmt.Errorf("feature: nil feature")
	}
	if _, dup := t.index[f.ID]; dup {
		return fmt.Errorf("%w: %d", ErrDuplicateID, f.ID)
	}
	if index < 0 || index > len(t.features) {
		return fmt.Errorf("%w: index %d out of range", ErrInvalidOrder, index)
	}
	for _, dep := range f.Dependencies {
		i, ok := t.index[dep]
		if !ok {
			return &DependencyError{Feature: f.ID, Ref: dep}
		}
		if i >= index {
			return fmt.Errorf("%w: feature %d would precede its dependency %d", ErrInvalidOrder, f.ID, dep)
		}
	}
	t.features = append(t.features, nil)
	copy(t.features[index+1:], t.features[index:])
	t.features[index] = f
	t.reindex()
	reserveID(f.ID)
	t.recalculateFrom(index)
	return nil
}

// RemoveFeature removes a feature no other feature depends on.
func (t *Tree) RemoveFeature(id ID) error {
	i, ok := t.index[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrFeatureNotFound, id)
	}
	if deps := t.Dependents(id); len(deps) > 0 {
		return fmt.Errorf("%w: %d is used by %d", ErrHasDependents, id, deps[0].ID)
	}
	t.features = append(t.features[:i], t.features[i+1:]...)
	delete(t.results, id)
	for _, f := range t.features {
		f.Children = lo.Without(f.Children, id)
	}
	t.reindex()
	// Later features may have combined with the removed solid.
	if i < len(t.features) {
		t.recalculateFrom(i)
	}
	return nil
}

// ReorderFeature moves a feature so that it ends up at newIndex. The move
// is refused if it would place the feature before a dependency or after a
// dependent.
func (t *Tree) ReorderFeature(id ID, newIndex int) error {
	old, ok := t.index[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrFeatureNotFound, id)
	}
	if newIndex < 0 || newIndex >= len(t.features) {
		return fmt.Errorf("%w: index %d out of range", ErrInvalidOrder, newIndex)
	}
	if newIndex == old {
		return nil
	}
	f := t.features[old]
	order := make([]*Feature, 0, len(t.features))
	order = append(order, t.features[:old]...)
	order = append(order, t.features[old+1:]...)
	order = append(order[:newIndex], append([]*Feature{f}, order[newIndex:]...)...)
	if err := checkOrder(order); err != nil {
		return err
	}
	t.features = order
	t.reindex()
	t.recalculateFrom(min(old, newIndex))
	return nil
}

// checkOrder verifies every dependency precedes its dependent.
func checkOrder(order []*Feature) error {
	pos := make(map[ID]int, len(order))
	for i, f := range order {
		pos[f.ID] = i
	}
	for i, f := range order {
		for _, dep := range f.Dependencies {
			j, ok := pos[dep]
			if !ok {
				return &DependencyError{Feature: f.ID, Ref: dep}
			}
			if j >= i {
				return fmt.Errorf("%w: feature %d would precede its dependency %d", ErrInvalidOrder, f.ID, dep)
			}
		}
	}
	return nil
}

// MarkModified bumps a feature's timestamp and recalculates from it. A
// solid feature whose data now names another sketch is rewired to it; a
// sketch that is missing or later in the tree is refused and the feature
// keeps its previous sketch.
func (t *Tree) MarkModified(id ID) error {
	i, ok := t.index[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrFeatureNotFound, id)
	}
	if err := t.syncDependencies(t.features[i]); err != nil {
		return err
	}
	t.features[i].Touch()
	t.recalculateFrom(i)
	return nil
}

// syncDependencies points f's dependency list at the sketch its data
// references.
func (t *Tree) syncDependencies(f *Feature) error {
	ref, ok := sketchRef(f.Data)
	if !ok || f.DependsOn(ref) {
		return nil
	}
	prev := f.Dependencies
	f.Dependencies = []ID{ref}
	if err := checkOrder(t.features); err != nil {
		f.Dependencies = prev
		if len(prev) > 0 {
			setSketchRef(f.Data, prev[0])
		}
		return err
	}
	for _, dep := range prev {
		if old, ok := t.Feature(dep); ok {
			old.Children = lo.Without(old.Children, f.ID)
		}
	}
	if sf, ok := t.Feature(ref); ok {
		sf.AddChild(f.ID)
	}
	return nil
}

// SetSuppressed suppresses or restores a feature and recalculates.
func (t *Tree) SetSuppressed(id ID, suppressed bool) error {
	f, ok := t.Feature(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrFeatureNotFound, id)
	}
	f.Suppressed = suppressed
	return t.MarkModified(id)
}

// ExecuteAll recalculates the whole tree.
func (t *Tree) ExecuteAll() {
	t.recalculateFrom(0)
}

// recalculateFrom walks the tree from index. A request that arrives while
// a walk is running is folded into one full rerun once the walk ends.
func (t *Tree) recalculateFrom(index int) {
	if t.state != stateIdle {
		t.state = statePending
		return
	}
	t.state = stateRecalculating
	t.walk(index)
	for t.state == statePending {
		t.state = stateRecalculating
		t.walk(0)
	}
	t.state = stateIdle
}

func (t *Tree) walk(from int) {
	t.log().Debug().Int("from", from).Int("features", len(t.features)).Msg("recalculating feature tree")
	for i := from; i < len(t.features); i++ {
		f := t.features[i]
		if f.Suppressed {
			t.results[f.ID] = &Result{Suppressed: true}
			f.Error = ""
			continue
		}
		if !t.dependenciesSatisfied(f) {
			t.results[f.ID] = &Result{Error: errDependencies}
			f.Error = errDependencies
			continue
		}
		r, err := t.run(f, i)
		if err != nil {
			t.log().Debug().Uint64("feature", uint64(f.ID)).Err(err).Msg("feature failed")
			t.results[f.ID] = &Result{Error: err.Error()}
			f.Error = err.Error()
			continue
		}
		t.results[f.ID] = r
		f.Error = ""
	}
}

func (t *Tree) dependenciesSatisfied(f *Feature) bool {
	return lo.EveryBy(f.Dependencies, func(dep ID) bool { return t.results[dep].OK() })
}

// run executes f, converting a panic into an error.
func (t *Tree) run(f *Feature, index int) (r *Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			r, err = nil, fmt.Errorf("feature %q panicked: %v", f.Name, p)
		}
	}()
	return t.execute(f, index)
}

// FinalResult returns the last result that is neither suppressed nor
// errored.
func (t *Tree) FinalResult() (*Result, bool) {
	for i := len(t.features) - 1; i >= 0; i-- {
		if r := t.results[t.features[i].ID]; r.OK() {
			return r, true
		}
	}
	return nil, false
}

// FinalSolid returns the last usable solid result.
func (t *Tree) FinalSolid() (*Result, bool) {
	r := t.previousSolid(len(t.features))
	return r, r != nil
}

// previousSolid walks backward from index-1 to the nearest usable solid.
func (t *Tree) previousSolid(index int) *Result {
	for i := index - 1; i >= 0; i-- {
		if r := t.results[t.features[i].ID]; r.IsSolid() {
			return r
		}
	}
	return nil
}
