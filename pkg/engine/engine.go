// Package engine provides the Lisp evaluation engine for the modeller.
// It wraps zygomys in a sandboxed environment and builds parts and an
// optional assembly from user source code.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Jozo132/modeller-sub001/pkg/feature"
	"github.com/Jozo132/modeller-sub001/pkg/formula"
	"github.com/Jozo132/modeller-sub001/pkg/kernel"
	"github.com/Jozo132/modeller-sub001/pkg/logging"
	"github.com/Jozo132/modeller-sub001/pkg/part"
	"github.com/Jozo132/modeller-sub001/pkg/sketch"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// EvalWarning represents a non-fatal warning produced during evaluation,
// such as a sketch that did not converge or a feature that failed.
type EvalWarning struct {
	Part    string
	Message string
}

func (w EvalWarning) String() string {
	if w.Part != "" {
		return fmt.Sprintf("%s: %s", w.Part, w.Message)
	}
	return w.Message
}

// Model is the output of a successful evaluation.
type Model struct {
	Parts     []*part.Part
	Assembly  *part.Assembly // nil unless the source declared one
	Variables *formula.Table
	Warnings  []EvalWarning
}

// Part returns the part with the given name.
func (m *Model) Part(name string) (*part.Part, bool) {
	return lo.Find(m.Parts, func(p *part.Part) bool { return p.Name == name })
}

// Option configures an Engine.
type Option func(*Engine)

// WithKernel selects the boolean kernel used by every part.
func WithKernel(k kernel.Kernel) Option { return func(e *Engine) { e.opts.Kernel = k } }

// WithSolveOptions sets the sketch solver options.
func WithSolveOptions(o sketch.SolveOptions) Option { return func(e *Engine) { e.opts.Solve = o } }

// WithLogger sets the logger handed to parts and used for evaluation logs.
func WithLogger(l *zerolog.Logger) Option { return func(e *Engine) { e.opts.Logger = l } }

// WithTimeout overrides EvalTimeout.
func WithTimeout(d time.Duration) Option { return func(e *Engine) { e.timeout = d } }

// Engine wraps the zygomys interpreter.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	opts    part.Options
	timeout time.Duration
}

// NewEngine creates a new Engine instance.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeout: EvalTimeout}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) log() *zerolog.Logger {
	if e.opts.Logger != nil {
		return e.opts.Logger
	}
	return logging.Logger()
}

// Evaluate takes Lisp source code and builds a new Model.
// Each call creates a fresh zygomys sandbox and variable table.
//
// Return semantics:
//   - On success: returns model + nil errors + nil error
//   - On parse/eval failure: returns nil model + eval errors + nil error
//   - On fatal failure (timeout, panic): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Model, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		m, evalErrs, err := e.evaluate(source)
		ch <- evalResult{model: m, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, e.timeout, &e.mu, &e.generation)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*Model, []EvalError, error) {
	start := time.Now()
	st := newBuildState(e.opts)

	// Empty source is a valid program that produces an empty model.
	if strings.TrimSpace(source) == "" {
		return st.model(), nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, st)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	// Sketches edited after their last recalculation are refreshed here.
	for _, p := range st.parts {
		p.Recalculate()
		for _, f := range p.Tree().Features() {
			st.checkFeature(p, f)
		}
	}
	m := st.model()
	e.log().Debug().
		Int("parts", len(m.Parts)).
		Int("warnings", len(m.Warnings)).
		Dur("elapsed", time.Since(start)).
		Msg("evaluation finished")
	return m, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}

// ---------------------------------------------------------------------------
// Build state
// ---------------------------------------------------------------------------

// defaultPartName names the part created when source sketches without a
// defpart.
const defaultPartName = "part"

// buildState collects what the builtins create during one evaluation.
type buildState struct {
	opts     part.Options
	vars     *formula.Table
	parts    []*part.Part
	current  *part.Part
	sketch   *sketch.Sketch
	assembly *part.Assembly
	warnings []EvalWarning
	reported map[feature.ID]bool
}

func newBuildState(opts part.Options) *buildState {
	vars := formula.NewTable()
	opts.Variables = vars
	return &buildState{opts: opts, vars: vars, reported: make(map[feature.ID]bool)}
}

func (st *buildState) newPart(name string) *part.Part {
	p := part.New(name, st.opts)
	st.parts = append(st.parts, p)
	st.selectPart(p)
	return p
}

func (st *buildState) lookup(name string) *part.Part {
	p, _ := lo.Find(st.parts, func(p *part.Part) bool { return p.Name == name })
	return p
}

func (st *buildState) selectPart(p *part.Part) {
	st.current = p
	st.sketch = nil
}

// part returns the current part, creating the default one on first use.
func (st *buildState) part() *part.Part {
	if st.current == nil {
		if p := st.lookup(defaultPartName); p != nil {
			st.selectPart(p)
		} else {
			st.newPart(defaultPartName)
		}
	}
	return st.current
}

// scene returns the scene of the current sketch.
func (st *buildState) scene(op string) (*sketch.Scene, error) {
	if st.sketch == nil {
		return nil, fmt.Errorf("%s: no active sketch, call (sketch ...) first", op)
	}
	return st.sketch.Scene, nil
}

func (st *buildState) warn(msg string) {
	name := ""
	if st.current != nil {
		name = st.current.Name
	}
	st.warnings = append(st.warnings, EvalWarning{Part: name, Message: msg})
}

// checkFeature records a warning for a feature that failed to execute.
// Each feature is reported once.
func (st *buildState) checkFeature(p *part.Part, f *feature.Feature) {
	if f.Error == "" || st.reported[f.ID] {
		return
	}
	st.reported[f.ID] = true
	st.warnings = append(st.warnings, EvalWarning{Part: p.Name, Message: fmt.Sprintf("%s: %s", f.Name, f.Error)})
}

func (st *buildState) model() *Model {
	return &Model{Parts: st.parts, Assembly: st.assembly, Variables: st.vars, Warnings: st.warnings}
}
