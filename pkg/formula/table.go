package formula

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Table maps variable names to values. Dimensions and constraints carrying
// a string parameter resolve it through a Table when their residual is
// evaluated.
type Table struct {
	mu      sync.RWMutex
	vars    map[string]float64
	version uint64
	eval    Evaluator
	cache   map[string]cachedResult
}

type cachedResult struct {
	version uint64
	value   float64
	err     error
}

// NewTable returns an empty table using the zygomys evaluator.
func NewTable() *Table {
	return NewTableWithEvaluator(LispEvaluator{})
}

// NewTableWithEvaluator returns an empty table using e for expressions.
// A nil evaluator disables expression support: only names and numeric
// literals resolve.
func NewTableWithEvaluator(e Evaluator) *Table {
	return &Table{
		vars:  make(map[string]float64),
		eval:  e,
		cache: make(map[string]cachedResult),
	}
}

// global is created at init and lives for the whole process.
var global = NewTable()

// Global returns the process-wide variable table.
func Global() *Table {
	return global
}

// Set assigns a variable. Names must be identifiers.
func (t *Table) Set(name string, v float64) error {
	if !ValidName(name) {
		return fmt.Errorf("formula: invalid variable name %q", name)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.vars[name]; ok && old == v {
		return nil
	}
	t.vars[name] = v
	t.version++
	return nil
}

// Get returns a variable's value.
func (t *Table) Get(name string) (float64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.vars[name]
	return v, ok
}

// Delete removes a variable. Deleting a missing name is a no-op.
func (t *Table) Delete(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.vars[name]; ok {
		delete(t.vars, name)
		t.version++
	}
}

// Clear removes all variables.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.vars = make(map[string]float64)
	t.cache = make(map[string]cachedResult)
	t.version++
}

// Names returns all variable names, sorted.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.vars))
	for n := range t.vars {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of the current variables.
func (t *Table) Snapshot() map[string]float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]float64, len(t.vars))
	for k, v := range t.vars {
		out[k] = v
	}
	return out
}

// Version changes every time a variable is added, changed or removed.
func (t *Table) Version() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.version
}

// Resolve turns a parameter string into a value:
//  1. a variable of that name,
//  2. a numeric literal,
//  3. an expression over the table's variables.
//
// Expression results are cached until the table changes.
func (t *Table) Resolve(expr string) (float64, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, ErrEmptyExpression
	}
	if v, ok := t.Get(expr); ok {
		return v, nil
	}
	if v, err := strconv.ParseFloat(expr, 64); err == nil {
		return v, nil
	}

	t.mu.RLock()
	version := t.version
	cached, hit := t.cache[expr]
	e := t.eval
	t.mu.RUnlock()
	if hit && cached.version == version {
		return cached.value, cached.err
	}
	if e == nil {
		return 0, fmt.Errorf("formula: unknown variable %q", expr)
	}

	v, err := e.Eval(expr, t.Snapshot())

	t.mu.Lock()
	t.cache[expr] = cachedResult{version: version, value: v, err: err}
	t.mu.Unlock()
	return v, err
}
