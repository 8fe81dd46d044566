// Package formula resolves numeric parameters that are given as variable
// names or expressions over a variable table. Expressions are evaluated in a
// sandboxed zygomys environment; plain arithmetic uses infix syntax
// ("width * 2") and parenthesised input is taken as a Lisp form
// ("(* width 2)").
package formula

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
)

// ErrEmptyExpression is returned when an expression has no content.
var ErrEmptyExpression = errors.New("formula: empty expression")

// identPattern restricts variable names to identifiers zygomys can bind.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidName reports whether name can be used as a variable name.
func ValidName(name string) bool {
	return identPattern.MatchString(name)
}

// Evaluator evaluates expressions against a set of variables.
type Evaluator interface {
	Eval(expr string, vars map[string]float64) (float64, error)
}

// LispEvaluator evaluates expressions in a fresh zygomys sandbox per call.
type LispEvaluator struct{}

// Eval binds vars as globals and evaluates expr.
func (LispEvaluator) Eval(expr string, vars map[string]float64) (float64, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, ErrEmptyExpression
	}

	env := zygo.NewZlispSandbox()
	defer env.Stop()
	// The sandbox leaves out the builders; {...} needs infix.
	env.AddBuilder("infix", zygo.InfixBuilder)
	env.AddBuilder("infixExpand", zygo.InfixBuilder)

	if err := env.LoadString(buildSource(expr, vars)); err != nil {
		return 0, fmt.Errorf("formula %q: %s", expr, firstLine(err))
	}
	res, err := env.Run()
	if err != nil {
		return 0, fmt.Errorf("formula %q: %s", expr, firstLine(err))
	}
	switch v := res.(type) {
	case *zygo.SexpFloat:
		return v.Val, nil
	case *zygo.SexpInt:
		return float64(v.Val), nil
	}
	return 0, fmt.Errorf("formula %q: result is not a number (%s)", expr, res.SexpString(nil))
}

// buildSource emits one def per variable followed by the expression.
// Variables are emitted in sorted order so the program text is stable.
func buildSource(expr string, vars map[string]float64) string {
	names := make([]string, 0, len(vars))
	for name := range vars {
		if ValidName(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "(def %s %s)\n", name, floatLiteral(vars[name]))
	}
	if strings.HasPrefix(expr, "(") {
		b.WriteString(expr)
	} else {
		b.WriteString("{")
		b.WriteString(expr)
		b.WriteString("}")
	}
	b.WriteString("\n")
	return b.String()
}

// floatLiteral formats v so zygomys reads it as a float, never an int.
func floatLiteral(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func firstLine(err error) string {
	msg := strings.TrimSpace(err.Error())
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return msg
}
