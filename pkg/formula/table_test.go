package formula

import (
	"errors"
	"math"
	"testing"
)

// countingEvaluator records how often it is called.
type countingEvaluator struct {
	calls int
	value float64
	err   error
}

func (c *countingEvaluator) Eval(expr string, vars map[string]float64) (float64, error) {
	c.calls++
	return c.value + vars["w"], c.err
}

func TestResolveOrder(t *testing.T) {
	tbl := NewTableWithEvaluator(nil)
	if err := tbl.Set("w", 42); err != nil {
		t.Fatalf("Set: %v", err)
	}

	tests := []struct {
		name    string
		expr    string
		want    float64
		wantErr bool
	}{
		{"variable", "w", 42, false},
		{"variable with spaces", "  w ", 42, false},
		{"literal", "12.5", 12.5, false},
		{"negative literal", "-3", -3, false},
		{"unknown without evaluator", "h", 0, true},
		{"empty", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tbl.Resolve(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Resolve(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestResolveCachesUntilChange(t *testing.T) {
	ev := &countingEvaluator{value: 1}
	tbl := NewTableWithEvaluator(ev)
	_ = tbl.Set("w", 10)

	for i := 0; i < 3; i++ {
		v, err := tbl.Resolve("w + 1")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if v != 11 {
			t.Fatalf("Resolve = %v, want 11", v)
		}
	}
	if ev.calls != 1 {
		t.Errorf("evaluator called %d times, want 1", ev.calls)
	}

	_ = tbl.Set("w", 20)
	v, _ := tbl.Resolve("w + 1")
	if v != 21 {
		t.Errorf("after change Resolve = %v, want 21", v)
	}
	if ev.calls != 2 {
		t.Errorf("evaluator called %d times, want 2", ev.calls)
	}
}

func TestResolveCachesErrors(t *testing.T) {
	ev := &countingEvaluator{err: errors.New("boom")}
	tbl := NewTableWithEvaluator(ev)
	for i := 0; i < 2; i++ {
		if _, err := tbl.Resolve("bad expr"); err == nil {
			t.Fatal("expected error")
		}
	}
	if ev.calls != 1 {
		t.Errorf("evaluator called %d times, want 1", ev.calls)
	}
}

func TestSetRejectsInvalidNames(t *testing.T) {
	tbl := NewTable()
	for _, name := range []string{"", "1abc", "a-b", "a b"} {
		if err := tbl.Set(name, 1); err == nil {
			t.Errorf("Set(%q) succeeded, want error", name)
		}
	}
}

func TestTableBookkeeping(t *testing.T) {
	tbl := NewTable()
	v0 := tbl.Version()
	_ = tbl.Set("b", 2)
	_ = tbl.Set("a", 1)
	if tbl.Version() == v0 {
		t.Error("version did not change after Set")
	}
	v1 := tbl.Version()
	_ = tbl.Set("a", 1)
	if tbl.Version() != v1 {
		t.Error("setting an unchanged value bumped the version")
	}
	names := tbl.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("Names() = %v", names)
	}
	tbl.Delete("a")
	if _, ok := tbl.Get("a"); ok {
		t.Error("a still present after Delete")
	}
	tbl.Clear()
	if len(tbl.Snapshot()) != 0 {
		t.Error("Clear left variables behind")
	}
}

func TestLispEvaluatorInfix(t *testing.T) {
	tbl := NewTable()
	_ = tbl.Set("width", 40)
	_ = tbl.Set("gap", 2.5)

	got, err := tbl.Resolve("width / 4 + gap")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if math.Abs(got-12.5) > 1e-12 {
		t.Errorf("Resolve = %v, want 12.5", got)
	}
}

func TestLispEvaluatorForm(t *testing.T) {
	got, err := LispEvaluator{}.Eval("(* w 3)", map[string]float64{"w": 7})
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != 21 {
		t.Errorf("Eval = %v, want 21", got)
	}
}

func TestLispEvaluatorErrors(t *testing.T) {
	if _, err := (LispEvaluator{}).Eval("   ", nil); !errors.Is(err, ErrEmptyExpression) {
		t.Errorf("empty expression error = %v", err)
	}
	if _, err := (LispEvaluator{}).Eval("(list 1 2)", nil); err == nil {
		t.Error("expected error for non-numeric result")
	}
}

func TestFloatLiteral(t *testing.T) {
	tests := map[float64]string{
		10:   "10.0",
		2.5:  "2.5",
		-3:   "-3.0",
		1e21: "1000000000000000000000.0",
	}
	for in, want := range tests {
		if got := floatLiteral(in); got != want {
			t.Errorf("floatLiteral(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestLispEvaluatorInfixLiterals(t *testing.T) {
	got, err := LispEvaluator{}.Eval("10 / 4 + 1", nil)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if got != 3.5 {
		t.Errorf("Eval = %v, want 3.5", got)
	}
}
