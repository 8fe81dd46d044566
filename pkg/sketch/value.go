package sketch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Value is a numeric constraint parameter. It is either a literal or an
// expression (usually a bare variable name) resolved through the scene's
// variable table whenever a residual is evaluated.
type Value struct {
	Num  float64
	Expr string
}

// Literal returns a literal value.
func Literal(v float64) Value { return Value{Num: v} }

// Expr returns a value resolved from a variable name or expression.
func Expr(s string) Value { return Value{Expr: s} }

// IsExpr reports whether the value must be resolved through a table.
func (v Value) IsExpr() bool { return v.Expr != "" }

func (v Value) String() string {
	if v.IsExpr() {
		return v.Expr
	}
	return strconv.FormatFloat(v.Num, 'g', -1, 64)
}

// MarshalJSON writes a number for literals and a string for expressions.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsExpr() {
		return json.Marshal(v.Expr)
	}
	return json.Marshal(v.Num)
}

// UnmarshalJSON accepts a number, a string or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Expr(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("sketch: value must be a number or string: %w", err)
	}
	*v = Literal(f)
	return nil
}
