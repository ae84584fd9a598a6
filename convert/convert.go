// Package convert moves cell values between units of one physical quantity.
//
// Only linear quantities with a unit table are ever transformed. Magnitudes,
// sexagesimal strings, identifiers, categories and calendar dates pass
// through untouched; the same holds for anything whose source unit is unknown.
package convert

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cast"

	q "github.com/teranos/qntx-astro/quantity"
	"github.com/teranos/qntx-astro/signal"
)

// Kind tags a converted cell.
type Kind int

const (
	Null Kind = iota
	Number
	Text
)

func (k Kind) String() string {
	switch k {
	case Number:
		return "number"
	case Text:
		return "text"
	}
	return "null"
}

// Cell is the outcome of converting one value.
type Cell struct {
	Kind   Kind
	Number float64
	Text   string
}

// Value returns nil, a float64 or a string.
func (c Cell) Value() any {
	switch c.Kind {
	case Number:
		return c.Number
	case Text:
		return c.Text
	}
	return nil
}

// MarshalJSON renders the cell as its bare value.
func (c Cell) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Value())
}

// passthrough quantities are never transformed regardless of units.
func passthrough(qty q.PhysicalQuantity) bool {
	return qty == q.Brightness || qty.Unitless() || !Supported(qty)
}

// Convert converts value from one unit to another. It never fails: values
// that cannot be converted are coerced to a number when possible and passed
// through as text otherwise.
func Convert(value any, from, to string, qty q.PhysicalQuantity) Cell {
	if signal.IsMissing(value) {
		return Cell{Kind: Null}
	}
	x, ok := signal.ToFloat(value)
	if !ok {
		s := value
		if str, isStr := value.(string); isStr {
			s = strings.TrimSpace(str)
		}
		return Cell{Kind: Text, Text: cast.ToString(s)}
	}

	from, to = q.NormalizeUnit(from), q.NormalizeUnit(to)
	if q.IsSentinelUnit(from) || q.IsSentinelUnit(to) || from == to || passthrough(qty) {
		return Cell{Kind: Number, Number: x}
	}
	y, err := ConvertFloat(x, from, to, qty)
	if err != nil {
		return Cell{Kind: Number, Number: x}
	}
	return Cell{Kind: Number, Number: y}
}
