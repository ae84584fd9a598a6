package convert

import (
	"github.com/teranos/qntx-astro/errors"
	q "github.com/teranos/qntx-astro/quantity"
	"github.com/teranos/qntx-astro/schema"
)

// ConversionSpec is one column's unit transform applied at row-store time.
// Encoding is always linear for a spec built here; consumers that receive
// specs from elsewhere re-check it with Verify.
type ConversionSpec struct {
	Field    string             `json:"field"`
	Quantity q.PhysicalQuantity `json:"physicalQuantity"`
	Encoding q.Encoding         `json:"encoding"`
	FromUnit string             `json:"fromUnit"`
	ToUnit   string             `json:"toUnit"`
}

// NewConversionSpec validates a transform for fc. Units are normalized; both
// must be canonical for the quantity and must differ.
func NewConversionSpec(fc schema.FieldClassification, from, to string) (ConversionSpec, error) {
	if !fc.Convertible() || !Supported(fc.PhysicalQuantity) {
		return ConversionSpec{}, errors.Wrapf(errors.ErrNotConvertible,
			"field %s (%s, %s)", fc.Field, fc.PhysicalQuantity, fc.Encoding)
	}
	from, to = q.NormalizeUnit(from), q.NormalizeUnit(to)
	for _, u := range []string{from, to} {
		if q.IsSentinelUnit(u) || !q.Allowed(fc.PhysicalQuantity, u) {
			return ConversionSpec{}, unknownUnit(u, fc.PhysicalQuantity)
		}
	}
	if from == to {
		return ConversionSpec{}, errors.Wrapf(errors.ErrInvalidRequest, "field %s: %s to itself", fc.Field, from)
	}
	return ConversionSpec{
		Field:    fc.Field,
		Quantity: fc.PhysicalQuantity,
		Encoding: fc.Encoding,
		FromUnit: from,
		ToUnit:   to,
	}, nil
}

// BuildConversionSpecs pairs each classification with the caller's selected
// target unit. The source unit is the detected one when it is canonical,
// otherwise the recommended unit. Fields without a selection, fields that
// must not be converted, and no-op pairs produce nothing. Every returned
// spec carries the field's encoding (always linear).
func BuildConversionSpecs(classifications []schema.FieldClassification, userSelected, detected map[string]string) []ConversionSpec {
	var specs []ConversionSpec
	for _, fc := range classifications {
		to, ok := userSelected[fc.Field]
		if !ok {
			continue
		}
		from := fc.Unit()
		if d := q.NormalizeUnit(detected[fc.Field]); d != "" && q.Allowed(fc.PhysicalQuantity, d) {
			from = d
		}
		spec, err := NewConversionSpec(fc, from, to)
		if err != nil {
			continue
		}
		specs = append(specs, spec)
	}
	return specs
}

// Verify re-validates a spec that arrived from outside this package. A spec
// without an encoding, or with a non-linear one, is rejected along with any
// spec NewConversionSpec would refuse.
func (s ConversionSpec) Verify() error {
	if s.Encoding != q.Linear {
		enc := string(s.Encoding)
		if enc == "" {
			enc = "missing"
		}
		return errors.WithHint(
			errors.Wrapf(errors.ErrNotConvertible, "field %s: encoding %s", s.Field, enc),
			"only linear-encoded fields can be converted; build specs with /api/conversions")
	}
	fc := schema.Enforce(schema.FieldClassification{
		Field:            s.Field,
		PhysicalQuantity: s.Quantity,
		Encoding:         s.Encoding,
		RecommendedUnit:  schema.StrPtr(s.FromUnit),
	})
	_, err := NewConversionSpec(fc, s.FromUnit, s.ToUnit)
	return err
}

// Transform returns a copy of row with every spec applied to its column.
// Columns without a spec are copied unchanged, and so are columns whose
// spec is not linear-encoded.
func Transform(row map[string]any, specs []ConversionSpec) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	for _, s := range specs {
		v, ok := row[s.Field]
		if !ok || s.Encoding != q.Linear {
			continue
		}
		out[s.Field] = Convert(v, s.FromUnit, s.ToUnit, s.Quantity).Value()
	}
	return out
}
