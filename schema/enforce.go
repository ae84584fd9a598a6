package schema

import (
	"github.com/teranos/qntx-astro/quantity"
)

// Enforce applies the vocabulary's hard rules and returns the corrected value.
// It is idempotent and is the last step of every path that emits a classification:
//
//   - quantity outside the vocabulary becomes dimensionless, confidence is clamped to [0,1]
//   - time always carries a time kind (default quantity); other quantities carry none
//   - count, dimensionless, calendar time, and any non-linear encoding
//     have no unit: unitRequired=false, recommendedUnit=nil, allowedUnits=[]
//   - otherwise allowedUnits is the quantity's canonical table and the
//     recommended unit is normalized, falling back to the table default
func Enforce(fc FieldClassification) FieldClassification {
	fc.PhysicalQuantity = quantity.ParseQuantity(string(fc.PhysicalQuantity))
	fc.Encoding = quantity.ParseEncoding(string(fc.Encoding))

	switch {
	case fc.Confidence < 0:
		fc.Confidence = 0
	case fc.Confidence > 1:
		fc.Confidence = 1
	}

	if fc.PhysicalQuantity == quantity.Time {
		if fc.TimeKind == nil {
			fc.TimeKind = TimeKindPtr(quantity.TimeQuantity)
		}
	} else {
		fc.TimeKind = nil
	}

	if fc.PhysicalQuantity.Unitless() || fc.IsCalendar() || !fc.Encoding.Convertible() ||
		!quantity.HasUnits(fc.PhysicalQuantity) {
		fc.UnitRequired = false
		fc.RecommendedUnit = nil
		fc.AllowedUnits = []string{}
		return fc
	}

	fc.UnitRequired = true
	fc.AllowedUnits = quantity.Units(fc.PhysicalQuantity)

	unit := quantity.NormalizeUnit(fc.Unit())
	if !quantity.Allowed(fc.PhysicalQuantity, unit) {
		unit = quantity.DefaultUnit(fc.PhysicalQuantity)
	}
	fc.RecommendedUnit = StrPtr(unit)
	return fc
}
