// Package schema defines FieldClassification, the value every stage of the
// pipeline produces, and Enforce, which applies the vocabulary's hard rules to it.
package schema

import (
	"github.com/teranos/qntx-astro/quantity"
)

// FieldClassification is the per-column decision handed to callers.
type FieldClassification struct {
	Field            string                    `json:"field"`
	PhysicalQuantity quantity.PhysicalQuantity `json:"physicalQuantity"`
	Encoding         quantity.Encoding         `json:"encoding"`
	UnitRequired     bool                      `json:"unitRequired"`
	RecommendedUnit  *string                   `json:"recommendedUnit"`
	AllowedUnits     []string                  `json:"allowedUnits"`
	Confidence       float64                   `json:"confidence"`
	Provenance       quantity.Provenance       `json:"provenance"`
	TimeKind         *quantity.TimeKind        `json:"timeKind,omitempty"`
	Warning          string                    `json:"warning,omitempty"`

	// Rule names the heuristic or stage that produced the classification.
	Rule string `json:"rule,omitempty"`
	// Locked marks guard results that later stages must not reinterpret.
	Locked bool `json:"locked,omitempty"`
}

// Unit returns the recommended unit or "".
func (fc FieldClassification) Unit() string {
	if fc.RecommendedUnit == nil {
		return ""
	}
	return *fc.RecommendedUnit
}

// IsCalendar reports whether the field holds calendar instants.
func (fc FieldClassification) IsCalendar() bool {
	return fc.PhysicalQuantity == quantity.Time && fc.TimeKind != nil && *fc.TimeKind == quantity.TimeCalendar
}

// Convertible reports whether a linear unit conversion may ever be applied.
func (fc FieldClassification) Convertible() bool {
	return fc.Encoding.Convertible() && fc.UnitRequired && !fc.IsCalendar()
}

// StrPtr returns a pointer to s, or nil for "".
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// TimeKindPtr returns a pointer to k.
func TimeKindPtr(k quantity.TimeKind) *quantity.TimeKind {
	return &k
}
