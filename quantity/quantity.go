// Package quantity holds the closed vocabularies every classification is
// expressed in: physical quantity, encoding, time kind and provenance, plus the
// canonical unit table for each quantity.
//
// Values outside a vocabulary never survive parsing. An unknown quantity
// (including the advisory service's "other") becomes Dimensionless and an
// unknown encoding becomes Linear.
package quantity

import "strings"

// PhysicalQuantity is the dimension a column measures.
type PhysicalQuantity string

const (
	Length        PhysicalQuantity = "length"
	Mass          PhysicalQuantity = "mass"
	Time          PhysicalQuantity = "time"
	Temperature   PhysicalQuantity = "temperature"
	Angle         PhysicalQuantity = "angle"
	Distance      PhysicalQuantity = "distance"
	Brightness    PhysicalQuantity = "brightness"
	Count         PhysicalQuantity = "count"
	Dimensionless PhysicalQuantity = "dimensionless"
	Acceleration  PhysicalQuantity = "acceleration"
	Velocity      PhysicalQuantity = "velocity"
	Frequency     PhysicalQuantity = "frequency"
	Flux          PhysicalQuantity = "flux"
)

// All lists the vocabulary in a stable order (used in prompts and validation).
var All = []PhysicalQuantity{
	Length, Mass, Time, Temperature, Angle, Distance, Brightness,
	Count, Dimensionless, Acceleration, Velocity, Frequency, Flux,
}

// ParseQuantity maps s onto the vocabulary. Anything unrecognized collapses to Dimensionless.
func ParseQuantity(s string) PhysicalQuantity {
	q := PhysicalQuantity(strings.ToLower(strings.TrimSpace(s)))
	if q.Valid() {
		return q
	}
	return Dimensionless
}

// Valid reports whether q is a member of the vocabulary.
func (q PhysicalQuantity) Valid() bool {
	for _, known := range All {
		if q == known {
			return true
		}
	}
	return false
}

// Unitless reports whether q never carries a unit.
func (q PhysicalQuantity) Unitless() bool {
	return q == Count || q == Dimensionless
}

func (q PhysicalQuantity) String() string { return string(q) }

// Encoding describes how values of a quantity are represented.
type Encoding string

const (
	Linear      Encoding = "linear"
	Logarithmic Encoding = "logarithmic"
	Sexagesimal Encoding = "sexagesimal"
	Categorical Encoding = "categorical"
	Identifier  Encoding = "identifier"
)

// Encodings lists the encoding vocabulary in a stable order.
var Encodings = []Encoding{Linear, Logarithmic, Sexagesimal, Categorical, Identifier}

// ParseEncoding maps s onto the vocabulary; unknown values become Linear.
// "log" and "sexagesimal"-like abbreviations are accepted.
func ParseEncoding(s string) Encoding {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "logarithmic", "log", "log10":
		return Logarithmic
	case "sexagesimal", "hms", "dms":
		return Sexagesimal
	case "categorical", "category", "text":
		return Categorical
	case "identifier", "id":
		return Identifier
	default:
		return Linear
	}
}

// Convertible reports whether values in this encoding may be unit-converted.
func (e Encoding) Convertible() bool {
	return e == Linear
}

func (e Encoding) String() string { return string(e) }

// TimeKind distinguishes durations from calendar instants for the time quantity.
type TimeKind string

const (
	TimeQuantity TimeKind = "quantity"
	TimeCalendar TimeKind = "calendar"
)

// ParseTimeKind returns the kind and whether s named one.
func ParseTimeKind(s string) (TimeKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quantity", "duration":
		return TimeQuantity, true
	case "calendar", "date", "epoch":
		return TimeCalendar, true
	default:
		return "", false
	}
}

// Provenance records which stage produced a classification.
type Provenance string

const (
	FromGuard    Provenance = "guard"
	FromDomain   Provenance = "domain"
	FromName     Provenance = "name"
	FromValue    Provenance = "value"
	FromAdvisory Provenance = "advisory"
	FromFallback Provenance = "fallback"
)
