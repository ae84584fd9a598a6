// Package signal infers weak quantity candidates from sample values and
// gates them against the name-side classification.
//
// A value candidate never decides on its own except for correlation-shaped
// data: it either agrees with a name candidate and boosts it, or it is
// discarded.
package signal

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/teranos/qntx-astro/heuristic"
	q "github.com/teranos/qntx-astro/quantity"
)

const (
	correlationConfidence = 1.0
	sexagesimalConfidence = 0.5
	calendarConfidence    = 0.4
	angleConfidence       = 0.4
	countConfidence       = 0.3

	agreementBoost   = 0.2
	agreementCeiling = 0.95
)

// Candidate is a quantity guess derived from values.
type Candidate struct {
	Quantity        q.PhysicalQuantity
	Encoding        q.Encoding
	Unit            string
	TimeKind        q.TimeKind
	Confidence      float64
	Reason          string
	CorrelationLike bool
}

// missing values that never count as samples
var missing = map[string]bool{
	"":     true,
	"nan":  true,
	"null": true,
	"none": true,
	"na":   true,
	"n/a":  true,
	"--":   true,
	"-":    true,
}

// IsMissing reports whether v is nil, blank, or a placeholder such as "NaN" or "--".
func IsMissing(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return missing[strings.ToLower(strings.TrimSpace(t))]
	case float64:
		return math.IsNaN(t)
	case float32:
		return math.IsNaN(float64(t))
	}
	return false
}

type samples struct {
	numbers []float64
	texts   []string
}

func collect(values []any) samples {
	var s samples
	for _, v := range values {
		if v == nil {
			continue
		}
		if str, ok := v.(string); ok {
			str = strings.TrimSpace(str)
			if missing[strings.ToLower(str)] {
				continue
			}
			if f, ok := toFloat(str); ok {
				s.numbers = append(s.numbers, f)
			} else {
				s.texts = append(s.texts, str)
			}
			continue
		}
		if f, ok := toFloat(v); ok {
			s.numbers = append(s.numbers, f)
			continue
		}
		if str := strings.TrimSpace(cast.ToString(v)); !missing[strings.ToLower(str)] {
			s.texts = append(s.texts, str)
		}
	}
	return s
}

// ToFloat coerces a sample value to a finite float.
// Booleans are not numbers here even though cast would map them to 0 and 1.
func ToFloat(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if missing[strings.ToLower(s)] {
			return 0, false
		}
		return toFloat(s)
	}
	return toFloat(v)
}

func toFloat(v any) (float64, bool) {
	switch v.(type) {
	case nil, bool:
		return 0, false
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// IsNumeric reports whether most non-empty samples are numbers.
func IsNumeric(values []any) bool {
	s := collect(values)
	return len(s.numbers) > 0 && len(s.numbers) >= len(s.texts)
}

// InferFromValues derives the strongest candidate from sample values, or nil
// when the values carry no usable signal.
func InferFromValues(values []any) *Candidate {
	if cs := InferCandidates(values); len(cs) > 0 {
		return cs[0]
	}
	return nil
}

// InferCandidates returns every candidate the values are shaped like,
// strongest first. Integers in [0, 360] are both counts and degrees; the
// name decides between them in ValidateCandidates.
func InferCandidates(values []any) []*Candidate {
	s := collect(values)
	if len(s.numbers) < len(s.texts) {
		if c := inferText(s.texts); c != nil {
			return []*Candidate{c}
		}
		return nil
	}
	if len(s.numbers) == 0 {
		return nil
	}
	return inferNumeric(s.numbers)
}

func inferNumeric(nums []float64) []*Candidate {
	if correlationShaped(nums) {
		return []*Candidate{{
			Quantity:        q.Dimensionless,
			Encoding:        q.Linear,
			Confidence:      correlationConfidence,
			Reason:          "values confined to [-1, 1]",
			CorrelationLike: true,
		}}
	}

	lo, hi := nums[0], nums[0]
	integers := true
	for _, v := range nums {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
		if v != math.Trunc(v) {
			integers = false
		}
	}

	var out []*Candidate
	if integers && lo >= 1000 && hi <= 2100 {
		out = append(out, &Candidate{
			Quantity:   q.Time,
			Encoding:   q.Linear,
			TimeKind:   q.TimeCalendar,
			Confidence: calendarConfidence,
			Reason:     "year-like integers",
		})
	}
	if lo >= -90 && hi <= 90 && lo < 0 {
		out = append(out, &Candidate{
			Quantity:   q.Angle,
			Encoding:   q.Linear,
			Unit:       "deg",
			Confidence: angleConfidence,
			Reason:     "signed values within [-90, 90]",
		})
	}
	if integers && lo >= 0 {
		out = append(out, &Candidate{
			Quantity:   q.Count,
			Encoding:   q.Linear,
			Confidence: countConfidence,
			Reason:     "non-negative integers",
		})
	}
	if lo >= 0 && hi <= 360 {
		out = append(out, &Candidate{
			Quantity:   q.Angle,
			Encoding:   q.Linear,
			Unit:       "deg",
			Confidence: angleConfidence,
			Reason:     "values within [0, 360]",
		})
	}
	return out
}

// correlationShaped: all values in [-1, 1], at least two strictly inside
// once exact +-1 are ignored, and not all zero.
func correlationShaped(nums []float64) bool {
	if len(nums) < 2 {
		return false
	}
	interior, nonZero := 0, false
	for _, v := range nums {
		if v < -1 || v > 1 {
			return false
		}
		if math.Abs(v) == 1 {
			continue
		}
		interior++
		if v != 0 {
			nonZero = true
		}
	}
	return interior >= 2 && nonZero
}

func inferText(texts []string) *Candidate {
	if len(texts) == 0 {
		return nil
	}
	for _, t := range texts {
		if !sexagesimalRe.MatchString(t) {
			return nil
		}
	}
	return &Candidate{
		Quantity:   q.Angle,
		Encoding:   q.Sexagesimal,
		Confidence: sexagesimalConfidence,
		Reason:     "sexagesimal notation",
	}
}

// Validate gates a value candidate against the name-side match. Correlation
// shaped values stand alone; otherwise the candidate survives only when it
// agrees with name, and then carries a boosted confidence.
func Validate(name *heuristic.Match, c *Candidate) *Candidate {
	if c == nil {
		return nil
	}
	if c.CorrelationLike {
		out := *c
		return &out
	}
	if name == nil || name.Quantity != c.Quantity {
		return nil
	}
	out := *c
	out.Confidence = math.Min(agreementCeiling, math.Max(name.Confidence, c.Confidence)+agreementBoost)
	if name.Unit != "" {
		out.Unit = name.Unit
	}
	if out.Encoding == q.Linear && name.Encoding != q.Linear {
		out.Encoding = name.Encoding
	}
	if name.TimeKind != "" {
		out.TimeKind = name.TimeKind
	}
	out.Reason = c.Reason + "; agrees with " + name.Rule
	return &out
}

// ValidateCandidates returns the first candidate that survives Validate
// against name, or nil when none does.
func ValidateCandidates(name *heuristic.Match, cs []*Candidate) *Candidate {
	for _, c := range cs {
		if v := Validate(name, c); v != nil {
			return v
		}
	}
	return nil
}

var sexagesimalRe = regexp.MustCompile(
	`^[+-]?\d{1,3}(?:(?::|\s+)\d{1,2}(?:(?::|\s+)\d{1,2}(?:\.\d+)?)|[hd°]\s*\d{1,2}\s*[m']\s*\d{1,2}(?:\.\d+)?\s*(?:s|")?)$`)

var sexagesimalPartsRe = regexp.MustCompile(
	`^([+-]?)(\d{1,3})(?::|\s+|[hd°]\s*)(\d{1,2})(?::|\s+|\s*[m']\s*)(\d{1,2}(?:\.\d+)?)\s*(?:s|")?$`)

// ParseSexagesimal converts "12:34:56.7", "-12 34 56" or "12h34m56s" to decimal
// degrees. With hours set the leading component is an hour angle.
func ParseSexagesimal(s string, hours bool) (float64, bool) {
	m := sexagesimalPartsRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	d, _ := strconv.ParseFloat(m[2], 64)
	mins, _ := strconv.ParseFloat(m[3], 64)
	secs, _ := strconv.ParseFloat(m[4], 64)
	if mins >= 60 || secs >= 60 {
		return 0, false
	}
	v := d + mins/60 + secs/3600
	if hours {
		v *= 15
	}
	if m[1] == "-" {
		v = -v
	}
	return v, true
}
