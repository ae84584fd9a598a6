// Package heuristic is the deterministic rule engine. Column names are matched
// against three data-driven tiers in a fixed order:
//
//	guard  -> columns that are never measurements (ids, flags, counts, statistics)
//	domain -> authoritative survey dictionaries from package catalog
//	name   -> generic naming conventions
//
// The first tier that matches decides; within a tier the first rule wins.
package heuristic

import (
	"regexp"
	"strings"

	"github.com/teranos/qntx-astro/catalog"
	q "github.com/teranos/qntx-astro/quantity"
	"github.com/teranos/qntx-astro/schema"
)

// Tier identifies a rule table.
type Tier int

const (
	TierGuard Tier = iota
	TierDomain
	TierName
)

func (t Tier) String() string {
	switch t {
	case TierGuard:
		return "guard"
	case TierDomain:
		return "domain"
	case TierName:
		return "name"
	default:
		return "unknown"
	}
}

// Provenance maps a tier onto the provenance vocabulary.
func (t Tier) Provenance() q.Provenance {
	switch t {
	case TierGuard:
		return q.FromGuard
	case TierDomain:
		return q.FromDomain
	default:
		return q.FromName
	}
}

// Match is the outcome of a successful rule evaluation.
type Match struct {
	Rule       string
	Tier       Tier
	Quantity   q.PhysicalQuantity
	Encoding   q.Encoding
	Unit       string
	TimeKind   q.TimeKind
	Confidence float64
	Locked     bool
	Warning    string
}

// Provenance returns the provenance tag for the tier that matched.
func (m *Match) Provenance() q.Provenance {
	return m.Tier.Provenance()
}

// Classification turns the match into an enforced FieldClassification.
func (m *Match) Classification(field string) schema.FieldClassification {
	fc := schema.FieldClassification{
		Field:            field,
		PhysicalQuantity: m.Quantity,
		Encoding:         m.Encoding,
		RecommendedUnit:  schema.StrPtr(m.Unit),
		Confidence:       m.Confidence,
		Provenance:       m.Provenance(),
		Warning:          m.Warning,
		Rule:             m.Rule,
		Locked:           m.Locked,
	}
	if m.TimeKind != "" {
		fc.TimeKind = schema.TimeKindPtr(m.TimeKind)
	}
	return schema.Enforce(fc)
}

// Engine evaluates the tiers. It is safe for concurrent use.
type Engine struct {
	catalog *catalog.Catalog
	guards  []Rule
	names   []Rule
	hints   []Rule
}

// NewEngine builds an engine over the given catalog (nil uses the built-in dictionaries).
func NewEngine(c *catalog.Catalog) *Engine {
	if c == nil {
		c = catalog.Default()
	}
	return &Engine{
		catalog: c,
		guards:  GuardRules,
		names:   NameRules,
		hints:   HintRules,
	}
}

// Catalog returns the domain dictionaries the engine consults.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Classify evaluates guard, domain and name tiers in that order.
func (e *Engine) Classify(field string) *Match {
	return e.classify(field, 0)
}

// ClassifyTier evaluates a single tier in isolation.
func (e *Engine) ClassifyTier(t Tier, field string) *Match {
	name, bracketUnit := SplitName(field)
	if name == "" {
		return nil
	}
	switch t {
	case TierGuard:
		return e.matchTable(TierGuard, e.guards, name, bracketUnit, 0)
	case TierDomain:
		return e.matchDomain(name)
	case TierName:
		return e.matchTable(TierName, e.names, name, bracketUnit, 0)
	}
	return nil
}

// DomainOverride reports the authoritative dictionary entry for field, if any.
func (e *Engine) DomainOverride(field string) (*Match, bool) {
	m := e.ClassifyTier(TierDomain, field)
	return m, m != nil
}

// Hint returns a weak name-side candidate for cross-checking value signals.
// A full rule match is returned as-is; otherwise the keyword hint table is
// consulted and its result carries at most hint confidence.
func (e *Engine) Hint(field string) *Match {
	if m := e.Classify(field); m != nil {
		return m
	}
	name, bracketUnit := SplitName(field)
	if name == "" {
		return nil
	}
	m := e.matchTable(TierName, e.hints, name, bracketUnit, 0)
	if m != nil {
		m.Confidence = hintConfidence
	}
	return m
}

// maxInheritDepth bounds error-of-error chains such as "x_err_err".
const maxInheritDepth = 2

func (e *Engine) classify(field string, depth int) *Match {
	name, bracketUnit := SplitName(field)
	if name == "" {
		return nil
	}
	if m := e.matchTable(TierGuard, e.guards, name, bracketUnit, depth); m != nil {
		return m
	}
	if m := e.matchDomain(name); m != nil {
		return m
	}
	return e.matchTable(TierName, e.names, name, bracketUnit, depth)
}

func (e *Engine) matchTable(t Tier, rules []Rule, name, bracketUnit string, depth int) *Match {
	for i := range rules {
		r := &rules[i]
		if r.Inherit {
			if m := e.inherit(r, name, depth); m != nil {
				return m
			}
			continue
		}
		if !r.Pattern.MatchString(name) {
			continue
		}
		m := &Match{
			Rule:       r.Name,
			Tier:       t,
			Quantity:   r.Quantity,
			Encoding:   r.Encoding,
			Unit:       r.Unit,
			TimeKind:   r.TimeKind,
			Confidence: r.Confidence,
			Locked:     r.Locked,
			Warning:    r.Warning,
		}
		if t == TierGuard {
			m.Confidence = guardConfidence
			m.Locked = true
		}
		if r.UnitFromSuffix {
			if u := unitFromName(name, bracketUnit, r.Quantity); u != "" {
				m.Unit = u
			}
		}
		return m
	}
	return nil
}

func (e *Engine) inherit(r *Rule, name string, depth int) *Match {
	if depth >= maxInheritDepth {
		return nil
	}
	sub := r.Pattern.FindStringSubmatch(name)
	if sub == nil {
		return nil
	}
	base := sub[r.Pattern.SubexpIndex("base")]
	m := e.classify(base, depth+1)
	if m == nil {
		return nil
	}
	out := *m
	out.Rule = "error-of:" + m.Rule
	out.Tier = TierName
	out.Confidence = m.Confidence * inheritMultiplier
	out.Locked = false
	return &out
}

func (e *Engine) matchDomain(name string) *Match {
	hit, ok := e.catalog.Lookup(name)
	if !ok {
		return nil
	}
	en := hit.Entry
	return &Match{
		Rule:       "domain:" + hit.Dictionary,
		Tier:       TierDomain,
		Quantity:   en.Quantity,
		Encoding:   en.Encoding,
		Unit:       en.Unit,
		TimeKind:   en.TimeKind,
		Confidence: 1.0,
		Locked:     true,
		Warning:    en.Warning,
	}
}

var bracketUnitRe = regexp.MustCompile(`\s*[\[\(]([^\]\)]*)[\]\)]\s*$`)

// SplitName normalizes a header and separates a trailing bracketed unit:
// "Dist [kpc]" -> ("dist", "kpc").
func SplitName(raw string) (name, unit string) {
	raw = strings.TrimSpace(raw)
	if m := bracketUnitRe.FindStringSubmatchIndex(raw); m != nil {
		unit = strings.TrimSpace(raw[m[2]:m[3]])
		raw = raw[:m[0]]
	}
	return strings.Trim(catalog.NormalizeName(raw), "_"), unit
}

// unitFromName reads a unit written into the column name, preferring a
// bracketed unit over a trailing "_unit" token. Units outside qty's table are ignored.
func unitFromName(name, bracketUnit string, qty q.PhysicalQuantity) string {
	candidates := []string{bracketUnit}
	if i := strings.LastIndexByte(name, '_'); i >= 0 && i < len(name)-1 {
		candidates = append(candidates, name[i+1:])
	}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if u := quantityAlias(strings.ToLower(c), qty); u != "" {
			return u
		}
		if u := q.NormalizeUnit(c); q.Allowed(qty, u) {
			return u
		}
	}
	return ""
}

// quantityAlias resolves suffixes whose meaning depends on the quantity:
// "h" is an hour angle on a coordinate but an hour on a duration.
func quantityAlias(s string, qty q.PhysicalQuantity) string {
	switch qty {
	case q.Angle:
		switch s {
		case "h", "hr", "hrs", "hour", "hours":
			return "hourangle"
		}
	case q.Time:
		switch s {
		case "hr", "hrs", "hour", "hours":
			return "h"
		case "d", "days":
			return "day"
		}
	case q.Length, q.Distance:
		switch s {
		case "au":
			return "AU"
		}
	}
	return ""
}
