// Package merge reconciles advisory answers with the synthetic classification.
//
// The advisory service is a hint. Confident synthetic results are kept, an
// advisory "don't know" never erases a reasonable heuristic, and domain
// dictionary entries plus the vocabulary rules are re-applied last so no
// advisory answer can leave a field in a physically wrong state.
package merge

import (
	"time"

	"go.uber.org/zap"

	"github.com/teranos/qntx-astro/ai/advisory"
	"github.com/teranos/qntx-astro/audit"
	"github.com/teranos/qntx-astro/heuristic"
	"github.com/teranos/qntx-astro/logger"
	q "github.com/teranos/qntx-astro/quantity"
	"github.com/teranos/qntx-astro/schema"
)

const (
	DefaultHigh   = 0.7
	DefaultMedium = 0.4

	ruleAdvisory = "advisory"
)

// Thresholds are the synthetic confidence tiers.
type Thresholds struct {
	High   float64
	Medium float64
}

// valid reports whether the tiers are ordered inside [0,1].
func (t Thresholds) valid() bool {
	return t.Medium >= 0 && t.Medium <= t.High && t.High <= 1
}

// Resolver is safe for concurrent use.
type Resolver struct {
	thresholds Thresholds
	engine     *heuristic.Engine
	logger     *zap.SugaredLogger
	now        func() time.Time
}

// NewResolver builds a resolver. Unordered or zero thresholds fall back to
// 0.7 and 0.4; a nil engine uses the built-in dictionaries.
func NewResolver(engine *heuristic.Engine, t Thresholds, log *zap.SugaredLogger) *Resolver {
	if (t.High == 0 && t.Medium == 0) || !t.valid() {
		t = Thresholds{High: DefaultHigh, Medium: DefaultMedium}
	}
	if engine == nil {
		engine = heuristic.NewEngine(nil)
	}
	return &Resolver{
		thresholds: t,
		engine:     engine,
		logger:     logger.OrNop(log),
		now:        time.Now,
	}
}

// Thresholds returns the tiers in use.
func (r *Resolver) Thresholds() Thresholds {
	return r.thresholds
}

// Merge picks between adv (nil when the advisory service gave nothing) and
// synthetic, then applies the domain override and Enforce.
func (r *Resolver) Merge(adv *advisory.Classification, synthetic schema.FieldClassification) schema.FieldClassification {
	fc := r.pick(adv, synthetic)

	if m, ok := r.engine.DomainOverride(synthetic.Field); ok {
		if fc.Provenance != q.FromDomain || fc.PhysicalQuantity != m.Quantity {
			r.logger.Debugw("Domain override applied",
				logger.FieldField, synthetic.Field,
				logger.FieldRule, m.Rule,
				"replaced", fc.Provenance,
			)
		}
		fc = m.Classification(synthetic.Field)
	}
	return schema.Enforce(fc)
}

func (r *Resolver) pick(adv *advisory.Classification, synthetic schema.FieldClassification) schema.FieldClassification {
	if adv == nil || synthetic.Locked || synthetic.Confidence >= r.thresholds.High {
		return synthetic
	}
	if synthetic.Confidence >= r.thresholds.Medium &&
		adv.Quantity == q.Dimensionless &&
		synthetic.PhysicalQuantity != q.Dimensionless {
		return synthetic
	}
	return fromAdvisory(synthetic.Field, *adv)
}

func fromAdvisory(field string, adv advisory.Classification) schema.FieldClassification {
	fc := schema.FieldClassification{
		Field:            field,
		PhysicalQuantity: adv.Quantity,
		Encoding:         adv.Encoding,
		UnitRequired:     adv.UnitRequired,
		RecommendedUnit:  schema.StrPtr(adv.RecommendedUnit),
		Confidence:       adv.Confidence,
		Provenance:       q.FromAdvisory,
		Rule:             ruleAdvisory,
	}
	if adv.TimeKind != "" {
		fc.TimeKind = schema.TimeKindPtr(adv.TimeKind)
	}
	return fc
}

// Result is a merged dataset.
type Result struct {
	Fields []schema.FieldClassification
	Audit  []audit.Entry
	// Advised counts fields whose final value came from the advisory service.
	Advised int
}

// MergeAll merges every synthetic classification, in order, with its
// advisory answer if one exists, and records a merge audit entry per field.
func (r *Resolver) MergeAll(runID, dataset string, synthetic []schema.FieldClassification, adv map[string]advisory.Classification) Result {
	res := Result{Fields: make([]schema.FieldClassification, 0, len(synthetic))}
	for _, s := range synthetic {
		var a *advisory.Classification
		if c, ok := adv[s.Field]; ok {
			a = &c
		}
		fc := r.Merge(a, s)
		if fc.Provenance == q.FromAdvisory {
			res.Advised++
		}
		res.Fields = append(res.Fields, fc)
		res.Audit = append(res.Audit, audit.Entry{
			RunID:      runID,
			Dataset:    dataset,
			Field:      fc.Field,
			Stage:      audit.StageMerge,
			Source:     fc.Provenance,
			Rule:       fc.Rule,
			Quantity:   fc.PhysicalQuantity,
			Confidence: fc.Confidence,
			Timestamp:  r.now().UTC(),
		})
	}
	return res
}
