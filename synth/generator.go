// Package synth produces a classification for every column without any
// advisory input: rule tiers first, then value signals, then a low-confidence
// fallback.
package synth

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/qntx-astro/audit"
	"github.com/teranos/qntx-astro/heuristic"
	"github.com/teranos/qntx-astro/logger"
	q "github.com/teranos/qntx-astro/quantity"
	"github.com/teranos/qntx-astro/schema"
	"github.com/teranos/qntx-astro/signal"
)

const (
	explicitUnitConfidence = 0.65
	fallbackConfidence     = 0.2

	RuleCorrelation  = "value:correlation"
	RuleExplicitUnit = "explicit-unit"
	RuleValueSignal  = "value-signal"
	RuleFallback     = "fallback"
)

// Input is one dataset's worth of columns. SampleRows is row-major and
// indexed like Fields; short rows are tolerated.
type Input struct {
	RunID      string
	Dataset    string
	Fields     []string
	SampleRows [][]any
	RawHeader  string
	// UnitHints are per-column units supplied by the caller. They win over
	// units stated in RawHeader.
	UnitHints map[string]string
}

// Output holds the per-field classifications in input order.
type Output struct {
	Fields   map[string]schema.FieldClassification
	Order    []string
	Explicit ExplicitMetadata
	Audit    []audit.Entry
}

// Classifications returns the classifications in input order.
func (o Output) Classifications() []schema.FieldClassification {
	out := make([]schema.FieldClassification, 0, len(o.Order))
	for _, f := range o.Order {
		out = append(out, o.Fields[f])
	}
	return out
}

// Generator is safe for concurrent use.
type Generator struct {
	engine *heuristic.Engine
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewGenerator builds a generator over engine (nil uses the built-in catalog).
func NewGenerator(engine *heuristic.Engine, log *zap.SugaredLogger) *Generator {
	if engine == nil {
		engine = heuristic.NewEngine(nil)
	}
	return &Generator{
		engine: engine,
		logger: logger.OrNop(log),
		now:    time.Now,
	}
}

// Engine returns the rule engine the generator consults.
func (g *Generator) Engine() *heuristic.Engine {
	return g.engine
}

// Generate classifies every field. Duplicate names keep their first occurrence.
func (g *Generator) Generate(in Input) Output {
	out := Output{
		Fields:   make(map[string]schema.FieldClassification, len(in.Fields)),
		Explicit: DetectExplicitMetadata(in.RawHeader, in.Fields),
	}
	for field, u := range in.UnitHints {
		if u = strings.TrimSpace(u); u != "" && !q.IsSentinelUnit(u) {
			out.Explicit.Units[field] = q.NormalizeUnit(u)
		}
	}

	for i, field := range in.Fields {
		if _, dup := out.Fields[field]; dup {
			g.logger.Debugw("Duplicate field ignored", logger.FieldDataset, in.Dataset, logger.FieldField, field)
			continue
		}
		fc := g.classifyField(field, column(in.SampleRows, i), out.Explicit)
		out.Fields[field] = fc
		out.Order = append(out.Order, field)
		out.Audit = append(out.Audit, audit.Entry{
			RunID:      in.RunID,
			Dataset:    in.Dataset,
			Field:      field,
			Stage:      audit.StageSynthetic,
			Source:     fc.Provenance,
			Rule:       fc.Rule,
			Quantity:   fc.PhysicalQuantity,
			Confidence: fc.Confidence,
			Timestamp:  g.now().UTC(),
		})
		g.logger.Debugw("Synthetic classification",
			logger.FieldDataset, in.Dataset,
			logger.FieldField, field,
			logger.FieldQuantity, fc.PhysicalQuantity,
			logger.FieldProvenance, fc.Provenance,
			logger.FieldRule, fc.Rule,
			logger.FieldConfidence, fc.Confidence,
		)
	}
	return out
}

func (g *Generator) classifyField(field string, values []any, explicit ExplicitMetadata) schema.FieldClassification {
	if m := g.engine.Classify(field); m != nil {
		return m.Classification(field)
	}

	candidates := signal.InferCandidates(values)
	if len(candidates) > 0 && candidates[0].CorrelationLike {
		return schema.Enforce(schema.FieldClassification{
			Field:            field,
			PhysicalQuantity: q.Dimensionless,
			Encoding:         q.Linear,
			Confidence:       candidates[0].Confidence,
			Provenance:       q.FromGuard,
			Rule:             RuleCorrelation,
			Locked:           true,
		})
	}

	if unit, ok := explicit.Unit(field); ok {
		if qty, known := q.QuantityForUnit(unit); known {
			enc := q.Linear
			if qty == q.Brightness {
				enc = q.Logarithmic
			}
			return schema.Enforce(schema.FieldClassification{
				Field:            field,
				PhysicalQuantity: qty,
				Encoding:         enc,
				RecommendedUnit:  schema.StrPtr(unit),
				Confidence:       explicitUnitConfidence,
				Provenance:       q.FromName,
				Rule:             RuleExplicitUnit,
			})
		}
	}

	if v := signal.ValidateCandidates(g.engine.Hint(field), candidates); v != nil {
		fc := schema.FieldClassification{
			Field:            field,
			PhysicalQuantity: v.Quantity,
			Encoding:         v.Encoding,
			RecommendedUnit:  schema.StrPtr(v.Unit),
			Confidence:       v.Confidence,
			Provenance:       q.FromValue,
			Rule:             RuleValueSignal,
		}
		if v.TimeKind != "" {
			fc.TimeKind = schema.TimeKindPtr(v.TimeKind)
		}
		return schema.Enforce(fc)
	}

	return Fallback(field, values)
}

// Fallback is the classification of last resort: dimensionless linear for
// numeric or empty samples, dimensionless categorical for text.
func Fallback(field string, values []any) schema.FieldClassification {
	enc := q.Linear
	if hasSamples(values) && !signal.IsNumeric(values) {
		enc = q.Categorical
	}
	return schema.Enforce(schema.FieldClassification{
		Field:            field,
		PhysicalQuantity: q.Dimensionless,
		Encoding:         enc,
		Confidence:       fallbackConfidence,
		Provenance:       q.FromFallback,
		Rule:             RuleFallback,
	})
}

func hasSamples(values []any) bool {
	for _, v := range values {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return true
	}
	return false
}

func column(rows [][]any, i int) []any {
	var out []any
	for _, r := range rows {
		if i < len(r) {
			out = append(out, r[i])
		}
	}
	return out
}
