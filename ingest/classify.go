// Package ingest is the caller-facing classification API: one request per
// uploaded dataset, one Result back, and never an error.
package ingest

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/qntx-astro/ai/advisory"
	"github.com/teranos/qntx-astro/audit"
	"github.com/teranos/qntx-astro/convert"
	"github.com/teranos/qntx-astro/db"
	"github.com/teranos/qntx-astro/heuristic"
	"github.com/teranos/qntx-astro/logger"
	"github.com/teranos/qntx-astro/merge"
	q "github.com/teranos/qntx-astro/quantity"
	"github.com/teranos/qntx-astro/schema"
	"github.com/teranos/qntx-astro/synth"
)

// MaxSamples bounds how many sample values per column reach the value-signal
// validator. The advisory prompt shows at most advisory.MaxSampleValues.
const MaxSamples = 1000

// Column is one header of the uploaded file with a few of its values.
type Column struct {
	Header   string `json:"header"`
	Samples  []any  `json:"samples,omitempty"`
	UnitHint string `json:"unitHint,omitempty"`
}

// Request describes one dataset to classify. RawHeader is any preamble text
// of the file (comment lines, FITS cards, VOTable fields).
type Request struct {
	Dataset   string   `json:"dataset"`
	FileType  string   `json:"fileType,omitempty"`
	Columns   []Column `json:"columns"`
	RawHeader string   `json:"rawHeader,omitempty"`
}

// Source says whether any advisory answer contributed to a Result.
type Source string

const (
	SourceLLM      Source = "llm"
	SourceFallback Source = "fallback"
)

// Result is the frozen classification of a dataset.
type Result struct {
	RunID    string                       `json:"runId"`
	Dataset  string                       `json:"dataset"`
	FileType string                       `json:"fileType,omitempty"`
	Fields   []schema.FieldClassification `json:"fields"`
	// UsedFallback is true when at least one field got no advisory answer.
	UsedFallback bool   `json:"usedFallback"`
	Source       Source `json:"source"`
	// DetectedUnits are the units the upload itself states, per field.
	DetectedUnits  map[string]string `json:"detectedUnits"`
	Explicit       bool              `json:"explicitMetadata"`
	ExplicitSource string            `json:"explicitSource,omitempty"`
	Audit          []audit.Entry     `json:"audit,omitempty"`
}

// Field returns the classification for name.
func (r Result) Field(name string) (schema.FieldClassification, bool) {
	for _, fc := range r.Fields {
		if fc.Field == name {
			return fc, true
		}
	}
	return schema.FieldClassification{}, false
}

// SchemaStore persists the finalized per-field schema of a dataset.
type SchemaStore interface {
	SaveSchema(ctx context.Context, dataset, runID string, fields []schema.FieldClassification) error
}

// Deps are the Classifier's collaborators. Only Generator and Resolver have
// meaningful defaults; a nil Gateway means every run is a fallback run.
type Deps struct {
	Generator *synth.Generator
	Gateway   *advisory.Gateway
	Resolver  *merge.Resolver
	// Store, when set, receives every audit entry. If it also implements
	// SchemaStore the merged schema is saved as well.
	Store  audit.Store
	Logger *zap.SugaredLogger
}

// Classifier runs the whole pipeline. It is safe for concurrent use.
type Classifier struct {
	generator *synth.Generator
	gateway   *advisory.Gateway
	resolver  *merge.Resolver
	store     audit.Store
	logger    *zap.SugaredLogger
	newRunID  func() string
}

// NewClassifier wires a classifier. Generator and Resolver default to the
// built-in dictionaries.
func NewClassifier(d Deps) *Classifier {
	log := logger.OrNop(d.Logger)
	if d.Generator == nil {
		d.Generator = synth.NewGenerator(nil, log)
	}
	if d.Resolver == nil {
		d.Resolver = merge.NewResolver(d.Generator.Engine(), merge.Thresholds{}, log)
	}
	return &Classifier{
		generator: d.Generator,
		gateway:   d.Gateway,
		resolver:  d.Resolver,
		store:     d.Store,
		logger:    log,
		newRunID:  uuid.NewString,
	}
}

// Classify classifies every column of req. hc is the caller's advisory
// health cache and may be nil. Advisory failures, cancellation and store
// errors are logged and degrade the result; they are never returned.
func (c *Classifier) Classify(ctx context.Context, req Request, hc *advisory.HealthCache) Result {
	runID := c.newRunID()
	ctx = logger.WithDataset(logger.WithRunID(ctx, runID), req.Dataset)
	log := logger.FromContext(ctx, c.logger)

	in := c.input(runID, req)
	syn := c.generator.Generate(in)
	synthetic := syn.Classifications()

	report := c.advise(ctx, log, req, syn, hc)
	merged := c.resolver.MergeAll(runID, req.Dataset, synthetic, report.Results)

	res := Result{
		RunID:          runID,
		Dataset:        req.Dataset,
		FileType:       req.FileType,
		Fields:         merged.Fields,
		UsedFallback:   report.UsedFallback(),
		Source:         SourceFallback,
		DetectedUnits:  detectedUnits(syn),
		Explicit:       syn.Explicit.Present,
		ExplicitSource: syn.Explicit.Source,
		Audit:          append(syn.Audit, merged.Audit...),
	}
	if len(report.Results) > 0 {
		res.Source = SourceLLM
	}

	c.persist(ctx, log, res)

	log.Infow("Dataset classified",
		logger.FieldCount, len(res.Fields),
		"advised", merged.Advised,
		"used_fallback", res.UsedFallback,
		"source", res.Source,
	)
	return res
}

func (c *Classifier) input(runID string, req Request) synth.Input {
	in := synth.Input{
		RunID:     runID,
		Dataset:   req.Dataset,
		Fields:    make([]string, len(req.Columns)),
		RawHeader: req.RawHeader,
		UnitHints: map[string]string{},
	}
	for i, col := range req.Columns {
		in.Fields[i] = strings.TrimSpace(col.Header)
		if col.UnitHint != "" {
			if _, seen := in.UnitHints[in.Fields[i]]; !seen {
				in.UnitHints[in.Fields[i]] = col.UnitHint
			}
		}
	}
	rows := 0
	for _, col := range req.Columns {
		rows = max(rows, len(col.Samples))
	}
	rows = min(rows, MaxSamples)
	for r := 0; r < rows; r++ {
		row := make([]any, len(req.Columns))
		for i, col := range req.Columns {
			if r < len(col.Samples) {
				row[i] = col.Samples[r]
			}
		}
		in.SampleRows = append(in.SampleRows, row)
	}
	return in
}

// advise asks the advisory service about every field. Without a usable
// service every field is reported as fallback.
func (c *Classifier) advise(ctx context.Context, log *zap.SugaredLogger, req Request, syn synth.Output, hc *advisory.HealthCache) advisory.BatchReport {
	fallback := advisory.BatchReport{Results: map[string]advisory.Classification{}, Fallback: syn.Order}
	if len(syn.Order) == 0 {
		return advisory.BatchReport{Results: map[string]advisory.Classification{}}
	}
	if ctx.Err() != nil {
		log.Infow("Classification canceled before advisory step")
		return fallback
	}
	if !c.gateway.Enabled() {
		return fallback
	}
	if !c.gateway.Available(ctx, hc) {
		log.Warnw("Advisory service unavailable, using synthetic classification")
		return fallback
	}

	samples := make(map[string][]any, len(req.Columns))
	for _, col := range req.Columns {
		name := strings.TrimSpace(col.Header)
		if _, seen := samples[name]; !seen {
			samples[name] = col.Samples
		}
	}
	inputs := make([]advisory.FieldInput, 0, len(syn.Order))
	for _, f := range syn.Order {
		inputs = append(inputs, advisory.FieldInput{
			Name:        f,
			Samples:     samples[f],
			Unit:        syn.Explicit.Units[f],
			Description: syn.Explicit.Descriptions[f],
		})
	}
	return c.gateway.ClassifyAll(ctx, inputs, advisory.Hints{
		Synthetic:        syn.Fields,
		ExplicitMetadata: syn.Explicit.Present,
	})
}

// persist writes audit entries and the schema. It runs even after the
// caller canceled so that partial results stay traceable.
func (c *Classifier) persist(ctx context.Context, log *zap.SugaredLogger, res Result) {
	if c.store == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := c.store.Record(ctx, res.Audit); err != nil {
		logPersistError(log, "Failed to record audit entries", err)
	}
	if s, ok := c.store.(SchemaStore); ok {
		if err := s.SaveSchema(ctx, res.Dataset, res.RunID, res.Fields); err != nil {
			logPersistError(log, "Failed to save dataset schema", err)
		}
	}
}

// logPersistError reports a failed write. A closed database only happens
// while the server drains, so it is logged at debug level.
func logPersistError(log *zap.SugaredLogger, msg string, err error) {
	if db.IsDatabaseClosed(err) {
		log.Debugw(msg+", database closed", logger.FieldError, err.Error())
		return
	}
	log.Errorw(msg, logger.FieldError, err.Error())
}

// ConversionSpecs builds the unit transforms for the caller's selections.
func (c *Classifier) ConversionSpecs(res Result, userSelected map[string]string) []convert.ConversionSpec {
	return convert.BuildConversionSpecs(res.Fields, userSelected, res.DetectedUnits)
}

// detectedUnits merges document-stated units (unit hints already applied)
// with units written into the header itself, as in "dist [pc]".
func detectedUnits(syn synth.Output) map[string]string {
	out := make(map[string]string, len(syn.Order))
	for _, f := range syn.Order {
		if u, ok := syn.Explicit.Unit(f); ok {
			out[f] = u
			continue
		}
		if _, u := heuristic.SplitName(f); u != "" && !q.IsSentinelUnit(u) {
			out[f] = q.NormalizeUnit(u)
		}
	}
	return out
}
