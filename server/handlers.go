package server

import (
	"net/http"
	"strings"

	"github.com/spf13/cast"

	"github.com/teranos/qntx-astro/ai/advisory"
	"github.com/teranos/qntx-astro/audit"
	"github.com/teranos/qntx-astro/convert"
	"github.com/teranos/qntx-astro/errors"
	"github.com/teranos/qntx-astro/ingest"
	"github.com/teranos/qntx-astro/logger"
	q "github.com/teranos/qntx-astro/quantity"
	"github.com/teranos/qntx-astro/schema"
	"github.com/teranos/qntx-astro/version"
)

// maxAuditLimit caps GET /api/audit listings
const maxAuditLimit = 1000

// HandleHealth reports build info, server state and the cached advisory health
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	info := version.Get()
	hc := s.healthSnapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"state":      s.getState().String(),
		"version":    info.Version,
		"commit":     info.CommitHash,
		"build_time": info.BuildTime,
		"advisory": map[string]interface{}{
			"enabled": s.app.Gateway.Enabled(),
			"model":   s.app.Config.Advisory.Model,
			"health":  hc,
		},
		"audit": s.app.Store != nil,
	})
}

// HandleClassify classifies the columns of one dataset. The response is
// always 200 once the request parses: advisory failures show up as
// usedFallback, never as an error status.
func (s *Server) HandleClassify(w http.ResponseWriter, r *http.Request) {
	var req ingest.Request
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	if strings.TrimSpace(req.Dataset) == "" {
		writeError(w, http.StatusBadRequest, "dataset is required")
		return
	}

	hc := s.healthSnapshot()
	res := s.app.Classifier.Classify(r.Context(), req, &hc)
	s.storeHealth(hc)

	if !cast.ToBool(r.URL.Query().Get("audit")) {
		res.Audit = nil
	}
	writeJSON(w, http.StatusOK, res)
}

// conversionsRequest carries a classification result and the user's unit picks
type conversionsRequest struct {
	Fields        []schema.FieldClassification `json:"fields"`
	DetectedUnits map[string]string            `json:"detectedUnits"`
	Selected      map[string]string            `json:"selected"`
}

// HandleConversions builds the conversion specs for the selected units
func (s *Server) HandleConversions(w http.ResponseWriter, r *http.Request) {
	var req conversionsRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	fields := make([]schema.FieldClassification, len(req.Fields))
	for i, fc := range req.Fields {
		fields[i] = schema.Enforce(fc)
	}
	specs := convert.BuildConversionSpecs(fields, req.Selected, req.DetectedUnits)
	if specs == nil {
		specs = []convert.ConversionSpec{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"specs": specs})
}

type convertRequest struct {
	Specs []convert.ConversionSpec `json:"specs"`
	Rows  []map[string]any         `json:"rows"`
}

// HandleConvert applies conversion specs to rows. Each spec is re-validated
// against the unit tables and against the field's own name-side
// classification before any row is touched.
func (s *Server) HandleConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	for _, spec := range req.Specs {
		if err := s.checkSpec(spec); err != nil {
			writeWrappedError(w, s.logger, err, "invalid conversion for "+spec.Field)
			return
		}
	}

	rows := make([]map[string]any, len(req.Rows))
	for i, row := range req.Rows {
		rows[i] = convert.Transform(row, req.Specs)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rows": rows})
}

// checkSpec rejects specs that disagree with what the field name says. A
// locked rule (guard or domain dictionary) pins the quantity, and any rule
// that marks the field logarithmic or sexagesimal makes it unconvertible
// whatever the spec claims.
func (s *Server) checkSpec(spec convert.ConversionSpec) error {
	if err := spec.Verify(); err != nil {
		return err
	}
	m := s.app.Engine.Classify(spec.Field)
	if m == nil {
		return nil
	}
	if m.Locked && m.Quantity != spec.Quantity {
		return errors.Wrapf(errors.ErrNotConvertible, "field %s is %s, not %s", spec.Field, m.Quantity, spec.Quantity)
	}
	if m.Encoding == q.Logarithmic || m.Encoding == q.Sexagesimal {
		return errors.Wrapf(errors.ErrNotConvertible, "field %s is %s encoded", spec.Field, m.Encoding)
	}
	return nil
}

// HandleSchema returns the last saved schema of a dataset
func (s *Server) HandleSchema(w http.ResponseWriter, r *http.Request) {
	if s.app.Store == nil {
		writeWrappedError(w, s.logger, errors.ErrServiceUnavailable, "audit database disabled")
		return
	}
	dataset := r.PathValue("dataset")
	fields, err := s.app.Store.Schema(r.Context(), dataset)
	if err != nil {
		writeWrappedError(w, logger.FromContext(r.Context(), s.logger), err, "schema of "+dataset)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"dataset": dataset, "fields": fields})
}

// HandleAudit lists audit entries filtered by dataset, run_id and field
func (s *Server) HandleAudit(w http.ResponseWriter, r *http.Request) {
	if s.app.Store == nil {
		writeWrappedError(w, s.logger, errors.ErrServiceUnavailable, "audit database disabled")
		return
	}
	q := r.URL.Query()
	limit, err := cast.ToIntE(q.Get("limit"))
	if q.Get("limit") != "" && (err != nil || limit < 0) {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	if limit == 0 || limit > maxAuditLimit {
		limit = maxAuditLimit
	}

	entries, err := s.app.Store.List(r.Context(), audit.Query{
		Dataset: q.Get("dataset"),
		RunID:   q.Get("run_id"),
		Field:   q.Get("field"),
		Limit:   limit,
	})
	if err != nil {
		writeWrappedError(w, logger.FromContext(r.Context(), s.logger), err, "list audit entries")
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

// HandleDictionaries lists the loaded domain dictionaries
func (s *Server) HandleDictionaries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"dictionaries": s.app.Catalog.Dictionaries(),
		"entries":      s.app.Catalog.Len(),
	})
}

// HandleAdvisoryRecheck drops the cached health answer and checks again
func (s *Server) HandleAdvisoryRecheck(w http.ResponseWriter, r *http.Request) {
	var hc advisory.HealthCache
	available := s.app.Gateway.Available(r.Context(), &hc)

	s.healthMu.Lock()
	s.health = hc
	s.healthMu.Unlock()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"enabled":   s.app.Gateway.Enabled(),
		"available": available,
		"health":    hc,
	})
}

// HandleAdvisoryUsage summarizes recorded advisory calls over ?days= (default 7)
func (s *Server) HandleAdvisoryUsage(w http.ResponseWriter, r *http.Request) {
	if s.app.Usage == nil {
		writeWrappedError(w, s.logger, errors.ErrServiceUnavailable, "audit database disabled")
		return
	}
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := cast.ToIntE(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}
	report, err := s.app.Usage.Report(r.Context(), days)
	if err != nil {
		writeWrappedError(w, logger.FromContext(r.Context(), s.logger), err, "advisory usage")
		return
	}
	writeJSON(w, http.StatusOK, report)
}
