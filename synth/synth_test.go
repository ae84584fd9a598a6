package synth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/qntx-astro/audit"
	q "github.com/teranos/qntx-astro/quantity"
)

func newTestGenerator(t *testing.T) *Generator {
	g := NewGenerator(nil, zaptest.NewLogger(t).Sugar())
	g.now = func() time.Time { return time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC) }
	return g
}

func TestGenerateScenarios(t *testing.T) {
	g := newTestGenerator(t)

	out := g.Generate(Input{
		RunID:   "run-1",
		Dataset: "planets",
		Fields:  []string{"st_logg", "ra", "pl_orbeccen", "orbital_period"},
		SampleRows: [][]any{
			{4.4, 10.5, 0.01, 10.0},
			{4.1, 350.2, 0.2, 200.0},
			{4.8, 180.0, 0.05, 300.5},
		},
	})

	require.Equal(t, []string{"st_logg", "ra", "pl_orbeccen", "orbital_period"}, out.Order)

	logg := out.Fields["st_logg"]
	assert.Equal(t, q.Acceleration, logg.PhysicalQuantity)
	assert.Equal(t, q.Logarithmic, logg.Encoding)
	assert.False(t, logg.UnitRequired)
	assert.Nil(t, logg.RecommendedUnit)

	ra := out.Fields["ra"]
	assert.Equal(t, q.Angle, ra.PhysicalQuantity)
	assert.Equal(t, q.Linear, ra.Encoding)
	assert.True(t, ra.UnitRequired)
	assert.Equal(t, "deg", ra.Unit())

	ecc := out.Fields["pl_orbeccen"]
	assert.Equal(t, q.Dimensionless, ecc.PhysicalQuantity)
	assert.False(t, ecc.UnitRequired)
	assert.Equal(t, q.FromDomain, ecc.Provenance)

	per := out.Fields["orbital_period"]
	assert.Equal(t, q.Time, per.PhysicalQuantity, "values in [0,360] never turn a period into an angle")
	assert.Equal(t, q.FromName, per.Provenance)
}

func TestGenerateValueAndFallbackPaths(t *testing.T) {
	g := newTestGenerator(t)

	out := g.Generate(Input{
		Dataset:   "misc",
		Fields:    []string{"zorblax", "col_lat", "quux", "mystery", "col7", "col8", "blank"},
		RawHeader: "# col8 [mag]: V-band brightness",
		UnitHints: map[string]string{"col7": "parsecs"},
		SampleRows: [][]any{
			{0.1, -12.5, 12.5, "alpha", 100.0, 12.1, nil},
			{-0.3, 40.1, 200.5, "beta", 200.0, 13.4, ""},
			{0.5},
		},
	})

	tests := []struct {
		field    string
		wantQ    q.PhysicalQuantity
		wantEnc  q.Encoding
		wantProv q.Provenance
		wantRule string
		wantConf float64
	}{
		{"zorblax", q.Dimensionless, q.Linear, q.FromGuard, RuleCorrelation, 1.0},
		{"col_lat", q.Angle, q.Linear, q.FromValue, RuleValueSignal, 0.6},
		{"quux", q.Dimensionless, q.Linear, q.FromFallback, RuleFallback, 0.2},
		{"mystery", q.Dimensionless, q.Categorical, q.FromFallback, RuleFallback, 0.2},
		{"col7", q.Distance, q.Linear, q.FromName, RuleExplicitUnit, 0.65},
		{"col8", q.Brightness, q.Logarithmic, q.FromName, RuleExplicitUnit, 0.65},
		{"blank", q.Dimensionless, q.Linear, q.FromFallback, RuleFallback, 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			fc, ok := out.Fields[tt.field]
			require.True(t, ok)
			assert.Equal(t, tt.wantQ, fc.PhysicalQuantity)
			assert.Equal(t, tt.wantEnc, fc.Encoding)
			assert.Equal(t, tt.wantProv, fc.Provenance)
			assert.Equal(t, tt.wantRule, fc.Rule)
			assert.InDelta(t, tt.wantConf, fc.Confidence, 1e-9)
		})
	}

	assert.Equal(t, "pc", out.Fields["col7"].Unit())
	assert.True(t, out.Fields["zorblax"].Locked)
	assert.True(t, out.Explicit.Present)
	assert.Equal(t, "pc", out.Explicit.Units["col7"])
	assert.Equal(t, "mag", out.Explicit.Units["col8"])
}

func TestGenerateIntegerSamplesFollowTheName(t *testing.T) {
	g := newTestGenerator(t)

	out := g.Generate(Input{
		Dataset:    "pointing",
		Fields:     []string{"az", "az_x", "obs_cnt", "wobble"},
		SampleRows: [][]any{{10, 10.5, 10, 10}, {200, 200.2, 200, 200}, {350, 350.1, 350, 350}},
	})

	for _, f := range []string{"az", "az_x"} {
		fc := out.Fields[f]
		assert.Equal(t, q.Angle, fc.PhysicalQuantity, f)
		assert.Equal(t, q.FromValue, fc.Provenance, f)
		assert.Equal(t, "deg", fc.Unit(), f)
	}
	assert.Equal(t, q.Count, out.Fields["obs_cnt"].PhysicalQuantity)
	assert.Equal(t, q.FromValue, out.Fields["obs_cnt"].Provenance)
	assert.Equal(t, q.FromFallback, out.Fields["wobble"].Provenance, "values alone never decide")
}

func TestGenerateAudit(t *testing.T) {
	g := newTestGenerator(t)

	out := g.Generate(Input{
		RunID:   "run-9",
		Dataset: "stars",
		Fields:  []string{"teff", "teff", "source_id"},
	})

	require.Len(t, out.Order, 2, "duplicate headers keep the first occurrence")
	require.Len(t, out.Audit, 2)

	e := out.Audit[0]
	assert.Equal(t, "run-9", e.RunID)
	assert.Equal(t, "stars", e.Dataset)
	assert.Equal(t, "teff", e.Field)
	assert.Equal(t, audit.StageSynthetic, e.Stage)
	assert.Equal(t, q.FromName, e.Source)
	assert.Equal(t, "name:temperature", e.Rule)
	assert.Equal(t, q.Temperature, e.Quantity)
	assert.Equal(t, time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC), e.Timestamp)

	assert.Equal(t, q.FromGuard, out.Audit[1].Source)
	assert.Equal(t, 1.0, out.Audit[1].Confidence)

	cls := out.Classifications()
	require.Len(t, cls, 2)
	assert.Equal(t, "teff", cls[0].Field)
	assert.Equal(t, "source_id", cls[1].Field)
}

func TestEveryEmittedClassificationIsEnforced(t *testing.T) {
	g := newTestGenerator(t)
	out := g.Generate(Input{
		Fields:     []string{"sy_gmag", "rastr", "disc_year", "sy_pnum", "x", "pl_orbper", "quux"},
		SampleRows: [][]any{{12.1, "10:00:00", 2009, 1, 8.1, 3.5, "a"}},
	})
	for _, fc := range out.Classifications() {
		if !fc.Encoding.Convertible() || fc.PhysicalQuantity.Unitless() || fc.IsCalendar() {
			assert.False(t, fc.UnitRequired, fc.Field)
			assert.Nil(t, fc.RecommendedUnit, fc.Field)
			assert.Empty(t, fc.AllowedUnits, fc.Field)
			continue
		}
		assert.True(t, fc.UnitRequired, fc.Field)
		assert.True(t, q.Allowed(fc.PhysicalQuantity, fc.Unit()), fc.Field)
	}
}

func TestDetectExplicitMetadata(t *testing.T) {
	fields := []string{"ra", "pl_orbper", "teff", "dist", "Flux G"}

	t.Run("fits cards", func(t *testing.T) {
		raw := "TTYPE1  = 'RA      '           / label for field 1\n" +
			"TUNIT1  = 'deg     '           / physical unit of field\n" +
			"TTYPE2  = 'TEFF    '\n" +
			"TUNIT2  = 'K       '\n" +
			"TCOMM2  = 'effective temperature'\n"
		m := DetectExplicitMetadata(raw, fields)
		assert.True(t, m.Present)
		assert.Equal(t, SourceFITS, m.Source)
		assert.Equal(t, "deg", m.Units["ra"])
		assert.Equal(t, "K", m.Units["teff"])
		assert.Equal(t, "effective temperature", m.Descriptions["teff"])
	})

	t.Run("column comments", func(t *testing.T) {
		raw := "# This file was produced by the NASA Exoplanet Archive\n" +
			"# COLUMN pl_orbper:      Orbital Period [days]\n" +
			"# COLUMN pl_name:        Planet Name\n"
		m := DetectExplicitMetadata(raw, fields)
		assert.Equal(t, SourceColumnComment, m.Source)
		assert.Equal(t, "day", m.Units["pl_orbper"])
		assert.Equal(t, "Orbital Period", m.Descriptions["pl_orbper"])
		_, ok := m.Descriptions["pl_name"]
		assert.False(t, ok, "fields outside the list are ignored")
	})

	t.Run("inline comments", func(t *testing.T) {
		m := DetectExplicitMetadata("# dist [kpc]\n# teff (K): effective temperature\n", fields)
		assert.Equal(t, SourceInlineComment, m.Source)
		assert.Equal(t, "kpc", m.Units["dist"])
		assert.Equal(t, "K", m.Units["teff"])
		assert.Equal(t, "effective temperature", m.Descriptions["teff"])
	})

	t.Run("votable", func(t *testing.T) {
		raw := `<TABLE><FIELD name="ra" datatype="double" unit="deg" ucd="pos.eq.ra"/>` +
			`<FIELD ID="dist" unit="pc" datatype="float"/></TABLE>`
		m := DetectExplicitMetadata(raw, fields)
		assert.Equal(t, SourceVOTable, m.Source)
		assert.Equal(t, "deg", m.Units["ra"])
		assert.Equal(t, "pc", m.Units["dist"])
	})

	t.Run("json schema", func(t *testing.T) {
		raw := `schema: {"fields":[{"name":"flux_g","unit":"mJy","description":"G flux"},{"name":"teff","unit":"unknown"}]}`
		m := DetectExplicitMetadata(raw, fields)
		assert.Equal(t, SourceJSONSchema, m.Source)
		assert.Equal(t, "mJy", m.Units["Flux G"])
		_, ok := m.Units["teff"]
		assert.False(t, ok, "sentinel units are not recorded")
	})

	t.Run("nothing stated", func(t *testing.T) {
		m := DetectExplicitMetadata("# generated 2024-01-01\n", fields)
		assert.False(t, m.Present)
		assert.Empty(t, m.Source)
		assert.False(t, DetectExplicitMetadata("", fields).Present)
	})
}

func TestFallback(t *testing.T) {
	fc := Fallback("x", []any{"a", "b"})
	assert.Equal(t, q.Categorical, fc.Encoding)
	assert.Equal(t, q.FromFallback, fc.Provenance)
	assert.False(t, fc.UnitRequired)

	fc = Fallback("x", []any{"1", 2.5})
	assert.Equal(t, q.Linear, fc.Encoding)
	assert.Equal(t, 0.2, fc.Confidence)
}
