package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/qntx-astro/ai/advisory"
	"github.com/teranos/qntx-astro/audit"
	q "github.com/teranos/qntx-astro/quantity"
	"github.com/teranos/qntx-astro/schema"
)

func newResolver(t *testing.T) *Resolver {
	return NewResolver(nil, Thresholds{}, zaptest.NewLogger(t).Sugar())
}

func synthetic(field string, qty q.PhysicalQuantity, unit string, conf float64, prov q.Provenance) schema.FieldClassification {
	return schema.Enforce(schema.FieldClassification{
		Field:            field,
		PhysicalQuantity: qty,
		Encoding:         q.Linear,
		RecommendedUnit:  schema.StrPtr(unit),
		Confidence:       conf,
		Provenance:       prov,
	})
}

func adv(qty q.PhysicalQuantity, unit string, conf float64) *advisory.Classification {
	return &advisory.Classification{
		Quantity:        qty,
		Encoding:        q.Linear,
		UnitRequired:    unit != "",
		RecommendedUnit: unit,
		Confidence:      conf,
	}
}

func TestMergeTiers(t *testing.T) {
	r := newResolver(t)

	tests := []struct {
		name     string
		adv      *advisory.Classification
		syn      schema.FieldClassification
		wantQty  q.PhysicalQuantity
		wantProv q.Provenance
	}{
		{
			name:     "high synthetic wins outright",
			adv:      adv(q.Distance, "pc", 0.99),
			syn:      synthetic("star_angle", q.Angle, "deg", 0.7, q.FromName),
			wantQty:  q.Angle,
			wantProv: q.FromName,
		},
		{
			name:     "medium synthetic beats an advisory shrug",
			adv:      adv(q.Dimensionless, "", 0.9),
			syn:      synthetic("star_angle", q.Angle, "deg", 0.4, q.FromValue),
			wantQty:  q.Angle,
			wantProv: q.FromValue,
		},
		{
			name:     "medium disagreement between real quantities keeps advisory",
			adv:      adv(q.Distance, "pc", 0.6),
			syn:      synthetic("star_angle", q.Angle, "deg", 0.5, q.FromValue),
			wantQty:  q.Distance,
			wantProv: q.FromAdvisory,
		},
		{
			name:     "medium dimensionless synthetic lets advisory dimensionless through",
			adv:      adv(q.Dimensionless, "", 0.8),
			syn:      synthetic("ratio_thing", q.Dimensionless, "", 0.5, q.FromName),
			wantQty:  q.Dimensionless,
			wantProv: q.FromAdvisory,
		},
		{
			name:     "low synthetic yields to advisory",
			adv:      adv(q.Temperature, "K", 0.8),
			syn:      synthetic("mystery", q.Dimensionless, "", 0.2, q.FromFallback),
			wantQty:  q.Temperature,
			wantProv: q.FromAdvisory,
		},
		{
			name:     "low synthetic yields even to an advisory shrug",
			adv:      adv(q.Dimensionless, "", 0.3),
			syn:      synthetic("mystery", q.Angle, "deg", 0.3, q.FromValue),
			wantQty:  q.Dimensionless,
			wantProv: q.FromAdvisory,
		},
		{
			name:     "no advisory answer keeps synthetic",
			adv:      nil,
			syn:      synthetic("mystery", q.Dimensionless, "", 0.2, q.FromFallback),
			wantQty:  q.Dimensionless,
			wantProv: q.FromFallback,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Merge(tt.adv, tt.syn)
			assert.Equal(t, tt.wantQty, got.PhysicalQuantity)
			assert.Equal(t, tt.wantProv, got.Provenance)
			assert.Equal(t, tt.syn.Field, got.Field)
		})
	}
}

func TestMergeLockedGuard(t *testing.T) {
	syn := synthetic("rho", q.Dimensionless, "", 0.5, q.FromGuard)
	syn.Locked = true
	got := newResolver(t).Merge(adv(q.Angle, "deg", 1.0), syn)
	assert.Equal(t, q.Dimensionless, got.PhysicalQuantity)
	assert.Equal(t, q.FromGuard, got.Provenance)
}

func TestMergeDomainOverrideIsFinal(t *testing.T) {
	r := newResolver(t)

	advisories := []*advisory.Classification{
		nil,
		adv(q.Distance, "AU", 1.0),
		adv(q.Angle, "deg", 0.1),
		{Quantity: q.Brightness, Encoding: q.Logarithmic, Confidence: 0.95},
	}
	for _, a := range advisories {
		got := r.Merge(a, synthetic("pl_orbeccen", q.Dimensionless, "", 0.2, q.FromFallback))
		assert.Equal(t, q.Dimensionless, got.PhysicalQuantity)
		assert.False(t, got.UnitRequired)
		assert.Nil(t, got.RecommendedUnit)
		assert.Equal(t, 1.0, got.Confidence)
		assert.Equal(t, q.FromDomain, got.Provenance)
	}

	// Cartesian components are lengths even when advisory confidently says angle.
	got := r.Merge(adv(q.Angle, "deg", 0.99), synthetic("x", q.Angle, "deg", 0.3, q.FromValue))
	assert.Equal(t, q.Length, got.PhysicalQuantity)
	require.NotNil(t, got.RecommendedUnit)
	assert.Equal(t, "kpc", *got.RecommendedUnit)
	assert.Equal(t, q.FromDomain, got.Provenance)
}

func TestMergeEnforcesVocabularyRules(t *testing.T) {
	r := newResolver(t)
	syn := synthetic("mystery", q.Dimensionless, "", 0.1, q.FromFallback)

	t.Run("logarithmic drops the unit", func(t *testing.T) {
		got := r.Merge(&advisory.Classification{
			Quantity: q.Brightness, Encoding: q.Logarithmic, UnitRequired: true, RecommendedUnit: "mag", Confidence: 0.9,
		}, syn)
		assert.False(t, got.UnitRequired)
		assert.Nil(t, got.RecommendedUnit)
		assert.Empty(t, got.AllowedUnits)
	})

	t.Run("sexagesimal drops the unit", func(t *testing.T) {
		got := r.Merge(&advisory.Classification{
			Quantity: q.Angle, Encoding: q.Sexagesimal, UnitRequired: true, RecommendedUnit: "deg", Confidence: 0.9,
		}, syn)
		assert.False(t, got.UnitRequired)
		assert.Nil(t, got.RecommendedUnit)
	})

	t.Run("calendar time has no allowed units", func(t *testing.T) {
		got := r.Merge(&advisory.Classification{
			Quantity: q.Time, Encoding: q.Linear, UnitRequired: true, RecommendedUnit: "yr",
			TimeKind: q.TimeCalendar, Confidence: 0.9,
		}, syn)
		assert.True(t, got.IsCalendar())
		assert.False(t, got.UnitRequired)
		assert.Empty(t, got.AllowedUnits)
	})

	t.Run("count carries no unit", func(t *testing.T) {
		got := r.Merge(&advisory.Classification{Quantity: q.Count, Encoding: q.Linear, UnitRequired: true, Confidence: 0.9}, syn)
		assert.False(t, got.UnitRequired)
		assert.Nil(t, got.RecommendedUnit)
	})

	t.Run("linear quantity gets its table", func(t *testing.T) {
		got := r.Merge(adv(q.Distance, "parsec", 0.8), syn)
		assert.True(t, got.UnitRequired)
		require.NotNil(t, got.RecommendedUnit)
		assert.Equal(t, "pc", *got.RecommendedUnit)
		assert.Equal(t, q.Units(q.Distance), got.AllowedUnits)
	})
}

func TestMergeAll(t *testing.T) {
	r := newResolver(t)
	syn := []schema.FieldClassification{
		synthetic("mystery", q.Dimensionless, "", 0.2, q.FromFallback),
		synthetic("pl_orbeccen", q.Dimensionless, "", 1.0, q.FromDomain),
		synthetic("star_angle", q.Angle, "deg", 0.9, q.FromName),
	}
	advice := map[string]advisory.Classification{
		"mystery":     *adv(q.Temperature, "K", 0.8),
		"pl_orbeccen": *adv(q.Distance, "AU", 1.0),
	}

	res := r.MergeAll("run-1", "planets", syn, advice)
	require.Len(t, res.Fields, 3)
	assert.Equal(t, []string{"mystery", "pl_orbeccen", "star_angle"},
		[]string{res.Fields[0].Field, res.Fields[1].Field, res.Fields[2].Field})
	assert.Equal(t, q.Temperature, res.Fields[0].PhysicalQuantity)
	assert.Equal(t, q.Dimensionless, res.Fields[1].PhysicalQuantity)
	assert.Equal(t, q.Angle, res.Fields[2].PhysicalQuantity)
	assert.Equal(t, 1, res.Advised)

	require.Len(t, res.Audit, 3)
	for i, e := range res.Audit {
		assert.Equal(t, audit.StageMerge, e.Stage)
		assert.Equal(t, "run-1", e.RunID)
		assert.Equal(t, "planets", e.Dataset)
		assert.Equal(t, res.Fields[i].Provenance, e.Source)
		assert.False(t, e.Timestamp.IsZero())
	}
	assert.Equal(t, ruleAdvisory, res.Audit[0].Rule)
}

func TestNewResolverThresholds(t *testing.T) {
	assert.Equal(t, Thresholds{High: 0.7, Medium: 0.4}, NewResolver(nil, Thresholds{}, nil).Thresholds())
	assert.Equal(t, Thresholds{High: 0.7, Medium: 0.4}, NewResolver(nil, Thresholds{High: 0.3, Medium: 0.6}, nil).Thresholds())
	assert.Equal(t, Thresholds{High: 0.8, Medium: 0.5}, NewResolver(nil, Thresholds{High: 0.8, Medium: 0.5}, nil).Thresholds())
}
