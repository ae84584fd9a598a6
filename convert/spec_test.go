package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/qntx-astro/errors"
	q "github.com/teranos/qntx-astro/quantity"
	"github.com/teranos/qntx-astro/schema"
)

func classified(field string, qty q.PhysicalQuantity, enc q.Encoding, unit string) schema.FieldClassification {
	return schema.Enforce(schema.FieldClassification{
		Field:            field,
		PhysicalQuantity: qty,
		Encoding:         enc,
		RecommendedUnit:  schema.StrPtr(unit),
		Confidence:       0.9,
	})
}

func TestNewConversionSpec(t *testing.T) {
	dist := classified("sy_dist", q.Distance, q.Linear, "pc")

	spec, err := NewConversionSpec(dist, "parsec", "ly")
	require.NoError(t, err)
	assert.Equal(t, ConversionSpec{Field: "sy_dist", Quantity: q.Distance, Encoding: q.Linear, FromUnit: "pc", ToUnit: "ly"}, spec)

	_, err = NewConversionSpec(dist, "pc", "pc")
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = NewConversionSpec(dist, "unknown", "pc")
	assert.True(t, errors.Is(err, errors.ErrUnknownUnit))

	_, err = NewConversionSpec(dist, "pc", "deg")
	assert.True(t, errors.Is(err, errors.ErrUnknownUnit))

	mag := classified("sy_vmag", q.Brightness, q.Logarithmic, "mag")
	_, err = NewConversionSpec(mag, "mag", "Jy")
	assert.True(t, errors.Is(err, errors.ErrNotConvertible))

	ra := classified("rastr", q.Angle, q.Sexagesimal, "")
	_, err = NewConversionSpec(ra, "hourangle", "deg")
	assert.True(t, errors.Is(err, errors.ErrNotConvertible))

	year := classified("disc_year", q.Time, q.Linear, "yr")
	year.TimeKind = schema.TimeKindPtr(q.TimeCalendar)
	year = schema.Enforce(year)
	_, err = NewConversionSpec(year, "yr", "day")
	assert.True(t, errors.Is(err, errors.ErrNotConvertible))
}

func TestBuildConversionSpecs(t *testing.T) {
	fields := []schema.FieldClassification{
		classified("sy_dist", q.Distance, q.Linear, "pc"),
		classified("ra", q.Angle, q.Linear, "deg"),
		classified("pl_orbper", q.Time, q.Linear, "day"),
		classified("st_logg", q.Acceleration, q.Logarithmic, ""),
		classified("rastr", q.Angle, q.Sexagesimal, ""),
		classified("sy_pnum", q.Count, q.Linear, ""),
		classified("pl_rade", q.Length, q.Linear, "R_earth"),
	}
	selected := map[string]string{
		"sy_dist":   "ly",
		"ra":        "deg",
		"pl_orbper": "yr",
		"st_logg":   "m/s^2",
		"rastr":     "deg",
		"sy_pnum":   "km",
		"pl_rade":   "R_jup",
	}
	detected := map[string]string{
		"sy_dist":   "kpc",
		"pl_orbper": "furlongs",
	}

	specs := BuildConversionSpecs(fields, selected, detected)
	require.Len(t, specs, 3)
	assert.Equal(t, ConversionSpec{Field: "sy_dist", Quantity: q.Distance, Encoding: q.Linear, FromUnit: "kpc", ToUnit: "ly"}, specs[0])
	assert.Equal(t, ConversionSpec{Field: "pl_orbper", Quantity: q.Time, Encoding: q.Linear, FromUnit: "day", ToUnit: "yr"}, specs[1])
	assert.Equal(t, ConversionSpec{Field: "pl_rade", Quantity: q.Length, Encoding: q.Linear, FromUnit: "R_earth", ToUnit: "R_jup"}, specs[2])

	for _, s := range specs {
		assert.NotEqual(t, s.FromUnit, s.ToUnit)
	}

	assert.Empty(t, BuildConversionSpecs(fields, nil, nil))
}

func TestTransform(t *testing.T) {
	specs := []ConversionSpec{
		{Field: "sy_dist", Quantity: q.Distance, Encoding: q.Linear, FromUnit: "kpc", ToUnit: "pc"},
		{Field: "missing", Quantity: q.Angle, Encoding: q.Linear, FromUnit: "deg", ToUnit: "rad"},
		{Field: "st_logg", Quantity: q.Acceleration, Encoding: q.Logarithmic, FromUnit: "cm/s^2", ToUnit: "m/s^2"},
	}
	row := map[string]any{"sy_dist": "1.5", "name": "HD 209458", "sy_vmag": 7.65, "st_logg": 4.4}

	out := Transform(row, specs)
	assert.InEpsilon(t, 1500.0, out["sy_dist"], 1e-9)
	assert.Equal(t, "HD 209458", out["name"])
	assert.Equal(t, 7.65, out["sy_vmag"])
	assert.Equal(t, 4.4, out["st_logg"], "logarithmic column is left alone")
	assert.NotContains(t, out, "missing")
	assert.Equal(t, "1.5", row["sy_dist"], "input row is not modified")

	out = Transform(map[string]any{"sy_dist": ""}, specs)
	assert.Nil(t, out["sy_dist"])
}

func TestConversionSpecVerify(t *testing.T) {
	ok := ConversionSpec{Field: "sy_dist", Quantity: q.Distance, Encoding: q.Linear, FromUnit: "kpc", ToUnit: "pc"}
	require.NoError(t, ok.Verify())

	tests := []struct {
		name string
		spec ConversionSpec
		want error
	}{
		{"logarithmic", ConversionSpec{Field: "st_logg", Quantity: q.Acceleration, Encoding: q.Logarithmic, FromUnit: "cm/s^2", ToUnit: "m/s^2"}, errors.ErrNotConvertible},
		{"sexagesimal", ConversionSpec{Field: "rastr", Quantity: q.Angle, Encoding: q.Sexagesimal, FromUnit: "hourangle", ToUnit: "deg"}, errors.ErrNotConvertible},
		{"missing encoding", ConversionSpec{Field: "st_logg", Quantity: q.Acceleration, FromUnit: "cm/s^2", ToUnit: "m/s^2"}, errors.ErrNotConvertible},
		{"unknown unit", ConversionSpec{Field: "sy_dist", Quantity: q.Distance, Encoding: q.Linear, FromUnit: "mag", ToUnit: "pc"}, errors.ErrUnknownUnit},
		{"same unit", ConversionSpec{Field: "sy_dist", Quantity: q.Distance, Encoding: q.Linear, FromUnit: "pc", ToUnit: "pc"}, errors.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Verify()
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), err.Error())
		})
	}
}
