package convert

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/qntx-astro/errors"
	q "github.com/teranos/qntx-astro/quantity"
)

const tolerance = 1e-6

func assertClose(t *testing.T, want, got float64, msgAndArgs ...any) {
	t.Helper()
	if want == 0 {
		assert.InDelta(t, want, got, 1e-9, msgAndArgs...)
		return
	}
	assert.InEpsilon(t, want, got, tolerance, msgAndArgs...)
}

func TestConvertFloatKnownValues(t *testing.T) {
	tests := []struct {
		x        float64
		from, to string
		qty      q.PhysicalQuantity
		want     float64
	}{
		{180, "deg", "rad", q.Angle, math.Pi},
		{1, "hourangle", "deg", q.Angle, 15},
		{1, "deg", "arcsec", q.Angle, 3600},
		{1000, "mas", "arcsec", q.Angle, 1},
		{1, "AU", "km", q.Distance, 1.495978707e8},
		{1, "pc", "AU", q.Distance, 206264.80624709636},
		{1, "kpc", "pc", q.Distance, 1000},
		{1, "ly", "pc", q.Distance, 0.30660139378555057},
		{1, "R_jup", "R_earth", q.Length, 11.209},
		{1, "M_sun", "M_jup", q.Mass, 1047.57},
		{1, "yr", "day", q.Time, 365.25},
		{2, "h", "min", q.Time, 120},
		{0, "C", "K", q.Temperature, 273.15},
		{212, "F", "C", q.Temperature, 100},
		{1, "km/s", "m/s", q.Velocity, 1000},
		{1.4, "GHz", "MHz", q.Frequency, 1400},
		{100, "cm/s^2", "m/s^2", q.Acceleration, 1},
		{1, "Jy", "mJy", q.Flux, 1000},
		{1e-23, "erg/s/cm^2/Hz", "Jy", q.Flux, 1},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			got, err := ConvertFloat(tt.x, tt.from, tt.to, tt.qty)
			require.NoError(t, err)
			if tt.qty == q.Length || tt.qty == q.Mass {
				assert.InEpsilon(t, tt.want, got, 1e-3)
				return
			}
			assertClose(t, tt.want, got)
		})
	}
}

func TestConvertFloatAliases(t *testing.T) {
	got, err := ConvertFloat(1, "parsecs", "[AU]", q.Distance)
	require.NoError(t, err)
	assertClose(t, 206264.80624709636, got)
}

func TestConvertFloatErrors(t *testing.T) {
	_, err := ConvertFloat(1, "furlong", "km", q.Distance)
	assert.True(t, errors.Is(err, errors.ErrUnknownUnit))
	assert.NotEmpty(t, errors.FlattenHints(err))

	_, err = ConvertFloat(1, "K", "Rankine", q.Temperature)
	assert.True(t, errors.Is(err, errors.ErrUnknownUnit))

	_, err = ConvertFloat(1, "mag", "mag", q.Brightness)
	assert.True(t, errors.Is(err, errors.ErrNotConvertible))

	_, err = ConvertFloat(1, "deg", "pc", q.Angle)
	assert.True(t, errors.Is(err, errors.ErrUnknownUnit))
}

var representative = []float64{0.001, 1, 42.5, 1234.5678, 6.02e5}

func TestRoundTrip(t *testing.T) {
	for _, qty := range q.All {
		units := q.Units(qty)
		if len(units) < 2 || !Supported(qty) {
			continue
		}
		for _, a := range units {
			for _, b := range units {
				for _, x := range representative {
					there, err := ConvertFloat(x, a, b, qty)
					require.NoError(t, err, "%s %s->%s", qty, a, b)
					back, err := ConvertFloat(there, b, a, qty)
					require.NoError(t, err)
					assertClose(t, x, back, "%s: %v %s->%s->%s", qty, x, a, b, a)
				}
			}
		}
	}
}

func TestTransitivity(t *testing.T) {
	for _, qty := range q.All {
		units := q.Units(qty)
		if len(units) < 3 || !Supported(qty) {
			continue
		}
		for _, a := range units {
			for _, b := range units {
				for _, c := range units {
					x := 42.5
					direct, err := ConvertFloat(x, a, c, qty)
					require.NoError(t, err)
					mid, err := ConvertFloat(x, a, b, qty)
					require.NoError(t, err)
					chained, err := ConvertFloat(mid, b, c, qty)
					require.NoError(t, err)
					assertClose(t, direct, chained, "%s: %s->%s->%s", qty, a, b, c)
				}
			}
		}
	}
}

func TestEveryTableUnitHasAFactor(t *testing.T) {
	for _, qty := range q.All {
		if !Supported(qty) {
			continue
		}
		base, ok := BaseUnit(qty)
		require.True(t, ok)
		for _, u := range q.Units(qty) {
			_, err := ConvertFloat(1, u, base, qty)
			assert.NoError(t, err, "%s %s", qty, u)
		}
	}
	assert.False(t, Supported(q.Brightness))
	assert.False(t, Supported(q.Count))
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		from, to string
		qty      q.PhysicalQuantity
		want     Cell
	}{
		{"nil", nil, "AU", "km", q.Distance, Cell{Kind: Null}},
		{"blank", "  ", "AU", "km", q.Distance, Cell{Kind: Null}},
		{"placeholder", "NaN", "AU", "km", q.Distance, Cell{Kind: Null}},
		{"numeric string", " 2 ", "kpc", "pc", q.Distance, Cell{Kind: Number, Number: 2000}},
		{"same unit coerces only", "3.5", "deg", "deg", q.Angle, Cell{Kind: Number, Number: 3.5}},
		{"sentinel source", 7, "unknown", "km", q.Distance, Cell{Kind: Number, Number: 7}},
		{"brightness passthrough", 12.3, "mag", "Jy", q.Brightness, Cell{Kind: Number, Number: 12.3}},
		{"count passthrough", 4, "", "", q.Count, Cell{Kind: Number, Number: 4}},
		{"text passthrough", " 12:34:56 ", "hourangle", "deg", q.Angle, Cell{Kind: Text, Text: "12:34:56"}},
		{"unknown pair coerces only", 5, "furlong", "km", q.Distance, Cell{Kind: Number, Number: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Convert(tt.value, tt.from, tt.to, tt.qty)
			assert.Equal(t, tt.want.Kind, got.Kind)
			assert.Equal(t, tt.want.Text, got.Text)
			assertClose(t, tt.want.Number, got.Number)
		})
	}

	got := Convert(1, "AU", "km", q.Distance)
	assert.Equal(t, Number, got.Kind)
	assertClose(t, 1.495978707e8, got.Number)
}

func TestCellJSON(t *testing.T) {
	for cell, want := range map[Cell]string{
		{Kind: Null}:                `null`,
		{Kind: Number, Number: 1.5}: `1.5`,
		{Kind: Text, Text: "abc"}:   `"abc"`,
	} {
		b, err := json.Marshal(cell)
		require.NoError(t, err)
		assert.JSONEq(t, want, string(b))
	}
	assert.Equal(t, "number", Number.String())
}
