package signal

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/qntx-astro/heuristic"
	q "github.com/teranos/qntx-astro/quantity"
)

func TestInferFromValues(t *testing.T) {
	tests := []struct {
		name     string
		values   []any
		wantQ    q.PhysicalQuantity
		wantEnc  q.Encoding
		wantConf float64
	}{
		{"correlation", []any{0.12, -0.4, 0.9}, q.Dimensionless, q.Linear, 1.0},
		{"correlation as strings", []any{"0.5", " -0.25 ", "1"}, q.Dimensionless, q.Linear, 1.0},
		{"year-like", []any{1995, 2004, "2019"}, q.Time, q.Linear, 0.4},
		{"signed latitude", []any{-45.2, 12.0, 88.9}, q.Angle, q.Linear, 0.4},
		{"azimuth", []any{12.5, 270.25, 359.9}, q.Angle, q.Linear, 0.4},
		{"counts", []any{1, 3, 12}, q.Count, q.Linear, 0.3},
		{"json numbers", []any{json.Number("2"), json.Number("7")}, q.Count, q.Linear, 0.3},
		{"sexagesimal colon", []any{"12:34:56.7", "-01:02:03"}, q.Angle, q.Sexagesimal, 0.5},
		{"sexagesimal letters", []any{"19h50m47.0s", "05h35m17s"}, q.Angle, q.Sexagesimal, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := InferFromValues(tt.values)
			require.NotNil(t, c)
			assert.Equal(t, tt.wantQ, c.Quantity)
			assert.Equal(t, tt.wantEnc, c.Encoding)
			assert.Equal(t, tt.wantConf, c.Confidence)
		})
	}

	t.Run("year-like values are calendar time", func(t *testing.T) {
		c := InferFromValues([]any{2001, 2002})
		require.NotNil(t, c)
		assert.Equal(t, q.TimeCalendar, c.TimeKind)
	})
}

func TestInferFromValuesNoSignal(t *testing.T) {
	tests := []struct {
		name   string
		values []any
	}{
		{"empty", nil},
		{"only missing", []any{nil, "", "NaN", "null"}},
		{"large reals", []any{5021.3, 12000.8}},
		{"negative beyond latitude", []any{-150.0, 20.0}},
		{"free text", []any{"Transit", "Radial Velocity"}},
		{"mixed text", []any{"12:00:00", "Kepler"}},
		{"booleans", []any{true, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, InferFromValues(tt.values))
		})
	}
}

func TestCorrelationShape(t *testing.T) {
	tests := []struct {
		name string
		nums []float64
		want bool
	}{
		{"interior values", []float64{0.3, -0.7}, true},
		{"edges ignored", []float64{1, -1, 0.2, 0.5}, true},
		{"only edges", []float64{1, -1, 1}, false},
		{"single interior", []float64{1, 0.5}, false},
		{"all zero", []float64{0, 0, 0}, false},
		{"out of range", []float64{0.5, 1.2}, false},
		{"too few", []float64{0.5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, correlationShaped(tt.nums))
		})
	}
}

func TestValidate(t *testing.T) {
	e := heuristic.NewEngine(nil)

	t.Run("disagreement contributes nothing", func(t *testing.T) {
		name := e.Hint("orbital_period")
		require.NotNil(t, name)
		c := InferFromValues([]any{3.52, 10.8, 289.9})
		require.NotNil(t, c)
		require.Equal(t, q.Angle, c.Quantity)
		assert.Nil(t, Validate(name, c))
	})

	t.Run("agreement boosts the confidence", func(t *testing.T) {
		name := e.Hint("col_lat")
		require.NotNil(t, name)
		c := Validate(name, InferFromValues([]any{-12.5, 40.1}))
		require.NotNil(t, c)
		assert.Equal(t, q.Angle, c.Quantity)
		assert.InDelta(t, 0.6, c.Confidence, 1e-9)
		assert.Contains(t, c.Reason, "agrees with")
	})

	t.Run("boost is capped", func(t *testing.T) {
		name := &heuristic.Match{Rule: "name:angle", Quantity: q.Angle, Encoding: q.Linear, Unit: "deg", Confidence: 0.9}
		c := Validate(name, InferFromValues([]any{10.5, 200.25}))
		require.NotNil(t, c)
		assert.Equal(t, 0.95, c.Confidence)
		assert.Equal(t, "deg", c.Unit)
	})

	t.Run("no name candidate", func(t *testing.T) {
		assert.Nil(t, Validate(nil, InferFromValues([]any{-12.5, 40.1})))
		assert.Nil(t, Validate(nil, nil))
	})

	t.Run("correlation stands alone", func(t *testing.T) {
		c := Validate(nil, InferFromValues([]any{0.1, 0.2}))
		require.NotNil(t, c)
		assert.True(t, c.CorrelationLike)
		assert.Equal(t, 1.0, c.Confidence)
	})
}

func TestInferCandidates(t *testing.T) {
	cs := InferCandidates([]any{10, 200, 350})
	require.Len(t, cs, 2)
	assert.Equal(t, q.Count, cs[0].Quantity)
	assert.Equal(t, q.Angle, cs[1].Quantity)

	cs = InferCandidates([]any{0.1, -0.2})
	require.Len(t, cs, 1, "correlation shape stands alone")
	assert.True(t, cs[0].CorrelationLike)

	assert.Len(t, InferCandidates([]any{5021.3, 12000.8}), 0)
	assert.Len(t, InferCandidates([]any{1995, 2019}), 2, "year-like integers are also counts")
}

func TestValidateCandidates(t *testing.T) {
	e := heuristic.NewEngine(nil)
	integers := InferCandidates([]any{10, 200, 350})

	t.Run("integer azimuth agrees with an angle name", func(t *testing.T) {
		c := ValidateCandidates(e.Hint("az"), integers)
		require.NotNil(t, c)
		assert.Equal(t, q.Angle, c.Quantity)
		assert.Equal(t, "deg", c.Unit)
		assert.InDelta(t, 0.6, c.Confidence, 1e-9)
	})

	t.Run("same integers agree with a count name", func(t *testing.T) {
		c := ValidateCandidates(e.Hint("obs_cnt"), integers)
		require.NotNil(t, c)
		assert.Equal(t, q.Count, c.Quantity)
	})

	t.Run("period name keeps rejecting both", func(t *testing.T) {
		assert.Nil(t, ValidateCandidates(e.Hint("orbital_period"), integers))
	})

	t.Run("no name", func(t *testing.T) {
		assert.Nil(t, ValidateCandidates(nil, integers))
		assert.Nil(t, ValidateCandidates(e.Hint("az"), nil))
	})
}

func TestIsNumeric(t *testing.T) {
	assert.True(t, IsNumeric([]any{"1.5", 2, nil}))
	assert.True(t, IsNumeric([]any{"1.5", "abc"}))
	assert.False(t, IsNumeric([]any{"abc", "def", 1}))
	assert.False(t, IsNumeric(nil))
}

func TestToFloat(t *testing.T) {
	f, ok := ToFloat(" 4.5 ")
	assert.True(t, ok)
	assert.Equal(t, 4.5, f)

	f, ok = ToFloat(int64(7))
	assert.True(t, ok)
	assert.Equal(t, 7.0, f)

	for _, v := range []any{nil, true, "", "n/a", "abc", "Inf"} {
		_, ok := ToFloat(v)
		assert.False(t, ok, "%v", v)
	}
}

func TestParseSexagesimal(t *testing.T) {
	tests := []struct {
		in    string
		hours bool
		want  float64
		ok    bool
	}{
		{"12:30:00", false, 12.5, true},
		{"12:30:00", true, 187.5, true},
		{"-00:30:00", false, -0.5, true},
		{"-12 15 36", false, -12.26, true},
		{"01h00m00s", true, 15, true},
		{"+45d30m00s", false, 45.5, true},
		{"12:75:00", false, 0, false},
		{"12.5", false, 0, false},
		{"", false, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseSexagesimal(tt.in, tt.hours)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}
