package convert

import (
	"math"

	"github.com/teranos/qntx-astro/errors"
	q "github.com/teranos/qntx-astro/quantity"
)

// family expresses every unit of one quantity as a multiple of a single base
// unit. Converting A to C is always A to base to C, so chains agree.
type family struct {
	base    string
	factors map[string]float64
}

const (
	kmPerAU     = 1.495978707e8
	kmPerParsec = 3.0856775814913673e13
	kmPerLY     = 9.4607304725808e12
	secPerDay   = 86400.0
	secPerYear  = 365.25 * secPerDay
)

var families = map[q.PhysicalQuantity]family{
	q.Angle: {base: "deg", factors: map[string]float64{
		"deg":       1,
		"rad":       180 / math.Pi,
		"hourangle": 15,
		"arcmin":    1.0 / 60,
		"arcsec":    1.0 / 3600,
		"mas":       1.0 / 3.6e6,
	}},
	q.Distance: {base: "km", factors: map[string]float64{
		"km":  1,
		"AU":  kmPerAU,
		"pc":  kmPerParsec,
		"kpc": kmPerParsec * 1e3,
		"Mpc": kmPerParsec * 1e6,
		"ly":  kmPerLY,
	}},
	q.Length: {base: "m", factors: map[string]float64{
		"m":       1,
		"km":      1e3,
		"cm":      1e-2,
		"R_earth": 6.3781e6,
		"R_jup":   7.1492e7,
		"R_sun":   6.957e8,
		"AU":      kmPerAU * 1e3,
		"pc":      kmPerParsec * 1e3,
		"kpc":     kmPerParsec * 1e6,
	}},
	q.Mass: {base: "kg", factors: map[string]float64{
		"kg":      1,
		"g":       1e-3,
		"M_earth": 5.9722e24,
		"M_jup":   1.89813e27,
		"M_sun":   1.98841e30,
	}},
	q.Time: {base: "s", factors: map[string]float64{
		"s":   1,
		"min": 60,
		"h":   3600,
		"day": secPerDay,
		"yr":  secPerYear,
		"Myr": secPerYear * 1e6,
		"Gyr": secPerYear * 1e9,
	}},
	q.Velocity: {base: "m/s", factors: map[string]float64{
		"m/s":  1,
		"km/s": 1e3,
	}},
	q.Frequency: {base: "Hz", factors: map[string]float64{
		"Hz":  1,
		"kHz": 1e3,
		"MHz": 1e6,
		"GHz": 1e9,
	}},
	q.Acceleration: {base: "m/s^2", factors: map[string]float64{
		"m/s^2":  1,
		"cm/s^2": 1e-2,
	}},
	q.Flux: {base: "Jy", factors: map[string]float64{
		"Jy":            1,
		"mJy":           1e-3,
		"uJy":           1e-6,
		"erg/s/cm^2/Hz": 1e23,
	}},
}

// Temperature is affine, so it gets its own pair of maps onto kelvin.
var (
	toKelvin = map[string]func(float64) float64{
		"K": func(x float64) float64 { return x },
		"C": func(x float64) float64 { return x + 273.15 },
		"F": func(x float64) float64 { return (x-32)*5/9 + 273.15 },
	}
	fromKelvin = map[string]func(float64) float64{
		"K": func(x float64) float64 { return x },
		"C": func(x float64) float64 { return x - 273.15 },
		"F": func(x float64) float64 { return (x-273.15)*9/5 + 32 },
	}
)

// BaseUnit returns the unit every conversion of qty passes through.
func BaseUnit(qty q.PhysicalQuantity) (string, bool) {
	if qty == q.Temperature {
		return "K", true
	}
	f, ok := families[qty]
	return f.base, ok
}

// Supported reports whether qty has a conversion family at all.
func Supported(qty q.PhysicalQuantity) bool {
	_, ok := BaseUnit(qty)
	return ok
}

// ConvertFloat converts x between two units of qty through the base unit.
func ConvertFloat(x float64, from, to string, qty q.PhysicalQuantity) (float64, error) {
	from, to = q.NormalizeUnit(from), q.NormalizeUnit(to)

	if qty == q.Temperature {
		in, ok := toKelvin[from]
		if !ok {
			return 0, unknownUnit(from, qty)
		}
		out, ok := fromKelvin[to]
		if !ok {
			return 0, unknownUnit(to, qty)
		}
		if from == to {
			return x, nil
		}
		return out(in(x)), nil
	}

	fam, ok := families[qty]
	if !ok {
		return 0, errors.Wrapf(errors.ErrNotConvertible, "quantity %s", qty)
	}
	fromFactor, ok := fam.factors[from]
	if !ok {
		return 0, unknownUnit(from, qty)
	}
	toFactor, ok := fam.factors[to]
	if !ok {
		return 0, unknownUnit(to, qty)
	}
	if from == to {
		return x, nil
	}
	return x * fromFactor / toFactor, nil
}

func unknownUnit(unit string, qty q.PhysicalQuantity) error {
	return errors.WithHintf(
		errors.Wrapf(errors.ErrUnknownUnit, "%q for %s", unit, qty),
		"known units: %v", q.Units(qty))
}
