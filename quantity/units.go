package quantity

import (
	"regexp"
	"strings"
)

// unitTables holds the canonical units per quantity. The first entry is the
// default recommendation for that quantity.
var unitTables = map[PhysicalQuantity][]string{
	Length:       {"km", "m", "cm", "R_earth", "R_jup", "R_sun", "AU", "pc", "kpc"},
	Mass:         {"kg", "g", "M_earth", "M_jup", "M_sun"},
	Time:         {"day", "s", "min", "h", "yr", "Myr", "Gyr"},
	Temperature:  {"K", "C", "F"},
	Angle:        {"deg", "rad", "hourangle", "arcmin", "arcsec", "mas"},
	Distance:     {"pc", "kpc", "Mpc", "AU", "km", "ly"},
	Brightness:   {"mag"},
	Acceleration: {"m/s^2", "cm/s^2"},
	Velocity:     {"km/s", "m/s"},
	Frequency:    {"Hz", "kHz", "MHz", "GHz"},
	Flux:         {"Jy", "mJy", "uJy", "erg/s/cm^2/Hz"},
}

// reverseOrder decides which quantity owns a unit listed in several tables.
var reverseOrder = []PhysicalQuantity{
	Distance, Angle, Time, Mass, Temperature, Velocity,
	Frequency, Flux, Acceleration, Brightness, Length,
}

// Units returns a copy of the canonical units for q (nil for unitless quantities).
func Units(q PhysicalQuantity) []string {
	table := unitTables[q]
	if len(table) == 0 {
		return nil
	}
	out := make([]string, len(table))
	copy(out, table)
	return out
}

// HasUnits reports whether q has a canonical unit table.
func HasUnits(q PhysicalQuantity) bool {
	return len(unitTables[q]) > 0
}

// DefaultUnit returns the recommended unit for q, or "" when q is unitless.
func DefaultUnit(q PhysicalQuantity) string {
	if table := unitTables[q]; len(table) > 0 {
		return table[0]
	}
	return ""
}

// Allowed reports whether unit (after normalization) is canonical for q.
func Allowed(q PhysicalQuantity, unit string) bool {
	unit = NormalizeUnit(unit)
	for _, u := range unitTables[q] {
		if u == unit {
			return true
		}
	}
	return false
}

// QuantityForUnit finds the quantity whose table lists unit.
func QuantityForUnit(unit string) (PhysicalQuantity, bool) {
	unit = NormalizeUnit(unit)
	if unit == "" || IsSentinelUnit(unit) {
		return "", false
	}
	for _, q := range reverseOrder {
		for _, u := range unitTables[q] {
			if u == unit {
				return q, true
			}
		}
	}
	return "", false
}

// IsSentinelUnit reports whether s is a placeholder meaning "no real unit".
func IsSentinelUnit(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "unknown", "formatted", "null", "n/a", "-":
		return true
	}
	return false
}

var bracketRe = regexp.MustCompile(`^[\[\(\{](.*)[\]\)\}]$`)

// unitAliases maps lower-cased spellings seen in catalog headers onto canonical units.
var unitAliases = map[string]string{
	// angle
	"deg": "deg", "degree": "deg", "degrees": "deg", "°": "deg",
	"rad": "rad", "radian": "rad", "radians": "rad",
	"hourangle": "hourangle", "hour_angle": "hourangle", "hr": "hourangle", "hour angle": "hourangle",
	"arcmin": "arcmin", "arcminute": "arcmin", "arcminutes": "arcmin", "amin": "arcmin",
	"arcsec": "arcsec", "arcsecond": "arcsec", "arcseconds": "arcsec", "asec": "arcsec",
	"mas": "mas", "milliarcsec": "mas", "milliarcsecond": "mas", "milliarcseconds": "mas",
	// distance / length
	"pc": "pc", "parsec": "pc", "parsecs": "pc",
	"kpc": "kpc", "kiloparsec": "kpc", "kiloparsecs": "kpc",
	"mpc": "Mpc", "megaparsec": "Mpc", "megaparsecs": "Mpc",
	"au": "AU", "astronomical unit": "AU", "astronomical units": "AU",
	"ly": "ly", "lyr": "ly", "light-year": "ly", "light year": "ly", "light-years": "ly", "lightyear": "ly",
	"km": "km", "kilometer": "km", "kilometers": "km", "kilometre": "km", "kilometres": "km",
	"m": "m", "meter": "m", "meters": "m", "metre": "m", "metres": "m",
	"cm": "cm", "centimeter": "cm", "centimeters": "cm",
	"r_earth": "R_earth", "rearth": "R_earth", "earth radius": "R_earth", "earth radii": "R_earth", "re": "R_earth",
	"r_jup": "R_jup", "rjup": "R_jup", "jupiter radius": "R_jup", "jupiter radii": "R_jup", "rj": "R_jup",
	"r_sun": "R_sun", "rsun": "R_sun", "solar radius": "R_sun", "solar radii": "R_sun",
	// mass
	"kg": "kg", "kilogram": "kg", "kilograms": "kg",
	"g": "g", "gram": "g", "grams": "g",
	"m_earth": "M_earth", "mearth": "M_earth", "earth mass": "M_earth", "earth masses": "M_earth", "me": "M_earth",
	"m_jup": "M_jup", "mjup": "M_jup", "jupiter mass": "M_jup", "jupiter masses": "M_jup", "mj": "M_jup",
	"m_sun": "M_sun", "msun": "M_sun", "solar mass": "M_sun", "solar masses": "M_sun",
	// time
	"day": "day", "days": "day", "d": "day",
	"s": "s", "sec": "s", "second": "s", "seconds": "s",
	"min": "min", "minute": "min", "minutes": "min",
	"h": "h", "hour": "h", "hours": "h",
	"yr": "yr", "year": "yr", "years": "yr", "a": "yr",
	"myr": "Myr", "gyr": "Gyr",
	// temperature
	"k": "K", "kelvin": "K",
	"c": "C", "celsius": "C", "degc": "C",
	"f": "F", "fahrenheit": "F", "degf": "F",
	// brightness
	"mag": "mag", "mags": "mag", "magnitude": "mag", "magnitudes": "mag",
	// acceleration
	"m/s^2": "m/s^2", "m/s2": "m/s^2", "m s-2": "m/s^2",
	"cm/s^2": "cm/s^2", "cm/s2": "cm/s^2", "cm s-2": "cm/s^2",
	// velocity
	"km/s": "km/s", "km s-1": "km/s", "kms-1": "km/s", "km.s-1": "km/s",
	"m/s": "m/s", "m s-1": "m/s", "m.s-1": "m/s",
	// frequency
	"hz": "Hz", "khz": "kHz", "mhz": "MHz", "ghz": "GHz",
	// flux
	"jy": "Jy", "jansky": "Jy", "mjy": "mJy", "ujy": "uJy", "µjy": "uJy", "microjy": "uJy",
	"erg/s/cm^2/hz": "erg/s/cm^2/Hz", "erg s-1 cm-2 hz-1": "erg/s/cm^2/Hz",
}

// NormalizeUnit maps an alias onto its canonical spelling. Brackets are
// stripped; unknown strings come back trimmed but otherwise unchanged.
func NormalizeUnit(s string) string {
	s = strings.TrimSpace(s)
	if m := bracketRe.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	if s == "" {
		return ""
	}
	if canonical, ok := unitAliases[strings.ToLower(s)]; ok {
		// "MJy" and "mJy" differ only by case; trust exact spellings first.
		if exact := exactCanonical(s); exact != "" {
			return exact
		}
		return canonical
	}
	return s
}

// exactCanonical returns s when it is already a canonical unit spelling.
func exactCanonical(s string) string {
	for _, table := range unitTables {
		for _, u := range table {
			if u == s {
				return s
			}
		}
	}
	return ""
}
