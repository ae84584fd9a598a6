package catalog

import (
	q "github.com/teranos/qntx-astro/quantity"
)

// Builtin returns the dictionaries compiled into the binary, in precedence order.
func Builtin() []*Dictionary {
	return []*Dictionary{
		exoplanetArchive(),
		gaiaDR3(),
		cartesian(),
	}
}

func linear(field string, qty q.PhysicalQuantity, unit string) Entry {
	return Entry{Field: field, Quantity: qty, Encoding: q.Linear, Unit: unit}
}

func logarithmic(field string, qty q.PhysicalQuantity, desc string) Entry {
	return Entry{Field: field, Quantity: qty, Encoding: q.Logarithmic, Description: desc}
}

func calendar(field, desc string) Entry {
	return Entry{Field: field, Quantity: q.Time, Encoding: q.Linear, TimeKind: q.TimeCalendar, Description: desc}
}

// exoplanetArchive covers the NASA Exoplanet Archive PS and PSCompPars tables.
func exoplanetArchive() *Dictionary {
	return &Dictionary{
		Name:        "nasa-exoplanet-archive",
		Description: "NASA Exoplanet Archive planetary systems tables",
		Source:      "builtin",
		Entries: []Entry{
			linear("pl_orbper", q.Time, "day"),
			linear("pl_orbsmax", q.Distance, "AU"),
			linear("pl_rade", q.Length, "R_earth"),
			linear("pl_radj", q.Length, "R_jup"),
			linear("pl_bmasse", q.Mass, "M_earth"),
			linear("pl_bmassj", q.Mass, "M_jup"),
			linear("pl_masse", q.Mass, "M_earth"),
			linear("pl_massj", q.Mass, "M_jup"),
			{Field: "pl_orbeccen", Quantity: q.Dimensionless, Encoding: q.Linear, Description: "orbital eccentricity"},
			{Field: "pl_insol", Quantity: q.Dimensionless, Encoding: q.Linear, Description: "insolation flux relative to Earth"},
			{Field: "pl_ratror", Quantity: q.Dimensionless, Encoding: q.Linear, Description: "planet-star radius ratio"},
			{Field: "pl_ratdor", Quantity: q.Dimensionless, Encoding: q.Linear, Description: "distance over stellar radius"},
			{Field: "pl_imppar", Quantity: q.Dimensionless, Encoding: q.Linear, Description: "impact parameter"},
			linear("pl_eqt", q.Temperature, "K"),
			linear("pl_orbincl", q.Angle, "deg"),
			linear("pl_orblper", q.Angle, "deg"),
			linear("pl_trandur", q.Time, "h"),
			calendar("pl_tranmid", "transit midpoint (BJD)"),
			calendar("pl_orbtper", "time of periastron (BJD)"),
			linear("pl_rvamp", q.Velocity, "m/s"),
			linear("st_teff", q.Temperature, "K"),
			linear("st_rad", q.Length, "R_sun"),
			linear("st_mass", q.Mass, "M_sun"),
			logarithmic("st_met", q.Dimensionless, "stellar metallicity [dex]"),
			logarithmic("st_logg", q.Acceleration, "stellar surface gravity log10(cm/s^2)"),
			logarithmic("st_lum", q.Dimensionless, "stellar luminosity log10(L_sun)"),
			linear("st_age", q.Time, "Gyr"),
			linear("st_vsin", q.Velocity, "km/s"),
			linear("st_rotp", q.Time, "day"),
			linear("st_radv", q.Velocity, "km/s"),
			linear("sy_dist", q.Distance, "pc"),
			linear("sy_plx", q.Angle, "mas"),
			{Pattern: `^sy_[a-z0-9]+mag$`, Quantity: q.Brightness, Encoding: q.Logarithmic, Description: "system magnitude"},
			{Field: "rastr", Quantity: q.Angle, Encoding: q.Sexagesimal, Description: "right ascension (sexagesimal)"},
			{Field: "decstr", Quantity: q.Angle, Encoding: q.Sexagesimal, Description: "declination (sexagesimal)"},
			linear("glon", q.Angle, "deg"),
			linear("glat", q.Angle, "deg"),
			linear("elon", q.Angle, "deg"),
			linear("elat", q.Angle, "deg"),
			calendar("disc_year", "discovery year"),
			calendar("rowupdate", "row last updated"),
			calendar("pl_pubdate", "publication date"),
			calendar("releasedate", "release date"),
			{Field: "sy_snum", Quantity: q.Count, Encoding: q.Linear, Description: "number of stars"},
			{Field: "sy_pnum", Quantity: q.Count, Encoding: q.Linear, Description: "number of planets"},
			{Field: "sy_mnum", Quantity: q.Count, Encoding: q.Linear, Description: "number of moons"},
			{Field: "discoverymethod", Quantity: q.Dimensionless, Encoding: q.Categorical},
			{Field: "disc_facility", Quantity: q.Dimensionless, Encoding: q.Categorical},
			{Field: "st_spectype", Quantity: q.Dimensionless, Encoding: q.Categorical},
		},
	}
}

// gaiaDR3 covers the gaia_source columns that name-based rules get wrong or
// cannot see.
func gaiaDR3() *Dictionary {
	return &Dictionary{
		Name:        "gaia-dr3",
		Description: "Gaia DR3 gaia_source",
		Source:      "builtin",
		Entries: []Entry{
			linear("parallax", q.Angle, "mas"),
			linear("radial_velocity", q.Velocity, "km/s"),
			linear("l", q.Angle, "deg"),
			linear("b", q.Angle, "deg"),
			linear("ecl_lon", q.Angle, "deg"),
			linear("ecl_lat", q.Angle, "deg"),
			{Field: "pmra", Quantity: q.Dimensionless, Encoding: q.Linear,
				Warning: "proper motion (mas/yr) has no canonical unit; stored as-is"},
			{Field: "pmdec", Quantity: q.Dimensionless, Encoding: q.Linear,
				Warning: "proper motion (mas/yr) has no canonical unit; stored as-is"},
			{Pattern: `^phot_[a-z]+_mean_mag$`, Quantity: q.Brightness, Encoding: q.Logarithmic},
			logarithmic("bp_rp", q.Brightness, "colour index"),
			logarithmic("ag_gspphot", q.Brightness, "G-band extinction"),
			linear("teff_gspphot", q.Temperature, "K"),
			logarithmic("logg_gspphot", q.Acceleration, "surface gravity"),
			logarithmic("mh_gspphot", q.Dimensionless, "metallicity"),
			linear("distance_gspphot", q.Distance, "pc"),
			linear("radius_flame", q.Length, "R_sun"),
			linear("mass_flame", q.Mass, "M_sun"),
			linear("age_flame", q.Time, "Gyr"),
		},
	}
}

// cartesian pins position and velocity components. A bare "x" or "y" overlaps
// generic coordinate naming but is a length, never an angle.
func cartesian() *Dictionary {
	return &Dictionary{
		Name:        "cartesian",
		Description: "galactocentric and heliocentric Cartesian components",
		Source:      "builtin",
		Entries: []Entry{
			linear("x", q.Length, "kpc"),
			linear("y", q.Length, "kpc"),
			linear("z", q.Length, "kpc"),
			{Pattern: `^[xyz]_(gal|gc|helio|hc|galactic|galactocentric)$`, Quantity: q.Length, Encoding: q.Linear, Unit: "kpc"},
			{Pattern: `^v[xyz](_(gal|gc|helio|hc))?$`, Quantity: q.Velocity, Encoding: q.Linear, Unit: "km/s"},
			{Pattern: `^[uvw]_?(vel|lsr|helio)$`, Quantity: q.Velocity, Encoding: q.Linear, Unit: "km/s"},
		},
	}
}
