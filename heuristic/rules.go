package heuristic

import (
	"regexp"

	q "github.com/teranos/qntx-astro/quantity"
)

// Rule is one row of a tier table. Rules are evaluated top to bottom and the
// first match wins within a tier.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp

	Quantity q.PhysicalQuantity
	Encoding q.Encoding
	// Unit is the default unit. When UnitFromSuffix is set a unit written in
	// the column name ("dist_kpc", "teff [K]") takes precedence.
	Unit           string
	UnitFromSuffix bool
	TimeKind       q.TimeKind

	Confidence float64
	Locked     bool
	Warning    string

	// Inherit marks error/uncertainty rules: the pattern's "base" group is
	// classified and its result reused at reduced confidence.
	Inherit bool
}

const (
	guardConfidence   = 1.0
	inheritMultiplier = 0.95
	hintConfidence    = 0.35
)

func re(expr string) *regexp.Regexp { return regexp.MustCompile(expr) }

// GuardRules catch columns that must never be read as physical measurements.
var GuardRules = []Rule{
	{Name: "guard:identifier-suffix", Pattern: re(`(^|_)(id|uid|objid|specobjid|source_id|designation)$`),
		Quantity: q.Dimensionless, Encoding: q.Identifier},
	{Name: "guard:identifier-name", Pattern: re(`(^|_)name$|^(hostname|host|target|object|obj|designation|star|planet)$`),
		Quantity: q.Dimensionless, Encoding: q.Identifier},
	{Name: "guard:catalog-number", Pattern: re(`^(hip|hd|hr|tic|kic|epic|koi|toi|kepoi|gj|tyc|2mass|wise|sdss)(_?(id|num|number))?$`),
		Quantity: q.Dimensionless, Encoding: q.Identifier},
	{Name: "guard:flag", Pattern: re(`(^|_)(flag|flags|qflag|qual|quality|ulim|llim|limflag)(_|$)|^(pl|st|sy)_[a-z0-9]+lim$|_controv`),
		Quantity: q.Dimensionless, Encoding: q.Categorical},
	{Name: "guard:count", Pattern: re(`^n_|^num_|_num$|_count$|^count_|_n_obs$|_nobs$|^(nobs|ncomp|nstars|nplanets|sy_[spm]num|pl_nnotes)$|_nnotes$`),
		Quantity: q.Count, Encoding: q.Linear},
	{Name: "guard:correlation", Pattern: re(`_corr$|^corr_|(^|_)rho(_|$)|correlation`),
		Quantity: q.Dimensionless, Encoding: q.Linear},
	{Name: "guard:statistic", Pattern: re(`chi2|chisq|chi_sq|(^|_)ruwe$|(^|_)snr(_|$)|(^|_)s_?n$|(^|_)(sig|significance)$|p_?value|(^|_)fap$|(^|_)(gof|fidelity)(_|$)|_excess_noise|_over_error$`),
		Quantity: q.Dimensionless, Encoding: q.Linear},
}

// NameRules are the generic column-name heuristics, evaluated after guards
// and domain dictionaries.
var NameRules = []Rule{
	{Name: "name:error-suffix", Pattern: re(`^(?P<base>.+?)_?(err|error|uncertainty|unc|sigma)[12]?$`), Inherit: true},
	{Name: "name:error-prefix", Pattern: re(`^(e|err|error|sigma|sig|unc)_(?P<base>.+)$`), Inherit: true},

	{Name: "name:sexagesimal", Pattern: re(`^(ra|dec|decl)_?(str|hms|dms|sex|sexagesimal)$`),
		Quantity: q.Angle, Encoding: q.Sexagesimal, Confidence: 0.9},

	{Name: "name:magnitude", Pattern: re(`mag(nitude)?$|(^|_)mag_[a-z0-9]+$`),
		Quantity: q.Brightness, Encoding: q.Logarithmic, Confidence: 0.9},
	{Name: "name:colour-index", Pattern: re(`^(bp_rp|bp_g|g_rp|b_v|u_b|v_i|v_r|g_r|r_i|i_z|j_k|j_h|h_k)$`),
		Quantity: q.Brightness, Encoding: q.Logarithmic, Confidence: 0.85},
	{Name: "name:log-gravity", Pattern: re(`(^|_)logg(_|$)|^log_g$|surface_gravity`),
		Quantity: q.Acceleration, Encoding: q.Logarithmic, Confidence: 0.9},
	{Name: "name:metallicity", Pattern: re(`(^|_)(feh|fe_h|mh|m_h|met|metal|metallicity)(_|$)`),
		Quantity: q.Dimensionless, Encoding: q.Logarithmic, Confidence: 0.85},
	{Name: "name:log-prefix", Pattern: re(`^(log|lg)_?[a-z]|_log$`),
		Quantity: q.Dimensionless, Encoding: q.Logarithmic, Confidence: 0.7,
		Warning: "logarithmic column; stored without conversion"},

	{Name: "name:parallax", Pattern: re(`(^|_)(plx|parlx)(_|$)|parallax`),
		Quantity: q.Angle, Encoding: q.Linear, Unit: "mas", UnitFromSuffix: true, Confidence: 0.9},
	{Name: "name:proper-motion", Pattern: re(`^pm_?(ra|de|dec)?(_cosdec)?$|proper_?motion`),
		Quantity: q.Dimensionless, Encoding: q.Linear, Confidence: 0.6,
		Warning: "proper motion has no canonical unit; stored as-is"},

	{Name: "name:period", Pattern: re(`(^|_)(per|porb|prot|rotp)(_|$)|period|orbper`),
		Quantity: q.Time, Encoding: q.Linear, Unit: "day", UnitFromSuffix: true, TimeKind: q.TimeQuantity, Confidence: 0.85},
	{Name: "name:age", Pattern: re(`(^|_)age(_|$)`),
		Quantity: q.Time, Encoding: q.Linear, Unit: "Gyr", UnitFromSuffix: true, TimeKind: q.TimeQuantity, Confidence: 0.8},
	{Name: "name:duration", Pattern: re(`(^|_)(dur|duration|trandur|exptime|exp_time|exposure|lifetime)(_|$)`),
		Quantity: q.Time, Encoding: q.Linear, Unit: "h", UnitFromSuffix: true, TimeKind: q.TimeQuantity, Confidence: 0.8},
	{Name: "name:calendar", Pattern: re(`(^|_)(year|date|epoch|mjd|jd|bjd|hjd|btjd|bkjd|dateobs|date_obs|obs_date|pubdate|rowupdate|releasedate|tranmid)(_|$)`),
		Quantity: q.Time, Encoding: q.Linear, TimeKind: q.TimeCalendar, Confidence: 0.85},

	{Name: "name:right-ascension", Pattern: re(`^(ra|raj2000|ra_j2000|ra_icrs|ra_epoch2000|right_ascension|rightascension|alpha|alpha_j2000|ra_obj|ra_targ|ra_target|radeg|ra_deg|ra_rad|ra_h|ra_hr|ra_hours)$`),
		Quantity: q.Angle, Encoding: q.Linear, Unit: "deg", UnitFromSuffix: true, Confidence: 0.9},
	{Name: "name:declination", Pattern: re(`^(dec|decl|dej2000|dec_j2000|de_icrs|dec_icrs|dec_epoch2000|declination|delta|delta_j2000|dec_obj|dec_targ|dec_target|dedeg|decdeg|dec_deg|dec_rad)$`),
		Quantity: q.Angle, Encoding: q.Linear, Unit: "deg", UnitFromSuffix: true, Confidence: 0.9},
	{Name: "name:sky-coordinate", Pattern: re(`^(glon|glat|gal_?l|gal_?b|l_?gal|b_?gal|l_ii|b_ii|elon|elat|ecl_?lon|ecl_?lat|lambda|beta)(_deg|_rad)?$`),
		Quantity: q.Angle, Encoding: q.Linear, Unit: "deg", UnitFromSuffix: true, Confidence: 0.85},

	{Name: "name:semi-major-axis", Pattern: re(`(^|_)(sma|smaxis|orbsmax|a_au)(_|$)|semi_?major`),
		Quantity: q.Distance, Encoding: q.Linear, Unit: "AU", UnitFromSuffix: true, Confidence: 0.85},
	{Name: "name:distance", Pattern: re(`(^|_)(dist|distance|d_pc|d_kpc|d_mpc|rgc|r_gc|dgc|d_gc|los_dist)(_|$)|distance`),
		Quantity: q.Distance, Encoding: q.Linear, Unit: "pc", UnitFromSuffix: true, Confidence: 0.85},

	{Name: "name:mass-earth", Pattern: re(`(^|_)(pl_)?(b?masse|msinie|mass_e|mass_earth)$`),
		Quantity: q.Mass, Encoding: q.Linear, Unit: "M_earth", Confidence: 0.85},
	{Name: "name:mass-jupiter", Pattern: re(`(^|_)(pl_)?(b?massj|msinij|mass_j|mass_jup)$`),
		Quantity: q.Mass, Encoding: q.Linear, Unit: "M_jup", Confidence: 0.85},
	{Name: "name:mass-stellar", Pattern: re(`^(st_mass|m_star|mstar|stellar_mass|mass_star|host_mass)$`),
		Quantity: q.Mass, Encoding: q.Linear, Unit: "M_sun", UnitFromSuffix: true, Confidence: 0.85},
	{Name: "name:mass", Pattern: re(`(^|_)(mass|msini|m_p|mp)(_|$)|mass`),
		Quantity: q.Mass, Encoding: q.Linear, Unit: "kg", UnitFromSuffix: true, Confidence: 0.75},

	{Name: "name:radius-earth", Pattern: re(`(^|_)(pl_)?(rade|rad_e|radius_e|radius_earth)$`),
		Quantity: q.Length, Encoding: q.Linear, Unit: "R_earth", Confidence: 0.85},
	{Name: "name:radius-jupiter", Pattern: re(`(^|_)(pl_)?(radj|rad_j|radius_j|radius_jup)$`),
		Quantity: q.Length, Encoding: q.Linear, Unit: "R_jup", Confidence: 0.85},
	{Name: "name:radius-stellar", Pattern: re(`^(st_rad|r_star|rstar|stellar_radius|radius_star|host_radius)$`),
		Quantity: q.Length, Encoding: q.Linear, Unit: "R_sun", UnitFromSuffix: true, Confidence: 0.85},
	{Name: "name:radius", Pattern: re(`^(rad|radius|r_p|rp|diameter|diam)(_|$)|_(radius|r_p|rp|diameter|diam)(_|$)|radius`),
		Quantity: q.Length, Encoding: q.Linear, Unit: "km", UnitFromSuffix: true, Confidence: 0.75},

	{Name: "name:temperature", Pattern: re(`(^|_)(teff|t_eff|temp|temperature|eqt|t_eq|teq|tdust|t_dust|tex)(_|$)|temperature|^teff`),
		Quantity: q.Temperature, Encoding: q.Linear, Unit: "K", UnitFromSuffix: true, Confidence: 0.85},
	{Name: "name:velocity", Pattern: re(`(^|_)(rv|vel|velocity|vrad|v_rad|radvel|radv|vsini|vsin|vrot|vlsr|v_lsr|vhelio|v_helio|cz|rvamp)(_|$)|velocity`),
		Quantity: q.Velocity, Encoding: q.Linear, Unit: "km/s", UnitFromSuffix: true, Confidence: 0.85},
	{Name: "name:frequency", Pattern: re(`(^|_)(freq|frequency|nu|restfreq)(_|$)|frequency`),
		Quantity: q.Frequency, Encoding: q.Linear, Unit: "Hz", UnitFromSuffix: true, Confidence: 0.8},
	{Name: "name:flux", Pattern: re(`(^|_)(flux|fnu|f_nu|flx|peak_flux|int_flux|s_peak|s_int|fint|fpeak)(_|$)|flux`),
		Quantity: q.Flux, Encoding: q.Linear, Unit: "Jy", UnitFromSuffix: true, Confidence: 0.8},
	{Name: "name:acceleration", Pattern: re(`(^|_)(acc|accel|acceleration|gravity|grav)(_|$)`),
		Quantity: q.Acceleration, Encoding: q.Linear, Unit: "m/s^2", UnitFromSuffix: true, Confidence: 0.75},

	{Name: "name:angle", Pattern: re(`(^|_)(incl|inclination|orbincl|pa|posang|pos_ang|position_angle|theta|phi|omega|lper|orblper|argp|arg_peri|obliquity|lambda_rm)(_|$)|angle`),
		Quantity: q.Angle, Encoding: q.Linear, Unit: "deg", UnitFromSuffix: true, Confidence: 0.8},
	{Name: "name:dimensionless", Pattern: re(`(^|_)(ecc|eccen|orbeccen|eccentricity|albedo|ratio|frac|fraction|impact|imppar|ratror|ratdor|redshift|insol)(_|$)|eccen|ratio|albedo|redshift`),
		Quantity: q.Dimensionless, Encoding: q.Linear, Confidence: 0.85},
	{Name: "name:categorical", Pattern: re(`(^|_)(method|discoverymethod|facility|telescope|instrument|ref|refname|reference|bibcode|spectype|sptype|spec_type|spectral_type|class|type|band|filter|comment|notes?|status|disposition|letter|locale)(_|$)`),
		Quantity: q.Dimensionless, Encoding: q.Categorical, Confidence: 0.8},
}

// HintRules are weak keyword signals. They never classify a column on their
// own; they only give the value-signal validator a name-side candidate to
// agree or disagree with.
var HintRules = []Rule{
	{Name: "hint:angle", Pattern: re(`(^|_)(ra|dec|lon|lat|ang|angle|az|alt|el)(_|$|\d)`), Quantity: q.Angle, Encoding: q.Linear, Unit: "deg"},
	{Name: "hint:calendar", Pattern: re(`(^|_)(yr|when|day_of|dt)(_|$)`), Quantity: q.Time, Encoding: q.Linear, TimeKind: q.TimeCalendar},
	{Name: "hint:time", Pattern: re(`(^|_)(t|time|tau|p)(_|$|\d)`), Quantity: q.Time, Encoding: q.Linear, Unit: "day", TimeKind: q.TimeQuantity},
	{Name: "hint:count", Pattern: re(`(^|_)(n|nb|cnt|total|members)(_|$)`), Quantity: q.Count, Encoding: q.Linear},
	{Name: "hint:distance", Pattern: re(`(^|_)(d|r|sep|separation)(_|$|\d)`), Quantity: q.Distance, Encoding: q.Linear, Unit: "pc"},
	{Name: "hint:temperature", Pattern: re(`(^|_)(t_?k|kelvin)(_|$)`), Quantity: q.Temperature, Encoding: q.Linear, Unit: "K"},
}
