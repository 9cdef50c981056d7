// Package units normalises physical length unit symbols and converts lengths
// between them.
package units

import (
	"html"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"
)

// ErrUnknownUnit is returned for a unit missing from the conversion table.
var ErrUnknownUnit = errors.New("unknown unit")

// Nanometre is the unit physical pixel sizes are converted to by default.
const Nanometre = "nm"

// Micrometre is the canonical micrometre symbol (U+00B5 MICRO SIGN).
const Micrometre = "µm"

// factors holds the length of each unit in nanometres.
var factors = map[string]float64{
	"pm":       1e-3,
	"Å":        1e-1,
	Nanometre:  1,
	Micrometre: 1e3,
	"mm":       1e6,
	"cm":       1e7,
	"dm":       1e8,
	"m":        1e9,
	"km":       1e12,
	"in":       2.54e7,
	"ft":       3.048e8,
}

var aliases = map[string]string{
	"um":          Micrometre,
	"μm":          Micrometre, // U+03BC GREEK SMALL LETTER MU
	"micron":      Micrometre,
	"microns":     Micrometre,
	"micrometer":  Micrometre,
	"micrometre":  Micrometre,
	"micrometers": Micrometre,
	"micrometres": Micrometre,
	"nanometer":   Nanometre,
	"nanometre":   Nanometre,
	"nanometers":  Nanometre,
	"nanometres":  Nanometre,
	"millimeter":  "mm",
	"millimetre":  "mm",
	"picometer":   "pm",
	"picometre":   "pm",
	"angstrom":    "Å",
	"meter":       "m",
	"metre":       "m",
	"inch":        "in",
	"foot":        "ft",
}

// Normalize returns the canonical symbol of unit. HTML entities are decoded
// and the result is put in Unicode NFKC form before known spellings are
// folded, so "&#181;m", "&micro;m", "μm" and "um" all become "µm".
func Normalize(unit string) string {
	unit = strings.TrimSpace(html.UnescapeString(unit))
	unit = norm.NFKC.String(unit)
	// NFKC maps MICRO SIGN to GREEK SMALL LETTER MU, fold it back
	if canonical, ok := aliases[unit]; ok {
		return canonical
	}
	// symbols are case sensitive, spelled out names are not
	if len(unit) > 2 {
		if canonical, ok := aliases[strings.ToLower(unit)]; ok {
			return canonical
		}
	}

	return unit
}

// Known reports whether unit, once normalised, can be converted.
func Known(unit string) bool {
	_, ok := factors[Normalize(unit)]

	return ok
}

// Convert expresses value given in unit from in unit to. Converting to the
// same unit returns value unchanged.
func Convert(value float64, from, to string) (float64, error) {
	from, to = Normalize(from), Normalize(to)
	if from == to {
		if _, ok := factors[from]; !ok {
			return 0, errors.Wrapf(ErrUnknownUnit, "%q", from)
		}

		return value, nil
	}
	fromFactor, ok := factors[from]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownUnit, "%q", from)
	}
	toFactor, ok := factors[to]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownUnit, "%q", to)
	}

	return value * fromFactor / toFactor, nil
}
