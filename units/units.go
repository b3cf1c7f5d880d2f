/*
Copyright © 2026 the GeoCube authors.
This file is part of GeoCube.

GeoCube is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

GeoCube is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with GeoCube.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package units represents the physical units of measure attached to cubes
// and coordinates. Unit strings follow the CF convention of
// space-separated unit tokens with integer exponents (for example
// "kg m-2 s-1"), plus time-reference units of the form
// "<time unit> since <epoch>" that may carry a named calendar.
package units

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ctessum/unit"
)

// Calendar is the name of a CF calendar attached to a time-reference unit.
type Calendar string

// The recognized CF calendars.
const (
	CalendarStandard           Calendar = "standard"
	CalendarGregorian          Calendar = "gregorian"
	CalendarProlepticGregorian Calendar = "proleptic_gregorian"
	CalendarNoLeap             Calendar = "noleap"
	Calendar365Day             Calendar = "365_day"
	CalendarAllLeap            Calendar = "all_leap"
	Calendar366Day             Calendar = "366_day"
	Calendar360Day             Calendar = "360_day"
	CalendarJulian             Calendar = "julian"
	CalendarNone               Calendar = "none"
)

var recognizedCalendars = map[Calendar]struct{}{
	CalendarStandard:           {},
	CalendarGregorian:          {},
	CalendarProlepticGregorian: {},
	CalendarNoLeap:             {},
	Calendar365Day:             {},
	CalendarAllLeap:            {},
	Calendar366Day:             {},
	Calendar360Day:             {},
	CalendarJulian:             {},
	CalendarNone:               {},
}

// FormatError reports a malformed unit string, an unknown unit token,
// or an unrecognized calendar name.
type FormatError struct {
	Text   string // the offending unit or calendar text
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("units: invalid unit %q: %s", e.Text, e.Reason)
}

// Unit is a parsed unit of measure. The zero value is not valid;
// use Parse or ParseCalendar.
type Unit struct {
	def      string
	calendar Calendar
	dims     unit.Dimensions
	timeRef  bool
}

// vocabulary maps unit tokens to their physical dimensions.
// Aliases (singular/plural, abbreviations) share a Dimensions value.
var vocabulary = map[string]unit.Dimensions{
	"1": {},

	"m": {unit.LengthDim: 1}, "meter": {unit.LengthDim: 1},
	"meters": {unit.LengthDim: 1}, "metre": {unit.LengthDim: 1},
	"metres": {unit.LengthDim: 1}, "km": {unit.LengthDim: 1},

	"g": {unit.MassDim: 1}, "kg": {unit.MassDim: 1},
	"gram": {unit.MassDim: 1}, "kilogram": {unit.MassDim: 1},

	"s": {unit.TimeDim: 1}, "sec": {unit.TimeDim: 1},
	"second": {unit.TimeDim: 1}, "seconds": {unit.TimeDim: 1},
	"min": {unit.TimeDim: 1}, "minute": {unit.TimeDim: 1},
	"minutes": {unit.TimeDim: 1}, "h": {unit.TimeDim: 1},
	"hr": {unit.TimeDim: 1}, "hour": {unit.TimeDim: 1},
	"hours": {unit.TimeDim: 1}, "d": {unit.TimeDim: 1},
	"day": {unit.TimeDim: 1}, "days": {unit.TimeDim: 1},

	"K": {unit.TemperatureDim: 1}, "kelvin": {unit.TemperatureDim: 1},

	"Pa": {unit.MassDim: 1, unit.LengthDim: -1, unit.TimeDim: -2},
	"hPa": {unit.MassDim: 1, unit.LengthDim: -1, unit.TimeDim: -2},
	"bar": {unit.MassDim: 1, unit.LengthDim: -1, unit.TimeDim: -2},

	"J": {unit.MassDim: 1, unit.LengthDim: 2, unit.TimeDim: -2},
	"W": {unit.MassDim: 1, unit.LengthDim: 2, unit.TimeDim: -3},

	"A": {unit.CurrentDim: 1},

	// Angular and pseudo-units are treated as dimensionless.
	"degrees": {}, "degree": {}, "radian": {}, "radians": {},
	"degrees_east": {}, "degrees_north": {}, "degrees_west": {},
	"degrees_south": {}, "percent": {}, "%": {}, "ppm": {}, "ppb": {},
	"count": {}, "no_unit": {}, "unknown": {},
}

// timeTokens are the unit tokens allowed on the left-hand side of a
// time-reference unit ("<token> since <epoch>").
var timeTokens = map[string]struct{}{
	"s": {}, "sec": {}, "second": {}, "seconds": {},
	"min": {}, "minute": {}, "minutes": {},
	"h": {}, "hr": {}, "hour": {}, "hours": {},
	"d": {}, "day": {}, "days": {},
}

// epochLayouts are the accepted forms for a time-reference epoch.
var epochLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

var tokenRe = regexp.MustCompile(`^([A-Za-z_%°]+|1)(-?[0-9]+)?$`)

// Parse parses a CF unit string. It returns a *FormatError if the text
// is malformed or contains a unit token that is not in the recognized
// vocabulary.
func Parse(text string) (*Unit, error) {
	return ParseCalendar(text, "")
}

// ParseCalendar parses a CF unit string together with a calendar name.
// The calendar may only be non-empty when the unit is a time-reference
// unit, and must be one of the recognized CF calendars; otherwise a
// *FormatError is returned.
func ParseCalendar(text, calendar string) (*Unit, error) {
	def := strings.Join(strings.Fields(text), " ")
	if def == "" {
		return nil, &FormatError{Text: text, Reason: "empty unit string"}
	}

	if i := strings.Index(def, " since "); i >= 0 {
		u, err := parseTimeReference(def, def[:i], def[i+len(" since "):])
		if err != nil {
			return nil, err
		}
		if calendar != "" {
			if _, ok := recognizedCalendars[Calendar(calendar)]; !ok {
				return nil, &FormatError{Text: calendar, Reason: "unrecognized calendar"}
			}
			u.calendar = Calendar(calendar)
		}
		return u, nil
	}

	if calendar != "" {
		return nil, &FormatError{Text: def,
			Reason: "calendar given for a unit that is not a time reference"}
	}

	dims := unit.Dimensions{}
	for _, tok := range strings.Fields(def) {
		m := tokenRe.FindStringSubmatch(tok)
		if m == nil {
			return nil, &FormatError{Text: def,
				Reason: fmt.Sprintf("malformed unit token %q", tok)}
		}
		base, ok := vocabulary[m[1]]
		if !ok {
			return nil, &FormatError{Text: def,
				Reason: fmt.Sprintf("unknown unit token %q", m[1])}
		}
		exp := 1
		if m[2] != "" {
			var err error
			exp, err = strconv.Atoi(m[2])
			if err != nil {
				return nil, &FormatError{Text: def,
					Reason: fmt.Sprintf("malformed exponent in token %q", tok)}
			}
		}
		for d, p := range base {
			dims[d] += p * exp
			if dims[d] == 0 {
				delete(dims, d)
			}
		}
	}
	return &Unit{def: def, dims: dims}, nil
}

func parseTimeReference(def, timePart, epochPart string) (*Unit, error) {
	if _, ok := timeTokens[timePart]; !ok {
		return nil, &FormatError{Text: def,
			Reason: fmt.Sprintf("%q is not a time unit", timePart)}
	}
	var ok bool
	for _, layout := range epochLayouts {
		if _, err := time.Parse(layout, epochPart); err == nil {
			ok = true
			break
		}
	}
	if !ok {
		return nil, &FormatError{Text: def,
			Reason: fmt.Sprintf("malformed epoch %q", epochPart)}
	}
	return &Unit{
		def:     def,
		dims:    unit.Dimensions{unit.TimeDim: 1},
		timeRef: true,
	}, nil
}

// IsTimeReference reports whether u is a time-reference unit
// (for example "hours since 1970-01-01 00:00:00").
func (u *Unit) IsTimeReference() bool { return u.timeRef }

// Calendar returns the calendar attached to u, or the empty string if
// u has no calendar.
func (u *Unit) Calendar() Calendar { return u.calendar }

// Dimensions returns the physical dimensions of u, resolved from the
// unit vocabulary. It is nil-safe for comparison via Matches.
func (u *Unit) Dimensions() unit.Dimensions { return u.dims }

// Compatible reports whether u and o share the same physical dimensions.
// Unlike Equal, it ignores the textual unit definition and calendar.
func (u *Unit) Compatible(o *Unit) bool {
	return u.dims.Matches(o.dims)
}

// Equal reports whether u and o have exactly equal unit text and
// calendar. There is no unit-conversion equivalence: "m" != "km".
func (u *Unit) Equal(o *Unit) bool {
	if u == nil || o == nil {
		return u == o
	}
	return u.def == o.def && u.calendar == o.calendar
}

// String returns the canonical round-trippable text form of u. The
// calendar, if any, is not part of the text form; it travels separately
// (see Calendar).
func (u *Unit) String() string { return u.def }
