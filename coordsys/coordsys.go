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

// Package coordsys represents the geodetic and map-projection reference
// frames that may be attached to cube coordinates. Each system is a fixed
// record of named numeric parameters; parameters are configuration values,
// so equality is exact rather than approximate.
package coordsys

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ctessum/geom/proj"
)

// Param is one named numeric parameter of a coordinate system.
type Param struct {
	Name  string
	Value float64
}

// System is a geodetic or projection reference frame. Implementations
// are value types; none of them references a coordinate or a cube.
type System interface {
	// Name returns the system's variant name as used in the CML form,
	// e.g. "rotatedGeogCS".
	Name() string
	// GridMappingName returns the CF grid_mapping_name used in the
	// CDL form, e.g. "rotated_latitude_longitude".
	GridMappingName() string
	// Params returns the system's parameters in their canonical order.
	Params() []Param
	// Proj4 returns a proj4 initialization string for the system.
	Proj4() string
	// Equal reports whether o is the same variant with exactly equal
	// parameters.
	Equal(o System) bool
}

// FormatError reports a malformed coordinate-system descriptor or an
// unknown variant or parameter name.
type FormatError struct {
	Text   string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("coordsys: invalid coordinate system %q: %s", e.Text, e.Reason)
}

// SR resolves a System to a spatial reference through its proj4 string.
func SR(s System) (*proj.SR, error) {
	return proj.Parse(s.Proj4())
}

// equal is the shared exact-comparison implementation.
func equal(a, b System) bool {
	if a.Name() != b.Name() {
		return false
	}
	pa, pb := a.Params(), b.Params()
	for i := range pa {
		if pa[i] != pb[i] {
			return false
		}
	}
	return true
}

// GeogCS is a geographic (latitude-longitude) coordinate system on an
// ellipsoid defined by its semi-major and semi-minor axis lengths [m].
type GeogCS struct {
	SemiMajorAxis float64
	SemiMinorAxis float64
}

func (s GeogCS) Name() string            { return "geogCS" }
func (s GeogCS) GridMappingName() string { return "latitude_longitude" }

func (s GeogCS) Params() []Param {
	return []Param{
		{"semi_major_axis", s.SemiMajorAxis},
		{"semi_minor_axis", s.SemiMinorAxis},
	}
}

func (s GeogCS) Proj4() string {
	return fmt.Sprintf("+proj=longlat +a=%s +b=%s +no_defs",
		pftoa(s.SemiMajorAxis), pftoa(s.SemiMinorAxis))
}

func (s GeogCS) Equal(o System) bool { return equal(s, o) }

// RotatedGeogCS is a rotated-pole latitude-longitude system on a sphere
// of the given radius [m]. The grid north pole is at the given true
// latitude and longitude [degrees].
type RotatedGeogCS struct {
	EllipsoidRadius        float64
	GridNorthPoleLatitude  float64
	GridNorthPoleLongitude float64
	NorthPoleGridLongitude float64
}

func (s RotatedGeogCS) Name() string            { return "rotatedGeogCS" }
func (s RotatedGeogCS) GridMappingName() string { return "rotated_latitude_longitude" }

func (s RotatedGeogCS) Params() []Param {
	return []Param{
		{"ellipsoid_radius", s.EllipsoidRadius},
		{"grid_north_pole_latitude", s.GridNorthPoleLatitude},
		{"grid_north_pole_longitude", s.GridNorthPoleLongitude},
		{"north_pole_grid_longitude", s.NorthPoleGridLongitude},
	}
}

func (s RotatedGeogCS) Proj4() string {
	return fmt.Sprintf("+proj=ob_tran +o_proj=longlat +o_lat_p=%s +o_lon_p=%s +lon_0=%s +a=%s +no_defs",
		pftoa(s.GridNorthPoleLatitude), pftoa(s.NorthPoleGridLongitude),
		pftoa(180+s.GridNorthPoleLongitude), pftoa(s.EllipsoidRadius))
}

func (s RotatedGeogCS) Equal(o System) bool { return equal(s, o) }

// Mercator is a Mercator projection.
type Mercator struct {
	SemiMajorAxis               float64
	SemiMinorAxis               float64
	LongitudeOfProjectionOrigin float64
	FalseEasting                float64
	FalseNorthing               float64
	ScaleFactor                 float64
}

func (s Mercator) Name() string            { return "mercator" }
func (s Mercator) GridMappingName() string { return "mercator" }

func (s Mercator) Params() []Param {
	return []Param{
		{"semi_major_axis", s.SemiMajorAxis},
		{"semi_minor_axis", s.SemiMinorAxis},
		{"longitude_of_projection_origin", s.LongitudeOfProjectionOrigin},
		{"false_easting", s.FalseEasting},
		{"false_northing", s.FalseNorthing},
		{"scale_factor_at_projection_origin", s.ScaleFactor},
	}
}

func (s Mercator) Proj4() string {
	return fmt.Sprintf("+proj=merc +a=%s +b=%s +lon_0=%s +x_0=%s +y_0=%s +k_0=%s +no_defs",
		pftoa(s.SemiMajorAxis), pftoa(s.SemiMinorAxis),
		pftoa(s.LongitudeOfProjectionOrigin),
		pftoa(s.FalseEasting), pftoa(s.FalseNorthing), pftoa(s.ScaleFactor))
}

func (s Mercator) Equal(o System) bool { return equal(s, o) }

// TransverseMercator is a transverse Mercator projection.
type TransverseMercator struct {
	SemiMajorAxis              float64
	SemiMinorAxis              float64
	LatitudeOfProjectionOrigin float64
	LongitudeOfCentralMeridian float64
	FalseEasting               float64
	FalseNorthing              float64
	ScaleFactor                float64
}

func (s TransverseMercator) Name() string            { return "transverseMercator" }
func (s TransverseMercator) GridMappingName() string { return "transverse_mercator" }

func (s TransverseMercator) Params() []Param {
	return []Param{
		{"semi_major_axis", s.SemiMajorAxis},
		{"semi_minor_axis", s.SemiMinorAxis},
		{"latitude_of_projection_origin", s.LatitudeOfProjectionOrigin},
		{"longitude_of_central_meridian", s.LongitudeOfCentralMeridian},
		{"false_easting", s.FalseEasting},
		{"false_northing", s.FalseNorthing},
		{"scale_factor_at_central_meridian", s.ScaleFactor},
	}
}

func (s TransverseMercator) Proj4() string {
	return fmt.Sprintf("+proj=tmerc +a=%s +b=%s +lat_0=%s +lon_0=%s +x_0=%s +y_0=%s +k_0=%s +no_defs",
		pftoa(s.SemiMajorAxis), pftoa(s.SemiMinorAxis),
		pftoa(s.LatitudeOfProjectionOrigin), pftoa(s.LongitudeOfCentralMeridian),
		pftoa(s.FalseEasting), pftoa(s.FalseNorthing), pftoa(s.ScaleFactor))
}

func (s TransverseMercator) Equal(o System) bool { return equal(s, o) }

// LambertConformal is a Lambert conformal conic projection.
type LambertConformal struct {
	SemiMajorAxis              float64
	SemiMinorAxis              float64
	LatitudeOfProjectionOrigin float64
	LongitudeOfCentralMeridian float64
	StandardParallel1          float64
	StandardParallel2          float64
	FalseEasting               float64
	FalseNorthing              float64
}

func (s LambertConformal) Name() string            { return "lambertConformal" }
func (s LambertConformal) GridMappingName() string { return "lambert_conformal_conic" }

func (s LambertConformal) Params() []Param {
	return []Param{
		{"semi_major_axis", s.SemiMajorAxis},
		{"semi_minor_axis", s.SemiMinorAxis},
		{"latitude_of_projection_origin", s.LatitudeOfProjectionOrigin},
		{"longitude_of_central_meridian", s.LongitudeOfCentralMeridian},
		{"standard_parallel_1", s.StandardParallel1},
		{"standard_parallel_2", s.StandardParallel2},
		{"false_easting", s.FalseEasting},
		{"false_northing", s.FalseNorthing},
	}
}

func (s LambertConformal) Proj4() string {
	return fmt.Sprintf("+proj=lcc +a=%s +b=%s +lat_0=%s +lon_0=%s +lat_1=%s +lat_2=%s +x_0=%s +y_0=%s +no_defs",
		pftoa(s.SemiMajorAxis), pftoa(s.SemiMinorAxis),
		pftoa(s.LatitudeOfProjectionOrigin), pftoa(s.LongitudeOfCentralMeridian),
		pftoa(s.StandardParallel1), pftoa(s.StandardParallel2),
		pftoa(s.FalseEasting), pftoa(s.FalseNorthing))
}

func (s LambertConformal) Equal(o System) bool { return equal(s, o) }

// variants maps both the CML variant name and the CF grid_mapping_name
// of each system to a constructor from a parameter map.
var variants = map[string]func(map[string]float64) System{
	"geogCS": newGeogCS, "latitude_longitude": newGeogCS,
	"rotatedGeogCS": newRotatedGeogCS, "rotated_latitude_longitude": newRotatedGeogCS,
	"mercator":           newMercator,
	"transverseMercator": newTransverseMercator, "transverse_mercator": newTransverseMercator,
	"lambertConformal": newLambertConformal, "lambert_conformal_conic": newLambertConformal,
}

func newGeogCS(p map[string]float64) System {
	return GeogCS{
		SemiMajorAxis: p["semi_major_axis"],
		SemiMinorAxis: p["semi_minor_axis"],
	}
}

func newRotatedGeogCS(p map[string]float64) System {
	return RotatedGeogCS{
		EllipsoidRadius:        p["ellipsoid_radius"],
		GridNorthPoleLatitude:  p["grid_north_pole_latitude"],
		GridNorthPoleLongitude: p["grid_north_pole_longitude"],
		NorthPoleGridLongitude: p["north_pole_grid_longitude"],
	}
}

func newMercator(p map[string]float64) System {
	return Mercator{
		SemiMajorAxis:               p["semi_major_axis"],
		SemiMinorAxis:               p["semi_minor_axis"],
		LongitudeOfProjectionOrigin: p["longitude_of_projection_origin"],
		FalseEasting:                p["false_easting"],
		FalseNorthing:               p["false_northing"],
		ScaleFactor:                 p["scale_factor_at_projection_origin"],
	}
}

func newTransverseMercator(p map[string]float64) System {
	return TransverseMercator{
		SemiMajorAxis:              p["semi_major_axis"],
		SemiMinorAxis:              p["semi_minor_axis"],
		LatitudeOfProjectionOrigin: p["latitude_of_projection_origin"],
		LongitudeOfCentralMeridian: p["longitude_of_central_meridian"],
		FalseEasting:               p["false_easting"],
		FalseNorthing:              p["false_northing"],
		ScaleFactor:                p["scale_factor_at_central_meridian"],
	}
}

func newLambertConformal(p map[string]float64) System {
	return LambertConformal{
		SemiMajorAxis:              p["semi_major_axis"],
		SemiMinorAxis:              p["semi_minor_axis"],
		LatitudeOfProjectionOrigin: p["latitude_of_projection_origin"],
		LongitudeOfCentralMeridian: p["longitude_of_central_meridian"],
		StandardParallel1:          p["standard_parallel_1"],
		StandardParallel2:          p["standard_parallel_2"],
		FalseEasting:               p["false_easting"],
		FalseNorthing:              p["false_northing"],
	}
}

// FromGridMapping reconstructs a System from a variant name (either the
// CML variant name or the CF grid_mapping_name) and a parameter map.
// Unknown variant or parameter names result in a *FormatError.
func FromGridMapping(name string, params map[string]float64) (System, error) {
	mk, ok := variants[name]
	if !ok {
		return nil, &FormatError{Text: name, Reason: "unknown coordinate system variant"}
	}
	s := mk(params)
	known := make(map[string]struct{})
	for _, p := range s.Params() {
		known[p.Name] = struct{}{}
	}
	for name := range params {
		if _, ok := known[name]; !ok {
			return nil, &FormatError{Text: name,
				Reason: fmt.Sprintf("unknown parameter for %s", s.Name())}
		}
	}
	return s, nil
}

// String returns the canonical descriptor form of s, for example
// "mercator(false_easting=0, ..., semi_major_axis=6377563.396)".
func String(s System) string {
	parts := make([]string, len(s.Params()))
	for i, p := range s.Params() {
		parts[i] = p.Name + "=" + ftoa(p.Value)
	}
	return s.Name() + "(" + strings.Join(parts, ", ") + ")"
}

// Parse parses the descriptor form produced by String. It returns a
// *FormatError on malformed text, unknown variants, or unknown
// parameter names.
func Parse(text string) (System, error) {
	text = strings.TrimSpace(text)
	open := strings.Index(text, "(")
	if open < 0 || !strings.HasSuffix(text, ")") {
		return nil, &FormatError{Text: text, Reason: "expected name(param=value, ...)"}
	}
	name := text[:open]
	body := text[open+1 : len(text)-1]
	params := make(map[string]float64)
	if strings.TrimSpace(body) != "" {
		for _, kv := range strings.Split(body, ",") {
			eq := strings.Index(kv, "=")
			if eq < 0 {
				return nil, &FormatError{Text: text,
					Reason: fmt.Sprintf("malformed parameter %q", strings.TrimSpace(kv))}
			}
			k := strings.TrimSpace(kv[:eq])
			v, err := strconv.ParseFloat(strings.TrimSpace(kv[eq+1:]), 64)
			if err != nil {
				return nil, &FormatError{Text: text,
					Reason: fmt.Sprintf("malformed value for parameter %q", k)}
			}
			params[k] = v
		}
	}
	return FromGridMapping(name, params)
}

// SortedParams returns a copy of s's parameters sorted by name, for
// callers that need a name-ordered rather than canonical-ordered view.
func SortedParams(s System) []Param {
	ps := append([]Param(nil), s.Params()...)
	sort.Slice(ps, func(i, j int) bool { return ps[i].Name < ps[j].Name })
	return ps
}

// ftoa formats a parameter value with the shortest representation that
// round-trips exactly.
func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// pftoa formats a proj4 parameter value without exponent notation,
// because proj4 parsers tokenize on '+' and cannot read forms like
// "6.377563396e+06".
func pftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
