package coordsys

import (
	"strings"
	"testing"
)

func TestEqual(t *testing.T) {
	a := Mercator{
		SemiMajorAxis: 6377563.396,
		SemiMinorAxis: 6356256.909,
		ScaleFactor:   0.9996012717,
	}
	b := a
	if !a.Equal(b) {
		t.Error("identical systems should be equal")
	}
	b.SemiMajorAxis = 6377563.3960001
	if a.Equal(b) {
		t.Error("equality must be exact, not approximate")
	}
	r := RotatedGeogCS{EllipsoidRadius: 6371229, GridNorthPoleLatitude: 37.5}
	if a.Equal(r) {
		t.Error("different variants should not be equal")
	}
}

func TestStringParseRoundTrip(t *testing.T) {
	systems := []System{
		GeogCS{SemiMajorAxis: 6378137, SemiMinorAxis: 6356752.314},
		RotatedGeogCS{
			EllipsoidRadius:        6371229,
			GridNorthPoleLatitude:  37.5,
			GridNorthPoleLongitude: 177.5,
		},
		Mercator{
			SemiMajorAxis:               6377563.396,
			SemiMinorAxis:               6356256.909,
			LongitudeOfProjectionOrigin: -2,
			FalseEasting:                400000,
			FalseNorthing:               -100000,
			ScaleFactor:                 0.9996012717,
		},
		TransverseMercator{
			SemiMajorAxis:              6377563.396,
			SemiMinorAxis:              6356256.909,
			LatitudeOfProjectionOrigin: 49,
			LongitudeOfCentralMeridian: -2,
			FalseEasting:               400000,
			FalseNorthing:              -100000,
			ScaleFactor:                0.9996012717,
		},
		LambertConformal{
			SemiMajorAxis:              6370997,
			SemiMinorAxis:              6370997,
			LatitudeOfProjectionOrigin: 40,
			LongitudeOfCentralMeridian: -97,
			StandardParallel1:          33,
			StandardParallel2:          45,
		},
	}
	for _, s := range systems {
		got, err := Parse(String(s))
		if err != nil {
			t.Errorf("%s: %v", s.Name(), err)
			continue
		}
		if !s.Equal(got) {
			t.Errorf("%s: round trip changed the system: %s != %s",
				s.Name(), String(got), String(s))
		}
	}
}

func TestFromGridMapping(t *testing.T) {
	s, err := FromGridMapping("mercator", map[string]float64{
		"semi_major_axis": 6377563.396,
	})
	if err != nil {
		t.Fatal(err)
	}
	m, ok := s.(Mercator)
	if !ok {
		t.Fatalf("got %T, want Mercator", s)
	}
	if m.SemiMajorAxis != 6377563.396 {
		t.Errorf("semi_major_axis = %v, want exactly 6377563.396", m.SemiMajorAxis)
	}

	// CF grid_mapping_name aliases resolve to the same variants.
	s2, err := FromGridMapping("rotated_latitude_longitude", map[string]float64{
		"grid_north_pole_latitude": 37.5,
	})
	if err != nil {
		t.Fatal(err)
	}
	if s2.Name() != "rotatedGeogCS" {
		t.Errorf("variant = %q, want rotatedGeogCS", s2.Name())
	}

	if _, err := FromGridMapping("polarStereographic", nil); err == nil {
		t.Error("expected error for unknown variant")
	}
	if _, err := FromGridMapping("mercator", map[string]float64{"tilt": 1}); err == nil {
		t.Error("expected error for unknown parameter")
	}
}

func TestParseErrors(t *testing.T) {
	for _, text := range []string{
		"mercator",
		"mercator(semi_major_axis)",
		"mercator(semi_major_axis=abc)",
		"unknownCS(x=1)",
	} {
		if _, err := Parse(text); err == nil {
			t.Errorf("Parse(%q): expected error", text)
		} else if _, ok := err.(*FormatError); !ok {
			t.Errorf("Parse(%q): error type %T, want *FormatError", text, err)
		}
	}
}

func TestProj4(t *testing.T) {
	m := Mercator{SemiMajorAxis: 6377563.396, SemiMinorAxis: 6356256.909, ScaleFactor: 1}
	p := m.Proj4()
	for _, want := range []string{"+proj=merc", "+a=6377563.396", "+b=6356256.909"} {
		if !strings.Contains(p, want) {
			t.Errorf("Proj4() = %q: missing %q", p, want)
		}
	}
	lcc := LambertConformal{
		SemiMajorAxis: 6370997, SemiMinorAxis: 6370997,
		LatitudeOfProjectionOrigin: 40, LongitudeOfCentralMeridian: -97,
		StandardParallel1: 33, StandardParallel2: 45,
	}
	if _, err := SR(lcc); err != nil {
		t.Errorf("SR: %v", err)
	}
}
