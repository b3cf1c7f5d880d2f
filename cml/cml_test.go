package cml

import (
	"strings"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/geocube"
	"github.com/spatialmodel/geocube/coordsys"
	"github.com/spatialmodel/geocube/units"
)

func mustUnit(t *testing.T, text, calendar string) *units.Unit {
	t.Helper()
	u, err := units.ParseCalendar(text, calendar)
	if err != nil {
		t.Fatal(err)
	}
	return u
}

// forecastCube builds the air_pressure_at_sea_level scenario: shape
// (10, 432, 720), float64, a forecast_period dimension coordinate of 10
// monotonically increasing hour offsets, and a scalar
// forecast_reference_time coordinate.
func forecastCube(t *testing.T) *geocube.Cube {
	t.Helper()
	data := sparse.ZerosDense(10, 432, 720)
	for i := range data.Elements {
		data.Elements[i] = 100000 + float64(i%1000)
	}
	c, err := geocube.NewCube("air_pressure_at_sea_level",
		mustUnit(t, "Pa", ""), data, geocube.Float64, 1e20)
	if err != nil {
		t.Fatal(err)
	}

	sys := coordsys.RotatedGeogCS{
		EllipsoidRadius:        6371229,
		GridNorthPoleLatitude:  37.5,
		GridNorthPoleLongitude: 177.5,
	}

	fp, err := geocube.NewDimCoord("forecast_period",
		mustUnit(t, "hours since 2010-11-02 00:00:00", "gregorian"),
		[]float64{0, 6, 12, 18, 24, 30, 36, 42, 48, 54}, 0, nil, geocube.Float64)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.AddCoordinate(fp); err != nil {
		t.Fatal(err)
	}

	lat := make([]float64, 432)
	for i := range lat {
		lat[i] = -90 + float64(i)*0.4166
	}
	latc, err := geocube.NewDimCoord("grid_latitude",
		mustUnit(t, "degrees", ""), lat, 1, sys, geocube.Float32)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.AddCoordinate(latc); err != nil {
		t.Fatal(err)
	}

	lon := make([]float64, 720)
	for i := range lon {
		lon[i] = float64(i) * 0.5
	}
	lonc, err := geocube.NewDimCoord("grid_longitude",
		mustUnit(t, "degrees", ""), lon, 2, sys, geocube.Float32)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.AddCoordinate(lonc); err != nil {
		t.Fatal(err)
	}

	ref, err := geocube.NewScalarCoord("forecast_reference_time",
		mustUnit(t, "hours since 1970-01-01 00:00:00", "gregorian"),
		357912, nil, geocube.Float64)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.AddCoordinate(ref); err != nil {
		t.Fatal(err)
	}

	if err := c.AddAttribute("source", "Data from Met Office Unified Model"); err != nil {
		t.Fatal(err)
	}
	if err := c.AddAttribute("um_version", 7.3); err != nil {
		t.Fatal(err)
	}
	c.AddCellMethod(geocube.CellMethod{
		Method: "mean", Coords: []string{"time"}, Intervals: []string{"1 hour"},
	})
	return c
}

func TestRoundTrip(t *testing.T) {
	orig := forecastCube(t)
	text, err := MarshalCube(orig, nil)
	if err != nil {
		t.Fatal(err)
	}

	back, err := UnmarshalCube(text)
	if err != nil {
		t.Fatal(err)
	}
	if back.Realized() {
		t.Error("deserialized cube must not hold a data array")
	}
	if diffs := geocube.Diff(orig, back); len(diffs) != 0 {
		t.Errorf("round trip changed the cube:\n%s", strings.Join(diffs, "\n"))
	}

	// The scenario's specific requirements.
	if back.StandardName() != "air_pressure_at_sea_level" {
		t.Errorf("standard_name = %q", back.StandardName())
	}
	if !sameInts(back.Shape(), []int{10, 432, 720}) {
		t.Errorf("shape = %v", back.Shape())
	}
	if !back.Units().Equal(orig.Units()) {
		t.Errorf("units = %v", back.Units())
	}
	for _, name := range []string{"forecast_period", "forecast_reference_time"} {
		oc, bc := orig.Coord(name), back.Coord(name)
		if bc == nil {
			t.Fatalf("coordinate %q missing after round trip", name)
		}
		if oc.Identity() != bc.Identity() {
			t.Errorf("coordinate %q identity changed: %s != %s",
				name, bc.Identity(), oc.Identity())
		}
	}
}

func sameInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRoundTripCollection(t *testing.T) {
	a := forecastCube(t)

	data := sparse.ZerosDense(4)
	b, err := geocube.NewCube("air_temperature", mustUnit(t, "K", ""),
		data, geocube.Float32, -9999)
	if err != nil {
		t.Fatal(err)
	}

	text, err := Marshal(geocube.CubeList{a, b}, nil)
	if err != nil {
		t.Fatal(err)
	}
	back, err := Unmarshal(text)
	if err != nil {
		t.Fatal(err)
	}
	if len(back) != 2 {
		t.Fatalf("got %d cubes, want 2", len(back))
	}
	if !geocube.Equal(a, back[0]) {
		t.Errorf("first cube changed:\n%s", strings.Join(geocube.Diff(a, back[0]), "\n"))
	}
	if !geocube.Equal(b, back[1]) {
		t.Errorf("second cube changed:\n%s", strings.Join(geocube.Diff(b, back[1]), "\n"))
	}
}

func TestCubeWithoutCoordinates(t *testing.T) {
	data := sparse.ZerosDense(3)
	c, err := geocube.NewCube("air_pressure", mustUnit(t, "Pa", ""),
		data, geocube.Float64, 1e20)
	if err != nil {
		t.Fatal(err)
	}
	text, err := MarshalCube(c, nil)
	if err != nil {
		t.Fatal(err)
	}
	back, err := UnmarshalCube(text)
	if err != nil {
		t.Fatal(err)
	}
	if !geocube.Equal(c, back) {
		t.Errorf("round trip changed the cube:\n%s", strings.Join(geocube.Diff(c, back), "\n"))
	}
}

func TestZeroLengthCoordinate(t *testing.T) {
	data := sparse.ZerosDense(0)
	c, err := geocube.NewCube("air_pressure", mustUnit(t, "Pa", ""),
		data, geocube.Float64, 1e20)
	if err != nil {
		t.Fatal(err)
	}
	coord, err := geocube.NewDimCoord("time", mustUnit(t, "s", ""),
		nil, 0, nil, geocube.Float64)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.AddCoordinate(coord); err != nil {
		t.Fatal(err)
	}
	text, err := MarshalCube(c, nil)
	if err != nil {
		t.Fatal(err)
	}
	back, err := UnmarshalCube(text)
	if err != nil {
		t.Fatal(err)
	}
	if !geocube.Equal(c, back) {
		t.Errorf("round trip changed the cube:\n%s", strings.Join(geocube.Diff(c, back), "\n"))
	}
}

func TestUnlimitedSurvivesRoundTrip(t *testing.T) {
	c := forecastCube(t)
	if err := c.SetUnlimited(0); err != nil {
		t.Fatal(err)
	}
	text, err := MarshalCube(c, nil)
	if err != nil {
		t.Fatal(err)
	}
	back, err := UnmarshalCube(text)
	if err != nil {
		t.Fatal(err)
	}
	if !back.Unlimited(0) {
		t.Error("unlimited flag lost in round trip")
	}
}

func TestDisplayTruncation(t *testing.T) {
	c := forecastCube(t)

	display, err := MarshalCube(c, &Options{Display: true})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(display), Ellipsis) {
		t.Error("display mode did not truncate long point sequences")
	}

	// Strict parsing of a truncated rendering must fail loudly.
	_, err = UnmarshalCube(display)
	if err == nil {
		t.Fatal("expected error parsing a truncated rendering")
	}
	if _, ok := err.(*geocube.TruncatedDataError); !ok {
		t.Errorf("error type %T, want *geocube.TruncatedDataError", err)
	}

	// Strict mode must never truncate.
	strict, err := MarshalCube(c, nil)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(strict), Ellipsis) {
		t.Error("strict mode truncated points")
	}
}

func TestDisplayPointSplit(t *testing.T) {
	points := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	got := fmtPoints(points, &Options{Display: true, MaxPoints: 5})
	if want := "[0, 1, ..., 7, 8, 9]"; got != want {
		t.Errorf("fmtPoints = %q, want %q", got, want)
	}
}

func TestUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"malformed xml", "<cubes"},
		{"unknown namespace", `<cubes xmlns="urn:x-other:foo"></cubes>`},
		{"bad dtype", `<?xml version="1.0"?>
<cubes xmlns="urn:x-iris:cubeml-0.2">
  <cube core-dtype="float64" dtype="complex128" fill_value="0" standard_name="x" units="m">
    <attributes></attributes><coords></coords><cellMethods></cellMethods>
    <data checksum="0xabcd" dtype="complex128" shape="(1,)"></data>
  </cube>
</cubes>`},
		{"shape mismatch", `<?xml version="1.0"?>
<cubes xmlns="urn:x-iris:cubeml-0.2">
  <cube core-dtype="float64" dtype="float64" fill_value="0" standard_name="x" units="m">
    <attributes></attributes>
    <coords>
      <coord datadims="[0]">
        <dimCoord id="" points="[0, 1]" shape="(3,)" standard_name="t" units="s" value_type="float64"></dimCoord>
      </coord>
    </coords>
    <cellMethods></cellMethods>
    <data checksum="0xabcd" dtype="float64" shape="(3,)"></data>
  </cube>
</cubes>`},
	}
	for _, test := range tests {
		if _, err := Unmarshal([]byte(test.text)); err == nil {
			t.Errorf("%s: expected error", test.name)
		}
	}
}

func TestIdentityIntegrityCheck(t *testing.T) {
	c := forecastCube(t)
	text, err := MarshalCube(c, nil)
	if err != nil {
		t.Fatal(err)
	}
	// Corrupt a coordinate's recorded identity token.
	id := c.Coord("forecast_period").Identity()
	corrupted := strings.Replace(string(text), id, "0000000000000000", 1)
	if corrupted == string(text) {
		t.Fatal("identity token not found in serialized text")
	}
	if _, err := UnmarshalCube([]byte(corrupted)); err == nil {
		t.Error("expected error for corrupted identity token")
	}
}

func TestMercatorParameterExact(t *testing.T) {
	data := sparse.ZerosDense(2)
	c, err := geocube.NewCube("sea_surface_height", mustUnit(t, "m", ""),
		data, geocube.Float64, 1e20)
	if err != nil {
		t.Fatal(err)
	}
	sys := coordsys.Mercator{
		SemiMajorAxis: 6377563.396,
		SemiMinorAxis: 6356256.909,
		ScaleFactor:   0.9996012717,
	}
	x, err := geocube.NewDimCoord("projection_x_coordinate",
		mustUnit(t, "m", ""), []float64{0, 1000}, 0, sys, geocube.Float64)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.AddCoordinate(x); err != nil {
		t.Fatal(err)
	}

	text, err := MarshalCube(c, nil)
	if err != nil {
		t.Fatal(err)
	}
	back, err := UnmarshalCube(text)
	if err != nil {
		t.Fatal(err)
	}
	got := back.Coord("projection_x_coordinate").System()
	m, ok := got.(coordsys.Mercator)
	if !ok {
		t.Fatalf("coordinate system type %T, want coordsys.Mercator", got)
	}
	if m.SemiMajorAxis != 6377563.396 {
		t.Errorf("semi_major_axis = %v, want exactly 6377563.396", m.SemiMajorAxis)
	}
}
