package geocube

import (
	"strings"
	"testing"

	"github.com/ctessum/sparse"
)

// testCube builds a small realized cube with a dimension coordinate and
// a scalar coordinate.
func testCube(t *testing.T) *Cube {
	t.Helper()
	data := sparse.ZerosDense(3, 2)
	for i := range data.Elements {
		data.Elements[i] = float64(i)
	}
	c, err := NewCube("air_temperature", mustUnit(t, "K"), data, Float64, 1e20)
	if err != nil {
		t.Fatal(err)
	}
	tc, err := NewDimCoord("time", mustUnit(t, "hours since 1970-01-01 00:00:00"),
		[]float64{0, 6, 12}, 0, nil, Float64)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.AddCoordinate(tc); err != nil {
		t.Fatal(err)
	}
	sc, err := NewScalarCoord("height", mustUnit(t, "m"), 1.5, nil, Float64)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.AddCoordinate(sc); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestAddCoordinate(t *testing.T) {
	c := testCube(t)

	// Extent mismatch.
	bad, err := NewDimCoord("latitude", mustUnit(t, "degrees_north"),
		[]float64{0, 1, 2}, 1, nil, Float64)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.AddCoordinate(bad); err == nil {
		t.Error("expected error for extent mismatch")
	} else if _, ok := err.(*StructuralError); !ok {
		t.Errorf("error type %T, want *StructuralError", err)
	}

	// Out-of-range dimension.
	oor, err := NewDimCoord("level", mustUnit(t, "1"), []float64{0, 1, 2}, 5, nil, Float64)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.AddCoordinate(oor); err == nil {
		t.Error("expected error for out-of-range dimension")
	}

	// A second dimension coordinate on an occupied dimension.
	dup, err := NewDimCoord("time2", mustUnit(t, "hours since 1970-01-01"),
		[]float64{0, 1, 2}, 0, nil, Float64)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.AddCoordinate(dup); err == nil {
		t.Error("expected error for second dimension coordinate on dimension 0")
	}

	// Same name with the same mapping.
	same, err := NewScalarCoord("height", mustUnit(t, "m"), 2.5, nil, Float64)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.AddCoordinate(same); err == nil {
		t.Error("expected error for duplicate coordinate name within a mapping")
	}

	if err := c.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestAddAttribute(t *testing.T) {
	c := testCube(t)
	if err := c.AddAttribute("source", "unified model"); err != nil {
		t.Fatal(err)
	}
	if err := c.AddAttribute("version", 3); err != nil {
		t.Fatal(err)
	}
	if err := c.AddAttribute("source", "other"); err == nil {
		t.Error("expected error for duplicate attribute name")
	}
	if err := c.AddAttribute("bag", []int{1, 2}); err == nil {
		t.Error("expected error for non-scalar attribute value")
	}
	if v, ok := c.Attribute("source"); !ok || v != "unified model" {
		t.Errorf("Attribute(source) = %v, %v", v, ok)
	}
}

func TestCubeNoCoordinates(t *testing.T) {
	data := sparse.ZerosDense(4)
	c, err := NewCube("air_pressure", mustUnit(t, "Pa"), data, Float64, 1e20)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("a cube with no coordinates must validate: %v", err)
	}
	if c.Checksum() == "" {
		t.Error("checksum should not be empty")
	}
}

func TestZeroLengthData(t *testing.T) {
	data := sparse.ZerosDense(0)
	c, err := NewCube("air_pressure", mustUnit(t, "Pa"), data, Float64, 1e20)
	if err != nil {
		t.Fatal(err)
	}
	coord, err := NewDimCoord("time", mustUnit(t, "s"), nil, 0, nil, Float64)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.AddCoordinate(coord); err != nil {
		t.Fatal(err)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("a cube with a zero-length dimension must validate: %v", err)
	}
	sum := c.Checksum()
	if !strings.HasPrefix(sum, "0x") || len(sum) != 18 {
		t.Errorf("checksum %q is not 0x plus 16 hex digits", sum)
	}
}

func TestChecksumSensitivity(t *testing.T) {
	mk := func() *Cube {
		data := sparse.ZerosDense(2, 3)
		for i := range data.Elements {
			data.Elements[i] = float64(i) * 1.5
		}
		c, err := NewCube("x", mustUnit(t, "m"), data, Float64, 1e20)
		if err != nil {
			t.Fatal(err)
		}
		return c
	}

	a, b := mk(), mk()
	if a.Checksum() != b.Checksum() {
		t.Error("independently constructed cubes with identical shape/dtype/values must have equal checksums")
	}

	// A single differing cell must change the checksum.
	if err := b.SetElement(99, 1, 2); err != nil {
		t.Fatal(err)
	}
	if a.Checksum() == b.Checksum() {
		t.Error("checksum insensitive to a differing data cell")
	}

	// A differing fill value must change the checksum.
	data := sparse.ZerosDense(2, 3)
	for i := range data.Elements {
		data.Elements[i] = float64(i) * 1.5
	}
	f, err := NewCube("x", mustUnit(t, "m"), data, Float64, -9999)
	if err != nil {
		t.Fatal(err)
	}
	if f.Checksum() == a.Checksum() {
		t.Error("checksum insensitive to the fill value")
	}

	// A differing dtype must change the checksum.
	data2 := sparse.ZerosDense(2, 3)
	for i := range data2.Elements {
		data2.Elements[i] = float64(i) * 1.5
	}
	g, err := NewCube("x", mustUnit(t, "m"), data2, Float32, 1e20)
	if err != nil {
		t.Fatal(err)
	}
	if g.Checksum() == a.Checksum() {
		t.Error("checksum insensitive to dtype")
	}
}

func TestChecksumInvalidation(t *testing.T) {
	c := testCube(t)
	before := c.Checksum()

	// Direct mutation of the data array followed by Invalidate must
	// force recomputation.
	c.Data().Elements[0] = 123
	c.Invalidate()
	if c.Checksum() == before {
		t.Error("checksum not recomputed after Invalidate")
	}
}

func TestUnrealized(t *testing.T) {
	c := testCube(t)
	u, err := NewUnrealized(c.StandardName(), c.Units(), c.Shape(), c.DType(),
		c.FillValue(), c.Checksum())
	if err != nil {
		t.Fatal(err)
	}
	if u.Realized() {
		t.Error("unrealized cube reports Realized")
	}
	if u.Checksum() != c.Checksum() {
		t.Errorf("unrealized checksum %s, want %s", u.Checksum(), c.Checksum())
	}
	if err := u.SetElement(1, 0, 0); err == nil {
		t.Error("expected error setting data on an unrealized cube")
	}
	if _, err := NewUnrealized("x", nil, []int{1}, Float64, 0, ""); err == nil {
		t.Error("expected error for unrealized cube without checksum")
	}
}

func TestSetUnlimited(t *testing.T) {
	c := testCube(t)
	if err := c.SetUnlimited(0); err != nil {
		t.Fatal(err)
	}
	if !c.Unlimited(0) || c.Unlimited(1) {
		t.Error("unlimited flags wrong")
	}
	if err := c.SetUnlimited(7); err == nil {
		t.Error("expected error for out-of-range dimension")
	}
}
