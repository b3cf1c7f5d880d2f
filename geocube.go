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

// Package geocube models N-dimensional geophysical data arrays
// ("cubes") together with their coordinate, units, and provenance
// metadata, and verifies that cubes survive serialization round-trips
// through content-level checksums. The cml and cdl subpackages
// serialize cubes to the descriptive XML form and the netCDF/CDL text
// form; this package holds the data model itself.
package geocube

import (
	"fmt"

	"github.com/ctessum/sparse"
	"github.com/spatialmodel/geocube/units"
)

// Cube is the aggregate root: an N-dimensional data array plus its
// coordinates, attributes, cell methods, and identity metadata. A cube
// exclusively owns its coordinates, attributes, and cell methods; they
// are never shared across cubes.
//
// A cube is either realized (it holds its data array) or unrealized
// (reconstructed from serialized text, holding only the array's shape,
// dtype, and checksum — serialization never stores the array itself).
//
// Cubes are built fully formed and treated as immutable once handed to
// a serializer; any later mutation invalidates the cached checksum and
// forces recomputation before the next comparison.
type Cube struct {
	standardName string
	longName     string
	units        *units.Unit

	data      *sparse.DenseArray // nil for unrealized cubes
	shape     []int
	dtype     DType
	coreDType DType
	fill      float64

	attrs       []Attribute
	cellMethods []CellMethod
	coords      []*Coordinate
	unlimited   map[int]bool

	sum string // cached checksum; "" means not yet computed
}

// NewCube builds a realized cube around the given data array. The core
// dtype defaults to dtype; use SetCoreDType when the data carries a
// deferred conversion. fill is the value used for masked or missing
// cells.
func NewCube(standardName string, u *units.Unit, data *sparse.DenseArray,
	dtype DType, fill float64) (*Cube, error) {
	if data == nil {
		return nil, &StructuralError{Cube: standardName, Check: "no data array given"}
	}
	shape := append([]int(nil), data.Shape...)
	return &Cube{
		standardName: standardName,
		units:        u,
		data:         data,
		shape:        shape,
		dtype:        dtype,
		coreDType:    dtype,
		fill:         fill,
		unlimited:    make(map[int]bool),
	}, nil
}

// NewUnrealized builds a cube descriptor without its data array, as
// reconstructed by a deserializer: the checksum stands witness for the
// data content.
func NewUnrealized(standardName string, u *units.Unit, shape []int,
	dtype DType, fill float64, checksum string) (*Cube, error) {
	if checksum == "" {
		return nil, &StructuralError{Cube: standardName, Check: "unrealized cube has no checksum"}
	}
	return &Cube{
		standardName: standardName,
		units:        u,
		shape:        append([]int(nil), shape...),
		dtype:        dtype,
		coreDType:    dtype,
		fill:         fill,
		unlimited:    make(map[int]bool),
		sum:          checksum,
	}, nil
}

// StandardName returns the cube's standard name.
func (c *Cube) StandardName() string { return c.standardName }

// LongName returns the cube's long name, if any.
func (c *Cube) LongName() string { return c.longName }

// SetLongName sets the cube's long name.
func (c *Cube) SetLongName(name string) { c.longName = name }

// Name returns the standard name, falling back to the long name when no
// standard name is set.
func (c *Cube) Name() string {
	if c.standardName != "" {
		return c.standardName
	}
	return c.longName
}

// Units returns the cube's units.
func (c *Cube) Units() *units.Unit { return c.units }

// Shape returns the extents of the cube's data array.
func (c *Cube) Shape() []int { return c.shape }

// NDim returns the dimensionality of the cube's data array.
func (c *Cube) NDim() int { return len(c.shape) }

// DType returns the declared dtype of the data array.
func (c *Cube) DType() DType { return c.dtype }

// CoreDType returns the dtype of the data before any deferred
// conversion.
func (c *Cube) CoreDType() DType { return c.coreDType }

// SetCoreDType declares the pre-conversion dtype of the data array.
func (c *Cube) SetCoreDType(d DType) { c.coreDType = d }

// FillValue returns the value used for masked or missing cells.
func (c *Cube) FillValue() float64 { return c.fill }

// Data returns the realized data array, or nil for an unrealized cube.
// The returned array is owned by the cube; callers that modify it must
// call Invalidate before the next checksum comparison.
func (c *Cube) Data() *sparse.DenseArray { return c.data }

// Realized reports whether the cube holds its data array.
func (c *Cube) Realized() bool { return c.data != nil }

// AddCoordinate attaches a coordinate to the cube after checking it
// against the cube's shape: mapped dimensions must be distinct, in
// range, and have extents matching the coordinate's shape, at most one
// dimension coordinate may map each data dimension, and no two
// coordinates may share both name and dimension mapping.
func (c *Cube) AddCoordinate(coord *Coordinate) error {
	dims := coord.DataDims()
	seen := make(map[int]bool)
	for i, d := range dims {
		if d < 0 || d >= len(c.shape) {
			return &StructuralError{Cube: c.Name(),
				Check: fmt.Sprintf("coordinate %q maps dimension %d of a %d-dimensional cube",
					coord.Name(), d, len(c.shape))}
		}
		if seen[d] {
			return &StructuralError{Cube: c.Name(),
				Check: fmt.Sprintf("coordinate %q maps dimension %d twice", coord.Name(), d)}
		}
		seen[d] = true
		if coord.Shape()[i] != c.shape[d] {
			return &StructuralError{Cube: c.Name(),
				Check: fmt.Sprintf("coordinate %q extent %d does not match cube extent %d along dimension %d",
					coord.Name(), coord.Shape()[i], c.shape[d], d)}
		}
	}
	for _, other := range c.coords {
		if other.Name() == coord.Name() && sameDims(other.DataDims(), dims) {
			return &StructuralError{Cube: c.Name(),
				Check: fmt.Sprintf("duplicate coordinate %q for dimension mapping %v",
					coord.Name(), dims)}
		}
		if coord.Kind() == DimCoord && other.Kind() == DimCoord &&
			len(dims) == 1 && sameDims(other.DataDims(), dims) {
			return &StructuralError{Cube: c.Name(),
				Check: fmt.Sprintf("dimension %d already has dimension coordinate %q",
					dims[0], other.Name())}
		}
	}
	c.coords = append(c.coords, coord)
	c.sum = c.storedSum()
	return nil
}

func sameDims(a, b []int) bool {
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

// AddAttribute attaches a named scalar attribute. Names must be unique
// within the cube.
func (c *Cube) AddAttribute(name string, value interface{}) error {
	value, err := normalizeAttributeValue(value)
	if err != nil {
		return err
	}
	for _, a := range c.attrs {
		if a.Name == name {
			return &StructuralError{Cube: c.Name(),
				Check: fmt.Sprintf("duplicate attribute %q", name)}
		}
	}
	c.attrs = append(c.attrs, Attribute{Name: name, Value: value})
	c.sum = c.storedSum()
	return nil
}

// AddCellMethod appends a cell method record.
func (c *Cube) AddCellMethod(cm CellMethod) {
	c.cellMethods = append(c.cellMethods, cm)
	c.sum = c.storedSum()
}

// SetUnlimited marks a data dimension as growable (UNLIMITED in the CDL
// form).
func (c *Cube) SetUnlimited(dim int) error {
	if dim < 0 || dim >= len(c.shape) {
		return &StructuralError{Cube: c.Name(),
			Check: fmt.Sprintf("cannot mark dimension %d of a %d-dimensional cube unlimited",
				dim, len(c.shape))}
	}
	c.unlimited[dim] = true
	return nil
}

// Unlimited reports whether a data dimension is marked growable.
func (c *Cube) Unlimited(dim int) bool { return c.unlimited[dim] }

// Attributes returns the cube's attributes in insertion order.
func (c *Cube) Attributes() []Attribute { return c.attrs }

// Attribute returns the named attribute value.
func (c *Cube) Attribute(name string) (interface{}, bool) {
	for _, a := range c.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return nil, false
}

// CellMethods returns the cube's cell methods in insertion order.
func (c *Cube) CellMethods() []CellMethod { return c.cellMethods }

// Coords returns the cube's coordinates in insertion order.
func (c *Cube) Coords() []*Coordinate { return c.coords }

// DimCoords returns the cube's dimension coordinates.
func (c *Cube) DimCoords() []*Coordinate { return c.filterCoords(DimCoord) }

// AuxCoords returns the cube's auxiliary coordinates.
func (c *Cube) AuxCoords() []*Coordinate { return c.filterCoords(AuxCoord) }

func (c *Cube) filterCoords(kind CoordKind) []*Coordinate {
	var out []*Coordinate
	for _, coord := range c.coords {
		if coord.Kind() == kind {
			out = append(out, coord)
		}
	}
	return out
}

// Coord returns the first coordinate with the given name, or nil.
func (c *Cube) Coord(name string) *Coordinate {
	for _, coord := range c.coords {
		if coord.Name() == name {
			return coord
		}
	}
	return nil
}

// DimCoordFor returns the dimension coordinate mapped to data dimension
// dim, or nil if the dimension is anonymous.
func (c *Cube) DimCoordFor(dim int) *Coordinate {
	for _, coord := range c.coords {
		if coord.Kind() == DimCoord && len(coord.DataDims()) == 1 && coord.DataDims()[0] == dim {
			return coord
		}
	}
	return nil
}

// Validate checks the cross-entity invariants of the assembled cube and
// returns a *StructuralError naming the first violated sub-check.
// Serializers validate before emitting and after parsing.
func (c *Cube) Validate() error {
	if c.standardName == "" && c.longName == "" {
		return &StructuralError{Cube: "", Check: "cube has neither standard name nor long name"}
	}
	dimCoordsSeen := make(map[int]string)
	for _, coord := range c.coords {
		dims := coord.DataDims()
		seen := make(map[int]bool)
		for i, d := range dims {
			if d < 0 || d >= len(c.shape) {
				return &StructuralError{Cube: c.Name(),
					Check: fmt.Sprintf("coordinate %q maps dimension %d of a %d-dimensional cube",
						coord.Name(), d, len(c.shape))}
			}
			if seen[d] {
				return &StructuralError{Cube: c.Name(),
					Check: fmt.Sprintf("coordinate %q maps dimension %d twice", coord.Name(), d)}
			}
			seen[d] = true
			if coord.Shape()[i] != c.shape[d] {
				return &StructuralError{Cube: c.Name(),
					Check: fmt.Sprintf("coordinate %q extent %d does not match cube extent %d along dimension %d",
						coord.Name(), coord.Shape()[i], c.shape[d], d)}
			}
		}
		if coord.Kind() == DimCoord {
			if len(dims) != 1 {
				return &StructuralError{Cube: c.Name(),
					Check: fmt.Sprintf("dimension coordinate %q maps %d dimensions", coord.Name(), len(dims))}
			}
			if prev, ok := dimCoordsSeen[dims[0]]; ok {
				return &StructuralError{Cube: c.Name(),
					Check: fmt.Sprintf("dimension %d has dimension coordinates %q and %q",
						dims[0], prev, coord.Name())}
			}
			dimCoordsSeen[dims[0]] = coord.Name()
		}
	}
	if c.data != nil && !sameDims(c.data.Shape, c.shape) {
		return &StructuralError{Cube: c.Name(),
			Check: fmt.Sprintf("data array shape %v does not match declared shape %v",
				c.data.Shape, c.shape)}
	}
	return nil
}

// Checksum returns the value-level hash of the cube's realized data,
// keyed by dtype, shape, and fill value. The result is cached; any
// mutation through this package invalidates the cache, and callers that
// modify the data array directly must call Invalidate first. For an
// unrealized cube the checksum recorded at parse time is returned.
func (c *Cube) Checksum() string {
	if c.sum == "" {
		c.sum = dataChecksum(c.dtype, c.shape, c.fill, c.data.Elements)
	}
	return c.sum
}

// Invalidate discards the cached checksum so that the next call to
// Checksum recomputes it from the data array. It has no effect on an
// unrealized cube, whose recorded checksum is its only data witness.
func (c *Cube) Invalidate() {
	if c.data != nil {
		c.sum = ""
	}
}

// storedSum preserves a parse-time checksum across metadata mutation on
// an unrealized cube, and clears the cache on a realized one.
func (c *Cube) storedSum() string {
	if c.data == nil {
		return c.sum
	}
	return ""
}

// SetElement sets one data cell and invalidates the cached checksum.
// It fails on an unrealized cube.
func (c *Cube) SetElement(v float64, index ...int) error {
	if c.data == nil {
		return &StructuralError{Cube: c.Name(), Check: "cannot set data on an unrealized cube"}
	}
	c.data.Set(v, index...)
	c.sum = ""
	return nil
}

// CubeList groups multiple cubes for batch serialization. Sibling cubes
// share no coordinates or other state.
type CubeList []*Cube
