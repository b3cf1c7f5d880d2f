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

package geocube

import (
	"github.com/spatialmodel/geocube/coordsys"
	"github.com/spatialmodel/geocube/units"
)

// CoordKind distinguishes dimension coordinates from auxiliary
// coordinates.
type CoordKind string

const (
	// DimCoord is a dimension coordinate: strictly monotonic, mapped to
	// exactly one data dimension, usable as an axis.
	DimCoord CoordKind = "dimCoord"
	// AuxCoord is an auxiliary coordinate: no monotonicity requirement,
	// mapped to zero or more data dimensions.
	AuxCoord CoordKind = "auxCoord"
)

// Coordinate is one coordinate variable of a cube: an ordered sequence
// of point values with a name, units, an optional mapping to data
// dimensions of the owning cube (no mapping means a scalar coordinate),
// and an optional coordinate system. Coordinates are owned exclusively
// by their cube and must not be modified after construction.
type Coordinate struct {
	kind   CoordKind
	name   string
	units  *units.Unit
	points []float64
	shape  []int
	dims   []int
	sys    coordsys.System
	dtype  DType

	id string // cached identity token
}

// NewCoordinate builds a coordinate and validates its shape invariants:
// the point count must equal the product of the shape extents
// (*ShapeMismatchError otherwise), a non-nil datadims must have one
// entry per shape extent (*DimensionMismatchError otherwise), and a
// dimension coordinate must be strictly monotonic and map exactly one
// data dimension (*MonotonicityError, *DimensionMismatchError).
func NewCoordinate(kind CoordKind, name string, u *units.Unit, points []float64,
	shape []int, datadims []int, sys coordsys.System, dtype DType) (*Coordinate, error) {

	n := 1
	for _, s := range shape {
		n *= s
	}
	if n != len(points) {
		return nil, &ShapeMismatchError{Name: name, NPoints: len(points), Shape: shape}
	}
	if datadims != nil && len(datadims) != len(shape) {
		return nil, &DimensionMismatchError{Name: name, NDims: len(datadims), Rank: len(shape)}
	}
	if kind == DimCoord {
		if len(datadims) != 1 {
			return nil, &DimensionMismatchError{Name: name, NDims: len(datadims), Rank: 1}
		}
		if !Monotonic(points) {
			return nil, &MonotonicityError{Name: name}
		}
	}
	return &Coordinate{
		kind:   kind,
		name:   name,
		units:  u,
		points: points,
		shape:  shape,
		dims:   datadims,
		sys:    sys,
		dtype:  dtype,
	}, nil
}

// NewDimCoord builds a dimension coordinate over the single data
// dimension dim, with shape implied by the point count.
func NewDimCoord(name string, u *units.Unit, points []float64, dim int,
	sys coordsys.System, dtype DType) (*Coordinate, error) {
	return NewCoordinate(DimCoord, name, u, points, []int{len(points)}, []int{dim}, sys, dtype)
}

// NewScalarCoord builds a scalar (dimensionless-mapping) auxiliary
// coordinate holding a single value.
func NewScalarCoord(name string, u *units.Unit, value float64,
	sys coordsys.System, dtype DType) (*Coordinate, error) {
	return NewCoordinate(AuxCoord, name, u, []float64{value}, []int{1}, nil, sys, dtype)
}

// Monotonic reports whether points is strictly monotonic, either
// increasing or decreasing. Sequences with fewer than two points are
// vacuously monotonic.
func Monotonic(points []float64) bool {
	if len(points) < 2 {
		return true
	}
	increasing := points[1] > points[0]
	for i := 1; i < len(points); i++ {
		if increasing && points[i] <= points[i-1] {
			return false
		}
		if !increasing && points[i] >= points[i-1] {
			return false
		}
	}
	return true
}

// Kind returns whether this is a dimension or auxiliary coordinate.
func (c *Coordinate) Kind() CoordKind { return c.kind }

// Name returns the coordinate's standard or custom name.
func (c *Coordinate) Name() string { return c.name }

// Units returns the coordinate's units.
func (c *Coordinate) Units() *units.Unit { return c.units }

// Points returns the coordinate's point values. The returned slice is
// owned by the coordinate and must not be modified.
func (c *Coordinate) Points() []float64 { return c.points }

// Shape returns the coordinate's extents.
func (c *Coordinate) Shape() []int { return c.shape }

// DataDims returns the data dimensions of the owning cube that this
// coordinate maps to, or nil for a scalar coordinate.
func (c *Coordinate) DataDims() []int { return c.dims }

// Scalar reports whether the coordinate maps to no data dimension.
func (c *Coordinate) Scalar() bool { return c.dims == nil }

// System returns the coordinate's coordinate system, or nil.
func (c *Coordinate) System() coordsys.System { return c.sys }

// DType returns the coordinate's declared value type.
func (c *Coordinate) DType() DType { return c.dtype }

// Identity returns a stable content-derived identity token, computed
// deterministically from the coordinate's kind, name, units, value
// type, shape, points, and coordinate system. Two structurally
// identical coordinates produce the same token, so a coordinate
// reconstructed from serialized text reproduces the identity of the
// original.
func (c *Coordinate) Identity() string {
	if c.id == "" {
		h := newContentHash()
		h.str(string(c.kind))
		h.str(c.name)
		if c.units != nil {
			h.str(c.units.String())
			h.str(string(c.units.Calendar()))
		} else {
			h.str("")
			h.str("")
		}
		h.str(string(c.dtype))
		h.ints(c.shape)
		h.floats(c.points)
		if c.sys != nil {
			h.str(coordsys.String(c.sys))
		} else {
			h.str("")
		}
		c.id = h.hex()
	}
	return c.id
}
