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

import "fmt"

// ShapeMismatchError reports a coordinate whose point count disagrees
// with its declared shape.
type ShapeMismatchError struct {
	Name    string // coordinate name
	NPoints int
	Shape   []int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("geocube: coordinate %q: %d points do not fit shape %v",
		e.Name, e.NPoints, e.Shape)
}

// DimensionMismatchError reports a coordinate whose data-dimension
// mapping disagrees with its shape rank.
type DimensionMismatchError struct {
	Name  string // coordinate name
	NDims int    // number of mapped data dimensions
	Rank  int    // rank of the declared shape
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("geocube: coordinate %q: %d data dimensions for shape of rank %d",
		e.Name, e.NDims, e.Rank)
}

// MonotonicityError reports a non-monotonic points sequence registered
// as a dimension coordinate.
type MonotonicityError struct {
	Name string // coordinate name
}

func (e *MonotonicityError) Error() string {
	return fmt.Sprintf("geocube: dimension coordinate %q: points are not strictly monotonic", e.Name)
}

// StructuralError reports a violated cube-level invariant. Check names
// the specific sub-check that failed.
type StructuralError struct {
	Cube  string // cube name
	Check string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("geocube: cube %q: %s", e.Cube, e.Check)
}

// ParseError reports malformed serialized text, or a parsed cube whose
// reconstructed structure violates the model invariants. Parsing is
// all-or-nothing; no partial cube is ever returned alongside a
// ParseError.
type ParseError struct {
	Form   string // "CML" or "CDL"
	Reason string
	Err    error // underlying cause, if any
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geocube: parsing %s: %s: %v", e.Form, e.Reason, e.Err)
	}
	return fmt.Sprintf("geocube: parsing %s: %s", e.Form, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TruncatedDataError reports a truncation marker (ellipsis) encountered
// where exact reconstruction was requested.
type TruncatedDataError struct {
	Name string // coordinate or variable name
}

func (e *TruncatedDataError) Error() string {
	return fmt.Sprintf("geocube: %q: points were truncated for display and cannot be reconstructed exactly", e.Name)
}
