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
	"fmt"
	"strings"
)

// CellMethod describes a statistical or aggregation operation that was
// applied over one or more coordinates to produce the cube's data, for
// example a "mean" over "time". It is purely descriptive and never
// mutates data.
type CellMethod struct {
	// Method is the operation name, e.g. "mean", "maximum".
	Method string
	// Coords are the names of the coordinates the method was applied over.
	Coords []string
	// Intervals optionally describe the sampling interval per coordinate,
	// e.g. "1 hour".
	Intervals []string
	// Comments optionally carry free-text qualifiers.
	Comments []string
}

// String renders the cell method in the CF comment form, e.g.
// "mean: time (interval: 1 hour)".
func (cm CellMethod) String() string {
	s := cm.Method + ": " + strings.Join(cm.Coords, ", ")
	var extras []string
	for _, iv := range cm.Intervals {
		extras = append(extras, "interval: "+iv)
	}
	for _, c := range cm.Comments {
		extras = append(extras, "comment: "+c)
	}
	if len(extras) > 0 {
		s += " (" + strings.Join(extras, ", ") + ")"
	}
	return s
}

// Attribute is a named scalar metadata value attached to a cube.
// Permitted value types are strings, integers, and floats.
type Attribute struct {
	Name  string
	Value interface{}
}

// normalizeAttributeValue rejects non-scalar attribute values and
// widens numeric ones to a canonical type (int64 or float64), so that
// a value reconstructed from serialized text compares equal to the
// original.
func normalizeAttributeValue(v interface{}) (interface{}, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	}
	return nil, fmt.Errorf("geocube: attribute value of unsupported type %T", v)
}
