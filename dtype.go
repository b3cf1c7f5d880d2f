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

// DType is the declared numeric kind of a data array or coordinate.
type DType string

const (
	Float64 DType = "float64"
	Float32 DType = "float32"
	Int64   DType = "int64"
	Int32   DType = "int32"
)

// ParseDType converts a dtype string to a DType, rejecting unknown kinds.
func ParseDType(s string) (DType, error) {
	switch DType(s) {
	case Float64, Float32, Int64, Int32:
		return DType(s), nil
	}
	return "", fmt.Errorf("geocube: unknown dtype %q", s)
}
