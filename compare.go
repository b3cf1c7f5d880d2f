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
	"math"
	"sort"

	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/floats"
)

// Equal reports whether two cubes are structurally equal over all
// metadata fields (names, units, attributes, cell methods, and
// coordinates by identity token) and have equal data checksums. A
// checksum mismatch is not an error; it simply makes Equal return
// false.
func Equal(a, b *Cube) bool {
	return len(Diff(a, b)) == 0
}

// Diff enumerates every field on which the two cubes differ, one
// human-readable description per difference. It is meant for test
// harnesses and diagnostics, not for production control flow.
func Diff(a, b *Cube) []string {
	var diffs []string
	if a.StandardName() != b.StandardName() {
		diffs = append(diffs, fmt.Sprintf("standard_name: %q != %q", a.StandardName(), b.StandardName()))
	}
	if a.LongName() != b.LongName() {
		diffs = append(diffs, fmt.Sprintf("long_name: %q != %q", a.LongName(), b.LongName()))
	}
	if !a.Units().Equal(b.Units()) {
		diffs = append(diffs, fmt.Sprintf("units: %v != %v", a.Units(), b.Units()))
	}
	if a.DType() != b.DType() {
		diffs = append(diffs, fmt.Sprintf("dtype: %s != %s", a.DType(), b.DType()))
	}
	if a.CoreDType() != b.CoreDType() {
		diffs = append(diffs, fmt.Sprintf("core-dtype: %s != %s", a.CoreDType(), b.CoreDType()))
	}
	// Compare fill values by bit pattern so NaN fills compare equal to
	// themselves.
	if math.Float64bits(a.FillValue()) != math.Float64bits(b.FillValue()) {
		diffs = append(diffs, fmt.Sprintf("fill_value: %v != %v", a.FillValue(), b.FillValue()))
	}
	if !sameDims(a.Shape(), b.Shape()) {
		diffs = append(diffs, fmt.Sprintf("shape: %v != %v", a.Shape(), b.Shape()))
	}
	for d := 0; d < len(a.Shape()) && d < len(b.Shape()); d++ {
		if a.Unlimited(d) != b.Unlimited(d) {
			diffs = append(diffs, fmt.Sprintf("dimension %d: unlimited %v != %v",
				d, a.Unlimited(d), b.Unlimited(d)))
		}
	}

	// Attribute order is irrelevant for equality.
	if d := cmp.Diff(attrMap(a), attrMap(b)); d != "" {
		diffs = append(diffs, "attributes: "+d)
	}
	if d := cmp.Diff(a.CellMethods(), b.CellMethods()); d != "" {
		diffs = append(diffs, "cell_methods: "+d)
	}

	// Coordinates compare by identity token: the token covers name,
	// units, points, value type, shape, and coordinate system.
	aIDs, bIDs := coordIDs(a), coordIDs(b)
	for _, id := range sortedKeys(aIDs) {
		if _, ok := bIDs[id]; !ok {
			diffs = append(diffs, fmt.Sprintf("coordinate %s (%s) missing from second cube", aIDs[id], id))
		}
	}
	for _, id := range sortedKeys(bIDs) {
		if _, ok := aIDs[id]; !ok {
			diffs = append(diffs, fmt.Sprintf("coordinate %s (%s) missing from first cube", bIDs[id], id))
		}
	}

	if a.Checksum() != b.Checksum() {
		diffs = append(diffs, fmt.Sprintf("checksum: %s != %s", a.Checksum(), b.Checksum()))
	}

	// When both cubes are realized, cross-check the element values
	// themselves; the checksum should already have caught any
	// difference.
	if a.Realized() && b.Realized() &&
		len(a.Data().Elements) == len(b.Data().Elements) &&
		!floats.Equal(a.Data().Elements, b.Data().Elements) {
		diffs = append(diffs, "data: element values differ")
	}
	return diffs
}

func attrMap(c *Cube) map[string]interface{} {
	m := make(map[string]interface{}, len(c.Attributes()))
	for _, a := range c.Attributes() {
		m[a.Name] = a.Value
	}
	return m
}

func coordIDs(c *Cube) map[string]string {
	m := make(map[string]string, len(c.Coords()))
	for _, coord := range c.Coords() {
		m[coord.Identity()] = coord.Name()
	}
	return m
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
