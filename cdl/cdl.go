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

// Package cdl converts cubes to and from the textual netCDF (CDL)
// description form: a dimensions block, a variables block with
// colon-prefixed attribute assignments (including a zero-dimensional
// grid-mapping variable for each coordinate system), and a data block
// holding the coordinate variable points. The primary data array itself
// never appears; its checksum rides as an attribute on the data
// variable and is the sole data-integrity witness.
package cdl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spatialmodel/geocube"
	"github.com/spatialmodel/geocube/coordsys"
)

// dtype mappings between DType and the CDL type tokens.
var cdlTypes = map[geocube.DType]string{
	geocube.Float64: "double",
	geocube.Float32: "float",
	geocube.Int64:   "int64",
	geocube.Int32:   "int",
}

var dtypes = map[string]geocube.DType{
	"double": geocube.Float64,
	"float":  geocube.Float32,
	"int64":  geocube.Int64,
	"int":    geocube.Int32,
}

// Ellipsis marks elided point values in display renderings.
const Ellipsis = "..."

// defaultMaxPoints is the display-mode truncation threshold.
const defaultMaxPoints = 12

// Options control serialization. The zero value (or a nil *Options)
// produces the strict form, which reconstructs exactly. Display mode
// elides long point sequences and is for human consumption only.
type Options struct {
	Display   bool
	MaxPoints int // points shown before truncation; 0 means the default
}

// Marshal serializes a cube to CDL text. The cube is validated first.
func Marshal(c *geocube.Cube, o *Options) ([]byte, error) {
	if o == nil {
		o = &Options{}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	dimNames := dimensionNames(c)
	varName := sanitizeName(c.Name())
	gm := gridMappings(c)

	var b strings.Builder
	fmt.Fprintf(&b, "netcdf %s {\n", varName)

	b.WriteString("dimensions:\n")
	for d, name := range dimNames {
		if c.Unlimited(d) {
			fmt.Fprintf(&b, "\t%s = UNLIMITED ; // (%d currently)\n", name, c.Shape()[d])
		} else {
			fmt.Fprintf(&b, "\t%s = %d ;\n", name, c.Shape()[d])
		}
	}

	b.WriteString("variables:\n")

	// The primary data variable.
	fmt.Fprintf(&b, "\t%s %s(%s) ;\n", cdlTypes[c.DType()], varName,
		strings.Join(dimNames, ", "))
	if c.StandardName() != "" {
		writeAttr(&b, varName, "standard_name", c.StandardName())
	}
	if c.LongName() != "" {
		writeAttr(&b, varName, "long_name", c.LongName())
	}
	if u := c.Units(); u != nil {
		writeAttr(&b, varName, "units", u.String())
		if u.Calendar() != "" {
			writeAttr(&b, varName, "calendar", string(u.Calendar()))
		}
	}
	writeAttr(&b, varName, "_FillValue", c.FillValue())
	if c.CoreDType() != c.DType() {
		writeAttr(&b, varName, "core_dtype", string(cdlTypes[c.CoreDType()]))
	}
	writeAttr(&b, varName, "checksum", c.Checksum())
	if len(gm.order) > 0 {
		writeAttr(&b, varName, "grid_mapping", gm.order[0])
	}
	var auxNames []string
	for _, coord := range c.Coords() {
		if coordVarName(c, coord, dimNames) != dimNameFor(coord, dimNames) {
			auxNames = append(auxNames, coordVarName(c, coord, dimNames))
		}
	}
	if len(auxNames) > 0 {
		writeAttr(&b, varName, "coordinates", strings.Join(auxNames, " "))
	}
	if cms := c.CellMethods(); len(cms) > 0 {
		parts := make([]string, len(cms))
		for i, cm := range cms {
			parts[i] = cm.String()
		}
		writeAttr(&b, varName, "cell_methods", strings.Join(parts, " ; "))
	}

	// Coordinate variables.
	for _, coord := range c.Coords() {
		name := coordVarName(c, coord, dimNames)
		var declDims []string
		for _, d := range coord.DataDims() {
			declDims = append(declDims, dimNames[d])
		}
		if len(declDims) > 0 {
			fmt.Fprintf(&b, "\t%s %s(%s) ;\n", cdlTypes[coord.DType()], name,
				strings.Join(declDims, ", "))
		} else {
			fmt.Fprintf(&b, "\t%s %s ;\n", cdlTypes[coord.DType()], name)
		}
		writeAttr(&b, name, "standard_name", coord.Name())
		// Unmapped coordinates have no dimensions to recover their
		// shape from, so it travels as an attribute.
		if len(coord.DataDims()) == 0 {
			writeAttr(&b, name, "shape", fmtShape(coord.Shape()))
		}
		if ax := axisFor(coord); ax != "" {
			writeAttr(&b, name, "axis", ax)
		}
		if u := coord.Units(); u != nil {
			writeAttr(&b, name, "units", u.String())
			if u.Calendar() != "" {
				writeAttr(&b, name, "calendar", string(u.Calendar()))
			}
		}
		if coord.System() != nil {
			writeAttr(&b, name, "grid_mapping", gm.nameOf[coordsys.String(coord.System())])
		}
	}

	// Grid-mapping variables: zero-dimensional, one per distinct
	// coordinate system, carrying the variant name and each parameter
	// as an individual attribute.
	for _, name := range gm.order {
		sys := gm.systems[name]
		fmt.Fprintf(&b, "\tint %s ;\n", name)
		writeAttr(&b, name, "grid_mapping_name", sys.GridMappingName())
		for _, p := range sys.Params() {
			writeAttr(&b, name, p.Name, p.Value)
		}
	}

	// Global attributes.
	if attrs := c.Attributes(); len(attrs) > 0 {
		b.WriteString("\n// global attributes:\n")
		for _, a := range attrs {
			writeAttr(&b, "", a.Name, a.Value)
		}
	}

	// Coordinate points travel in the data section so that strict
	// round-trips reconstruct them exactly.
	if len(c.Coords()) > 0 {
		b.WriteString("\ndata:\n")
		for _, coord := range c.Coords() {
			if len(coord.Points()) == 0 {
				continue
			}
			name := coordVarName(c, coord, dimNames)
			fmt.Fprintf(&b, "\n %s = %s ;\n", name, fmtPoints(coord.Points(), o))
		}
	}

	b.WriteString("}\n")
	return []byte(b.String()), nil
}

// dimensionNames names each data dimension after its dimension
// coordinate, or "dim<N>" for anonymous dimensions.
func dimensionNames(c *geocube.Cube) []string {
	names := make([]string, c.NDim())
	for d := range names {
		if coord := c.DimCoordFor(d); coord != nil {
			names[d] = sanitizeName(coord.Name())
		} else {
			names[d] = fmt.Sprintf("dim%d", d)
		}
	}
	return names
}

// dimNameFor returns the dimension name a dimension coordinate shares,
// or "" for any other coordinate.
func dimNameFor(coord *geocube.Coordinate, dimNames []string) string {
	if coord.Kind() == geocube.DimCoord && len(coord.DataDims()) == 1 {
		return dimNames[coord.DataDims()[0]]
	}
	return ""
}

// coordVarName returns the variable name for a coordinate: dimension
// coordinates share their dimension's name (the netCDF coordinate
// variable convention); other coordinates use their own name.
func coordVarName(c *geocube.Cube, coord *geocube.Coordinate, dimNames []string) string {
	if n := dimNameFor(coord, dimNames); n != "" {
		return n
	}
	return sanitizeName(coord.Name())
}

// gridMappingSet indexes the distinct coordinate systems of a cube by
// their grid-mapping variable name.
type gridMappingSet struct {
	order   []string
	systems map[string]coordsys.System
	nameOf  map[string]string // descriptor -> variable name
}

func gridMappings(c *geocube.Cube) gridMappingSet {
	gm := gridMappingSet{
		systems: make(map[string]coordsys.System),
		nameOf:  make(map[string]string),
	}
	for _, coord := range c.Coords() {
		sys := coord.System()
		if sys == nil {
			continue
		}
		desc := coordsys.String(sys)
		if _, ok := gm.nameOf[desc]; ok {
			continue
		}
		name := sys.GridMappingName()
		for i := 2; ; i++ {
			if _, taken := gm.systems[name]; !taken {
				break
			}
			name = fmt.Sprintf("%s_%d", sys.GridMappingName(), i)
		}
		gm.order = append(gm.order, name)
		gm.systems[name] = sys
		gm.nameOf[desc] = name
	}
	return gm
}

// axisFor derives the CF axis letter for a dimension coordinate from
// its name and units, or "" when no axis applies.
func axisFor(coord *geocube.Coordinate) string {
	if coord.Kind() != geocube.DimCoord {
		return ""
	}
	name := coord.Name()
	switch {
	case coord.Units() != nil && coord.Units().IsTimeReference(), name == "time":
		return "T"
	case strings.Contains(name, "latitude"), name == "projection_y_coordinate":
		return "Y"
	case strings.Contains(name, "longitude"), name == "projection_x_coordinate":
		return "X"
	case strings.Contains(name, "height"), strings.Contains(name, "depth"),
		strings.Contains(name, "level"), name == "air_pressure":
		return "Z"
	}
	return ""
}

// writeAttr writes one colon-prefixed attribute assignment. Strings are
// quoted, integers are bare, and floats always carry a decimal point or
// exponent so that parsing recovers the same type.
func writeAttr(b *strings.Builder, varName, attr string, value interface{}) {
	fmt.Fprintf(b, "\t\t%s:%s = %s ;\n", varName, attr, fmtAttrValue(value))
}

func fmtAttrValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strconv.Quote(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		s := ftoa(v)
		if !strings.ContainsAny(s, ".eE") && !strings.ContainsAny(s, "nN") {
			s += "."
		}
		return s
	}
	return strconv.Quote(fmt.Sprint(value))
}

// sanitizeName makes a cube or coordinate name safe for use as a CDL
// identifier.
func sanitizeName(name string) string {
	if name == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range name {
		if r == ' ' || r == '-' {
			b.WriteRune('_')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// fmtShape renders a shape tuple, e.g. "(10, 432, 720)" or "(10,)".
func fmtShape(shape []int) string {
	if len(shape) == 1 {
		return fmt.Sprintf("(%d,)", shape[0])
	}
	parts := make([]string, len(shape))
	for i, s := range shape {
		parts[i] = strconv.Itoa(s)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// fmtPoints renders point values, truncating around an ellipsis in
// display mode.
func fmtPoints(points []float64, o *Options) string {
	max := o.MaxPoints
	if max == 0 {
		max = defaultMaxPoints
	}
	vals := make([]string, 0, len(points)+1)
	if o.Display && len(points) > max {
		head, tail := max/2, max-max/2
		for _, p := range points[:head] {
			vals = append(vals, ftoa(p))
		}
		vals = append(vals, Ellipsis)
		for _, p := range points[len(points)-tail:] {
			vals = append(vals, ftoa(p))
		}
	} else {
		for _, p := range points {
			vals = append(vals, ftoa(p))
		}
	}
	return strings.Join(vals, ", ")
}

// ftoa formats a float with the shortest representation that
// round-trips exactly.
func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
