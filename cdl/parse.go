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

package cdl

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/spatialmodel/geocube"
	"github.com/spatialmodel/geocube/coordsys"
	"github.com/spatialmodel/geocube/units"
)

var (
	dimRe  = regexp.MustCompile(`^\s*([A-Za-z_]\w*) = (\d+|UNLIMITED) ;(?: // \((\d+) currently\))?\s*$`)
	declRe = regexp.MustCompile(`^\s*(double|float|int64|int) ([A-Za-z_]\w*)(?:\(([^)]*)\))? ;\s*$`)
	attrRe = regexp.MustCompile(`^\s*([A-Za-z_]\w*)?:([A-Za-z_]\w*) = (.+) ;\s*$`)
	dataRe = regexp.MustCompile(`^\s*([A-Za-z_]\w*) = (.+) ;\s*$`)
)

// dimension is one entry of the dimensions block.
type dimension struct {
	name      string
	length    int
	unlimited bool
}

// variable is one declaration of the variables block together with its
// attributes, which keep declaration order.
type variable struct {
	dtype geocube.DType
	dims  []string
	attrs []geocube.Attribute
}

// document is the raw parse of a CDL text, before cube reconstruction.
type document struct {
	dims    []dimension
	vars    map[string]*variable
	order   []string // variable declaration order
	globals []geocube.Attribute
	data    map[string][]float64
}

func parseErr(reason string, err error) error {
	return &geocube.ParseError{Form: "CDL", Reason: reason, Err: err}
}

// Unmarshal parses CDL text into an unrealized cube. Parsing is
// all-or-nothing: any malformed statement or violated model invariant
// returns a *geocube.ParseError and no cube.
func Unmarshal(text []byte) (*geocube.Cube, error) {
	doc, err := scan(text)
	if err != nil {
		return nil, err
	}
	return buildCube(doc)
}

// scan splits the text into sections and statements without
// interpreting the model.
func scan(text []byte) (*document, error) {
	doc := &document{
		vars: make(map[string]*variable),
		data: make(map[string][]float64),
	}

	const (
		inHeader = iota
		inDimensions
		inVariables
		inData
	)
	section := inHeader
	sawHeader := false

	sc := bufio.NewScanner(bytes.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		switch strings.TrimSpace(line) {
		case "":
			continue
		case "dimensions:":
			section = inDimensions
			continue
		case "variables:":
			section = inVariables
			continue
		case "data:":
			section = inData
			continue
		case "}":
			continue
		}

		switch section {
		case inHeader:
			if strings.HasPrefix(line, "netcdf ") && strings.HasSuffix(line, "{") {
				sawHeader = true
				continue
			}
			return nil, parseErr(fmt.Sprintf("unexpected text before dimensions block: %q", line), nil)

		case inDimensions:
			m := dimRe.FindStringSubmatch(line)
			if m == nil {
				return nil, parseErr(fmt.Sprintf("malformed dimension statement %q", line), nil)
			}
			d := dimension{name: m[1]}
			if m[2] == "UNLIMITED" {
				d.unlimited = true
				if m[3] == "" {
					return nil, parseErr(fmt.Sprintf("unlimited dimension %q has no current length", d.name), nil)
				}
				d.length, _ = strconv.Atoi(m[3])
			} else {
				d.length, _ = strconv.Atoi(m[2])
			}
			doc.dims = append(doc.dims, d)

		case inVariables:
			line = stripComment(line)
			if strings.TrimSpace(line) == "" {
				continue
			}
			if m := declRe.FindStringSubmatch(line); m != nil {
				v := &variable{dtype: dtypes[m[1]]}
				if m[3] != "" {
					for _, d := range strings.Split(m[3], ",") {
						v.dims = append(v.dims, strings.TrimSpace(d))
					}
				}
				if _, dup := doc.vars[m[2]]; dup {
					return nil, parseErr(fmt.Sprintf("variable %q declared twice", m[2]), nil)
				}
				doc.vars[m[2]] = v
				doc.order = append(doc.order, m[2])
				continue
			}
			if m := attrRe.FindStringSubmatch(line); m != nil {
				value, err := parseAttrValue(m[3])
				if err != nil {
					return nil, parseErr(fmt.Sprintf("attribute %s:%s", m[1], m[2]), err)
				}
				a := geocube.Attribute{Name: m[2], Value: value}
				if m[1] == "" {
					doc.globals = append(doc.globals, a)
					continue
				}
				v, ok := doc.vars[m[1]]
				if !ok {
					return nil, parseErr(fmt.Sprintf("attribute on undeclared variable %q", m[1]), nil)
				}
				v.attrs = append(v.attrs, a)
				continue
			}
			return nil, parseErr(fmt.Sprintf("malformed variable statement %q", line), nil)

		case inData:
			m := dataRe.FindStringSubmatch(stripComment(line))
			if m == nil {
				return nil, parseErr(fmt.Sprintf("malformed data statement %q", line), nil)
			}
			if _, ok := doc.vars[m[1]]; !ok {
				return nil, parseErr(fmt.Sprintf("data for undeclared variable %q", m[1]), nil)
			}
			var points []float64
			for _, tok := range strings.Split(m[2], ",") {
				tok = strings.TrimSpace(tok)
				if tok == Ellipsis {
					return nil, &geocube.TruncatedDataError{Name: m[1]}
				}
				f, err := strconv.ParseFloat(tok, 64)
				if err != nil {
					return nil, parseErr(fmt.Sprintf("data for %q", m[1]), err)
				}
				points = append(points, f)
			}
			doc.data[m[1]] = points
		}
	}
	if err := sc.Err(); err != nil {
		return nil, parseErr("reading text", err)
	}
	if !sawHeader {
		return nil, parseErr("missing netcdf header", nil)
	}
	return doc, nil
}

// stripComment removes a trailing // comment, respecting quoted
// strings.
func stripComment(line string) string {
	inQuote := false
	for i := 0; i < len(line)-1; i++ {
		switch {
		case line[i] == '\\' && inQuote:
			i++
		case line[i] == '"':
			inQuote = !inQuote
		case !inQuote && line[i] == '/' && line[i+1] == '/':
			return line[:i]
		}
	}
	return line
}

// parseAttrValue recovers the attribute's type from its textual form:
// quoted text is a string, a bare number with a decimal point or
// exponent is a float64, and any other bare number is an int64.
func parseAttrValue(text string) (interface{}, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, `"`) {
		return strconv.Unquote(text)
	}
	if strings.ContainsAny(text, ".eE") || strings.ContainsAny(text, "nN") {
		return strconv.ParseFloat(strings.TrimSuffix(text, "."), 64)
	}
	return strconv.ParseInt(text, 10, 64)
}

// buildCube reconstructs the cube from a scanned document. The data
// variable is the one carrying a checksum attribute; variables with a
// grid_mapping_name attribute define coordinate systems; every other
// variable is a coordinate.
func buildCube(doc *document) (*geocube.Cube, error) {
	dataName := ""
	systems := make(map[string]coordsys.System)
	var coordNames []string
	for _, name := range doc.order {
		v := doc.vars[name]
		switch {
		case hasAttr(v, "checksum"):
			if dataName != "" {
				return nil, parseErr(fmt.Sprintf("two data variables, %q and %q", dataName, name), nil)
			}
			dataName = name
		case hasAttr(v, "grid_mapping_name"):
			sys, err := decodeGridMapping(name, v)
			if err != nil {
				return nil, err
			}
			systems[name] = sys
		default:
			coordNames = append(coordNames, name)
		}
	}
	if dataName == "" {
		return nil, parseErr("no variable carries a checksum attribute", nil)
	}

	dimIndex := make(map[string]int, len(doc.dims))
	for i, d := range doc.dims {
		dimIndex[d.name] = i
	}

	c, err := decodeDataVariable(dataName, doc)
	if err != nil {
		return nil, err
	}
	for i, d := range doc.dims {
		if d.unlimited {
			if err := c.SetUnlimited(i); err != nil {
				return nil, parseErr("unlimited dimension", err)
			}
		}
	}
	for _, a := range doc.globals {
		if err := c.AddAttribute(a.Name, a.Value); err != nil {
			return nil, parseErr("global attribute", err)
		}
	}

	for _, name := range coordNames {
		coord, err := decodeCoordinate(name, doc, dimIndex, systems)
		if err != nil {
			return nil, err
		}
		if err := c.AddCoordinate(coord); err != nil {
			return nil, parseErr(fmt.Sprintf("coordinate %q", name), err)
		}
	}

	if err := c.Validate(); err != nil {
		return nil, parseErr("reconstructed cube is inconsistent", err)
	}
	return c, nil
}

func decodeDataVariable(name string, doc *document) (*geocube.Cube, error) {
	v := doc.vars[name]
	if len(v.dims) != len(doc.dims) {
		return nil, parseErr(fmt.Sprintf("data variable %q spans %d of %d dimensions",
			name, len(v.dims), len(doc.dims)), nil)
	}
	shape := make([]int, len(v.dims))
	for i, dn := range v.dims {
		found := false
		for _, d := range doc.dims {
			if d.name == dn {
				shape[i] = d.length
				found = true
				break
			}
		}
		if !found {
			return nil, parseErr(fmt.Sprintf("data variable %q uses undeclared dimension %q", name, dn), nil)
		}
	}

	standardName, _ := attrString(v, "standard_name")
	sum, _ := attrString(v, "checksum")
	fill := 0.0
	if f, ok := attrFloat(v, "_FillValue"); ok {
		fill = f
	}

	var u *units.Unit
	if text, ok := attrString(v, "units"); ok {
		cal, _ := attrString(v, "calendar")
		var err error
		u, err = units.ParseCalendar(text, cal)
		if err != nil {
			return nil, parseErr(fmt.Sprintf("units of %q", name), err)
		}
	}

	c, err := geocube.NewUnrealized(standardName, u, shape, v.dtype, fill, sum)
	if err != nil {
		return nil, parseErr(fmt.Sprintf("data variable %q", name), err)
	}
	if ln, ok := attrString(v, "long_name"); ok {
		c.SetLongName(ln)
	}
	if cd, ok := attrString(v, "core_dtype"); ok {
		d, ok := dtypes[cd]
		if !ok {
			return nil, parseErr(fmt.Sprintf("unknown core_dtype %q", cd), nil)
		}
		c.SetCoreDType(d)
	}
	if text, ok := attrString(v, "cell_methods"); ok {
		cms, err := parseCellMethods(text)
		if err != nil {
			return nil, parseErr(fmt.Sprintf("cell_methods of %q", name), err)
		}
		for _, cm := range cms {
			c.AddCellMethod(cm)
		}
	}
	return c, nil
}

func decodeCoordinate(name string, doc *document, dimIndex map[string]int,
	systems map[string]coordsys.System) (*geocube.Coordinate, error) {

	v := doc.vars[name]
	stdName, ok := attrString(v, "standard_name")
	if !ok {
		return nil, parseErr(fmt.Sprintf("coordinate variable %q has no standard_name", name), nil)
	}

	var u *units.Unit
	if text, ok := attrString(v, "units"); ok {
		cal, _ := attrString(v, "calendar")
		var err error
		u, err = units.ParseCalendar(text, cal)
		if err != nil {
			return nil, parseErr(fmt.Sprintf("units of coordinate %q", name), err)
		}
	}

	var sys coordsys.System
	if gm, ok := attrString(v, "grid_mapping"); ok {
		sys, ok = systems[gm]
		if !ok {
			return nil, parseErr(fmt.Sprintf("coordinate %q references unknown grid mapping %q", name, gm), nil)
		}
	}

	// Empty data statements cannot be expressed, so a zero-length
	// coordinate legitimately has no data entry.
	points := doc.data[name]

	// A variable sharing its single dimension's name is a dimension
	// coordinate; a variable with no dimensions is a scalar coordinate.
	if len(v.dims) == 1 && v.dims[0] == name {
		coord, err := geocube.NewDimCoord(stdName, u, points, dimIndex[name], sys, v.dtype)
		if err != nil {
			return nil, parseErr(fmt.Sprintf("coordinate %q", name), err)
		}
		return coord, nil
	}
	// An unmapped coordinate carries its own shape in a shape
	// attribute; without one it is a plain scalar.
	if len(v.dims) == 0 {
		shape := []int{1}
		if s, ok := attrString(v, "shape"); ok {
			var err error
			if shape, err = parseShape(s); err != nil {
				return nil, parseErr(fmt.Sprintf("shape of coordinate %q", name), err)
			}
		}
		coord, err := geocube.NewCoordinate(geocube.AuxCoord, stdName, u, points, shape, nil, sys, v.dtype)
		if err != nil {
			return nil, parseErr(fmt.Sprintf("coordinate %q", name), err)
		}
		return coord, nil
	}
	shape := make([]int, len(v.dims))
	datadims := make([]int, len(v.dims))
	for i, dn := range v.dims {
		d, ok := dimIndex[dn]
		if !ok {
			return nil, parseErr(fmt.Sprintf("coordinate %q uses undeclared dimension %q", name, dn), nil)
		}
		datadims[i] = d
		shape[i] = doc.dims[d].length
	}
	coord, err := geocube.NewCoordinate(geocube.AuxCoord, stdName, u, points, shape, datadims, sys, v.dtype)
	if err != nil {
		return nil, parseErr(fmt.Sprintf("coordinate %q", name), err)
	}
	return coord, nil
}

func decodeGridMapping(name string, v *variable) (coordsys.System, error) {
	variant := ""
	params := make(map[string]float64)
	for _, a := range v.attrs {
		switch val := a.Value.(type) {
		case string:
			if a.Name != "grid_mapping_name" {
				return nil, parseErr(fmt.Sprintf("grid mapping %q: non-numeric parameter %q", name, a.Name), nil)
			}
			variant = val
		case float64:
			params[a.Name] = val
		case int64:
			params[a.Name] = float64(val)
		}
	}
	sys, err := coordsys.FromGridMapping(variant, params)
	if err != nil {
		return nil, parseErr(fmt.Sprintf("grid mapping %q", name), err)
	}
	return sys, nil
}

// parseCellMethods parses the cell_methods attribute form, e.g.
// "mean: time (interval: 1 hour) ; maximum: height".
func parseCellMethods(text string) ([]geocube.CellMethod, error) {
	var cms []geocube.CellMethod
	for _, part := range strings.Split(text, " ; ") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var cm geocube.CellMethod
		if open := strings.Index(part, " ("); open >= 0 {
			if !strings.HasSuffix(part, ")") {
				return nil, fmt.Errorf("unbalanced parenthesis in %q", part)
			}
			for _, extra := range strings.Split(part[open+2:len(part)-1], ", ") {
				switch {
				case strings.HasPrefix(extra, "interval: "):
					cm.Intervals = append(cm.Intervals, strings.TrimPrefix(extra, "interval: "))
				case strings.HasPrefix(extra, "comment: "):
					cm.Comments = append(cm.Comments, strings.TrimPrefix(extra, "comment: "))
				default:
					return nil, fmt.Errorf("unknown cell method qualifier %q", extra)
				}
			}
			part = part[:open]
		}
		colon := strings.Index(part, ": ")
		if colon < 0 {
			return nil, fmt.Errorf("missing method name in %q", part)
		}
		cm.Method = part[:colon]
		cm.Coords = strings.Split(part[colon+2:], ", ")
		cms = append(cms, cm)
	}
	return cms, nil
}

// parseShape parses the shape tuple form produced by fmtShape.
func parseShape(text string) ([]int, error) {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return nil, fmt.Errorf("malformed shape %q", text)
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	s = strings.TrimSuffix(strings.TrimSpace(s), ",")
	if strings.TrimSpace(s) == "" {
		return []int{}, nil
	}
	var shape []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("malformed shape %q: %v", text, err)
		}
		shape = append(shape, n)
	}
	return shape, nil
}

func hasAttr(v *variable, name string) bool {
	for _, a := range v.attrs {
		if a.Name == name {
			return true
		}
	}
	return false
}

func attrString(v *variable, name string) (string, bool) {
	for _, a := range v.attrs {
		if a.Name == name {
			s, ok := a.Value.(string)
			return s, ok
		}
	}
	return "", false
}

func attrFloat(v *variable, name string) (float64, bool) {
	for _, a := range v.attrs {
		if a.Name == name {
			switch f := a.Value.(type) {
			case float64:
				return f, true
			case int64:
				return float64(f), true
			}
		}
	}
	return 0, false
}
