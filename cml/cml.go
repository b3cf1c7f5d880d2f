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

// Package cml converts cubes to and from the descriptive CubeML XML
// form. The XML carries every piece of cube metadata exactly, plus a
// checksum of the data array; the array itself is never stored, so a
// deserialized cube is unrealized and its checksum is the sole
// data-integrity witness.
package cml

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/spatialmodel/geocube"
	"github.com/spatialmodel/geocube/coordsys"
	"github.com/spatialmodel/geocube/units"
)

// Namespace is the CubeML XML namespace.
const Namespace = "urn:x-iris:cubeml-0.2"

// Options control serialization.
type Options struct {
	// Display truncates long point sequences with an ellipsis. The
	// result is for human consumption only: parsing it back in the
	// default strict mode fails with a *geocube.TruncatedDataError.
	Display bool
	// MaxPoints is the number of points above which Display mode
	// truncates. Zero means the default of 12.
	MaxPoints int
}

type xmlCubes struct {
	XMLName xml.Name  `xml:"cubes"`
	Xmlns   string    `xml:"xmlns,attr"`
	Cubes   []xmlCube `xml:"cube"`
}

type xmlCube struct {
	CoreDType     string         `xml:"core-dtype,attr"`
	DType         string         `xml:"dtype,attr"`
	FillValue     string         `xml:"fill_value,attr"`
	StandardName  string         `xml:"standard_name,attr"`
	LongName      string         `xml:"long_name,attr,omitempty"`
	Units         string         `xml:"units,attr"`
	Calendar      string         `xml:"calendar,attr,omitempty"`
	UnlimitedDims string         `xml:"unlimited_dims,attr,omitempty"`
	Attributes    xmlAttributes  `xml:"attributes"`
	Coords        xmlCoords      `xml:"coords"`
	CellMethods   xmlCellMethods `xml:"cellMethods"`
	Data          xmlData        `xml:"data"`
}

type xmlAttributes struct {
	Attributes []xmlAttribute `xml:"attribute"`
}

type xmlAttribute struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
	Type  string `xml:"type,attr"`
}

type xmlCoords struct {
	Coords []xmlCoord `xml:"coord"`
}

type xmlCoord struct {
	DataDims string       `xml:"datadims,attr,omitempty"`
	DimCoord *xmlCoordDef `xml:"dimCoord"`
	AuxCoord *xmlCoordDef `xml:"auxCoord"`
}

type xmlCoordDef struct {
	ID           string          `xml:"id,attr"`
	Points       string          `xml:"points,attr"`
	Shape        string          `xml:"shape,attr"`
	StandardName string          `xml:"standard_name,attr"`
	Units        string          `xml:"units,attr"`
	Calendar     string          `xml:"calendar,attr,omitempty"`
	ValueType    string          `xml:"value_type,attr"`
	CoordSystem  *xmlCoordSystem `xml:",any"`
}

// xmlCoordSystem marshals a coordinate system as a sub-element named by
// its variant ("rotatedGeogCS", "mercator", ...) with one attribute per
// parameter.
type xmlCoordSystem struct {
	sys coordsys.System
}

func (x xmlCoordSystem) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: x.sys.Name()}
	start.Attr = nil
	for _, p := range x.sys.Params() {
		start.Attr = append(start.Attr, xml.Attr{
			Name:  xml.Name{Local: p.Name},
			Value: ftoa(p.Value),
		})
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

func (x *xmlCoordSystem) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	params := make(map[string]float64, len(start.Attr))
	for _, a := range start.Attr {
		v, err := strconv.ParseFloat(a.Value, 64)
		if err != nil {
			return fmt.Errorf("coordinate system parameter %q: %v", a.Name.Local, err)
		}
		params[a.Name.Local] = v
	}
	sys, err := coordsys.FromGridMapping(start.Name.Local, params)
	if err != nil {
		return err
	}
	x.sys = sys
	return d.Skip()
}

type xmlCellMethods struct {
	Methods []xmlCellMethod `xml:"cellMethod"`
}

type xmlCellMethod struct {
	Method string       `xml:"method,attr"`
	Coords []xmlCMCoord `xml:"coord"`
}

type xmlCMCoord struct {
	Name     string `xml:"name,attr"`
	Interval string `xml:"interval,attr,omitempty"`
	Comment  string `xml:"comment,attr,omitempty"`
}

type xmlData struct {
	Checksum string `xml:"checksum,attr"`
	DType    string `xml:"dtype,attr"`
	Shape    string `xml:"shape,attr"`
}

// Marshal serializes a collection of cubes to CubeML. Each cube is
// validated first; a nil opts means the strict, exactly-reconstructable
// form.
func Marshal(cubes geocube.CubeList, opts *Options) ([]byte, error) {
	if opts == nil {
		opts = &Options{}
	}
	doc := xmlCubes{Xmlns: Namespace}
	for _, c := range cubes {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		xc, err := encodeCube(c, opts)
		if err != nil {
			return nil, err
		}
		doc.Cubes = append(doc.Cubes, xc)
	}
	b, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(b, '\n')...), nil
}

// MarshalCube serializes a single cube as a one-element collection.
func MarshalCube(c *geocube.Cube, opts *Options) ([]byte, error) {
	return Marshal(geocube.CubeList{c}, opts)
}

func encodeCube(c *geocube.Cube, opts *Options) (xmlCube, error) {
	xc := xmlCube{
		CoreDType:    string(c.CoreDType()),
		DType:        string(c.DType()),
		FillValue:    ftoa(c.FillValue()),
		StandardName: c.StandardName(),
		LongName:     c.LongName(),
		Data: xmlData{
			Checksum: c.Checksum(),
			DType:    string(c.DType()),
			Shape:    fmtShape(c.Shape()),
		},
	}
	if u := c.Units(); u != nil {
		xc.Units = u.String()
		xc.Calendar = string(u.Calendar())
	}
	var unlim []int
	for d := 0; d < c.NDim(); d++ {
		if c.Unlimited(d) {
			unlim = append(unlim, d)
		}
	}
	if unlim != nil {
		xc.UnlimitedDims = fmtInts(unlim)
	}
	for _, a := range c.Attributes() {
		xa, err := encodeAttribute(a)
		if err != nil {
			return xmlCube{}, err
		}
		xc.Attributes.Attributes = append(xc.Attributes.Attributes, xa)
	}
	for _, coord := range c.Coords() {
		xc.Coords.Coords = append(xc.Coords.Coords, encodeCoord(coord, opts))
	}
	for _, cm := range c.CellMethods() {
		xc.CellMethods.Methods = append(xc.CellMethods.Methods, encodeCellMethod(cm))
	}
	return xc, nil
}

func encodeAttribute(a geocube.Attribute) (xmlAttribute, error) {
	switch v := a.Value.(type) {
	case string:
		return xmlAttribute{Name: a.Name, Value: v, Type: "string"}, nil
	case int64:
		return xmlAttribute{Name: a.Name, Value: strconv.FormatInt(v, 10), Type: "int"}, nil
	case float64:
		return xmlAttribute{Name: a.Name, Value: ftoa(v), Type: "float"}, nil
	}
	return xmlAttribute{}, fmt.Errorf("cml: attribute %q has unsupported type %T", a.Name, a.Value)
}

func encodeCoord(c *geocube.Coordinate, opts *Options) xmlCoord {
	def := &xmlCoordDef{
		ID:           c.Identity(),
		Points:       fmtPoints(c.Points(), opts),
		Shape:        fmtShape(c.Shape()),
		StandardName: c.Name(),
		ValueType:    string(c.DType()),
	}
	if u := c.Units(); u != nil {
		def.Units = u.String()
		def.Calendar = string(u.Calendar())
	}
	if c.System() != nil {
		def.CoordSystem = &xmlCoordSystem{sys: c.System()}
	}
	xc := xmlCoord{}
	if dims := c.DataDims(); dims != nil {
		xc.DataDims = fmtInts(dims)
	}
	if c.Kind() == geocube.DimCoord {
		xc.DimCoord = def
	} else {
		xc.AuxCoord = def
	}
	return xc
}

func encodeCellMethod(cm geocube.CellMethod) xmlCellMethod {
	out := xmlCellMethod{Method: cm.Method}
	for i, name := range cm.Coords {
		cc := xmlCMCoord{Name: name}
		if i < len(cm.Intervals) {
			cc.Interval = cm.Intervals[i]
		}
		if i < len(cm.Comments) {
			cc.Comment = cm.Comments[i]
		}
		out.Coords = append(out.Coords, cc)
	}
	return out
}

// Unmarshal parses CubeML text back into cubes. Malformed XML, unknown
// namespaces, truncated point sequences, and cubes whose reconstructed
// structure violates the model invariants all abort the whole parse; no
// partial result is returned.
func Unmarshal(data []byte) (geocube.CubeList, error) {
	var doc xmlCubes
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &geocube.ParseError{Form: "CML", Reason: "malformed XML", Err: err}
	}
	if !strings.HasPrefix(doc.Xmlns, "urn:x-iris:cubeml-") {
		return nil, &geocube.ParseError{Form: "CML",
			Reason: fmt.Sprintf("unknown namespace %q", doc.Xmlns)}
	}
	var cubes geocube.CubeList
	for _, xc := range doc.Cubes {
		c, err := decodeCube(xc)
		if err != nil {
			return nil, err
		}
		cubes = append(cubes, c)
	}
	return cubes, nil
}

// UnmarshalCube parses CubeML text expected to hold exactly one cube.
func UnmarshalCube(data []byte) (*geocube.Cube, error) {
	cubes, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if len(cubes) != 1 {
		return nil, &geocube.ParseError{Form: "CML",
			Reason: fmt.Sprintf("expected one cube, found %d", len(cubes))}
	}
	return cubes[0], nil
}

func decodeCube(xc xmlCube) (*geocube.Cube, error) {
	fail := func(reason string, err error) (*geocube.Cube, error) {
		return nil, &geocube.ParseError{Form: "CML", Reason: reason, Err: err}
	}

	u, err := parseUnits(xc.Units, xc.Calendar)
	if err != nil {
		return fail("cube units", err)
	}
	dtype, err := geocube.ParseDType(xc.DType)
	if err != nil {
		return fail("cube dtype", err)
	}
	fill, err := strconv.ParseFloat(xc.FillValue, 64)
	if err != nil {
		return fail(fmt.Sprintf("fill_value %q", xc.FillValue), err)
	}
	shape, err := parseShape(xc.Data.Shape)
	if err != nil {
		return fail("data shape", err)
	}
	if xc.Data.DType != xc.DType {
		return fail(fmt.Sprintf("data dtype %q disagrees with cube dtype %q",
			xc.Data.DType, xc.DType), nil)
	}

	c, err := geocube.NewUnrealized(xc.StandardName, u, shape, dtype, fill, xc.Data.Checksum)
	if err != nil {
		return fail("reconstructing cube", err)
	}
	c.SetLongName(xc.LongName)
	if xc.CoreDType != "" {
		core, err := geocube.ParseDType(xc.CoreDType)
		if err != nil {
			return fail("core-dtype", err)
		}
		c.SetCoreDType(core)
	}
	if xc.UnlimitedDims != "" {
		dims, err := parseInts(xc.UnlimitedDims)
		if err != nil {
			return fail("unlimited_dims", err)
		}
		for _, d := range dims {
			if err := c.SetUnlimited(d); err != nil {
				return fail("unlimited_dims", err)
			}
		}
	}

	for _, xa := range xc.Attributes.Attributes {
		v, err := decodeAttributeValue(xa)
		if err != nil {
			return fail(fmt.Sprintf("attribute %q", xa.Name), err)
		}
		if err := c.AddAttribute(xa.Name, v); err != nil {
			return fail(fmt.Sprintf("attribute %q", xa.Name), err)
		}
	}

	for _, xcoord := range xc.Coords.Coords {
		coord, err := decodeCoord(xcoord)
		if err != nil {
			return nil, err
		}
		if err := c.AddCoordinate(coord); err != nil {
			return fail(fmt.Sprintf("coordinate %q", coord.Name()), err)
		}
	}

	for _, xcm := range xc.CellMethods.Methods {
		cm := geocube.CellMethod{Method: xcm.Method}
		for _, cc := range xcm.Coords {
			cm.Coords = append(cm.Coords, cc.Name)
			if cc.Interval != "" {
				cm.Intervals = append(cm.Intervals, cc.Interval)
			}
			if cc.Comment != "" {
				cm.Comments = append(cm.Comments, cc.Comment)
			}
		}
		c.AddCellMethod(cm)
	}

	if err := c.Validate(); err != nil {
		return fail("reconstructed cube fails validation", err)
	}
	return c, nil
}

func decodeAttributeValue(xa xmlAttribute) (interface{}, error) {
	switch xa.Type {
	case "string", "":
		return xa.Value, nil
	case "int":
		return strconv.ParseInt(xa.Value, 10, 64)
	case "float":
		return strconv.ParseFloat(xa.Value, 64)
	}
	return nil, fmt.Errorf("cml: unknown attribute type %q", xa.Type)
}

func decodeCoord(xc xmlCoord) (*geocube.Coordinate, error) {
	fail := func(reason string, err error) (*geocube.Coordinate, error) {
		return nil, &geocube.ParseError{Form: "CML", Reason: reason, Err: err}
	}

	var def *xmlCoordDef
	var kind geocube.CoordKind
	switch {
	case xc.DimCoord != nil && xc.AuxCoord != nil:
		return fail("coord element holds both a dimCoord and an auxCoord", nil)
	case xc.DimCoord != nil:
		def, kind = xc.DimCoord, geocube.DimCoord
	case xc.AuxCoord != nil:
		def, kind = xc.AuxCoord, geocube.AuxCoord
	default:
		return fail("coord element holds neither a dimCoord nor an auxCoord", nil)
	}

	u, err := parseUnits(def.Units, def.Calendar)
	if err != nil {
		return fail(fmt.Sprintf("coordinate %q units", def.StandardName), err)
	}
	points, err := parsePoints(def.Points, def.StandardName)
	if err != nil {
		if _, ok := err.(*geocube.TruncatedDataError); ok {
			return nil, err
		}
		return fail(fmt.Sprintf("coordinate %q points", def.StandardName), err)
	}
	shape, err := parseShape(def.Shape)
	if err != nil {
		return fail(fmt.Sprintf("coordinate %q shape", def.StandardName), err)
	}
	var dims []int
	if xc.DataDims != "" {
		dims, err = parseInts(xc.DataDims)
		if err != nil {
			return fail(fmt.Sprintf("coordinate %q datadims", def.StandardName), err)
		}
	}
	vt, err := geocube.ParseDType(def.ValueType)
	if err != nil {
		return fail(fmt.Sprintf("coordinate %q value_type", def.StandardName), err)
	}
	var sys coordsys.System
	if def.CoordSystem != nil {
		sys = def.CoordSystem.sys
	}

	coord, err := geocube.NewCoordinate(kind, def.StandardName, u, points, shape, dims, sys, vt)
	if err != nil {
		return fail(fmt.Sprintf("coordinate %q", def.StandardName), err)
	}
	// The recorded identity token must match the reconstruction; a
	// mismatch means the metadata did not survive intact.
	if def.ID != "" && coord.Identity() != def.ID {
		return fail(fmt.Sprintf("coordinate %q identity %s does not match recorded identity %s",
			def.StandardName, coord.Identity(), def.ID), nil)
	}
	return coord, nil
}

func parseUnits(text, calendar string) (*units.Unit, error) {
	if text == "" {
		if calendar != "" {
			return nil, fmt.Errorf("cml: calendar %q given without units", calendar)
		}
		return nil, nil
	}
	return units.ParseCalendar(text, calendar)
}

// ftoa formats a float with the shortest representation that
// round-trips exactly.
func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
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

func parseShape(text string) ([]int, error) {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "(") || !strings.HasSuffix(s, ")") {
		return nil, fmt.Errorf("cml: malformed shape %q", text)
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
			return nil, fmt.Errorf("cml: malformed shape %q: %v", text, err)
		}
		shape = append(shape, n)
	}
	return shape, nil
}

// fmtInts renders a dimension list, e.g. "[0, 1]".
func fmtInts(vs []int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func parseInts(text string) ([]int, error) {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("cml: malformed list %q", text)
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("cml: malformed list %q: %v", text, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// Ellipsis is the truncation marker used in display-mode point lists.
const Ellipsis = "..."

// fmtPoints renders a point list, e.g. "[0, 1.5, 3]". In display mode,
// sequences longer than MaxPoints are truncated around an ellipsis.
func fmtPoints(points []float64, opts *Options) string {
	max := opts.MaxPoints
	if max <= 0 {
		max = 12
	}
	if !opts.Display || len(points) <= max {
		parts := make([]string, len(points))
		for i, p := range points {
			parts[i] = ftoa(p)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	head, tail := max/2, max-max/2
	parts := make([]string, 0, head+tail+1)
	for _, p := range points[:head] {
		parts = append(parts, ftoa(p))
	}
	parts = append(parts, Ellipsis)
	for _, p := range points[len(points)-tail:] {
		parts = append(parts, ftoa(p))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func parsePoints(text, name string) ([]float64, error) {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("cml: malformed points %q", text)
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var points []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == Ellipsis {
			return nil, &geocube.TruncatedDataError{Name: name}
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("cml: malformed point %q: %v", part, err)
		}
		points = append(points, v)
	}
	return points, nil
}
