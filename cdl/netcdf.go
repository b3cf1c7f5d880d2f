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
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
	"github.com/spatialmodel/geocube"
	"github.com/spatialmodel/geocube/coordsys"
	"github.com/spatialmodel/geocube/units"
)

// WriteFile writes a realized cube to rw as a binary netCDF (classic
// format) file, using the same variable layout as the CDL text form.
// All values are stored as doubles; the declared value types ride in
// value_type and core_dtype attributes so that reading recovers them.
func WriteFile(c *geocube.Cube, rw cdf.ReaderWriterAt) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if !c.Realized() {
		return fmt.Errorf("geocube: writing netCDF: cube %q holds no data array", c.Name())
	}
	for _, n := range c.Shape() {
		// The classic format reserves zero-length dimensions for the
		// record dimension.
		if n == 0 {
			return fmt.Errorf("geocube: writing netCDF: cube %q has a zero-length dimension", c.Name())
		}
	}

	dimNames := dimensionNames(c)
	varName := sanitizeName(c.Name())
	gm := gridMappings(c)

	h := cdf.NewHeader(dimNames, c.Shape())

	h.AddVariable(varName, dimNames, []float64{0})
	h.AddAttribute(varName, "checksum", c.Checksum())
	h.AddAttribute(varName, "value_type", string(c.DType()))
	if c.CoreDType() != c.DType() {
		h.AddAttribute(varName, "core_dtype", string(c.CoreDType()))
	}
	if c.StandardName() != "" {
		h.AddAttribute(varName, "standard_name", c.StandardName())
	}
	if c.LongName() != "" {
		h.AddAttribute(varName, "long_name", c.LongName())
	}
	if u := c.Units(); u != nil {
		h.AddAttribute(varName, "units", u.String())
		if u.Calendar() != "" {
			h.AddAttribute(varName, "calendar", string(u.Calendar()))
		}
	}
	h.AddAttribute(varName, "_FillValue", []float64{c.FillValue()})
	if len(gm.order) > 0 {
		h.AddAttribute(varName, "grid_mapping", gm.order[0])
	}
	if cms := c.CellMethods(); len(cms) > 0 {
		parts := make([]string, len(cms))
		for i, cm := range cms {
			parts[i] = cm.String()
		}
		h.AddAttribute(varName, "cell_methods", strings.Join(parts, " ; "))
	}
	if unl := unlimitedDims(c); len(unl) > 0 {
		h.AddAttribute(varName, "unlimited_dims", unl)
	}

	for _, coord := range c.Coords() {
		name := coordVarName(c, coord, dimNames)
		var declDims []string
		for _, d := range coord.DataDims() {
			declDims = append(declDims, dimNames[d])
		}
		h.AddVariable(name, declDims, []float64{0})
		h.AddAttribute(name, "standard_name", coord.Name())
		h.AddAttribute(name, "value_type", string(coord.DType()))
		// Unmapped coordinates are stored as scalar variables, which
		// hold at most one value; their own shape rides as an
		// attribute.
		if len(declDims) == 0 {
			if len(coord.Points()) > 1 {
				return fmt.Errorf("geocube: writing netCDF: unmapped coordinate %q holds %d values",
					coord.Name(), len(coord.Points()))
			}
			h.AddAttribute(name, "shape", fmtShape(coord.Shape()))
		}
		if ax := axisFor(coord); ax != "" {
			h.AddAttribute(name, "axis", ax)
		}
		if u := coord.Units(); u != nil {
			h.AddAttribute(name, "units", u.String())
			if u.Calendar() != "" {
				h.AddAttribute(name, "calendar", string(u.Calendar()))
			}
		}
		if coord.System() != nil {
			h.AddAttribute(name, "grid_mapping", gm.nameOf[coordsys.String(coord.System())])
		}
	}

	for _, name := range gm.order {
		sys := gm.systems[name]
		h.AddVariable(name, nil, []int32{0})
		h.AddAttribute(name, "grid_mapping_name", sys.GridMappingName())
		for _, p := range sys.Params() {
			h.AddAttribute(name, p.Name, []float64{p.Value})
		}
	}

	for _, a := range c.Attributes() {
		switch v := a.Value.(type) {
		case string:
			h.AddAttribute("", a.Name, v)
		case int64:
			if v > math.MaxInt32 || v < math.MinInt32 {
				return fmt.Errorf("geocube: writing netCDF: attribute %q overflows the classic format", a.Name)
			}
			h.AddAttribute("", a.Name, []int32{int32(v)})
		case float64:
			h.AddAttribute("", a.Name, []float64{v})
		}
	}

	h.Define()
	if errs := h.Check(); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, err := range errs {
			msgs[i] = err.Error()
		}
		return fmt.Errorf("geocube: writing netCDF: %s", strings.Join(msgs, "; "))
	}
	f, err := cdf.Create(rw, h)
	if err != nil {
		return fmt.Errorf("geocube: writing netCDF: %w", err)
	}

	if err := writeVar(f, varName, c.Data().Elements); err != nil {
		return err
	}
	for _, coord := range c.Coords() {
		name := coordVarName(c, coord, dimNames)
		if len(coord.Points()) == 0 {
			// A zero-length coordinate still needs its scalar cell
			// allocated in the file.
			w := f.Writer(name, nil, nil)
			// cdf's strider returns io.EOF when a write exactly reaches
			// a non-record variable's end, even though all elements were
			// written.
			if n, err := w.Write([]float64{0}); err != nil && !(err == io.EOF && n == 1) {
				return fmt.Errorf("geocube: writing netCDF variable %q: %w", name, err)
			}
			continue
		}
		if err := writeVar(f, name, coord.Points()); err != nil {
			return err
		}
	}
	for _, name := range gm.order {
		w := f.Writer(name, nil, nil)
		if n, err := w.Write([]int32{0}); err != nil && !(err == io.EOF && n == 1) {
			return fmt.Errorf("geocube: writing netCDF variable %q: %w", name, err)
		}
	}
	return nil
}

func writeVar(f *cdf.File, name string, data []float64) error {
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	// cdf's strider returns io.EOF when a write exactly reaches a
	// non-record variable's end, even though all elements were written.
	if n, err := w.Write(data); err != nil && !(err == io.EOF && n == len(data)) {
		return fmt.Errorf("geocube: writing netCDF variable %q: %w", name, err)
	}
	return nil
}

func unlimitedDims(c *geocube.Cube) []int32 {
	var unl []int32
	for d := 0; d < c.NDim(); d++ {
		if c.Unlimited(d) {
			unl = append(unl, int32(d))
		}
	}
	return unl
}

// ReadFile reads a binary netCDF file written by WriteFile back into a
// realized cube and verifies the recomputed checksum against the stored
// one.
func ReadFile(rw cdf.ReaderWriterAt) (*geocube.Cube, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, parseErr("opening netCDF file", err)
	}

	dataName := ""
	var gmNames, coordNames []string
	for _, v := range f.Header.Variables() {
		switch {
		case f.Header.GetAttribute(v, "checksum") != nil:
			if dataName != "" {
				return nil, parseErr(fmt.Sprintf("two data variables, %q and %q", dataName, v), nil)
			}
			dataName = v
		case f.Header.GetAttribute(v, "grid_mapping_name") != nil:
			gmNames = append(gmNames, v)
		default:
			coordNames = append(coordNames, v)
		}
	}
	if dataName == "" {
		return nil, parseErr("no variable carries a checksum attribute", nil)
	}

	systems := make(map[string]coordsys.System)
	for _, name := range gmNames {
		sys, err := readGridMapping(f, name)
		if err != nil {
			return nil, err
		}
		systems[name] = sys
	}

	c, err := readDataVariable(f, dataName)
	if err != nil {
		return nil, err
	}

	dimIndex := make(map[string]int)
	for i, d := range f.Header.Dimensions(dataName) {
		dimIndex[d] = i
	}
	for _, name := range coordNames {
		coord, err := readCoordinate(f, name, dimIndex, systems)
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
	stored, _ := ncAttrString(f, dataName, "checksum")
	if got := c.Checksum(); got != stored {
		return nil, parseErr(fmt.Sprintf("checksum mismatch: file records %s but data hashes to %s",
			stored, got), nil)
	}
	return c, nil
}

func readDataVariable(f *cdf.File, name string) (*geocube.Cube, error) {
	elements, err := readVar(f, name)
	if err != nil {
		return nil, err
	}
	data := sparse.ZerosDense(f.Header.Lengths(name)...)
	copy(data.Elements, elements)

	dtype := geocube.Float64
	if s, ok := ncAttrString(f, name, "value_type"); ok {
		if dtype, err = geocube.ParseDType(s); err != nil {
			return nil, parseErr(fmt.Sprintf("data variable %q", name), err)
		}
	}
	var u *units.Unit
	if s, ok := ncAttrString(f, name, "units"); ok {
		cal, _ := ncAttrString(f, name, "calendar")
		if u, err = units.ParseCalendar(s, cal); err != nil {
			return nil, parseErr(fmt.Sprintf("units of %q", name), err)
		}
	}
	standardName, _ := ncAttrString(f, name, "standard_name")
	fill := 0.0
	if v, ok := ncAttrFloat(f, name, "_FillValue"); ok {
		fill = v
	}

	c, err := geocube.NewCube(standardName, u, data, dtype, fill)
	if err != nil {
		return nil, parseErr(fmt.Sprintf("data variable %q", name), err)
	}
	if s, ok := ncAttrString(f, name, "long_name"); ok {
		c.SetLongName(s)
	}
	if s, ok := ncAttrString(f, name, "core_dtype"); ok {
		d, err := geocube.ParseDType(s)
		if err != nil {
			return nil, parseErr(fmt.Sprintf("core_dtype of %q", name), err)
		}
		c.SetCoreDType(d)
	}
	if s, ok := ncAttrString(f, name, "cell_methods"); ok {
		cms, err := parseCellMethods(s)
		if err != nil {
			return nil, parseErr(fmt.Sprintf("cell_methods of %q", name), err)
		}
		for _, cm := range cms {
			c.AddCellMethod(cm)
		}
	}
	if unl, ok := f.Header.GetAttribute(name, "unlimited_dims").([]int32); ok {
		for _, d := range unl {
			if err := c.SetUnlimited(int(d)); err != nil {
				return nil, parseErr("unlimited dimension", err)
			}
		}
	}
	for _, a := range f.Header.Attributes("") {
		val, err := ncGlobalValue(f, a)
		if err != nil {
			return nil, err
		}
		if err := c.AddAttribute(a, val); err != nil {
			return nil, parseErr("global attribute", err)
		}
	}
	return c, nil
}

func readCoordinate(f *cdf.File, name string, dimIndex map[string]int,
	systems map[string]coordsys.System) (*geocube.Coordinate, error) {

	stdName, ok := ncAttrString(f, name, "standard_name")
	if !ok {
		return nil, parseErr(fmt.Sprintf("coordinate variable %q has no standard_name", name), nil)
	}
	dtype := geocube.Float64
	if s, ok := ncAttrString(f, name, "value_type"); ok {
		var err error
		if dtype, err = geocube.ParseDType(s); err != nil {
			return nil, parseErr(fmt.Sprintf("coordinate %q", name), err)
		}
	}
	var u *units.Unit
	if s, ok := ncAttrString(f, name, "units"); ok {
		cal, _ := ncAttrString(f, name, "calendar")
		var err error
		if u, err = units.ParseCalendar(s, cal); err != nil {
			return nil, parseErr(fmt.Sprintf("units of coordinate %q", name), err)
		}
	}
	var sys coordsys.System
	if gm, ok := ncAttrString(f, name, "grid_mapping"); ok {
		if sys, ok = systems[gm]; !ok {
			return nil, parseErr(fmt.Sprintf("coordinate %q references unknown grid mapping %q", name, gm), nil)
		}
	}

	points, err := readVar(f, name)
	if err != nil {
		return nil, err
	}
	dims := f.Header.Dimensions(name)

	var coord *geocube.Coordinate
	switch {
	case len(dims) == 1 && dims[0] == name:
		coord, err = geocube.NewDimCoord(stdName, u, points, dimIndex[name], sys, dtype)
	case len(dims) == 0:
		shape := []int{1}
		if s, ok := ncAttrString(f, name, "shape"); ok {
			if shape, err = parseShape(s); err != nil {
				return nil, parseErr(fmt.Sprintf("shape of coordinate %q", name), err)
			}
		}
		n := 1
		for _, s := range shape {
			n *= s
		}
		if n > len(points) {
			return nil, parseErr(fmt.Sprintf("coordinate %q holds %d of %d values", name, len(points), n), nil)
		}
		coord, err = geocube.NewCoordinate(geocube.AuxCoord, stdName, u, points[:n], shape, nil, sys, dtype)
	default:
		shape := f.Header.Lengths(name)
		datadims := make([]int, len(dims))
		for i, dn := range dims {
			d, ok := dimIndex[dn]
			if !ok {
				return nil, parseErr(fmt.Sprintf("coordinate %q uses unknown dimension %q", name, dn), nil)
			}
			datadims[i] = d
		}
		coord, err = geocube.NewCoordinate(geocube.AuxCoord, stdName, u, points, shape, datadims, sys, dtype)
	}
	if err != nil {
		return nil, parseErr(fmt.Sprintf("coordinate %q", name), err)
	}
	return coord, nil
}

func readGridMapping(f *cdf.File, name string) (coordsys.System, error) {
	variant, ok := ncAttrString(f, name, "grid_mapping_name")
	if !ok {
		return nil, parseErr(fmt.Sprintf("grid mapping %q has no grid_mapping_name", name), nil)
	}
	params := make(map[string]float64)
	for _, a := range f.Header.Attributes(name) {
		if a == "grid_mapping_name" {
			continue
		}
		v, ok := ncAttrFloat(f, name, a)
		if !ok {
			return nil, parseErr(fmt.Sprintf("grid mapping %q: non-numeric parameter %q", name, a), nil)
		}
		params[a] = v
	}
	sys, err := coordsys.FromGridMapping(variant, params)
	if err != nil {
		return nil, parseErr(fmt.Sprintf("grid mapping %q", name), err)
	}
	return sys, nil
}

func readVar(f *cdf.File, name string) ([]float64, error) {
	r := f.Reader(name, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, parseErr(fmt.Sprintf("reading netCDF variable %q", name), err)
	}
	data, ok := buf.([]float64)
	if !ok {
		return nil, parseErr(fmt.Sprintf("netCDF variable %q is not stored as doubles", name), nil)
	}
	return data, nil
}

func ncAttrString(f *cdf.File, v, a string) (string, bool) {
	s, ok := f.Header.GetAttribute(v, a).(string)
	return s, ok
}

func ncAttrFloat(f *cdf.File, v, a string) (float64, bool) {
	switch val := f.Header.GetAttribute(v, a).(type) {
	case []float64:
		if len(val) == 1 {
			return val[0], true
		}
	case []int32:
		if len(val) == 1 {
			return float64(val[0]), true
		}
	}
	return 0, false
}

// ncGlobalValue converts a global attribute to the model's canonical
// scalar types.
func ncGlobalValue(f *cdf.File, name string) (interface{}, error) {
	switch val := f.Header.GetAttribute("", name).(type) {
	case string:
		return val, nil
	case []int32:
		if len(val) == 1 {
			return int64(val[0]), nil
		}
	case []float64:
		if len(val) == 1 {
			return val[0], nil
		}
	}
	return nil, parseErr(fmt.Sprintf("global attribute %q has an unsupported type", name), nil)
}
