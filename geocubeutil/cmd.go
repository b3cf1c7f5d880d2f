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

// Package geocubeutil holds the command-line interface for working with
// cube files.
package geocubeutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/spatialmodel/geocube"
	"github.com/spatialmodel/geocube/cdl"
	"github.com/spatialmodel/geocube/cml"
)

var log = logrus.StandardLogger()

var (
	display   bool
	maxPoints int
)

// Root is the main command.
var Root = &cobra.Command{
	Use:   "geocube",
	Short: "geocube converts and compares geophysical cube files",
	Long: `geocube reads and writes cube metadata in the CubeML (.cml, .xml),
CDL (.cdl), and binary netCDF (.nc) forms, and compares cubes for
content equality using their checksums and coordinate identities.`,
	SilenceUsage: true,
}

var convertCmd = &cobra.Command{
	Use:   "convert [input file] [output file]",
	Short: "convert a cube file between formats",
	Long: `convert reads the cube in the input file and writes it to the output
file in the format implied by the output file's extension. The CubeML
and CDL text forms never carry the data array, so converting to binary
netCDF is only possible from another binary netCDF file.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cubes, err := readCubes(args[0])
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"file":  args[0],
			"cubes": len(cubes),
		}).Info("read input")
		return writeCubes(cubes, args[1], serializeOptions())
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify [file A] [file B]",
	Short: "check that two cube files hold equivalent cubes",
	Long: `verify parses both files and compares the cubes they hold field by
field, including data checksums and coordinate identities. It exits
with an error if the cubes differ.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := readCubes(args[0])
		if err != nil {
			return err
		}
		b, err := readCubes(args[1])
		if err != nil {
			return err
		}
		if len(a) != len(b) {
			return fmt.Errorf("%s holds %d cubes but %s holds %d", args[0], len(a), args[1], len(b))
		}
		equal := true
		for i := range a {
			diffs := geocube.Diff(a[i], b[i])
			if len(diffs) == 0 {
				log.WithField("cube", a[i].Name()).Info("equivalent")
				continue
			}
			equal = false
			for _, d := range diffs {
				log.WithFields(logrus.Fields{
					"cube": a[i].Name(),
					"diff": d,
				}).Error("cubes differ")
			}
		}
		if !equal {
			return fmt.Errorf("%s and %s differ", args[0], args[1])
		}
		return nil
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe [input file]",
	Short: "print a cube file as human-readable CDL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cubes, err := readCubes(args[0])
		if err != nil {
			return err
		}
		o := &cdl.Options{Display: true, MaxPoints: maxPoints}
		for _, c := range cubes {
			text, err := cdl.Marshal(c, o)
			if err != nil {
				return err
			}
			os.Stdout.Write(text)
		}
		return nil
	},
}

func init() {
	// GEOCUBE_MAX_POINTS overrides the display truncation threshold.
	if v := os.Getenv("GEOCUBE_MAX_POINTS"); v != "" {
		maxPoints = cast.ToInt(v)
	}
	convertCmd.Flags().BoolVar(&display, "display", false,
		"write the human-readable display form, truncating long point sequences")
	convertCmd.Flags().IntVar(&maxPoints, "max-points", maxPoints,
		"points shown per coordinate before display truncation (0 for the default)")
	describeCmd.Flags().IntVar(&maxPoints, "max-points", maxPoints,
		"points shown per coordinate before display truncation (0 for the default)")
	Root.AddCommand(convertCmd, verifyCmd, describeCmd)
}

func serializeOptions() *cml.Options {
	return &cml.Options{Display: display, MaxPoints: maxPoints}
}

// readCubes parses the cube file at path, choosing the format from the
// file extension.
func readCubes(path string) (geocube.CubeList, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".cml", ".xml":
		text, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return cml.Unmarshal(text)
	case ".cdl":
		text, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		c, err := cdl.Unmarshal(text)
		if err != nil {
			return nil, err
		}
		return geocube.CubeList{c}, nil
	case ".nc":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		c, err := cdl.ReadFile(f)
		if err != nil {
			return nil, err
		}
		return geocube.CubeList{c}, nil
	default:
		return nil, fmt.Errorf("unrecognized cube file extension %q", ext)
	}
}

// writeCubes serializes cubes to path, choosing the format from the
// file extension.
func writeCubes(cubes geocube.CubeList, path string, o *cml.Options) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".cml", ".xml":
		text, err := cml.Marshal(cubes, o)
		if err != nil {
			return err
		}
		return os.WriteFile(path, text, 0644)
	case ".cdl":
		if len(cubes) != 1 {
			return fmt.Errorf("a CDL file holds exactly one cube, not %d", len(cubes))
		}
		text, err := cdl.Marshal(cubes[0], &cdl.Options{Display: o.Display, MaxPoints: o.MaxPoints})
		if err != nil {
			return err
		}
		return os.WriteFile(path, text, 0644)
	case ".nc":
		if len(cubes) != 1 {
			return fmt.Errorf("a netCDF file holds exactly one cube, not %d", len(cubes))
		}
		if !cubes[0].Realized() {
			return fmt.Errorf("cube %q holds no data array; only another netCDF file can provide one", cubes[0].Name())
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return cdl.WriteFile(cubes[0], f)
	default:
		return fmt.Errorf("unrecognized cube file extension %q", ext)
	}
}
