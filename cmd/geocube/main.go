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

// Command geocube is a command-line interface for converting and
// comparing geophysical cube files.
package main

import (
	"os"

	"github.com/spatialmodel/geocube/geocubeutil"
)

func main() {
	if err := geocubeutil.Root.Execute(); err != nil {
		os.Exit(1)
	}
}
