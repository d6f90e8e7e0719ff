/*
Copyright © 2024 the ctdexchange authors.
This file is part of ctdexchange.

ctdexchange is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

ctdexchange is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with ctdexchange.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package ctdexchange converts CTD casts stored in the WOCE/CCHDO exchange
// text format into a single multi-profile dataset indexed by profile and
// level, and writes that dataset to NetCDF or Parquet archives.
//
// A conversion runs in stages: the casts are listed and ordered (Scan),
// each cast is parsed (Parse) and quality filtered (Filter), all casts are
// assembled into one rectangular Dataset (Assemble), and the Dataset is
// annotated with descriptive attributes (AttributeTables.Annotate) before
// being written.
package ctdexchange

import "errors"

// Version gives the version number.
const Version = "1.0.0"

// Dimension names used in assembled datasets.
const (
	ProfileDim = "N_profile"
	LevelDim   = "N_level"
)

// Error categories returned by the conversion stages. Returned errors wrap
// one of these and can be matched with errors.Is.
var (
	// ErrMalformedFilename means a sort key could not be extracted from a
	// cast file name.
	ErrMalformedFilename = errors.New("malformed filename")

	// ErrParseStructure means a cast file does not have the expected
	// exchange layout.
	ErrParseStructure = errors.New("invalid exchange file structure")

	// ErrSchemaDrift means a cast declares different parameters than the
	// first cast of the batch.
	ErrSchemaDrift = errors.New("parameter schema differs from first cast")

	// ErrNotRectangular means an assembled variable does not span the
	// dataset dimensions.
	ErrNotRectangular = errors.New("dataset is not rectangular")
)
