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

package ctdexchange

import (
	"fmt"
	"math"
	"strconv"

	"github.com/ctessum/sparse"
)

// Metadata fields with special handling.
const (
	Latitude         = "LATITUDE"
	Longitude        = "LONGITUDE"
	Depth            = "DEPTH"
	Date             = "DATE"
	Time             = "TIME"
	DecimalYearField = "DEC_YEAR"
)

// NumericMetadata are the metadata fields stored as floating point values.
// All other metadata fields are stored as text.
var NumericMetadata = []string{Latitude, Longitude, Depth}

// Cast is one parsed and quality-filtered cast.
type Cast struct {
	// Name identifies the cast in error messages.
	Name string

	Metadata Metadata
	Units    map[string]string
	Table    *Table
}

// NewCast parses and filters the lines of one exchange file.
func NewCast(name string, lines []string) (*Cast, *Profile, error) {
	p, err := Parse(lines)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", name, err)
	}
	return &Cast{
		Name:     name,
		Metadata: p.Metadata,
		Units:    p.Units,
		Table:    Filter(p),
	}, p, nil
}

// AssembleOptions control how casts are combined.
type AssembleOptions struct {
	// MetadataFields, if not empty, selects and orders the metadata fields
	// to keep. DEC_YEAR is always added.
	MetadataFields []string

	// DecimalYearPrecision is the number of decimal digits DEC_YEAR is
	// rounded to.
	DecimalYearPrecision int

	// DateError, if not nil, is called for each cast whose DATE/TIME could
	// not be parsed. The cast's DEC_YEAR is missing.
	DateError func(c *Cast, err error)
}

// Assemble combines casts into a single dataset. Each body column becomes a
// (N_profile, N_level) variable; casts with fewer levels than the longest
// are padded with missing values. Each metadata field becomes a
// (N_profile) variable.
//
// The parameter catalog is taken from the first cast. A later cast with
// different parameter names, or the same names in a different order, is an
// error wrapping ErrSchemaDrift.
func Assemble(casts []*Cast, opt AssembleOptions) (*Dataset, error) {
	if len(casts) == 0 {
		return nil, fmt.Errorf("ctdexchange: no casts to assemble")
	}
	first := casts[0].Table
	d := &Dataset{
		NumProfiles: len(casts),
		Parameters:  first.Names(),
		Units:       make(map[string]string),
	}
	for _, name := range d.Parameters {
		d.Units[name] = catalogUnit(name, casts[0].Units[name])
	}
	for _, c := range casts {
		if err := checkSchema(d.Parameters, c); err != nil {
			return nil, err
		}
		if IsLegacyScale(c.Units[Temperature]) {
			d.ConvertedProfiles++
		}
		if c.Table.Rows() > d.NumLevels {
			d.NumLevels = c.Table.Rows()
		}
	}

	for j, name := range d.Parameters {
		d.Variables = append(d.Variables, assembleColumn(name, first.Columns[j].Kind, j, casts, d.NumLevels))
	}

	d.MetadataFields = metadataFields(casts, opt.MetadataFields)
	for _, name := range d.MetadataFields {
		d.Variables = append(d.Variables, assembleMetadata(name, casts))
	}
	d.MetadataFields = append(d.MetadataFields, DecimalYearField)
	d.Variables = append(d.Variables, decimalYears(casts, opt))

	if err := d.Check(); err != nil {
		return nil, err
	}
	return d, nil
}

func checkSchema(names []string, c *Cast) error {
	got := c.Table.Names()
	if len(got) != len(names) {
		return fmt.Errorf("ctdexchange: %s: %d parameters but the first cast has %d: %w",
			c.Name, len(got), len(names), ErrSchemaDrift)
	}
	for i := range names {
		if got[i] != names[i] {
			return fmt.Errorf("ctdexchange: %s: parameter %d is %s but in the first cast it is %s: %w",
				c.Name, i+1, got[i], names[i], ErrSchemaDrift)
		}
	}
	return nil
}

// catalogUnit returns the unit a parameter has after quality filtering.
func catalogUnit(name, unit string) string {
	if name == Temperature && IsLegacyScale(unit) {
		return ITS90
	}
	return unit
}

// UnitMismatches returns the parameters of c whose units differ from the
// dataset catalog.
func (d *Dataset) UnitMismatches(c *Cast) []string {
	var out []string
	for _, name := range d.Parameters {
		if catalogUnit(name, c.Units[name]) != d.Units[name] {
			out = append(out, name)
		}
	}
	return out
}

// assembleColumn fills a pre-sized (profile, level) buffer with column j of
// every cast. Row i starts at element i*levels.
func assembleColumn(name string, kind Kind, j int, casts []*Cast, levels int) *Variable {
	v := &Variable{Name: name, Dims: []string{ProfileDim, LevelDim}, Kind: kind}
	switch kind {
	case Flag:
		v.Flags = sparse.ZerosDenseInt(len(casts), levels)
		for k := range v.Flags.Elements {
			v.Flags.Elements[k] = int(MissingFlag)
		}
		for i, c := range casts {
			row := v.Flags.Elements[i*levels : (i+1)*levels]
			for k, f := range c.Table.Columns[j].Flags {
				row[k] = int(f)
			}
		}
	default:
		v.Data = sparse.ZerosDense(len(casts), levels)
		for k := range v.Data.Elements {
			v.Data.Elements[k] = Missing()
		}
		for i, c := range casts {
			copy(v.Data.Elements[i*levels:(i+1)*levels], c.Table.Columns[j].Values)
		}
	}
	return v
}

// metadataFields returns the metadata keys of all casts in first-seen
// order, restricted to and ordered by subset if it is not empty.
func metadataFields(casts []*Cast, subset []string) []string {
	seen := make(map[string]bool)
	var all []string
	for _, c := range casts {
		for _, k := range c.Metadata.Keys {
			if !seen[k] && k != DecimalYearField {
				seen[k] = true
				all = append(all, k)
			}
		}
	}
	if len(subset) == 0 {
		return all
	}
	var out []string
	for _, k := range subset {
		if seen[k] {
			out = append(out, k)
			seen[k] = false
		}
	}
	return out
}

func assembleMetadata(name string, casts []*Cast) *Variable {
	v := &Variable{Name: name, Dims: []string{ProfileDim}}
	if !contains(NumericMetadata, name) {
		v.Kind = Text
		v.Text = make([]string, len(casts))
		for i, c := range casts {
			v.Text[i], _ = c.Metadata.Get(name)
		}
		return v
	}
	v.Kind = Continuous
	v.Data = sparse.ZerosDense(len(casts))
	for i, c := range casts {
		val := Missing()
		if s, ok := c.Metadata.Get(name); ok {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				val = f
			}
		}
		if name == Longitude && !IsMissing(val) {
			val = NormalizeLongitude(val)
		}
		v.Data.Elements[i] = val
	}
	return v
}

func decimalYears(casts []*Cast, opt AssembleOptions) *Variable {
	v := &Variable{
		Name: DecimalYearField,
		Dims: []string{ProfileDim},
		Kind: Continuous,
		Data: sparse.ZerosDense(len(casts)),
	}
	for i, c := range casts {
		v.Data.Elements[i] = Missing()
		date, ok := c.Metadata.Get(Date)
		if !ok {
			if opt.DateError != nil {
				opt.DateError(c, fmt.Errorf("ctdexchange: no DATE in header"))
			}
			continue
		}
		clock, _ := c.Metadata.Get(Time)
		t, err := ParseDateTime(date, clock)
		if err != nil {
			if opt.DateError != nil {
				opt.DateError(c, err)
			}
			continue
		}
		v.Data.Elements[i] = DecimalYear(t, opt.DecimalYearPrecision)
	}
	return v
}

// NormalizeLongitude maps lon into the range [0, 360) degrees.
func NormalizeLongitude(lon float64) float64 {
	if lon < 0 {
		lon += 360
	}
	lon = math.Mod(lon, 360)
	if lon < 0 {
		lon += 360
	}
	if lon >= 360 {
		lon -= 360
	}
	return lon
}
