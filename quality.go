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
	"math"
	"strconv"
	"strings"
)

// Core measured parameters.
const (
	Pressure    = "CTDPRS"
	Temperature = "CTDTMP"
	Salinity    = "CTDSAL"
	Oxygen      = "CTDOXY"
)

// CoreParameters are the parameters whose values are kept only for the
// WOCE CTD flags 2 (acceptable), 6 (interpolated) and 7 (despiked).
var CoreParameters = []string{Pressure, Temperature, Salinity, Oxygen}

// Names under which transmissometer and fluorometer columns occur.
var (
	TransmissometerParameters = []string{"TRANSM", "TRANSC", "XMISS", "CTDXMISS", "CTDBEAMCP"}
	FluorometerParameters     = []string{"FLUOR", "FLOUR", "FLUORM", "FLUORC", "CTDFLUOR"}
)

// FlagSuffix is appended to a parameter name to give the name of its WOCE
// quality flag column.
const FlagSuffix = "_FLAG_W"

// MissingFlag marks a missing flag value. It is the WOCE code for
// "not sampled".
const MissingFlag int16 = 9

// Temperature scales.
const (
	ITS90  = "ITS-90"
	IPTS68 = "IPTS-68"
)

// LegacyTemperatureFactor converts IPTS-68 temperatures to the ITS-90 scale.
const LegacyTemperatureFactor = 1.00024

// placeholderLimit is the value at or below which a reading is an
// instrument placeholder.
const placeholderLimit = -99

var (
	coreAccepted = map[int16]bool{2: true, 6: true, 7: true}
	auxRejected  = map[int16]bool{9: true}
)

// Missing returns the missing value marker for continuous values.
func Missing() float64 { return math.NaN() }

// IsMissing reports whether v is the missing value marker.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// IsFlag reports whether the parameter name refers to a quality flag column.
func IsFlag(name string) bool { return strings.Contains(name, "_FLAG") }

// IsAuxiliary reports whether the parameter is a transmissometer or
// fluorometer reading.
func IsAuxiliary(name string) bool {
	return contains(TransmissometerParameters, name) || contains(FluorometerParameters, name)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Kind is the storage type of a column or variable.
type Kind int

// Storage types.
const (
	Continuous Kind = iota // float64, NaN when missing
	Flag                   // int16 WOCE code, MissingFlag when missing
	Text                   // string, empty when missing
)

func (k Kind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Flag:
		return "flag"
	case Text:
		return "text"
	}
	return "invalid"
}

// Column is one typed column of a cast body.
type Column struct {
	Name   string
	Kind   Kind
	Values []float64 // set when Kind is Continuous
	Flags  []int16   // set when Kind is Flag
}

// Table is the typed body of one cast.
type Table struct {
	Columns []*Column
	rows    int
}

// NewTable converts the string cells of body into typed columns. Columns
// whose names contain "_FLAG" hold integer flags, all others floating point
// values. Cells that are empty or do not parse as finite numbers become
// missing values.
func NewTable(parameters []string, body [][]string) *Table {
	t := &Table{rows: len(body), Columns: make([]*Column, len(parameters))}
	for j, name := range parameters {
		c := &Column{Name: name}
		if IsFlag(name) {
			c.Kind = Flag
			c.Flags = make([]int16, len(body))
			for i, row := range body {
				c.Flags[i] = parseFlag(row[j])
			}
		} else {
			c.Kind = Continuous
			c.Values = make([]float64, len(body))
			for i, row := range body {
				c.Values[i] = parseValue(row[j])
			}
		}
		t.Columns[j] = c
	}
	return t
}

func parseValue(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) {
		return Missing()
	}
	return v
}

func parseFlag(s string) int16 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v != math.Trunc(v) || v < math.MinInt16 || v > math.MaxInt16 {
		return MissingFlag
	}
	return int16(v)
}

// Rows returns the number of levels in the table.
func (t *Table) Rows() int { return t.rows }

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the column with the given name, or nil if there is none.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (t *Table) values(name string) []float64 {
	if c := t.Column(name); c != nil && c.Kind == Continuous {
		return c.Values
	}
	return nil
}

func (t *Table) flags(name string) []int16 {
	if c := t.Column(name); c != nil && c.Kind == Flag {
		return c.Flags
	}
	return nil
}

// Drop removes the named columns, ignoring names that are not present.
func (t *Table) Drop(names ...string) {
	out := t.Columns[:0]
	for _, c := range t.Columns {
		if !contains(names, c.Name) {
			out = append(out, c)
		}
	}
	for i := len(out); i < len(t.Columns); i++ {
		t.Columns[i] = nil
	}
	t.Columns = out
}

// Keep removes all columns other than the named ones, and the flag
// columns of the named ones.
func (t *Table) Keep(names ...string) {
	var drop []string
	for _, c := range t.Columns {
		if contains(names, c.Name) || contains(names, strings.TrimSuffix(c.Name, FlagSuffix)) {
			continue
		}
		drop = append(drop, c.Name)
	}
	t.Drop(drop...)
}

// Filter applies the quality rules to the table in order:
//
//  1. if legacyScale is true, temperatures are converted from IPTS-68 to
//     ITS-90,
//  2. rows where temperature and salinity are both 0 lose their core values,
//  3. core and auxiliary readings <= -99 become missing,
//  4. core values with flags other than 2, 6 or 7 become missing, and
//     auxiliary values flagged 9 become missing,
//  5. the flag columns of the core parameters are removed.
//
// Missing columns are skipped.
func (t *Table) Filter(legacyScale bool) {
	temp := t.values(Temperature)
	if legacyScale {
		for i, v := range temp {
			temp[i] = LegacyTemperatureFactor * v
		}
	}

	if sal := t.values(Salinity); temp != nil && sal != nil {
		for i := range temp {
			if temp[i] == 0 && sal[i] == 0 {
				for _, name := range CoreParameters {
					if v := t.values(name); v != nil {
						v[i] = Missing()
					}
				}
			}
		}
	}

	var aux []string
	for _, c := range t.Columns {
		if IsAuxiliary(c.Name) {
			aux = append(aux, c.Name)
		}
	}

	for _, name := range append(append([]string{}, CoreParameters...), aux...) {
		v := t.values(name)
		for i := range v {
			if v[i] <= placeholderLimit {
				v[i] = Missing()
			}
		}
	}

	mask := func(name string, reject func(int16) bool) {
		v, f := t.values(name), t.flags(name+FlagSuffix)
		if v == nil || f == nil {
			return
		}
		for i := range v {
			if reject(f[i]) {
				v[i] = Missing()
			}
		}
	}
	for _, name := range CoreParameters {
		mask(name, func(f int16) bool { return !coreAccepted[f] })
	}
	for _, name := range aux {
		mask(name, func(f int16) bool { return auxRejected[f] })
	}

	coreFlags := make([]string, len(CoreParameters))
	for i, name := range CoreParameters {
		coreFlags[i] = name + FlagSuffix
	}
	t.Drop(coreFlags...)
}

// IsLegacyScale reports whether a temperature unit declares the IPTS-68
// scale.
func IsLegacyScale(unit string) bool {
	return strings.EqualFold(strings.TrimSpace(unit), IPTS68)
}

// Filter returns the typed, quality-filtered body of p.
// The temperature scale is taken from the unit of the CTDTMP column.
func Filter(p *Profile) *Table {
	t := NewTable(p.Parameters, p.Body)
	t.Filter(IsLegacyScale(p.Units[Temperature]))
	return t
}
