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
	"io"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/spatialmodel/ctdexchange/internal/hash"
	"github.com/spf13/cast"
	"gonum.org/v1/gonum/floats"
)

// Attribute names set by Annotate.
const (
	UnitsAttr       = "units"
	FillValueAttr   = "_FillValue"
	ActualRangeAttr = "actual_range"
)

// DefaultVariableAttributes are the descriptive attributes of the common
// metadata fields.
var DefaultVariableAttributes = map[string]map[string]string{
	"EXPOCODE":       {"long_name": "Expedition code"},
	"SECT_ID":        {"long_name": "Section identifier"},
	"STNNBR":         {"long_name": "Station number"},
	"CASTNO":         {"long_name": "Cast number"},
	Date:             {UnitsAttr: "yyyymmdd", "long_name": "Date"},
	Time:             {UnitsAttr: "hhmm", "long_name": "Time"},
	Latitude:         {UnitsAttr: "degrees_north", "long_name": "Latitude", "standard_name": "latitude", "axis": "Y"},
	Longitude:        {UnitsAttr: "degrees_east", "long_name": "Longitude", "standard_name": "longitude", "axis": "X"},
	Depth:            {UnitsAttr: "meters", "long_name": "Bottom depth"},
	DecimalYearField: {UnitsAttr: "yyyy.####", "long_name": "Decimal year"},
}

// DefaultGlobalAttributes are the global attributes used when no global
// attribute table is given.
var DefaultGlobalAttributes = map[string]string{
	"title": "CTD data",
}

// AttributeTables hold the descriptive attributes attached to a dataset.
type AttributeTables struct {
	// Variables maps a field name to its attribute names and values.
	Variables map[string]map[string]string

	// Global holds the dataset attributes.
	Global map[string]string
}

// DefaultAttributeTables returns the built-in attribute tables.
func DefaultAttributeTables() *AttributeTables {
	t := &AttributeTables{
		Variables: make(map[string]map[string]string),
		Global:    make(map[string]string),
	}
	for name, attrs := range DefaultVariableAttributes {
		t.Variables[name] = make(map[string]string)
		for k, v := range attrs {
			t.Variables[name][k] = v
		}
	}
	for k, v := range DefaultGlobalAttributes {
		t.Global[k] = v
	}
	return t
}

// ReadVariableAttributes reads a TOML table of the form
//
//	[LATITUDE]
//	units = "degrees_north"
//	long_name = "Latitude"
//
// replacing the variable attributes of t.
func (t *AttributeTables) ReadVariableAttributes(r io.Reader) error {
	var raw map[string]map[string]interface{}
	if _, err := toml.DecodeReader(r, &raw); err != nil {
		return fmt.Errorf("ctdexchange: reading variable attributes: %v", err)
	}
	t.Variables = make(map[string]map[string]string)
	for name, attrs := range raw {
		t.Variables[name] = make(map[string]string)
		for k, v := range attrs {
			s, err := cast.ToStringE(v)
			if err != nil {
				return fmt.Errorf("ctdexchange: attribute %s of %s: %v", k, name, err)
			}
			t.Variables[name][k] = s
		}
	}
	return nil
}

// ReadGlobalAttributes reads a flat TOML table of global attributes,
// replacing the global attributes of t. Non-string values are converted
// to strings.
func (t *AttributeTables) ReadGlobalAttributes(r io.Reader) error {
	var raw map[string]interface{}
	if _, err := toml.DecodeReader(r, &raw); err != nil {
		return fmt.Errorf("ctdexchange: reading global attributes: %v", err)
	}
	t.Global = make(map[string]string)
	for k, v := range raw {
		s, err := cast.ToStringE(v)
		if err != nil {
			return fmt.Errorf("ctdexchange: global attribute %s: %v", k, err)
		}
		t.Global[k] = s
	}
	return nil
}

// Annotate attaches attributes to the variables of d and to d itself.
//
// Continuous variables get their units, a NaN _FillValue and, when they
// hold any valid values, an actual_range. Flag variables get a _FillValue
// of MissingFlag and never a unit. Fields listed in t also get their
// descriptive attributes; fields that are not listed get none.
//
// The global attributes are those of t followed by expocode,
// profile_count, level_count, temperature_scale and dataset_hash.
func (d *Dataset) Annotate(t *AttributeTables) error {
	for _, v := range d.Variables {
		v.Attributes = nil
		switch v.Kind {
		case Flag:
			v.Attributes.Set(FillValueAttr, []int16{MissingFlag})
		case Continuous:
			if u := d.Units[v.Name]; u != "" {
				v.Attributes.Set(UnitsAttr, u)
			}
		}
		for _, k := range sortedKeys(t.Variables[v.Name]) {
			if k == UnitsAttr && v.Kind == Flag {
				continue
			}
			v.Attributes.Set(k, t.Variables[v.Name][k])
		}
		if v.Kind == Continuous {
			v.Attributes.Set(FillValueAttr, []float64{Missing()})
			if r := actualRange(v.Data.Elements); r != nil {
				v.Attributes.Set(ActualRangeAttr, r)
			}
		}
	}

	d.Attributes = nil
	for _, k := range sortedKeys(t.Global) {
		d.Attributes.Set(k, t.Global[k])
	}
	expocode, err := d.Expocode()
	if err != nil {
		return err
	}
	d.Attributes.Set("expocode", expocode)
	d.Attributes.Set("profile_count", cast.ToString(d.NumProfiles))
	d.Attributes.Set("level_count", cast.ToString(d.NumLevels))
	scale := ITS90
	if d.ConvertedProfiles > 0 {
		scale = fmt.Sprintf("%s (%d of %d profiles converted from %s)", ITS90, d.ConvertedProfiles, d.NumProfiles, IPTS68)
	}
	d.Attributes.Set("temperature_scale", scale)
	d.Attributes.Set("dataset_hash", d.Hash())
	return nil
}

// Hash returns a fingerprint of the names, shapes and values of the
// variables of d.
func (d *Dataset) Hash() string {
	objects := make([]interface{}, 0, 3*len(d.Variables))
	for _, v := range d.Variables {
		objects = append(objects, v.Name, v.Shape())
		switch v.Kind {
		case Continuous:
			objects = append(objects, v.Data.Elements)
		case Flag:
			objects = append(objects, v.Flags.Elements)
		case Text:
			objects = append(objects, v.Text)
		}
	}
	return hash.Hash(objects...)
}

// actualRange returns the minimum and maximum of the non-missing values, or
// nil if there are none.
func actualRange(values []float64) []float64 {
	valid := make([]float64, 0, len(values))
	for _, v := range values {
		if !IsMissing(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	return []float64{floats.Min(valid), floats.Max(valid)}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
