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
	"strings"

	"github.com/ctessum/sparse"
)

// Attribute is a named descriptive value attached to a variable or a
// dataset. Value is a string, []float64 or []int16.
type Attribute struct {
	Name  string
	Value interface{}
}

// Attributes is an ordered list of attributes with unique names.
type Attributes []Attribute

// Set sets the attribute name to v, replacing any existing value.
func (a *Attributes) Set(name string, v interface{}) {
	for i := range *a {
		if (*a)[i].Name == name {
			(*a)[i].Value = v
			return
		}
	}
	*a = append(*a, Attribute{Name: name, Value: v})
}

// Get returns the value of attribute name and whether it is present.
func (a Attributes) Get(name string) (interface{}, bool) {
	for _, at := range a {
		if at.Name == name {
			return at.Value, true
		}
	}
	return nil, false
}

// Variable is one array of an assembled dataset. Data parameters span
// (N_profile, N_level); metadata fields span (N_profile).
type Variable struct {
	Name string
	Dims []string
	Kind Kind

	Data  *sparse.DenseArray    // Continuous values
	Flags *sparse.DenseArrayInt // Flag values
	Text  []string              // Text values, one per profile

	Attributes Attributes
}

// Shape returns the length of each dimension of v.
func (v *Variable) Shape() []int {
	switch v.Kind {
	case Continuous:
		return v.Data.Shape
	case Flag:
		return v.Flags.Shape
	case Text:
		return []int{len(v.Text)}
	}
	return nil
}

// Dataset is the rectangular combination of a batch of casts.
type Dataset struct {
	NumProfiles int
	NumLevels   int

	// Parameters are the names of the (N_profile, N_level) variables and
	// Units gives their units, both taken from the first cast.
	Parameters []string
	Units      map[string]string

	// MetadataFields are the names of the (N_profile) variables.
	MetadataFields []string

	// ConvertedProfiles is the number of casts whose temperatures were
	// converted from IPTS-68.
	ConvertedProfiles int

	Variables  []*Variable
	Attributes Attributes
}

// Variable returns the variable with the given name, or nil.
func (d *Dataset) Variable(name string) *Variable {
	for _, v := range d.Variables {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// Check returns an error wrapping ErrNotRectangular if any variable does
// not span the dataset dimensions.
func (d *Dataset) Check() error {
	for _, v := range d.Variables {
		shape := v.Shape()
		if len(shape) != len(v.Dims) {
			return fmt.Errorf("ctdexchange: variable %s has %d dimension names for %d dimensions: %w",
				v.Name, len(v.Dims), len(shape), ErrNotRectangular)
		}
		for i, dim := range v.Dims {
			want := -1
			switch dim {
			case ProfileDim:
				want = d.NumProfiles
			case LevelDim:
				want = d.NumLevels
			}
			if want >= 0 && shape[i] != want {
				return fmt.Errorf("ctdexchange: variable %s has length %d along %s but the dataset has %d: %w",
					v.Name, shape[i], dim, want, ErrNotRectangular)
			}
		}
		if len(v.Dims) == 0 || v.Dims[0] != ProfileDim {
			return fmt.Errorf("ctdexchange: variable %s is not indexed by %s: %w", v.Name, ProfileDim, ErrNotRectangular)
		}
	}
	return nil
}

// Expocode returns the EXPOCODE of the first profile, which names the
// output files.
func (d *Dataset) Expocode() (string, error) {
	v := d.Variable("EXPOCODE")
	if v == nil || v.Kind != Text || len(v.Text) == 0 || strings.TrimSpace(v.Text[0]) == "" {
		return "", fmt.Errorf("ctdexchange: the first cast has no EXPOCODE to name the output after")
	}
	return strings.TrimSpace(v.Text[0]), nil
}
