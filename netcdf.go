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
	"bytes"
	"fmt"
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// StrlenSuffix is appended to the name of a text variable to give the name
// of its character dimension in NetCDF files.
const StrlenSuffix = "_strlen"

// WriteNetCDF writes d to w in the NetCDF classic format. Continuous
// variables are stored as doubles, flags as shorts and text as padded
// character arrays.
func (d *Dataset) WriteNetCDF(w *os.File) error {
	if d.NumLevels == 0 && len(d.Parameters) > 0 {
		return fmt.Errorf("ctdexchange: writing netcdf file: no levels in any profile")
	}
	dims := []string{ProfileDim}
	lengths := []int{d.NumProfiles}
	if d.NumLevels > 0 {
		// A zero length would make N_level the record dimension.
		dims = append(dims, LevelDim)
		lengths = append(lengths, d.NumLevels)
	}
	strlen := make(map[string]int)
	for _, v := range d.Variables {
		if v.Kind != Text {
			continue
		}
		n := 1
		for _, s := range v.Text {
			if len(s) > n {
				n = len(s)
			}
		}
		strlen[v.Name] = n
		dims = append(dims, v.Name+StrlenSuffix)
		lengths = append(lengths, n)
	}
	h := cdf.NewHeader(dims, lengths)

	for _, v := range d.Variables {
		switch v.Kind {
		case Continuous:
			h.AddVariable(v.Name, v.Dims, []float64{0})
		case Flag:
			h.AddVariable(v.Name, v.Dims, []int16{0})
		case Text:
			h.AddVariable(v.Name, append(append([]string{}, v.Dims...), v.Name+StrlenSuffix), "")
		}
		for _, a := range v.Attributes {
			h.AddAttribute(v.Name, a.Name, a.Value)
		}
	}
	for _, a := range d.Attributes {
		h.AddAttribute("", a.Name, a.Value)
	}
	h.Define()
	if errs := h.Check(); len(errs) > 0 {
		return fmt.Errorf("ctdexchange: netcdf header: %v", errs[0])
	}

	f, err := cdf.Create(w, h) // writes the header to w
	if err != nil {
		return err
	}
	for _, v := range d.Variables {
		var data interface{}
		switch v.Kind {
		case Continuous:
			data = v.Data.Elements
		case Flag:
			flags := make([]int16, len(v.Flags.Elements))
			for i, e := range v.Flags.Elements {
				flags[i] = int16(e)
			}
			data = flags
		case Text:
			data = padText(v.Text, strlen[v.Name])
		}
		end := f.Header.Lengths(v.Name)
		start := make([]int, len(end))
		if _, err = f.Writer(v.Name, start, end).Write(data); err != nil {
			return fmt.Errorf("ctdexchange: writing variable %s to netcdf file: %v", v.Name, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

// padText lays out s as a (len(s), n) array of characters, with each
// string padded with NUL bytes.
func padText(s []string, n int) []byte {
	b := make([]byte, len(s)*n)
	for i, v := range s {
		copy(b[i*n:(i+1)*n], v)
	}
	return b
}

// ReadNetCDF reads a dataset written by WriteNetCDF.
func ReadNetCDF(rw cdf.ReaderWriterAt) (*Dataset, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("ctdexchange: reading netcdf file: %v", err)
	}
	d := &Dataset{Units: make(map[string]string)}
	for i, dim := range f.Header.Dimensions("") {
		switch dim {
		case ProfileDim:
			d.NumProfiles = f.Header.Lengths("")[i]
		case LevelDim:
			d.NumLevels = f.Header.Lengths("")[i]
		}
	}
	for _, a := range f.Header.Attributes("") {
		d.Attributes.Set(a, f.Header.GetAttribute("", a))
	}

	for _, name := range f.Header.Variables() {
		v := &Variable{Name: name, Dims: f.Header.Dimensions(name)}
		shape := f.Header.Lengths(name)
		n := 1
		for _, l := range shape {
			n *= l
		}
		r := f.Reader(name, nil, nil)
		switch f.Header.ZeroValue(name, 0).(type) {
		case []float64:
			v.Kind = Continuous
			v.Data = sparse.ZerosDense(shape...)
			_, err = r.Read(v.Data.Elements)
		case []int16:
			v.Kind = Flag
			v.Flags = sparse.ZerosDenseInt(shape...)
			tmp := make([]int16, n)
			_, err = r.Read(tmp)
			for i, e := range tmp {
				v.Flags.Elements[i] = int(e)
			}
		case string:
			v.Kind = Text
			v.Dims = v.Dims[:len(v.Dims)-1]
			tmp := make([]byte, n)
			_, err = r.Read(tmp)
			v.Text = unpadText(tmp, shape[len(shape)-1])
		default:
			return nil, fmt.Errorf("ctdexchange: netcdf variable %s has an unsupported type", name)
		}
		if err != nil {
			return nil, fmt.Errorf("ctdexchange: reading netcdf variable %s: %v", name, err)
		}
		for _, a := range f.Header.Attributes(name) {
			v.Attributes.Set(a, f.Header.GetAttribute(name, a))
		}
		if len(v.Dims) == 2 {
			d.Parameters = append(d.Parameters, name)
			d.Units[name], _ = f.Header.GetAttribute(name, UnitsAttr).(string)
		} else {
			d.MetadataFields = append(d.MetadataFields, name)
		}
		d.Variables = append(d.Variables, v)
	}
	return d, nil
}

func unpadText(b []byte, n int) []string {
	if n == 0 {
		return nil
	}
	s := make([]string, len(b)/n)
	for i := range s {
		s[i] = string(bytes.TrimRight(b[i*n:(i+1)*n], "\x00"))
	}
	return s
}
