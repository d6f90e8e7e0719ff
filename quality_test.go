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
	"os"
	"reflect"
	"strconv"
	"testing"

	"gonum.org/v1/gonum/floats"
)

// sameFloats reports whether a and b are equal within tol, treating
// missing values as equal to each other.
func sameFloats(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if IsMissing(a[i]) || IsMissing(b[i]) {
			if IsMissing(a[i]) != IsMissing(b[i]) {
				return false
			}
			continue
		}
		if !floats.EqualWithinAbsOrRel(a[i], b[i], tol, tol) {
			return false
		}
	}
	return true
}

func readTestCast(t *testing.T, name string) *Profile {
	t.Helper()
	f, err := os.Open("testdata/casts/" + name)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	l, err := readLines(f)
	if err != nil {
		t.Fatal(err)
	}
	p, err := Parse(l)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestFilter(t *testing.T) {
	tbl := Filter(readTestCast(t, "33RR20070204_00001_00001_ct1.csv"))
	nan := math.NaN()

	wantNames := []string{"CTDPRS", "CTDTMP", "CTDSAL", "CTDOXY", "TRANSM", "TRANSM_FLAG_W", "FLUOR", "FLUOR_FLAG_W"}
	if !reflect.DeepEqual(tbl.Names(), wantNames) {
		t.Fatalf("columns: %v != %v", tbl.Names(), wantNames)
	}
	want := map[string][]float64{
		// Row 4 has zero temperature and salinity.
		"CTDPRS": {3, 5, 7, nan, 11},
		"CTDTMP": {-1.628, -1.629, nan, nan, -1.63},
		"CTDSAL": {34.257, 34.256, 34.2553, nan, nan},
		"CTDOXY": {353.1, nan, 352.9, nan, 351.8},
		"TRANSM": {4.5617, 4.561, nan, 4.56, 4.559},
		"FLUOR":  {0.0558, nan, 0.059, 0.061, 0.06},
	}
	for name, w := range want {
		if have := tbl.Column(name).Values; !sameFloats(have, w, 1e-12) {
			t.Errorf("%s: %v != %v", name, have, w)
		}
	}
	if have := tbl.Column("FLUOR_FLAG_W").Flags; !reflect.DeepEqual(have, []int16{1, 9, 1, 1, 1}) {
		t.Errorf("FLUOR_FLAG_W: %v", have)
	}
	if tbl.Rows() != 5 {
		t.Errorf("rows: %d != 5", tbl.Rows())
	}
}

func TestFilterLegacyScale(t *testing.T) {
	tbl := NewTable([]string{"CTDTMP", "CTDTMP_FLAG_W", "CTDSAL"}, [][]string{
		{"10", "2", "35"},
		{"0", "2", "0"},
	})
	tbl.Filter(true)
	if have := tbl.Column(Temperature).Values; !sameFloats(have, []float64{10.0024, math.NaN()}, 1e-12) {
		t.Errorf("temperature: %v", have)
	}
	if !IsLegacyScale(" ipts-68 ") || IsLegacyScale(ITS90) {
		t.Error("legacy scale detection")
	}
}

func TestFilterMissingColumns(t *testing.T) {
	// No salinity: the co-zero rule cannot apply and nothing panics.
	tbl := NewTable([]string{"CTDPRS", "XMISS", "XMISS_FLAG_W"}, [][]string{
		{"0", "-99", "2"},
		{"1", "3.5", "9"},
		{"2", "4.5", "3"},
	})
	tbl.Filter(false)
	if have := tbl.Column(Pressure).Values; !sameFloats(have, []float64{0, 1, 2}, 0) {
		t.Errorf("pressure: %v", have)
	}
	if have := tbl.Column("XMISS").Values; !sameFloats(have, []float64{math.NaN(), math.NaN(), 4.5}, 0) {
		t.Errorf("transmissometer: %v", have)
	}
}

func TestNewTable(t *testing.T) {
	tbl := NewTable([]string{"CTDPRS", "CTDPRS_FLAG_W"}, [][]string{
		{"", "2.0"},
		{"abc", "x"},
		{"+Inf", "2.5"},
		{"-999", ""},
	})
	if have := tbl.Column(Pressure).Values; !sameFloats(have, []float64{math.NaN(), math.NaN(), math.NaN(), -999}, 0) {
		t.Errorf("values: %v", have)
	}
	if have := tbl.Column("CTDPRS_FLAG_W").Flags; !reflect.DeepEqual(have, []int16{2, 9, 9, 9}) {
		t.Errorf("flags: %v", have)
	}
	if tbl.Column("CTDPRS_FLAG_W").Kind != Flag || tbl.Column(Pressure).Kind != Continuous {
		t.Error("kinds")
	}
}

func TestKeep(t *testing.T) {
	tbl := NewTable([]string{"CTDPRS", "CTDTMP", "TRANSM", "TRANSM_FLAG_W"}, nil)
	tbl.Keep("CTDPRS", "TRANSM", "NOTHERE")
	if have := tbl.Names(); !reflect.DeepEqual(have, []string{"CTDPRS", "TRANSM", "TRANSM_FLAG_W"}) {
		t.Errorf("kept %v", have)
	}
}

func TestFilterFlagCodes(t *testing.T) {
	for flag := int16(1); flag <= 9; flag++ {
		f := strconv.Itoa(int(flag))
		tbl := NewTable(
			[]string{Salinity, Salinity + FlagSuffix, "XMISS", "XMISS" + FlagSuffix},
			[][]string{{"34.5", f, "4.5", f}},
		)
		tbl.Filter(false)

		coreKept := flag == 2 || flag == 6 || flag == 7
		if have := tbl.Column(Salinity).Values[0]; IsMissing(have) == coreKept {
			t.Errorf("flag %d: salinity %v, want kept=%v", flag, have, coreKept)
		}
		auxKept := flag != 9
		if have := tbl.Column("XMISS").Values[0]; IsMissing(have) == auxKept {
			t.Errorf("flag %d: transmissometer %v, want kept=%v", flag, have, auxKept)
		}
		if want := []string{Salinity, "XMISS", "XMISS" + FlagSuffix}; !reflect.DeepEqual(tbl.Names(), want) {
			t.Errorf("flag %d: columns %v != %v", flag, tbl.Names(), want)
		}
		if have := tbl.Column("XMISS" + FlagSuffix).Flags[0]; have != flag {
			t.Errorf("flag %d: auxiliary flag changed to %d", flag, have)
		}
	}
}
