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
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/kr/pretty"
)

const testCast = `CTD,20070412ODFSIO
# comment mentioning NUMBER_HEADERS = 99
NUMBER_HEADERS = 4
EXPOCODE = 33RR20070204
STNNBR = 1
DATE = 20070216
CTDPRS,CTDPRS_FLAG_W,CTDTMP,CTDTMP_FLAG_W
DBAR,,ITS-90,
 3.0,2, -1.6280,2

 5.0,2, -1.6290,3
END_DATA
`

func lines(s string) []string { return strings.Split(strings.TrimSuffix(s, "\n"), "\n") }

func TestParse(t *testing.T) {
	p, err := Parse(lines(testCast))
	if err != nil {
		t.Fatal(err)
	}
	want := &Profile{
		Metadata: Metadata{
			Keys: []string{"EXPOCODE", "STNNBR", "DATE"},
			Values: map[string]string{
				"EXPOCODE": "33RR20070204",
				"STNNBR":   "1",
				"DATE":     "20070216",
			},
		},
		Parameters: []string{"CTDPRS", "CTDPRS_FLAG_W", "CTDTMP", "CTDTMP_FLAG_W"},
		Units: map[string]string{
			"CTDPRS":        "DBAR",
			"CTDPRS_FLAG_W": "",
			"CTDTMP":        "ITS-90",
			"CTDTMP_FLAG_W": "",
		},
		Body: [][]string{
			{"3.0", "2", "-1.6280", "2"},
			{"5.0", "2", "-1.6290", "3"},
		},
	}
	if !reflect.DeepEqual(p, want) {
		t.Errorf("parse result differs: %v", pretty.Diff(p, want))
	}
	if p.Levels() != 2 {
		t.Errorf("levels: %d != 2", p.Levels())
	}
}

func TestParseDuplicateKey(t *testing.T) {
	p, err := Parse(lines(`NUMBER_HEADERS = 4
STNNBR = 1
DATE = 20070216
STNNBR = 2
CTDPRS
DBAR
1
END_DATA`))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(p.Metadata.Keys, []string{"STNNBR", "DATE"}) {
		t.Errorf("keys: %v", p.Metadata.Keys)
	}
	if v, _ := p.Metadata.Get("STNNBR"); v != "2" {
		t.Errorf("STNNBR = %s; last value should win", v)
	}
	if !reflect.DeepEqual(p.Duplicates, []string{"STNNBR"}) {
		t.Errorf("duplicates: %v", p.Duplicates)
	}
}

func TestParseEmptyBody(t *testing.T) {
	p, err := Parse(lines("NUMBER_HEADERS = 1\nCTDPRS,CTDTMP\nDBAR,ITS-90\nEND_DATA"))
	if err != nil {
		t.Fatal(err)
	}
	if p.Levels() != 0 || len(p.Metadata.Keys) != 0 {
		t.Errorf("want no levels and no metadata, have %d and %v", p.Levels(), p.Metadata.Keys)
	}
}

func TestParseErrors(t *testing.T) {
	for _, test := range []struct {
		name, text string
	}{
		{"no header count", "EXPOCODE = X\nCTDPRS\nDBAR\nEND_DATA"},
		{"commented header count", "# NUMBER_HEADERS = 1\nCTDPRS\nDBAR\nEND_DATA"},
		{"bad header count", "NUMBER_HEADERS = x\nCTDPRS\nDBAR\nEND_DATA"},
		{"zero header count", "NUMBER_HEADERS = 0\nCTDPRS\nDBAR\nEND_DATA"},
		{"header past end", "NUMBER_HEADERS = 5\nA = 1\nCTDPRS"},
		{"no end", "NUMBER_HEADERS = 1\nCTDPRS\nDBAR\n1"},
		{"units mismatch", "NUMBER_HEADERS = 1\nCTDPRS,CTDTMP\nDBAR\n1,2\nEND_DATA"},
		{"bad metadata", "NUMBER_HEADERS = 2\nEXPOCODE\nCTDPRS\nDBAR\nEND_DATA"},
		{"repeated parameter", "NUMBER_HEADERS = 1\nCTDPRS,CTDPRS\nDBAR,DBAR\nEND_DATA"},
		{"short row", "NUMBER_HEADERS = 1\nCTDPRS,CTDTMP\nDBAR,ITS-90\n1\nEND_DATA"},
	} {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse(lines(test.text))
			if !errors.Is(err, ErrParseStructure) {
				t.Errorf("want parse structure error, have %v", err)
			}
		})
	}
}
