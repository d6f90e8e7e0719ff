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

package ctdutil

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/ctdexchange"
)

func convert(t *testing.T, values map[string]interface{}) ([]string, string, error) {
	t.Helper()
	cfg, err := LoadConfig(testViper(values))
	if err != nil {
		t.Fatal(err)
	}
	var b bytes.Buffer
	outputs, err := Convert(cfg, NewLogger(&b, logrus.DebugLevel))
	return outputs, b.String(), err
}

func readNetCDF(t *testing.T, path string) *ctdexchange.Dataset {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	d, err := ctdexchange.ReadNetCDF(f)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	outputs, log, err := convert(t, map[string]interface{}{
		"OutputDir":     dir,
		"OutputFormats": []string{"netcdf", "parquet"},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "33RR20070204.nc"), filepath.Join(dir, "33RR20070204.parquet")}
	if !reflect.DeepEqual(outputs, want) {
		t.Fatalf("outputs: %v != %v", outputs, want)
	}
	for _, o := range outputs {
		if info, err := os.Stat(o); err != nil || info.Size() == 0 {
			t.Errorf("%s: %v", o, err)
		}
	}
	d := readNetCDF(t, outputs[0])
	if d.NumProfiles != 2 || d.NumLevels != 7 {
		t.Errorf("dimensions (%d, %d)", d.NumProfiles, d.NumLevels)
	}
	if have, _ := d.Attributes.Get("title"); have != "CTD data" {
		t.Errorf("title: %v", have)
	}
	if !strings.Contains(log, "conversion finished") || strings.Contains(log, "level=warning") {
		t.Errorf("log:\n%s", log)
	}
}

func TestConvertSubset(t *testing.T) {
	dir := t.TempDir()
	outputs, log, err := convert(t, map[string]interface{}{
		"OutputDir":      dir,
		"Parameters":     []string{"CTDPRS", "TRANSM", "NOTHERE"},
		"MetadataFields": []string{"EXPOCODE", "LATITUDE"},
	})
	if err != nil {
		t.Fatal(err)
	}
	d := readNetCDF(t, outputs[0])
	if want := []string{"CTDPRS", "TRANSM", "TRANSM_FLAG_W"}; !reflect.DeepEqual(d.Parameters, want) {
		t.Errorf("parameters: %v != %v", d.Parameters, want)
	}
	if want := []string{"EXPOCODE", "LATITUDE", "DEC_YEAR"}; !reflect.DeepEqual(d.MetadataFields, want) {
		t.Errorf("metadata fields: %v != %v", d.MetadataFields, want)
	}
	if !strings.Contains(log, "parameter=NOTHERE") {
		t.Errorf("log should warn about the missing parameter:\n%s", log)
	}
}

func copyCast(t *testing.T, dir, name string) {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("../testdata/casts", name))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), b, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestConvertFailFast(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	copyCast(t, in, "33RR20070204_00001_00001_ct1.csv")
	bad := "33RR20070204_00003_00001_ct1.csv"
	if err := os.WriteFile(filepath.Join(in, bad), []byte("NUMBER_HEADERS = 1\nCTDPRS\nDBAR\n1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, _, err := convert(t, map[string]interface{}{"InputPath": in, "OutputDir": out})
	if !errors.Is(err, ctdexchange.ErrParseStructure) {
		t.Fatalf("want parse structure error, have %v", err)
	}
	if !strings.Contains(err.Error(), bad) {
		t.Errorf("error should name the file: %v", err)
	}
	if entries, _ := os.ReadDir(out); len(entries) != 0 {
		t.Errorf("no output should be written, found %d files", len(entries))
	}
}

func TestConvertWarnings(t *testing.T) {
	in := t.TempDir()
	copyCast(t, in, "33RR20070204_00001_00001_ct1.csv")
	b, err := os.ReadFile("../testdata/casts/33RR20070204_00002_00001_ct1.csv")
	if err != nil {
		t.Fatal(err)
	}
	s := strings.Replace(string(b), "DATE = 20070217", "DATE = 2007-02-17", 1)
	s = strings.Replace(s, "NUMBER_HEADERS = 11\n", "NUMBER_HEADERS = 12\nSTNNBR = 99\n", 1)
	s = strings.Replace(s, "DBAR,,ITS-90,,PSS-78", "DBAR,,ITS-90,,PSU", 1)
	if err := os.WriteFile(filepath.Join(in, "33RR20070204_00002_00001_ct1.csv"), []byte(s), 0644); err != nil {
		t.Fatal(err)
	}
	outputs, log, err := convert(t, map[string]interface{}{"InputPath": in, "OutputDir": t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"header key appears more than once",
		"DEC_YEAR is missing",
		"unit differs from the first cast",
	} {
		if !strings.Contains(log, want) {
			t.Errorf("log should contain %q:\n%s", want, log)
		}
	}
	d := readNetCDF(t, outputs[0])
	if have := d.Variable("STNNBR").Text; !reflect.DeepEqual(have, []string{"1", "2"}) {
		t.Errorf("stations: %v", have)
	}
}

func TestConvertSchemaDrift(t *testing.T) {
	in := t.TempDir()
	copyCast(t, in, "33RR20070204_00001_00001_ct1.csv")
	drift := "NUMBER_HEADERS = 2\nEXPOCODE = 33RR20070204\nCTDPRS,CTDPRS_FLAG_W\nDBAR,\n1,2\nEND_DATA\n"
	if err := os.WriteFile(filepath.Join(in, "33RR20070204_00002_00001_ct1.csv"), []byte(drift), 0644); err != nil {
		t.Fatal(err)
	}
	_, _, err := convert(t, map[string]interface{}{"InputPath": in, "OutputDir": t.TempDir()})
	if !errors.Is(err, ctdexchange.ErrSchemaDrift) {
		t.Errorf("want schema drift error, have %v", err)
	}
}

func TestConvertEmpty(t *testing.T) {
	_, _, err := convert(t, map[string]interface{}{"InputPath": t.TempDir(), "OutputDir": t.TempDir()})
	if err == nil {
		t.Error("want an error when there are no cast files")
	}
}

func TestConvertKeepsPreviousArchive(t *testing.T) {
	for name, formats := range map[string][]string{
		"netcdf":         {"netcdf"},
		"parquet first":  {"parquet", "netcdf"},
		"parquet second": {"netcdf", "parquet"},
	} {
		t.Run(name, func(t *testing.T) {
			in, out := t.TempDir(), t.TempDir()
			// Casts without levels cannot be written to NetCDF.
			for _, f := range []string{"X1_00001_00001_ct1.csv", "X1_00002_00001_ct1.csv"} {
				cast := "NUMBER_HEADERS = 2\nEXPOCODE = X1\nCTDPRS\nDBAR\nEND_DATA\n"
				if err := os.WriteFile(filepath.Join(in, f), []byte(cast), 0644); err != nil {
					t.Fatal(err)
				}
			}
			previous := []byte("previous archive")
			archive := filepath.Join(out, "X1.nc")
			if err := os.WriteFile(archive, previous, 0644); err != nil {
				t.Fatal(err)
			}

			_, _, err := convert(t, map[string]interface{}{
				"InputPath":     in,
				"OutputDir":     out,
				"OutputFormats": formats,
			})
			if err == nil {
				t.Fatal("want an error for a dataset without levels")
			}
			b, err := os.ReadFile(archive)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(b, previous) {
				t.Errorf("archive was changed to %q", b)
			}
			entries, err := os.ReadDir(out)
			if err != nil {
				t.Fatal(err)
			}
			if len(entries) != 1 {
				var names []string
				for _, e := range entries {
					names = append(names, e.Name())
				}
				t.Errorf("only the previous archive should remain, have %v", names)
			}
		})
	}
}

func TestConvertReplacesArchive(t *testing.T) {
	out := t.TempDir()
	archive := filepath.Join(out, "33RR20070204.nc")
	if err := os.WriteFile(archive, []byte("previous archive"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := convert(t, map[string]interface{}{"OutputDir": out}); err != nil {
		t.Fatal(err)
	}
	if d := readNetCDF(t, archive); d.NumProfiles != 2 {
		t.Errorf("profiles: %d", d.NumProfiles)
	}
	if entries, _ := os.ReadDir(out); len(entries) != 1 {
		t.Errorf("temporary files should be renamed, have %d files", len(entries))
	}
}
