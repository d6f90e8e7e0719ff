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
	"bufio"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

// SortPolicy specifies how the sort key of a cast is extracted from its
// file name.
type SortPolicy int

const (
	// ByStationCast assumes file names of the form
	// <prefix>_<station>_<cast>... and sorts on the station and cast fields.
	ByStationCast SortPolicy = iota

	// ByFirstField assumes file names of the form <ssscc>_... and sorts on
	// the first field, the station (3 digits) and cast (2 digits) number.
	ByFirstField
)

// ParseSortPolicy returns the policy with the given name. Valid names are
// "station-cast" and "first-field".
func ParseSortPolicy(name string) (SortPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "station-cast":
		return ByStationCast, nil
	case "first-field":
		return ByFirstField, nil
	}
	return 0, fmt.Errorf("ctdexchange: invalid sort policy %q; valid options are 'station-cast' and 'first-field'", name)
}

func (p SortPolicy) String() string {
	switch p {
	case ByStationCast:
		return "station-cast"
	case ByFirstField:
		return "first-field"
	}
	return fmt.Sprintf("SortPolicy(%d)", int(p))
}

// Key returns the sort key of the file with the given base name.
func (p SortPolicy) Key(name string) (string, error) {
	parts := strings.Split(name, "_")
	switch p {
	case ByFirstField:
		if parts[0] == "" {
			return "", fmt.Errorf("ctdexchange: file %q has an empty first field: %w", name, ErrMalformedFilename)
		}
		return parts[0], nil
	case ByStationCast:
		if len(parts) < 3 {
			return "", fmt.Errorf("ctdexchange: file %q needs at least 3 '_'-separated fields for %s ordering: %w",
				name, p, ErrMalformedFilename)
		}
		return parts[1] + parts[2], nil
	}
	return "", fmt.Errorf("ctdexchange: invalid sort policy %d", int(p))
}

// Source is a single cast file, stored either directly on disk or as an
// entry in a zip bundle.
type Source struct {
	// Name is the base name of the file.
	Name string

	// Key is the sort key extracted from Name.
	Key string

	// Path is the location of the file on disk, or of the bundle
	// that contains it.
	Path string

	// Entry is the name of the file within the bundle at Path, or
	// empty if Path is the file itself.
	Entry string
}

func (s *Source) String() string {
	if s.Entry != "" {
		return s.Path + ":" + s.Entry
	}
	return s.Path
}

// Scan returns the cast files at location p ordered by the given policy.
// p is either a directory or a zip bundle.
// Files match if they end in ext, optionally followed by ".gz".
// A file name that does not yield a sort key is an error
// wrapping ErrMalformedFilename.
func Scan(p, ext string, policy SortPolicy) ([]*Source, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, fmt.Errorf("ctdexchange: scanning input: %w", err)
	}
	var srcs []*Source
	if !info.IsDir() && strings.EqualFold(filepath.Ext(p), ".zip") {
		srcs, err = scanZip(p, ext)
	} else if info.IsDir() {
		srcs, err = scanDir(p, ext)
	} else {
		return nil, fmt.Errorf("ctdexchange: input %s is neither a directory nor a zip bundle", p)
	}
	if err != nil {
		return nil, err
	}
	for _, s := range srcs {
		if s.Key, err = policy.Key(s.Name); err != nil {
			return nil, err
		}
	}
	sort.SliceStable(srcs, func(i, j int) bool {
		if srcs[i].Key != srcs[j].Key {
			return srcs[i].Key < srcs[j].Key
		}
		return srcs[i].Name < srcs[j].Name
	})
	return srcs, nil
}

func matchExt(name, ext string) bool {
	name = strings.ToLower(name)
	ext = strings.ToLower(ext)
	return strings.HasSuffix(name, ext) || strings.HasSuffix(name, ext+".gz")
}

func scanDir(dir, ext string) ([]*Source, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ctdexchange: scanning input: %w", err)
	}
	var srcs []*Source
	for _, e := range entries {
		if !e.Type().IsRegular() || !matchExt(e.Name(), ext) {
			continue
		}
		srcs = append(srcs, &Source{Name: e.Name(), Path: filepath.Join(dir, e.Name())})
	}
	return srcs, nil
}

func scanZip(bundle, ext string) ([]*Source, error) {
	r, err := zip.OpenReader(bundle)
	if err != nil {
		return nil, fmt.Errorf("ctdexchange: opening bundle: %w", err)
	}
	defer r.Close()
	var srcs []*Source
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !matchExt(f.Name, ext) {
			continue
		}
		base := path.Base(f.Name)
		if strings.HasPrefix(base, "._") { // resource forks
			continue
		}
		srcs = append(srcs, &Source{Name: base, Path: bundle, Entry: f.Name})
	}
	return srcs, nil
}

type multiCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	var err error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if e := m.closers[i].Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}

// Open opens the file for reading, decompressing it if its name ends in
// ".gz".
func (s *Source) Open() (io.ReadCloser, error) {
	m := new(multiCloser)
	if s.Entry == "" {
		f, err := os.Open(s.Path)
		if err != nil {
			return nil, err
		}
		m.Reader = f
		m.closers = append(m.closers, f)
	} else {
		zr, err := zip.OpenReader(s.Path)
		if err != nil {
			return nil, err
		}
		m.closers = append(m.closers, zr)
		var entry *zip.File
		for _, f := range zr.File {
			if f.Name == s.Entry {
				entry = f
				break
			}
		}
		if entry == nil {
			m.Close()
			return nil, fmt.Errorf("ctdexchange: %s not found in %s", s.Entry, s.Path)
		}
		rc, err := entry.Open()
		if err != nil {
			m.Close()
			return nil, err
		}
		m.Reader = rc
		m.closers = append(m.closers, rc)
	}
	if strings.EqualFold(path.Ext(s.Name), ".gz") {
		gz, err := gzip.NewReader(m.Reader)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("ctdexchange: decompressing %s: %w", s, err)
		}
		m.Reader = gz
		m.closers = append(m.closers, gz)
	}
	return m, nil
}

// ReadLines returns the lines of the file without line terminators.
func (s *Source) ReadLines() ([]string, error) {
	rc, err := s.Open()
	if err != nil {
		return nil, fmt.Errorf("ctdexchange: reading %s: %w", s, err)
	}
	defer rc.Close()
	lines, err := readLines(rc)
	if err != nil {
		return nil, fmt.Errorf("ctdexchange: reading %s: %w", s, err)
	}
	return lines, nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
