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
	"strconv"
	"strings"
)

const (
	headerCountKey = "NUMBER_HEADERS"
	endDataKey     = "END_DATA"
	commentPrefix  = "#"
)

// Metadata holds the KEY = VALUE pairs from a cast header in the order
// they first appear.
type Metadata struct {
	Keys   []string
	Values map[string]string
}

// Set sets key k to v. If k is already present its value is replaced,
// its position is kept, and Set returns true.
func (m *Metadata) Set(k, v string) bool {
	if m.Values == nil {
		m.Values = make(map[string]string)
	}
	_, ok := m.Values[k]
	if !ok {
		m.Keys = append(m.Keys, k)
	}
	m.Values[k] = v
	return ok
}

// Get returns the value of key k and whether it is present.
func (m *Metadata) Get(k string) (string, bool) {
	v, ok := m.Values[k]
	return v, ok
}

// Profile is the parsed content of one cast file.
type Profile struct {
	// Metadata is the header block.
	Metadata Metadata

	// Parameters are the column names of the body, in file order.
	Parameters []string

	// Units maps each parameter to its unit.
	Units map[string]string

	// Body holds one row of cells per observed level, aligned with
	// Parameters.
	Body [][]string

	// Duplicates lists header keys that appeared more than once. The last
	// occurrence of each is kept in Metadata.
	Duplicates []string
}

// Levels returns the number of observed levels.
func (p *Profile) Levels() int { return len(p.Body) }

func parseErr(format string, args ...interface{}) error {
	return fmt.Errorf("ctdexchange: "+format+": %w", append(args, ErrParseStructure)...)
}

// Parse splits the lines of an exchange file into its header metadata,
// parameter declaration and data body.
//
// The header block starts after the first non-comment line containing
// NUMBER_HEADERS = n and spans n-1 lines. The parameter names and units
// lines follow it, and the body runs from there to the last line
// containing END_DATA.
func Parse(lines []string) (*Profile, error) {
	h := -1
	for i, line := range lines {
		if strings.HasPrefix(line, commentPrefix) {
			continue
		}
		if strings.Contains(line, headerCountKey) {
			h = i
			break
		}
	}
	if h < 0 {
		return nil, parseErr("no %s line", headerCountKey)
	}
	n, err := headerCount(lines[h])
	if err != nil {
		return nil, parseErr("line %d: %v", h+1, err)
	}
	namesLine, unitsLine := h+n, h+n+1
	if unitsLine >= len(lines) {
		return nil, parseErr("line %d: %s = %d points past the end of the file (%d lines)",
			h+1, headerCountKey, n, len(lines))
	}

	p := &Profile{Units: make(map[string]string)}
	for i := h + 1; i < namesLine; i++ {
		kv := strings.SplitN(lines[i], "=", 2)
		if len(kv) != 2 {
			return nil, parseErr("line %d: header line %q is not of the form KEY = VALUE", i+1, lines[i])
		}
		k := strings.TrimSpace(kv[0])
		if p.Metadata.Set(k, strings.TrimSpace(kv[1])) {
			p.Duplicates = append(p.Duplicates, k)
		}
	}

	p.Parameters = splitCells(lines[namesLine])
	units := splitCells(lines[unitsLine])
	if len(p.Parameters) != len(units) {
		return nil, parseErr("line %d: %d parameter names but %d units", unitsLine+1, len(p.Parameters), len(units))
	}
	for i, name := range p.Parameters {
		if _, ok := p.Units[name]; ok {
			return nil, parseErr("line %d: parameter %s is declared twice", namesLine+1, name)
		}
		p.Units[name] = units[i]
	}

	end := -1
	for i := len(lines) - 1; i > unitsLine; i-- {
		if strings.Contains(lines[i], endDataKey) {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, parseErr("no %s line after the parameter declaration", endDataKey)
	}

	p.Body = make([][]string, 0, end-unitsLine-1)
	for i := unitsLine + 1; i < end; i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		cells := splitCells(lines[i])
		if len(cells) != len(p.Parameters) {
			return nil, parseErr("line %d: %d cells but %d parameters", i+1, len(cells), len(p.Parameters))
		}
		p.Body = append(p.Body, cells)
	}
	return p, nil
}

// headerCount parses a line of the form NUMBER_HEADERS = n.
func headerCount(line string) (int, error) {
	kv := strings.SplitN(line, "=", 2)
	if len(kv) != 2 {
		return 0, fmt.Errorf("%q has no '='", line)
	}
	n, err := strconv.Atoi(strings.TrimSpace(kv[1]))
	if err != nil {
		return 0, fmt.Errorf("invalid header count: %v", err)
	}
	if n < 1 {
		return 0, fmt.Errorf("header count %d must be at least 1", n)
	}
	return n, nil
}

func splitCells(line string) []string {
	cells := strings.Split(line, ",")
	for i, c := range cells {
		cells[i] = strings.TrimSpace(c)
	}
	return cells
}
