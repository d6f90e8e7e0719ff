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
	"strings"
	"time"
)

// DecimalYear returns t as a fractional year: the year plus the fraction of
// that year's length elapsed since January 1 00:00, rounded to precision
// decimal digits.
func DecimalYear(t time.Time, precision int) float64 {
	start := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	next := time.Date(t.Year()+1, time.January, 1, 0, 0, 0, 0, t.Location())
	frac := t.Sub(start).Seconds() / next.Sub(start).Seconds()
	p := math.Pow10(precision)
	return math.Round((float64(t.Year())+frac)*p) / p
}

// ParseDateTime parses an exchange DATE (YYYYMMDD) and optional TIME
// (HHMM) in UTC. An empty time means midnight.
func ParseDateTime(date, clock string) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if clock == "" {
		t, err := time.ParseInLocation("20060102", date, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("ctdexchange: invalid DATE %q: %v", date, err)
		}
		return t, nil
	}
	if len(clock) < 4 {
		clock = strings.Repeat("0", 4-len(clock)) + clock
	}
	t, err := time.ParseInLocation("200601021504", date+clock, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("ctdexchange: invalid DATE/TIME %q/%q: %v", date, clock, err)
	}
	return t, nil
}
