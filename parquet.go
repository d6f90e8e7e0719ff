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
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"
	"github.com/spf13/cast"
)

// ParquetRow is one value of a dataset in long form. Level is nil for
// metadata fields. Exactly one of Value, Flag and Text is set, depending on
// the kind of the variable.
type ParquetRow struct {
	Profile  int32    `parquet:"profile"`
	Level    *int32   `parquet:"level,optional"`
	Variable string   `parquet:"variable"`
	Value    *float64 `parquet:"value,optional"`
	Flag     *int32   `parquet:"flag,optional"`
	Text     *string  `parquet:"text,optional"`
}

func (r ParquetRow) clone() ParquetRow {
	c := ParquetRow{Profile: r.Profile, Variable: r.Variable}
	if r.Level != nil {
		v := *r.Level
		c.Level = &v
	}
	if r.Value != nil {
		v := *r.Value
		c.Value = &v
	}
	if r.Flag != nil {
		v := *r.Flag
		c.Flag = &v
	}
	if r.Text != nil {
		v := *r.Text
		c.Text = &v
	}
	return c
}

// parquetBatch is the number of rows buffered before each write.
const parquetBatch = 4096

// UnitsMetadataPrefix is prepended to a variable name to give the parquet
// key/value metadata entry holding its units.
const UnitsMetadataPrefix = "units:"

// WriteParquet writes d to w as a long-form parquet table with one row per
// non-missing value. Padding levels are not written. The global attributes
// and variable units are stored as key/value metadata.
func (d *Dataset) WriteParquet(w io.Writer) error {
	var opts []parquet.WriterOption
	for _, a := range d.Attributes {
		opts = append(opts, parquet.KeyValueMetadata(a.Name, cast.ToString(a.Value)))
	}
	for _, v := range d.Variables {
		if u, ok := v.Attributes.Get(UnitsAttr); ok {
			opts = append(opts, parquet.KeyValueMetadata(UnitsMetadataPrefix+v.Name, cast.ToString(u)))
		}
	}
	pw := parquet.NewGenericWriter[ParquetRow](w, opts...)

	rows := make([]ParquetRow, 0, parquetBatch)
	flush := func() error {
		if _, err := pw.Write(rows); err != nil {
			return fmt.Errorf("ctdexchange: writing parquet rows: %v", err)
		}
		rows = rows[:0]
		return nil
	}
	add := func(r ParquetRow) error {
		rows = append(rows, r)
		if len(rows) == parquetBatch {
			return flush()
		}
		return nil
	}

	for _, v := range d.Variables {
		levels := 1
		if len(v.Dims) == 2 {
			levels = d.NumLevels
		}
		for p := 0; p < d.NumProfiles; p++ {
			for l := 0; l < levels; l++ {
				r := ParquetRow{Profile: int32(p), Variable: v.Name}
				if len(v.Dims) == 2 {
					level := int32(l)
					r.Level = &level
				}
				i := p*levels + l
				switch v.Kind {
				case Continuous:
					val := v.Data.Elements[i]
					if IsMissing(val) {
						continue
					}
					r.Value = &val
				case Flag:
					f := int32(v.Flags.Elements[i])
					if f == int32(MissingFlag) {
						continue
					}
					r.Flag = &f
				case Text:
					s := v.Text[p]
					if s == "" {
						continue
					}
					r.Text = &s
				}
				if err := add(r); err != nil {
					return err
				}
			}
		}
	}
	if len(rows) > 0 {
		if err := flush(); err != nil {
			return err
		}
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("ctdexchange: closing parquet writer: %v", err)
	}
	return nil
}

// ReadParquet reads the rows and key/value metadata of a parquet file
// written by WriteParquet.
func ReadParquet(r io.ReaderAt, size int64) ([]ParquetRow, map[string]string, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, nil, fmt.Errorf("ctdexchange: opening parquet file: %v", err)
	}
	meta := make(map[string]string)
	for _, kv := range pf.Metadata().KeyValueMetadata {
		meta[kv.Key] = kv.Value
	}

	reader := parquet.NewGenericReader[ParquetRow](pf)
	defer reader.Close()
	out := make([]ParquetRow, 0, reader.NumRows())
	buf := make([]ParquetRow, parquetBatch)
	for {
		n, err := reader.Read(buf)
		for _, row := range buf[:n] {
			out = append(out, row.clone())
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("ctdexchange: reading parquet rows: %v", err)
		}
		if n == 0 {
			break
		}
	}
	return out, meta, nil
}
