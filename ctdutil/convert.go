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
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/ctdexchange"
)

// Convert reads, filters and assembles the casts described by cfg, and
// writes the annotated dataset in each of cfg.OutputFormats. It returns the
// paths of the files written. The first cast that cannot be read stops the
// run, and no archive is created or replaced unless every format is written.
func Convert(cfg *Config, log logrus.FieldLogger) ([]string, error) {
	start := time.Now()
	sources, err := ctdexchange.Scan(cfg.InputPath, cfg.FileExtension, cfg.SortPolicy)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("ctdexchange: no %s files in %s", cfg.FileExtension, cfg.InputPath)
	}
	log.WithFields(logrus.Fields{
		"input": cfg.InputPath,
		"files": len(sources),
	}).Info("found cast files")

	casts := make([]*ctdexchange.Cast, len(sources))
	for i, s := range sources {
		lines, err := s.ReadLines()
		if err != nil {
			return nil, err
		}
		c, p, err := ctdexchange.NewCast(s.String(), lines)
		if err != nil {
			return nil, err
		}
		flog := log.WithField("file", s.String())
		for _, k := range p.Duplicates {
			flog.WithField("key", k).Warn("header key appears more than once; keeping the last value")
		}
		if len(cfg.Parameters) > 0 {
			c.Table.Keep(cfg.Parameters...)
		}
		flog.WithFields(logrus.Fields{
			"key":    s.Key,
			"levels": c.Table.Rows(),
		}).Debug("read cast")
		casts[i] = c
	}

	if len(cfg.Parameters) > 0 {
		for _, name := range cfg.Parameters {
			if casts[0].Table.Column(name) == nil {
				log.WithField("parameter", name).Warn("requested parameter is not in the first cast")
			}
		}
	}

	d, err := ctdexchange.Assemble(casts, ctdexchange.AssembleOptions{
		MetadataFields:       cfg.MetadataFields,
		DecimalYearPrecision: cfg.DecimalYearPrecision,
		DateError: func(c *ctdexchange.Cast, err error) {
			log.WithField("file", c.Name).Warnf("%v; DEC_YEAR is missing", err)
		},
	})
	if err != nil {
		return nil, err
	}
	for _, c := range casts[1:] {
		for _, name := range d.UnitMismatches(c) {
			log.WithFields(logrus.Fields{
				"file":      c.Name,
				"parameter": name,
				"unit":      c.Units[name],
				"catalog":   d.Units[name],
			}).Warn("unit differs from the first cast")
		}
	}
	if err := d.Annotate(cfg.Attributes); err != nil {
		return nil, err
	}
	expocode, err := d.Expocode()
	if err != nil {
		return nil, err
	}

	// No archive is replaced until every format has been written.
	var staged []stagedOutput
	for _, format := range cfg.OutputFormats {
		s, err := stageOutput(d, format, filepath.Join(cfg.OutputDir, expocode))
		if err != nil {
			discard(staged)
			return nil, err
		}
		staged = append(staged, s)
	}
	var outputs []string
	for i, s := range staged {
		if err := os.Rename(s.tmp, s.path); err != nil {
			discard(staged[i:])
			return outputs, fmt.Errorf("ctdexchange: replacing %s: %v", s.path, err)
		}
		outputs = append(outputs, s.path)
	}
	log.WithFields(logrus.Fields{
		"profiles": d.NumProfiles,
		"levels":   d.NumLevels,
		"outputs":  outputs,
		"duration": time.Since(start),
	}).Info("conversion finished")
	return outputs, nil
}

// stagedOutput is an archive written to a temporary file next to its
// final path.
type stagedOutput struct {
	tmp, path string
}

// stageOutput writes d in format to a temporary file in the directory of
// base. The archive's final path is base plus the format's extension.
func stageOutput(d *ctdexchange.Dataset, format, base string) (stagedOutput, error) {
	var s stagedOutput
	var write func(*os.File) error
	switch format {
	case formatNetCDF:
		s.path, write = base+".nc", d.WriteNetCDF
	case formatParquet:
		s.path = base + ".parquet"
		write = func(f *os.File) error { return d.WriteParquet(f) }
	default:
		return s, fmt.Errorf("ctdexchange: invalid output format %q", format)
	}
	f, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return s, fmt.Errorf("ctdexchange: creating output file: %v", err)
	}
	s.tmp = f.Name()
	if err := f.Chmod(0644); err != nil {
		f.Close()
		os.Remove(s.tmp)
		return s, fmt.Errorf("ctdexchange: creating output file: %v", err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(s.tmp)
		return s, fmt.Errorf("ctdexchange: writing %s: %v", s.path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(s.tmp)
		return s, fmt.Errorf("ctdexchange: closing %s: %v", s.path, err)
	}
	return s, nil
}

// discard removes the temporary files of staged outputs.
func discard(staged []stagedOutput) {
	for _, s := range staged {
		os.Remove(s.tmp)
	}
}
