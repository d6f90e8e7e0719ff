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
	"strings"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/ctdexchange"
)

// Output formats.
const (
	formatNetCDF  = "netcdf"
	formatParquet = "parquet"
)

const defaultLogFile = "ctdexchange.log"

// Config holds the resolved settings of one conversion run.
type Config struct {
	InputPath     string
	FileExtension string
	SortPolicy    ctdexchange.SortPolicy

	OutputDir     string
	OutputFormats []string

	Attributes *ctdexchange.AttributeTables

	// MetadataFields and Parameters select the fields and columns to keep.
	// Empty means all.
	MetadataFields []string
	Parameters     []string

	DecimalYearPrecision int

	LogFile  string
	LogLevel logrus.Level
}

// LoadConfig resolves the options in cfg into a Config, checking them and
// reading any attribute tables.
func LoadConfig(cfg *viper.Viper) (*Config, error) {
	c := &Config{
		FileExtension:        os.ExpandEnv(cfg.GetString("FileExtension")),
		MetadataFields:       expandStringSlice(cfg.GetStringSlice("MetadataFields")),
		Parameters:           expandStringSlice(cfg.GetStringSlice("Parameters")),
		DecimalYearPrecision: cfg.GetInt("DecimalYearPrecision"),
	}
	var err error
	if c.InputPath, err = checkInputPath(cfg.GetString("InputPath")); err != nil {
		return nil, err
	}
	if c.SortPolicy, err = ctdexchange.ParseSortPolicy(os.ExpandEnv(cfg.GetString("SortPolicy"))); err != nil {
		return nil, err
	}
	if c.OutputDir, err = checkOutputDir(cfg.GetString("OutputDir")); err != nil {
		return nil, err
	}
	if c.OutputFormats, err = checkOutputFormats(expandStringSlice(cfg.GetStringSlice("OutputFormats"))); err != nil {
		return nil, err
	}
	if c.DecimalYearPrecision < 0 {
		return nil, fmt.Errorf("ctdexchange: DecimalYearPrecision must not be negative, but is %d", c.DecimalYearPrecision)
	}
	if c.Attributes, err = loadAttributes(cfg.GetString("MetadataAttributes"), cfg.GetString("GlobalAttributes")); err != nil {
		return nil, err
	}
	c.LogFile = checkLogFile(cfg.GetString("LogFile"), c.OutputDir)
	if c.LogLevel, err = logrus.ParseLevel(cfg.GetString("LogLevel")); err != nil {
		return nil, fmt.Errorf("ctdexchange: invalid LogLevel: %v", err)
	}
	return c, nil
}

// expandStringSlice replaces environment variables in each element of s,
// dropping empty elements.
func expandStringSlice(s []string) []string {
	var o []string
	for _, v := range s {
		if v = strings.TrimSpace(os.ExpandEnv(v)); v != "" {
			o = append(o, v)
		}
	}
	return o
}

// checkInputPath makes sure that the input path is specified and exists,
// and expands any environment variables.
func checkInputPath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf(`you need to specify an input path configuration variable (for example: InputPath="casts/")`)
	}
	p = os.ExpandEnv(p)
	if _, err := os.Stat(p); err != nil {
		return p, fmt.Errorf("ctdexchange: the InputPath doesn't exist: %v", err)
	}
	return p, nil
}

// checkOutputDir makes sure that the output directory exists, and expands
// any environment variables.
func checkOutputDir(d string) (string, error) {
	if d == "" {
		d = "."
	}
	d = os.ExpandEnv(d)
	info, err := os.Stat(d)
	if err != nil {
		return d, fmt.Errorf("ctdexchange: the OutputDir doesn't exist: %v", err)
	}
	if !info.IsDir() {
		return d, fmt.Errorf("ctdexchange: the OutputDir %s is not a directory", d)
	}
	return d, nil
}

// checkOutputFormats lower-cases the formats and makes sure that each is
// known and at least one is given.
func checkOutputFormats(formats []string) ([]string, error) {
	if len(formats) == 0 {
		return nil, fmt.Errorf("ctdexchange: the OutputFormats variable needs at least one of %s or %s", formatNetCDF, formatParquet)
	}
	var o []string
	for _, f := range formats {
		f = strings.ToLower(f)
		if f != formatNetCDF && f != formatParquet {
			return nil, fmt.Errorf("the OutputFormats variable in the configuration file "+
				"needs to contain %s or %s, but contains `%s`", formatNetCDF, formatParquet, f)
		}
		dup := false
		for _, e := range o {
			dup = dup || e == f
		}
		if !dup {
			o = append(o, f)
		}
	}
	return o, nil
}

// checkLogFile fills in a default value for the log file path if one isn't
// specified.
func checkLogFile(logFile, outputDir string) string {
	if logFile == "" {
		return filepath.Join(outputDir, defaultLogFile)
	}
	return os.ExpandEnv(logFile)
}

// loadAttributes returns the built-in attribute tables, with the variable
// and global tables replaced by the contents of the given files where they
// are not empty.
func loadAttributes(variableFile, globalFile string) (*ctdexchange.AttributeTables, error) {
	t := ctdexchange.DefaultAttributeTables()
	if variableFile != "" {
		f, err := os.Open(os.ExpandEnv(variableFile))
		if err != nil {
			return nil, fmt.Errorf("ctdexchange: opening MetadataAttributes: %v", err)
		}
		defer f.Close()
		if err := t.ReadVariableAttributes(f); err != nil {
			return nil, err
		}
	}
	if globalFile != "" {
		f, err := os.Open(os.ExpandEnv(globalFile))
		if err != nil {
			return nil, fmt.Errorf("ctdexchange: opening GlobalAttributes: %v", err)
		}
		defer f.Close()
		if err := t.ReadGlobalAttributes(f); err != nil {
			return nil, err
		}
	}
	return t, nil
}
