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
	"io"
	"os"
	"time"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/ctdexchange"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to ctdexchange.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "InputPath",
			usage: `
              InputPath is the directory holding the exchange cast files,
              or a .zip bundle of them. It can include environment
              variables.`,
			shorthand:  "i",
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), scanCmd.Flags()},
		},
		{
			name: "FileExtension",
			usage: `
              FileExtension is the extension of the cast files to read.
              Files with the extension followed by .gz are read as well.`,
			defaultVal: ".csv",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), scanCmd.Flags()},
		},
		{
			name: "SortPolicy",
			usage: `
              SortPolicy specifies how the cast files are ordered. With
              "station-cast", the key is the second and third underscore
              separated parts of the file name joined together. With
              "first-field" the key is the part before the first underscore.`,
			defaultVal: ctdexchange.ByStationCast.String(),
			flagsets:   []*pflag.FlagSet{convertCmd.Flags(), scanCmd.Flags()},
		},
		{
			name: "OutputDir",
			usage: `
              OutputDir is the directory the archives are written to. The
              files are named after the EXPOCODE of the first cast. It can
              include environment variables.`,
			shorthand:  "o",
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "OutputFormats",
			usage: `
              OutputFormats lists the archive formats to write. Options are
              "netcdf" and "parquet".`,
			defaultVal: []string{formatNetCDF},
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "MetadataAttributes",
			usage: `
              MetadataAttributes is the path to a TOML file giving the
              attributes (units, long_name, ...) of each field. If it is
              empty, a built-in table is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "GlobalAttributes",
			usage: `
              GlobalAttributes is the path to a TOML file giving the global
              attributes of the dataset. If it is empty, the title is set to
              "CTD data".`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "MetadataFields",
			usage: `
              MetadataFields lists the header fields to keep. If it is empty,
              all fields are kept. DEC_YEAR is always included.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "Parameters",
			usage: `
              Parameters lists the body columns to keep, along with their
              flag columns. If it is empty, all columns are kept.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "DecimalYearPrecision",
			usage: `
              DecimalYearPrecision is the number of decimal digits DEC_YEAR
              is rounded to.`,
			defaultVal: 4,
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile specifies the log file location. If it is empty,
              ctdexchange.log in OutputDir is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{convertCmd.Flags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the minimum level of log messages to write
              (debug, info, warning or error).`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("CTDEXCHANGE")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(convertCmd)
	Root.AddCommand(scanCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("ctdexchange: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "ctdexchange",
	Short: "Convert CTD exchange files into a multi-profile dataset.",
	Long: `ctdexchange reads a batch of CTD casts in the exchange text format,
masks values by their quality flags, and combines the casts into one
rectangular dataset indexed by profile and level, written as NetCDF and
optionally parquet.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'CTDEXCHANGE_var' where 'var'
is the name of the variable to be set. Path variables are additionally
allowed to contain environment variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of ctdexchange.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("ctdexchange v%s\n", ctdexchange.Version)
	},
	DisableAutoGenTag: true,
}

// convertCmd converts a batch of casts.
var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a batch of cast files.",
	Long: `convert reads every cast file in InputPath, in the order given by
SortPolicy, and writes the combined dataset to OutputDir. The first
file that cannot be read stops the run without writing any output.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := LoadConfig(Cfg)
		if err != nil {
			return err
		}
		logfile, err := os.Create(cfg.LogFile)
		if err != nil {
			return fmt.Errorf("ctdexchange: problem creating log file: %v", err)
		}
		defer logfile.Close()
		log := NewLogger(io.MultiWriter(os.Stderr, logfile), cfg.LogLevel)

		outputs, err := Convert(cfg, log)
		if err != nil {
			log.Error(err)
			return err
		}
		for _, o := range outputs {
			cmd.Println(o)
		}
		return nil
	},
	DisableAutoGenTag: true,
}

// scanCmd lists the cast files that convert would read.
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List the cast files in processing order.",
	Long: `scan prints the cast files in InputPath in the order they would be
converted, along with their sort keys, without reading them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		policy, err := ctdexchange.ParseSortPolicy(Cfg.GetString("SortPolicy"))
		if err != nil {
			return err
		}
		input, err := checkInputPath(Cfg.GetString("InputPath"))
		if err != nil {
			return err
		}
		sources, err := ctdexchange.Scan(input, os.ExpandEnv(Cfg.GetString("FileExtension")), policy)
		if err != nil {
			return err
		}
		for _, s := range sources {
			cmd.Printf("%s\t%s\n", s.Key, s)
		}
		return nil
	},
	DisableAutoGenTag: true,
}

// NewLogger returns a logger writing text records with full timestamps to w.
func NewLogger(w io.Writer, level logrus.Level) *logrus.Logger {
	log := logrus.New()
	log.Out = w
	log.Level = level
	log.Formatter = &logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
		DisableSorting:  true,
	}
	return log
}
