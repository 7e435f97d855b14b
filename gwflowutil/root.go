/*
Copyright © 2026 the GWFlow authors.
This file is part of GWFlow.

GWFlow is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

GWFlow is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with GWFlow.  If not, see <http://www.gnu.org/licenses/>.*/

// Package gwflowutil holds the gwflow command-line interface.
package gwflowutil

import (
	"fmt"
	"os"

	"github.com/hydromodel/gwflow"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var log = logrus.New()

var (
	configFile string
	verbose    bool
	checkLevel int
)

func init() {
	gwflow.Log = log
	Root.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"path to the model configuration file (required)")
	Root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"print advisory progress messages while loading")
	checkCmd.Flags().IntVar(&checkLevel, "level", 1,
		"validation level: 0 summary only, 1 list offending cells")
	Root.AddCommand(checkCmd)
	Root.AddCommand(roundtripCmd)
}

// Root is the main gwflow command.
var Root = &cobra.Command{
	Use:   "gwflow",
	Short: "gwflow reads, validates, and writes groundwater model package files.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetLevel(logrus.DebugLevel)
		}
		if configFile == "" {
			return fmt.Errorf("no configuration file specified (--config)")
		}
		return nil
	},
	SilenceUsage: true,
}

func model() (*gwflow.Model, error) {
	cfg, err := ReadConfig(configFile)
	if err != nil {
		return nil, err
	}
	m, err := cfg.Model()
	if err != nil {
		return nil, err
	}
	m.Verbose = verbose
	return m, nil
}

var checkCmd = &cobra.Command{
	Use:   "check [package file]",
	Short: "check validates a Layer Property Flow package file.",
	Long: `check loads a Layer Property Flow package file against the
grid described by the configuration file and prints the data
validation report. The command fails if the package data contain
out-of-range values.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := model()
		if err != nil {
			return err
		}
		l, err := gwflow.LoadLPFFile(args[0], m, false)
		if err != nil {
			return err
		}
		if err := m.AddPackage(l); err != nil {
			return err
		}
		bad, err := l.Check(os.Stdout, false, checkLevel)
		if err != nil {
			return err
		}
		if bad {
			return fmt.Errorf("package data validation found errors in %s", args[0])
		}
		log.Infof("%s passed data validation", args[0])
		return nil
	},
}

var roundtripCmd = &cobra.Command{
	Use:   "roundtrip [input file] [output file]",
	Short: "roundtrip re-encodes a Layer Property Flow package file.",
	Long: `roundtrip loads a Layer Property Flow package file and writes
it back out, resolving any parameterized input into plain arrays.
The output file is layout-compatible with the original.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := model()
		if err != nil {
			return err
		}
		l, err := gwflow.LoadLPFFile(args[0], m, false)
		if err != nil {
			return err
		}
		if err := m.AddPackage(l); err != nil {
			return err
		}
		if err := l.WriteFile(args[1], false); err != nil {
			return err
		}
		log.Infof("wrote %s", args[1])
		return nil
	},
}
