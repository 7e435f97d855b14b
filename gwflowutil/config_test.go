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

package gwflowutil

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func writeTempConfig(t *testing.T, contents string) (string, func()) {
	t.Helper()
	dir, err := ioutil.TempDir("", "gwflowutil")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "model.toml")
	if err := ioutil.WriteFile(path, []byte(contents), 0644); err != nil {
		os.RemoveAll(dir)
		t.Fatal(err)
	}
	return path, func() { os.RemoveAll(dir) }
}

func TestReadConfig(t *testing.T) {
	path, cleanup := writeTempConfig(t, `
Nlay = 2
Nrow = 3
Ncol = 4
Nper = 2
Steady = [true, false]
Laycbd = [0, 1]
`)
	defer cleanup()

	cfg, err := ReadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	m, err := cfg.Model()
	if err != nil {
		t.Fatal(err)
	}
	if !m.Transient() {
		t.Error("want a transient model from Steady = [true, false]")
	}
	if want := []int{0, 1}; !reflect.DeepEqual(want, m.Laycbd) {
		t.Errorf("want laycbd %v but have %v", want, m.Laycbd)
	}
	if m.Nlay != 2 || m.Nrow != 3 || m.Ncol != 4 || m.Nper != 2 {
		t.Errorf("grid dimensions not recovered: %+v", m)
	}
}

func TestReadConfigMissingDimensions(t *testing.T) {
	path, cleanup := writeTempConfig(t, "Nlay = 2\nNrow = 3\n")
	defer cleanup()
	if _, err := ReadConfig(path); err == nil {
		t.Error("want an error for missing dimensions but have nil")
	}
}

func TestConfigSteadyBroadcast(t *testing.T) {
	path, cleanup := writeTempConfig(t, `
Nlay = 1
Nrow = 1
Ncol = 1
Nper = 3
Steady = [false]
`)
	defer cleanup()
	cfg, err := ReadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	m, err := cfg.Model()
	if err != nil {
		t.Fatal(err)
	}
	for p, s := range m.Steady {
		if s {
			t.Errorf("period %d: want broadcast steady=false", p)
		}
	}
}

func TestConfigLaycbdLengthMismatch(t *testing.T) {
	path, cleanup := writeTempConfig(t, `
Nlay = 2
Nrow = 1
Ncol = 1
Nper = 1
Laycbd = [1]
`)
	defer cleanup()
	cfg, err := ReadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.Model(); err == nil {
		t.Error("want an error for a laycbd length mismatch but have nil")
	}
}
