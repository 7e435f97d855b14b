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

package gwflow

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/ctessum/sparse"
)

func transientModel(nlay, nrow, ncol int) *Model {
	m := NewModel(nlay, nrow, ncol, 2)
	m.Steady[1] = false
	return m
}

func TestLPFHeaderFormat(t *testing.T) {
	m := NewModel(1, 1, 1, 1)
	cfg := DefaultLPFConfig()
	cfg.Options.ThickStrt = true
	l, err := NewLPF(m, cfg)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := l.Write(&buf, ""); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(buf.String(), "\n")
	want := "        53    -1E+30         0 THICKSTRT"
	if lines[1] != want {
		t.Errorf("want header %q but have %q", want, lines[1])
	}
}

func TestLPFRoundTrip(t *testing.T) {
	m := transientModel(2, 3, 4)
	m.Laycbd = []int{0, 1}

	hk := sparse.ZerosDense(2, 3, 4)
	for i := range hk.Elements {
		hk.Elements[i] = float64(i%7) + 1.5
	}
	cfg := DefaultLPFConfig()
	cfg.Laytyp = []int{0, 1}
	cfg.Chani = []float64{1, -1}
	cfg.Layvka = []int{0, 1}
	cfg.Laywet = []int{0, 1}
	cfg.HK = Grid(hk)
	cfg.Ss = Uniform(2e-5)
	cfg.Options.StorageCoefficient = false
	l, err := NewLPF(m, cfg)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := l.Write(&buf, ""); err != nil {
		t.Fatal(err)
	}
	l2, err := LoadLPF(&buf, "test.lpf", "", m)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(l, l2) {
		t.Errorf("round trip mismatch:\nwant %+v\nhave %+v", l, l2)
	}
}

func TestLPFRoundTripPreservesSliceKinds(t *testing.T) {
	m := transientModel(2, 2, 2)
	vka := sparse.ZerosDense(2, 2, 2)
	for i := range vka.Elements {
		vka.Elements[i] = 0.25 * float64(i+1)
	}
	cfg := DefaultLPFConfig()
	cfg.VKA = Grid(vka)
	l, err := NewLPF(m, cfg)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := l.Write(&buf, ""); err != nil {
		t.Fatal(err)
	}
	l2, err := LoadLPF(&buf, "test.lpf", "", m)
	if err != nil {
		t.Fatal(err)
	}
	for k := 0; k < 2; k++ {
		if kind := l2.HK.Slice(k).Kind; kind != SliceConstant {
			t.Errorf("hk layer %d: want SliceConstant but have %v", k+1, kind)
		}
		if kind := l2.VKA.Slice(k).Kind; kind != SliceInternal {
			t.Errorf("vka layer %d: want SliceInternal but have %v", k+1, kind)
		}
	}
}

// TestLPFConditionalPresence exercises the layout conditions for a
// steady 2-layer model with one confining bed and one wettable
// convertible layer.
func TestLPFConditionalPresence(t *testing.T) {
	m := NewModel(2, 2, 2, 1) // all periods steady
	m.Laycbd = []int{0, 1}
	cfg := DefaultLPFConfig()
	cfg.Laytyp = []int{0, 1}
	cfg.Laywet = []int{0, 1}
	cfg.Chani = []float64{1, -1}
	l, err := NewLPF(m, cfg)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := l.Write(&buf, ""); err != nil {
		t.Fatal(err)
	}
	out := buf.String()

	// sum(laywet) > 0, so the wetting record must be present.
	if !strings.Contains(out, "  0.100000         1         0") {
		t.Error("wetting control record is missing")
	}
	// steady model: no storage fields at all
	for _, label := range []string{"#ss", "#storage", "#sy"} {
		if strings.Contains(out, label) {
			t.Errorf("steady model must not write %s", label)
		}
	}
	if !strings.Contains(out, "#hani layer 2") {
		t.Error("hani must be written for the layer with chani <= 0")
	}
	if strings.Contains(out, "#hani layer 1") {
		t.Error("hani must not be written for a layer with scalar anisotropy")
	}
	if !strings.Contains(out, "#vkcb layer 2") {
		t.Error("vkcb must be written for the layer with a confining bed")
	}
	if strings.Contains(out, "#vkcb layer 1") {
		t.Error("vkcb must not be written for a layer without a confining bed")
	}
	if !strings.Contains(out, "#wetdry layer 2") {
		t.Error("wetdry must be written where wetting is active on a convertible layer")
	}
	if strings.Contains(out, "#wetdry layer 1") {
		t.Error("wetdry must not be written for a non-wetting layer")
	}
}

func TestLPFNoWettingOmitsControlRecord(t *testing.T) {
	m := NewModel(2, 2, 2, 1)
	l, err := NewLPF(m, DefaultLPFConfig())
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := l.Write(&buf, ""); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), "0.100000") {
		t.Error("wetting control record written although no layer has wetting active")
	}
}

func TestVkaNamingResolution(t *testing.T) {
	m := NewModel(2, 2, 2, 1)
	cfg := DefaultLPFConfig()
	cfg.Layvka = []int{0, 1}
	l, err := NewLPF(m, cfg)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"vka", "vani"}
	if got := l.VKA.Names(); !reflect.DeepEqual(want, got) {
		t.Errorf("want names %v but have %v", want, got)
	}

	var a bytes.Buffer
	if err := l.Write(&a, ""); err != nil {
		t.Fatal(err)
	}

	// Flipping the flag changes only the tag, not the numeric layout.
	cfg.Layvka = []int{1, 0}
	l2, err := NewLPF(m, cfg)
	if err != nil {
		t.Fatal(err)
	}
	var b bytes.Buffer
	if err := l2.Write(&b, ""); err != nil {
		t.Fatal(err)
	}
	swap := func(s string) string {
		s = strings.Replace(s, "#vka", "#tmp", -1)
		s = strings.Replace(s, "#vani", "#vka", -1)
		return strings.Replace(s, "#tmp", "#vani", -1)
	}
	av := strings.Replace(a.String(), "         0         1\n", "layvka\n", 1)
	bv := strings.Replace(b.String(), "         1         0\n", "layvka\n", 1)
	if swap(av) != bv {
		t.Error("switching layvka changed more than the vka/vani tags")
	}
}

func TestStorageCoefficientNaming(t *testing.T) {
	m := transientModel(1, 2, 2)
	cfg := DefaultLPFConfig()
	cfg.Options.StorageCoefficient = true
	l, err := NewLPF(m, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if got := l.Ss.Slice(0).Name; got != "storage" {
		t.Errorf("want storage field named %q but have %q", "storage", got)
	}
	var buf bytes.Buffer
	if err := l.Write(&buf, ""); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "#storage layer 1") {
		t.Error("STORAGECOEFFICIENT option must relabel the ss field")
	}
	l2, err := LoadLPF(&buf, "test.lpf", "", m)
	if err != nil {
		t.Fatal(err)
	}
	if got := l2.Ss.Slice(0).Name; got != "storage" {
		t.Errorf("decoded storage field: want name %q but have %q", "storage", got)
	}
	if !l2.Options.StorageCoefficient {
		t.Error("STORAGECOEFFICIENT option was not recovered from the header")
	}
}

func TestIpakcbNormalization(t *testing.T) {
	m := NewModel(1, 1, 1, 1)
	cfg := DefaultLPFConfig()
	cfg.Ipakcb = 7
	l, err := NewLPF(m, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if l.Ipakcb != 53 {
		t.Errorf("want ipakcb normalized to 53 but have %d", l.Ipakcb)
	}
	if !m.UnitReserved(53) {
		t.Error("budget-save unit was not recorded as consumed")
	}

	cfg.Ipakcb = 0
	l0, err := NewLPF(m, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if l0.Ipakcb != 0 {
		t.Errorf("want ipakcb 0 but have %d", l0.Ipakcb)
	}
}

func TestLoadLPFParameterSubstitution(t *testing.T) {
	m := NewModel(1, 2, 2, 1)
	in := `# LPF test file
         0    -999.0         1
         0
         0
         1
         0
         0
HKPAR HK 5.0 1
1 NONE ALL
HK handled by parameter HKPAR
CONSTANT 2.0  #vka layer 1
`
	l, err := LoadLPF(strings.NewReader(in), "test.lpf", "", m)
	if err != nil {
		t.Fatal(err)
	}
	s := l.HK.Slice(0)
	if s.Kind != SliceInternal {
		t.Fatalf("parameterized hk: want SliceInternal but have %v", s.Kind)
	}
	for i, v := range s.Data.Elements {
		if v != 5.0 {
			t.Errorf("parameterized hk element %d: want 5 but have %v", i, v)
		}
	}
	if got := l.VKA.Slice(0).Const; got != 2.0 {
		t.Errorf("vka after parameter substitution: want 2 but have %v", got)
	}
	// Parameters are resolved at load time; the record carries none.
	if l.Nplpf != 0 {
		t.Errorf("want Nplpf 0 after parameter resolution but have %d", l.Nplpf)
	}
}

func TestLoadLPFTruncatedInput(t *testing.T) {
	m := NewModel(2, 2, 2, 1)
	in := "# truncated\n        53    -1E+30         0 \n         0         0\n"
	if _, err := LoadLPF(strings.NewReader(in), "test.lpf", "", m); err == nil {
		t.Error("want a fatal parse error for truncated input but have nil")
	}
}

func TestLoadLPFBadHeader(t *testing.T) {
	m := NewModel(1, 1, 1, 1)
	in := "# bad\n        53    -1E+30\n"
	if _, err := LoadLPF(strings.NewReader(in), "test.lpf", "", m); err == nil {
		t.Error("want an error for a short header record but have nil")
	}
}

func TestLPFWetIterIntervalNormalized(t *testing.T) {
	m := NewModel(1, 1, 1, 1)
	cfg := DefaultLPFConfig()
	cfg.Laywet = []int{1}
	cfg.Laytyp = []int{1}
	cfg.Iwetit = 0
	l, err := NewLPF(m, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if l.Iwetit != 1 {
		t.Errorf("want iwetit normalized to 1 but have %d", l.Iwetit)
	}
}
