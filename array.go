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
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ctessum/sparse"
)

// A LineReader reads a package file line by line, keeping track of the
// line number and source name for error reporting.
type LineReader struct {
	buf  *bufio.Reader
	name string
	line int
}

// NewLineReader wraps r for line-oriented reading. name identifies the
// source in error messages.
func NewLineReader(r io.Reader, name string) *LineReader {
	return &LineReader{buf: bufio.NewReader(r), name: name}
}

// Line returns the next line with the trailing newline stripped. It
// returns io.EOF wrapped with position information when the source is
// exhausted.
func (lr *LineReader) Line() (string, error) {
	s, err := lr.buf.ReadString('\n')
	if err == io.EOF && s != "" {
		err = nil // final line without trailing newline
	}
	if err != nil {
		return "", lr.errf("%v", err)
	}
	lr.line++
	return strings.TrimRight(s, "\r\n"), nil
}

func (lr *LineReader) errf(format string, args ...interface{}) error {
	return fmt.Errorf("gwflow: in %s near line %d: %s",
		lr.name, lr.line, fmt.Sprintf(format, args...))
}

// tokens reads whitespace-separated tokens, consuming additional lines
// until n tokens have been gathered.
func (lr *LineReader) tokens(n int) ([]string, error) {
	out := make([]string, 0, n)
	for len(out) < n {
		s, err := lr.Line()
		if err != nil {
			return nil, err
		}
		out = append(out, strings.Fields(s)...)
	}
	if len(out) > n {
		return nil, lr.errf("expected %d values but found %d", n, len(out))
	}
	return out, nil
}

// ReadInts reads n integers, possibly spanning lines.
func (lr *LineReader) ReadInts(n int) ([]int, error) {
	t, err := lr.tokens(n)
	if err != nil {
		return nil, err
	}
	out := make([]int, n)
	for i, s := range t {
		v, err := strconv.Atoi(s)
		if err != nil {
			// some writers emit layer flags in float form
			f, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil {
				return nil, lr.errf("parsing integer %q: %v", s, err)
			}
			v = int(f)
		}
		out[i] = v
	}
	return out, nil
}

// ReadFloats reads n floating-point values, possibly spanning lines.
func (lr *LineReader) ReadFloats(n int) ([]float64, error) {
	t, err := lr.tokens(n)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i, s := range t {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, lr.errf("parsing value %q: %v", s, err)
		}
		out[i] = v
	}
	return out, nil
}

// writeLayerInts writes one per-layer integer control vector as a
// single record of width-10 fields.
func writeLayerInts(w io.Writer, vals []int) error {
	for _, v := range vals {
		if _, err := fmt.Fprintf(w, "%10d", v); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// writeLayerReals writes one per-layer real control vector as a single
// record of width-10 fields.
func writeLayerReals(w io.Writer, vals []float64) error {
	for _, v := range vals {
		if _, err := fmt.Fprintf(w, "%10G", v); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// SliceKind discriminates how one layer of a 3-D field is stored.
type SliceKind int

const (
	// SliceConstant is a uniform value broadcast over the layer.
	SliceConstant SliceKind = iota
	// SliceInternal is a spatially varying grid stored inline.
	SliceInternal
	// SliceExternal is a grid stored in a separate file referenced by
	// an OPEN/CLOSE control record.
	SliceExternal
)

// A Slice2D is one layer of a 3-D property field: a uniform value, an
// inline grid, or an external file reference, together with the
// resolved per-layer name it is labeled with on disk.
type Slice2D struct {
	// Name is the resolved label, e.g. "hk" or "vani".
	Name string
	// Layer is the 1-based layer number used in labels.
	Layer int

	Kind  SliceKind
	Const float64
	// Data holds the grid for SliceInternal, and caches the loaded
	// grid for SliceExternal.
	Data *sparse.DenseArray
	// File is the external file path for SliceExternal.
	File string

	nrow, ncol int
}

// ConstantSlice creates a uniform-valued layer slice.
func ConstantSlice(name string, layer int, v float64, nrow, ncol int) *Slice2D {
	return &Slice2D{Name: name, Layer: layer, Kind: SliceConstant, Const: v, nrow: nrow, ncol: ncol}
}

// InternalSlice creates a layer slice from an (nrow, ncol) grid.
func InternalSlice(name string, layer int, data *sparse.DenseArray) (*Slice2D, error) {
	sh := data.Shape
	if len(sh) != 2 {
		return nil, fmt.Errorf("gwflow.InternalSlice: %s layer %d: want a 2-d array but have shape %v", name, layer, sh)
	}
	return &Slice2D{Name: name, Layer: layer, Kind: SliceInternal, Data: data, nrow: sh[0], ncol: sh[1]}, nil
}

// ExternalSlice creates a layer slice backed by the named file. data
// may be nil; it is filled when the file is read.
func ExternalSlice(name string, layer int, file string, data *sparse.DenseArray, nrow, ncol int) *Slice2D {
	return &Slice2D{Name: name, Layer: layer, Kind: SliceExternal, File: file, Data: data, nrow: nrow, ncol: ncol}
}

// Dense returns a fresh (nrow, ncol) grid holding the slice values.
// The stored variant is never mutated.
func (s *Slice2D) Dense() (*sparse.DenseArray, error) {
	switch s.Kind {
	case SliceConstant:
		d := sparse.ZerosDense(s.nrow, s.ncol)
		for i := range d.Elements {
			d.Elements[i] = s.Const
		}
		return d, nil
	default:
		if s.Data == nil {
			return nil, fmt.Errorf("gwflow.Slice2D.Dense: %s layer %d: external file %s has not been read", s.Name, s.Layer, s.File)
		}
		return s.Data.Copy(), nil
	}
}

// writeTo emits the slice's control record, and for internal slices
// its row-major body. External bodies are written to dir when the
// cached grid is present.
func (s *Slice2D) writeTo(w io.Writer, dir string) error {
	switch s.Kind {
	case SliceConstant:
		_, err := fmt.Fprintf(w, "CONSTANT %15.6G  #%s layer %d\n", s.Const, s.Name, s.Layer)
		return err
	case SliceInternal:
		if _, err := fmt.Fprintf(w, "INTERNAL 1.0 (FREE) -1  #%s layer %d\n", s.Name, s.Layer); err != nil {
			return err
		}
		return writeGridBody(w, s.Data)
	case SliceExternal:
		if _, err := fmt.Fprintf(w, "OPEN/CLOSE %s 1.0 (FREE) -1  #%s layer %d\n", s.File, s.Name, s.Layer); err != nil {
			return err
		}
		if s.Data == nil {
			return nil // body already exists on disk
		}
		return writeExternalBody(filepath.Join(dir, s.File), s.Data)
	}
	return fmt.Errorf("gwflow.Slice2D.writeTo: unknown slice kind %d", s.Kind)
}

func writeGridBody(w io.Writer, d *sparse.DenseArray) error {
	nrow, ncol := d.Shape[0], d.Shape[1]
	for i := 0; i < nrow; i++ {
		for j := 0; j < ncol; j++ {
			if _, err := fmt.Fprintf(w, "%15.6G", d.Get(i, j)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

func writeExternalBody(path string, d *sparse.DenseArray) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("gwflow: writing external array %s: %v", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return writeGridBody(f, d)
}

// readSlice reads one layer slice, dispatching on the control record.
// name is the expected label; dir is the directory external file
// references are resolved against.
func readSlice(lr *LineReader, name string, layer, nrow, ncol int, dir string) (*Slice2D, error) {
	line, err := lr.Line()
	if err != nil {
		return nil, err
	}
	t := strings.Fields(line)
	if len(t) == 0 {
		return nil, lr.errf("empty array control record for %s layer %d", name, layer)
	}
	switch strings.ToUpper(t[0]) {
	case "CONSTANT":
		if len(t) < 2 {
			return nil, lr.errf("CONSTANT record for %s layer %d is missing its value", name, layer)
		}
		v, err := strconv.ParseFloat(t[1], 64)
		if err != nil {
			return nil, lr.errf("parsing CONSTANT value %q: %v", t[1], err)
		}
		return ConstantSlice(name, layer, v, nrow, ncol), nil
	case "INTERNAL":
		d, err := readGridBody(lr, nrow, ncol)
		if err != nil {
			return nil, err
		}
		return InternalSlice(name, layer, d)
	case "OPEN/CLOSE":
		if len(t) < 2 {
			return nil, lr.errf("OPEN/CLOSE record for %s layer %d is missing its file name", name, layer)
		}
		d, err := readExternalBody(filepath.Join(dir, t[1]), nrow, ncol)
		if err != nil {
			return nil, lr.errf("%v", err)
		}
		s := ExternalSlice(name, layer, t[1], d, nrow, ncol)
		return s, nil
	}
	return nil, lr.errf("unrecognized array control record %q for %s layer %d", t[0], name, layer)
}

func readGridBody(lr *LineReader, nrow, ncol int) (*sparse.DenseArray, error) {
	vals, err := lr.ReadFloats(nrow * ncol)
	if err != nil {
		return nil, err
	}
	d := sparse.ZerosDense(nrow, ncol)
	copy(d.Elements, vals)
	return d, nil
}

func readExternalBody(path string, nrow, ncol int) (*sparse.DenseArray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading external array %s: %v", path, err)
	}
	defer f.Close()
	return readGridBody(NewLineReader(f, path), nrow, ncol)
}

// A Field3D is one 3-D property field: nlay layer slices sharing
// (nrow, ncol), each independently uniform, inline, or external.
type Field3D struct {
	Slices     []*Slice2D
	nrow, ncol int
}

// UniformField3D creates a field holding v in every cell. names gives
// the resolved per-layer labels.
func UniformField3D(names []string, v float64, nrow, ncol int) *Field3D {
	f := &Field3D{nrow: nrow, ncol: ncol}
	for k, name := range names {
		f.Slices = append(f.Slices, ConstantSlice(name, k+1, v, nrow, ncol))
	}
	return f
}

// Field3DFromDense creates a field from an (nlay, nrow, ncol) grid.
func Field3DFromDense(names []string, a *sparse.DenseArray) (*Field3D, error) {
	sh := a.Shape
	if len(sh) != 3 || sh[0] != len(names) {
		return nil, fmt.Errorf("gwflow.Field3DFromDense: want shape (%d, nrow, ncol) but have %v", len(names), sh)
	}
	f := &Field3D{nrow: sh[1], ncol: sh[2]}
	for k, name := range names {
		d := sparse.ZerosDense(sh[1], sh[2])
		for i := 0; i < sh[1]; i++ {
			for j := 0; j < sh[2]; j++ {
				d.Elements[i*sh[2]+j] = a.Get(k, i, j)
			}
		}
		s, err := InternalSlice(name, k+1, d)
		if err != nil {
			return nil, err
		}
		f.Slices = append(f.Slices, s)
	}
	return f, nil
}

// Nlay returns the number of layers in the field.
func (f *Field3D) Nlay() int { return len(f.Slices) }

// Slice returns the 0-based layer k.
func (f *Field3D) Slice(k int) *Slice2D { return f.Slices[k] }

// Names returns the resolved per-layer labels.
func (f *Field3D) Names() []string {
	out := make([]string, len(f.Slices))
	for k, s := range f.Slices {
		out[k] = s.Name
	}
	return out
}

// Dense materializes the whole field as a fresh (nlay, nrow, ncol)
// grid. The stored slices are never mutated.
func (f *Field3D) Dense() (*sparse.DenseArray, error) {
	d := sparse.ZerosDense(len(f.Slices), f.nrow, f.ncol)
	for k, s := range f.Slices {
		sd, err := s.Dense()
		if err != nil {
			return nil, err
		}
		copy(d.Elements[k*f.nrow*f.ncol:(k+1)*f.nrow*f.ncol], sd.Elements)
	}
	return d, nil
}
