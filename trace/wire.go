// Package trace implements the I/O layer collaborator of spec.md §6:
// each object "writes to a sink" and "reads from a source plus a simul
// back-reference", composed into a sequence of frames, each a header
// plus class-tagged object records terminated by a sentinel tag; no
// record count is written, so a reader finds the end of a frame only by
// the sentinel. The core engine packages never import trace; trace
// only consumes their already-exported accessors (Points, Tension,
// Hand.Fiber/Abscissa, objset.Number), keeping the core agnostic to the
// file format exactly as spec.md §6 requires of an external collaborator.
package trace

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/nedelec/cytosim-2017-sub000/simerr"
)

// Sink is the binary write side of the trajectory wire format.
type Sink struct {
	w   io.Writer
	off int64
	err error
}

// NewSink wraps w for writing.
func NewSink(w io.Writer) *Sink { return &Sink{w: w} }

// Err returns the first error encountered by any Write call, or nil.
func (s *Sink) Err() error { return s.err }

func (s *Sink) write(p []byte) {
	if s.err != nil {
		return
	}
	_, err := s.w.Write(p)
	s.off += int64(len(p))
	s.err = err
}

func (s *Sink) WriteU8(v uint8) { s.write([]byte{v}) }

func (s *Sink) WriteU16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	s.write(b[:])
}

func (s *Sink) WriteU32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.write(b[:])
}

func (s *Sink) WriteFloat64(v float64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	s.write(b[:])
}

// WriteFloat64Slice writes a 4-byte count followed by that many float64s.
func (s *Sink) WriteFloat64Slice(v []float64) {
	s.WriteU32(uint32(len(v)))
	for _, x := range v {
		s.WriteFloat64(x)
	}
}

// Source is the binary read side of the trajectory wire format.
type Source struct {
	r   io.Reader
	off int64
	err error
}

// NewSource wraps r for reading.
func NewSource(r io.Reader) *Source { return &Source{r: r} }

// Err returns the first error encountered by any Read call, or nil.
func (s *Source) Err() error { return s.err }

func (s *Source) read(p []byte) bool {
	if s.err != nil {
		return false
	}
	_, err := io.ReadFull(s.r, p)
	if err != nil {
		s.err = &simerr.InputError{Offset: s.off, Reason: err.Error()}
		return false
	}
	s.off += int64(len(p))
	return true
}

func (s *Source) ReadU8() uint8 {
	var b [1]byte
	if !s.read(b[:]) {
		return 0
	}
	return b[0]
}

func (s *Source) ReadU16() uint16 {
	var b [2]byte
	if !s.read(b[:]) {
		return 0
	}
	return binary.BigEndian.Uint16(b[:])
}

func (s *Source) ReadU32() uint32 {
	var b [4]byte
	if !s.read(b[:]) {
		return 0
	}
	return binary.BigEndian.Uint32(b[:])
}

func (s *Source) ReadFloat64() float64 {
	var b [8]byte
	if !s.read(b[:]) {
		return 0
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b[:]))
}

// ReadFloat64Slice reads a 4-byte count followed by that many float64s.
func (s *Source) ReadFloat64Slice() []float64 {
	n := s.ReadU32()
	if s.err != nil || n == 0 {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = s.ReadFloat64()
	}
	return out
}
