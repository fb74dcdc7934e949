package trace

import (
	"github.com/nedelec/cytosim-2017-sub000/simerr"
)

// Tag identifies the class of a written object record, spec.md §6's
// "1-byte class tag". EndOfFrame is the sentinel marking the end of a
// frame's record list.
type Tag uint8

const (
	TagFiber Tag = iota + 1
	TagBead
	TagSolid
	TagSingle
	TagCouple
	EndOfFrame Tag = 0xFF
)

// FormatID is written in every frame header so a reader can reject a
// trajectory produced by an incompatible layout version.
const FormatID uint32 = 1

// Header begins every frame: the simulation time and the format ID.
type Header struct {
	Time   float64
	Format uint32
}

// WriteHeader writes a frame header to sink.
func WriteHeader(sink *Sink, h Header) {
	sink.WriteFloat64(h.Time)
	sink.WriteU32(h.Format)
}

// ReadHeader reads a frame header from source, returning an InputError if
// the format ID does not match FormatID.
func ReadHeader(source *Source) (Header, error) {
	h := Header{Time: source.ReadFloat64(), Format: source.ReadU32()}
	if err := source.Err(); err != nil {
		return h, err
	}
	if h.Format != FormatID {
		return h, &simerr.InputError{Reason: "unknown trajectory format id"}
	}
	return h, nil
}

// WriteEndOfFrame writes the sentinel tag marking the end of a frame's
// object records.
func WriteEndOfFrame(sink *Sink) { sink.WriteU8(uint8(EndOfFrame)) }

// PeekTag reads the next record's class tag. The caller dispatches on it
// to the matching Read* function, or stops on EndOfFrame.
func PeekTag(source *Source) Tag { return Tag(source.ReadU8()) }
