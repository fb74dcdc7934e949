package trace

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nedelec/cytosim-2017-sub000/objset"
	"github.com/nedelec/cytosim-2017-sub000/simerr"
)

// tagLetters maps a Tag to the single ascii character spec.md §6 calls
// "X" in the object reference format XP:N[:M].
var tagLetters = map[Tag]byte{
	TagFiber:  'f',
	TagBead:   'b',
	TagSolid:  's',
	TagSingle: '1',
	TagCouple: 'c',
}

var lettersToTag = func() map[byte]Tag {
	m := make(map[byte]Tag, len(tagLetters))
	for t, c := range tagLetters {
		m[c] = t
	}
	return m
}()

// Ref is the decoded form of an ascii object reference "XP:N[:M]": class
// tag, property index, serial number, and an optional mark (-1 if absent).
type Ref struct {
	Tag     Tag
	PropIdx int
	Serial  objset.Number
	Mark    int
}

// String formats r as "XP:N" or, when Mark >= 0, "XP:N:M".
func (r Ref) String() string {
	letter, ok := tagLetters[r.Tag]
	if !ok {
		letter = '?'
	}
	base := fmt.Sprintf("%c%d:%d", letter, r.PropIdx, uint32(r.Serial))
	if r.Mark >= 0 {
		return fmt.Sprintf("%s:%d", base, r.Mark)
	}
	return base
}

// ParseRef parses the ascii object reference format of spec.md §6.
func ParseRef(s string) (Ref, error) {
	if len(s) < 2 {
		return Ref{}, &simerr.InputError{Reason: fmt.Sprintf("object reference %q too short", s)}
	}
	tag, ok := lettersToTag[s[0]]
	if !ok {
		return Ref{}, &simerr.InputError{Reason: fmt.Sprintf("object reference %q has unknown class letter", s)}
	}
	fields := strings.Split(s[1:], ":")
	if len(fields) < 2 {
		return Ref{}, &simerr.InputError{Reason: fmt.Sprintf("object reference %q missing serial number", s)}
	}
	propIdx, err := strconv.Atoi(fields[0])
	if err != nil {
		return Ref{}, &simerr.InputError{Reason: fmt.Sprintf("object reference %q has non-integer property index", s)}
	}
	serial, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return Ref{}, &simerr.InputError{Reason: fmt.Sprintf("object reference %q has non-integer serial number", s)}
	}
	mark := -1
	if len(fields) >= 3 {
		m, err := strconv.Atoi(fields[2])
		if err != nil {
			return Ref{}, &simerr.InputError{Reason: fmt.Sprintf("object reference %q has non-integer mark", s)}
		}
		mark = m
	}
	return Ref{Tag: tag, PropIdx: propIdx, Serial: objset.Number(serial), Mark: mark}, nil
}
