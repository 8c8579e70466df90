package protocol

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ErrInvalidData signals an unrecoverable framing or decode error: an
// unknown type tag, a length prefix that exceeds the available bytes, or
// malformed UTF-8. The connection holding this buffer must be closed.
type ErrInvalidData struct {
	Reason string
}

func (e *ErrInvalidData) Error() string { return "invalid data: " + e.Reason }

func invalidData(format string, args ...any) error {
	return &ErrInvalidData{Reason: fmt.Sprintf(format, args...)}
}

// reader walks a fixed, already-length-delimited body buffer, consuming
// primitives off the front. It never needs "more bytes" — by construction
// the caller only builds one once a full frame body is available.
type reader struct {
	buf []byte
	pos int
}

func newReader(buf []byte) *reader { return &reader{buf: buf} }

func (r *reader) remaining() int { return len(r.buf) - r.pos }

func (r *reader) u8() (byte, error) {
	if r.remaining() < 1 {
		return 0, invalidData("buffer too short for u8")
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) u16() (uint16, error) {
	if r.remaining() < 2 {
		return 0, invalidData("buffer too short for u16")
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, invalidData("buffer too short for u32")
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) u64() (uint64, error) {
	if r.remaining() < 8 {
		return 0, invalidData("buffer too short for u64")
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// u16String reads a u16-length-prefixed UTF-8 string.
func (r *reader) u16String(name string) (string, error) {
	n, err := r.u16()
	if err != nil {
		return "", err
	}
	if r.remaining() < int(n) {
		return "", invalidData("buffer too short for %s", name)
	}
	b := r.buf[r.pos : r.pos+int(n)]
	r.pos += int(n)
	if !utf8.Valid(b) {
		return "", invalidData("invalid UTF-8 in %s", name)
	}
	return string(b), nil
}

// u32Bytes reads a u32-length-prefixed raw byte slice.
func (r *reader) u32Bytes(name string) ([]byte, error) {
	n, err := r.u32()
	if err != nil {
		return nil, err
	}
	if r.remaining() < int(n) {
		return nil, invalidData("buffer too short for %s", name)
	}
	b := make([]byte, n)
	copy(b, r.buf[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return b, nil
}

// uuidVal reads 16 raw bytes as a UUID.
func (r *reader) uuidVal(name string) (uuid.UUID, error) {
	if r.remaining() < 16 {
		return uuid.UUID{}, invalidData("buffer too short for %s", name)
	}
	var id uuid.UUID
	copy(id[:], r.buf[r.pos:r.pos+16])
	r.pos += 16
	return id, nil
}

// optionU64 reads a presence byte followed, if non-zero, by a u64.
func (r *reader) optionU64(name string) (*uint64, error) {
	present, err := r.u8()
	if err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}
	v, err := r.u64()
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// stringVec reads a u16-count-prefixed list of u16-length-prefixed strings.
func (r *reader) stringVec(name string) ([]string, error) {
	count, err := r.u16()
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, count)
	for i := 0; i < int(count); i++ {
		s, err := r.u16String(fmt.Sprintf("%s[%d]", name, i))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *reader) finished() bool { return r.remaining() == 0 }

// writer appends primitives to a growing body buffer.
type writer struct {
	buf []byte
}

func (w *writer) u8(v byte) { w.buf = append(w.buf, v) }

func (w *writer) u16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) u32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) u64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) u16String(s string) {
	w.u16(uint16(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *writer) u32Bytes(b []byte) {
	w.u32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *writer) uuidVal(id uuid.UUID) {
	w.buf = append(w.buf, id[:]...)
}

func (w *writer) optionU64(v *uint64) {
	if v == nil {
		w.u8(0)
		return
	}
	w.u8(1)
	w.u64(*v)
}

func (w *writer) stringVec(ss []string) {
	w.u16(uint16(len(ss)))
	for _, s := range ss {
		w.u16String(s)
	}
}
