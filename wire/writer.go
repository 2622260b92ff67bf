// Package wire implements the serializer's opaque byte sink/source
// contract (spec §4.A / §6): fixed-width little-endian scalars, a
// one-byte bool, a two-byte UTF-16 code unit, length-prefixed UTF-8
// strings, raw span copies, and LEB128/zigzag variable-length integers.
//
// Nothing in this package knows about types, identity, or cycles — those
// live in session, typeid and refs. wire is the lowest layer (component A)
// and every other component writes through it.
package wire

import (
	"encoding/binary"
	"io"
	"math"
)

// Writer sequences primitive writes onto an underlying io.Writer.
type Writer struct {
	w   io.Writer
	buf [8]byte
}

// NewWriter wraps w for primitive scalar/varint/string writes.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) writeN(n int) error {
	_, err := w.w.Write(w.buf[:n])
	return err
}

// WriteUint8 writes a single byte.
func (w *Writer) WriteUint8(v uint8) error {
	w.buf[0] = v
	return w.writeN(1)
}

// WriteInt8 writes a signed byte.
func (w *Writer) WriteInt8(v int8) error { return w.WriteUint8(uint8(v)) }

// WriteBool writes one byte: 0 for false, 1 for true.
func (w *Writer) WriteBool(v bool) error {
	if v {
		return w.WriteUint8(1)
	}
	return w.WriteUint8(0)
}

// WriteUint16 writes a little-endian u16.
func (w *Writer) WriteUint16(v uint16) error {
	binary.LittleEndian.PutUint16(w.buf[:2], v)
	return w.writeN(2)
}

// WriteInt16 writes a little-endian i16.
func (w *Writer) WriteInt16(v int16) error { return w.WriteUint16(uint16(v)) }

// WriteUTF16CodeUnit writes a single UTF-16 code unit (two bytes).
func (w *Writer) WriteUTF16CodeUnit(v uint16) error { return w.WriteUint16(v) }

// WriteUint32 writes a little-endian u32.
func (w *Writer) WriteUint32(v uint32) error {
	binary.LittleEndian.PutUint32(w.buf[:4], v)
	return w.writeN(4)
}

// WriteInt32 writes a little-endian i32.
func (w *Writer) WriteInt32(v int32) error { return w.WriteUint32(uint32(v)) }

// WriteUint64 writes a little-endian u64.
func (w *Writer) WriteUint64(v uint64) error {
	binary.LittleEndian.PutUint64(w.buf[:8], v)
	return w.writeN(8)
}

// WriteInt64 writes a little-endian i64.
func (w *Writer) WriteInt64(v int64) error { return w.WriteUint64(uint64(v)) }

// WriteFloat32 writes an IEEE-754 single-precision float, little-endian.
func (w *Writer) WriteFloat32(v float32) error { return w.WriteUint32(math.Float32bits(v)) }

// WriteFloat64 writes an IEEE-754 double-precision float, little-endian.
func (w *Writer) WriteFloat64(v float64) error { return w.WriteUint64(math.Float64bits(v)) }

// WriteDecimalWords writes a 128-bit decimal as its four i32 words, in
// the fixed order the caller already normalized them to.
func (w *Writer) WriteDecimalWords(words [4]int32) error {
	for _, word := range words {
		if err := w.WriteInt32(word); err != nil {
			return err
		}
	}
	return nil
}

// WriteVarUint writes v as a LEB128 unsigned varint.
func (w *Writer) WriteVarUint(v uint64) error {
	var tmp [maxVarUintBytes]byte
	n := appendVarUint(tmp[:0], v)
	_, err := w.w.Write(n)
	return err
}

// WriteVarInt writes v as a zigzag + LEB128 signed varint.
func (w *Writer) WriteVarInt(v int64) error {
	return w.WriteVarUint(zigzagEncode(v))
}

// WriteString writes s as a varuint byte length followed by its UTF-8
// bytes.
func (w *Writer) WriteString(s string) error {
	if err := w.WriteVarUint(uint64(len(s))); err != nil {
		return err
	}
	if len(s) == 0 {
		return nil
	}
	_, err := io.WriteString(w.w, s)
	return err
}

// WriteRaw copies b verbatim with no length prefix or framing; the caller
// is responsible for the recipient knowing how many bytes to expect (e.g.
// a blittable element block whose count was already written separately).
func (w *Writer) WriteRaw(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	_, err := w.w.Write(b)
	return err
}
