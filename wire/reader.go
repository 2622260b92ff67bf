package wire

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/graphwire/graphwire/kerr"
)

// Reader sequences primitive reads off an underlying io.Reader, tracking
// how many bytes it has consumed so malformed errors can carry an offset.
type Reader struct {
	r   io.Reader
	buf [8]byte
	pos int64
}

// NewReader wraps r for primitive scalar/varint/string reads.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Offset reports the number of bytes consumed so far, for error context.
func (r *Reader) Offset() int64 { return r.pos }

func (r *Reader) readN(n int) error {
	if _, err := io.ReadFull(r.r, r.buf[:n]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return kerr.Malformed(r.pos, "truncated read: wanted %d bytes", n)
		}
		return err
	}
	r.pos += int64(n)
	return nil
}

// ReadUint8 reads a single byte.
func (r *Reader) ReadUint8() (uint8, error) {
	if err := r.readN(1); err != nil {
		return 0, err
	}
	return r.buf[0], nil
}

// ReadInt8 reads a signed byte.
func (r *Reader) ReadInt8() (int8, error) {
	v, err := r.ReadUint8()
	return int8(v), err
}

// ReadBool reads one byte; only 0 and 1 are legal.
func (r *Reader) ReadBool() (bool, error) {
	before := r.pos
	v, err := r.ReadUint8()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, kerr.Malformed(before, "bool byte %d is not 0 or 1", v)
	}
}

// ReadUint16 reads a little-endian u16.
func (r *Reader) ReadUint16() (uint16, error) {
	if err := r.readN(2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(r.buf[:2]), nil
}

// ReadInt16 reads a little-endian i16.
func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

// ReadUTF16CodeUnit reads a single UTF-16 code unit (two bytes).
func (r *Reader) ReadUTF16CodeUnit() (uint16, error) { return r.ReadUint16() }

// ReadUint32 reads a little-endian u32.
func (r *Reader) ReadUint32() (uint32, error) {
	if err := r.readN(4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(r.buf[:4]), nil
}

// ReadInt32 reads a little-endian i32.
func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

// ReadUint64 reads a little-endian u64.
func (r *Reader) ReadUint64() (uint64, error) {
	if err := r.readN(8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(r.buf[:8]), nil
}

// ReadInt64 reads a little-endian i64.
func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// ReadFloat32 reads an IEEE-754 single-precision float, little-endian.
func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

// ReadFloat64 reads an IEEE-754 double-precision float, little-endian.
func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadDecimalWords reads a 128-bit decimal as its four i32 words.
func (r *Reader) ReadDecimalWords() ([4]int32, error) {
	var words [4]int32
	for i := range words {
		v, err := r.ReadInt32()
		if err != nil {
			return words, err
		}
		words[i] = v
	}
	return words, nil
}

// ReadVarUint reads a LEB128 unsigned varint, at most maxVarUintBytes
// bytes; a continuation bit past that width is malformed.
func (r *Reader) ReadVarUint() (uint64, error) {
	start := r.pos
	var result uint64
	var shift uint
	for i := 0; i < maxVarUintBytes; i++ {
		b, err := r.ReadUint8()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
	return 0, kerr.Malformed(start, "varuint continuation bit overruns %d-byte width", maxVarUintBytes)
}

// ReadVarInt reads a zigzag + LEB128 signed varint.
func (r *Reader) ReadVarInt() (int64, error) {
	u, err := r.ReadVarUint()
	if err != nil {
		return 0, err
	}
	return zigzagDecode(u), nil
}

// ReadString reads a varuint byte length followed by that many UTF-8
// bytes.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadVarUint()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return "", kerr.Malformed(r.pos, "truncated string body: wanted %d bytes", n)
	}
	r.pos += int64(n)
	return string(buf), nil
}

// ReadRaw reads exactly len(b) bytes into b with no length prefix.
func (r *Reader) ReadRaw(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if _, err := io.ReadFull(r.r, b); err != nil {
		return kerr.Malformed(r.pos, "truncated raw span: wanted %d bytes", len(b))
	}
	r.pos += int64(len(b))
	return nil
}
