package pmx

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/text/encoding/unicode"
)

// Text encodings named by the header flag byte.
const (
	EncodingUTF16 uint8 = 0
	EncodingUTF8  uint8 = 1
)

var utf16Decoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// reader is a cursor over an immutable byte buffer. Every read checks the
// remaining length and returns ErrTruncated instead of reading out of bounds.
type reader struct {
	data []byte
	off  int
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

func (r *reader) remaining() int {
	return len(r.data) - r.off
}

// take returns the next n bytes and advances the cursor.
func (r *reader) take(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, ErrTruncated
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) readU8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) readU16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) readU32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) readI32() (int32, error) {
	v, err := r.readU32()
	return int32(v), err
}

func (r *reader) readF32() (float32, error) {
	v, err := r.readU32()
	return math.Float32frombits(v), err
}

func (r *reader) readVec2() (mgl32.Vec2, error) {
	var v mgl32.Vec2
	for i := range v {
		f, err := r.readF32()
		if err != nil {
			return mgl32.Vec2{}, err
		}
		v[i] = f
	}
	return v, nil
}

func (r *reader) readVec3() (mgl32.Vec3, error) {
	var v mgl32.Vec3
	for i := range v {
		f, err := r.readF32()
		if err != nil {
			return mgl32.Vec3{}, err
		}
		v[i] = f
	}
	return v, nil
}

func (r *reader) readVec4() (mgl32.Vec4, error) {
	var v mgl32.Vec4
	for i := range v {
		f, err := r.readF32()
		if err != nil {
			return mgl32.Vec4{}, err
		}
		v[i] = f
	}
	return v, nil
}

// readIndex reads a signed index of the given byte width. Index tables use
// -1 for "no reference", so 1- and 2-byte indices are sign-extended.
func (r *reader) readIndex(width uint8) (int32, error) {
	switch width {
	case 1:
		v, err := r.readU8()
		return int32(int8(v)), err
	case 2:
		v, err := r.readU16()
		return int32(int16(v)), err
	case 4:
		return r.readI32()
	default:
		return 0, ErrInvalidHeader
	}
}

// readVertexIndex reads an unsigned face vertex index. The format stores
// face indices unsigned for widths 1 and 2, signed 32-bit for width 4.
func (r *reader) readVertexIndex(width uint8) (uint32, error) {
	switch width {
	case 1:
		v, err := r.readU8()
		return uint32(v), err
	case 2:
		v, err := r.readU16()
		return uint32(v), err
	case 4:
		v, err := r.readU32()
		return v, err
	default:
		return 0, ErrInvalidHeader
	}
}

// readText reads a 4-byte length prefix followed by that many bytes, decoded
// as UTF-16LE or UTF-8 per the header's encoding flag.
func (r *reader) readText(encoding uint8) (string, error) {
	n, err := r.readI32()
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", &CorruptSectionError{Section: "text", Reason: "negative length"}
	}
	if n == 0 {
		return "", nil
	}
	b, err := r.take(int(n))
	if err != nil {
		return "", err
	}
	if encoding == EncodingUTF16 {
		decoded, err := utf16Decoder.NewDecoder().Bytes(b)
		if err != nil {
			return "", &CorruptSectionError{Section: "text", Reason: err.Error()}
		}
		return string(decoded), nil
	}
	return string(b), nil
}
