package quadaa

import (
	"encoding/binary"
	"math"
)

// PMColor is a premultiplied RGBA color with float channels.
type PMColor [4]float32

// Alpha returns an opaque-white color modulated by a, clamped to [0, 1].
func Alpha(a float32) PMColor {
	a = min(max(a, 0), 1)
	return PMColor{a, a, a, a}
}

// FitsInBytes reports whether every channel lies in [0, 1].
func (c PMColor) FitsInBytes() bool {
	for _, v := range c {
		if !(v >= 0 && v <= 1) {
			return false
		}
	}
	return true
}

// Bytes returns the color as unorm8 RGBA. Channels are clamped.
func (c PMColor) Bytes() [4]byte {
	var b [4]byte
	for i, v := range c {
		b[i] = uint8(min(max(v, 0), 1)*255 + 0.5)
	}
	return b
}

// PutHalf writes the color as four little-endian half floats.
func (c PMColor) PutHalf(dst []byte) {
	for i, v := range c {
		binary.LittleEndian.PutUint16(dst[i*2:], Float16(v))
	}
}

// Float16 converts f to IEEE 754 binary16 with round-to-nearest-even.
func Float16(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16(bits>>16) & 0x8000
	exp := int32(bits>>23) & 0xff
	mant := bits & 0x7fffff

	switch {
	case exp == 0xff:
		if mant != 0 {
			return sign | 0x7e00
		}
		return sign | 0x7c00
	case exp == 0 && mant == 0:
		return sign
	}

	e := exp - 127 + 15
	if e >= 0x1f {
		return sign | 0x7c00
	}
	if e <= 0 {
		// Subnormal half or zero.
		if e < -10 {
			return sign
		}
		mant |= 0x800000
		shift := uint32(14 - e)
		half := mant >> shift
		rem := mant & (1<<shift - 1)
		mid := uint32(1) << (shift - 1)
		if rem > mid || (rem == mid && half&1 == 1) {
			half++
		}
		return sign | uint16(half)
	}

	half := uint32(e)<<10 | mant>>13
	rem := mant & 0x1fff
	if rem > 0x1000 || (rem == 0x1000 && half&1 == 1) {
		half++
	}
	return sign | uint16(half)
}
