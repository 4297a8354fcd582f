package cpu

import (
	"encoding/binary"
	"math"
)

func readX(v []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(v))
}
