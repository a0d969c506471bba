package store

import (
	"encoding/binary"
	"errors"
	"math"
)

// ErrInvalidVector is returned when an encoded embedding is truncated.
var ErrInvalidVector = errors.New("invalid vector")

// EncodeVector lays out v as a little-endian length prefix followed by the
// float32 components.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, 4+4*len(v))
	binary.LittleEndian.PutUint32(buf, uint32(len(v)))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4+4*i:], math.Float32bits(x))
	}
	return buf
}

// DecodeVector reverses EncodeVector.
func DecodeVector(data []byte) ([]float32, error) {
	if len(data) < 4 {
		return nil, ErrInvalidVector
	}
	n := int(binary.LittleEndian.Uint32(data))
	if len(data)-4 != 4*n {
		return nil, ErrInvalidVector
	}

	v := make([]float32, n)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4+4*i:]))
	}
	return v, nil
}
