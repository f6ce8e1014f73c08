package face

import (
	"encoding/binary"
	"math"
)

// Vector is a dense float32 embedding vector.
type Vector []float32

// Norm returns the L2 norm of the vector.
func (v Vector) Norm() float64 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}
	return math.Sqrt(sum)
}

// Normalized returns an L2-normalized copy. Zero vectors are returned as-is.
func (v Vector) Normalized() Vector {
	out := make(Vector, len(v))
	n := v.Norm()
	if n == 0 {
		copy(out, v)
		return out
	}
	for i, val := range v {
		out[i] = float32(float64(val) / n)
	}
	return out
}

// Clone returns an independent copy of the vector.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Dot returns the dot product of two vectors. Length mismatch yields 0.
func Dot(a, b Vector) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Bytes serializes the vector as little-endian float32s.
func (v Vector) Bytes() []byte {
	data := make([]byte, len(v)*4)
	for i, val := range v {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(val))
	}
	return data
}

// VectorFromBytes deserializes a vector from bytes; nil on malformed input.
func VectorFromBytes(data []byte) Vector {
	if len(data)%4 != 0 {
		return nil
	}
	v := make(Vector, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v
}
