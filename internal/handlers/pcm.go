package handlers

import (
	"encoding/binary"
	"math"
)

// WebSocket binary frame layout: a one-byte source tag followed by
// little-endian float32 samples.
const (
	sourceTagMicrophone byte = 0x01
	sourceTagSystem     byte = 0x02
)

// decodeSamples converts little-endian float32 bytes to samples.
// A trailing partial sample is ignored.
func decodeSamples(data []byte) []float32 {
	n := len(data) / 4
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples
}

// encodeSamples converts samples to little-endian float32 bytes.
func encodeSamples(samples []float32) []byte {
	data := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(s))
	}
	return data
}
