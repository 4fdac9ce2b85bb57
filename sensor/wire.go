package sensor

import (
	"encoding/binary"
	"math"
)

// WireScale is the fixed-point scale factor shared by every metric on the
// wire: wire = round(physical value × WireScale).
const WireScale = 600

// DataLen is the byte length returned by GetData: one big-endian metric.
const DataLen = 2

// EncodeMetric converts a physical value to its fixed-point wire form.
//
// The rounding rule is round-half-away-from-zero (math.Round); the original
// firmware only guarantees "round", so the rule is pinned here because it
// affects bit-exact wire compatibility. Results clamp to [0, 0xFFFF] — the
// wire never wraps. NaN encodes as 0.
func EncodeMetric(v float64) uint16 {
	scaled := math.Round(v * WireScale)
	if math.IsNaN(scaled) || scaled <= 0 {
		return 0
	}
	if scaled >= math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(scaled)
}

// PutMetric writes a wire metric big-endian into dst[0:2].
func PutMetric(dst []byte, w uint16) {
	binary.BigEndian.PutUint16(dst, w)
}

// Metric reads a big-endian wire metric from b[0:2].
func Metric(b []byte) uint16 {
	return binary.BigEndian.Uint16(b)
}
