package sensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensornode-go/sensor"
)

func TestEncodeMetricRounding(t *testing.T) {
	// Round-half-away-from-zero at the wire scale.
	assert.Equal(t, uint16(2), sensor.EncodeMetric(0.0025))  // 1.5 -> 2
	assert.Equal(t, uint16(5), sensor.EncodeMetric(0.0075))  // 4.5 -> 5
	assert.Equal(t, uint16(600), sensor.EncodeMetric(1.0))
	assert.Equal(t, uint16(1194), sensor.EncodeMetric(1.99))
}

func TestEncodeMetricClamps(t *testing.T) {
	assert.Equal(t, uint16(0), sensor.EncodeMetric(0))
	assert.Equal(t, uint16(0), sensor.EncodeMetric(-3.5))
	assert.Equal(t, uint16(0xFFFF), sensor.EncodeMetric(1e6)) // no wrap
}

func TestEncodeMetricMonotonic(t *testing.T) {
	values := []float64{-1, 0, 0.001, 0.5, 1.99, 42, 106, 109.2, 110, 1e5, 1e9}
	prev := sensor.EncodeMetric(values[0])
	for _, v := range values[1:] {
		w := sensor.EncodeMetric(v)
		require.GreaterOrEqual(t, w, prev, "value %v", v)
		prev = w
	}
}

func TestWireBytesBigEndian(t *testing.T) {
	var b [2]byte
	sensor.PutMetric(b[:], 0x04AA)
	assert.Equal(t, []byte{0x04, 0xAA}, b[:])
	assert.Equal(t, uint16(0x04AA), sensor.Metric(b[:]))
}

func TestMinCaptureWireReference(t *testing.T) {
	// 1990 counts through the halving divider against the 2.048 V
	// reference is exactly 1.99 V, which encodes as 1194.
	v := (1990.0 / 4096.0) * 2 * 2.048
	w := sensor.EncodeMetric(v)
	require.Equal(t, uint16(1194), w)

	var b [2]byte
	sensor.PutMetric(b[:], w)
	assert.Equal(t, []byte{0x04, 0xAA}, b[:])
}
