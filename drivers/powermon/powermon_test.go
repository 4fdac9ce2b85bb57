package powermon_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensornode-go/drivers/powermon"
	"sensornode-go/hal"
	"sensornode-go/hal/sim"
	"sensornode-go/sensor"
)

const (
	chSolar   hal.Channel = 0
	chBattery hal.Channel = 1
)

type rig struct {
	dev    *powermon.Device
	adc    *sim.ADC
	notify *sim.Pin
	vref   *sim.Pin
	solEn  *sim.Pin
	batEn  *sim.Pin
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{
		adc:    sim.NewADC(),
		notify: sim.NewPin(),
		vref:   sim.NewPin(),
		solEn:  sim.NewPin(),
		batEn:  sim.NewPin(),
	}
	r.dev = powermon.New(powermon.Config{
		ADC:            r.adc,
		VRef:           hal.PinVRef{Pin: r.vref},
		SolarChannel:   chSolar,
		BatteryChannel: chBattery,
		SolarEnable:    r.solEn,
		BatteryEnable:  r.batEn,
		Watchdog:       sim.NewWatchdog(),
		Retain:         sim.NewRetain(),
		Notify:         r.notify,
		Delay:          sim.NewDelay(),
	})
	r.dev.Init()
	return r
}

// queueCycle scripts one full campaign: each channel sees a settling discard
// before its trusted reads.
func (r *rig) queueCycle(solFirst, solSecond, bat uint16) {
	r.adc.QueueOneShot(chSolar, 4095, solFirst, solSecond)
	r.adc.QueueOneShot(chBattery, 4095, bat)
}

func (r *rig) measure(t *testing.T) []byte {
	t.Helper()
	r.dev.Measure()
	r.dev.Loop()
	var frame [sensor.FrameMax]byte
	n := r.dev.Frame(frame[:])
	require.Equal(t, 6, n, "frame: bat(2) sol(2) undervolt(1) pad(1)")
	return frame[:n]
}

func TestMinCaptureKeepsLowerReading(t *testing.T) {
	r := newRig(t)

	r.queueCycle(2000, 1990, 2000)
	frame := r.measure(t)
	assert.Equal(t, uint16(1194), sensor.Metric(frame[2:4]), "second read lower: keep it")

	r.queueCycle(1990, 2000, 2000)
	frame = r.measure(t)
	assert.Equal(t, uint16(1194), sensor.Metric(frame[2:4]), "first read lower: keep it")
}

func TestBatteryWireReference(t *testing.T) {
	r := newRig(t)
	r.queueCycle(2000, 2000, 1990)

	frame := r.measure(t)
	// 1990 counts -> exactly 1.99 V -> 1194 on the wire.
	assert.Equal(t, []byte{0x04, 0xAA}, frame[:2])

	var b [sensor.DataLen]byte
	require.Equal(t, sensor.DataLen, r.dev.GetData(b[:]))
	assert.Equal(t, frame[:2], b[:], "GetData exposes the battery metric")
}

func TestSettlingConversionDiscarded(t *testing.T) {
	r := newRig(t)
	// The scripted 4095 settling reads must never surface: both rails
	// report the trusted 2000-count value.
	r.queueCycle(2000, 2000, 2000)

	frame := r.measure(t)
	assert.Equal(t, sensor.EncodeMetric(2.0), sensor.Metric(frame[:2]))
	assert.Equal(t, sensor.EncodeMetric(2.0), sensor.Metric(frame[2:4]))
}

func TestUndervoltageLatchHysteresis(t *testing.T) {
	r := newRig(t)

	// 2400 counts = 2.40 V: trips the latch.
	r.queueCycle(2000, 2000, 2400)
	frame := r.measure(t)
	assert.Equal(t, byte(1), frame[4])
	assert.True(t, r.dev.Undervoltage())

	// 3400 counts = 3.40 V: inside the hysteresis band, stays latched.
	r.queueCycle(2000, 2000, 3400)
	frame = r.measure(t)
	assert.Equal(t, byte(1), frame[4])

	// 3600 counts = 3.60 V: above the clear level, releases.
	r.queueCycle(2000, 2000, 3600)
	frame = r.measure(t)
	assert.Equal(t, byte(0), frame[4])
	assert.False(t, r.dev.Undervoltage())
}

func TestEveryPolledCycleNotifies(t *testing.T) {
	r := newRig(t)
	for i := 1; i <= 3; i++ {
		r.queueCycle(2000, 2000, 2000)
		r.measure(t)
		require.Equal(t, i, r.notify.Falls(), "cycle %d", i)
	}
}

func TestAnalogFrontEndPoweredDownBetweenCycles(t *testing.T) {
	r := newRig(t)
	r.queueCycle(2000, 2000, 2000)
	r.measure(t)

	assert.False(t, r.vref.Get(), "reference disabled after the cycle")
	assert.False(t, r.solEn.Get())
	assert.False(t, r.batEn.Get())
	assert.GreaterOrEqual(t, r.vref.Falls(), 1, "reference was up during the cycle")
	assert.GreaterOrEqual(t, r.solEn.Falls(), 1)
}

func TestReadErrorDropsCycle(t *testing.T) {
	r := newRig(t)
	// Empty queues and no fallback: the campaign errors out.
	r.dev.Measure()
	r.dev.Loop()

	assert.Equal(t, 0, r.notify.Falls())
	var b [sensor.DataLen]byte
	r.dev.GetData(b[:])
	assert.Equal(t, []byte{0, 0}, b[:])
	assert.False(t, r.vref.Get(), "reference released on the error path")
}
