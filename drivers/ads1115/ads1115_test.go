package ads1115

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tinygo.org/x/drivers"

	"sensornode-go/errcode"
	"sensornode-go/hal"
)

// Compile-time check.
var _ drivers.I2C = (*fakeI2C)(nil)

// fakeI2C models the ADS1115 register file: config writes are logged, the
// OS bit reads busy for busyReads polls, and conversion reads pop a queue
// (the last value repeats).
type fakeI2C struct {
	mu          sync.Mutex
	cfgWrites   []uint16
	busyReads   int
	conversions []uint16
}

func (f *fakeI2C) Tx(addr uint16, w, r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if addr != DefaultAddress {
		return errcode.HardwareFault
	}

	// Register write.
	if len(w) == 3 && len(r) == 0 {
		if w[0] == regConfig {
			f.cfgWrites = append(f.cfgWrites, uint16(w[1])<<8|uint16(w[2]))
		}
		return nil
	}

	// Register read.
	if len(w) == 1 && len(r) == 2 {
		switch w[0] {
		case regConfig:
			var v uint16
			if len(f.cfgWrites) > 0 {
				v = f.cfgWrites[len(f.cfgWrites)-1] &^ cfgOSSingle
			}
			if f.busyReads > 0 {
				f.busyReads--
			} else {
				v |= cfgOSSingle // conversion complete / idle
			}
			r[0] = byte(v >> 8)
			r[1] = byte(v)
			return nil
		case regConversion:
			var v uint16
			if len(f.conversions) > 0 {
				v = f.conversions[0]
				if len(f.conversions) > 1 {
					f.conversions = f.conversions[1:]
				}
			}
			r[0] = byte(v >> 8)
			r[1] = byte(v)
			return nil
		}
	}
	return errcode.Unsupported
}

func (f *fakeI2C) lastConfig() uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfgWrites[len(f.cfgWrites)-1]
}

func TestReadOnceConfigWord(t *testing.T) {
	f := &fakeI2C{conversions: []uint16{0x1234}}
	d := New(f)

	v, err := d.ReadOnce(1)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), v)

	cfg := f.lastConfig()
	assert.NotZero(t, cfg&cfgOSSingle, "single conversion started")
	assert.NotZero(t, cfg&cfgModeSingle, "single-shot mode")
	assert.Equal(t, uint16(5), cfg>>12&0x7, "mux: AIN1 single-ended")
	assert.Equal(t, uint16(2), cfg>>9&0x7, "default PGA ±2.048V")
	assert.Equal(t, uint16(7), cfg>>5&0x7, "default 860 SPS")
	assert.Equal(t, uint16(cfgCompDisable), cfg&0xF, "comparator off")
}

func TestReadOncePollsBusyChip(t *testing.T) {
	f := &fakeI2C{conversions: []uint16{0x0100}, busyReads: 3}
	d := New(f)

	v, err := d.ReadOnce(0)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0100), v)
}

func TestReadOnceClampsNegativeCodes(t *testing.T) {
	f := &fakeI2C{conversions: []uint16{0x8001}} // below-ground noise
	d := New(f)

	v, err := d.ReadOnce(0)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), v)
}

func TestInvalidChannelRejected(t *testing.T) {
	d := New(&fakeI2C{})
	assert.Equal(t, errcode.InvalidChannel, errcode.Of(d.Configure(4)))
	_, err := d.ReadOnce(4)
	assert.Equal(t, errcode.InvalidChannel, errcode.Of(err))
	assert.Equal(t, errcode.InvalidChannel, errcode.Of(d.StartContinuous(4)))
}

func TestContinuousDeliversUntilStopped(t *testing.T) {
	f := &fakeI2C{conversions: []uint16{100, 200, 300}}
	d := New(f, Config{DataRate: 7})

	var mu sync.Mutex
	var got []uint16
	done := make(chan struct{})
	d.SetSampleHandler(func(raw uint16) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, raw)
		if len(got) == 3 {
			_ = d.Stop() // stop from handler context, like the drivers do
			close(done)
		}
	})

	require.NoError(t, d.StartContinuous(2))
	cfg := f.lastConfig()
	assert.Zero(t, cfg&cfgModeSingle, "continuous mode")
	assert.Equal(t, uint16(6), cfg>>12&0x7, "mux: AIN2 single-ended")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for samples")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []uint16{100, 200, 300}, got)
}

func TestContinuousRequiresHandler(t *testing.T) {
	d := New(&fakeI2C{})
	assert.Equal(t, errcode.NotReady, errcode.Of(d.StartContinuous(0)))
}

var _ hal.ADC = (*Device)(nil)
