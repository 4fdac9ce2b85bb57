// Package ads1115 adapts an ADS1115-class 16-bit I2C ADC to the hal.ADC
// contract, so a sensor can run from an external front end instead of the
// on-chip converter. Channels 0..3 map to the single-ended inputs AIN0..AIN3.
//
// Continuous mode is realized by a poller that reads the conversion register
// at the configured data rate and invokes the sample handler once per read;
// the chip itself free-runs in the background.
package ads1115

import (
	"sync/atomic"
	"time"

	"tinygo.org/x/drivers"

	"sensornode-go/errcode"
	"sensornode-go/hal"
	"sensornode-go/x/timex"
)

// DefaultAddress is the ADDR-to-GND I2C address.
const DefaultAddress = 0x48

// Registers.
const (
	regConversion = 0x00
	regConfig     = 0x01
	regLoThresh   = 0x02
	regHiThresh   = 0x03
)

// Config register fields.
const (
	cfgOSSingle    = 1 << 15 // write: start single conversion; read: idle
	cfgMuxSingle   = 4 << 12 // +channel: single-ended AINx vs GND
	cfgModeSingle  = 1 << 8
	cfgCompDisable = 0x0003
)

// dataRates are the ADS111x sample rates in SPS, indexed by DR code.
var dataRates = [8]uint32{8, 16, 32, 64, 128, 250, 475, 860}

// Config controls chip behaviour. All fields are optional.
type Config struct {
	// Address defaults to 0x48 if zero.
	Address uint16
	// Gain is the PGA code 1..5 (±4.096 V down to ±0.256 V full scale);
	// zero selects the default ±2.048 V.
	Gain uint8
	// DataRate is the DR code 0..7. Default 7 (860 SPS).
	DataRate uint8
}

// Device wraps an I2C connection to an ADS1115. The I2C bus must already be
// configured.
type Device struct {
	bus  drivers.I2C
	addr uint16
	cfg  Config
	buf  [3]byte // reuse buffer to avoid allocations

	handler hal.SampleHandler
	running atomic.Bool
	gen     atomic.Uint32
}

var _ hal.ADC = (*Device)(nil)

// New creates the adapter. Only the object is built; the chip is untouched.
func New(bus drivers.I2C, cfgs ...Config) *Device {
	var c Config
	if len(cfgs) > 0 {
		c = cfgs[0]
	}
	if c.Address == 0 {
		c.Address = DefaultAddress
	}
	if c.Gain == 0 {
		c.Gain = 2
	}
	if c.Gain > 5 {
		c.Gain = 5
	}
	if c.DataRate == 0 {
		c.DataRate = 7
	}
	if c.DataRate > 7 {
		c.DataRate = 7
	}
	return &Device{bus: bus, addr: c.Address, cfg: c}
}

func (d *Device) writeReg(reg uint8, v uint16) error {
	d.buf[0] = reg
	d.buf[1] = byte(v >> 8)
	d.buf[2] = byte(v)
	return d.bus.Tx(d.addr, d.buf[:3], nil)
}

func (d *Device) readReg(reg uint8) (uint16, error) {
	d.buf[0] = reg
	if err := d.bus.Tx(d.addr, d.buf[:1], d.buf[1:3]); err != nil {
		return 0, err
	}
	return uint16(d.buf[1])<<8 | uint16(d.buf[2]), nil
}

func (d *Device) configWord(ch hal.Channel, continuous bool) uint16 {
	w := uint16(cfgMuxSingle+uint16(ch)<<12) |
		uint16(d.cfg.Gain)<<9 |
		uint16(d.cfg.DataRate)<<5 |
		cfgCompDisable
	if !continuous {
		w |= cfgOSSingle | cfgModeSingle
	}
	return w
}

// Configure validates the channel; the inputs need no pin muxing.
func (d *Device) Configure(ch hal.Channel) error {
	if ch > 3 {
		return &errcode.E{C: errcode.InvalidChannel, Op: "ads1115.Configure"}
	}
	return nil
}

// ReadOnce starts a single-shot conversion and polls the OS bit until it
// completes. Negative codes (noise below ground on a single-ended input)
// clamp to zero.
func (d *Device) ReadOnce(ch hal.Channel) (uint16, error) {
	if ch > 3 {
		return 0, &errcode.E{C: errcode.InvalidChannel, Op: "ads1115.ReadOnce"}
	}
	if err := d.writeReg(regConfig, d.configWord(ch, false)); err != nil {
		return 0, err
	}
	period := timex.PeriodFromHz(dataRates[d.cfg.DataRate])
	for i := 0; i < 32; i++ {
		time.Sleep(period / 4)
		st, err := d.readReg(regConfig)
		if err != nil {
			return 0, err
		}
		if st&cfgOSSingle != 0 {
			raw, err := d.readReg(regConversion)
			if err != nil {
				return 0, err
			}
			if int16(raw) < 0 {
				return 0, nil
			}
			return raw, nil
		}
	}
	return 0, &errcode.E{C: errcode.Timeout, Op: "ads1115.ReadOnce"}
}

func (d *Device) SetSampleHandler(fn hal.SampleHandler) { d.handler = fn }

// StartContinuous puts the chip in continuous mode and starts the poller.
func (d *Device) StartContinuous(ch hal.Channel) error {
	if ch > 3 {
		return &errcode.E{C: errcode.InvalidChannel, Op: "ads1115.StartContinuous"}
	}
	fn := d.handler
	if fn == nil {
		return &errcode.E{C: errcode.NotReady, Op: "ads1115.StartContinuous", Msg: "no sample handler"}
	}
	if err := d.writeReg(regConfig, d.configWord(ch, true)); err != nil {
		return err
	}
	gen := d.gen.Add(1)
	d.running.Store(true)
	period := timex.PeriodFromHz(dataRates[d.cfg.DataRate])

	go func() {
		// Dedicated read buffer: the poller must not share d.buf with
		// one-shot callers.
		var buf [3]byte
		for d.running.Load() && d.gen.Load() == gen {
			time.Sleep(period)
			buf[0] = regConversion
			if err := d.bus.Tx(d.addr, buf[:1], buf[1:3]); err != nil {
				continue
			}
			raw := uint16(buf[1])<<8 | uint16(buf[2])
			if int16(raw) < 0 {
				raw = 0
			}
			fn(raw)
		}
	}()
	return nil
}

// Stop halts the poller. Safe from within the sample handler. The chip keeps
// free-running until the next configuration write; the poller stopping is
// what ends sample delivery.
func (d *Device) Stop() error {
	d.running.Store(false)
	return nil
}
