//go:build rp2040

// Package rp2 is the rp2040 board provider for the hal contracts: machine
// ADC/pins, the hardware watchdog, and watchdog scratch registers for the
// retained byte region.
package rp2

import (
	"device/rp"
	"machine"
	"sync/atomic"
	"time"

	"sensornode-go/errcode"
	"sensornode-go/hal"
	"sensornode-go/x/timex"
)

// -----------------------------------------------------------------------------
// GPIO
// -----------------------------------------------------------------------------

type Pin struct {
	p machine.Pin
}

func NewPin(n int) *Pin { return &Pin{p: machine.Pin(n)} }

func (r *Pin) ConfigureOutput(initial bool) {
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r.p.Set(initial)
}

func (r *Pin) Set(b bool) { r.p.Set(b) }
func (r *Pin) Get() bool  { return r.p.Get() }

// -----------------------------------------------------------------------------
// ADC
// -----------------------------------------------------------------------------

// ADC maps hal channels onto the rp2040 analog pins (GPIO26..29). Raw values
// are scaled down to the 12-bit range the drivers' analog constants assume.
//
// The rp2040 machine layer exposes no conversion-complete interrupt, so
// continuous mode is a paced poller invoking the handler once per read.
type ADC struct {
	pins map[hal.Channel]machine.Pin

	// SampleRateHz paces continuous delivery. Default 20kHz.
	SampleRateHz uint32

	handler hal.SampleHandler
	running atomic.Bool
	gen     atomic.Uint32

	inited bool
}

func NewADC(pins map[hal.Channel]machine.Pin) *ADC {
	return &ADC{pins: pins, SampleRateHz: 20000}
}

func (a *ADC) Configure(ch hal.Channel) error {
	p, ok := a.pins[ch]
	if !ok {
		return &errcode.E{C: errcode.InvalidChannel, Op: "rp2.Configure"}
	}
	if !a.inited {
		machine.InitADC()
		a.inited = true
	}
	machine.ADC{Pin: p}.Configure(machine.ADCConfig{})
	return nil
}

func (a *ADC) ReadOnce(ch hal.Channel) (uint16, error) {
	p, ok := a.pins[ch]
	if !ok {
		return 0, &errcode.E{C: errcode.InvalidChannel, Op: "rp2.ReadOnce"}
	}
	// machine returns 16-bit left-aligned; shift back to the hardware's
	// 12-bit range.
	return machine.ADC{Pin: p}.Get() >> 4, nil
}

func (a *ADC) SetSampleHandler(fn hal.SampleHandler) { a.handler = fn }

func (a *ADC) StartContinuous(ch hal.Channel) error {
	p, ok := a.pins[ch]
	if !ok {
		return &errcode.E{C: errcode.InvalidChannel, Op: "rp2.StartContinuous"}
	}
	fn := a.handler
	if fn == nil {
		return &errcode.E{C: errcode.NotReady, Op: "rp2.StartContinuous", Msg: "no sample handler"}
	}
	gen := a.gen.Add(1)
	a.running.Store(true)
	period := timex.PeriodFromHz(a.SampleRateHz)
	adc := machine.ADC{Pin: p}

	go func() {
		for a.running.Load() && a.gen.Load() == gen {
			time.Sleep(period)
			fn(adc.Get() >> 4)
		}
	}()
	return nil
}

func (a *ADC) Stop() error {
	a.running.Store(false)
	return nil
}

// -----------------------------------------------------------------------------
// Watchdog
// -----------------------------------------------------------------------------

// Watchdog drives the rp2040 hardware watchdog. The part has no PIC-style
// "expired while asleep" status, so the autonomous wake is modelled on the
// armed period: once a full period has elapsed since the last consumed wake,
// ExpiredWhileAsleep reports true. The stall path is the hardware's: a
// missed Update resets the chip and the reset reason latches TIMER.
type Watchdog struct {
	period time.Duration
	next   time.Time
}

func NewWatchdog() *Watchdog { return &Watchdog{} }

func (w *Watchdog) Start(period time.Duration) {
	w.period = period
	if w.next.IsZero() {
		w.next = time.Now().Add(period)
	}
	machine.Watchdog.Configure(machine.WatchdogConfig{
		TimeoutMillis: uint32(period.Milliseconds()),
	})
	machine.Watchdog.Start()
}

func (w *Watchdog) Feed() { machine.Watchdog.Update() }

func (w *Watchdog) ExpiredWhileAsleep() bool {
	if w.period <= 0 || time.Now().Before(w.next) {
		return false
	}
	w.next = time.Now().Add(w.period)
	return true
}

func (w *Watchdog) WasStallReset() bool {
	return rp.WATCHDOG.REASON.Get()&rp.WATCHDOG_REASON_TIMER_Msk != 0
}

// -----------------------------------------------------------------------------
// Retained region
// -----------------------------------------------------------------------------

// Retain keeps one tagged byte in a watchdog scratch register, which
// survives a watchdog reset but not power-on. Layout: magic(16) tag(8)
// value(8); a wrong magic or tag reads as absent, which is the cold-boot
// default.
type Retain struct{}

const retainMagic = 0x5EA5_0000

func NewRetain() *Retain { return &Retain{} }

func (Retain) Load(tag uint8) (byte, bool) {
	w := rp.WATCHDOG.SCRATCH4.Get()
	if w&0xFFFF0000 != retainMagic || uint8(w>>8) != tag {
		return 0, false
	}
	return byte(w), true
}

func (Retain) Store(tag uint8, v byte) {
	rp.WATCHDOG.SCRATCH4.Set(retainMagic | uint32(tag)<<8 | uint32(v))
}
