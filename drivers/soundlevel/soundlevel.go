// Package soundlevel implements the sound-pressure level sensor: a 400-sample
// continuous ADC campaign over the microphone channel, reduced to a
// DC-rejected RMS pressure and reported in dB.
//
// The driver exposes the per-sensor surface (Init/Measure/Loop/GetData/
// SetThreshold) by wrapping the shared acquisition engine; its own job is the
// sampling campaign and the reduction.
package soundlevel

import (
	"math"
	"sync/atomic"
	"time"

	"sensornode-go/errcode"
	"sensornode-go/hal"
	"sensornode-go/sensor"
	"sensornode-go/x/mathx"
)

// SampleBudget is the fixed number of raw samples per campaign.
const SampleBudget = 400

// Analog chain constants, from the board's microphone/amplifier circuit.
const (
	ampFactor    = 44
	sensitivity  = 0.01258925 // V/Pa at the microphone output
	supplyVolts  = 3.3
	adcFullScale = 4095
	refPressure  = 20e-6 // Pa, 0 dB reference
	maxDecibels  = 106   // reporting ceiling
)

// Config wires the driver to its platform adapters. ADC, Channel, MicPower,
// Watchdog, Retain and Notify are mandatory.
type Config struct {
	ADC      hal.ADC
	Channel  hal.Channel
	MicPower hal.Pin // microphone/amplifier power enable
	MicMode  hal.Pin // high = wake-on-sound, low = active; optional
	Activity hal.Pin // optional activity LED

	Watchdog hal.Watchdog
	Retain   hal.Retain
	Notify   hal.Pin
	Delay    hal.Delayer // defaults to hal.SysDelay

	// SettleTime is the microphone power-up wait before sampling starts.
	// Default 500ms.
	SettleTime time.Duration
	// SampleTimeout bounds the wait for the sample budget; a campaign that
	// exceeds it is stopped and dropped. Default 5s.
	SampleTimeout time.Duration
	// KeepAliveTick is the watchdog-feed interval during waits. Default 100ms.
	KeepAliveTick time.Duration

	WatchdogPeriod time.Duration // passed through to the engine
	NotifyPulse    time.Duration
}

// Device is one sound level sensor instance.
type Device struct {
	cfg    Config
	eng    *sensor.Engine
	scaler float64 // counts -> Pa

	// acq is the in-flight acquisition; nil outside a campaign. Written by
	// the campaign, read by the conversion-complete handler.
	acq atomic.Pointer[acquisition]

	inited bool
}

// New builds the driver. Defaults are applied here; the engine panics on
// missing mandatory adapters.
func New(cfg Config) *Device {
	if cfg.ADC == nil || cfg.MicPower == nil {
		panic("soundlevel: adc/micpower adapters not configured")
	}
	if cfg.Delay == nil {
		cfg.Delay = hal.SysDelay{}
	}
	if cfg.SettleTime <= 0 {
		cfg.SettleTime = 500 * time.Millisecond
	}
	if cfg.SampleTimeout <= 0 {
		cfg.SampleTimeout = 5 * time.Second
	}
	if cfg.KeepAliveTick <= 0 {
		cfg.KeepAliveTick = 100 * time.Millisecond
	}
	d := &Device{
		cfg:    cfg,
		scaler: supplyVolts / (adcFullScale * sensitivity * ampFactor),
	}
	d.eng = sensor.New(d, sensor.Config{
		Watchdog:       cfg.Watchdog,
		Retain:         cfg.Retain,
		Notify:         cfg.Notify,
		Activity:       cfg.Activity,
		Delay:          cfg.Delay,
		WatchdogPeriod: cfg.WatchdogPeriod,
		NotifyPulse:    cfg.NotifyPulse,
	})
	return d
}

// Init is idempotent. It leaves the microphone powered down, registers the
// conversion-complete handler and brings up the engine (threshold state,
// watchdog).
func (d *Device) Init() {
	if d.inited {
		return
	}
	d.inited = true
	if d.cfg.MicMode != nil {
		d.cfg.MicMode.ConfigureOutput(false)
	}
	d.cfg.MicPower.ConfigureOutput(false)
	if err := d.cfg.ADC.Configure(d.cfg.Channel); err != nil {
		println("[sound] adc configure:", err.Error())
	}
	d.cfg.ADC.SetSampleHandler(d.onSample)
	d.eng.Init()
}

// Measure requests an immediate reading (non-blocking).
func (d *Device) Measure() { d.eng.Measure() }

// Loop advances the engine; must be invoked at a bounded interval.
func (d *Device) Loop() { d.eng.Loop() }

// GetData copies the latest wire metric (dB × 600, big-endian) into dst.
func (d *Device) GetData(dst []byte) int { return d.eng.GetData(dst) }

// SetThreshold updates the notification threshold from the host payload.
func (d *Device) SetThreshold(metric uint8, payload []byte) {
	d.eng.SetThreshold(metric, payload)
}

// ThresholdEnabled reports whether autonomous measurement is enabled.
func (d *Device) ThresholdEnabled() bool { return d.eng.ThresholdEnabled() }

// -----------------------------------------------------------------------------
// Campaign
// -----------------------------------------------------------------------------

// acquisition is the per-cycle sample store: a preallocated buffer with an
// index cursor, filled by the conversion-complete handler, plus a completion
// channel that orders the handoff to the reducing phase. A fresh acquisition
// is built per cycle and never read across cycles.
type acquisition struct {
	adc  hal.ADC
	buf  [SampleBudget]uint16
	n    int
	done chan struct{}
}

// take runs in the conversion-complete context. It never writes past the
// budget; at the budget it stops the converter and signals completion.
func (a *acquisition) take(raw uint16) {
	if a.n >= SampleBudget {
		return
	}
	a.buf[a.n] = raw
	a.n++
	if a.n == SampleBudget {
		_ = a.adc.Stop()
		close(a.done)
	}
}

func (d *Device) onSample(raw uint16) {
	if a := d.acq.Load(); a != nil {
		a.take(raw)
	}
}

// Run performs one sampling campaign: power the microphone chain, settle,
// free-run the converter until the budget is met, reduce. keepAlive is
// invoked throughout so the watchdog stays fed for the whole campaign.
func (d *Device) Run(keepAlive func()) (sensor.Result, error) {
	var res sensor.Result

	keepAlive()
	if d.cfg.MicMode != nil {
		d.cfg.MicMode.Set(false) // active mode
	}
	d.cfg.MicPower.Set(true)
	hal.DelayFed(d.cfg.Delay, d.cfg.SettleTime, d.cfg.KeepAliveTick, keepAlive)

	a := &acquisition{adc: d.cfg.ADC, done: make(chan struct{})}
	d.acq.Store(a)
	if err := d.cfg.ADC.StartContinuous(d.cfg.Channel); err != nil {
		d.acq.Store(nil)
		d.cfg.MicPower.Set(false)
		return res, err
	}

	err := waitBudget(a.done, d.cfg.SampleTimeout, d.cfg.KeepAliveTick, keepAlive)
	d.acq.Store(nil)
	if err != nil {
		_ = d.cfg.ADC.Stop()
		d.cfg.MicPower.Set(false)
		return res, err
	}

	d.cfg.MicPower.Set(false)
	keepAlive()
	res.AddMetric(d.reduce(&a.buf))
	return res, nil
}

// waitBudget blocks until the sample budget is met, feeding the watchdog at
// every tick. The deadline is the stuck-converter escape hatch: on expiry the
// cycle is dropped (the hardware watchdog remains the recovery path for a
// wedged loop).
func waitBudget(done <-chan struct{}, timeout, tick time.Duration, keepAlive func()) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-done:
			return nil
		case <-t.C:
			keepAlive()
		case <-deadline.C:
			return errcode.Timeout
		}
	}
}

// reduce maps the raw campaign to decibels: mean removal (DC rejection),
// mean squared deviation in the pressure domain, then
// 10·log10(meanSq/refPressure²), clamped to the ceiling.
func (d *Device) reduce(buf *[SampleBudget]uint16) float64 {
	var sum uint32
	for _, s := range buf {
		sum += uint32(s)
	}
	mean := float64(sum) / SampleBudget

	var sq float64
	for _, s := range buf {
		p := (float64(s) - mean) * d.scaler
		sq += p * p
	}
	meanSq := sq / SampleBudget

	db := 10 * math.Log10(meanSq/(refPressure*refPressure))
	return mathx.Min(db, maxDecibels)
}
