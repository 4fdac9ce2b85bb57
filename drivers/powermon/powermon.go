// Package powermon implements the power/voltage monitor: min-capture reads
// of the solar rail plus a single battery read, behind the shared
// acquisition engine. The battery voltage is the primary metric exposed via
// GetData; the full frame carries battery, solar and the undervoltage latch.
package powermon

import (
	"time"

	"sensornode-go/hal"
	"sensornode-go/sensor"
)

// Analog chain constants. The divider halves the rail voltage, hence the ×2
// back out; the fixed reference is 2.048 V.
const (
	fullScale = 4096
	refVolts  = 2.048
)

// Battery undervoltage latch thresholds (volts). Set below 3.30, cleared
// only above 3.50 — hysteresis so the flag does not chatter around the trip
// point.
const (
	undervoltSet   = 3.3
	undervoltClear = 3.5
)

// Config wires the driver to its platform adapters. ADC, VRef, the two load
// switches and the engine adapters are mandatory.
type Config struct {
	ADC            hal.ADC
	VRef           hal.VRef
	SolarChannel   hal.Channel
	BatteryChannel hal.Channel
	SolarEnable    hal.Pin // load switch for the solar divider
	BatteryEnable  hal.Pin // load switch for the battery divider
	Activity       hal.Pin // optional activity LED

	Watchdog hal.Watchdog
	Retain   hal.Retain
	Notify   hal.Pin
	Delay    hal.Delayer // defaults to hal.SysDelay

	// SettleTime is the load-switch/divider settling wait. Default 50ms.
	SettleTime time.Duration
	// CaptureWindow separates the two solar reads; the lower one wins
	// (the rail only decays under the measurement load). Default 2s.
	CaptureWindow time.Duration
	// KeepAliveTick is the watchdog-feed interval during waits. Default 100ms.
	KeepAliveTick time.Duration

	WatchdogPeriod time.Duration
	NotifyPulse    time.Duration
}

// Device is one power monitor instance.
type Device struct {
	cfg Config
	eng *sensor.Engine

	undervolt bool // latched across cycles

	inited bool
}

var _ sensor.Campaign = (*Device)(nil)

func New(cfg Config) *Device {
	if cfg.ADC == nil || cfg.VRef == nil || cfg.SolarEnable == nil || cfg.BatteryEnable == nil {
		panic("powermon: adc/vref/load-switch adapters not configured")
	}
	if cfg.Delay == nil {
		cfg.Delay = hal.SysDelay{}
	}
	if cfg.SettleTime <= 0 {
		cfg.SettleTime = 50 * time.Millisecond
	}
	if cfg.CaptureWindow <= 0 {
		cfg.CaptureWindow = 2 * time.Second
	}
	if cfg.KeepAliveTick <= 0 {
		cfg.KeepAliveTick = 100 * time.Millisecond
	}
	d := &Device{cfg: cfg}
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

// Init is idempotent: load switches off, channels muxed, engine up. The
// reference stays disabled between campaigns.
func (d *Device) Init() {
	if d.inited {
		return
	}
	d.inited = true
	d.cfg.SolarEnable.ConfigureOutput(false)
	d.cfg.BatteryEnable.ConfigureOutput(false)
	if err := d.cfg.ADC.Configure(d.cfg.SolarChannel); err != nil {
		println("[power] solar channel configure:", err.Error())
	}
	if err := d.cfg.ADC.Configure(d.cfg.BatteryChannel); err != nil {
		println("[power] battery channel configure:", err.Error())
	}
	d.eng.Init()
}

// Measure requests an immediate reading (non-blocking). The power monitor
// never enables the threshold, so this is its only trigger.
func (d *Device) Measure() { d.eng.Measure() }

// Loop advances the engine; must be invoked at a bounded interval.
func (d *Device) Loop() { d.eng.Loop() }

// GetData copies the battery wire metric (volts × 600, big-endian) into dst.
func (d *Device) GetData(dst []byte) int { return d.eng.GetData(dst) }

// Frame copies the full frame: bat(2) sol(2) undervolt(1) pad(1).
func (d *Device) Frame(dst []byte) int { return d.eng.Frame(dst) }

// SetThreshold updates the (unused) threshold state; reserved for future
// metrics.
func (d *Device) SetThreshold(metric uint8, payload []byte) {
	d.eng.SetThreshold(metric, payload)
}

// Undervoltage reports the latched battery undervoltage flag.
func (d *Device) Undervoltage() bool { return d.undervolt }

// -----------------------------------------------------------------------------
// Campaign
// -----------------------------------------------------------------------------

// volts converts a raw conversion to rail volts through the halving divider.
func volts(raw uint16) float64 {
	return float64(raw) / fullScale * 2 * refVolts
}

// Run performs one min-capture campaign. The first conversion after the
// reference comes up is unreliable (reference settling) and is discarded on
// each channel before any reading is trusted.
func (d *Device) Run(keepAlive func()) (sensor.Result, error) {
	var res sensor.Result

	keepAlive()
	d.cfg.VRef.Enable()
	defer d.cfg.VRef.Disable()
	d.cfg.SolarEnable.Set(true)
	d.cfg.BatteryEnable.Set(true)
	defer d.cfg.SolarEnable.Set(false)
	defer d.cfg.BatteryEnable.Set(false)
	hal.DelayFed(d.cfg.Delay, d.cfg.SettleTime, d.cfg.KeepAliveTick, keepAlive)

	_, _ = d.cfg.ADC.ReadOnce(d.cfg.SolarChannel) // discard: reference settling
	sol, err := d.cfg.ADC.ReadOnce(d.cfg.SolarChannel)
	if err != nil {
		return res, err
	}
	hal.DelayFed(d.cfg.Delay, d.cfg.CaptureWindow, d.cfg.KeepAliveTick, keepAlive)
	again, err := d.cfg.ADC.ReadOnce(d.cfg.SolarChannel)
	if err != nil {
		return res, err
	}
	if again < sol {
		// The rail only decays under the measurement load; keep the
		// conservative capture.
		sol = again
	}

	_, _ = d.cfg.ADC.ReadOnce(d.cfg.BatteryChannel) // discard: reference settling
	bat, err := d.cfg.ADC.ReadOnce(d.cfg.BatteryChannel)
	if err != nil {
		return res, err
	}

	batV := volts(bat)
	solV := volts(sol)

	if batV < undervoltSet {
		d.undervolt = true
	} else if d.undervolt && batV > undervoltClear {
		d.undervolt = false
	}

	res.AddMetric(batV)
	res.AddMetric(solV)
	if d.undervolt {
		res.AddStatus(1)
	} else {
		res.AddStatus(0)
	}
	res.AddStatus(0)
	return res, nil
}
