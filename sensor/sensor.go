// Package sensor implements the shared acquisition engine behind the sound
// level and power monitor drivers: the measurement state machine, the
// watchdog-gated scheduler, the threshold/notification policy, and the
// host-facing data buffer.
//
// The engine owns no analog hardware. A driver supplies a Campaign that runs
// one sampling-and-reduction pass; the engine supplies the mutual exclusion
// between triggers, the watchdog feeding contract, and everything the host
// can observe (notification pulses, GetData, SetThreshold).
package sensor

import (
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"

	"sensornode-go/hal"
)

// Frame capacity: up to MaxMetrics fixed-point metrics followed by up to
// MaxStatus raw status bytes.
const (
	MaxMetrics = 2
	MaxStatus  = 2
	FrameMax   = 2*MaxMetrics + MaxStatus
)

// Result is the output of one completed campaign. Metrics are physical
// values (dB, volts); Status bytes are appended to the frame verbatim.
// Fixed arrays keep the cycle allocation-free.
type Result struct {
	Metrics  [MaxMetrics]float64
	NMetrics int
	Status   [MaxStatus]byte
	NStatus  int
}

// AddMetric appends a physical metric. Extra metrics beyond MaxMetrics are
// dropped.
func (r *Result) AddMetric(v float64) {
	if r.NMetrics < MaxMetrics {
		r.Metrics[r.NMetrics] = v
		r.NMetrics++
	}
}

// AddStatus appends a raw status byte.
func (r *Result) AddStatus(b byte) {
	if r.NStatus < MaxStatus {
		r.Status[r.NStatus] = b
		r.NStatus++
	}
}

// Campaign runs one sampling campaign to completion and reduces the raw
// samples to physical metrics. Implementations must invoke keepAlive at
// bounded intervals for the whole campaign, including across settling
// delays; the engine wires it to the watchdog feed. A Campaign returning an
// error drops the cycle: no frame update, no notification.
type Campaign interface {
	Run(keepAlive func()) (Result, error)
}

// Config wires an Engine to its platform adapters.
type Config struct {
	Watchdog hal.Watchdog
	Retain   hal.Retain
	Notify   hal.Pin     // host-notification line; idles high, pulsed low
	Activity hal.Pin     // optional activity LED
	Delay    hal.Delayer // defaults to hal.SysDelay

	WatchdogPeriod time.Duration // defaults to 1s
	NotifyPulse    time.Duration // defaults to 5ms
}

// Engine sequences idle → sample → reduce → notify → idle for one sensor.
type Engine struct {
	cfg      Config
	campaign Campaign

	// Trigger flags. polled is the MeasurementRequest set by Measure();
	// running is the mutual-exclusion flag: a trigger observed while a
	// cycle is in flight is dropped, never queued.
	running atomic.Bool
	polled  atomic.Bool

	// Host-visible state. The mutex covers only what the host can touch
	// concurrently with a cycle (frame, threshold); the sampling path
	// itself is single-owner.
	mu         sync.Mutex
	frame      [FrameMax]byte
	frameLen   int
	thrEnabled bool
	thrLevel   uint16
	over       bool // latched hysteresis flag

	inited bool
}

// New builds an Engine around a campaign. Watchdog, Retain and Notify are
// mandatory; missing adapters are a wiring bug and panic immediately.
func New(c Campaign, cfg Config) *Engine {
	if c == nil {
		panic("sensor: campaign not configured")
	}
	if cfg.Watchdog == nil || cfg.Retain == nil || cfg.Notify == nil {
		panic("sensor: watchdog/retain/notify adapters not configured")
	}
	if cfg.Delay == nil {
		cfg.Delay = hal.SysDelay{}
	}
	if cfg.WatchdogPeriod <= 0 {
		cfg.WatchdogPeriod = time.Second
	}
	if cfg.NotifyPulse <= 0 {
		cfg.NotifyPulse = 5 * time.Millisecond
	}
	return &Engine{cfg: cfg, campaign: c}
}

// Init is idempotent. It raises the notification line, applies the
// stall-reset policy to the persisted threshold-enable flag, and arms the
// watchdog. After a stall reset the enable flag is forced off: a stall is
// evidence the previous cycle could not complete safely.
func (e *Engine) Init() {
	if e.inited {
		return
	}
	e.inited = true

	e.cfg.Notify.ConfigureOutput(true)
	if e.cfg.Activity != nil {
		e.cfg.Activity.ConfigureOutput(false)
	}

	if e.cfg.Watchdog.WasStallReset() {
		e.setThresholdEnabled(false)
		e.cfg.Retain.Store(hal.TagThresholdEnabled, 0)
	} else if v, ok := e.cfg.Retain.Load(hal.TagThresholdEnabled); ok {
		e.setThresholdEnabled(v != 0)
	}

	e.cfg.Watchdog.Start(e.cfg.WatchdogPeriod)
	e.cfg.Watchdog.Feed()
}

// Measure requests an immediate reading. Non-blocking; if a cycle is already
// in flight when the request is consumed, it is dropped silently.
func (e *Engine) Measure() {
	e.polled.Store(true)
}

// Loop must be invoked at a bounded interval. It consumes a watchdog wake,
// feeds the dog, and runs one measurement cycle to completion if triggered
// (the call blocks for the duration of the campaign).
func (e *Engine) Loop() {
	start := false
	if e.cfg.Watchdog.ExpiredWhileAsleep() {
		e.cfg.Watchdog.Start(e.cfg.WatchdogPeriod)
		if !e.running.Load() && e.thresholdEnabled() {
			start = true
		}
	}
	e.cfg.Watchdog.Feed()

	if !start && !e.polled.Load() {
		return
	}
	if !e.running.CompareAndSwap(false, true) {
		return
	}
	polled := e.polled.Load()
	e.runCycle(polled)
	// Requests that arrived mid-cycle are dropped along with the consumed
	// one, matching the original firmware.
	e.polled.Store(false)
	e.running.Store(false)
}

func (e *Engine) runCycle(polled bool) {
	dog := e.cfg.Watchdog
	dog.Feed()
	if e.cfg.Activity != nil {
		e.cfg.Activity.Set(true)
	}

	res, err := e.campaign.Run(dog.Feed)
	dog.Feed()

	if err != nil {
		// Dropped silently: the host's only failure signal is the absence
		// of the notification pulse. Re-arm so the schedule survives.
		dog.Start(e.cfg.WatchdogPeriod)
		if e.cfg.Activity != nil {
			e.cfg.Activity.Set(false)
		}
		return
	}

	var frame [FrameMax]byte
	n := 0
	for i := 0; i < res.NMetrics; i++ {
		PutMetric(frame[n:], EncodeMetric(res.Metrics[i]))
		n += 2
	}
	for i := 0; i < res.NStatus; i++ {
		frame[n] = res.Status[i]
		n++
	}
	var first uint16
	if res.NMetrics > 0 {
		first = EncodeMetric(res.Metrics[0])
	}

	e.mu.Lock()
	copy(e.frame[:n], frame[:n])
	e.frameLen = n
	notify := false
	if polled {
		// An explicit host request always gets its pulse.
		notify = true
	} else if first > e.thrLevel {
		// Rising edge only; the latch suppresses repeats while the
		// condition persists.
		if !e.over {
			e.over = true
			notify = true
		}
	} else {
		e.over = false
	}
	e.mu.Unlock()

	if notify {
		e.pulse()
	}
	if !polled {
		// Autonomous cycle: make sure the watchdog is running again.
		dog.Start(e.cfg.WatchdogPeriod)
	}
	if e.cfg.Activity != nil {
		e.cfg.Activity.Set(false)
	}
}

// pulse drives the notification line low for the configured width.
func (e *Engine) pulse() {
	e.cfg.Notify.Set(false)
	e.cfg.Delay.Delay(e.cfg.NotifyPulse)
	e.cfg.Notify.Set(true)
}

// GetData copies the most recent wire metric into dst and returns DataLen.
// It never blocks and never fails; before the first completed cycle the
// metric reads as zero, and the caller cannot distinguish fresh from stale.
func (e *Engine) GetData(dst []byte) int {
	if len(dst) < DataLen {
		return 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	copy(dst[:DataLen], e.frame[:DataLen])
	return DataLen
}

// Frame copies the full frame (all metrics plus status bytes) into dst and
// returns its length. Zero until the first completed cycle.
func (e *Engine) Frame(dst []byte) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := e.frameLen
	if n > len(dst) {
		n = len(dst)
	}
	copy(dst[:n], e.frame[:n])
	return n
}

// SetThreshold updates the threshold from the host payload. Byte 0 enables
// autonomous measurement, bytes 3..4 carry the big-endian level in wire
// units; metric selects a sub-metric (only 0 is in use, others are
// reserved). Payloads shorter than 5 bytes are ignored; beyond the byte
// layout no validation is performed — malformed bytes yield a nonsensical
// but harmless level. Enabling (re-)arms the watchdog so the periodic
// schedule starts immediately.
func (e *Engine) SetThreshold(metric uint8, payload []byte) {
	if metric != 0 || len(payload) < 5 {
		return
	}
	enabled := payload[0] != 0
	level := binary.BigEndian.Uint16(payload[3:5])

	e.mu.Lock()
	e.thrEnabled = enabled
	e.thrLevel = level
	e.mu.Unlock()

	var b byte
	if enabled {
		b = 1
	}
	e.cfg.Retain.Store(hal.TagThresholdEnabled, b)
	if enabled {
		e.cfg.Watchdog.Start(e.cfg.WatchdogPeriod)
	}
}

// ThresholdEnabled reports whether autonomous measurement is enabled.
func (e *Engine) ThresholdEnabled() bool { return e.thresholdEnabled() }

func (e *Engine) thresholdEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.thrEnabled
}

func (e *Engine) setThresholdEnabled(v bool) {
	e.mu.Lock()
	e.thrEnabled = v
	e.mu.Unlock()
}
