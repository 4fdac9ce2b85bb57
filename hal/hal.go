// Package hal defines the platform adapter contracts the acquisition engine
// and the sensor drivers are written against. Concrete providers live in
// subpackages: hal/sim (host-side simulation, used by tests and the bench
// demo) and hal/rp2 (rp2040 board provider).
package hal

import "time"

// Channel identifies a logical analog input channel on an ADC front end.
type Channel uint8

// Pin is a single digital output/input line (power enables, LEDs, the
// host-notification line, the microphone mode pin).
type Pin interface {
	// ConfigureOutput puts the pin in output mode at the given level.
	ConfigureOutput(initial bool)
	Set(level bool)
	Get() bool
}

// SampleHandler receives one raw conversion result. It is invoked exactly
// once per completed conversion, serialized, and asynchronously with respect
// to the caller of StartContinuous. Handlers must be non-blocking and must
// not start new conversions.
type SampleHandler func(raw uint16)

// ADC abstracts the analog converter. Implementations: the on-chip converter
// of a board provider, an external I2C front end (drivers/ads1115), or the
// scripted converter in hal/sim.
type ADC interface {
	// Configure prepares a channel for analog input (pin muxing etc).
	Configure(ch Channel) error

	// ReadOnce performs a one-shot conversion on the channel.
	ReadOnce(ch Channel) (uint16, error)

	// StartContinuous begins free-running conversions on the channel. Each
	// completed conversion invokes the registered sample handler.
	StartContinuous(ch Channel) error

	// Stop halts conversions. It may be called from within the sample
	// handler (the original firmware stops the converter from the
	// conversion-complete interrupt once the budget is met).
	Stop() error

	// SetSampleHandler registers the conversion-complete handler. Must be
	// called before StartContinuous; replacing the handler while running is
	// undefined.
	SetSampleHandler(fn SampleHandler)
}

// VRef is a switchable fixed voltage reference. The first conversion after
// Enable is unreliable while the reference settles; callers on the voltage
// path discard it.
type VRef interface {
	Enable()
	Disable()
}

// Watchdog is the recovery timer. Armed with a period, it forces a full
// device reset if not fed in time. ExpiredWhileAsleep distinguishes the
// consumed wake (timer elapsed during sleep, device deliberately woken) from
// the stall path, which is only observable after the fact via WasStallReset.
type Watchdog interface {
	// Start (re-)arms the watchdog with the given period.
	Start(period time.Duration)
	// Feed resets the countdown.
	Feed()
	// ExpiredWhileAsleep reports and clears the "timer elapsed during
	// sleep" flag that schedules an autonomous measurement.
	ExpiredWhileAsleep() bool
	// WasStallReset reports whether the previous reset was caused by a
	// missed feed. Stable for the life of the boot.
	WasStallReset() bool
}

// Retain tags for the retained byte region.
const (
	TagThresholdEnabled uint8 = iota
)

// Retain is a small tagged byte region that survives a stall reset but not a
// cold boot (watchdog scratch registers on rp2040, __persistent RAM on the
// original part).
type Retain interface {
	Load(tag uint8) (byte, bool)
	Store(tag uint8, v byte)
}

// PinVRef adapts a reference-enable line to the VRef contract, for boards
// whose reference is an external part behind a GPIO rather than an on-chip
// FVR.
type PinVRef struct {
	Pin Pin
}

func (v PinVRef) Enable()  { v.Pin.Set(true) }
func (v PinVRef) Disable() { v.Pin.Set(false) }

// Delayer is a millisecond-granularity blocking delay primitive.
type Delayer interface {
	Delay(d time.Duration)
}

// SysDelay is the real-time Delayer.
type SysDelay struct{}

func (SysDelay) Delay(d time.Duration) { time.Sleep(d) }

// DelayFed sleeps for total in slices of at most step, invoking keepAlive
// before every slice, so long settling waits cannot starve the watchdog.
func DelayFed(d Delayer, total, step time.Duration, keepAlive func()) {
	if step <= 0 || step > total {
		step = total
	}
	for total > 0 {
		if keepAlive != nil {
			keepAlive()
		}
		s := step
		if total < s {
			s = total
		}
		d.Delay(s)
		total -= s
	}
	if keepAlive != nil {
		keepAlive()
	}
}
