package sim

import (
	"sync"
	"sync/atomic"
	"time"

	"sensornode-go/errcode"
	"sensornode-go/hal"
	"sensornode-go/x/timex"
)

// ADC is a scripted converter.
//
// One-shot conversions pop from a per-channel queue (falling back to a
// per-channel default), so tests can script "first conversion after the
// reference comes up is bogus" exactly.
//
// Continuous mode replays a per-channel stream from a delivery goroutine at
// SampleRateHz, invoking the registered handler once per sample, which is the
// same asynchronous shape the on-chip converter has. Stop is safe from within
// the handler.
type ADC struct {
	mu         sync.Mutex
	handler    hal.SampleHandler
	configured map[hal.Channel]bool
	queue      map[hal.Channel][]uint16
	fallback   map[hal.Channel]uint16
	hasFall    map[hal.Channel]bool
	stream     map[hal.Channel][]uint16

	// SampleRateHz paces continuous delivery. Zero means "as fast as the
	// scheduler allows" (still one goroutine hop per sample).
	SampleRateHz uint32

	running atomic.Bool
	gen     atomic.Uint32
}

func NewADC() *ADC {
	return &ADC{
		configured: map[hal.Channel]bool{},
		queue:      map[hal.Channel][]uint16{},
		fallback:   map[hal.Channel]uint16{},
		hasFall:    map[hal.Channel]bool{},
		stream:     map[hal.Channel][]uint16{},
	}
}

// QueueOneShot appends scripted one-shot results for a channel.
func (a *ADC) QueueOneShot(ch hal.Channel, vals ...uint16) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.queue[ch] = append(a.queue[ch], vals...)
}

// SetFallback sets the value returned once a channel's one-shot queue runs dry.
func (a *ADC) SetFallback(ch hal.Channel, v uint16) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.fallback[ch] = v
	a.hasFall[ch] = true
}

// SetStream sets the continuous-mode sample stream for a channel. The stream
// is replayed from the start on every StartContinuous and is not consumed.
func (a *ADC) SetStream(ch hal.Channel, vals []uint16) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stream[ch] = vals
}

func (a *ADC) Configure(ch hal.Channel) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.configured[ch] = true
	return nil
}

// Configured reports whether Configure was called for the channel.
func (a *ADC) Configured(ch hal.Channel) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.configured[ch]
}

func (a *ADC) ReadOnce(ch hal.Channel) (uint16, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if q := a.queue[ch]; len(q) > 0 {
		v := q[0]
		a.queue[ch] = q[1:]
		return v, nil
	}
	if a.hasFall[ch] {
		return a.fallback[ch], nil
	}
	return 0, &errcode.E{C: errcode.InvalidChannel, Op: "sim.ReadOnce"}
}

func (a *ADC) SetSampleHandler(fn hal.SampleHandler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handler = fn
}

func (a *ADC) StartContinuous(ch hal.Channel) error {
	a.mu.Lock()
	fn := a.handler
	script := a.stream[ch]
	rate := a.SampleRateHz
	a.mu.Unlock()

	if fn == nil {
		return &errcode.E{C: errcode.NotReady, Op: "sim.StartContinuous", Msg: "no sample handler"}
	}
	gen := a.gen.Add(1)
	a.running.Store(true)

	go func() {
		var period time.Duration
		if rate > 0 {
			period = timex.PeriodFromHz(rate)
		}
		for _, s := range script {
			if !a.running.Load() || a.gen.Load() != gen {
				return
			}
			if period > 0 {
				time.Sleep(period)
			}
			fn(s)
		}
		// Script exhausted: go quiet. A campaign whose budget exceeds the
		// script observes a sampling timeout, which is the stuck-converter
		// test path.
	}()
	return nil
}

func (a *ADC) Stop() error {
	a.running.Store(false)
	return nil
}

// Running reports whether continuous mode is active.
func (a *ADC) Running() bool { return a.running.Load() }
