package sim

import (
	"sync"
	"time"
)

// Watchdog is a hand-cranked recovery timer. Tests call TriggerWake to model
// the "expired while asleep" outcome and construct the dog with stallReset
// set to model the boot after a missed feed. It never resets anything itself.
type Watchdog struct {
	mu         sync.Mutex
	period     time.Duration
	starts     int
	feeds      int
	wake       bool
	stallReset bool
}

func NewWatchdog() *Watchdog { return &Watchdog{} }

// NewStalledWatchdog models the first boot after a stall reset.
func NewStalledWatchdog() *Watchdog { return &Watchdog{stallReset: true} }

func (w *Watchdog) Start(period time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.period = period
	w.starts++
}

func (w *Watchdog) Feed() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.feeds++
}

func (w *Watchdog) ExpiredWhileAsleep() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	v := w.wake
	w.wake = false
	return v
}

func (w *Watchdog) WasStallReset() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stallReset
}

// TriggerWake arms the next ExpiredWhileAsleep call to report true.
func (w *Watchdog) TriggerWake() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.wake = true
}

// Feeds reports how many times the dog has been fed.
func (w *Watchdog) Feeds() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.feeds
}

// Starts reports how many times the dog has been (re-)armed.
func (w *Watchdog) Starts() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.starts
}

// Period reports the most recently armed period.
func (w *Watchdog) Period() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.period
}
