package sim

import (
	"sync"
	"time"
)

// Retain is a map-backed retained byte region. A fresh Retain models a cold
// boot (empty region); tests pre-seed it to model survival across a stall
// reset.
type Retain struct {
	mu sync.Mutex
	m  map[uint8]byte
}

func NewRetain() *Retain { return &Retain{m: map[uint8]byte{}} }

func (r *Retain) Load(tag uint8) (byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.m[tag]
	return v, ok
}

func (r *Retain) Store(tag uint8, v byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[tag] = v
}

// Delay is an instant Delayer that records the total time requested, so
// tests covering multi-second settling windows run in microseconds.
type Delay struct {
	mu    sync.Mutex
	total time.Duration
}

func NewDelay() *Delay { return &Delay{} }

func (d *Delay) Delay(dur time.Duration) {
	d.mu.Lock()
	d.total += dur
	d.mu.Unlock()
}

// Total reports the accumulated requested delay.
func (d *Delay) Total() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.total
}
