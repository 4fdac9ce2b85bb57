// Package sim provides host-side implementations of the hal contracts:
// scripted analog conversions, recording pins, and a hand-cranked watchdog.
// It backs the bench demo (main.go) and the driver/engine tests.
package sim

import "sync"

// Pin records every level transition. The zero value is an input pin at low.
type Pin struct {
	mu     sync.Mutex
	output bool
	level  bool
	falls  int // high->low transitions (notification pulses start with one)
}

func NewPin() *Pin { return &Pin{} }

func (p *Pin) ConfigureOutput(initial bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.output = true
	p.level = initial
}

func (p *Pin) Set(level bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.level && !level {
		p.falls++
	}
	p.level = level
}

func (p *Pin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// Falls reports the number of high-to-low transitions seen so far. A
// notification pulse (high → low → high) counts exactly one fall.
func (p *Pin) Falls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.falls
}

// Output reports whether the pin was configured as an output.
func (p *Pin) Output() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.output
}
