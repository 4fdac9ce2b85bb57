package sim

import (
	"testing"
	"time"

	"sensornode-go/errcode"
)

func TestADCOneShotQueueAndFallback(t *testing.T) {
	a := NewADC()
	a.QueueOneShot(0, 10, 20)
	a.SetFallback(0, 99)

	for _, want := range []uint16{10, 20, 99, 99} {
		v, err := a.ReadOnce(0)
		if err != nil {
			t.Fatal(err)
		}
		if v != want {
			t.Fatalf("ReadOnce = %d, want %d", v, want)
		}
	}

	if _, err := a.ReadOnce(1); errcode.Of(err) != errcode.InvalidChannel {
		t.Fatalf("unscripted channel: got %v", err)
	}
}

func TestADCContinuousStopFromHandler(t *testing.T) {
	a := NewADC()
	a.SetStream(0, []uint16{1, 2, 3, 4, 5})

	var got []uint16
	done := make(chan struct{})
	a.SetSampleHandler(func(raw uint16) {
		got = append(got, raw)
		if len(got) == 3 {
			_ = a.Stop()
			close(done)
		}
	})

	if err := a.StartContinuous(0); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for samples")
	}
	if len(got) != 3 || got[2] != 3 {
		t.Fatalf("got %v, want first three samples", got)
	}
	if a.Running() {
		t.Fatal("still running after Stop")
	}
}

func TestWatchdogWakeIsConsumed(t *testing.T) {
	w := NewWatchdog()
	if w.ExpiredWhileAsleep() {
		t.Fatal("fresh dog must not report a wake")
	}
	w.TriggerWake()
	if !w.ExpiredWhileAsleep() {
		t.Fatal("armed wake not reported")
	}
	if w.ExpiredWhileAsleep() {
		t.Fatal("wake must be consumed by the first read")
	}
}

func TestPinRecordsFalls(t *testing.T) {
	p := NewPin()
	p.ConfigureOutput(true)
	p.Set(false)
	p.Set(true)
	p.Set(false)
	if p.Falls() != 2 {
		t.Fatalf("falls = %d, want 2", p.Falls())
	}
}
