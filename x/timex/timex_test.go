package timex

import (
	"testing"
	"time"
)

func TestPeriodFromHz(t *testing.T) {
	cases := []struct {
		hz   uint32
		want time.Duration
	}{
		{1, time.Second},
		{1000, time.Millisecond},
		{20000, 50 * time.Microsecond},
		{0, time.Second}, // coerced, no divide-by-zero
	}
	for _, c := range cases {
		if got := PeriodFromHz(c.hz); got != c.want {
			t.Errorf("PeriodFromHz(%d) = %v, want %v", c.hz, got, c.want)
		}
	}
}
