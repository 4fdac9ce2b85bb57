package mathx

import "testing"

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 10); got != 5 {
		t.Errorf("Clamp(5,0,10) = %d", got)
	}
	if got := Clamp(-1, 0, 10); got != 0 {
		t.Errorf("Clamp(-1,0,10) = %d", got)
	}
	if got := Clamp(11, 0, 10); got != 10 {
		t.Errorf("Clamp(11,0,10) = %d", got)
	}
	// Swapped bounds are tolerated.
	if got := Clamp(11, 10, 0); got != 10 {
		t.Errorf("Clamp(11,10,0) = %d", got)
	}
}

func TestMinMax(t *testing.T) {
	if Min(1.5, 2.5) != 1.5 || Max(1.5, 2.5) != 2.5 {
		t.Error("float min/max")
	}
	if Min(uint16(3), 2) != 2 || Max(uint16(3), 2) != 3 {
		t.Error("uint16 min/max")
	}
}
