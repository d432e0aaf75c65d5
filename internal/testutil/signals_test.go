package testutil

import "testing"

func TestDeterministicUniform(t *testing.T) {
	a := DeterministicUniform(7, 1, 64)
	b := DeterministicUniform(7, 1, 64)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("index %d differs across runs with the same seed", i)
		}
		if a[i] < -1 || a[i] > 1 {
			t.Fatalf("index %d = %v out of range", i, a[i])
		}
	}
}

func TestDeterministicInt8Range(t *testing.T) {
	for i, v := range DeterministicInt8(3, 500) {
		if v < -127 {
			t.Fatalf("index %d = %d below -127", i, v)
		}
	}
}

func TestRamp(t *testing.T) {
	r := Ramp(-1, 1, 5)
	want := []float32{-1, -0.5, 0, 0.5, 1}
	RequireSliceNearlyEqual(t, r, want, 1e-7)
	if got := Ramp(3, 9, 1); got[0] != 3 {
		t.Fatalf("Ramp single = %v, want 3", got[0])
	}
}
