package vector

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/cwbudde/algo-infer/infer/core"
	"github.com/cwbudde/algo-infer/internal/cpu"
)

// Reference implementations written without lanes.
func addRef(dst, a, b []float32) {
	for i := range dst {
		dst[i] = a[i] + b[i]
	}
}

func mulRef(dst, a, b []float32) {
	for i := range dst {
		dst[i] = a[i] * b[i]
	}
}

func engines(t *testing.T) map[string]*Engine {
	t.Helper()
	out := map[string]*Engine{"scalar": Scalar(), "default": Default()}
	for name, f := range map[string]cpu.Features{
		"sse2":   {HasSSE2: true},
		"neon":   {HasNEON: true},
		"avx2":   {HasSSE2: true, HasAVX2: true},
		"avx512": {HasSSE2: true, HasAVX2: true, HasAVX512: true},
	} {
		e, err := New(f)
		if err != nil {
			t.Fatalf("New(%s): %v", name, err)
		}
		out[name] = e
	}
	return out
}

func TestEngineSelection(t *testing.T) {
	e := engines(t)
	tests := map[string]struct {
		name  string
		lanes int
	}{
		"scalar": {"generic", 1},
		"sse2":   {"sse2", 4},
		"neon":   {"neon", 4},
		"avx2":   {"avx2", 8},
		"avx512": {"avx512", 16},
	}
	for key, want := range tests {
		if got := e[key].Name(); got != want.name {
			t.Errorf("%s: Name = %q, want %q", key, got, want.name)
		}
		if got := e[key].Lanes(); got != want.lanes {
			t.Errorf("%s: Lanes = %d, want %d", key, got, want.lanes)
		}
	}
}

// A 37-element buffer is not a multiple of any lane width, so every lane
// engine runs both its vector and its remainder loop.
func TestScalarVectorEquivalence37(t *testing.T) {
	const n = 37
	a := make([]float32, n)
	b := make([]float32, n)
	for i := 0; i < n; i++ {
		a[i] = float32(i)*0.731 - 9.5
		b[i] = float32(n-i) * -0.173
	}

	wantAdd := make([]float32, n)
	wantMul := make([]float32, n)
	addRef(wantAdd, a, b)
	mulRef(wantMul, a, b)

	for name, e := range engines(t) {
		t.Run(name, func(t *testing.T) {
			got := make([]float32, n)
			if err := e.Add(got, a, b, n); err != nil {
				t.Fatal(err)
			}
			for i := range got {
				if math.Float32bits(got[i]) != math.Float32bits(wantAdd[i]) {
					t.Fatalf("Add[%d] = %v, want %v", i, got[i], wantAdd[i])
				}
			}
			if err := e.Mul(got, a, b, n); err != nil {
				t.Fatal(err)
			}
			for i := range got {
				if math.Float32bits(got[i]) != math.Float32bits(wantMul[i]) {
					t.Fatalf("Mul[%d] = %v, want %v", i, got[i], wantMul[i])
				}
			}
		})
	}
}

func TestAddPartialCount(t *testing.T) {
	e := Default()
	a := []float32{1, 2, 3, 4, 5}
	b := []float32{10, 20, 30, 40, 50}
	dst := []float32{-1, -1, -1, -1, -1}

	if err := e.Add(dst, a, b, 3); err != nil {
		t.Fatal(err)
	}
	want := []float32{11, 22, 33, -1, -1}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %v, want %v", i, dst[i], want[i])
		}
	}
}

func TestCountValidation(t *testing.T) {
	e := Default()
	tests := []struct {
		name        string
		dst, a, b   int
		count       int
		wantInvalid bool
	}{
		{"exact", 8, 8, 8, 8, false},
		{"zero", 8, 8, 8, 0, false},
		{"negative", 8, 8, 8, -1, true},
		{"beyond a", 8, 4, 8, 5, true},
		{"beyond b", 8, 8, 4, 5, true},
		{"beyond dst", 4, 8, 8, 5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]float32, tt.dst)
			a := make([]float32, tt.a)
			b := make([]float32, tt.b)
			for _, op := range []func([]float32, []float32, []float32, int) error{e.Add, e.Mul} {
				err := op(dst, a, b, tt.count)
				if got := errors.Is(err, core.ErrInvalidShape); got != tt.wantInvalid {
					t.Errorf("err = %v, want invalid shape = %v", err, tt.wantInvalid)
				}
			}
		})
	}
}

func TestQuantizeShapeMismatch(t *testing.T) {
	e := Default()
	if err := e.Quantize(make([]int8, 3), make([]float32, 4)); !errors.Is(err, core.ErrInvalidShape) {
		t.Errorf("Quantize err = %v, want ErrInvalidShape", err)
	}
	if err := e.Dequantize(make([]float32, 3), make([]int8, 4)); !errors.Is(err, core.ErrInvalidShape) {
		t.Errorf("Dequantize err = %v, want ErrInvalidShape", err)
	}
}

func TestDotQ8AcrossEngines(t *testing.T) {
	for _, n := range []int{0, 1, 7, 8, 37, 784} {
		a := make([]int8, n)
		b := make([]int8, n)
		for i := range a {
			a[i] = int8(i%200 - 100)
			b[i] = int8((i*3)%250 - 125)
		}
		want := Scalar().DotQ8(a, b)
		for name, e := range engines(t) {
			if got := e.DotQ8(a, b); got != want {
				t.Errorf("%s n=%d: DotQ8 = %d, want %d", name, n, got, want)
			}
		}
	}
}

func BenchmarkAdd(b *testing.B) {
	for _, n := range []int{37, 1024, 4096} {
		x := make([]float32, n)
		y := make([]float32, n)
		dst := make([]float32, n)
		b.Run(fmt.Sprint(n), func(b *testing.B) {
			e := Default()
			b.ReportAllocs()
			b.SetBytes(int64(n) * 4 * 3)
			for i := 0; i < b.N; i++ {
				_ = e.Add(dst, x, y, n)
			}
		})
	}
}
