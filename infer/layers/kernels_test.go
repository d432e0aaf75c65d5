package layers

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-infer/infer/core"
	"github.com/cwbudde/algo-infer/infer/vector"
	"github.com/cwbudde/algo-infer/internal/cpu"
	"github.com/cwbudde/algo-infer/internal/testutil"
)

func allEngines(t *testing.T) []*vector.Engine {
	t.Helper()
	out := []*vector.Engine{vector.Scalar()}
	for _, f := range []cpu.Features{
		{HasSSE2: true},
		{HasSSE2: true, HasAVX: true, HasAVX2: true},
		{HasSSE2: true, HasAVX: true, HasAVX2: true, HasAVX512: true},
	} {
		e, err := vector.New(f)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, e)
	}
	return out
}

func denseRef(input, weights []int8, inSize, outSize int) []uint8 {
	out := make([]uint8, outSize)
	for i := 0; i < outSize; i++ {
		var acc int32
		for j := 0; j < inSize; j++ {
			acc += int32(input[j]) * int32(weights[i*inSize+j])
		}
		q := acc / 128
		if q < 0 {
			q = 0
		}
		if q > 255 {
			q = 255
		}
		out[i] = uint8(q)
	}
	return out
}

func TestDenseForwardQ8_OutputLength(t *testing.T) {
	for seed := int64(0); seed < 8; seed++ {
		input := testutil.DeterministicInt8(seed, 8)
		weights := testutil.DeterministicInt8(seed+100, 32)
		output := make([]uint8, 4)

		if err := DenseForwardQ8(input, weights, output, 8, 4); err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if len(output) != 4 {
			t.Fatalf("output length = %d, want 4", len(output))
		}
	}
}

func TestDenseForwardQ8_MatchesReference(t *testing.T) {
	sizes := []struct{ in, out int }{
		{1, 1}, {3, 2}, {8, 4}, {17, 5}, {37, 3}, {64, 10}, {784, 16},
	}
	for _, e := range allEngines(t) {
		for _, sz := range sizes {
			input := testutil.DeterministicInt8(int64(sz.in), sz.in)
			weights := testutil.DeterministicInt8(int64(sz.out), sz.in*sz.out)
			got := make([]uint8, sz.out)

			if err := DenseForwardQ8With(e, input, weights, got, sz.in, sz.out); err != nil {
				t.Fatalf("%s %dx%d: %v", e.Name(), sz.in, sz.out, err)
			}
			want := denseRef(input, weights, sz.in, sz.out)
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("%s %dx%d: output[%d] = %d, want %d", e.Name(), sz.in, sz.out, i, got[i], want[i])
				}
			}
		}
	}
}

func TestDenseForwardQ8_ClampAndTruncation(t *testing.T) {
	tests := []struct {
		name   string
		input  []int8
		weight []int8
		want   uint8
	}{
		// 127*127*2 = 32258, /128 = 252.
		{"large positive", []int8{127, 127}, []int8{127, 127}, 252},
		// 127*127*3 = 48387, /128 = 378 -> 255.
		{"saturates high", []int8{127, 127, 127}, []int8{127, 127, 127}, 255},
		{"negative clamps to zero", []int8{127}, []int8{-127}, 0},
		// 255/128 truncates to 1, not rounded to 2.
		{"truncates", []int8{15, 1}, []int8{17, 0}, 1},
		// -127/128 truncates toward zero, not down to -1.
		{"small negative", []int8{127}, []int8{-1}, 0},
		{"below divisor", []int8{127}, []int8{1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := make([]uint8, 1)
			if err := DenseForwardQ8(tt.input, tt.weight, out, len(tt.input), 1); err != nil {
				t.Fatal(err)
			}
			if out[0] != tt.want {
				t.Errorf("output = %d, want %d", out[0], tt.want)
			}
		})
	}
}

func TestDenseForwardQ8_ShapeErrors(t *testing.T) {
	input := make([]int8, 8)
	weights := make([]int8, 32)
	output := []uint8{9, 9, 9, 9}

	tests := []struct {
		name            string
		in, w           []int8
		out             []uint8
		inSize, outSize int
	}{
		{"short input", input[:7], weights, output, 8, 4},
		{"short weights", input, weights[:31], output, 8, 4},
		{"short output", input, weights, output[:3], 8, 4},
		{"zero in", input[:0], weights[:0], output, 0, 4},
		{"zero out", input, weights[:0], output[:0], 8, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := DenseForwardQ8(tt.in, tt.w, tt.out, tt.inSize, tt.outSize)
			if !errors.Is(err, core.ErrInvalidShape) {
				t.Fatalf("err = %v, want ErrInvalidShape", err)
			}
		})
	}
	for i, v := range output {
		if v != 9 {
			t.Fatalf("output[%d] modified to %d", i, v)
		}
	}
}

func TestConv1DQ8_Scenario(t *testing.T) {
	input := []int8{10, 20, 30, 40, 50}
	kernel := []int8{1, 1}
	output := make([]int8, 4)

	if err := Conv1DQ8(input, kernel, output); err != nil {
		t.Fatal(err)
	}
	want := []int8{15, 25, 35, 45}
	for i := range want {
		if output[i] != want[i] {
			t.Errorf("output[%d] = %d, want %d", i, output[i], want[i])
		}
	}
}

func TestConv1DQ8_InvalidKernelWritesNothing(t *testing.T) {
	input := []int8{1, 2, 3}
	tests := []struct {
		name   string
		kernel []int8
		outLen int
	}{
		{"empty kernel", nil, 4},
		{"kernel longer than input", []int8{1, 1, 1, 1}, 1},
		{"wrong output length", []int8{1, 1}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := make([]int8, tt.outLen)
			for i := range output {
				output[i] = 99
			}
			err := Conv1DQ8(input, tt.kernel, output)
			if !errors.Is(err, core.ErrInvalidShape) {
				t.Fatalf("err = %v, want ErrInvalidShape", err)
			}
			for i, v := range output {
				if v != 99 {
					t.Fatalf("output[%d] written: %d", i, v)
				}
			}
		})
	}
}

func TestConv1DQ8_ClampsToSignedRange(t *testing.T) {
	output := make([]int8, 1)

	// A single tap divides by 1, so 127*127 saturates high.
	if err := Conv1DQ8([]int8{127}, []int8{127}, output); err != nil {
		t.Fatal(err)
	}
	if output[0] != math.MaxInt8 {
		t.Errorf("high clamp = %d, want 127", output[0])
	}

	if err := Conv1DQ8([]int8{-128}, []int8{127}, output); err != nil {
		t.Fatal(err)
	}
	if output[0] != math.MinInt8 {
		t.Errorf("low clamp = %d, want -128", output[0])
	}

	// -7/2 truncates toward zero.
	if err := Conv1DQ8([]int8{-3, -4}, []int8{1, 1}, output); err != nil {
		t.Fatal(err)
	}
	if output[0] != -3 {
		t.Errorf("truncation = %d, want -3", output[0])
	}
}

func TestConv1DQ8_MatchesReference(t *testing.T) {
	for _, e := range allEngines(t) {
		for _, k := range []int{1, 2, 5, 16, 31, 32, 33, 64} {
			input := testutil.DeterministicInt8(int64(k), 200)
			kernel := testutil.DeterministicInt8(int64(k)+7, k)
			n, err := Conv1DOutputLen(len(input), k)
			if err != nil {
				t.Fatal(err)
			}

			got := make([]int8, n)
			if err := Conv1DQ8With(e, input, kernel, got); err != nil {
				t.Fatal(err)
			}
			want, err := Conv1DExpected(input, kernel)
			if err != nil {
				t.Fatal(err)
			}
			for i := range want {
				if got[i] != want[i] {
					t.Fatalf("%s k=%d: output[%d] = %d, want %d", e.Name(), k, i, got[i], want[i])
				}
			}
		}
	}
}

func TestMaxPool1DQ8(t *testing.T) {
	input := []int8{1, -5, 7, 3, -2, -1, 4}
	output := make([]int8, 3)
	if err := MaxPool1DQ8(input, output, 2); err != nil {
		t.Fatal(err)
	}
	want := []int8{1, 7, -1}
	for i := range want {
		if output[i] != want[i] {
			t.Errorf("output[%d] = %d, want %d", i, output[i], want[i])
		}
	}

	if err := MaxPool1DQ8(input, output, 0); !errors.Is(err, core.ErrInvalidShape) {
		t.Errorf("window 0 err = %v, want ErrInvalidShape", err)
	}
	if err := MaxPool1DQ8(input, output[:2], 2); !errors.Is(err, core.ErrInvalidShape) {
		t.Errorf("short output err = %v, want ErrInvalidShape", err)
	}
}

func BenchmarkDenseForwardQ8(b *testing.B) {
	const in, out = 784, 128
	input := testutil.DeterministicInt8(1, in)
	weights := testutil.DeterministicInt8(2, in*out)
	output := make([]uint8, out)

	b.ReportAllocs()
	b.SetBytes(in * out)
	for i := 0; i < b.N; i++ {
		_ = DenseForwardQ8(input, weights, output, in, out)
	}
}
