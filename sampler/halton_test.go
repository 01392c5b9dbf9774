package sampler

import (
	"math"
	"testing"
)

func TestHaltonSequence(t *testing.T) {
	type spec struct {
		expX, expY float32
	}

	specs := []spec{
		{0, 0},
		{0.5, 1.0 / 3.0},
		{0.25, 2.0 / 3.0},
		{0.75, 1.0 / 9.0},
		{0.125, 4.0 / 9.0},
	}

	seq := NewHaltonSequence()
	for specIndex, s := range specs {
		if seq.Index() != uint32(specIndex) {
			t.Fatalf("[spec %d] expected sequence index to be %d; got %d", specIndex, specIndex, seq.Index())
		}
		x, y := seq.Next()
		if math.Abs(float64(x-s.expX)) > 1e-6 || math.Abs(float64(y-s.expY)) > 1e-6 {
			t.Errorf("[spec %d] expected draw to be (%f, %f); got (%f, %f)", specIndex, s.expX, s.expY, x, y)
		}
	}

	seq.Reset()
	if x, y := seq.Next(); x != 0 || y != 0 || seq.Index() != 1 {
		t.Fatalf("expected reset to rewind the sequence; got (%f, %f) at index %d", x, y, seq.Index())
	}
}

func TestHaltonFaurePermutation(t *testing.T) {
	seq := NewHaltonSequence()

	// Base 5 digits are permuted as [0 3 2 1 4].
	type spec struct {
		index uint32
		exp   float32
	}

	specs := []spec{
		{1, 0.6},
		{2, 0.4},
		{3, 0.2},
		{4, 0.8},
	}

	for specIndex, s := range specs {
		if got := seq.Sample(2, s.index); math.Abs(float64(got-s.exp)) > 1e-6 {
			t.Errorf("[spec %d] expected base 5 sample %d to be %f; got %f", specIndex, s.index, s.exp, got)
		}
	}
}

func TestHaltonRange(t *testing.T) {
	seq := NewHaltonSequence()
	for index := uint32(0); index < 100000; index += 7 {
		for dim := 0; dim < 3; dim++ {
			if v := seq.Sample(dim, index); v < 0 || v >= 1 {
				t.Fatalf("expected sample (dim %d, index %d) in [0, 1); got %f", dim, index, v)
			}
		}
	}
}
