package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func pow32(base float32, exp int) float32 {
	r := float32(1)
	for i := 0; i < exp; i++ {
		r *= base
	}
	return r
}

func Test_Averager_ZeroAlpha_OutputEqualsInput(t *testing.T) {
	a := NewAverager(0)
	in1 := []float32{1, 2, 3}
	assert.Equal(t, in1, a.Apply(in1))
	in2 := []float32{4, 5, 6}
	assert.Equal(t, in2, a.Apply(in2))
}

func Test_Averager_OneAlpha_ConstantAfterFirstSample(t *testing.T) {
	a := NewAverager(1)
	first := []float32{1, 2, 3}
	got := a.Apply(first)
	assert.Equal(t, first, got)

	second := a.Apply([]float32{100, 200, 300})
	assert.Equal(t, first, second)

	third := a.Apply([]float32{-5, -5, -5})
	assert.Equal(t, first, third)
}

// Test_Averager_StepResponse_GeometricDecay checks the EMA step
// response: after seeding with a zero spectrum, applying a constant
// step repeatedly converges as step*(1-alpha^k).
func Test_Averager_StepResponse_GeometricDecay(t *testing.T) {
	alpha := float32(0.5)
	a := NewAverager(alpha)

	a.Apply([]float32{0})
	step := float32(10)
	for k := 1; k <= 5; k++ {
		out := a.Apply([]float32{step})
		want := step * (1 - pow32(alpha, k))
		assert.InDelta(t, want, out[0], 1e-3, "sample %d", k)
	}
}

func Test_Averager_LengthMismatch_ResetsToNewSpectrum(t *testing.T) {
	a := NewAverager(0.5)
	a.Apply([]float32{1, 2, 3})
	got := a.Apply([]float32{9, 9})
	assert.Equal(t, []float32{9, 9}, got)
}

func Test_Averager_Reset_ReseedsOnNextApply(t *testing.T) {
	a := NewAverager(0.5)
	a.Apply([]float32{1, 2, 3})
	a.Reset()
	got := a.Apply([]float32{5, 5, 5})
	assert.Equal(t, []float32{5, 5, 5}, got)
}

func Test_Averager_SetAlpha_ClampsToUnitRange(t *testing.T) {
	a := NewAverager(-1)
	assert.Equal(t, float32(0), a.Alpha())
	a.SetAlpha(5)
	assert.Equal(t, float32(1), a.Alpha())
}
