package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Accumulator_DrainReturnsExactBlockSize(t *testing.T) {
	a := NewAccumulator(4)
	data := make([]byte, 16) // 8 I/Q samples
	for i := range data {
		data[i] = byte(i * 10)
	}
	a.PushBytes(data)

	block, ok := a.Drain()
	require.True(t, ok)
	assert.Len(t, block, 4)
	assert.Equal(t, 4, a.Len())
}

// Test_Accumulator_NeverExceedsCapAcrossPushes checks the stated
// invariant: the accumulated sample count never exceeds fft_size*16.
func Test_Accumulator_NeverExceedsCapAcrossPushes(t *testing.T) {
	a := NewAccumulator(8)
	block := make([]byte, 2*1000) // 1000 I/Q samples per push
	for i := 0; i < 5; i++ {
		a.PushBytes(block)
		assert.LessOrEqual(t, a.Len(), 8*16)
	}
}

func Test_Accumulator_CloseWakesBlockedDrain(t *testing.T) {
	a := NewAccumulator(1024)
	done := make(chan bool, 1)
	go func() {
		_, ok := a.Drain()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	a.Close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Drain did not unblock after Close")
	}
}

func Test_Accumulator_CloseDrainsPartialBlockBeforeEmpty(t *testing.T) {
	a := NewAccumulator(1024)
	a.PushBytes(make([]byte, 20)) // 10 I/Q samples, less than fftSize
	a.Close()

	block, ok := a.Drain()
	require.True(t, ok)
	assert.Len(t, block, 10)

	_, ok = a.Drain()
	assert.False(t, ok)
}

// Test_Accumulator_DcSpikeRemoval_SubtractsRunningMean checks that a
// constant DC offset in the raw bytes is driven toward zero as the
// running per-block mean converges.
func Test_Accumulator_DcSpikeRemoval_SubtractsRunningMean(t *testing.T) {
	a := NewAccumulator(4)
	a.SetDcSpikeRemovalEnabled(true)

	data := make([]byte, 8)
	for i := range data {
		data[i] = 127
	}

	var lastBlock []complex64
	for i := 0; i < 200; i++ {
		a.PushBytes(data)
		block, ok := a.Drain()
		require.True(t, ok)
		lastBlock = block
	}

	for _, s := range lastBlock {
		assert.InDelta(t, 0, real(s), 0.01)
		assert.InDelta(t, 0, imag(s), 0.01)
	}
}

func Test_Accumulator_Reset_ClearsBufferedSamplesAndDcState(t *testing.T) {
	a := NewAccumulator(4)
	a.PushBytes(make([]byte, 16))
	a.Close()
	a.Reset()

	assert.Equal(t, 0, a.Len())

	a.Close()
	block, ok := a.Drain()
	assert.Nil(t, block)
	assert.False(t, ok)
}

func Test_Accumulator_SetFFTSize_ChangesDrainBlockSize(t *testing.T) {
	a := NewAccumulator(4)
	a.SetFFTSize(2)
	a.PushBytes(make([]byte, 16)) // 8 samples

	block, ok := a.Drain()
	require.True(t, ok)
	assert.Len(t, block, 2)
}
