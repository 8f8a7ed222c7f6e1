package vita49

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Codec_Defaults(t *testing.T) {
	c := NewCodec()
	assert.Equal(t, BigEndian, c.ByteOrder())
	assert.Equal(t, DefaultScaleFactor, c.ScaleFactor())
}

func Test_Codec_PacketCount_WrapsAndStartsFromCaller(t *testing.T) {
	c := NewCodec()
	c.SetPacketCount(14)
	assert.EqualValues(t, 14, c.NextPacketCount())
	assert.EqualValues(t, 15, c.NextPacketCount())
	assert.EqualValues(t, 0, c.NextPacketCount())
	assert.EqualValues(t, 1, c.NextPacketCount())
}

func Test_Codec_EncodeSignalData_SplitsAcrossPackets(t *testing.T) {
	c := NewCodec()
	max := MaxSamplesPerPacket(TSINone, TSFNone, false, false)
	samples := make(IQSamples, max+10)
	for i := range samples {
		samples[i] = complex(float32(i%7)/7, float32(i%5)/5)
	}

	packets := c.EncodeSignalData(1, samples, TSINone, TSFNone, 0, 0, false)
	require.Len(t, packets, 2)

	var decoded IQSamples
	for _, p := range packets {
		result, n := DecodeSignalData(p, BigEndian, DefaultScaleFactor)
		require.NotNil(t, result)
		assert.Equal(t, len(p), n)
		decoded = append(decoded, result.Samples...)
	}
	assert.Len(t, decoded, len(samples))
}

func Test_Codec_EncodeSignalData_PacketCountAdvancesAcrossSplit(t *testing.T) {
	c := NewCodec()
	c.SetPacketCount(5)
	max := MaxSamplesPerPacket(TSINone, TSFNone, false, false)
	samples := make(IQSamples, max+1)

	packets := c.EncodeSignalData(1, samples, TSINone, TSFNone, 0, 0, false)
	require.Len(t, packets, 2)

	h0, _, err := ParseHeader(packets[0], BigEndian)
	require.NoError(t, err)
	h1, _, err := ParseHeader(packets[1], BigEndian)
	require.NoError(t, err)
	assert.EqualValues(t, 5, h0.PacketCount)
	assert.EqualValues(t, 6, h1.PacketCount)
}

func Test_Codec_ParseStream_MixedPackets(t *testing.T) {
	c := NewCodec()
	bw := 150000.0
	ctxPacket := c.EncodeContext(1, ContextFields{BandwidthHz: &bw})
	dataPackets := c.EncodeSignalData(1, IQSamples{1 + 2i, 3 + 4i}, TSINone, TSFNone, 0, 0, false)

	var stream []byte
	stream = append(stream, ctxPacket...)
	for _, p := range dataPackets {
		stream = append(stream, p...)
	}

	parsed, err := c.ParseStream(stream)
	require.NoError(t, err)
	require.Len(t, parsed, 1+len(dataPackets))
	assert.Equal(t, ParsedContext, parsed[0].Type)
	for _, p := range parsed[1:] {
		assert.Equal(t, ParsedSignalData, p.Type)
	}
}

func Test_Codec_ParseStream_IgnoresTrailingPartialPacket(t *testing.T) {
	c := NewCodec()
	packets := c.EncodeSignalData(1, IQSamples{1 + 1i}, TSINone, TSFNone, 0, 0, false)
	require.Len(t, packets, 1)

	stream := append(append([]byte{}, packets[0]...), 0x01, 0x02, 0x03)
	parsed, err := c.ParseStream(stream)
	require.NoError(t, err)
	assert.Len(t, parsed, 1)
}

func Test_Codec_SetByteOrderAffectsSubsequentCalls(t *testing.T) {
	bigCodec := NewCodec()
	littleCodec := NewCodec()
	littleCodec.SetByteOrder(LittleEndian)

	bigPackets := bigCodec.EncodeSignalData(1, IQSamples{1 + 1i}, TSINone, TSFNone, 0, 0, false)
	littlePackets := littleCodec.EncodeSignalData(1, IQSamples{1 + 1i}, TSINone, TSFNone, 0, 0, false)
	require.Len(t, bigPackets, 1)
	require.Len(t, littlePackets, 1)
	assert.NotEqual(t, bigPackets[0], littlePackets[0])

	hLittle, _, err := ParseHeader(littlePackets[0], LittleEndian)
	require.NoError(t, err)
	assert.EqualValues(t, 1, hLittle.StreamID)
}
