package vita49

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func Test_HeaderRoundTrip(t *testing.T) {
	h := PacketHeader{
		Type:           PacketTypeSignalDataStreamID,
		TrailerPresent: true,
		TSI:            TSIUTC,
		TSF:            TSFSampleCount,
		PacketCount:    7,
		StreamID:       0xDEADBEEF,
		IntegerTS:      12345,
		FractionalTS:   0x0102030405060708,
	}
	h.PacketSize = uint16(SizeInWords(h))

	out := SerializeHeader(h, BigEndian, nil)
	parsed, n, err := ParseHeader(out, BigEndian)
	require.NoError(t, err)
	assert.Equal(t, len(out), n)
	assert.Equal(t, h, parsed)
}

func Test_HeaderRoundTrip_LittleEndian(t *testing.T) {
	h := PacketHeader{
		Type:        PacketTypeContext,
		TSI:         TSINone,
		TSF:         TSFNone,
		PacketCount: 3,
		StreamID:    42,
	}
	h.PacketSize = uint16(SizeInWords(h))

	out := SerializeHeader(h, LittleEndian, nil)
	parsed, n, err := ParseHeader(out, LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, len(out), n)
	assert.Equal(t, h, parsed)
}

func Test_ParseHeader_ShortBuffer(t *testing.T) {
	_, _, err := ParseHeader([]byte{0x01, 0x02}, BigEndian)
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func Test_ParseHeader_ReservedBitsRejected(t *testing.T) {
	h := PacketHeader{Type: PacketTypeSignalDataNoStreamID}
	h.PacketSize = uint16(SizeInWords(h))
	out := SerializeHeader(h, BigEndian, nil)

	// Set one of the reserved bits (word0 bits 21..20).
	word0 := BigEndian.Uint32(out[0:4])
	word0 |= 1 << 20
	BigEndian.PutUint32(out[0:4], word0)

	_, _, err := ParseHeader(out, BigEndian)
	assert.ErrorIs(t, err, ErrReservedBits)
}

func Test_ParseHeader_PacketSizeExceedsBuffer(t *testing.T) {
	h := PacketHeader{Type: PacketTypeSignalDataNoStreamID}
	h.PacketSize = 100
	out := SerializeHeader(h, BigEndian, nil)
	_, _, err := ParseHeader(out, BigEndian)
	assert.ErrorIs(t, err, ErrPacketSize)
}

func Test_HeaderRoundTrip_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		h := PacketHeader{
			Type:           PacketType(rapid.IntRange(0, 5).Draw(t, "type")),
			ClassIDPresent: rapid.Bool().Draw(t, "classIDPresent"),
			TrailerPresent: rapid.Bool().Draw(t, "trailerPresent"),
			TSI:            TSI(rapid.IntRange(0, 3).Draw(t, "tsi")),
			TSF:            TSF(rapid.IntRange(0, 3).Draw(t, "tsf")),
			PacketCount:    uint8(rapid.IntRange(0, 15).Draw(t, "packetCount")),
			StreamID:       uint32(rapid.Int64Range(0, 0xFFFFFFFF).Draw(t, "streamID")),
			IntegerTS:      uint32(rapid.Int64Range(0, 0xFFFFFFFF).Draw(t, "integerTS")),
			FractionalTS:   uint64(rapid.Int64Range(0, 1<<62).Draw(t, "fractionalTS")),
		}
		if h.ClassIDPresent {
			h.ClassID = ClassID{
				OUI:         uint32(rapid.IntRange(0, 0xFFFFFF).Draw(t, "oui")),
				InfoClass:   uint16(rapid.IntRange(0, 0xFFFF).Draw(t, "infoClass")),
				PacketClass: uint16(rapid.IntRange(0, 0xFFFF).Draw(t, "packetClass")),
			}
		}
		// Fields this header does not carry on the wire parse back as zero.
		if !h.Type.HasStreamID() {
			h.StreamID = 0
		}
		if h.TSI == TSINone {
			h.IntegerTS = 0
		}
		if h.TSF == TSFNone {
			h.FractionalTS = 0
		}
		h.PacketSize = uint16(SizeInWords(h))

		out := SerializeHeader(h, BigEndian, nil)
		parsed, n, err := ParseHeader(out, BigEndian)
		require.NoError(t, err)
		if n != len(out) {
			t.Fatalf("consumed %d bytes, serialized %d", n, len(out))
		}
		if parsed != h {
			t.Fatalf("round trip mismatch: got %+v, want %+v", parsed, h)
		}

		again := SerializeHeader(parsed, BigEndian, nil)
		if string(again) != string(out) {
			t.Fatalf("re-serialize did not reproduce the original bytes")
		}
	})
}
