package vita49

import "math"

// SignalDataDecodeResult is the result of decoding a single Signal Data
// packet.
type SignalDataDecodeResult struct {
	Header  PacketHeader
	Samples IQSamples
}

// MaxSamplesPerPacket returns the maximum number of I/Q samples that fit
// in a single Signal Data packet given the optional fields that will be
// present.
func MaxSamplesPerPacket(tsi TSI, tsf TSF, classIDPresent bool, includeTrailer bool) int {
	h := PacketHeader{
		Type:           PacketTypeSignalDataStreamID,
		ClassIDPresent: classIDPresent,
		TSI:            tsi,
		TSF:            tsf,
	}
	prefix := SizeInWords(h)
	trailer := 0
	if includeTrailer {
		trailer = 1
	}
	max := MaxPacketWords - prefix - trailer
	if max < 0 {
		return 0
	}
	return max
}

// EncodeSignalData serializes samples as a single Signal Data packet. It
// returns nil if samples exceeds MaxSamplesPerPacket for the requested
// options.
func EncodeSignalData(
	streamID uint32,
	samples IQSamples,
	packetCount uint8,
	order ByteOrder,
	scaleFactor float64,
	tsiType TSI,
	tsfType TSF,
	intTimestamp uint32,
	fracTimestamp uint64,
	includeTrailer bool,
) []byte {
	if scaleFactor == 0 {
		scaleFactor = DefaultScaleFactor
	}

	maxSamples := MaxSamplesPerPacket(tsiType, tsfType, false, includeTrailer)
	if len(samples) > maxSamples {
		return nil
	}

	h := PacketHeader{
		Type:           PacketTypeSignalDataStreamID,
		TrailerPresent: includeTrailer,
		TSI:            tsiType,
		TSF:            tsfType,
		PacketCount:    packetCount & 0xF,
		StreamID:       streamID,
		IntegerTS:      intTimestamp,
		FractionalTS:   fracTimestamp,
	}

	trailerWords := 0
	if includeTrailer {
		trailerWords = 1
	}
	h.PacketSize = uint16(SizeInWords(h) + len(samples) + trailerWords)

	out := make([]byte, 0, int(h.PacketSize)*4)
	out = SerializeHeader(h, order, out)

	var buf [4]byte
	for _, s := range samples {
		i16 := clampToInt16(float64(real(s)) * scaleFactor)
		q16 := clampToInt16(float64(imag(s)) * scaleFactor)
		word := uint32(uint16(i16))<<16 | uint32(uint16(q16))
		order.PutUint32(buf[:], word)
		out = append(out, buf[:]...)
	}
	if includeTrailer {
		order.PutUint32(buf[:], 0)
		out = append(out, buf[:]...)
	}

	return out
}

// DecodeSignalData decodes a single Signal Data packet from data. It
// returns nil and leaves bytesConsumed at 0 on malformed input.
func DecodeSignalData(data []byte, order ByteOrder, scaleFactor float64) (*SignalDataDecodeResult, int) {
	if scaleFactor == 0 {
		scaleFactor = DefaultScaleFactor
	}

	h, headerBytes, err := ParseHeader(data, order)
	if err != nil {
		return nil, 0
	}

	totalBytes := int(h.PacketSize) * 4
	trailerWords := 0
	if h.TrailerPresent {
		trailerWords = 1
	}
	payloadWords := int(h.PacketSize) - SizeInWords(h) - trailerWords
	if payloadWords < 0 {
		return nil, 0
	}

	samples := make(IQSamples, payloadWords)
	off := headerBytes
	for i := 0; i < payloadWords; i++ {
		if off+4 > len(data) {
			return nil, 0
		}
		word := order.Uint32(data[off : off+4])
		i16 := int16(word >> 16)
		q16 := int16(word & 0xFFFF)
		samples[i] = complex(float32(float64(i16)/scaleFactor), float32(float64(q16)/scaleFactor))
		off += 4
	}

	return &SignalDataDecodeResult{Header: h, Samples: samples}, totalBytes
}

func clampToInt16(v float64) int16 {
	r := math.Round(v)
	if r > 32767 {
		return 32767
	}
	if r < -32768 {
		return -32768
	}
	return int16(r)
}
