package vita49

import "math"

// CIF0 bit positions for the core fields this codec understands and can
// both encode and decode (word-0 bits 31..21). Unlisted bits in 20..8
// are either skippable with a known word width (skippableCIF0Words) or
// always rejected because their payload width is context-dependent.
const (
	cif0ChangeIndicator  = 31
	cif0ReferencePointID = 30
	cif0Bandwidth        = 29
	cif0IFReference      = 28
	cif0RFReference      = 27
	cif0RFOffset         = 26
	cif0IFBandOffset     = 25
	cif0ReferenceLevel   = 24
	cif0Gain             = 23
	cif0OverRangeCount   = 22
	cif0SampleRate       = 21
)

// skippableCIF0Words gives the fixed word width of CIF0 fields this
// codec does not decode into ContextFields but can safely skip over
// when not running in Strict mode. Bits 9 (GPS ASCII) and 8 (Context
// Association Lists) carry variable-length payloads and are never
// skippable; they are always a decode error.
var skippableCIF0Words = map[uint]int{
	20: 2,  // Timestamp Adjustment
	19: 1,  // Timestamp Calibration Time
	18: 1,  // Temperature
	17: 2,  // Device Identifier
	16: 1,  // State/Event Indicators
	15: 2,  // Data Payload Format
	14: 11, // Formatted GPS
	13: 11, // Formatted INS
	12: 13, // ECEF Ephemeris
	11: 13, // Relative Ephemeris
	10: 1,  // Ephemeris Reference Identifier
}

const q44Q20Scale = float64(1 << 20)
const q9Q7Scale = float64(1 << 7)

func encodeQ44_20(hz float64) (hi, lo uint32) {
	raw := int64(math.Round(hz * q44Q20Scale))
	return uint32(raw >> 32), uint32(raw)
}

func decodeQ44_20(hi, lo uint32) float64 {
	raw := int64(uint64(hi)<<32 | uint64(lo))
	return float64(raw) / q44Q20Scale
}

func encodeQ9_7(v float64) uint16 {
	raw := int32(math.Round(v * q9Q7Scale))
	if raw > 32767 {
		raw = 32767
	}
	if raw < -32768 {
		raw = -32768
	}
	return uint16(int16(raw))
}

func decodeQ9_7(raw uint16) float64 {
	return float64(int16(raw)) / q9Q7Scale
}

// EncodeContext serializes fields as a Context packet body (the CIF0
// word followed by each present field, in descending bit order) and
// returns the full packet, header included.
func EncodeContext(streamID uint32, fields ContextFields, packetCount uint8, order ByteOrder) []byte {
	var cif0 uint32
	var body []byte
	var buf [4]byte

	putWord := func(w uint32) {
		order.PutUint32(buf[:], w)
		body = append(body, buf[:]...)
	}

	if fields.ChangeIndicator {
		cif0 |= 1 << cif0ChangeIndicator
	}
	if fields.ReferencePointID != nil {
		cif0 |= 1 << cif0ReferencePointID
	}
	if fields.BandwidthHz != nil {
		cif0 |= 1 << cif0Bandwidth
	}
	if fields.IFReferenceHz != nil {
		cif0 |= 1 << cif0IFReference
	}
	if fields.RFReferenceHz != nil {
		cif0 |= 1 << cif0RFReference
	}
	if fields.RFOffsetHz != nil {
		cif0 |= 1 << cif0RFOffset
	}
	if fields.IFBandOffsetHz != nil {
		cif0 |= 1 << cif0IFBandOffset
	}
	if fields.ReferenceLevelDbm != nil {
		cif0 |= 1 << cif0ReferenceLevel
	}
	if fields.GainDb != nil {
		cif0 |= 1 << cif0Gain
	}
	if fields.OverRangeCount != nil {
		cif0 |= 1 << cif0OverRangeCount
	}
	if fields.SampleRateHz != nil {
		cif0 |= 1 << cif0SampleRate
	}

	// Fields are written in descending bit order, per spec.md §4.7.
	if fields.ReferencePointID != nil {
		putWord(*fields.ReferencePointID)
	}
	if fields.BandwidthHz != nil {
		hi, lo := encodeQ44_20(*fields.BandwidthHz)
		putWord(hi)
		putWord(lo)
	}
	if fields.IFReferenceHz != nil {
		hi, lo := encodeQ44_20(*fields.IFReferenceHz)
		putWord(hi)
		putWord(lo)
	}
	if fields.RFReferenceHz != nil {
		hi, lo := encodeQ44_20(*fields.RFReferenceHz)
		putWord(hi)
		putWord(lo)
	}
	if fields.RFOffsetHz != nil {
		hi, lo := encodeQ44_20(*fields.RFOffsetHz)
		putWord(hi)
		putWord(lo)
	}
	if fields.IFBandOffsetHz != nil {
		hi, lo := encodeQ44_20(*fields.IFBandOffsetHz)
		putWord(hi)
		putWord(lo)
	}
	if fields.ReferenceLevelDbm != nil {
		putWord(uint32(encodeQ9_7(*fields.ReferenceLevelDbm)))
	}
	if fields.GainDb != nil {
		putWord(uint32(encodeQ9_7(*fields.GainDb)))
	}
	if fields.OverRangeCount != nil {
		putWord(*fields.OverRangeCount)
	}
	if fields.SampleRateHz != nil {
		hi, lo := encodeQ44_20(*fields.SampleRateHz)
		putWord(hi)
		putWord(lo)
	}

	h := PacketHeader{
		Type:        PacketTypeContext,
		TSI:         TSINone,
		TSF:         TSFNone,
		PacketCount: packetCount & 0xF,
		StreamID:    streamID,
	}
	h.PacketSize = uint16(SizeInWords(h) + 1 + len(body)/4)

	out := make([]byte, 0, int(h.PacketSize)*4)
	out = SerializeHeader(h, order, out)
	order.PutUint32(buf[:], cif0)
	out = append(out, buf[:]...)
	out = append(out, body...)
	return out
}

// DecodeContext decodes a single Context packet from data, returning the
// parsed header, fields and the total bytes consumed. strict turns any
// CIF0 bit this codec merely skips (bits 20..10) into a decode error, in
// addition to the always-rejected bits 9, 8 and the reserved bits 7..0.
func DecodeContext(data []byte, order ByteOrder, strict bool) (PacketHeader, ContextFields, int, error) {
	var fields ContextFields

	h, headerBytes, err := ParseHeader(data, order)
	if err != nil {
		return PacketHeader{}, fields, 0, err
	}

	totalBytes := int(h.PacketSize) * 4
	off := headerBytes
	if off+4 > len(data) {
		return PacketHeader{}, fields, 0, ErrShortBuffer
	}
	cif0 := order.Uint32(data[off : off+4])
	off += 4

	readWord := func() (uint32, error) {
		if off+4 > len(data) {
			return 0, ErrShortBuffer
		}
		w := order.Uint32(data[off : off+4])
		off += 4
		return w, nil
	}
	readQ44 := func() (float64, error) {
		hi, err := readWord()
		if err != nil {
			return 0, err
		}
		lo, err := readWord()
		if err != nil {
			return 0, err
		}
		return decodeQ44_20(hi, lo), nil
	}

	if cif0&(1<<cif0ReferencePointID) != 0 {
		w, err := readWord()
		if err != nil {
			return PacketHeader{}, fields, 0, err
		}
		fields.ReferencePointID = &w
	}
	if cif0&(1<<cif0Bandwidth) != 0 {
		v, err := readQ44()
		if err != nil {
			return PacketHeader{}, fields, 0, err
		}
		fields.BandwidthHz = &v
	}
	if cif0&(1<<cif0IFReference) != 0 {
		v, err := readQ44()
		if err != nil {
			return PacketHeader{}, fields, 0, err
		}
		fields.IFReferenceHz = &v
	}
	if cif0&(1<<cif0RFReference) != 0 {
		v, err := readQ44()
		if err != nil {
			return PacketHeader{}, fields, 0, err
		}
		fields.RFReferenceHz = &v
	}
	if cif0&(1<<cif0RFOffset) != 0 {
		v, err := readQ44()
		if err != nil {
			return PacketHeader{}, fields, 0, err
		}
		fields.RFOffsetHz = &v
	}
	if cif0&(1<<cif0IFBandOffset) != 0 {
		v, err := readQ44()
		if err != nil {
			return PacketHeader{}, fields, 0, err
		}
		fields.IFBandOffsetHz = &v
	}
	if cif0&(1<<cif0ReferenceLevel) != 0 {
		w, err := readWord()
		if err != nil {
			return PacketHeader{}, fields, 0, err
		}
		v := decodeQ9_7(uint16(w))
		fields.ReferenceLevelDbm = &v
	}
	if cif0&(1<<cif0Gain) != 0 {
		w, err := readWord()
		if err != nil {
			return PacketHeader{}, fields, 0, err
		}
		v := decodeQ9_7(uint16(w))
		fields.GainDb = &v
	}
	if cif0&(1<<cif0OverRangeCount) != 0 {
		w, err := readWord()
		if err != nil {
			return PacketHeader{}, fields, 0, err
		}
		fields.OverRangeCount = &w
	}
	if cif0&(1<<cif0SampleRate) != 0 {
		v, err := readQ44()
		if err != nil {
			return PacketHeader{}, fields, 0, err
		}
		fields.SampleRateHz = &v
	}
	fields.ChangeIndicator = cif0&(1<<cif0ChangeIndicator) != 0

	for bit := uint(20); bit >= 10; bit-- {
		if cif0&(1<<bit) == 0 {
			continue
		}
		if strict {
			return PacketHeader{}, fields, 0, ErrUnknownCIF0Bit
		}
		words, ok := skippableCIF0Words[bit]
		if !ok {
			return PacketHeader{}, fields, 0, ErrUnknownCIF0Bit
		}
		for i := 0; i < words; i++ {
			if _, err := readWord(); err != nil {
				return PacketHeader{}, fields, 0, err
			}
		}
	}
	if cif0&(1<<9) != 0 || cif0&(1<<8) != 0 {
		return PacketHeader{}, fields, 0, ErrUnknownCIF0Bit
	}
	if cif0&0xFF != 0 {
		return PacketHeader{}, fields, 0, ErrReservedCIF0Bits
	}

	return h, fields, totalBytes, nil
}
