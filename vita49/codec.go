package vita49

import "sync"

// ParsedPacketType distinguishes the packets ParseStream/ParsePacket can
// return.
type ParsedPacketType int

const (
	ParsedUnknown ParsedPacketType = iota
	ParsedSignalData
	ParsedContext
)

// ParsedPacket is one decoded packet from a stream: exactly one of
// Samples or ContextFields is populated, depending on Type.
type ParsedPacket struct {
	Type          ParsedPacketType
	Header        PacketHeader
	Samples       IQSamples
	ContextFields ContextFields
}

// Codec bundles the byte order and Signal Data scale factor a producer
// or consumer uses across many packets, mirroring the mutable defaults
// of the original Vita49Codec type: construct once, reuse across calls,
// safe for concurrent use on disjoint buffers.
type Codec struct {
	mu          sync.Mutex
	order       ByteOrder
	scaleFactor float64
	strict      bool
	packetCount uint8
}

// NewCodec builds a Codec with VITA 49.2's default big-endian wire order
// and a unity-range int16 scale factor.
func NewCodec() *Codec {
	return &Codec{
		order:       BigEndian,
		scaleFactor: DefaultScaleFactor,
	}
}

// ByteOrder returns the codec's current wire byte order.
func (c *Codec) ByteOrder() ByteOrder {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order
}

// SetByteOrder changes the wire byte order used by subsequent calls.
func (c *Codec) SetByteOrder(order ByteOrder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = order
}

// ScaleFactor returns the codec's current Signal Data int16 scale
// factor.
func (c *Codec) ScaleFactor() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scaleFactor
}

// SetScaleFactor changes the Signal Data int16 scale factor used by
// subsequent calls.
func (c *Codec) SetScaleFactor(scale float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scaleFactor = scale
}

// SetStrict controls whether DecodeContext rejects CIF0 bits this codec
// can only skip (bits 20..10), in addition to the bits it always
// rejects.
func (c *Codec) SetStrict(strict bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.strict = strict
}

// SetPacketCount sets the codec's rolling packet count, masked to 4
// bits, so a caller can control the starting value of the next
// EncodeSignalData/EncodeContext call's sequence.
func (c *Codec) SetPacketCount(start uint8) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.packetCount = start & 0xF
}

// NextPacketCount returns the codec's rolling 4-bit packet count and
// advances it, wrapping from 15 back to 0. Callers that manage their own
// packet count (e.g. one counter per stream ID) should ignore this and
// pass their own value to EncodeSignalData instead.
func (c *Codec) NextPacketCount() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := c.packetCount
	c.packetCount = (c.packetCount + 1) & 0xF
	return v
}

// EncodeSignalData serializes samples as one or more Signal Data
// packets, splitting at MaxSamplesPerPacket and advancing the codec's
// rolling packet count across the split. The integer/fractional
// timestamp is written only on the first packet produced; later packets
// carry the same TSI/TSF selectors with a zero timestamp value, per
// spec.md §4.6's "continuation packet" note.
func (c *Codec) EncodeSignalData(streamID uint32, samples IQSamples, tsiType TSI, tsfType TSF, intTimestamp uint32, fracTimestamp uint64, includeTrailer bool) [][]byte {
	c.mu.Lock()
	order := c.order
	scale := c.scaleFactor
	c.mu.Unlock()

	maxSamples := MaxSamplesPerPacket(tsiType, tsfType, false, includeTrailer)
	if maxSamples <= 0 {
		return nil
	}

	var packets [][]byte
	for off := 0; off < len(samples) || (off == 0 && len(samples) == 0); {
		end := off + maxSamples
		if end > len(samples) {
			end = len(samples)
		}
		chunk := samples[off:end]

		its, fts := intTimestamp, fracTimestamp
		if off > 0 {
			its, fts = 0, 0
		}

		pkt := EncodeSignalData(streamID, chunk, c.NextPacketCount(), order, scale, tsiType, tsfType, its, fts, includeTrailer)
		packets = append(packets, pkt)

		off = end
		if len(samples) == 0 {
			break
		}
	}
	return packets
}

// EncodeContext serializes fields as a single Context packet using the
// codec's current byte order and rolling packet count.
func (c *Codec) EncodeContext(streamID uint32, fields ContextFields) []byte {
	c.mu.Lock()
	order := c.order
	c.mu.Unlock()
	return EncodeContext(streamID, fields, c.NextPacketCount(), order)
}

// ParsePacket decodes exactly one packet from the front of data,
// dispatching on the packet type found in its header, and returns the
// decoded packet along with the number of bytes consumed.
func (c *Codec) ParsePacket(data []byte) (*ParsedPacket, int, error) {
	c.mu.Lock()
	order := c.order
	scale := c.scaleFactor
	strict := c.strict
	c.mu.Unlock()

	if len(data) < 4 {
		return nil, 0, ErrShortBuffer
	}
	peek, _, err := ParseHeader(data, order)
	if err != nil {
		return nil, 0, err
	}

	switch peek.Type {
	case PacketTypeSignalDataNoStreamID, PacketTypeSignalDataStreamID,
		PacketTypeExtDataNoStreamID, PacketTypeExtDataStreamID:
		result, n := DecodeSignalData(data, order, scale)
		if result == nil {
			return nil, 0, ErrPacketSize
		}
		return &ParsedPacket{Type: ParsedSignalData, Header: result.Header, Samples: result.Samples}, n, nil
	case PacketTypeContext, PacketTypeExtContext:
		h, fields, n, err := DecodeContext(data, order, strict)
		if err != nil {
			return nil, 0, err
		}
		return &ParsedPacket{Type: ParsedContext, Header: h, ContextFields: fields}, n, nil
	default:
		return &ParsedPacket{Type: ParsedUnknown, Header: peek}, int(peek.PacketSize) * 4, nil
	}
}

// ParseStream decodes every packet in data back to back, stopping at the
// first malformed packet (if any trailing bytes don't form a complete
// packet, they are silently ignored, mirroring a live capture's partial
// tail frame).
func (c *Codec) ParseStream(data []byte) ([]*ParsedPacket, error) {
	c.mu.Lock()
	order := c.order
	c.mu.Unlock()

	var packets []*ParsedPacket
	off := 0
	for off < len(data) {
		if len(data)-off < 4 {
			break
		}
		if size := int(order.Uint32(data[off:off+4])&maskPacketSize) * 4; size > len(data)-off {
			break
		}
		pkt, n, err := c.ParsePacket(data[off:])
		if err != nil {
			return packets, err
		}
		if n <= 0 {
			break
		}
		packets = append(packets, pkt)
		off += n
	}
	return packets, nil
}
