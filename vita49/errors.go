package vita49

import "errors"

// Error kinds from spec.md §7. ProtocolError is the one the codec
// returns most often; CapacityError and ConfigurationError are surfaced
// by callers that build a PacketHeader/ContextFields before handing them
// to this package.
var (
	// ErrShortBuffer means fewer than 4 bytes were available to parse a
	// header, or the buffer ended mid-field.
	ErrShortBuffer = errors.New("vita49: buffer too short")

	// ErrReservedBits means a reserved header bit was non-zero.
	ErrReservedBits = errors.New("vita49: reserved header bits non-zero")

	// ErrPacketSize means the header's packet-size field claims more
	// bytes than are available in the buffer.
	ErrPacketSize = errors.New("vita49: packet size exceeds available bytes")

	// ErrUnknownCIF0Bit means a context packet set a CIF0 bit this codec
	// cannot safely skip (bits 9 and 8) or, under Strict decoding, any of
	// the skippable bits 20..10. Reserved bits 7..0 report
	// ErrReservedCIF0Bits instead.
	ErrUnknownCIF0Bit = errors.New("vita49: unknown or unsupported CIF0 bit")

	// ErrReservedCIF0Bits means one of CIF0 bits 7..0 (reserved) was set.
	ErrReservedCIF0Bits = errors.New("vita49: reserved CIF0 bits non-zero")

	// ErrTooManySamples means Encode was asked to pack more I/Q samples
	// than fit in a single packet.
	ErrTooManySamples = errors.New("vita49: sample count exceeds single-packet limit")
)
