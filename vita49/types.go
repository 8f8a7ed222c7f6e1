// Package vita49 implements a bit-exact VITA 49.2 codec for signal-data
// and context packets. The package-level encode/decode functions are
// pure functions over byte buffers with no shared mutable state, safe to
// call concurrently from many goroutines on disjoint buffers; Codec adds
// mutex-guarded settings and a rolling packet count shared by its
// callers.
package vita49

import "encoding/binary"

// ByteOrder is the wire byte order used by a packet. encoding/binary's
// BigEndian and LittleEndian satisfy it directly.
type ByteOrder = binary.ByteOrder

// BigEndian is the default VITA 49.2 wire byte order.
var BigEndian = binary.BigEndian

// LittleEndian is accepted for interop with non-conformant producers.
var LittleEndian = binary.LittleEndian

// DefaultScaleFactor is the default int16<->float scale used by Signal
// Data packets when none is specified.
const DefaultScaleFactor = 32768.0

// MaxPacketWords is the largest packet size the 16-bit packet-size field
// can express.
const MaxPacketWords = 65535

// PacketType is the 4-bit packet type field (word 0 bits 31..28).
type PacketType uint8

const (
	PacketTypeSignalDataNoStreamID PacketType = 0
	PacketTypeSignalDataStreamID   PacketType = 1
	PacketTypeExtDataNoStreamID    PacketType = 2
	PacketTypeExtDataStreamID      PacketType = 3
	PacketTypeContext              PacketType = 4
	PacketTypeExtContext           PacketType = 5
)

// HasStreamID reports whether packets of this type carry a Stream ID
// word, per spec.md §4.5: "Signal Data with stream ID, all context
// packets".
func (t PacketType) HasStreamID() bool {
	switch t {
	case PacketTypeSignalDataStreamID, PacketTypeExtDataStreamID,
		PacketTypeContext, PacketTypeExtContext:
		return true
	default:
		return false
	}
}

// TSI is the Integer Timestamp type selector.
type TSI uint8

const (
	TSINone TSI = 0
	TSIUTC  TSI = 1
	TSIGPS  TSI = 2
	TSIOther TSI = 3
)

// TSF is the Fractional Timestamp type selector.
type TSF uint8

const (
	TSFNone        TSF = 0
	TSFSampleCount TSF = 1
	TSFRealTime    TSF = 2
	TSFFreeRunning TSF = 3
)

// ClassID is the Class Identifier field: an OUI plus information- and
// packet-class codes.
type ClassID struct {
	OUI         uint32 // 24 bits
	InfoClass   uint16
	PacketClass uint16
}

// PacketHeader is the mandatory VITA 49.2 header word plus the optional
// fields that follow it.
type PacketHeader struct {
	Type            PacketType
	ClassIDPresent  bool
	TrailerPresent  bool // word-0 bit 26; meaningful for Signal Data packets
	TSI             TSI
	TSF             TSF
	PacketCount     uint8 // 4 bits, 0-15
	PacketSize      uint16 // packet size in 32-bit words, including header
	StreamID        uint32 // valid iff Type.HasStreamID()
	ClassID         ClassID
	IntegerTS       uint32
	FractionalTS    uint64
}

// IQSamples is an ordered sequence of complex baseband samples, the
// payload of a Signal Data packet.
type IQSamples []complex64

// ContextFields holds the optional metadata a Context packet may carry.
// A nil pointer (or, for ChangeIndicator, false) means the field is
// absent; see spec.md §4.7 for the CIF0 bit assignment and units.
type ContextFields struct {
	ChangeIndicator bool

	ReferencePointID *uint32
	BandwidthHz      *float64
	IFReferenceHz    *float64
	RFReferenceHz    *float64
	RFOffsetHz       *float64
	IFBandOffsetHz   *float64
	ReferenceLevelDbm *float64
	GainDb           *float64
	OverRangeCount   *uint32
	SampleRateHz     *float64
}
