package vita49

const (
	shiftType        = 28
	shiftClassID     = 27
	shiftTrailer     = 26
	shiftTSI         = 24
	shiftTSF         = 22
	shiftReserved    = 20
	shiftPacketCount = 16

	maskType        = 0xF
	maskTSI         = 0x3
	maskTSF         = 0x3
	maskReserved    = 0x3
	maskPacketCount = 0xF
	maskPacketSize  = 0xFFFF
)

// SizeInWords returns the fixed prefix length of header, in 32-bit
// words: the mandatory header word, plus Stream ID, Class ID and
// timestamp words as applicable.
func SizeInWords(h PacketHeader) int {
	n := 1
	if h.Type.HasStreamID() {
		n++
	}
	if h.ClassIDPresent {
		n += 2
	}
	if h.TSI != TSINone {
		n++
	}
	if h.TSF != TSFNone {
		n += 2
	}
	return n
}

// SizeInBytes returns SizeInWords(h) * 4.
func SizeInBytes(h PacketHeader) int {
	return SizeInWords(h) * 4
}

// ParseHeader parses a VITA 49.2 packet header from data. It returns the
// parsed header and the number of bytes the header prefix occupies
// (header word, Stream ID, Class ID and timestamps); the returned
// header's PacketSize field tells the caller the total packet length in
// words.
//
// It fails if data is shorter than 4 bytes, if the packet-size field
// implies more bytes than are available in data, or if a reserved bit
// is non-zero.
func ParseHeader(data []byte, order ByteOrder) (PacketHeader, int, error) {
	var h PacketHeader

	if len(data) < 4 {
		return h, 0, ErrShortBuffer
	}

	word0 := order.Uint32(data[0:4])

	h.Type = PacketType((word0 >> shiftType) & maskType)
	h.ClassIDPresent = (word0>>shiftClassID)&1 != 0
	h.TrailerPresent = (word0>>shiftTrailer)&1 != 0
	h.TSI = TSI((word0 >> shiftTSI) & maskTSI)
	h.TSF = TSF((word0 >> shiftTSF) & maskTSF)
	h.PacketCount = uint8((word0 >> shiftPacketCount) & maskPacketCount)
	h.PacketSize = uint16(word0 & maskPacketSize)

	if (word0>>shiftReserved)&maskReserved != 0 {
		return PacketHeader{}, 0, ErrReservedBits
	}

	needed := int(h.PacketSize) * 4
	if needed > len(data) {
		return PacketHeader{}, 0, ErrPacketSize
	}
	if needed < SizeInBytes(h) {
		return PacketHeader{}, 0, ErrPacketSize
	}

	off := 4
	if h.Type.HasStreamID() {
		if off+4 > len(data) {
			return PacketHeader{}, 0, ErrShortBuffer
		}
		h.StreamID = order.Uint32(data[off : off+4])
		off += 4
	}
	if h.ClassIDPresent {
		if off+8 > len(data) {
			return PacketHeader{}, 0, ErrShortBuffer
		}
		ouiWord := order.Uint32(data[off : off+4])
		classWord := order.Uint32(data[off+4 : off+8])
		h.ClassID = ClassID{
			OUI:         ouiWord & 0x00FFFFFF,
			InfoClass:   uint16(classWord >> 16),
			PacketClass: uint16(classWord & 0xFFFF),
		}
		off += 8
	}
	if h.TSI != TSINone {
		if off+4 > len(data) {
			return PacketHeader{}, 0, ErrShortBuffer
		}
		h.IntegerTS = order.Uint32(data[off : off+4])
		off += 4
	}
	if h.TSF != TSFNone {
		if off+8 > len(data) {
			return PacketHeader{}, 0, ErrShortBuffer
		}
		hi := uint64(order.Uint32(data[off : off+4]))
		lo := uint64(order.Uint32(data[off+4 : off+8]))
		h.FractionalTS = hi<<32 | lo
		off += 8
	}

	return h, off, nil
}

// SerializeHeader appends header's wire representation to out. The
// caller must have already set header.PacketSize to the full packet
// length in 32-bit words.
func SerializeHeader(h PacketHeader, order ByteOrder, out []byte) []byte {
	word0 := uint32(h.Type&maskType) << shiftType
	if h.ClassIDPresent {
		word0 |= 1 << shiftClassID
	}
	if h.TrailerPresent {
		word0 |= 1 << shiftTrailer
	}
	word0 |= uint32(h.TSI&maskTSI) << shiftTSI
	word0 |= uint32(h.TSF&maskTSF) << shiftTSF
	word0 |= uint32(h.PacketCount&maskPacketCount) << shiftPacketCount
	word0 |= uint32(h.PacketSize) & maskPacketSize

	var buf [4]byte
	order.PutUint32(buf[:], word0)
	out = append(out, buf[:]...)

	if h.Type.HasStreamID() {
		order.PutUint32(buf[:], h.StreamID)
		out = append(out, buf[:]...)
	}
	if h.ClassIDPresent {
		order.PutUint32(buf[:], h.ClassID.OUI&0x00FFFFFF)
		out = append(out, buf[:]...)
		order.PutUint32(buf[:], uint32(h.ClassID.InfoClass)<<16|uint32(h.ClassID.PacketClass))
		out = append(out, buf[:]...)
	}
	if h.TSI != TSINone {
		order.PutUint32(buf[:], h.IntegerTS)
		out = append(out, buf[:]...)
	}
	if h.TSF != TSFNone {
		order.PutUint32(buf[:], uint32(h.FractionalTS>>32))
		out = append(out, buf[:]...)
		order.PutUint32(buf[:], uint32(h.FractionalTS&0xFFFFFFFF))
		out = append(out, buf[:]...)
	}

	return out
}
