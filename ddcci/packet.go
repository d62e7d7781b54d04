package ddcci

import "fmt"

// PacketType discriminates the structural role of a Packet, mirroring the
// opcode classes of the wire protocol.
type PacketType int

const (
	PacketVCPGetRequest PacketType = iota
	PacketVCPGetResponse
	PacketVCPSetRequest
	PacketCapabilitiesRequest
	PacketCapabilitiesResponse
	PacketTableReadRequest
	PacketTableReadResponse
	PacketTableWriteRequest
	PacketIdentificationRequest
	PacketIdentificationResponse
	PacketSaveSettings
)

func (t PacketType) String() string {
	switch t {
	case PacketVCPGetRequest:
		return "vcp-get-request"
	case PacketVCPGetResponse:
		return "vcp-get-response"
	case PacketVCPSetRequest:
		return "vcp-set-request"
	case PacketCapabilitiesRequest:
		return "capabilities-request"
	case PacketCapabilitiesResponse:
		return "capabilities-response"
	case PacketTableReadRequest:
		return "table-read-request"
	case PacketTableReadResponse:
		return "table-read-response"
	case PacketTableWriteRequest:
		return "table-write-request"
	case PacketIdentificationRequest:
		return "identification-request"
	case PacketIdentificationResponse:
		return "identification-response"
	case PacketSaveSettings:
		return "save-settings"
	default:
		return "unknown"
	}
}

// NonTableResponse is the parsed form of a VCP-get-response payload. It is
// immutable once built by DecodeAs.
type NonTableResponse struct {
	FeatureCode byte
	Result      byte // 0 = success, 1 = unsupported, anything else is malformed
	ValueType   byte
	MH, ML, SH, SL byte
}

// Valid reports whether the monitor's result byte indicated a clean,
// well-formed response (result == 0). A response with any other result byte
// (not 0, not 1 either) is structurally off — see GetNontable.
func (r *NonTableResponse) Valid() bool { return r.Result == 0 }

// Supported reports whether the monitor claimed to support the requested
// opcode. Only result == 1 means "unsupported"; by the time this is called
// DecodeAs has already turned a literal 1 into a ReportedUnsupported error,
// so in practice Supported is true whenever Valid is — the field exists for
// the rare malformed-result case.
func (r *NonTableResponse) Supported() bool { return r.Result != 1 }

func (r *NonTableResponse) MaxValue() uint16 { return uint16(r.MH)<<8 | uint16(r.ML) }
func (r *NonTableResponse) CurValue() uint16 { return uint16(r.SH)<<8 | uint16(r.SL) }

// Fragment is one payload chunk of a multi-part (capabilities or table-read)
// response. A zero-length Data terminates the sequence.
type Fragment struct {
	Offset uint16
	Data   []byte
}

// Packet is a structurally classified frame: a tag for tracing, the raw
// payload, a type discriminator, and — once decoded — a parsed auxiliary
// interpretation. Exactly one of NonTable/Fragment is populated, and only
// after a successful DecodeAs; Packets built by the Encode* constructors
// carry neither.
type Packet struct {
	Tag      string
	Type     PacketType
	Payload  []byte
	NonTable *NonTableResponse
	Fragment *Fragment
}

// EncodeGetVCP builds a VCP get-request packet for the given feature code.
func EncodeGetVCP(code byte) *Packet {
	return &Packet{
		Tag:     fmt.Sprintf("getvcp(0x%02X)", code),
		Type:    PacketVCPGetRequest,
		Payload: []byte{0x01, code},
	}
}

// EncodeSetVCP builds a VCP set-request packet. No reply is expected.
func EncodeSetVCP(code byte, value uint16) *Packet {
	return &Packet{
		Tag:     fmt.Sprintf("setvcp(0x%02X, %d)", code, value),
		Type:    PacketVCPSetRequest,
		Payload: []byte{0x03, code, byte(value >> 8), byte(value)},
	}
}

// EncodeCapabilitiesRequest builds a capabilities-request packet for the
// given byte offset.
func EncodeCapabilitiesRequest(offset uint16) *Packet {
	return &Packet{
		Tag:     fmt.Sprintf("capabilities-request(%d)", offset),
		Type:    PacketCapabilitiesRequest,
		Payload: []byte{0xF3, byte(offset >> 8), byte(offset)},
	}
}

// UpdateOffset rewrites the offset embedded in a multi-part read request
// packet in place (the trailing two bytes of the payload, for the
// capabilities-request and table-read-request shapes). A table-write request
// with data carries that data after its offset, so this does not apply to it.
func UpdateOffset(p *Packet, offset uint16) {
	n := len(p.Payload)
	p.Payload[n-2] = byte(offset >> 8)
	p.Payload[n-1] = byte(offset)
}

// MultiPartKind distinguishes the two multi-part-read request shapes.
type MultiPartKind int

const (
	MultiPartCapabilities MultiPartKind = iota
	MultiPartTable
)

// EncodeMultiPartReadRequest builds a capabilities-request or
// table-read-request packet, per kind, at the given offset. subtype (the
// feature code) is ignored for MultiPartCapabilities.
func EncodeMultiPartReadRequest(kind MultiPartKind, subtype byte, offset uint16) *Packet {
	switch kind {
	case MultiPartCapabilities:
		return EncodeCapabilitiesRequest(offset)
	case MultiPartTable:
		return &Packet{
			Tag:     fmt.Sprintf("table-read-request(0x%02X, %d)", subtype, offset),
			Type:    PacketTableReadRequest,
			Payload: []byte{0xE2, subtype, byte(offset >> 8), byte(offset)},
		}
	default:
		panic("ddcci: unknown MultiPartKind")
	}
}

// EncodeMultiPartWriteRequest builds a table-write-request fragment packet.
// An empty data slice encodes the terminating empty-fragment write.
func EncodeMultiPartWriteRequest(kind MultiPartKind, subtype byte, offset uint16, data []byte) *Packet {
	payload := make([]byte, 0, 4+len(data))
	payload = append(payload, 0xE7, subtype, byte(offset>>8), byte(offset))
	payload = append(payload, data...)
	return &Packet{
		Tag:     fmt.Sprintf("table-write-request(0x%02X, %d, %d bytes)", subtype, offset, len(data)),
		Type:    PacketTableWriteRequest,
		Payload: payload,
	}
}

// EncodeSaveSettings builds a save-current-settings request packet.
func EncodeSaveSettings() *Packet {
	return &Packet{Tag: "save-settings", Type: PacketSaveSettings, Payload: []byte{0x0C}}
}

// DecodeAs classifies raw wire bytes as a packet of expectedType, checking
// the embedded subtype (feature code) against expectedSubtype where the wire
// format carries one. allZeroOK permits an all-zero payload to decode
// successfully instead of failing with ReadAllZero (used for the first
// fragment of a multi-part read, where an all-zero reply can legitimately
// mean "no data yet" rather than "still talking to the bus").
//
// Classification order: size, then envelope, then checksum, then semantic
// checks. Within semantic checks, a literally empty payload (NullResponse)
// is checked before an all-zero payload (ReadAllZero) — the two cannot both
// apply to the same frame, but the order still matters in spirit, per the
// tie-break note that null-response precedes all-zero.
func DecodeAs(expectedType PacketType, expectedSubtype byte, raw []byte, allZeroOK bool) (*Packet, error) {
	const headerLen = 2 // dest + length byte

	if len(raw) < headerLen+1 {
		return nil, newErr(KindPacketSize, "DecodeAs")
	}

	lengthByte := raw[1]
	if lengthByte&0x80 == 0 {
		return nil, newErr(KindResponseEnvelope, "DecodeAs")
	}
	n := int(lengthByte & 0x7F)
	if n > MaxFragment {
		return nil, newErr(KindResponseEnvelope, "DecodeAs")
	}
	if len(raw) != headerLen+n+1 {
		return nil, newErr(KindPacketSize, "DecodeAs")
	}

	payload := raw[headerLen : headerLen+n]
	seed := checksumSeedFor(expectedType)
	want := raw[len(raw)-1]
	got := xorAll(raw[:len(raw)-1]) ^ seed
	if got != want {
		return nil, newErr(KindChecksum, "DecodeAs")
	}

	if n == 0 {
		return nil, newErr(KindNullResponse, "DecodeAs")
	}

	if !allZeroOK && isAllZero(payload) {
		return nil, newErr(KindReadAllZero, "DecodeAs")
	}

	p := &Packet{Tag: fmt.Sprintf("%s(decoded)", expectedType), Type: expectedType, Payload: payload}

	switch expectedType {
	case PacketVCPGetResponse:
		if payload[0] != 0x02 {
			return nil, newErr(KindResponseType, "DecodeAs")
		}
		if len(payload) < 8 {
			return nil, newErr(KindBadByteCount, "DecodeAs")
		}
		result := payload[1]
		code := payload[2]
		if result == 1 {
			return nil, newErr(KindReportedUnsupported, "DecodeAs")
		}
		if code != expectedSubtype {
			return nil, newErr(KindResponseType, "DecodeAs")
		}
		p.NonTable = &NonTableResponse{
			FeatureCode: code,
			Result:      result,
			ValueType:   payload[3],
			MH:          payload[4],
			ML:          payload[5],
			SH:          payload[6],
			SL:          payload[7],
		}

	case PacketCapabilitiesResponse:
		if payload[0] != 0xE3 {
			return nil, newErr(KindResponseType, "DecodeAs")
		}
		if len(payload) < 3 {
			return nil, newErr(KindCapabilitiesFragment, "DecodeAs")
		}
		offset := uint16(payload[1])<<8 | uint16(payload[2])
		p.Fragment = &Fragment{Offset: offset, Data: append([]byte(nil), payload[3:]...)}

	case PacketTableReadResponse:
		if payload[0] != 0xE4 {
			return nil, newErr(KindResponseType, "DecodeAs")
		}
		if len(payload) < 4 {
			return nil, newErr(KindBadByteCount, "DecodeAs")
		}
		if payload[1] != expectedSubtype {
			return nil, newErr(KindResponseType, "DecodeAs")
		}
		offset := uint16(payload[2])<<8 | uint16(payload[3])
		p.Fragment = &Fragment{Offset: offset, Data: append([]byte(nil), payload[4:]...)}

	default:
		return nil, newErr(KindInvalidMode, "DecodeAs")
	}

	return p, nil
}

func isAllZero(bs []byte) bool {
	for _, b := range bs {
		if b != 0 {
			return false
		}
	}
	return true
}
