package ddcci

// nonRereadable is the fixed set of opcodes SetValue never reads back even
// when verification is on: 0x02 (new control value), 0x03 (soft controls)
// and 0x60 (input source), which a display doesn't echo meaningfully.
var nonRereadable = map[byte]bool{0x02: true, 0x03: true, 0x60: true}

// GetNontable reads and decodes one non-table VCP feature.
func GetNontable(e *Engine, dh DisplayHandle, code byte) (*NonTableResponse, error) {
	req := EncodeGetVCP(code)
	resp, err := WriteReadWithRetry(e, dh, req, 20, PacketVCPGetResponse, code, ClassWriteRead, false)
	if err != nil {
		return nil, err
	}
	nt := resp.NonTable
	if nt == nil {
		return nil, newErr(KindInvalidData, "GetNontable")
	}
	if !nt.Valid() {
		return nil, newErr(KindInvalidData, "GetNontable")
	}
	if !nt.Supported() {
		return nil, newErr(KindReportedUnsupported, "GetNontable")
	}
	return nt, nil
}

// GetTable reads and assembles a table-valued VCP feature.
func GetTable(e *Engine, dh DisplayHandle, code byte) ([]byte, error) {
	return ReadMultiPart(e, dh, MultiPartTable, code, MaxFragment+8)
}

// GetValue reads a feature and wraps the result as a VcpValue, dispatching
// on isTable.
func GetValue(e *Engine, dh DisplayHandle, code byte, isTable bool) (VcpValue, error) {
	if isTable {
		data, err := GetTable(e, dh, code)
		if err != nil {
			return VcpValue{}, err
		}
		return TableValue(code, data), nil
	}
	nt, err := GetNontable(e, dh, code)
	if err != nil {
		return VcpValue{}, err
	}
	return NonTableValue(code, nt.MH, nt.ML, nt.SH, nt.SL), nil
}

// SetNontable writes a new value to a non-table VCP feature. There is no
// reply to a set-request.
func SetNontable(e *Engine, dh DisplayHandle, code byte, newValue uint16) error {
	req := EncodeSetVCP(code, newValue)
	return WriteOnlyWithRetry(e, dh, req, ClassWriteOnly)
}

// SetTable writes a table-valued VCP feature.
func SetTable(e *Engine, dh DisplayHandle, code byte, data []byte) error {
	return WriteMultiPart(e, dh, code, data)
}

// SetValue writes value and, if verification is enabled on e and the
// feature is both registry-readable and not in the fixed non-rereadable
// set, reads it back and compares under VcpValue.Equal. On mismatch it
// returns a KindVerify error. When verification ran, the post-read value is
// returned; otherwise the returned value is the zero value and ok is false.
func SetValue(e *Engine, dh DisplayHandle, value VcpValue) (readBack VcpValue, ok bool, err error) {
	if value.IsTable() {
		if err = SetTable(e, dh, value.Code, value.TableBytes()); err != nil {
			return VcpValue{}, false, err
		}
	} else {
		if err = SetNontable(e, dh, value.Code, value.Cur()); err != nil {
			return VcpValue{}, false, err
		}
	}

	if !shouldVerify(e, value) {
		return VcpValue{}, false, nil
	}

	readBack, err = GetValue(e, dh, value.Code, value.IsTable())
	if err != nil {
		return VcpValue{}, false, err
	}
	if !readBack.Equal(value) {
		return VcpValue{}, false, newErr(KindVerify, "SetValue")
	}
	return readBack, true, nil
}

func shouldVerify(e *Engine, value VcpValue) bool {
	if !e.Verify() {
		return false
	}
	if value.IsTable() {
		return false
	}
	if nonRereadable[value.Code] {
		return false
	}
	entry, ok := e.Registry.FindByCode(value.Code)
	if !ok {
		return false
	}
	return e.Registry.IsReadable(entry, DefaultVCPVersion)
}

// SaveCurrentSettings sends the save-current-settings command.
func SaveCurrentSettings(e *Engine, dh DisplayHandle) error {
	return WriteOnlyWithRetry(e, dh, EncodeSaveSettings(), ClassWriteOnly)
}

// ProbeSupported checks each of codes for support via GetValue, treating
// ReportedUnsupported, NullResponse, and ReadAllZero as "not supported"
// rather than propagating them. Any other error aborts and is returned.
func ProbeSupported(e *Engine, dh DisplayHandle, codes []byte, isTable func(code byte) bool) (map[byte]bool, error) {
	out := make(map[byte]bool, len(codes))
	for _, code := range codes {
		_, err := GetValue(e, dh, code, isTable(code))
		switch KindOf(err) {
		case KindNone:
			out[code] = true
		case KindReportedUnsupported, KindNullResponse, KindReadAllZero:
			out[code] = false
		default:
			return nil, err
		}
	}
	return out, nil
}
