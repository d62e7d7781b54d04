package ddcci

// multiPartTerminal reports whether k should end a whole ReadMultiPart
// attempt outright rather than be retried from offset 0: the display gave a
// definitive "nothing here" answer that another pass over the same bus
// wouldn't change.
func multiPartTerminal(k Kind) bool {
	switch k {
	case KindNullResponse, KindReadAllZero, KindAllTriesZero:
		return true
	default:
		return false
	}
}

// readMultiPartAttempt runs one full pass of the fragment loop: it sends a
// read request at an advancing offset, retrying each fragment independently
// via WriteReadWithRetry under ClassWriteRead, and stops at the first
// zero-length fragment. The assembled bytes from every fragment are
// concatenated in offset order. The first fragment is decoded with
// allZeroOK so a display that reports "no capabilities yet" on its opening
// reply doesn't trip ReadAllZero.
func readMultiPartAttempt(e *Engine, dh DisplayHandle, kind MultiPartKind, subtype byte, maxRead int, respType PacketType) ([]byte, error) {
	var out []byte
	offset := uint16(0)
	allZero := true

	for {
		req := EncodeMultiPartReadRequest(kind, subtype, offset)
		resp, err := WriteReadWithRetry(e, dh, req, maxRead, respType, subtype, ClassWriteRead, allZero)
		if err != nil {
			return nil, err
		}
		allZero = false

		frag := resp.Fragment
		if frag == nil {
			return nil, newErr(KindMultiPartReadFragment, "ReadMultiPart")
		}
		if frag.Offset != offset {
			return nil, newErr(KindMultiPartReadFragment, "ReadMultiPart")
		}
		if len(frag.Data) == 0 {
			break
		}
		out = append(out, frag.Data...)
		offset += uint16(len(frag.Data))
	}

	if len(out) > 0 && isAllZero(out) {
		return nil, newErr(KindAllTriesZero, "ReadMultiPart")
	}
	return out, nil
}

// ReadMultiPart drives a capabilities-read or table-read to completion,
// restarting the whole fragment sequence from offset 0 up to
// ClassMultiPartRead's cap whenever an attempt fails with a non-terminal
// Kind. Each fragment within an attempt carries its own independent retry
// budget under ClassWriteRead, tracked separately from this outer,
// whole-attempt budget. NullResponse, ReadAllZero, and AllTriesZero are
// returned as-is on first occurrence rather than retried at this level.
func ReadMultiPart(e *Engine, dh DisplayHandle, kind MultiPartKind, subtype byte, maxRead int) ([]byte, error) {
	respType := PacketCapabilitiesResponse
	if kind == MultiPartTable {
		respType = PacketTableReadResponse
	}

	capN := e.Stats.GetCap(ClassMultiPartRead)
	var causes []error

	for attempt := 1; attempt <= capN; attempt++ {
		out, err := readMultiPartAttempt(e, dh, kind, subtype, maxRead, respType)
		if err == nil {
			e.Stats.Record(ClassMultiPartRead, KindNone, attempt)
			return out, nil
		}

		de, _ := err.(*DDCError)
		if de == nil {
			de = newErr(KindTransport, "ReadMultiPart")
		}
		if multiPartTerminal(de.Kind) {
			e.Stats.Record(ClassMultiPartRead, de.Kind, attempt)
			return nil, de
		}
		causes = append(causes, de)
		e.warnf("multi-part read: attempt failed", "attempt", attempt, "kind", de.Kind)
	}

	final := newErr(KindRetries, "ReadMultiPart", causes...)
	e.Stats.Record(ClassMultiPartRead, KindRetries, capN)
	return nil, final
}

// maxWriteChunk is the largest slice of value bytes one table-write fragment
// can carry: MaxFragment minus the 4-byte opcode/subtype/offset header that
// shares the same 32-byte frame payload.
const maxWriteChunk = MaxFragment - 4

// WriteMultiPart drives a table-write to completion: it splits data into
// maxWriteChunk-sized chunks, writes each at its offset, and finishes with
// the empty-fragment write that terminates the sequence on the display
// side. Table writes carry no reply to check, so each fragment uses
// WriteOnlyWithRetry under the multi-part-write class's cap.
func WriteMultiPart(e *Engine, dh DisplayHandle, subtype byte, data []byte) error {
	offset := uint16(0)
	for offset < uint16(len(data)) {
		end := int(offset) + maxWriteChunk
		if end > len(data) {
			end = len(data)
		}
		chunk := data[int(offset):end]
		req := EncodeMultiPartWriteRequest(MultiPartTable, subtype, offset, chunk)
		if err := WriteOnlyWithRetry(e, dh, req, ClassMultiPartWrite); err != nil {
			return err
		}
		offset += uint16(len(chunk))
	}

	term := EncodeMultiPartWriteRequest(MultiPartTable, subtype, offset, nil)
	return WriteOnlyWithRetry(e, dh, term, ClassMultiPartWrite)
}
