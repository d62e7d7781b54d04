package ddcci

import "time"

// isFatal reports whether a Kind should abort retrying immediately rather
// than consume another attempt: the display gave a definitive semantic
// answer (unsupported), or the request itself was malformed in a way no
// retry could fix.
func isFatal(k Kind) bool {
	switch k {
	case KindReportedUnsupported, KindDeterminedUnsupported, KindInvalidMode, KindUnknownFeature, KindInvalidOperation, KindNullResponse:
		return true
	default:
		return false
	}
}

// backoffFor returns how long to sleep before the next attempt. A
// ReadAllZero classification usually means the display is still warming up
// from a prior write, so it gets a longer pause than a plain checksum or
// envelope miss.
func backoffFor(attempt int, k Kind) time.Duration {
	base := 20 * time.Millisecond
	if k == KindReadAllZero {
		base = 100 * time.Millisecond
	}
	return time.Duration(attempt) * base
}

// WriteOnlyWithRetry sends req over dh's transport, retrying on transport
// errors up to class's cap. There is no reply to validate; any non-nil
// Write error is itself the retryable failure. class is normally
// ClassWriteOnly; multi-part table writes pass ClassMultiPartWrite so their
// per-fragment retries are tracked separately.
func WriteOnlyWithRetry(e *Engine, dh DisplayHandle, req *Packet, class OpClass) error {
	capN := e.Stats.GetCap(class)
	var causes []error

	for attempt := 1; attempt <= capN; attempt++ {
		err := dh.Transport().Write(frameBytes(req))
		if err == nil {
			e.Stats.Record(class, KindNone, attempt)
			e.debugf("write-only ok", "tag", req.Tag, "attempt", attempt)
			return nil
		}
		de := wrapTransport("WriteOnlyWithRetry", err)
		causes = append(causes, de)
		e.warnf("write-only failed", "tag", req.Tag, "attempt", attempt, "err", de)
		if attempt < capN {
			time.Sleep(backoffFor(attempt, de.Kind))
		}
	}

	final := newErr(KindRetries, "WriteOnlyWithRetry", causes...)
	e.Stats.Record(class, KindRetries, capN)
	return final
}

// WriteReadWithRetry performs one write followed by one read, decoding the
// reply as expectedType/expectedSubtype, retrying the whole write-read pair
// up to class's cap whenever the failure is non-fatal. class is normally
// ClassWriteRead; ReadMultiPart also passes ClassWriteRead for each of its
// fragments and counts whole attempts under ClassMultiPartRead itself.
// allZeroOK is forwarded to
// DecodeAs unchanged (see DecodeAs for what it means). A successful read
// whose bytes equal the bytes just written is treated as a bus echo, not a
// reply, and reported as KindReadEqualsWrite.
func WriteReadWithRetry(e *Engine, dh DisplayHandle, req *Packet, maxRead int, expectedType PacketType, expectedSubtype byte, class OpClass, allZeroOK bool) (*Packet, error) {
	capN := e.Stats.GetCap(class)
	var causes []error
	wire := frameBytes(req)

	for attempt := 1; attempt <= capN; attempt++ {
		if err := dh.Transport().Write(wire); err != nil {
			de := wrapTransport("WriteReadWithRetry", err)
			causes = append(causes, de)
			e.warnf("write-read: write failed", "tag", req.Tag, "attempt", attempt, "err", de)
			if attempt < capN {
				time.Sleep(backoffFor(attempt, de.Kind))
			}
			continue
		}

		delay := dh.WriteToReadDelay()
		if delay > 0 {
			time.Sleep(delay)
		}

		raw, err := dh.Transport().Read(maxRead)
		if err != nil {
			de := wrapTransport("WriteReadWithRetry", err)
			causes = append(causes, de)
			e.warnf("write-read: read failed", "tag", req.Tag, "attempt", attempt, "err", de)
			if attempt < capN {
				time.Sleep(backoffFor(attempt, de.Kind))
			}
			continue
		}

		if len(raw) == len(wire) && bytesEqual(raw, wire) {
			de := newErr(KindReadEqualsWrite, "WriteReadWithRetry")
			causes = append(causes, de)
			e.warnf("write-read: read equals write", "tag", req.Tag, "attempt", attempt)
			if attempt < capN {
				time.Sleep(backoffFor(attempt, de.Kind))
			}
			continue
		}

		resp, err := DecodeAs(expectedType, expectedSubtype, raw, allZeroOK)
		if err == nil {
			e.Stats.Record(class, KindNone, attempt)
			e.debugf("write-read ok", "tag", req.Tag, "attempt", attempt)
			return resp, nil
		}

		de, _ := err.(*DDCError)
		if de == nil {
			de = newErr(KindTransport, "WriteReadWithRetry")
		}
		if isFatal(de.Kind) {
			e.Stats.Record(class, de.Kind, attempt)
			e.errorf("write-read: fatal", "tag", req.Tag, "attempt", attempt, "kind", de.Kind)
			return nil, de
		}
		causes = append(causes, de)
		e.warnf("write-read: decode failed", "tag", req.Tag, "attempt", attempt, "kind", de.Kind)
		if attempt < capN {
			time.Sleep(backoffFor(attempt, de.Kind))
		}
	}

	final := newErr(KindRetries, "WriteReadWithRetry", causes...)
	e.Stats.Record(class, KindRetries, capN)
	return nil, final
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
