package ddcci

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies the terminal status of a DDC/CI exchange. The zero value,
// KindNone, is not an error — it is the bucket retry statistics use to count
// a clean success, so that Record's "status" argument can cover both
// outcomes without a separate success flag.
type Kind int

const (
	KindNone Kind = iota

	// Structural
	KindPacketSize
	KindResponseEnvelope
	KindChecksum
	KindResponseType
	KindInvalidData
	KindCapabilitiesFragment
	KindDoubleByte
	KindBadByteCount
	KindReadEqualsWrite
	KindInvalidMode

	// Semantic
	KindNullResponse
	KindReadAllZero
	KindAllTriesZero
	KindReportedUnsupported
	KindDeterminedUnsupported
	KindUnknownFeature
	KindInvalidOperation
	KindInvalidDisplay
	KindVerify
	KindMultiPartReadFragment
	KindUnimplemented
	KindInterpretationFailed

	// Aggregated
	KindRetries

	// Wrapped host-OS I/O error (see wrapTransport), also used for a
	// failure that did not arrive as a *DDCError.
	KindTransport
)

var kindNames = map[Kind]string{
	KindNone:                  "none",
	KindPacketSize:            "PacketSize",
	KindResponseEnvelope:      "ResponseEnvelope",
	KindChecksum:              "Checksum",
	KindResponseType:          "ResponseType",
	KindInvalidData:           "InvalidData",
	KindCapabilitiesFragment:  "CapabilitiesFragment",
	KindDoubleByte:            "DoubleByte",
	KindBadByteCount:          "BadByteCount",
	KindReadEqualsWrite:       "ReadEqualsWrite",
	KindInvalidMode:           "InvalidMode",
	KindNullResponse:          "NullResponse",
	KindReadAllZero:           "ReadAllZero",
	KindAllTriesZero:          "AllTriesZero",
	KindReportedUnsupported:  "ReportedUnsupported",
	KindDeterminedUnsupported: "DeterminedUnsupported",
	KindUnknownFeature:        "UnknownFeature",
	KindInvalidOperation:      "InvalidOperation",
	KindInvalidDisplay:        "InvalidDisplay",
	KindVerify:                "Verify",
	KindMultiPartReadFragment: "MultiPartReadFragment",
	KindUnimplemented:         "Unimplemented",
	KindInterpretationFailed:  "InterpretationFailed",
	KindRetries:               "Retries",
	KindTransport:             "Transport",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// DDCError is the cause-chain error type used throughout this package. It is
// built bottom-up by the exchange and multi-part engines: each retry attempt
// that fails contributes one DDCError, and the final Retries error carries
// all of them as Causes. The chain is finite (bounded by a retry cap) and
// acyclic by construction — an attempt can only ever cite errors from
// strictly earlier attempts.
type DDCError struct {
	Kind   Kind
	Func   string
	Causes []error
	Err    error // wrapped host-OS error, set only when Kind == KindTransport
}

func newErr(kind Kind, fn string, causes ...error) *DDCError {
	return &DDCError{Kind: kind, Func: fn, Causes: causes}
}

// wrapTransport wraps a raw host-OS error (e.g. from a Transport
// implementation) as a DDCError so the rest of this package only ever has to
// reason about one error type.
func wrapTransport(fn string, err error) *DDCError {
	if err == nil {
		return nil
	}
	return &DDCError{Kind: KindTransport, Func: fn, Err: err}
}

func (e *DDCError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Func != "" {
		b.WriteString(" in ")
		b.WriteString(e.Func)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %s", e.Err)
	}
	if len(e.Causes) > 0 {
		fmt.Fprintf(&b, " (%d cause(s))", len(e.Causes))
	}
	return b.String()
}

// Unwrap exposes the sub-cause chain to errors.Is / errors.As via Go's
// multi-error unwrap convention.
func (e *DDCError) Unwrap() []error {
	if e.Err != nil {
		return append([]error{e.Err}, e.Causes...)
	}
	return e.Causes
}

// KindOf returns the Kind carried by err if it is (or wraps) a *DDCError,
// and KindTransport for any other non-nil error. A nil err reports KindNone.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var de *DDCError
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindTransport
}
