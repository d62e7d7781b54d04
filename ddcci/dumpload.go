package ddcci

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Record is a dumpload profile: enough of a monitor's identity and VCP
// values to serialize, parse back, and reapply to a matching display.
type Record struct {
	TimestampMillis int64
	VCPVersion      VCPVersion
	MfgID           string
	Model           string
	Serial          string
	EDID            [128]byte
	Values          *VcpValueSet
}

// Serialize renders rec in the line-oriented grammar: one field per line,
// in a fixed order, VCP lines last in the set's append order.
func Serialize(rec Record, timestampText string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TIMESTAMP_TEXT %s\n", timestampText)
	fmt.Fprintf(&b, "TIMESTAMP_MILLIS %d\n", rec.TimestampMillis)
	fmt.Fprintf(&b, "MFG_ID %s\n", rec.MfgID)
	fmt.Fprintf(&b, "MODEL %s\n", strings.TrimRight(rec.Model, " "))
	fmt.Fprintf(&b, "SN %s\n", strings.TrimRight(rec.Serial, " "))
	fmt.Fprintf(&b, "EDID %X\n", rec.EDID[:])
	fmt.Fprintf(&b, "VCP_VERSION %d.%d\n", rec.VCPVersion.Major, rec.VCPVersion.Minor)
	if rec.Values != nil {
		for _, v := range rec.Values.All() {
			if v.IsTable() {
				fmt.Fprintf(&b, "VCP %02X %X\n", v.Code, v.TableBytes())
			} else {
				fmt.Fprintf(&b, "VCP %02X %d\n", v.Code, v.Cur())
			}
		}
	}
	return b.String()
}

// lineSource is a lazy sequence of trimmed, non-comment lines, backed by a
// bufio.Scanner so a caller can parse a multi-megabyte dump without
// materializing it as a slice of strings first.
type lineSource struct {
	sc *bufio.Scanner
}

func newLineSource(r io.Reader) *lineSource {
	return &lineSource{sc: bufio.NewScanner(r)}
}

// next returns the next non-blank, non-comment line with only its trailing
// whitespace trimmed (leading whitespace is part of the grammar, not
// incidental formatting, so it is left alone), or false at end of input.
func (s *lineSource) next() (string, bool) {
	for s.sc.Scan() {
		line := strings.TrimRight(s.sc.Text(), " \t\r")
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "*") {
			continue
		}
		return line, true
	}
	return "", false
}

// Parse reads a dumpload record from r. It does not enforce the
// required-before-apply field policy (MODEL/SN/MFG_ID/EDID) — that is
// ValidateForApply's job, run only by Load, since a partially populated
// record is still a legitimate thing to inspect or diff.
func Parse(r io.Reader, registry FeatureRegistry) (Record, error) {
	rec := Record{VCPVersion: DefaultVCPVersion, Values: NewVcpValueSet()}
	src := newLineSource(r)

	for {
		line, ok := src.next()
		if !ok {
			break
		}
		first, rest, _ := cutField(line)
		switch first {
		case "TIMESTAMP_TEXT":
			// informative only; TIMESTAMP_MILLIS is authoritative.
		case "TIMESTAMP_MILLIS":
			n, err := strconv.ParseInt(strings.TrimSpace(rest), 10, 64)
			if err != nil {
				return Record{}, newErr(KindInvalidData, "Parse")
			}
			rec.TimestampMillis = n
		case "MFG_ID":
			rec.MfgID = strings.TrimSpace(rest)
		case "MODEL":
			rec.Model = strings.TrimRight(rest, " \t")
		case "SN":
			rec.Serial = strings.TrimRight(rest, " \t")
		case "EDID", "EDIDSTR":
			hexStr := strings.TrimSpace(rest)
			if len(hexStr) != 256 {
				return Record{}, newErr(KindInvalidData, "Parse")
			}
			if err := decodeHexFixed(hexStr, rec.EDID[:]); err != nil {
				return Record{}, newErr(KindInvalidData, "Parse")
			}
		case "VCP_VERSION":
			major, minor, err := parseVersion(strings.TrimSpace(rest))
			if err != nil {
				return Record{}, newErr(KindInvalidData, "Parse")
			}
			rec.VCPVersion = VCPVersion{Major: major, Minor: minor}
		case "VCP":
			v, err := parseVCPLine(rest, registry, rec.VCPVersion)
			if err != nil {
				return Record{}, err
			}
			rec.Values.Append(v)
		default:
			return Record{}, newErr(KindInvalidData, "Parse")
		}
	}

	return rec, nil
}

// cutField splits a line into its first whitespace-delimited token and the
// remainder (with exactly one separating space/tab consumed, the rest of
// the line's internal spacing preserved for callers like parseVCPLine that
// need a second token).
func cutField(line string) (first, rest string, ok bool) {
	i := strings.IndexAny(line, " \t")
	if i < 0 {
		return line, "", false
	}
	return line[:i], line[i+1:], true
}

func parseVersion(s string) (major, minor uint8, err error) {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("bad version %q", s)
	}
	maj, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, err
	}
	min, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return uint8(maj), uint8(min), nil
}

func parseVCPLine(rest string, registry FeatureRegistry, version VCPVersion) (VcpValue, error) {
	codeStr, valueStr, ok := cutField(rest)
	if !ok {
		return VcpValue{}, newErr(KindInvalidData, "parseVCPLine")
	}
	codeN, err := strconv.ParseUint(codeStr, 16, 8)
	if err != nil {
		return VcpValue{}, newErr(KindInvalidData, "parseVCPLine")
	}
	code := byte(codeN)
	valueStr = strings.TrimSpace(valueStr)

	isTable := false
	if registry != nil {
		if entry, ok := registry.FindByCode(code); ok {
			isTable = registry.IsTable(entry, version)
		}
	}

	if isTable {
		if len(valueStr)%2 != 0 {
			return VcpValue{}, newErr(KindDoubleByte, "parseVCPLine")
		}
		data := make([]byte, len(valueStr)/2)
		if err := decodeHexFixed(valueStr, data); err != nil {
			return VcpValue{}, newErr(KindInvalidData, "parseVCPLine")
		}
		return TableValue(code, data), nil
	}

	n, err := strconv.ParseUint(valueStr, 10, 16)
	if err != nil {
		return VcpValue{}, newErr(KindInvalidData, "parseVCPLine")
	}
	return ContinuousValue(code, 0, uint16(n)), nil
}

func decodeHexFixed(s string, out []byte) error {
	if len(s) != 2*len(out) {
		return fmt.Errorf("hex length mismatch")
	}
	for i := range out {
		n, err := strconv.ParseUint(s[2*i:2*i+2], 16, 8)
		if err != nil {
			return err
		}
		out[i] = byte(n)
	}
	return nil
}

// ValidateForApply enforces the field policy Load requires before it will
// touch hardware: MODEL, SN, MFG_ID, and EDID must all be present.
func ValidateForApply(rec Record) error {
	if rec.MfgID == "" || rec.Model == "" || rec.Serial == "" || bytes.Equal(rec.EDID[:], make([]byte, 128)) {
		return newErr(KindInvalidData, "ValidateForApply")
	}
	return nil
}

// CollectProfileSubsetValues dumps the Profile feature subset: each member
// is read with GetValue; ReportedUnsupported (and the other
// not-actually-there kinds) are treated as a skip rather than an abort, any
// other error aborts the whole dump.
func CollectProfileSubsetValues(e *Engine, dh DisplayHandle) (*VcpValueSet, error) {
	out := NewVcpValueSet()
	members := e.Registry.SubsetMembers(Subset{Kind: SubsetProfile}, DefaultVCPVersion)
	for _, entry := range members {
		isTable := e.Registry.IsTable(entry, DefaultVCPVersion)
		v, err := GetValue(e, dh, entry.Code, isTable)
		switch KindOf(err) {
		case KindNone:
			out.Append(v)
		case KindReportedUnsupported, KindNullResponse, KindReadAllZero, KindDeterminedUnsupported:
			continue
		default:
			return nil, err
		}
	}
	return out, nil
}

// Dump builds a Record for dh: model, serial, EDID and MCCS version taken
// from the handle, values from CollectProfileSubsetValues. MfgID is left
// empty, since DisplayHandle does not expose a manufacturer id.
func Dump(e *Engine, dh DisplayHandle, timestampMillis int64) (Record, error) {
	values, err := CollectProfileSubsetValues(e, dh)
	if err != nil {
		return Record{}, err
	}
	major, minor := dh.MCCSVersion()
	return Record{
		TimestampMillis: timestampMillis,
		VCPVersion:      VCPVersion{Major: major, Minor: minor},
		Model:           dh.Model(),
		Serial:          dh.Serial(),
		EDID:            dh.EDID(),
		Values:          values,
	}, nil
}

// Load applies rec to dh: validates the required fields, verifies rec's
// model/serial match dh's, then calls SetValue for every value in order,
// stopping at the first failure.
func Load(e *Engine, dh DisplayHandle, rec Record) error {
	if err := ValidateForApply(rec); err != nil {
		return err
	}
	if rec.Model != dh.Model() || rec.Serial != dh.Serial() {
		return newErr(KindInvalidDisplay, "Load")
	}
	if rec.Values == nil {
		return nil
	}
	for _, v := range rec.Values.All() {
		if _, _, err := SetValue(e, dh, v); err != nil {
			return err
		}
	}
	return nil
}

// SuggestFilename builds the canonical auto-generated filename for rec:
// <model>-<serial>-YYYYMMDD-HHMMSS.vcp, spaces replaced with underscores.
func SuggestFilename(rec Record, timestampText string) string {
	name := fmt.Sprintf("%s-%s-%s.vcp", rec.Model, rec.Serial, timestampText)
	return strings.ReplaceAll(name, " ", "_")
}

// VcpDiff is one opcode-level difference found by DiffRecords.
type VcpDiff struct {
	Code byte
	InA  bool
	InB  bool
	A    VcpValue
	B    VcpValue
}

// DiffRecords compares a and b's value sets by opcode, reporting every code
// present in only one side or whose values differ under VcpValue.Equal.
func DiffRecords(a, b Record) []VcpDiff {
	seen := make(map[byte]bool)
	var diffs []VcpDiff

	check := func(code byte) {
		if seen[code] {
			return
		}
		seen[code] = true
		va, inA := a.Values.Get(code)
		vb, inB := b.Values.Get(code)
		if inA && inB && va.Equal(vb) {
			return
		}
		diffs = append(diffs, VcpDiff{Code: code, InA: inA, InB: inB, A: va, B: vb})
	}

	if a.Values != nil {
		for _, v := range a.Values.All() {
			check(v.Code)
		}
	}
	if b.Values != nil {
		for _, v := range b.Values.All() {
			check(v.Code)
		}
	}
	return diffs
}
