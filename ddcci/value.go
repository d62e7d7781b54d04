package ddcci

import (
	"bytes"
	"fmt"
)

// ValueKind tags a VcpValue as carrying a non-table or table payload. This
// is a plain two-case tagged union rather than two parallel value types.
type ValueKind int

const (
	ValueNonTable ValueKind = iota
	ValueTable
)

// VcpValue is a VCP feature's value: either the four raw bytes of a
// non-table response (plus derived cur/max), or an owned table byte string.
type VcpValue struct {
	Code byte
	kind ValueKind

	mh, ml, sh, sl byte
	table          []byte
}

// NonTableValue builds a non-table value from its four raw wire bytes.
func NonTableValue(code, mh, ml, sh, sl byte) VcpValue {
	return VcpValue{Code: code, kind: ValueNonTable, mh: mh, ml: ml, sh: sh, sl: sl}
}

// ContinuousValue builds a non-table value from its derived max/current
// numbers, the common case for features whose type byte marks them
// continuous.
func ContinuousValue(code byte, max, cur uint16) VcpValue {
	return NonTableValue(code, byte(max>>8), byte(max), byte(cur>>8), byte(cur))
}

// TableValue builds a table value from an owned copy of the given bytes.
func TableValue(code byte, data []byte) VcpValue {
	return VcpValue{Code: code, kind: ValueTable, table: append([]byte(nil), data...)}
}

func (v VcpValue) Kind() ValueKind { return v.kind }
func (v VcpValue) IsTable() bool   { return v.kind == ValueTable }

// Max returns the non-table max value. Zero for a table value.
func (v VcpValue) Max() uint16 {
	if v.kind != ValueNonTable {
		return 0
	}
	return uint16(v.mh)<<8 | uint16(v.ml)
}

// Cur returns the non-table current value. Zero for a table value.
func (v VcpValue) Cur() uint16 {
	if v.kind != ValueNonTable {
		return 0
	}
	return uint16(v.sh)<<8 | uint16(v.sl)
}

// TableBytes returns the table payload. Nil for a non-table value.
func (v VcpValue) TableBytes() []byte {
	if v.kind != ValueTable {
		return nil
	}
	return v.table
}

// Equal reports whether two values would be considered the same reading:
// same opcode and type tag, and for non-table values only the low byte (sl)
// need match, since panels echo the high bytes of a readback inconsistently.
// Table values compare byte-for-byte.
func (v VcpValue) Equal(other VcpValue) bool {
	if v.Code != other.Code || v.kind != other.kind {
		return false
	}
	if v.kind == ValueTable {
		return bytes.Equal(v.table, other.table)
	}
	return v.sl == other.sl
}

func (v VcpValue) String() string {
	if v.kind == ValueTable {
		return fmt.Sprintf("0x%02X=table[%d]", v.Code, len(v.table))
	}
	return fmt.Sprintf("0x%02X=%d/%d", v.Code, v.Cur(), v.Max())
}

// VcpValueSet is an ordered, append-only sequence of VcpValues keyed by
// opcode. It does not deduplicate; Get returns the last-appended value for a
// code, since that is the one that wins when the set is applied.
type VcpValueSet struct {
	values []VcpValue
}

func NewVcpValueSet() *VcpValueSet { return &VcpValueSet{} }

func (s *VcpValueSet) Append(v VcpValue) { s.values = append(s.values, v) }

func (s *VcpValueSet) Len() int { return len(s.values) }

func (s *VcpValueSet) At(i int) VcpValue { return s.values[i] }

// Get returns the last value appended for code, if any.
func (s *VcpValueSet) Get(code byte) (VcpValue, bool) {
	for i := len(s.values) - 1; i >= 0; i-- {
		if s.values[i].Code == code {
			return s.values[i], true
		}
	}
	return VcpValue{}, false
}

// All returns the set's values in append order.
func (s *VcpValueSet) All() []VcpValue {
	return s.values
}
