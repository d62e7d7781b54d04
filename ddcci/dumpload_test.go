package ddcci

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() Record {
	values := NewVcpValueSet()
	values.Append(ContinuousValue(0x10, 0, 50))
	values.Append(ContinuousValue(0x12, 0, 75))
	values.Append(ContinuousValue(0x14, 0, 6))

	var edid [128]byte
	for i := range edid {
		if i%2 == 0 {
			edid[i] = 0xFF
		}
	}

	return Record{
		TimestampMillis: 1700000000000,
		VCPVersion:      VCPVersion{Major: 2, Minor: 1},
		MfgID:           "ABC",
		Model:           "Model X",
		Serial:          "SN123",
		EDID:            edid,
		Values:          values,
	}
}

func TestDumpLoadRoundTripScenarioS6(t *testing.T) {
	rec := sampleRecord()
	text := Serialize(rec, "20231114-120000")

	parsed, err := Parse(strings.NewReader(text), &stubRegistry{})
	require.NoError(t, err)

	assert.Equal(t, rec.TimestampMillis, parsed.TimestampMillis)
	assert.Equal(t, rec.VCPVersion, parsed.VCPVersion)
	assert.Equal(t, rec.MfgID, parsed.MfgID)
	assert.Equal(t, rec.Model, parsed.Model)
	assert.Equal(t, rec.Serial, parsed.Serial)
	assert.Equal(t, rec.EDID, parsed.EDID)

	for _, v := range rec.Values.All() {
		got, ok := parsed.Values.Get(v.Code)
		require.True(t, ok)
		assert.True(t, v.Equal(got))
	}
}

func TestParseSkipsCommentsAndBlankLines(t *testing.T) {
	text := "# a comment\n\nMFG_ID ABC\n* another comment\nMODEL Model X\nSN SN123\n" +
		"EDID " + strings.Repeat("00", 128) + "\n"
	rec, err := Parse(strings.NewReader(text), &stubRegistry{})
	require.NoError(t, err)
	assert.Equal(t, "ABC", rec.MfgID)
	assert.Equal(t, "Model X", rec.Model)
}

func TestParseUnrecognizedTokenIsInvalidData(t *testing.T) {
	_, err := Parse(strings.NewReader("BOGUS foo\n"), &stubRegistry{})
	assert.Equal(t, KindInvalidData, KindOf(err))
}

func TestParseVCPLineOddLengthTableIsDoubleByte(t *testing.T) {
	reg := &stubRegistry{tableCodes: map[byte]bool{0xE0: true}}
	_, err := Parse(strings.NewReader("VCP E0 ABC\n"), reg)
	assert.Equal(t, KindDoubleByte, KindOf(err))
}

func TestParseVCPVersionDefaultsTo2Dot0(t *testing.T) {
	rec, err := Parse(strings.NewReader("MFG_ID ABC\n"), &stubRegistry{})
	require.NoError(t, err)
	assert.Equal(t, DefaultVCPVersion, rec.VCPVersion)
}

func TestValidateForApplyRequiresFields(t *testing.T) {
	rec := Record{}
	assert.Equal(t, KindInvalidData, KindOf(ValidateForApply(rec)))

	rec.MfgID, rec.Model, rec.Serial = "ABC", "Model X", "SN123"
	rec.EDID[0] = 0xFF
	assert.NoError(t, ValidateForApply(rec))
}

func TestLoadRejectsMismatchedDisplay(t *testing.T) {
	rec := sampleRecord()
	rec.Model = "Wrong Model"

	tr := &scriptedTransport{}
	dh := newFakeDisplay(tr)
	e := newTestEngine()

	err := Load(e, dh, rec)
	assert.Equal(t, KindInvalidDisplay, KindOf(err))
}

func TestLoadAppliesValuesInOrder(t *testing.T) {
	rec := sampleRecord()
	rec.Model, rec.Serial = "Model X", "SN123"

	tr := &scriptedTransport{}
	dh := newFakeDisplay(tr)
	e := newTestEngine()

	require.NoError(t, Load(e, dh, rec))
	require.Len(t, tr.writes, rec.Values.Len())
	for i, v := range rec.Values.All() {
		assert.Equal(t, frameBytes(EncodeSetVCP(v.Code, v.Cur())), tr.writes[i])
	}
}

func TestSuggestFilenameReplacesSpaces(t *testing.T) {
	rec := sampleRecord()
	name := SuggestFilename(rec, "20231114-120000")
	assert.Equal(t, "Model_X-SN123-20231114-120000.vcp", name)
}

func TestDiffRecordsFindsChangedAndMissing(t *testing.T) {
	a := sampleRecord()
	b := sampleRecord()
	b.Values = NewVcpValueSet()
	b.Values.Append(ContinuousValue(0x10, 0, 99))
	b.Values.Append(ContinuousValue(0x12, 0, 75))

	diffs := DiffRecords(a, b)

	var codes []byte
	for _, d := range diffs {
		codes = append(codes, d.Code)
	}
	assert.Contains(t, codes, byte(0x10))
	assert.Contains(t, codes, byte(0x14))
	assert.NotContains(t, codes, byte(0x12))
}
