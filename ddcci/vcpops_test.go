package ddcci

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetNontableScenarioS1(t *testing.T) {
	payload := []byte{0x02, 0x00, 0x10, 0x00, 0x00, 0x64, 0x00, 0x32}
	raw := buildResponseFrame(PacketVCPGetResponse, payload)
	tr := &scriptedTransport{reads: [][]byte{raw}}
	dh := newFakeDisplay(tr)
	e := newTestEngine()

	nt, err := GetNontable(e, dh, 0x10)
	require.NoError(t, err)
	assert.Equal(t, uint16(100), nt.MaxValue())
	assert.Equal(t, uint16(50), nt.CurValue())
}

func TestGetNontableScenarioS4Unsupported(t *testing.T) {
	payload := []byte{0x02, 0x01, 0xFE, 0x00, 0x00, 0x00, 0x00, 0x00}
	raw := buildResponseFrame(PacketVCPGetResponse, payload)
	tr := &scriptedTransport{reads: [][]byte{raw}}
	dh := newFakeDisplay(tr)
	e := newTestEngine()

	_, err := GetNontable(e, dh, 0xFE)
	assert.Equal(t, KindReportedUnsupported, KindOf(err))
}

func TestSetNontableSendsSetVCP(t *testing.T) {
	tr := &scriptedTransport{}
	dh := newFakeDisplay(tr)
	e := newTestEngine()

	require.NoError(t, SetNontable(e, dh, 0x10, 0x0032))
	require.Len(t, tr.writes, 1)
	assert.Equal(t, frameBytes(EncodeSetVCP(0x10, 0x0032)), tr.writes[0])
}

func TestSetValueWithoutVerification(t *testing.T) {
	tr := &scriptedTransport{}
	dh := newFakeDisplay(tr)
	e := newTestEngine()

	_, ok, err := SetValue(e, dh, ContinuousValue(0x10, 100, 50))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, tr.writes, 1)
}

func TestSetValueWithVerificationSuccess(t *testing.T) {
	payload := []byte{0x02, 0x00, 0x10, 0x00, 0x00, 0x00, 0x00, 0x32}
	raw := buildResponseFrame(PacketVCPGetResponse, payload)
	tr := &scriptedTransport{reads: [][]byte{raw}}
	dh := newFakeDisplay(tr)
	e := newTestEngine()
	e.SetVerify(true)

	readBack, ok, err := SetValue(e, dh, ContinuousValue(0x10, 0, 0x32))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint16(0x32), readBack.Cur())
}

func TestSetValueWithVerificationMismatch(t *testing.T) {
	payload := []byte{0x02, 0x00, 0x10, 0x00, 0x00, 0x00, 0x00, 0x11}
	raw := buildResponseFrame(PacketVCPGetResponse, payload)
	tr := &scriptedTransport{reads: [][]byte{raw}}
	dh := newFakeDisplay(tr)
	e := newTestEngine()
	e.SetVerify(true)

	_, _, err := SetValue(e, dh, ContinuousValue(0x10, 0, 0x32))
	assert.Equal(t, KindVerify, KindOf(err))
}

func TestSetValueNeverVerifiesNonRereadableException(t *testing.T) {
	tr := &scriptedTransport{}
	dh := newFakeDisplay(tr)
	e := newTestEngine()
	e.SetVerify(true)

	_, ok, err := SetValue(e, dh, ContinuousValue(0x60, 0, 1))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, tr.readCalls)
}

func TestProbeSupportedTreatsUnsupportedAsFalse(t *testing.T) {
	unsupported := buildResponseFrame(PacketVCPGetResponse, []byte{0x02, 0x01, 0xFE, 0, 0, 0, 0, 0})
	supported := buildResponseFrame(PacketVCPGetResponse, []byte{0x02, 0x00, 0x10, 0, 0, 0, 0, 1})
	tr := &scriptedTransport{reads: [][]byte{supported, unsupported}}
	dh := newFakeDisplay(tr)
	e := newTestEngine()

	result, err := ProbeSupported(e, dh, []byte{0x10, 0xFE}, func(byte) bool { return false })
	require.NoError(t, err)
	assert.True(t, result[0x10])
	assert.False(t, result[0xFE])
}
