package ddcci

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *Engine {
	return NewEngine(&stubRegistry{})
}

func TestWriteOnlyWithRetrySucceedsFirstTry(t *testing.T) {
	tr := &scriptedTransport{}
	dh := newFakeDisplay(tr)
	e := newTestEngine()

	err := WriteOnlyWithRetry(e, dh, EncodeSaveSettings(), ClassWriteOnly)
	require.NoError(t, err)
	assert.Len(t, tr.writes, 1)
}

func TestWriteOnlyWithRetryRetriesOnTransportError(t *testing.T) {
	tr := &scriptedTransport{writeErrs: []error{errors.New("boom"), nil}}
	dh := newFakeDisplay(tr)
	e := newTestEngine()

	err := WriteOnlyWithRetry(e, dh, EncodeSaveSettings(), ClassWriteOnly)
	require.NoError(t, err)
	assert.Len(t, tr.writes, 2)
}

func TestWriteOnlyWithRetryExhaustion(t *testing.T) {
	tr := &scriptedTransport{writeErrs: []error{errors.New("a"), errors.New("b"), errors.New("c")}}
	dh := newFakeDisplay(tr)
	e := newTestEngine()

	err := WriteOnlyWithRetry(e, dh, EncodeSaveSettings(), ClassWriteOnly)
	require.Error(t, err)
	assert.Equal(t, KindRetries, KindOf(err))

	de := err.(*DDCError)
	assert.Len(t, de.Causes, DefaultCap)
}

func TestWriteReadWithRetryScenarioS1(t *testing.T) {
	payload := []byte{0x02, 0x00, 0x10, 0x00, 0x00, 0x64, 0x00, 0x32}
	raw := buildResponseFrame(PacketVCPGetResponse, payload)
	tr := &scriptedTransport{reads: [][]byte{raw}}
	dh := newFakeDisplay(tr)
	e := newTestEngine()

	resp, err := WriteReadWithRetry(e, dh, EncodeGetVCP(0x10), 20, PacketVCPGetResponse, 0x10, ClassWriteRead, false)
	require.NoError(t, err)
	assert.Equal(t, uint16(100), resp.NonTable.MaxValue())
	assert.Equal(t, uint16(50), resp.NonTable.CurValue())
}

func TestWriteReadWithRetryFatalStopsImmediately(t *testing.T) {
	payload := []byte{0x02, 0x01, 0xFE, 0x00, 0x00, 0x00, 0x00, 0x00}
	raw := buildResponseFrame(PacketVCPGetResponse, payload)
	tr := &scriptedTransport{reads: [][]byte{raw, raw, raw}}
	dh := newFakeDisplay(tr)
	e := newTestEngine()

	_, err := WriteReadWithRetry(e, dh, EncodeGetVCP(0xFE), 20, PacketVCPGetResponse, 0xFE, ClassWriteRead, false)
	require.Error(t, err)
	assert.Equal(t, KindReportedUnsupported, KindOf(err))
	assert.Equal(t, 1, tr.readCalls)
}

func TestWriteReadWithRetryScenarioS5RetryExhaustion(t *testing.T) {
	payload := []byte{0x02, 0x00, 0x10, 0x00, 0x00, 0x64, 0x00, 0x32}
	raw := buildResponseFrame(PacketVCPGetResponse, payload)
	raw[len(raw)-1] ^= 0xFF // mangle checksum
	tr := &scriptedTransport{reads: [][]byte{raw, raw, raw}}
	dh := newFakeDisplay(tr)
	e := newTestEngine()

	_, err := WriteReadWithRetry(e, dh, EncodeGetVCP(0x10), 20, PacketVCPGetResponse, 0x10, ClassWriteRead, false)
	require.Error(t, err)
	assert.Equal(t, KindRetries, KindOf(err))

	de := err.(*DDCError)
	require.Len(t, de.Causes, DefaultCap)
	for _, c := range de.Causes {
		assert.Equal(t, KindChecksum, KindOf(c))
	}
}

func TestWriteReadWithRetryDetectsBusEcho(t *testing.T) {
	req := EncodeGetVCP(0x10)
	wire := frameBytes(req)
	payload := []byte{0x02, 0x00, 0x10, 0x00, 0x00, 0x64, 0x00, 0x32}
	good := buildResponseFrame(PacketVCPGetResponse, payload)
	tr := &scriptedTransport{reads: [][]byte{wire, good}}
	dh := newFakeDisplay(tr)
	e := newTestEngine()

	resp, err := WriteReadWithRetry(e, dh, req, 20, PacketVCPGetResponse, 0x10, ClassWriteRead, false)
	require.NoError(t, err)
	assert.NotNil(t, resp.NonTable)
	assert.Equal(t, 2, tr.readCalls)
}
