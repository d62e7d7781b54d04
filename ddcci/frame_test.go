package ddcci

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameBytesGetVCP(t *testing.T) {
	p := EncodeGetVCP(0x10)
	got := frameBytes(p)

	// dest, length=0x82 (2-byte payload), payload 01 10, checksum.
	assert.Equal(t, byte(0x6E), got[0])
	assert.Equal(t, byte(0x82), got[1])
	assert.Equal(t, []byte{0x01, 0x10}, got[2:4])

	seed := checksumSeedFor(PacketVCPGetRequest)
	assert.Equal(t, xorAll(got[:len(got)-1])^seed, got[len(got)-1])
}

func TestFrameBytesSetVCPScenario(t *testing.T) {
	// S2: setvcp 0x10 = 0x0032 -> payload 03 10 00 32, dest 0x6E, length 0x84.
	p := EncodeSetVCP(0x10, 0x0032)
	got := frameBytes(p)

	assert.Equal(t, byte(0x6E), got[0])
	assert.Equal(t, byte(0x84), got[1])
	assert.Equal(t, []byte{0x03, 0x10, 0x00, 0x32}, got[2:6])

	seed := checksumSeedFor(PacketVCPSetRequest)
	assert.Equal(t, xorAll(got[:len(got)-1])^seed, got[len(got)-1])
}

func TestChecksumSeedByRole(t *testing.T) {
	assert.Equal(t, pseudoHostSource, checksumSeedFor(PacketVCPGetRequest))
	assert.Equal(t, pseudoDisplaySource, checksumSeedFor(PacketVCPGetResponse))
	assert.Equal(t, pseudoDisplaySource, checksumSeedFor(PacketCapabilitiesResponse))
	assert.Equal(t, pseudoHostSource, checksumSeedFor(PacketSaveSettings))
}

func TestLengthByteLowSevenBitsMatchPayload(t *testing.T) {
	for n := 0; n <= MaxFragment; n++ {
		p := &Packet{Type: PacketVCPSetRequest, Payload: make([]byte, n)}
		wire := frameBytes(p)
		assert.Equal(t, byte(n), wire[1]&0x7F)
		assert.NotZero(t, wire[1]&0x80)
	}
}

func TestXorAllEmpty(t *testing.T) {
	assert.Equal(t, byte(0), xorAll(nil))
}
