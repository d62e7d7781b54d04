package ddcci

import (
	"time"
)

// scriptedTransport replays a fixed sequence of responses for successive
// Read calls and records every Write, for exercising the retry engines
// without real hardware.
type scriptedTransport struct {
	writes     [][]byte
	reads      [][]byte
	readErrs   []error
	writeErrs  []error
	readCalls  int
	writeCalls int
}

func (s *scriptedTransport) Write(data []byte) error {
	s.writes = append(s.writes, append([]byte(nil), data...))
	var err error
	if s.writeCalls < len(s.writeErrs) {
		err = s.writeErrs[s.writeCalls]
	}
	s.writeCalls++
	return err
}

func (s *scriptedTransport) Read(maxBytes int) ([]byte, error) {
	defer func() { s.readCalls++ }()
	var err error
	if s.readCalls < len(s.readErrs) {
		err = s.readErrs[s.readCalls]
	}
	if s.readCalls < len(s.reads) {
		return s.reads[s.readCalls], err
	}
	return nil, err
}

func (s *scriptedTransport) Functionality() Functionality {
	return Functionality{Name: "scripted", MaxPayload: MaxFragment}
}

// fakeDisplay is a minimal DisplayHandle wrapping a scriptedTransport, for
// tests that don't care about EDID/model/serial.
type fakeDisplay struct {
	t     *scriptedTransport
	delay time.Duration
}

func (d *fakeDisplay) Transport() Transport             { return d.t }
func (d *fakeDisplay) EDID() [128]byte                   { return [128]byte{} }
func (d *fakeDisplay) Model() string                     { return "Model X" }
func (d *fakeDisplay) Serial() string                    { return "SN123" }
func (d *fakeDisplay) MCCSVersion() (major, minor uint8) { return 2, 0 }
func (d *fakeDisplay) Tag() string                       { return "fake" }
func (d *fakeDisplay) WriteToReadDelay() time.Duration   { return d.delay }

func newFakeDisplay(tr *scriptedTransport) *fakeDisplay {
	return &fakeDisplay{t: tr}
}

// stubRegistry is a minimal FeatureRegistry for tests: every code is
// readable/writable/non-table unless listed in tableCodes.
type stubRegistry struct {
	tableCodes map[byte]bool
}

func (r *stubRegistry) FindByCode(code byte) (FeatureEntry, bool) {
	return FeatureEntry{Code: code, Name: "test"}, true
}

func (r *stubRegistry) IsReadable(entry FeatureEntry, version VCPVersion) bool { return true }
func (r *stubRegistry) IsWritable(entry FeatureEntry, version VCPVersion) bool { return true }

func (r *stubRegistry) IsTable(entry FeatureEntry, version VCPVersion) bool {
	return r.tableCodes != nil && r.tableCodes[entry.Code]
}

func (r *stubRegistry) SubsetMembers(subset Subset, version VCPVersion) []FeatureEntry {
	return nil
}
