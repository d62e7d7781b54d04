// Package simtransport provides a pty-backed simulated DDC/CI transport: one
// side is driven by a scripted "monitor" responder goroutine, the other is
// handed back as a ddcci.Transport. It exists for the CLI's --simulate mode
// and for integration tests that want a realistic two-sided byte stream
// without real I2C hardware.
package simtransport

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"

	"github.com/ddcgo/ddcmccs/ddcci"
)

const (
	frameDestAddr byte = 0x6E
	hostSeed      byte = 0x51
	displaySeed   byte = 0x6E

	maxFragmentData   = ddcci.MaxFragment - 3 // capabilities fragment header is 3 bytes
	maxTableReadChunk = ddcci.MaxFragment - 4 // table-read fragment header is 4 bytes
)

func xorAll(bs []byte) byte {
	var v byte
	for _, b := range bs {
		v ^= b
	}
	return v
}

func buildFrame(payload []byte, seed byte) []byte {
	out := make([]byte, 0, 2+len(payload)+1)
	out = append(out, frameDestAddr, 0x80|byte(len(payload)))
	out = append(out, payload...)
	out = append(out, xorAll(out)^seed)
	return out
}

func readFrame(r *bufio.Reader) ([]byte, error) {
	header := make([]byte, 2)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}
	n := int(header[1] & 0x7F)
	rest := make([]byte, n+1)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, err
	}
	out := append(header, rest...)
	return out, nil
}

// Feature is one VCP feature's simulated state.
type Feature struct {
	Max uint16
	Cur uint16
}

// Monitor holds the simulated state a scripted display responds from:
// non-table VCP features, a capabilities string, and table feature buffers.
type Monitor struct {
	mu           sync.Mutex
	Features     map[byte]*Feature
	Capabilities string
	tables       map[byte][]byte
	tableBuild   map[byte][]byte
}

// NewMonitor returns a Monitor pre-populated with a handful of common VCP
// features (brightness, contrast) and a minimal capabilities string, enough
// for the CLI's --simulate mode to exercise a realistic session without
// further scripting.
func NewMonitor() *Monitor {
	return &Monitor{
		Features: map[byte]*Feature{
			0x10: {Max: 100, Cur: 50}, // brightness
			0x12: {Max: 100, Cur: 75}, // contrast
		},
		Capabilities: "(prot(monitor)type(lcd)model(sim)cmds(01 02 03 0c e3 f3)vcp(10 12))",
		tables:       map[byte][]byte{},
		tableBuild:   map[byte][]byte{},
	}
}

// SetFeature overrides or adds a non-table feature's simulated state.
func (m *Monitor) SetFeature(code byte, max, cur uint16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Features[code] = &Feature{Max: max, Cur: cur}
}

// respond decodes one raw incoming request frame and returns the raw
// response frame to send back, or nil for requests that get no reply
// (set-vcp, save-settings, and every table-write fragment).
func (m *Monitor) respond(raw []byte) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := int(raw[1] & 0x7F)
	payload := raw[2 : 2+n]
	if len(payload) == 0 {
		return nil
	}

	switch payload[0] {
	case 0x01: // VCP get request
		code := payload[1]
		f, ok := m.Features[code]
		if !ok {
			return buildFrame([]byte{0x02, 0x01, code, 0x00, 0x00, 0x00, 0x00, 0x00}, displaySeed)
		}
		resp := []byte{
			0x02, 0x00, code, 0x00,
			byte(f.Max >> 8), byte(f.Max),
			byte(f.Cur >> 8), byte(f.Cur),
		}
		return buildFrame(resp, displaySeed)

	case 0x03: // VCP set request
		code := payload[1]
		value := uint16(payload[2])<<8 | uint16(payload[3])
		if f, ok := m.Features[code]; ok {
			f.Cur = value
		} else {
			m.Features[code] = &Feature{Max: value, Cur: value}
		}
		return nil

	case 0xF3: // capabilities request
		offset := int(uint16(payload[1])<<8 | uint16(payload[2]))
		data := []byte(m.Capabilities)
		var chunk []byte
		if offset < len(data) {
			end := offset + maxFragmentData
			if end > len(data) {
				end = len(data)
			}
			chunk = data[offset:end]
		}
		resp := append([]byte{0xE3, byte(offset >> 8), byte(offset)}, chunk...)
		return buildFrame(resp, displaySeed)

	case 0xE2: // table read request
		subtype := payload[1]
		offset := int(uint16(payload[2])<<8 | uint16(payload[3]))
		data := m.tables[subtype]
		var chunk []byte
		if offset < len(data) {
			end := offset + maxTableReadChunk
			if end > len(data) {
				end = len(data)
			}
			chunk = data[offset:end]
		}
		resp := append([]byte{0xE4, subtype, byte(offset >> 8), byte(offset)}, chunk...)
		return buildFrame(resp, displaySeed)

	case 0xE7: // table write request
		subtype := payload[1]
		offset := int(uint16(payload[2])<<8 | uint16(payload[3]))
		data := payload[4:]
		if len(data) == 0 {
			m.tables[subtype] = m.tableBuild[subtype]
			delete(m.tableBuild, subtype)
			return nil
		}
		buf := m.tableBuild[subtype]
		for len(buf) < offset {
			buf = append(buf, 0)
		}
		buf = append(buf[:offset], data...)
		m.tableBuild[subtype] = buf
		return nil

	case 0x0C: // save settings
		return nil

	default:
		return nil
	}
}

// Transport is a ddcci.Transport backed by the master side of a pty whose
// slave side is driven by a Monitor responder goroutine.
type Transport struct {
	ptmx *os.File
	pts  *os.File
}

func Open(monitor *Monitor) (*Transport, error) {
	ptmx, pts, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("simtransport: open pty: %w", err)
	}
	// Put the pty in raw mode: no echo, no line buffering, no byte
	// translation, so frames pass through byte-for-byte.
	fd := int(pts.Fd())
	tio, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err == nil {
		tio.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
		tio.Oflag &^= unix.OPOST
		tio.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
		err = unix.IoctlSetTermios(fd, unix.TCSETS, tio)
	}
	if err != nil {
		ptmx.Close()
		pts.Close()
		return nil, fmt.Errorf("simtransport: set pty raw mode: %w", err)
	}
	t := &Transport{ptmx: ptmx, pts: pts}
	go serve(pts, monitor)
	return t, nil
}

func serve(pts *os.File, monitor *Monitor) {
	r := bufio.NewReader(pts)
	for {
		req, err := readFrame(r)
		if err != nil {
			return
		}
		if resp := monitor.respond(req); resp != nil {
			if _, err := pts.Write(resp); err != nil {
				return
			}
		}
	}
}

func (t *Transport) Close() error {
	t.pts.Close()
	return t.ptmx.Close()
}

func (t *Transport) Write(data []byte) error {
	_, err := t.ptmx.Write(data)
	if err != nil {
		return fmt.Errorf("simtransport: write: %w", err)
	}
	return nil
}

func (t *Transport) Read(maxBytes int) ([]byte, error) {
	buf := make([]byte, maxBytes)
	n, err := t.ptmx.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("simtransport: read: %w", err)
	}
	return buf[:n], nil
}

func (t *Transport) Functionality() ddcci.Functionality {
	return ddcci.Functionality{Name: "sim:" + t.pts.Name(), MaxPayload: ddcci.MaxFragment}
}

// Handle is a ddcci.DisplayHandle backed by a simulated Transport, useful for
// the CLI's --simulate mode and for integration tests.
type Handle struct {
	Tr          *Transport
	EDIDBytes   [128]byte
	ModelStr    string
	SerialStr   string
	MCCSMajor   uint8
	MCCSMinor   uint8
	SettleDelay time.Duration
	DisplayTag  string
}

func (h *Handle) Transport() ddcci.Transport         { return h.Tr }
func (h *Handle) EDID() [128]byte                    { return h.EDIDBytes }
func (h *Handle) Model() string                      { return h.ModelStr }
func (h *Handle) Serial() string                     { return h.SerialStr }
func (h *Handle) MCCSVersion() (major, minor uint8)  { return h.MCCSMajor, h.MCCSMinor }
func (h *Handle) Tag() string                        { return h.DisplayTag }
func (h *Handle) WriteToReadDelay() time.Duration    { return h.SettleDelay }

// NewHandle wraps a simulated Transport with display identity fields
// suitable for --simulate mode.
func NewHandle(tr *Transport) *Handle {
	return &Handle{
		Tr:          tr,
		ModelStr:    "Simulated Display",
		SerialStr:   "SIM0001",
		MCCSMajor:   2,
		MCCSMinor:   1,
		SettleDelay: 50 * time.Millisecond,
		DisplayTag:  "sim0",
	}
}
