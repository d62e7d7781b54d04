// Package i2ctransport implements ddcci.Transport over a Linux /dev/i2c-*
// character device, addressing the DDC/CI slave via the I2C_SLAVE ioctl.
package i2ctransport

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/jochenvg/go-udev"
	"golang.org/x/sys/unix"

	"github.com/ddcgo/ddcmccs/ddcci"
)

// ddcSlaveAddr is the fixed 7-bit I2C address every DDC/CI-capable display
// answers on.
const ddcSlaveAddr = 0x37

// i2cSlave is the ioctl request code to bind a file descriptor to a slave
// address (linux/i2c-dev.h I2C_SLAVE); golang.org/x/sys/unix does not export
// it directly since it is bus-specific rather than a generic syscall.
const i2cSlave = 0x0703

// Transport is a ddcci.Transport backed by one /dev/i2c-<n> device node.
type Transport struct {
	path string
	f    *os.File
}

// Open opens the I2C bus at path (e.g. "/dev/i2c-2") and binds the DDC/CI
// slave address via ioctl.
func Open(path string) (*Transport, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("i2ctransport: open %s: %w", path, err)
	}
	if err := unix.IoctlSetInt(int(f.Fd()), i2cSlave, ddcSlaveAddr); err != nil {
		f.Close()
		return nil, fmt.Errorf("i2ctransport: bind slave addr on %s: %w", path, err)
	}
	return &Transport{path: path, f: f}, nil
}

func (t *Transport) Close() error { return t.f.Close() }

func (t *Transport) Write(data []byte) error {
	_, err := t.f.Write(data)
	if err != nil {
		return fmt.Errorf("i2ctransport: write %s: %w", t.path, err)
	}
	return nil
}

func (t *Transport) Read(maxBytes int) ([]byte, error) {
	buf := make([]byte, maxBytes)
	n, err := t.f.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("i2ctransport: read %s: %w", t.path, err)
	}
	return buf[:n], nil
}

func (t *Transport) Functionality() ddcci.Functionality {
	return ddcci.Functionality{Name: "i2c:" + t.path, MaxPayload: ddcci.MaxFragment}
}

// DiscoverBuses enumerates /dev/i2c-* device nodes exposed under the
// "i2c-dev" udev subsystem, returning them sorted by device name. Buses
// that don't carry a DDC/CI-capable display still show up here; callers
// probe each one to find out which do.
func DiscoverBuses() ([]string, error) {
	u := udev.Udev{}
	e := u.NewEnumerate()
	if err := e.AddMatchSubsystem("i2c-dev"); err != nil {
		return nil, fmt.Errorf("i2ctransport: match i2c-dev subsystem: %w", err)
	}
	devices, err := e.Devices()
	if err != nil {
		return nil, fmt.Errorf("i2ctransport: enumerate i2c-dev devices: %w", err)
	}
	var paths []string
	for _, d := range devices {
		if node := d.Devnode(); node != "" {
			paths = append(paths, node)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Handle is a ddcci.DisplayHandle backed by a Transport, with identity
// fields supplied by the caller after EDID parsing (out of scope here).
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
