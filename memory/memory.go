// Package memory implements the layered address-resolution model: a
// mutable overlay of patches over the immutable base image loaded from
// a process snapshot.
package memory

import (
	"encoding/binary"
	"sort"

	dwarfvm "github.com/wippyai/dwarf-vm"
	"github.com/wippyai/dwarf-vm/errors"
)

// OverlayRegion is one mutable patch layered above the base image.
type OverlayRegion struct {
	Addr uint64
	Data []byte
}

// Memory resolves target addresses to readable bytes. A read checks
// the mutable overlay first, in ascending start-address order, then
// falls back to the immutable base image. An address no region covers
// is a fault, never a silent default.
type Memory struct {
	base    []dwarfvm.Region
	overlay []OverlayRegion // sorted by Addr, first containing region wins
}

// New creates a Memory over the given base image regions. The regions
// are read-only for the Memory's lifetime.
func New(base []dwarfvm.Region) *Memory {
	return &Memory{base: base}
}

// SetOverlay installs or replaces the overlay region starting at addr.
// The bytes are copied; later mutation of data is not observed.
func (m *Memory) SetOverlay(addr uint64, data []byte) {
	owned := make([]byte, len(data))
	copy(owned, data)

	i := sort.Search(len(m.overlay), func(i int) bool { return m.overlay[i].Addr >= addr })
	if i < len(m.overlay) && m.overlay[i].Addr == addr {
		m.overlay[i].Data = owned
		return
	}
	m.overlay = append(m.overlay, OverlayRegion{})
	copy(m.overlay[i+1:], m.overlay[i:])
	m.overlay[i] = OverlayRegion{Addr: addr, Data: owned}
}

// ClearOverlay removes the overlay region starting at addr and reports
// whether one existed. Base-image bytes become visible again.
func (m *Memory) ClearOverlay(addr uint64) bool {
	i := sort.Search(len(m.overlay), func(i int) bool { return m.overlay[i].Addr >= addr })
	if i >= len(m.overlay) || m.overlay[i].Addr != addr {
		return false
	}
	m.overlay = append(m.overlay[:i], m.overlay[i+1:]...)
	return true
}

// Overlay returns the current overlay regions in ascending address
// order. The returned slice is a snapshot; the byte contents are not
// copied.
func (m *Memory) Overlay() []OverlayRegion {
	out := make([]OverlayRegion, len(m.overlay))
	copy(out, m.overlay)
	return out
}

// Read resolves addr and returns the covering region's bytes from addr
// onward. The slice may be shorter than a caller's intended read width;
// typed reads turn that into a fault.
//
// Base-image matching keeps the loader's historical inclusive end
// bound: an address equal to start+size still matches the region, so a
// multi-byte read may begin at a section's final byte. Recorded
// reference traces depend on this.
func (m *Memory) Read(addr uint64) ([]byte, error) {
	for _, p := range m.overlay {
		end := p.Addr + uint64(len(p.Data))
		if addr >= p.Addr && addr < end {
			return p.Data[addr-p.Addr:], nil
		}
	}

	for _, r := range m.base {
		if addr >= r.Addr() && addr <= r.Addr()+r.Size() {
			b := r.Bytes()
			off := addr - r.Addr()
			if off >= uint64(len(b)) {
				return nil, nil
			}
			return b[off:], nil
		}
	}

	return nil, errors.UnmappedAddress(addr)
}

// ReadUint8 reads one byte at addr.
func (m *Memory) ReadUint8(addr uint64) (uint8, error) {
	data, err := m.readWidth(addr, 1)
	if err != nil {
		return 0, err
	}
	v := data[0]
	debugf("read u8  0x%016x = 0x%02x", addr, v)
	return v, nil
}

// ReadUint16 reads a little-endian 16-bit value at addr.
func (m *Memory) ReadUint16(addr uint64) (uint16, error) {
	data, err := m.readWidth(addr, 2)
	if err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(data)
	debugf("read u16 0x%016x = 0x%04x", addr, v)
	return v, nil
}

// ReadUint32 reads a little-endian 32-bit value at addr.
func (m *Memory) ReadUint32(addr uint64) (uint32, error) {
	data, err := m.readWidth(addr, 4)
	if err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(data)
	debugf("read u32 0x%016x = 0x%08x", addr, v)
	return v, nil
}

// ReadUint64 reads a little-endian 64-bit value at addr.
func (m *Memory) ReadUint64(addr uint64) (uint64, error) {
	data, err := m.readWidth(addr, 8)
	if err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(data)
	debugf("read u64 0x%016x = 0x%016x", addr, v)
	return v, nil
}

// ReadWidth reads an unsigned little-endian value of the given byte
// width (1, 2, 4 or 8), zero-extended to 64 bits.
func (m *Memory) ReadWidth(addr uint64, width int) (uint64, error) {
	switch width {
	case 1:
		v, err := m.ReadUint8(addr)
		return uint64(v), err
	case 2:
		v, err := m.ReadUint16(addr)
		return uint64(v), err
	case 4:
		v, err := m.ReadUint32(addr)
		return uint64(v), err
	case 8:
		return m.ReadUint64(addr)
	}
	return 0, errors.InvalidInput(errors.PhaseMemory, "unsupported read width")
}

func (m *Memory) readWidth(addr uint64, width int) ([]byte, error) {
	data, err := m.Read(addr)
	if err != nil {
		return nil, err
	}
	if len(data) < width {
		return nil, errors.TruncatedRead(addr, width, len(data))
	}
	return data, nil
}
