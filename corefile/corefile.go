// Package corefile loads a captured process snapshot (an ELF core or
// object file) into addressed byte regions the memory subsystem can
// resolve against. The engine depends only on the Region surface, not
// on the container format.
package corefile

import (
	"bytes"
	"debug/elf"

	dwarfvm "github.com/wippyai/dwarf-vm"
	"github.com/wippyai/dwarf-vm/errors"
)

// Section is one allocated, byte-backed region of the snapshot.
type Section struct {
	name string
	addr uint64
	size uint64
	data []byte
}

// Addr returns the target address of the section's first byte.
func (s *Section) Addr() uint64 { return s.addr }

// Size returns the size declared by the section header. It may exceed
// the bytes actually present in the snapshot.
func (s *Section) Size() uint64 { return s.size }

// Bytes returns the section contents.
func (s *Section) Bytes() []byte { return s.data }

// Name returns the section name from the snapshot.
func (s *Section) Name() string { return s.name }

// Image is a parsed snapshot: an enumerable set of addressed regions.
// It is immutable once loaded.
type Image struct {
	sections []*Section
}

// Load parses raw snapshot bytes. Only allocated sections with bytes
// in the file are kept; symbol tables and other non-target sections
// never shadow target addresses.
func Load(data []byte) (*Image, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Load("parse ELF snapshot", err)
	}

	img := &Image{}
	for _, s := range f.Sections {
		if s.Flags&elf.SHF_ALLOC == 0 || s.Type == elf.SHT_NOBITS {
			continue
		}
		raw, err := s.Data()
		if err != nil {
			return nil, errors.Load("read section "+s.Name, err)
		}
		img.sections = append(img.sections, &Section{
			name: s.Name,
			addr: s.Addr,
			size: s.Size,
			data: raw,
		})
	}

	if len(img.sections) == 0 {
		return nil, errors.InvalidInput(errors.PhaseLoad, "snapshot has no loadable sections")
	}

	return img, nil
}

// Regions returns the image's sections in file order.
func (img *Image) Regions() []dwarfvm.Region {
	out := make([]dwarfvm.Region, len(img.sections))
	for i, s := range img.sections {
		out[i] = s
	}
	return out
}

// Sections returns the image's sections with their names, for
// diagnostics and drivers.
func (img *Image) Sections() []*Section {
	return img.sections
}
