package dwarfvm

import "github.com/wippyai/dwarf-vm/op"

// Region is an addressed, byte-backed span of target memory.
// The corefile package produces Regions from an ELF process snapshot;
// tests build them directly.
type Region interface {
	// Addr returns the target address of the first byte.
	Addr() uint64
	// Size returns the declared size of the region in bytes.
	Size() uint64
	// Bytes returns the backing bytes. May be shorter than Size for
	// regions whose tail is not present in the snapshot.
	Bytes() []byte
}

// Decoder turns raw bytes into one decoded instruction.
// The VM depends only on this contract, not on any particular
// instruction encoding; op.Decode is the stock implementation.
type Decoder interface {
	// Decode reads one instruction from the start of data and returns
	// the number of bytes it consumed.
	Decode(data []byte) (int, op.Op, error)
}

// DecoderFunc adapts a plain function to the Decoder interface.
type DecoderFunc func(data []byte) (int, op.Op, error)

func (f DecoderFunc) Decode(data []byte) (int, op.Op, error) {
	return f(data)
}
