package vm

import (
	"encoding/binary"
	stderrors "errors"
	"math"
	"testing"

	dwarfvm "github.com/wippyai/dwarf-vm"
	"github.com/wippyai/dwarf-vm/errors"
)

const codeBase = 0x400

// region is a byte-backed Region for synthetic images.
type region struct {
	addr uint64
	data []byte
}

func (r region) Addr() uint64  { return r.addr }
func (r region) Size() uint64  { return uint64(len(r.data)) }
func (r region) Bytes() []byte { return r.data }

// newVM builds a VM with the program mapped at codeBase.
func newVM(code []byte, extra ...dwarfvm.Region) *VM {
	regions := append([]dwarfvm.Region{region{addr: codeBase, data: code}}, extra...)
	return NewWithRegions(codeBase, 0, regions, nil)
}

// mustRun executes exactly limit instructions.
func mustRun(t *testing.T, v *VM, limit int) {
	t.Helper()
	n, err := v.Run(limit)
	if err != nil {
		t.Fatalf("Run: %v (after %d instructions, %s)", err, n, v)
	}
	if n != limit {
		t.Fatalf("Run executed %d instructions, want %d", n, limit)
	}
}

func wantStack(t *testing.T, v *VM, want ...uint64) {
	t.Helper()
	got := v.Stack()
	if len(got) != len(want) {
		t.Fatalf("stack = %#x, want %#x", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("stack = %#x, want %#x", got, want)
		}
	}
}

// c8 encodes DW_OP_const8u with the given value.
func c8(v uint64) []byte {
	out := make([]byte, 9)
	out[0] = 0x0e
	binary.LittleEndian.PutUint64(out[1:], v)
	return out
}

func cat(chunks ...[]byte) []byte {
	var out []byte
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

func TestWraparoundArithmetic(t *testing.T) {
	tests := []struct {
		name  string
		code  []byte
		steps int
		want  uint64
	}{
		{"max plus one is zero", cat(c8(math.MaxUint64), []byte{0x31, 0x22}), 3, 0},
		{"zero minus one is max", []byte{0x30, 0x31, 0x1c}, 3, math.MaxUint64},
		{"mul wraps", cat(c8(1<<63), []byte{0x32, 0x1e}), 3, 0},
		{"plus_uconst wraps", cat(c8(math.MaxUint64), []byte{0x23, 0x02}), 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newVM(tt.code)
			mustRun(t, v, tt.steps)
			wantStack(t, v, tt.want)
		})
	}
}

func TestComparisons(t *testing.T) {
	// q is pushed first, p second; the result of q OP p must be
	// exactly 0 or 1.
	tests := []struct {
		name string
		cmp  byte
		q, p uint64
		want uint64
	}{
		{"eq true", 0x29, 7, 7, 1},
		{"eq false", 0x29, 7, 8, 0},
		{"ge true", 0x2a, 8, 7, 1},
		{"ge false", 0x2a, 6, 7, 0},
		{"gt false on equal", 0x2b, 7, 7, 0},
		{"le true", 0x2c, 7, 7, 1},
		{"lt unsigned", 0x2d, 1, math.MaxUint64, 1},
		{"ne true", 0x2e, 0, 1, 1},
		{"ne false", 0x2e, 1, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newVM(cat(c8(tt.q), c8(tt.p), []byte{tt.cmp}))
			mustRun(t, v, 3)
			wantStack(t, v, tt.want)
		})
	}
}

func TestStackManipulation(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want []uint64 // push order, last element is the top
	}{
		{"dup", []byte{0x35, 0x12}, []uint64{5, 5}},
		{"drop", []byte{0x31, 0x32, 0x13}, []uint64{1}},
		{"swap", []byte{0x31, 0x32, 0x16}, []uint64{2, 1}},
		{"rot", []byte{0x31, 0x32, 0x33, 0x17}, []uint64{3, 1, 2}},
		{"over", []byte{0x31, 0x32, 0x14}, []uint64{1, 2, 1}},
		{"pick deep", []byte{0x31, 0x32, 0x33, 0x15, 0x02}, []uint64{1, 2, 3, 1}},
		{"pick 0 is dup", []byte{0x39, 0x15, 0x00}, []uint64{9, 9}},
		{"over is pick 1", []byte{0x31, 0x32, 0x15, 0x01}, []uint64{1, 2, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newVM(tt.code)
			if _, err := v.Run(0); err != nil {
				if errors.KindOf(err) != errors.KindBadInstruction {
					t.Fatalf("Run: %v", err)
				}
				// Ran off the end of the program; the stack holds the
				// result.
			}
			wantStack(t, v, tt.want...)
		})
	}
}

func TestUnaryOps(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want uint64
	}{
		{"abs negative", cat(c8(uint64(0xfffffffffffffff8)), []byte{0x19}), 8}, // -8
		{"abs positive", []byte{0x37, 0x19}, 7},
		{"neg", []byte{0x33, 0x1f}, uint64(0xfffffffffffffffd)}, // -3
		{"not", cat(c8(0x00ff00ff00ff00ff), []byte{0x20}), 0xff00ff00ff00ff00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newVM(tt.code)
			mustRun(t, v, 2)
			wantStack(t, v, tt.want)
		})
	}
}

func TestBitwiseAndShifts(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want uint64
	}{
		{"and", cat(c8(0xff00), c8(0x0ff0), []byte{0x1a}), 0x0f00},
		{"or", cat(c8(0xff00), c8(0x0ff0), []byte{0x21}), 0xfff0},
		{"xor", cat(c8(0xff00), c8(0x0ff0), []byte{0x27}), 0xf0f0},
		{"shl", []byte{0x31, 0x34, 0x24}, 16},
		{"shr", []byte{0x3f, 0x32, 0x25}, 3},
		// Shra reproduces the recorded logical-shift behavior.
		{"shra is logical", cat(c8(1<<63), []byte{0x3f, 0x26}), 1 << 48},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newVM(tt.code)
			if _, err := v.Run(0); err != nil && errors.KindOf(err) != errors.KindBadInstruction {
				t.Fatalf("Run: %v", err)
			}
			wantStack(t, v, tt.want)
		})
	}
}

func TestShiftCountAtWidth(t *testing.T) {
	// A shift by 64 or more yields 0 rather than faulting.
	v := newVM(cat(c8(0xffff), c8(64), []byte{0x25}))
	mustRun(t, v, 3)
	wantStack(t, v, 0)
}

func TestDivMod(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want uint64
	}{
		{"div", cat(c8(20), c8(6), []byte{0x1b}), 3},
		{"mod", cat(c8(20), c8(6), []byte{0x1d}), 2},
		{"div unsigned", cat(c8(math.MaxUint64), c8(2), []byte{0x1b}), math.MaxUint64 / 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newVM(tt.code)
			mustRun(t, v, 3)
			wantStack(t, v, tt.want)
		})
	}
}

func TestDivideByZeroFaults(t *testing.T) {
	for _, opByte := range []byte{0x1b, 0x1d} {
		v := newVM(cat(c8(20), c8(0), []byte{opByte}))
		_, err := v.Run(0)
		if !stderrors.Is(err, &errors.Error{Kind: errors.KindDivideByZero}) {
			t.Errorf("opcode %#x: err = %v, want divide_by_zero", opByte, err)
		}
	}
}

func TestConstants(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want uint64
	}{
		{"lit0", []byte{0x30}, 0},
		{"lit31", []byte{0x4f}, 31},
		{"const1u", []byte{0x08, 0xff}, 0xff},
		{"const1s sign extends", []byte{0x09, 0xfe}, uint64(0xfffffffffffffffe)},
		{"const2s sign extends", []byte{0x0b, 0x00, 0x80}, uint64(0xffffffffffff8000)},
		{"const4u zero extends", []byte{0x0c, 0xff, 0xff, 0xff, 0xff}, 0xffffffff},
		{"constu", []byte{0x10, 0x80, 0x02}, 256},
		{"consts negative", []byte{0x11, 0x7f}, uint64(0xffffffffffffffff)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newVM(tt.code)
			mustRun(t, v, 1)
			wantStack(t, v, tt.want)
		})
	}
}

func TestAddressLoadAndDeref(t *testing.T) {
	data := region{addr: 0x2000, data: []byte{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88}}

	t.Run("addr", func(t *testing.T) {
		code := make([]byte, 9)
		code[0] = 0x03
		binary.LittleEndian.PutUint64(code[1:], 0x2000)
		v := newVM(code, data)
		mustRun(t, v, 1)
		wantStack(t, v, 0x8877665544332211)
	})

	t.Run("deref", func(t *testing.T) {
		v := newVM([]byte{0x0a, 0x00, 0x20, 0x06}, data)
		mustRun(t, v, 2)
		wantStack(t, v, 0x8877665544332211)
	})

	t.Run("deref_size", func(t *testing.T) {
		widths := []struct {
			width byte
			want  uint64
		}{
			{1, 0x11},
			{2, 0x2211},
			{4, 0x44332211},
			{8, 0x8877665544332211},
		}
		for _, w := range widths {
			v := newVM([]byte{0x0a, 0x00, 0x20, 0x94, w.width}, data)
			mustRun(t, v, 2)
			wantStack(t, v, w.want)
		}
	})

	t.Run("deref_size bad width", func(t *testing.T) {
		v := newVM([]byte{0x0a, 0x00, 0x20, 0x94, 0x03}, data)
		_, err := v.Run(0)
		if !stderrors.Is(err, &errors.Error{Kind: errors.KindUnsupported}) {
			t.Errorf("err = %v, want unsupported", err)
		}
	})

	t.Run("addr reads through then deref chases pointer", func(t *testing.T) {
		// addr 0x2000 pushes the word stored there, not the operand
		// itself, so a pointer chase needs both cells mapped.
		ptr := region{addr: 0x2000, data: []byte{0x00, 0x30, 0, 0, 0, 0, 0, 0}}
		val := region{addr: 0x3000, data: []byte{0x34, 0x12, 0, 0, 0, 0, 0, 0}}
		code := cat([]byte{0x03, 0x00, 0x20, 0, 0, 0, 0, 0, 0}, []byte{0x06, 0x23, 0x08})
		v := newVM(code, ptr, val)
		mustRun(t, v, 3)
		wantStack(t, v, 0x123c)
	})

	t.Run("deref unmapped", func(t *testing.T) {
		v := newVM([]byte{0x0a, 0x00, 0x30, 0x06}, data)
		_, err := v.Run(0)
		if !stderrors.Is(err, &errors.Error{Kind: errors.KindUnmappedAddress}) {
			t.Errorf("err = %v, want unmapped_address", err)
		}
	})
}

func TestRegReadsThroughContext(t *testing.T) {
	// The context structure holds one pointer per register slot; Reg
	// pushes the value behind the slot's pointer.
	value := region{addr: 0x2000, data: []byte{0x2a, 0, 0, 0, 0, 0, 0, 0}}
	slots := make([]byte, 8*8)
	binary.LittleEndian.PutUint64(slots[5*8:], 0x2000)
	ctxRegion := region{addr: 0x3000, data: slots}

	code := []byte{0x55} // DW_OP_reg5
	regions := []dwarfvm.Region{region{addr: codeBase, data: code}, value, ctxRegion}
	v := NewWithRegions(codeBase, 0x3000, regions, nil)

	mustRun(t, v, 1)
	wantStack(t, v, 42)
}

func TestUnimplementedOpcodesFault(t *testing.T) {
	tests := []struct {
		name string
		code []byte
	}{
		{"breg", []byte{0x70, 0x00}},
		{"regx", []byte{0x90, 0x05}},
		{"bregx", []byte{0x92, 0x05, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newVM(tt.code)
			_, err := v.Run(0)
			if !stderrors.Is(err, &errors.Error{Kind: errors.KindUnsupported}) {
				t.Errorf("err = %v, want unsupported", err)
			}
			// Decode succeeded, so the pc has advanced.
			if v.PC() == codeBase {
				t.Error("pc did not advance past the unimplemented opcode")
			}
		})
	}
}

func TestStackFaults(t *testing.T) {
	t.Run("underflow", func(t *testing.T) {
		v := newVM([]byte{0x22}) // plus on empty stack
		_, err := v.Run(0)
		if !stderrors.Is(err, &errors.Error{Kind: errors.KindStackUnderflow}) {
			t.Errorf("err = %v, want stack_underflow", err)
		}
	})

	t.Run("pick out of range", func(t *testing.T) {
		v := newVM([]byte{0x31, 0x15, 0x05}) // one element, pick 5
		_, err := v.Run(0)
		if !stderrors.Is(err, &errors.Error{Kind: errors.KindOutOfRange}) {
			t.Errorf("err = %v, want out_of_range", err)
		}
	})
}

func TestNopHasNoEffect(t *testing.T) {
	v := newVM([]byte{0x31, 0x96, 0x96})
	mustRun(t, v, 3)
	wantStack(t, v, 1)
	if v.PC() != codeBase+3 {
		t.Errorf("pc = %#x, want %#x", v.PC(), codeBase+3)
	}
}
