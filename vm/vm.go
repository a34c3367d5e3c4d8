package vm

import (
	"fmt"

	dwarfvm "github.com/wippyai/dwarf-vm"
	"github.com/wippyai/dwarf-vm/corefile"
	"github.com/wippyai/dwarf-vm/errors"
	"github.com/wippyai/dwarf-vm/memory"
	"github.com/wippyai/dwarf-vm/op"
)

// VM executes one DWARF location-expression stream against the memory
// image of a process snapshot. It owns all of its state exclusively;
// see the package documentation for the concurrency contract.
type VM struct {
	pc          uint64
	ctx         uint64
	stack       []uint64 // top of stack is the last element
	mem         *memory.Memory
	breakpoints map[uint64]Hook
	decoder     dwarfvm.Decoder
}

// Config holds optional construction knobs.
type Config struct {
	// Decoder overrides the instruction decoder.
	// Nil means the stock DWARF expression decoder (op.Decode).
	Decoder dwarfvm.Decoder
}

// New creates a VM over raw snapshot bytes. pc is the address of the
// first instruction; ctx is the caller-supplied base address used to
// resolve register-indirect reads, fixed for the VM's lifetime.
func New(pc, ctx uint64, core []byte) (*VM, error) {
	return NewWithConfig(pc, ctx, core, nil)
}

// NewWithConfig is New with explicit configuration.
func NewWithConfig(pc, ctx uint64, core []byte, cfg *Config) (*VM, error) {
	img, err := corefile.Load(core)
	if err != nil {
		return nil, err
	}
	return NewWithRegions(pc, ctx, img.Regions(), cfg), nil
}

// NewWithRegions creates a VM over pre-built base image regions,
// bypassing the snapshot loader. Tests and synthetic images use this.
func NewWithRegions(pc, ctx uint64, regions []dwarfvm.Region, cfg *Config) *VM {
	v := &VM{
		pc:          pc,
		ctx:         ctx,
		mem:         memory.New(regions),
		breakpoints: make(map[uint64]Hook),
		decoder:     dwarfvm.DecoderFunc(op.Decode),
	}
	if cfg != nil && cfg.Decoder != nil {
		v.decoder = cfg.Decoder
	}
	return v
}

// PC returns the address of the next instruction to decode.
func (v *VM) PC() uint64 { return v.pc }

// SetPC repositions execution.
func (v *VM) SetPC(pc uint64) { v.pc = pc }

// Ctx returns the context base address supplied at construction.
func (v *VM) Ctx() uint64 { return v.ctx }

// Depth returns the current operand stack depth.
func (v *VM) Depth() int { return len(v.stack) }

// Stack returns a copy of the operand stack in push order; the last
// element is the top.
func (v *VM) Stack() []uint64 {
	out := make([]uint64, len(v.stack))
	copy(out, v.stack)
	return out
}

// Memory returns the VM's memory subsystem. Callers and hooks may
// patch the overlay through it at any time; the base image is
// immutable.
func (v *VM) Memory() *memory.Memory { return v.mem }

func (v *VM) String() string {
	return fmt.Sprintf("VM{pc: %#x, stack: %#x}", v.pc, v.stack)
}

// Pending decodes the instruction at the current pc without advancing.
func (v *VM) Pending() (op.Op, error) {
	data, err := v.mem.Read(v.pc)
	if err != nil {
		return op.Op{}, errors.BadInstruction(v.pc, "no memory at pc", err)
	}
	_, o, err := v.decoder.Decode(data)
	if err != nil {
		return op.Op{}, errors.BadInstruction(v.pc, "undecodable bytes", err)
	}
	return o, nil
}

// Step decodes and executes exactly one instruction.
//
// Ordering is load-bearing: decode the instruction at pc, run any hook
// registered there, then advance pc by the decoded size whether or not
// the hook asked to halt, and only then either return the halt or
// apply the instruction's effect. A decode fault leaves the pc
// untouched.
func (v *VM) Step() error {
	data, err := v.mem.Read(v.pc)
	if err != nil {
		return errors.BadInstruction(v.pc, "no memory at pc", err)
	}
	size, o, err := v.decoder.Decode(data)
	if err != nil {
		return errors.BadInstruction(v.pc, "undecodable bytes", err)
	}

	halt := false
	if hook, ok := v.breakpoints[v.pc]; ok {
		// The hook gets the pending instruction and full mutation
		// access through the handle. It stays registered unless it
		// removed itself.
		halt = hook.OnBreakpoint(&o, &Machine{vm: v})
	}

	v.pc += uint64(size)

	if halt {
		return errors.Breakpoint(v.pc)
	}

	return v.execute(&o)
}

// Run steps until the instruction budget is spent, a hook halts
// execution, or a fault occurs. limit <= 0 means no budget. The count
// of fully executed instructions is returned in every case; a
// breakpoint halt is a normal stop, not an error.
func (v *VM) Run(limit int) (int, error) {
	n := 0
	for {
		if limit > 0 && n >= limit {
			return n, nil
		}

		v.traceState()

		if err := v.Step(); err != nil {
			if errors.IsBreakpoint(err) {
				return n, nil
			}
			return n, err
		}

		n++
	}
}
