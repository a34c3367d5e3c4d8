package vm

import (
	"github.com/wippyai/dwarf-vm/memory"
	"github.com/wippyai/dwarf-vm/op"
)

// Hook is caller-supplied behavior invoked when execution reaches a
// specific address, before the instruction there executes. The hook
// may rewrite the pending instruction in place and mutate the machine
// through the handle. Returning true requests a halt; the pc still
// advances past the instruction first.
//
// The handle is only valid for the duration of the call; hooks must
// not retain it.
type Hook interface {
	OnBreakpoint(o *op.Op, m *Machine) bool
}

// HookFunc adapts a plain function to the Hook interface.
type HookFunc func(o *op.Op, m *Machine) bool

func (f HookFunc) OnBreakpoint(o *op.Op, m *Machine) bool {
	return f(o, m)
}

// SetBreakpoint registers hook at addr, replacing any hook already
// there. The hook stays registered after it fires unless it removes
// itself through the handle.
func (v *VM) SetBreakpoint(addr uint64, hook Hook) {
	v.breakpoints[addr] = hook
}

// ClearBreakpoint removes the hook at addr and reports whether one was
// registered.
func (v *VM) ClearBreakpoint(addr uint64) bool {
	_, ok := v.breakpoints[addr]
	delete(v.breakpoints, addr)
	return ok
}

// Breakpoint returns the hook registered at addr, if any.
func (v *VM) Breakpoint(addr uint64) (Hook, bool) {
	hook, ok := v.breakpoints[addr]
	return hook, ok
}

// Machine is the controlled mutation surface a hook receives. It
// exposes everything a hook may legitimately touch without letting it
// bypass the stack's underflow checks or replace the base image.
type Machine struct {
	vm *VM
}

// PC returns the current pc. During a hook invocation this is still
// the address of the pending instruction.
func (m *Machine) PC() uint64 { return m.vm.pc }

// SetPC repositions execution. The decoded size of the pending
// instruction is added afterward regardless.
func (m *Machine) SetPC(pc uint64) { m.vm.pc = pc }

// Ctx returns the context base address.
func (m *Machine) Ctx() uint64 { return m.vm.ctx }

// Depth returns the operand stack depth.
func (m *Machine) Depth() int { return len(m.vm.stack) }

// Push pushes a word onto the operand stack.
func (m *Machine) Push(x uint64) { m.vm.push(x) }

// Pop pops the top of the operand stack.
func (m *Machine) Pop() (uint64, error) { return m.vm.pop() }

// Peek returns the element at depth n without removing it; 0 is the
// top.
func (m *Machine) Peek(n int) (uint64, error) { return m.vm.peek(n) }

// Memory returns the machine's memory subsystem, allowing overlay
// patches and reads.
func (m *Machine) Memory() *memory.Memory { return m.vm.mem }

// SetBreakpoint registers a hook, including over the invoking hook's
// own address; the replacement wins.
func (m *Machine) SetBreakpoint(addr uint64, hook Hook) { m.vm.SetBreakpoint(addr, hook) }

// ClearBreakpoint removes a hook. A hook removing its own address
// deregisters itself; there is no automatic re-insert to undo it.
func (m *Machine) ClearBreakpoint(addr uint64) bool { return m.vm.ClearBreakpoint(addr) }

// State captures a snapshot through the handle.
func (m *Machine) State() State { return m.vm.State() }

// SetState restores a snapshot through the handle.
func (m *Machine) SetState(s State) { m.vm.SetState(s) }
