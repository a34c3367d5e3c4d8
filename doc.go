// Package dwarfvm provides a stack-machine interpreter for DWARF
// location expressions, evaluated against the memory image of a
// captured process snapshot.
//
// Debug tooling uses it to replay recorded expression bytecode, such
// as variable locations and watch expressions, over frozen process
// memory, with breakpoint hooks and checkpoint/restore for exploration.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	dwarfvm/             Root package with the Region and Decoder interfaces
//	├── vm/              Execution core: pc, operand stack, dispatch, hooks
//	├── op/              Instruction model and the DWARF expression decoder
//	├── memory/          Layered address resolution (overlay over base image)
//	├── corefile/        ELF process-snapshot loader producing Regions
//	├── script/          Lua breakpoint hooks for interactive drivers
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
// Evaluate an expression stream inside a core file:
//
//	machine, err := vm.New(0x400258, 0x7fffffe110, coreBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	n, err := machine.Run(0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("executed %d instructions, state %v\n", n, machine.State())
//
// # Breakpoints
//
// A hook registered at an address runs before the instruction there
// executes, with a controlled mutation surface over the machine:
//
//	machine.SetBreakpoint(0x400270, vm.HookFunc(func(o *op.Op, m *vm.Machine) bool {
//	    top, _ := m.Peek(0)
//	    return top == 0 // halt when the top of stack reaches zero
//	}))
//
// The hook stays armed after it fires unless it removes itself through
// the handle. A halt stops the run with the pc already advanced past
// the hooked instruction.
//
// # Memory Model
//
// Reads resolve through a mutable overlay first, then the immutable
// base image loaded from the snapshot. Hooks and callers may patch the
// overlay at any time; the base image never changes.
//
// # Error Handling
//
// Every fault (undecodable bytes, unmapped address, stack underflow,
// unsupported opcode, division by zero) is a typed, recoverable error
// from the errors package. A breakpoint halt travels the same channel
// but represents normal control flow; test with errors.IsBreakpoint.
//
// # Concurrency
//
// A VM is single-threaded and exclusively owned by its caller. Step and
// Run are the only suspension points, and suspension is only the
// logical return to the caller on halt or fault.
package dwarfvm
