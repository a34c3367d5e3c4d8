package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseDecode  Phase = "decode"  // instruction decoding
	PhaseExecute Phase = "execute" // instruction semantics
	PhaseMemory  Phase = "memory"  // target memory resolution
	PhaseLoad    Phase = "load"    // snapshot parsing
	PhaseHook    Phase = "hook"    // breakpoint hook invocation
)

// Kind categorizes the error
type Kind string

const (
	KindBadInstruction  Kind = "bad_instruction"
	KindBreakpoint      Kind = "breakpoint"
	KindUnmappedAddress Kind = "unmapped_address"
	KindStackUnderflow  Kind = "stack_underflow"
	KindOutOfRange      Kind = "out_of_range"
	KindUnsupported     Kind = "unsupported"
	KindDivideByZero    Kind = "divide_by_zero"
	KindInvalidInput    Kind = "invalid_input"
)

// Error is the structured error type used throughout the library.
// Every fault the engine hits is surfaced to the caller as one of
// these; nothing is retried or recovered internally.
type Error struct {
	Cause   error
	Phase   Phase
	Kind    Kind
	Op      string // mnemonic of the instruction involved, if any
	PC      uint64 // pc at the time of the fault, if known
	Addr    uint64 // target address involved, for memory faults
	Detail  string
	hasPC   bool
	hasAddr bool
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Op != "" {
		b.WriteByte(' ')
		b.WriteString(e.Op)
	}

	if e.hasPC {
		fmt.Fprintf(&b, " at pc 0x%x", e.PC)
	}

	if e.hasAddr {
		fmt.Fprintf(&b, " (address 0x%x)", e.Addr)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is supports errors.Is matching on Kind, and on Phase when the target
// specifies one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && e.Phase != t.Phase {
		return false
	}
	return e.Kind == t.Kind
}

// WithPC returns a copy of the error annotated with the faulting pc.
// The VM uses it to add execution context to memory faults raised
// below it.
func (e *Error) WithPC(pc uint64) *Error {
	dup := *e
	dup.PC = pc
	dup.hasPC = true
	return &dup
}

// WithOp returns a copy of the error annotated with the instruction
// mnemonic being executed.
func (e *Error) WithOp(name string) *Error {
	dup := *e
	dup.Op = name
	return &dup
}

// Convenience constructors for the engine's fault taxonomy

// BadInstruction creates a decode fault for bytes at pc that do not
// form a valid instruction.
func BadInstruction(pc uint64, detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindBadInstruction,
		PC:     pc,
		hasPC:  true,
		Detail: detail,
		Cause:  cause,
	}
}

// Breakpoint creates the halt signal returned when a hook requests a
// stop. It travels the error channel but represents normal control
// flow; the pc has already advanced past the halted instruction.
func Breakpoint(pc uint64) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindBreakpoint,
		PC:     pc,
		hasPC:  true,
		Detail: "halt requested by breakpoint hook",
	}
}

// UnmappedAddress creates a fault for an address no overlay or
// base-image region covers.
func UnmappedAddress(addr uint64) *Error {
	return &Error{
		Phase:   PhaseMemory,
		Kind:    KindUnmappedAddress,
		Addr:    addr,
		hasAddr: true,
		Detail:  "no region covers address",
	}
}

// TruncatedRead creates a fault for a typed read that runs past the
// bytes a region actually holds.
func TruncatedRead(addr uint64, want, have int) *Error {
	return &Error{
		Phase:   PhaseMemory,
		Kind:    KindUnmappedAddress,
		Addr:    addr,
		hasAddr: true,
		Detail:  fmt.Sprintf("read of %d bytes, region holds %d", want, have),
	}
}

// StackUnderflow creates a fault for a pop on an empty operand stack.
func StackUnderflow(pc uint64) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindStackUnderflow,
		PC:     pc,
		hasPC:  true,
		Detail: "pop on empty stack",
	}
}

// OutOfRange creates a fault for an indexed peek past the available
// stack depth.
func OutOfRange(pc uint64, index, depth int) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindOutOfRange,
		PC:     pc,
		hasPC:  true,
		Detail: fmt.Sprintf("stack index %d out of range (depth %d)", index, depth),
	}
}

// Unsupported creates a fault for an opcode the engine deliberately
// does not implement.
func Unsupported(pc uint64, opName string) *Error {
	return &Error{
		Phase: PhaseExecute,
		Kind:  KindUnsupported,
		Op:    opName,
		PC:    pc,
		hasPC: true,
	}
}

// UnsupportedWidth creates a fault for a sized dereference with a
// width outside {1, 2, 4, 8}.
func UnsupportedWidth(pc uint64, width uint64) *Error {
	return &Error{
		Phase:  PhaseExecute,
		Kind:   KindUnsupported,
		Op:     "DW_OP_deref_size",
		PC:     pc,
		hasPC:  true,
		Detail: fmt.Sprintf("bad dereference width %d", width),
	}
}

// DivideByZero creates a fault for Div or Mod with a zero divisor.
func DivideByZero(pc uint64, opName string) *Error {
	return &Error{
		Phase: PhaseExecute,
		Kind:  KindDivideByZero,
		Op:    opName,
		PC:    pc,
		hasPC: true,
	}
}

// InvalidInput creates an error for malformed caller input.
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Load wraps a snapshot parsing failure.
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidInput,
		Detail: detail,
		Cause:  cause,
	}
}

// IsBreakpoint reports whether err is a breakpoint halt. Drivers use
// it to tell a deliberate stop from a genuine fault.
func IsBreakpoint(err error) bool {
	var e *Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Kind == KindBreakpoint
}

// KindOf returns the Kind of a structured error, or "" for foreign
// errors. Wrapped errors are unwrapped to find one.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}
