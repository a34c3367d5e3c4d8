// Package errors provides structured error types for the dwarf-vm library.
//
// Errors are categorized by Phase (where the error occurred) and Kind
// (error category). The Error type carries the pc, the target address,
// and the instruction mnemonic involved where they are known, so a
// driving tool can report exactly which fault occurred and where.
//
// Use the convenience constructors for the engine's fault taxonomy:
//
//	err := errors.StackUnderflow(pc)
//	err := errors.UnmappedAddress(addr)
//	err := errors.DivideByZero(pc, "DW_OP_div")
//
// A breakpoint halt is deliberately error-shaped so it can travel the
// same return path as a fault; it represents normal control:
//
//	if errors.IsBreakpoint(err) {
//	    // expected stop, not a failure
//	}
//
// All errors implement the standard error interface and support
// errors.Is/As.
package errors
