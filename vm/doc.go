// Package vm implements the execution core: program counter, operand
// stack, instruction dispatch, breakpoint hooks, and execution-state
// snapshots.
//
// A Step runs in a fixed order: decode the instruction at pc, invoke
// any hook registered there, advance pc by the decoded size
// unconditionally, then either return the hook's halt or apply the
// instruction's effect. Arithmetic is 64-bit with wraparound; division
// and remainder are unsigned and fault on a zero divisor; comparisons
// push exactly 0 or 1.
//
// Every fault is a typed, recoverable error from the errors package.
// The VM performs no local recovery and retries nothing.
package vm
