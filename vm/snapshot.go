package vm

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// State is a value copy of resumable execution state: pc plus operand
// stack. It is independent of memory, context, and breakpoints, so a
// driver can checkpoint and rewind exploration without re-deriving
// memory state.
type State struct {
	PC    uint64
	Stack []uint64 // push order; the last element is the top
}

// State captures the current execution state.
func (v *VM) State() State {
	stack := make([]uint64, len(v.stack))
	copy(stack, v.stack)
	return State{PC: v.pc, Stack: stack}
}

// SetState overwrites pc and stack from a captured snapshot. Memory
// (overlay and base image), context, and breakpoints are untouched.
func (v *VM) SetState(s State) {
	v.pc = s.PC
	v.stack = make([]uint64, len(s.Stack))
	copy(v.stack, s.Stack)
}

// Equal reports bit-for-bit equality of two states.
func (s State) Equal(o State) bool {
	if s.PC != o.PC || len(s.Stack) != len(o.Stack) {
		return false
	}
	for i, w := range s.Stack {
		if w != o.Stack[i] {
			return false
		}
	}
	return true
}

// Digest returns a stable content hash of the state, usable as a map
// key for visited-state sets during exploration.
func (s State) Digest() [32]byte {
	buf := make([]byte, 8*(1+len(s.Stack)))
	binary.LittleEndian.PutUint64(buf, s.PC)
	for i, w := range s.Stack {
		binary.LittleEndian.PutUint64(buf[8*(i+1):], w)
	}
	return blake3.Sum256(buf)
}
