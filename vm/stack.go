package vm

import "github.com/wippyai/dwarf-vm/errors"

func (v *VM) push(x uint64) {
	v.stack = append(v.stack, x)
}

func (v *VM) pop() (uint64, error) {
	if len(v.stack) == 0 {
		return 0, errors.StackUnderflow(v.pc)
	}
	x := v.stack[len(v.stack)-1]
	v.stack = v.stack[:len(v.stack)-1]
	return x, nil
}

// pop2 pops the top two elements: p was the top, q the one below it.
// Binary operations compute q OP p.
func (v *VM) pop2() (p, q uint64, err error) {
	if p, err = v.pop(); err != nil {
		return 0, 0, err
	}
	if q, err = v.pop(); err != nil {
		return 0, 0, err
	}
	return p, q, nil
}

// peek returns the element at depth n without removing it; 0 is the
// top of the stack.
func (v *VM) peek(n int) (uint64, error) {
	if n < 0 || n >= len(v.stack) {
		return 0, errors.OutOfRange(v.pc, n, len(v.stack))
	}
	return v.stack[len(v.stack)-1-n], nil
}
