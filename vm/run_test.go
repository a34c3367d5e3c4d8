package vm

import (
	stderrors "errors"
	"testing"

	"github.com/wippyai/dwarf-vm/errors"
)

func TestBranches(t *testing.T) {
	t.Run("bra taken", func(t *testing.T) {
		// lit1; bra +2 skips the two lit0 bytes; lit2 lands.
		v := newVM([]byte{0x31, 0x28, 0x02, 0x00, 0x30, 0x30, 0x32})
		mustRun(t, v, 3)
		if v.PC() != codeBase+7 {
			t.Errorf("pc = %#x, want %#x", v.PC(), codeBase+7)
		}
		wantStack(t, v, 2)
	})

	t.Run("bra not taken", func(t *testing.T) {
		v := newVM([]byte{0x30, 0x28, 0x02, 0x00, 0x33, 0x30, 0x32})
		mustRun(t, v, 3)
		// Fell through to the lit3 immediately after the branch.
		if v.PC() != codeBase+5 {
			t.Errorf("pc = %#x, want %#x", v.PC(), codeBase+5)
		}
		wantStack(t, v, 3)
	})

	t.Run("skip is unconditional", func(t *testing.T) {
		// skip +1 over a garbage byte; no condition is popped.
		v := newVM([]byte{0x2f, 0x01, 0x00, 0xff, 0x35})
		mustRun(t, v, 2)
		wantStack(t, v, 5)
	})

	t.Run("skip backward", func(t *testing.T) {
		// lit1; skip +1; dead; lit2; skip -4 back to the lit2. The
		// loop never ends, so budget exactly two laps.
		v := newVM([]byte{0x31, 0x2f, 0x01, 0x00, 0xff, 0x32, 0x2f, 0xfc, 0xff})
		mustRun(t, v, 6)
		wantStack(t, v, 1, 2, 2)
	})
}

// countdown is a three-iteration loop: push 3, then subtract 1 and
// loop while nonzero.
//
//	+0: lit3
//	+1: lit1
//	+2: minus
//	+3: dup
//	+4: bra -6   (back to +1 while the copy is nonzero)
//	+7: halt sentinel (undecodable)
var countdown = []byte{0x33, 0x31, 0x1c, 0x12, 0x28, 0xfa, 0xff, 0xff}

func TestLoopExecution(t *testing.T) {
	v := newVM(countdown)

	mustRun(t, v, 13)
	if v.PC() != codeBase+7 {
		t.Errorf("pc = %#x, want %#x", v.PC(), codeBase+7)
	}
	wantStack(t, v, 0)
}

func TestRunLimit(t *testing.T) {
	v := newVM(countdown)

	n, err := v.Run(5)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 5 {
		t.Errorf("executed %d instructions, want 5", n)
	}
}

func TestDecodeFaultLeavesPC(t *testing.T) {
	v := newVM(countdown)

	n, err := v.Run(0)
	if n != 13 {
		t.Errorf("executed %d instructions before fault, want 13", n)
	}
	if !stderrors.Is(err, &errors.Error{Kind: errors.KindBadInstruction}) {
		t.Fatalf("err = %v, want bad_instruction", err)
	}
	// A decode fault never mutates the pc; stepping again reproduces
	// it.
	if v.PC() != codeBase+7 {
		t.Errorf("pc = %#x, want %#x", v.PC(), codeBase+7)
	}
	if err := v.Step(); !stderrors.Is(err, &errors.Error{Kind: errors.KindBadInstruction}) {
		t.Errorf("second Step err = %v, want bad_instruction", err)
	}
	if v.PC() != codeBase+7 {
		t.Errorf("pc moved to %#x on a decode fault", v.PC())
	}
}

// traceEntry is one recorded reference state: pc, stack depth, and up
// to the top five stack words (top first).
type traceEntry struct {
	pc    uint64
	depth int
	top   []uint64
}

// TestReferenceTrace steps the countdown program and requires every
// intermediate (pc, depth, top words) tuple to match the recorded
// trace exactly, the same check a recorded session replay performs.
func TestReferenceTrace(t *testing.T) {
	reference := []traceEntry{
		{0x400, 0, nil},
		{0x401, 1, []uint64{3}},
		{0x402, 2, []uint64{1, 3}},
		{0x403, 1, []uint64{2}},
		{0x404, 2, []uint64{2, 2}},
		{0x401, 1, []uint64{2}},
		{0x402, 2, []uint64{1, 2}},
		{0x403, 1, []uint64{1}},
		{0x404, 2, []uint64{1, 1}},
		{0x401, 1, []uint64{1}},
		{0x402, 2, []uint64{1, 1}},
		{0x403, 1, []uint64{0}},
		{0x404, 2, []uint64{0, 0}},
		{0x407, 1, []uint64{0}},
	}

	v := newVM(countdown)

	for i, want := range reference {
		if v.PC() != want.pc {
			t.Fatalf("step %d: pc = %#x, want %#x", i, v.PC(), want.pc)
		}
		if v.Depth() != want.depth {
			t.Fatalf("step %d: depth = %d, want %d", i, v.Depth(), want.depth)
		}
		stack := v.Stack()
		for j, w := range want.top {
			if got := stack[len(stack)-1-j]; got != w {
				t.Fatalf("step %d: stack[%d] = %#x, want %#x", i, j, got, w)
			}
		}

		if i < len(reference)-1 {
			if err := v.Step(); err != nil {
				t.Fatalf("step %d: %v", i, err)
			}
		}
	}
}

func TestRunReportsCountOnFault(t *testing.T) {
	// lit1; div faults (underflow after popping... the divisor pop
	// succeeds, the dividend pop underflows).
	v := newVM([]byte{0x31, 0x1b})
	n, err := v.Run(0)
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
	if err == nil {
		t.Fatal("fault not reported")
	}
}
