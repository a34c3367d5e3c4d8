package script

import (
	"testing"

	dwarfvm "github.com/wippyai/dwarf-vm"
	"github.com/wippyai/dwarf-vm/vm"
)

type region struct {
	addr uint64
	data []byte
}

func (r region) Addr() uint64  { return r.addr }
func (r region) Size() uint64  { return uint64(len(r.data)) }
func (r region) Bytes() []byte { return r.data }

const codeBase = 0x400

func newVM(code []byte) *vm.VM {
	return vm.NewWithRegions(codeBase, 0, []dwarfvm.Region{region{addr: codeBase, data: code}}, nil)
}

func TestHookHalts(t *testing.T) {
	hook, err := Compile("halt.lua", `return vm.peek(0) == 2`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	defer hook.Close()

	// lit1 lit2 lit3, hook on every lit3... breakpoint sits at +2 and
	// halts only when the top of stack is 2.
	v := newVM([]byte{0x31, 0x32, 0x33})
	v.SetBreakpoint(codeBase+2, hook)

	n, err := v.Run(0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 2 {
		t.Errorf("executed %d instructions, want 2 (halted before lit3)", n)
	}
	if hook.Err() != nil {
		t.Errorf("script error: %v", hook.Err())
	}
}

func TestHookMutatesMachine(t *testing.T) {
	hook, err := Compile("mutate.lua", `
		vm.push(vm.pop() + 30)
		vm.patch(0x2000, "\042\000\000\000\000\000\000\000")
		return false
	`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	defer hook.Close()

	// lit2; deref of 0x2000, which exists only after the script
	// patches it.
	v := newVM([]byte{0x32, 0x0a, 0x00, 0x20, 0x06})
	v.SetBreakpoint(codeBase+1, hook)

	if _, err := v.Run(3); err != nil {
		t.Fatalf("Run: %v", err)
	}
	stack := v.Stack()
	if len(stack) != 2 || stack[0] != 32 || stack[1] != 42 {
		t.Errorf("stack = %v, want [32 42]", stack)
	}
}

func TestHookScriptErrorDoesNotHalt(t *testing.T) {
	hook, err := Compile("bad.lua", `return vm.pop()`) // underflows
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	defer hook.Close()

	v := newVM([]byte{0x31})
	v.SetBreakpoint(codeBase, hook)

	n, err := v.Run(1)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 1 {
		t.Errorf("executed %d instructions, want 1 (error never halts)", n)
	}
	if hook.Err() == nil {
		t.Error("script error not recorded")
	}
}

func TestCompileError(t *testing.T) {
	if _, err := Compile("syntax.lua", `return ((`); err == nil {
		t.Fatal("Compile of invalid Lua succeeded")
	}
}

func TestHookReportsOp(t *testing.T) {
	hook, err := Compile("op.lua", `seen = vm.op(); return true`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	defer hook.Close()

	v := newVM([]byte{0x35})
	v.SetBreakpoint(codeBase, hook)
	if _, err := v.Run(0); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The script saw the decoded mnemonic of the pending instruction.
	got := hook.state.GetGlobal("seen")
	if got.String() != "DW_OP_lit5" {
		t.Errorf("seen = %q, want DW_OP_lit5", got.String())
	}
}
