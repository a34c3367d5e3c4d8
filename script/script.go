// Package script compiles Lua chunks into breakpoint hooks, letting a
// driving tool attach behavior to addresses without recompiling.
//
// The chunk runs once per hook invocation with a global `vm` table
// bound to the machine handle, and its return value is the halt
// decision:
//
//	if vm.peek(0) == 0 then
//	    vm.patch(0x2000, "\xde\xad\xbe\xef")
//	    return true
//	end
//	return false
//
// Lua numbers are float64, so addresses and stack words above 2^53
// lose precision when they cross into a script.
package script

import (
	"os"

	lua "github.com/yuin/gopher-lua"

	"github.com/wippyai/dwarf-vm/errors"
	"github.com/wippyai/dwarf-vm/op"
	"github.com/wippyai/dwarf-vm/vm"
)

// Hook is a vm.Hook backed by a compiled Lua chunk. It is not safe for
// concurrent use, matching the engine's single-threaded model.
type Hook struct {
	state *lua.LState
	fn    *lua.LFunction
	err   error
}

// Compile builds a hook from Lua source. name appears in Lua
// stack traces.
func Compile(name, source string) (*Hook, error) {
	ls := lua.NewState()
	fn, err := ls.LoadString(source)
	if err != nil {
		ls.Close()
		return nil, errors.InvalidInput(errors.PhaseHook, "compile "+name+": "+err.Error())
	}
	return &Hook{state: ls, fn: fn}, nil
}

// LoadFile builds a hook from a Lua file.
func LoadFile(path string) (*Hook, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Load("read hook script", err)
	}
	return Compile(path, string(src))
}

// Close releases the Lua state.
func (h *Hook) Close() {
	h.state.Close()
}

// Err returns the error from the most recent invocation, if any. A
// failing script never halts execution; it records the error and lets
// the instruction run.
func (h *Hook) Err() error {
	return h.err
}

// OnBreakpoint implements vm.Hook. The chunk's return value, coerced
// to a boolean, is the halt request.
func (h *Hook) OnBreakpoint(o *op.Op, m *vm.Machine) bool {
	h.err = nil
	h.state.SetGlobal("vm", h.bind(o, m))

	h.state.Push(h.fn)
	if err := h.state.PCall(0, 1, nil); err != nil {
		h.err = errors.InvalidInput(errors.PhaseHook, err.Error())
		return false
	}

	ret := h.state.Get(-1)
	h.state.Pop(1)
	return lua.LVAsBool(ret)
}

// bind builds the `vm` table for one invocation. The closures capture
// the handle, which is only valid for the duration of the call.
func (h *Hook) bind(o *op.Op, m *vm.Machine) *lua.LTable {
	ls := h.state
	t := ls.NewTable()

	reg := func(name string, fn lua.LGFunction) {
		ls.SetField(t, name, ls.NewFunction(fn))
	}

	reg("pc", func(l *lua.LState) int {
		l.Push(lua.LNumber(m.PC()))
		return 1
	})
	reg("setpc", func(l *lua.LState) int {
		m.SetPC(uint64(l.CheckNumber(1)))
		return 0
	})
	reg("depth", func(l *lua.LState) int {
		l.Push(lua.LNumber(m.Depth()))
		return 1
	})
	reg("push", func(l *lua.LState) int {
		m.Push(uint64(l.CheckNumber(1)))
		return 0
	})
	reg("pop", func(l *lua.LState) int {
		v, err := m.Pop()
		if err != nil {
			l.RaiseError("pop: %v", err)
		}
		l.Push(lua.LNumber(v))
		return 1
	})
	reg("peek", func(l *lua.LState) int {
		v, err := m.Peek(l.CheckInt(1))
		if err != nil {
			l.RaiseError("peek: %v", err)
		}
		l.Push(lua.LNumber(v))
		return 1
	})
	reg("read", func(l *lua.LState) int {
		v, err := m.Memory().ReadWidth(uint64(l.CheckNumber(1)), l.CheckInt(2))
		if err != nil {
			l.RaiseError("read: %v", err)
		}
		l.Push(lua.LNumber(v))
		return 1
	})
	reg("patch", func(l *lua.LState) int {
		m.Memory().SetOverlay(uint64(l.CheckNumber(1)), []byte(l.CheckString(2)))
		return 0
	})
	reg("unpatch", func(l *lua.LState) int {
		l.Push(lua.LBool(m.Memory().ClearOverlay(uint64(l.CheckNumber(1)))))
		return 1
	})
	reg("clearbreak", func(l *lua.LState) int {
		l.Push(lua.LBool(m.ClearBreakpoint(uint64(l.CheckNumber(1)))))
		return 1
	})
	reg("op", func(l *lua.LState) int {
		l.Push(lua.LString(o.String()))
		return 1
	})

	return t
}
