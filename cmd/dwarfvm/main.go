package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/dwarf-vm/memory"
	"github.com/wippyai/dwarf-vm/op"
	"github.com/wippyai/dwarf-vm/script"
	"github.com/wippyai/dwarf-vm/vm"
)

func main() {
	var (
		corePath    = flag.String("core", "", "Path to process snapshot (ELF core)")
		startPC     = flag.String("pc", "", "Start address of the expression bytecode")
		ctxBase     = flag.String("ctx", "0", "Context base address for register reads")
		limit       = flag.Int("limit", 0, "Instruction budget (0 = unlimited)")
		breaks      = flag.String("break", "", "Breakpoints: addr[=script.lua],addr2,...")
		verbose     = flag.Bool("v", false, "Per-step and per-read trace output")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *corePath == "" || *startPC == "" {
		fmt.Fprintln(os.Stderr, "Usage: dwarfvm -core <file> -pc <addr> [-ctx addr] [-limit n] [-break addr[=hook.lua],...]")
		fmt.Fprintln(os.Stderr, "       dwarfvm -core <file> -pc <addr> -i  (interactive mode)")
		os.Exit(1)
	}

	if err := run(*corePath, *startPC, *ctxBase, *breaks, *limit, *verbose, *interactive); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(corePath, pcStr, ctxStr, breakStr string, limit int, verbose, interactive bool) error {
	pc, err := parseAddr(pcStr)
	if err != nil {
		return fmt.Errorf("bad -pc: %w", err)
	}
	ctx, err := parseAddr(ctxStr)
	if err != nil {
		return fmt.Errorf("bad -ctx: %w", err)
	}

	core, err := os.ReadFile(corePath)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	installLogger(verbose)

	machine, err := vm.New(pc, ctx, core)
	if err != nil {
		return err
	}

	hooks, err := installBreakpoints(machine, breakStr)
	if err != nil {
		return err
	}
	defer func() {
		for _, h := range hooks {
			h.Close()
		}
	}()

	if interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("interactive mode needs a terminal")
		}
		return runInteractive(machine, corePath)
	}

	n, err := machine.Run(limit)
	if err != nil {
		// Report the fault with its pc/stack context, then fail.
		fmt.Printf("fault after %d instructions: %v\n", n, err)
		fmt.Printf("state: %s\n", machine)
		return err
	}

	if limit <= 0 || n < limit {
		fmt.Println("halted by breakpoint")
	}
	fmt.Printf("executed %d instructions\n", n)
	fmt.Printf("pc: %#x, stack depth: %d\n", machine.PC(), machine.Depth())
	for i, w := range topWords(machine, 5) {
		fmt.Printf("%02x | %016x\n", i*8, w)
	}
	return nil
}

// installLogger wires the diagnostics sink: summary dumps at Info,
// per-step and per-read traces at Debug when -v is set.
func installLogger(verbose bool) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := cfg.Build()
	if err != nil {
		return
	}
	vm.SetLogger(logger)
	memory.SetLogger(logger)
}

// installBreakpoints parses "addr[=script.lua],..." and registers the
// hooks. A bare address halts; a scripted address runs the Lua hook.
func installBreakpoints(machine *vm.VM, spec string) ([]*script.Hook, error) {
	if spec == "" {
		return nil, nil
	}

	var hooks []*script.Hook
	for _, entry := range strings.Split(spec, ",") {
		addrStr, scriptPath, scripted := strings.Cut(entry, "=")
		addr, err := parseAddr(addrStr)
		if err != nil {
			return hooks, fmt.Errorf("bad -break entry %q: %w", entry, err)
		}

		if !scripted {
			machine.SetBreakpoint(addr, vm.HookFunc(func(o *op.Op, m *vm.Machine) bool {
				return true
			}))
			continue
		}

		hook, err := script.LoadFile(scriptPath)
		if err != nil {
			return hooks, err
		}
		hooks = append(hooks, hook)
		machine.SetBreakpoint(addr, hook)
	}
	return hooks, nil
}

func parseAddr(s string) (uint64, error) {
	return strconv.ParseUint(s, 0, 64)
}

// topWords returns up to n stack words, top first.
func topWords(machine *vm.VM, n int) []uint64 {
	stack := machine.Stack()
	var out []uint64
	for i := len(stack) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, stack[i])
	}
	return out
}

