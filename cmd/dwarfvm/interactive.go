package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/dwarf-vm/errors"
	"github.com/wippyai/dwarf-vm/op"
	"github.com/wippyai/dwarf-vm/script"
	"github.com/wippyai/dwarf-vm/vm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	pcStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#98FB98"))

	opStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#87CEEB"))

	stackStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	msgStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type debugModel struct {
	machine  *vm.VM
	filename string
	input    textinput.Model
	snaps    map[string]vm.State
	hooks    []*script.Hook
	messages []string
}

func newDebugModel(machine *vm.VM, filename string) *debugModel {
	input := textinput.New()
	input.Placeholder = "step | run [n] | break <addr> [hook.lua] | clear <addr> | save <name> | restore <name> | quit"
	input.Focus()

	return &debugModel{
		machine:  machine,
		filename: filename,
		input:    input,
		snaps:    make(map[string]vm.State),
	}
}

func (m *debugModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *debugModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.close()
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "quit" || line == "q" {
				m.close()
				return m, tea.Quit
			}
			if line != "" {
				m.exec(line)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// exec runs one debugger command and appends its outcome to the
// message log.
func (m *debugModel) exec(line string) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "step", "s":
		n := 1
		if len(args) > 0 {
			n, _ = strconv.Atoi(args[0])
		}
		for i := 0; i < n; i++ {
			if err := m.machine.Step(); err != nil {
				m.report(err)
				return
			}
		}
		m.sayf("stepped %d", n)

	case "run", "r":
		limit := 0
		if len(args) > 0 {
			limit, _ = strconv.Atoi(args[0])
		}
		n, err := m.machine.Run(limit)
		if err != nil {
			m.say(errorStyle.Render(fmt.Sprintf("fault after %d instructions: %v", n, err)))
			return
		}
		m.sayf("ran %d instructions", n)

	case "break", "b":
		if len(args) == 0 {
			m.say(errorStyle.Render("break needs an address"))
			return
		}
		addr, err := parseAddr(args[0])
		if err != nil {
			m.report(err)
			return
		}
		if len(args) > 1 {
			hook, err := script.LoadFile(args[1])
			if err != nil {
				m.report(err)
				return
			}
			m.hooks = append(m.hooks, hook)
			m.machine.SetBreakpoint(addr, hook)
			m.sayf("scripted breakpoint at %#x", addr)
			return
		}
		m.machine.SetBreakpoint(addr, vm.HookFunc(func(o *op.Op, h *vm.Machine) bool {
			return true
		}))
		m.sayf("breakpoint at %#x", addr)

	case "clear":
		if len(args) == 0 {
			m.say(errorStyle.Render("clear needs an address"))
			return
		}
		addr, err := parseAddr(args[0])
		if err != nil {
			m.report(err)
			return
		}
		if m.machine.ClearBreakpoint(addr) {
			m.sayf("cleared %#x", addr)
		} else {
			m.sayf("no breakpoint at %#x", addr)
		}

	case "save":
		name := "default"
		if len(args) > 0 {
			name = args[0]
		}
		m.snaps[name] = m.machine.State()
		m.sayf("saved snapshot %q", name)

	case "restore":
		name := "default"
		if len(args) > 0 {
			name = args[0]
		}
		s, ok := m.snaps[name]
		if !ok {
			m.say(errorStyle.Render(fmt.Sprintf("no snapshot %q", name)))
			return
		}
		m.machine.SetState(s)
		m.sayf("restored snapshot %q", name)

	default:
		m.say(errorStyle.Render("unknown command: " + cmd))
	}
}

func (m *debugModel) report(err error) {
	if errors.IsBreakpoint(err) {
		m.say("halted by breakpoint")
		return
	}
	m.say(errorStyle.Render(err.Error()))
}

// say appends a finished message; error text goes through here
// verbatim, never as a format string.
func (m *debugModel) say(msg string) {
	m.messages = append(m.messages, msgStyle.Render(msg))
	if len(m.messages) > 6 {
		m.messages = m.messages[len(m.messages)-6:]
	}
}

func (m *debugModel) sayf(format string, args ...any) {
	m.say(fmt.Sprintf(format, args...))
}

func (m *debugModel) close() {
	for _, h := range m.hooks {
		h.Close()
	}
}

func (m *debugModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("dwarfvm"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	pending := "??"
	if o, err := m.machine.Pending(); err == nil {
		pending = o.String()
	}
	b.WriteString(pcStyle.Render(fmt.Sprintf("pc: 0x%04x", m.machine.PC())))
	b.WriteString("  ")
	b.WriteString(opStyle.Render("[" + pending + "]"))
	b.WriteString(fmt.Sprintf("  depth: %d\n", m.machine.Depth()))

	for i, w := range topWords(m.machine, 8) {
		b.WriteString(stackStyle.Render(fmt.Sprintf("%02x | %016x", i*8, w)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for _, msg := range m.messages {
		b.WriteString(msg)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("enter run command • ctrl+c quit"))

	return b.String()
}

func runInteractive(machine *vm.VM, filename string) error {
	p := tea.NewProgram(newDebugModel(machine, filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
