package vm

// DumpState logs the current pc, pending instruction, and top five
// stack words at Info level. It is the always-on summary dump a driver
// calls when reporting; correctness never depends on it.
func (v *VM) DumpState() error {
	o, err := v.Pending()
	if err != nil {
		return err
	}

	infof("pc: 0x%04x [%s]", v.pc, o)
	for i := 0; i < len(v.stack) && i < 5; i++ {
		infof("%02x | %016x", i*8, v.stack[len(v.stack)-1-i])
	}
	infof("------------")

	return nil
}

// traceState is the verbose per-step variant, emitted at Debug level
// before each Run step. Decode problems are ignored here; the step
// itself will surface them.
func (v *VM) traceState() {
	o, err := v.Pending()
	if err != nil {
		return
	}

	debugf("pc: 0x%04x [%s]", v.pc, o)
	for i := 0; i < len(v.stack) && i < 3; i++ {
		debugf("%02x | %016x", i*8, v.stack[len(v.stack)-1-i])
	}
	debugf("------------")
}
