package vm

import (
	"github.com/wippyai/dwarf-vm/errors"
	"github.com/wippyai/dwarf-vm/op"
)

// execute applies one instruction's semantic effect. The pc has
// already advanced past the instruction; branches displace it further.
func (v *VM) execute(o *op.Op) error {
	switch o.Code {
	case op.Nop:
		return nil

	case op.Addr:
		val, err := v.readU64(o, o.Arg)
		if err != nil {
			return err
		}
		v.push(val)
		return nil

	case op.Deref:
		t, err := v.pop()
		if err != nil {
			return err
		}
		val, err := v.readU64(o, t)
		if err != nil {
			return err
		}
		v.push(val)
		return nil

	case op.DerefSize:
		t, err := v.pop()
		if err != nil {
			return err
		}
		switch o.Arg {
		case 1, 2, 4, 8:
		default:
			return errors.UnsupportedWidth(v.pc, o.Arg)
		}
		val, err := v.mem.ReadWidth(t, int(o.Arg))
		if err != nil {
			return v.annotate(err, o)
		}
		v.push(val)
		return nil

	case op.Const1u, op.Const1s, op.Const2u, op.Const2s,
		op.Const4u, op.Const4s, op.Const8u, op.Const8s,
		op.Constu, op.Consts, op.Lit:
		// Sign extension already happened at decode time.
		v.push(o.Arg)
		return nil

	case op.Dup:
		t, err := v.pop()
		if err != nil {
			return err
		}
		v.push(t)
		v.push(t)
		return nil

	case op.Drop:
		_, err := v.pop()
		return err

	case op.Over:
		t, err := v.peek(1)
		if err != nil {
			return err
		}
		v.push(t)
		return nil

	case op.Pick:
		t, err := v.peek(int(o.Arg))
		if err != nil {
			return err
		}
		v.push(t)
		return nil

	case op.Swap:
		p, q, err := v.pop2()
		if err != nil {
			return err
		}
		v.push(p)
		v.push(q)
		return nil

	case op.Rot:
		x, err := v.pop()
		if err != nil {
			return err
		}
		y, err := v.pop()
		if err != nil {
			return err
		}
		z, err := v.pop()
		if err != nil {
			return err
		}
		v.push(x)
		v.push(z)
		v.push(y)
		return nil

	case op.Abs:
		t, err := v.pop()
		if err != nil {
			return err
		}
		s := int64(t)
		if s < 0 {
			s = -s
		}
		v.push(uint64(s))
		return nil

	case op.Neg:
		t, err := v.pop()
		if err != nil {
			return err
		}
		v.push(uint64(-int64(t)))
		return nil

	case op.Not:
		t, err := v.pop()
		if err != nil {
			return err
		}
		v.push(^t)
		return nil

	case op.And:
		return v.binop(func(q, p uint64) uint64 { return q & p })
	case op.Or:
		return v.binop(func(q, p uint64) uint64 { return q | p })
	case op.Xor:
		return v.binop(func(q, p uint64) uint64 { return q ^ p })
	case op.Shl:
		return v.binop(func(q, p uint64) uint64 { return q << p })
	case op.Shr, op.Shra:
		// Shra matches the recorded behavior of existing traces: a
		// logical shift, identical to Shr.
		return v.binop(func(q, p uint64) uint64 { return q >> p })

	case op.Plus:
		return v.binop(func(q, p uint64) uint64 { return q + p })
	case op.Minus:
		return v.binop(func(q, p uint64) uint64 { return q - p })
	case op.Mul:
		return v.binop(func(q, p uint64) uint64 { return q * p })

	case op.Div:
		p, q, err := v.pop2()
		if err != nil {
			return err
		}
		if p == 0 {
			return errors.DivideByZero(v.pc, o.Code.String())
		}
		v.push(q / p)
		return nil

	case op.Mod:
		p, q, err := v.pop2()
		if err != nil {
			return err
		}
		if p == 0 {
			return errors.DivideByZero(v.pc, o.Code.String())
		}
		v.push(q % p)
		return nil

	case op.PlusConst:
		t, err := v.pop()
		if err != nil {
			return err
		}
		v.push(t + o.Arg)
		return nil

	case op.Bra:
		c, err := v.pop()
		if err != nil {
			return err
		}
		if c != 0 {
			v.pc += uint64(o.Off)
		}
		return nil

	case op.Skip:
		v.pc += uint64(o.Off)
		return nil

	case op.Eq:
		return v.binop(func(q, p uint64) uint64 { return b2u(q == p) })
	case op.Ge:
		return v.binop(func(q, p uint64) uint64 { return b2u(q >= p) })
	case op.Gt:
		return v.binop(func(q, p uint64) uint64 { return b2u(q > p) })
	case op.Le:
		return v.binop(func(q, p uint64) uint64 { return b2u(q <= p) })
	case op.Lt:
		return v.binop(func(q, p uint64) uint64 { return b2u(q < p) })
	case op.Ne:
		return v.binop(func(q, p uint64) uint64 { return b2u(q != p) })

	case op.Reg:
		// Two-level indirection: the context structure holds a pointer
		// per register slot; the pushed value lives behind it.
		ptr, err := v.readU64(o, v.ctx+o.Arg*8)
		if err != nil {
			return err
		}
		val, err := v.readU64(o, ptr)
		if err != nil {
			return err
		}
		v.push(val)
		return nil

	case op.BReg, op.RegX, op.BRegX:
		return errors.Unsupported(v.pc, o.String())
	}

	return errors.Unsupported(v.pc, o.Code.String())
}

func (v *VM) binop(f func(q, p uint64) uint64) error {
	p, q, err := v.pop2()
	if err != nil {
		return err
	}
	v.push(f(q, p))
	return nil
}

func (v *VM) readU64(o *op.Op, addr uint64) (uint64, error) {
	val, err := v.mem.ReadUint64(addr)
	if err != nil {
		return 0, v.annotate(err, o)
	}
	return val, nil
}

// annotate adds execution context to a fault raised by the memory
// subsystem.
func (v *VM) annotate(err error, o *op.Op) error {
	if e, ok := err.(*errors.Error); ok {
		return e.WithPC(v.pc).WithOp(o.Code.String())
	}
	return err
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
