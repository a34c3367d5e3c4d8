package op

import "fmt"

// Code identifies one instruction class. Encodings that differ only in
// operand range (lit0..lit31, reg0..reg31, breg0..breg31) collapse to a
// single Code with the index carried in Op.Arg.
type Code uint8

const (
	Nop Code = iota
	Addr
	Deref
	DerefSize
	Const1u
	Const1s
	Const2u
	Const2s
	Const4u
	Const4s
	Const8u
	Const8s
	Constu
	Consts
	Lit
	Dup
	Drop
	Over
	Pick
	Swap
	Rot
	Abs
	Neg
	Not
	And
	Or
	Xor
	Shl
	Shr
	Shra
	Plus
	Minus
	Mul
	Div
	Mod
	PlusConst
	Bra
	Skip
	Eq
	Ge
	Gt
	Le
	Lt
	Ne
	Reg
	BReg
	RegX
	BRegX
)

var codeNames = [...]string{
	Nop:       "DW_OP_nop",
	Addr:      "DW_OP_addr",
	Deref:     "DW_OP_deref",
	DerefSize: "DW_OP_deref_size",
	Const1u:   "DW_OP_const1u",
	Const1s:   "DW_OP_const1s",
	Const2u:   "DW_OP_const2u",
	Const2s:   "DW_OP_const2s",
	Const4u:   "DW_OP_const4u",
	Const4s:   "DW_OP_const4s",
	Const8u:   "DW_OP_const8u",
	Const8s:   "DW_OP_const8s",
	Constu:    "DW_OP_constu",
	Consts:    "DW_OP_consts",
	Lit:       "DW_OP_lit",
	Dup:       "DW_OP_dup",
	Drop:      "DW_OP_drop",
	Over:      "DW_OP_over",
	Pick:      "DW_OP_pick",
	Swap:      "DW_OP_swap",
	Rot:       "DW_OP_rot",
	Abs:       "DW_OP_abs",
	Neg:       "DW_OP_neg",
	Not:       "DW_OP_not",
	And:       "DW_OP_and",
	Or:        "DW_OP_or",
	Xor:       "DW_OP_xor",
	Shl:       "DW_OP_shl",
	Shr:       "DW_OP_shr",
	Shra:      "DW_OP_shra",
	Plus:      "DW_OP_plus",
	Minus:     "DW_OP_minus",
	Mul:       "DW_OP_mul",
	Div:       "DW_OP_div",
	Mod:       "DW_OP_mod",
	PlusConst: "DW_OP_plus_uconst",
	Bra:       "DW_OP_bra",
	Skip:      "DW_OP_skip",
	Eq:        "DW_OP_eq",
	Ge:        "DW_OP_ge",
	Gt:        "DW_OP_gt",
	Le:        "DW_OP_le",
	Lt:        "DW_OP_lt",
	Ne:        "DW_OP_ne",
	Reg:       "DW_OP_reg",
	BReg:      "DW_OP_breg",
	RegX:      "DW_OP_regx",
	BRegX:     "DW_OP_bregx",
}

func (c Code) String() string {
	if int(c) < len(codeNames) && codeNames[c] != "" {
		return codeNames[c]
	}
	return fmt.Sprintf("DW_OP_unknown(%d)", uint8(c))
}

// Op is one decoded instruction. Signed constant forms are
// sign-extended into Arg at decode time, so the VM pushes Arg as-is.
//
// Field use by instruction class:
//
//	Addr, constants     Arg = value (extended to 64 bits)
//	Lit, Reg, RegX      Arg = literal / register number
//	Pick                Arg = stack depth
//	DerefSize           Arg = width in bytes
//	PlusConst           Arg = addend
//	Bra, Skip           Off = signed pc displacement
//	BReg, BRegX         Arg = register, Off = signed displacement
type Op struct {
	Arg  uint64
	Off  int64
	Code Code
}

func (o Op) String() string {
	switch o.Code {
	case Lit, Reg:
		return fmt.Sprintf("%s%d", o.Code, o.Arg)
	case Addr:
		return fmt.Sprintf("%s 0x%x", o.Code, o.Arg)
	case Const1u, Const2u, Const4u, Const8u, Constu, PlusConst, Pick, DerefSize, RegX:
		return fmt.Sprintf("%s %d", o.Code, o.Arg)
	case Const1s, Const2s, Const4s, Const8s, Consts:
		return fmt.Sprintf("%s %d", o.Code, int64(o.Arg))
	case Bra, Skip:
		return fmt.Sprintf("%s %+d", o.Code, o.Off)
	case BReg:
		return fmt.Sprintf("%s%d %+d", o.Code, o.Arg, o.Off)
	case BRegX:
		return fmt.Sprintf("%s %d %+d", o.Code, o.Arg, o.Off)
	default:
		return o.Code.String()
	}
}
