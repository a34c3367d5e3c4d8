package op

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrTruncated means the buffer ended inside an instruction.
	ErrTruncated = errors.New("truncated instruction")
	// ErrUnknownOpcode means the first byte is not a recognized opcode.
	ErrUnknownOpcode = errors.New("unknown opcode")
)

// Decode reads one DWARF expression instruction from the start of data
// and returns the number of bytes consumed. It implements the standard
// encoding: fixed-width little-endian operands, ULEB128/SLEB128
// operands, and the lit/reg/breg opcode ranges.
func Decode(data []byte) (int, Op, error) {
	if len(data) == 0 {
		return 0, Op{}, ErrTruncated
	}

	b := data[0]

	// Opcode ranges first: lit0..lit31, reg0..reg31, breg0..breg31.
	switch {
	case b >= 0x30 && b <= 0x4f:
		return 1, Op{Code: Lit, Arg: uint64(b - 0x30)}, nil
	case b >= 0x50 && b <= 0x6f:
		return 1, Op{Code: Reg, Arg: uint64(b - 0x50)}, nil
	case b >= 0x70 && b <= 0x8f:
		off, n, err := sleb128(data[1:])
		if err != nil {
			return 0, Op{}, err
		}
		return 1 + n, Op{Code: BReg, Arg: uint64(b - 0x70), Off: off}, nil
	}

	switch b {
	case 0x03: // DW_OP_addr
		if len(data) < 9 {
			return 0, Op{}, ErrTruncated
		}
		return 9, Op{Code: Addr, Arg: binary.LittleEndian.Uint64(data[1:9])}, nil
	case 0x06: // DW_OP_deref
		return 1, Op{Code: Deref}, nil
	case 0x08: // DW_OP_const1u
		return decodeU(data, Const1u, 1)
	case 0x09: // DW_OP_const1s
		return decodeS(data, Const1s, 1)
	case 0x0a: // DW_OP_const2u
		return decodeU(data, Const2u, 2)
	case 0x0b: // DW_OP_const2s
		return decodeS(data, Const2s, 2)
	case 0x0c: // DW_OP_const4u
		return decodeU(data, Const4u, 4)
	case 0x0d: // DW_OP_const4s
		return decodeS(data, Const4s, 4)
	case 0x0e: // DW_OP_const8u
		return decodeU(data, Const8u, 8)
	case 0x0f: // DW_OP_const8s
		return decodeS(data, Const8s, 8)
	case 0x10: // DW_OP_constu
		v, n, err := uleb128(data[1:])
		if err != nil {
			return 0, Op{}, err
		}
		return 1 + n, Op{Code: Constu, Arg: v}, nil
	case 0x11: // DW_OP_consts
		v, n, err := sleb128(data[1:])
		if err != nil {
			return 0, Op{}, err
		}
		return 1 + n, Op{Code: Consts, Arg: uint64(v)}, nil
	case 0x12:
		return 1, Op{Code: Dup}, nil
	case 0x13:
		return 1, Op{Code: Drop}, nil
	case 0x14:
		return 1, Op{Code: Over}, nil
	case 0x15: // DW_OP_pick
		if len(data) < 2 {
			return 0, Op{}, ErrTruncated
		}
		return 2, Op{Code: Pick, Arg: uint64(data[1])}, nil
	case 0x16:
		return 1, Op{Code: Swap}, nil
	case 0x17:
		return 1, Op{Code: Rot}, nil
	case 0x19:
		return 1, Op{Code: Abs}, nil
	case 0x1a:
		return 1, Op{Code: And}, nil
	case 0x1b:
		return 1, Op{Code: Div}, nil
	case 0x1c:
		return 1, Op{Code: Minus}, nil
	case 0x1d:
		return 1, Op{Code: Mod}, nil
	case 0x1e:
		return 1, Op{Code: Mul}, nil
	case 0x1f:
		return 1, Op{Code: Neg}, nil
	case 0x20:
		return 1, Op{Code: Not}, nil
	case 0x21:
		return 1, Op{Code: Or}, nil
	case 0x22:
		return 1, Op{Code: Plus}, nil
	case 0x23: // DW_OP_plus_uconst
		v, n, err := uleb128(data[1:])
		if err != nil {
			return 0, Op{}, err
		}
		return 1 + n, Op{Code: PlusConst, Arg: v}, nil
	case 0x24:
		return 1, Op{Code: Shl}, nil
	case 0x25:
		return 1, Op{Code: Shr}, nil
	case 0x26:
		return 1, Op{Code: Shra}, nil
	case 0x27:
		return 1, Op{Code: Xor}, nil
	case 0x28: // DW_OP_bra
		return decodeBranch(data, Bra)
	case 0x29:
		return 1, Op{Code: Eq}, nil
	case 0x2a:
		return 1, Op{Code: Ge}, nil
	case 0x2b:
		return 1, Op{Code: Gt}, nil
	case 0x2c:
		return 1, Op{Code: Le}, nil
	case 0x2d:
		return 1, Op{Code: Lt}, nil
	case 0x2e:
		return 1, Op{Code: Ne}, nil
	case 0x2f: // DW_OP_skip
		return decodeBranch(data, Skip)
	case 0x90: // DW_OP_regx
		v, n, err := uleb128(data[1:])
		if err != nil {
			return 0, Op{}, err
		}
		return 1 + n, Op{Code: RegX, Arg: v}, nil
	case 0x92: // DW_OP_bregx
		r, rn, err := uleb128(data[1:])
		if err != nil {
			return 0, Op{}, err
		}
		off, on, err := sleb128(data[1+rn:])
		if err != nil {
			return 0, Op{}, err
		}
		return 1 + rn + on, Op{Code: BRegX, Arg: r, Off: off}, nil
	case 0x94: // DW_OP_deref_size
		if len(data) < 2 {
			return 0, Op{}, ErrTruncated
		}
		return 2, Op{Code: DerefSize, Arg: uint64(data[1])}, nil
	case 0x96:
		return 1, Op{Code: Nop}, nil
	}

	return 0, Op{}, fmt.Errorf("%w 0x%02x", ErrUnknownOpcode, b)
}

// decodeU reads an unsigned fixed-width constant operand.
func decodeU(data []byte, c Code, width int) (int, Op, error) {
	if len(data) < 1+width {
		return 0, Op{}, ErrTruncated
	}
	var v uint64
	switch width {
	case 1:
		v = uint64(data[1])
	case 2:
		v = uint64(binary.LittleEndian.Uint16(data[1:]))
	case 4:
		v = uint64(binary.LittleEndian.Uint32(data[1:]))
	case 8:
		v = binary.LittleEndian.Uint64(data[1:])
	}
	return 1 + width, Op{Code: c, Arg: v}, nil
}

// decodeS reads a signed fixed-width constant operand, sign-extending
// it to 64 bits.
func decodeS(data []byte, c Code, width int) (int, Op, error) {
	if len(data) < 1+width {
		return 0, Op{}, ErrTruncated
	}
	var v int64
	switch width {
	case 1:
		v = int64(int8(data[1]))
	case 2:
		v = int64(int16(binary.LittleEndian.Uint16(data[1:])))
	case 4:
		v = int64(int32(binary.LittleEndian.Uint32(data[1:])))
	case 8:
		v = int64(binary.LittleEndian.Uint64(data[1:]))
	}
	return 1 + width, Op{Code: c, Arg: uint64(v)}, nil
}

// decodeBranch reads the 2-byte signed displacement shared by bra and
// skip.
func decodeBranch(data []byte, c Code) (int, Op, error) {
	if len(data) < 3 {
		return 0, Op{}, ErrTruncated
	}
	off := int64(int16(binary.LittleEndian.Uint16(data[1:])))
	return 3, Op{Code: c, Off: off}, nil
}

func uleb128(data []byte) (uint64, int, error) {
	var v uint64
	var shift uint
	for i, b := range data {
		if shift >= 64 {
			return 0, 0, fmt.Errorf("%w: ULEB128 overflow", ErrTruncated)
		}
		v |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, ErrTruncated
}

func sleb128(data []byte) (int64, int, error) {
	var v int64
	var shift uint
	for i, b := range data {
		if shift >= 64 {
			return 0, 0, fmt.Errorf("%w: SLEB128 overflow", ErrTruncated)
		}
		v |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				v |= -1 << shift
			}
			return v, i + 1, nil
		}
	}
	return 0, 0, ErrTruncated
}
