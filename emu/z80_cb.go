package emu

// execCB implements the plain CB-prefixed table: rotate/shift group (x=0),
// BIT (x=1), RES (x=2), SET (x=3), each over the standard 8 register/(HL)
// operands.
func (c *CPU) execCB() (int, error) {
	opcode := c.fetch8()
	x := opcode >> 6
	y := (opcode >> 3) & 7
	z := opcode & 7

	v := c.reg8(z, idxNone, -1)
	switch x {
	case 0:
		res := rotOp(y, c, v)
		c.setReg8(z, idxNone, -1, res)
		if z == 6 {
			return 15, nil
		}
		return 8, nil
	case 1:
		c.bitTest(y, v)
		if z == 6 {
			return 12, nil
		}
		return 8, nil
	case 2:
		res := resBit(y, v)
		c.setReg8(z, idxNone, -1, res)
		if z == 6 {
			return 15, nil
		}
		return 8, nil
	default:
		res := setBit(y, v)
		c.setReg8(z, idxNone, -1, res)
		if z == 6 {
			return 15, nil
		}
		return 8, nil
	}
}

// execIndexedCB implements DDCB/FDCB: unlike every other DD/FD form, the
// displacement byte precedes the opcode byte (DD CB d op), and every
// variant addresses (IX+d)/(IY+d) regardless of the register field the
// opcode names. The documented "undocumented" forms additionally copy the
// computed result into an 8-bit register; only RES/SET/rotate do this, BIT
// never writes back.
func (c *CPU) execIndexedCB(idx idxMode) (int, error) {
	d := int8(c.fetchOperand8())
	opcode := c.fetchOperand8()
	addr := uint16(int32(c.hl(idx)) + int32(d))

	x := opcode >> 6
	y := (opcode >> 3) & 7
	z := opcode & 7

	v := c.read8(addr)
	switch x {
	case 0:
		res := rotOp(y, c, v)
		c.write8(addr, res)
		if z != 6 {
			c.setReg8(z, idxNone, -1, res)
		}
		return 23, nil
	case 1:
		c.bitTestIndexed(y, v, uint8(addr>>8))
		return 20, nil
	case 2:
		res := resBit(y, v)
		c.write8(addr, res)
		if z != 6 {
			c.setReg8(z, idxNone, -1, res)
		}
		return 23, nil
	default:
		res := setBit(y, v)
		c.write8(addr, res)
		if z != 6 {
			c.setReg8(z, idxNone, -1, res)
		}
		return 23, nil
	}
}
