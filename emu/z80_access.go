package emu

// idxMode selects the active DD/FD overlay: which index register (if any)
// stands in for HL / H / L for the instruction currently decoding.
type idxMode int

const (
	idxNone idxMode = iota
	idxIX
	idxIY
)

func (c *CPU) incrementR() {
	// R's top bit is not affected by refresh increments; only the low 7
	// bits cycle.
	c.R = (c.R & 0x80) | ((c.R + 1) & 0x7F)
}

func (c *CPU) fetch8() uint8 {
	v := c.bus.Read(c.PC)
	c.PC++
	c.incrementR()
	return v
}

// fetchOperand8 reads an immediate/displacement byte without touching R
// (only opcode fetches increment the refresh register).
func (c *CPU) fetchOperand8() uint8 {
	v := c.bus.Read(c.PC)
	c.PC++
	return v
}

func (c *CPU) fetch16() uint16 {
	lo := c.fetchOperand8()
	hi := c.fetchOperand8()
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) read8(addr uint16) uint8 {
	if c.Wait.MemRead != nil {
		c.lastWaitCycles += c.Wait.MemRead(addr)
	}
	v := c.bus.Read(addr)
	if c.Hooks.OnMemRead != nil {
		c.Hooks.OnMemRead(addr, v)
	}
	return v
}

func (c *CPU) write8(addr uint16, v uint8) {
	if c.Wait.MemWrite != nil {
		c.lastWaitCycles += c.Wait.MemWrite(addr)
	}
	c.bus.Write(addr, v)
	if c.Hooks.OnMemWrite != nil {
		c.Hooks.OnMemWrite(addr, v)
	}
}

func (c *CPU) in8(port uint8) uint8 {
	if c.Wait.IORead != nil {
		c.lastWaitCycles += c.Wait.IORead(port)
	}
	v := c.bus.In(port)
	if c.Hooks.OnIORead != nil {
		c.Hooks.OnIORead(port, v)
	}
	return v
}

func (c *CPU) out8(port, v uint8) {
	if c.Wait.IOWrite != nil {
		c.lastWaitCycles += c.Wait.IOWrite(port)
	}
	c.bus.Out(port, v)
	if c.Hooks.OnIOWrite != nil {
		c.Hooks.OnIOWrite(port, v)
	}
}

func (c *CPU) push16(v uint16) {
	c.SP--
	c.write8(c.SP, uint8(v>>8))
	c.SP--
	c.write8(c.SP, uint8(v))
}

func (c *CPU) pop16() uint16 {
	lo := c.read8(c.SP)
	c.SP++
	hi := c.read8(c.SP)
	c.SP++
	return uint16(hi)<<8 | uint16(lo)
}

// hl returns the effective HL-ish register pair for the active overlay:
// HL, IX or IY.
func (c *CPU) hl(idx idxMode) uint16 {
	switch idx {
	case idxIX:
		return c.IX
	case idxIY:
		return c.IY
	default:
		return c.HL()
	}
}

func (c *CPU) setHLReg(idx idxMode, v uint16) {
	switch idx {
	case idxIX:
		c.IX = v
	case idxIY:
		c.IY = v
	default:
		c.SetHL(v)
	}
}

// displacedAddr fetches the signed displacement byte that follows a
// DD/FD-prefixed opcode referencing (IX+d)/(IY+d) and returns the effective
// address.
func (c *CPU) displacedAddr(idx idxMode) uint16 {
	d := int8(c.fetchOperand8())
	c.dispFetched = true
	return uint16(int32(c.hl(idx)) + int32(d))
}

// reg8 reads an 8-bit operand selected by the 3-bit register code (B C D E
// H L (HL) A), honoring the DD/FD overlay: under a prefix, H/L become
// IXH/IXL/IYH/IYL and (HL) becomes (IX+d)/(IY+d). disp, if non-negative,
// supplies an already-fetched displacement (used by DDCB/FDCB where the
// displacement precedes the opcode byte instead of following it); pass -1
// to have it fetched lazily here.
func (c *CPU) reg8(code uint8, idx idxMode, disp int) uint8 {
	switch code {
	case 0:
		return c.B
	case 1:
		return c.C
	case 2:
		return c.D
	case 3:
		return c.E
	case 4:
		if idx == idxIX {
			return uint8(c.IX >> 8)
		}
		if idx == idxIY {
			return uint8(c.IY >> 8)
		}
		return c.H
	case 5:
		if idx == idxIX {
			return uint8(c.IX)
		}
		if idx == idxIY {
			return uint8(c.IY)
		}
		return c.L
	case 6:
		addr := c.hl(idxNone)
		if idx != idxNone {
			if disp >= 0 {
				addr = uint16(int32(c.hl(idx)) + int32(int8(disp)))
			} else {
				addr = c.displacedAddr(idx)
			}
		}
		return c.read8(addr)
	default: // 7
		return c.A
	}
}

func (c *CPU) setReg8(code uint8, idx idxMode, disp int, v uint8) {
	switch code {
	case 0:
		c.B = v
	case 1:
		c.C = v
	case 2:
		c.D = v
	case 3:
		c.E = v
	case 4:
		switch idx {
		case idxIX:
			c.IX = uint16(v)<<8 | c.IX&0xFF
		case idxIY:
			c.IY = uint16(v)<<8 | c.IY&0xFF
		default:
			c.H = v
		}
	case 5:
		switch idx {
		case idxIX:
			c.IX = c.IX&0xFF00 | uint16(v)
		case idxIY:
			c.IY = c.IY&0xFF00 | uint16(v)
		default:
			c.L = v
		}
	case 6:
		addr := c.hl(idxNone)
		if idx != idxNone {
			if disp >= 0 {
				addr = uint16(int32(c.hl(idx)) + int32(int8(disp)))
			} else {
				addr = c.displacedAddr(idx)
			}
		}
		c.write8(addr, v)
	default:
		c.A = v
	}
}

// rp reads the 16-bit register pair selected by p (BC DE HL/IX/IY SP).
func (c *CPU) rp(p uint8, idx idxMode) uint16 {
	switch p {
	case 0:
		return c.BC()
	case 1:
		return c.DE()
	case 2:
		return c.hl(idx)
	default:
		return c.SP
	}
}

func (c *CPU) setRP(p uint8, idx idxMode, v uint16) {
	switch p {
	case 0:
		c.SetBC(v)
	case 1:
		c.SetDE(v)
	case 2:
		c.setHLReg(idx, v)
	default:
		c.SP = v
	}
}

// rp2 reads the 16-bit register pair used by PUSH/POP, where the fourth
// slot is AF instead of SP.
func (c *CPU) rp2(p uint8, idx idxMode) uint16 {
	if p == 3 {
		return c.AF()
	}
	return c.rp(p, idx)
}

func (c *CPU) setRP2(p uint8, idx idxMode, v uint16) {
	if p == 3 {
		c.SetAF(v)
		return
	}
	c.setRP(p, idx, v)
}

func (c *CPU) testCond(y uint8) bool {
	switch y {
	case 0:
		return c.F&FlagZ == 0
	case 1:
		return c.F&FlagZ != 0
	case 2:
		return c.F&FlagC == 0
	case 3:
		return c.F&FlagC != 0
	case 4:
		return c.F&FlagPV == 0
	case 5:
		return c.F&FlagPV != 0
	case 6:
		return c.F&FlagS == 0
	default:
		return c.F&FlagS != 0
	}
}
