package emu

// execED implements the ED-prefixed table: 16-bit ADC/SBC, extended
// LD (nn),rp / LD rp,(nn), NEG, RETN/RETI, IM0/1/2, LD A,I / LD A,R (with
// their documented P/V-mirrors-IFF2 behavior), RRD/RLD, IN/OUT (C), and the
// block transfer/search/IO group. Unrecognized ED opcodes (the documented
// "ED then NOP-like" holes) are reported as unimplemented rather than
// silently ignored, per the interpreter's error-handling contract.
func (c *CPU) execED() (int, error) {
	pcBefore := c.PC - 1
	opcode := c.fetch8()
	x := opcode >> 6
	y := (opcode >> 3) & 7
	z := opcode & 7
	p := y >> 1
	q := y & 1

	switch x {
	case 1:
		return c.execED_x1(opcode, y, z, p, q, pcBefore)
	case 2:
		if z <= 3 && y >= 4 {
			return c.execEDBlock(y, z)
		}
	}
	return 8, &ErrUnimplementedOpcode{PC: pcBefore, Prefix: "ed ", Opcode: opcode}
}

func (c *CPU) execED_x1(opcode, y, z, p, q uint8, pcBefore uint16) (int, error) {
	switch z {
	case 0: // IN r,(C) / IN (C) (y==6, flags-only form)
		v := c.in8(c.C)
		c.F &^= FlagS | FlagZ | FlagH | FlagPV | FlagN
		c.setSZ53(v)
		if parity(v) {
			c.F |= FlagPV
		}
		if y != 6 {
			c.setReg8(y, idxNone, -1, v)
		}
		return 12, nil
	case 1: // OUT (C),r / OUT (C),0
		var v uint8
		if y != 6 {
			v = c.reg8(y, idxNone, -1)
		}
		c.out8(c.C, v)
		return 12, nil
	case 2:
		if q == 0 {
			c.SetHL(c.sbc16(c.HL(), c.rp(p, idxNone)))
		} else {
			c.SetHL(c.adc16(c.HL(), c.rp(p, idxNone)))
		}
		return 15, nil
	case 3:
		nn := c.fetch16()
		if q == 0 { // LD (nn),rp
			v := c.rp(p, idxNone)
			c.write8(nn, uint8(v))
			c.write8(nn+1, uint8(v>>8))
		} else { // LD rp,(nn)
			lo := c.read8(nn)
			hi := c.read8(nn + 1)
			c.setRP(p, idxNone, uint16(hi)<<8|uint16(lo))
		}
		return 20, nil
	case 4: // NEG (every y value aliases to the same documented operation)
		c.A = c.sub8(0, c.A, false)
		return 8, nil
	case 5:
		if y == 1 {
			c.retFromReti()
		} else {
			c.retFromStack() // RETN; also applies the IFF2->IFF1 restore directly
			c.setIFF(c.IFF2, c.IFF2)
		}
		return 14, nil
	case 6:
		switch y & 3 {
		case 0, 1:
			c.IM = 0
		case 2:
			c.IM = 1
		default:
			c.IM = 2
		}
		return 8, nil
	case 7:
		return c.execED_z7(y)
	default:
		return 8, &ErrUnimplementedOpcode{PC: pcBefore, Prefix: "ed ", Opcode: opcode}
	}
}

// retFromReti implements RETI: pops the return address and, like RETN,
// restores IFF1 from IFF2. It additionally signals daisy-chained
// peripherals that the interrupt service routine is complete.
func (c *CPU) retFromReti() {
	addr := c.pop16()
	c.PC = addr
	c.setIFF(c.IFF2, c.IFF2)
	if c.handlerRetArmed && addr == c.handlerRetPC {
		c.handlerRetArmed = false
	}
	if c.Hooks.OnRETIObserved != nil {
		c.Hooks.OnRETIObserved()
	}
}

func (c *CPU) execED_z7(y uint8) (int, error) {
	switch y {
	case 0: // LD I,A
		c.I = c.A
		return 9, nil
	case 1: // LD R,A
		c.R = c.A
		return 9, nil
	case 2: // LD A,I
		c.A = c.I
		c.F &^= FlagS | FlagZ | FlagH | FlagPV | FlagN
		c.setSZ53(c.A)
		if c.IFF2 {
			c.F |= FlagPV
		}
		return 9, nil
	case 3: // LD A,R
		c.A = c.R
		c.F &^= FlagS | FlagZ | FlagH | FlagPV | FlagN
		c.setSZ53(c.A)
		if c.IFF2 {
			c.F |= FlagPV
		}
		return 9, nil
	case 4: // RRD
		mem := c.read8(c.HL())
		res := uint8(c.A&0x0F)<<4 | mem>>4
		c.A = c.A&0xF0 | mem&0x0F
		c.write8(c.HL(), res)
		c.F &^= FlagS | FlagZ | FlagH | FlagPV | FlagN
		c.setSZ53(c.A)
		if parity(c.A) {
			c.F |= FlagPV
		}
		return 18, nil
	case 5: // RLD
		mem := c.read8(c.HL())
		res := mem<<4 | c.A&0x0F
		c.A = c.A&0xF0 | mem>>4
		c.write8(c.HL(), res)
		c.F &^= FlagS | FlagZ | FlagH | FlagPV | FlagN
		c.setSZ53(c.A)
		if parity(c.A) {
			c.F |= FlagPV
		}
		return 18, nil
	default: // 6,7: undocumented NOP-equivalent (NOP, NOP)
		return 9, nil
	}
}
