package emu

// Step executes exactly one instruction, or services a pending interrupt,
// and returns the number of T-states consumed. The order each call checks
// is: NMI (edge, highest priority, never masked) then maskable IRQ (gated
// on IFF1 and the one-instruction EI-delay window) then, failing both,
// either the HALT idle tick or a normal fetch-decode-execute cycle.
func (c *CPU) Step() (int, error) {
	c.lastWaitCycles = 0
	masked := c.eiDelay
	c.eiDelay = false

	var cycles int
	var err error
	switch {
	case c.nmiLine:
		cycles = c.acceptNMI()
	case c.irqLine && c.IFF1 && !masked:
		cycles = c.acceptIRQ()
	case c.halted:
		c.incrementR()
		c.trace(c.PC, nil, nil, "HALT (idle)", 4, false, false)
		cycles = 4
	default:
		cycles, err = c.runInstruction()
	}
	if c.Wait.IncludeInCycles {
		cycles += c.lastWaitCycles
	}
	return cycles, err
}

func (c *CPU) acceptNMI() int {
	haltedBefore := c.halted
	c.halted = false
	c.nmiLine = false
	c.setIFF(false, c.IFF2)
	c.push16(c.PC)
	c.handlerRetPC = c.PC
	c.handlerRetArmed = true
	c.PC = 0x0066
	cycles := 11
	if haltedBefore {
		cycles += 4
	}
	c.trace(c.PC, nil, nil, "NMI accepted", cycles, false, true)
	return cycles
}

func (c *CPU) acceptIRQ() int {
	haltedBefore := c.halted
	c.halted = false
	c.irqLine = false
	c.setIFF(false, c.IFF2)
	c.push16(c.PC)
	c.handlerRetPC = c.PC
	c.handlerRetArmed = true

	var cycles int
	switch c.IM {
	case 0:
		cycles = c.im0Accept()
	case 2:
		vecLo := uint8(0xFF)
		if c.Hooks.OnIM0Opcode != nil {
			vecLo = c.Hooks.OnIM0Opcode()
		}
		vecAddr := uint16(c.I)<<8 | uint16(vecLo)
		lo := c.read8(vecAddr)
		hi := c.read8(vecAddr + 1)
		c.PC = uint16(hi)<<8 | uint16(lo)
		cycles = 19
	default: // IM1, and any other stored value, behaves as IM1
		c.PC = 0x0038
		cycles = 13
	}
	if haltedBefore {
		cycles += 4
	}
	c.trace(c.PC, nil, nil, "IRQ accepted", cycles, true, false)
	return cycles
}

// im0Accept supports the common case of an IM0 peripheral placing a
// single-byte RST instruction on the data bus: acceptIRQ has already pushed
// the return address, so an RST byte only jumps to its vector. Any other
// byte leaves PC unchanged; the return address stays pushed and IFF1 stays
// cleared.
func (c *CPU) im0Accept() int {
	opcode := uint8(0xFF)
	if c.Hooks.OnIM0Opcode != nil {
		opcode = c.Hooks.OnIM0Opcode()
	}
	if opcode&0xC7 == 0xC7 {
		c.PC = uint16(opcode & 0x38)
		return 13
	}
	return 2
}

func (c *CPU) trace(pcBefore uint16, opcode *uint8, bytes []uint8, text string, cycles int, irq, nmi bool) {
	if c.Hooks.OnTrace == nil {
		return
	}
	ev := TraceEvent{
		PCBefore:    pcBefore,
		Opcode:      opcode,
		Bytes:       bytes,
		Cycles:      cycles,
		IRQAccepted: irq,
		NMIAccepted: nmi,
	}
	if c.Hooks.TraceDisasm {
		ev.Text = text
	}
	if c.Hooks.TraceRegs {
		r := c.Registers
		ev.Regs = &r
	}
	c.Hooks.OnTrace(ev)
}

// runInstruction consumes zero or more DD/FD prefix bytes (the last one
// wins; each still costs its own 4-cycle fetch) and dispatches the
// resulting opcode under CB, ED or the base table.
func (c *CPU) runInstruction() (int, error) {
	prefixCycles := 0
	idx := idxNone
	pcBefore := c.PC

	for {
		opcode := c.fetch8()
		switch opcode {
		case 0xDD:
			prefixCycles += 4
			idx = idxIX
			continue
		case 0xFD:
			prefixCycles += 4
			idx = idxIY
			continue
		case 0xCB:
			c.dispFetched = false
			if idx != idxNone {
				cyc, err := c.execIndexedCB(idx)
				return prefixCycles + cyc, err
			}
			cyc, err := c.execCB()
			return prefixCycles + cyc, err
		case 0xED:
			cyc, err := c.execED()
			return prefixCycles + cyc, err
		default:
			c.dispFetched = false
			cyc, err := c.execBase(opcode, idx)
			if c.dispFetched {
				cyc += 8
			}
			if err != nil {
				if ue, ok := err.(*ErrUnimplementedOpcode); ok {
					ue.PC = pcBefore
				}
			}
			return prefixCycles + cyc, err
		}
	}
}

// execBase implements the unprefixed instruction table. idx selects the
// DD/FD overlay (idxNone for the plain table); callers add the prefix
// fetch and displacement-fetch cycle costs.
func (c *CPU) execBase(opcode uint8, idx idxMode) (int, error) {
	x := opcode >> 6
	y := (opcode >> 3) & 7
	z := opcode & 7
	p := y >> 1
	q := y & 1

	switch x {
	case 0:
		return c.execBaseX0(opcode, y, z, p, q, idx)
	case 1:
		if z == 6 && y == 6 {
			c.halted = true
			return 4, nil
		}
		v := c.reg8(z, idx, -1)
		c.setReg8(y, idx, -1, v)
		if z == 6 || y == 6 {
			return 7, nil
		}
		return 4, nil
	case 2:
		operand := c.reg8(z, idx, -1)
		aluOp(y, c, operand)
		if z == 6 {
			return 7, nil
		}
		return 4, nil
	default: // x == 3
		return c.execBaseX3(opcode, y, z, p, q, idx)
	}
}

func (c *CPU) execBaseX0(opcode uint8, y, z, p, q uint8, idx idxMode) (int, error) {
	switch z {
	case 0:
		switch y {
		case 0:
			return 4, nil // NOP
		case 1: // EX AF,AF'
			c.A, c.A2 = c.A2, c.A
			c.F, c.F2 = c.F2, c.F
			return 4, nil
		case 2: // DJNZ d
			d := int8(c.fetchOperand8())
			c.B--
			if c.B != 0 {
				c.PC = uint16(int32(c.PC) + int32(d))
				return 13, nil
			}
			return 8, nil
		case 3: // JR d
			d := int8(c.fetchOperand8())
			c.PC = uint16(int32(c.PC) + int32(d))
			return 12, nil
		default: // JR cc,d  (y=4..7 -> cc=0..3)
			d := int8(c.fetchOperand8())
			if c.testCond(y - 4) {
				c.PC = uint16(int32(c.PC) + int32(d))
				return 12, nil
			}
			return 7, nil
		}
	case 1:
		if q == 0 { // LD rp,nn
			nn := c.fetch16()
			c.setRP(p, idx, nn)
			return 10, nil
		}
		// ADD HL,rp
		res := c.add16(c.hl(idx), c.rp(p, idx))
		c.setHLReg(idx, res)
		return 11, nil
	case 2:
		switch y {
		case 0: // LD (BC),A
			c.write8(c.BC(), c.A)
			return 7, nil
		case 1: // LD A,(BC)
			c.A = c.read8(c.BC())
			return 7, nil
		case 2: // LD (DE),A
			c.write8(c.DE(), c.A)
			return 7, nil
		case 3: // LD A,(DE)
			c.A = c.read8(c.DE())
			return 7, nil
		case 4: // LD (nn),HL
			nn := c.fetch16()
			v := c.hl(idx)
			c.write8(nn, uint8(v))
			c.write8(nn+1, uint8(v>>8))
			return 16, nil
		case 5: // LD HL,(nn)
			nn := c.fetch16()
			lo := c.read8(nn)
			hi := c.read8(nn + 1)
			c.setHLReg(idx, uint16(hi)<<8|uint16(lo))
			return 16, nil
		case 6: // LD (nn),A
			nn := c.fetch16()
			c.write8(nn, c.A)
			return 13, nil
		default: // LD A,(nn)
			nn := c.fetch16()
			c.A = c.read8(nn)
			return 13, nil
		}
	case 3:
		if q == 0 {
			c.setRP(p, idx, c.rp(p, idx)+1)
		} else {
			c.setRP(p, idx, c.rp(p, idx)-1)
		}
		return 6, nil
	case 4:
		if y == 6 && idx != idxNone {
			// INC (IX+d)/(IY+d): fetch the displacement once and reuse it
			// for both the read and the write-back, instead of letting
			// reg8/setReg8 each call displacedAddr and consume a second
			// byte of the instruction stream as a bogus displacement.
			addr := c.displacedAddr(idx)
			c.write8(addr, c.inc8(c.read8(addr)))
			return 11, nil
		}
		v := c.reg8(y, idx, -1)
		c.setReg8(y, idx, -1, c.inc8(v))
		if y == 6 {
			return 11, nil
		}
		return 4, nil
	case 5:
		if y == 6 && idx != idxNone {
			addr := c.displacedAddr(idx)
			c.write8(addr, c.dec8(c.read8(addr)))
			return 11, nil
		}
		v := c.reg8(y, idx, -1)
		c.setReg8(y, idx, -1, c.dec8(v))
		if y == 6 {
			return 11, nil
		}
		return 4, nil
	case 6:
		if y == 6 && idx != idxNone {
			// LD (IX+d),n / LD (IY+d),n: the displacement byte precedes
			// the immediate. Real hardware timing (19 T) doesn't
			// decompose as cleanly as the other displaced forms; the
			// prefix+displacement overhead computed by the caller would
			// overcount it, so the formula is corrected here directly.
			addr := c.displacedAddr(idx)
			c.write8(addr, c.fetchOperand8())
			c.dispFetched = false
			return 15, nil
		}
		n := c.fetchOperand8()
		c.setReg8(y, idx, -1, n)
		if y == 6 {
			return 10, nil
		}
		return 7, nil
	default: // z == 7: rotate-A / DAA / CPL / SCF / CCF
		// RLCA/RRCA/RLA/RRA affect C and clear H/N but, unlike their CB
		// counterparts, leave S/Z/P unchanged; F3/F5 come from the result.
		rotateA := func(res uint8, carry bool) {
			c.F &^= FlagH | FlagN | FlagC | FlagF5 | FlagF3
			if carry {
				c.F |= FlagC
			}
			c.F |= res & (FlagF5 | FlagF3)
		}
		switch y {
		case 0:
			carry := c.A&0x80 != 0
			c.A = c.A<<1 | c.A>>7
			rotateA(c.A, carry)
			return 4, nil
		case 1:
			carry := c.A&0x01 != 0
			c.A = c.A>>1 | c.A<<7
			rotateA(c.A, carry)
			return 4, nil
		case 2:
			oldCarry := c.F&FlagC != 0
			carry := c.A&0x80 != 0
			c.A <<= 1
			if oldCarry {
				c.A |= 1
			}
			rotateA(c.A, carry)
			return 4, nil
		case 3:
			oldCarry := c.F&FlagC != 0
			carry := c.A&0x01 != 0
			c.A >>= 1
			if oldCarry {
				c.A |= 0x80
			}
			rotateA(c.A, carry)
			return 4, nil
		case 4:
			c.daa()
			return 4, nil
		case 5:
			c.A = ^c.A
			c.F |= FlagH | FlagN
			c.F = c.F&^(FlagF5|FlagF3) | (c.A & (FlagF5 | FlagF3))
			return 4, nil
		case 6:
			c.F &^= FlagH | FlagN
			c.F |= FlagC
			c.F = c.F&^(FlagF5|FlagF3) | (c.A & (FlagF5 | FlagF3))
			return 4, nil
		default: // CCF
			var h uint8
			if c.F&FlagC != 0 {
				h = FlagH
			}
			c.F &^= FlagN | FlagH
			c.F |= h
			c.F ^= FlagC
			c.F = c.F&^(FlagF5|FlagF3) | (c.A & (FlagF5 | FlagF3))
			return 4, nil
		}
	}
}

func (c *CPU) execBaseX3(opcode uint8, y, z, p, q uint8, idx idxMode) (int, error) {
	switch z {
	case 0: // RET cc
		if c.testCond(y) {
			c.retFromStack()
			return 11, nil
		}
		return 5, nil
	case 1:
		if q == 0 { // POP rp2
			v := c.pop16()
			c.setRP2(p, idx, v)
			return 10, nil
		}
		switch p {
		case 0: // RET
			c.retFromStack()
			return 10, nil
		case 1: // EXX
			c.B, c.B2 = c.B2, c.B
			c.C, c.C2 = c.C2, c.C
			c.D, c.D2 = c.D2, c.D
			c.E, c.E2 = c.E2, c.E
			c.H, c.H2 = c.H2, c.H
			c.L, c.L2 = c.L2, c.L
			return 4, nil
		case 2: // JP (HL)/(IX)/(IY)
			c.PC = c.hl(idx)
			return 4, nil
		default: // LD SP,HL/IX/IY
			c.SP = c.hl(idx)
			return 6, nil
		}
	case 2: // JP cc,nn
		nn := c.fetch16()
		if c.testCond(y) {
			c.PC = nn
		}
		return 10, nil
	case 3:
		switch y {
		case 0: // JP nn
			c.PC = c.fetch16()
			return 10, nil
		case 1:
			return 0, &ErrUnimplementedOpcode{Opcode: opcode} // unreachable: 0xCB handled earlier
		case 2: // OUT (n),A
			n := c.fetchOperand8()
			c.out8(n, c.A)
			return 11, nil
		case 3: // IN A,(n)
			n := c.fetchOperand8()
			c.A = c.in8(n)
			return 11, nil
		case 4: // EX (SP),HL/IX/IY
			lo := c.read8(c.SP)
			hi := c.read8(c.SP + 1)
			old := c.hl(idx)
			c.write8(c.SP, uint8(old))
			c.write8(c.SP+1, uint8(old>>8))
			c.setHLReg(idx, uint16(hi)<<8|uint16(lo))
			return 19, nil
		case 5: // EX DE,HL -- documented as unaffected by DD/FD
			c.D, c.H = c.H, c.D
			c.E, c.L = c.L, c.E
			return 4, nil
		case 6: // DI
			c.setIFF(false, false)
			return 4, nil
		default: // EI
			c.setIFF(true, true)
			c.eiDelay = true
			return 4, nil
		}
	case 4: // CALL cc,nn
		nn := c.fetch16()
		if c.testCond(y) {
			c.push16(c.PC)
			c.PC = nn
			return 17, nil
		}
		return 10, nil
	case 5:
		if q == 0 { // PUSH rp2
			c.push16(c.rp2(p, idx))
			return 11, nil
		}
		// CALL nn
		nn := c.fetch16()
		c.push16(c.PC)
		c.PC = nn
		return 17, nil
	case 6: // ALU A,n
		n := c.fetchOperand8()
		aluOp(y, c, n)
		return 7, nil
	default: // RST y*8
		c.push16(c.PC)
		c.PC = uint16(y) * 8
		return 11, nil
	}
}

// retFromStack implements plain RET, including the documented-elsewhere
// compatibility behavior where returning to the exact address pushed by
// the most recent interrupt acceptance also restores IFF1 from IFF2.
func (c *CPU) retFromStack() {
	addr := c.pop16()
	c.PC = addr
	if c.compatRetRestoresIFF && c.handlerRetArmed && addr == c.handlerRetPC {
		c.setIFF(c.IFF2, c.IFF2)
		c.handlerRetArmed = false
	}
}
