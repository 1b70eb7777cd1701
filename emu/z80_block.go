package emu

// execEDBlock implements the sixteen-entry ED block group: LDI/LDD/LDIR/
// LDDR (z=0), CPI/CPD/CPIR/CPDR (z=1), INI/IND/INIR/INDR (z=2) and OUTI/
// OUTD/OTIR/OTDR (z=3), selected by y: 4=single forward, 5=single backward,
// 6=repeat forward, 7=repeat backward.
func (c *CPU) execEDBlock(y, z uint8) (int, error) {
	backward := y == 5 || y == 7
	repeat := y == 6 || y == 7

	if c.FastBlocks && repeat {
		return c.execBlockFast(backward, z), nil
	}
	return c.execBlockStep(backward, repeat, z), nil
}

// blockStep runs one iteration of the addressed family and reports whether
// the repeat condition (BC!=0 for LD/CP, and for CPI/CPD also result!=0;
// B!=0 for IN/OUT) still holds.
// It does not touch R itself: in the stepwise path, R already advances
// twice per iteration from the ED+opcode re-fetch; execBlockFast applies
// the matching increments manually since it fetches the pair only once.
func (c *CPU) blockStep(fn string, backward bool, z uint8) bool {
	switch z {
	case 0:
		return c.ldStep(backward)
	case 1:
		return c.cpStep(backward)
	case 2:
		return c.inStep(backward)
	default:
		return c.outStep(backward)
	}
}

// execBlockStep runs exactly one iteration (matching the non-repeating
// instructions, and the per-Step granularity used by the repeating forms
// when FastBlocks is off) and reports that iteration's cycle cost.
func (c *CPU) execBlockStep(backward, repeat bool, z uint8) int {
	more := c.blockStep("", backward, z)
	if repeat && more {
		c.PC -= 2
		return 21
	}
	return 16
}

// execBlockFast collapses a repeating block instruction into a single
// compound operation, producing the same final register/memory state and
// total cycle count as stepping it one iteration at a time, but without a
// Step call per byte.
func (c *CPU) execBlockFast(backward bool, z uint8) int {
	total := 0
	first := true
	for {
		if !first {
			// Matches the two R increments the stepwise path picks up
			// from re-fetching the ED+opcode pair each iteration; the
			// first iteration's pair was already fetched by the caller.
			c.incrementR()
			c.incrementR()
		}
		first = false
		more := c.blockStep("", backward, z)
		if !more {
			total += 16
			return total
		}
		total += 21
	}
}

func (c *CPU) ldStep(backward bool) bool {
	v := c.read8(c.HL())
	c.write8(c.DE(), v)
	if backward {
		c.SetHL(c.HL() - 1)
		c.SetDE(c.DE() - 1)
	} else {
		c.SetHL(c.HL() + 1)
		c.SetDE(c.DE() + 1)
	}
	c.SetBC(c.BC() - 1)

	c.F &^= FlagN | FlagH | FlagPV | FlagF5 | FlagF3
	if c.BC() != 0 {
		c.F |= FlagPV
	}
	n := c.A + v
	c.F |= n & FlagF3
	if n&0x02 != 0 {
		c.F |= FlagF5
	}
	return c.BC() != 0
}

func (c *CPU) cpStep(backward bool) bool {
	v := c.read8(c.HL())
	if backward {
		c.SetHL(c.HL() - 1)
	} else {
		c.SetHL(c.HL() + 1)
	}
	c.SetBC(c.BC() - 1)

	res := c.A - v
	oldCarry := c.F & FlagC
	c.F = FlagN | oldCarry
	c.setSZ53(res)
	if (c.A^v^res)&0x10 != 0 {
		c.F |= FlagH
	}
	if c.BC() != 0 {
		c.F |= FlagPV
	}
	n := res
	if c.F&FlagH != 0 {
		n--
	}
	c.F &^= FlagF5 | FlagF3
	c.F |= n & FlagF3
	if n&0x02 != 0 {
		c.F |= FlagF5
	}
	return c.BC() != 0 && res != 0
}

func (c *CPU) inStep(backward bool) bool {
	v := c.in8(c.C)
	c.write8(c.HL(), v)
	if backward {
		c.SetHL(c.HL() - 1)
	} else {
		c.SetHL(c.HL() + 1)
	}
	c.B--

	c.F &^= FlagZ | FlagN
	if c.B == 0 {
		c.F |= FlagZ
	}
	if v&0x80 != 0 {
		c.F |= FlagN
	}
	c.setSZ53(c.B)
	return c.B != 0
}

func (c *CPU) outStep(backward bool) bool {
	v := c.read8(c.HL())
	c.out8(c.C, v)
	if backward {
		c.SetHL(c.HL() - 1)
	} else {
		c.SetHL(c.HL() + 1)
	}
	c.B--

	c.F &^= FlagZ | FlagN
	if c.B == 0 {
		c.F |= FlagZ
	}
	if v&0x80 != 0 {
		c.F |= FlagN
	}
	c.setSZ53(c.B)
	return c.B != 0
}
