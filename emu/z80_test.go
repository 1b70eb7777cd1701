package emu

import "testing"

func TestCPU_BaseCycles(t *testing.T) {
	testCases := []struct {
		name   string
		opcode uint8
		cycles int
	}{
		{"NOP", 0x00, 4},
		{"LD BC,nn", 0x01, 10},
		{"INC BC", 0x03, 6},
		{"INC B", 0x04, 4},
		{"DEC B", 0x05, 4},
		{"LD B,n", 0x06, 7},
		{"RLCA", 0x07, 4},
		{"ADD HL,BC", 0x09, 11},
		{"LD (HL),n", 0x36, 10},
		{"HALT", 0x76, 4},
		{"RET", 0xC9, 10},
		{"JP nn", 0xC3, 10},
		{"CALL nn", 0xCD, 17},
		{"EI", 0xFB, 4},
		{"DI", 0xF3, 4},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cpu, bus := newTestCPU(tc.opcode, 0x00, 0x00, 0x00)
			_ = bus
			cycles, err := cpu.Step()
			if err != nil {
				t.Fatalf("Step: %v", err)
			}
			if cycles != tc.cycles {
				t.Errorf("%s: expected %d cycles, got %d", tc.name, tc.cycles, cycles)
			}
		})
	}
}

// TestCPU_CallRetStack is scenario 1: a CALL/RET round trip through a fixed
// stack pointer leaves SP and the stacked return address exactly where
// documented.
func TestCPU_CallRetStack(t *testing.T) {
	cpu, bus := newTestCPU()
	bus.load(0x0000, 0x31, 0xF0, 0xDF) // LD SP,0xDFF0
	bus.load(0x0003, 0xC3, 0xA7, 0x7D) // JP 0x7DA7
	bus.load(0x7DA7, 0xCD, 0x02, 0x9E, 0x00) // CALL 0x9E02 ; NOP (return addr)
	bus.load(0x9E02, 0xC9) // RET

	steps := []int{10, 10, 17}
	for i, want := range steps {
		cycles, err := cpu.Step()
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if cycles != want {
			t.Errorf("step %d: expected %d cycles, got %d", i, want, cycles)
		}
	}

	if cpu.SP != 0xDFEE {
		t.Errorf("after CALL: expected SP=0xDFEE, got 0x%04X", cpu.SP)
	}
	if bus.Read(0xDFEE) != 0xAA || bus.Read(0xDFEF) != 0x7D {
		t.Errorf("after CALL: expected stacked return 0x7DAA, got 0x%02X%02X",
			bus.Read(0xDFEF), bus.Read(0xDFEE))
	}

	cycles, err := cpu.Step() // RET
	if err != nil {
		t.Fatalf("RET: %v", err)
	}
	if cycles != 10 {
		t.Errorf("RET: expected 10 cycles, got %d", cycles)
	}
	if cpu.PC != 0x7DAA {
		t.Errorf("after RET: expected PC=0x7DAA, got 0x%04X", cpu.PC)
	}
	if cpu.SP != 0xDFF0 {
		t.Errorf("after RET: expected SP=0xDFF0, got 0x%04X", cpu.SP)
	}
}

// TestCPU_DD66Displacement is scenario 5: DD 66 d takes 19 cycles total and
// loads the byte at (IX+d) into IXH under the DD overlay, so IX becomes
// 0xA534 (IXL preserved) and the plain H register is left untouched.
func TestCPU_DD66Displacement(t *testing.T) {
	cpu, bus := newTestCPU(0xDD, 0x66, 0x00)
	cpu.IX = 0x1234
	bus.load(0x1234, 0xA5)

	cycles, err := cpu.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if cycles != 19 {
		t.Errorf("expected 19 cycles, got %d", cycles)
	}
	if cpu.H != 0x00 {
		t.Errorf("expected H unchanged at 0x00, got 0x%02X", cpu.H)
	}
	if cpu.IX != 0xA534 {
		t.Errorf("expected IX=0xA534 (IXH loaded, IXL preserved), got 0x%04X", cpu.IX)
	}
}

// TestCPU_LDIXd_n is the companion LD (IX+d),n case: its real timing (19
// cycles) doesn't decompose as 4 (prefix) + 8 (displacement) + native, so
// it is special-cased; this pins that total.
func TestCPU_LDIXd_n(t *testing.T) {
	cpu, bus := newTestCPU(0xDD, 0x36, 0x02, 0x99) // LD (IX+2),0x99
	cpu.IX = 0x2000

	cycles, err := cpu.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if cycles != 19 {
		t.Errorf("expected 19 cycles, got %d", cycles)
	}
	if bus.Read(0x2002) != 0x99 {
		t.Errorf("expected mem[0x2002]=0x99, got 0x%02X", bus.Read(0x2002))
	}
}

// TestCPU_INCDECIXd pins the single-displacement-fetch behavior of
// INC (IX+d)/DEC (IX+d): both used to fetch d once via reg8 and again via
// setReg8, consuming the following opcode byte as a bogus second
// displacement and leaving PC one byte ahead of where it belongs.
func TestCPU_INCDECIXd(t *testing.T) {
	cpu, bus := newTestCPU(0xDD, 0x34, 0x02, 0xDD, 0x35, 0x02, 0x00) // INC (IX+2); DEC (IX+2); NOP
	cpu.IX = 0x2000
	bus.load(0x2002, 0x41)

	cycles, err := cpu.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if cycles != 23 {
		t.Errorf("expected 23 cycles, got %d", cycles)
	}
	if cpu.PC != 3 {
		t.Errorf("expected PC=3 after INC (IX+d), got %d (displacement fetched twice?)", cpu.PC)
	}
	if got := bus.Read(0x2002); got != 0x42 {
		t.Errorf("expected mem[0x2002]=0x42, got 0x%02X", got)
	}

	cycles, err = cpu.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if cycles != 23 {
		t.Errorf("expected 23 cycles, got %d", cycles)
	}
	if cpu.PC != 6 {
		t.Errorf("expected PC=6 after DEC (IX+d), got %d (displacement fetched twice?)", cpu.PC)
	}
	if got := bus.Read(0x2002); got != 0x41 {
		t.Errorf("expected mem[0x2002]=0x41, got 0x%02X", got)
	}
}

// TestCPU_UndocumentedSLL pins the SLL (shift-left-logical, shift-in-1)
// undocumented CB opcode rather than having it fall back to SLA's
// shift-in-0 behavior.
func TestCPU_UndocumentedSLL(t *testing.T) {
	cpu, _ := newTestCPU(0xCB, 0x30) // SLL B
	cpu.B = 0x80
	cpu.F &^= FlagC

	_, err := cpu.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if cpu.B != 0x01 {
		t.Errorf("expected B=0x01, got 0x%02X", cpu.B)
	}
	if cpu.F&FlagC == 0 {
		t.Errorf("expected carry set")
	}
}

func TestCPU_EIDelay(t *testing.T) {
	cpu, _ := newTestCPU(0xFB, 0x00, 0x00) // EI; NOP; NOP
	cpu.IFF1 = false
	cpu.IFF2 = false
	cpu.IM = 1

	cpu.Step() // EI
	cpu.RequestIRQ()

	cycles, err := cpu.Step() // masked NOP, not an interrupt accept
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if cycles != 4 {
		t.Errorf("expected the EI-delay instruction to run normally (4 cycles), got %d", cycles)
	}
	if cpu.PC != 0x0002 {
		t.Errorf("expected PC to have advanced past the masked instruction, got 0x%04X", cpu.PC)
	}

	cycles, err = cpu.Step() // now IRQ should be accepted
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if cycles != 13 {
		t.Errorf("expected IRQ acceptance (13 cycles) once the EI-delay window passed, got %d", cycles)
	}
	if cpu.PC != 0x0038 {
		t.Errorf("expected PC=0x0038 after IM1 IRQ accept, got 0x%04X", cpu.PC)
	}
}

func TestCPU_CompatRetRestoresIFF(t *testing.T) {
	cpu, bus := newTestCPU()
	bus.load(0x0000, 0xFB, 0x76) // EI; HALT
	bus.load(0x0038, 0xC9)       // RET (IM1 handler)
	cpu.IFF1, cpu.IFF2 = false, false
	cpu.IM = 1

	cpu.Step() // EI
	cpu.Step() // HALT (masked by EI-delay, runs idle)
	cpu.RequestIRQ()
	cycles, err := cpu.Step() // accept IRQ from HALT
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if cycles < 13 {
		t.Fatalf("expected IRQ acceptance, got %d cycles", cycles)
	}
	if cpu.IFF1 {
		t.Fatalf("IFF1 should be cleared on IRQ acceptance")
	}
	cpu.IFF2 = true // simulate a handler that re-enables interrupts via IFF2 bookkeeping

	cpu.Step() // RET back to the exact handler-call PC
	if !cpu.IFF1 {
		t.Errorf("expected compat RET to restore IFF1 from IFF2")
	}
}

func TestCPU_FastBlocksMatchesStepwise(t *testing.T) {
	run := func(fast bool) (Registers, [8]uint8) {
		cpu, bus := newTestCPU(0xED, 0xB0) // LDIR
		cpu.FastBlocks = fast
		cpu.SetHL(0x8000)
		cpu.SetDE(0x8100)
		cpu.SetBC(8)
		for i := 0; i < 8; i++ {
			bus.load(uint16(0x8000+i), byte(i+1))
		}
		for {
			_, err := cpu.Step()
			if err != nil {
				t.Fatalf("Step: %v", err)
			}
			if cpu.BC() == 0 {
				break
			}
		}
		var dst [8]uint8
		for i := range dst {
			dst[i] = bus.Read(uint16(0x8100 + i))
		}
		return cpu.GetState(), dst
	}

	stepwiseRegs, stepwiseDst := run(false)
	fastRegs, fastDst := run(true)

	if stepwiseDst != fastDst {
		t.Errorf("destination mismatch: stepwise=%v fast=%v", stepwiseDst, fastDst)
	}
	if stepwiseRegs.R != fastRegs.R {
		t.Errorf("R mismatch: stepwise=%d fast=%d", stepwiseRegs.R, fastRegs.R)
	}
	if stepwiseRegs.HL() != fastRegs.HL() || stepwiseRegs.DE() != fastRegs.DE() {
		t.Errorf("HL/DE mismatch: stepwise=%04X/%04X fast=%04X/%04X",
			stepwiseRegs.HL(), stepwiseRegs.DE(), fastRegs.HL(), fastRegs.DE())
	}
}

func TestCPU_NMIAcceptance(t *testing.T) {
	cpu, bus := newTestCPU(0x76) // HALT
	bus.load(0x0066, 0x00)
	cpu.SP = 0xDFF0

	cpu.Step() // enter HALT
	cpu.RequestNMI()
	cycles, err := cpu.Step()
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if cycles != 15 { // 11 + 4 for waking from HALT
		t.Errorf("expected 15 cycles (NMI+halt-wake), got %d", cycles)
	}
	if cpu.PC != 0x0066 {
		t.Errorf("expected PC=0x0066, got 0x%04X", cpu.PC)
	}
	if cpu.IFF1 {
		t.Errorf("expected IFF1 cleared on NMI accept")
	}
	if cpu.Halted() {
		t.Errorf("expected HALT to be woken by NMI")
	}
}

func TestCPU_StateRoundTrip(t *testing.T) {
	cpu, _ := newTestCPU()
	cpu.A, cpu.F, cpu.B, cpu.C = 1, 2, 3, 4
	cpu.IX, cpu.IY = 0x1234, 0x5678
	cpu.SP, cpu.PC = 0xDFF0, 0x1000
	cpu.IFF1, cpu.IFF2 = true, false

	state := cpu.GetState()
	other, _ := newTestCPU()
	other.SetState(state)

	if other.GetState() != cpu.GetState() {
		t.Errorf("round trip mismatch: got %+v want %+v", other.GetState(), cpu.GetState())
	}
}
