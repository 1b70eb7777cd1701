package emu

// Machine is the scheduler binding the CPU, VDP, PSG and Bus into a single
// runnable console. Each scanline it steps the CPU until that scanline's
// cycle budget is used, updating the VDP's H-counter, interrupt and latch
// thresholds and the CPU's IRQ line after every step; the PSG is clocked
// once per scanline by the scanline's cycle budget.
type Machine struct {
	CPU *CPU
	VDP *VDP
	PSG *PSG
	Mem *Memory
	IO  *IO
	Bus *SMSBus

	region Region
	timing RegionTiming

	cyclesPerScanlineFP uint64 // 16.16 fixed point
	scanlineAccum       uint64

	scanline int
}

// NewMachine wires a complete console around rom/bios using cfg, deriving
// PSG sample-rate buffering from sampleRate.
func NewMachine(cfg Config, sampleRate int) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mem := NewMemory(cfg.Cart, cfg.BIOS, cfg.Mapper, cfg.AllowCartRAM)
	vdp := NewVDP()
	timing := TimingForRegion(cfg.Region)
	vdp.SetTotalScanlines(timing.Scanlines)

	psg := NewPSG(timing.CPUClockHz, sampleRate, sampleRate/10+1)
	io := NewIO(vdp, psg, mem, cfg.Nationality)
	bus := NewSMSBus(mem, io)
	cpu := NewCPU(bus)
	cpu.FastBlocks = cfg.FastBlocks
	cpu.Wait = cfg.Wait
	cpu.Hooks = cfg.Hooks
	cpu.SetCompatRetRestoresIFF(!cfg.DisableCompatRetIFF)

	m := &Machine{
		CPU: cpu, VDP: vdp, PSG: psg, Mem: mem, IO: io, Bus: bus,
		region: cfg.Region, timing: timing,
	}
	m.cyclesPerScanlineFP = uint64(timing.CPUClockHz) * 65536 / uint64(timing.FPS) / uint64(timing.Scanlines)

	if len(cfg.BIOS) == 0 || cfg.UseManualInit {
		m.manualInit()
	}
	return m, nil
}

// manualInit seeds CPU/VDP register state the way the BIOS would have left
// it by the time it jumps into cartridge code, so a cartridge can run
// without a BIOS image installed. Used whenever no BIOS is configured, or
// the caller explicitly asks to skip it even with one present.
func (m *Machine) manualInit() {
	m.CPU.Reset()
	m.CPU.SP = 0xDFF0
	m.CPU.IM = 1
	m.CPU.SetState(func() Registers {
		r := m.CPU.GetState()
		r.IFF1, r.IFF2 = true, true
		return r
	}())
	m.Mem.DisableBIOS()
}

func (m *Machine) SetInput1(v uint8) { m.IO.SetP1(v) }
func (m *Machine) SetInput2(v uint8) { m.IO.SetP2(v) }
func (m *Machine) Region() Region    { return m.region }

// RunFrame executes one full frame (timing.Scanlines scanlines) and returns
// the number of CPU T-states consumed. It is the machine's only entry point
// for advancing time: the caller never steps the CPU directly.
func (m *Machine) RunFrame() (int, error) {
	total := 0
	for line := 0; line < m.timing.Scanlines; line++ {
		cycles, err := m.runScanline(line)
		total += cycles
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (m *Machine) runScanline(line int) (int, error) {
	m.scanline = line
	m.VDP.SetVCounter(uint16(line))
	if line == 0 {
		m.VDP.LatchVScrollForFrame()
	}
	m.VDP.LatchPerLineRegisters()

	m.scanlineAccum += m.cyclesPerScanlineFP
	budget := int(m.scanlineAccum >> 16)
	m.scanlineAccum &= 0xFFFF

	progress := 0
	vblankFired := false
	lineIRQChecked := false
	cramLatched := false

	for progress < budget {
		cycles, err := m.CPU.Step()
		if err != nil {
			return progress, err
		}
		progress += cycles
		m.VDP.SetHCounter(HCounterForCycle(progress))

		if !vblankFired && progress >= VBlankInterruptCycle {
			vblankFired = true
			if line == m.VDP.ActiveHeight() {
				m.VDP.SetVBlank()
			}
		}
		if !lineIRQChecked && progress >= LineInterruptCycle {
			lineIRQChecked = true
			m.VDP.UpdateLineCounter()
		}
		if !cramLatched && progress >= CRAMLatchCycle {
			cramLatched = true
			m.VDP.LatchCRAM()
		}

		if m.VDP.IRQLine() {
			m.CPU.RequestIRQ()
		} else {
			m.CPU.ClearIRQ()
		}
	}

	m.VDP.RenderScanline()
	// PSG.GenerateSamples clocks the PSG by exactly the scanline's consumed
	// cycle budget; clocking it again per CPU step here would advance its
	// divide-by-16 prescaler by instruction count as well as by cycles.
	m.PSG.GenerateSamples(budget)

	return progress, nil
}

// Framebuffer returns the raw RGB8 pixel bytes produced by the most recent
// RenderScanline calls, ScreenWidth*ActiveHeight*3 bytes, row-major.
func (m *Machine) Framebuffer() []uint8 {
	return m.VDP.Framebuffer()[:ScreenWidth*m.VDP.ActiveHeight()*3]
}

// AudioSamples returns the PCM samples generated by the most recent
// scanline's worth of PSG clocking.
func (m *Machine) AudioSamples() ([]float32, int) { return m.PSG.GetBuffer() }

// MachineState is the serializable subset of a Machine's state, sufficient
// to resume execution identically (cartridge/BIOS images are not included;
// the caller must reconstruct the Machine against the same images and
// Config, then call SetState).
type MachineState struct {
	CPU             Registers
	VDP             VDPState
	PSG             PSGState
	Mem             MemState
	IO              IOState
	ScanlineAccum   uint64
}

func (m *Machine) GetState() MachineState {
	return MachineState{
		CPU:           m.CPU.GetState(),
		VDP:           m.VDP.GetState(),
		PSG:           m.PSG.GetState(),
		Mem:           m.Mem.GetState(),
		IO:            m.IO.GetState(),
		ScanlineAccum: m.scanlineAccum,
	}
}

func (m *Machine) SetState(s MachineState) {
	m.CPU.SetState(s.CPU)
	m.VDP.SetState(s.VDP)
	m.PSG.SetState(s.PSG)
	m.Mem.SetState(s.Mem)
	m.IO.SetState(s.IO)
	m.scanlineAccum = s.ScanlineAccum
}
