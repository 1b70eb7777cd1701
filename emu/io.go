package emu

// Nationality affects the TH-pin readback on port $DD, which the BIOS and
// some games probe to tell Japanese from export hardware apart.
type Nationality int

const (
	NationalityExport Nationality = iota
	NationalityJapan
)

// Input captures one controller's button state as the raw active-low bits
// the SMS I/O ports expose: bit0 Up, bit1 Down, bit2 Left, bit3 Right,
// bit4 Button1/TL, bit5 Button2/TR.
type Input struct {
	Port1 uint8
	Port2 uint8
}

// IO routes the Z80's 8-bit port space to the VDP, PSG, controller
// latches and the memory-control register. Port $3E carries one half of
// the BIOS overlay's one-way disable latch (the other is memory address
// $FFFC, handled by Memory directly).
type IO struct {
	vdp *VDP
	psg *PSG
	mem *Memory

	input       Input
	nationality Nationality
	ioControl   uint8 // $3F: TR/TH direction+output latches for both ports
}

func NewIO(vdp *VDP, psg *PSG, mem *Memory, nat Nationality) *IO {
	return &IO{vdp: vdp, psg: psg, mem: mem, nationality: nat}
}

func (io *IO) SetP1(v uint8) { io.input.Port1 = v }
func (io *IO) SetP2(v uint8) { io.input.Port2 = v }

// In implements the SMS I/O read map: $3E/$3F are open bus on read, $7E/$7F
// (and their mirrors through $40-$7F) return V-counter/H-counter, $80-$BF
// mirror VDP data (even)/control (odd), $C0-$FF mirror the controller ports
// except the $F0-$F2 FM stub, which always reads 0xFF.
func (io *IO) In(addr uint8) uint8 {
	switch {
	case addr == 0x3E || addr == 0x3F:
		return 0xFF
	case addr >= 0x40 && addr < 0x80:
		if addr&0x01 == 0 {
			return io.vdp.ReadVCounter()
		}
		return io.vdp.ReadHCounter()
	case addr >= 0x80 && addr < 0xC0:
		if addr&0x01 == 0 {
			return io.vdp.ReadData()
		}
		return io.vdp.ReadControl()
	case addr >= 0xF0 && addr <= 0xF2:
		return 0xFF
	case addr >= 0xC0:
		if addr&0x01 == 0 {
			return io.input.Port1
		}
		return io.readPortDD()
	default:
		return 0xFF
	}
}

// Out implements the SMS I/O write map: $3E is the memory-control register
// (bit2 sticks the BIOS overlay disabled; its other bits are ignored, and
// cartridge RAM is enabled by $FFFC bit 3, not by this port),
// $3F is the I/O-control register, $40-$7F writes go to the PSG, $80-$BF
// mirrors VDP data/control, $F0-$F2 (FM stub) accepts and discards writes,
// and the controller-port range is read-only.
func (io *IO) Out(addr uint8, value uint8) {
	switch {
	case addr == 0x3E:
		io.mem.WriteMemoryControl(value)
	case addr == 0x3F:
		io.ioControl = value
	case addr >= 0x40 && addr < 0x80:
		io.psg.Write(value)
	case addr >= 0x80 && addr < 0xC0:
		if addr&0x01 == 0 {
			io.vdp.WriteData(value)
		} else {
			io.vdp.WriteControl(value)
		}
	case addr >= 0xF0 && addr <= 0xF2:
		// FM sound unit stub: accepted, has no effect.
	}
}

// readPortDD synthesizes Port B's byte, including the TH pin state latched
// in ioControl; Japanese consoles invert the TH bits relative to export.
func (io *IO) readPortDD() uint8 {
	v := io.input.Port2 | (io.ioControl & 0xC0)
	if io.nationality == NationalityJapan {
		v ^= 0xC0
	}
	return v
}

// IOState is the serializable subset of IO state.
type IOState struct {
	Input     Input
	IOControl uint8
}

func (io *IO) GetState() IOState {
	return IOState{Input: io.input, IOControl: io.ioControl}
}

func (io *IO) SetState(s IOState) {
	io.input = s.Input
	io.ioControl = s.IOControl
}
