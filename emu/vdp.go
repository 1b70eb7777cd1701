package emu

// Display geometry. MaxScreenHeight covers both the 192-line and 224-line
// Mode 4 display heights; callers read ActiveHeight to know how many rows
// of the framebuffer are meaningful for the current frame.
const (
	ScreenWidth     = 256
	MaxScreenHeight = 224
)

// VDP scanline timing constants, expressed in CPU cycles from the start of
// a scanline. These gate when the Machine's scheduler samples VBlank/line
// interrupt state and when the per-scanline register latches fire, so that
// mid-scanline register writes from an interrupt handler affect rendering
// at the documented point rather than immediately.
const (
	VBlankInterruptCycle = 4
	LineInterruptCycle   = 8
	CRAMLatchCycle       = 14
)

// hCounterTable maps a CPU-cycle offset within a scanline (0-227) to the
// VDP's 8-bit H-counter value, reproducing its non-linear wrap: the
// 10.738MHz VDP master clock runs 3x the CPU clock, and the counter jumps
// from $93 to $E9 at the start of H-blank rather than counting linearly.
var hCounterTable = func() [228]uint8 {
	var table [228]uint8
	for cycle := 0; cycle < 228; cycle++ {
		masterClock := cycle * 3
		var h int
		switch {
		case masterClock < 256:
			h = masterClock / 2
		case masterClock < 512:
			progress := masterClock - 256
			h = 0x80 + progress*20/256
			if h > 0x93 {
				h = 0x93
			}
		default:
			progress := masterClock - 512
			h = 0xE9 + progress*32/172
			if h > 0xFF {
				h -= 0x100
			}
		}
		table[cycle] = uint8(h)
	}
	return table
}()

// HCounterForCycle returns the H-counter value for a cycle offset within a
// scanline, clamping out-of-range offsets to the table's edges.
func HCounterForCycle(cycle int) uint8 {
	if cycle < 0 {
		return 0
	}
	if cycle >= 228 {
		return hCounterTable[227]
	}
	return hCounterTable[cycle]
}

// VDPState is the serializable subset of VDP state used for save states and
// test fixtures.
type VDPState struct {
	VRAM                   [0x4000]uint8
	CRAM                   [0x20]uint8
	Register               [16]uint8
	Addr                   uint16
	AddrLatch              uint8
	WriteLatch             bool
	CodeReg                uint8
	ReadBuffer             uint8
	Status                 uint8
	VCounter               uint16
	HCounter               uint8
	LineCounter            int16
	LineIntPending         bool
	HScrollLatch           uint8
	Reg2Latch              uint8
	Reg7Latch              uint8
	VScrollLatch           uint8
	TotalScanlines         int
}

// VDP implements the Mode-4 rasterizer, register file and interrupt line of
// the SMS video chip: the two-byte control-port address/register latch
// protocol, 16KiB VRAM plus 32-entry 6-bit CRAM, non-linear H/V counters,
// and per-scanline/per-frame register latching so that a mid-scanline
// register write from a line-interrupt handler takes effect exactly where
// the hardware applies it.
type VDP struct {
	vram       [0x4000]uint8
	cram       [0x20]uint8
	cramLatch  [0x20]uint8
	register   [16]uint8
	addr       uint16
	addrLatch  uint8
	writeLatch bool
	codeReg    uint8
	readBuffer uint8
	status     uint8

	vCounter       uint16
	hCounter       uint8
	lineCounter    int16
	lineIntPending bool

	bgPriority   [256]bool
	spritePixels []bool

	hScrollLatch uint8
	reg2Latch    uint8
	reg7Latch    uint8
	vScrollLatch uint8

	totalScanlines int

	statusWasRead          bool
	interruptCheckRequired bool

	// framebuffer holds RGB8 pixels, 3 bytes per pixel, row-major,
	// ScreenWidth*MaxScreenHeight*3 bytes. Exposed directly: encoding to an
	// image format is a host concern, not this core's.
	framebuffer []uint8
}

var paletteScale = [4]uint8{0, 85, 170, 255}

func NewVDP() *VDP {
	v := &VDP{
		totalScanlines: 262,
		lineCounter:    255,
		spritePixels:   make([]bool, ScreenWidth),
		framebuffer:    make([]uint8, ScreenWidth*MaxScreenHeight*3),
	}
	return v
}

// Reset returns the VDP to its documented power-on state: registers,
// address latch and status clear; VRAM/CRAM contents are left untouched,
// matching real hardware (VRAM is not wiped by a reset line).
func (v *VDP) Reset() {
	v.register = [16]uint8{}
	v.addr = 0
	v.addrLatch = 0
	v.writeLatch = false
	v.codeReg = 0
	v.readBuffer = 0
	v.status = 0
	v.vCounter = 0
	v.hCounter = 0
	v.lineCounter = 255
	v.lineIntPending = false
	v.hScrollLatch = 0
	v.reg2Latch = 0
	v.reg7Latch = 0
	v.vScrollLatch = 0
	v.statusWasRead = false
	v.interruptCheckRequired = false
}

func (v *VDP) SetTotalScanlines(n int) { v.totalScanlines = n }

func (v *VDP) ReadVCounter() uint8 {
	line := int(v.vCounter)
	activeHeight := v.ActiveHeight()

	if v.totalScanlines == 313 {
		switch activeHeight {
		case 192:
			if line <= 242 {
				return uint8(line)
			}
			return uint8(line - 57)
		case 224:
			if line <= 258 {
				return uint8(line)
			}
			return uint8(line - 57)
		}
	} else {
		switch activeHeight {
		case 192:
			if line <= 218 {
				return uint8(line)
			}
			return uint8(line - 6)
		case 224:
			if line <= 234 {
				return uint8(line)
			}
			return uint8(line - 6)
		}
	}
	return uint8(line)
}

func (v *VDP) ReadHCounter() uint8    { return v.hCounter }
func (v *VDP) SetHCounter(h uint8)    { v.hCounter = h }

func (v *VDP) ActiveHeight() int {
	m2 := v.register[0]&0x02 != 0
	m1 := v.register[1]&0x10 != 0
	if m2 && m1 {
		return 224
	}
	return 192
}

// ReadControl returns the status register and clears the VBlank, sprite
// overflow and sprite collision flags, the line-interrupt pending latch
// and the control-port write latch -- the documented read side effects.
func (v *VDP) ReadControl() uint8 {
	status := v.status
	v.status &^= 0xE0
	v.lineIntPending = false
	v.writeLatch = false
	v.statusWasRead = true
	return status
}

// StatusWasRead reports, and clears, whether ReadControl ran since the last
// call, so a caller can tell when the IRQ line needs re-evaluating.
func (v *VDP) StatusWasRead() bool {
	if v.statusWasRead {
		v.statusWasRead = false
		return true
	}
	return false
}

// InterruptCheckRequired reports, and clears, whether register 0 or 1 was
// written since the last call (either may toggle an interrupt-enable bit).
func (v *VDP) InterruptCheckRequired() bool {
	if v.interruptCheckRequired {
		v.interruptCheckRequired = false
		return true
	}
	return false
}

func (v *VDP) WriteControl(value uint8) {
	if !v.writeLatch {
		v.addrLatch = value
		v.writeLatch = true
		return
	}
	v.writeLatch = false
	v.addr = uint16(v.addrLatch) | uint16(value&0x3F)<<8
	v.codeReg = (value >> 6) & 0x03

	switch v.codeReg {
	case 0:
		v.readBuffer = v.vram[v.addr&0x3FFF]
		v.addr = (v.addr + 1) & 0x3FFF
	case 2:
		regNum := value & 0x0F
		v.register[regNum] = v.addrLatch
		if regNum == 0 || regNum == 1 {
			v.interruptCheckRequired = true
		}
		if regNum == 10 {
			v.lineCounter = int16(v.addrLatch)
		}
	}
}

func (v *VDP) ReadData() uint8 {
	v.writeLatch = false
	data := v.readBuffer
	v.readBuffer = v.vram[v.addr&0x3FFF]
	v.addr = (v.addr + 1) & 0x3FFF
	return data
}

func (v *VDP) WriteData(value uint8) {
	v.writeLatch = false
	v.readBuffer = value
	if v.codeReg == 3 {
		v.cram[v.addr&0x1F] = value
	} else {
		v.vram[v.addr&0x3FFF] = value
	}
	v.addr = (v.addr + 1) & 0x3FFF
}

func (v *VDP) cramToRGB(index uint8) (r, g, b uint8) {
	c := v.cramLatch[index&0x1F]
	return paletteScale[c&0x03], paletteScale[(c>>2)&0x03], paletteScale[(c>>4)&0x03]
}

func (v *VDP) setPixel(x, y int, r, g, b uint8) {
	off := (y*ScreenWidth + x) * 3
	v.framebuffer[off] = r
	v.framebuffer[off+1] = g
	v.framebuffer[off+2] = b
}

func (v *VDP) SetVBlank() { v.status |= 0x80 }

// IRQLine reports the VDP's combined interrupt line: frame (VBlank status
// bit AND register 1 frame-IE) OR line (pending latch AND register 0
// line-IE). The Machine mirrors this onto the CPU's IRQ request line.
func (v *VDP) IRQLine() bool {
	frameInt := v.status&0x80 != 0 && v.register[1]&0x20 != 0
	lineInt := v.lineIntPending && v.register[0]&0x10 != 0
	return frameInt || lineInt
}

func (v *VDP) SetVCounter(line uint16) { v.vCounter = line }

func (v *VDP) LatchVScrollForFrame() { v.vScrollLatch = v.register[9] }

func (v *VDP) LatchCRAM() { copy(v.cramLatch[:], v.cram[:]) }

func (v *VDP) LatchPerLineRegisters() {
	v.hScrollLatch = v.register[8]
	v.reg2Latch = v.register[2]
	v.reg7Latch = v.register[7]
}

func (v *VDP) UpdateLineCounter() {
	activeHeight := uint16(v.ActiveHeight())
	if v.vCounter <= activeHeight {
		v.lineCounter--
		if v.lineCounter < 0 {
			v.lineCounter = int16(v.register[10])
			v.lineIntPending = true
			// Line interrupts are also surfaced through status bit 5 as a
			// reporting convenience; real hardware's bit 5 is sprite
			// collision only, so status-based tests must account for this.
			v.status |= 0x20
		}
	} else {
		v.lineCounter = int16(v.register[10])
	}
}

// RenderScanline rasterizes the current V-counter's row of the active
// display into the framebuffer: backdrop when display is disabled,
// otherwise background then sprites, then the optional left-column blank.
func (v *VDP) RenderScanline() {
	line := v.vCounter
	activeHeight := v.ActiveHeight()
	if int(line) >= activeHeight {
		return
	}

	for i := range v.bgPriority {
		v.bgPriority[i] = false
	}

	if v.register[1]&0x40 == 0 {
		r, g, b := v.cramToRGB(16 + v.reg7Latch&0x0F)
		for x := 0; x < ScreenWidth; x++ {
			v.setPixel(x, int(line), r, g, b)
		}
		return
	}

	v.renderBackground(line)
	v.renderSprites(line)

	if v.register[0]&0x20 != 0 {
		r, g, b := v.cramToRGB(16 + v.reg7Latch&0x0F)
		for x := 0; x < 8; x++ {
			v.setPixel(x, int(line), r, g, b)
		}
	}
}

func (v *VDP) renderBackground(line uint16) {
	var nameTableBase uint16
	activeHeight := v.ActiveHeight()
	reg2 := v.reg2Latch
	if activeHeight == 192 {
		nameTableBase = uint16(reg2&0x0E) << 10
	} else {
		nameTableBase = uint16(reg2&0x0C)<<10 | 0x0700
	}

	hScroll := v.hScrollLatch
	vScroll := v.vScrollLatch
	topRowLock := v.register[0]&0x40 != 0
	rightColLock := v.register[0]&0x80 != 0

	for x := 0; x < ScreenWidth; x++ {
		effectiveHScroll := hScroll
		effectiveVScroll := vScroll
		if topRowLock && line < 16 {
			effectiveHScroll = 0
		}
		if rightColLock && x >= 192 {
			effectiveVScroll = 0
		}

		var effectiveY uint16
		if activeHeight == 224 {
			effectiveY = (line + uint16(effectiveVScroll)) & 0xFF
		} else {
			effectiveY = line + uint16(effectiveVScroll)
			if effectiveY >= 224 {
				effectiveY -= 224
			}
		}

		tileRow := effectiveY / 8
		tileLine := effectiveY % 8
		effectiveX := (uint16(x) - uint16(effectiveHScroll)) & 0xFF
		tileCol := effectiveX / 8
		tilePixel := effectiveX % 8

		nameTableAddr := nameTableBase + (tileRow*32+tileCol)*2
		entryLo := v.vram[nameTableAddr&0x3FFF]
		entryHi := v.vram[(nameTableAddr+1)&0x3FFF]

		patternIndex := uint16(entryLo) | uint16(entryHi&0x01)<<8
		hFlip := entryHi&0x02 != 0
		vFlip := entryHi&0x04 != 0
		paletteSelect := (entryHi & 0x08) >> 3
		priority := entryHi&0x10 != 0

		patternLine := tileLine
		if vFlip {
			patternLine = 7 - tileLine
		}
		pixelPos := tilePixel
		if hFlip {
			pixelPos = 7 - tilePixel
		}

		patternAddr := patternIndex*32 + patternLine*4
		bp0 := v.vram[patternAddr&0x3FFF]
		bp1 := v.vram[(patternAddr+1)&0x3FFF]
		bp2 := v.vram[(patternAddr+2)&0x3FFF]
		bp3 := v.vram[(patternAddr+3)&0x3FFF]

		shift := 7 - pixelPos
		colorIndex := (bp0>>shift)&1 | ((bp1>>shift)&1)<<1 | ((bp2>>shift)&1)<<2 | ((bp3>>shift)&1)<<3

		cramIndex := paletteSelect*16 + colorIndex
		r, g, b := v.cramToRGB(cramIndex)
		v.setPixel(x, int(line), r, g, b)

		if priority && colorIndex != 0 {
			v.bgPriority[x] = true
		}
	}
}

func (v *VDP) renderSprites(line uint16) {
	satBase := uint16(v.register[5]&0x7E) << 7

	spriteHeight := 8
	if v.register[1]&0x02 != 0 {
		spriteHeight = 16
	}
	zoom := 1
	zoomShift := 0
	if v.register[1]&0x01 != 0 {
		zoom = 2
		zoomShift = 1
	}
	effectiveHeight := spriteHeight * zoom

	patternBase := uint16(v.register[6]&0x04) << 11
	spriteShift := 0
	if v.register[0]&0x08 != 0 {
		spriteShift = 8
	}
	activeHeight := v.ActiveHeight()

	type spriteInfo struct {
		x       int
		pattern uint8
		line    int
	}
	var sprites [8]spriteInfo
	spriteCount := 0

	for i := 0; i < 64; i++ {
		y := int(v.vram[(satBase+uint16(i))&0x3FFF])
		if activeHeight == 192 && y == 208 {
			break
		}
		spriteY := y + 1
		if int(line) >= spriteY && int(line) < spriteY+effectiveHeight {
			if spriteCount >= 8 {
				v.status |= 0x40
				break
			}
			satAddr2 := satBase + 0x80 + uint16(i)*2
			spriteX := int(v.vram[satAddr2&0x3FFF]) - spriteShift
			pattern := v.vram[(satAddr2+1)&0x3FFF]
			if spriteHeight == 16 {
				pattern &= 0xFE
			}
			spriteLine := (int(line) - spriteY) >> zoomShift
			sprites[spriteCount] = spriteInfo{x: spriteX, pattern: pattern, line: spriteLine}
			spriteCount++
		}
	}

	for i := range v.spritePixels {
		v.spritePixels[i] = false
	}

	for i := spriteCount - 1; i >= 0; i-- {
		spr := sprites[i]
		pattern := uint16(spr.pattern)
		spriteLine := spr.line
		if spriteHeight == 16 && spriteLine >= 8 {
			pattern++
			spriteLine -= 8
		}
		patternAddr := patternBase + pattern*32 + uint16(spriteLine)*4
		bp0 := v.vram[patternAddr&0x3FFF]
		bp1 := v.vram[(patternAddr+1)&0x3FFF]
		bp2 := v.vram[(patternAddr+2)&0x3FFF]
		bp3 := v.vram[(patternAddr+3)&0x3FFF]

		for px := 0; px < 8*zoom; px++ {
			screenX := spr.x + px
			if screenX < 0 || screenX >= ScreenWidth {
				continue
			}
			patternPx := px >> zoomShift
			shift := uint(7 - patternPx)
			colorIndex := (bp0>>shift)&1 | ((bp1>>shift)&1)<<1 | ((bp2>>shift)&1)<<2 | ((bp3>>shift)&1)<<3
			if colorIndex == 0 {
				continue
			}
			if v.spritePixels[screenX] {
				v.status |= 0x20
			}
			v.spritePixels[screenX] = true
			if v.bgPriority[screenX] {
				continue
			}
			r, g, b := v.cramToRGB(colorIndex + 16)
			v.setPixel(screenX, int(line), r, g, b)
		}
	}
}

// Framebuffer returns the RGB8 pixel buffer for the frame rendered so far.
func (v *VDP) Framebuffer() []uint8 { return v.framebuffer }

func (v *VDP) GetRegister(n int) uint8 { return v.register[n&0x0F] }
func (v *VDP) GetAddress() uint16      { return v.addr }
func (v *VDP) GetStatus() uint8        { return v.status }
func (v *VDP) GetLineCounter() int16   { return v.lineCounter }

// GetState returns a deep copy of the serializable VDP state.
func (v *VDP) GetState() VDPState {
	s := VDPState{
		Register:       v.register,
		Addr:           v.addr,
		AddrLatch:      v.addrLatch,
		WriteLatch:     v.writeLatch,
		CodeReg:        v.codeReg,
		ReadBuffer:     v.readBuffer,
		Status:         v.status,
		VCounter:       v.vCounter,
		HCounter:       v.hCounter,
		LineCounter:    v.lineCounter,
		LineIntPending: v.lineIntPending,
		HScrollLatch:   v.hScrollLatch,
		Reg2Latch:      v.reg2Latch,
		Reg7Latch:      v.reg7Latch,
		VScrollLatch:   v.vScrollLatch,
		TotalScanlines: v.totalScanlines,
	}
	s.VRAM = v.vram
	s.CRAM = v.cram
	return s
}

// SetState installs VDP state wholesale (save-state restore, test fixtures).
func (v *VDP) SetState(s VDPState) {
	v.vram = s.VRAM
	v.cram = s.CRAM
	v.register = s.Register
	v.addr = s.Addr
	v.addrLatch = s.AddrLatch
	v.writeLatch = s.WriteLatch
	v.codeReg = s.CodeReg
	v.readBuffer = s.ReadBuffer
	v.status = s.Status
	v.vCounter = s.VCounter
	v.hCounter = s.HCounter
	v.lineCounter = s.LineCounter
	v.lineIntPending = s.LineIntPending
	v.hScrollLatch = s.HScrollLatch
	v.reg2Latch = s.Reg2Latch
	v.reg7Latch = s.Reg7Latch
	v.vScrollLatch = s.VScrollLatch
	v.totalScanlines = s.TotalScanlines
	v.LatchCRAM()
}
