package emu

// PSG emulates the SN76489 programmable sound generator: three square-wave
// tone channels and one noise channel (15-bit LFSR, periodic/white
// feedback modes), each with its own 4-bit attenuation, driven by the
// standard latch/data two-byte write protocol and an internal divide-by-16
// clock.
type PSG struct {
	toneReg     [3]uint16
	toneCounter [3]uint16
	toneOutput  [3]bool

	noiseReg     uint8
	noiseCounter uint16
	noiseShift   uint16
	noiseOutput  bool

	volume [4]uint8

	latchedChannel uint8
	latchedType    uint8

	clocksPerSample float64
	clockCounter    float64
	clockDivider    int

	buffer    []float32
	bufferPos int
}

// PSGState is the serializable subset of PSG state.
type PSGState struct {
	ToneReg        [3]uint16
	ToneCounter    [3]uint16
	ToneOutput     [3]bool
	NoiseReg       uint8
	NoiseCounter   uint16
	NoiseShift     uint16
	NoiseOutput    bool
	Volume         [4]uint8
	LatchedChannel uint8
	LatchedType    uint8
}

// volumeTable converts the 4-bit attenuation value (0=loudest, 15=silent)
// to a linear amplitude; each step is approximately -2dB, the documented
// SN76489 attenuation curve.
var volumeTable = [16]float32{
	1.0, 0.794, 0.631, 0.501, 0.398, 0.316, 0.251, 0.200,
	0.158, 0.126, 0.100, 0.079, 0.063, 0.050, 0.040, 0.0,
}

// NewPSG constructs a PSG clocked at psgClockHz (3579545 for NTSC SMS,
// 3546893 for PAL), resampling its internal clock ticks down to
// sampleRate audio samples, buffering up to bufferSize samples per
// GenerateSamples call.
func NewPSG(psgClockHz, sampleRate, bufferSize int) *PSG {
	p := &PSG{
		clocksPerSample: float64(psgClockHz) / float64(sampleRate),
		buffer:          make([]float32, bufferSize),
		noiseShift:      0x4000,
	}
	for i := range p.volume {
		p.volume[i] = 0x0F
	}
	return p
}

// Reset returns the PSG to its documented power-on state: silent,
// LFSR reseeded, latch cleared.
func (p *PSG) Reset() {
	p.toneReg = [3]uint16{}
	p.toneCounter = [3]uint16{}
	p.toneOutput = [3]bool{}
	p.noiseReg = 0
	p.noiseCounter = 0
	p.noiseShift = 0x4000
	p.noiseOutput = false
	for i := range p.volume {
		p.volume[i] = 0x0F
	}
	p.latchedChannel = 0
	p.latchedType = 0
	p.clockCounter = 0
	p.clockDivider = 0
	p.bufferPos = 0
}

// Write implements the SN76489 write protocol: a byte with bit 7 set is a
// LATCH/DATA byte selecting channel+register-type and supplying its low (or
// full, for volume/noise) nibble; a byte with bit 7 clear is a DATA byte
// supplying the high 6 bits of the last latched tone register, or the low
// 4 bits as the new value of the last latched volume register.
func (p *PSG) Write(value uint8) {
	if value&0x80 != 0 {
		p.latchedChannel = (value >> 5) & 0x03
		p.latchedType = (value >> 4) & 0x01
		data := value & 0x0F

		if p.latchedType == 1 {
			p.volume[p.latchedChannel] = data
		} else if p.latchedChannel < 3 {
			p.toneReg[p.latchedChannel] = p.toneReg[p.latchedChannel]&0x3F0 | uint16(data)
		} else {
			p.noiseReg = data & 0x07
			p.noiseShift = 0x4000
		}
		return
	}

	if p.latchedType == 0 && p.latchedChannel < 3 {
		data := uint16(value & 0x3F)
		p.toneReg[p.latchedChannel] = p.toneReg[p.latchedChannel]&0x0F | data<<4
	} else if p.latchedType == 1 {
		p.volume[p.latchedChannel] = value & 0x0F
	}
}

// Clock advances internal state by one PSG input clock; the real divide-
// by-16 prescaler means only every 16th call actually ticks the tone/noise
// counters.
func (p *PSG) Clock() {
	p.clockDivider++
	if p.clockDivider < 16 {
		return
	}
	p.clockDivider = 0

	for i := 0; i < 3; i++ {
		if p.toneCounter[i] > 0 {
			p.toneCounter[i]--
			continue
		}
		if p.toneReg[i] == 0 {
			p.toneCounter[i] = 1
		} else {
			p.toneCounter[i] = p.toneReg[i]
		}
		p.toneOutput[i] = !p.toneOutput[i]
	}

	if p.noiseCounter > 0 {
		p.noiseCounter--
		return
	}

	switch p.noiseReg & 0x03 {
	case 0:
		p.noiseCounter = 0x10
	case 1:
		p.noiseCounter = 0x20
	case 2:
		p.noiseCounter = 0x40
	default:
		if p.toneReg[2] == 0 {
			p.noiseCounter = 1
		} else {
			p.noiseCounter = p.toneReg[2]
		}
	}

	p.noiseOutput = p.noiseShift&1 != 0
	outputBit := p.noiseShift & 1
	var feedback uint16
	if p.noiseReg&0x04 != 0 {
		feedback = ((p.noiseShift & 1) ^ ((p.noiseShift >> 3) & 1)) << 14
	} else {
		feedback = outputBit << 14
	}
	p.noiseShift = p.noiseShift>>1 | feedback
}

// Sample mixes the four channels' current output levels into one
// normalized sample in roughly [-1, 1].
func (p *PSG) Sample() float32 {
	var s float32
	for i := 0; i < 3; i++ {
		if p.toneOutput[i] {
			s += volumeTable[p.volume[i]]
		} else {
			s -= volumeTable[p.volume[i]]
		}
	}
	if p.noiseOutput {
		s += volumeTable[p.volume[3]]
	} else {
		s -= volumeTable[p.volume[3]]
	}
	return s / 4.0
}

// GenerateSamples advances the PSG by clocks input-clock ticks, resampling
// into the internal buffer; call GetBuffer to retrieve what was produced.
func (p *PSG) GenerateSamples(clocks int) {
	p.bufferPos = 0
	for i := 0; i < clocks; i++ {
		p.Clock()
		p.clockCounter++
		if p.clockCounter >= p.clocksPerSample {
			p.clockCounter -= p.clocksPerSample
			if p.bufferPos < len(p.buffer) {
				p.buffer[p.bufferPos] = p.Sample()
				p.bufferPos++
			}
		}
	}
}

// GetBuffer returns the sample buffer and the count of valid samples
// produced by the most recent GenerateSamples call.
func (p *PSG) GetBuffer() ([]float32, int) { return p.buffer, p.bufferPos }

func (p *PSG) GetToneReg(ch int) uint16 { return p.toneReg[ch] }
func (p *PSG) GetVolume(ch int) uint8   { return p.volume[ch] }
func (p *PSG) GetNoiseReg() uint8       { return p.noiseReg }

// GetState returns a copy of the serializable PSG state.
func (p *PSG) GetState() PSGState {
	return PSGState{
		ToneReg:        p.toneReg,
		ToneCounter:    p.toneCounter,
		ToneOutput:     p.toneOutput,
		NoiseReg:       p.noiseReg,
		NoiseCounter:   p.noiseCounter,
		NoiseShift:     p.noiseShift,
		NoiseOutput:    p.noiseOutput,
		Volume:         p.volume,
		LatchedChannel: p.latchedChannel,
		LatchedType:    p.latchedType,
	}
}

// SetState installs PSG state wholesale.
func (p *PSG) SetState(s PSGState) {
	p.toneReg = s.ToneReg
	p.toneCounter = s.ToneCounter
	p.toneOutput = s.ToneOutput
	p.noiseReg = s.NoiseReg
	p.noiseCounter = s.NoiseCounter
	p.noiseShift = s.NoiseShift
	p.noiseOutput = s.NoiseOutput
	p.volume = s.Volume
	p.latchedChannel = s.LatchedChannel
	p.latchedType = s.LatchedType
}
