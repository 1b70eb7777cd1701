package emu

// Region selects the console's video/timing standard.
type Region int

const (
	RegionNTSC Region = iota
	RegionPAL
)

func (r Region) String() string {
	switch r {
	case RegionPAL:
		return "PAL"
	default:
		return "NTSC"
	}
}

// RegionTiming holds the CPU clock and scanline geometry a region implies.
type RegionTiming struct {
	CPUClockHz int
	Scanlines  int
	FPS        int
}

// NTSCTiming: 3.579545MHz, 262 scanlines, 60Hz.
var NTSCTiming = RegionTiming{CPUClockHz: 3579545, Scanlines: 262, FPS: 60}

// PALTiming: 3.546893MHz, 313 scanlines, 50Hz.
var PALTiming = RegionTiming{CPUClockHz: 3546893, Scanlines: 313, FPS: 50}

// TimingForRegion returns the timing constants for a region.
func TimingForRegion(r Region) RegionTiming {
	if r == RegionPAL {
		return PALTiming
	}
	return NTSCTiming
}
