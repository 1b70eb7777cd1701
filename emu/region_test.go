package emu

import "testing"

func TestRegion_String(t *testing.T) {
	cases := []struct {
		region Region
		want   string
	}{
		{RegionNTSC, "NTSC"},
		{RegionPAL, "PAL"},
	}
	for _, tc := range cases {
		if got := tc.region.String(); got != tc.want {
			t.Errorf("Region(%d).String() = %q, want %q", tc.region, got, tc.want)
		}
	}
}

func TestTimingForRegion(t *testing.T) {
	ntsc := TimingForRegion(RegionNTSC)
	if ntsc.CPUClockHz != 3579545 || ntsc.Scanlines != 262 || ntsc.FPS != 60 {
		t.Errorf("unexpected NTSC timing: %+v", ntsc)
	}

	pal := TimingForRegion(RegionPAL)
	if pal.CPUClockHz != 3546893 || pal.Scanlines != 313 || pal.FPS != 50 {
		t.Errorf("unexpected PAL timing: %+v", pal)
	}
}
