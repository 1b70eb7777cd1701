package emu

import (
	"errors"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"no cartridge", Config{}, ErrNoCartridge},
		{"cart too small", Config{Cart: make([]byte, 0x100)}, ErrCartTooSmall},
		{"bios odd size", Config{Cart: createTestROM(2), BIOS: make([]byte, 0x4001)}, ErrBIOSInvalidSize},
		{"bios too large", Config{Cart: createTestROM(2), BIOS: make([]byte, 0x10000)}, ErrBIOSInvalidSize},
		{"valid minimal", Config{Cart: createTestROM(2)}, nil},
		{"valid 8KiB bios", Config{Cart: createTestROM(2), BIOS: make([]byte, 0x2000)}, nil},
		{"valid 16KiB bios", Config{Cart: createTestROM(2), BIOS: make([]byte, 0x4000)}, nil},
		{"valid 32KiB bios", Config{Cart: createTestROM(2), BIOS: make([]byte, 0x8000)}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}
