package emu

import "errors"

// Config gathers every construction-time choice a Machine needs: the
// cartridge and optional BIOS images, the mapper and region they imply,
// and the behavioral toggles (wait states, compound block instructions,
// RET/IFF compatibility, tracing) a host may want to override.
type Config struct {
	Cart []byte
	BIOS []byte

	Mapper       MapperType
	Region       Region
	Nationality  Nationality
	AllowCartRAM bool

	// UseManualInit skips the BIOS cold-boot path (seeding CPU/VDP state
	// directly as the BIOS would have left it) even when a BIOS image is
	// configured, useful for running a cartridge headless without caring
	// about whatever intro the BIOS displays.
	UseManualInit bool

	FastBlocks bool
	// DisableCompatRetIFF turns off the default-on compatibility behavior
	// where a RET to the exact address an interrupt pushed also restores
	// IFF1 from IFF2; leaving this false keeps the documented default.
	DisableCompatRetIFF bool
	Wait                WaitHooks
	Hooks               Hooks
}

// ErrNoCartridge and friends identify Config validation failures; a
// Machine is never constructed from an invalid Config.
var (
	ErrNoCartridge     = errors.New("emu: config has no cartridge image")
	ErrCartTooSmall    = errors.New("emu: cartridge image is smaller than one bank (16KiB)")
	ErrBIOSInvalidSize = errors.New("emu: BIOS image is not 8KiB, 16KiB or 32KiB")
)

// Validate checks that Config describes a buildable Machine.
func (c Config) Validate() error {
	if len(c.Cart) == 0 {
		return ErrNoCartridge
	}
	if len(c.Cart) < 0x4000 {
		return ErrCartTooSmall
	}
	switch len(c.BIOS) {
	case 0, 0x2000, 0x4000, 0x8000:
	default:
		return ErrBIOSInvalidSize
	}
	return nil
}
