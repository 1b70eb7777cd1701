// Command smsrun is a headless runner around the emu package: it loads a
// cartridge (and optional BIOS), runs it for a fixed number of frames with
// no display or audio device attached, and dumps the resulting raw
// framebuffer and PCM bytes to files for inspection or golden-file testing.
package main

import (
	"fmt"
	"math"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/user-none/emkiii-core/emu"
)

var fs = afero.NewOsFs()

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		biosPath     string
		frames       int
		region       string
		mapper       string
		manualInit   bool
		fastBlocks   bool
		allowCartRAM bool
		fbOut        string
		pcmOut       string
	)

	cmd := &cobra.Command{
		Use:   "smsrun <cartridge.sms>",
		Short: "Run a Sega Master System cartridge headlessly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cart, err := afero.ReadFile(fs, args[0])
			if err != nil {
				return fmt.Errorf("read cartridge: %w", err)
			}

			var bios []byte
			if biosPath != "" {
				bios, err = afero.ReadFile(fs, biosPath)
				if err != nil {
					return fmt.Errorf("read bios: %w", err)
				}
			}

			cfg := emu.Config{
				Cart:          cart,
				BIOS:          bios,
				Mapper:        parseMapper(mapper),
				Region:        parseRegion(region),
				AllowCartRAM:  allowCartRAM,
				UseManualInit: manualInit,
				FastBlocks:    fastBlocks,
			}

			const sampleRate = 48000
			m, err := emu.NewMachine(cfg, sampleRate)
			if err != nil {
				return fmt.Errorf("build machine: %w", err)
			}

			var pcm []float32
			for i := 0; i < frames; i++ {
				if _, err := m.RunFrame(); err != nil {
					return fmt.Errorf("frame %d: %w", i, err)
				}
				samples, n := m.AudioSamples()
				pcm = append(pcm, samples[:n]...)
			}

			if fbOut != "" {
				if err := afero.WriteFile(fs, fbOut, m.Framebuffer(), 0o644); err != nil {
					return fmt.Errorf("write framebuffer: %w", err)
				}
			}
			if pcmOut != "" {
				if err := afero.WriteFile(fs, pcmOut, float32sToBytes(pcm), 0o644); err != nil {
					return fmt.Errorf("write pcm: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&biosPath, "bios", "", "optional BIOS image to overlay at boot")
	cmd.Flags().IntVar(&frames, "frames", 60, "number of frames to run")
	cmd.Flags().StringVar(&region, "region", "ntsc", "ntsc or pal")
	cmd.Flags().StringVar(&mapper, "mapper", "sega", "sega or codemasters")
	cmd.Flags().BoolVar(&manualInit, "manual-init", false, "skip the BIOS boot sequence even if --bios is set")
	cmd.Flags().BoolVar(&fastBlocks, "fast-blocks", true, "execute repeating block instructions as one compound operation")
	cmd.Flags().BoolVar(&allowCartRAM, "allow-cart-ram", true, "honor cartridge RAM banking in the Sega mapper")
	cmd.Flags().StringVar(&fbOut, "framebuffer-out", "", "file to write the final frame's raw RGB8 framebuffer to")
	cmd.Flags().StringVar(&pcmOut, "pcm-out", "", "file to write accumulated float32 PCM samples to")

	return cmd
}

func parseRegion(s string) emu.Region {
	if s == "pal" {
		return emu.RegionPAL
	}
	return emu.RegionNTSC
}

func parseMapper(s string) emu.MapperType {
	if s == "codemasters" {
		return emu.MapperCodemasters
	}
	return emu.MapperSega
}

func float32sToBytes(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		bits := math.Float32bits(s)
		out[i*4+0] = byte(bits)
		out[i*4+1] = byte(bits >> 8)
		out[i*4+2] = byte(bits >> 16)
		out[i*4+3] = byte(bits >> 24)
	}
	return out
}
