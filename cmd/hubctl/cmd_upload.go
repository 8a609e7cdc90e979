package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"sensorhub-go/drivers/bhi160"
	"sensorhub-go/x/mathx"
)

func runUpload(args []string) error {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `hubctl upload - Validate and upload a RAM firmware image

Usage:
  hubctl upload [flags] <image.fw>

Flags:
`)
		fs.PrintDefaults()
	}
	var c common
	c.register(fs)
	noRun := fs.Bool("no-run", false, "Leave the CPU halted after a successful upload")
	force := fs.Bool("force", false, "Upload even if the image targets another ROM version")
	check := fs.Bool("check", false, "Only validate the image; do not touch the device")
	quiet := fs.Bool("q", false, "No progress output")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: firmware image required")
		fs.Usage()
		return errUsage
	}

	fw, err := bhi160.ReadFirmware(fs.Arg(0))
	if err != nil {
		return err
	}
	chunks := mathx.CeilDiv(len(fw.Body()), bhi160.UploadChunk)
	fmt.Printf("image: rom=0x%04X crc=0x%08X body=%d bytes (%d chunks)\n",
		fw.RomVersion(), fw.CRC(), fw.DataLen(), chunks)
	if *check {
		return nil
	}

	var progress func(done, total int)
	if !*quiet {
		progress = printProgress
	}
	_, log, h, err := setup(&c, progress)
	if err != nil {
		return err
	}
	defer h.Close()
	defer log.Sync()

	rom, err := h.dev.RomVersion()
	if err != nil {
		return err
	}
	if !fw.Matches(rom) {
		if !*force {
			return fmt.Errorf("image is for ROM 0x%04X, device has 0x%04X (use -force)", fw.RomVersion(), uint16(rom))
		}
		log.Warn("rom version mismatch", zap.Uint16("image", fw.RomVersion()), zap.Uint16("device", uint16(rom)))
	}

	if *noRun {
		crc, err := h.dev.UploadRawFirmware(fw.Body())
		if err != nil {
			return err
		}
		if crc != fw.CRC() {
			return &bhi160.CRCMismatchError{Expected: fw.CRC(), Actual: crc}
		}
		fmt.Printf("\nuploaded, crc=0x%08X, cpu halted\n", crc)
		return nil
	}

	if err := h.dev.LoadFirmware(fw); err != nil {
		return err
	}
	ram, err := h.dev.RamVersion()
	if err != nil {
		return err
	}
	fmt.Printf("\nuploaded, crc=0x%08X, ram version 0x%04X\n", fw.CRC(), uint16(ram))
	return nil
}

func printProgress(done, total int) {
	pct := 100
	if total > 0 {
		pct = mathx.RoundDiv(done*100, total)
	}
	fmt.Fprintf(os.Stderr, "\r%3d%% %d/%d", pct, done, total)
}
