package stereocap

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"io"
	"log"
	"os"
)

// Drivers binds the capture program to concrete devices.
type Drivers struct {
	Open SourceOpener
	// NewDisplay is called unless the program runs headless.
	NewDisplay func() Display
	// NewEncoder backs the opencv encoder. Nil leaves only png available.
	NewEncoder func(png.CompressionLevel) Encoder

	Stdout io.Writer
	Stderr io.Writer
}

// Main runs the capture program with args (without the program name) and
// returns its exit status: 0 when the run ends normally or ctx is
// cancelled, 1 when the camera or the output cannot be opened and 2 for
// invalid configuration.
func Main(ctx context.Context, args []string, drivers Drivers) int {
	stdout, stderr := drivers.Stdout, drivers.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	cfg, err := LoadConfig(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		log.Printf("ERROR: %s\n", err)
		return 2
	}
	if cfg.Encoder == EncoderOpenCV && drivers.NewEncoder == nil {
		log.Printf("ERROR: encoder %q is not available\n", cfg.Encoder)
		return 2
	}

	params := cfg.InitParameters()
	camera, err := Open(params, drivers.Open)
	if err != nil {
		fmt.Fprintln(stdout, err)
		return 1
	}
	defer camera.Close()

	log.Printf("Opened stereo camera: %s, depth %s in %s", params.CameraResolution, params.DepthMode, params.CoordinateUnits)

	var encoder Encoder = cfg.PNGEncoder()
	if cfg.Encoder == EncoderOpenCV {
		encoder = drivers.NewEncoder(cfg.PNGEncoder().CompressionLevel)
	}

	recorder, err := NewRecorder(cfg.OutputDir, encoder, cfg.Resume)
	if err != nil {
		log.Printf("ERROR: %s\n", err)
		return 1
	}
	if recorder.Counter() > 0 {
		log.Printf("Resuming at frame %d", recorder.Counter())
	}

	opts := DefaultLoopOptions
	opts.Runtime = cfg.RuntimeParameters()
	opts.WaitKey = cfg.WaitKey

	if cfg.Manifest != "" {
		manifest, err := OpenManifest(cfg.Manifest)
		if err != nil {
			log.Printf("ERROR: %s\n", err)
			return 1
		}
		defer manifest.Close()

		if err := manifest.StartRun(params); err != nil {
			log.Printf("ERROR: %s\n", err)
			return 1
		}
		opts.Manifest = manifest
		opts.Sampler = NewDepthSampler(4)
		log.Printf("Recording manifest run %s to %s", manifest.RunID, cfg.Manifest)
	}

	var display Display
	if !cfg.Headless && drivers.NewDisplay != nil {
		display = drivers.NewDisplay()
		defer display.Close()
		fmt.Fprintf(stdout, " Press '%c' to quit the process\n", QuitKey)
	}

	summary, err := Run(ctx, camera, display, recorder, opts)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("ERROR: %s\n", err)
	}
	log.Printf("Saved %d frames to %s (%d failed grabs)", summary.Saved, recorder.Root(), summary.Failed)

	return 0
}
