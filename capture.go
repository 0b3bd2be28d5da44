package stereocap

import (
	"context"
	"errors"
	"log"
	"time"
)

// Display presents views to the user and polls the keyboard.
type Display interface {
	Show(title string, img *ImageView) error
	// WaitKey returns the pressed key, or -1 if none was pressed within delay.
	WaitKey(delay time.Duration) int
	Close() error
}

var WindowTitles = map[View]string{
	ViewLeft:  "Left Image",
	ViewRight: "Right Image",
	ViewDepth: "Depth",
}

const QuitKey = 'q'

type LoopOptions struct {
	Runtime RuntimeParameters
	WaitKey time.Duration

	// Optional frame index. Without a Sampler its depth columns stay zero.
	Manifest *Manifest
	Sampler  *DepthSampler
}

var DefaultLoopOptions = LoopOptions{
	Runtime: DefaultRuntimeParameters,
	WaitKey: 10 * time.Millisecond,
}

type RunSummary struct {
	Saved  int
	Failed int
}

// Run grabs, shows and saves frames until the quit key is pressed, the
// recording ends or ctx is done. A nil display runs headless. Failed grabs
// are skipped without touching the recorder's counter.
func Run(ctx context.Context, camera *Camera, display Display, recorder *Recorder, opts LoopOptions) (RunSummary, error) {
	var summary RunSummary

	size := camera.Resolution()
	mats := make(map[View]*Mat, len(recordedViews))
	views := make(map[View]*ImageView, len(recordedViews))
	for _, v := range recordedViews {
		mats[v] = NewMat(size.X, size.Y, MatTypeU8C4)
		views[v] = mats[v].View()
	}

	var depth *Mat
	if opts.Sampler != nil {
		depth = NewMat(size.X, size.Y, MatTypeF32C1)
	}

	for {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		if err := camera.Grab(opts.Runtime); err != nil {
			if errors.Is(err, ErrorCodeEndOfSVOFileReached) {
				log.Printf("End of recording reached after %d frames", summary.Saved)
				return summary, nil
			}
			summary.Failed++
			continue
		}

		current := make(map[View]*ImageView, len(recordedViews))
		for _, v := range recordedViews {
			if err := camera.RetrieveImage(mats[v], v); err == nil {
				current[v] = views[v]
			}
		}

		if display != nil {
			for _, v := range recordedViews {
				if img, ok := current[v]; ok {
					if err := display.Show(WindowTitles[v], img); err != nil {
						log.Printf("Failed to show %s image: %s", v, err)
					}
				}
			}
		}

		saved, err := recorder.Save(current)
		if err != nil {
			log.Printf("Failed to save frame %d: %s", saved.Index, err)
		}
		summary.Saved++

		if opts.Manifest != nil {
			recordFrame(camera, opts, depth, saved)
		}

		if display != nil && display.WaitKey(opts.WaitKey) == QuitKey {
			return summary, nil
		}
	}
}

func recordFrame(camera *Camera, opts LoopOptions, depth *Mat, saved SavedFrame) {
	var stats DepthStats
	if opts.Sampler != nil && camera.RetrieveMeasure(depth, MeasureDepth) == nil {
		var err error
		if stats, err = opts.Sampler.Sample(depth); err != nil {
			log.Printf("Failed to sample depth of frame %d: %s", saved.Index, err)
		}
	}
	if err := opts.Manifest.RecordFrame(saved, camera.Timestamp(), stats); err != nil {
		log.Printf("Failed to record frame %d: %s", saved.Index, err)
	}
}
