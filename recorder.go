package stereocap

import (
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Encoder writes one view to path.
type Encoder interface {
	Encode(path string, img *ImageView) error
}

// PNGEncoder encodes with image/png.
type PNGEncoder struct {
	CompressionLevel png.CompressionLevel
}

func (e PNGEncoder) Encode(path string, img *ImageView) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := png.Encoder{CompressionLevel: e.CompressionLevel}
	if err := enc.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var recordedViews = []View{ViewLeft, ViewRight, ViewDepth}

const frameExt = ".png"

// Recorder writes frames as <root>/<view>/<counter>.png.
type Recorder struct {
	root    string
	dirs    map[View]string
	encoder Encoder
	counter int
}

// SavedFrame lists the files written for one frame.
type SavedFrame struct {
	Index int
	Paths map[View]string
}

// NewRecorder creates the output directories, which may already exist.
// With resume set, numbering continues after the highest index found in
// any of them instead of starting at zero.
func NewRecorder(root string, encoder Encoder, resume bool) (*Recorder, error) {
	if encoder == nil {
		encoder = PNGEncoder{}
	}

	r := Recorder{
		root:    root,
		dirs:    make(map[View]string, len(recordedViews)),
		encoder: encoder,
	}
	for _, v := range recordedViews {
		r.dirs[v] = filepath.Join(root, v.String())
	}

	if err := r.createDirectories(); err != nil {
		return nil, err
	}

	if resume {
		next, err := r.nextIndex()
		if err != nil {
			return nil, err
		}
		r.counter = next
	}

	return &r, nil
}

func (r *Recorder) createDirectories() error {
	if err := os.MkdirAll(r.root, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	for _, v := range recordedViews {
		if err := os.MkdirAll(r.dirs[v], 0755); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", v, err)
		}
	}
	return nil
}

func (r *Recorder) nextIndex() (int, error) {
	next := 0
	for _, v := range recordedViews {
		entries, err := os.ReadDir(r.dirs[v])
		if err != nil {
			return 0, fmt.Errorf("failed to scan %s directory: %w", v, err)
		}
		for _, entry := range entries {
			name, ok := strings.CutSuffix(entry.Name(), frameExt)
			if !ok || entry.IsDir() {
				continue
			}
			n, err := strconv.Atoi(name)
			if err != nil || n < 0 {
				continue
			}
			next = max(next, n+1)
		}
	}
	return next, nil
}

func (r *Recorder) Root() string {
	return r.root
}

func (r *Recorder) Dir(v View) string {
	return r.dirs[v]
}

// Counter returns the index the next saved frame will get.
func (r *Recorder) Counter() int {
	return r.counter
}

func (r *Recorder) Path(v View, index int) string {
	return filepath.Join(r.dirs[v], strconv.Itoa(index)+frameExt)
}

// Save writes every non-nil view under the current counter and then
// advances the counter, even if some writes failed.
func (r *Recorder) Save(views map[View]*ImageView) (SavedFrame, error) {
	frame := SavedFrame{Index: r.counter, Paths: make(map[View]string, len(views))}

	var errs []error
	for _, v := range recordedViews {
		img, ok := views[v]
		if !ok || img == nil {
			continue
		}
		path := r.Path(v, frame.Index)
		if err := r.encoder.Encode(path, img); err != nil {
			errs = append(errs, fmt.Errorf("failed to write %s: %w", path, err))
			continue
		}
		frame.Paths[v] = path
	}

	r.counter++
	return frame, errors.Join(errs...)
}
