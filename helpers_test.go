package stereocap

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

// fakeSource replays scripted Read results. Successful reads fill both
// eyes with a gray level derived from the read number. Once the script is
// exhausted it reports the end of the recording.
type fakeSource struct {
	results []error
	reads   int
	closed  bool
}

func (s *fakeSource) Read(left, right *Mat) error {
	if s.reads >= len(s.results) {
		return ErrorCodeEndOfSVOFileReached
	}
	err := s.results[s.reads]
	s.reads++
	if err != nil {
		return err
	}
	fillGray(left, grayForRead(s.reads))
	fillGray(right, grayForRead(s.reads)+1)
	return nil
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

func grayForRead(n int) byte {
	return byte(n * 10)
}

func openerFor(src Source) SourceOpener {
	return func(InitParameters) (Source, error) {
		return src, nil
	}
}

func failingOpener(err error) SourceOpener {
	return func(InitParameters) (Source, error) {
		return nil, err
	}
}

type fakeDisplay struct {
	shown  []string
	keys   []int
	waits  int
	closed bool
}

func (d *fakeDisplay) Show(title string, img *ImageView) error {
	d.shown = append(d.shown, title)
	return nil
}

func (d *fakeDisplay) WaitKey(time.Duration) int {
	d.waits++
	if len(d.keys) == 0 {
		return -1
	}
	key := d.keys[0]
	d.keys = d.keys[1:]
	return key
}

func (d *fakeDisplay) Close() error {
	d.closed = true
	return nil
}

// countingEncoder records paths and touches the files without encoding.
type countingEncoder struct {
	paths []string
	fail  map[string]bool
}

func (e *countingEncoder) Encode(path string, img *ImageView) error {
	if e.fail[filepath.Base(filepath.Dir(path))] {
		return errors.New("disk full")
	}
	e.paths = append(e.paths, path)
	return os.WriteFile(path, nil, 0644)
}

func fillGray(m *Mat, v byte) {
	pix := m.Bytes()
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = v, v, v, 0xff
	}
}

// shiftedPair fills left with gray noise and right with the same noise
// shifted so that left pixel x matches right pixel x-disparity.
func shiftedPair(left, right *Mat, disparity int, seed int64) {
	rng := rand.New(rand.NewSource(seed))
	w, h := left.Width(), left.Height()
	lp, rp := left.Bytes(), right.Bytes()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := byte(rng.Intn(256))
			i := y*left.Stride() + x*4
			lp[i], lp[i+1], lp[i+2], lp[i+3] = v, v, v, 0xff
		}
		for x := 0; x < w; x++ {
			var v byte
			if x+disparity < w {
				v = lp[y*left.Stride()+(x+disparity)*4]
			} else {
				v = byte(rng.Intn(256))
			}
			i := y*right.Stride() + x*4
			rp[i], rp[i+1], rp[i+2], rp[i+3] = v, v, v, 0xff
		}
	}
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}
