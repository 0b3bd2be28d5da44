package cv

import (
	"fmt"
	"time"

	"github.com/jonas-koeritz/stereocap"
	"gocv.io/x/gocv"
)

// Display shows views in HighGUI windows, one per title.
type Display struct {
	windows map[string]*gocv.Window
	order   []string
}

func NewDisplay() *Display {
	return &Display{windows: make(map[string]*gocv.Window)}
}

func (d *Display) Show(title string, img *stereocap.ImageView) error {
	w, ok := d.windows[title]
	if !ok {
		w = gocv.NewWindow(title)
		d.windows[title] = w
		d.order = append(d.order, title)
	}

	mat, err := ToMat(img)
	if err != nil {
		return fmt.Errorf("failed to show %s: %w", title, err)
	}
	defer mat.Close()

	w.IMShow(mat)
	return nil
}

// WaitKey pumps the window events for up to delay and returns the pressed
// key, or -1.
func (d *Display) WaitKey(delay time.Duration) int {
	ms := max(int(delay/time.Millisecond), 1)
	if len(d.order) == 0 {
		time.Sleep(time.Duration(ms) * time.Millisecond)
		return -1
	}

	key := d.windows[d.order[0]].WaitKey(ms)
	if key < 0 {
		return -1
	}
	return key & 0xff
}

func (d *Display) Close() error {
	var firstErr error
	for _, title := range d.order {
		if err := d.windows[title].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	d.windows = make(map[string]*gocv.Window)
	d.order = nil
	return firstErr
}
