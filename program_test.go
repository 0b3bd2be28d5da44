package stereocap

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeDrivers(open SourceOpener, stdout *bytes.Buffer) Drivers {
	return Drivers{Open: open, Stdout: stdout, Stderr: stdout}
}

func TestMainOpenFailureExitsWithoutFiles(t *testing.T) {
	output := filepath.Join(t.TempDir(), "images")
	var stdout bytes.Buffer

	code := Main(context.Background(), []string{"-resolution", "VGA", "-output", output}, fakeDrivers(failingOpener(ErrorCodeCameraNotDetected), &stdout))

	assert.Equal(t, 1, code)
	assert.Equal(t, "failed to open camera: CAMERA NOT DETECTED\n", stdout.String())
	_, err := os.Stat(output)
	assert.True(t, os.IsNotExist(err))
}

func TestMainConfigErrorExitsWithoutFiles(t *testing.T) {
	output := filepath.Join(t.TempDir(), "images")

	for _, args := range [][]string{
		{"-confidence", "0"},
		{"-depth-min", "25"},
		{"-encoder", "opencv"},
		{"-resolution", "8K"},
	} {
		opened := false
		open := func(InitParameters) (Source, error) {
			opened = true
			return &fakeSource{}, nil
		}
		var stdout bytes.Buffer

		code := Main(context.Background(), append(args, "-output", output), fakeDrivers(open, &stdout))
		assert.Equal(t, 2, code, "args %q", args)
		assert.False(t, opened, "args %q", args)
	}

	_, err := os.Stat(output)
	assert.True(t, os.IsNotExist(err))
}

func TestMainHelp(t *testing.T) {
	var stdout bytes.Buffer
	code := Main(context.Background(), []string{"-h"}, fakeDrivers(failingOpener(ErrorCodeFailure), &stdout))
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "Usage: capture")
}

func TestMainSavesFramesUntilQuit(t *testing.T) {
	output := filepath.Join(t.TempDir(), "images")
	src := &fakeSource{results: []error{nil, ErrorCodeFailure, nil, nil}}
	display := &fakeDisplay{keys: []int{-1, QuitKey}}
	var stdout bytes.Buffer

	drivers := fakeDrivers(openerFor(src), &stdout)
	drivers.NewDisplay = func() Display { return display }

	code := Main(context.Background(), []string{"-resolution", "VGA", "-output", output}, drivers)

	assert.Equal(t, 0, code)
	assert.Equal(t, " Press 'q' to quit the process\n", stdout.String())
	assert.True(t, display.closed)
	assert.True(t, src.closed)
	assert.Equal(t, 3, src.reads)
	for _, v := range recordedViews {
		if diff := cmp.Diff([]string{"0.png", "1.png"}, listDir(t, filepath.Join(output, v.String()))); diff != "" {
			t.Errorf("%s files mismatch (-want +got):\n%s", v, diff)
		}
	}
}

func TestMainHeadlessWithManifest(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "images")
	db := filepath.Join(dir, "frames.db")
	src := &fakeSource{results: []error{nil, nil}}
	var encoded []string
	var stdout bytes.Buffer

	drivers := fakeDrivers(openerFor(src), &stdout)
	drivers.NewDisplay = func() Display {
		t.Fatal("display opened while headless")
		return nil
	}
	drivers.NewEncoder = func(level png.CompressionLevel) Encoder {
		assert.Equal(t, png.BestSpeed, level)
		return encoderFunc(func(path string, _ *ImageView) error {
			encoded = append(encoded, filepath.Base(filepath.Dir(path))+"/"+filepath.Base(path))
			return nil
		})
	}

	args := []string{"-resolution", "VGA", "-headless", "-encoder", "opencv", "-png-compression", "-2", "-output", output, "-manifest", db}
	code := Main(context.Background(), args, drivers)
	require.Equal(t, 0, code)
	assert.Empty(t, stdout.String())

	want := []string{"left/0.png", "right/0.png", "depth/0.png", "left/1.png", "right/1.png", "depth/1.png"}
	if diff := cmp.Diff(want, encoded); diff != "" {
		t.Errorf("encoded mismatch (-want +got):\n%s", diff)
	}

	m, err := OpenManifest(db)
	require.NoError(t, err)
	defer m.Close()
	var frames int
	require.NoError(t, m.QueryRow("SELECT COUNT(*) FROM frames").Scan(&frames))
	assert.Equal(t, 2, frames)
}

func TestMainCancelledExitsCleanly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := &fakeSource{results: []error{nil}}
	var stdout bytes.Buffer

	code := Main(ctx, []string{"-resolution", "VGA", "-headless", "-output", t.TempDir()}, fakeDrivers(openerFor(src), &stdout))
	assert.Equal(t, 0, code)
	assert.Zero(t, src.reads)
}

type encoderFunc func(path string, img *ImageView) error

func (f encoderFunc) Encode(path string, img *ImageView) error {
	return f(path, img)
}
