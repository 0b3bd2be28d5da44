package stereocap

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(nil, io.Discard)
	require.NoError(t, err)

	want := Config{
		Resolution:  ResolutionHD1080,
		DepthMode:   DepthModePerformance,
		Unit:        UnitMeter,
		SensingMode: SensingModeStandard,
		Confidence:  100,
		OutputDir:   "./images",
		Encoder:     EncoderPNG,
		WaitKey:     10 * time.Millisecond,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigEnvThenFlags(t *testing.T) {
	t.Setenv("STEREOCAP_RESOLUTION", "vga")
	t.Setenv("STEREOCAP_UNIT", "MILLIMETER")
	t.Setenv("STEREOCAP_OUTPUT_DIR", "/tmp/env-images")
	t.Setenv("STEREOCAP_WAIT_KEY", "25ms")

	cfg, err := LoadConfig([]string{"-resolution", "HD720", "-depth-mode", "quality", "-resume", "recording.avi"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, ResolutionHD720, cfg.Resolution)
	assert.Equal(t, DepthModeQuality, cfg.DepthMode)
	assert.Equal(t, UnitMillimeter, cfg.Unit)
	assert.Equal(t, "/tmp/env-images", cfg.OutputDir)
	assert.Equal(t, 25*time.Millisecond, cfg.WaitKey)
	assert.True(t, cfg.Resume)
	assert.Equal(t, "recording.avi", cfg.Input)

	params := cfg.InitParameters()
	assert.Equal(t, "recording.avi", params.SVOInputFilename)
	assert.Equal(t, ResolutionHD720, params.CameraResolution)
	assert.Equal(t, UnitMillimeter, params.CoordinateUnits)
}

func TestLoadConfigEnvError(t *testing.T) {
	t.Setenv("STEREOCAP_RESOLUTION", "8K")

	_, err := LoadConfig(nil, io.Discard)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "parse env:"), err.Error())
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	for _, args := range [][]string{
		{"-encoder", "bmp"},
		{"-confidence", "0"},
		{"-png-compression", "4"},
		{"-wait-key", "0s"},
		{"-depth-min", "5", "-depth-max", "1"},
		{"-depth-min", "25"},
		{"-depth-max", "0.2"},
		{"-output", ""},
		{"-unit", "parsec"},
		{"a.avi", "b.avi"},
	} {
		_, err := LoadConfig(args, io.Discard)
		assert.Error(t, err, "args %q", args)
	}
}

func TestDepthRangeUsesUnitDefaults(t *testing.T) {
	_, err := LoadConfig([]string{"-depth-min", "25"}, io.Discard)
	assert.ErrorContains(t, err, "invalid depth range [25, 20] METER")

	cfg, err := LoadConfig([]string{"-unit", "MILLIMETER", "-depth-min", "25"}, io.Discard)
	require.NoError(t, err)

	// What Validate accepts the camera accepts too
	camera, err := Open(cfg.InitParameters(), openerFor(&fakeSource{}))
	require.NoError(t, err)
	defer camera.Close()
	minimum, maximum := camera.DepthRange()
	assert.InDelta(t, 25, minimum, 1e-9)
	assert.InDelta(t, 20000, maximum, 1e-9)
}

func TestRuntimeParametersFromConfig(t *testing.T) {
	cfg, err := LoadConfig([]string{"-depth-mode", "NONE", "-sensing-mode", "fill", "-confidence", "60"}, io.Discard)
	require.NoError(t, err)

	runtime := cfg.RuntimeParameters()
	assert.False(t, runtime.EnableDepth)
	assert.Equal(t, SensingModeFill, runtime.SensingMode)
	assert.Equal(t, 60, runtime.ConfidenceThreshold)
}

func TestEnumText(t *testing.T) {
	var r Resolution
	require.NoError(t, r.UnmarshalText([]byte("hd2k")))
	assert.Equal(t, ResolutionHD2K, r)
	assert.Equal(t, "HD2K", r.String())

	text, err := DepthModeUltra.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "ULTRA", string(text))

	var u Unit
	assert.Error(t, u.UnmarshalText([]byte("furlong")))
	assert.Equal(t, "UNKNOWN(9)", Unit(9).String())

	assert.Equal(t, "depth", ViewDepth.String())
	assert.Equal(t, 4, MatTypeU8C4.PixelSize())
}

func TestUnitFromMeters(t *testing.T) {
	assert.InDelta(t, 1500, UnitMillimeter.FromMeters(1.5), 1e-9)
	assert.InDelta(t, 150, UnitCentimeter.FromMeters(1.5), 1e-9)
	assert.InDelta(t, 1.5, UnitMeter.FromMeters(1.5), 1e-9)
	assert.InDelta(t, 39.37, UnitInch.FromMeters(1), 1e-2)
	assert.InDelta(t, 3.28, UnitFoot.FromMeters(1), 1e-2)
}
