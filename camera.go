package stereocap

import (
	"fmt"
	"image"
	"time"
)

// Source delivers rectified stereo pairs to a Camera. Read blocks until the
// next pair is available and writes it into the two 8U_C4 Mats.
type Source interface {
	Read(left, right *Mat) error
	Close() error
}

// SourceOpener opens the Source described by params, either the live
// device or the recording named by SVOInputFilename.
type SourceOpener func(params InitParameters) (Source, error)

type InitParameters struct {
	CameraResolution Resolution
	CameraFPS        int
	DepthMode        DepthMode
	CoordinateUnits  Unit

	// Valid depth range in CoordinateUnits. Zero selects 0.3 m and 20 m.
	DepthMinimumDistance float64
	DepthMaximumDistance float64

	// Playback from a recorded side-by-side video instead of the device.
	SVOInputFilename string
	DeviceID         int

	// Overrides the nominal calibration for CameraResolution.
	Calibration *CalibrationParameters
}

var DefaultInitParameters = InitParameters{
	CameraResolution: ResolutionHD720,
	DepthMode:        DepthModePerformance,
	CoordinateUnits:  UnitMillimeter,
}

type RuntimeParameters struct {
	SensingMode SensingMode
	EnableDepth bool

	// Matches whose cost is not clearly better than the runner-up are
	// dropped. 100 keeps everything, lower values are stricter.
	ConfidenceThreshold int
}

var DefaultRuntimeParameters = RuntimeParameters{
	SensingMode:         SensingModeStandard,
	EnableDepth:         true,
	ConfidenceThreshold: 100,
}

const (
	defaultDepthMinimumMeters = 0.3
	defaultDepthMaximumMeters = 20.0
)

// Camera is a session on a stereo source. It owns the frame buffers every
// Grab writes into; RetrieveImage copies them out to caller-owned Mats.
type Camera struct {
	params      InitParameters
	source      Source
	resolution  image.Point
	calibration CalibrationParameters
	minDepth    float64
	maxDepth    float64

	left      *Mat
	right     *Mat
	depth     *Mat
	depthView *Mat
	engine    *depthEngine

	grabbed   bool
	hasDepth  bool
	frames    uint64
	timestamp time.Time
}

func Open(params InitParameters, open SourceOpener) (*Camera, error) {
	if open == nil {
		return nil, fmt.Errorf("failed to open camera: no source: %w", ErrorCodeInvalidFunctionParameters)
	}

	camera := Camera{params: params}
	if err := camera.init(); err != nil {
		return nil, err
	}

	source, err := open(params)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera: %w", err)
	}
	camera.source = source

	return &camera, nil
}

func (c *Camera) init() error {
	c.resolution = c.params.CameraResolution.Size()
	if c.resolution.X == 0 || c.resolution.Y == 0 {
		return fmt.Errorf("unknown camera resolution %d: %w", c.params.CameraResolution, ErrorCodeInvalidResolution)
	}

	if c.params.Calibration != nil {
		c.calibration = *c.params.Calibration
	} else {
		c.calibration = defaultCalibration(c.params.CameraResolution)
	}
	if c.calibration.Fx <= 0 || c.calibration.Baseline <= 0 {
		return fmt.Errorf("invalid calibration %+v: %w", c.calibration, ErrorCodeInvalidFunctionParameters)
	}

	unit := c.params.CoordinateUnits
	c.minDepth = c.params.DepthMinimumDistance
	if c.minDepth <= 0 {
		c.minDepth = unit.FromMeters(defaultDepthMinimumMeters)
	}
	c.maxDepth = c.params.DepthMaximumDistance
	if c.maxDepth <= 0 {
		c.maxDepth = unit.FromMeters(defaultDepthMaximumMeters)
	}
	if c.minDepth >= c.maxDepth {
		return fmt.Errorf("invalid depth range [%g, %g]: %w", c.minDepth, c.maxDepth, ErrorCodeInvalidFunctionParameters)
	}

	w, h := c.resolution.X, c.resolution.Y
	c.left = NewMat(w, h, MatTypeU8C4)
	c.right = NewMat(w, h, MatTypeU8C4)
	if c.params.DepthMode != DepthModeNone {
		c.depth = NewMat(w, h, MatTypeF32C1)
		c.depthView = NewMat(w, h, MatTypeU8C4)
		c.engine = newDepthEngine(c.resolution, c.params.DepthMode, c.calibration, unit, c.minDepth, c.maxDepth)
	}

	return nil
}

// Grab blocks until the next stereo pair arrives, then computes depth for it.
func (c *Camera) Grab(runtime RuntimeParameters) error {
	if c.source == nil {
		return ErrorCodeCameraNotInitialized
	}

	if err := c.source.Read(c.left, c.right); err != nil {
		return fmt.Errorf("failed to grab frame: %w", err)
	}

	c.hasDepth = false
	if c.engine != nil && runtime.EnableDepth {
		c.engine.compute(c.left, c.right, c.depth, runtime)
		renderDepth(c.depth, c.depthView, c.minDepth, c.maxDepth)
		c.hasDepth = true
	}

	c.grabbed = true
	c.frames++
	c.timestamp = time.Now()
	return nil
}

// RetrieveImage copies a view of the last grabbed frame into dst, which
// must be an 8U_C4 Mat of the session resolution.
func (c *Camera) RetrieveImage(dst *Mat, view View) error {
	src, err := c.image(view)
	if err != nil {
		return err
	}
	if err := src.copyTo(dst); err != nil {
		return fmt.Errorf("failed to retrieve %s image: %w", view, err)
	}
	return nil
}

func (c *Camera) image(view View) (*Mat, error) {
	if !c.grabbed {
		return nil, ErrorCodeNotANewFrame
	}
	switch view {
	case ViewLeft:
		return c.left, nil
	case ViewRight:
		return c.right, nil
	case ViewDepth:
		if !c.hasDepth {
			return nil, ErrorCodeDepthDisabled
		}
		return c.depthView, nil
	default:
		return nil, fmt.Errorf("unknown view %d: %w", view, ErrorCodeInvalidFunctionParameters)
	}
}

// RetrieveMeasure copies the depth map of the last grabbed frame, in
// CoordinateUnits, into a 32F_C1 Mat. Invalid pixels are NaN.
func (c *Camera) RetrieveMeasure(dst *Mat, measure Measure) error {
	if !c.grabbed {
		return ErrorCodeNotANewFrame
	}
	if measure != MeasureDepth {
		return fmt.Errorf("unknown measure %d: %w", measure, ErrorCodeInvalidFunctionParameters)
	}
	if !c.hasDepth {
		return ErrorCodeDepthDisabled
	}
	if err := c.depth.copyTo(dst); err != nil {
		return fmt.Errorf("failed to retrieve depth measure: %w", err)
	}
	return nil
}

// Resolution returns the per-eye image size.
func (c *Camera) Resolution() image.Point {
	return c.resolution
}

func (c *Camera) Calibration() CalibrationParameters {
	return c.calibration
}

// DepthRange returns the valid depth range in CoordinateUnits.
func (c *Camera) DepthRange() (minimum, maximum float64) {
	return c.minDepth, c.maxDepth
}

func (c *Camera) InitParameters() InitParameters {
	return c.params
}

// FrameCount returns the number of successful grabs.
func (c *Camera) FrameCount() uint64 {
	return c.frames
}

// Timestamp returns when the last frame was grabbed.
func (c *Camera) Timestamp() time.Time {
	return c.timestamp
}

func (c *Camera) Close() error {
	if c.source == nil {
		return nil
	}
	err := c.source.Close()
	c.source = nil
	if err != nil {
		return fmt.Errorf("failed to close camera: %w", err)
	}
	return nil
}
