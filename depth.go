package stereocap

import (
	"image"
	"math"
)

// CalibrationParameters describes a rectified stereo pair. Focal lengths
// and principal point are in pixels at the session resolution, the
// baseline is in meters.
type CalibrationParameters struct {
	Fx       float64
	Fy       float64
	Cx       float64
	Cy       float64
	Baseline float64
}

const defaultBaseline = 0.12

func defaultCalibration(r Resolution) CalibrationParameters {
	size := r.Size()
	return CalibrationParameters{
		Fx:       resolutionFocal[r],
		Fy:       resolutionFocal[r],
		Cx:       float64(size.X) / 2,
		Cy:       float64(size.Y) / 2,
		Baseline: defaultBaseline,
	}
}

// depthEngine turns a rectified left/right pair into a depth map by SAD
// block matching on a downscaled luma image. All buffers are sized once.
type depthEngine struct {
	width, height int
	scale         int
	block         int
	lw, lh        int
	maxDisparity  int

	calibration CalibrationParameters
	unit        Unit
	minDepth    float64
	maxDepth    float64

	left, right []int32
	diff        []int32
	integral    []int32

	best, second  []int32
	bestD         []int32
	before, after []int32
	prev          []int32
	disparity     []float32
}

func newDepthEngine(size image.Point, mode DepthMode, calibration CalibrationParameters, unit Unit, minDepth, maxDepth float64) *depthEngine {
	matching := depthModeMatching[mode]
	e := &depthEngine{
		width:       size.X,
		height:      size.Y,
		scale:       matching.downscale,
		block:       matching.blockSize,
		calibration: calibration,
		unit:        unit,
		minDepth:    minDepth,
		maxDepth:    maxDepth,
	}
	e.lw = e.width / e.scale
	e.lh = e.height / e.scale

	// The closest valid depth bounds the disparity search
	minMeters := minDepth / unit.FromMeters(1)
	maxDisparity := int(math.Ceil(calibration.Fx*calibration.Baseline/minMeters/float64(e.scale)-1e-9)) + 1
	if maxDisparity > e.lw/2 {
		maxDisparity = e.lw / 2
	}
	if maxDisparity < 2 {
		maxDisparity = 2
	}
	e.maxDisparity = maxDisparity

	n := e.lw * e.lh
	e.left = make([]int32, n)
	e.right = make([]int32, n)
	e.diff = make([]int32, n)
	e.integral = make([]int32, (e.lw+1)*(e.lh+1))
	e.best = make([]int32, n)
	e.second = make([]int32, n)
	e.bestD = make([]int32, n)
	e.before = make([]int32, n)
	e.after = make([]int32, n)
	e.prev = make([]int32, n)
	e.disparity = make([]float32, n)
	return e
}

// compute fills depth (32F_C1, full resolution, in the session unit) from
// the BGRA left and right buffers. Pixels without a confident match are NaN.
func (e *depthEngine) compute(left, right, depth *Mat, runtime RuntimeParameters) {
	e.luma(left, e.left)
	e.luma(right, e.right)
	e.match(runtime.ConfidenceThreshold)
	if runtime.SensingMode == SensingModeFill {
		e.fill()
	}

	values, _ := depth.Float32s()
	focalBaseline := e.calibration.Fx * e.calibration.Baseline
	for y := 0; y < e.height; y++ {
		ly := min(y/e.scale, e.lh-1)
		for x := 0; x < e.width; x++ {
			lx := min(x/e.scale, e.lw-1)
			d := e.disparity[ly*e.lw+lx]
			values[y*e.width+x] = e.toDepth(d, focalBaseline)
		}
	}
}

func (e *depthEngine) toDepth(disparity float32, focalBaseline float64) float32 {
	if math.IsNaN(float64(disparity)) || disparity <= 0 {
		return float32(math.NaN())
	}
	meters := focalBaseline / (float64(disparity) * float64(e.scale))
	z := e.unit.FromMeters(meters)
	if z < e.minDepth || z > e.maxDepth {
		return float32(math.NaN())
	}
	return float32(z)
}

func (e *depthEngine) luma(src *Mat, dst []int32) {
	pix := src.Bytes()
	area := int32(e.scale * e.scale)
	for ly := 0; ly < e.lh; ly++ {
		for lx := 0; lx < e.lw; lx++ {
			var sum int32
			for dy := 0; dy < e.scale; dy++ {
				row := (ly*e.scale + dy) * src.Stride()
				for dx := 0; dx < e.scale; dx++ {
					i := row + (lx*e.scale+dx)*4
					sum += (int32(pix[i])*114 + int32(pix[i+1])*587 + int32(pix[i+2])*299) / 1000
				}
			}
			dst[ly*e.lw+lx] = sum / area
		}
	}
}

func (e *depthEngine) match(confidenceThreshold int) {
	const unmatched = math.MaxInt32
	n := e.lw * e.lh
	for i := 0; i < n; i++ {
		e.best[i] = unmatched
		e.second[i] = unmatched
		e.bestD[i] = -2
		e.before[i] = unmatched
		e.after[i] = unmatched
		e.prev[i] = unmatched
	}

	half := e.block / 2
	for d := 0; d < e.maxDisparity; d++ {
		for y := 0; y < e.lh; y++ {
			for x := 0; x < e.lw; x++ {
				i := y*e.lw + x
				if x < d {
					e.diff[i] = 255
					continue
				}
				v := e.left[i] - e.right[i-d]
				if v < 0 {
					v = -v
				}
				e.diff[i] = v
			}
		}
		e.integrate()

		for y := half; y < e.lh-half; y++ {
			for x := half + d; x < e.lw-half; x++ {
				i := y*e.lw + x
				c := e.boxSum(x-half, y-half, x+half+1, y+half+1)

				bd := e.bestD[i]
				if int32(d) == bd+1 {
					e.after[i] = c
				}
				if c < e.best[i] {
					if int32(d)-bd > 1 && e.best[i] < e.second[i] {
						e.second[i] = e.best[i]
					}
					e.before[i] = e.prev[i]
					e.after[i] = unmatched
					e.best[i] = c
					e.bestD[i] = int32(d)
				} else if int32(d)-bd > 1 && c < e.second[i] {
					e.second[i] = c
				}
				e.prev[i] = c
			}
		}
	}

	margin := float64(100-clamp(confidenceThreshold, 0, 100)) / 100
	nan := float32(math.NaN())
	for i := 0; i < n; i++ {
		bd := e.bestD[i]
		if bd <= 0 || e.best[i] == unmatched {
			e.disparity[i] = nan
			continue
		}
		if margin > 0 && float64(e.second[i]) <= float64(e.best[i])*(1+margin) {
			e.disparity[i] = nan
			continue
		}
		e.disparity[i] = float32(bd) + subPixel(e.before[i], e.best[i], e.after[i])
	}
}

// subPixel fits a parabola through the costs around the best disparity.
func subPixel(before, best, after int32) float32 {
	if before == math.MaxInt32 || after == math.MaxInt32 {
		return 0
	}
	denom := float64(before) - 2*float64(best) + float64(after)
	if denom <= 0 {
		return 0
	}
	return float32((float64(before) - float64(after)) / (2 * denom))
}

func (e *depthEngine) integrate() {
	stride := e.lw + 1
	for y := 0; y < e.lh; y++ {
		var row int32
		for x := 0; x < e.lw; x++ {
			row += e.diff[y*e.lw+x]
			e.integral[(y+1)*stride+x+1] = e.integral[y*stride+x+1] + row
		}
	}
}

func (e *depthEngine) boxSum(x0, y0, x1, y1 int) int32 {
	stride := e.lw + 1
	return e.integral[y1*stride+x1] - e.integral[y0*stride+x1] - e.integral[y1*stride+x0] + e.integral[y0*stride+x0]
}

// fill replaces invalid disparities with the previous valid one on the same
// row. Leading gaps take the first valid value.
func (e *depthEngine) fill() {
	for y := 0; y < e.lh; y++ {
		row := e.disparity[y*e.lw : (y+1)*e.lw]
		last := float32(math.NaN())
		for x := range row {
			if math.IsNaN(float64(row[x])) {
				row[x] = last
			} else {
				last = row[x]
			}
		}
		last = float32(math.NaN())
		for x := len(row) - 1; x >= 0; x-- {
			if math.IsNaN(float64(row[x])) {
				row[x] = last
			} else {
				last = row[x]
			}
		}
	}
}

// renderDepth draws depth as a BGRA grayscale image, near is bright and
// invalid pixels are black.
func renderDepth(depth, dst *Mat, minDepth, maxDepth float64) {
	values, _ := depth.Float32s()
	pix := dst.Bytes()
	span := maxDepth - minDepth
	for y := 0; y < depth.Height(); y++ {
		for x := 0; x < depth.Width(); x++ {
			z := float64(values[y*depth.Width()+x])
			var v uint8
			if !math.IsNaN(z) && span > 0 {
				v = uint8(clamp(int(math.Round(255*(1-(z-minDepth)/span))), 0, 255))
			}
			i := y*dst.Stride() + x*4
			pix[i], pix[i+1], pix[i+2], pix[i+3] = v, v, v, 0xff
		}
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
