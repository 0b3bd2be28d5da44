package stereocap

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DepthStats summarizes the valid pixels of a depth map.
type DepthStats struct {
	Valid  int
	Total  int
	Min    float64
	Max    float64
	Mean   float64
	Median float64
	StdDev float64
}

func (s DepthStats) String() string {
	if s.Valid == 0 {
		return fmt.Sprintf("no valid depth (0/%d samples)", s.Total)
	}
	return fmt.Sprintf("%d/%d samples, min %.3f, max %.3f, mean %.3f, median %.3f", s.Valid, s.Total, s.Min, s.Max, s.Mean, s.Median)
}

// DepthSampler computes DepthStats on every step-th pixel in both
// directions, reusing its sample buffer between frames.
type DepthSampler struct {
	step    int
	samples []float64
}

func NewDepthSampler(step int) *DepthSampler {
	return &DepthSampler{step: max(step, 1)}
}

func (s *DepthSampler) Sample(depth *Mat) (DepthStats, error) {
	values, err := depth.Float32s()
	if err != nil {
		return DepthStats{}, err
	}

	var result DepthStats
	s.samples = s.samples[:0]
	w := depth.Width()
	for y := 0; y < depth.Height(); y += s.step {
		for x := 0; x < w; x += s.step {
			result.Total++
			v := float64(values[y*w+x])
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			s.samples = append(s.samples, v)
		}
	}

	result.Valid = len(s.samples)
	if result.Valid == 0 {
		return result, nil
	}

	sort.Float64s(s.samples)
	result.Min = floats.Min(s.samples)
	result.Max = floats.Max(s.samples)
	result.Mean, result.StdDev = stat.MeanStdDev(s.samples, nil)
	result.Median = stat.Quantile(0.5, stat.Empirical, s.samples, nil)
	if result.Valid == 1 {
		result.StdDev = 0
	}
	return result, nil
}
