package stereocap

import (
	"fmt"
	"image"
	"strings"
)

type Resolution uint8

const (
	ResolutionHD2K Resolution = iota
	ResolutionHD1080
	ResolutionHD720
	ResolutionVGA
)

var resolutionNames = map[Resolution]string{
	ResolutionHD2K:   "HD2K",
	ResolutionHD1080: "HD1080",
	ResolutionHD720:  "HD720",
	ResolutionVGA:    "VGA",
}

// Per-eye image sizes. A side-by-side frame is twice as wide.
var resolutionSizes = map[Resolution]image.Point{
	ResolutionHD2K:   {2208, 1242},
	ResolutionHD1080: {1920, 1080},
	ResolutionHD720:  {1280, 720},
	ResolutionVGA:    {672, 376},
}

// Nominal focal lengths in pixels, used when no calibration is supplied.
var resolutionFocal = map[Resolution]float64{
	ResolutionHD2K:   1400,
	ResolutionHD1080: 1400,
	ResolutionHD720:  700,
	ResolutionVGA:    350,
}

func (r Resolution) Size() image.Point {
	return resolutionSizes[r]
}

func (r Resolution) String() string {
	return enumString(resolutionNames, r)
}

func (r Resolution) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Resolution) UnmarshalText(text []byte) error {
	return enumParse(resolutionNames, r, "resolution", text)
}

type DepthMode uint8

const (
	DepthModeNone DepthMode = iota
	DepthModePerformance
	DepthModeQuality
	DepthModeUltra
)

var depthModeNames = map[DepthMode]string{
	DepthModeNone:        "NONE",
	DepthModePerformance: "PERFORMANCE",
	DepthModeQuality:     "QUALITY",
	DepthModeUltra:       "ULTRA",
}

type blockMatching struct {
	downscale int
	blockSize int
}

var depthModeMatching = map[DepthMode]blockMatching{
	DepthModePerformance: {downscale: 4, blockSize: 5},
	DepthModeQuality:     {downscale: 2, blockSize: 7},
	DepthModeUltra:       {downscale: 1, blockSize: 9},
}

func (d DepthMode) String() string {
	return enumString(depthModeNames, d)
}

func (d DepthMode) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *DepthMode) UnmarshalText(text []byte) error {
	return enumParse(depthModeNames, d, "depth mode", text)
}

type Unit uint8

const (
	UnitMillimeter Unit = iota
	UnitCentimeter
	UnitMeter
	UnitInch
	UnitFoot
)

var unitNames = map[Unit]string{
	UnitMillimeter: "MILLIMETER",
	UnitCentimeter: "CENTIMETER",
	UnitMeter:      "METER",
	UnitInch:       "INCH",
	UnitFoot:       "FOOT",
}

var unitsPerMeter = map[Unit]float64{
	UnitMillimeter: 1000,
	UnitCentimeter: 100,
	UnitMeter:      1,
	UnitInch:       39.37007874,
	UnitFoot:       3.280839895,
}

// FromMeters converts a distance in meters into u.
func (u Unit) FromMeters(m float64) float64 {
	return m * unitsPerMeter[u]
}

func (u Unit) String() string {
	return enumString(unitNames, u)
}

func (u Unit) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *Unit) UnmarshalText(text []byte) error {
	return enumParse(unitNames, u, "unit", text)
}

type SensingMode uint8

const (
	SensingModeStandard SensingMode = iota
	SensingModeFill
)

var sensingModeNames = map[SensingMode]string{
	SensingModeStandard: "STANDARD",
	SensingModeFill:     "FILL",
}

func (s SensingMode) String() string {
	return enumString(sensingModeNames, s)
}

func (s SensingMode) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SensingMode) UnmarshalText(text []byte) error {
	return enumParse(sensingModeNames, s, "sensing mode", text)
}

// View selects which image RetrieveImage copies out of the session.
type View uint8

const (
	ViewLeft View = iota
	ViewRight
	ViewDepth
)

var viewNames = map[View]string{
	ViewLeft:  "left",
	ViewRight: "right",
	ViewDepth: "depth",
}

func (v View) String() string {
	return enumString(viewNames, v)
}

type Measure uint8

const (
	MeasureDepth Measure = iota
)

type MatType uint8

const (
	MatTypeU8C1 MatType = iota
	MatTypeU8C4
	MatTypeF32C1
)

var matTypeNames = map[MatType]string{
	MatTypeU8C1:  "8U_C1",
	MatTypeU8C4:  "8U_C4",
	MatTypeF32C1: "32F_C1",
}

var matTypeBytes = map[MatType]int{
	MatTypeU8C1:  1,
	MatTypeU8C4:  4,
	MatTypeF32C1: 4,
}

// PixelSize returns the number of bytes per pixel.
func (t MatType) PixelSize() int {
	return matTypeBytes[t]
}

func (t MatType) String() string {
	return enumString(matTypeNames, t)
}

func enumString[T ~uint8](names map[T]string, v T) string {
	if name, ok := names[v]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(v))
}

func enumParse[T ~uint8](names map[T]string, dst *T, kind string, text []byte) error {
	for v, name := range names {
		if strings.EqualFold(name, string(text)) {
			*dst = v
			return nil
		}
	}
	return fmt.Errorf("unknown %s %q", kind, text)
}
