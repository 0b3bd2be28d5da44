package stereocap

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"unsafe"
)

// Mat is a fixed-size pixel buffer. Its dimensions and type are set by
// NewMat and never change afterwards.
type Mat struct {
	width   int
	height  int
	stride  int
	matType MatType
	data    []byte
}

func NewMat(width, height int, matType MatType) *Mat {
	if width <= 0 || height <= 0 {
		return &Mat{matType: matType}
	}
	stride := width * matType.PixelSize()

	var data []byte
	if matType == MatTypeF32C1 {
		// Back float mats with a []float32 so Float32s never sees unaligned memory
		backing := make([]float32, width*height)
		data = unsafe.Slice((*byte)(unsafe.Pointer(&backing[0])), len(backing)*4)
	} else {
		data = make([]byte, stride*height)
	}

	return &Mat{
		width:   width,
		height:  height,
		stride:  stride,
		matType: matType,
		data:    data,
	}
}

func (m *Mat) Width() int { return m.width }
func (m *Mat) Height() int { return m.height }
func (m *Mat) Stride() int { return m.stride }
func (m *Mat) Type() MatType { return m.matType }
func (m *Mat) Size() image.Point { return image.Pt(m.width, m.height) }

// IsInit reports whether the Mat owns any memory.
func (m *Mat) IsInit() bool {
	return m != nil && len(m.data) > 0
}

// Bytes returns the Mat's memory. The slice aliases the Mat.
func (m *Mat) Bytes() []byte {
	return m.data
}

// Float32s returns the memory of a 32F_C1 Mat as floats. The slice aliases the Mat.
func (m *Mat) Float32s() ([]float32, error) {
	if m.matType != MatTypeF32C1 {
		return nil, fmt.Errorf("invalid mat type %s, expected %s", m.matType, MatTypeF32C1)
	}
	if !m.IsInit() {
		return nil, nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&m.data[0])), m.width*m.height), nil
}

func (m *Mat) sameLayout(o *Mat) bool {
	return m.width == o.width && m.height == o.height && m.matType == o.matType && m.stride == o.stride
}

// copyTo copies m into dst. Both must share the same layout.
func (m *Mat) copyTo(dst *Mat) error {
	if !dst.IsInit() {
		return ErrorCodeInvalidFunctionParameters
	}
	if !m.sameLayout(dst) {
		return fmt.Errorf("failed to copy %dx%d %s into %dx%d %s: %w",
			m.width, m.height, m.matType, dst.width, dst.height, dst.matType, ErrorCodeInvalidResolution)
	}
	copy(dst.data, m.data)
	return nil
}

// View returns a non-owning image over the Mat's memory. Writes to the Mat
// are visible through the view, so it always shows the last retrieved frame.
func (m *Mat) View() *ImageView {
	return &ImageView{
		Pix:    m.data,
		Stride: m.stride,
		Rect:   image.Rect(0, 0, m.width, m.height),
		Type:   m.matType,
	}
}

// ImageView adapts a Mat to image.Image without copying. 8U_C4 pixels are
// stored in BGRA order, 8U_C1 as gray, 32F_C1 as native floats.
type ImageView struct {
	Pix    []byte
	Stride int
	Rect   image.Rectangle
	Type   MatType
}

func (v *ImageView) ColorModel() color.Model {
	if v.Type == MatTypeU8C4 {
		return color.NRGBAModel
	}
	return color.GrayModel
}

func (v *ImageView) Bounds() image.Rectangle {
	return v.Rect
}

func (v *ImageView) PixOffset(x, y int) int {
	return (y-v.Rect.Min.Y)*v.Stride + (x-v.Rect.Min.X)*v.Type.PixelSize()
}

func (v *ImageView) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(v.Rect)) {
		if v.Type == MatTypeU8C4 {
			return color.NRGBA{}
		}
		return color.Gray{}
	}

	i := v.PixOffset(x, y)
	switch v.Type {
	case MatTypeU8C4:
		p := v.Pix[i : i+4 : i+4]
		return color.NRGBA{R: p[2], G: p[1], B: p[0], A: p[3]}
	case MatTypeF32C1:
		f := *(*float32)(unsafe.Pointer(&v.Pix[i]))
		switch {
		case math.IsNaN(float64(f)) || f < 0:
			return color.Gray{}
		case f > 255:
			return color.Gray{Y: 255}
		}
		return color.Gray{Y: uint8(f)}
	default:
		return color.Gray{Y: v.Pix[i]}
	}
}
