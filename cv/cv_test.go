package cv

import (
	"image"
	"image/png"
	"testing"

	"github.com/jonas-koeritz/stereocap"
	"github.com/stretchr/testify/assert"
)

func TestNewEncoderCompression(t *testing.T) {
	assert.Equal(t, 0, NewEncoder(png.NoCompression).PNGCompression)
	assert.Equal(t, 1, NewEncoder(png.BestSpeed).PNGCompression)
	assert.Equal(t, 9, NewEncoder(png.BestCompression).PNGCompression)
	assert.Equal(t, 3, NewEncoder(png.DefaultCompression).PNGCompression)
}

func TestToMatRejectsUnsupportedViews(t *testing.T) {
	view := stereocap.NewMat(4, 4, stereocap.MatTypeU8C4).View()

	cropped := *view
	cropped.Rect = image.Rect(0, 0, 2, 4)
	_, err := ToMat(&cropped)
	assert.Error(t, err)

	empty := *view
	empty.Rect = image.Rectangle{}
	_, err = ToMat(&empty)
	assert.Error(t, err)

	unknown := *view
	unknown.Type = stereocap.MatType(99)
	_, err = ToMat(&unknown)
	assert.Error(t, err)
}

func TestOpenSourceRejectsUnknownResolution(t *testing.T) {
	_, err := OpenSource(stereocap.InitParameters{CameraResolution: stereocap.Resolution(42)})
	assert.ErrorIs(t, err, stereocap.ErrorCodeInvalidResolution)
}
