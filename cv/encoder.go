package cv

import (
	"fmt"
	"image/png"

	"github.com/jonas-koeritz/stereocap"
	"gocv.io/x/gocv"
)

// Encoder writes views with OpenCV's imwrite. The format follows the file
// extension; BGRA views keep their alpha channel in PNG output.
type Encoder struct {
	// OpenCV PNG compression, 0 (none) to 9 (smallest).
	PNGCompression int
}

// NewEncoder maps an image/png compression level onto OpenCV's scale.
func NewEncoder(level png.CompressionLevel) Encoder {
	switch level {
	case png.NoCompression:
		return Encoder{PNGCompression: 0}
	case png.BestSpeed:
		return Encoder{PNGCompression: 1}
	case png.BestCompression:
		return Encoder{PNGCompression: 9}
	default:
		return Encoder{PNGCompression: 3}
	}
}

func (e Encoder) Encode(path string, img *stereocap.ImageView) error {
	mat, err := ToMat(img)
	if err != nil {
		return err
	}
	defer mat.Close()

	if ok := gocv.IMWriteWithParams(path, mat, []int{int(gocv.IMWritePngCompression), e.PNGCompression}); !ok {
		return fmt.Errorf("imwrite refused %s", path)
	}
	return nil
}
