package cv

import (
	"errors"
	"fmt"

	"github.com/jonas-koeritz/stereocap"
	"gocv.io/x/gocv"
)

var matTypes = map[stereocap.MatType]gocv.MatType{
	stereocap.MatTypeU8C1:  gocv.MatTypeCV8UC1,
	stereocap.MatTypeU8C4:  gocv.MatTypeCV8UC4,
	stereocap.MatTypeF32C1: gocv.MatTypeCV32FC1,
}

// ToMat wraps a view in a gocv.Mat that shares the view's memory. The Mat
// must be closed before the underlying stereocap.Mat is written again.
func ToMat(img *stereocap.ImageView) (gocv.Mat, error) {
	matType, ok := matTypes[img.Type]
	if !ok {
		return gocv.Mat{}, fmt.Errorf("unsupported mat type %s", img.Type)
	}

	size := img.Rect.Size()
	if size.X <= 0 || size.Y <= 0 {
		return gocv.Mat{}, errors.New("empty view")
	}
	if img.Stride != size.X*img.Type.PixelSize() {
		return gocv.Mat{}, fmt.Errorf("view with stride %d is not continuous", img.Stride)
	}

	return gocv.NewMatFromBytes(size.Y, size.X, matType, img.Pix[:img.Stride*size.Y])
}
