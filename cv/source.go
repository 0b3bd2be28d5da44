package cv

import (
	"fmt"
	"image"
	"log"

	"github.com/jonas-koeritz/stereocap"
	"gocv.io/x/gocv"
)

// VideoSource reads side-by-side stereo frames (left half, right half)
// from a UVC stereo camera or a recorded video file.
type VideoSource struct {
	capture  *gocv.VideoCapture
	playback bool
	size     image.Point

	frame   gocv.Mat
	resized gocv.Mat
	bgra    gocv.Mat

	warnedSize bool
}

// OpenSource is a stereocap.SourceOpener. It plays back
// params.SVOInputFilename when set and opens device params.DeviceID
// otherwise.
func OpenSource(params stereocap.InitParameters) (stereocap.Source, error) {
	size := params.CameraResolution.Size()
	if size.X == 0 || size.Y == 0 {
		return nil, stereocap.ErrorCodeInvalidResolution
	}

	s := VideoSource{size: size}

	var err error
	if params.SVOInputFilename != "" {
		s.playback = true
		s.capture, err = gocv.VideoCaptureFile(params.SVOInputFilename)
		if err != nil || !s.capture.IsOpened() {
			closeCapture(s.capture)
			return nil, fmt.Errorf("failed to open %s: %w", params.SVOInputFilename, stereocap.ErrorCodeInvalidSVOFile)
		}
	} else {
		s.capture, err = gocv.VideoCaptureDevice(params.DeviceID)
		if err != nil || !s.capture.IsOpened() {
			closeCapture(s.capture)
			return nil, fmt.Errorf("failed to open video device %d: %w", params.DeviceID, stereocap.ErrorCodeCameraNotDetected)
		}
		s.capture.Set(gocv.VideoCaptureFrameWidth, float64(2*size.X))
		s.capture.Set(gocv.VideoCaptureFrameHeight, float64(size.Y))
		if params.CameraFPS > 0 {
			s.capture.Set(gocv.VideoCaptureFPS, float64(params.CameraFPS))
		}
	}

	log.Printf("Opened stereo source: %dx%d @ %.2f fps (per eye %dx%d)",
		int(s.capture.Get(gocv.VideoCaptureFrameWidth)),
		int(s.capture.Get(gocv.VideoCaptureFrameHeight)),
		s.capture.Get(gocv.VideoCaptureFPS),
		size.X, size.Y)

	s.frame = gocv.NewMat()
	s.resized = gocv.NewMat()
	s.bgra = gocv.NewMat()

	return &s, nil
}

func closeCapture(c *gocv.VideoCapture) {
	if c != nil {
		c.Close()
	}
}

func (s *VideoSource) Read(left, right *stereocap.Mat) error {
	if left.Size() != s.size || right.Size() != s.size || left.Type() != stereocap.MatTypeU8C4 || right.Type() != stereocap.MatTypeU8C4 {
		return stereocap.ErrorCodeInvalidFunctionParameters
	}

	if ok := s.capture.Read(&s.frame); !ok || s.frame.Empty() {
		if s.playback {
			return stereocap.ErrorCodeEndOfSVOFileReached
		}
		return stereocap.ErrorCodeFailure
	}

	src := s.frame
	want := image.Pt(2*s.size.X, s.size.Y)
	if s.frame.Cols() != want.X || s.frame.Rows() != want.Y {
		if !s.warnedSize {
			log.Printf("Source delivers %dx%d frames, resizing to %dx%d", s.frame.Cols(), s.frame.Rows(), want.X, want.Y)
			s.warnedSize = true
		}
		gocv.Resize(s.frame, &s.resized, want, 0, 0, gocv.InterpolationLinear)
		src = s.resized
	}

	switch src.Channels() {
	case 1:
		gocv.CvtColor(src, &s.bgra, gocv.ColorGrayToBGRA)
	case 3:
		gocv.CvtColor(src, &s.bgra, gocv.ColorBGRToBGRA)
	case 4:
		src.CopyTo(&s.bgra)
	default:
		return fmt.Errorf("unsupported frame with %d channels: %w", src.Channels(), stereocap.ErrorCodeFailure)
	}

	data, err := s.bgra.DataPtrUint8()
	if err != nil {
		return fmt.Errorf("failed to access frame data: %w", err)
	}

	// Split the side-by-side frame into the two eyes
	rowBytes := s.size.X * 4
	stride := want.X * 4
	l, r := left.Bytes(), right.Bytes()
	for y := 0; y < s.size.Y; y++ {
		row := data[y*stride : (y+1)*stride]
		copy(l[y*left.Stride():], row[:rowBytes])
		copy(r[y*right.Stride():], row[rowBytes:])
	}

	return nil
}

func (s *VideoSource) Close() error {
	s.frame.Close()
	s.resized.Close()
	s.bgra.Close()
	return s.capture.Close()
}
