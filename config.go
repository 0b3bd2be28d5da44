package stereocap

import (
	"errors"
	"flag"
	"fmt"
	"image/png"
	"io"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	EncoderPNG    = "png"
	EncoderOpenCV = "opencv"
)

// Config is the capture program's configuration. Environment variables
// provide defaults, flags override them and the first positional argument
// names a recording to play back.
type Config struct {
	Resolution  Resolution  `env:"STEREOCAP_RESOLUTION" envDefault:"HD1080"`
	DepthMode   DepthMode   `env:"STEREOCAP_DEPTH_MODE" envDefault:"PERFORMANCE"`
	Unit        Unit        `env:"STEREOCAP_UNIT" envDefault:"METER"`
	SensingMode SensingMode `env:"STEREOCAP_SENSING_MODE" envDefault:"STANDARD"`
	Confidence  int         `env:"STEREOCAP_CONFIDENCE" envDefault:"100"`
	DepthMin    float64     `env:"STEREOCAP_DEPTH_MIN"`
	DepthMax    float64     `env:"STEREOCAP_DEPTH_MAX"`
	Device      int         `env:"STEREOCAP_DEVICE" envDefault:"0"`
	FPS         int         `env:"STEREOCAP_FPS" envDefault:"0"`

	OutputDir      string        `env:"STEREOCAP_OUTPUT_DIR" envDefault:"./images"`
	Resume         bool          `env:"STEREOCAP_RESUME" envDefault:"false"`
	Encoder        string        `env:"STEREOCAP_ENCODER" envDefault:"png"`
	PNGCompression int           `env:"STEREOCAP_PNG_COMPRESSION" envDefault:"0"`
	Manifest       string        `env:"STEREOCAP_MANIFEST"`
	Headless       bool          `env:"STEREOCAP_HEADLESS" envDefault:"false"`
	WaitKey        time.Duration `env:"STEREOCAP_WAIT_KEY" envDefault:"10ms"`

	Input string
}

// LoadConfig reads the environment, then parses args (without the program
// name) on top of it.
func LoadConfig(args []string, output io.Writer) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("capture", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: capture [flags] [input-file]\n\nWithout input-file frames are captured from the live device.\n\n")
		fs.PrintDefaults()
	}

	fs.TextVar(&cfg.Resolution, "resolution", cfg.Resolution, "camera resolution (HD2K, HD1080, HD720, VGA)")
	fs.TextVar(&cfg.DepthMode, "depth-mode", cfg.DepthMode, "depth mode (NONE, PERFORMANCE, QUALITY, ULTRA)")
	fs.TextVar(&cfg.Unit, "unit", cfg.Unit, "depth unit (MILLIMETER, CENTIMETER, METER, INCH, FOOT)")
	fs.TextVar(&cfg.SensingMode, "sensing-mode", cfg.SensingMode, "sensing mode (STANDARD, FILL)")
	fs.IntVar(&cfg.Confidence, "confidence", cfg.Confidence, "depth confidence threshold, 1-100")
	fs.Float64Var(&cfg.DepthMin, "depth-min", cfg.DepthMin, "minimum depth in the selected unit, 0 for 0.3 m")
	fs.Float64Var(&cfg.DepthMax, "depth-max", cfg.DepthMax, "maximum depth in the selected unit, 0 for 20 m")
	fs.IntVar(&cfg.Device, "device", cfg.Device, "video device index of the camera")
	fs.IntVar(&cfg.FPS, "fps", cfg.FPS, "requested frame rate, 0 for the device default")
	fs.StringVar(&cfg.OutputDir, "output", cfg.OutputDir, "directory receiving left/, right/ and depth/")
	fs.BoolVar(&cfg.Resume, "resume", cfg.Resume, "continue numbering after existing files instead of overwriting them")
	fs.StringVar(&cfg.Encoder, "encoder", cfg.Encoder, "image encoder (png, opencv)")
	fs.IntVar(&cfg.PNGCompression, "png-compression", cfg.PNGCompression, "PNG compression: 0 default, -1 none, -2 best speed, -3 best compression")
	fs.StringVar(&cfg.Manifest, "manifest", cfg.Manifest, "SQLite file indexing every saved frame")
	fs.BoolVar(&cfg.Headless, "headless", cfg.Headless, "do not open preview windows")
	fs.DurationVar(&cfg.WaitKey, "wait-key", cfg.WaitKey, "keyboard poll timeout per frame")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 1 {
		return Config{}, fmt.Errorf("expected at most one input file, got %d arguments", fs.NArg())
	}
	cfg.Input = fs.Arg(0)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Encoder != EncoderPNG && c.Encoder != EncoderOpenCV {
		errs = append(errs, fmt.Errorf("unknown encoder %q", c.Encoder))
	}
	if c.Confidence < 1 || c.Confidence > 100 {
		errs = append(errs, fmt.Errorf("confidence %d out of range 1-100", c.Confidence))
	}
	if c.PNGCompression > 0 || c.PNGCompression < int(png.BestCompression) {
		errs = append(errs, fmt.Errorf("unknown PNG compression level %d", c.PNGCompression))
	}
	if c.WaitKey < time.Millisecond {
		errs = append(errs, fmt.Errorf("wait-key %s must be at least 1ms", c.WaitKey))
	}
	if minimum, maximum := c.depthRange(); c.DepthMin < 0 || c.DepthMax < 0 || minimum >= maximum {
		errs = append(errs, fmt.Errorf("invalid depth range [%g, %g] %s", minimum, maximum, c.Unit))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output directory must not be empty"))
	}
	return errors.Join(errs...)
}

// depthRange resolves unset bounds to the defaults the camera applies.
func (c Config) depthRange() (minimum, maximum float64) {
	minimum, maximum = c.DepthMin, c.DepthMax
	if minimum <= 0 {
		minimum = c.Unit.FromMeters(defaultDepthMinimumMeters)
	}
	if maximum <= 0 {
		maximum = c.Unit.FromMeters(defaultDepthMaximumMeters)
	}
	return minimum, maximum
}

func (c Config) InitParameters() InitParameters {
	return InitParameters{
		CameraResolution:     c.Resolution,
		CameraFPS:            c.FPS,
		DepthMode:            c.DepthMode,
		CoordinateUnits:      c.Unit,
		DepthMinimumDistance: c.DepthMin,
		DepthMaximumDistance: c.DepthMax,
		SVOInputFilename:     c.Input,
		DeviceID:             c.Device,
	}
}

func (c Config) RuntimeParameters() RuntimeParameters {
	return RuntimeParameters{
		SensingMode:         c.SensingMode,
		EnableDepth:         c.DepthMode != DepthModeNone,
		ConfidenceThreshold: c.Confidence,
	}
}

func (c Config) PNGEncoder() PNGEncoder {
	return PNGEncoder{CompressionLevel: png.CompressionLevel(c.PNGCompression)}
}
