package yolodet

import (
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/esimov/yolodet/model"
	"github.com/esimov/yolodet/utils"
	"go.uber.org/zap"
)

// DefaultOutputDir is where annotated images are written unless told otherwise.
const DefaultOutputDir = "results"

// DefaultTimeout bounds a single image download.
const DefaultTimeout = 30 * time.Second

var (
	// ErrNilModel is returned by New when no model handle is supplied.
	ErrNilModel = errors.New("model handle is not initialized")
	// ErrNotFound is returned when a file or directory source does not exist.
	ErrNotFound = errors.New("source not found")
	// ErrInvalidSource is returned when a source is neither a URL nor an existing path.
	ErrInvalidSource = errors.New("source not found or invalid")
	// ErrEmptyImage is returned when a source decodes to a zero-sized image.
	ErrEmptyImage = errors.New("decoded image is empty")
	// ErrCameraOpen is returned when the capture device cannot be opened.
	ErrCameraOpen = errors.New("could not open camera")
	// ErrFrameRead is returned when the capture device stops delivering frames.
	ErrFrameRead = errors.New("could not read frame")
	// ErrNoCamera is returned by DetectWebcam when Options.OpenCamera is nil.
	ErrNoCamera = errors.New("no camera backend configured")
)

// Grabber delivers camera frames.
type Grabber interface {
	Grab() (image.Image, error)
	Close() error
}

// Viewer shows annotated frames and reports key presses.
type Viewer interface {
	Show(img image.Image) error
	// Key waits up to delay milliseconds and returns the pressed key code or -1.
	Key(delay int) int
	Close() error
}

// CameraFunc opens the capture device with the given index together with a preview window.
type CameraFunc func(index int) (Grabber, Viewer, error)

// Options configures a Detector.
type Options struct {
	// Save enables writing annotated images to OutputDir.
	Save      bool
	OutputDir string
	// Recursive makes DetectDirectory descend into subdirectories.
	Recursive bool
	// Timeout bounds each URL download.
	Timeout time.Duration

	// Stdin is read when the source is "-".
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Logger     *zap.Logger
	Spinner    *utils.Spinner
	HTTPClient *http.Client
	OpenCamera CameraFunc
}

// DefaultOptions returns options that save into DefaultOutputDir and print to the process streams.
func DefaultOptions() Options {
	return Options{
		Save:      true,
		OutputDir: DefaultOutputDir,
		Timeout:   DefaultTimeout,
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}
}

// Detection is one object found in an image.
type Detection struct {
	Class      string
	ClassID    int
	Confidence float64
	Box        image.Rectangle
}

// Report describes the outcome of one processed image.
type Report struct {
	Source     string
	Detections []Detection
	// Output is the path of the annotated image, empty when nothing was saved.
	Output string
	Err    error
}

// Detector runs a model over images coming from files, URLs, directories,
// readers or a camera, printing the results and saving annotated copies.
type Detector struct {
	model  model.Model
	opts   Options
	client *http.Client
	logger *zap.Logger
}

// New returns a Detector that owns m. An empty OutputDir, a non-positive Timeout
// and nil streams or logger are replaced by their defaults. Save is used as given,
// so start from DefaultOptions to keep saving on.
func New(m model.Model, opts Options) (*Detector, error) {
	if m == nil {
		return nil, ErrNilModel
	}

	def := DefaultOptions()
	if opts.OutputDir == "" {
		opts.OutputDir = def.OutputDir
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.Stdin == nil {
		opts.Stdin = def.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = def.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = def.Stderr
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &Detector{
		model:  m,
		opts:   opts,
		client: client,
		logger: opts.Logger.Named("detector"),
	}, nil
}

// Model returns the underlying model handle.
func (d *Detector) Model() model.Model {
	return d.model
}

// Close releases the model handle.
func (d *Detector) Close() error {
	if err := d.model.Close(); err != nil {
		return fmt.Errorf("unable to release the model: %w", err)
	}
	return nil
}

func (d *Detector) printf(format string, args ...any) {
	fmt.Fprintf(d.opts.Stdout, format, args...)
}

func (d *Detector) errorf(format string, args ...any) {
	fmt.Fprintf(d.opts.Stderr, format, args...)
}
