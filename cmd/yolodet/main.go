package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/esimov/yolodet"
	"github.com/esimov/yolodet/camera"
	"github.com/esimov/yolodet/config"
	"github.com/esimov/yolodet/model"
	"github.com/esimov/yolodet/model/face"
	"github.com/esimov/yolodet/model/yolo"
	"github.com/esimov/yolodet/utils"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/term"
)

const HelpBanner = `
┬ ┬┌─┐┬  ┌─┐┌┬┐┌─┐┌┬┐
└┬┘│ ││  │ │ ││├┤  │
 ┴ └─┘┴─┘└─┘─┴┘└─┘ ┴

Object detection over files, URLs, directories and webcams.
`

// webcamSource is the --source value that selects the camera.
const webcamSource = "webcam"

// windowTitle is the title of the live preview window.
const windowTitle = "YOLOv8 Detection"

// Version indicates the current build version.
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(config.Load())
	if err := app.RunContext(ctx, expandURLs(os.Args)); err != nil {
		stop()
		os.Exit(1)
	}
}

// newApp builds the command line application; cfg provides the flag defaults.
func newApp(cfg *config.Config) *cli.App {
	return &cli.App{
		Name:      "yolodet",
		Usage:     "detect objects in images from files, URLs, directories or a webcam",
		UsageText: "yolodet [options] [url ...]",
		Version:   Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "model",
				Value: cfg.ModelPath,
				Usage: "path to the YOLOv8 ONNX model, or to a pigo cascade file for face detection",
			},
			&cli.StringFlag{
				Name:  "labels",
				Value: cfg.LabelsPath,
				Usage: "optional class names file, one per line (defaults to the COCO classes)",
			},
			&cli.StringFlag{
				Name:  "source",
				Usage: "source: file path, URL, directory, '-' for stdin or 'webcam'",
			},
			&cli.StringSliceFlag{
				Name:  "urls",
				Usage: "list of image URLs; remaining arguments are appended",
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "directory containing images",
			},
			&cli.BoolFlag{
				Name:  "webcam",
				Usage: "use webcam",
			},
			&cli.IntFlag{
				Name:  "camera-index",
				Value: cfg.CameraIndex,
				Usage: "camera index for webcam",
			},
			&cli.StringFlag{
				Name:  "output-dir",
				Value: cfg.OutputDir,
				Usage: "output directory for results",
			},
			&cli.BoolFlag{
				Name:  "no-save",
				Value: !cfg.Save,
				Usage: "don't save results",
			},
			&cli.BoolFlag{
				Name:  "recursive",
				Value: cfg.Recursive,
				Usage: "descend into subdirectories when scanning a directory",
			},
			&cli.Float64Flag{
				Name:  "conf",
				Value: cfg.Confidence,
				Usage: "confidence threshold",
			},
			&cli.Float64Flag{
				Name:  "nms",
				Value: cfg.NMS,
				Usage: "non-maximum suppression IoU threshold",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: cfg.Timeout,
				Usage: "timeout of a single image download",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Value: cfg.Debug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if term.IsTerminal(int(os.Stderr.Fd())) {
				fmt.Fprint(c.App.ErrWriter, HelpBanner)
			}
			return nil
		},
		Action: run,
	}
}

// run is the main action: it loads the model, resolves the request and dispatches it.
func run(c *cli.Context) error {
	req := requestFromContext(c)

	settings := &config.Config{
		ModelPath:   req.model,
		CameraIndex: req.cameraIndex,
		Confidence:  c.Float64("conf"),
		NMS:         c.Float64("nms"),
		Timeout:     c.Duration("timeout"),
	}
	if err := settings.Validate(); err != nil {
		fmt.Fprintln(c.App.ErrWriter, utils.DecorateText(err.Error(), utils.ErrorMessage))
		return err
	}

	logger := utils.NewLogger(c.Bool("debug"))
	defer logger.Sync()

	stdout := c.App.Writer
	stderr := c.App.ErrWriter

	fmt.Fprintf(stdout, "Loading YOLOv8 model: %s\n", req.model)
	m, err := loadModel(req.model, c.String("labels"), settings, logger)
	if err != nil {
		fmt.Fprintln(stderr, utils.DecorateText(fmt.Sprintf("Error: unable to load the model: %v", err), utils.ErrorMessage))
		return err
	}
	fmt.Fprintln(stdout, "Model loaded successfully!")

	var spinner *utils.Spinner
	if term.IsTerminal(int(os.Stderr.Fd())) {
		spinnerText := fmt.Sprintf("%s %s",
			utils.DecorateText("⚡ YOLODET", utils.StatusMessage),
			utils.DecorateText("is working...", utils.DefaultMessage))
		spinner = utils.NewSpinner(stderr, spinnerText, 100*time.Millisecond, true)
		defer spinner.RestoreCursor()
	}

	det, err := yolodet.New(m, yolodet.Options{
		Save:       req.save,
		OutputDir:  req.outputDir,
		Recursive:  c.Bool("recursive"),
		Timeout:    settings.Timeout,
		Stdin:      c.App.Reader,
		Stdout:     stdout,
		Stderr:     stderr,
		Logger:     logger,
		Spinner:    spinner,
		OpenCamera: openCamera,
	})
	if err != nil {
		m.Close()
		return err
	}
	defer det.Close()

	var p prompter
	if term.IsTerminal(int(os.Stdin.Fd())) {
		p = newFormPrompter()
	} else {
		p = newLinePrompter(c.App.Reader, stdout)
	}

	now := time.Now()
	reports, batch, err := dispatch(c.Context, det, req, p, stdout)
	if batch && len(reports) > 0 {
		fmt.Fprintln(stderr, yolodet.Reports(reports).String())
		fmt.Fprintf(stderr, "\nExecution time: %s\n",
			utils.DecorateText(utils.FormatTime(time.Since(now)), utils.SuccessMessage))
	}
	if errors.Is(err, context.Canceled) {
		logger.Debug("interrupted")
	}
	return err
}

// request is the resolved set of command line choices.
type request struct {
	model       string
	source      string
	urls        []string
	dir         string
	webcam      bool
	cameraIndex int
	outputDir   string
	save        bool
}

func requestFromContext(c *cli.Context) request {
	urls := c.StringSlice("urls")
	if len(urls) > 0 {
		urls = append(urls, c.Args().Slice()...)
	}
	return request{
		model:       c.String("model"),
		source:      strings.TrimSpace(c.String("source")),
		urls:        urls,
		dir:         c.String("dir"),
		webcam:      c.Bool("webcam"),
		cameraIndex: c.Int("camera-index"),
		outputDir:   c.String("output-dir"),
		save:        !c.Bool("no-save"),
	}
}

// expandURLs rewrites "--urls a b c" into one --urls flag per value so that the
// flags following the list are still parsed. The list ends at the next token
// starting with "-". Arguments after "--" are left untouched.
func expandURLs(args []string) []string {
	out := make([]string, 0, len(args))
	inList := false
	for i, arg := range args {
		switch {
		case i == 0:
			out = append(out, arg)
		case arg == "--":
			return append(out, args[i:]...)
		case arg == "--urls" || arg == "-urls":
			inList = true
		case strings.HasPrefix(arg, "--urls=") || strings.HasPrefix(arg, "-urls="):
			inList = true
			out = append(out, "--urls", arg[strings.Index(arg, "=")+1:])
		case inList && !strings.HasPrefix(arg, "-"):
			out = append(out, "--urls", arg)
		default:
			inList = false
			out = append(out, arg)
		}
	}
	return out
}

// runner is the part of the detector the CLI dispatches to.
type runner interface {
	Detect(ctx context.Context, src string) ([]yolodet.Report, error)
	DetectFile(ctx context.Context, path string) (yolodet.Report, error)
	DetectURL(ctx context.Context, url string) (yolodet.Report, error)
	DetectDirectory(ctx context.Context, dir string) ([]yolodet.Report, error)
	DetectURLs(ctx context.Context, urls []string) ([]yolodet.Report, error)
	DetectWebcam(ctx context.Context, index int) error
}

// dispatch selects the source by priority: webcam, urls, dir, source, then the
// interactive menu. batch reports whether the run covered several images.
func dispatch(ctx context.Context, r runner, req request, p prompter, w io.Writer) (reports []yolodet.Report, batch bool, err error) {
	switch {
	case req.webcam || req.source == webcamSource:
		return nil, false, r.DetectWebcam(ctx, req.cameraIndex)
	case len(req.urls) > 0:
		reports, err = r.DetectURLs(ctx, req.urls)
		return reports, true, err
	case req.dir != "":
		reports, err = r.DetectDirectory(ctx, req.dir)
		return reports, true, err
	case req.source != "":
		reports, err = r.Detect(ctx, req.source)
		return reports, len(reports) > 1, err
	}
	return menu(ctx, r, req, p, w)
}

// errTorchModel is returned for PyTorch checkpoints, which OpenCV cannot read.
var errTorchModel = errors.New("PyTorch checkpoints are not supported, export the model to ONNX first (yolo export model=<file>.pt format=onnx)")

// loadModel picks the backend from the model file extension.
func loadModel(path, labels string, cfg *config.Config, logger *zap.Logger) (model.Model, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pt", ".pth":
		return nil, fmt.Errorf("%s: %w", path, errTorchModel)
	}
	if strings.EqualFold(filepath.Ext(path), ".onnx") {
		yc := yolo.DefaultConfig()
		yc.ModelPath = path
		yc.LabelsPath = labels
		yc.ConfidenceThresh = float32(cfg.Confidence)
		yc.NMSThresh = float32(cfg.NMS)
		return yolo.New(yc, logger)
	}

	fc := face.DefaultConfig()
	fc.CascadePath = path
	fc.IoUThreshold = cfg.NMS
	logger.Debug("loading face cascade", zap.String("path", path))
	return face.New(fc)
}

// openCamera opens the capture device together with the preview window.
func openCamera(index int) (yolodet.Grabber, yolodet.Viewer, error) {
	cam, err := camera.Open(index)
	if err != nil {
		return nil, nil, err
	}
	return cam, camera.NewWindow(windowTitle), nil
}
