// Package yolo runs YOLOv8 ONNX exports through the OpenCV DNN module.
package yolo

import (
	"errors"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/esimov/yolodet/model"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// Config holds the YOLO detector configuration.
type Config struct {
	ModelPath        string
	LabelsPath       string
	ConfidenceThresh float32
	NMSThresh        float32
	InputWidth       int
	InputHeight      int
}

// DefaultConfig returns the defaults for the stock yolov8n export.
func DefaultConfig() Config {
	return Config{
		ModelPath:        "yolov8n.onnx",
		ConfidenceThresh: 0.25,
		NMSThresh:        0.45,
		InputWidth:       640,
		InputHeight:      640,
	}
}

// Detector is a model.Model backed by a gocv.Net.
type Detector struct {
	mu     sync.Mutex
	net    gocv.Net
	params gocv.ImageToBlobParams
	cfg    Config
	names  []string
	logger *zap.Logger
}

var _ model.Model = (*Detector)(nil)

// New loads the ONNX network described by cfg.
func New(cfg Config, logger *zap.Logger) (*Detector, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.InputWidth <= 0 || cfg.InputHeight <= 0 {
		return nil, fmt.Errorf("invalid network input size %dx%d", cfg.InputWidth, cfg.InputHeight)
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
		}
		return nil, fmt.Errorf("unable to stat model file: %w", err)
	}

	names := model.COCOClasses
	if cfg.LabelsPath != "" {
		labels, err := model.ReadLabels(cfg.LabelsPath)
		if err != nil {
			return nil, err
		}
		names = labels
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load YOLO model from %s", cfg.ModelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable target: %w", err)
	}

	params := gocv.NewImageToBlobParams(
		1.0/255.0,
		image.Pt(cfg.InputWidth, cfg.InputHeight),
		gocv.NewScalar(0, 0, 0, 0),
		true,
		gocv.MatTypeCV32F,
		gocv.DataLayoutNCHW,
		gocv.PaddingModeLetterbox,
		gocv.NewScalar(114, 114, 114, 0),
	)

	logger = logger.Named("yolo")
	logger.Debug("network loaded",
		zap.String("model", cfg.ModelPath),
		zap.Int("classes", len(names)),
		zap.String("opencv", gocv.OpenCVVersion()),
	)

	return &Detector{
		net:    net,
		params: params,
		cfg:    cfg,
		names:  names,
		logger: logger,
	}, nil
}

// Names returns the class names indexed by class id.
func (d *Detector) Names() []string {
	return d.names
}

// Predict runs the network on img.
func (d *Detector) Predict(img image.Image) (*model.Result, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, errors.New("empty image")
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("unable to convert image: %w", err)
	}
	defer mat.Close()

	return d.PredictMat(mat)
}

// PredictMat runs the network on a BGR Mat, skipping the image.Image conversion.
func (d *Detector) PredictMat(mat gocv.Mat) (*model.Result, error) {
	if mat.Empty() {
		return nil, errors.New("empty image")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	blob := gocv.BlobFromImageWithParams(mat, d.params)
	defer blob.Close()

	if err := d.net.SetInput(blob, ""); err != nil {
		return nil, fmt.Errorf("unable to set network input: %w", err)
	}

	output := d.net.Forward("")
	defer output.Close()

	sz := output.Size()
	if len(sz) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", sz)
	}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("unable to read network output: %w", err)
	}

	cands := decodeOutput(data, sz[1], sz[2], d.cfg.ConfidenceThresh)
	res := &model.Result{Width: mat.Cols(), Height: mat.Rows()}
	if len(cands.rects) == 0 {
		return res, nil
	}

	rects := d.params.BlobRectsToImageRects(cands.rects, image.Pt(mat.Cols(), mat.Rows()))
	indices := gocv.NMSBoxes(rects, cands.scores, d.cfg.ConfidenceThresh, d.cfg.NMSThresh)

	bounds := image.Rect(0, 0, mat.Cols(), mat.Rows())
	for _, idx := range indices {
		res.Boxes = append(res.Boxes, model.Box{
			ClassID:    cands.classIDs[idx],
			Confidence: cands.scores[idx],
			Rect:       rects[idx].Intersect(bounds),
		})
	}
	d.logger.Debug("inference done", zap.Int("candidates", len(rects)), zap.Int("boxes", len(res.Boxes)))

	return res, nil
}

// Close releases the network.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
