// Package face is a pure-Go backend that finds faces with a pigo cascade.
// It does not need OpenCV.
package face

import (
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/esimov/yolodet/model"
	"github.com/esimov/yolodet/utils"
	pigo "github.com/esimov/pigo/core"
)

// ClassName is the only class this backend reports.
const ClassName = "face"

// Config holds the cascade parameters.
type Config struct {
	CascadePath  string
	MinSize      int
	MaxSize      int
	ShiftFactor  float64
	ScaleFactor  float64
	IoUThreshold float64
	Angle        float64
	// MinQuality is the minimum cascade score for a detection to be kept.
	MinQuality float32
}

// DefaultConfig mirrors the parameters pigo recommends for frontal faces.
func DefaultConfig() Config {
	return Config{
		CascadePath:  "facefinder",
		MinSize:      20,
		MaxSize:      1000,
		ShiftFactor:  0.1,
		ScaleFactor:  1.1,
		IoUThreshold: 0.2,
		MinQuality:   5.0,
	}
}

// Detector is a model.Model backed by a pigo classifier.
type Detector struct {
	classifier *pigo.Pigo
	cfg        Config
}

var _ model.Model = (*Detector)(nil)

// New unpacks the cascade file referenced by cfg.
func New(cfg Config) (*Detector, error) {
	data, err := os.ReadFile(cfg.CascadePath)
	if err != nil {
		return nil, fmt.Errorf("unable to read the cascade file: %w", err)
	}
	return NewFromBytes(data, cfg)
}

// NewFromBytes unpacks an in-memory cascade.
func NewFromBytes(cascade []byte, cfg Config) (det *Detector, err error) {
	// Unpack panics on truncated input instead of reporting an error.
	defer func() {
		if r := recover(); r != nil {
			det, err = nil, fmt.Errorf("error unpacking the cascade file: %v", r)
		}
	}()

	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("error unpacking the cascade file: %w", err)
	}
	return &Detector{classifier: classifier, cfg: cfg}, nil
}

// Names returns the single "face" class.
func (d *Detector) Names() []string {
	return []string{ClassName}
}

// Predict runs the cascade over the grayscale version of img.
func (d *Detector) Predict(img image.Image) (*model.Result, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, errors.New("empty image")
	}
	cols, rows := b.Dx(), b.Dy()

	params := pigo.CascadeParams{
		MinSize:     d.cfg.MinSize,
		MaxSize:     utils.Min(d.cfg.MaxSize, utils.Max(cols, rows)),
		ShiftFactor: d.cfg.ShiftFactor,
		ScaleFactor: d.cfg.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pigo.RgbToGrayscale(img),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	// Each detection is a (row, col, scale, score) quadruplet.
	dets := d.classifier.RunCascade(params, d.cfg.Angle)
	dets = d.classifier.ClusterDetections(dets, d.cfg.IoUThreshold)

	res := &model.Result{Width: cols, Height: rows}
	for _, det := range dets {
		if det.Q < d.cfg.MinQuality {
			continue
		}
		half := det.Scale / 2
		rect := image.Rect(det.Col-half, det.Row-half, det.Col+half, det.Row+half).
			Add(b.Min).
			Intersect(b)

		res.Boxes = append(res.Boxes, model.Box{
			ClassID:    0,
			Confidence: utils.Clamp(det.Q/100, 0, 1),
			Rect:       rect,
		})
	}
	return res, nil
}

// Close is a no-op; the cascade lives in Go memory.
func (d *Detector) Close() error {
	return nil
}
