// Package camera wraps the gocv capture device and preview window used by the
// live detection loop.
package camera

import (
	"errors"
	"fmt"
	"image"

	"go.uber.org/multierr"
	"gocv.io/x/gocv"
)

// ErrFrame is returned when the device stops delivering frames.
var ErrFrame = errors.New("could not read frame")

// Webcam is an opened capture device.
type Webcam struct {
	capture *gocv.VideoCapture
	frame   gocv.Mat
}

// Open opens the camera with the given device index.
func Open(index int) (*Webcam, error) {
	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("could not open camera %d: %w", index, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("could not open camera %d", index)
	}
	return &Webcam{capture: vc, frame: gocv.NewMat()}, nil
}

// Grab reads the next frame from the device.
func (w *Webcam) Grab() (image.Image, error) {
	if ok := w.capture.Read(&w.frame); !ok || w.frame.Empty() {
		return nil, ErrFrame
	}
	img, err := w.frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("unable to convert frame: %w", err)
	}
	return img, nil
}

// Close releases the device.
func (w *Webcam) Close() error {
	return multierr.Combine(w.frame.Close(), w.capture.Close())
}

// Window is an OpenCV highgui preview window.
type Window struct {
	win *gocv.Window
}

// NewWindow creates a named preview window.
func NewWindow(title string) *Window {
	return &Window{win: gocv.NewWindow(title)}
}

// Show displays img in the window.
func (w *Window) Show(img image.Image) error {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return fmt.Errorf("unable to convert frame: %w", err)
	}
	defer mat.Close()

	w.win.IMShow(mat)
	return nil
}

// Key waits up to delay milliseconds for a key press and returns its code, or -1.
func (w *Window) Key(delay int) int {
	return w.win.WaitKey(delay)
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.win.Close()
}
