package yolodet

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/esimov/yolodet/render"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	keyQuit = 'q'
	keySave = 's'
)

// WebcamFrameName formats the file name of a saved frame; numbering starts at 0.
func WebcamFrameName(n int) string {
	return fmt.Sprintf("webcam_frame_%04d.jpg", n)
}

// DetectWebcam runs the model on live frames from the camera at index, showing the
// annotated frames in a preview window. Pressing 'q' stops the loop and 's' saves
// the current annotated frame into the output directory when saving is enabled.
// Cancelling ctx stops the loop too. The device and window are always released.
func (d *Detector) DetectWebcam(ctx context.Context, index int) (err error) {
	if d.opts.OpenCamera == nil {
		return ErrNoCamera
	}

	grabber, viewer, err := d.opts.OpenCamera(index)
	if err != nil {
		d.errorf("Error: Could not open camera %d\n", index)
		return fmt.Errorf("%w %d: %v", ErrCameraOpen, index, err)
	}
	defer func() {
		err = multierr.Combine(err, grabber.Close(), viewer.Close())
	}()

	d.printf("Press 'q' to quit, 's' to save current frame\n")

	var saved int
	for {
		if ctx.Err() != nil {
			return nil
		}

		frame, gerr := grabber.Grab()
		if gerr != nil || frame == nil {
			d.errorf("Error: Could not read frame\n")
			d.logger.Debug("frame grab failed", zap.Error(gerr))
			return ErrFrameRead
		}

		dets, ierr := d.predict(frame)
		if ierr != nil {
			return ierr
		}
		annotated := render.Annotate(frame, Labels(dets))

		if serr := viewer.Show(annotated); serr != nil {
			return serr
		}

		switch viewer.Key(1) & 0xFF {
		case keyQuit:
			return nil
		case keySave:
			if !d.opts.Save {
				continue
			}
			name := WebcamFrameName(saved)
			if serr := render.Save(annotated, filepath.Join(d.opts.OutputDir, name)); serr != nil {
				d.errorf("Error: Unable to save frame %s: %v\n", name, serr)
				continue
			}
			d.printf("Saved frame: %s\n", name)
			saved++
		}
	}
}
