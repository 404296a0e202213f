package yolodet

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/esimov/yolodet/model"
	"github.com/esimov/yolodet/render"
	"github.com/esimov/yolodet/source"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Detect dispatches src by kind: http(s) URLs are downloaded, "-" reads stdin,
// directories are scanned and regular files are processed directly.
func (d *Detector) Detect(ctx context.Context, src string) ([]Report, error) {
	switch source.Classify(src) {
	case source.URL:
		rep, err := d.DetectURL(ctx, src)
		return []Report{rep}, err
	case source.Stdin:
		rep, err := d.DetectReader(ctx, "stdin", d.opts.Stdin)
		return []Report{rep}, err
	case source.File:
		rep, err := d.DetectFile(ctx, src)
		return []Report{rep}, err
	case source.Directory:
		return d.DetectDirectory(ctx, src)
	}

	d.errorf("Error: Source '%s' not found or invalid\n", src)
	return nil, fmt.Errorf("%w: %s", ErrInvalidSource, src)
}

// DetectFile runs the model on a single image file.
func (d *Detector) DetectFile(ctx context.Context, path string) (Report, error) {
	return d.detectFile(ctx, path, "")
}

// detectFile saves the annotated copy under the sub directory of the output dir.
func (d *Detector) detectFile(ctx context.Context, path, sub string) (Report, error) {
	rep := Report{Source: path}

	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		d.errorf("Error: File %s not found!\n", path)
		rep.Err = fmt.Errorf("%w: %s", ErrNotFound, path)
		return rep, rep.Err
	}
	if err := ctx.Err(); err != nil {
		rep.Err = err
		return rep, err
	}

	d.printf("Processing file: %s\n", path)

	img, err := source.DecodeFile(path)
	if err == nil {
		rep, err = d.run(path, filepath.Join(sub, filepath.Base(path)), img)
	}
	if err != nil {
		d.errorf("Error processing file %s: %v\n", path, err)
		rep.Err = err
		return rep, err
	}
	return rep, nil
}

// DetectURL downloads the image at rawURL and runs the model on it. The download
// is bounded by Options.Timeout and never retried.
func (d *Detector) DetectURL(ctx context.Context, rawURL string) (Report, error) {
	d.printf("Downloading image from: %s\n", rawURL)

	rep, err := d.detectURL(ctx, rawURL)
	if err != nil {
		d.errorf("Error processing URL %s: %v\n", rawURL, err)
		rep.Source = rawURL
		rep.Err = err
		return rep, err
	}
	return rep, nil
}

func (d *Detector) detectURL(ctx context.Context, rawURL string) (Report, error) {
	dlCtx, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancel()

	d.spin(fmt.Sprintf("downloading %s", rawURL))
	payload, err := source.Download(dlCtx, d.client, rawURL)
	d.stopSpin()
	if err != nil {
		return Report{}, err
	}
	d.logger.Debug("downloaded image",
		zap.String("url", rawURL),
		zap.String("content_type", payload.ContentType),
		zap.Int("bytes", len(payload.Data)),
	)

	img, err := source.Decode(payload.Reader())
	if err != nil {
		return Report{}, err
	}
	return d.run(rawURL, payload.Name, img)
}

// DetectDirectory runs the model on every supported image in dir. Failing images
// are reported and skipped; their errors are combined into the returned error.
func (d *Detector) DetectDirectory(ctx context.Context, dir string) ([]Report, error) {
	fi, err := os.Stat(dir)
	if err != nil || !fi.IsDir() {
		d.errorf("Error: Directory %s not found!\n", dir)
		return nil, fmt.Errorf("%w: %s", ErrNotFound, dir)
	}

	files, err := source.ListImages(dir, d.opts.Recursive)
	if err != nil {
		d.errorf("Error: Unable to read directory %s: %v\n", dir, err)
		return nil, fmt.Errorf("unable to list %s: %w", dir, err)
	}
	if len(files) == 0 {
		d.printf("No image files found in %s\n", dir)
		return nil, nil
	}

	d.printf("Found %d images in %s\n", len(files), dir)

	var (
		reports []Report
		errs    error
	)
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return reports, multierr.Append(errs, err)
		}
		// Nested images keep their relative directory so equal names do not collide.
		sub, err := filepath.Rel(dir, filepath.Dir(f))
		if err != nil {
			sub = ""
		}
		rep, err := d.detectFile(ctx, f, sub)
		reports = append(reports, rep)
		errs = multierr.Append(errs, err)
	}
	return reports, errs
}

// DetectURLs runs DetectURL over each url in order.
func (d *Detector) DetectURLs(ctx context.Context, urls []string) ([]Report, error) {
	var (
		reports []Report
		errs    error
	)
	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			return reports, multierr.Append(errs, err)
		}
		d.printf("\nProcessing URL %d/%d\n", i+1, len(urls))

		rep, err := d.DetectURL(ctx, u)
		reports = append(reports, rep)
		errs = multierr.Append(errs, err)
	}
	return reports, errs
}

// DetectReader decodes an image from r and runs the model on it. The name is
// used for printing and for the annotated file name.
func (d *Detector) DetectReader(ctx context.Context, name string, r io.Reader) (Report, error) {
	rep := Report{Source: name}
	if err := ctx.Err(); err != nil {
		rep.Err = err
		return rep, err
	}

	img, err := source.Decode(r)
	if err == nil {
		rep, err = d.run(name, filepath.Base(name), img)
	}
	if err != nil {
		d.errorf("Error processing %s: %v\n", name, err)
		rep.Source = name
		rep.Err = err
		return rep, err
	}
	return rep, nil
}

// run is the shared sequence: infer, save the annotated copy when enabled, print.
// saveName may carry a relative directory which is kept under the output dir.
func (d *Detector) run(src, saveName string, img image.Image) (Report, error) {
	rep := Report{Source: src}
	if img == nil || img.Bounds().Empty() {
		return rep, ErrEmptyImage
	}

	dets, err := d.infer(img)
	if err != nil {
		return rep, err
	}
	rep.Detections = dets

	if d.opts.Save {
		out := filepath.Join(d.opts.OutputDir, filepath.Dir(saveName), source.OutputName(saveName))
		if err := render.Save(render.Annotate(img, Labels(dets)), out); err != nil {
			return rep, err
		}
		rep.Output = out
		d.printf("Saved annotated image: %s\n", out)
	}

	d.printDetections(src, dets)
	return rep, nil
}

// infer calls the model behind the spinner.
func (d *Detector) infer(img image.Image) ([]Detection, error) {
	d.spin("detecting objects")
	defer d.stopSpin()
	return d.predict(img)
}

// predict calls the model and resolves class names.
func (d *Detector) predict(img image.Image) ([]Detection, error) {
	res, err := d.model.Predict(img)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	if res == nil {
		return nil, nil
	}

	names := d.model.Names()
	dets := make([]Detection, 0, len(res.Boxes))
	for _, b := range res.Boxes {
		dets = append(dets, Detection{
			Class:      model.ClassName(names, b.ClassID),
			ClassID:    b.ClassID,
			Confidence: float64(b.Confidence),
			Box:        b.Rect,
		})
	}
	d.logger.Debug("inference done", zap.Int("objects", len(dets)))
	return dets, nil
}

// Labels converts detections into render labels captioned "<class> <conf>".
func Labels(dets []Detection) []render.Label {
	labels := make([]render.Label, 0, len(dets))
	for _, det := range dets {
		labels = append(labels, render.Label{
			Rect:    det.Box,
			ClassID: det.ClassID,
			Text:    fmt.Sprintf("%s %.2f", det.Class, det.Confidence),
		})
	}
	return labels
}

// printDetections writes the result block for one source.
func (d *Detector) printDetections(src string, dets []Detection) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n--- Detection Results for: %s ---\n", src)
	if len(dets) == 0 {
		sb.WriteString("No objects detected\n")
	}
	for _, det := range dets {
		fmt.Fprintf(&sb, "Detected: %s (confidence: %.2f)\n", det.Class, det.Confidence)
	}
	sb.WriteString(strings.Repeat("-", 50) + "\n")
	io.WriteString(d.opts.Stdout, sb.String())
}

func (d *Detector) spin(msg string) {
	if d.opts.Spinner == nil {
		return
	}
	d.opts.Spinner.SetMessage(msg)
	d.opts.Spinner.Start()
}

func (d *Detector) stopSpin() {
	if d.opts.Spinner != nil {
		d.opts.Spinner.Stop()
	}
}
