// Package model defines the contract between the detector facade and the
// inference backends, together with the class label tables they share.
package model

import (
	"bufio"
	"fmt"
	"image"
	"os"
	"strings"
)

// Model is a loaded object-detection network. Implementations own the
// underlying handle until Close is called.
type Model interface {
	// Predict runs inference on img and returns the boxes in img coordinates.
	Predict(img image.Image) (*Result, error)
	// Names returns the class names indexed by class id.
	Names() []string
	// Close releases the model handle.
	Close() error
}

// Box is a single detected object.
type Box struct {
	ClassID    int
	Confidence float32
	Rect       image.Rectangle
}

// Result holds the boxes found in one image.
type Result struct {
	Width  int
	Height int
	Boxes  []Box
}

// ClassName resolves a class id against names, falling back to "class<id>".
func ClassName(names []string, id int) string {
	if id >= 0 && id < len(names) && names[id] != "" {
		return names[id]
	}
	return fmt.Sprintf("class%d", id)
}

// ReadLabels reads one class name per line. Blank lines and lines starting
// with '#' are skipped.
func ReadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open labels file: %w", err)
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("unable to read labels file: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}
	return labels, nil
}

// COCOClasses contains the 80 COCO class names the stock YOLOv8 weights are trained on.
var COCOClasses = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator",
	"book", "clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}
