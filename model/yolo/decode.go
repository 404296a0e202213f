package yolo

import "image"

// candidates are the pre-NMS boxes in network input coordinates.
type candidates struct {
	rects    []image.Rectangle
	scores   []float32
	classIDs []int
}

// decodeOutput parses a YOLOv8 head of shape [1, d1, d2]. The stock export is
// [1, 4+classes, anchors]; some exporters emit the transposed [1, anchors, 4+classes].
// The wider dimension is taken as the anchor axis.
func decodeOutput(data []float32, d1, d2 int, thresh float32) candidates {
	var c candidates

	attrs, anchors := d1, d2
	transposed := false
	if d1 > d2 {
		attrs, anchors = d2, d1
		transposed = true
	}
	if attrs <= 4 || len(data) < attrs*anchors {
		return c
	}

	at := func(attr, anchor int) float32 {
		if transposed {
			return data[anchor*attrs+attr]
		}
		return data[attr*anchors+anchor]
	}

	for i := 0; i < anchors; i++ {
		best, classID := float32(0), -1
		for k := 4; k < attrs; k++ {
			if s := at(k, i); s > best {
				best, classID = s, k-4
			}
		}
		if classID < 0 || best < thresh {
			continue
		}

		cx, cy := at(0, i), at(1, i)
		w, h := at(2, i), at(3, i)

		c.rects = append(c.rects, image.Rect(
			int(cx-w/2), int(cy-h/2),
			int(cx+w/2), int(cy+h/2),
		))
		c.scores = append(c.scores, best)
		c.classIDs = append(c.classIDs, classID)
	}
	return c
}
