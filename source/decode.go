package source

import (
	"fmt"
	"image"
	"io"
	"os"

	"github.com/disintegration/imaging"

	// Register the decoders for the extensions listed in SupportedExtensions
	// beyond the jpeg/png/gif set imaging already pulls in.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decode reads an image from r, applying the EXIF orientation so that boxes
// line up with what image viewers show.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("could not decode the image: %w", err)
	}
	return img, nil
}

// DecodeFile opens and decodes the image at path.
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open the source file: %w", err)
	}
	defer f.Close()

	return Decode(f)
}
