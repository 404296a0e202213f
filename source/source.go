// Package source classifies detection inputs and turns them into decoded images.
package source

import (
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// PipeName is the source name that selects stdin.
const PipeName = "-"

// DefaultURLName is used when a URL path has no usable basename.
const DefaultURLName = "url_image.jpg"

// Kind identifies how a source string has to be read.
type Kind int

// The source kinds understood by the detector.
const (
	Unknown Kind = iota
	File
	Directory
	URL
	Stdin
)

func (k Kind) String() string {
	switch k {
	case File:
		return "file"
	case Directory:
		return "directory"
	case URL:
		return "url"
	case Stdin:
		return "stdin"
	}
	return "unknown"
}

// SupportedExtensions lists the image extensions picked up from directories.
var SupportedExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".tif", ".webp"}

// Classify reports the kind of src. Only http and https URLs are treated as
// remote; anything else must exist on disk.
func Classify(src string) Kind {
	if src == PipeName {
		return Stdin
	}
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return URL
	}

	fi, err := os.Stat(src)
	if err != nil {
		return Unknown
	}
	switch mode := fi.Mode(); {
	case mode.IsDir():
		return Directory
	case mode.IsRegular(), mode&os.ModeNamedPipe != 0:
		return File
	}
	return Unknown
}

// IsValidURL tests a string to determine if it is a well-structured http(s) url.
func IsValidURL(uri string) bool {
	if _, err := url.ParseRequestURI(uri); err != nil {
		return false
	}
	u, err := url.Parse(uri)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// IsSupported reports whether name carries one of the SupportedExtensions,
// ignoring case.
func IsSupported(name string) bool {
	return lo.Contains(SupportedExtensions, strings.ToLower(filepath.Ext(name)))
}

// ListImages returns the supported image files in dir, sorted by path.
// Subdirectories are descended into only when recursive is set.
func ListImages(dir string, recursive bool) ([]string, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	var files []string
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != dir && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if IsSupported(d.Name()) && isRegularFile(p, d) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	files = lo.Uniq(files)
	sort.Strings(files)
	return files, nil
}

// isRegularFile accepts regular files and symlinks resolving to one.
func isRegularFile(p string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	fi, err := os.Stat(p)
	return err == nil && fi.Mode().IsRegular()
}

// URLFileName returns the basename of the URL path, or DefaultURLName when the
// path is empty or ends with a slash.
func URLFileName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return DefaultURLName
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return DefaultURLName
	}
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}
	return base
}

// OutputName returns the annotated file name for a source: its basename without
// extension followed by "_detected.jpg".
func OutputName(src string) string {
	base := filepath.Base(src)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" || stem == "." || stem == string(filepath.Separator) {
		stem = "image"
	}
	return stem + "_detected.jpg"
}
