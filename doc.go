/*
Package yolodet runs object detection over images coming from local files, remote URLs,
directories, standard input or a webcam, prints the detected classes with their confidence
and saves an annotated copy of every processed image.

The package provides a command line interface, supporting various flags for the different
source types. To check the supported commands type:

	$ yolodet --help

In case you wish to integrate the API in a self constructed environment here is a simple example:

	package main

	import (
		"context"
		"log"

		"github.com/esimov/yolodet"
		"github.com/esimov/yolodet/model/yolo"
	)

	func main() {
		m, err := yolo.New(yolo.DefaultConfig(), nil)
		if err != nil {
			log.Fatal(err)
		}

		det, err := yolodet.New(m, yolodet.DefaultOptions())
		if err != nil {
			log.Fatal(err)
		}
		defer det.Close()

		if _, err := det.DetectFile(context.Background(), "bus.jpg"); err != nil {
			log.Printf("detection failed: %v", err)
		}
	}
*/
package yolodet
