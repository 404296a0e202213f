package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/esimov/yolodet"
	"github.com/esimov/yolodet/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

type fakeRunner struct {
	calls []string
	args  []string
	err   error
}

func (f *fakeRunner) record(call string, args ...string) {
	f.calls = append(f.calls, call)
	f.args = append(f.args, args...)
}

func (f *fakeRunner) Detect(_ context.Context, src string) ([]yolodet.Report, error) {
	f.record("source", src)
	return []yolodet.Report{{Source: src}}, f.err
}

func (f *fakeRunner) DetectFile(_ context.Context, path string) (yolodet.Report, error) {
	f.record("file", path)
	return yolodet.Report{Source: path}, f.err
}

func (f *fakeRunner) DetectURL(_ context.Context, url string) (yolodet.Report, error) {
	f.record("url", url)
	return yolodet.Report{Source: url}, f.err
}

func (f *fakeRunner) DetectDirectory(_ context.Context, dir string) ([]yolodet.Report, error) {
	f.record("dir", dir)
	return []yolodet.Report{{Source: dir + "/a.jpg"}, {Source: dir + "/b.jpg"}}, f.err
}

func (f *fakeRunner) DetectURLs(_ context.Context, urls []string) ([]yolodet.Report, error) {
	f.record("urls", urls...)
	reports := make([]yolodet.Report, len(urls))
	for i, u := range urls {
		reports[i].Source = u
	}
	return reports, f.err
}

func (f *fakeRunner) DetectWebcam(_ context.Context, index int) error {
	f.record("webcam", string(rune('0'+index)))
	return f.err
}

func lines(s ...string) *linePrompter {
	return newLinePrompter(strings.NewReader(strings.Join(s, "\n")+"\n"), io.Discard)
}

func TestDispatch_Priority(t *testing.T) {
	tests := []struct {
		name  string
		req   request
		call  string
		batch bool
	}{
		{"webcam wins", request{webcam: true, urls: []string{"http://a"}, dir: "d", source: "s"}, "webcam", false},
		{"webcam source alias", request{source: webcamSource}, "webcam", false},
		{"urls before dir", request{urls: []string{"http://a", "http://b"}, dir: "d", source: "s"}, "urls", true},
		{"dir before source", request{dir: "d", source: "s"}, "dir", true},
		{"source", request{source: "bus.jpg"}, "source", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{}
			_, batch, err := dispatch(context.Background(), r, tt.req, lines(), io.Discard)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.call}, r.calls)
			assert.Equal(t, tt.batch, batch)
		})
	}
}

func TestDispatch_PropagatesError(t *testing.T) {
	r := &fakeRunner{err: errors.New("failed")}
	_, _, err := dispatch(context.Background(), r, request{source: "x.jpg"}, lines(), io.Discard)
	assert.EqualError(t, err, "failed")
}

func TestMenu_Choices(t *testing.T) {
	tests := []struct {
		name   string
		input  []string
		call   string
		args   []string
		batch  bool
		nCalls int
	}{
		{"file", []string{"1", "images/bus.jpg"}, "file", []string{"images/bus.jpg"}, false, 1},
		{"url", []string{"2", " https://ultralytics.com/images/bus.jpg "}, "url", []string{"https://ultralytics.com/images/bus.jpg"}, false, 1},
		{"directory", []string{"3", "images"}, "dir", []string{"images"}, true, 1},
		{"webcam", []string{"4"}, "webcam", []string{"2"}, false, 1},
		{"urls", []string{"5", "http://a/1.jpg", "http://a/2.jpg", "", "ignored"}, "urls", []string{"http://a/1.jpg", "http://a/2.jpg"}, true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRunner{}
			var out bytes.Buffer
			p := newLinePrompter(strings.NewReader(strings.Join(tt.input, "\n")+"\n"), &out)

			_, batch, err := dispatch(context.Background(), r, request{cameraIndex: 2}, p, &out)
			require.NoError(t, err)
			require.Len(t, r.calls, tt.nCalls)
			assert.Equal(t, tt.call, r.calls[0])
			assert.Equal(t, tt.args, r.args)
			assert.Equal(t, tt.batch, batch)
		})
	}
}

func TestMenu_PrintsOptions(t *testing.T) {
	var out bytes.Buffer
	p := newLinePrompter(strings.NewReader("1\nbus.jpg\n"), &out)

	_, _, err := menu(context.Background(), &fakeRunner{}, request{}, p, &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "=== YOLOv8 Object Detection ===")
	assert.Contains(t, text, "Choose an option:")
	assert.Contains(t, text, "1. Detect from local file")
	assert.Contains(t, text, "5. Detect from multiple URLs")
	assert.Contains(t, text, "Enter your choice (1-5): ")
	assert.Contains(t, text, "Enter image file path: ")
}

func TestMenu_InvalidChoice(t *testing.T) {
	for _, input := range []string{"9\n", "abc\n", ""} {
		r := &fakeRunner{}
		var out bytes.Buffer
		p := newLinePrompter(strings.NewReader(input), &out)

		_, _, err := menu(context.Background(), r, request{}, p, &out)
		assert.ErrorIs(t, err, errInvalidChoice)
		assert.Contains(t, out.String(), "Invalid choice!")
		assert.Empty(t, r.calls)
	}
}

func TestMenu_EmptyURLList(t *testing.T) {
	r := &fakeRunner{}
	_, _, err := menu(context.Background(), r, request{}, lines("5", ""), io.Discard)
	assert.NoError(t, err)
	assert.Empty(t, r.calls)
}

func TestMenu_MissingAnswer(t *testing.T) {
	r := &fakeRunner{}
	p := newLinePrompter(strings.NewReader("1\n"), io.Discard)
	_, _, err := menu(context.Background(), r, request{}, p, io.Discard)
	assert.Error(t, err)
	assert.Empty(t, r.calls)
}

// parse runs the app with its Action swapped for one that captures the request.
func parse(t *testing.T, cfg *config.Config, args ...string) request {
	t.Helper()
	var req request
	app := newApp(cfg)
	app.Writer = io.Discard
	app.ErrWriter = io.Discard
	app.Action = func(c *cli.Context) error {
		req = requestFromContext(c)
		return nil
	}
	require.NoError(t, app.Run(expandURLs(append([]string{"yolodet"}, args...))))
	return req
}

func TestApp_Flags(t *testing.T) {
	cfg := &config.Config{ModelPath: "yolov8n.onnx", OutputDir: "results", Save: true, Confidence: 0.25, NMS: 0.45}

	req := parse(t, cfg)
	assert.Equal(t, "yolov8n.onnx", req.model)
	assert.Equal(t, "results", req.outputDir)
	assert.True(t, req.save)
	assert.Empty(t, req.urls)

	req = parse(t, cfg, "--model", "yolov8s.onnx", "--output-dir", "out", "--no-save", "--camera-index", "1", "--webcam")
	assert.Equal(t, "yolov8s.onnx", req.model)
	assert.Equal(t, "out", req.outputDir)
	assert.False(t, req.save)
	assert.Equal(t, 1, req.cameraIndex)
	assert.True(t, req.webcam)

	req = parse(t, cfg, "--urls", "http://a/1.jpg", "--urls", "http://a/2.jpg", "http://a/3.jpg")
	assert.Equal(t, []string{"http://a/1.jpg", "http://a/2.jpg", "http://a/3.jpg"}, req.urls)

	req = parse(t, cfg, "--source", " images/bus.jpg ", "--dir", "images")
	assert.Equal(t, "images/bus.jpg", req.source)
	assert.Equal(t, "images", req.dir)
}

func TestApp_FlagsAfterURLList(t *testing.T) {
	cfg := &config.Config{ModelPath: "yolov8n.onnx", OutputDir: "results", Save: true}

	req := parse(t, cfg, "--urls", "http://a/1.jpg", "http://a/2.jpg", "--no-save", "--output-dir", "out", "--camera-index", "2")
	assert.Equal(t, []string{"http://a/1.jpg", "http://a/2.jpg"}, req.urls)
	assert.False(t, req.save)
	assert.Equal(t, "out", req.outputDir)
	assert.Equal(t, 2, req.cameraIndex)

	req = parse(t, cfg, "--no-save", "--urls=http://a/1.jpg", "http://a/2.jpg")
	assert.Equal(t, []string{"http://a/1.jpg", "http://a/2.jpg"}, req.urls)
	assert.False(t, req.save)
}

func TestApp_ExpandURLs(t *testing.T) {
	assert.Equal(t,
		[]string{"yolodet", "--urls", "a", "--urls", "b", "--no-save"},
		expandURLs([]string{"yolodet", "--urls", "a", "b", "--no-save"}))
	assert.Equal(t,
		[]string{"yolodet", "--model", "m.onnx", "--source", "x.jpg"},
		expandURLs([]string{"yolodet", "--model", "m.onnx", "--source", "x.jpg"}))
	assert.Equal(t,
		[]string{"yolodet", "--urls", "a", "--", "b", "--urls"},
		expandURLs([]string{"yolodet", "--urls", "a", "--", "b", "--urls"}))
}

func TestApp_RejectsTorchCheckpoint(t *testing.T) {
	_, err := loadModel("yolov8n.pt", "", &config.Config{Confidence: 0.25, NMS: 0.45}, zap.NewNop())
	assert.ErrorIs(t, err, errTorchModel)
	assert.ErrorContains(t, err, "ONNX")
}

func TestApp_ConfigDefaults(t *testing.T) {
	cfg := &config.Config{ModelPath: "models/custom.onnx", OutputDir: "annotated", CameraIndex: 3, Save: false}
	req := parse(t, cfg)
	assert.Equal(t, "models/custom.onnx", req.model)
	assert.Equal(t, "annotated", req.outputDir)
	assert.Equal(t, 3, req.cameraIndex)
	assert.False(t, req.save)
}

func TestApp_RejectsInvalidThreshold(t *testing.T) {
	app := newApp(&config.Config{ModelPath: "yolov8n.onnx", OutputDir: "results", Save: true, Confidence: 0.25, NMS: 0.45, Timeout: 1})
	var stderr bytes.Buffer
	app.Writer = io.Discard
	app.ErrWriter = &stderr

	err := app.Run([]string{"yolodet", "--conf", "1.5", "--source", "bus.jpg"})
	assert.ErrorContains(t, err, "confidence")
	assert.Contains(t, stderr.String(), "confidence")
}
