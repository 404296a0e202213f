package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/esimov/yolodet"
)

var errInvalidChoice = errors.New("invalid choice")

var menuOptions = []string{
	"Detect from local file",
	"Detect from URL",
	"Detect from directory",
	"Detect from webcam",
	"Detect from multiple URLs",
}

// prompter collects the interactive answers.
type prompter interface {
	// Choose shows the numbered options and returns the raw answer.
	Choose(title string, options []string) (string, error)
	Ask(prompt string) (string, error)
	// AskList reads values until an empty answer.
	AskList(prompt string) ([]string, error)
}

// menu is the fallback used when no source flag was given.
func menu(ctx context.Context, r runner, req request, p prompter, w io.Writer) ([]yolodet.Report, bool, error) {
	fmt.Fprintln(w, "\n=== YOLOv8 Object Detection ===")

	choice, err := p.Choose("Choose an option:", menuOptions)
	if err != nil {
		return nil, false, err
	}

	switch strings.TrimSpace(choice) {
	case "1":
		path, err := p.Ask("Enter image file path: ")
		if err != nil {
			return nil, false, err
		}
		rep, err := r.DetectFile(ctx, path)
		return []yolodet.Report{rep}, false, err
	case "2":
		url, err := p.Ask("Enter image URL: ")
		if err != nil {
			return nil, false, err
		}
		rep, err := r.DetectURL(ctx, url)
		return []yolodet.Report{rep}, false, err
	case "3":
		dir, err := p.Ask("Enter directory path: ")
		if err != nil {
			return nil, false, err
		}
		reports, err := r.DetectDirectory(ctx, dir)
		return reports, true, err
	case "4":
		return nil, false, r.DetectWebcam(ctx, req.cameraIndex)
	case "5":
		urls, err := p.AskList("Enter URLs (one per line, empty line to finish):")
		if err != nil || len(urls) == 0 {
			return nil, false, err
		}
		reports, err := r.DetectURLs(ctx, urls)
		return reports, true, err
	}

	fmt.Fprintln(w, "Invalid choice!")
	return nil, false, errInvalidChoice
}

// linePrompter reads plain lines, for pipes and dumb terminals.
type linePrompter struct {
	scanner *bufio.Scanner
	w       io.Writer
}

func newLinePrompter(r io.Reader, w io.Writer) *linePrompter {
	return &linePrompter{scanner: bufio.NewScanner(r), w: w}
}

func (p *linePrompter) readLine() (string, error) {
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

func (p *linePrompter) Choose(title string, options []string) (string, error) {
	fmt.Fprintln(p.w, title)
	for i, opt := range options {
		fmt.Fprintf(p.w, "%d. %s\n", i+1, opt)
	}
	fmt.Fprintf(p.w, "\nEnter your choice (1-%d): ", len(options))

	choice, err := p.readLine()
	if errors.Is(err, io.EOF) {
		return "", nil
	}
	return choice, err
}

func (p *linePrompter) Ask(prompt string) (string, error) {
	fmt.Fprint(p.w, prompt)
	line, err := p.readLine()
	if errors.Is(err, io.EOF) {
		return "", fmt.Errorf("no answer to %q", strings.TrimSpace(prompt))
	}
	return line, err
}

func (p *linePrompter) AskList(prompt string) ([]string, error) {
	fmt.Fprintln(p.w, prompt)

	var values []string
	for {
		line, err := p.readLine()
		if errors.Is(err, io.EOF) || (err == nil && line == "") {
			return values, nil
		}
		if err != nil {
			return values, err
		}
		values = append(values, line)
	}
}

// formPrompter renders the questions as huh forms.
type formPrompter struct{}

func newFormPrompter() formPrompter {
	return formPrompter{}
}

func (formPrompter) Choose(title string, options []string) (string, error) {
	opts := make([]huh.Option[string], 0, len(options))
	for i, opt := range options {
		key := strconv.Itoa(i + 1)
		opts = append(opts, huh.NewOption(key+". "+opt, key))
	}

	var choice string
	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title(title).
			Options(opts...).
			Value(&choice),
	)).Run()
	return choice, err
}

func (formPrompter) Ask(prompt string) (string, error) {
	var answer string
	err := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title(strings.TrimSpace(prompt)).
			Value(&answer),
	)).Run()
	return strings.TrimSpace(answer), err
}

func (formPrompter) AskList(prompt string) ([]string, error) {
	var answer string
	err := huh.NewForm(huh.NewGroup(
		huh.NewText().
			Title(prompt).
			Value(&answer),
	)).Run()
	if err != nil {
		return nil, err
	}

	var values []string
	for _, line := range strings.Split(answer, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		values = append(values, line)
	}
	return values, nil
}
