package acquire

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

const (
	defaultTesseractBinary   = "tesseract"
	defaultTesseractLanguage = "eng"
)

// Tesseract runs the tesseract command line tool, feeding the image on stdin.
type Tesseract struct {
	Binary   string
	Language string
}

func NewTesseract(binary, language string) *Tesseract {
	if binary = strings.TrimSpace(binary); binary == "" {
		binary = defaultTesseractBinary
	}
	if language = strings.TrimSpace(language); language == "" {
		language = defaultTesseractLanguage
	}

	return &Tesseract{Binary: binary, Language: language}
}

func (t *Tesseract) Recognize(ctx context.Context, img Image) (string, error) {
	cmd := exec.CommandContext(ctx, t.Binary, "stdin", "stdout", "-l", t.Language)
	cmd.Stdin = bytes.NewReader(img.Data)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}

func (t *Tesseract) Provider() string {
	return "tesseract"
}
