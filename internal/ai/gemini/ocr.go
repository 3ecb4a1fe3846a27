package gemini

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/resume-screener/internal/acquire"
	"github.com/spigell/resume-screener/internal/utils"
)

//go:embed ocr_prompt.md
var ocrPrompt string

const (
	noTextMarker        = "NO_TEXT"
	pageInstruction     = "Transcribe this page."
	defaultMaxLogLength = 200
)

type contentGenerator interface {
	Generate(ctx context.Context, system string, parts []*genai.Part) (string, error)
	Model() string
}

// Recognizer implements acquire.OCR on top of a Gemini vision model.
type Recognizer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewRecognizer(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Recognizer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Recognizer{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (r *Recognizer) Recognize(ctx context.Context, img acquire.Image) (string, error) {
	if len(img.Data) == 0 {
		return "", errors.New("image is empty")
	}

	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = mimetype.Detect(img.Data).String()
	}

	parts := []*genai.Part{
		{Text: pageInstruction},
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: img.Data}},
	}

	r.logger.Debug("gemini ocr request",
		zap.Int("page", img.Page),
		zap.String("mime_type", mimeType),
		zap.Int("image_bytes", len(img.Data)),
	)

	raw, err := r.generator.Generate(ctx, ocrPrompt, parts)
	if err != nil {
		return "", err
	}

	text := stripFences(raw)

	r.logger.Debug("gemini ocr response",
		zap.Int("page", img.Page),
		zap.Int("response_length", utf8.RuneCountInString(text)),
		zap.String("response_preview", utils.TruncateForLog(text, r.maxLogLen)),
	)

	if text == noTextMarker {
		return "", nil
	}
	return text, nil
}

func (r *Recognizer) Provider() string {
	return "gemini"
}

func (r *Recognizer) Model() string {
	return r.generator.Model()
}

// stripFences removes a markdown code fence the model sometimes wraps output in.
func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```text")
		raw = strings.TrimPrefix(raw, "```plaintext")
		raw = strings.TrimPrefix(raw, "```")
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	return strings.TrimSpace(raw)
}
