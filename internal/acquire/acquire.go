// Package acquire turns a document of any supported kind into one lowercase
// text blob. Structured text is preferred; optical recognition is the fallback.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/resume-screener/internal/document"
	"github.com/spigell/resume-screener/internal/logger"
	"github.com/spigell/resume-screener/internal/utils"
)

var (
	// ErrUnsupportedFormat is returned for a document kind the acquirer has no path for.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrExtractionFailed is returned when every path for a kind produced no text.
	ErrExtractionFailed = errors.New("text extraction failed")
	// ErrLowConfidence marks text that was acquired but is shorter than the usable minimum.
	ErrLowConfidence = errors.New("extracted text below minimum usable length")
)

// DefaultMinTextLength is the trimmed length under which text is flagged as low confidence.
const DefaultMinTextLength = 50

// Method names the path that produced a text.
type Method string

const (
	MethodTextLayer Method = "text_layer"
	MethodWord      Method = "word"
	MethodOCR       Method = "ocr"
)

// Image is a raster image handed to an OCR engine.
type Image struct {
	Data     []byte
	MIMEType string
	// Page is the 1-based page number for images cut from a PDF, 0 otherwise.
	Page int
}

// PDFTextReader returns the embedded text of every page, in page order.
type PDFTextReader interface {
	PageTexts(ctx context.Context, data []byte) ([]string, error)
}

// WordTextReader extracts the text of a word-processor document.
type WordTextReader interface {
	Text(ctx context.Context, data []byte) (string, error)
}

// Rasterizer returns page images of a PDF, in page order.
type Rasterizer interface {
	Rasterize(ctx context.Context, data []byte) ([]Image, error)
}

// OCR recognises the text in a single image.
type OCR interface {
	Recognize(ctx context.Context, img Image) (string, error)
}

// Backends that implement these are named in the acquirer's log entries.
type (
	providerNamer interface{ Provider() string }
	modelNamer    interface{ Model() string }
)

// Text is the acquisition result for a document.
type Text struct {
	Content       string `json:"-"`
	Method        Method `json:"method"`
	Pages         int    `json:"pages,omitempty"`
	LowConfidence bool   `json:"low_confidence"`
}

// Len returns the number of runes in the trimmed content.
func (t *Text) Len() int {
	if t == nil {
		return 0
	}
	return utf8.RuneCountInString(strings.TrimSpace(t.Content))
}

type Acquirer struct {
	pdf           PDFTextReader
	word          WordTextReader
	raster        Rasterizer
	ocr           OCR
	minTextLength int
	logger        *zap.Logger
}

type Option func(*Acquirer)

func WithPDFTextReader(r PDFTextReader) Option {
	return func(a *Acquirer) { a.pdf = r }
}

func WithWordTextReader(r WordTextReader) Option {
	return func(a *Acquirer) { a.word = r }
}

func WithRasterizer(r Rasterizer) Option {
	return func(a *Acquirer) { a.raster = r }
}

// WithOCR sets the recognition engine. Without one, optical paths produce no text.
func WithOCR(o OCR) Option {
	return func(a *Acquirer) { a.ocr = o }
}

func WithMinTextLength(n int) Option {
	return func(a *Acquirer) {
		if n > 0 {
			a.minTextLength = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Acquirer) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an acquirer backed by the library readers. OCR must be supplied
// with WithOCR.
func New(opts ...Option) *Acquirer {
	a := &Acquirer{
		pdf:           &PDFText{},
		word:          &WordText{},
		raster:        &PageImages{},
		minTextLength: DefaultMinTextLength,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if p, ok := a.ocr.(providerNamer); ok {
		var model string
		if m, ok := a.ocr.(modelNamer); ok {
			model = m.Model()
		}
		a.logger = logger.WithOCRFields(a.logger, p.Provider(), model)
	}
	return a
}

func (a *Acquirer) MinTextLength() int {
	return a.minTextLength
}

// Acquire extracts the text of doc. Faults inside a path only mean that path
// produced nothing; the error is ErrExtractionFailed once every path for the
// kind is exhausted, or the context error when cancelled.
func (a *Acquirer) Acquire(ctx context.Context, doc *document.Document) (*Text, error) {
	if doc == nil {
		return nil, errors.New("document is required")
	}

	log := logger.WithFields(a.logger, logger.DocumentFields(doc.ID, string(doc.Kind))...)

	var (
		content string
		method  Method
		pages   int
		err     error
	)

	switch doc.Kind {
	case document.KindPDF:
		content, pages, err = a.pdfTextLayer(ctx, log, doc.Data)
		method = MethodTextLayer
		if err == nil && strings.TrimSpace(content) == "" {
			log.Debug("pdf has no text layer, falling back to ocr")
			content, pages, err = a.pdfOCR(ctx, log, doc.Data)
			method = MethodOCR
		}
	case document.KindWord:
		content, err = a.wordText(ctx, log, doc.Data)
		method = MethodWord
	case document.KindImage:
		content, err = a.imageOCR(ctx, log, doc.Data)
		method = MethodOCR
		pages = 1
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, doc.Kind)
	}

	if err != nil {
		return nil, err
	}

	return a.finish(log, doc, content, method, pages)
}

// AcquireOCR runs only the optical path for doc. Word documents have none.
func (a *Acquirer) AcquireOCR(ctx context.Context, doc *document.Document) (*Text, error) {
	if doc == nil {
		return nil, errors.New("document is required")
	}

	log := logger.WithFields(a.logger, logger.DocumentFields(doc.ID, string(doc.Kind))...)

	var (
		content string
		pages   int
		err     error
	)

	switch doc.Kind {
	case document.KindPDF:
		content, pages, err = a.pdfOCR(ctx, log, doc.Data)
	case document.KindImage:
		content, err = a.imageOCR(ctx, log, doc.Data)
		pages = 1
	case document.KindWord:
		return nil, fmt.Errorf("%w: no optical path for %s documents", ErrExtractionFailed, doc.Kind)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, doc.Kind)
	}

	if err != nil {
		return nil, err
	}

	return a.finish(log, doc, content, MethodOCR, pages)
}

func (a *Acquirer) finish(log *zap.Logger, doc *document.Document, content string, method Method, pages int) (*Text, error) {
	content = strings.ToLower(content)
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: %s (%s)", ErrExtractionFailed, doc.ID, doc.Kind)
	}

	text := &Text{Content: content, Method: method, Pages: pages}
	text.LowConfidence = text.Len() < a.minTextLength

	log.Debug("text acquired",
		zap.String("method", string(method)),
		zap.Int("length", text.Len()),
		zap.Bool("low_confidence", text.LowConfidence),
		zap.String("preview", utils.TruncateForLog(utils.CollapseSpaces(content), 80)),
	)

	return text, nil
}

func (a *Acquirer) pdfTextLayer(ctx context.Context, log *zap.Logger, data []byte) (string, int, error) {
	if a.pdf == nil {
		return "", 0, nil
	}

	pages, err := a.pdf.PageTexts(ctx, data)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", 0, ctxErr
		}
		log.Debug("pdf text layer extraction failed", zap.Error(err))
		return "", 0, nil
	}

	return strings.Join(pages, "\n"), len(pages), nil
}

func (a *Acquirer) pdfOCR(ctx context.Context, log *zap.Logger, data []byte) (string, int, error) {
	if a.raster == nil || a.ocr == nil {
		log.Debug("ocr path unavailable", zap.Bool("rasterizer", a.raster != nil), zap.Bool("ocr", a.ocr != nil))
		return "", 0, nil
	}

	images, err := a.raster.Rasterize(ctx, data)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", 0, ctxErr
		}
		log.Debug("pdf rasterization failed", zap.Error(err))
		return "", 0, nil
	}

	parts := make([]string, 0, len(images))
	pages := make(map[int]struct{}, len(images))
	for _, img := range images {
		pages[img.Page] = struct{}{}

		// Checkpoint between pages: OCR is the expensive part.
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}

		text, err := a.recognize(ctx, img)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", 0, ctxErr
			}
			log.Debug("page ocr failed", zap.Int("page", img.Page), zap.Error(err))
			continue
		}
		parts = append(parts, text)
	}

	// A page scanned as strips holds several images.
	return strings.Join(parts, "\n"), len(pages), nil
}

func (a *Acquirer) imageOCR(ctx context.Context, log *zap.Logger, data []byte) (string, error) {
	if a.ocr == nil {
		log.Debug("ocr path unavailable")
		return "", nil
	}

	text, err := a.recognize(ctx, Image{Data: data})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		log.Debug("image ocr failed", zap.Error(err))
		return "", nil
	}

	return text, nil
}

func (a *Acquirer) recognize(ctx context.Context, img Image) (string, error) {
	normalized, err := NormalizeImage(img)
	if err != nil {
		return "", err
	}
	return a.ocr.Recognize(ctx, normalized)
}

func (a *Acquirer) wordText(ctx context.Context, log *zap.Logger, data []byte) (string, error) {
	if a.word == nil {
		return "", nil
	}

	text, err := a.word.Text(ctx, data)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		log.Debug("word text extraction failed", zap.Error(err))
		return "", nil
	}

	return text, nil
}
