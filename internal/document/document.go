package document

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Kind is the caller-declared encoding of a document.
type Kind string

const (
	KindPDF   Kind = "pdf"
	KindWord  Kind = "word"
	KindImage Kind = "image"
)

// ErrUnknownKind is returned when a declared kind or a file cannot be mapped to a Kind.
var ErrUnknownKind = errors.New("unknown document kind")

var aliases = map[string]Kind{
	"pdf":   KindPDF,
	"word":  KindWord,
	"docx":  KindWord,
	"odt":   KindWord,
	"image": KindImage,
	"png":   KindImage,
	"jpg":   KindImage,
	"jpeg":  KindImage,
	"tif":   KindImage,
	"tiff":  KindImage,
	"bmp":   KindImage,
	"webp":  KindImage,
}

// Document is a single input file handed to the screening core.
type Document struct {
	ID   string
	Kind Kind
	Data []byte
}

// New builds a document from raw bytes and a declared kind string.
func New(id string, data []byte, kind string) (*Document, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return nil, err
	}

	return &Document{ID: id, Kind: k, Data: data}, nil
}

func (d *Document) Len() int {
	return len(d.Data)
}

// ParseKind maps a declared kind (or a bare file extension) to a Kind.
func ParseKind(s string) (Kind, error) {
	key := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")
	if kind, ok := aliases[key]; ok {
		return kind, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Kinds returns the accepted declared kind strings.
func Kinds() map[string]Kind {
	out := make(map[string]Kind, len(aliases))
	for k, v := range aliases {
		out[k] = v
	}
	return out
}

// DetectKind derives a kind from a file name, falling back to content sniffing
// when the extension says nothing useful.
func DetectKind(name string, data []byte) (Kind, error) {
	if ext := filepath.Ext(name); ext != "" {
		if kind, err := ParseKind(ext); err == nil {
			return kind, nil
		}
	}

	mtype := mimetype.Detect(data)
	switch {
	case mtype.Is("application/pdf"):
		return KindPDF, nil
	case mtype.Is("application/vnd.openxmlformats-officedocument.wordprocessingml.document"),
		mtype.Is("application/vnd.oasis.opendocument.text"):
		return KindWord, nil
	case strings.HasPrefix(mtype.String(), "image/"):
		return KindImage, nil
	}

	return "", fmt.Errorf("%w: %s (%s)", ErrUnknownKind, name, mtype.String())
}
