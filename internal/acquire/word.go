package acquire

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	docxBody = "word/document.xml"
	odtBody  = "content.xml"
)

// WordText extracts paragraphs from docx and odt archives.
type WordText struct{}

func (WordText) Text(ctx context.Context, data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}

	for _, f := range zr.File {
		switch f.Name {
		case docxBody:
			return readArchiveXML(ctx, f, docxCollector{})
		case odtBody:
			return readArchiveXML(ctx, f, odtCollector{})
		}
	}

	return "", errors.New("archive has neither word/document.xml nor content.xml")
}

// collector decides which character data belongs to the visible text.
type collector interface {
	// inText reports whether character data under the element stack is document text.
	inText(stack []string) bool
	// paragraph reports whether closing the element ends a line.
	paragraph(name string) bool
}

type docxCollector struct{}

func (docxCollector) inText(stack []string) bool {
	return len(stack) > 0 && stack[len(stack)-1] == "t"
}

func (docxCollector) paragraph(name string) bool {
	return name == "p"
}

type odtCollector struct{}

func (odtCollector) inText(stack []string) bool {
	for _, name := range stack {
		if name == "p" || name == "h" {
			return true
		}
	}
	return false
}

func (odtCollector) paragraph(name string) bool {
	return name == "p" || name == "h"
}

func readArchiveXML(ctx context.Context, f *zip.File, c collector) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)

	var (
		sb    strings.Builder
		stack []string
	)

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", f.Name, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name.Local)
			switch t.Name.Local {
			case "tab":
				sb.WriteByte('\t')
			case "br", "line-break":
				sb.WriteByte('\n')
			case "s":
				sb.WriteByte(' ')
			}
		case xml.CharData:
			if c.inText(stack) {
				sb.Write(t)
			}
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if c.paragraph(t.Name.Local) {
				sb.WriteByte('\n')
			}
		}
	}

	return strings.TrimSpace(sb.String()), nil
}
