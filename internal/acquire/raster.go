package acquire

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageImages pulls the page images out of a PDF with pdfcpu. Scanned documents
// carry one full-page image per page, which is what OCR needs.
type PageImages struct{}

func (PageImages) Rasterize(ctx context.Context, data []byte) ([]Image, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pages, err := api.ExtractImagesRaw(bytes.NewReader(data), nil, conf)
	if err != nil {
		return nil, fmt.Errorf("pdfcpu extract images: %w", err)
	}

	var images []Image
	for _, page := range pages {
		objNrs := make([]int, 0, len(page))
		for nr := range page {
			objNrs = append(objNrs, nr)
		}
		sort.Ints(objNrs)

		for _, nr := range objNrs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			img := page[nr]
			if img.Reader == nil {
				continue
			}

			raw, err := io.ReadAll(img)
			if err != nil {
				return nil, fmt.Errorf("reading image %d on page %d: %w", nr, img.PageNr, err)
			}
			if len(raw) == 0 {
				continue
			}

			images = append(images, Image{Data: raw, Page: img.PageNr})
		}
	}

	sort.SliceStable(images, func(i, j int) bool {
		return images[i].Page < images[j].Page
	})

	return images, nil
}
