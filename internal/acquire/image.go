package acquire

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// NormalizeImage makes sure an image is PNG or JPEG, the two formats every OCR
// backend accepts. Other decodable formats (tiff scans, bmp, webp, gif) are
// re-encoded as PNG.
func NormalizeImage(img Image) (Image, error) {
	if len(img.Data) == 0 {
		return img, errors.New("empty image")
	}

	mtype := mimetype.Detect(img.Data).String()
	switch mtype {
	case "image/png", "image/jpeg":
		img.MIMEType = mtype
		return img, nil
	}

	decoded, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return img, fmt.Errorf("decoding %s image: %w", mtype, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, decoded); err != nil {
		return img, fmt.Errorf("encoding png: %w", err)
	}

	return Image{Data: buf.Bytes(), MIMEType: "image/png", Page: img.Page}, nil
}
