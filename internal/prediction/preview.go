package prediction

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"

	"github.com/abelzeko/dengue-watch/internal/entities"
)

// PreviewSize bounds the longer side of a stored preview
const PreviewSize = 320

// Preview renders the upload as a data URI for display. Images larger than
// maxSide on either side are scaled down keeping their aspect ratio
func Preview(img entities.UploadedImage, maxSide int) (string, error) {
	src, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", img.Filename, err)
	}

	b := src.Bounds()
	if w, h := b.Dx(), b.Dy(); maxSide > 0 && (w > maxSide || h > maxSide) {
		sw, sh := maxSide, maxSide
		if w >= h {
			sh = max(1, h*maxSide/w)
		} else {
			sw = max(1, w*maxSide/h)
		}
		dst := image.NewRGBA(image.Rect(0, 0, sw, sh))
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
		src = dst
	}

	var buf bytes.Buffer
	mime := "image/png"
	if img.Format == "jpeg" {
		mime = "image/jpeg"
		err = jpeg.Encode(&buf, src, &jpeg.Options{Quality: 80})
	} else {
		err = png.Encode(&buf, src)
	}
	if err != nil {
		return "", fmt.Errorf("failed to encode preview of %s: %w", img.Filename, err)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
