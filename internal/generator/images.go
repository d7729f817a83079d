package generator

import (
	"bytes"
	"context"
	"fmt"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/kingrea/field-audit/internal/audit"
)

const jpegQuality = 85

// imagePart is one decoded photo ready to upload.
type imagePart struct {
	MIMEType string
	Data     []byte
}

// prepareImages decodes every photo of every observation, in order, scaling
// down anything whose longest edge exceeds maxPx. maxPx <= 0 disables scaling.
func prepareImages(ctx context.Context, observations []audit.Observation, maxPx int) ([]imagePart, error) {
	var urls []string
	for _, obs := range observations {
		urls = append(urls, obs.Images...)
	}
	parts := make([]imagePart, len(urls))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, url := range urls {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			mimeType, data, err := audit.ParseDataURL(url)
			if err != nil {
				return fmt.Errorf("generator: image %d: %w", i+1, err)
			}
			parts[i] = downscale(imagePart{MIMEType: mimeType, Data: data}, maxPx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parts, nil
}

// downscale re-encodes an oversized photo as JPEG. Photos that are small
// enough, or that imaging cannot decode, are passed through untouched.
func downscale(part imagePart, maxPx int) imagePart {
	if maxPx <= 0 {
		return part
	}
	img, err := imaging.Decode(bytes.NewReader(part.Data), imaging.AutoOrientation(true))
	if err != nil {
		return part
	}
	bounds := img.Bounds()
	if bounds.Dx() <= maxPx && bounds.Dy() <= maxPx {
		return part
	}
	resized := imaging.Fit(img, maxPx, maxPx, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return part
	}
	return imagePart{MIMEType: "image/jpeg", Data: buf.Bytes()}
}
