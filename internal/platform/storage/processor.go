// Package storage holds the object storage mirror of uploaded files and the
// thumbnail generator for gallery images.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // gif decoding
	"image/jpeg"
	"image/png"
	"io"

	_ "golang.org/x/image/bmp" // bmp decoding
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // webp decoding
)

// DefaultThumbnailSize is the edge of the box thumbnails are fitted into.
const DefaultThumbnailSize = 150

// ErrUnsupportedImage is returned for data no registered decoder accepts.
var ErrUnsupportedImage = errors.New("unsupported image format")

// Thumbnail is an encoded thumbnail image.
type Thumbnail struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
}

// ImageProcessor scales images down to thumbnails.
type ImageProcessor struct {
	maxWidth  int
	maxHeight int
	quality   int
}

// NewImageProcessor creates a processor fitting thumbnails into a
// maxWidth x maxHeight box at the given JPEG quality.
func NewImageProcessor(maxWidth, maxHeight, quality int) *ImageProcessor {
	if maxWidth <= 0 {
		maxWidth = DefaultThumbnailSize
	}
	if maxHeight <= 0 {
		maxHeight = DefaultThumbnailSize
	}
	if quality <= 0 || quality > 100 {
		quality = 85
	}

	return &ImageProcessor{
		maxWidth:  maxWidth,
		maxHeight: maxHeight,
		quality:   quality,
	}
}

// GenerateThumbnail decodes data and returns it scaled to fit the box while
// keeping its aspect ratio. Images are never upscaled. PNG and GIF sources
// produce PNG so transparency survives; everything else becomes JPEG.
func (p *ImageProcessor) GenerateThumbnail(ctx context.Context, data io.Reader) (*Thumbnail, error) {
	if data == nil {
		return nil, errors.New("data cannot be nil")
	}

	src, format, err := image.Decode(data)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedImage
		}
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := src.Bounds()
	w, h := p.CalculateOptimalThumbnailSize(b.Dx(), b.Dy())

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	thumb := &Thumbnail{Width: w, Height: h}
	var buf bytes.Buffer
	switch format {
	case "png", "gif":
		thumb.ContentType = "image/png"
		err = png.Encode(&buf, dst)
	default:
		thumb.ContentType = "image/jpeg"
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: p.quality})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	thumb.Data = buf.Bytes()
	return thumb, nil
}

// CalculateOptimalThumbnailSize fits srcWidth x srcHeight into the box.
func (p *ImageProcessor) CalculateOptimalThumbnailSize(srcWidth, srcHeight int) (int, int) {
	if srcWidth <= 0 || srcHeight <= 0 {
		return p.maxWidth, p.maxHeight
	}

	scale := min(float64(p.maxWidth)/float64(srcWidth), float64(p.maxHeight)/float64(srcHeight), 1.0)

	return max(1, int(float64(srcWidth)*scale)), max(1, int(float64(srcHeight)*scale))
}
