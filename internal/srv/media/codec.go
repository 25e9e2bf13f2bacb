package media

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Decode turns the image bytes into pixels with the decoder matching its content.
func (i *Image) Decode() (image.Image, error) {
	data, err := i.read()
	if err != nil {
		return nil, fmt.Errorf("unable to read image %s: %w", i.id, err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unable to decode image %s: %w", i.id, err)
	}
	return img, nil
}

// Encode builds a copy of src holding pixels. WEBP has no encoder and is re-encoded as PNG.
func Encode(src *Image, pixels image.Image) (*Image, error) {
	var buf bytes.Buffer
	imageType := src.imageType
	var err error
	switch imageType {
	case JPG:
		err = jpeg.Encode(&buf, pixels, &jpeg.Options{Quality: 95})
	case BMP:
		err = bmp.Encode(&buf, pixels)
	default:
		imageType = PNG
		err = png.Encode(&buf, pixels)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to encode image %s as %s: %w", src.id, imageType, err)
	}
	return src.WithData(imageType, buf.Bytes()), nil
}

// DetectType sniffs the format of raw image bytes.
func DetectType(data []byte) (Type, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return UnknownType, fmt.Errorf("unable to detect image format: %w", err)
	}
	return ParseType(format)
}

// Scale fits pixels into bounds keeping the aspect ratio, centered over background.
func Scale(pixels image.Image, bounds image.Rectangle, background color.Color) *image.RGBA {
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, image.NewUniform(background), image.Point{}, draw.Src)

	src := pixels.Bounds()
	if src.Empty() || bounds.Empty() {
		return dst
	}
	w, h := bounds.Dx(), src.Dy()*bounds.Dx()/src.Dx()
	if h > bounds.Dy() {
		w, h = src.Dx()*bounds.Dy()/src.Dy(), bounds.Dy()
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	x := bounds.Min.X + (bounds.Dx()-w)/2
	y := bounds.Min.Y + (bounds.Dy()-h)/2
	draw.CatmullRom.Scale(dst, image.Rect(x, y, x+w, y+h), pixels, src, draw.Over, nil)
	return dst
}
