// Package mediatest builds small decodable images for tests.
package mediatest

import (
	"bytes"
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/jypelle/papier/internal/srv/media"
)

// PNG returns a 8x4 opaque PNG image whose color derives from id, so that two ids give different bytes.
func PNG(id string, metadata media.Metadata) *media.Image {
	h := fnv.New32a()
	h.Write([]byte(id))
	sum := h.Sum32()

	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	c := color.RGBA{R: uint8(sum), G: uint8(sum >> 8), B: uint8(sum >> 16), A: 255}
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return media.New(id, media.PNG, buf.Bytes(), metadata)
}
