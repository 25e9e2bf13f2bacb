package transform

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/hajimehoshi/bitmapfont/v2"
	"github.com/jypelle/papier/apimodel"
	"github.com/jypelle/papier/internal/srv/media"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const (
	RotateKind  = "rotate"
	FitKind     = "fit"
	CaptionKind = "caption"
	FuncKind    = "func"
)

// Rotate turns the image counter-clockwise by the configured angle plus the image "rotation" metadata.
type Rotate struct {
	*Base
}

var RotateSchema = Schema{"angle": NumberField}

func NewRotate(id string, description string, active bool) *Rotate {
	return &Rotate{Base: NewBase(id, RotateKind, description, active, RotateSchema)}
}

func (r *Rotate) Transform(img *media.Image) (*media.Image, error) {
	angle := r.number("angle", 0)
	if rotation, ok := img.Float("rotation"); ok {
		angle += rotation
	}
	angle = math.Mod(angle, 360)
	if angle < 0 {
		angle += 360
	}
	if angle == 0 {
		return img, nil
	}

	pixels, err := img.Decode()
	if err != nil {
		return nil, err
	}
	var rotated image.Image
	switch angle {
	case 90:
		rotated = imaging.Rotate90(pixels)
	case 180:
		rotated = imaging.Rotate180(pixels)
	case 270:
		rotated = imaging.Rotate270(pixels)
	default:
		rotated = imaging.Rotate(pixels, angle, color.White)
	}
	return media.Encode(img, rotated)
}

// Fit scales the image into a width x height box, keeping its aspect ratio on a white background.
type Fit struct {
	*Base
}

var FitSchema = Schema{"width": NumberField, "height": NumberField}

// MaxFitSide bounds each side of the fit box.
const MaxFitSide = 8192

func NewFit(id string, description string, active bool) *Fit {
	return &Fit{Base: NewBase(id, FitKind, description, active, FitSchema)}
}

func (f *Fit) Configure(configuration Configuration) error {
	for _, key := range []string{"width", "height"} {
		if v, ok := configuration[key]; ok {
			if n, isNumber := media.AsFloat(v); isNumber && (n < 1 || n > MaxFitSide) {
				return apimodel.InvalidArgumentf("configuration key %q must be between 1 and %d", key, MaxFitSide)
			}
		}
	}
	return f.Base.Configure(configuration)
}

func (f *Fit) Transform(img *media.Image) (*media.Image, error) {
	width := int(f.number("width", 0))
	height := int(f.number("height", 0))
	if width < 1 || height < 1 {
		return img, nil
	}
	if width > MaxFitSide || height > MaxFitSide {
		return nil, apimodel.InvalidArgumentf("fit box %dx%d larger than %d", width, height, MaxFitSide)
	}

	pixels, err := img.Decode()
	if err != nil {
		return nil, err
	}
	return media.Encode(img, media.Scale(pixels, image.Rect(0, 0, width, height), color.White))
}

// Caption writes a one line label at the bottom of the image. The label is the configured text,
// or the image "caption" metadata.
type Caption struct {
	*Base
}

var CaptionSchema = Schema{"text": StringField}

func NewCaption(id string, description string, active bool) *Caption {
	return &Caption{Base: NewBase(id, CaptionKind, description, active, CaptionSchema)}
}

func (c *Caption) Transform(img *media.Image) (*media.Image, error) {
	text := c.text("text")
	if text == "" {
		text, _ = img.MetadataString("caption")
	}
	if text == "" {
		return img, nil
	}

	pixels, err := img.Decode()
	if err != nil {
		return nil, err
	}
	bounds := pixels.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, pixels, bounds.Min, draw.Src)

	metrics := bitmapfont.Face.Metrics()
	band := image.Rect(bounds.Min.X, bounds.Max.Y-metrics.Height.Ceil()-2, bounds.Max.X, bounds.Max.Y)
	draw.Draw(dst, band, image.White, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.Black,
		Face: bitmapfont.Face,
	}
	x := bounds.Min.X + (bounds.Dx()-d.MeasureString(text).Ceil())/2
	if x < bounds.Min.X {
		x = bounds.Min.X
	}
	d.Dot = fixed.P(x, bounds.Max.Y-1-metrics.Descent.Ceil())
	d.DrawString(text)

	return media.Encode(img, dst)
}

// Func adapts a plain function. It has no configuration.
type Func struct {
	*Base
	fn func(img *media.Image) (*media.Image, error)
}

func NewFunc(id string, active bool, fn func(img *media.Image) (*media.Image, error)) *Func {
	return &Func{Base: NewBase(id, FuncKind, "", active, Schema{}), fn: fn}
}

func (f *Func) Transform(img *media.Image) (*media.Image, error) {
	return f.fn(img)
}
