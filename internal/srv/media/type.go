package media

import (
	"fmt"
	"mime"
	"strings"

	"github.com/jypelle/papier/apimodel"
)

type Type int

const (
	UnknownType Type = iota
	BMP
	JPG
	PNG
	WEBP
)

var Types = []Type{BMP, JPG, PNG, WEBP}

var typeNames = map[Type]string{
	BMP:  "BMP",
	JPG:  "JPG",
	PNG:  "PNG",
	WEBP: "WEBP",
}

var mimeTypes = map[Type]string{
	BMP:  "image/bmp",
	JPG:  "image/jpeg",
	PNG:  "image/png",
	WEBP: "image/webp",
}

var extensions = map[string]Type{
	".bmp":  BMP,
	".jpg":  JPG,
	".jpeg": JPG,
	".png":  PNG,
	".webp": WEBP,
}

var typesByMime = make(map[string]Type)

func init() {
	for _, t := range Types {
		mimeType, ok := mimeTypes[t]
		if !ok {
			panic(fmt.Sprintf("no mime type for image type %d", t))
		}
		if _, dup := typesByMime[mimeType]; dup {
			panic(fmt.Sprintf("mime type %s mapped twice", mimeType))
		}
		typesByMime[mimeType] = t
	}
	if len(typesByMime) != len(mimeTypes) {
		panic("mime types are not a bijection of image types")
	}
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

func (t Type) MimeType() string {
	return mimeTypes[t]
}

func (t Type) Extension() string {
	switch t {
	case BMP:
		return ".bmp"
	case JPG:
		return ".jpg"
	case PNG:
		return ".png"
	case WEBP:
		return ".webp"
	default:
		return ""
	}
}

func (t Type) MarshalText() ([]byte, error) {
	if _, ok := typeNames[t]; !ok {
		return nil, apimodel.InvalidArgumentf("unknown image type %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(text []byte) error {
	parsed, err := ParseType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func ParseType(name string) (Type, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "BMP":
		return BMP, nil
	case "JPG", "JPEG":
		return JPG, nil
	case "PNG":
		return PNG, nil
	case "WEBP":
		return WEBP, nil
	}
	return UnknownType, apimodel.InvalidArgumentf("unknown image type %q", name)
}

func TypeFromMime(contentType string) (Type, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return UnknownType, apimodel.InvalidArgumentf("malformed content type %q", contentType)
	}
	t, ok := typesByMime[mediaType]
	if !ok {
		return UnknownType, apimodel.InvalidArgumentf("unsupported content type %q", mediaType)
	}
	return t, nil
}

func TypeFromExtension(ext string) (Type, error) {
	t, ok := extensions[strings.ToLower(ext)]
	if !ok {
		return UnknownType, apimodel.InvalidArgumentf("unsupported file extension %q", ext)
	}
	return t, nil
}
