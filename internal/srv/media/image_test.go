package media

import (
	"bytes"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"testing"

	"github.com/jypelle/papier/apimodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImageEqual(t *testing.T) {
	a := New("a", PNG, []byte{1, 2, 3}, Metadata{"rotation": 90})
	b := New("a", PNG, []byte{1, 2, 3}, Metadata{"rotation": 90.0})

	assert.True(t, a.Equal(b), "equality is by value")
	assert.False(t, a.Equal(New("b", PNG, []byte{1, 2, 3}, Metadata{"rotation": 90})))
	assert.False(t, a.Equal(New("a", PNG, []byte{1, 2, 4}, Metadata{"rotation": 90})))
	assert.False(t, a.Equal(New("a", PNG, []byte{1, 2, 3}, Metadata{"rotation": 180})))
	assert.False(t, a.Equal(nil))

	var none *Image
	assert.True(t, none.Equal(nil))
}

func TestImageEqualFailsOnUnreadableData(t *testing.T) {
	broken := NewLazy("a", PNG, func() ([]byte, error) { return nil, errors.New("gone") }, nil)
	assert.False(t, broken.Equal(New("a", PNG, nil, nil)))
}

func TestImageIsImmutable(t *testing.T) {
	data := []byte{1, 2, 3}
	metadata := Metadata{"rotation": 90}
	img := New("a", PNG, data, metadata)

	data[0] = 9
	metadata["rotation"] = 0
	img.Metadata()["rotation"] = 45

	got, err := img.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)
	rotation, ok := img.Float("rotation")
	require.True(t, ok)
	assert.Equal(t, 90.0, rotation)

	rotated := img.WithMetadata("rotation", 180)
	rotation, _ = rotated.Float("rotation")
	assert.Equal(t, 180.0, rotation)
	rotation, _ = img.Float("rotation")
	assert.Equal(t, 90.0, rotation)
}

func TestPayloadRoundTripThroughJSON(t *testing.T) {
	img := New("photo", WEBP, []byte("bytes"), Metadata{"rotation": 270, "tags": map[string]interface{}{"a": "b"}})
	payload, err := img.Payload()
	require.NoError(t, err)

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"image_type":"WEBP"`)

	var decoded Payload
	require.NoError(t, json.Unmarshal(raw, &decoded))
	back := decoded.Image()
	assert.True(t, img.Equal(back))
	assert.Equal(t, WEBP, back.Type())
}

func TestMimeTypesAreABijection(t *testing.T) {
	seen := map[string]bool{}
	for _, typ := range Types {
		mimeType := typ.MimeType()
		require.NotEmpty(t, mimeType)
		require.False(t, seen[mimeType])
		seen[mimeType] = true

		back, err := TypeFromMime(mimeType)
		require.NoError(t, err)
		assert.Equal(t, typ, back)
	}
	assert.Len(t, seen, 4)

	_, err := TypeFromMime("text/plain")
	assert.ErrorIs(t, err, apimodel.ErrInvalidArgument)

	typ, err := TypeFromMime("image/jpeg; charset=binary")
	require.NoError(t, err)
	assert.Equal(t, JPG, typ)
}

func TestParseType(t *testing.T) {
	typ, err := ParseType("jpeg")
	require.NoError(t, err)
	assert.Equal(t, JPG, typ)

	_, err = ParseType("gif")
	assert.ErrorIs(t, err, apimodel.ErrInvalidArgument)

	typ, err = TypeFromExtension(".PNG")
	require.NoError(t, err)
	assert.Equal(t, PNG, typ)
}

func TestEncodeDecode(t *testing.T) {
	src := New("pic", PNG, testPNG(t, 4, 2), Metadata{"caption": "x"})
	pixels, err := src.Decode()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 2), pixels.Bounds())

	detected, err := DetectType(testPNG(t, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, PNG, detected)

	asBmp := New("pic", BMP, nil, nil)
	encoded, err := Encode(asBmp, pixels)
	require.NoError(t, err)
	assert.Equal(t, BMP, encoded.Type())
	decoded, err := encoded.Decode()
	require.NoError(t, err)
	assert.Equal(t, pixels.Bounds(), decoded.Bounds())

	asWebp := New("pic", WEBP, nil, Metadata{"caption": "x"})
	encoded, err = Encode(asWebp, pixels)
	require.NoError(t, err)
	assert.Equal(t, PNG, encoded.Type())
	caption, _ := encoded.MetadataString("caption")
	assert.Equal(t, "x", caption)
}
