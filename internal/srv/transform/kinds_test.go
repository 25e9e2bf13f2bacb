package transform

import (
	"image"
	"testing"

	"github.com/jypelle/papier/apimodel"
	"github.com/jypelle/papier/internal/srv/event"
	"github.com/jypelle/papier/internal/srv/media"
	"github.com/jypelle/papier/internal/srv/media/mediatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bounds(t *testing.T, img *media.Image) image.Rectangle {
	t.Helper()
	pixels, err := img.Decode()
	require.NoError(t, err)
	return pixels.Bounds()
}

func TestRotateAddsImageRotation(t *testing.T) {
	r := NewRotate("rot", "", true)
	src := mediatest.PNG("a", nil)

	out, err := r.Transform(src)
	require.NoError(t, err)
	assert.Same(t, src, out, "zero angle keeps the image")

	require.NoError(t, r.Configure(Configuration{"angle": 90}))
	out, err = r.Transform(src)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 8), bounds(t, out))

	out, err = r.Transform(mediatest.PNG("a", media.Metadata{"rotation": 270}))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 4), bounds(t, out))
	assert.Equal(t, "a", out.Id())
}

func TestFit(t *testing.T) {
	f := NewFit("fit", "", true)
	assert.ErrorIs(t, f.Configure(Configuration{"width": 0}), apimodel.ErrInvalidArgument)
	require.NoError(t, f.Configure(Configuration{"width": 20, "height": 20}))

	out, err := f.Transform(mediatest.PNG("a", nil))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 20), bounds(t, out))
}

func TestFitRejectsOversizedBox(t *testing.T) {
	f := NewFit("fit", "", true)
	require.NoError(t, f.Configure(Configuration{"width": MaxFitSide, "height": 20}))

	assert.ErrorIs(t, f.Configure(Configuration{"width": 1e9, "height": 1e9}), apimodel.ErrInvalidArgument)
	assert.ErrorIs(t, f.Configure(Configuration{"height": MaxFitSide + 1}), apimodel.ErrInvalidArgument)
	assert.EqualValues(t, 20, f.Configuration()["height"])

	_, err := Build(Spec{Id: "fit", Kind: FitKind, Configuration: Configuration{"width": 1e9, "height": 1e9}})
	assert.ErrorIs(t, err, apimodel.ErrInvalidArgument)
}

func TestCaptionUsesMetadataFallback(t *testing.T) {
	c := NewCaption("cap", "", true)
	src := mediatest.PNG("a", nil)

	out, err := c.Transform(src)
	require.NoError(t, err)
	assert.Same(t, src, out)

	captioned := mediatest.PNG("a", media.Metadata{"caption": "hi"})
	out, err = c.Transform(captioned)
	require.NoError(t, err)
	assert.False(t, captioned.Equal(out))
	assert.Equal(t, image.Rect(0, 0, 8, 4), bounds(t, out))
}

func TestSchemaValidation(t *testing.T) {
	r := NewRotate("rot", "", true)
	assert.ErrorIs(t, r.Configure(Configuration{"speed": 1}), apimodel.ErrInvalidArgument)
	assert.ErrorIs(t, r.Configure(Configuration{"angle": "90"}), apimodel.ErrInvalidArgument)
	assert.Empty(t, r.Configuration(), "a rejected configuration leaves the previous one")

	c := NewCaption("cap", "", true)
	assert.ErrorIs(t, c.Configure(Configuration{"text": 3}), apimodel.ErrInvalidArgument)

	_, err := Build(Spec{Id: "fit", Kind: FitKind, Configuration: Configuration{"width": "wide"}})
	assert.ErrorIs(t, err, apimodel.ErrInvalidArgument)
	_, err = Build(Spec{Kind: FitKind})
	assert.ErrorIs(t, err, apimodel.ErrInvalidArgument)

	built, err := Build(Spec{Id: "cap", Kind: CaptionKind, Active: true, Description: "label", Configuration: Configuration{"text": "x"}})
	require.NoError(t, err)
	assert.Equal(t, Spec{Id: "cap", Kind: CaptionKind, Active: true, Description: "label", Configuration: Configuration{"text": "x"}}, SpecOf(built))
}

func TestListenableTransformerEmitsOnChange(t *testing.T) {
	lt := NewListenableTransformer(NewRotate("rot", "", false))
	var events []TransformerEvent
	listener := event.ListenerFunc(func(ev TransformerEvent) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, lt.AddListener(listener, ActivateEvent))
	require.NoError(t, lt.AddListener(listener, ConfigureEvent))

	require.NoError(t, lt.SetActive(false))
	require.NoError(t, lt.SetActive(true))
	require.NoError(t, lt.Configure(Configuration{"angle": 90}))
	require.NoError(t, lt.Configure(Configuration{"angle": 90}))
	assert.Error(t, lt.Configure(Configuration{"nope": true}))

	require.Len(t, events, 2)
	assert.Equal(t, ActivateEvent, events[0].Kind)
	assert.True(t, events[0].Active)
	assert.Equal(t, ConfigureEvent, events[1].Kind)
	assert.Equal(t, Configuration{"angle": 90}, events[1].Configuration)
}
