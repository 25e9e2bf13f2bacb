package transform

import (
	"strconv"
	"testing"

	"github.com/jypelle/papier/apimodel"
	"github.com/jypelle/papier/internal/srv/event"
	"github.com/jypelle/papier/internal/srv/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identity(id string) Transformer {
	return NewFunc(id, true, func(img *media.Image) (*media.Image, error) { return img, nil })
}

func ids(s *Sequence) []string {
	var result []string
	for _, t := range s.All() {
		result = append(result, t.Id())
	}
	return result
}

func newSequence(t *testing.T, ids ...string) *Sequence {
	t.Helper()
	s, err := NewSequence()
	require.NoError(t, err)
	for _, id := range ids {
		require.NoError(t, s.Add(identity(id)))
	}
	return s
}

func TestSequencePositionClamp(t *testing.T) {
	s := newSequence(t, "a", "b", "c")

	require.NoError(t, s.SetPosition("a", 10_000))
	position, err := s.Position("a")
	require.NoError(t, err)
	assert.Equal(t, 2, position)
	assert.Equal(t, []string{"b", "c", "a"}, ids(s))

	assert.ErrorIs(t, s.SetPosition("a", -1), apimodel.ErrInvalidArgument)
	position, err = s.Position("a")
	require.NoError(t, err)
	assert.Equal(t, 2, position)

	assert.ErrorIs(t, s.SetPosition("z", 0), apimodel.ErrNotFound)
	_, err = s.Position("z")
	assert.ErrorIs(t, err, apimodel.ErrNotFound)

	require.NoError(t, s.SetPosition("c", 1))
	assert.Equal(t, []string{"b", "c", "a"}, ids(s), "moving to its own position changes nothing")
	require.NoError(t, s.SetPosition("a", 0))
	assert.Equal(t, []string{"a", "b", "c"}, ids(s))
}

func TestSequenceAdd(t *testing.T) {
	s := newSequence(t, "a", "b")
	var events []SequenceEvent
	require.NoError(t, s.AddListener(event.ListenerFunc(func(ev SequenceEvent) error {
		events = append(events, ev)
		return nil
	}), AddEvent))

	assert.ErrorIs(t, s.Add(identity("a")), apimodel.ErrAlreadyExists)
	assert.ErrorIs(t, s.AddAt(identity("x"), -1), apimodel.ErrInvalidArgument)
	require.NoError(t, s.AddAt(identity("first"), 0))
	require.NoError(t, s.AddAt(identity("last"), 99))

	assert.Equal(t, []string{"first", "a", "b", "last"}, ids(s))
	require.Len(t, events, 2)
	assert.Equal(t, 0, events[0].Position)
	assert.Equal(t, 3, events[1].Position, "resolved position is reported")
	assert.Equal(t, 4, s.Len())
	assert.True(t, s.Contains("b"))
	assert.Equal(t, "a", s.At(1).Id())
	assert.Nil(t, s.Get("x"))
}

func TestSequenceRemoveAlwaysEmits(t *testing.T) {
	s := newSequence(t, "a")
	var events []SequenceEvent
	require.NoError(t, s.AddListener(event.ListenerFunc(func(ev SequenceEvent) error {
		events = append(events, ev)
		return nil
	}), RemoveEvent))

	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))

	require.Len(t, events, 2)
	assert.True(t, events[0].Removed)
	assert.Equal(t, "a", events[0].Transformer.Id())
	assert.False(t, events[1].Removed)
	assert.Equal(t, "a", events[1].TransformerId)
	assert.Zero(t, s.Len())
}

func TestApplyRunsActiveTransformersInOrder(t *testing.T) {
	var log []int
	s, err := NewSequence()
	require.NoError(t, err)
	active := []bool{true, false, true, true, false, true}
	for i, isActive := range active {
		i := i
		require.NoError(t, s.Add(NewFunc(strconv.Itoa(i), isActive, func(img *media.Image) (*media.Image, error) {
			log = append(log, i)
			return img.WithMetadata("last", i), nil
		})))
	}

	out, err := Apply(s.Snapshot(), media.New("img", media.PNG, nil, nil))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 3, 5}, log)
	last, _ := out.Float("last")
	assert.Equal(t, 5.0, last)
}

func TestInstallBuildsListenableTransformers(t *testing.T) {
	s := newSequence(t, "a")
	require.NoError(t, s.Install(Spec{Id: "rot", Kind: RotateKind, Active: true, Configuration: Configuration{"angle": 90}}, 0))

	assert.ErrorIs(t, s.Install(Spec{Id: "bad", Kind: "blur"}, End), apimodel.ErrInvalidArgument)
	assert.ErrorIs(t, s.Install(Spec{Id: "rot", Kind: RotateKind}, End), apimodel.ErrAlreadyExists)

	rot, err := s.Transformer("rot")
	require.NoError(t, err)
	require.IsType(t, &ListenableTransformer{}, rot)
	assert.Equal(t, RotateKind, rot.Kind())

	infos := Describe(s.Snapshot())
	require.Len(t, infos, 2)
	assert.Equal(t, "rot", infos[0].TransformerId)
	assert.Equal(t, 1, infos[1].Position)

	removed, err := s.Uninstall("rot")
	require.NoError(t, err)
	assert.True(t, removed)
}
