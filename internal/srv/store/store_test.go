package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jypelle/papier/apimodel"
	"github.com/jypelle/papier/internal/srv/event"
	"github.com/jypelle/papier/internal/srv/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	jsonl, err := OpenJSONLinesManifest(filepath.Join(dir, "jsonl", "manifest.jsonl"))
	require.NoError(t, err)
	jsonlBlobs, err := NewFileBlobs(filepath.Join(dir, "jsonl", "blobs"))
	require.NoError(t, err)

	bdg, err := OpenBadgerManifest(filepath.Join(dir, "badger", "manifest"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = bdg.Close() })
	bdgBlobs, err := NewFileBlobs(filepath.Join(dir, "badger", "blobs"))
	require.NoError(t, err)

	inMemory, err := OpenBadgerManifest("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = inMemory.Close() })
	inMemoryBlobs, err := NewFileBlobs(filepath.Join(dir, "memory", "blobs"))
	require.NoError(t, err)

	return map[string]Store{
		"memory":         NewMemoryStore(),
		"jsonl":          NewManifestStore(jsonl, jsonlBlobs),
		"badger":         NewManifestStore(bdg, bdgBlobs),
		"listenable":     NewListenableStore(NewMemoryStore()),
		"listenable-bdg": NewListenableStore(NewManifestStore(inMemory, inMemoryBlobs)),
	}
}

func TestStoreAddDuplicateLaw(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			x := media.New("x", media.PNG, []byte("pixels"), media.Metadata{"rotation": 90})

			require.NoError(t, s.Add(x))
			assert.ErrorIs(t, s.Add(x), apimodel.ErrAlreadyExists)

			got, err := s.Get("x")
			require.NoError(t, err)
			assert.True(t, x.Equal(got))

			removed, err := s.Remove("x")
			require.NoError(t, err)
			assert.True(t, removed)

			got, err = s.Get("x")
			require.NoError(t, err)
			assert.Nil(t, got)

			removed, err = s.Remove("x")
			require.NoError(t, err)
			assert.False(t, removed)
		})
	}
}

func TestStoreListIsSortedById(t *testing.T) {
	for name, s := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"c", "a", "b"} {
				require.NoError(t, s.Add(media.New(id, media.BMP, []byte(id), nil)))
			}
			images, err := s.List()
			require.NoError(t, err)
			ids := make([]string, len(images))
			for i, img := range images {
				ids[i] = img.Id()
			}
			assert.Equal(t, []string{"a", "b", "c"}, ids)

			again, err := s.List()
			require.NoError(t, err)
			for i := range images {
				assert.True(t, images[i].Equal(again[i]))
			}
		})
	}
}

func TestListenableStoreEvents(t *testing.T) {
	s := NewListenableStore(NewMemoryStore())
	var events []Event
	listener := event.ListenerFunc(func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	require.NoError(t, s.AddListener(listener, AddEvent))
	require.NoError(t, s.AddListener(listener, RemoveEvent))

	img := media.New("a", media.PNG, []byte("a"), nil)
	require.NoError(t, s.Add(img))
	assert.Error(t, s.Add(img))
	_, err := s.Remove("a")
	require.NoError(t, err)
	_, err = s.Remove("missing")
	require.NoError(t, err)

	require.Len(t, events, 3, "failed add emits nothing")
	assert.Equal(t, AddEvent, events[0].Kind)
	assert.True(t, img.Equal(events[0].Image))
	assert.Equal(t, Event{Kind: RemoveEvent, ImageId: "a", Removed: true}, events[1])
	assert.Equal(t, Event{Kind: RemoveEvent, ImageId: "missing", Removed: false}, events[2])

	assert.IsType(t, &MemoryStore{}, Innermost(NewListenableStore(s)))
}

func TestJSONLinesManifestReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.jsonl")
	blobs, err := NewFileBlobs(filepath.Join(dir, "blobs"))
	require.NoError(t, err)

	manifest, err := OpenJSONLinesManifest(path)
	require.NoError(t, err)
	s := NewManifestStore(manifest, blobs)
	require.NoError(t, s.Add(media.New("a", media.PNG, []byte("aaa"), media.Metadata{"rotation": 180})))
	require.NoError(t, s.Add(media.New("b", media.JPG, []byte("bbb"), nil)))
	_, err = s.Remove("b")
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"id":"a"`)
	assert.Contains(t, lines[0], `"image_type":"PNG"`)
	assert.Contains(t, lines[0], `"storage_location"`)

	manifest, err = OpenJSONLinesManifest(path)
	require.NoError(t, err)
	reopened := NewManifestStore(manifest, blobs)
	img, err := reopened.Get("a")
	require.NoError(t, err)
	require.NotNil(t, img)
	data, err := img.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte("aaa"), data)
	rotation, _ := img.Float("rotation")
	assert.Equal(t, 180.0, rotation)
}

func TestManifestStoreSuffixesCollidingContent(t *testing.T) {
	dir := t.TempDir()
	manifest, err := OpenBadgerManifest("")
	require.NoError(t, err)
	defer manifest.Close()
	blobs, err := NewFileBlobs(dir)
	require.NoError(t, err)
	s := NewManifestStore(manifest, blobs)

	require.NoError(t, s.Add(media.New("one", media.PNG, []byte("same"), nil)))
	require.NoError(t, s.Add(media.New("two", media.PNG, []byte("same"), nil)))
	require.NoError(t, s.Add(media.New("three", media.PNG, []byte("same"), nil)))

	one, _ := manifest.Get("one")
	two, _ := manifest.Get("two")
	three, _ := manifest.Get("three")
	assert.True(t, strings.HasSuffix(one.StorageLocation, ".png"))
	assert.Equal(t, strings.TrimSuffix(one.StorageLocation, ".png")+"-1.png", two.StorageLocation)
	assert.Equal(t, strings.TrimSuffix(one.StorageLocation, ".png")+"-2.png", three.StorageLocation)

	_, err = s.Remove("one")
	require.NoError(t, err)
	img, err := s.Get("two")
	require.NoError(t, err)
	data, err := img.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte("same"), data)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestFileBlobsWriteFailsWhenFolderIsUnreadable(t *testing.T) {
	folder := filepath.Join(t.TempDir(), "blobs")
	blobs, err := NewFileBlobs(folder)
	require.NoError(t, err)

	// The blob folder turned into a plain file: stat reports "not a directory"
	require.NoError(t, os.Remove(folder))
	require.NoError(t, os.WriteFile(folder, []byte("x"), 0660))

	free := func(location string) (bool, error) { return false, nil }
	_, err = blobs.Write([]byte("data"), ".png", free)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, os.ErrNotExist)
}
