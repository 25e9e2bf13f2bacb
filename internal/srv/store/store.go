// Package store keeps the candidate images of a display.
package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/jypelle/papier/apimodel"
	"github.com/jypelle/papier/internal/srv/media"
)

// Store is the image catalogue of one display.
//
// Get returns a nil image without error when id is unknown. List is sorted by identifier.
// Add fails with apimodel.ErrAlreadyExists instead of overwriting. Remove reports whether
// something was removed.
type Store interface {
	Get(id string) (*media.Image, error)
	List() ([]*media.Image, error)
	Add(img *media.Image) error
	Remove(id string) (bool, error)
}

// Unwrapper is implemented by stores decorating another store.
type Unwrapper interface {
	Unwrap() Store
}

// Innermost follows Unwrap chains down to the concrete store.
func Innermost(s Store) Store {
	for {
		u, ok := s.(Unwrapper)
		if !ok {
			return s
		}
		s = u.Unwrap()
	}
}

type MemoryStore struct {
	lock   sync.RWMutex
	images map[string]*media.Image
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(images ...*media.Image) *MemoryStore {
	s := &MemoryStore{images: make(map[string]*media.Image)}
	for _, img := range images {
		s.images[img.Id()] = img
	}
	return s
}

func (s *MemoryStore) Get(id string) (*media.Image, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.images[id], nil
}

func (s *MemoryStore) List() ([]*media.Image, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	images := make([]*media.Image, 0, len(s.images))
	for _, img := range s.images {
		images = append(images, img)
	}
	sort.Slice(images, func(i, j int) bool { return images[i].Id() < images[j].Id() })
	return images, nil
}

func (s *MemoryStore) Add(img *media.Image) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, exists := s.images[img.Id()]; exists {
		return apimodel.AlreadyExistsf("image %s", img.Id())
	}
	s.images[img.Id()] = img
	return nil
}

func (s *MemoryStore) Remove(id string) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, exists := s.images[id]; !exists {
		return false, nil
	}
	delete(s.images, id)
	return true, nil
}

// TypeName names the concrete store behind any decorators.
func TypeName(s Store) string {
	switch inner := Innermost(s).(type) {
	case *MemoryStore:
		return "memory"
	case *ManifestStore:
		switch inner.manifest.(type) {
		case *JSONLinesManifest:
			return "manifest(jsonl)"
		case *BadgerManifest:
			return "manifest(badger)"
		}
		return "manifest"
	default:
		return fmt.Sprintf("%T", inner)
	}
}
