package store

import (
	"github.com/jypelle/papier/internal/srv/event"
	"github.com/jypelle/papier/internal/srv/media"
)

type EventKind int

const (
	AddEvent EventKind = iota
	RemoveEvent
)

func (k EventKind) String() string {
	switch k {
	case AddEvent:
		return "add"
	case RemoveEvent:
		return "remove"
	default:
		return "unknown"
	}
}

// Event carries the added image (AddEvent) or the removal attempt and its outcome (RemoveEvent).
type Event struct {
	Kind    EventKind
	Image   *media.Image
	ImageId string
	Removed bool
}

// ListenableStore decorates a store with add/remove notifications. Reads are delegated untouched.
type ListenableStore struct {
	Store
	*event.Notifier[EventKind, Event]
}

var _ Store = (*ListenableStore)(nil)

func NewListenableStore(store Store) *ListenableStore {
	return &ListenableStore{
		Store:    store,
		Notifier: event.NewNotifier[EventKind, Event](),
	}
}

func (s *ListenableStore) Unwrap() Store {
	return s.Store
}

func (s *ListenableStore) Add(img *media.Image) error {
	if err := s.Store.Add(img); err != nil {
		return err
	}
	s.Publish(AddEvent, Event{Kind: AddEvent, Image: img, ImageId: img.Id()})
	return nil
}

func (s *ListenableStore) Remove(id string) (bool, error) {
	removed, err := s.Store.Remove(id)
	if err != nil {
		return false, err
	}
	s.Publish(RemoveEvent, Event{Kind: RemoveEvent, ImageId: id, Removed: removed})
	return removed, nil
}
