package transform

import (
	"iter"
	"math"
	"sync"

	"github.com/jypelle/papier/apimodel"
	"github.com/jypelle/papier/internal/srv/event"
)

// End as a position appends at the end of a sequence.
const End = math.MaxInt

type SequenceEventKind int

const (
	AddEvent SequenceEventKind = iota
	RemoveEvent
	MoveEvent
)

func (k SequenceEventKind) String() string {
	switch k {
	case AddEvent:
		return "add"
	case RemoveEvent:
		return "remove"
	case MoveEvent:
		return "move"
	default:
		return "unknown"
	}
}

// SequenceEvent reports an addition or a move with the resolved position, or a removal attempt and its outcome.
type SequenceEvent struct {
	Kind          SequenceEventKind
	TransformerId string
	Transformer   Transformer
	Position      int
	Removed       bool
}

// Sequence is the ordered list of transformers of a display. Identifiers are unique within a sequence.
type Sequence struct {
	*event.Notifier[SequenceEventKind, SequenceEvent]

	lock         sync.RWMutex
	transformers []Transformer
}

func NewSequence(transformers ...Transformer) (*Sequence, error) {
	s := &Sequence{Notifier: event.NewNotifier[SequenceEventKind, SequenceEvent]()}
	for _, t := range transformers {
		if err := s.Add(t); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Sequence) indexOf(id string) int {
	for i, t := range s.transformers {
		if t.Id() == id {
			return i
		}
	}
	return -1
}

// Get returns nil when no transformer has this id.
func (s *Sequence) Get(id string) Transformer {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.transformers[i]
	}
	return nil
}

func (s *Sequence) Position(id string) (int, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return 0, apimodel.NotFoundf("transformer %s", id)
	}
	return i, nil
}

// SetPosition moves a transformer. Positions past the end clamp to the last one.
func (s *Sequence) SetPosition(id string, position int) error {
	if position < 0 {
		return apimodel.InvalidArgumentf("invalid position %d", position)
	}

	s.lock.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.lock.Unlock()
		return apimodel.NotFoundf("transformer %s", id)
	}
	t := s.transformers[i]
	s.transformers = append(s.transformers[:i], s.transformers[i+1:]...)
	position = s.insert(t, position)
	s.lock.Unlock()

	s.Publish(MoveEvent, SequenceEvent{Kind: MoveEvent, TransformerId: id, Transformer: t, Position: position})
	return nil
}

func (s *Sequence) Add(t Transformer) error {
	return s.AddAt(t, End)
}

// AddAt inserts a transformer. Positions past the end clamp to the end.
func (s *Sequence) AddAt(t Transformer, position int) error {
	if position < 0 {
		return apimodel.InvalidArgumentf("invalid position %d", position)
	}

	s.lock.Lock()
	if s.indexOf(t.Id()) >= 0 {
		s.lock.Unlock()
		return apimodel.AlreadyExistsf("transformer %s", t.Id())
	}
	position = s.insert(t, position)
	s.lock.Unlock()

	s.Publish(AddEvent, SequenceEvent{Kind: AddEvent, TransformerId: t.Id(), Transformer: t, Position: position})
	return nil
}

func (s *Sequence) insert(t Transformer, position int) int {
	if position > len(s.transformers) {
		position = len(s.transformers)
	}
	s.transformers = append(s.transformers, nil)
	copy(s.transformers[position+1:], s.transformers[position:])
	s.transformers[position] = t
	return position
}

// Remove reports whether the transformer was part of the sequence. RemoveEvent is emitted either way.
func (s *Sequence) Remove(id string) bool {
	s.lock.Lock()
	var removed Transformer
	if i := s.indexOf(id); i >= 0 {
		removed = s.transformers[i]
		s.transformers = append(s.transformers[:i:i], s.transformers[i+1:]...)
	}
	s.lock.Unlock()

	s.Publish(RemoveEvent, SequenceEvent{
		Kind:          RemoveEvent,
		TransformerId: id,
		Transformer:   removed,
		Removed:       removed != nil,
	})
	return removed != nil
}

func (s *Sequence) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.transformers)
}

func (s *Sequence) At(i int) Transformer {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.transformers[i]
}

func (s *Sequence) Contains(id string) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.indexOf(id) >= 0
}

func (s *Sequence) Snapshot() []Transformer {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return append([]Transformer(nil), s.transformers...)
}

// All iterates over a snapshot, so the sequence may be modified during the iteration.
func (s *Sequence) All() iter.Seq2[int, Transformer] {
	snapshot := s.Snapshot()
	return func(yield func(int, Transformer) bool) {
		for i, t := range snapshot {
			if !yield(i, t) {
				return
			}
		}
	}
}
