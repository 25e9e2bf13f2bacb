package transform

import (
	"reflect"

	"github.com/jypelle/papier/internal/srv/event"
)

type TransformerEventKind int

const (
	ActivateEvent TransformerEventKind = iota
	ConfigureEvent
)

type TransformerEvent struct {
	Kind          TransformerEventKind
	Transformer   Transformer
	Active        bool
	Configuration Configuration
}

// ListenableTransformer emits ActivateEvent and ConfigureEvent when the wrapped transformer really changes.
type ListenableTransformer struct {
	Transformer
	*event.Notifier[TransformerEventKind, TransformerEvent]
}

var _ Transformer = (*ListenableTransformer)(nil)

func NewListenableTransformer(t Transformer) *ListenableTransformer {
	return &ListenableTransformer{
		Transformer: t,
		Notifier:    event.NewNotifier[TransformerEventKind, TransformerEvent](),
	}
}

func (t *ListenableTransformer) Unwrap() Transformer {
	return t.Transformer
}

func (t *ListenableTransformer) SetActive(active bool) error {
	if t.Transformer.Active() == active {
		return nil
	}
	if err := t.Transformer.SetActive(active); err != nil {
		return err
	}
	t.Publish(ActivateEvent, TransformerEvent{Kind: ActivateEvent, Transformer: t, Active: active})
	return nil
}

func (t *ListenableTransformer) Configure(configuration Configuration) error {
	before := t.Transformer.Configuration()
	if err := t.Transformer.Configure(configuration); err != nil {
		return err
	}
	after := t.Transformer.Configuration()
	if reflect.DeepEqual(before, after) {
		return nil
	}
	t.Publish(ConfigureEvent, TransformerEvent{Kind: ConfigureEvent, Transformer: t, Configuration: after})
	return nil
}
