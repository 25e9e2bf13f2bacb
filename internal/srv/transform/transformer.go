// Package transform holds the image transformers of a display and the ordered sequence applying them.
package transform

import (
	"sort"
	"sync"

	"github.com/jypelle/papier/apimodel"
	"github.com/jypelle/papier/internal/srv/media"
)

type Configuration map[string]interface{}

// Transformer is an independently activatable image to image function.
type Transformer interface {
	Id() string
	Kind() string
	Description() string
	Active() bool
	Configuration() Configuration
	SetActive(active bool) error
	// Configure merges configuration into the current one, rejecting keys or values outside the kind schema.
	Configure(configuration Configuration) error
	Transform(img *media.Image) (*media.Image, error)
}

type FieldType int

const (
	NumberField FieldType = iota
	StringField
	BoolField
)

func (f FieldType) String() string {
	switch f {
	case NumberField:
		return "number"
	case StringField:
		return "string"
	case BoolField:
		return "bool"
	default:
		return "unknown"
	}
}

// Schema lists the configuration keys a transformer kind accepts.
type Schema map[string]FieldType

func (s Schema) Validate(configuration Configuration) error {
	keys := make([]string, 0, len(configuration))
	for key := range configuration {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		fieldType, ok := s[key]
		if !ok {
			return apimodel.InvalidArgumentf("unknown configuration key %q", key)
		}
		value := configuration[key]
		valid := false
		switch fieldType {
		case NumberField:
			_, isString := value.(string)
			_, isNumber := media.AsFloat(value)
			valid = isNumber && !isString
		case StringField:
			_, valid = value.(string)
		case BoolField:
			_, valid = value.(bool)
		}
		if !valid {
			return apimodel.InvalidArgumentf("configuration key %q expects a %s, got %v", key, fieldType, value)
		}
	}
	return nil
}

// Base carries the state shared by every transformer kind.
type Base struct {
	lock          sync.RWMutex
	id            string
	kind          string
	description   string
	active        bool
	schema        Schema
	configuration Configuration
}

func NewBase(id string, kind string, description string, active bool, schema Schema) *Base {
	return &Base{
		id:            id,
		kind:          kind,
		description:   description,
		active:        active,
		schema:        schema,
		configuration: make(Configuration),
	}
}

func (b *Base) Id() string {
	return b.id
}

func (b *Base) Kind() string {
	return b.kind
}

func (b *Base) Description() string {
	return b.description
}

func (b *Base) Active() bool {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return b.active
}

func (b *Base) SetActive(active bool) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.active = active
	return nil
}

func (b *Base) Configuration() Configuration {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return copyConfiguration(b.configuration)
}

func (b *Base) Configure(configuration Configuration) error {
	if err := b.schema.Validate(configuration); err != nil {
		return err
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	for key, value := range configuration {
		b.configuration[key] = value
	}
	return nil
}

func (b *Base) number(key string, fallback float64) float64 {
	b.lock.RLock()
	defer b.lock.RUnlock()
	if f, ok := media.AsFloat(b.configuration[key]); ok {
		return f
	}
	return fallback
}

func (b *Base) text(key string) string {
	b.lock.RLock()
	defer b.lock.RUnlock()
	s, _ := b.configuration[key].(string)
	return s
}

func copyConfiguration(configuration Configuration) Configuration {
	result := make(Configuration, len(configuration))
	for k, v := range configuration {
		result[k] = v
	}
	return result
}
