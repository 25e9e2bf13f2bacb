// Package media holds the image value moved between stores, transformers and drivers.
package media

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Metadata is an open map of scalar or nested values (e.g. "rotation": 90).
type Metadata map[string]interface{}

// Reader produces the image bytes. It may be called any number of times.
type Reader func() ([]byte, error)

// Image is immutable once built: every With* method returns a new value.
type Image struct {
	id        string
	imageType Type
	metadata  Metadata
	read      Reader
}

func New(id string, imageType Type, data []byte, metadata Metadata) *Image {
	content := append([]byte(nil), data...)
	return NewLazy(id, imageType, func() ([]byte, error) { return content, nil }, metadata)
}

func NewLazy(id string, imageType Type, read Reader, metadata Metadata) *Image {
	return &Image{
		id:        id,
		imageType: imageType,
		metadata:  copyMetadata(metadata),
		read:      read,
	}
}

func (i *Image) Id() string {
	return i.id
}

func (i *Image) Type() Type {
	return i.imageType
}

func (i *Image) Data() ([]byte, error) {
	return i.read()
}

func (i *Image) Metadata() Metadata {
	return copyMetadata(i.metadata)
}

func (i *Image) MetadataValue(key string) (interface{}, bool) {
	v, ok := i.metadata[key]
	return v, ok
}

// Float reads a numeric metadata value, accepting numbers of any Go width and numeric strings.
func (i *Image) Float(key string) (float64, bool) {
	v, ok := i.metadata[key]
	if !ok {
		return 0, false
	}
	return AsFloat(v)
}

func (i *Image) MetadataString(key string) (string, bool) {
	v, ok := i.metadata[key].(string)
	return v, ok
}

func (i *Image) WithMetadata(key string, value interface{}) *Image {
	metadata := copyMetadata(i.metadata)
	metadata[key] = value
	return &Image{id: i.id, imageType: i.imageType, metadata: metadata, read: i.read}
}

func (i *Image) WithData(imageType Type, data []byte) *Image {
	return New(i.id, imageType, data, i.metadata)
}

// Equal compares identifier, metadata and data content. Metadata is compared through its JSON form
// so that 90 and 90.0 are the same rotation.
func (i *Image) Equal(other *Image) bool {
	if i == nil || other == nil {
		return i == other
	}
	if i == other {
		return true
	}
	if i.id != other.id || !metadataEqual(i.metadata, other.metadata) {
		return false
	}
	data, err := i.read()
	if err != nil {
		return false
	}
	otherData, err := other.read()
	if err != nil {
		return false
	}
	return bytes.Equal(data, otherData)
}

// Payload is the by-value form of an image used on the wire.
type Payload struct {
	ImageId   string   `json:"image_id"`
	ImageType Type     `json:"image_type"`
	Metadata  Metadata `json:"metadata,omitempty"`
	Data      []byte   `json:"data"`
}

func (i *Image) Payload() (*Payload, error) {
	data, err := i.read()
	if err != nil {
		return nil, err
	}
	return &Payload{
		ImageId:   i.id,
		ImageType: i.imageType,
		Metadata:  copyMetadata(i.metadata),
		Data:      data,
	}, nil
}

func (p *Payload) Image() *Image {
	if p == nil {
		return nil
	}
	return New(p.ImageId, p.ImageType, p.Data, p.Metadata)
}

func copyMetadata(metadata Metadata) Metadata {
	result := make(Metadata, len(metadata))
	for k, v := range metadata {
		result[k] = v
	}
	return result
}

func metadataEqual(a, b Metadata) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	rawA, errA := json.Marshal(a)
	rawB, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(rawA, rawB)
}

// AsFloat converts a decoded number (any Go width, json.Number or numeric string) to float64.
func AsFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
