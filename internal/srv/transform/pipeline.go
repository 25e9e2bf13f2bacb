package transform

import (
	"fmt"

	"github.com/jypelle/papier/apimodel"
	"github.com/jypelle/papier/internal/srv/media"
)

// Pipeline is the sequence surface usable from another process: every operation may fail in transit,
// and transformers are installed from a Spec instead of by reference.
type Pipeline interface {
	Transformers() ([]Transformer, error)
	// Transformer returns nil without error when id is unknown.
	Transformer(id string) (Transformer, error)
	Position(id string) (int, error)
	SetPosition(id string, position int) error
	Install(spec Spec, position int) error
	Uninstall(id string) (bool, error)
}

var _ Pipeline = (*Sequence)(nil)

func (s *Sequence) Transformers() ([]Transformer, error) {
	return s.Snapshot(), nil
}

func (s *Sequence) Transformer(id string) (Transformer, error) {
	return s.Get(id), nil
}

// Install builds the transformer and adds it wrapped in a ListenableTransformer.
func (s *Sequence) Install(spec Spec, position int) error {
	t, err := Build(spec)
	if err != nil {
		return err
	}
	return s.AddAt(NewListenableTransformer(t), position)
}

func (s *Sequence) Uninstall(id string) (bool, error) {
	return s.Remove(id), nil
}

// Apply runs the active transformers in order, each on the output of the previous one.
func Apply(transformers []Transformer, img *media.Image) (*media.Image, error) {
	for _, t := range transformers {
		if !t.Active() {
			continue
		}
		next, err := t.Transform(img)
		if err != nil {
			return nil, fmt.Errorf("transformer %s failed on image %s: %w", t.Id(), img.Id(), err)
		}
		img = next
	}
	return img, nil
}

func Describe(transformers []Transformer) []apimodel.TransformerInfo {
	infos := make([]apimodel.TransformerInfo, len(transformers))
	for i, t := range transformers {
		infos[i] = apimodel.TransformerInfo{
			TransformerId: t.Id(),
			Kind:          t.Kind(),
			Active:        t.Active(),
			Description:   t.Description(),
			Configuration: t.Configuration(),
			Position:      i,
		}
	}
	return infos
}
