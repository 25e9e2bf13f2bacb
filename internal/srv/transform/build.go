package transform

import (
	"github.com/jypelle/papier/apimodel"
)

// Spec describes a transformer to build, as read from param.yaml or sent by a remote client.
type Spec struct {
	Id            string        `yaml:"id" json:"id"`
	Kind          string        `yaml:"kind" json:"kind"`
	Active        bool          `yaml:"active" json:"active"`
	Description   string        `yaml:"description,omitempty" json:"description,omitempty"`
	Configuration Configuration `yaml:"configuration,omitempty" json:"configuration,omitempty"`
}

var constructors = map[string]func(id string, description string, active bool) Transformer{
	RotateKind:  func(id, description string, active bool) Transformer { return NewRotate(id, description, active) },
	FitKind:     func(id, description string, active bool) Transformer { return NewFit(id, description, active) },
	CaptionKind: func(id, description string, active bool) Transformer { return NewCaption(id, description, active) },
}

func Build(spec Spec) (Transformer, error) {
	if spec.Id == "" {
		return nil, apimodel.InvalidArgumentf("transformer id is empty")
	}
	constructor, ok := constructors[spec.Kind]
	if !ok {
		return nil, apimodel.InvalidArgumentf("unknown transformer kind %q", spec.Kind)
	}
	t := constructor(spec.Id, spec.Description, spec.Active)
	if len(spec.Configuration) > 0 {
		if err := t.Configure(spec.Configuration); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func SpecOf(t Transformer) Spec {
	return Spec{
		Id:            t.Id(),
		Kind:          t.Kind(),
		Active:        t.Active(),
		Description:   t.Description(),
		Configuration: t.Configuration(),
	}
}
