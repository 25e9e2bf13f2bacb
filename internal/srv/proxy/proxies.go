package proxy

import (
	"github.com/jypelle/papier/apimodel"
	"github.com/jypelle/papier/internal/srv/controller"
	"github.com/jypelle/papier/internal/srv/device"
	"github.com/jypelle/papier/internal/srv/media"
	"github.com/jypelle/papier/internal/srv/store"
	"github.com/jypelle/papier/internal/srv/transform"
	"github.com/sirupsen/logrus"
)

var (
	_ controller.Controller = (*ControllerProxy)(nil)
	_ controller.Cyclable   = (*ControllerProxy)(nil)
	_ store.Store           = (*StoreProxy)(nil)
	_ device.Driver         = (*DriverProxy)(nil)
	_ transform.Pipeline    = (*PipelineProxy)(nil)
	_ transform.Transformer = (*TransformerProxy)(nil)
)

// ControllerProxy forwards every call to the controller of a remote display. Methods without error
// return log remote failures and return a zero value.
type ControllerProxy struct {
	client    *Client
	displayId string
}

func (p *ControllerProxy) call(req *Request) (*Response, error) {
	req.DisplayId = p.displayId
	return p.client.Call(req)
}

func (p *ControllerProxy) Id() string {
	return p.displayId
}

func (p *ControllerProxy) Type() string {
	resp, err := p.call(&Request{Op: OpControllerType})
	if err != nil {
		logrus.Warnf("Unable to get type of remote display %s: %v", p.displayId, err)
		return ""
	}
	return resp.Text
}

func (p *ControllerProxy) CurrentImage() *media.Image {
	img, err := p.FetchCurrentImage()
	if err != nil {
		logrus.Warnf("Unable to get current image of remote display %s: %v", p.displayId, err)
	}
	return img
}

func (p *ControllerProxy) FetchCurrentImage() (*media.Image, error) {
	resp, err := p.call(&Request{Op: OpControllerCurrent})
	if err != nil {
		return nil, err
	}
	return resp.Image.Image(), nil
}

func (p *ControllerProxy) Display(imageId string) error {
	_, err := p.call(&Request{Op: OpControllerDisplay, ImageId: imageId})
	return err
}

func (p *ControllerProxy) Clear() error {
	_, err := p.call(&Request{Op: OpControllerClear})
	return err
}

func (p *ControllerProxy) DisplayNext() (*media.Image, error) {
	resp, err := p.call(&Request{Op: OpControllerNext})
	if err != nil {
		return nil, err
	}
	return resp.Image.Image(), nil
}

func (p *ControllerProxy) Summary() (*apimodel.DisplaySummary, error) {
	resp, err := p.call(&Request{Op: OpControllerSummary})
	if err != nil {
		return nil, err
	}
	return resp.Summary, nil
}

func (p *ControllerProxy) Driver() device.Driver {
	return &DriverProxy{controller: p}
}

func (p *ControllerProxy) Store() store.Store {
	return &StoreProxy{controller: p}
}

func (p *ControllerProxy) Pipeline() transform.Pipeline {
	return &PipelineProxy{controller: p}
}

type StoreProxy struct {
	controller *ControllerProxy
}

func (p *StoreProxy) Get(id string) (*media.Image, error) {
	resp, err := p.controller.call(&Request{Op: OpStoreGet, ImageId: id})
	if err != nil {
		return nil, err
	}
	return resp.Image.Image(), nil
}

func (p *StoreProxy) List() ([]*media.Image, error) {
	resp, err := p.controller.call(&Request{Op: OpStoreList})
	if err != nil {
		return nil, err
	}
	images := make([]*media.Image, len(resp.Images))
	for i, payload := range resp.Images {
		images[i] = payload.Image()
	}
	return images, nil
}

func (p *StoreProxy) Add(img *media.Image) error {
	payload, err := img.Payload()
	if err != nil {
		return err
	}
	_, err = p.controller.call(&Request{Op: OpStoreAdd, Image: payload})
	return err
}

func (p *StoreProxy) Remove(id string) (bool, error) {
	resp, err := p.controller.call(&Request{Op: OpStoreRemove, ImageId: id})
	if err != nil {
		return false, err
	}
	return resp.Flag, nil
}

type DriverProxy struct {
	controller *ControllerProxy
}

func (p *DriverProxy) Display(img *media.Image) error {
	payload, err := img.Payload()
	if err != nil {
		return err
	}
	_, err = p.controller.call(&Request{Op: OpDriverDisplay, Image: payload})
	return err
}

func (p *DriverProxy) Clear() error {
	_, err := p.controller.call(&Request{Op: OpDriverClear})
	return err
}

func (p *DriverProxy) Sleep() error {
	_, err := p.controller.call(&Request{Op: OpDriverSleep})
	return err
}

func (p *DriverProxy) Wake() error {
	_, err := p.controller.call(&Request{Op: OpDriverWake})
	return err
}

func (p *DriverProxy) Sleeping() bool {
	resp, err := p.controller.call(&Request{Op: OpDriverSleeping})
	if err != nil {
		logrus.Warnf("Unable to get sleep state of remote display %s: %v", p.controller.displayId, err)
		return false
	}
	return resp.Flag
}

func (p *DriverProxy) Image() *media.Image {
	resp, err := p.controller.call(&Request{Op: OpDriverImage})
	if err != nil {
		logrus.Warnf("Unable to get driver image of remote display %s: %v", p.controller.displayId, err)
		return nil
	}
	return resp.Image.Image()
}

type PipelineProxy struct {
	controller *ControllerProxy
}

func (p *PipelineProxy) Transformers() ([]transform.Transformer, error) {
	resp, err := p.controller.call(&Request{Op: OpPipelineList})
	if err != nil {
		return nil, err
	}
	transformers := make([]transform.Transformer, len(resp.Specs))
	for i, spec := range resp.Specs {
		transformers[i] = &TransformerProxy{controller: p.controller, spec: spec}
	}
	return transformers, nil
}

func (p *PipelineProxy) Transformer(id string) (transform.Transformer, error) {
	resp, err := p.controller.call(&Request{Op: OpPipelineGet, TransformerId: id})
	if err != nil {
		return nil, err
	}
	if resp.Spec == nil {
		return nil, nil
	}
	return &TransformerProxy{controller: p.controller, spec: *resp.Spec}, nil
}

func (p *PipelineProxy) Position(id string) (int, error) {
	resp, err := p.controller.call(&Request{Op: OpPipelinePosition, TransformerId: id})
	if err != nil {
		return 0, err
	}
	return resp.Position, nil
}

func (p *PipelineProxy) SetPosition(id string, position int) error {
	_, err := p.controller.call(&Request{Op: OpPipelineSetPosition, TransformerId: id, Position: position})
	return err
}

func (p *PipelineProxy) Install(spec transform.Spec, position int) error {
	_, err := p.controller.call(&Request{Op: OpPipelineInstall, Spec: &spec, Position: position})
	return err
}

func (p *PipelineProxy) Uninstall(id string) (bool, error) {
	resp, err := p.controller.call(&Request{Op: OpPipelineUninstall, TransformerId: id})
	if err != nil {
		return false, err
	}
	return resp.Flag, nil
}

// TransformerProxy keeps the immutable part of a remote transformer. Active state and configuration
// are fetched on each call.
type TransformerProxy struct {
	controller *ControllerProxy
	spec       transform.Spec
}

func (p *TransformerProxy) Id() string {
	return p.spec.Id
}

func (p *TransformerProxy) Kind() string {
	return p.spec.Kind
}

func (p *TransformerProxy) Description() string {
	return p.spec.Description
}

func (p *TransformerProxy) fetch() transform.Spec {
	resp, err := p.controller.call(&Request{Op: OpPipelineGet, TransformerId: p.spec.Id})
	if err != nil {
		logrus.Warnf("Unable to refresh remote transformer %s: %v", p.spec.Id, err)
		return p.spec
	}
	if resp.Spec != nil {
		p.spec = *resp.Spec
	}
	return p.spec
}

func (p *TransformerProxy) Active() bool {
	return p.fetch().Active
}

func (p *TransformerProxy) Configuration() transform.Configuration {
	return p.fetch().Configuration
}

func (p *TransformerProxy) SetActive(active bool) error {
	_, err := p.controller.call(&Request{Op: OpTransformerSetActive, TransformerId: p.spec.Id, Active: active})
	return err
}

func (p *TransformerProxy) Configure(configuration transform.Configuration) error {
	_, err := p.controller.call(&Request{Op: OpTransformerConfigure, TransformerId: p.spec.Id, Configuration: configuration})
	return err
}

func (p *TransformerProxy) Transform(img *media.Image) (*media.Image, error) {
	payload, err := img.Payload()
	if err != nil {
		return nil, err
	}
	resp, err := p.controller.call(&Request{Op: OpTransformerTransform, TransformerId: p.spec.Id, Image: payload})
	if err != nil {
		return nil, err
	}
	return resp.Image.Image(), nil
}
