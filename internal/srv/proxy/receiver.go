package proxy

import (
	"fmt"
	"sync"

	"github.com/jypelle/papier/apimodel"
	"github.com/jypelle/papier/internal/srv/controller"
	"github.com/jypelle/papier/internal/srv/media"
	"github.com/jypelle/papier/internal/srv/transform"
	"github.com/sirupsen/logrus"
)

// Resolver gives scoped access to the controller of a display. storage.AppStorage implements it.
type Resolver interface {
	UseDisplayController(id string, fn func(c controller.Controller) error) error
	UpdateDisplayController(id string, fn func(c controller.Controller) error) error
}

type single struct {
	lock       sync.RWMutex
	controller controller.Controller
}

// Single exposes one controller under its own id.
func Single(c controller.Controller) Resolver {
	return &single{controller: c}
}

func (s *single) UseDisplayController(id string, fn func(c controller.Controller) error) error {
	if id != s.controller.Id() {
		return apimodel.NotFoundf("display %s", id)
	}
	s.lock.RLock()
	defer s.lock.RUnlock()
	return fn(s.controller)
}

func (s *single) UpdateDisplayController(id string, fn func(c controller.Controller) error) error {
	if id != s.controller.Id() {
		return apimodel.NotFoundf("display %s", id)
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	return fn(s.controller)
}

// Receiver executes requests against the controllers of a resolver.
type Receiver struct {
	resolver Resolver
}

func NewReceiver(resolver Resolver) *Receiver {
	return &Receiver{resolver: resolver}
}

// Handle never fails: errors and panics of the operation end up in the response.
func (r *Receiver) Handle(req *Request) (resp *Response) {
	resp = &Response{Id: req.Id}
	defer func() {
		if rec := recover(); rec != nil {
			logrus.Warnf("Panic while handling %s request %s: %v", req.Op, req.Id, rec)
			resp = &Response{Id: req.Id, Error: &RemoteError{Kind: apimodel.UnexpectedErrorKind, Message: fmt.Sprintf("panic: %v", rec)}}
		}
	}()

	access := r.resolver.UpdateDisplayController
	if req.Op.ReadOnly() {
		access = r.resolver.UseDisplayController
	}
	if err := access(req.DisplayId, func(c controller.Controller) error {
		return dispatch(c, req, resp)
	}); err != nil {
		logrus.Debugf("%s request %s failed: %v", req.Op, req.Id, err)
		resp.Error = NewRemoteError(err)
	}
	return resp
}

func dispatch(c controller.Controller, req *Request, resp *Response) (err error) {
	switch req.Op {

	// Controller
	case OpControllerType:
		resp.Text = c.Type()
	case OpControllerCurrent:
		resp.Image, err = payloadOf(c.CurrentImage())
	case OpControllerDisplay:
		err = c.Display(req.ImageId)
	case OpControllerClear:
		err = c.Clear()
	case OpControllerNext:
		cyclable, ok := controller.Find[controller.Cyclable](c)
		if !ok {
			return apimodel.InvalidArgumentf("display %s does not cycle", c.Id())
		}
		var img *media.Image
		if img, err = cyclable.DisplayNext(); err == nil {
			resp.Image, err = payloadOf(img)
		}
	case OpControllerSummary:
		resp.Summary, err = controller.Summarize(c)

	// Store
	case OpStoreGet:
		var img *media.Image
		if img, err = c.Store().Get(req.ImageId); err == nil {
			resp.Image, err = payloadOf(img)
		}
	case OpStoreList:
		var images []*media.Image
		if images, err = c.Store().List(); err != nil {
			return err
		}
		resp.Images = make([]*media.Payload, 0, len(images))
		for _, img := range images {
			payload, err := img.Payload()
			if err != nil {
				return err
			}
			resp.Images = append(resp.Images, payload)
		}
	case OpStoreAdd:
		if req.Image == nil {
			return apimodel.InvalidArgumentf("no image to add")
		}
		err = c.Store().Add(req.Image.Image())
	case OpStoreRemove:
		resp.Flag, err = c.Store().Remove(req.ImageId)

	// Driver
	case OpDriverDisplay:
		if req.Image == nil {
			return apimodel.InvalidArgumentf("no image to display")
		}
		err = c.Driver().Display(req.Image.Image())
	case OpDriverClear:
		err = c.Driver().Clear()
	case OpDriverSleep:
		err = c.Driver().Sleep()
	case OpDriverWake:
		err = c.Driver().Wake()
	case OpDriverSleeping:
		resp.Flag = c.Driver().Sleeping()
	case OpDriverImage:
		resp.Image, err = payloadOf(c.Driver().Image())

	// Pipeline
	case OpPipelineList:
		var transformers []transform.Transformer
		if transformers, err = c.Pipeline().Transformers(); err != nil {
			return err
		}
		resp.Specs = make([]transform.Spec, len(transformers))
		for i, t := range transformers {
			resp.Specs[i] = transform.SpecOf(t)
		}
	case OpPipelineGet:
		var t transform.Transformer
		if t, err = c.Pipeline().Transformer(req.TransformerId); err == nil && t != nil {
			spec := transform.SpecOf(t)
			resp.Spec = &spec
		}
	case OpPipelinePosition:
		resp.Position, err = c.Pipeline().Position(req.TransformerId)
	case OpPipelineSetPosition:
		err = c.Pipeline().SetPosition(req.TransformerId, req.Position)
	case OpPipelineInstall:
		if req.Spec == nil {
			return apimodel.InvalidArgumentf("no transformer to install")
		}
		err = c.Pipeline().Install(*req.Spec, req.Position)
	case OpPipelineUninstall:
		resp.Flag, err = c.Pipeline().Uninstall(req.TransformerId)

	// Transformer
	case OpTransformerSetActive, OpTransformerConfigure, OpTransformerTransform:
		var t transform.Transformer
		if t, err = c.Pipeline().Transformer(req.TransformerId); err != nil {
			return err
		}
		if t == nil {
			return apimodel.NotFoundf("transformer %s", req.TransformerId)
		}
		switch req.Op {
		case OpTransformerSetActive:
			err = t.SetActive(req.Active)
		case OpTransformerConfigure:
			err = t.Configure(req.Configuration)
		default:
			if req.Image == nil {
				return apimodel.InvalidArgumentf("no image to transform")
			}
			var img *media.Image
			if img, err = t.Transform(req.Image.Image()); err == nil {
				resp.Image, err = payloadOf(img)
			}
		}

	default:
		return fmt.Errorf("%w: unknown operation %q", apimodel.ErrProtocol, req.Op)
	}
	return err
}
