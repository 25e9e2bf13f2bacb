// Package proxy exposes display controllers and their store, driver and transformers to another
// process through a synchronous request/response channel.
package proxy

import (
	"errors"

	"github.com/google/uuid"
	"github.com/jypelle/papier/apimodel"
	"github.com/jypelle/papier/internal/srv/media"
	"github.com/jypelle/papier/internal/srv/transform"
)

// Op is the closed set of remotely invokable operations.
type Op string

const (
	OpControllerType    Op = "controller.type"
	OpControllerCurrent Op = "controller.current"
	OpControllerDisplay Op = "controller.display"
	OpControllerClear   Op = "controller.clear"
	OpControllerNext    Op = "controller.next"
	OpControllerSummary Op = "controller.summary"

	OpStoreGet    Op = "store.get"
	OpStoreList   Op = "store.list"
	OpStoreAdd    Op = "store.add"
	OpStoreRemove Op = "store.remove"

	OpDriverDisplay  Op = "driver.display"
	OpDriverClear    Op = "driver.clear"
	OpDriverSleep    Op = "driver.sleep"
	OpDriverWake     Op = "driver.wake"
	OpDriverSleeping Op = "driver.sleeping"
	OpDriverImage    Op = "driver.image"

	OpPipelineList        Op = "pipeline.list"
	OpPipelineGet         Op = "pipeline.get"
	OpPipelinePosition    Op = "pipeline.position"
	OpPipelineSetPosition Op = "pipeline.set_position"
	OpPipelineInstall     Op = "pipeline.install"
	OpPipelineUninstall   Op = "pipeline.uninstall"

	OpTransformerSetActive Op = "transformer.set_active"
	OpTransformerConfigure Op = "transformer.configure"
	OpTransformerTransform Op = "transformer.transform"

	// OpStop is the poison message ending a receiver loop.
	OpStop Op = "stop"
)

var readOnlyOps = map[Op]bool{
	OpControllerType:       true,
	OpControllerCurrent:    true,
	OpControllerSummary:    true,
	OpStoreGet:             true,
	OpStoreList:            true,
	OpDriverSleeping:       true,
	OpDriverImage:          true,
	OpPipelineList:         true,
	OpPipelineGet:          true,
	OpPipelinePosition:     true,
	OpTransformerTransform: true,
}

// ReadOnly ops run under shared access to the controller, the others under exclusive access.
func (o Op) ReadOnly() bool {
	return readOnlyOps[o]
}

type Request struct {
	Id            uuid.UUID               `json:"id"`
	Op            Op                      `json:"op"`
	DisplayId     string                  `json:"display_id,omitempty"`
	ImageId       string                  `json:"image_id,omitempty"`
	Image         *media.Payload          `json:"image,omitempty"`
	TransformerId string                  `json:"transformer_id,omitempty"`
	Position      int                     `json:"position,omitempty"`
	Active        bool                    `json:"active,omitempty"`
	Configuration transform.Configuration `json:"configuration,omitempty"`
	Spec          *transform.Spec         `json:"spec,omitempty"`
}

type Response struct {
	Id       uuid.UUID                `json:"id"`
	Text     string                   `json:"text,omitempty"`
	Flag     bool                     `json:"flag,omitempty"`
	Position int                      `json:"position,omitempty"`
	Image    *media.Payload           `json:"image,omitempty"`
	Images   []*media.Payload         `json:"images,omitempty"`
	Spec     *transform.Spec          `json:"spec,omitempty"`
	Specs    []transform.Spec         `json:"specs,omitempty"`
	Summary  *apimodel.DisplaySummary `json:"summary,omitempty"`
	Error    *RemoteError             `json:"error,omitempty"`
}

// RemoteError carries an error and its kind across the channel.
type RemoteError struct {
	Kind    apimodel.ErrorKind `json:"kind"`
	Message string             `json:"message"`
}

func NewRemoteError(err error) *RemoteError {
	if err == nil {
		return nil
	}
	return &RemoteError{Kind: apimodel.KindOf(err), Message: err.Error()}
}

// Err rebuilds an error matching the original kind with errors.Is.
func (e *RemoteError) Err() error {
	if e == nil {
		return nil
	}
	return apimodel.ErrorOfKind(e.Kind, e.Message)
}

var ErrStopped = errors.New("receiver stopped")

func payloadOf(img *media.Image) (*media.Payload, error) {
	if img == nil {
		return nil, nil
	}
	return img.Payload()
}
