package controller

import (
	"github.com/jypelle/papier/apimodel"
	"github.com/jypelle/papier/internal/srv/media"
	"github.com/jypelle/papier/internal/srv/store"
	"github.com/jypelle/papier/internal/srv/transform"
)

func Summarize(c Controller) (*apimodel.DisplaySummary, error) {
	images, err := c.Store().List()
	if err != nil {
		return nil, err
	}
	transformers, err := c.Pipeline().Transformers()
	if err != nil {
		return nil, err
	}

	summary := &apimodel.DisplaySummary{
		DisplayId:      apimodel.DisplayId(c.Id()),
		ControllerType: c.Type(),
		StoreType:      store.TypeName(c.Store()),
		ImageIds:       make([]string, len(images)),
		Transformers:   transform.Describe(transformers),
		Sleeping:       c.Driver().Sleeping(),
	}
	for i, img := range images {
		summary.ImageIds[i] = img.Id()
	}
	if current := c.CurrentImage(); current != nil {
		id := current.Id()
		summary.CurrentImageId = &id
	}
	return summary, nil
}

func DescribeImage(img *media.Image) apimodel.ImageInfo {
	return apimodel.ImageInfo{
		ImageId:   img.Id(),
		ImageType: img.Type().String(),
		MimeType:  img.Type().MimeType(),
		Metadata:  img.Metadata(),
	}
}
