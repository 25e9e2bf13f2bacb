package controller

import (
	"github.com/jypelle/papier/internal/srv/media"
)

type imageReplacer interface {
	ReplaceImage(img *media.Image) error
}

// ReplaceImage stores img in place of the image with the same id, if any. When the replaced image was
// current, the new version is displayed.
func ReplaceImage(c Controller, img *media.Image) error {
	if r, ok := Find[imageReplacer](c); ok {
		return r.ReplaceImage(img)
	}

	current := c.CurrentImage()
	wasCurrent := current != nil && current.Id() == img.Id()
	if _, err := c.Store().Remove(img.Id()); err != nil {
		return err
	}
	if err := c.Store().Add(img); err != nil {
		return err
	}
	if wasCurrent {
		return c.Display(img.Id())
	}
	return nil
}
