package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/jypelle/papier/apimodel"
	"github.com/jypelle/papier/internal/srv/controller"
	"github.com/jypelle/papier/internal/srv/media"
	"github.com/jypelle/papier/internal/srv/transform"
	"github.com/sirupsen/logrus"
)

const maxImageSize = 32 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("Unable to encode response: %v", err)
	}
}

func readJSON(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return apimodel.InvalidArgumentf("unable to parse body: %v", err)
	}
	return nil
}

func (a *Api) listDisplays(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.storage.DisplayIds())
}

func getDisplay(w http.ResponseWriter, r *http.Request, c controller.Controller) error {
	summary, err := controller.Summarize(c)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, summary)
	return nil
}

func getCurrentImage(w http.ResponseWriter, r *http.Request, c controller.Controller) error {
	current := c.CurrentImage()
	if current == nil {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	writeJSON(w, http.StatusOK, controller.DescribeImage(current))
	return nil
}

func setCurrentImage(w http.ResponseWriter, r *http.Request, c controller.Controller) error {
	var update apimodel.CurrentImageUpdate
	if err := readJSON(r, &update); err != nil {
		return err
	}
	if err := c.Display(update.ImageId); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, controller.DescribeImage(c.CurrentImage()))
	return nil
}

func clearCurrentImage(w http.ResponseWriter, r *http.Request, c controller.Controller) error {
	if err := c.Clear(); err != nil {
		return err
	}
	ErrorStatusAction(w, r, http.StatusOK)
	return nil
}

func displayNextImage(w http.ResponseWriter, r *http.Request, c controller.Controller) error {
	cyclable, ok := controller.Find[controller.Cyclable](c)
	if !ok {
		return apimodel.InvalidArgumentf("display %s does not cycle", c.Id())
	}
	img, err := cyclable.DisplayNext()
	if err != nil {
		return err
	}
	if img == nil {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	writeJSON(w, http.StatusOK, controller.DescribeImage(img))
	return nil
}

func listImages(w http.ResponseWriter, r *http.Request, c controller.Controller) error {
	images, err := c.Store().List()
	if err != nil {
		return err
	}
	infos := make([]apimodel.ImageInfo, len(images))
	for i, img := range images {
		infos[i] = controller.DescribeImage(img)
	}
	writeJSON(w, http.StatusOK, infos)
	return nil
}

func storedImage(r *http.Request, c controller.Controller) (*media.Image, error) {
	imageId := mux.Vars(r)["image_id"]
	img, err := c.Store().Get(imageId)
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, apimodel.NotFoundf("image %s", imageId)
	}
	return img, nil
}

func getImage(w http.ResponseWriter, r *http.Request, c controller.Controller) error {
	img, err := storedImage(r, c)
	if err != nil {
		return err
	}
	data, err := img.Data()
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", img.Type().MimeType())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logrus.Warnf("Unable to send image %s: %v", img.Id(), err)
	}
	return nil
}

func getImageMetadata(w http.ResponseWriter, r *http.Request, c controller.Controller) error {
	img, err := storedImage(r, c)
	if err != nil {
		return err
	}
	metadata := img.Metadata()
	if metadata == nil {
		metadata = media.Metadata{}
	}
	writeJSON(w, http.StatusOK, metadata)
	return nil
}

// uploadedImage builds an image from the raw body. Content-Type selects the type, metadata comes from
// the X-Image-Metadata JSON header and the rotation query parameter.
func uploadedImage(r *http.Request) (*media.Image, error) {
	imageType, err := media.TypeFromMime(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	metadata := media.Metadata{}
	if raw := r.Header.Get("X-Image-Metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			return nil, apimodel.InvalidArgumentf("unable to parse image metadata: %v", err)
		}
	}
	if raw := r.URL.Query().Get("rotation"); raw != "" {
		rotation, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, apimodel.InvalidArgumentf("rotation %q is not a number", raw)
		}
		metadata["rotation"] = rotation
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxImageSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImageSize {
		return nil, apimodel.InvalidArgumentf("image larger than %d bytes", maxImageSize)
	}
	if len(data) == 0 {
		return nil, apimodel.InvalidArgumentf("empty image")
	}
	return media.New(mux.Vars(r)["image_id"], imageType, data, metadata), nil
}

func createImage(w http.ResponseWriter, r *http.Request, c controller.Controller) error {
	img, err := uploadedImage(r)
	if err != nil {
		return err
	}
	if err := c.Store().Add(img); err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, controller.DescribeImage(img))
	return nil
}

func replaceImage(w http.ResponseWriter, r *http.Request, c controller.Controller) error {
	img, err := uploadedImage(r)
	if err != nil {
		return err
	}
	if err := controller.ReplaceImage(c, img); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, controller.DescribeImage(img))
	return nil
}

func deleteImage(w http.ResponseWriter, r *http.Request, c controller.Controller) error {
	imageId := mux.Vars(r)["image_id"]
	removed, err := c.Store().Remove(imageId)
	if err != nil {
		return err
	}
	if !removed {
		return apimodel.NotFoundf("image %s", imageId)
	}
	ErrorStatusAction(w, r, http.StatusOK)
	return nil
}

func getSleepState(w http.ResponseWriter, r *http.Request, c controller.Controller) error {
	writeJSON(w, http.StatusOK, apimodel.SleepState{Sleeping: c.Driver().Sleeping()})
	return nil
}

func setSleepState(w http.ResponseWriter, r *http.Request, c controller.Controller) error {
	var state apimodel.SleepState
	if err := readJSON(r, &state); err != nil {
		return err
	}
	var err error
	if state.Sleeping {
		err = c.Driver().Sleep()
	} else {
		err = c.Driver().Wake()
	}
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, apimodel.SleepState{Sleeping: c.Driver().Sleeping()})
	return nil
}

func listTransformers(w http.ResponseWriter, r *http.Request, c controller.Controller) error {
	transformers, err := c.Pipeline().Transformers()
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, transform.Describe(transformers))
	return nil
}

func describeTransformer(c controller.Controller, transformerId string) (*apimodel.TransformerInfo, transform.Transformer, error) {
	t, err := c.Pipeline().Transformer(transformerId)
	if err != nil {
		return nil, nil, err
	}
	if t == nil {
		return nil, nil, apimodel.NotFoundf("transformer %s", transformerId)
	}
	position, err := c.Pipeline().Position(transformerId)
	if err != nil {
		return nil, nil, err
	}
	info := transform.Describe([]transform.Transformer{t})[0]
	info.Position = position
	return &info, t, nil
}

func getTransformer(w http.ResponseWriter, r *http.Request, c controller.Controller) error {
	info, _, err := describeTransformer(c, mux.Vars(r)["transformer_id"])
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, info)
	return nil
}

// updateTransformer applies configuration, then activation, then position. A failing step leaves the
// previous ones applied.
func updateTransformer(w http.ResponseWriter, r *http.Request, c controller.Controller) error {
	transformerId := mux.Vars(r)["transformer_id"]
	var update apimodel.TransformerUpdate
	if err := readJSON(r, &update); err != nil {
		return err
	}
	_, t, err := describeTransformer(c, transformerId)
	if err != nil {
		return err
	}

	if update.Configuration != nil {
		if err := t.Configure(update.Configuration); err != nil {
			return err
		}
	}
	if update.Active != nil {
		if err := t.SetActive(*update.Active); err != nil {
			return err
		}
	}
	if update.Position != nil {
		if err := c.Pipeline().SetPosition(transformerId, *update.Position); err != nil {
			return err
		}
	}

	info, _, err := describeTransformer(c, transformerId)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, info)
	return nil
}
