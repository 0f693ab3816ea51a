package imageapi

import (
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/DMarby/image-api/internal/handler"
	"github.com/DMarby/image-api/internal/image"
	"github.com/DMarby/image-api/internal/params"
)

// taskBuilder builds a task from the fields of a parsed form
type taskBuilder func(f *params.Form) (image.Task, error)

// process parses the upload, builds the task and runs it through the image processor
func (a *API) process(w http.ResponseWriter, r *http.Request, build taskBuilder) (*params.Upload, *image.Result, *handler.Error) {
	form, upload, err := params.Parse(w, r, a.maxUploadSize())
	if err != nil {
		return nil, nil, a.handleError(r, err)
	}
	defer form.Cleanup()

	task, err := build(form)
	if err != nil {
		return nil, nil, a.handleError(r, err)
	}

	result, err := a.ImageProcessor.ProcessImage(r.Context(), upload.Data, task)
	if err != nil {
		return nil, nil, a.handleError(r, err)
	}

	return upload, result, nil
}

// imageHandler returns a handler responding with the encoded image as an attachment named after the upload
func (a *API) imageHandler(suffix string, build taskBuilder) handler.Handler {
	return func(w http.ResponseWriter, r *http.Request) *handler.Error {
		upload, result, handlerErr := a.process(w, r, build)
		if handlerErr != nil {
			return handlerErr
		}

		if !result.IsImage() {
			a.logError(r, "error processing image", fmt.Errorf("expected image result for %s", result.Operation))
			return handler.InternalServerError()
		}

		filename := upload.Base() + suffix + "." + result.Format.Extension()

		w.Header().Set("Content-Type", result.Format.ContentType())
		w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
		w.Header().Set("Cache-Control", "private, no-store")
		w.Write(result.Data)

		return nil
	}
}

func (a *API) convertHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	return a.imageHandler("", func(f *params.Form) (image.Task, error) {
		return f.ConvertTask()
	})(w, r)
}

func (a *API) watermarkHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	return a.imageHandler("_watermarked", func(f *params.Form) (image.Task, error) {
		return f.WatermarkTask()
	})(w, r)
}

func (a *API) resizeHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	return a.imageHandler("_resized", func(f *params.Form) (image.Task, error) {
		return f.ResizeTask()
	})(w, r)
}

func (a *API) cropHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	return a.imageHandler("_cropped", func(f *params.Form) (image.Task, error) {
		return f.CropTask()
	})(w, r)
}

func (a *API) infoHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	_, result, handlerErr := a.process(w, r, func(f *params.Form) (image.Task, error) {
		return f.InfoTask()
	})
	if handlerErr != nil {
		return handlerErr
	}

	handler.WriteJSON(w, http.StatusOK, result.Report)
	return nil
}

func (a *API) metadataHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	upload, result, handlerErr := a.process(w, r, func(f *params.Form) (image.Task, error) {
		return &image.MetadataTask{}, nil
	})
	if handlerErr != nil {
		return handlerErr
	}

	report, ok := result.Report.(*image.MetadataReport)
	if !ok {
		a.logError(r, "error processing image", fmt.Errorf("unexpected metadata result %T", result.Report))
		return handler.InternalServerError()
	}

	report.Filename = upload.Filename

	handler.WriteJSON(w, http.StatusOK, report)
	return nil
}
