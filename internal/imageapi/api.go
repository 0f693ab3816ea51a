package imageapi

import (
	"net/http"
	"time"

	"github.com/DMarby/image-api/internal/handler"
	"github.com/DMarby/image-api/internal/health"
	"github.com/DMarby/image-api/internal/image"
	"github.com/DMarby/image-api/internal/logger"
	"github.com/DMarby/image-api/internal/tracing"
	"github.com/gorilla/mux"
)

// DefaultMaxUploadSize is the largest upload accepted when MaxUploadSize isn't set
const DefaultMaxUploadSize = 50 << 20

// API is a http api
type API struct {
	ImageProcessor image.Processor
	HealthChecker  *health.Checker
	Log            *logger.Logger
	Tracer         *tracing.Tracer
	HandlerTimeout time.Duration
	MaxUploadSize  int64
	CORSOrigins    []string
}

// Utility methods for logging
func (a *API) logError(r *http.Request, message string, err error) {
	a.Log.Errorw(message, handler.LogFields(r, "error", err)...)
}

// Router returns a http router
func (a *API) Router() http.Handler {
	router := mux.NewRouter()

	router.NotFoundHandler = handler.Handler(a.notFoundHandler)
	router.MethodNotAllowedHandler = handler.Handler(a.methodNotAllowedHandler)

	// Redirect trailing slashes
	router.StrictSlash(true)

	router.Handle("/", handler.Handler(a.indexHandler)).Methods("GET").Name("index")

	// Healthcheck
	router.Handle("/health", handler.Health(a.HealthChecker)).Methods("GET").Name("health")

	// Image routes, all taking a multipart upload in the "image" field
	router.Handle("/convert", handler.Handler(a.convertHandler)).Methods("POST").Name("convert")
	router.Handle("/info", handler.Handler(a.infoHandler)).Methods("POST").Name("info")
	router.Handle("/metadata", handler.Handler(a.metadataHandler)).Methods("POST").Name("metadata")
	router.Handle("/watermark", handler.Handler(a.watermarkHandler)).Methods("POST").Name("watermark")
	router.Handle("/resize", handler.Handler(a.resizeHandler)).Methods("POST").Name("resize")
	router.Handle("/crop", handler.Handler(a.cropHandler)).Methods("POST").Name("crop")

	routeMatcher := &handler.MuxRouteMatcher{Router: router}

	// Set up handlers for adding a request id, handling panics, request logging, setting CORS headers, metrics, tracing and handler execution timeout
	return handler.AddRequestID(
		handler.Recovery(a.Log,
			handler.Logger(a.Log,
				handler.CORS(a.CORSOrigins, []string{"Content-Disposition", handler.RequestIDHeader},
					handler.Metrics(
						handler.Tracer(a.Tracer,
							http.TimeoutHandler(router, a.HandlerTimeout, "Something went wrong. Timed out."),
							routeMatcher,
						),
						routeMatcher,
					),
				),
			),
		),
	)
}

func (a *API) maxUploadSize() int64 {
	if a.MaxUploadSize > 0 {
		return a.MaxUploadSize
	}

	return DefaultMaxUploadSize
}

// handleError maps a processing error to a response, hiding the details of internal errors from the client
func (a *API) handleError(r *http.Request, err error) *handler.Error {
	switch image.KindOf(err) {
	case image.KindValidation:
		return handler.BadRequest(image.Message(err))
	case image.KindDecode, image.KindEncode:
		return handler.UnprocessableEntity(image.Message(err))
	default:
		a.logError(r, "error processing image", err)
		return handler.InternalServerError()
	}
}

func (a *API) indexHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	handler.WriteJSON(w, http.StatusOK, struct {
		Message string `json:"message"`
	}{"Image Processing API is running"})

	return nil
}

// Handle not found errors
var notFoundError = &handler.Error{
	Message: "page not found",
	Code:    http.StatusNotFound,
}

func (a *API) notFoundHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	return notFoundError
}

func (a *API) methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	return &handler.Error{
		Message: "method not allowed",
		Code:    http.StatusMethodNotAllowed,
	}
}
