package imageapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	goimage "image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DMarby/image-api/internal/handler"
	"github.com/DMarby/image-api/internal/health"
	"github.com/DMarby/image-api/internal/image"
	"github.com/DMarby/image-api/internal/image/codec"
	"github.com/DMarby/image-api/internal/image/pipeline"
	api "github.com/DMarby/image-api/internal/imageapi"
	"github.com/DMarby/image-api/internal/logger"
	"github.com/DMarby/image-api/internal/tracing/test"
	"go.uber.org/zap"

	mockProcessor "github.com/DMarby/image-api/internal/image/mock"
)

const noCache = "private, no-cache, no-store, must-revalidate"

func fixture(t *testing.T) []byte {
	t.Helper()

	img := goimage.NewNRGBA(goimage.Rect(0, 0, 80, 60))
	for y := 0; y < 60; y++ {
		for x := 0; x < 80; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 3), G: uint8(y * 4), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}

	return buf.Bytes()
}

// upload builds a multipart request, leaving out the image field when data is nil
func upload(t *testing.T, path string, data []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if data != nil {
		part, err := writer.CreateFormFile("image", "photos/photo.png")
		if err != nil {
			t.Fatal(err)
		}
		part.Write(data)
	}

	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			t.Fatal(err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("POST", path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func setup(t *testing.T, ctx context.Context) (*logger.Logger, *api.API) {
	log := logger.New(zap.FatalLevel)
	tracer := test.Tracer(log)

	c := codec.New()
	checker := &health.Checker{Ctx: ctx, Codec: c, Log: log}
	checker.Run()

	return log, &api.API{
		ImageProcessor: pipeline.New(ctx, log, tracer, 2, c, nil),
		HealthChecker:  checker,
		Log:            log,
		Tracer:         tracer,
		HandlerTimeout: time.Minute,
	}
}

func TestAPI(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, a := setup(t, ctx)
	defer log.Sync()

	router := a.Router()
	data := fixture(t)

	mockRouter := (&api.API{
		ImageProcessor: &mockProcessor.Processor{},
		HealthChecker:  a.HealthChecker,
		Log:            log,
		Tracer:         a.Tracer,
		HandlerTimeout: time.Minute,
	}).Router()

	smallRouter := (&api.API{
		ImageProcessor: a.ImageProcessor,
		HealthChecker:  a.HealthChecker,
		Log:            log,
		Tracer:         a.Tracer,
		HandlerTimeout: time.Minute,
		MaxUploadSize:  1024,
	}).Router()

	tests := []struct {
		Name             string
		Request          *http.Request
		Router           http.Handler
		Accept           string
		ExpectedStatus   int
		ExpectedResponse string
		ExpectedHeaders  map[string]string
	}{
		{"index", httptest.NewRequest("GET", "/", nil), router, "", http.StatusOK, "{\"message\":\"Image Processing API is running\"}\n", map[string]string{"Content-Type": "application/json"}},
		{"health", httptest.NewRequest("GET", "/health", nil), router, "", http.StatusOK, "{\"healthy\":true,\"codec\":\"healthy\"}\n", map[string]string{"Content-Type": "application/json", "Cache-Control": noCache}},
		{"404", httptest.NewRequest("GET", "/asdf", nil), router, "", http.StatusNotFound, "page not found\n", map[string]string{"Content-Type": "text/plain; charset=utf-8", "Cache-Control": noCache}},
		{"wrong method", httptest.NewRequest("GET", "/convert", nil), router, "", http.StatusMethodNotAllowed, "method not allowed\n", nil},

		// Validation errors
		{"not multipart", httptest.NewRequest("POST", "/convert", strings.NewReader("format=png")), router, "", http.StatusBadRequest, "Expected a multipart/form-data upload\n", nil},
		{"missing image", upload(t, "/convert", nil, map[string]string{"format": "png"}), router, "", http.StatusBadRequest, "Missing image upload in field \"image\"\n", nil},
		{"missing format", upload(t, "/convert", data, nil), router, "", http.StatusBadRequest, "Format is required\n", map[string]string{"Cache-Control": noCache, "Content-Disposition": ""}},
		{"invalid format", upload(t, "/convert", data, map[string]string{"format": "gif"}), router, "", http.StatusBadRequest, "Format must be one of [avif webp png jpg jpeg]\n", nil},
		{"invalid quality", upload(t, "/convert", data, map[string]string{"format": "png", "quality": "0"}), router, "", http.StatusBadRequest, "Quality must be between 1 and 100\n", nil},
		{"non numeric quality", upload(t, "/convert", data, map[string]string{"format": "png", "quality": "high"}), router, "", http.StatusBadRequest, "Quality must be an integer\n", nil},
		{"missing text", upload(t, "/watermark", data, map[string]string{"format": "png"}), router, "", http.StatusBadRequest, "Text is required\n", nil},
		{"invalid density", upload(t, "/watermark", data, map[string]string{"format": "png", "text": "hi", "density": "51"}), router, "", http.StatusBadRequest, "Density must be between 1 and 50\n", nil},
		{"invalid font size", upload(t, "/watermark", data, map[string]string{"format": "png", "text": "hi", "font_size": "0"}), router, "", http.StatusBadRequest, "Font size must be between 1 and 2048\n", nil},
		{"resize without dimensions", upload(t, "/resize", data, map[string]string{"format": "png"}), router, "", http.StatusBadRequest, "At least one of width, height, or percentage must be provided\n", nil},
		{"invalid maintain aspect ratio", upload(t, "/resize", data, map[string]string{"format": "png", "width": "10", "maintain_aspect_ratio": "maybe"}), router, "", http.StatusBadRequest, "Maintain aspect ratio must be true or false\n", nil},
		{"missing crop field", upload(t, "/crop", data, map[string]string{"format": "png", "left": "0", "top": "0", "right": "10"}), router, "", http.StatusBadRequest, "Bottom is required\n", nil},
		{"crop out of bounds", upload(t, "/crop", data, map[string]string{"format": "png", "left": "0", "top": "0", "right": "100", "bottom": "10"}), router, "", http.StatusBadRequest, "Invalid crop coordinates. Image dimensions are 80x60.\n", nil},
		{"crop out of bounds json", upload(t, "/crop", data, map[string]string{"format": "png", "left": "0", "top": "0", "right": "100", "bottom": "10"}), router, "application/json", http.StatusBadRequest, "{\"error\":\"Invalid crop coordinates. Image dimensions are 80x60.\"}\n", map[string]string{"Content-Type": "application/json"}},
		{"upload too large", upload(t, "/convert", bytes.Repeat(data, 1+2048/len(data)), map[string]string{"format": "png"}), smallRouter, "", http.StatusBadRequest, "Upload exceeds the maximum size of 1024 bytes\n", nil},

		// Decode errors
		{"invalid image", upload(t, "/convert", []byte("not an image"), map[string]string{"format": "png"}), router, "", http.StatusUnprocessableEntity, "", nil},

		// Processor errors
		{"processor error", upload(t, "/convert", data, map[string]string{"format": "png"}), mockRouter, "", http.StatusInternalServerError, "Something went wrong\n", map[string]string{"Cache-Control": noCache}},
	}

	for _, test := range tests {
		w := httptest.NewRecorder()
		if test.Accept != "" {
			test.Request.Header.Set("Accept", test.Accept)
		}

		test.Router.ServeHTTP(w, test.Request)
		if w.Code != test.ExpectedStatus {
			t.Errorf("%s: wrong response code, %#v, %s", test.Name, w.Code, w.Body.String())
			continue
		}

		if w.Header().Get(handler.RequestIDHeader) == "" {
			t.Errorf("%s: missing request id", test.Name)
		}

		for expectedHeader, expectedValue := range test.ExpectedHeaders {
			if headerValue := w.Header().Get(expectedHeader); headerValue != expectedValue {
				t.Errorf("%s: wrong header value for %s, %#v", test.Name, expectedHeader, headerValue)
			}
		}

		if test.ExpectedResponse != "" && w.Body.String() != test.ExpectedResponse {
			t.Errorf("%s: wrong response %#v", test.Name, w.Body.String())
		}
	}
}

func TestImageRoutes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, a := setup(t, ctx)
	defer log.Sync()

	router := a.Router()
	data := fixture(t)
	c := codec.New()

	tests := []struct {
		Name                       string
		Path                       string
		Fields                     map[string]string
		ExpectedContentType        string
		ExpectedContentDisposition string
		ExpectedFormat             string
		ExpectedWidth              int
		ExpectedHeight             int
	}{
		{"convert png", "/convert", map[string]string{"format": "png"}, "image/png", "attachment; filename=photo.png", "PNG", 80, 60},
		{"convert jpeg alias", "/convert", map[string]string{"format": "JPEG", "quality": "50"}, "image/jpeg", "attachment; filename=photo.jpg", "JPEG", 80, 60},
		{"convert webp", "/convert", map[string]string{"format": "webp"}, "image/webp", "attachment; filename=photo.webp", "WEBP", 80, 60},
		{"convert avif", "/convert", map[string]string{"format": "avif", "quality": "30"}, "image/avif", "attachment; filename=photo.avif", "AVIF", 80, 60},
		{"resize width", "/resize", map[string]string{"format": "png", "width": "40"}, "image/png", "attachment; filename=photo_resized.png", "PNG", 40, 30},
		{"resize percentage", "/resize", map[string]string{"format": "png", "percentage": "25"}, "image/png", "attachment; filename=photo_resized.png", "PNG", 20, 15},
		{"resize stretch", "/resize", map[string]string{"format": "png", "width": "40", "height": "40", "maintain_aspect_ratio": "false"}, "image/png", "attachment; filename=photo_resized.png", "PNG", 40, 40},
		{"crop", "/crop", map[string]string{"format": "png", "left": "10", "top": "10", "right": "50", "bottom": "40"}, "image/png", "attachment; filename=photo_cropped.png", "PNG", 40, 30},
		{"watermark", "/watermark", map[string]string{"format": "jpg", "text": "Sample"}, "image/jpeg", "attachment; filename=photo_watermarked.jpg", "JPEG", 80, 60},
		{"watermark with options", "/watermark", map[string]string{"format": "png", "text": "Sample", "opacity": "0.8", "density": "5", "font_size": "12", "color": "ff0000"}, "image/png", "attachment; filename=photo_watermarked.png", "PNG", 80, 60},
	}

	for _, test := range tests {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, upload(t, test.Path, data, test.Fields))

		if w.Code != http.StatusOK {
			t.Errorf("%s: wrong response code, %#v, %s", test.Name, w.Code, w.Body.String())
			continue
		}

		if contentType := w.Header().Get("Content-Type"); contentType != test.ExpectedContentType {
			t.Errorf("%s: wrong content type, %#v", test.Name, contentType)
		}

		if contentDisposition := w.Header().Get("Content-Disposition"); contentDisposition != test.ExpectedContentDisposition {
			t.Errorf("%s: wrong content disposition header, %#v", test.Name, contentDisposition)
		}

		img, err := c.Decode(w.Body.Bytes())
		if err != nil {
			t.Errorf("%s: error decoding response %s", test.Name, err)
			continue
		}

		if img.Format != test.ExpectedFormat {
			t.Errorf("%s: wrong format %s", test.Name, img.Format)
		}

		if img.Width() != test.ExpectedWidth || img.Height() != test.ExpectedHeight {
			t.Errorf("%s: wrong dimensions %dx%d", test.Name, img.Width(), img.Height())
		}
	}
}

func TestInfo(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, a := setup(t, ctx)
	defer log.Sync()

	data := fixture(t)
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, upload(t, "/info", data, map[string]string{"quality": "70"}))

	if w.Code != http.StatusOK {
		t.Fatalf("wrong response code, %#v, %s", w.Code, w.Body.String())
	}

	var report image.SizeReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}

	if report.Original.SizeBytes != len(data) || report.Original.Format != "PNG" || report.Original.Mode != image.ModeRGB {
		t.Errorf("wrong original stats %+v", report.Original)
	}

	if report.Original.Width != 80 || report.Original.Height != 60 {
		t.Errorf("wrong dimensions %+v", report.Original)
	}

	for _, format := range image.Formats {
		size := report.Formats.Get(format)
		if size.Quality != 70 {
			t.Errorf("%s: wrong quality %d", format, size.Quality)
		}

		if size.SizeBytes <= 0 {
			t.Errorf("%s: wrong size %d", format, size.SizeBytes)
		}

		if size.Savings.Bytes != len(data)-size.SizeBytes {
			t.Errorf("%s: wrong savings %+v", format, size.Savings)
		}
	}

	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"avif", "webp", "png", "jpg"} {
		if _, ok := raw["formats"][key]; !ok {
			t.Errorf("missing format %s", key)
		}
	}
}

func TestMetadata(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, a := setup(t, ctx)
	defer log.Sync()

	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, upload(t, "/metadata", fixture(t), nil))

	if w.Code != http.StatusOK {
		t.Fatalf("wrong response code, %#v, %s", w.Code, w.Body.String())
	}

	var report image.MetadataReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}

	if report.Filename != "photos/photo.png" && report.Filename != "photo.png" {
		t.Errorf("wrong filename %#v", report.Filename)
	}

	if report.Format != "PNG" || report.Mode != image.ModeRGB {
		t.Errorf("wrong format or mode %+v", report)
	}

	if report.Size != (image.Dimensions{Width: 80, Height: 60}) {
		t.Errorf("wrong size %+v", report.Size)
	}

	if report.EXIF == nil || len(report.EXIF) != 0 {
		t.Errorf("expected empty exif, got %#v", report.EXIF)
	}
}

func TestRequestID(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, a := setup(t, ctx)
	defer log.Sync()

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(handler.RequestIDHeader, "abc123")

	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)

	if id := w.Header().Get(handler.RequestIDHeader); id != "abc123" {
		t.Errorf("wrong request id %#v", id)
	}
}
