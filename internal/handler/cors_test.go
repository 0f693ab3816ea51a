package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DMarby/image-api/internal/handler"
)

func TestCORS(t *testing.T) {
	tests := []struct {
		Name            string
		Method          string
		AllowedOrigins  []string
		ExpectedStatus  int
		Headers         map[string]string
		ExpectedHeaders map[string]string
	}{
		{
			Name:           "sets correct headers for non-option requests",
			Method:         "POST",
			ExpectedStatus: http.StatusOK,
			Headers: map[string]string{
				"Origin": "http://www.example.com",
			},
			ExpectedHeaders: map[string]string{
				"Access-Control-Allow-Origin":   "*",
				"Access-Control-Expose-Headers": "Content-Disposition, X-Request-Id",
			},
		},
		{
			Name:           "responds correctly to option request",
			Method:         "OPTIONS",
			ExpectedStatus: http.StatusNoContent,
			Headers: map[string]string{
				"Origin":                         "http://www.example.com",
				"Access-Control-Request-Method":  "POST",
				"Access-Control-Request-Headers": "foobar",
			},
			ExpectedHeaders: map[string]string{
				"Access-Control-Allow-Origin":  "*",
				"Access-Control-Allow-Methods": "POST",
				"Access-Control-Allow-Headers": "foobar",
			},
		},
		{
			Name:           "allows configured origins",
			Method:         "POST",
			AllowedOrigins: []string{"http://www.example.com"},
			ExpectedStatus: http.StatusOK,
			Headers: map[string]string{
				"Origin": "http://www.example.com",
			},
			ExpectedHeaders: map[string]string{
				"Access-Control-Allow-Origin": "http://www.example.com",
			},
		},
		{
			Name:           "omits headers for other origins",
			Method:         "POST",
			AllowedOrigins: []string{"http://www.example.com"},
			ExpectedStatus: http.StatusOK,
			Headers: map[string]string{
				"Origin": "http://evil.example.org",
			},
			ExpectedHeaders: map[string]string{
				"Access-Control-Allow-Origin": "",
			},
		},
	}

	for _, test := range tests {
		r, err := http.NewRequest(test.Method, "http://www.example.com/", nil)
		if err != nil {
			t.Errorf("%s: %s", test.Name, err)
			continue
		}

		for header, value := range test.Headers {
			r.Header.Set(header, value)
		}

		rr := httptest.NewRecorder()
		testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

		handler.CORS(test.AllowedOrigins, []string{"Content-Disposition", handler.RequestIDHeader}, testHandler).ServeHTTP(rr, r)

		if rr.Code != test.ExpectedStatus {
			t.Errorf("%s: wrong response code, %#v", test.Name, rr.Code)
			continue
		}

		for expectedHeader, expectedValue := range test.ExpectedHeaders {
			headerValue := rr.Header().Get(expectedHeader)
			if headerValue != expectedValue {
				t.Errorf("%s: wrong header value for %s, %#v", test.Name, expectedHeader, headerValue)
			}
		}
	}
}
