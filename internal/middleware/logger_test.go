package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestRequestLoggerMasksQueryToken(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.StandardLogger()
	prev := logger.Out
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(prev) })

	h := RequestLogger()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get(TokenQueryParam); got != "s3cret-token" {
			t.Errorf("handler saw token %q", got)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/live?token=s3cret-token&x=1", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if strings.Contains(out, "s3cret-token") {
		t.Fatalf("token leaked into access log: %s", out)
	}
	if !strings.Contains(out, "token="+redacted) || !strings.Contains(out, "/api/live") {
		t.Fatalf("expected masked request line, got: %s", out)
	}

	buf.Reset()
	h = RequestLogger()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz?verbose=1", nil))
	if !strings.Contains(buf.String(), "/healthz?verbose=1") {
		t.Fatalf("expected untouched request line, got: %s", buf.String())
	}
}
