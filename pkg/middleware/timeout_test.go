package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestTimeoutPassesFastRequests(t *testing.T) {
	h := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q, want ok", rec.Body.String())
	}
}

func TestTimeoutAnswers504AndDiscardsLateWrites(t *testing.T) {
	release := make(chan struct{})
	wrote := make(chan struct{})
	h := Timeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Held until after the middleware has answered, so the writes
		// below always happen post-timeout. They must land nowhere near
		// the client.
		<-release
		w.Header().Set("X-Late", "yes")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("too late"))
		close(wrote)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	close(release)
	<-wrote

	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "request timeout") {
		t.Errorf("body = %q, want the timeout error", rec.Body.String())
	}
	if rec.Header().Get("X-Late") != "" {
		t.Error("late header write reached the response")
	}
}

func TestTimeoutLeavesStartedResponsesAlone(t *testing.T) {
	h := Timeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("first half"))
		<-r.Context().Done()
		w.Write([]byte(", second half"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (response already started)", rec.Code)
	}
	if rec.Body.String() != "first half, second half" {
		t.Errorf("body = %q, want the handler's full output", rec.Body.String())
	}
}
