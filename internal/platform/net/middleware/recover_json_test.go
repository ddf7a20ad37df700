package middleware

import (
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	"unfurl/internal/platform/testkit"
)

func TestRecoverJSONConvertsPanic(t *testing.T) {
	t.Parallel()
	h := RecoverJSON(stdhttp.HandlerFunc(func(stdhttp.ResponseWriter, *stdhttp.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	testkit.MustNotPanic(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/", nil))
	})

	if rec.Code != stdhttp.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body panicWire
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body unmarshal: %v", err)
	}
	if body.StatusCode != stdhttp.StatusInternalServerError {
		t.Fatalf("body status_code = %d", body.StatusCode)
	}
	testkit.MustContain(t, body.Error, "panic recovered")
}

func TestRecoverJSONPassThrough(t *testing.T) {
	t.Parallel()
	h := RecoverJSON(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		w.WriteHeader(stdhttp.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/", nil))
	if rec.Code != stdhttp.StatusNoContent {
		t.Fatalf("status = %d, want untouched 204", rec.Code)
	}
}
