package requesttime

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"meshgate/pkg/requestcontext"
)

func TestMiddlewareInjectsRequestTime(t *testing.T) {
	before := time.Now()
	var seen time.Time
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.Now(r.Context())
		_, ok := r.Context().Value(requestcontext.ContextKeyRequestTime).(time.Time)
		assert.True(t, ok, "request time must be stored in context")
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.False(t, seen.Before(before))
	assert.False(t, seen.After(time.Now()))
}
