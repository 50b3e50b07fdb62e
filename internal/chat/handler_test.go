package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRouter(t *testing.T, journal Journal) http.Handler {
	t.Helper()
	m := NewManager(newTestEngine(t, Config{Journal: journal}))
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(m, zaptest.NewLogger(t)))
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), w.Body.String())
	return v
}

func TestHTTPConversation(t *testing.T) {
	h := newTestRouter(t, &memJournal{})

	w := do(t, h, http.MethodPost, "/sessions", `{"customer_id":"CUST0001"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	started := decode[map[string]string](t, w)
	id := started["session_id"]
	require.NotEmpty(t, id)
	assert.Equal(t, "confused", started["persona"])
	assert.NotEmpty(t, started["tone"])
	assert.NotEmpty(t, started["style"])
	assert.Contains(t, started["greeting"], "Customer")

	w = do(t, h, http.MethodPost, "/sessions/"+id+"/messages", `{"text":"what is the outstanding amount"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode[map[string]string](t, w)
	assert.Equal(t, "ask_amount", out["intent"])
	assert.Contains(t, out["reply"], "₹18,500")
	assert.Equal(t, "Send simplified explainer with step-by-step payment guide.", out["next_best_action"])

	w = do(t, h, http.MethodGet, "/sessions/"+id+"/events", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	events := decode[[]map[string]any](t, w)
	require.Len(t, events, 2)
	assert.Equal(t, "meta", events[0]["type"])
	assert.Equal(t, "turn", events[1]["type"])

	w = do(t, h, http.MethodDelete, "/sessions/"+id, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Glad I could help. If anything is unclear later, just message me again.", decode[map[string]string](t, w)["goodbye"])

	w = do(t, h, http.MethodPost, "/sessions/"+id+"/messages", `{"text":"hello"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, decode[map[string]string](t, w)["error"])
}

func TestHTTPStartWithoutBody(t *testing.T) {
	h := newTestRouter(t, nil)
	w := do(t, h, http.MethodPost, "/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, decode[map[string]string](t, w)["greeting"], "Customer")
}

func TestHTTPErrors(t *testing.T) {
	h := newTestRouter(t, nil)

	w := do(t, h, http.MethodPost, "/sessions", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid json", decode[map[string]string](t, w)["error"])

	w = do(t, h, http.MethodPost, "/sessions", "")
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[map[string]string](t, w)["session_id"]

	w = do(t, h, http.MethodPost, "/sessions/"+id+"/messages", `[1,2`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/sessions/"+id+"/events", "")
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	w = do(t, h, http.MethodDelete, "/sessions/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type endedSessions struct{ Sessions }

func (endedSessions) Respond(_ context.Context, _, _ string) (Reply, error) {
	return Reply{}, ErrSessionEnded
}

func TestHTTPEndedSessionConflict(t *testing.T) {
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(endedSessions{}, nil))

	w := do(t, r, http.MethodPost, "/sessions/x/messages", `{"text":"hi"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}
