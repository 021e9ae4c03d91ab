package supchat

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, agents, clients int) (*fixture, http.Handler) {
	t.Helper()
	f := newFixture(t, agents, clients)
	p := newTestPlatform(f, WithProbabilities(1, 0))
	r := chi.NewRouter()
	RegisterRoutes(r, NewHandler(f.svc, p, discardLogger()))
	return f, r
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandlerChatLifecycle(t *testing.T) {
	f, h := newTestRouter(t, 1, 2)
	client := f.clients[0]

	rr := do(t, h, http.MethodPost, "/chats", map[string]string{"client_id": client})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var chat ChatRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &chat))
	assert.Equal(t, client, chat.ClientID)
	assert.Equal(t, []string{f.agents[0]}, chat.SupportIDs)

	rr = do(t, h, http.MethodPost, "/chats", map[string]string{"client_id": f.clients[1]})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, h, http.MethodPost, "/messages", map[string]string{"person_id": client, "text": "Hello"})
	assert.Equal(t, http.StatusAccepted, rr.Code)

	rr = do(t, h, http.MethodPost, "/clients/"+client+"/csat", map[string]int{"score": 4})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, h, http.MethodPost, "/agents/"+f.agents[0]+"/close", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, h, http.MethodPost, "/agents/"+f.agents[0]+"/close", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(t, h, http.MethodPost, "/clients/"+client+"/csat", map[string]int{"score": 6})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPost, "/clients/"+client+"/csat", map[string]int{"score": 4})
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, h, http.MethodGet, "/people/"+f.agents[0]+"/chats", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var chats []ChatRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &chats))
	require.Len(t, chats, 1)
	require.NotNil(t, chats[0].Csat)
	assert.Equal(t, 4, *chats[0].Csat)
	assert.Len(t, chats[0].Messages, 1)
}

func TestHandlerErrors(t *testing.T) {
	_, h := newTestRouter(t, 1, 1)

	rr := do(t, h, http.MethodPost, "/chats", "{not json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPost, "/chats", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPost, "/chats", map[string]string{"client_id": "nobody"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodPost, "/chats/start", map[string]int{"count": 5})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, h, http.MethodPost, "/chats/missing/escalate", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlerSimulation(t *testing.T) {
	f, h := newTestRouter(t, 2, 3)

	rr := do(t, h, http.MethodPost, "/chats/start", map[string]int{"count": 3})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var started struct {
		Opened   []string `json:"opened"`
		Failures []struct {
			ClientID string `json:"client_id"`
			Error    string `json:"error"`
		} `json:"failures"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &started))
	assert.Len(t, started.Opened, 2)
	assert.Len(t, started.Failures, 1)

	rr = do(t, h, http.MethodPost, "/simulation/step", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var step struct {
		Closed []string `json:"closed"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &step))
	assert.Len(t, step.Closed, 2)

	rr = do(t, h, http.MethodGet, "/snapshot", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.Len(t, snap.Agents, 2)
	assert.Len(t, snap.Clients, 3)
	assert.Len(t, snap.Chats, 2)
	checkInvariants(t, f.dir)
}
