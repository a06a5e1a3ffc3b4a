package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireAuthSetsUserID(t *testing.T) {
	ts := setupTestServer(t)

	var got string
	handler := ts.handler.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		got = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUID    string
	}{
		{"valid token", "Bearer " + ts.token(t, "alice"), http.StatusNoContent, "alice"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic " + ts.token(t, "alice"), http.StatusUnauthorized, ""},
		{"garbage token", "Bearer abc.def.ghi", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantUID, got)
		})
	}
}

func TestQueryTokenOnlyForWebsocket(t *testing.T) {
	ts := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/?access_token="+ts.token(t, "alice"), nil)
	assert.Empty(t, getToken(req))

	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	assert.NotEmpty(t, getToken(req))
}

func TestUserIDFromContext(t *testing.T) {
	assert.Empty(t, UserIDFromContext(context.Background()))

	ctx := context.WithValue(context.Background(), ContextKeyUserID, "u1")
	assert.Equal(t, "u1", UserIDFromContext(ctx))
}

func TestLogRequests(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	handler := LogRequests(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fine", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/boom", nil))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var first, second map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &second))

	assert.Equal(t, "info", first["level"])
	assert.Equal(t, "GET", first["method"])
	assert.Equal(t, "/fine", first["path"])
	assert.EqualValues(t, 200, first["status"])

	assert.Equal(t, "error", second["level"])
	assert.EqualValues(t, 500, second["status"])
}
