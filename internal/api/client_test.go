package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinicdesk/internal/apperr"
	"clinicdesk/internal/tokenstore"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, store tokenstore.Store) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, 2*time.Second, store, zerolog.Nop())
	require.NoError(t, err)
	return client
}

func TestClient_AttachesBearerAndRequestID(t *testing.T) {
	store := tokenstore.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), "abc"))

	var gotAuth, gotRID, gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRID = r.Header.Get(requestIDHeader)
		gotPath = r.URL.Path
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "1"})
	}, store)

	var out struct {
		ID string `json:"id"`
	}
	ctx := WithRequestID(context.Background(), "rid-1")
	require.NoError(t, client.Do(ctx, Request{Method: http.MethodGet, Path: "/auth/me", Auth: true}, &out))

	assert.Equal(t, "Bearer abc", gotAuth)
	assert.Equal(t, "rid-1", gotRID)
	assert.Equal(t, "/auth/me", gotPath)
	assert.Equal(t, "1", out.ID)
}

func TestClient_AuthWithoutTokenNeverCallsBackend(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	}, tokenstore.NewMemoryStore())

	err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "patients/", Auth: true}, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrAuth)
	assert.Equal(t, "no token", apperr.Message(err))
	assert.False(t, called)
}

func TestClient_NormalizesErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    apperr.Kind
		message string
	}{
		{name: "server message", status: http.StatusUnauthorized, body: `{"message":"Token expired"}`, kind: apperr.KindAuth, message: "Token expired"},
		{name: "error field", status: http.StatusConflict, body: `{"error":"phone taken"}`, kind: apperr.KindValidation, message: "phone taken"},
		{name: "no body", status: http.StatusInternalServerError, body: ``, kind: apperr.KindTransport, message: apperr.DefaultMessage},
		{name: "html body", status: http.StatusBadGateway, body: `<html>oops</html>`, kind: apperr.KindTransport, message: apperr.DefaultMessage},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}, tokenstore.NewMemoryStore())

			err := client.Do(context.Background(), Request{Method: http.MethodPost, Path: "auth/login", Body: map[string]string{}}, nil)
			require.Error(t, err)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
			assert.Equal(t, tt.message, apperr.Message(err))
		})
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := NewClient(url, time.Second, tokenstore.NewMemoryStore(), zerolog.Nop())
	require.NoError(t, err)

	err = client.Do(context.Background(), Request{Method: http.MethodGet, Path: "auth/me"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrTransport)
	assert.Equal(t, apperr.DefaultMessage, apperr.Message(err))
}

func TestClient_Multipart(t *testing.T) {
	var (
		gotField string
		gotFile  []byte
		gotName  string
		gotType  string
	)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		gotField = r.FormValue("result")
		file, header, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotFile, _ = io.ReadAll(file)
		gotName = header.Filename
		gotType = header.Header.Get("Content-Type")
		_, _ = io.WriteString(w, `{}`)
	}, tokenstore.NewMemoryStore())

	err := client.Do(context.Background(), Request{
		Method: http.MethodPatch,
		Path:   "medical-tests/1",
		Multipart: &MultipartBody{
			Fields:   map[string]string{"result": "negative"},
			FileName: "result.pdf",
			FileType: "application/pdf",
			File:     []byte("%PDF-1.4"),
		},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "negative", gotField)
	assert.Equal(t, []byte("%PDF-1.4"), gotFile)
	assert.Equal(t, "result.pdf", gotName)
	assert.Equal(t, "application/pdf", gotType)
}

func TestDispositionFilename(t *testing.T) {
	h := http.Header{}
	assert.Equal(t, "download", DispositionFilename(h, "download"))

	h.Set("Content-Disposition", `attachment; filename="blood.pdf"`)
	assert.Equal(t, "blood.pdf", DispositionFilename(h, "download"))

	h.Set("Content-Disposition", `attachment`)
	assert.Equal(t, "download", DispositionFilename(h, "download"))
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	_, err := NewClient("ftp://example.com", time.Second, tokenstore.NewMemoryStore(), zerolog.Nop())
	assert.Error(t, err)
}
