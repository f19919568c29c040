package httpclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/autopilot/internal/httpclient"
)

type echo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Query  string `json:"query"`
	Value  int    `json:"value"`
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		var in echo
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&in)
		}
		in.Method = r.Method
		in.Path = r.URL.Path
		in.Query = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(in)
	})
	mux.HandleFunc("/boom", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "solver exploded", http.StatusInternalServerError)
	})
	mux.HandleFunc("/garbage", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T, srv *httptest.Server) *httpclient.InstrumentedClient {
	t.Helper()
	c, err := httpclient.NewInstrumentedClient(
		httpclient.WithBaseURL(srv.URL),
		httpclient.WithProviderName("test"),
		httpclient.WithRequestTimeout(5*time.Second),
	)
	require.NoError(t, err)
	return c
}

func TestPostJSON(t *testing.T) {
	srv := newServer(t)
	c := newClient(t, srv)

	var out echo
	resp, err := c.NewRequest().
		SetBody(echo{Value: 42}).
		SetQueryParam("round", "7").
		SetResult(&out).
		Post(context.Background(), "/echo")
	require.NoError(t, err)

	assert.True(t, resp.IsSuccess())
	assert.Equal(t, http.MethodPost, out.Method)
	assert.Equal(t, "/echo", out.Path)
	assert.Equal(t, "round=7", out.Query)
	assert.Equal(t, 42, out.Value)
}

func TestGet_StatusError(t *testing.T) {
	srv := newServer(t)
	c := newClient(t, srv)

	resp, err := c.NewRequest().Get(context.Background(), "boom")
	require.Error(t, err)

	var statusErr *httpclient.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "solver exploded")
	require.NotNil(t, resp)
	assert.False(t, resp.IsSuccess())
}

func TestGet_CustomErrorHandler(t *testing.T) {
	srv := newServer(t)
	c := newClient(t, srv)

	_, err := c.NewRequest(httpclient.WithResponseErrorHandler(func(int, []byte) error { return nil })).
		Get(context.Background(), "/boom")
	assert.NoError(t, err)
}

func TestGet_DecodeError(t *testing.T) {
	srv := newServer(t)
	c := newClient(t, srv)

	var out echo
	_, err := c.NewRequest().SetResult(&out).Get(context.Background(), "/garbage")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestGet_ContextDeadline(t *testing.T) {
	srv := newServer(t)
	c := newClient(t, srv)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.NewRequest().Get(ctx, "/slow")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
