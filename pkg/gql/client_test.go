package gql

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Query(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, QueryPath, r.URL.Path)
		assert.Equal(t, "{ allCourses { edges { node { id } } } }", r.URL.Query().Get("q"))
		assert.JSONEq(t, `{"n":1}`, r.URL.Query().Get("variables"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(")]}'\n{\"data\":{\"allCourses\":{\"edges\":[]}},\"errors\":[{\"message\":\"first\"},{\"message\":\"second\"}]}"))
	}))
	defer srv.Close()

	c := NewClient(ClientParams{BaseURL: srv.URL + "/"})
	resp, err := c.Query(context.Background(), "{ allCourses { edges { node { id } } } }", map[string]any{"n": 1})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"allCourses": map[string]any{"edges": []any{}}}, resp.Data)
	assert.Equal(t, []string{"first", "second"}, resp.Messages())
}

func TestClient_QueryErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
		errText string
	}{
		{name: "disabled", status: http.StatusNotFound, body: "not found", wantErr: ErrServiceDisabled},
		{name: "server error", status: http.StatusInternalServerError, body: "boom", errText: "unexpected status 500"},
		{name: "bad body", status: http.StatusOK, body: ")]}'\n<html>", errText: "decode response"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(ClientParams{BaseURL: srv.URL}).Query(context.Background(), "{ x }", nil)
			require.Error(t, err)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
			}
			if tc.errText != "" {
				assert.Contains(t, err.Error(), tc.errText)
			}
		})
	}
}

func TestClient_Enabled(t *testing.T) {
	var enabled atomic.Bool
	enabled.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !enabled.Load() {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(")]}'\n{\"data\":{\"__typename\":\"Query\"}}"))
	}))
	defer srv.Close()

	c := NewClient(ClientParams{BaseURL: srv.URL})
	ok, err := c.Enabled(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	enabled.Store(false)
	ok, err = c.Enabled(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	srv.Close()
	_, err = c.Enabled(context.Background())
	require.Error(t, err)
}

func TestResponse_MessagesEmpty(t *testing.T) {
	assert.Empty(t, (&Response{}).Messages())
	assert.NotNil(t, (&Response{}).Messages())
}
