package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	method, path, query string
	body                map[string]any
}

func newServer(t *testing.T, status int, reply string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method, got.path, got.query = r.Method, r.URL.Path, r.URL.RawQuery
		data, _ := io.ReadAll(r.Body)
		if len(data) > 0 {
			assert.NoError(t, json.Unmarshal(data, &got.body))
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConsentSet(t *testing.T) {
	srv, got := newServer(t, http.StatusOK, `{"ai_enabled":false}`)
	out, err := execute(t, "--api", srv.URL, "consent", "off")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/api/consent", got.path)
	assert.Equal(t, false, got.body["enabled"])
	assert.Contains(t, out, `"ai_enabled":false`)

	_, err = execute(t, "--api", srv.URL, "consent", "maybe")
	assert.Error(t, err)
}

func TestMemorySearchRoutesByScope(t *testing.T) {
	srv, got := newServer(t, http.StatusOK, `{"results":[]}`)
	_, err := execute(t, "--api", srv.URL, "memory", "search", "--group", "g1", "-q", "launch", "-k", "3")
	require.NoError(t, err)
	assert.Equal(t, "/api/memory/group/search", got.path)
	assert.Equal(t, "g1", got.body["group_id"])
	assert.EqualValues(t, 3, got.body["limit"])

	_, err = execute(t, "--api", srv.URL, "memory", "search", "-q", "launch")
	assert.Error(t, err)
}

func TestRefreshGroupMembers(t *testing.T) {
	srv, got := newServer(t, http.StatusOK, `{"upserted":1}`)
	_, err := execute(t, "--api", srv.URL, "memory", "refresh-group", "-g", "g1", "-n", "Team", "-m", "u1=Alice", "-m", "u2=Bob")
	require.NoError(t, err)
	assert.Equal(t, "/api/memory/group/refresh", got.path)
	require.Len(t, got.body["participants"], 2)

	_, err = execute(t, "--api", srv.URL, "memory", "refresh-group", "-g", "g1", "-n", "Team", "-m", "broken")
	assert.Error(t, err)
}

func TestErrorStatusSurfaces(t *testing.T) {
	srv, got := newServer(t, http.StatusServiceUnavailable, `{"error":"Service Unavailable"}`)
	_, err := execute(t, "--api", srv.URL, "summarize", "-u", "carol")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, "username=carol", got.query)
}
