package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/percona/percona-linkstack/bench"
	"github.com/percona/percona-linkstack/metrics"
)

func TestBuildServerAddr(t *testing.T) {
	t.Parallel()

	addr, err := buildServerAddr("2242")
	require.NoError(t, err)
	assert.Equal(t, "localhost:2242", addr)

	_, err = buildServerAddr("80")
	require.ErrorIs(t, err, errUnsupportedPortRange)

	_, err = buildServerAddr("port")
	require.Error(t, err)
}

func TestBenchRequestOptions(t *testing.T) {
	t.Parallel()

	opts, err := benchRequest{Size: 10, Lists: 2, Timeout: "5s"}.options()
	require.NoError(t, err)
	assert.Equal(t, 10, opts.Size)
	assert.Equal(t, 2, opts.Lists)
	assert.Equal(t, "5s", opts.Timeout.String())

	_, err = benchRequest{Size: 10, Lists: 2, Timeout: "soon"}.options()
	require.Error(t, err)

	_, err = benchRequest{Size: 0, Lists: 2}.options()
	require.ErrorIs(t, err, bench.ErrInvalidSize)
}

func newTestServer() *server {
	reg := prometheus.NewRegistry()
	metrics.Init(reg)

	return &server{registry: reg}
}

func TestServer(t *testing.T) {
	t.Parallel()

	srv := newTestServer()
	h := srv.Handler()

	t.Run("status before any run", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

		var res statusResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
		assert.True(t, res.Ok)
		assert.Nil(t, res.Report)
	})

	t.Run("bench", func(t *testing.T) {
		body := strings.NewReader(`{"size":500,"lists":2}`)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bench", body))

		var res benchResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
		require.True(t, res.Ok, res.Err)
		require.NotNil(t, res.Report)
		assert.Equal(t, 2000, res.Report.Elements)
		assert.Len(t, res.Report.Phases, len(bench.Phases))
	})

	t.Run("status after run", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

		var res statusResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
		require.NotNil(t, res.Report)
		assert.Equal(t, 500, res.Report.Size)
	})

	t.Run("invalid bench", func(t *testing.T) {
		body := strings.NewReader(`{"size":-5,"lists":1}`)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bench", body))

		var res benchResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
		assert.False(t, res.Ok)
		assert.Contains(t, res.Err, "invalid size")
	})

	t.Run("bad json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bench", strings.NewReader("{")))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bench", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "percona_linkstack_pushed_total")
	})
}

func TestRunDemo(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, runDemo(context.Background(), &buf))

	expected := strings.Join([]string{
		"push(1)",
		"push(2)",
		"push(3)",
		"peek()     -> 3",
		"iter()    -> 3 2 1",
		"pop()      -> 30",
		"pop()      -> 20",
		"push(4)",
		"next()     -> 4",
		"next()     -> 10",
		"pop()      -> none",
	}, "\n") + "\n"

	assert.Equal(t, expected, buf.String())
}
