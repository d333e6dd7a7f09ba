package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_VideoQueueSuite(t *testing.T) {
	var claimBody map[string]int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("X-Trace-Id"))
		switch r.URL.Path {
		case "/queues":
			assert.Empty(t, r.Header.Get("Authorization"))
			assert.Equal(t, "20", r.URL.Query().Get("page_size"))
			w.Write([]byte(`{"data":[],"total":0}`))
		case "/video/1m/tasks/my", "/video/1m/tags":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			w.Write([]byte(`{}`))
		case "/video/1m/tasks/claim":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&claimBody))
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"slow down"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	var out bytes.Buffer
	r := NewRunner(srv.URL, "tok", WithOutput(&out))
	results, sum := r.Run(context.Background(), VideoQueueChecks("1m", 3))

	require.Len(t, results, 4)
	assert.Equal(t, Summary{Total: 4, Passed: 3, Failed: 1}, sum)
	assert.Equal(t, 3, claimBody["count"])
	assert.Equal(t, http.StatusTooManyRequests, results[3].Status)

	report := out.String()
	assert.Contains(t, report, "OK GET /queues - 200 (")
	assert.Contains(t, report, "FAIL POST /video/1m/tasks/claim - 429 (")
	assert.Contains(t, report, `  Response: {"error":"slow down"}`)
	assert.Contains(t, report, "Total: 4  Passed: 3  Failed: 1")
}

func TestRunner_MissingToken(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	var out bytes.Buffer
	results, sum := NewRunner(srv.URL, "", WithOutput(&out)).Run(context.Background(), VideoQueueChecks("100k", 1))

	assert.Equal(t, int32(1), hits.Load(), "only the public queue list is requested")
	assert.Equal(t, 3, sum.Failed)
	assert.ErrorIs(t, results[1].Err, ErrMissingToken)
	assert.Contains(t, out.String(), "FAIL GET /video/100k/tasks/my - error (")
}

func TestRunner_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	results, sum := NewRunner(url, "tok").Run(context.Background(), []Check{{Name: "GET /tags", Method: http.MethodGet, Path: "/tags", Auth: true}})
	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].Status)
	assert.Error(t, results[0].Err)
	assert.Equal(t, 1, sum.Failed)
}

func TestRunner_Concurrency(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	var out bytes.Buffer
	results, sum := NewRunner(srv.URL, "tok", WithConcurrency(4), WithOutput(&out)).Run(context.Background(), APIChecks())

	n := len(APIChecks())
	assert.Len(t, results, 4*n)
	assert.Equal(t, int32(4*n), hits.Load())
	assert.Equal(t, 4*n, sum.Passed)
	assert.Equal(t, 4*n, strings.Count(out.String(), "OK "))
}
