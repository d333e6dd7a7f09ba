package workflow

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewdesk/internal/api"
	"reviewdesk/internal/types"
)

type capture struct {
	method string
	path   string
	body   string
}

func newServer(t *testing.T, respond func(path string) string) (*api.Client, *[]capture) {
	t.Helper()
	var calls []capture
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		calls = append(calls, capture{r.Method, r.URL.Path, string(b)})
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, respond(r.URL.Path))
	}))
	t.Cleanup(srv.Close)
	return api.NewClient(srv.URL + "/api"), &calls
}

func TestClaimTasks_FewerThanRequested(t *testing.T) {
	c, calls := newServer(t, func(string) string {
		return `{"tasks":[{"id":1},{"id":2},{"id":3}],"count":3}`
	})
	qc := NewQualityCheck(c)

	res, err := qc.ClaimTasks(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Count)
	require.Len(t, res.Tasks, 3)
	assert.Equal(t, int64(3), res.Tasks[2].TaskID())

	require.Len(t, *calls, 1)
	assert.Equal(t, "/api/tasks/quality-check/claim", (*calls)[0].path)
	assert.JSONEq(t, `{"count":5}`, (*calls)[0].body)
}

func TestClaimTasks_CountOutOfRange(t *testing.T) {
	c, calls := newServer(t, func(string) string { return `{}` })
	cl := NewSecondReview(c)

	for _, n := range []int{0, -1, 51} {
		_, err := cl.ClaimTasks(context.Background(), n)
		assert.ErrorIs(t, err, ErrInvalidClaimCount, "count %d", n)
	}
	assert.Empty(t, *calls, "invalid counts never reach the server")
}

func TestGetMyTasks_EmptyList(t *testing.T) {
	c, _ := newServer(t, func(string) string { return `{"tasks":null,"count":0}` })

	res, err := NewVideoFirstReview(c).GetMyTasks(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, res.Tasks)
	assert.Empty(t, res.Tasks)
}

func TestSubmitReview(t *testing.T) {
	c, calls := newServer(t, func(string) string { return `{"message":"Review submitted"}` })

	res, err := NewQualityCheck(c).SubmitReview(context.Background(), types.SubmitQCRequest{TaskID: 9, IsPassed: true})
	require.NoError(t, err)
	assert.Equal(t, "Review submitted", res.Message)
	assert.Equal(t, "/api/tasks/quality-check/submit", (*calls)[0].path)
	assert.JSONEq(t, `{"task_id":9,"is_passed":true}`, (*calls)[0].body)
}

func TestSubmitBatchReviews_Empty(t *testing.T) {
	c, calls := newServer(t, func(string) string { return `{"message":"ok","count":0}` })

	res, err := NewAIHumanDiff(c).SubmitBatchReviews(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Count)
	assert.Equal(t, "ok", res.Message)
	assert.JSONEq(t, `{"reviews":[]}`, (*calls)[0].body)
}

func TestSubmitBatchReviews_LegacySubmittedField(t *testing.T) {
	c, _ := newServer(t, func(string) string { return `{"message":"ok","submitted":2}` })

	res, err := NewCommentReview(c).SubmitBatchReviews(context.Background(), []types.ReviewResult{
		{TaskID: 1, IsApproved: true, Tags: []string{}},
		{TaskID: 2, IsApproved: false, Tags: []string{"spam"}, Reason: "ad"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
}

func TestReturnTasks(t *testing.T) {
	c, calls := newServer(t, func(string) string { return `{"message":"returned","count":2}` })

	res, err := NewVideoQueue(c, types.Pool1M).ReturnTasks(context.Background(), []int64{4, 5})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, "/api/video/1m/tasks/return", (*calls)[0].path)
	assert.JSONEq(t, `{"task_ids":[4,5]}`, (*calls)[0].body)
}

func TestGetStats(t *testing.T) {
	c, calls := newServer(t, func(string) string {
		return `{"today_completed":4,"total_completed":40,"pass_rate":92.5,"pending_tasks":7}`
	})

	stats, err := NewQualityCheck(c).GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(40), stats.TotalCompleted)
	assert.InDelta(t, 92.5, stats.PassRate, 0.001)
	assert.Equal(t, "/api/tasks/quality-check/stats", (*calls)[0].path)
}

func TestServerErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		io.WriteString(w, `{"error":"Task already claimed"}`)
	}))
	defer srv.Close()

	_, err := NewSecondReview(api.NewClient(srv.URL)).ClaimTasks(context.Background(), 1)
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode())
}

func TestGenericKind_KeepsRawTask(t *testing.T) {
	c, _ := newServer(t, func(string) string {
		return `{"tasks":[{"id":11,"status":"in_progress","video":{"id":3}}],"count":1}`
	})
	k, err := DefaultRegistry().Lookup("video-10m")
	require.NoError(t, err)

	res, err := k.Generic(c).GetMyTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Tasks, 1)
	task := res.Tasks[0]
	assert.Equal(t, int64(11), task.TaskID())
	assert.Equal(t, "in_progress", task.Status)

	out, err := json.Marshal(task)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":11,"status":"in_progress","video":{"id":3}}`, string(out))
}

func TestMessageCountResponse_Decode(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{`{"message":"m","count":3}`, 3},
		{`{"message":"m","submitted":4}`, 4},
		{`{"message":"m","count":1,"submitted":9}`, 1},
		{`{"message":"m"}`, 0},
	}
	for _, tt := range tests {
		var m MessageCountResponse
		require.NoError(t, json.Unmarshal([]byte(tt.in), &m))
		assert.Equal(t, tt.want, m.Count, tt.in)
	}
}
