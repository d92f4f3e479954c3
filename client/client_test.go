package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kastheco/discovery/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchSession_DecodesRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/session", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "6f1c1d6e-58a3-4b8e-9d63-0c6a1e9f2b11",
			"current_phase": 2,
			"status": "IN_PROGRESS",
			"started_at": "2026-03-01T10:00:00Z",
			"completed_at": null,
			"pending_phase_summary": null,
			"all_messages": [
				{"role": "assistant", "content": "Welcome"},
				{"role": "user", "content": "Hi"}
			]
		}`))
	}))
	defer srv.Close()

	s, err := New(srv.URL, "tok").FetchSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "6f1c1d6e-58a3-4b8e-9d63-0c6a1e9f2b11", s.ID)
	assert.Equal(t, session.StatusInProgress, s.Status)
	assert.Equal(t, 2, s.CurrentPhase)
	assert.Empty(t, s.PendingPhaseSummary)
	require.Len(t, s.Messages, 2)
	assert.Equal(t, session.RoleUser, s.Messages[1].Role)
}

func TestSendMessage_PostsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/session/message", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, session.TokenNext, body["message"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"assistant_message":        "Here is the summary.",
			"phase_completed":          true,
			"summary":                  "Phase 1 summary",
			"phase_complete_suggested": false,
		})
	}))
	defer srv.Close()

	r, err := New(srv.URL, "").SendMessage(context.Background(), session.TokenNext)
	require.NoError(t, err)
	assert.True(t, r.HasSummary())
	assert.Equal(t, "Phase 1 summary", r.Summary)
}

func TestSubmitApproval_FeedbackOnlyWhenGiven(t *testing.T) {
	var bodies []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/session/approve-summary", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		_, _ = w.Write([]byte(`{"status":"IN_PROGRESS","current_phase":2,"all_messages":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	s, err := c.SubmitApproval(context.Background(), session.ApprovalRequest{Action: session.ActionApprove})
	require.NoError(t, err)
	assert.Equal(t, 2, s.CurrentPhase)

	empty := ""
	_, err = c.SubmitApproval(context.Background(), session.ApprovalRequest{Action: session.ActionRequestChanges, Feedback: &empty})
	require.NoError(t, err)

	require.Len(t, bodies, 2)
	assert.Equal(t, map[string]any{"action": "approve"}, bodies[0])
	assert.Equal(t, map[string]any{"action": "request_changes", "feedback": ""}, bodies[1])
}

func TestFetchReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/session/report", r.URL.Path)
		_, _ = w.Write([]byte(`{"report_content":"# Report"}`))
	}))
	defer srv.Close()

	r, err := New(srv.URL, "tok").FetchReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "# Report", r.Content)
}

func TestProjectQueryParam(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("project_id")
		_, _ = w.Write([]byte(`{"status":"NOT_STARTED","current_phase":1,"all_messages":[]}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL+"/", "tok", WithProject("p-123")).FetchSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "p-123", got)
}

func TestNoAuthHeaderWithoutToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"report_content":""}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").FetchReport(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestAPIError_Detail(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"string detail", 400, `{"detail":"Session already completed"}`, "Session already completed"},
		{"list detail", 422, `{"detail":["field required","value too short"]}`, "field required value too short"},
		{"validation objects", 422, `{"detail":[{"loc":["body","message"],"msg":"field required","type":"missing"}]}`, "field required"},
		{"no detail", 500, `internal server error`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := New(srv.URL, "tok").SendMessage(context.Background(), "hi")
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, tc.want, apiErr.Detail())
			assert.Contains(t, err.Error(), "http")
		})
	}
}

func TestAPIError_FeedsDisplayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"detail":"Failed to generate phase summary"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "tok").SendMessage(context.Background(), session.TokenNext)
	assert.Equal(t, "Failed to generate phase summary", session.DisplayError(err, session.MsgEndPhaseFailed))
}

func TestTransportError_FallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := New(srv.URL, "tok").FetchSession(context.Background())
	require.Error(t, err)
	assert.Equal(t, session.MsgLoadFailed, session.DisplayError(err, session.MsgLoadFailed))
}

func TestDefaultServerURL(t *testing.T) {
	c := New("", "")
	assert.Equal(t, DefaultServerURL, c.BaseURL())
}
