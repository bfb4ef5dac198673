package tracker_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/internal/tracker"
)

func newPivotal(t *testing.T, handler http.HandlerFunc) *tracker.PivotalClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := tracker.NewPivotalClient(srv.URL, "secret", "99")
	c.RetryMaxElapsed = 2 * time.Second
	return c
}

func TestPivotalClient(t *testing.T) {
	t.Run("lists current and backlog stories", func(t *testing.T) {
		c := newPivotal(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/projects/99/iterations", r.URL.Path)
			require.Equal(t, "current_backlog", r.URL.Query().Get("scope"))
			require.Equal(t, "secret", r.Header.Get("X-TrackerToken"))
			_, _ = io.WriteString(w, `[
				{"number": 7, "stories": [{"id": 42, "story_type": "feature", "current_state": "accepted",
					"name": "Login", "estimate": 2, "labels": [{"id": 1, "name": "release-2.3.0"}]}]},
				{"number": 8, "stories": [{"id": 43, "story_type": "bug", "current_state": "unstarted", "name": "Crash"}]}
			]`)
		})

		items, err := c.CurrentAndBacklog(context.Background())
		require.NoError(t, err)
		require.Len(t, items, 2)
		require.Equal(t, int64(42), items[0].ID)
		require.Equal(t, tracker.KindFeature, items[0].Kind)
		require.Equal(t, tracker.StateAccepted, items[0].State)
		require.Equal(t, []string{"release-2.3.0"}, items[0].Labels)
		require.NotNil(t, items[0].Estimate)
		require.Equal(t, 2, *items[0].Estimate)
		require.Nil(t, items[1].Estimate)
	})

	t.Run("reports missing stories", func(t *testing.T) {
		c := newPivotal(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"code": "unfound_resource", "error": "The object you tried to access could not be found."}`)
		})

		_, err := c.Item(context.Background(), 5)
		require.ErrorIs(t, err, flowerrors.ErrNoSuchItem)
	})

	t.Run("retries transient read failures", func(t *testing.T) {
		var calls atomic.Int32
		c := newPivotal(t, func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = io.WriteString(w, `{"id": 42, "story_type": "feature", "current_state": "started", "name": "Login"}`)
		})

		item, err := c.Item(context.Background(), 42)
		require.NoError(t, err)
		require.Equal(t, tracker.StateStarted, item.State)
		require.Equal(t, int32(2), calls.Load())
	})

	t.Run("does not retry writes", func(t *testing.T) {
		var puts atomic.Int32
		c := newPivotal(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPut {
				puts.Add(1)
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = io.WriteString(w, `{"id": 42, "story_type": "feature", "current_state": "started", "name": "Login"}`)
		})

		_, err := c.Update(context.Background(), 42, tracker.Delta{State: tracker.StateFinished})
		var apiErr *flowerrors.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
		require.Equal(t, int32(1), puts.Load())
		require.Equal(t, flowerrors.KindOperations, flowerrors.KindOf(err))
	})

	t.Run("merges labels on update", func(t *testing.T) {
		var sent map[string]any
		c := newPivotal(t, func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				_, _ = io.WriteString(w, `{"id": 42, "story_type": "feature", "current_state": "finished",
					"name": "Login", "labels": [{"id": 1, "name": "qa+"}]}`)
			case http.MethodPut:
				require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
				_, _ = io.WriteString(w, `{"id": 42, "story_type": "feature", "current_state": "finished",
					"name": "Login", "labels": [{"name": "qa+"}, {"name": "release-1.0.0"}]}`)
			}
		})

		item, err := c.Update(context.Background(), 42, tracker.Delta{AddLabels: []string{"release-1.0.0"}})
		require.NoError(t, err)
		require.Equal(t, []string{"qa+", "release-1.0.0"}, item.Labels)
		require.NotContains(t, sent, "current_state")
		require.Len(t, sent["labels"], 2)
	})

	t.Run("posts comments", func(t *testing.T) {
		var text string
		c := newPivotal(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/projects/99/stories/42/comments", r.URL.Path)
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			text = body["text"]
			_, _ = io.WriteString(w, `{"id": 1}`)
		})

		require.NoError(t, c.AddComment(context.Background(), 42, "Review: https://rb/r/1"))
		require.Equal(t, "Review: https://rb/r/1", text)
	})

	t.Run("requires a token", func(t *testing.T) {
		c := tracker.NewPivotalClient("http://127.0.0.1:1", "", "99")
		_, err := c.CurrentAndBacklog(context.Background())
		require.ErrorContains(t, err, "token not configured")
	})
}
