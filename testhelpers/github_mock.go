package testhelpers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/google/go-github/v62/github"
)

// MockGitHubServerConfig holds the state served by a mock GitHub server
type MockGitHubServerConfig struct {
	mu sync.Mutex
	// PRs maps pull request numbers to their data
	PRs map[int]*github.PullRequest
	// Reviews maps pull request numbers to their reviews
	Reviews map[int][]*github.PullRequestReview
	// Comments stores issue comments posted to each pull request
	Comments map[int][]*github.IssueComment
	// Owner and Repo for the mock server
	Owner string
	Repo  string
}

// NewMockGitHubServerConfig creates a new mock server config with defaults
func NewMockGitHubServerConfig() *MockGitHubServerConfig {
	return &MockGitHubServerConfig{
		PRs:      make(map[int]*github.PullRequest),
		Reviews:  make(map[int][]*github.PullRequestReview),
		Comments: make(map[int][]*github.IssueComment),
		Owner:    "owner",
		Repo:     "repo",
	}
}

// AddPR registers an existing pull request
func (c *MockGitHubServerConfig) AddPR(pr *github.PullRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.PRs[pr.GetNumber()] = pr
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (c *MockGitHubServerConfig) pr(w http.ResponseWriter, r *http.Request) (*github.PullRequest, int, bool) {
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil {
		http.Error(w, "Invalid PR number", http.StatusBadRequest)
		return nil, 0, false
	}
	pr, ok := c.PRs[number]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return nil, number, false
	}
	return pr, number, true
}

// NewMockGitHubServer creates an httptest server that mocks the pull request
// endpoints of the GitHub API
func NewMockGitHubServer(t *testing.T, config *MockGitHubServerConfig) *httptest.Server {
	if config == nil {
		config = NewMockGitHubServerConfig()
	}
	base := "/repos/" + config.Owner + "/" + config.Repo

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+base+"/pulls", func(w http.ResponseWriter, r *http.Request) {
		config.mu.Lock()
		defer config.mu.Unlock()
		state := r.URL.Query().Get("state")
		if state == "" {
			state = "open"
		}
		numbers := make([]int, 0, len(config.PRs))
		for n := range config.PRs {
			numbers = append(numbers, n)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(numbers)))
		out := make([]*github.PullRequest, 0, len(numbers))
		for _, n := range numbers {
			pr := config.PRs[n]
			if state == "all" || pr.GetState() == state {
				out = append(out, pr)
			}
		}
		writeJSON(w, http.StatusOK, out)
	})

	mux.HandleFunc("POST "+base+"/pulls", func(w http.ResponseWriter, r *http.Request) {
		config.mu.Lock()
		defer config.mu.Unlock()
		var newPR github.NewPullRequest
		if err := json.NewDecoder(r.Body).Decode(&newPR); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		number := len(config.PRs) + 1
		pr := &github.PullRequest{
			Number:  github.Int(number),
			State:   github.String("open"),
			Title:   newPR.Title,
			Body:    newPR.Body,
			Head:    &github.PullRequestBranch{Ref: newPR.Head},
			Base:    &github.PullRequestBranch{Ref: newPR.Base},
			HTMLURL: github.String(fmt.Sprintf("https://github.com/%s/%s/pull/%d", config.Owner, config.Repo, number)),
		}
		config.PRs[number] = pr
		writeJSON(w, http.StatusCreated, pr)
	})

	mux.HandleFunc("GET "+base+"/pulls/{number}", func(w http.ResponseWriter, r *http.Request) {
		config.mu.Lock()
		defer config.mu.Unlock()
		if pr, _, ok := config.pr(w, r); ok {
			writeJSON(w, http.StatusOK, pr)
		}
	})

	mux.HandleFunc("PATCH "+base+"/pulls/{number}", func(w http.ResponseWriter, r *http.Request) {
		config.mu.Lock()
		defer config.mu.Unlock()
		pr, _, ok := config.pr(w, r)
		if !ok {
			return
		}
		var update struct {
			Title *string `json:"title,omitempty"`
			Body  *string `json:"body,omitempty"`
			State *string `json:"state,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if update.Title != nil {
			pr.Title = update.Title
		}
		if update.Body != nil {
			pr.Body = update.Body
		}
		if update.State != nil {
			pr.State = update.State
		}
		writeJSON(w, http.StatusOK, pr)
	})

	mux.HandleFunc("GET "+base+"/pulls/{number}/reviews", func(w http.ResponseWriter, r *http.Request) {
		config.mu.Lock()
		defer config.mu.Unlock()
		if _, number, ok := config.pr(w, r); ok {
			reviews := config.Reviews[number]
			if reviews == nil {
				reviews = []*github.PullRequestReview{}
			}
			writeJSON(w, http.StatusOK, reviews)
		}
	})

	mux.HandleFunc("POST "+base+"/issues/{number}/comments", func(w http.ResponseWriter, r *http.Request) {
		config.mu.Lock()
		defer config.mu.Unlock()
		if _, number, ok := config.pr(w, r); ok {
			var comment github.IssueComment
			if err := json.NewDecoder(r.Body).Decode(&comment); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			comment.ID = github.Int64(int64(len(config.Comments[number]) + 1))
			config.Comments[number] = append(config.Comments[number], &comment)
			writeJSON(w, http.StatusCreated, &comment)
		}
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// NewMockGitHubClient creates a GitHub client configured to use a mock server
func NewMockGitHubClient(t *testing.T, config *MockGitHubServerConfig) (*github.Client, string, string) {
	t.Helper()
	server := NewMockGitHubServer(t, config)
	client := github.NewClient(nil)
	baseURL, _ := url.Parse(server.URL + "/")
	client.BaseURL = baseURL
	client.UploadURL = baseURL
	return client, config.Owner, config.Repo
}
