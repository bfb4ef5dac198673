package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"gitflow.dev/gitflow/internal/apiclient"
	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/internal/telemetry"
)

const serviceName = "pivotal"

// PivotalClient is a Tracker backed by the Pivotal Tracker v5 REST API
type PivotalClient struct {
	URL        string
	Token      string
	ProjectID  string
	HTTPClient *http.Client
	// RetryMaxElapsed bounds retries of GET requests; 0 disables retrying
	RetryMaxElapsed time.Duration
}

var _ Tracker = (*PivotalClient)(nil)

// NewPivotalClient creates a new Pivotal Tracker client
func NewPivotalClient(url, token, projectID string) *PivotalClient {
	return &PivotalClient{
		URL:       strings.TrimSuffix(url, "/"),
		Token:     token,
		ProjectID: projectID,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		RetryMaxElapsed: apiclient.DefaultRetryMaxElapsed,
	}
}

type pivotalLabel struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

type pivotalStory struct {
	ID           int64          `json:"id"`
	StoryType    string         `json:"story_type"`
	CurrentState string         `json:"current_state"`
	Name         string         `json:"name"`
	URL          string         `json:"url"`
	Estimate     *int           `json:"estimate,omitempty"`
	Labels       []pivotalLabel `json:"labels"`
}

type pivotalIteration struct {
	Number  int            `json:"number"`
	Stories []pivotalStory `json:"stories"`
}

type pivotalStoryUpdate struct {
	CurrentState string         `json:"current_state,omitempty"`
	Labels       []pivotalLabel `json:"labels,omitempty"`
}

type pivotalError struct {
	Code           string `json:"code"`
	Error          string `json:"error"`
	GeneralProblem string `json:"general_problem"`
}

func (s pivotalStory) toItem() *Item {
	item := &Item{
		ID:       s.ID,
		Kind:     Kind(s.StoryType),
		State:    State(s.CurrentState),
		Name:     s.Name,
		URL:      s.URL,
		Estimate: s.Estimate,
	}
	for _, label := range s.Labels {
		item.Labels = append(item.Labels, label.Name)
	}
	return item
}

// CurrentAndBacklog lists the stories of the current and backlog iterations
func (c *PivotalClient) CurrentAndBacklog(ctx context.Context) ([]*Item, error) {
	apiURL := fmt.Sprintf("%s/projects/%s/iterations?scope=current_backlog", c.URL, c.ProjectID)
	body, err := c.get(ctx, apiURL)
	if err != nil {
		return nil, fmt.Errorf("fetch iterations: %w", err)
	}

	var iterations []pivotalIteration
	if err := json.Unmarshal(body, &iterations); err != nil {
		return nil, fmt.Errorf("parse Pivotal response: %w", err)
	}

	var items []*Item
	for _, iteration := range iterations {
		for _, story := range iteration.Stories {
			items = append(items, story.toItem())
		}
	}
	return items, nil
}

// Item fetches a single story
func (c *PivotalClient) Item(ctx context.Context, id int64) (*Item, error) {
	body, err := c.get(ctx, c.storyURL(id))
	if err != nil {
		var apiErr *flowerrors.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: #%d", flowerrors.ErrNoSuchItem, id)
		}
		return nil, fmt.Errorf("fetch story %d: %w", id, err)
	}

	var story pivotalStory
	if err := json.Unmarshal(body, &story); err != nil {
		return nil, fmt.Errorf("parse Pivotal response: %w", err)
	}
	return story.toItem(), nil
}

// Update changes the state of a story and adds labels. Pivotal replaces the
// label list wholesale, so the current labels are fetched first.
func (c *PivotalClient) Update(ctx context.Context, id int64, delta Delta) (*Item, error) {
	current, err := c.Item(ctx, id)
	if err != nil {
		return nil, err
	}
	if delta.IsEmpty() {
		return current, nil
	}

	update := pivotalStoryUpdate{CurrentState: string(delta.State)}
	if len(delta.AddLabels) > 0 {
		for _, label := range delta.Apply(current).Labels {
			update.Labels = append(update.Labels, pivotalLabel{Name: label})
		}
	}
	payload, err := json.Marshal(update)
	if err != nil {
		return nil, fmt.Errorf("marshal story update: %w", err)
	}

	body, err := c.doRequest(ctx, http.MethodPut, c.storyURL(id), payload)
	if err != nil {
		return nil, fmt.Errorf("update story %d: %w\n\nMake sure that you are allowed to update this story", id, err)
	}
	var story pivotalStory
	if err := json.Unmarshal(body, &story); err != nil {
		return nil, fmt.Errorf("parse Pivotal response: %w", err)
	}
	return story.toItem(), nil
}

// AddComment posts a comment on a story
func (c *PivotalClient) AddComment(ctx context.Context, id int64, text string) error {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("marshal comment: %w", err)
	}
	if _, err := c.doRequest(ctx, http.MethodPost, c.storyURL(id)+"/comments", payload); err != nil {
		return fmt.Errorf("comment on story %d: %w", id, err)
	}
	return nil
}

func (c *PivotalClient) storyURL(id int64) string {
	return fmt.Sprintf("%s/projects/%s/stories/%d", c.URL, c.ProjectID, id)
}

// get performs an idempotent GET, retrying transient failures
func (c *PivotalClient) get(ctx context.Context, apiURL string) ([]byte, error) {
	var body []byte
	err := apiclient.Retry(ctx, c.RetryMaxElapsed, func() error {
		var err error
		body, err = c.doRequest(ctx, http.MethodGet, apiURL, nil)
		return err
	})
	return body, err
}

func (c *PivotalClient) doRequest(ctx context.Context, method, apiURL string, body []byte) ([]byte, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("tracker URL not configured")
	}
	if c.Token == "" {
		return nil, fmt.Errorf("tracker token not configured")
	}

	ctx, span := telemetry.Start(ctx, "tracker.request",
		attribute.String("http.method", method),
		attribute.String("http.url", apiURL))
	var err error
	defer func() { telemetry.End(span, err) }()

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-TrackerToken", c.Token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "git-flow")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(respBody)
		var perr pivotalError
		if json.Unmarshal(respBody, &perr) == nil && perr.Error != "" {
			msg = perr.Error
			if perr.GeneralProblem != "" {
				msg += ": " + perr.GeneralProblem
			}
		}
		err = &flowerrors.APIError{
			Service:    serviceName,
			Method:     method,
			URL:        apiURL,
			StatusCode: resp.StatusCode,
			Body:       msg,
		}
		return nil, err
	}
	return respBody, nil
}
