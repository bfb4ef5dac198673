package review

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"gitflow.dev/gitflow/internal/apiclient"
	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/internal/telemetry"
)

// ReviewBoardClient is a System backed by the Review Board Web API
type ReviewBoardClient struct {
	URL        string
	Username   string
	Token      string
	Repository string
	HTTPClient *http.Client
	// RetryMaxElapsed bounds retries of GET requests; 0 disables retrying
	RetryMaxElapsed time.Duration
}

var _ System = (*ReviewBoardClient)(nil)

// NewReviewBoardClient creates a new Review Board client
func NewReviewBoardClient(url, username, token, repository string) *ReviewBoardClient {
	return &ReviewBoardClient{
		URL:        strings.TrimSuffix(url, "/"),
		Username:   username,
		Token:      token,
		Repository: repository,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		RetryMaxElapsed: apiclient.DefaultRetryMaxElapsed,
	}
}

type rbRequest struct {
	ID          int64  `json:"id"`
	Branch      string `json:"branch"`
	Status      string `json:"status"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	AbsoluteURL string `json:"absolute_url"`
}

func (r rbRequest) toRequest() *Request {
	return &Request{
		ID:          r.ID,
		Branch:      r.Branch,
		Status:      Status(r.Status),
		Summary:     r.Summary,
		Description: r.Description,
		URL:         r.AbsoluteURL,
	}
}

type rbReview struct {
	ShipIt bool `json:"ship_it"`
	Links  struct {
		User struct {
			Title string `json:"title"`
		} `json:"user"`
	} `json:"links"`
}

type rbError struct {
	Stat string `json:"stat"`
	Err  struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	} `json:"err"`
}

// ListRequests lists the review requests of the configured repository
func (c *ReviewBoardClient) ListRequests(ctx context.Context, filter Filter) ([]*Request, error) {
	q := url.Values{}
	q.Set("repository", c.Repository)
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	if filter.MaxResults > 0 {
		q.Set("max-results", strconv.Itoa(filter.MaxResults))
	}

	body, err := c.get(ctx, c.URL+"/api/review-requests/?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("list review requests: %w", err)
	}
	var result struct {
		ReviewRequests []rbRequest `json:"review_requests"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse Review Board response: %w", err)
	}

	out := make([]*Request, 0, len(result.ReviewRequests))
	for _, r := range result.ReviewRequests {
		out = append(out, r.toRequest())
	}
	return out, nil
}

// GetRequest fetches one review request
func (c *ReviewBoardClient) GetRequest(ctx context.Context, id int64) (*Request, error) {
	body, err := c.get(ctx, c.requestURL(id))
	if err != nil {
		return nil, fmt.Errorf("fetch review request %d: %w", id, err)
	}
	return decodeRequest(body)
}

// CreateOrUpdate creates a request when needed, uploads the diff and
// publishes the draft
func (c *ReviewBoardClient) CreateOrUpdate(ctx context.Context, draft Draft) (*Request, error) {
	id := draft.ExistingID
	if id == 0 {
		form := url.Values{}
		form.Set("repository", c.Repository)
		body, err := c.doForm(ctx, http.MethodPost, c.URL+"/api/review-requests/", form)
		if err != nil {
			return nil, fmt.Errorf("create review request: %w", err)
		}
		created, err := decodeRequest(body)
		if err != nil {
			return nil, err
		}
		id = created.ID
	}

	if err := c.uploadDiff(ctx, id, draft); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("summary", draft.Summary)
	form.Set("description", draft.Description)
	form.Set("branch", draft.Branch)
	if draft.DependsOn != 0 {
		form.Set("depends_on", strconv.FormatInt(draft.DependsOn, 10))
	}
	form.Set("public", "1")
	if _, err := c.doForm(ctx, http.MethodPut, c.requestURL(id)+"draft/", form); err != nil {
		return nil, fmt.Errorf("publish review request %d: %w", id, err)
	}
	return c.GetRequest(ctx, id)
}

func (c *ReviewBoardClient) uploadDiff(ctx context.Context, id int64, draft Draft) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if draft.From != "" {
		if err := w.WriteField("base_commit_id", draft.From); err != nil {
			return err
		}
	}
	part, err := w.CreateFormFile("path", "diff")
	if err != nil {
		return err
	}
	if _, err := io.WriteString(part, draft.Diff); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	if _, err := c.doRequest(ctx, http.MethodPost, c.requestURL(id)+"diffs/", w.FormDataContentType(), buf.Bytes()); err != nil {
		return fmt.Errorf("upload diff for review request %d: %w", id, err)
	}
	return nil
}

// Dispositions lists the reviews left on a request
func (c *ReviewBoardClient) Dispositions(ctx context.Context, id int64) ([]Disposition, error) {
	body, err := c.get(ctx, c.requestURL(id)+"reviews/")
	if err != nil {
		return nil, fmt.Errorf("list reviews of request %d: %w", id, err)
	}
	var result struct {
		Reviews []rbReview `json:"reviews"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse Review Board response: %w", err)
	}
	out := make([]Disposition, 0, len(result.Reviews))
	for _, r := range result.Reviews {
		out = append(out, Disposition{Reviewer: r.Links.User.Title, ShipIt: r.ShipIt})
	}
	return out, nil
}

// Close sets the status of a request
func (c *ReviewBoardClient) Close(ctx context.Context, id int64, status Status) error {
	form := url.Values{}
	form.Set("status", string(status))
	if _, err := c.doForm(ctx, http.MethodPut, c.requestURL(id), form); err != nil {
		return fmt.Errorf("close review request %d as %s: %w", id, status, err)
	}
	return nil
}

func (c *ReviewBoardClient) requestURL(id int64) string {
	return fmt.Sprintf("%s/api/review-requests/%d/", c.URL, id)
}

func decodeRequest(body []byte) (*Request, error) {
	var result struct {
		ReviewRequest rbRequest `json:"review_request"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse Review Board response: %w", err)
	}
	return result.ReviewRequest.toRequest(), nil
}

func (c *ReviewBoardClient) get(ctx context.Context, apiURL string) ([]byte, error) {
	var body []byte
	err := apiclient.Retry(ctx, c.RetryMaxElapsed, func() error {
		var err error
		body, err = c.doRequest(ctx, http.MethodGet, apiURL, "", nil)
		return err
	})
	return body, err
}

func (c *ReviewBoardClient) doForm(ctx context.Context, method, apiURL string, form url.Values) ([]byte, error) {
	return c.doRequest(ctx, method, apiURL, "application/x-www-form-urlencoded", []byte(form.Encode()))
}

func (c *ReviewBoardClient) doRequest(ctx context.Context, method, apiURL, contentType string, body []byte) ([]byte, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("review board URL not configured")
	}
	if c.Token == "" {
		return nil, fmt.Errorf("review board token not configured")
	}

	ctx, span := telemetry.Start(ctx, "review.request",
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
	if c.Username != "" {
		req.SetBasicAuth(c.Username, c.Token)
	} else {
		req.Header.Set("Authorization", "token "+c.Token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "git-flow")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
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
		var rbErr rbError
		if json.Unmarshal(respBody, &rbErr) == nil && rbErr.Err.Msg != "" {
			msg = rbErr.Err.Msg
		}
		err = &flowerrors.APIError{
			Service:    "reviewboard",
			Method:     method,
			URL:        apiURL,
			StatusCode: resp.StatusCode,
			Body:       msg,
		}
		return nil, err
	}
	return respBody, nil
}
