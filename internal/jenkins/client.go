// Package jenkins triggers deploy jobs on a Jenkins server.
package jenkins

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"gitflow.dev/gitflow/internal/apiclient"
	"gitflow.dev/gitflow/internal/config"
	flowerrors "gitflow.dev/gitflow/internal/errors"
	"gitflow.dev/gitflow/internal/telemetry"
)

const serviceName = "jenkins"

// Environments a branch can be deployed to
const (
	EnvDevelop    = "develop"
	EnvQA         = "qa"
	EnvClient     = "client"
	EnvProduction = "production"
)

// Deployer triggers the deploy job of an environment
type Deployer interface {
	// Trigger starts the job and returns the URL of the build it queued
	Trigger(ctx context.Context, env, cause string) (string, error)
}

// Client is a Deployer backed by the Jenkins remote access API
type Client struct {
	URL      string
	Username string
	Token    string
	// Jobs maps an environment to its job name
	Jobs map[string]string
	// JobTokens maps an environment to the job's build trigger token
	JobTokens  map[string]string
	HTTPClient *http.Client
	// RetryMaxElapsed bounds retries of GET requests; 0 disables retrying
	RetryMaxElapsed time.Duration
}

var _ Deployer = (*Client)(nil)

// NewClient creates a client from the deploy configuration
func NewClient(cfg config.DeployConfig) *Client {
	return &Client{
		URL:       strings.TrimSuffix(cfg.URL, "/"),
		Username:  cfg.Username,
		Token:     cfg.Token,
		Jobs:      cfg.Jobs,
		JobTokens: cfg.JobTokens,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		RetryMaxElapsed: apiclient.DefaultRetryMaxElapsed,
	}
}

type jenkinsJob struct {
	Name            string `json:"name"`
	NextBuildNumber int    `json:"nextBuildNumber"`
}

// JobName returns the job configured for env
func (c *Client) JobName(env string) (string, error) {
	name := c.Jobs[env]
	if name == "" {
		return "", fmt.Errorf("%w: deploy.jobs.%s", flowerrors.ErrNoSuchDeployJob, env)
	}
	return name, nil
}

// Trigger reads the job's next build number, then queues a build. The
// returned URL is where that build will appear.
func (c *Client) Trigger(ctx context.Context, env, cause string) (string, error) {
	name, err := c.JobName(env)
	if err != nil {
		return "", err
	}
	jobURL := c.URL + "/job/" + url.PathEscape(name)

	var job jenkinsJob
	err = apiclient.Retry(ctx, c.RetryMaxElapsed, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, jobURL+"/api/json")
		if err != nil {
			return err
		}
		return json.Unmarshal(body, &job)
	})
	if err != nil {
		return "", fmt.Errorf("read job %s: %w", name, err)
	}

	query := url.Values{}
	if token := c.JobTokens[env]; token != "" {
		query.Set("token", token)
	}
	if cause != "" {
		query.Set("cause", cause)
	}
	buildURL := jobURL + "/build"
	if len(query) > 0 {
		buildURL += "?" + query.Encode()
	}
	if _, err := c.doRequest(ctx, http.MethodPost, buildURL); err != nil {
		return "", fmt.Errorf("trigger job %s: %w", name, err)
	}
	return fmt.Sprintf("%s/%d/", jobURL, job.NextBuildNumber), nil
}

func (c *Client) doRequest(ctx context.Context, method, apiURL string) ([]byte, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("deploy URL not configured")
	}

	ctx, span := telemetry.Start(ctx, "deploy.request",
		attribute.String("http.method", method),
		attribute.String("http.url", apiURL))
	var err error
	defer func() { telemetry.End(span, err) }()

	req, err := http.NewRequestWithContext(ctx, method, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.Username != "" {
		req.SetBasicAuth(c.Username, c.Token)
	}
	req.Header.Set("User-Agent", "git-flow")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err = &flowerrors.APIError{
			Service:    serviceName,
			Method:     method,
			URL:        apiURL,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
		return nil, err
	}
	return body, nil
}
