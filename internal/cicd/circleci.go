// Package cicd triggers the restore pipeline on CircleCI. The pipeline
// carries the snapshot date and time as parameters and holds a manual
// approval step before anything destructive runs.
package cicd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/medalizaidi/nifi-jar-automation-option2/pkg/logging"
)

const defaultAPIBase = "https://circleci.com/api/v2"

// Pipeline is the API's description of a triggered pipeline.
type Pipeline struct {
	ID     string `json:"id"`
	Number int    `json:"number"`
	State  string `json:"state"`
}

// Client triggers pipelines for one project.
type Client struct {
	token       string
	projectSlug string // e.g. "gh/medalizaidi/nifi-jar-automation-option2"
	branch      string
	apiBase     string
	httpClient  *http.Client
	logger      *logging.Logger
}

// NewClient creates a CircleCI client. The token is a personal API
// token; projectSlug uses the vcs/org/repo form.
func NewClient(token, projectSlug, branch string, logger *logging.Logger) *Client {
	if branch == "" {
		branch = "main"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		token:       token,
		projectSlug: projectSlug,
		branch:      branch,
		apiBase:     defaultAPIBase,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
	}
}

// ValidateDate checks the YYYY-MM-DD snapshot date form.
func ValidateDate(s string) error {
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return nil
}

// ValidateTime checks the HH-MM-UTC snapshot time form.
func ValidateTime(s string) error {
	trimmed, ok := strings.CutSuffix(s, "-UTC")
	if !ok {
		return fmt.Errorf("invalid time %q: expected HH-MM-UTC", s)
	}
	if _, err := time.Parse("15-04", trimmed); err != nil {
		return fmt.Errorf("invalid time %q: expected HH-MM-UTC", s)
	}
	return nil
}

// TriggerList triggers the pipeline with no parameters, which runs the
// job that prints the available snapshots.
func (c *Client) TriggerList(ctx context.Context) (*Pipeline, error) {
	return c.trigger(ctx, nil)
}

// TriggerRestore triggers the restore workflow for one snapshot,
// validating the date and time forms first.
func (c *Client) TriggerRestore(ctx context.Context, date, timeOfDay string) (*Pipeline, error) {
	if err := ValidateDate(date); err != nil {
		return nil, err
	}
	if err := ValidateTime(timeOfDay); err != nil {
		return nil, err
	}
	return c.trigger(ctx, map[string]any{
		"run_rollback":  true,
		"rollback_date": date,
		"rollback_time": timeOfDay,
	})
}

// PipelineURL returns the web UI address for a triggered pipeline.
func (c *Client) PipelineURL(p *Pipeline) string {
	slug := strings.Replace(c.projectSlug, "gh/", "github/", 1)
	return fmt.Sprintf("https://app.circleci.com/pipelines/%s/%d", slug, p.Number)
}

func (c *Client) trigger(ctx context.Context, parameters map[string]any) (*Pipeline, error) {
	if c.token == "" {
		return nil, fmt.Errorf("CircleCI token is not configured; set CIRCLECI_TOKEN")
	}

	payload := map[string]any{"branch": c.branch}
	if parameters != nil {
		payload["parameters"] = parameters
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("trigger pipeline: %w", err)
	}

	url := fmt.Sprintf("%s/project/%s/pipeline", c.apiBase, c.projectSlug)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("trigger pipeline: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Circle-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("trigger pipeline: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("trigger pipeline: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("trigger pipeline: HTTP %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var pipeline Pipeline
	if err := json.Unmarshal(body, &pipeline); err != nil {
		return nil, fmt.Errorf("trigger pipeline: %w", err)
	}

	c.logger.Info("pipeline triggered",
		"number", pipeline.Number, "id", pipeline.ID, "branch", c.branch)
	return &pipeline, nil
}
