package renolinesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Renoline HTTP API client.
type Client struct {
	BaseURL     string
	ProjectID   string
	BearerToken string
	ActorID     string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, projectID string) *Client {
	return &Client{
		BaseURL:   baseURL,
		ProjectID: projectID,
		Timeout:   10 * time.Second,
	}
}

// Project represents the API project model (partial).
type Project struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Status        string         `json:"status"`
	Deadline      string         `json:"deadline,omitempty"`
	Budget        float64        `json:"budget"`
	Progress      int            `json:"progress"`
	Alerts        int            `json:"alerts"`
	Interventions []Intervention `json:"interventions"`
	Version       int64          `json:"version"`
}

// Intervention is one subsidized work package.
type Intervention struct {
	MasterID         string            `json:"master_id"`
	Category         string            `json:"category"`
	Subcategory      string            `json:"subcategory,omitempty"`
	Quantity         float64           `json:"quantity"`
	TotalCost        float64           `json:"total_cost"`
	SubInterventions []SubIntervention `json:"sub_interventions"`
	Stages           []Stage           `json:"stages"`
}

// SubIntervention is a priced line item.
type SubIntervention struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Cost        float64 `json:"cost"`
	DisplayCode string  `json:"display_code,omitempty"`
}

// Stage is one execution step.
type Stage struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Deadline string `json:"deadline,omitempty"`
}

// AuditEntry is one audit trail record.
type AuditEntry struct {
	ID        string `json:"id"`
	Actor     string `json:"actor,omitempty"`
	Action    string `json:"action"`
	Timestamp string `json:"timestamp"`
	Details   string `json:"details,omitempty"`
}

// ProfitSummary is the project profitability rollup.
type ProfitSummary struct {
	Cost         float64 `json:"cost"`
	InternalCost float64 `json:"internal_cost"`
	Profit       float64 `json:"profit"`
	Margin       float64 `json:"margin"`
}

// MoveResult reports whether a reorder changed anything.
type MoveResult struct {
	Moved   bool    `json:"moved"`
	Project Project `json:"project"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateProject creates a project in Quotation status.
func (c *Client) CreateProject(ctx context.Context, id, title, deadline string) (Project, error) {
	body := map[string]any{
		"id":       id,
		"title":    title,
		"deadline": deadline,
	}
	var resp Project
	err := c.do(ctx, http.MethodPost, "v0/projects", body, &resp)
	return resp, err
}

// GetProject fetches the project with derived metrics.
func (c *Client) GetProject(ctx context.Context) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodGet, c.projectPath(""), nil, &resp)
	return resp, err
}

// ActivateProject moves the project out of Quotation.
func (c *Client) ActivateProject(ctx context.Context) (Project, error) {
	var resp Project
	err := c.do(ctx, http.MethodPost, c.projectPath("activate"), nil, &resp)
	return resp, err
}

// AddIntervention adds a work package with an explicit price cap.
func (c *Client) AddIntervention(ctx context.Context, category string, quantity, maxUnitPrice, maxAmount float64) (Project, error) {
	body := map[string]any{
		"category":       category,
		"quantity":       quantity,
		"max_unit_price": maxUnitPrice,
		"max_amount":     maxAmount,
	}
	var resp Project
	err := c.do(ctx, http.MethodPost, c.projectPath("interventions"), body, &resp)
	return resp, err
}

// AddSubIntervention adds a priced line item under an intervention.
func (c *Client) AddSubIntervention(ctx context.Context, masterID, description string, cost float64) (Project, error) {
	body := map[string]any{
		"description": description,
		"cost":        cost,
	}
	var resp Project
	endpoint := c.projectPath(fmt.Sprintf("interventions/%s/sub-interventions", url.PathEscape(masterID)))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// AddStage adds an execution stage.
func (c *Client) AddStage(ctx context.Context, masterID, title, deadline string) (Project, error) {
	body := map[string]any{
		"title":    title,
		"deadline": deadline,
	}
	var resp Project
	endpoint := c.projectPath(fmt.Sprintf("interventions/%s/stages", url.PathEscape(masterID)))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// TransitionStage changes a stage status along the state machine.
func (c *Client) TransitionStage(ctx context.Context, masterID, stageID, status string) (Project, error) {
	body := map[string]any{"status": status}
	var resp Project
	endpoint := c.projectPath(fmt.Sprintf("interventions/%s/stages/%s/status",
		url.PathEscape(masterID), url.PathEscape(stageID)))
	err := c.do(ctx, http.MethodPatch, endpoint, body, &resp)
	return resp, err
}

// MoveStage reorders a stage within its status lane.
func (c *Client) MoveStage(ctx context.Context, masterID string, index int, direction string) (MoveResult, error) {
	body := map[string]any{"index": index, "direction": direction}
	var resp MoveResult
	endpoint := c.projectPath(fmt.Sprintf("interventions/%s/stages/move", url.PathEscape(masterID)))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// Audit returns the audit trail, newest first.
func (c *Client) Audit(ctx context.Context, limit int) ([]AuditEntry, error) {
	endpoint := c.projectPath("audit")
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []AuditEntry
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Profit returns the project profitability rollup.
func (c *Client) Profit(ctx context.Context) (ProfitSummary, error) {
	var resp ProfitSummary
	err := c.do(ctx, http.MethodGet, c.projectPath("profit"), nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.ActorID != "":
		req.Header.Set("X-Actor-Id", c.ActorID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) projectPath(p string) string {
	project := url.PathEscape(c.ProjectID)
	if p == "" {
		return fmt.Sprintf("v0/projects/%s", project)
	}
	return fmt.Sprintf("v0/projects/%s/%s", project, strings.TrimLeft(p, "/"))
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
