package formservice

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

// Config holds form creation service configuration
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client talks to the form creation service (Google Forms bridge)
type Client struct {
	httpClient *http.Client
	config     Config
}

// Question is a single question in a form spec
type Question struct {
	Title    string   `json:"title"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

// FormSpec describes the form to create
type FormSpec struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Questions   []Question `json:"questions"`
}

// Form is the created form resource
type Form struct {
	FormID       string `json:"form_id"`
	EditURL      string `json:"edit_url"`
	PublishedURL string `json:"published_url"`
}

// NewClient creates a new form service client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
	}
}

// CreateForm creates a new form from the given spec
func (c *Client) CreateForm(ctx context.Context, spec FormSpec) (*Form, error) {
	if strings.TrimSpace(spec.Title) == "" {
		return nil, fmt.Errorf("validation error: title must be non-empty")
	}

	return c.post(ctx, "/api/v1/forms", spec)
}

// PublishForm publishes an existing form and returns its public URL
func (c *Client) PublishForm(ctx context.Context, formID string) (*Form, error) {
	if strings.TrimSpace(formID) == "" {
		return nil, fmt.Errorf("validation error: form_id must be non-empty")
	}

	return c.post(ctx, "/api/v1/forms/"+url.PathEscape(formID)+"/publish", nil)
}

// AddQuestions appends questions to an existing form
func (c *Client) AddQuestions(ctx context.Context, formID string, questions []Question) (*Form, error) {
	if strings.TrimSpace(formID) == "" {
		return nil, fmt.Errorf("validation error: form_id must be non-empty")
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("validation error: questions must be non-empty")
	}

	return c.post(ctx, "/api/v1/forms/"+url.PathEscape(formID)+"/questions", questions)
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (*Form, error) {
	if c == nil || c.httpClient == nil {
		return nil, fmt.Errorf("form service client is not initialized")
	}
	if strings.TrimSpace(c.config.BaseURL) == "" {
		return nil, fmt.Errorf("form service config error: base_url is empty")
	}

	var reader io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode form service request: %w", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	timeout := c.config.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := strings.TrimRight(c.config.BaseURL, "/") + path

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("form service call failed: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("form service call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("form service call failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("form service returned non-2xx status: %d, body: %s", resp.StatusCode, string(body))
	}

	var out Form
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse form service response: %w", err)
	}

	return &out, nil
}
