package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gradefix/pkg/api"
)

// ServiceClient handles API calls to the gradefix trigger service.
type ServiceClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

// NewServiceClient creates a new client with the given base URL and token.
func NewServiceClient(baseURL, token string) *ServiceClient {
	return &ServiceClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTPClient: &http.Client{
			// Runs answer synchronously.
			Timeout: 30 * time.Minute,
		},
	}
}

// APIError represents an error response from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// CreateRun sends POST /courses/{id}/runs and waits for the summary.
func (c *ServiceClient) CreateRun(courseID int64, req api.CreateRunRequest) (*api.RunSummary, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/courses/%d/runs", c.BaseURL, courseID)
	httpReq, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Add("Content-Type", "application/json")

	var result api.RunSummary
	if err := c.do(httpReq, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListRuns sends GET /runs. A zero courseID lists every course.
func (c *ServiceClient) ListRuns(courseID int64, limit int) ([]api.RunSummary, error) {
	query := url.Values{}
	if courseID != 0 {
		query.Set("course_id", strconv.FormatInt(courseID, 10))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	endpoint := c.BaseURL + "/runs"
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	httpReq, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var result api.ListRunsResponse
	if err := c.do(httpReq, &result); err != nil {
		return nil, err
	}
	return result.Runs, nil
}

func (c *ServiceClient) do(httpReq *http.Request, result any) error {
	if c.Token != "" {
		httpReq.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		message := string(respBody)
		var apiErr api.ErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			message = apiErr.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
