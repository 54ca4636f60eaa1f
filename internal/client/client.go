// Package client talks to the comment HTTP API. It implements tree.Fetcher
// so a Tree can be driven straight from a server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"novelhub/pkg/models"
)

// NextCursorHeader mirrors the header set by the replies endpoint
const NextCursorHeader = "X-Next-Cursor"

// Client handles HTTP API communication
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// NewClient creates a client for an API rooted at baseURL,
// e.g. http://localhost:8080/api/v1
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetToken sets the bearer token sent with every request
func (c *Client) SetToken(token string) {
	c.token = token
}

// doRequest performs an HTTP request with common handling
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return resp, nil
}

type apiResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    json.RawMessage   `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// decodeAPIResponse decodes the envelope into target. Failure envelopes
// come back as *models.AppError so callers can use errors.Is.
func decodeAPIResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return models.ErrorFromResponse(resp.StatusCode, "", http.StatusText(resp.StatusCode), nil)
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if !apiResp.Success || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := apiResp.Error
		if message == "" {
			message = "request failed"
		}
		return models.ErrorFromResponse(resp.StatusCode, apiResp.Code, message, apiResp.Details)
	}

	if target != nil && len(apiResp.Data) > 0 {
		if err := json.Unmarshal(apiResp.Data, target); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}

	return nil
}

// Read endpoints

// FetchPage lists top-level comments for a target
func (c *Client) FetchPage(ctx context.Context, filter models.ListCommentsFilter) (*models.CommentsPage, error) {
	q := url.Values{}
	q.Set("target_type", string(filter.TargetType))
	q.Set("target_id", filter.TargetID)
	if filter.Page > 0 {
		q.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Sort != "" {
		q.Set("sort", string(filter.Sort))
	}

	resp, err := c.doRequest(ctx, http.MethodGet, "/comments?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var page models.CommentsPage
	if err := decodeAPIResponse(resp, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// FetchReplies lists direct replies of parentID, oldest first
func (c *Client) FetchReplies(ctx context.Context, parentID int64, limit int, cursor string) (*models.RepliesPage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	path := fmt.Sprintf("/comments/%d/replies", parentID)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	next := resp.Header.Get(NextCursorHeader)

	replies := []*models.Comment{}
	if err := decodeAPIResponse(resp, &replies); err != nil {
		return nil, err
	}
	return &models.RepliesPage{Replies: replies, NextCursor: next}, nil
}

// FetchComment reads one comment
func (c *Client) FetchComment(ctx context.Context, id int64) (*models.Comment, error) {
	return c.commentCall(ctx, http.MethodGet, fmt.Sprintf("/comments/%d", id), nil)
}

// Write endpoints

// Create posts a comment or, with req.ParentID set, a reply
func (c *Client) Create(ctx context.Context, req models.CreateCommentRequest) (*models.Comment, error) {
	return c.commentCall(ctx, http.MethodPost, "/comments", req)
}

// Edit replaces the body of the caller's own comment
func (c *Client) Edit(ctx context.Context, id int64, req models.UpdateCommentRequest) (*models.Comment, error) {
	return c.commentCall(ctx, http.MethodPut, fmt.Sprintf("/comments/%d", id), req)
}

// Delete soft-deletes the caller's own comment
func (c *Client) Delete(ctx context.Context, id int64) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/comments/%d", id), nil)
	if err != nil {
		return err
	}
	return decodeAPIResponse(resp, nil)
}

// Vote casts +1/-1, or clears the caller's vote with 0
func (c *Client) Vote(ctx context.Context, id int64, value int) (*models.Comment, error) {
	return c.commentCall(ctx, http.MethodPost, fmt.Sprintf("/comments/%d/vote", id), models.VoteRequest{Value: &value})
}

// Report flags a comment for moderators
func (c *Client) Report(ctx context.Context, id int64, reason string) (*models.Report, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/comments/%d/report", id), models.ReportRequest{Reason: reason})
	if err != nil {
		return nil, err
	}

	var report models.Report
	if err := decodeAPIResponse(resp, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// Admin endpoints

// ResolveReport applies hide or dismiss to an open report
func (c *Client) ResolveReport(ctx context.Context, reportID int64, action models.ResolveAction) (*models.ResolveResult, error) {
	path := fmt.Sprintf("/admin/reports/%d/resolve", reportID)
	resp, err := c.doRequest(ctx, http.MethodPost, path, models.ResolveReportRequest{Action: action})
	if err != nil {
		return nil, err
	}

	var result models.ResolveResult
	if err := decodeAPIResponse(resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) commentCall(ctx context.Context, method, path string, body interface{}) (*models.Comment, error) {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	var comment models.Comment
	if err := decodeAPIResponse(resp, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}
