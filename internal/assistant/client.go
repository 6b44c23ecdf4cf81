// Package assistant is a typed HTTP client for the hosted assistant
// platform: threads, messages, runs and file storage. The platform's run
// model is asynchronous; callers poll RetrieveRun until the status is
// terminal.
package assistant

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
	"time"

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.openai.com/v1"

// PurposeAssistants tags an uploaded file for the assistant's document
// search tooling.
const PurposeAssistants = "assistants"

// Options configures a Client.
type Options struct {
	APIKey  string
	BaseURL string // defaults to the hosted platform; tests point it elsewhere
	// RequestsPerSecond caps outbound calls; 0 disables the limiter.
	// Run polling fires a request a second per in-flight conversation,
	// so an upper bound keeps a busy process inside the platform's quota.
	RequestsPerSecond int
	HTTPClient        *http.Client
}

// Client talks to the assistant platform over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

// NewClient creates a client. The API key is required.
func NewClient(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("assistant API key is required")
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	// Make sure baseURL doesn't end with a slash
	if baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Minute}
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.RequestsPerSecond)
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  opts.APIKey,
		client:  httpClient,
		limiter: limiter,
	}, nil
}

// CreateThread asks the platform to allocate a new empty thread.
func (c *Client) CreateThread(ctx context.Context) (*Thread, error) {
	var thread Thread
	if err := c.doJSON(ctx, http.MethodPost, "/threads", struct{}{}, &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

// CreateMessage appends a message to a thread.
func (c *Client) CreateMessage(ctx context.Context, threadID string, params MessageCreateParams) (*Message, error) {
	path := fmt.Sprintf("/threads/%s/messages", url.PathEscape(threadID))
	var msg Message
	if err := c.doJSON(ctx, http.MethodPost, path, params, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// CreateRun starts a run of the given assistant against the thread's
// current message state. The returned run is usually still queued.
func (c *Client) CreateRun(ctx context.Context, threadID, assistantID string) (*Run, error) {
	path := fmt.Sprintf("/threads/%s/runs", url.PathEscape(threadID))
	var run Run
	if err := c.doJSON(ctx, http.MethodPost, path, runCreateParams{AssistantID: assistantID}, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// RetrieveRun fetches the current state of a run.
func (c *Client) RetrieveRun(ctx context.Context, threadID, runID string) (*Run, error) {
	path := fmt.Sprintf("/threads/%s/runs/%s", url.PathEscape(threadID), url.PathEscape(runID))
	var run Run
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListMessagesOptions filters and orders a message listing.
type ListMessagesOptions struct {
	Order string // "asc" or "desc"
	RunID string // restrict to messages produced by one run
	Limit int    // 0 means platform default
}

// ListMessages returns the thread's messages in one page. Pagination
// beyond the platform's single-page default is not handled here.
func (c *Client) ListMessages(ctx context.Context, threadID string, opts ListMessagesOptions) ([]Message, error) {
	q := url.Values{}
	if opts.Order != "" {
		q.Set("order", opts.Order)
	}
	if opts.RunID != "" {
		q.Set("run_id", opts.RunID)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}

	path := fmt.Sprintf("/threads/%s/messages", url.PathEscape(threadID))
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var list messageList
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

// CreateFile streams a file into the platform's file store under the
// given purpose tag and returns the stored file's record.
func (c *Client) CreateFile(ctx context.Context, content io.Reader, filename, purpose string) (*FileObject, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("purpose", purpose); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to read upload content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var file FileObject
	if err := c.do(req, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// CreateAssistant registers a new assistant identity. Used by the
// one-shot provisioning command, not by the serving path.
func (c *Client) CreateAssistant(ctx context.Context, params AssistantCreateParams) (*Assistant, error) {
	var a Assistant
	if err := c.doJSON(ctx, http.MethodPost, "/assistants", params, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, out)
}

// do executes the request with auth headers, decodes a 2xx response into
// out, and turns a non-2xx response into a typed *APIError.
func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("OpenAI-Beta", "assistants=v2")

	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return fmt.Errorf("request cancelled while rate limited: %w", err)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		var envelope errorEnvelope
		if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
			apiErr.Message = envelope.Error.Message
			apiErr.Type = envelope.Error.Type
			apiErr.Code = envelope.Error.Code
		} else {
			apiErr.Message = string(raw)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
