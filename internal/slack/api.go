package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gojektech/heimdall/v6"
	"github.com/gojektech/heimdall/v6/httpclient"
)

// DefaultBaseURL is the platform API root. It is configurable to support
// API-compatible alternative backends.
const DefaultBaseURL = "https://slack.com/api/"

const (
	apiTimeout            = 10 * time.Second
	apiRetryCount         = 2
	apiRetryDelay         = 300 * time.Millisecond
	maximumJitterInterval = 5 * time.Millisecond
)

// WebAPI is the outbound REST surface the drivers call.
type WebAPI interface {
	// Call POSTs one API method with form-encoded parameters and returns the
	// decoded JSON response
	Call(ctx context.Context, method string, params map[string]interface{}) (map[string]interface{}, error)

	// UploadFile uploads a local file to the given channel
	UploadFile(ctx context.Context, title, path, initialComment, channel string) (map[string]interface{}, error)
}

// APIError is a platform-level failure: the HTTP call succeeded but the API
// response carried ok=false.
type APIError struct {
	Method string
	Reason string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack api %s failed: %s", e.Method, e.Reason)
}

// Client is the HTTP Web API client shared by both drivers.
type Client struct {
	baseURL string
	token   string
	http    heimdall.Doer
}

// NewClient builds a Web API client with retrying transport. An empty
// baseURL selects the default platform API root.
func NewClient(token, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	backoff := heimdall.NewConstantBackoff(apiRetryDelay, maximumJitterInterval)
	client := httpclient.NewClient(
		httpclient.WithHTTPTimeout(apiTimeout),
		httpclient.WithRetrier(heimdall.NewRetrier(backoff)),
		httpclient.WithRetryCount(apiRetryCount),
	)

	return &Client{baseURL: baseURL, token: token, http: client}
}

// Token returns the configured driver token.
func (c *Client) Token() string {
	return c.token
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Call POSTs one Web API method. String parameters pass through unchanged;
// everything else is JSON-encoded, matching the platform's form conventions.
func (c *Client) Call(ctx context.Context, method string, params map[string]interface{}) (map[string]interface{}, error) {
	form := url.Values{}
	for key, value := range params {
		form.Set(key, encodeParam(value))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+method, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(req, method)
}

// UploadFile uploads the file at path to the channel via the files.upload
// endpoint using a multipart body. The bytes travel in this call, not in a
// JSON payload.
func (c *Client) UploadFile(ctx context.Context, title, path, initialComment, channel string) (map[string]interface{}, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fields := map[string]string{
		"token":           c.token,
		"channels":        channel,
		"title":           title,
		"initial_comment": initialComment,
	}
	for key, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(key, value); err != nil {
			return nil, err
		}
	}

	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("read upload file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"files.upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(req, "files.upload")
}

func (c *Client) do(req *http.Request, method string) (map[string]interface{}, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("slack api %s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("slack api %s: read response: %w", method, err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("slack api %s: decode response: %w", method, err)
	}

	if ok, present := decoded["ok"].(bool); present && !ok {
		reason, _ := decoded["error"].(string)
		if reason == "" {
			reason = "unknown_error"
		}
		return decoded, &APIError{Method: method, Reason: reason}
	}

	return decoded, nil
}

func encodeParam(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}
