// Package tasteclient calls the summary API and reads responses into one fixed shape.
package tasteclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	apphttp "qfusion/internal/common/http"
	"qfusion/internal/models"
	buildresponse "qfusion/internal/workers/infrastructure/build-response"
)

const DefaultTimeout = 60 * time.Second

// Summary is the category-independent view of a summary response.
type Summary struct {
	Count   int
	Titles  string
	Summary string
}

// APIError is a non-2xx response from the summary API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("summary api: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("summary api: %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	http    *apphttp.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    apphttp.NewClient(timeout),
	}
}

// Summarize posts params to /api/<entity>/summary. The count and titles are located with
// buildresponse.DiscoverValue, so responses with unexpected key names still decode.
func (c *Client) Summarize(ctx context.Context, entity string, params map[string]interface{}) (*Summary, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/%s/summary", c.baseURL, url.PathEscape(entity))
	resp, err := c.http.PostJSON(ctx, endpoint, nil, body)
	if err != nil {
		return nil, fmt.Errorf("summary request: %w", err)
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(resp.Body, &obj); err != nil {
		if !resp.OK() {
			return nil, &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(resp.Body))}
		}
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	if ok, present := obj["ok"].(bool); !resp.OK() || (present && !ok) {
		return nil, failure(resp.StatusCode, obj)
	}

	prefix := keyPrefix(entity)
	out := &Summary{}
	if n, ok := buildresponse.DiscoverValue(obj, prefix+"Count", "count", 0.0).(float64); ok {
		out.Count = int(n)
	}
	out.Titles, _ = buildresponse.DiscoverValue(obj, prefix+"Titles", "title", "").(string)
	out.Summary, _ = obj["summary"].(string)
	return out, nil
}

// failure reads the error envelope; "error" wins over "message".
func failure(status int, obj map[string]interface{}) *APIError {
	msg, _ := obj["error"].(string)
	if strings.TrimSpace(msg) == "" {
		msg, _ = obj["message"].(string)
	}
	code, _ := obj["code"].(string)
	return &APIError{Status: status, Code: code, Message: msg}
}

func keyPrefix(entity string) string {
	if desc, err := models.Describe(entity); err == nil {
		return buildresponse.KeyPrefix(desc.Label)
	}
	return buildresponse.KeyPrefix(entity)
}
