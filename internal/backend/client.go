package backend

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

	"github.com/ecarlucci/taskmate/internal/directory"
	"github.com/ecarlucci/taskmate/internal/task"
)

// Client talks to a remote taskmate-compatible backend over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) Directory(ctx context.Context, token string) ([]directory.User, error) {
	var users []directory.User
	if err := c.do(ctx, token, http.MethodGet, "/v1/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) ListTasks(ctx context.Context, token string, rel task.Relation) ([]task.Task, error) {
	var out []task.Task
	path := "/v1/tasks?relation=" + url.QueryEscape(string(rel))
	if err := c.do(ctx, token, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetTask(ctx context.Context, token, id string) (task.Task, error) {
	var out task.Task
	if err := c.do(ctx, token, http.MethodGet, "/v1/tasks/"+url.PathEscape(id), nil, &out); err != nil {
		return task.Task{}, err
	}
	return out, nil
}

func (c *Client) CreateTask(ctx context.Context, token string, draft task.Draft) (task.Task, error) {
	var out task.Task
	if err := c.do(ctx, token, http.MethodPost, "/v1/tasks", draft, &out); err != nil {
		return task.Task{}, err
	}
	return out, nil
}

func (c *Client) UpdateTask(ctx context.Context, token, id string, draft task.Draft) (task.Task, error) {
	var out task.Task
	if err := c.do(ctx, token, http.MethodPut, "/v1/tasks/"+url.PathEscape(id), draft, &out); err != nil {
		return task.Task{}, err
	}
	return out, nil
}

func (c *Client) DeleteTask(ctx context.Context, token, id string) error {
	return c.do(ctx, token, http.MethodDelete, "/v1/tasks/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, token, method, path string, body, out any) error {
	if strings.TrimSpace(token) == "" {
		return ErrAuthRequired
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return decodeError(res)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(res *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))

	var body struct {
		Error   string `json:"error"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	message := ""
	code := ""
	if json.Unmarshal(raw, &body) == nil {
		code = body.Code
		message = body.Message
		if message == "" {
			message = body.Error
		}
	}
	return &Error{Status: res.StatusCode, Code: code, Message: message}
}
