// Package client talks to the guestbook API and keeps the caller's vote
// history so vote requests carry the right "prev".
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"guestbook/internal/model"
	"guestbook/internal/vote"
)

var (
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrBadRequest:
		return e.Status == http.StatusBadRequest
	}
	return false
}

// Client is a guestbook API client.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Tracker *Tracker
}

// New returns a client for baseURL (e.g. "http://localhost:3000").
// A nil tracker means votes are only remembered in memory.
func New(baseURL string, tracker *Tracker) *Client {
	if tracker == nil {
		tracker = NewTracker()
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		Tracker: tracker,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, header http.Header, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&errResp)
		return &APIError{Status: resp.StatusCode, Message: errResp.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// Health reports whether the server answers /api/health.
func (c *Client) Health(ctx context.Context) error {
	var resp struct {
		OK bool `json:"ok"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, nil, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return errors.New("server reported not ok")
	}
	return nil
}

// List returns all messages, newest first.
func (c *Client) List(ctx context.Context) ([]model.Message, error) {
	var msgList []model.Message
	if err := c.do(ctx, http.MethodGet, "/api/messages", nil, nil, &msgList); err != nil {
		return nil, err
	}
	return msgList, nil
}

// Post creates a message.
func (c *Client) Post(ctx context.Context, name, message string) (model.Message, error) {
	var msg model.Message
	body := map[string]string{"name": name, "message": message}
	err := c.do(ctx, http.MethodPost, "/api/messages", body, nil, &msg)
	return msg, err
}

type voteRequest struct {
	Vote vote.Choice `json:"vote"`
	Prev vote.Choice `json:"prev"`
}

// Vote changes this client's vote on id to next (vote.None retracts). The
// tracker is only updated once the server has applied the change.
func (c *Client) Vote(ctx context.Context, id int64, next vote.Choice) (model.Message, error) {
	if !next.Valid() {
		return model.Message{}, fmt.Errorf("%w: %q", vote.ErrInvalidChoice, string(next))
	}

	req := voteRequest{Vote: next, Prev: c.Tracker.Get(id)}

	var msg model.Message
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/messages/%d/vote", id), req, nil, &msg); err != nil {
		return model.Message{}, err
	}

	c.Tracker.Set(id, next)
	return msg, nil
}

// Delete removes id using the tracker's admin token. A 403 clears the stored
// token so the caller is asked for it again.
func (c *Client) Delete(ctx context.Context, id int64) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.Tracker.AdminToken())

	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/messages/%d", id), nil, header, nil)
	if errors.Is(err, ErrForbidden) {
		c.Tracker.SetAdminToken("")
		return err
	}
	if err != nil {
		return err
	}

	c.Tracker.Forget(id)
	return nil
}

// Watch streams board events to fn until ctx is done or the connection
// drops. Returning an error from fn stops the stream.
func (c *Client) Watch(ctx context.Context, fn func(model.Event) error) error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u, err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		var ev model.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read event: %w", err)
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}
