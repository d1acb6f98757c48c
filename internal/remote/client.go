// Package remote fetches blasts from a conch server over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/glabrego/conch/internal/blast"
)

// BlastsPath is the collection endpoint served by internal/server.
const BlastsPath = "/blasts"

// ErrorBody is the JSON body of every non-2xx response.
type ErrorBody struct {
	Error string `json:"error"`
}

// PostBody is the JSON body of a new blast.
type PostBody struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func (c *Client) Recent(ctx context.Context, limit int) ([]blast.Blast, error) {
	return c.list(ctx, "recent", limit, nil)
}

func (c *Client) After(ctx context.Context, id int64, limit int) ([]blast.Blast, error) {
	return c.list(ctx, "after", limit, url.Values{"after": {strconv.FormatInt(id, 10)}})
}

func (c *Client) Before(ctx context.Context, id int64, limit int) ([]blast.Blast, error) {
	return c.list(ctx, "before", limit, url.Values{"before": {strconv.FormatInt(id, 10)}})
}

// Post publishes a blast. Validation failures reported by the server come
// back as the matching blast sentinel errors.
func (c *Client) Post(ctx context.Context, author, content string) (blast.Blast, error) {
	author, content, err := blast.ValidatePost(author, content)
	if err != nil {
		return blast.Blast{}, err
	}

	payload, err := json.Marshal(PostBody{Author: author, Content: content})
	if err != nil {
		return blast.Blast{}, fmt.Errorf("encode blast: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, BlastsPath, bytes.NewReader(payload))
	if err != nil {
		return blast.Blast{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return blast.Blast{}, fmt.Errorf("post blast request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return blast.Blast{}, responseError("post blast", resp)
	}

	var out blast.Blast
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return blast.Blast{}, fmt.Errorf("decode posted blast: %w", err)
	}
	return out, nil
}

func (c *Client) list(ctx context.Context, query string, limit int, q url.Values) ([]blast.Blast, error) {
	if q == nil {
		q = make(url.Values)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	req, err := c.newRequest(ctx, http.MethodGet, BlastsPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list %s blasts request failed: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, responseError("list "+query+" blasts", resp)
	}

	var blasts []blast.Blast
	if err := json.NewDecoder(resp.Body).Decode(&blasts); err != nil {
		return nil, fmt.Errorf("decode %s blasts response: %w", query, err)
	}
	return blasts, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

var sentinels = []error{blast.ErrEmptyAuthor, blast.ErrEmptyContent, blast.ErrReadOnly}

func responseError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(raw))

	var body ErrorBody
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		msg = body.Error
		for _, sentinel := range sentinels {
			if msg == sentinel.Error() {
				return fmt.Errorf("%s: %w", op, sentinel)
			}
		}
	}
	return fmt.Errorf("%s failed with status %d: %s", op, resp.StatusCode, msg)
}

// IsSentinel reports whether err carries one of the blast validation or
// read-only errors.
func IsSentinel(err error) bool {
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
