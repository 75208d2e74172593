package orange

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/mateuszdrab/orangepl-exporter/internal/config"
)

const maxResponseBytes = 1 << 20

// Client talks to the provider API. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// NewClient returns a Client for api. base is the underlying transport and
// may be nil.
func NewClient(api config.API, base http.RoundTripper) (*Client, error) {
	parsed, err := url.Parse(api.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, errors.New("api base url must use http or https")
	}
	if parsed.Host == "" {
		return nil, errors.New("api base url host is required")
	}

	header := http.Header{}
	header.Set("X-Api-Key", api.Key)
	header.Set("X-OPL-Platform", api.Platform)
	header.Set("X-OPL-RequestSource", api.RequestSource)
	if api.UserAgent != "" {
		header.Set("User-Agent", api.UserAgent)
	}

	return &Client{
		baseURL: parsed,
		http: &http.Client{
			Timeout:   api.Timeout,
			Transport: &platformTransport{Base: base, header: header},
		},
	}, nil
}

// endpoint resolves path against the base URL, substituting {name}
// placeholders from vars and appending query.
func (c *Client) endpoint(path string, vars map[string]string, query url.Values) (string, error) {
	if path == "" {
		return "", errors.New("api path is required")
	}
	path, rawQuery, hasQuery := strings.Cut(path, "?")
	path = expand(path, vars, url.PathEscape)
	if hasQuery {
		path += "?" + expand(rawQuery, vars, url.QueryEscape)
	}

	ref, err := url.Parse(path)
	if err != nil {
		return "", fmt.Errorf("parse api path: %w", err)
	}
	u := c.baseURL.ResolveReference(ref)
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func expand(s string, vars map[string]string, escape func(string) string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", escape(v))
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// getJSON issues an authenticated GET and decodes the answer into out.
func (c *Client) getJSON(ctx context.Context, endpoint, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	return c.do(req, out, true)
}

// postJSON sends body as JSON. Auth endpoints answer with secrets, so the
// response body is never logged.
func (c *Client) postJSON(ctx context.Context, endpoint string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req, out, false)
}

func (c *Client) do(req *http.Request, out any, logBody bool) error {
	name := req.URL.Path

	resp, err := c.http.Do(req)
	if err != nil {
		return &UpstreamError{Endpoint: name, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &UpstreamError{Endpoint: name, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &UpstreamError{Endpoint: name, StatusCode: resp.StatusCode}
	}
	if logBody {
		slog.Debug("orange: response", "endpoint", name, "body", string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &SchemaError{Document: name, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}
