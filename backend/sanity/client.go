// Package sanity queries posts from a Sanity dataset over the HTTP query API.
package sanity

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

	"github.com/lemmi/glubblog/backend"
	"github.com/pkg/errors"
)

const (
	DefaultAPIVersion = "2023-05-03"

	// Queries with longer URLs are sent as POST.
	maxGetURLLength = 11264
)

type Config struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	Token      string
	UseCDN     bool
	Timeout    time.Duration

	// BaseURL replaces https://<project>.api.sanity.io, mainly for tests.
	BaseURL string
}

type Client struct {
	cfg  Config
	base string
	http *http.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("sanity: project id is required")
	}
	if cfg.Dataset == "" {
		return nil, errors.New("sanity: dataset is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	base := cfg.BaseURL
	if base == "" {
		host := "api.sanity.io"
		if cfg.UseCDN && cfg.Token == "" {
			host = "apicdn.sanity.io"
		}
		base = fmt.Sprintf("https://%s.%s", cfg.ProjectID, host)
	}
	return &Client{
		cfg:  cfg,
		base: strings.TrimSuffix(base, "/"),
		http: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (c *Client) ProjectID() string { return c.cfg.ProjectID }
func (c *Client) Dataset() string   { return c.cfg.Dataset }

type errorResponse struct {
	Error struct {
		Description string `json:"description"`
		Type        string `json:"type"`
	} `json:"error"`
}

// Fetch runs a GROQ query and decodes its result into v. A null result leaves
// v untouched.
func (c *Client) Fetch(ctx context.Context, query string, params map[string]interface{}, v interface{}) error {
	endpoint := fmt.Sprintf("%s/v%s/data/query/%s", c.base, strings.TrimPrefix(c.cfg.APIVersion, "v"), url.PathEscape(c.cfg.Dataset))

	q := url.Values{}
	q.Set("query", query)
	for k, p := range params {
		b, err := json.Marshal(p)
		if err != nil {
			return errors.Wrapf(err, "Cannot encode query parameter %q", k)
		}
		q.Set("$"+k, string(b))
	}

	var req *http.Request
	var err error
	if u := endpoint + "?" + q.Encode(); len(u) <= maxGetURLLength {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	} else {
		var body []byte
		body, err = json.Marshal(map[string]interface{}{
			"query":  query,
			"params": params,
		})
		if err != nil {
			return errors.Wrap(err, "Cannot encode query body")
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	if err != nil {
		return errors.Wrap(err, "Cannot create query request")
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "sanity query failed")
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.Wrap(err, "Cannot read query response")
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		var e errorResponse
		if json.Unmarshal(b, &e) == nil && e.Error.Description != "" {
			return errors.Errorf("sanity query failed: %s: %s", res.Status, e.Error.Description)
		}
		return errors.Errorf("sanity query failed: %s", res.Status)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(b, &envelope); err != nil {
		return errors.Wrap(err, "Cannot decode query response")
	}
	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	return errors.Wrap(json.Unmarshal(envelope.Result, v), "Cannot decode query result")
}

func (c *Client) Slugs(ctx context.Context) ([]string, error) {
	var items []struct {
		Slug *string `json:"slug"`
	}
	if err := c.Fetch(ctx, slugsQuery, nil, &items); err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(items))
	for _, it := range items {
		if it.Slug == nil || *it.Slug == "" {
			continue
		}
		slugs = append(slugs, *it.Slug)
	}
	return slugs, nil
}

func (c *Client) PostBySlug(ctx context.Context, slug string) (*backend.Post, error) {
	var post *backend.Post
	if err := c.Fetch(ctx, postQuery, map[string]interface{}{"slug": slug}, &post); err != nil {
		return nil, errors.Wrapf(err, "fetching post %q", slug)
	}
	return post, nil
}
