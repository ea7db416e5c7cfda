// Package tavily is a small client of Tavily's search, extract and crawl API.
package tavily

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/curtisnewbie/miso/errs"
	"github.com/curtisnewbie/miso/flow"
	"github.com/curtisnewbie/miso/util/json"
)

const (
	DefaultBaseURL = "https://api.tavily.com"
	DefaultTimeout = 60 * time.Second
)

type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type clientConfig struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

type ClientOpFunc func(c *clientConfig)

func WithBaseURL(url string) ClientOpFunc {
	return func(c *clientConfig) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// Use c to send requests, e.g., a client trusting the bundled CA certificates.
//
// If c has no Timeout, requests are sent with a copy of c that times out after [DefaultTimeout] (or [WithTimeout]).
func WithHTTPClient(c *http.Client) ClientOpFunc {
	return func(cc *clientConfig) {
		if c != nil {
			cc.client = c
		}
	}
}

// Timeout of requests sent with a client that has none.
func WithTimeout(d time.Duration) ClientOpFunc {
	return func(c *clientConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewClient(apiKey string, ops ...ClientOpFunc) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errs.NewErrf("tavily: missing API key")
	}
	c := &clientConfig{
		baseURL: DefaultBaseURL,
		client:  &http.Client{},
		timeout: DefaultTimeout,
	}
	for _, op := range ops {
		op(c)
	}
	client := c.client
	if client.Timeout == 0 {
		cp := *client
		cp.Timeout = c.timeout
		client = &cp
	}
	return &Client{apiKey: apiKey, baseURL: c.baseURL, client: client}, nil
}

func (c *Client) Search(rail flow.Rail, req SearchReq) (SearchRes, error) {
	var res SearchRes
	err := c.post(rail, "/search", req, &res)
	return res, err
}

func (c *Client) Extract(rail flow.Rail, req ExtractReq) (ExtractRes, error) {
	var res ExtractRes
	err := c.post(rail, "/extract", req, &res)
	return res, err
}

func (c *Client) Crawl(rail flow.Rail, req CrawlReq) (CrawlRes, error) {
	var res CrawlRes
	err := c.post(rail, "/crawl", req, &res)
	return res, err
}

func (c *Client) post(rail flow.Rail, path string, body any, res any) error {
	start := time.Now()
	defer rail.TimeOp(start, "Tavily "+path)

	buf, err := json.WriteJson(body)
	if err != nil {
		return errs.Wrap(err)
	}

	req, err := http.NewRequestWithContext(rail, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return errs.Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return errs.Wrapf(err, "tavily %v request failed", path)
	}
	defer resp.Body.Close()

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Wrapf(err, "tavily %v, failed to read response", path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ApiError{Path: path, StatusCode: resp.StatusCode, Body: string(rb)}
	}
	if err := json.ParseJson(rb, res); err != nil {
		return errs.Wrapf(err, "tavily %v, failed to parse response", path)
	}
	rail.Debugf("Tavily %v, response: %s", path, rb)
	return nil
}
