package apiClient

import (
	"bytes"
	"context"
	"crypto-collector/config"
	"crypto-collector/utility/logger"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client object for external API request
type Client struct {
	BaseURL    *url.URL
	UserAgent  string
	Config     config.Data
	HttpClient *http.Client
}

func New(HttpClient *http.Client, cfg config.Data, baseURL string) (*Client, error) {
	if HttpClient == nil {
		HttpClient = &http.Client{Timeout: config.Seconds(cfg.RequestTimeout, 30*time.Second)}
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
	}
	return &Client{
		BaseURL:    parsed,
		UserAgent:  cfg.ServiceName,
		Config:     cfg,
		HttpClient: HttpClient,
	}, nil
}

func (c *Client) NewRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	u := c.BaseURL
	if path != "" {
		u = c.BaseURL.ResolveReference(&url.URL{Path: path})
	}
	var buf io.ReadWriter
	if body != nil {
		buf = new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), buf)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.UserAgent)
	return req, nil
}

func (c *Client) AddHeader(req *http.Request, headers map[string]string) *http.Request {
	for header, value := range headers {
		req.Header.Set(header, value)
	}
	return req
}

func (c *Client) Do(req *http.Request, v interface{}) (*http.Response, error) {
	startTime := time.Now()
	resp, err := c.HttpClient.Do(req)
	if err != nil {
		logger.Error("Response from %s : %+v", req.URL, err)
		return nil, err
	}
	defer resp.Body.Close()

	resBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, err
	}
	logger.Debug("Response from %s : [%d] Time: %dms", req.URL, resp.StatusCode, time.Since(startTime).Milliseconds())

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return resp, fmt.Errorf("%s responded %d: %s", req.URL, resp.StatusCode, string(resBody))
	}

	err = json.Unmarshal(resBody, v)
	return resp, err
}
