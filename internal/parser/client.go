package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// Result is the JSON body of the parse-file endpoint.
type Result struct {
	Success  bool   `json:"success"`
	Text     string `json:"text,omitempty"`
	Filename string `json:"filename,omitempty"`
	Length   int    `json:"length,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Client parses documents through a remote parse-file endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the service rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Parse uploads data as a multipart "file" field and returns the extracted text.
func (c *Client) Parse(ctx context.Context, fileName string, data []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(data); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/parse-file", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("parse request: %w", err)
	}
	defer resp.Body.Close()

	var res Result
	if err := json.NewDecoder(io.LimitReader(resp.Body, 32<<20)).Decode(&res); err != nil {
		return "", fmt.Errorf("decode parse response (status %d): %w", resp.StatusCode, err)
	}
	if !res.Success {
		if res.Error == "" {
			res.Error = resp.Status
		}
		return "", fmt.Errorf("parse %s: %s", fileName, res.Error)
	}
	return res.Text, nil
}

// Ping checks the remote service's health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("parser health: %s", resp.Status)
	}
	return nil
}
