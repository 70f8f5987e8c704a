package upload

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const (
	DefaultEndpoint = "https://api.imgbb.com/1/upload"
	DefaultMaxBytes = 10 * 1024 * 1024
	DefaultTimeout  = 60 * time.Second

	// host responses are small JSON documents
	maxResponseBytes = 1 << 20
)

// Client uploads images to an ImgBB compatible endpoint.
type Client struct {
	endpoint   string
	apiKey     string
	maxBytes   int64
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

func WithMaxBytes(n int64) ClientOption {
	return func(c *Client) {
		c.maxBytes = n
	}
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func NewClient(apiKey string, options ...ClientOption) *Client {
	c := &Client{
		endpoint:   DefaultEndpoint,
		apiKey:     apiKey,
		maxBytes:   DefaultMaxBytes,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

type uploadResponse struct {
	Data struct {
		URL string `json:"url"`
	} `json:"data"`
	Success bool `json:"success"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload sends data as a base64 image field and returns the hosted URL.
func (c *Client) Upload(ctx context.Context, name string, data []byte) (string, error) {
	if c.maxBytes > 0 && int64(len(data)) > c.maxBytes {
		return "", &UploadError{Kind: TooLarge, Err: fmt.Errorf("%s is %d bytes, limit %d", name, len(data), c.maxBytes)}
	}

	body, contentType, err := c.encode(name, data)
	if err != nil {
		return "", &UploadError{Kind: Rejected, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return "", &UploadError{Kind: Network, Err: errors.Wrap(err, "[Client.Upload] NewRequest")}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &UploadError{Kind: Network, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return "", &UploadError{Kind: Network, Err: errors.Wrap(err, "[Client.Upload] read response")}
	}
	if len(raw) > maxResponseBytes {
		return "", &UploadError{Kind: Rejected, Err: errors.Errorf("response larger than %d bytes", maxResponseBytes)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var parsed uploadResponse
		_ = json.Unmarshal(raw, &parsed)
		msg := parsed.Error.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", &UploadError{Kind: Rejected, Err: fmt.Errorf("status %d: %s", resp.StatusCode, msg)}
	}

	var parsed uploadResponse
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.Data.URL == "" {
		return "", &UploadError{Kind: Rejected, Err: errors.New("Upload failed")}
	}
	return parsed.Data.URL, nil
}

func (c *Client) encode(name string, data []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("key", c.apiKey); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("name", name); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("image", base64.StdEncoding.EncodeToString(data)); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
