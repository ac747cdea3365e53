// Package client sends the requests of the contract tests to the server under test.
//
// It is a thin layer over net/http that returns the whole response at once. Cookies are
// passed in and handed back explicitly rather than kept in a jar, so the tests decide what
// session state is sent with each request.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felina/server-contract-tests/framework"
)

const defaultTimeout = time.Second * 10

// Response is a fully read HTTP response.
type Response struct {
	Status  int
	Body    []byte
	Cookies []*http.Cookie
}

// Cookie returns the value of the named cookie set by the response.
func (r Response) Cookie(name string) (string, bool) {
	for _, c := range r.Cookies {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

// File is a file part of a multipart upload.
type File struct {
	Field string
	Path  string
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  framework.Logger
}

// New creates a client for the server at baseURL. Redirects are not followed, so every
// response is the server's own.
func New(baseURL string, timeout time.Duration, logger framework.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = framework.NullLogger()
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger,
	}
}

// WithLogger returns a client that shares this one's connections but logs elsewhere.
func (c *Client) WithLogger(logger framework.Logger) *Client {
	c1 := *c
	c1.logger = logger
	return &c1
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get sends a GET request. Cancelling ctx abandons the request.
func (c *Client) Get(ctx context.Context, path string, cookies []*http.Cookie) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return Response{}, err
	}
	return c.do(req, cookies)
}

// PostForm sends fields as an application/x-www-form-urlencoded body.
func (c *Client) PostForm(ctx context.Context, path string, fields url.Values, cookies []*http.Cookie) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(fields.Encode()))
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, cookies)
}

// PostMultipart sends fields and files as a multipart/form-data body. Each file part is
// named after the file and typed by its extension.
func (c *Client) PostMultipart(ctx context.Context, path string, fields url.Values, files []File,
	cookies []*http.Cookie) (Response, error) {
	body, contentType, err := buildMultipart(fields, files)
	if err != nil {
		return Response{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(req, cookies)
}

func buildMultipart(fields url.Values, files []File) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, values := range fields {
		for _, v := range values {
			if err := w.WriteField(name, v); err != nil {
				return nil, "", err
			}
		}
	}
	for _, f := range files {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return nil, "", fmt.Errorf("reading upload file: %w", err)
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			escapeQuotes(f.Field), escapeQuotes(filepath.Base(f.Path))))
		h.Set("Content-Type", contentTypeFor(f.Path))
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

func contentTypeFor(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func (c *Client) do(req *http.Request, cookies []*http.Cookie) (Response, error) {
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	c.logger.Printf("%s %s", req.Method, req.URL)
	resp, err := c.http.Do(req)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("reading response from %s: %w", req.URL, err)
	}
	c.logger.Printf("Got status %d: %s", resp.StatusCode, string(data))
	return Response{Status: resp.StatusCode, Body: data, Cookies: resp.Cookies()}, nil
}
