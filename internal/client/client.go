// Package client posts local audio files to a running journal server.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/roelfdiedericks/lilybear/internal/errs"
	. "github.com/roelfdiedericks/lilybear/internal/logging"
	"github.com/roelfdiedericks/lilybear/internal/media"
)

// DefaultAPIURL is where lilybear serve listens by default.
const DefaultAPIURL = "http://localhost:8000"

// Fields are the optional mood fields sent alongside the audio.
type Fields struct {
	Mindset    string
	Heartset   string
	Energy     string
	Intentions string
}

func (f Fields) values() [][2]string {
	return [][2]string{
		{"mindset", f.Mindset},
		{"heartset", f.Heartset},
		{"energy", f.Energy},
		{"intentions", f.Intentions},
	}
}

// Response is the server reply, body kept verbatim.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client talks to the journal API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for apiURL. A nil httpClient gets one with a
// timeout long enough for the whole create sequence.
func New(apiURL string, httpClient *http.Client) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Minute}
	}
	return &Client{
		baseURL:    strings.TrimRight(apiURL, "/"),
		httpClient: httpClient,
	}
}

// PostEntry uploads audioPath as the "audio" part of POST /entries.
// Non-2xx replies are returned as a Response, not an error.
func (c *Client) PostEntry(ctx context.Context, audioPath string, fields Fields) (*Response, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, errs.NotFound("audio file", err)
	}

	body, contentType, err := buildForm(filepath.Base(audioPath), data, fields)
	if err != nil {
		return nil, err
	}

	url := c.baseURL + "/entries"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	L_debug("client: posting entry", "url", url, "file", audioPath, "bytes", len(data))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: post %s: %w", url, err)
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("client: read response: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Body: out}, nil
}

// buildForm writes the multipart body. The audio part carries the type
// sniffed from its bytes; CreateFormFile would label it
// application/octet-stream, which the server rejects.
func buildForm(filename string, data []byte, fields Fields) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename=%q`, filename))
	h.Set("Content-Type", media.ContentTypeFor(filename, data))

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("client: create audio part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("client: write audio part: %w", err)
	}

	for _, kv := range fields.values() {
		if kv[1] == "" {
			continue
		}
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", fmt.Errorf("client: write field %s: %w", kv[0], err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("client: close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
