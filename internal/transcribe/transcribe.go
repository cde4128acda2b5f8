package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/mgpai22/libersonora/internal/resilient"
	"github.com/mgpai22/libersonora/internal/subtitle"
)

// interface for audio transcription
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, opts Options) ([]subtitle.RawSegment, error)
}

// transcription options
type Options struct {
	Hotwords string // space separated vocabulary hints
}

// response envelope of the ASR service
type response struct {
	Code    int                   `json:"code"`
	Message string                `json:"message"`
	Data    []subtitle.RawSegment `json:"data"`
}

// talks to the FunASR /handle endpoint
type Client struct {
	endpoint string
	http     *resilient.Client
}

func NewClient(baseURL string, httpClient *resilient.Client) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("ASR service URL is required")
	}
	endpoint, err := url.JoinPath(baseURL, "handle")
	if err != nil {
		return nil, fmt.Errorf("invalid ASR service URL %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = resilient.NewClient(nil, nil)
	}
	return &Client{endpoint: endpoint, http: httpClient}, nil
}

// sends WAV audio and returns the time-ordered sentences
func (c *Client) Transcribe(ctx context.Context, audio []byte, opts Options) ([]subtitle.RawSegment, error) {
	endpoint := c.endpoint
	fields := map[string]string{}
	if hw := strings.TrimSpace(opts.Hotwords); hw != "" {
		// FunASR reads hotwords from the query string; the form field serves servers that parse the body
		fields["hotwords"] = hw
		endpoint = withQuery(endpoint, "hotwords", hw)
	}

	body, err := c.http.PostMultipart(ctx, "transcribe", endpoint, fields, resilient.FilePart{
		Field:    "file",
		FileName: "audio.wav",
		Data:     audio,
	})
	if err != nil {
		return nil, err
	}

	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode ASR response: %w", err)
	}
	if resp.Code != 0 {
		return nil, fmt.Errorf("ASR service error (code %d): %s", resp.Code, resp.Message)
	}
	if resp.Data == nil {
		return []subtitle.RawSegment{}, nil
	}
	return resp.Data, nil
}

func withQuery(endpoint, key, value string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
