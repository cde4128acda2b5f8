package enhance

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mgpai22/libersonora/internal/resilient"
)

const DefaultModel = "MossFormer2_SE_48K"

// interface for background noise removal
type Enhancer interface {
	Enhance(ctx context.Context, audio []byte) ([]byte, error)
}

// talks to the ClearVoice /handle endpoint
type Client struct {
	endpoint string
	model    string
	http     *resilient.Client
}

func NewClient(baseURL, model string, httpClient *resilient.Client) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("enhancement service URL is required")
	}
	endpoint, err := url.JoinPath(baseURL, "handle")
	if err != nil {
		return nil, fmt.Errorf("invalid enhancement service URL %q: %w", baseURL, err)
	}
	if model == "" {
		model = DefaultModel
	}
	if httpClient == nil {
		httpClient = resilient.NewClient(nil, nil)
	}
	return &Client{endpoint: endpoint, model: model, http: httpClient}, nil
}

// returns the enhanced audio bytes
func (c *Client) Enhance(ctx context.Context, audio []byte) ([]byte, error) {
	out, err := c.http.PostMultipart(ctx, "enhance", c.endpoint,
		map[string]string{"model": c.model},
		resilient.FilePart{Field: "file", FileName: "audio.wav", Data: audio},
	)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("enhancement service returned empty audio")
	}
	return out, nil
}
