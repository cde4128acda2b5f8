package resilient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// file part of a multipart upload
type FilePart struct {
	Field    string
	FileName string
	Data     []byte
}

// HTTP client whose calls go through a Retrier
type Client struct {
	http    *http.Client
	retrier *Retrier
}

func NewClient(httpClient *http.Client, retrier *Retrier) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if retrier == nil {
		retrier = NewRetrier(DefaultPolicy())
	}
	return &Client{http: httpClient, retrier: retrier}
}

func (c *Client) Retrier() *Retrier { return c.retrier }

// PostMultipart sends fields and file as multipart/form-data and returns the
// body of the first 2xx response.
func (c *Client) PostMultipart(ctx context.Context, op, url string, fields map[string]string, file FilePart) ([]byte, error) {
	body, contentType, err := encodeMultipart(fields, file)
	if err != nil {
		return nil, fmt.Errorf("%s: encode form: %w", op, err)
	}

	var out []byte
	err = c.retrier.Do(ctx, op, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("Content-Type", contentType)

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &StatusError{StatusCode: resp.StatusCode, Body: string(data)}
		}
		out = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func encodeMultipart(fields map[string]string, file FilePart) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if file.Field != "" {
		part, err := w.CreateFormFile(file.Field, file.FileName)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
