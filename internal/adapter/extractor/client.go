// Package extractor talks to the PDF extraction sidecar. The sidecar owns all
// PDF parsing and rendering; this service only ships paths to it and stores
// what comes back.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Block is one positioned text block on a PDF page.
type Block struct {
	Page   int     `json:"page"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Text   string  `json:"text"`
}

// Extraction is the sidecar's full read of a PDF.
type Extraction struct {
	Blocks  []Block `json:"blocks"`
	HasText bool    `json:"has_text"`
	Title   string  `json:"title"`
	Authors string  `json:"authors"`
	Pages   int     `json:"pages"`
}

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Extract pulls every positioned text block out of a PDF along with document
// metadata. HasText is false for scanned PDFs with no embedded text layer.
func (c *Client) Extract(ctx context.Context, pdfPath string) (*Extraction, error) {
	var out Extraction
	if err := c.postJSON(ctx, "/extract", map[string]string{"path": pdfPath}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PlainText returns the concatenated text of the first maxPages pages.
func (c *Client) PlainText(ctx context.Context, pdfPath string, maxPages int) (string, error) {
	var out struct {
		Text string `json:"text"`
	}
	req := map[string]interface{}{"path": pdfPath, "max_pages": maxPages}
	if err := c.postJSON(ctx, "/text", req, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

// Metadata is a convenience wrapper used at document registration time.
func (c *Client) Metadata(ctx context.Context, pdfPath string) (string, string, error) {
	ext, err := c.Extract(ctx, pdfPath)
	if err != nil {
		return "", "", err
	}
	return ext.Title, ext.Authors, nil
}

// RenderPage rasterizes one page as PNG bytes.
func (c *Client) RenderPage(ctx context.Context, pdfPath string, page int) ([]byte, error) {
	body, _ := json.Marshal(map[string]interface{}{"path": pdfPath, "page": page})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/render", bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extractor unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extractor error: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) postJSON(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("extractor unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("extractor error: %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
