// Package crossref resolves DOIs into BibTeX entries via doi.org content
// negotiation.
package crossref

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://doi.org"

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// BibTeX fetches the citation entry for a DOI.
func (c *Client) BibTeX(ctx context.Context, doi string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+url.PathEscape(doi), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/x-bibtex")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("citation lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("no citation found for DOI %s", doi)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("citation service error: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(body)), nil
}
