// Package ingestion pulls the external Coursera catalog into the local
// course store and similarity index.
package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Quang-To/Pathwise/internal/schemas"
)

const defaultTimeout = 30 * time.Second

// userAgents is rotated across requests; the catalog endpoint throttles
// repeated agents aggressively.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
}

// CatalogCourse is one entry of the paged catalog response.
type CatalogCourse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Description string   `json:"description"`
	Languages   []string `json:"primaryLanguages"`
}

type catalogPage struct {
	Elements []CatalogCourse `json:"elements"`
	Paging   struct {
		Next  string `json:"next"`
		Total int    `json:"total"`
	} `json:"paging"`
}

// Client fetches catalog pages and course detail pages.
type Client struct {
	baseURI    string
	limit      int
	maxRetries int
	httpClient *http.Client
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewClient builds a catalog client. limit is the page size; maxRetries
// bounds retry attempts per request.
func NewClient(baseURI string, limit, maxRetries int) *Client {
	if limit <= 0 {
		limit = 100
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Client{
		baseURI:    baseURI,
		limit:      limit,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: defaultTimeout},
		sleep:      sleepCtx,
	}
}

// FetchCatalog walks the paged catalog endpoint from the start cursor until
// maxCourses entries are collected or the paging cursor runs out. maxCourses
// zero means a single page.
func (c *Client) FetchCatalog(ctx context.Context, maxCourses int) ([]CatalogCourse, error) {
	if maxCourses <= 0 {
		maxCourses = c.limit
	}

	var out []CatalogCourse
	start := "0"
	for len(out) < maxCourses {
		page, err := c.fetchPage(ctx, start)
		if err != nil {
			return out, fmt.Errorf("failed to fetch catalog page at %s: %w", start, err)
		}
		out = append(out, page.Elements...)
		if page.Paging.Next == "" || len(page.Elements) == 0 {
			break
		}
		start = page.Paging.Next
	}

	if len(out) > maxCourses {
		out = out[:maxCourses]
	}
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, start string) (*catalogPage, error) {
	u, err := url.Parse(c.baseURI)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog URI %q: %w", c.baseURI, err)
	}
	q := u.Query()
	q.Set("start", start)
	q.Set("limit", strconv.Itoa(c.limit))
	q.Set("fields", "name,slug,description,primaryLanguages")
	u.RawQuery = q.Encode()

	body, err := c.get(ctx, u.String())
	if err != nil {
		return nil, err
	}
	if err := schemas.ValidateBytes(schemas.CatalogPage, body); err != nil {
		return nil, fmt.Errorf("catalog response failed validation: %w", err)
	}

	var page catalogPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to decode catalog page: %w", err)
	}
	return &page, nil
}

// FetchCoursePage downloads a course detail page for skill extraction.
func (c *Client) FetchCoursePage(ctx context.Context, pageURL string) (string, error) {
	body, err := c.get(ctx, pageURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// get performs a GET with user-agent rotation and exponential backoff on
// throttling responses (403, 429) and server errors.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request for %s: %w", rawURL, err)
		}
		req.Header.Set("User-Agent", userAgents[attempt%len(userAgents)])
		req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, readErr := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = readErr
			case resp.StatusCode == http.StatusOK:
				return body, nil
			case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
				lastErr = fmt.Errorf("HTTP status %d", resp.StatusCode)
			default:
				return nil, fmt.Errorf("HTTP status %d for %s", resp.StatusCode, rawURL)
			}
		}

		if attempt < c.maxRetries-1 {
			if err := c.sleep(ctx, throttleBackoff(attempt)); err != nil {
				return nil, err
			}
		}
	}
	return nil, fmt.Errorf("request to %s failed after %d attempts: %w", rawURL, c.maxRetries, lastErr)
}

// throttleBackoff returns 1s, 2s, 4s... with jitter.
func throttleBackoff(attempt int) time.Duration {
	base := time.Second * time.Duration(1<<uint(attempt))
	jitter := 0.8 + 0.4*rand.Float64()
	return time.Duration(float64(base) * jitter)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
