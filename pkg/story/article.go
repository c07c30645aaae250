package story

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"unicode"

	"github.com/go-shiori/go-readability"
)

// maxBodySize bounds pages fetched from untrusted URLs.
const maxBodySize = 10 * 1024 * 1024

// Fetch downloads a web page for story import.
func Fetch(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	// Some sites reject clients without a browser-like header set.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ar,en-US;q=0.9,en;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}
	if resp.ContentLength > int64(maxBodySize) {
		return nil, fmt.Errorf("content-length %d exceeds limit of %d bytes", resp.ContentLength, maxBodySize)
	}

	// Read one byte past the limit to tell a truncated body from one that fits exactly.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("response body exceeded maximum size limit of %d bytes", maxBodySize)
	}
	return body, nil
}

// FromHTML extracts the main article of an HTML page as a story. When slug
// is empty it is derived from the page URL.
func FromHTML(r io.Reader, pageURL *url.URL, slug string) (Story, error) {
	article, err := readability.FromReader(r, pageURL)
	if err != nil {
		return Story{}, fmt.Errorf("extract article: %w", err)
	}
	if slug == "" {
		slug = SlugFromURL(pageURL)
	}
	s := Story{
		Slug:    slug,
		Title:   Title{Arabic: strings.TrimSpace(article.Title)},
		Content: Content{Arabic: SplitParagraphs(article.TextContent)},
	}
	if err := s.Validate(); err != nil {
		return Story{}, err
	}
	return s, nil
}

// Import fetches rawURL and extracts its article as a story.
func Import(ctx context.Context, client *http.Client, rawURL, slug string) (Story, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return Story{}, fmt.Errorf("parse url: %w", err)
	}
	body, err := Fetch(ctx, client, rawURL)
	if err != nil {
		return Story{}, err
	}
	return FromHTML(bytes.NewReader(body), pageURL, slug)
}

// SlugFromURL derives a story id from the last path segment of u, falling
// back to the host name.
func SlugFromURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	base := path.Base(strings.TrimSuffix(u.Path, "/"))
	if base == "." || base == "/" || base == "" {
		base = u.Hostname()
	} else {
		base = strings.TrimSuffix(base, path.Ext(base))
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(base) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
