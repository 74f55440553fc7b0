// Package extract pulls practice sentences out of web articles.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

// DefaultMaxBodySize caps how much HTML is read from one page.
const DefaultMaxBodySize = 10 * 1024 * 1024

// Article is the readable part of a page split into candidate sentences.
type Article struct {
	URL       string   `json:"url"`
	Title     string   `json:"title"`
	Byline    string   `json:"byline,omitempty"`
	SiteName  string   `json:"siteName,omitempty"`
	Sentences []string `json:"sentences"`
}

// Extractor fetches pages and extracts their sentences.
type Extractor struct {
	Client      *http.Client
	MaxBodySize int64
}

// New returns an Extractor with a 30 second client timeout and the default
// body cap.
func New() *Extractor {
	return &Extractor{
		Client:      &http.Client{Timeout: 30 * time.Second},
		MaxBodySize: DefaultMaxBodySize,
	}
}

// Fetch downloads rawURL and extracts its article.
func (e *Extractor) Fetch(ctx context.Context, rawURL string) (Article, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil || pageURL.Scheme == "" || pageURL.Host == "" {
		return Article{}, fmt.Errorf("invalid url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Article{}, fmt.Errorf("create request: %w", err)
	}
	// Some sites block clients that do not look like a browser.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,ja;q=0.8")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Article{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Article{}, fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	limit := e.MaxBodySize
	if limit <= 0 {
		limit = DefaultMaxBodySize
	}
	if resp.ContentLength > limit {
		return Article{}, fmt.Errorf("content length %d exceeds limit of %d bytes", resp.ContentLength, limit)
	}
	// Read one byte past the limit to tell a full body from a truncated one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return Article{}, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > limit {
		return Article{}, fmt.Errorf("response body exceeds limit of %d bytes", limit)
	}

	return FromHTML(bytes.NewReader(body), pageURL)
}

// FromHTML extracts the article from an HTML document.
func FromHTML(r io.Reader, pageURL *url.URL) (Article, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Article{}, fmt.Errorf("read html: %w", err)
	}
	article, err := readability.FromReader(bytes.NewReader(SanitizeRuby(raw)), pageURL)
	if err != nil {
		return Article{}, fmt.Errorf("extract article: %w", err)
	}

	out := Article{
		Title:     article.Title,
		Byline:    article.Byline,
		SiteName:  article.SiteName,
		Sentences: Split(article.TextContent),
	}
	if pageURL != nil {
		out.URL = pageURL.String()
	}
	return out, nil
}

// Split breaks text into trimmed sentences after 。！？.!? and newlines.
// Blank and repeated sentences are dropped; the first occurrence keeps its
// position.
func Split(text string) []string {
	out := []string{}
	seen := make(map[string]bool)
	var current strings.Builder

	flush := func() {
		s := strings.TrimSpace(current.String())
		current.Reset()
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	for _, r := range text {
		if r == '\n' || r == '\r' {
			flush()
			continue
		}
		current.WriteRune(r)
		switch r {
		case '。', '！', '？', '.', '!', '?':
			flush()
		}
	}
	flush()
	return out
}

var (
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby removes ruby text (<rt>) and ruby parentheses (<rp>) so that
// furigana is not extracted alongside its base text ("漢字かんじ").
// Only ASCII bytes are matched, which keeps it safe for Shift_JIS input.
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, nil)
	return reRP.ReplaceAll(cleaned, nil)
}
