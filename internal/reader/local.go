package reader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// LocalReader extracts article text in-process using Mozilla Readability's
// heuristics (via go-readability), falling back to a plain goquery
// body-text scrape when Readability cannot find an article.
type LocalReader struct {
	httpClient *http.Client
	userAgent  string
	maxBodyMB  int
}

// NewLocalReader builds a LocalReader with the given HTTP timeout, the
// browser-shaped User-Agent the teacher's remote parser also sends, and a
// response size cap.
func NewLocalReader(timeout time.Duration, userAgent string, maxBodyMB int) *LocalReader {
	if maxBodyMB <= 0 {
		maxBodyMB = 10
	}
	return &LocalReader{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		maxBodyMB:  maxBodyMB,
	}
}

// Read fetches rawURL and extracts its article text.
func (r *LocalReader) Read(ctx context.Context, rawURL string) (ReadOutcome, error) {
	start := time.Now()

	body, err := r.fetch(ctx, rawURL)
	if err != nil {
		return ReadOutcome{}, err
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return ReadOutcome{}, fmt.Errorf("invalid url: %w", err)
	}

	article, err := readability.FromReader(strings.NewReader(body), parsedURL)
	var title, text string
	if err == nil && len(strings.TrimSpace(article.TextContent)) >= MinContentBytes {
		title = article.Title
		text = strings.TrimSpace(article.TextContent)
	} else {
		title, text = fallbackExtract(body)
	}

	return ReadOutcome{
		Title:      title,
		Text:       text,
		URL:        rawURL,
		WordCount:  len(strings.Fields(text)),
		Source:     SourceLocal,
		ReadTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

func (r *LocalReader) fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	maxBytes := int64(r.maxBodyMB) * 1024 * 1024
	limited := io.LimitReader(resp.Body, maxBytes)
	content, err := io.ReadAll(limited)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(content), nil
}

// fallbackExtract strips script/style/nav/footer and returns the
// remaining body text when Readability finds no article, same heuristic
// as the teacher's goquery-based extractText.
func fallbackExtract(html string) (title, text string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", ""
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("script, style, nav, aside, footer, header, iframe, noscript").Remove()

	var sb strings.Builder
	doc.Find("body").Each(func(_ int, s *goquery.Selection) {
		sb.WriteString(strings.TrimSpace(s.Text()))
	})
	return title, strings.TrimSpace(sb.String())
}
