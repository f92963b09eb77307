package reader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"go-deep-research/internal/resilience"
)

// RemoteReader fetches and extracts article text via a configured HTTP
// reader API (a Jina-Reader-shaped endpoint, or plain HTML fetched through
// goquery when no dedicated reader API is configured) — this is the
// fallback strategy in the dual-strategy read policy, generalizing the
// teacher's tools.WebParserClient with a circuit breaker around the fetch.
type RemoteReader struct {
	httpClient *http.Client
	userAgent  string
	maxBodyMB  int
	readerAPI  string // prefix such as "https://r.jina.ai/"; empty means fetch+goquery directly
	cb         *resilience.CircuitBreaker
}

// NewRemoteReader builds a RemoteReader. readerAPI, if set, is prepended to
// the target URL to route through a reader-API proxy; otherwise the
// RemoteReader fetches and extracts the page itself.
func NewRemoteReader(timeout time.Duration, userAgent, readerAPI string, maxBodyMB int) *RemoteReader {
	if maxBodyMB <= 0 {
		maxBodyMB = 10
	}
	return &RemoteReader{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		maxBodyMB:  maxBodyMB,
		readerAPI:  readerAPI,
		cb:         resilience.NewCircuitBreaker(5, 30*time.Second),
	}
}

// Read fetches rawURL through the remote strategy and extracts its text.
func (r *RemoteReader) Read(ctx context.Context, rawURL string) (ReadOutcome, error) {
	start := time.Now()

	target := rawURL
	if r.readerAPI != "" {
		target = strings.TrimSuffix(r.readerAPI, "/") + "/" + rawURL
	}

	var outcome ReadOutcome
	err := r.cb.Call(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("User-Agent", r.userAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain")

		resp, err := r.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("fetch: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("HTTP %d", resp.StatusCode)
		}

		maxBytes := int64(r.maxBodyMB) * 1024 * 1024
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}

		contentType := resp.Header.Get("Content-Type")
		var title, text string
		if strings.Contains(contentType, "text/html") {
			title, text = extractHTML(string(body))
		} else {
			text = strings.TrimSpace(string(body))
		}

		outcome = ReadOutcome{
			Title:      title,
			Text:       text,
			URL:        rawURL,
			WordCount:  len(strings.Fields(text)),
			Source:     SourceRemote,
			ReadTimeMs: time.Since(start).Milliseconds(),
		}
		return nil
	})
	if err != nil {
		return ReadOutcome{}, err
	}
	return outcome, nil
}

// extractHTML mirrors the teacher's WebParserClient.parseHTML: prefer
// <article> or <main>, fall back to <body>, and drop chrome elements.
func extractHTML(html string) (title, text string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", ""
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("script, style, nav, aside, footer, header, iframe, noscript").Remove()

	var sel *goquery.Selection
	if article := doc.Find("article").First(); article.Length() > 0 {
		sel = article
	} else if main := doc.Find("main").First(); main.Length() > 0 {
		sel = main
	} else {
		sel = doc.Find("body")
	}

	return title, strings.TrimSpace(extractBlockText(sel))
}

// extractBlockText walks sel recursively, inserting paragraph breaks after
// block-level elements, same structure-preserving strategy as the
// teacher's extractText.
func extractBlockText(sel *goquery.Selection) string {
	var sb strings.Builder
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "#text":
			if t := strings.TrimSpace(s.Text()); t != "" {
				sb.WriteString(t)
				sb.WriteString(" ")
			}
		case "br":
			sb.WriteString("\n")
		case "p", "div", "h1", "h2", "h3", "h4", "h5", "h6", "li", "blockquote":
			if inner := strings.TrimSpace(extractBlockText(s)); inner != "" {
				sb.WriteString(inner)
				sb.WriteString("\n\n")
			}
		default:
			sb.WriteString(extractBlockText(s))
		}
	})
	return sb.String()
}
