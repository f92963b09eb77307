package reader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/unidoc/unipdf/v3/extractor"
	pdfmodel "github.com/unidoc/unipdf/v3/model"
)

// PDFExtractor reads a PDF URL and extracts its text page by page, the
// file-format branch the original agent's FileReader handled alongside
// HTML, generalized here as a Reader Strategy of its own.
type PDFExtractor struct {
	httpClient *http.Client
	maxBodyMB  int
}

// NewPDFExtractor builds a PDFExtractor with a download timeout and size
// cap.
func NewPDFExtractor(timeout time.Duration, maxBodyMB int) *PDFExtractor {
	if maxBodyMB <= 0 {
		maxBodyMB = 25
	}
	return &PDFExtractor{httpClient: &http.Client{Timeout: timeout}, maxBodyMB: maxBodyMB}
}

// Read downloads and extracts text from a PDF at url.
func (p *PDFExtractor) Read(ctx context.Context, url string) (ReadOutcome, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ReadOutcome{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return ReadOutcome{}, fmt.Errorf("fetch pdf: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ReadOutcome{}, fmt.Errorf("HTTP %d fetching pdf", resp.StatusCode)
	}

	maxBytes := int64(p.maxBodyMB) * 1024 * 1024
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return ReadOutcome{}, fmt.Errorf("read pdf body: %w", err)
	}

	text, title, err := extractPDFText(body)
	if err != nil {
		return ReadOutcome{}, fmt.Errorf("extract pdf text: %w", err)
	}

	return ReadOutcome{
		Title:      title,
		Text:       text,
		URL:        url,
		WordCount:  len(strings.Fields(text)),
		Source:     SourceLocal,
		ReadTimeMs: time.Since(start).Milliseconds(),
	}, nil
}

func extractPDFText(body []byte) (text, title string, err error) {
	reader, err := pdfmodel.NewPdfReader(bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("open pdf: %w", err)
	}

	if info, infoErr := reader.GetPdfInfo(); infoErr == nil && info != nil && info.Title != nil {
		title = info.Title.String()
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return "", "", fmt.Errorf("get page count: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := reader.GetPage(i)
		if err != nil {
			continue
		}
		ex, err := extractor.New(page)
		if err != nil {
			continue
		}
		pageText, err := ex.ExtractText()
		if err != nil {
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n\n")
	}

	return strings.TrimSpace(sb.String()), title, nil
}
