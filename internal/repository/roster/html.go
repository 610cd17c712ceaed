package roster

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kailas-cloud/dietwatch/internal/domain"
	"github.com/kailas-cloud/dietwatch/internal/domain/legislator"
)

const maxHTMLBytes = 10 << 20

// HTMLLoader scrapes the roster from a web page table.
type HTMLLoader struct {
	url       string
	encoding  string
	userAgent string
	client    *http.Client
}

// NewHTMLLoader creates a loader for the page at url.
func NewHTMLLoader(url, encoding, userAgent string, timeout time.Duration) *HTMLLoader {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTMLLoader{
		url:       url,
		encoding:  encoding,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

// Load fetches the page and parses its first roster table.
func (l *HTMLLoader) Load(ctx context.Context) ([]legislator.Legislator, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", domain.ErrDataSource, err)
	}
	if l.userAgent != "" {
		req.Header.Set("User-Agent", l.userAgent)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %w", domain.ErrDataSource, l.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetch %s: status %d", domain.ErrDataSource, l.url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxHTMLBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", domain.ErrDataSource, err)
	}
	return ParseHTML(body, l.encoding)
}

// ParseHTML returns the rows of the first <table> whose header row has a name column.
func ParseHTML(data []byte, encoding string) ([]legislator.Legislator, error) {
	text, err := Decode(data, encoding)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %w", domain.ErrDataSource, err)
	}

	var (
		rows  []legislator.Legislator
		found bool
	)
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		trs := table.Find("tr")
		if trs.Length() == 0 {
			return true
		}
		cols, ok := mapHeader(cellTexts(trs.First()))
		if !ok {
			return true
		}
		found = true
		trs.Slice(1, trs.Length()).Each(func(_ int, tr *goquery.Selection) {
			l := cols.row(cellTexts(tr))
			if l.Name != "" {
				rows = append(rows, l)
			}
		})
		return false
	})

	if !found {
		return nil, fmt.Errorf("%w: no roster table with a name column", domain.ErrDataSource)
	}
	return rows, nil
}

func cellTexts(tr *goquery.Selection) []string {
	cells := tr.Find("th, td")
	out := make([]string, 0, cells.Length())
	cells.Each(func(_ int, c *goquery.Selection) {
		out = append(out, strings.TrimSpace(c.Text()))
	})
	return out
}
