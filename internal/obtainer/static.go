package obtainer

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/linkwatch/linkwatch/internal/config"
	"github.com/linkwatch/linkwatch/internal/types"
)

// StaticObtainer fetches a page and extracts anchor targets from the
// static HTML with goquery — no browser, no subresource interception,
// so its Links set only ever contains <a href> targets. Grounded on
// original_source/obtainers/beautiful-soup.py and the teacher's
// goquery-backed Response.Document().
type StaticObtainer struct {
	http        *httpStep
	maxDuration time.Duration
}

func NewStaticObtainer(cfg *config.Config) *StaticObtainer {
	return &StaticObtainer{http: newHTTPStep(cfg), maxDuration: cfg.Crawl.MaxDuration}
}

func (o *StaticObtainer) Name() string { return "static" }

func (o *StaticObtainer) Obtain(ctx context.Context, url, parent, userAgent string) (*types.FetchResult, error) {
	hr, err := o.http.get(ctx, url, userAgent)
	if err != nil {
		return nil, &types.ObtainError{URL: url, Err: err}
	}

	result := baseResult(url, parent, hr, o.maxDuration)

	if strings.Contains(hr.contentType, "text/html") {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(hr.body))
		if err == nil {
			var links []string
			doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
				if href, ok := s.Attr("href"); ok {
					if resolved, ok := resolveLink(url, href); ok {
						links = append(links, resolved)
					}
				}
			})
			result.Links = dedupLinks(links)
		}
	}

	return result, nil
}
