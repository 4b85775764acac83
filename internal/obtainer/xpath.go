package obtainer

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/antchfx/htmlquery"

	"github.com/linkwatch/linkwatch/internal/config"
	"github.com/linkwatch/linkwatch/internal/types"
)

// XPathObtainer shares the StaticObtainer's no-browser GET step but
// extracts links with an XPath query instead of a CSS selector.
// Grounded on github.com/antchfx/htmlquery, which is present in the
// teacher's go.mod but never exercised by its fetcher/parser packages
// — this is the component that finally wires it up.
type XPathObtainer struct {
	http        *httpStep
	maxDuration time.Duration
}

func NewXPathObtainer(cfg *config.Config) *XPathObtainer {
	return &XPathObtainer{http: newHTTPStep(cfg), maxDuration: cfg.Crawl.MaxDuration}
}

func (o *XPathObtainer) Name() string { return "xpath" }

func (o *XPathObtainer) Obtain(ctx context.Context, url, parent, userAgent string) (*types.FetchResult, error) {
	hr, err := o.http.get(ctx, url, userAgent)
	if err != nil {
		return nil, &types.ObtainError{URL: url, Err: err}
	}

	result := baseResult(url, parent, hr, o.maxDuration)

	if strings.Contains(hr.contentType, "text/html") {
		doc, err := htmlquery.Parse(bytes.NewReader(hr.body))
		if err == nil {
			nodes, err := htmlquery.QueryAll(doc, "//a/@href")
			if err == nil {
				var links []string
				for _, n := range nodes {
					href := htmlquery.InnerText(n)
					if href == "" {
						continue
					}
					if resolved, ok := resolveLink(url, href); ok {
						links = append(links, resolved)
					}
				}
				result.Links = dedupLinks(links)
			}
		}
	}

	return result, nil
}
