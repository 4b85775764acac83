// Package obtainer implements the pluggable fetch-and-extract step
// (component C1): given a URL, a parent, and a user agent, produce a
// FetchResult carrying response metadata and the page's outbound
// links. Three implementations share one HTTP-GET step and differ
// only in how (or whether) they render the page to discover links.
package obtainer

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/linkwatch/linkwatch/internal/config"
	"github.com/linkwatch/linkwatch/internal/types"
)

// Obtainer turns a URL into a FetchResult. Implementations must be
// safe to run in an isolated process — no shared state with the
// caller is assumed or required.
type Obtainer interface {
	Obtain(ctx context.Context, url, parent, userAgent string) (*types.FetchResult, error)
	Name() string
}

// New constructs the Obtainer selected by cfg.Obtainer.Type.
func New(cfg *config.Config) (Obtainer, error) {
	switch cfg.Obtainer.Type {
	case "browser", "":
		return NewBrowserObtainer(cfg), nil
	case "static":
		return NewStaticObtainer(cfg), nil
	case "xpath":
		return NewXPathObtainer(cfg), nil
	default:
		return nil, fmt.Errorf("unknown obtainer type %q", cfg.Obtainer.Type)
	}
}

// absoluteURLPattern matches a fully-qualified http(s) URL — the Go
// translation of the original pyppeteer obtainer's is_url_regex used
// to filter <a href> targets down to absolute, followable links.
var absoluteURLPattern = regexp.MustCompile(`^https?://[^\s"'<>]+$`)

// isAbsoluteURL reports whether s looks like an absolute http(s) URL.
func isAbsoluteURL(s string) bool {
	return absoluteURLPattern.MatchString(s)
}

// resolveLink resolves an <a href> target against the page it was
// found on, the way original_source/obtainers/beautiful-soup.py
// resolves a leading "/" href against self.start_url before keeping
// it. Anchors are already absolute in most go-rod network-intercepted
// cases but the static/xpath parsers see raw HTML, where the large
// majority of real-site navigation is relative.
func resolveLink(pageURL, href string) (string, bool) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref).String()
	if !isAbsoluteURL(resolved) {
		return "", false
	}
	return resolved, true
}

// httpStep is the GET performed by every obtainer before any
// HTML-specific handling: plain request, TLS verification optionally
// disabled, brotli/gzip/deflate decompression, capped body size.
// Ported from the teacher's fetcher/http.go Fetch/decompressReader.
type httpStep struct {
	client      *http.Client
	maxBodySize int64
}

func newHTTPStep(cfg *config.Config) *httpStep {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.Obtainer.TLSInsecure,
		},
		DisableCompression: true, // decompression is handled explicitly below, brotli included
	}
	return &httpStep{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Obtainer.HTTPTimeout,
		},
		maxBodySize: cfg.Obtainer.MaxBodySize,
	}
}

// httpResult is the raw outcome of the GET step, before any
// obtainer-specific sentinel mapping is applied.
type httpResult struct {
	statusCode  int
	reason      string
	contentType string
	body        []byte
	duration    time.Duration
}

func (h *httpStep) get(ctx context.Context, targetURL, userAgent string) (*httpResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	start := time.Now()
	resp, err := h.client.Do(req)
	duration := time.Since(start)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if h.maxBodySize > 0 {
		reader = io.LimitReader(reader, h.maxBodySize)
	}
	reader, err = decompressReader(resp, reader)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &httpResult{
		statusCode:  resp.StatusCode,
		reason:      resp.Status,
		contentType: resp.Header.Get("Content-Type"),
		body:        body,
		duration:    duration,
	}, nil
}

func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}

// baseResult builds the FetchResult shared shape from an httpResult,
// applying the content-type and slow-response sentinels that every
// obtainer shares regardless of whether it renders the page.
func baseResult(url, parent string, hr *httpResult, maxDuration time.Duration) *types.FetchResult {
	r := &types.FetchResult{
		URL:                 url,
		ParentURL:           parent,
		Duration:            hr.duration,
		ResponseCode:        hr.statusCode,
		ResponseReason:      hr.reason,
		ResponseSize:        int64(len(hr.body)),
		ResponseContentType: hr.contentType,
		Links:               []string{},
	}
	// Order matters: slow-response first, then missing-content-type,
	// so a response that is both slow and typeless reports 904 — the
	// later check wins, matching the original obtainer's check order.
	if maxDuration > 0 && hr.duration > maxDuration {
		r.ResponseCode = types.CodeTooSlow
		r.ResponseReason = types.ReasonTooSlow
	}
	if r.ResponseContentType == "" {
		r.ResponseContentType = types.ContentTypeUnknown
		r.ResponseCode = types.CodeNoContentType
		r.ResponseReason = types.ReasonNoContentType
	}
	return r
}

// dedupLinks flattens a set of discovered links into the deterministic
// slice order FetchResult.Links requires: insertion order, first
// occurrence wins.
func dedupLinks(links []string) []string {
	seen := make(map[string]struct{}, len(links))
	out := make([]string, 0, len(links))
	for _, l := range links {
		if !isAbsoluteURL(l) {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}
