package obtainer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/linkwatch/linkwatch/internal/config"
	"github.com/linkwatch/linkwatch/internal/types"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Obtainer.HTTPTimeout = 5 * time.Second
	cfg.Obtainer.MaxBodySize = 1 << 20
	cfg.Crawl.MaxDuration = 10 * time.Second
	return cfg
}

func TestStaticObtainerExtractsAndResolvesLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>
			<a href="http://example.test/a">a</a>
			<a href="/relative">relative</a>
			<a href="another.html">relative-no-slash</a>
			<a href="http://example.test/a">dup</a>
		</body></html>`))
	}))
	defer srv.Close()

	o := NewStaticObtainer(testConfig())
	result, err := o.Obtain(context.Background(), srv.URL, "", "test-agent")
	if err != nil {
		t.Fatalf("Obtain: %v", err)
	}
	if result.ResponseCode != types.CodeSuccess {
		t.Fatalf("ResponseCode = %d, want 200", result.ResponseCode)
	}
	want := []string{
		"http://example.test/a",
		srv.URL + "/relative",
		srv.URL + "/another.html",
	}
	if len(result.Links) != len(want) {
		t.Fatalf("Links = %v, want %v", result.Links, want)
	}
	for i, l := range want {
		if result.Links[i] != l {
			t.Fatalf("Links[%d] = %q, want %q", i, result.Links[i], l)
		}
	}
}

func TestStaticObtainerMissingContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// An explicit empty Content-Type header (rather than an absent
		// one) is the only way to stop net/http from sniffing and
		// setting one itself before the body is written.
		w.Header().Set("Content-Type", "")
		w.Write([]byte("no type"))
	}))
	defer srv.Close()

	o := NewStaticObtainer(testConfig())
	result, err := o.Obtain(context.Background(), srv.URL, "", "test-agent")
	if err != nil {
		t.Fatalf("Obtain: %v", err)
	}
	if result.ResponseCode != types.CodeNoContentType {
		t.Fatalf("ResponseCode = %d, want %d", result.ResponseCode, types.CodeNoContentType)
	}
}

func TestStaticObtainerTooSlowAndNoContentTypePrefersNoContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(30 * time.Millisecond)
		w.Header().Set("Content-Type", "")
		w.Write([]byte("no type, too slow"))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Crawl.MaxDuration = 10 * time.Millisecond

	o := NewStaticObtainer(cfg)
	result, err := o.Obtain(context.Background(), srv.URL, "", "test-agent")
	if err != nil {
		t.Fatalf("Obtain: %v", err)
	}
	if result.ResponseCode != types.CodeNoContentType {
		t.Fatalf("ResponseCode = %d, want %d (no-content-type must win over too-slow)", result.ResponseCode, types.CodeNoContentType)
	}
}

func TestStaticObtainerTooSlow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(30 * time.Millisecond)
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Crawl.MaxDuration = 10 * time.Millisecond

	o := NewStaticObtainer(cfg)
	result, err := o.Obtain(context.Background(), srv.URL, "", "test-agent")
	if err != nil {
		t.Fatalf("Obtain: %v", err)
	}
	if result.ResponseCode != types.CodeTooSlow {
		t.Fatalf("ResponseCode = %d, want %d", result.ResponseCode, types.CodeTooSlow)
	}
}
