package obtainer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/linkwatch/linkwatch/internal/types"
)

func TestXPathObtainerExtractsAndResolvesLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>
			<a href="http://example.test/a">a</a>
			<a href="/relative">relative</a>
		</body></html>`))
	}))
	defer srv.Close()

	o := NewXPathObtainer(testConfig())
	result, err := o.Obtain(context.Background(), srv.URL, "", "test-agent")
	if err != nil {
		t.Fatalf("Obtain: %v", err)
	}
	if result.ResponseCode != types.CodeSuccess {
		t.Fatalf("ResponseCode = %d, want 200", result.ResponseCode)
	}
	want := []string{"http://example.test/a", srv.URL + "/relative"}
	if len(result.Links) != len(want) {
		t.Fatalf("Links = %v, want %v", result.Links, want)
	}
	for i, l := range want {
		if result.Links[i] != l {
			t.Fatalf("Links[%d] = %q, want %q", i, result.Links[i], l)
		}
	}
}
