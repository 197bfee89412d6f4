package translation

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yegors/co-translate/pkg/logger"
)

type endpoint struct {
	srv   *httptest.Server
	hits  atomic.Int32
	query atomic.Value
}

func newEndpoint(t *testing.T, status int, body string) *endpoint {
	t.Helper()
	e := &endpoint{}
	e.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.hits.Add(1)
		e.query.Store(r.URL.Query())
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(e.srv.Close)
	return e
}

func newTestFallback(endpoint string) *Fallback {
	return NewFallback(FallbackConfig{
		Endpoint: endpoint,
		ClientID: "gtx",
		Timeout:  2 * time.Second,
	}, DefaultPhrasebook(), logger.NewNop())
}

func TestFallbackPhrasebookSkipsHTTP(t *testing.T) {
	e := newEndpoint(t, http.StatusOK, `[[["x","y"]]]`)
	f := newTestFallback(e.srv.URL)

	for _, src := range []string{"en", "", "de"} {
		if got := f.Translate(context.Background(), "hello", src, "hi"); got != "नमस्ते" {
			t.Fatalf("Translate(hello, %q, hi) = %q", src, got)
		}
	}
	if got := f.Translate(context.Background(), "Thank You", "en", "fr"); got != "merci" {
		t.Fatalf("Translate(Thank You) = %q", got)
	}
	if n := e.hits.Load(); n != 0 {
		t.Fatalf("endpoint hit %d times, want 0", n)
	}
}

func TestFallbackHTTPConcatenatesSegments(t *testing.T) {
	e := newEndpoint(t, http.StatusOK, `[[["Hola ","Hello ",null,null,1],["mundo","world",null,null,1]],null,"en"]`)
	f := newTestFallback(e.srv.URL)

	got := f.Translate(context.Background(), "Hello world", "en", "es")
	if got != "Hola mundo" {
		t.Fatalf("Translate = %q", got)
	}

	q := e.query.Load().(url.Values)
	want := map[string]string{"client": "gtx", "sl": "en", "tl": "es", "dt": "t", "q": "Hello world"}
	for k, v := range want {
		if q.Get(k) != v {
			t.Errorf("query %s = %q, want %q", k, q.Get(k), v)
		}
	}
}

func TestFallbackHTTPFailureReturnsMessage(t *testing.T) {
	e := newEndpoint(t, http.StatusTooManyRequests, "slow down")
	f := newTestFallback(e.srv.URL)

	got := f.Translate(context.Background(), "where is the station", "en", "hi")
	if got != UnavailableMessage("where is the station") {
		t.Fatalf("Translate = %q", got)
	}
	if !strings.Contains(got, "where is the station") {
		t.Fatalf("message does not name the text: %q", got)
	}
}

func TestFallbackUnreachable(t *testing.T) {
	e := newEndpoint(t, http.StatusOK, "")
	addr := e.srv.URL
	e.srv.Close()

	f := newTestFallback(addr)
	if got := f.Translate(context.Background(), "good night", "en", "fr"); got != UnavailableMessage("good night") {
		t.Fatalf("Translate = %q", got)
	}
}

func TestFallbackUnexpectedShapes(t *testing.T) {
	for _, body := range []string{`{}`, `[]`, `[null]`, `[[]]`, `[[[1,2]]]`, `not json`} {
		e := newEndpoint(t, http.StatusOK, body)
		f := newTestFallback(e.srv.URL)
		if got := f.Translate(context.Background(), "see you", "en", "de"); got != UnavailableMessage("see you") {
			t.Errorf("body %s: Translate = %q", body, got)
		}
	}
}

func TestPhrasebookIsCopied(t *testing.T) {
	src := map[string]map[string]string{"hi there": {"es": "hola"}}
	pb := NewPhrasebook(src)
	src["hi there"]["es"] = "changed"

	if got, ok := pb.Lookup("HI THERE", "ES"); !ok || got != "hola" {
		t.Fatalf("Lookup = %q, %v", got, ok)
	}
	if _, ok := pb.Lookup("hello", "ja"); ok {
		t.Fatal("unexpected hit for missing language")
	}
	if DefaultPhrasebook().Len() != 6 {
		t.Fatalf("default phrasebook has %d phrases", DefaultPhrasebook().Len())
	}
}
