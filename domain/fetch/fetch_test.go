package fetch

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/soocke/sigdesk-go/domain/raster"
	"github.com/soocke/sigdesk-go/domain/transparency"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 30, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 30; x++ {
			img.SetNRGBA(x, y, color.NRGBA{255, 255, 255, 255})
		}
	}
	img.SetNRGBA(15, 10, color.NRGBA{0, 0, 150, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recordingNotifier) Notify(msg string) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func TestNormalize_JoinsBase(t *testing.T) {
	got := Normalize("uploads/ttd/sig1.png", "https://cdn.example/")
	if got != "https://cdn.example/uploads/ttd/sig1.png" {
		t.Fatalf("unexpected normalized locator %q", got)
	}
	got = Normalize("/uploads/a.png", "https://cdn.example//")
	if got != "https://cdn.example/uploads/a.png" {
		t.Fatalf("duplicate separators not stripped: %q", got)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	base := "https://cdn.example/"
	for _, loc := range []string{
		"uploads/ttd/sig1.png",
		"https://other.example/x.png",
		"data:image/png;base64,AAAA",
		"relative/only.png",
		"",
	} {
		once := Normalize(loc, base)
		if twice := Normalize(once, base); twice != once {
			t.Fatalf("normalize not idempotent for %q: %q vs %q", loc, once, twice)
		}
		if IsAbsolute(loc) || IsInline(loc) {
			if once != loc {
				t.Fatalf("absolute/inline locator changed: %q -> %q", loc, once)
			}
		}
	}
	if got := Normalize("relative/only.png", ""); got != "relative/only.png" {
		t.Fatalf("empty base should keep relative locator, got %q", got)
	}
}

func TestDedupe(t *testing.T) {
	got := Dedupe("a.png", []string{"a.png", "b.png", "a.png", "https://cdn.example/b.png"}, "https://cdn.example/")
	want := []string{"https://cdn.example/a.png", "https://cdn.example/b.png"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
	if got := Dedupe("", nil, ""); len(got) != 0 {
		t.Fatalf("expected empty set, got %v", got)
	}
}

func TestRelayRequestURL(t *testing.T) {
	f, _ := New(Options{RelayURL: "http://desk.local/relay?v=1"})
	u, _ := f.RelayRequestURL("uploads/a b.png")
	if u != "http://desk.local/relay?path=uploads%2Fa+b.png&v=1" {
		t.Fatalf("unexpected path relay url %q", u)
	}
	u, _ = f.RelayRequestURL("https://cdn.example/a.png")
	if u != "http://desk.local/relay?url=https%3A%2F%2Fcdn.example%2Fa.png&v=1" {
		t.Fatalf("unexpected url relay url %q", u)
	}
}

func TestFetch_SendsBearerAndReturnsImage(t *testing.T) {
	img := pngBytes(t)
	var gotAuth, gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotURL = r.URL.Query().Get("url")
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(img)
	}))
	defer srv.Close()

	f, err := New(Options{RelayURL: srv.URL, BaseURL: "https://cdn.example/", Token: "tok"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res := f.Fetch(context.Background(), "uploads/ttd/sig1.png")
	if res.Fallback {
		t.Fatalf("unexpected fallback")
	}
	if gotAuth != "Bearer tok" {
		t.Fatalf("authorization header %q", gotAuth)
	}
	if gotURL != "https://cdn.example/uploads/ttd/sig1.png" {
		t.Fatalf("relayed url %q", gotURL)
	}
	data, _, err := raster.DecodeDataURL(res.Data)
	if err != nil || !bytes.Equal(data, img) {
		t.Fatalf("payload mismatch: %v", err)
	}
}

func TestFetch_FailuresYieldPlaceholder(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"404": func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) },
		"html": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html></html>"))
		},
		"corrupt": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte("not a png"))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()
			n := &recordingNotifier{}
			f, _ := New(Options{RelayURL: srv.URL, Notifier: n})
			res := f.Fetch(context.Background(), "uploads/x.png")
			if !res.Fallback || res.Data != Placeholder() {
				t.Fatalf("expected placeholder, got fallback=%v", res.Fallback)
			}
			if n.count() != 1 {
				t.Fatalf("expected one notification, got %d", n.count())
			}
		})
	}
}

func TestFetch_NetworkErrorYieldsPlaceholder(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	f, _ := New(Options{RelayURL: url, Notifier: &recordingNotifier{}})
	if res := f.Fetch(context.Background(), "https://cdn.example/a.png"); !res.Fallback {
		t.Fatalf("expected placeholder on network error")
	}
}

func TestFetch_InlinePassesThrough(t *testing.T) {
	f, _ := New(Options{RelayURL: "http://127.0.0.1:1/relay"})
	in := raster.EncodeDataURL(pngBytes(t))
	if res := f.Fetch(context.Background(), in); res.Fallback || res.Data != in {
		t.Fatalf("inline locator should pass through")
	}
}

func TestProcessed_CachesSuccessOnly(t *testing.T) {
	img := pngBytes(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("path") == "missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(img)
	}))
	defer srv.Close()

	f, _ := New(Options{RelayURL: srv.URL, CacheSize: 8, Notifier: &recordingNotifier{}})
	s := transparency.DefaultSettings()
	first := f.Processed(context.Background(), "ok.png", s, true)
	second := f.Processed(context.Background(), "ok.png", s, true)
	if first.Fallback || first.Data != second.Data {
		t.Fatalf("expected identical cached result")
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one relay hit, got %d", hits.Load())
	}
	f.Processed(context.Background(), "missing.png", s, true)
	f.Processed(context.Background(), "missing.png", s, true)
	if hits.Load() != 3 {
		t.Fatalf("placeholders must not be cached, hits=%d", hits.Load())
	}
	if f.CacheLen() != 1 {
		t.Fatalf("expected one cached entry, got %d", f.CacheLen())
	}
	data, _, _ := raster.DecodeDataURL(first.Data)
	out, err := raster.Decode(data)
	if err != nil {
		t.Fatalf("processed output not decodable: %v", err)
	}
	if out.Bounds().Dx() != 21 || out.Bounds().Dy() != 20 {
		t.Fatalf("expected auto-cropped 21x20, got %v", out.Bounds())
	}
}
