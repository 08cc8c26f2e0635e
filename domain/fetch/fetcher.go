package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/soocke/sigdesk-go/assets"
	"github.com/soocke/sigdesk-go/domain/raster"
	"github.com/soocke/sigdesk-go/domain/transparency"
)

// DefaultMaxBytes caps a single relayed image.
const DefaultMaxBytes = 10 << 20

// Error describes why a locator could not be turned into an image.
type Error struct {
	Locator string
	Status  int // HTTP status when the relay answered, 0 otherwise
	Err     error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.Locator, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Locator, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var (
	errNotImage = errors.New("content type is not an image")
	errEmpty    = errors.New("empty body")
)

// Result is a resolved signature image.
type Result struct {
	Locator  string // normalized locator
	Data     string // inline PNG (or inline source) data URL
	Fallback bool   // Data is the placeholder
}

// Options configures a Fetcher.
type Options struct {
	RelayURL  string
	BaseURL   string
	Token     string
	MaxBytes  int64
	CacheSize int
	Client    *http.Client
	Notifier  Notifier
	Logger    *slog.Logger
}

// Fetcher retrieves signatures through the same-origin relay. None of its
// public methods return errors: failures resolve to the placeholder.
type Fetcher struct {
	relayURL string
	baseURL  string
	token    string
	maxBytes int64
	client   *http.Client
	cache    *lru.Cache[string, string]
	notifier Notifier
	log      *slog.Logger
}

// New returns a Fetcher. A CacheSize <= 0 disables the processed-image cache.
func New(opts Options) (*Fetcher, error) {
	f := &Fetcher{
		relayURL: opts.RelayURL,
		baseURL:  opts.BaseURL,
		token:    opts.Token,
		maxBytes: opts.MaxBytes,
		client:   opts.Client,
		notifier: opts.Notifier,
		log:      opts.Logger,
	}
	if f.maxBytes <= 0 {
		f.maxBytes = DefaultMaxBytes
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: 30 * time.Second}
	}
	if f.notifier == nil {
		f.notifier = LogNotifier{Log: opts.Logger}
	}
	if opts.CacheSize > 0 {
		c, err := lru.New[string, string](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("fetch cache: %w", err)
		}
		f.cache = c
	}
	return f, nil
}

// BaseURL returns the storage base used for normalization.
func (f *Fetcher) BaseURL() string { return f.baseURL }

// Normalize resolves locator against the configured base URL.
func (f *Fetcher) Normalize(locator string) string { return Normalize(locator, f.baseURL) }

// RelayRequestURL builds the relay address for a normalized locator. Absolute
// targets go in ?url=, storage-relative ones in ?path=.
func (f *Fetcher) RelayRequestURL(normalized string) (string, error) {
	u, err := url.Parse(f.relayURL)
	if err != nil {
		return "", fmt.Errorf("relay url: %w", err)
	}
	q := u.Query()
	if IsAbsolute(normalized) {
		q.Set("url", normalized)
	} else {
		q.Set("path", normalized)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Raw fetches the bytes behind a locator. Inline locators are decoded locally.
func (f *Fetcher) Raw(ctx context.Context, locator string) ([]byte, error) {
	norm := f.Normalize(locator)
	if norm == "" {
		return nil, &Error{Locator: locator, Err: errEmpty}
	}
	if IsInline(norm) {
		data, _, err := raster.DecodeDataURL(norm)
		if err != nil {
			return nil, &Error{Locator: "inline", Err: err}
		}
		return data, nil
	}
	target, err := f.RelayRequestURL(norm)
	if err != nil {
		return nil, &Error{Locator: norm, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &Error{Locator: norm, Err: err}
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	req.Header.Set("Accept", "image/*")
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{Locator: norm, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &Error{Locator: norm, Status: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}
	mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mt, "image/") {
		return nil, &Error{Locator: norm, Status: resp.StatusCode, Err: errNotImage}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, &Error{Locator: norm, Err: err}
	}
	if int64(len(data)) > f.maxBytes {
		return nil, &Error{Locator: norm, Err: fmt.Errorf("image exceeds %d bytes", f.maxBytes)}
	}
	if len(data) == 0 {
		return nil, &Error{Locator: norm, Err: errEmpty}
	}
	return data, nil
}

// Fetch resolves locator into a ready-to-filter inline image. Any failure yields
// the placeholder and a notification.
func (f *Fetcher) Fetch(ctx context.Context, locator string) Result {
	norm := f.Normalize(locator)
	if IsInline(norm) {
		return Result{Locator: norm, Data: norm}
	}
	data, err := f.Raw(ctx, norm)
	if err == nil {
		if _, derr := raster.Decode(data); derr != nil {
			err = &Error{Locator: norm, Err: derr}
		}
	}
	if err != nil {
		return f.fallback(norm, err)
	}
	mt := http.DetectContentType(data)
	return Result{Locator: norm, Data: raster.EncodeDataURLType(mt, data)}
}

// Processed fetches locator then filters and optionally auto-crops it, in that
// order. Successful results are cached per locator and settings.
func (f *Fetcher) Processed(ctx context.Context, locator string, s transparency.Settings, autoCrop bool) Result {
	norm := f.Normalize(locator)
	key := cacheKey(norm, s, autoCrop)
	if f.cache != nil {
		if v, ok := f.cache.Get(key); ok {
			return Result{Locator: norm, Data: v}
		}
	}
	res := f.Fetch(ctx, norm)
	if res.Fallback {
		return res
	}
	data, _, err := raster.DecodeDataURL(res.Data)
	if err == nil {
		data, err = transparency.Process(data, s, autoCrop)
	}
	if err != nil {
		return f.fallback(norm, err)
	}
	res.Data = raster.EncodeDataURL(data)
	if f.cache != nil {
		f.cache.Add(key, res.Data)
	}
	return res
}

// Purge drops every cached signature.
func (f *Fetcher) Purge() {
	if f.cache != nil {
		f.cache.Purge()
	}
}

// CacheLen reports the number of cached signatures.
func (f *Fetcher) CacheLen() int {
	if f.cache == nil {
		return 0
	}
	return f.cache.Len()
}

func (f *Fetcher) fallback(locator string, err error) Result {
	if f.log != nil {
		f.log.Warn("signature.fetch", "locator", locator, "error", err)
	}
	f.notifier.Notify("Signature could not be loaded; showing placeholder")
	return Result{Locator: locator, Data: Placeholder(), Fallback: true}
}

func cacheKey(locator string, s transparency.Settings, autoCrop bool) string {
	return fmt.Sprintf("%s|%d|%d|%t|%t", locator, s.White, s.Black, s.Advanced, autoCrop)
}

// Placeholder returns the fixed fallback image as a data URL.
func Placeholder() string {
	return raster.EncodeDataURL(assets.SignaturePlaceholderPNG)
}
