// Package relay serves remote signature images from the desk's own origin.
// Absolute locators arrive as ?url=, storage-relative ones as ?path=.
package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/soocke/sigdesk-go/server/problem"
)

// DefaultMaxBytes caps relayed bodies.
const DefaultMaxBytes = 10 << 20

const maxRedirects = 5

var (
	// ErrHostNotAllowed is returned for absolute locators outside the allow-list.
	ErrHostNotAllowed = errors.New("relay: host not allowed")
	// ErrBadLocator is returned for missing, ambiguous or escaping locators.
	ErrBadLocator = errors.New("relay: bad locator")
)

// Options configures a Handler.
type Options struct {
	// BaseURL resolves ?path= locators. Its host is always allowed.
	BaseURL string
	// AllowedHosts lists extra hosts accepted for ?url= locators.
	AllowedHosts []string
	MaxBytes     int64
	Client       *http.Client
	Logger       *slog.Logger
}

// Handler relays GET requests for images.
type Handler struct {
	base     *url.URL
	allowed  map[string]bool
	maxBytes int64
	client   *http.Client
	log      *slog.Logger
}

// New validates opts and returns a Handler.
func New(opts Options) (*Handler, error) {
	h := &Handler{
		allowed:  make(map[string]bool),
		maxBytes: opts.MaxBytes,
		client:   opts.Client,
		log:      opts.Logger,
	}
	if h.maxBytes <= 0 {
		h.maxBytes = DefaultMaxBytes
	}
	if h.client == nil {
		h.client = &http.Client{Timeout: 20 * time.Second}
	}
	// copy so a shared client keeps its own redirect policy
	c := *h.client
	c.CheckRedirect = h.checkRedirect
	h.client = &c
	if opts.BaseURL != "" {
		u, err := url.Parse(opts.BaseURL)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("relay: bad base url %q", opts.BaseURL)
		}
		h.base = u
		h.allowed[strings.ToLower(u.Host)] = true
	}
	for _, host := range opts.AllowedHosts {
		if host = strings.ToLower(strings.TrimSpace(host)); host != "" {
			h.allowed[host] = true
		}
	}
	return h, nil
}

// Target resolves the query of a relay request to the upstream URL.
func (h *Handler) Target(q url.Values) (*url.URL, error) {
	rawURL, rawPath := q.Get("url"), q.Get("path")
	switch {
	case rawURL != "" && rawPath != "":
		return nil, fmt.Errorf("%w: both url and path given", ErrBadLocator)
	case rawURL != "":
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadLocator, rawURL)
		}
		if err := h.permitted(u); err != nil {
			return nil, err
		}
		return u, nil
	case rawPath != "":
		if h.base == nil {
			return nil, fmt.Errorf("%w: no storage base configured", ErrBadLocator)
		}
		clean := path.Clean("/" + rawPath)
		if strings.Contains(rawPath, "..") || clean == "/" {
			return nil, fmt.Errorf("%w: %q", ErrBadLocator, rawPath)
		}
		u := *h.base
		u.Path = strings.TrimSuffix(h.base.Path, "/") + clean
		u.RawQuery = ""
		return &u, nil
	default:
		return nil, fmt.Errorf("%w: url or path required", ErrBadLocator)
	}
}

// permitted accepts absolute http(s) URLs on an allowed host.
func (h *Handler) permitted(u *url.URL) error {
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrBadLocator, u.String())
	}
	if !h.allowed[strings.ToLower(u.Host)] {
		return fmt.Errorf("%w: %s", ErrHostNotAllowed, u.Host)
	}
	return nil
}

// checkRedirect applies the allow-list to every redirect hop.
func (h *Handler) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("relay: stopped after %d redirects", maxRedirects)
	}
	if err := h.permitted(req.URL); err != nil {
		return fmt.Errorf("redirect: %w", err)
	}
	return nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		problem.MethodNotAllowed(w, r)
		return
	}
	target, err := h.Target(r.URL.Query())
	if err != nil {
		if errors.Is(err, ErrHostNotAllowed) {
			problem.Forbidden(w, r, err.Error())
			return
		}
		problem.BadRequest(w, r, err.Error())
		return
	}
	data, ctype, status, err := h.fetch(r.Context(), target)
	if err != nil {
		if h.log != nil {
			h.log.Warn("relay.fetch", "target", target.String(), "status", status, "error", err)
		}
		if status == http.StatusNotFound {
			problem.NotFound(w, r, "signature image not found")
			return
		}
		if errors.Is(err, ErrHostNotAllowed) {
			problem.Forbidden(w, r, err.Error())
			return
		}
		problem.BadGateway(w, r, err.Error())
		return
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(data)
	}
}

func (h *Handler) fetch(ctx context.Context, target *url.URL) ([]byte, string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, "", 0, err
	}
	req.Header.Set("Accept", "image/*")
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, "", 0, fmt.Errorf("upstream: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", resp.StatusCode, fmt.Errorf("upstream status %d", resp.StatusCode)
	}
	ctype := resp.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(ctype)
	if !strings.HasPrefix(mediaType, "image/") {
		return nil, "", resp.StatusCode, fmt.Errorf("upstream content type %q is not an image", ctype)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBytes+1))
	if err != nil {
		return nil, "", resp.StatusCode, fmt.Errorf("upstream read: %w", err)
	}
	if int64(len(data)) > h.maxBytes {
		return nil, "", resp.StatusCode, fmt.Errorf("upstream body exceeds %d bytes", h.maxBytes)
	}
	return data, mediaType, resp.StatusCode, nil
}
