package registry

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soocke/sigdesk-go/server/problem"
)

// LocatorPrefix prefixes every locator the registry hands out.
const LocatorPrefix = "uploads/ttd/"

// DefaultMaxUpload caps multipart uploads.
const DefaultMaxUpload = 5 << 20

var imageExt = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Registry serves the signature API over a MetaStore and a BlobStore.
type Registry struct {
	meta      *MetaStore
	blobs     BlobStore
	log       *slog.Logger
	maxUpload int64
	now       func() time.Time
}

// New returns a Registry. maxUpload <= 0 selects DefaultMaxUpload.
func New(meta *MetaStore, blobs BlobStore, maxUpload int64, logger *slog.Logger) *Registry {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Registry{meta: meta, blobs: blobs, log: logger, maxUpload: maxUpload, now: time.Now}
}

type listResponse struct {
	Primary *string  `json:"ttd_path"`
	History []string `json:"ttd_list"`
}

type mutationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

type deleteRequest struct {
	NPP  string `json:"npp"`
	Path string `json:"path"`
}

// API returns the signature endpoints, relative to the API root.
func (g *Registry) API() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /signatures/{npp}", g.list)
	mux.HandleFunc("POST /signatures", g.upload)
	mux.HandleFunc("DELETE /signatures", g.remove)
	return mux
}

// Files serves GET /uploads/ttd/{key}.
func (g *Registry) Files() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /"+LocatorPrefix+"{key}", g.file)
	return mux
}

func (g *Registry) list(w http.ResponseWriter, r *http.Request) {
	npp := strings.TrimSpace(r.PathValue("npp"))
	recs, err := g.meta.List(r.Context(), npp)
	if err != nil {
		problem.Internal(w, r, g.log, err)
		return
	}
	var resp listResponse
	for _, rec := range recs {
		resp.History = append(resp.History, LocatorPrefix+rec.Key)
	}
	if len(resp.History) > 0 {
		primary := resp.History[0]
		resp.Primary = &primary
	}
	writeJSON(w, http.StatusOK, resp)
}

func (g *Registry) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, g.maxUpload)
	if err := r.ParseMultipartForm(g.maxUpload); err != nil {
		g.fail(w, http.StatusBadRequest, "Invalid upload")
		return
	}
	npp := strings.TrimSpace(r.FormValue("npp"))
	if npp == "" {
		g.fail(w, http.StatusBadRequest, "npp is required")
		return
	}
	f, _, err := r.FormFile("ttd")
	if err != nil {
		g.fail(w, http.StatusBadRequest, "ttd file is required")
		return
	}
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil || len(data) == 0 {
		g.fail(w, http.StatusBadRequest, "ttd file is empty")
		return
	}
	ctype := http.DetectContentType(data)
	ext, ok := imageExt[ctype]
	if !ok {
		g.fail(w, http.StatusUnsupportedMediaType, "ttd must be an image")
		return
	}

	rec := Record{
		ID:          uuid.NewString(),
		NPP:         npp,
		ContentType: ctype,
		Size:        int64(len(data)),
		CreatedAt:   g.now(),
	}
	rec.Key = rec.ID + ext
	if err := g.blobs.Put(r.Context(), rec.Key, data, ctype); err != nil {
		g.log.Error("registry.upload", "npp", npp, "error", err)
		g.fail(w, http.StatusInternalServerError, "Signature could not be stored")
		return
	}
	if err := g.meta.Insert(r.Context(), rec); err != nil {
		g.log.Error("registry.upload", "npp", npp, "error", err)
		_ = g.blobs.Delete(r.Context(), rec.Key)
		g.fail(w, http.StatusInternalServerError, "Signature could not be stored")
		return
	}
	g.log.Info("registry.upload", "npp", npp, "key", rec.Key, "size", rec.Size)
	writeJSON(w, http.StatusCreated, mutationResponse{
		Success: true,
		Message: "Signature stored",
		Path:    LocatorPrefix + rec.Key,
	})
}

func (g *Registry) remove(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&req); err != nil {
		g.fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	key, ok := keyFromLocator(req.Path)
	if strings.TrimSpace(req.NPP) == "" || !ok {
		g.fail(w, http.StatusBadRequest, "npp and path are required")
		return
	}
	err := g.meta.Delete(r.Context(), strings.TrimSpace(req.NPP), key)
	if errors.Is(err, ErrNotFound) {
		g.fail(w, http.StatusNotFound, "Signature not found")
		return
	}
	if err != nil {
		g.log.Error("registry.delete", "npp", req.NPP, "error", err)
		g.fail(w, http.StatusInternalServerError, "Signature could not be deleted")
		return
	}
	if err := g.blobs.Delete(r.Context(), key); err != nil {
		// record is gone; an orphaned blob is only wasted space
		g.log.Warn("registry.delete.blob", "key", key, "error", err)
	}
	g.log.Info("registry.delete", "npp", req.NPP, "key", key)
	writeJSON(w, http.StatusOK, mutationResponse{Success: true, Message: "Signature deleted"})
}

func (g *Registry) file(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if validKey(key) != nil {
		problem.NotFound(w, r, "no such signature")
		return
	}
	rec, err := g.meta.ByKey(r.Context(), key)
	if errors.Is(err, ErrNotFound) {
		problem.NotFound(w, r, "no such signature")
		return
	}
	if err != nil {
		problem.Internal(w, r, g.log, err)
		return
	}
	data, err := g.blobs.Get(r.Context(), key)
	if errors.Is(err, ErrNotFound) {
		problem.NotFound(w, r, "no such signature")
		return
	}
	if err != nil {
		problem.Internal(w, r, g.log, err)
		return
	}
	w.Header().Set("Content-Type", rec.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	_, _ = w.Write(data)
}

// keyFromLocator accepts a full locator, an absolute URL path ending in one,
// or a bare key.
func keyFromLocator(loc string) (string, bool) {
	loc = strings.TrimSpace(loc)
	if loc == "" {
		return "", false
	}
	if i := strings.Index(loc, LocatorPrefix); i >= 0 {
		loc = loc[i+len(LocatorPrefix):]
	}
	key := path.Base(loc)
	if key != loc || validKey(key) != nil {
		return "", false
	}
	return key, true
}

func (g *Registry) fail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, mutationResponse{Success: false, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
