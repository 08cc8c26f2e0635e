package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/soocke/sigdesk-go/server/auth"
	"github.com/soocke/sigdesk-go/server/registry"
	"github.com/soocke/sigdesk-go/server/relay"
)

// Server is the assembled relay service.
type Server struct {
	Handler http.Handler
	closers []io.Closer
	log     *slog.Logger
}

// New wires the relay and, when a database is configured, the registry.
//
//	GET    /relay?url=|path=      image relay
//	GET    /api/signatures/{npp}  listing
//	POST   /api/signatures        multipart upload (npp, ttd)
//	DELETE /api/signatures        {"npp","path"}
//	GET    /uploads/ttd/{key}     stored files
//	GET    /healthz
func New(ctx context.Context, cfg *Config, logger *slog.Logger) (*Server, error) {
	s := &Server{log: logger}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})

	rl, err := relay.New(relay.Options{
		BaseURL:      cfg.StorageBaseURL,
		AllowedHosts: cfg.AllowedHosts,
		MaxBytes:     cfg.MaxBytes,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	mux.Handle("/relay", rl)

	if cfg.DBDriver != "" {
		reg, err := s.registry(ctx, cfg, logger)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		verifier := auth.NewVerifier(cfg.Token, cfg.JWTSecret)
		if !verifier.Enabled() {
			logger.Warn("server.auth", "msg", "no token or jwt secret configured; /api is open")
		}
		mux.Handle("/api/", http.StripPrefix("/api", verifier.Middleware(reg.API())))
		mux.Handle("/"+registry.LocatorPrefix, reg.Files())
	}
	s.Handler = logRequests(mux, logger)
	return s, nil
}

func (s *Server) registry(ctx context.Context, cfg *Config, logger *slog.Logger) (*registry.Registry, error) {
	meta, err := registry.OpenMeta(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, meta)

	var blobs registry.BlobStore
	switch cfg.BlobBackend {
	case "s3":
		blobs, err = registry.NewS3Blobs(ctx, registry.S3Config{
			Bucket:   cfg.S3Bucket,
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
			Prefix:   cfg.S3Prefix,
		})
	default:
		blobs, err = registry.NewFileBlobs(cfg.BlobDir)
	}
	if err != nil {
		return nil, err
	}
	return registry.New(meta, blobs, cfg.MaxBytes, logger), nil
}

// Close releases the registry database.
func (s *Server) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	s.closers = nil
	return errors.Join(errs...)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server.listen", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
