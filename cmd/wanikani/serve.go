package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/wanikani-client/pkg/cache"
	"github.com/Sternrassler/wanikani-client/pkg/client"
	"github.com/Sternrassler/wanikani-client/pkg/config"
	"github.com/Sternrassler/wanikani-client/pkg/logging"
	"github.com/Sternrassler/wanikani-client/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Values of the X-Cache response header.
const (
	cacheMiss        = "MISS"
	cacheRevalidated = "REVALIDATED"
)

func newServeCmd(loadConfig func() *config.Config) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the API through the cache as a local read-only proxy",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, loadConfig())
			if err != nil {
				return err
			}
			defer a.Close()

			return serve(ctx, addr, newRouter(a.store, a.adapter))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

func serve(ctx context.Context, addr string, handler http.Handler) error {
	logger := logging.NewLogger(logging.ComponentServer)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	logger.Info().Str("addr", addr).Msg("Server started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info().Msg("Server stopped")
	return nil
}

// newRouter builds the HTTP router.
func newRouter(store cache.Store, adapter *cache.Adapter) http.Handler {
	logger := logging.NewLogger(logging.ComponentServer)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(store))
	r.Handle("/metrics", metrics.Handler())
	r.Get("/v2/*", proxyHandler(adapter))

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// readyHandler reports whether the store answers.
func readyHandler(store cache.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "text/plain")
		if err := store.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "store unavailable: %v", err)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	}
}

// proxyHandler answers GET /v2/<endpoint> from the cache adapter. Every
// request is revalidated upstream; X-Cache tells whether the payload came
// from the server (MISS) or was confirmed unchanged (REVALIDATED).
func proxyHandler(adapter *cache.Adapter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		endpoint := chi.URLParam(r, "*")
		params := r.URL.Query()
		if len(params) == 0 {
			params = nil
		}

		res, err := adapter.Fetch(r.Context(), endpoint, params)
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if res.Entry.ETag != "" {
			w.Header().Set("ETag", res.Entry.ETag)
		}
		if res.Entry.LastModified != "" {
			w.Header().Set("Last-Modified", res.Entry.LastModified)
		}
		if res.Status == cache.StatusNotModified {
			w.Header().Set("X-Cache", cacheRevalidated)
		} else {
			w.Header().Set("X-Cache", cacheMiss)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(res.Payload())
	}
}

// writeError writes a WaniKani style {"error", "code"} body. Upstream API
// errors keep their status.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var (
		apiErr     *client.APIError
		netErr     *client.NetworkError
		parseErr   *client.ParseError
		storageErr *cache.StorageError
	)
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.StatusCode
	case errors.Is(err, client.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.As(err, &netErr), errors.As(err, &parseErr), errors.Is(err, cache.ErrUnexpectedNotModified):
		status = http.StatusBadGateway
	case errors.As(err, &storageErr):
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": err.Error(),
		"code":  status,
	})
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status_code", ww.Status()).
				Str("x_cache", ww.Header().Get("X-Cache")).
				Dur("duration", time.Since(start)).
				Msg("Request served")
		})
	}
}
