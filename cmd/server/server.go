package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lychee-technology/kindgen"
	"github.com/lychee-technology/kindgen/rest"
	"go.uber.org/zap"
)

// healthFunc reports whether the storage backend is reachable.
type healthFunc func(ctx context.Context) error

type kindSummary struct {
	Kind     string `json:"kind"`
	TypeName string `json:"typeName"`
}

// newRouter mounts the record endpoints of every registered kind at /<kind> next to the
// operational endpoints.
func newRouter(svc kindgen.RecordService, registry kindgen.KindRegistry, health healthFunc, metrics http.Handler) (chi.Router, error) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if health != nil {
			if err := health(req.Context()); err != nil {
				zap.S().Warnw("health check failed", "error", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	defs := registry.List()
	summaries := make([]kindSummary, 0, len(defs))
	for _, def := range defs {
		schemaJSON, err := json.Marshal(def.Schema)
		if err != nil {
			return nil, fmt.Errorf("encode schema of kind %s: %w", def.Kind, err)
		}
		handler, err := rest.NewKindHandler(svc, def.Kind, string(schemaJSON))
		if err != nil {
			return nil, err
		}
		r.Route("/"+def.Kind, handler.Routes)
		summaries = append(summaries, kindSummary{Kind: def.Kind, TypeName: def.TypeName})
		zap.S().Infow("mounted kind", "kind", def.Kind, "type", def.TypeName, "source", def.SourcePath)
	}

	r.Get("/kinds", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, summaries)
	})
	return r, nil
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.S().Debugw("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Errorw("failed to encode response", "error", err)
	}
}
