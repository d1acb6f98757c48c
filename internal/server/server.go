// Package server exposes a blast source over HTTP so several terminals can
// watch one feed.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/glabrego/conch/internal/blast"
	"github.com/glabrego/conch/internal/remote"
)

const (
	DefaultAddr = ":7337"
	maxLimit    = 500
	maxBodySize = 64 << 10
)

type Handler struct {
	source       blast.Source
	poster       blast.Poster
	defaultLimit int
	logger       *log.Logger
	mux          *http.ServeMux
}

// NewHandler serves source. POST is accepted only when source also
// implements blast.Poster.
func NewHandler(source blast.Source, defaultLimit int, logger *log.Logger) *Handler {
	if defaultLimit < 1 {
		defaultLimit = 42
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	h := &Handler{
		source:       source,
		defaultLimit: defaultLimit,
		logger:       logger.WithPrefix("server"),
		mux:          http.NewServeMux(),
	}
	h.poster, _ = source.(blast.Poster)

	h.mux.HandleFunc("GET "+remote.BlastsPath, h.handleList)
	h.mux.HandleFunc("POST "+remote.BlastsPath, h.handlePost)
	h.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	h.mux.ServeHTTP(w, r)
	h.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery, "took", time.Since(start))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := h.defaultLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw))
			return
		}
		limit = min(n, maxLimit)
	}

	after, hasAfter, err := parseID(q.Get("after"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	before, hasBefore, err := parseID(q.Get("before"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var blasts []blast.Blast
	switch {
	case hasAfter && hasBefore:
		writeError(w, http.StatusBadRequest, "after and before are mutually exclusive")
		return
	case hasAfter:
		blasts, err = h.source.After(r.Context(), after, limit)
	case hasBefore:
		blasts, err = h.source.Before(r.Context(), before, limit)
	default:
		blasts, err = h.source.Recent(r.Context(), limit)
	}
	if err != nil {
		h.logger.Error("list blasts failed", "query", r.URL.RawQuery, "err", err)
		writeError(w, http.StatusInternalServerError, "list blasts failed")
		return
	}
	if blasts == nil {
		blasts = []blast.Blast{}
	}
	writeJSON(w, http.StatusOK, blasts)
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	if h.poster == nil {
		writeError(w, http.StatusMethodNotAllowed, blast.ErrReadOnly.Error())
		return
	}

	var body remote.PostBody
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "decode blast: "+err.Error())
		return
	}

	posted, err := h.poster.Post(r.Context(), body.Author, body.Content)
	switch {
	case errors.Is(err, blast.ErrEmptyAuthor), errors.Is(err, blast.ErrEmptyContent):
		writeError(w, http.StatusBadRequest, unwrapSentinel(err).Error())
		return
	case err != nil:
		h.logger.Error("post blast failed", "author", body.Author, "err", err)
		writeError(w, http.StatusInternalServerError, "post blast failed")
		return
	}
	h.logger.Info("blast posted", "id", posted.ID, "author", posted.Author)
	writeJSON(w, http.StatusCreated, posted)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *log.Logger) error {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("server stopping")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s: %w", addr, err)
	}
	return nil
}

func parseID(raw string) (int64, bool, error) {
	if raw == "" {
		return 0, false, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid id %q", raw)
	}
	return id, true, nil
}

func unwrapSentinel(err error) error {
	for _, sentinel := range []error{blast.ErrEmptyAuthor, blast.ErrEmptyContent} {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, remote.ErrorBody{Error: msg})
}
