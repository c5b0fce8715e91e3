// Package httpapi exposes the freshness board and tag invalidation over
// HTTP. It is a thin boundary: every request maps onto one registry or
// freshness call.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/unkn0wn-root/tagcache"
	"github.com/unkn0wn-root/tagcache/freshness"
)

type Server struct {
	reg   tagcache.Registry[freshness.Snapshot]
	board *freshness.Board
	log   tagcache.Logger
	now   func() time.Time
}

func New(reg tagcache.Registry[freshness.Snapshot], board *freshness.Board, logger tagcache.Logger) *Server {
	if logger == nil {
		logger = tagcache.NopLogger{}
	}
	return &Server{reg: reg, board: board, log: logger, now: time.Now}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/time", s.handleTime)
	mux.HandleFunc("GET /api/ssr-time", s.handleSSRTime)
	mux.HandleFunc("GET /api/isolation", s.handleIsolation)
	mux.HandleFunc("GET /api/revalidate", s.handleRevalidate(freshness.OnDemand))
	mux.HandleFunc("GET /api/revalidate/on-demand", s.handleRevalidate(freshness.OnDemand))
	mux.HandleFunc("GET /api/revalidate/time-based", s.handleRevalidate(freshness.TimeBased))
	mux.HandleFunc("GET /api/revalidate/tag", s.handleRevalidateTag)
	mux.HandleFunc("GET /api/entries/{key}", s.handleEntry)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	return mux
}

func (s *Server) handleTime(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, freshness.NewSnapshot(s.now(), freshness.Client, ""))
}

func (s *Server) handleSSRTime(w http.ResponseWriter, r *http.Request) {
	snap, err := s.board.SSR.Read(r.Context())
	if err != nil {
		s.fail(w, "Failed to generate time data", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleIsolation(w http.ResponseWriter, r *http.Request) {
	view, err := s.board.Render(r.Context())
	if err != nil {
		s.fail(w, "Failed to render", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleRevalidate(strategy freshness.Strategy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("instanceId")
		if id == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{
				Error:   "Missing instanceId parameter",
				Message: "Please provide an instanceId query parameter to revalidate a specific instance",
			})
			return
		}
		res, err := freshness.Revalidate(r.Context(), s.reg, strategy, id)
		if err != nil {
			s.fail(w, "Error revalidating", err)
			return
		}
		s.log.Info("instance revalidated", tagcache.Fields{"type": string(strategy), "instance": id, "count": res.Count})
		writeJSON(w, http.StatusOK, res)
	}
}

type tagResult struct {
	Revalidated bool   `json:"revalidated"`
	Type        string `json:"type"`
	Tag         string `json:"tag"`
	Message     string `json:"message"`
	Timestamp   int64  `json:"timestamp"`
	Count       int    `json:"count"`
}

func (s *Server) handleRevalidateTag(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")
	if tag == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:   "Missing tag parameter",
			Message: "Please provide a tag query parameter",
		})
		return
	}
	n, err := s.reg.InvalidateTag(r.Context(), tag)
	if err != nil {
		s.fail(w, "Error revalidating", err)
		return
	}
	writeJSON(w, http.StatusOK, tagResult{
		Revalidated: true,
		Type:        "tag",
		Tag:         tag,
		Message:     "Revalidated tag: " + tag,
		Timestamp:   s.now().UnixMilli(),
		Count:       n,
	})
}

type entryBody struct {
	Key         string    `json:"key"`
	Tags        []string  `json:"tags"`
	TTL         string    `json:"ttl"`
	ComputedAt  time.Time `json:"computedAt"`
	Generation  uint64    `json:"generation"`
	Invalidated bool      `json:"invalidated"`
	Expired     bool      `json:"expired"`
}

func (s *Server) handleEntry(w http.ResponseWriter, r *http.Request) {
	info, ok := s.reg.Entry(r.PathValue("key"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Unknown key", Message: r.PathValue("key")})
		return
	}
	ttl := "none"
	if info.TTL >= 0 {
		ttl = info.TTL.String()
	}
	writeJSON(w, http.StatusOK, entryBody{
		Key:         info.Key,
		Tags:        info.Tags,
		TTL:         ttl,
		ComputedAt:  info.ComputedAt,
		Generation:  info.Generation,
		Invalidated: info.Invalidated,
		Expired:     info.Expired,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	st := s.reg.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"entries":       s.reg.Len(),
		"hits":          st.Hits,
		"misses":        st.Misses,
		"refreshes":     st.Refreshes,
		"staleServed":   st.StaleServed,
		"failures":      st.Failures,
		"invalidations": st.Invalidations,
		"entriesMarked": st.EntriesMarked,
		"sharedFlights": st.SharedFlights,
	})
}

type errorBody struct {
	Revalidated *bool  `json:"revalidated,omitempty"`
	Error       string `json:"error"`
	Message     string `json:"message"`
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	s.log.Error(msg, tagcache.Fields{"err": err})
	status := http.StatusInternalServerError
	if errors.Is(err, freshness.ErrMissingInstance) {
		status = http.StatusBadRequest
	}
	no := false
	writeJSON(w, status, errorBody{Revalidated: &no, Error: err.Error(), Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
