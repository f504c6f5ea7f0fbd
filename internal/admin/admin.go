// Package admin exposes the read-only operator surface: hand lookups,
// player records, per-table counters, and table/ban management. Every
// endpoint is gated by a shared-secret header compared in constant
// time, the same technique internal/auth's ChallengeStore uses for
// token verification.
package admin

import (
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/lox/pokertable/internal/persistence"
	"github.com/lox/pokertable/internal/session"
	"github.com/lox/pokertable/internal/tablestats"
)

// Handler serves the /admin/* routes. One Handler per process.
type Handler struct {
	logger *log.Logger
	token  string
	store  persistence.Store
	stats  *tablestats.Tracker
	mgr    *session.Manager

	mux *http.ServeMux
}

// New builds a Handler. token is the shared secret every request must
// present via the Authorization header as "Bearer <token>"; an empty
// token disables auth entirely, which is only ever appropriate for
// local development.
func New(logger *log.Logger, token string, store persistence.Store, stats *tablestats.Tracker, mgr *session.Manager) *Handler {
	h := &Handler{
		logger: logger.WithPrefix("admin"),
		token:  token,
		store:  store,
		stats:  stats,
		mgr:    mgr,
		mux:    http.NewServeMux(),
	}
	h.mux.HandleFunc("/admin/tables", h.handleTables)
	h.mux.HandleFunc("/admin/hands/", h.handleHand)
	h.mux.HandleFunc("/admin/players/", h.handlePlayer)
	h.mux.HandleFunc("/admin/bans/", h.handleBan)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("unauthorized"))
		return
	}
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) authorized(r *http.Request) bool {
	if h.token == "" {
		return true
	}
	got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) == 1
}

type tableSummary struct {
	ID             string  `json:"id"`
	HandsCompleted int     `json:"hands_completed"`
	Timeouts       int     `json:"timeouts"`
	HandsPerSecond float64 `json:"hands_per_second"`
}

// handleTables lists every live table with its runtime counters.
func (h *Handler) handleTables(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ids := h.mgr.ListTables()
	out := make([]tableSummary, 0, len(ids))
	for _, id := range ids {
		snap := h.stats.Snapshot(id)
		out = append(out, tableSummary{
			ID:             id,
			HandsCompleted: snap.HandsCompleted,
			Timeouts:       snap.Timeouts,
			HandsPerSecond: snap.HandsPerSecond,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleHand serves GET /admin/hands/{id}.
func (h *Handler) handleHand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/admin/hands/")
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("missing hand id"))
		return
	}
	hand, err := h.store.GetHand(r.Context(), id)
	if err != nil {
		h.notFoundOrError(w, err, "hand not found")
		return
	}
	writeJSON(w, http.StatusOK, hand)
}

// handlePlayer serves:
//   GET /admin/players/{identityHex}
//   GET /admin/players/{identityHex}/hands?limit=&offset=
func (h *Handler) handlePlayer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/admin/players/")
	parts := strings.SplitN(path, "/", 2)
	identity, err := hex.DecodeString(parts[0])
	if err != nil || len(parts[0]) == 0 {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("invalid identity"))
		return
	}

	if len(parts) == 2 && parts[1] == "hands" {
		limit := queryInt(r, "limit", 50)
		offset := queryInt(r, "offset", 0)
		hands, err := h.store.ListHandsByIdentity(r.Context(), identity, limit, offset)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(err.Error()))
			return
		}
		writeJSON(w, http.StatusOK, hands)
		return
	}

	player, err := h.store.GetPlayer(r.Context(), identity)
	if err != nil {
		h.notFoundOrError(w, err, "player not found")
		return
	}
	writeJSON(w, http.StatusOK, player)
}

type banRequest struct {
	Reason string `json:"reason"`
}

// handleBan serves:
//   PUT /admin/bans/{ip}   body {"reason": "..."}
//   DELETE /admin/bans/{ip}
func (h *Handler) handleBan(w http.ResponseWriter, r *http.Request) {
	ip := strings.TrimPrefix(r.URL.Path, "/admin/bans/")
	if ip == "" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("missing ip"))
		return
	}
	switch r.Method {
	case http.MethodPut:
		var req banRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("invalid JSON payload"))
			return
		}
		if err := h.store.Ban(r.Context(), ip, req.Reason); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(err.Error()))
			return
		}
		h.logger.Info("admin banned ip", "ip", ip, "reason", req.Reason)
		w.WriteHeader(http.StatusNoContent)
	case http.MethodDelete:
		if err := h.store.Unban(r.Context(), ip); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(err.Error()))
			return
		}
		h.logger.Info("admin unbanned ip", "ip", ip)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) notFoundOrError(w http.ResponseWriter, err error, notFoundMsg string) {
	if errors.Is(err, persistence.ErrNotFound) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(notFoundMsg))
		return
	}
	h.logger.Error("admin store error", "error", err)
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(err.Error()))
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
