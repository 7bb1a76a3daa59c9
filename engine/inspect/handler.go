package inspect

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Carmen-Shannon/oxy-anim/engine/arena"
	"github.com/go-chi/chi/v5"
)

// NewHandler serves an Inspector as read-only JSON:
//
//	GET /summary
//	GET /machines
//	GET /machines/{id}
//	GET /players
//	GET /players/{id}
func NewHandler(ins Inspector, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{ins: ins, logger: logger}

	r := chi.NewRouter()
	r.Get("/summary", func(w http.ResponseWriter, r *http.Request) {
		h.write(w, ins.Summary())
	})
	r.Get("/machines", func(w http.ResponseWriter, r *http.Request) {
		h.write(w, ins.Machines())
	})
	r.Get("/machines/{id}", h.lookup(func(id arena.Handle) (any, error) { return ins.Machine(id) }))
	r.Get("/players", func(w http.ResponseWriter, r *http.Request) {
		h.write(w, ins.Players())
	})
	r.Get("/players/{id}", h.lookup(func(id arena.Handle) (any, error) { return ins.Player(id) }))
	return r
}

type handler struct {
	ins    Inspector
	logger *slog.Logger
}

func (h *handler) lookup(fn func(arena.Handle) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 32)
		if err != nil {
			http.Error(w, "invalid handle", http.StatusBadRequest)
			return
		}
		v, err := fn(arena.Handle(id))
		if errors.Is(err, ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		h.write(w, v)
	}
}

func (h *handler) write(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("inspect encode failed", "error", err)
	}
}
