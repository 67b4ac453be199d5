package api

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"

	"github.com/heysubinoy/remotekv/internal/dispatch"
	"github.com/heysubinoy/remotekv/pkg/kv"
)

// Server exposes the dispatcher over plain HTTP with JSON bodies.
type Server struct {
	Dispatcher *dispatch.Dispatcher
}

// NewServer creates a new HTTP server over the given dispatcher.
func NewServer(d *dispatch.Dispatcher) *Server {
	return &Server{
		Dispatcher: d,
	}
}

// RegisterRoutes registers all HTTP handlers on the given router.
func (s *Server) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/kv/{key:.+}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/kv/{key:.+}", s.handlePut).Methods(http.MethodPut)
	r.HandleFunc("/kv/{key:.+}", s.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/dispatch", s.handleDispatch).Methods(http.MethodPost)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
}

// handleGet handles GET /kv/{key}.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, kv.Request{Op: kv.OpGet, Key: mux.Vars(r)["key"]})
}

// handlePut handles PUT /kv/{key} with body {"value": "bar"}.
func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	s.dispatch(w, r, kv.Request{Op: kv.OpPut, Key: mux.Vars(r)["key"], Value: body.Value})
}

// handleDelete handles DELETE /kv/{key}.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, kv.Request{Op: kv.OpDelete, Key: mux.Vars(r)["key"]})
}

// handleDispatch handles POST /dispatch with a full request body.
// Expects: {"op": "put", "key": "foo", "value": "bar"}
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req kv.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	s.dispatch(w, r, req)
}

func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req kv.Request) {
	resp, err := s.Dispatcher.Dispatch(r.Context(), hostOf(r.RemoteAddr), req)
	switch {
	case errors.Is(err, kv.ErrInvalidRequestType):
		writeError(w, http.StatusBadRequest, kv.ErrInvalidRequestType.Error())
		return
	case errors.Is(err, kv.ErrInvalidEncoding):
		writeError(w, http.StatusBadRequest, kv.ErrInvalidEncoding.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	code := http.StatusOK
	if resp.Status == kv.StatusNotFound {
		code = http.StatusNotFound
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
