// Package httpapi serves a JSON read surface over the room furni state plus
// the Prometheus metrics endpoint.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cory-johannsen/roomfurni/internal/game/furni"
	"github.com/cory-johannsen/roomfurni/internal/game/furniview"
	"github.com/cory-johannsen/roomfurni/internal/uictx"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 4 << 10

// CommandRunner executes a command line.
type CommandRunner interface {
	Execute(ctx context.Context, line string) error
}

// Server exposes a RoomFurni over HTTP. Every read and write of the RoomFurni
// is marshaled onto its context.
type Server struct {
	vm       *furniview.RoomFurni
	ui       uictx.Context
	commands CommandRunner
	cmdCtx   context.Context
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

// NewServer creates a Server. commands may be nil to disable POST /commands;
// cmdCtx bounds operations started by commands and should live as long as the
// application.
//
// Precondition: vm, ui, gatherer and logger must be non-nil.
func NewServer(vm *furniview.RoomFurni, ui uictx.Context, commands CommandRunner, cmdCtx context.Context, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	return &Server{
		vm:       vm,
		ui:       ui,
		commands: commands,
		cmdCtx:   cmdCtx,
		gatherer: gatherer,
		logger:   logger,
	}
}

// Router builds the chi router.
//
// Postcondition: Returns a handler serving /furni, /stacks, /status, /filter, /metrics
// and, when commands are enabled, /commands.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLogger(s.logger))

	r.Get("/furni", s.handleFurni)
	r.Get("/stacks", s.handleStacks)
	r.Get("/status", s.handleStatus)
	r.Put("/filter", s.handleSetFilter)
	if s.commands != nil {
		r.Post("/commands", s.handleCommand)
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return r
}

// ItemJSON is the wire form of a furni item.
type ItemJSON struct {
	Type        string `json:"type"`
	ID          int64  `json:"id"`
	ClassID     int    `json:"class_id"`
	Variant     string `json:"variant,omitempty"`
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"display_name"`
	OwnerID     int64  `json:"owner_id"`
	Owner       string `json:"owner,omitempty"`
	Hidden      bool   `json:"hidden"`
}

// StackJSON is the wire form of a furni stack.
type StackJSON struct {
	Type        string `json:"type"`
	ClassID     int    `json:"class_id"`
	Variant     string `json:"variant,omitempty"`
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"display_name"`
	Count       int    `json:"count"`
}

// StatusJSON is the wire form of the list state.
type StatusJSON struct {
	InRoom      bool   `json:"in_room"`
	IsEmpty     bool   `json:"is_empty"`
	EmptyStatus string `json:"empty_status"`
	Filter      string `json:"filter"`
	Items       int    `json:"items"`
	Stacks      int    `json:"stacks"`
	Visible     int    `json:"visible_items"`
	ShowGrid    bool   `json:"show_grid"`
}

type filterRequest struct {
	Filter string `json:"filter"`
}

type commandRequest struct {
	Line string `json:"line"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func itemJSON(it *furni.Item) ItemJSON {
	f := it.Furni()
	return ItemJSON{
		Type:        f.Type.String(),
		ID:          f.ID,
		ClassID:     f.ClassID,
		Variant:     f.Variant,
		Name:        it.Name(),
		DisplayName: it.DisplayName(),
		OwnerID:     f.OwnerID,
		Owner:       f.OwnerName,
		Hidden:      it.IsHidden(),
	}
}

func stackJSON(s *furni.Stack) StackJSON {
	d := s.Descriptor()
	return StackJSON{
		Type:        d.Type.String(),
		ClassID:     d.ClassID,
		Variant:     d.Variant,
		Name:        s.Name(),
		DisplayName: s.DisplayName(),
		Count:       s.Count(),
	}
}

// invoke runs fn on the UI context and reports failures as 503.
func (s *Server) invoke(w http.ResponseWriter, r *http.Request, fn func()) bool {
	if err := s.ui.Invoke(r.Context(), fn); err != nil {
		s.logger.Warn("ui context unavailable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "unavailable", "furni state is unavailable")
		return false
	}
	return true
}

func (s *Server) handleFurni(w http.ResponseWriter, r *http.Request) {
	var out []ItemJSON
	if !s.invoke(w, r, func() {
		items := s.vm.Items().Slice()
		out = make([]ItemJSON, len(items))
		for i, it := range items {
			out[i] = itemJSON(it)
		}
	}) {
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStacks(w http.ResponseWriter, r *http.Request) {
	var out []StackJSON
	if !s.invoke(w, r, func() {
		stacks := s.vm.Stacks().Slice()
		out = make([]StackJSON, len(stacks))
		for i, st := range stacks {
			out[i] = stackJSON(st)
		}
	}) {
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) status() StatusJSON {
	return StatusJSON{
		InRoom:      s.vm.IsInRoom(),
		IsEmpty:     s.vm.IsEmpty().Get(),
		EmptyStatus: s.vm.EmptyStatus().Get(),
		Filter:      s.vm.FilterText(),
		Items:       s.vm.Cache().ItemCount(),
		Stacks:      s.vm.Cache().StackCount(),
		Visible:     s.vm.Items().Len(),
		ShowGrid:    s.vm.ShowGrid.Get(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var out StatusJSON
	if !s.invoke(w, r, func() { out = s.status() }) {
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "body must be {\"filter\": string}")
		return
	}
	var out StatusJSON
	if !s.invoke(w, r, func() {
		s.vm.SetFilterText(req.Filter)
		out = s.status()
	}) {
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil || req.Line == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "body must be {\"line\": string}")
		return
	}
	if err := s.commands.Execute(s.cmdCtx, req.Line); err != nil {
		if errors.Is(err, context.Canceled) {
			writeError(w, http.StatusServiceUnavailable, "unavailable", "shutting down")
			return
		}
		s.logger.Error("command failed", zap.String("line", req.Line), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "command failed")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
