package web

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/partflow/internal/core"
)

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.service.ListGroups(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, orEmpty(groups))
}

func (s *Server) handleListGroupParts(w http.ResponseWriter, r *http.Request) {
	parts, err := s.service.ListPartsByGroup(r.Context(), pathParam(r, "group"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, orEmpty(parts))
}

func (s *Server) handleListRouteTemplates(w http.ResponseWriter, r *http.Request) {
	tmpls, err := s.service.ListRouteTemplates(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, orEmpty(tmpls))
}

func (s *Server) handleGetRouteTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(pathParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.respondError(w, r, &core.ValidationError{Field: "route_template_id", Message: "must be a positive id"}, http.StatusBadRequest)
		return
	}

	tmpl, err := s.service.GetRouteTemplate(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, tmpl)
}

func (s *Server) handleListStages(w http.ResponseWriter, r *http.Request) {
	stages, err := s.service.ListStages(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, orEmpty(stages))
}

// healthResponse is the body of /healthz.
type healthResponse struct {
	Status  string             `json:"status"`
	Imports core.LimiterStatus `json:"imports"`
	Error   string             `json:"error,omitempty"`
}

// handleHealth reports database reachability and import slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Imports: s.service.ImportStatus()}
	if err := s.service.Ping(ctx); err != nil {
		resp.Status = "unavailable"
		resp.Error = "database unreachable"
		writeJSONStatus(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, resp)
}
