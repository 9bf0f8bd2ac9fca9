package web

import (
	"context"
	"net/http"

	"github.com/go-chi/render"

	"github.com/JonMunkholm/brokerstatements/internal/core"
	"github.com/JonMunkholm/brokerstatements/internal/logging"
)

type healthResponse struct {
	Status   string             `json:"status"`
	Registry string             `json:"registry"`
	Formats  int                `json:"formats"`
	Parses   core.LimiterStatus `json:"parses"`
}

// handleHealth reports the registry backend and parse slot usage. It fails
// with 503 when the registry database does not answer.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		Registry: "memory",
		Formats:  core.FormatCount(),
		Parses:   s.limiter.Status(),
	}

	if s.db != nil {
		resp.Registry = "postgres"
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			logging.FromContext(r.Context()).Error("registry database unreachable", "error", err)
			resp.Status = "unavailable"
			render.Status(r, http.StatusServiceUnavailable)
		}
	}

	render.JSON(w, r, resp)
}
