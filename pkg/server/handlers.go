package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/depview/pkg/errors"
	"github.com/matzehuels/depview/pkg/graph"
	"github.com/matzehuels/depview/pkg/layout"
	"github.com/matzehuels/depview/pkg/pipeline"
)

//go:embed viewer.html
var viewerHTML string

var viewerTmpl = template.Must(template.New("viewer").Parse(viewerHTML))

type viewerData struct {
	Title   string
	Edit    bool
	Error   string
	Code    string
	Backend string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := viewerData{
		Title:   s.cfg.Options.Title,
		Edit:    s.cfg.Edit,
		Backend: s.cfg.Backend.BaseURL(),
	}
	status := http.StatusOK
	// Load once up front so a broken description shows an error page
	// instead of an empty canvas.
	if _, _, err := s.load(r.Context()); err != nil {
		s.logger.Error("graph unavailable", "error", err)
		status = statusFor(err)
		data.Error = errors.UserMessage(err)
		data.Code = string(errors.GetCode(err))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := viewerTmpl.Execute(w, data); err != nil {
		s.logger.Error("render viewer", "error", err)
	}
}

func (s *Server) handleGraphJSON(w http.ResponseWriter, r *http.Request) {
	d, err := s.cfg.Runner.Fetch(r.Context(), s.cfg.Backend, s.cfg.Options)
	if err != nil {
		s.writeError(w, err)
		return
	}
	data, err := graph.MarshalDescription(d)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handleLayoutJSON(w http.ResponseWriter, r *http.Request) {
	s.writeArtifact(w, r, pipeline.FormatJSON)
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if format == pipeline.FormatJSON {
		// /graph.json is the description; layouts live at /layout.json.
		http.NotFound(w, r)
		return
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeArtifact(w, r, format)
}

func (s *Server) writeArtifact(w http.ResponseWriter, r *http.Request, format string) {
	opts := s.cfg.Options
	opts.Formats = []string{format}
	opts.Legend = opts.Legend || r.URL.Query().Has("legend")
	opts.Refresh = r.URL.Query().Has("refresh")

	res, err := s.cfg.Runner.Execute(r.Context(), s.cfg.Backend, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", pipeline.ContentTypes[format])
	if res.CacheInfo.RenderHit {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	w.Write(res.Artifacts[format])
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// load fetches and lays out the description for a session.
func (s *Server) load(ctx context.Context) (*graph.Description, *layout.Result, error) {
	d, err := s.cfg.Runner.Fetch(ctx, s.cfg.Backend, s.cfg.Options)
	if err != nil {
		return nil, nil, err
	}
	lr, err := s.cfg.Runner.Layout(ctx, d, s.cfg.Options)
	if err != nil {
		return nil, nil, err
	}
	return d, lr, nil
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", status, "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{
		Error: errors.UserMessage(err),
		Code:  string(errors.GetCode(err)),
	})
}

// statusFor maps error codes to HTTP statuses. Anything the backend caused
// is a 502: the viewer itself is healthy.
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrCodeInvalidGraph, errors.ErrCodeInvalidPolicy, errors.ErrCodeNotFound,
		errors.ErrCodeBackendRejected, errors.ErrCodeNetwork:
		return http.StatusBadGateway
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
