package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/stageflow/pkg/assemble"
	"github.com/matzehuels/stageflow/pkg/buildinfo"
	"github.com/matzehuels/stageflow/pkg/dispatch"
	"github.com/matzehuels/stageflow/pkg/errors"
	"github.com/matzehuels/stageflow/pkg/graph"
	"github.com/matzehuels/stageflow/pkg/pipeline"
	"github.com/matzehuels/stageflow/pkg/render"
	"github.com/matzehuels/stageflow/pkg/session"
	"github.com/matzehuels/stageflow/pkg/workflow"
)

// =============================================================================
// Request / Response Types
// =============================================================================

// graphRequest is the body of POST /workflows/{id}/graph. Omitted layout
// fields keep the server's values.
type graphRequest struct {
	State  assemble.State         `json:"state"`
	Edges  []graph.Edge           `json:"edges,omitempty"`
	Layout *workflow.LayoutConfig `json:"layout,omitempty"`
}

type createSessionRequest struct {
	WorkflowID string `json:"workflowId"`
}

type sessionResponse struct {
	ID        string           `json:"id"`
	ExpiresAt time.Time        `json:"expiresAt"`
	View      dispatch.Session `json:"view"`
	Graph     graph.Graph      `json:"graph"`
}

type healthResponse struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

// =============================================================================
// Health
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Build: buildinfo.Get()})
}

// =============================================================================
// Workflows
// =============================================================================

func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	list, err := s.runner.Provider.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	data, err := s.runner.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	req := graphRequest{}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	cfg := s.layout
	if req.Layout != nil {
		cfg = overlay(s.layout, *req.Layout)
	}

	data, err := s.runner.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	g, err := s.runner.Assemble(r.Context(), data, pipeline.Options{
		Layout: cfg,
		State:  req.State,
		Edges:  req.Edges,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = pipeline.DefaultFormat
	}
	expanded, err := queryBool(q.Get("expanded"))
	if err != nil {
		s.writeError(w, r, errors.Invalid(errors.ErrCodeInvalidInput, "expanded", "must be a boolean"))
		return
	}

	id := chi.URLParam(r, "id")
	res, err := s.runner.Execute(r.Context(), pipeline.Options{
		WorkflowID: id,
		Layout:     s.layout,
		State:      assemble.State{WorkflowID: id, Expanded: expanded, Selected: q.Get("selected")},
		Formats:    []string{format},
		Theme:      q.Get("theme"),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", render.ContentType(format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Artifacts[format])
}

// =============================================================================
// Sessions
// =============================================================================

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.WorkflowID) == "" {
		s.writeError(w, r, errors.Invalid(errors.ErrCodeInvalidInput, "workflowId", "is required"))
		return
	}

	sess, err := session.New(req.WorkflowID, s.sessionTTL)
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "create session"))
		return
	}
	g, err := s.assembleView(r, sess.View)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.sessions.Set(r.Context(), sess); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "store session"))
		return
	}
	writeJSON(w, http.StatusCreated, newSessionResponse(sess, g))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.lookupSession(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	g, err := s.assembleView(r, sess.View)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess, g))
}

// handleSessionEvent applies one event. The session is only stored when the
// event succeeds and the resulting view assembles, so a bad event or a
// switch to an unknown workflow leaves it untouched. Events on the same
// session run one at a time; each sees the result of the previous one.
func (s *Server) handleSessionEvent(w http.ResponseWriter, r *http.Request) {
	unlock := s.events.lock(chi.URLParam(r, "sid"))
	defer unlock()

	sess, err := s.lookupSession(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var ev dispatch.Event
	if err := decodeJSON(w, r, &ev); err != nil {
		s.writeError(w, r, err)
		return
	}

	current, err := s.assembleView(r, sess.View)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view := sess.View
	view.Edges = append([]graph.Edge(nil), sess.View.Edges...)
	if err := s.dispatcher.Dispatch(&view, current, ev); err != nil {
		s.writeError(w, r, err)
		return
	}
	g, err := s.assembleView(r, view)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sess.View = view
	sess.Touch(s.sessionTTL)
	if err := s.sessions.Set(r.Context(), sess); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "store session"))
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(sess, g))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.Context(), chi.URLParam(r, "sid")); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "delete session"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) lookupSession(r *http.Request) (*session.Session, error) {
	id := chi.URLParam(r, "sid")
	sess, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "load session")
	}
	if sess == nil {
		return nil, errors.New(errors.ErrCodeNotFound, "session %q not found or expired", id)
	}
	return sess, nil
}

func (s *Server) assembleView(r *http.Request, view dispatch.Session) (graph.Graph, error) {
	data, err := s.runner.Load(r.Context(), view.WorkflowID)
	if err != nil {
		return graph.Graph{}, err
	}
	return s.runner.Assemble(r.Context(), data, pipeline.Options{
		Layout: s.layout,
		State:  view.State(),
		Edges:  view.Edges,
	})
}

func newSessionResponse(sess *session.Session, g graph.Graph) sessionResponse {
	view := sess.View
	if view.Edges == nil {
		view.Edges = []graph.Edge{}
	}
	return sessionResponse{ID: sess.ID, ExpiresAt: sess.ExpiresAt, View: view, Graph: g}
}

// =============================================================================
// Helpers
// =============================================================================

// overlay returns base with every non-zero field of o applied.
func overlay(base, o workflow.LayoutConfig) workflow.LayoutConfig {
	set := func(dst *float64, v float64) {
		if v != 0 {
			*dst = v
		}
	}
	set(&base.ContainerWidth, o.ContainerWidth)
	set(&base.ContainerHeight, o.ContainerHeight)
	set(&base.StageWidth, o.StageWidth)
	set(&base.StageHeight, o.StageHeight)
	set(&base.CircleSize, o.CircleSize)
	set(&base.Padding, o.Padding)
	set(&base.VerticalSpacing, o.VerticalSpacing)
	set(&base.HeaderHeight, o.HeaderHeight)
	set(&base.ChipWidth, o.ChipWidth)
	set(&base.ChipHeight, o.ChipHeight)
	set(&base.ChipGap, o.ChipGap)
	return base
}

func queryBool(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
