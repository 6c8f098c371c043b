package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/store"
)

const maxBodySize = 64 << 10

type showResponse struct {
	ID string `json:"id"`
}

type closeAllResponse struct {
	Closed int `json:"closed"`
}

type themesResponse struct {
	Current   string   `json:"current"`
	Available []string `json:"available"`
}

func (s *Server) observe(source string) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.ObserveRequest(source)
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	toasts, err := s.svc.Active(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if toasts == nil {
		toasts = []*model.Toast{}
	}
	writeJSON(w, http.StatusOK, toasts)
}

func (s *Server) handleShow(w http.ResponseWriter, r *http.Request) {
	s.observe("http")

	var opts model.Options
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, badRequest("failed to read body", err))
		return
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &opts); err != nil {
			writeError(w, badRequest("invalid toast options", err))
			return
		}
	}

	id, err := s.svc.Show(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/api/toasts/"+id)
	writeJSON(w, http.StatusCreated, showResponse{ID: id})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	s.observe("http")

	reason, err := reasonParam(r, model.ReasonClosed)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.svc.Close(r.Context(), chi.URLParam(r, "id"), reason); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCloseAll(w http.ResponseWriter, r *http.Request) {
	s.observe("http")

	reason, err := reasonParam(r, model.ReasonClosed)
	if err != nil {
		writeError(w, err)
		return
	}
	n, err := s.svc.CloseAll(r.Context(), reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, closeAllResponse{Closed: n})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	s.observe("http")

	id := chi.URLParam(r, "id")
	ctx := r.Context()

	var err error
	switch chi.URLParam(r, "action") {
	case ActionPointerEnter:
		err = s.svc.PointerEnter(ctx, id)
	case ActionPointerLeave:
		err = s.svc.PointerLeave(ctx, id)
	case ActionTransitionEnd:
		err = s.svc.TransitionEnd(ctx, id)
	case ActionDismiss:
		err = s.svc.Dismiss(ctx, id)
	default:
		err = &APIError{Status: http.StatusNotFound, Message: "unknown action", Err: errUnknownAction}
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := store.FilterOptions{
		Search: q.Get("q"),
		Limit:  100,
	}
	if v := q.Get("kind"); v != "" {
		kind, ok := model.ParseKind(v)
		if !ok {
			writeError(w, badRequest("invalid kind "+strconv.Quote(v), nil))
			return
		}
		opts.Kind = kind
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, badRequest("invalid limit", err))
			return
		}
		opts.Limit = n
	}
	if v := q.Get("since"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			writeError(w, badRequest("invalid since", err))
			return
		}
		opts.Since = time.Now().Add(-d)
	}
	reason, err := reasonParam(r, 0)
	if err != nil {
		writeError(w, err)
		return
	}
	opts.Reason = reason

	recs, err := s.opts.History.Recent(r.Context(), opts)
	if err != nil {
		writeError(w, err)
		return
	}
	if recs == nil {
		recs = []store.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleThemes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, themesResponse{
		Current:   s.opts.Themes.Name(),
		Available: s.opts.Themes.Names(),
	})
}

// reasonParam reads the optional ?reason= query parameter.
func reasonParam(r *http.Request, def model.CloseReason) (model.CloseReason, error) {
	v := r.URL.Query().Get("reason")
	if v == "" {
		return def, nil
	}
	reason, err := model.ParseCloseReason(v)
	if err != nil {
		return 0, badRequest("invalid reason", err)
	}
	return reason, nil
}
