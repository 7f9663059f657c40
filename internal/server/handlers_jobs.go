package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/farlance/internal/db"
	"github.com/jonathan/farlance/internal/jobs"
	"github.com/jonathan/farlance/internal/log"
	"github.com/jonathan/farlance/internal/server/middleware"
	"github.com/jonathan/farlance/internal/types"
)

// handlePostJob creates a job and notifies matching users. The response only
// reflects validation and the job insert; later steps are best-effort.
func (s *Server) handlePostJob(w http.ResponseWriter, r *http.Request) {
	// The fan-out runs before the response and may outlast the server write timeout
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		log.Debug(r.Context(), "write deadline not cleared", slog.String("error", err.Error()))
	}

	var req jobs.PostRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.jobs.Post(r.Context(), &req)
	if err != nil {
		if errors.Is(err, jobs.ErrInvalidInput) {
			s.writeError(w, r, fromJobsError(err))
			return
		}
		log.Error(r.Context(), "failed to post job", err)
		s.errorResponse(w, http.StatusInternalServerError, "Failed to post job")
		return
	}

	s.jsonResponse(w, http.StatusOK, types.PostJobResponse{
		Message: "Job posted successfully",
		JobID:   result.JobID,
	})
}

// handleListJobs lists jobs newest first.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := db.JobFilters{
		Status: q.Get("status"),
		Query:  q.Get("q"),
	}

	var err error
	if filters.SkillID, err = optionalUUID(q.Get("skill"), "skill"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if filters.PosterID, err = optionalUUID(q.Get("poster"), "poster"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if filters.Limit, filters.Offset, err = pagination(r); err != nil {
		s.writeError(w, r, err)
		return
	}

	list, err := s.store.ListJobs(r.Context(), filters)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []db.Job{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"jobs": list})
}

// handleGetJob returns one job with its required skills.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathUUID(r, "id", "job")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	job, err := s.store.GetJob(r.Context(), jobID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if job == nil {
		s.writeError(w, r, &ErrNotFound{Resource: "job"})
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

// handleJobStatus applies a lifecycle event on behalf of the poster.
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathUUID(r, "id", "job")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	actorID, err := middleware.GetProfileID(r)
	if err != nil {
		s.writeError(w, r, &ErrUnauthorized{Message: "Unauthorized"})
		return
	}

	var req types.JobStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, validationError(err))
		return
	}

	job, err := s.jobs.Transition(r.Context(), jobID, actorID, req.Event)
	if err != nil {
		s.writeError(w, r, fromJobsError(err))
		return
	}
	s.jsonResponse(w, http.StatusOK, job)
}

// handleApply records an application from the signed-in profile.
func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathUUID(r, "id", "job")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	applicant, err := s.currentProfile(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var req types.ApplyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeError(w, r, validationError(err))
		return
	}

	app, err := s.jobs.Apply(r.Context(), jobID, applicant, req.Message)
	if err != nil {
		s.writeError(w, r, fromJobsError(err))
		return
	}
	s.jsonResponse(w, http.StatusCreated, app)
}

// handleListApplications lists a job's applications for its poster.
func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	jobID, err := pathUUID(r, "id", "job")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	actorID, err := middleware.GetProfileID(r)
	if err != nil {
		s.writeError(w, r, &ErrUnauthorized{Message: "Unauthorized"})
		return
	}

	apps, err := s.jobs.Applications(r.Context(), jobID, actorID)
	if err != nil {
		s.writeError(w, r, fromJobsError(err))
		return
	}
	if apps == nil {
		apps = []db.Application{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"applications": apps})
}

// pathUUID parses a path parameter. An unparseable id cannot name an existing
// resource, so it is reported as not found.
func pathUUID(r *http.Request, name, resource string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, &ErrNotFound{Resource: resource}
	}
	return id, nil
}

func optionalUUID(raw, field string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, &ErrValidation{Field: field, Message: "must be a UUID"}
	}
	return &id, nil
}

// pagination reads limit and offset. Range clamping happens in the db layer.
func pagination(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			return 0, 0, &ErrValidation{Field: "limit", Message: "must be an integer"}
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil {
			return 0, 0, &ErrValidation{Field: "offset", Message: "must be an integer"}
		}
	}
	return limit, offset, nil
}

// validationError converts validator errors into an ErrValidation for the
// first failing field.
func validationError(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		ve := validationErrors[0]
		return &ErrValidation{Field: ve.Field(), Message: ve.Tag()}
	}
	return &ErrValidation{Message: err.Error()}
}
