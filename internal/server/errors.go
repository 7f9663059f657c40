package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/farlance/internal/jobs"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrNotFound indicates the addressed resource does not exist
type ErrNotFound struct {
	Resource string
}

func (e *ErrNotFound) Error() string {
	return e.Resource + " not found"
}

// ErrForbidden indicates the caller may not act on the resource
type ErrForbidden struct {
	Message string
}

func (e *ErrForbidden) Error() string {
	return e.Message
}

// ErrConflict indicates the request conflicts with current state
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrUnauthorized indicates missing or rejected credentials
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	return e.Message
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation   *ErrValidation
		notFound     *ErrNotFound
		forbidden    *ErrForbidden
		conflict     *ErrConflict
		unauthorized *ErrUnauthorized
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.As(err, &conflict):
		return http.StatusConflict
	case errors.As(err, &unauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// fromJobsError translates job service errors into API errors. Errors it does
// not recognize are returned unchanged.
func fromJobsError(err error) error {
	switch {
	case errors.Is(err, jobs.ErrInvalidInput):
		return &ErrValidation{Message: "Missing required fields"}
	case errors.Is(err, jobs.ErrJobNotFound):
		return &ErrNotFound{Resource: "job"}
	case errors.Is(err, jobs.ErrNotPoster):
		return &ErrForbidden{Message: "Only the poster can do this"}
	case errors.Is(err, jobs.ErrInvalidTransition):
		return &ErrConflict{Message: err.Error()}
	case errors.Is(err, jobs.ErrJobNotOpen):
		return &ErrConflict{Message: "Job is not open for applications"}
	case errors.Is(err, jobs.ErrSelfApplication):
		return &ErrValidation{Message: "You cannot apply to your own job"}
	case errors.Is(err, jobs.ErrAlreadyApplied):
		return &ErrConflict{Message: "You have already applied to this job"}
	default:
		return err
	}
}
