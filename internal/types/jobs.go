package types

import "github.com/google/uuid"

// MessageResponse is the body of simple acknowledgements and errors.
type MessageResponse struct {
	Message string `json:"message"`
}

// PostJobResponse is returned once a job exists.
type PostJobResponse struct {
	Message string    `json:"message"`
	JobID   uuid.UUID `json:"jobId"`
}

// JobStatusRequest applies a lifecycle event to a job.
type JobStatusRequest struct {
	Event string `json:"event" validate:"required,oneof=close fill reopen"`
}

// Validate validates the JobStatusRequest using the validator.
func (r *JobStatusRequest) Validate() error {
	return validate.Struct(r)
}

// ApplyRequest is an application to a job.
type ApplyRequest struct {
	Message string `json:"message" validate:"max=2000"`
}

// Validate validates the ApplyRequest using the validator.
func (r *ApplyRequest) Validate() error {
	return validate.Struct(r)
}
