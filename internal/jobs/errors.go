package jobs

import "errors"

var (
	// ErrInvalidInput is returned when a posting request lacks required fields.
	ErrInvalidInput = errors.New("missing required fields: jobData, selectedSkillIds, posterFid")

	ErrJobNotFound       = errors.New("job not found")
	ErrNotPoster         = errors.New("only the poster can do this")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrJobNotOpen        = errors.New("job is not open")
	ErrSelfApplication   = errors.New("cannot apply to your own job")
	ErrAlreadyApplied    = errors.New("already applied to this job")
)
