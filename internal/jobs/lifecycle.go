package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"github.com/jonathan/farlance/internal/db"
	"github.com/jonathan/farlance/internal/log"
)

// Lifecycle events
const (
	EventClose  = "close"
	EventFill   = "fill"
	EventReopen = "reopen"
)

// Events lists the lifecycle events accepted by Transition.
var Events = []string{EventClose, EventFill, EventReopen}

func lifecycleEvents() fsm.Events {
	return fsm.Events{
		{Name: EventClose, Src: []string{db.JobStatusOpen}, Dst: db.JobStatusClosed},
		{Name: EventFill, Src: []string{db.JobStatusOpen}, Dst: db.JobStatusFilled},
		{Name: EventReopen, Src: []string{db.JobStatusClosed}, Dst: db.JobStatusOpen},
	}
}

// NextStatus returns the status a job in current moves to on event.
func NextStatus(ctx context.Context, current, event string) (string, error) {
	machine := fsm.NewFSM(current, lifecycleEvents(), fsm.Callbacks{})

	if machine.Cannot(event) {
		return "", fmt.Errorf("%w: cannot %s a job that is %s", ErrInvalidTransition, event, current)
	}
	if err := machine.Event(ctx, event); err != nil {
		var noTransition fsm.NoTransitionError
		if errors.As(err, &noTransition) {
			return current, nil
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidTransition, err)
	}
	return machine.Current(), nil
}

// Transition applies event to a job on behalf of actorID, who must be its
// poster. The stored status only changes if nobody moved it in the meantime.
func (s *Service) Transition(ctx context.Context, jobID, actorID uuid.UUID, event string) (*db.Job, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	if job.PosterID != actorID {
		return nil, ErrNotPoster
	}

	next, err := NextStatus(ctx, job.Status, event)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateJobStatus(ctx, jobID, job.Status, next)
	if err != nil {
		if errors.Is(err, db.ErrStatusChanged) {
			return nil, fmt.Errorf("%w: job status changed, reload and retry", ErrInvalidTransition)
		}
		return nil, err
	}

	log.Info(ctx, "job status changed",
		slog.String("jobId", jobID.String()),
		slog.String("from", job.Status),
		slog.String("to", next),
	)
	return updated, nil
}
