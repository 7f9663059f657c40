package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/farlance/internal/db"
	"github.com/jonathan/farlance/internal/log"
	"github.com/jonathan/farlance/internal/metrics"
	"github.com/jonathan/farlance/internal/notify"
)

// Apply records applicant's application to an open job and tells the poster.
// The poster push is best effort.
func (s *Service) Apply(ctx context.Context, jobID uuid.UUID, applicant *db.Profile, message string) (*db.Application, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	if job.Status != db.JobStatusOpen {
		return nil, ErrJobNotOpen
	}
	if job.PosterID == applicant.ID {
		return nil, ErrSelfApplication
	}

	app, err := s.store.CreateApplication(ctx, jobID, applicant.ID, message)
	if err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return nil, ErrAlreadyApplied
		}
		return nil, err
	}

	s.notifyPoster(ctx, job, applicant, app)
	return app, nil
}

func (s *Service) notifyPoster(ctx context.Context, job *db.Job, applicant *db.Profile, app *db.Application) {
	poster, err := s.store.GetProfile(ctx, job.PosterID)
	if err != nil {
		log.Error(ctx, "failed to load poster for applicant notification", err)
		return
	}
	if poster == nil || poster.FID <= 0 {
		return
	}

	n := notify.Notification{
		Title:     "New applicant",
		Body:      truncate(fmt.Sprintf("@%s applied to %s", applicant.Username, job.Title), maxBodyLen),
		TargetURL: jobURL(s.appURL, job.ID),
		UUID:      app.ID.String(),
	}
	s.Fanout(ctx, metrics.KindNewApplicant, []int64{poster.FID}, n)
}

// Applications lists a job's applications for its poster.
func (s *Service) Applications(ctx context.Context, jobID, actorID uuid.UUID) ([]db.Application, error) {
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
	return s.store.ListApplications(ctx, jobID)
}
