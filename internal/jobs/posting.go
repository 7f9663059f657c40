// Package jobs implements job posting with skill-based notification fan-out,
// the job status lifecycle and applications.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/farlance/internal/db"
	"github.com/jonathan/farlance/internal/log"
	"github.com/jonathan/farlance/internal/metrics"
	"github.com/jonathan/farlance/internal/notify"
)

// Push API limits, in characters.
const (
	maxTitleLen = 32
	maxBodyLen  = 128
)

// Store is the persistence the job flows need.
type Store interface {
	CreateJob(ctx context.Context, input *db.JobCreateInput) (uuid.UUID, error)
	AddJobSkills(ctx context.Context, jobID uuid.UUID, skillIDs []string) error
	FindSkillMatches(ctx context.Context, skillIDs []string, excludeProfileID string) ([]db.SkillMatch, error)
	GetJob(ctx context.Context, id uuid.UUID) (*db.Job, error)
	UpdateJobStatus(ctx context.Context, id uuid.UUID, from, to string) (*db.Job, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*db.Profile, error)
	CreateApplication(ctx context.Context, jobID, applicantID uuid.UUID, message string) (*db.Application, error)
	ListApplications(ctx context.Context, jobID uuid.UUID) ([]db.Application, error)
}

// Notifier delivers one push notification.
type Notifier interface {
	Send(ctx context.Context, fid int64, n notify.Notification) (notify.Outcome, error)
}

// Options configures a Service.
type Options struct {
	AppURL      string // Origin for deep links
	Concurrency int    // Parallel deliveries per fan-out; values below 1 mean sequential
}

// Service runs the job flows.
type Service struct {
	store    Store
	notifier Notifier
	metrics  *metrics.Metrics
	appURL   string
	limit    int
}

// NewService creates a Service. A nil m uses unregistered metrics.
func NewService(store Store, notifier Notifier, m *metrics.Metrics, opts Options) *Service {
	if m == nil {
		m = metrics.NewNop()
	}
	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}
	return &Service{
		store:    store,
		notifier: notifier,
		metrics:  m,
		appURL:   strings.TrimRight(opts.AppURL, "/"),
		limit:    limit,
	}
}

// FanoutReport counts delivery outcomes for one fan-out.
type FanoutReport struct {
	Attempted   int `json:"attempted"`
	Success     int `json:"success"`
	NoToken     int `json:"noToken"`
	RateLimited int `json:"rateLimited"`
	Error       int `json:"error"`
}

func (r *FanoutReport) record(o notify.Outcome) {
	r.Attempted++
	switch o {
	case notify.OutcomeSuccess:
		r.Success++
	case notify.OutcomeNoToken:
		r.NoToken++
	case notify.OutcomeRateLimited:
		r.RateLimited++
	default:
		r.Error++
	}
}

// PostResult describes a completed posting.
type PostResult struct {
	JobID      uuid.UUID
	Matched    int     // Matcher rows before deduplication
	Recipients []int64 // Deduplicated fids that were notified
	Report     FanoutReport
}

// Post validates req, creates the job, tags its skills and notifies every
// matching user once. Only validation and job creation can fail the call;
// later steps are logged and skipped.
func (s *Service) Post(ctx context.Context, req *PostRequest) (*PostResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	data := req.JobData

	jobID, err := s.store.CreateJob(ctx, &db.JobCreateInput{
		PosterID:       data.PosterID,
		Title:          data.Title,
		Description:    data.Description,
		BudgetAmount:   data.BudgetAmount.Value,
		BudgetCurrency: data.BudgetCurrency,
		Deadline:       data.Deadline.Value,
		Status:         db.JobStatusOpen,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	s.metrics.JobsPosted.Inc()

	// The job is committed; the remaining steps must not depend on the caller staying connected
	ctx = log.With(context.WithoutCancel(ctx), "jobId", jobID.String())
	result := &PostResult{JobID: jobID, Recipients: []int64{}}

	if err := s.store.AddJobSkills(ctx, jobID, req.SelectedSkillIDs); err != nil {
		s.metrics.JobSkillTagFailures.Inc()
		log.Error(ctx, "failed to tag job skills", err, slog.Int("skills", len(req.SelectedSkillIDs)))
	}

	matches, err := s.store.FindSkillMatches(ctx, req.SelectedSkillIDs, data.PosterID)
	if err != nil {
		s.metrics.MatchFailures.Inc()
		log.Error(ctx, "failed to find matching users", err)
		return result, nil
	}
	result.Matched = len(matches)
	result.Recipients = UniqueRecipients(matches, req.PosterFID)

	n := JobNotification(s.appURL, jobID, data.Title, data.Description)
	result.Report = s.Fanout(ctx, metrics.KindJobMatch, result.Recipients, n)

	log.Info(ctx, "job posted",
		slog.Int("matched", result.Matched),
		slog.Int("recipients", len(result.Recipients)),
		slog.Int("delivered", result.Report.Success),
	)
	return result, nil
}

// UniqueRecipients reduces matches to distinct positive fids in first-seen
// order, dropping posterFID.
func UniqueRecipients(matches []db.SkillMatch, posterFID int64) []int64 {
	seen := make(map[int64]struct{}, len(matches))
	fids := []int64{}
	for _, m := range matches {
		fid := m.Profile.FID
		if fid <= 0 || fid == posterFID {
			continue
		}
		if _, ok := seen[fid]; ok {
			continue
		}
		seen[fid] = struct{}{}
		fids = append(fids, fid)
	}
	return fids
}

// JobNotification builds the new-job push for a posting.
func JobNotification(appURL string, jobID uuid.UUID, title, description string) notify.Notification {
	return notify.Notification{
		Title:     truncate("New job: "+title, maxTitleLen),
		Body:      truncate(description, maxBodyLen),
		TargetURL: jobURL(appURL, jobID),
		UUID:      jobID.String(),
	}
}

// Fanout sends n to every fid, at most s.limit at a time. It runs detached
// from ctx cancellation so a disconnecting client does not cut delivery
// short. Every delivery is attempted regardless of earlier failures.
func (s *Service) Fanout(ctx context.Context, kind string, fids []int64, n notify.Notification) FanoutReport {
	ctx = context.WithoutCancel(ctx)

	var (
		mu     sync.Mutex
		report FanoutReport
	)

	g := new(errgroup.Group)
	g.SetLimit(s.limit)
	for _, fid := range fids {
		g.Go(func() error {
			outcome, err := s.notifier.Send(ctx, fid, n)
			s.metrics.Notifications.WithLabelValues(kind, string(outcome)).Inc()

			attrs := []slog.Attr{slog.Int64("fid", fid), slog.String("outcome", string(outcome))}
			if err != nil {
				log.Warn(ctx, "notification not delivered", append(attrs, slog.String("error", err.Error()))...)
			} else {
				log.Debug(ctx, "notification delivered", attrs...)
			}

			mu.Lock()
			report.record(outcome)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return report
}

func jobURL(appURL string, jobID uuid.UUID) string {
	return appURL + "/jobs/" + jobID.String()
}

// truncate shortens s to at most limit runes, ending in an ellipsis when cut.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
