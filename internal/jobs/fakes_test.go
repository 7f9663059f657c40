package jobs

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/jonathan/farlance/internal/db"
	"github.com/jonathan/farlance/internal/notify"
)

// memStore is an in-memory Store. userSkills maps skill id to holders.
type memStore struct {
	mu           sync.Mutex
	jobs         map[uuid.UUID]*db.Job
	jobSkills    map[uuid.UUID][]string
	profiles     map[uuid.UUID]*db.Profile
	userSkills   map[string][]db.ProfileRef
	applications []db.Application

	createErr error
	tagErr    error
	matchErr  error
}

func newMemStore() *memStore {
	return &memStore{
		jobs:       make(map[uuid.UUID]*db.Job),
		jobSkills:  make(map[uuid.UUID][]string),
		profiles:   make(map[uuid.UUID]*db.Profile),
		userSkills: make(map[string][]db.ProfileRef),
	}
}

func (m *memStore) addProfile(fid int64, username string, skills ...string) *db.Profile {
	p := &db.Profile{ID: uuid.New(), FID: fid, Username: username}
	m.profiles[p.ID] = p
	for _, s := range skills {
		m.userSkills[s] = append(m.userSkills[s], db.ProfileRef{ID: p.ID, FID: fid, Username: username})
	}
	return p
}

func (m *memStore) CreateJob(_ context.Context, input *db.JobCreateInput) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return uuid.Nil, m.createErr
	}
	posterID, err := uuid.Parse(input.PosterID)
	if err != nil {
		return uuid.Nil, err
	}
	job := &db.Job{
		ID:             uuid.New(),
		PosterID:       posterID,
		Title:          input.Title,
		Description:    input.Description,
		BudgetAmount:   input.BudgetAmount,
		BudgetCurrency: input.BudgetCurrency,
		Deadline:       db.NewDate(input.Deadline),
		Status:         input.Status,
	}
	m.jobs[job.ID] = job
	return job.ID, nil
}

func (m *memStore) AddJobSkills(_ context.Context, jobID uuid.UUID, skillIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tagErr != nil {
		return m.tagErr
	}
	m.jobSkills[jobID] = append(m.jobSkills[jobID], skillIDs...)
	return nil
}

func (m *memStore) FindSkillMatches(_ context.Context, skillIDs []string, excludeProfileID string) ([]db.SkillMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.matchErr != nil {
		return nil, m.matchErr
	}
	var matches []db.SkillMatch
	for _, s := range skillIDs {
		for _, ref := range m.userSkills[s] {
			if ref.ID.String() == excludeProfileID {
				continue
			}
			matches = append(matches, db.SkillMatch{SkillID: uuid.MustParse(s), Profile: ref})
		}
	}
	return matches, nil
}

func (m *memStore) GetJob(_ context.Context, id uuid.UUID) (*db.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, nil
	}
	copied := *job
	return &copied, nil
}

func (m *memStore) UpdateJobStatus(_ context.Context, id uuid.UUID, from, to string) (*db.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok || job.Status != from {
		return nil, db.ErrStatusChanged
	}
	job.Status = to
	copied := *job
	return &copied, nil
}

func (m *memStore) GetProfile(_ context.Context, id uuid.UUID) (*db.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profiles[id], nil
}

func (m *memStore) CreateApplication(_ context.Context, jobID, applicantID uuid.UUID, message string) (*db.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.applications {
		if a.JobID == jobID && a.ApplicantID == applicantID {
			return nil, db.ErrDuplicate
		}
	}
	app := db.Application{ID: uuid.New(), JobID: jobID, ApplicantID: applicantID, Message: message, Status: db.ApplicationStatusSubmitted}
	m.applications = append(m.applications, app)
	return &app, nil
}

func (m *memStore) ListApplications(_ context.Context, jobID uuid.UUID) ([]db.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []db.Application{}
	for _, a := range m.applications {
		if a.JobID == jobID {
			out = append(out, a)
		}
	}
	return out, nil
}

// recordingNotifier records every send. Outcomes are looked up by fid and
// default to success; a fid in fail gets an error outcome.
type recordingNotifier struct {
	mu       sync.Mutex
	sent     []int64
	payloads []notify.Notification
	outcomes map[int64]notify.Outcome
	ctxErrs  []error
}

func (r *recordingNotifier) Send(ctx context.Context, fid int64, n notify.Notification) (notify.Outcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, fid)
	r.payloads = append(r.payloads, n)
	r.ctxErrs = append(r.ctxErrs, ctx.Err())

	if o, ok := r.outcomes[fid]; ok && o != notify.OutcomeSuccess {
		return o, errors.New("delivery failed")
	}
	return notify.OutcomeSuccess, nil
}
