package server

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/farlance/internal/db"
	"github.com/jonathan/farlance/internal/identity"
	"github.com/jonathan/farlance/internal/notify"
)

// fakeStore is an in-memory Store. userSkills maps skill id to holders.
type fakeStore struct {
	mu           sync.Mutex
	jobs         map[uuid.UUID]*db.Job
	profiles     map[uuid.UUID]*db.Profile
	skills       []db.Skill
	userSkills   map[string][]db.ProfileRef
	applications []db.Application

	createErr   error
	panicCreate bool
	pingErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		jobs:       make(map[uuid.UUID]*db.Job),
		profiles:   make(map[uuid.UUID]*db.Profile),
		userSkills: make(map[string][]db.ProfileRef),
		skills: []db.Skill{
			{ID: uuid.New(), Name: "Go"},
			{ID: uuid.New(), Name: "Solidity"},
		},
	}
}

func (f *fakeStore) addProfile(fid int64, username string, skills ...uuid.UUID) *db.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &db.Profile{ID: uuid.New(), FID: fid, Username: username, Skills: []db.Skill{}}
	f.profiles[p.ID] = p
	for _, s := range skills {
		key := s.String()
		f.userSkills[key] = append(f.userSkills[key], db.ProfileRef{ID: p.ID, FID: fid, Username: username})
	}
	return p
}

func (f *fakeStore) addJob(posterID uuid.UUID, title, status string) *db.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	job := &db.Job{ID: uuid.New(), PosterID: posterID, Title: title, Status: status, Skills: []db.Skill{}, CreatedAt: time.Now()}
	f.jobs[job.ID] = job
	return job
}

func (f *fakeStore) CreateJob(_ context.Context, input *db.JobCreateInput) (uuid.UUID, error) {
	if f.panicCreate {
		panic("create job exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return uuid.Nil, f.createErr
	}
	posterID, err := uuid.Parse(input.PosterID)
	if err != nil {
		return uuid.Nil, err
	}
	job := &db.Job{
		ID:          uuid.New(),
		PosterID:    posterID,
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		Skills:      []db.Skill{},
		CreatedAt:   time.Now(),
	}
	f.jobs[job.ID] = job
	return job.ID, nil
}

func (f *fakeStore) AddJobSkills(context.Context, uuid.UUID, []string) error {
	return nil
}

func (f *fakeStore) FindSkillMatches(_ context.Context, skillIDs []string, excludeProfileID string) ([]db.SkillMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matches []db.SkillMatch
	for _, s := range skillIDs {
		for _, ref := range f.userSkills[s] {
			if ref.ID.String() == excludeProfileID {
				continue
			}
			matches = append(matches, db.SkillMatch{SkillID: uuid.MustParse(s), Profile: ref})
		}
	}
	return matches, nil
}

func (f *fakeStore) GetJob(_ context.Context, id uuid.UUID) (*db.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, nil
	}
	copied := *job
	return &copied, nil
}

func (f *fakeStore) ListJobs(_ context.Context, filters db.JobFilters) ([]db.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.Job
	for _, job := range f.jobs {
		if filters.Status != "" && job.Status != filters.Status {
			continue
		}
		if filters.PosterID != nil && job.PosterID != *filters.PosterID {
			continue
		}
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) UpdateJobStatus(_ context.Context, id uuid.UUID, from, to string) (*db.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok || job.Status != from {
		return nil, db.ErrStatusChanged
	}
	job.Status = to
	copied := *job
	return &copied, nil
}

func (f *fakeStore) GetProfile(_ context.Context, id uuid.UUID) (*db.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (f *fakeStore) GetProfileByFID(_ context.Context, fid int64) (*db.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.FID == fid {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListProfiles(_ context.Context, filters db.ProfileFilters) ([]db.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.Profile
	if filters.SkillID != nil {
		for _, ref := range f.userSkills[filters.SkillID.String()] {
			out = append(out, *f.profiles[ref.ID])
		}
		return out, nil
	}
	for _, p := range f.profiles {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeStore) UpsertProfile(_ context.Context, input *db.ProfileUpsertInput) (*db.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.profiles {
		if p.FID == input.FID {
			p.Username = input.Username
			p.PfpURL = input.PfpURL
			copied := *p
			return &copied, nil
		}
	}
	p := &db.Profile{
		ID:          uuid.New(),
		FID:         input.FID,
		Username:    input.Username,
		DisplayName: input.DisplayName,
		PfpURL:      input.PfpURL,
		Bio:         input.Bio,
		Skills:      []db.Skill{},
	}
	f.profiles[p.ID] = p
	copied := *p
	return &copied, nil
}

func (f *fakeStore) UpdateProfile(_ context.Context, id uuid.UUID, input *db.ProfileUpdateInput) (*db.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, nil
	}
	if input.DisplayName != nil {
		p.DisplayName = *input.DisplayName
	}
	if input.Bio != nil {
		p.Bio = *input.Bio
	}
	if input.Headline != nil {
		p.Headline = *input.Headline
	}
	copied := *p
	return &copied, nil
}

func (f *fakeStore) ReplaceProfileSkills(_ context.Context, profileID uuid.UUID, skillIDs []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[profileID]
	if !ok {
		return errors.New("profile missing")
	}
	p.Skills = []db.Skill{}
	for _, id := range skillIDs {
		for _, s := range f.skills {
			if s.ID == id {
				p.Skills = append(p.Skills, s)
			}
		}
	}
	return nil
}

func (f *fakeStore) CountSkills(_ context.Context, ids []uuid.UUID) (int, error) {
	n := 0
	for _, id := range ids {
		for _, s := range f.skills {
			if s.ID == id {
				n++
			}
		}
	}
	return n, nil
}

func (f *fakeStore) ListSkills(context.Context) ([]db.Skill, error) {
	return f.skills, nil
}

func (f *fakeStore) CreateApplication(_ context.Context, jobID, applicantID uuid.UUID, message string) (*db.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.applications {
		if a.JobID == jobID && a.ApplicantID == applicantID {
			return nil, db.ErrDuplicate
		}
	}
	app := db.Application{ID: uuid.New(), JobID: jobID, ApplicantID: applicantID, Message: message, Status: db.ApplicationStatusSubmitted}
	f.applications = append(f.applications, app)
	return &app, nil
}

func (f *fakeStore) ListApplications(_ context.Context, jobID uuid.UUID) ([]db.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []db.Application{}
	for _, a := range f.applications {
		if a.JobID == jobID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) Ping(context.Context) error {
	return f.pingErr
}

type fakeIdentity struct {
	signers map[string]*identity.Signer
	users   map[int64]*identity.User
}

func (f *fakeIdentity) LookupSigner(_ context.Context, signerUUID string) (*identity.Signer, error) {
	s, ok := f.signers[signerUUID]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return s, nil
}

func (f *fakeIdentity) UserByFID(_ context.Context, fid int64) (*identity.User, error) {
	u, ok := f.users[fid]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return u, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []int64
	last  notify.Notification
	delay time.Duration
}

func (n *fakeNotifier) Send(_ context.Context, fid int64, msg notify.Notification) (notify.Outcome, error) {
	time.Sleep(n.delay)
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, fid)
	n.last = msg
	return notify.OutcomeSuccess, nil
}

func (n *fakeNotifier) sentFIDs() []int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]int64(nil), n.sent...)
}
