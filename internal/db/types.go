package db

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Profile represents a marketplace user keyed by their external identity (fid)
type Profile struct {
	ID          uuid.UUID `json:"id"`
	FID         int64     `json:"fid"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
	PfpURL      string    `json:"pfpUrl,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	Headline    string    `json:"headline,omitempty"`
	Skills      []Skill   `json:"skills"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ProfileRef is the subset of a profile carried by joins
type ProfileRef struct {
	ID          uuid.UUID `json:"id"`
	FID         int64     `json:"fid"`
	Username    string    `json:"username"`
	DisplayName string    `json:"displayName"`
}

// ProfileUpsertInput holds identity data refreshed on sign-in
type ProfileUpsertInput struct {
	FID         int64
	Username    string
	DisplayName string
	PfpURL      string
	Bio         string
}

// ProfileUpdateInput holds user-editable profile fields; nil leaves a field unchanged
type ProfileUpdateInput struct {
	DisplayName *string
	Bio         *string
	Headline    *string
}

// Skill is static reference data
type Skill struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Job represents a posted work opportunity
type Job struct {
	ID             uuid.UUID `json:"id"`
	PosterID       uuid.UUID `json:"posterId"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	BudgetAmount   *float64  `json:"budgetAmount,omitempty"`
	BudgetCurrency *string   `json:"budgetCurrency,omitempty"`
	Deadline       *Date     `json:"deadline,omitempty"`
	Status         string    `json:"status"`
	Skills         []Skill   `json:"skills"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// JobCreateInput holds the fields written by CreateJob. PosterID is passed
// through as text and cast by the database.
type JobCreateInput struct {
	PosterID       string
	Title          string
	Description    string
	BudgetAmount   *float64
	BudgetCurrency *string
	Deadline       *time.Time
	Status         string
}

// JobFilters holds optional filters for listing jobs
type JobFilters struct {
	Status   string
	SkillID  *uuid.UUID
	PosterID *uuid.UUID
	Query    string
	Limit    int
	Offset   int
}

// ProfileFilters holds optional filters for listing talent
type ProfileFilters struct {
	SkillID *uuid.UUID
	Limit   int
	Offset  int
}

// SkillMatch is one (skill, holder) pair returned by the matcher query.
// Every match carries exactly one profile.
type SkillMatch struct {
	SkillID uuid.UUID
	Profile ProfileRef
}

// Application is a profile's application to a job
type Application struct {
	ID          uuid.UUID   `json:"id"`
	JobID       uuid.UUID   `json:"jobId"`
	ApplicantID uuid.UUID   `json:"applicantId"`
	Message     string      `json:"message"`
	Status      string      `json:"status"`
	Applicant   *ProfileRef `json:"applicant,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// ApplicationStatusSubmitted is the initial status of an application
const ApplicationStatusSubmitted = "submitted"

// Date is a calendar date serialized as YYYY-MM-DD
type Date struct {
	time.Time
}

// NewDate wraps t, returning nil for a nil time
func NewDate(t *time.Time) *Date {
	if t == nil {
		return nil
	}
	return &Date{Time: *t}
}

// MarshalJSON implements json.Marshaler
func (d *Date) MarshalJSON() ([]byte, error) {
	if d == nil || d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(time.DateOnly))
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	str := string(data)
	if str == "null" || str == `""` {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	var err error
	d.Time, err = time.Parse(time.DateOnly, s)
	return err
}
