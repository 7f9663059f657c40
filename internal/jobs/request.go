package jobs

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// PostRequest is the body of a job posting.
type PostRequest struct {
	JobData          *JobData `json:"jobData"`
	SelectedSkillIDs []string `json:"selectedSkillIds"`
	PosterFID        int64    `json:"posterFid"`
}

// JobData holds the job fields as submitted. Budget and deadline are parsed
// leniently: unusable values are dropped rather than rejected.
type JobData struct {
	PosterID       string     `json:"posterId"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	BudgetAmount   LooseFloat `json:"budgetAmount"`
	BudgetCurrency *string    `json:"budgetCurrency"`
	Deadline       LooseDate  `json:"deadline"`
}

// Validate checks that the three required parts are present. Nothing else is
// checked.
func (r *PostRequest) Validate() error {
	if r == nil || r.JobData == nil || len(r.SelectedSkillIDs) == 0 || r.PosterFID == 0 {
		return ErrInvalidInput
	}
	return nil
}

// LooseFloat accepts a JSON number or numeric string. Anything else decodes
// to an absent value without error.
type LooseFloat struct {
	Value *float64
}

// UnmarshalJSON implements json.Unmarshaler
func (f *LooseFloat) UnmarshalJSON(data []byte) error {
	f.Value = nil
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		f.Value = &n
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			f.Value = &parsed
		}
	}
	return nil
}

// LooseDate accepts YYYY-MM-DD or RFC 3339 strings. Anything else decodes to
// an absent value without error.
type LooseDate struct {
	Value *time.Time
}

// UnmarshalJSON implements json.Unmarshaler
func (d *LooseDate) UnmarshalJSON(data []byte) error {
	d.Value = nil

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil
	}
	s = strings.TrimSpace(s)

	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			d.Value = &day
			return nil
		}
	}
	return nil
}
