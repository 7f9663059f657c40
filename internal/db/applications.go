package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// CreateApplication records an application. Returns ErrDuplicate if the
// applicant already applied to the job.
func (db *DB) CreateApplication(ctx context.Context, jobID, applicantID uuid.UUID, message string) (*Application, error) {
	var a Application
	err := db.pool.QueryRow(ctx,
		`INSERT INTO applications (job_id, applicant_id, message, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, job_id, applicant_id, message, status, created_at`,
		jobID, applicantID, message, ApplicationStatusSubmitted,
	).Scan(&a.ID, &a.JobID, &a.ApplicantID, &a.Message, &a.Status, &a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	return &a, nil
}

// ListApplications returns a job's applications with applicant profiles, oldest first
func (db *DB) ListApplications(ctx context.Context, jobID uuid.UUID) ([]Application, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT a.id, a.job_id, a.applicant_id, a.message, a.status, a.created_at,
		        p.id, p.fid, p.username, p.display_name
		 FROM applications a
		 JOIN profiles p ON p.id = a.applicant_id
		 WHERE a.job_id = $1
		 ORDER BY a.created_at`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	apps := []Application{}
	for rows.Next() {
		var a Application
		var ref ProfileRef
		if err := rows.Scan(&a.ID, &a.JobID, &a.ApplicantID, &a.Message, &a.Status, &a.CreatedAt,
			&ref.ID, &ref.FID, &ref.Username, &ref.DisplayName); err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		a.Applicant = &ref
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate applications: %w", err)
	}
	return apps, nil
}
