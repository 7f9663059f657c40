package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Job Methods
// -----------------------------------------------------------------------------

// Job statuses
const (
	JobStatusOpen   = "open"
	JobStatusClosed = "closed"
	JobStatusFilled = "filled"
)

const jobColumns = `id, poster_id, title, description, budget_amount, budget_currency,
	deadline, status, created_at, updated_at`

const jobSkillsQuery = `SELECT js.job_id, s.id, s.name FROM job_skills js
	JOIN skills s ON s.id = js.skill_id
	WHERE js.job_id = ANY($1::uuid[]) ORDER BY s.name`

func scanJob(row rowScanner) (*Job, error) {
	var j Job
	var deadline *time.Time
	if err := row.Scan(&j.ID, &j.PosterID, &j.Title, &j.Description, &j.BudgetAmount,
		&j.BudgetCurrency, &deadline, &j.Status, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	j.Deadline = NewDate(deadline)
	j.Skills = []Skill{}
	return &j, nil
}

// CreateJob inserts a job and returns its generated id. Status defaults to open.
func (db *DB) CreateJob(ctx context.Context, input *JobCreateInput) (uuid.UUID, error) {
	status := input.Status
	if status == "" {
		status = JobStatusOpen
	}

	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO jobs (poster_id, title, description, budget_amount, budget_currency, deadline, status)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		input.PosterID, input.Title, input.Description, input.BudgetAmount,
		input.BudgetCurrency, input.Deadline, status,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create job: %w", err)
	}
	return id, nil
}

// AddJobSkills tags a job with skillIDs in a single statement. The ids are
// cast by the database, so a malformed id fails the whole insert.
func (db *DB) AddJobSkills(ctx context.Context, jobID uuid.UUID, skillIDs []string) error {
	if len(skillIDs) == 0 {
		return nil
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO job_skills (job_id, skill_id)
		 SELECT $1, unnest($2::text[]::uuid[])
		 ON CONFLICT DO NOTHING`,
		jobID, skillIDs,
	)
	if err != nil {
		return fmt.Errorf("failed to add job skills: %w", err)
	}
	return nil
}

// FindSkillMatches returns one row per (skill, holder) for every holder of a
// skill in skillIDs, excluding excludeProfileID.
func (db *DB) FindSkillMatches(ctx context.Context, skillIDs []string, excludeProfileID string) ([]SkillMatch, error) {
	if len(skillIDs) == 0 {
		return []SkillMatch{}, nil
	}

	rows, err := db.pool.Query(ctx,
		`SELECT us.skill_id, p.id, p.fid, p.username, p.display_name
		 FROM user_skills us
		 JOIN profiles p ON p.id = us.profile_id
		 WHERE us.skill_id = ANY($1::text[]::uuid[])
		   AND p.id::text <> $2
		 ORDER BY us.skill_id, p.created_at`,
		skillIDs, excludeProfileID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find skill matches: %w", err)
	}
	defer rows.Close()

	matches := []SkillMatch{}
	for rows.Next() {
		var m SkillMatch
		if err := rows.Scan(&m.SkillID, &m.Profile.ID, &m.Profile.FID,
			&m.Profile.Username, &m.Profile.DisplayName); err != nil {
			return nil, fmt.Errorf("failed to scan skill match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate skill matches: %w", err)
	}
	return matches, nil
}

// GetJob retrieves a job with its skills, or nil if none exists
func (db *DB) GetJob(ctx context.Context, id uuid.UUID) (*Job, error) {
	j, err := scanJob(db.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	skills, err := db.skillsFor(ctx, jobSkillsQuery, []uuid.UUID{j.ID})
	if err != nil {
		return nil, err
	}
	if list, ok := skills[j.ID]; ok {
		j.Skills = list
	}
	return j, nil
}

// ListJobs retrieves jobs newest first, with their skills
func (db *DB) ListJobs(ctx context.Context, filters JobFilters) ([]Job, error) {
	filters.Limit, filters.Offset = normalizePage(filters.Limit, filters.Offset)

	var conditions []string
	var args []any
	argNum := 1

	if filters.Status != "" {
		conditions = append(conditions, fmt.Sprintf("j.status = $%d", argNum))
		args = append(args, filters.Status)
		argNum++
	}
	if filters.PosterID != nil {
		conditions = append(conditions, fmt.Sprintf("j.poster_id = $%d", argNum))
		args = append(args, *filters.PosterID)
		argNum++
	}
	if filters.SkillID != nil {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM job_skills js WHERE js.job_id = j.id AND js.skill_id = $%d)", argNum))
		args = append(args, *filters.SkillID)
		argNum++
	}
	if q := strings.TrimSpace(filters.Query); q != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(j.title ILIKE $%d OR j.description ILIKE $%d)", argNum, argNum))
		args = append(args, "%"+escapeLike(q)+"%")
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, filters.Limit, filters.Offset)
	query := fmt.Sprintf(
		`SELECT j.id, j.poster_id, j.title, j.description, j.budget_amount, j.budget_currency,
		        j.deadline, j.status, j.created_at, j.updated_at
		 FROM jobs j %s
		 ORDER BY j.created_at DESC
		 LIMIT $%d OFFSET $%d`,
		whereClause, argNum, argNum+1,
	)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []Job{}
	ids := []uuid.UUID{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *j)
		ids = append(ids, j.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}

	skillsByJob, err := db.skillsFor(ctx, jobSkillsQuery, ids)
	if err != nil {
		return nil, err
	}
	for i := range jobs {
		if skills, ok := skillsByJob[jobs[i].ID]; ok {
			jobs[i].Skills = skills
		}
	}
	return jobs, nil
}

// UpdateJobStatus moves a job from one status to another. It returns
// ErrStatusChanged when the job is no longer in status from.
func (db *DB) UpdateJobStatus(ctx context.Context, id uuid.UUID, from, to string) (*Job, error) {
	j, err := scanJob(db.pool.QueryRow(ctx,
		`UPDATE jobs SET status = $3, updated_at = NOW()
		 WHERE id = $1 AND status = $2
		 RETURNING `+jobColumns,
		id, from, to,
	))
	if err != nil {
		if isNoRows(err) {
			return nil, ErrStatusChanged
		}
		return nil, fmt.Errorf("failed to update job status: %w", err)
	}

	skills, err := db.skillsFor(ctx, jobSkillsQuery, []uuid.UUID{j.ID})
	if err != nil {
		return nil, err
	}
	if list, ok := skills[j.ID]; ok {
		j.Skills = list
	}
	return j, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
