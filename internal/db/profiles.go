package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Profile Methods
// -----------------------------------------------------------------------------

const profileColumns = `id, fid, username, display_name, pfp_url, bio, headline, created_at, updated_at`

const profileSkillsQuery = `SELECT us.profile_id, s.id, s.name FROM user_skills us
	JOIN skills s ON s.id = us.skill_id
	WHERE us.profile_id = ANY($1::uuid[]) ORDER BY s.name`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*Profile, error) {
	var p Profile
	if err := row.Scan(&p.ID, &p.FID, &p.Username, &p.DisplayName, &p.PfpURL,
		&p.Bio, &p.Headline, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Skills = []Skill{}
	return &p, nil
}

// UpsertProfile creates or refreshes a profile from identity data. An existing
// display name edited by the user is kept.
func (db *DB) UpsertProfile(ctx context.Context, input *ProfileUpsertInput) (*Profile, error) {
	p, err := scanProfile(db.pool.QueryRow(ctx,
		`INSERT INTO profiles (fid, username, display_name, pfp_url, bio)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (fid) DO UPDATE SET
		     username = EXCLUDED.username,
		     display_name = COALESCE(NULLIF(profiles.display_name, ''), EXCLUDED.display_name),
		     pfp_url = EXCLUDED.pfp_url,
		     bio = COALESCE(NULLIF(profiles.bio, ''), EXCLUDED.bio),
		     updated_at = NOW()
		 RETURNING `+profileColumns,
		input.FID, input.Username, input.DisplayName, input.PfpURL, input.Bio,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert profile for fid %d: %w", input.FID, err)
	}
	return db.withProfileSkills(ctx, p)
}

// GetProfile retrieves a profile by ID, or nil if none exists
func (db *DB) GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	p, err := scanProfile(db.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return db.withProfileSkills(ctx, p)
}

// GetProfileByFID retrieves a profile by external identity id, or nil if none exists
func (db *DB) GetProfileByFID(ctx context.Context, fid int64) (*Profile, error) {
	p, err := scanProfile(db.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE fid = $1`, fid))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile by fid: %w", err)
	}
	return db.withProfileSkills(ctx, p)
}

// UpdateProfile applies user edits. Returns nil if the profile does not exist.
func (db *DB) UpdateProfile(ctx context.Context, id uuid.UUID, input *ProfileUpdateInput) (*Profile, error) {
	p, err := scanProfile(db.pool.QueryRow(ctx,
		`UPDATE profiles SET
		     display_name = COALESCE($2, display_name),
		     bio = COALESCE($3, bio),
		     headline = COALESCE($4, headline),
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+profileColumns,
		id, input.DisplayName, input.Bio, input.Headline,
	))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return db.withProfileSkills(ctx, p)
}

// ListProfiles retrieves talent, optionally restricted to holders of a skill
func (db *DB) ListProfiles(ctx context.Context, filters ProfileFilters) ([]Profile, error) {
	filters.Limit, filters.Offset = normalizePage(filters.Limit, filters.Offset)

	query := `SELECT ` + profileColumns + ` FROM profiles p WHERE 1=1`
	args := []any{}
	argNum := 1

	if filters.SkillID != nil {
		query += fmt.Sprintf(` AND EXISTS (SELECT 1 FROM user_skills us
			WHERE us.profile_id = p.id AND us.skill_id = $%d)`, argNum)
		args = append(args, *filters.SkillID)
		argNum++
	}

	query += fmt.Sprintf(" ORDER BY updated_at DESC LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filters.Limit, filters.Offset)

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	profiles := []Profile{}
	ids := []uuid.UUID{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, *p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}

	skillsByProfile, err := db.skillsFor(ctx, profileSkillsQuery, ids)
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		if skills, ok := skillsByProfile[profiles[i].ID]; ok {
			profiles[i].Skills = skills
		}
	}
	return profiles, nil
}

// ReplaceProfileSkills sets the profile's skills to exactly skillIDs
func (db *DB) ReplaceProfileSkills(ctx context.Context, profileID uuid.UUID, skillIDs []uuid.UUID) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM user_skills WHERE profile_id = $1`, profileID); err != nil {
		return fmt.Errorf("failed to clear profile skills: %w", err)
	}

	if len(skillIDs) > 0 {
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_skills (profile_id, skill_id)
			 SELECT $1, unnest($2::uuid[])
			 ON CONFLICT DO NOTHING`,
			profileID, skillIDs,
		); err != nil {
			return fmt.Errorf("failed to insert profile skills: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit profile skills: %w", err)
	}
	return nil
}

func (db *DB) withProfileSkills(ctx context.Context, p *Profile) (*Profile, error) {
	skills, err := db.skillsFor(ctx, profileSkillsQuery, []uuid.UUID{p.ID})
	if err != nil {
		return nil, err
	}
	if list, ok := skills[p.ID]; ok {
		p.Skills = list
	}
	return p, nil
}
