package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListSkills returns all skills ordered by name
func (db *DB) ListSkills(ctx context.Context) ([]Skill, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, name FROM skills ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list skills: %w", err)
	}
	defer rows.Close()

	skills := []Skill{}
	for rows.Next() {
		var s Skill
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("failed to scan skill: %w", err)
		}
		skills = append(skills, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate skills: %w", err)
	}
	return skills, nil
}

// CountSkills returns how many of ids exist
func (db *DB) CountSkills(ctx context.Context, ids []uuid.UUID) (int, error) {
	var n int
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM skills WHERE id = ANY($1::uuid[])`, ids,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count skills: %w", err)
	}
	return n, nil
}

// skillsFor runs a query returning (owner id, skill id, skill name) rows and
// groups the skills by owner.
func (db *DB) skillsFor(ctx context.Context, query string, ownerIDs []uuid.UUID) (map[uuid.UUID][]Skill, error) {
	result := make(map[uuid.UUID][]Skill)
	if len(ownerIDs) == 0 {
		return result, nil
	}

	rows, err := db.pool.Query(ctx, query, ownerIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load skills: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var owner uuid.UUID
		var s Skill
		if err := rows.Scan(&owner, &s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("failed to scan skill: %w", err)
		}
		result[owner] = append(result[owner], s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate skills: %w", err)
	}
	return result, nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
