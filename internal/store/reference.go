package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pitchlabs/pitchcoach/internal/models"
)

type referenceRepo struct {
	pool *pgxpool.Pool
}

func (r *referenceRepo) ListRoles(ctx context.Context) ([]models.Role, error) {
	const query = `SELECT id, name, title, style, voice, instructions, photo_url, created_at FROM roles ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	roles := make([]models.Role, 0)
	for rows.Next() {
		var role models.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Title, &role.Style, &role.Voice, &role.Instructions, &role.PhotoURL, &role.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}

	return roles, rows.Err()
}

func (r *referenceRepo) GetRole(ctx context.Context, id string) (*models.Role, error) {
	const query = `SELECT id, name, title, style, voice, instructions, photo_url, created_at FROM roles WHERE id = $1`

	var role models.Role
	if err := r.pool.QueryRow(ctx, query, id).Scan(&role.ID, &role.Name, &role.Title, &role.Style, &role.Voice, &role.Instructions, &role.PhotoURL, &role.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query role: %w", err)
	}

	return &role, nil
}

// CreateRole inserts a role unless one with the same name already exists.
// It reports whether a row was written, which keeps startup seeding idempotent.
func (r *referenceRepo) CreateRole(ctx context.Context, role *models.Role) (bool, error) {
	const query = `INSERT INTO roles (id, name, title, style, voice, instructions, photo_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (name) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query, role.ID, role.Name, role.Title, role.Style, role.Voice, role.Instructions, role.PhotoURL, role.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert role: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *referenceRepo) ListScenarios(ctx context.Context) ([]models.Scenario, error) {
	const query = `SELECT id, name, description, instructions, rubric, created_at FROM scenarios ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query scenarios: %w", err)
	}
	defer rows.Close()

	scenarios := make([]models.Scenario, 0)
	for rows.Next() {
		scenario, err := scanScenario(rows)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, *scenario)
	}

	return scenarios, rows.Err()
}

func (r *referenceRepo) GetScenario(ctx context.Context, id string) (*models.Scenario, error) {
	const query = `SELECT id, name, description, instructions, rubric, created_at FROM scenarios WHERE id = $1`

	scenario, err := scanScenario(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return scenario, nil
}

func (r *referenceRepo) CreateScenario(ctx context.Context, scenario *models.Scenario) (bool, error) {
	rubric, err := json.Marshal(scenario.Rubric)
	if err != nil {
		return false, fmt.Errorf("marshal rubric: %w", err)
	}

	const query = `INSERT INTO scenarios (id, name, description, instructions, rubric, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO NOTHING`

	tag, err := r.pool.Exec(ctx, query, scenario.ID, scenario.Name, scenario.Description, scenario.Instructions, string(rubric), scenario.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert scenario: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func scanScenario(row pgx.Row) (*models.Scenario, error) {
	var (
		scenario models.Scenario
		rubric   string
	)
	if err := row.Scan(&scenario.ID, &scenario.Name, &scenario.Description, &scenario.Instructions, &rubric, &scenario.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scan scenario: %w", err)
	}

	// The rubric column stores an ordered JSON list of criteria. A corrupt
	// value degrades to an empty rubric rather than failing the read.
	if err := json.Unmarshal([]byte(rubric), &scenario.Rubric); err != nil {
		scenario.Rubric = nil
	}

	return &scenario, nil
}
