package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akave-ai/auditlens/internal/model"
)

const inputColumns = `id, type, title, kind, configuration, created_at, desired_state`

// InputRepository persists and reads input definitions in PostgreSQL.
type InputRepository struct {
	pool *pgxpool.Pool
}

// NewInputRepository returns an InputRepository using the given pool.
func NewInputRepository(pool *pgxpool.Pool) *InputRepository {
	return &InputRepository{pool: pool}
}

// Ping checks that the database accepts connections.
func (r *InputRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Create inserts a new input and returns it with ID and CreatedAt set.
func (r *InputRepository) Create(ctx context.Context, input *model.Input) error {
	query := `
		INSERT INTO inputs (id, type, title, kind, configuration, desired_state)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	if input.ID == uuid.Nil {
		input.ID = uuid.New()
	}
	err := r.pool.QueryRow(ctx, query,
		input.ID,
		input.Type,
		input.Title,
		input.Kind,
		input.Configuration,
		input.DesiredState,
	).Scan(&input.ID, &input.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert input: %w", err)
	}
	return nil
}

// List returns all inputs ordered by created_at descending.
func (r *InputRepository) List(ctx context.Context) ([]model.Input, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+inputColumns+` FROM inputs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list inputs: %w", err)
	}
	list, err := pgx.CollectRows(rows, scanInput)
	if err != nil {
		return nil, fmt.Errorf("list inputs: %w", err)
	}
	return list, nil
}

// GetByID returns one input by id, or nil if not found.
func (r *InputRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Input, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+inputColumns+` FROM inputs WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get input: %w", err)
	}
	in, err := pgx.CollectExactlyOneRow(rows, scanInput)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get input: %w", err)
	}
	return &in, nil
}

// Delete removes an input. found is false when no row had that id.
func (r *InputRepository) Delete(ctx context.Context, id uuid.UUID) (found bool, err error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM inputs WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete input: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateState stores a new desired state.
func (r *InputRepository) UpdateState(ctx context.Context, id uuid.UUID, state model.InputState) error {
	tag, err := r.pool.Exec(ctx, `UPDATE inputs SET desired_state = $2 WHERE id = $1`, id, state)
	if err != nil {
		return fmt.Errorf("update input state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanInput(row pgx.CollectableRow) (model.Input, error) {
	var in model.Input
	err := row.Scan(
		&in.ID,
		&in.Type,
		&in.Title,
		&in.Kind,
		&in.Configuration,
		&in.CreatedAt,
		&in.DesiredState,
	)
	return in, err
}
