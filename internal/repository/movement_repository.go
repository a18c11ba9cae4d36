package repository

import (
	"context"
	"database/sql"
	"fmt"

	"stockroom/internal/domain"
)

// MovementRepository defines the interface for the append-only movement log.
// Movements are never updated or deleted.
type MovementRepository interface {
	Append(ctx context.Context, movement *domain.Movement) error
	ListByProduct(ctx context.Context, productID int) ([]*domain.Movement, error)
}

type movementRepository struct {
	db *sql.DB
}

// NewMovementRepository creates a new instance of MovementRepository
func NewMovementRepository(db *sql.DB) MovementRepository {
	return &movementRepository{db: db}
}

// Append writes a movement record, assigning its id and database timestamp
func (r *movementRepository) Append(ctx context.Context, movement *domain.Movement) error {
	query := `
		INSERT INTO movements (product_id, kind, quantity, note)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		movement.ProductID,
		movement.Kind,
		movement.Quantity,
		movement.Note,
	).Scan(&movement.ID, &movement.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to append movement: %w", err)
	}

	return nil
}

// ListByProduct retrieves the movement history of a product in chronological
// order
func (r *movementRepository) ListByProduct(ctx context.Context, productID int) ([]*domain.Movement, error) {
	query := `
		SELECT id, product_id, kind, quantity, note, created_at
		FROM movements
		WHERE product_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	defer rows.Close()

	movements := []*domain.Movement{}
	for rows.Next() {
		movement := &domain.Movement{}
		if err := rows.Scan(
			&movement.ID,
			&movement.ProductID,
			&movement.Kind,
			&movement.Quantity,
			&movement.Note,
			&movement.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		movements = append(movements, movement)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate movements: %w", err)
	}

	return movements, nil
}
