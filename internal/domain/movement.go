package domain

import (
	"fmt"
	"time"
)

// Movement kinds
const (
	MovementIncrease = "increase"
	MovementDecrease = "decrease"
)

// Movement is an append-only record of a stock change applied to a product.
// Movements are never updated or deleted once written.
type Movement struct {
	ID        int       `json:"id" db:"id"`
	ProductID int       `json:"product_id" db:"product_id"`
	Kind      string    `json:"kind" db:"kind"`
	Quantity  int       `json:"quantity" db:"quantity"`
	Note      string    `json:"note" db:"note"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ValidMovementKind reports whether kind is one of the known movement kinds
func ValidMovementKind(kind string) bool {
	return kind == MovementIncrease || kind == MovementDecrease
}

// Validate checks the movement's field constraints
func (m *Movement) Validate() error {
	if !ValidMovementKind(m.Kind) {
		return fmt.Errorf("unknown movement kind %q: %w", m.Kind, ErrValidation)
	}
	if m.Quantity <= 0 {
		return fmt.Errorf("movement quantity must be positive: %w", ErrValidation)
	}
	return nil
}
