package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Stocking thresholds are a global business rule: every product carries the
// same minimum/maximum pair, enforced by the repository on insert and update.
const (
	GlobalMinStock = 25
	GlobalMaxStock = 100
)

// Product represents a product in the inventory
type Product struct {
	ID       int             `json:"id" db:"id"`
	Name     string          `json:"name" db:"name"`
	Price    decimal.Decimal `json:"price" db:"price"`
	Unit     string          `json:"unit" db:"unit"`
	Category string          `json:"category" db:"category"`
	Quantity int             `json:"quantity" db:"quantity"`
	MinStock int             `json:"min_stock" db:"min_stock"`
	MaxStock int             `json:"max_stock" db:"max_stock"`
}

// Validate checks the product's field constraints
func (p *Product) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("product name is required: %w", ErrValidation)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("price cannot be negative: %w", ErrValidation)
	}
	return nil
}

// Category represents a product category. Products reference categories by
// name only; there is no foreign key between the two.
type Category struct {
	ID        int    `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	Packaging string `json:"packaging" db:"packaging"`
	Size      string `json:"size" db:"size"`
}

// Validate checks the category's field constraints
func (c *Category) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("category name is required: %w", ErrValidation)
	}
	return nil
}
