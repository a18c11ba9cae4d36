package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"stockroom/internal/domain"
	"stockroom/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// movementNote is the fixed annotation written with every movement record
const movementNote = "system movement"

// Warning classifies a successful movement against the product's thresholds
type Warning int

const (
	WarningNone Warning = iota
	WarningBelowMinimum
	WarningAboveMaximum
)

// MovementInput is a requested stock change for one product
type MovementInput struct {
	ProductID int
	Quantity  int
	Kind      string
}

// MovementResult carries the updated product snapshot, the threshold
// classification and, for warnings, an advisory naming the product
type MovementResult struct {
	Product *domain.Product
	Warning Warning
	Alert   string
}

// BalanceLine is one product's contribution to the balance report
type BalanceLine struct {
	Product *domain.Product
	Total   decimal.Decimal
}

// Balance is the physical/financial balance of the whole inventory
type Balance struct {
	Items      []BalanceLine
	GrandTotal decimal.Decimal
}

// StockService coordinates stock movements, price adjustments and the
// read-only inventory reports
type StockService interface {
	RegisterMovement(ctx context.Context, in MovementInput) (*MovementResult, error)
	MovementHistory(ctx context.Context, productID int) ([]*domain.Movement, error)
	AdjustPrice(ctx context.Context, productID int, price decimal.Decimal) (*domain.Product, error)
	FindProductByName(ctx context.Context, name string) (*domain.Product, error)
	PriceReport(ctx context.Context) ([]*domain.Product, error)
	BalanceReport(ctx context.Context) (*Balance, error)
	BelowMinimumReport(ctx context.Context) ([]*domain.Product, error)
	AboveMaximumReport(ctx context.Context) ([]*domain.Product, error)
	CountByCategory(ctx context.Context) (map[string]int, error)
}

type stockService struct {
	products  repository.ProductRepository
	movements repository.MovementRepository
	locks     *productLocks
	logger    *zap.Logger
}

// NewStockService creates a new StockService
func NewStockService(products repository.ProductRepository, movements repository.MovementRepository, logger *zap.Logger) StockService {
	return &stockService{
		products:  products,
		movements: movements,
		locks:     newProductLocks(),
		logger:    logger,
	}
}

// productLocks hands out one mutex per product id so concurrent movements on
// the same product serialize instead of racing on read-modify-write, while
// movements on different products still run in parallel.
type productLocks struct {
	mu    sync.Mutex
	locks map[int]*sync.Mutex
}

func newProductLocks() *productLocks {
	return &productLocks{locks: make(map[int]*sync.Mutex)}
}

func (l *productLocks) get(id int) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}

// RegisterMovement applies a stock change to a product. A decrease larger
// than the on-hand quantity is rejected without touching the product or the
// movement log. Thresholds are held at their pre-movement values. The result
// classifies the new quantity against those thresholds; landing exactly on a
// threshold is not a warning.
func (s *stockService) RegisterMovement(ctx context.Context, in MovementInput) (*MovementResult, error) {
	mv := &domain.Movement{
		ProductID: in.ProductID,
		Kind:      in.Kind,
		Quantity:  in.Quantity,
		Note:      movementNote,
	}
	if err := mv.Validate(); err != nil {
		return nil, err
	}

	lock := s.locks.get(in.ProductID)
	lock.Lock()
	defer lock.Unlock()

	product, err := s.products.FindByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}

	minBefore := product.MinStock
	maxBefore := product.MaxStock

	if in.Kind == domain.MovementDecrease && in.Quantity > product.Quantity {
		return nil, fmt.Errorf("insufficient stock for %s: have %d, requested %d: %w",
			product.Name, product.Quantity, in.Quantity, domain.ErrInsufficientStock)
	}

	newQuantity := product.Quantity
	if in.Kind == domain.MovementIncrease {
		newQuantity += in.Quantity
	} else {
		newQuantity -= in.Quantity
	}

	product.Quantity = newQuantity
	product.MinStock = minBefore
	product.MaxStock = maxBefore

	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}

	// The movement log is best-effort: a failed append does not roll back the
	// quantity change.
	if err := s.movements.Append(ctx, mv); err != nil {
		s.logger.Warn("Failed to record movement",
			zap.Int("product_id", product.ID),
			zap.String("kind", in.Kind),
			zap.Int("quantity", in.Quantity),
			zap.Error(err),
		)
	}

	result := &MovementResult{Product: product}
	switch {
	case in.Kind == domain.MovementIncrease && newQuantity > maxBefore:
		result.Warning = WarningAboveMaximum
		result.Alert = fmt.Sprintf("quantity above the maximum allowed for %s", product.Name)
	case in.Kind == domain.MovementDecrease && newQuantity < minBefore:
		result.Warning = WarningBelowMinimum
		result.Alert = fmt.Sprintf("quantity below the minimum for %s", product.Name)
	}

	return result, nil
}

// MovementHistory returns a product's movement log in chronological order
func (s *stockService) MovementHistory(ctx context.Context, productID int) ([]*domain.Movement, error) {
	return s.movements.ListByProduct(ctx, productID)
}

// AdjustPrice sets a new unit price on an existing product
func (s *stockService) AdjustPrice(ctx context.Context, productID int, price decimal.Decimal) (*domain.Product, error) {
	if price.IsNegative() {
		return nil, fmt.Errorf("price cannot be negative: %w", domain.ErrValidation)
	}

	// Same per-product lock as movements: the write below carries the whole
	// record, so an unsynchronized read-modify-write could clobber a
	// concurrent quantity change.
	lock := s.locks.get(productID)
	lock.Lock()
	defer lock.Unlock()

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	product.Price = price
	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

// FindProductByName looks up a product by name, case-insensitively
func (s *stockService) FindProductByName(ctx context.Context, name string) (*domain.Product, error) {
	return s.products.FindByName(ctx, name)
}

// PriceReport returns all products sorted by name ascending
func (s *stockService) PriceReport(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, err
	}

	sortByName(products)
	return products, nil
}

// BalanceReport returns per-product line items of unit price times quantity,
// sorted by name, with the inventory's grand total
func (s *stockService) BalanceReport(ctx context.Context) (*Balance, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, err
	}

	sortByName(products)

	balance := &Balance{Items: make([]BalanceLine, 0, len(products))}
	for _, product := range products {
		total := product.Price.Mul(decimal.NewFromInt(int64(product.Quantity)))
		balance.Items = append(balance.Items, BalanceLine{Product: product, Total: total})
		balance.GrandTotal = balance.GrandTotal.Add(total)
	}

	return balance, nil
}

// BelowMinimumReport returns products whose quantity is strictly below their
// minimum threshold
func (s *stockService) BelowMinimumReport(ctx context.Context) ([]*domain.Product, error) {
	return s.filterProducts(ctx, func(p *domain.Product) bool {
		return p.Quantity < p.MinStock
	})
}

// AboveMaximumReport returns products whose quantity is strictly above their
// maximum threshold
func (s *stockService) AboveMaximumReport(ctx context.Context) ([]*domain.Product, error) {
	return s.filterProducts(ctx, func(p *domain.Product) bool {
		return p.Quantity > p.MaxStock
	})
}

// CountByCategory returns the number of products per category label
func (s *stockService) CountByCategory(ctx context.Context) (map[string]int, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, product := range products {
		counts[product.Category]++
	}

	return counts, nil
}

func (s *stockService) filterProducts(ctx context.Context, keep func(*domain.Product) bool) ([]*domain.Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, err
	}

	filtered := []*domain.Product{}
	for _, product := range products {
		if keep(product) {
			filtered = append(filtered, product)
		}
	}

	return filtered, nil
}

func sortByName(products []*domain.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].Name < products[j].Name
	})
}
