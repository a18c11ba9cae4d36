package transport

import (
	"context"
	"encoding/json"
	"fmt"

	"stockroom/internal/domain"
	"stockroom/internal/protocol"
	"stockroom/internal/repository"
	"stockroom/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// historyTimeLayout is the day/month/year format used for movement history
// timestamps on the wire
const historyTimeLayout = "02/01/2006 15:04:05"

// MessageResponse is the payload of plain success responses
type MessageResponse struct {
	Message string `json:"message"`
}

// MovementRequest is the stock-movement request payload
type MovementRequest struct {
	ProductID int    `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Kind      string `json:"kind"`
}

// MovementResponse carries the updated product snapshot and, for warnings, an
// advisory message
type MovementResponse struct {
	Product *domain.Product `json:"product"`
	Alert   string          `json:"alert,omitempty"`
}

// HistoryEntry is one formatted line of a product's movement history
type HistoryEntry struct {
	Timestamp string `json:"timestamp"`
	Kind      string `json:"kind"`
	Quantity  int    `json:"quantity"`
	Note      string `json:"note"`
}

// BalanceLine is one line item of the balance report
type BalanceLine struct {
	Product *domain.Product `json:"product"`
	Total   decimal.Decimal `json:"total"`
}

// BalanceResponse is the balance report payload
type BalanceResponse struct {
	Items      []BalanceLine   `json:"items"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// handlerFunc processes one decoded payload and returns the response payload
// with its status
type handlerFunc func(ctx context.Context, payload json.RawMessage) (any, protocol.Status, error)

// Dispatcher routes operation tags to their handlers and normalizes every
// outcome into a response envelope. No error or panic escapes Handle.
type Dispatcher struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	stock      service.StockService
	logger     *zap.Logger
	handlers   map[string]handlerFunc
}

// NewDispatcher creates a Dispatcher with the full operation routing table
func NewDispatcher(products repository.ProductRepository, categories repository.CategoryRepository, stock service.StockService, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{
		products:   products,
		categories: categories,
		stock:      stock,
		logger:     logger,
	}

	d.handlers = map[string]handlerFunc{
		protocol.OpCreateProduct:     d.createProduct,
		protocol.OpListProducts:      d.listProducts,
		protocol.OpUpdateProduct:     d.updateProduct,
		protocol.OpDeleteProduct:     d.deleteProduct,
		protocol.OpFindProductByName: d.findProductByName,

		protocol.OpCreateCategory: d.createCategory,
		protocol.OpListCategories: d.listCategories,
		protocol.OpUpdateCategory: d.updateCategory,
		protocol.OpDeleteCategory: d.deleteCategory,

		protocol.OpStockMovement:   d.stockMovement,
		protocol.OpMovementHistory: d.movementHistory,

		protocol.OpReportPrices:       d.reportPrices,
		protocol.OpReportBalance:      d.reportBalance,
		protocol.OpReportBelowMinimum: d.reportBelowMinimum,
		protocol.OpReportAboveMaximum: d.reportAboveMaximum,
		protocol.OpReportByCategory:   d.reportByCategory,

		protocol.OpAdjustPrice: d.adjustPrice,
	}

	return d
}

// Supports reports whether op is in the closed operation-tag set
func (d *Dispatcher) Supports(op string) bool {
	_, ok := d.handlers[op]
	return ok
}

// Handle processes one request envelope and always returns a well-formed
// response envelope: unsupported tags, malformed payloads, handler errors and
// panics all normalize to error envelopes carrying the operation tag.
func (d *Dispatcher) Handle(ctx context.Context, req protocol.Envelope) (resp protocol.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Handler panic",
				zap.String("op", req.Op),
				zap.Any("panic", r),
			)
			resp = protocol.ErrorResponse(req.Op, "internal error while processing operation")
		}
	}()

	handler, ok := d.handlers[req.Op]
	if !ok {
		return protocol.ErrorResponse(req.Op, fmt.Sprintf("unsupported operation: %s", req.Op))
	}

	payload, status, err := handler(ctx, req.Payload)
	if err != nil {
		d.logger.Debug("Operation failed",
			zap.String("op", req.Op),
			zap.Error(err),
		)
		return protocol.ErrorResponse(req.Op, err.Error())
	}

	return protocol.NewResponse(req.Op, payload, status)
}

func (d *Dispatcher) createProduct(ctx context.Context, payload json.RawMessage) (any, protocol.Status, error) {
	product, err := decodeProduct(payload)
	if err != nil {
		return nil, "", err
	}

	// The repository assigns the id; whatever the client sent is ignored.
	product.ID = 0
	if err := d.products.Create(ctx, product); err != nil {
		return nil, "", err
	}

	return MessageResponse{Message: fmt.Sprintf("product %s created with id %d", product.Name, product.ID)}, protocol.StatusSuccess, nil
}

func (d *Dispatcher) listProducts(ctx context.Context, _ json.RawMessage) (any, protocol.Status, error) {
	products, err := d.products.List(ctx)
	if err != nil {
		return nil, "", err
	}
	return products, protocol.StatusSuccess, nil
}

func (d *Dispatcher) updateProduct(ctx context.Context, payload json.RawMessage) (any, protocol.Status, error) {
	product, err := decodeProduct(payload)
	if err != nil {
		return nil, "", err
	}

	if err := d.products.Update(ctx, product); err != nil {
		return nil, "", err
	}

	return MessageResponse{Message: "product updated successfully"}, protocol.StatusSuccess, nil
}

func (d *Dispatcher) deleteProduct(ctx context.Context, payload json.RawMessage) (any, protocol.Status, error) {
	id, err := decodeID(payload, "product id")
	if err != nil {
		return nil, "", err
	}

	if err := d.products.Delete(ctx, id); err != nil {
		return nil, "", err
	}

	return MessageResponse{Message: "product deleted successfully"}, protocol.StatusSuccess, nil
}

func (d *Dispatcher) findProductByName(ctx context.Context, payload json.RawMessage) (any, protocol.Status, error) {
	var name string
	if err := json.Unmarshal(payload, &name); err != nil {
		return nil, "", fmt.Errorf("malformed product name payload: %w", domain.ErrProtocol)
	}

	product, err := d.stock.FindProductByName(ctx, name)
	if err != nil {
		return nil, "", err
	}

	return product, protocol.StatusSuccess, nil
}

func (d *Dispatcher) createCategory(ctx context.Context, payload json.RawMessage) (any, protocol.Status, error) {
	category, err := decodeCategory(payload)
	if err != nil {
		return nil, "", err
	}

	if err := d.categories.Create(ctx, category); err != nil {
		return nil, "", err
	}

	return MessageResponse{Message: fmt.Sprintf("category %s created with id %d", category.Name, category.ID)}, protocol.StatusSuccess, nil
}

func (d *Dispatcher) listCategories(ctx context.Context, _ json.RawMessage) (any, protocol.Status, error) {
	categories, err := d.categories.List(ctx)
	if err != nil {
		return nil, "", err
	}
	return categories, protocol.StatusSuccess, nil
}

func (d *Dispatcher) updateCategory(ctx context.Context, payload json.RawMessage) (any, protocol.Status, error) {
	category, err := decodeCategory(payload)
	if err != nil {
		return nil, "", err
	}

	if err := d.categories.Update(ctx, category); err != nil {
		return nil, "", err
	}

	return MessageResponse{Message: "category updated successfully"}, protocol.StatusSuccess, nil
}

func (d *Dispatcher) deleteCategory(ctx context.Context, payload json.RawMessage) (any, protocol.Status, error) {
	id, err := decodeID(payload, "category id")
	if err != nil {
		return nil, "", err
	}

	if err := d.categories.Delete(ctx, id); err != nil {
		return nil, "", err
	}

	return MessageResponse{Message: "category deleted successfully"}, protocol.StatusSuccess, nil
}

func (d *Dispatcher) stockMovement(ctx context.Context, payload json.RawMessage) (any, protocol.Status, error) {
	var req MovementRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, "", fmt.Errorf("malformed stock-movement payload: %w", domain.ErrProtocol)
	}

	result, err := d.stock.RegisterMovement(ctx, service.MovementInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Kind:      req.Kind,
	})
	if err != nil {
		return nil, "", err
	}

	status := protocol.StatusSuccess
	switch result.Warning {
	case service.WarningBelowMinimum:
		status = protocol.StatusWarningBelowMinimum
	case service.WarningAboveMaximum:
		status = protocol.StatusWarningAboveMaximum
	}

	return MovementResponse{Product: result.Product, Alert: result.Alert}, status, nil
}

func (d *Dispatcher) movementHistory(ctx context.Context, payload json.RawMessage) (any, protocol.Status, error) {
	id, err := decodeID(payload, "product id")
	if err != nil {
		return nil, "", err
	}

	movements, err := d.stock.MovementHistory(ctx, id)
	if err != nil {
		return nil, "", err
	}

	history := make([]HistoryEntry, 0, len(movements))
	for _, movement := range movements {
		history = append(history, HistoryEntry{
			Timestamp: movement.CreatedAt.Format(historyTimeLayout),
			Kind:      movement.Kind,
			Quantity:  movement.Quantity,
			Note:      movement.Note,
		})
	}

	return history, protocol.StatusSuccess, nil
}

func (d *Dispatcher) reportPrices(ctx context.Context, _ json.RawMessage) (any, protocol.Status, error) {
	products, err := d.stock.PriceReport(ctx)
	if err != nil {
		return nil, "", err
	}
	return products, protocol.StatusSuccess, nil
}

func (d *Dispatcher) reportBalance(ctx context.Context, _ json.RawMessage) (any, protocol.Status, error) {
	balance, err := d.stock.BalanceReport(ctx)
	if err != nil {
		return nil, "", err
	}

	resp := BalanceResponse{
		Items:      make([]BalanceLine, 0, len(balance.Items)),
		GrandTotal: balance.GrandTotal,
	}
	for _, item := range balance.Items {
		resp.Items = append(resp.Items, BalanceLine{Product: item.Product, Total: item.Total})
	}

	return resp, protocol.StatusSuccess, nil
}

func (d *Dispatcher) reportBelowMinimum(ctx context.Context, _ json.RawMessage) (any, protocol.Status, error) {
	products, err := d.stock.BelowMinimumReport(ctx)
	if err != nil {
		return nil, "", err
	}
	return products, protocol.StatusSuccess, nil
}

func (d *Dispatcher) reportAboveMaximum(ctx context.Context, _ json.RawMessage) (any, protocol.Status, error) {
	products, err := d.stock.AboveMaximumReport(ctx)
	if err != nil {
		return nil, "", err
	}
	return products, protocol.StatusSuccess, nil
}

func (d *Dispatcher) reportByCategory(ctx context.Context, _ json.RawMessage) (any, protocol.Status, error) {
	counts, err := d.stock.CountByCategory(ctx)
	if err != nil {
		return nil, "", err
	}
	return counts, protocol.StatusSuccess, nil
}

func (d *Dispatcher) adjustPrice(ctx context.Context, payload json.RawMessage) (any, protocol.Status, error) {
	// Only the id and the new price matter here; the rest of the record is
	// left as stored.
	var product domain.Product
	if err := json.Unmarshal(payload, &product); err != nil {
		return nil, "", fmt.Errorf("malformed product payload: %w", domain.ErrProtocol)
	}

	updated, err := d.stock.AdjustPrice(ctx, product.ID, product.Price)
	if err != nil {
		return nil, "", err
	}

	return MessageResponse{Message: fmt.Sprintf("price of product %s updated successfully", updated.Name)}, protocol.StatusSuccess, nil
}

func decodeProduct(payload json.RawMessage) (*domain.Product, error) {
	var product domain.Product
	if err := json.Unmarshal(payload, &product); err != nil {
		return nil, fmt.Errorf("malformed product payload: %w", domain.ErrProtocol)
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}
	return &product, nil
}

func decodeCategory(payload json.RawMessage) (*domain.Category, error) {
	var category domain.Category
	if err := json.Unmarshal(payload, &category); err != nil {
		return nil, fmt.Errorf("malformed category payload: %w", domain.ErrProtocol)
	}
	if err := category.Validate(); err != nil {
		return nil, err
	}
	return &category, nil
}

func decodeID(payload json.RawMessage, what string) (int, error) {
	var id int
	if err := json.Unmarshal(payload, &id); err != nil {
		return 0, fmt.Errorf("malformed %s payload: %w", what, domain.ErrProtocol)
	}
	return id, nil
}
