// Package protocol defines the wire message exchanged between clients and the
// server: one Envelope per request and one per response, encoded as
// newline-delimited JSON over a TCP connection.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Operation tags form a closed set; anything else yields an error envelope
// naming the offending tag.
const (
	OpCreateProduct     = "create-product"
	OpListProducts      = "list-products"
	OpUpdateProduct     = "update-product"
	OpDeleteProduct     = "delete-product"
	OpFindProductByName = "find-product-by-name"

	OpCreateCategory = "create-category"
	OpListCategories = "list-categories"
	OpUpdateCategory = "update-category"
	OpDeleteCategory = "delete-category"

	OpStockMovement   = "stock-movement"
	OpMovementHistory = "movement-history"

	OpReportPrices       = "report-prices"
	OpReportBalance      = "report-balance"
	OpReportBelowMinimum = "report-below-minimum"
	OpReportAboveMaximum = "report-above-maximum"
	OpReportByCategory   = "report-by-category"

	OpAdjustPrice = "adjust-price"
)

// Status is the outcome tag carried by every envelope
type Status string

const (
	StatusPending             Status = "pending"
	StatusSuccess             Status = "success"
	StatusError               Status = "error"
	StatusWarningBelowMinimum Status = "warning-below-minimum"
	StatusWarningAboveMaximum Status = "warning-above-maximum"
)

// Envelope is the request/response message unit. The payload shape depends on
// the operation tag and is decoded by the handler that owns the tag.
type Envelope struct {
	Op      string          `json:"op"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Status  Status          `json:"status"`
}

// ErrorPayload carries the human-readable message of an error envelope
type ErrorPayload struct {
	Message string `json:"message"`
}

// NewRequest builds a request envelope with status pending
func NewRequest(op string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode %s payload: %w", op, err)
	}
	return Envelope{Op: op, Payload: raw, Status: StatusPending}, nil
}

// NewResponse builds a response envelope with the given status. A payload that
// cannot be marshaled degrades to an error envelope rather than breaking the
// per-request response guarantee.
func NewResponse(op string, payload any, status Status) Envelope {
	if payload == nil {
		return Envelope{Op: op, Status: status}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return ErrorResponse(op, fmt.Sprintf("failed to encode response: %v", err))
	}
	return Envelope{Op: op, Payload: raw, Status: status}
}

// ErrorResponse builds an error envelope carrying the operation tag and a
// descriptive message
func ErrorResponse(op, message string) Envelope {
	raw, _ := json.Marshal(ErrorPayload{Message: message})
	return Envelope{Op: op, Payload: raw, Status: StatusError}
}
