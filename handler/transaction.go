package handler

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/gmopay/service"
)

// TransactionServiceInterface defines the charge and order operations used by TransactionHandler
type TransactionServiceInterface interface {
	Create(ctx context.Context, req service.ChargeRequest) (map[string]any, error)
	Capture(ctx context.Context, orderID string, amount int64) (map[string]any, error)
	Cancel(ctx context.Context, orderID string) (map[string]any, error)
	Update(ctx context.Context, orderID string, amount int64) (map[string]any, error)
	Inquiry(ctx context.Context, orderID string) (map[string]any, error)
	FinalizeThreeDS(ctx context.Context, accessID string) (map[string]any, error)
	Entry(ctx context.Context, req service.EntryRequest) (map[string]any, error)
	Exec(ctx context.Context, req service.ExecRequest) (map[string]any, error)
	Alter(ctx context.Context, req service.AlterRequest) (map[string]any, error)
}

// TransactionHandler handles charge, order and legacy transaction requests
type TransactionHandler struct {
	transactions TransactionServiceInterface
	validate     *validator.Validate
}

// AmountRequest addresses an order with a required new amount
type AmountRequest struct {
	OrderID string `json:"order_id" validate:"required,max=27"`
	Amount  int64  `json:"amount" validate:"required,gt=0"`
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(transactions TransactionServiceInterface, validate *validator.Validate) *TransactionHandler {
	return &TransactionHandler{transactions: transactions, validate: validate}
}

// Create charges a card
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	serve(w, r, h.validate, operation[service.ChargeRequest]{
		call:    h.transactions.Create,
		status:  http.StatusCreated,
		success: "Transaction created",
		failure: "Failed to create transaction",
	})
}

// Capture sells an authorized order
func (h *TransactionHandler) Capture(w http.ResponseWriter, r *http.Request) {
	serve(w, r, h.validate, operation[service.OrderRequest]{
		call: func(ctx context.Context, req service.OrderRequest) (map[string]any, error) {
			return h.transactions.Capture(ctx, req.OrderID, req.Amount)
		},
		success: "Transaction captured",
		failure: "Failed to capture transaction",
	})
}

// Cancel voids an order
func (h *TransactionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	serve(w, r, h.validate, operation[service.OrderRequest]{
		call: func(ctx context.Context, req service.OrderRequest) (map[string]any, error) {
			return h.transactions.Cancel(ctx, req.OrderID)
		},
		success: "Transaction cancelled",
		failure: "Failed to cancel transaction",
	})
}

// Update changes the amount of an order
func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	serve(w, r, h.validate, operation[AmountRequest]{
		call: func(ctx context.Context, req AmountRequest) (map[string]any, error) {
			return h.transactions.Update(ctx, req.OrderID, req.Amount)
		},
		success: "Transaction updated",
		failure: "Failed to update transaction",
	})
}

// Inquiry returns the state of an order
func (h *TransactionHandler) Inquiry(w http.ResponseWriter, r *http.Request) {
	serve(w, r, h.validate, operation[service.OrderRequest]{
		call: func(ctx context.Context, req service.OrderRequest) (map[string]any, error) {
			return h.transactions.Inquiry(ctx, req.OrderID)
		},
		success: "Transaction retrieved",
		failure: "Failed to retrieve transaction",
	})
}

// FinalizeThreeDS completes a 3-D Secure charge
func (h *TransactionHandler) FinalizeThreeDS(w http.ResponseWriter, r *http.Request) {
	serve(w, r, h.validate, operation[service.FinalizeRequest]{
		call: func(ctx context.Context, req service.FinalizeRequest) (map[string]any, error) {
			return h.transactions.FinalizeThreeDS(ctx, req.AccessID)
		},
		success: "3-D Secure charge finalized",
		failure: "Failed to finalize 3-D Secure charge",
	})
}

// Entry registers a legacy transaction
func (h *TransactionHandler) Entry(w http.ResponseWriter, r *http.Request) {
	serve(w, r, h.validate, operation[service.EntryRequest]{
		call:    h.transactions.Entry,
		status:  http.StatusCreated,
		success: "Transaction entered",
		failure: "Failed to enter transaction",
	})
}

// Exec settles a legacy transaction
func (h *TransactionHandler) Exec(w http.ResponseWriter, r *http.Request) {
	serve(w, r, h.validate, operation[service.ExecRequest]{
		call:    h.transactions.Exec,
		success: "Transaction executed",
		failure: "Failed to execute transaction",
	})
}

// Alter changes a legacy transaction
func (h *TransactionHandler) Alter(w http.ResponseWriter, r *http.Request) {
	serve(w, r, h.validate, operation[service.AlterRequest]{
		call:    h.transactions.Alter,
		success: "Transaction altered",
		failure: "Failed to alter transaction",
	})
}
