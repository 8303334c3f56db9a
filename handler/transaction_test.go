package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/mstgnz/gmopay/infra/validate"
	"github.com/mstgnz/gmopay/provider"
	"github.com/mstgnz/gmopay/service"
	"github.com/stretchr/testify/assert"
)

type mockTransactionService struct {
	createFunc   func(ctx context.Context, req service.ChargeRequest) (map[string]any, error)
	captureFunc  func(ctx context.Context, orderID string, amount int64) (map[string]any, error)
	cancelFunc   func(ctx context.Context, orderID string) (map[string]any, error)
	updateFunc   func(ctx context.Context, orderID string, amount int64) (map[string]any, error)
	inquiryFunc  func(ctx context.Context, orderID string) (map[string]any, error)
	finalizeFunc func(ctx context.Context, accessID string) (map[string]any, error)
	entryFunc    func(ctx context.Context, req service.EntryRequest) (map[string]any, error)
	execFunc     func(ctx context.Context, req service.ExecRequest) (map[string]any, error)
	alterFunc    func(ctx context.Context, req service.AlterRequest) (map[string]any, error)
}

func okResult() (map[string]any, error) { return map[string]any{"status": "ok"}, nil }

func (m *mockTransactionService) Create(ctx context.Context, req service.ChargeRequest) (map[string]any, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, req)
	}
	return okResult()
}

func (m *mockTransactionService) Capture(ctx context.Context, orderID string, amount int64) (map[string]any, error) {
	if m.captureFunc != nil {
		return m.captureFunc(ctx, orderID, amount)
	}
	return okResult()
}

func (m *mockTransactionService) Cancel(ctx context.Context, orderID string) (map[string]any, error) {
	if m.cancelFunc != nil {
		return m.cancelFunc(ctx, orderID)
	}
	return okResult()
}

func (m *mockTransactionService) Update(ctx context.Context, orderID string, amount int64) (map[string]any, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, orderID, amount)
	}
	return okResult()
}

func (m *mockTransactionService) Inquiry(ctx context.Context, orderID string) (map[string]any, error) {
	if m.inquiryFunc != nil {
		return m.inquiryFunc(ctx, orderID)
	}
	return okResult()
}

func (m *mockTransactionService) FinalizeThreeDS(ctx context.Context, accessID string) (map[string]any, error) {
	if m.finalizeFunc != nil {
		return m.finalizeFunc(ctx, accessID)
	}
	return okResult()
}

func (m *mockTransactionService) Entry(ctx context.Context, req service.EntryRequest) (map[string]any, error) {
	if m.entryFunc != nil {
		return m.entryFunc(ctx, req)
	}
	return okResult()
}

func (m *mockTransactionService) Exec(ctx context.Context, req service.ExecRequest) (map[string]any, error) {
	if m.execFunc != nil {
		return m.execFunc(ctx, req)
	}
	return okResult()
}

func (m *mockTransactionService) Alter(ctx context.Context, req service.AlterRequest) (map[string]any, error) {
	if m.alterFunc != nil {
		return m.alterFunc(ctx, req)
	}
	return okResult()
}

func TestTransactionHandler_Create(t *testing.T) {
	var got service.ChargeRequest
	txs := &mockTransactionService{
		createFunc: func(ctx context.Context, req service.ChargeRequest) (map[string]any, error) {
			got = req
			return map[string]any{"orderId": req.OrderID, "accessId": "a1"}, nil
		},
	}
	h := NewTransactionHandler(txs, validate.New())

	w, env := doRequest(t, h.Create, `{"order_id":"order-1","amount":1500,"currency":"jpy","card_token":"tok_1"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Transaction created", env.Message)
	assert.Equal(t, "order-1", got.OrderID)
	assert.Equal(t, int64(1500), got.Amount)
	assert.Equal(t, "a1", env.Data["accessId"])
}

func TestTransactionHandler_CreateValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero amount", `{"order_id":"order-1","amount":0,"card_token":"tok"}`},
		{"no card source", `{"order_id":"order-1","amount":100}`},
		{"member without card id", `{"order_id":"order-1","amount":100,"member_id":"member-001"}`},
		{"refund job code", `{"order_id":"order-1","amount":100,"card_token":"tok","job_cd":"REFUND"}`},
		{"order id too long", `{"order_id":"0123456789012345678901234567","amount":100,"card_token":"tok"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			txs := &mockTransactionService{
				createFunc: func(ctx context.Context, req service.ChargeRequest) (map[string]any, error) {
					called = true
					return nil, nil
				},
			}
			h := NewTransactionHandler(txs, validate.New())

			w, _ := doRequest(t, h.Create, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, called)
		})
	}
}

func TestTransactionHandler_OrderOperations(t *testing.T) {
	var gotOrder, gotAccess string
	var gotAmount int64
	txs := &mockTransactionService{
		captureFunc: func(ctx context.Context, orderID string, amount int64) (map[string]any, error) {
			gotOrder, gotAmount = orderID, amount
			return okResult()
		},
		cancelFunc: func(ctx context.Context, orderID string) (map[string]any, error) {
			gotOrder = orderID
			return okResult()
		},
		updateFunc: func(ctx context.Context, orderID string, amount int64) (map[string]any, error) {
			gotOrder, gotAmount = orderID, amount
			return okResult()
		},
		inquiryFunc: func(ctx context.Context, orderID string) (map[string]any, error) {
			gotOrder = orderID
			return map[string]any{"status": "CAPTURE"}, nil
		},
		finalizeFunc: func(ctx context.Context, accessID string) (map[string]any, error) {
			gotAccess = accessID
			return okResult()
		},
	}
	h := NewTransactionHandler(txs, validate.New())

	w, _ := doRequest(t, h.Capture, `{"order_id":"order-1"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "order-1", gotOrder)
	assert.Zero(t, gotAmount)

	w, _ = doRequest(t, h.Capture, `{"order_id":"order-2","amount":800}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(800), gotAmount)

	w, env := doRequest(t, h.Cancel, `{"order_id":"order-3"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Transaction cancelled", env.Message)
	assert.Equal(t, "order-3", gotOrder)

	w, _ = doRequest(t, h.Update, `{"order_id":"order-4","amount":1200}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "order-4", gotOrder)
	assert.Equal(t, int64(1200), gotAmount)

	w, _ = doRequest(t, h.Update, `{"order_id":"order-4"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = doRequest(t, h.Inquiry, `{"order_id":"order-5"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CAPTURE", env.Data["status"])

	w, _ = doRequest(t, h.FinalizeThreeDS, `{"access_id":"acc-1"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "acc-1", gotAccess)
}

func TestTransactionHandler_LegacyOperations(t *testing.T) {
	var entry service.EntryRequest
	var exec service.ExecRequest
	var alter service.AlterRequest
	txs := &mockTransactionService{
		entryFunc: func(ctx context.Context, req service.EntryRequest) (map[string]any, error) {
			entry = req
			return map[string]any{"AccessID": "a", "AccessPass": "p"}, nil
		},
		execFunc: func(ctx context.Context, req service.ExecRequest) (map[string]any, error) {
			exec = req
			return okResult()
		},
		alterFunc: func(ctx context.Context, req service.AlterRequest) (map[string]any, error) {
			alter = req
			return okResult()
		},
	}
	h := NewTransactionHandler(txs, validate.New())

	w, env := doRequest(t, h.Entry, `{"order_id":"order-1","amount":100,"job_cd":"AUTH"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "AUTH", entry.JobCd)
	assert.Equal(t, "a", env.Data["AccessID"])

	w, _ = doRequest(t, h.Exec, `{"access_id":"a","access_pass":"p","order_id":"order-1","card_no":"4111111111111111","expire":"3012"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "3012", exec.Expire)

	w, _ = doRequest(t, h.Exec, `{"access_id":"a","access_pass":"p","order_id":"order-1","expire":"3013"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doRequest(t, h.Alter, `{"access_id":"a","access_pass":"p","job_cd":"VOID"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "VOID", alter.JobCd)
}

func TestTransactionHandler_GatewayFailure(t *testing.T) {
	txs := &mockTransactionService{
		cancelFunc: func(ctx context.Context, orderID string) (map[string]any, error) {
			return nil, &provider.GatewayError{Kind: provider.KindNotFound, StatusCode: 404, Message: "order not found"}
		},
	}
	h := NewTransactionHandler(txs, validate.New())

	w, env := doRequest(t, h.Cancel, `{"order_id":"missing"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Failed to cancel transaction", env.Message)
}
