package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/mstgnz/gmopay/provider"
	"github.com/mstgnz/gmopay/provider/gmo"
)

// DefaultCurrency is used when a charge does not name one
const DefaultCurrency = "JPY"

// ChargeRequest creates a REST charge against a card token or an on-file card
type ChargeRequest struct {
	OrderID     string `json:"order_id" validate:"required,max=27"`
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Currency    string `json:"currency" validate:"omitempty,len=3,alpha"`
	JobCd       string `json:"job_cd" validate:"omitempty,oneof=AUTH CAPTURE SAUTH"`
	CardToken   string `json:"card_token" validate:"required_without=MemberID"`
	MemberID    string `json:"member_id" validate:"omitempty,gmo_member_id"`
	CardID      string `json:"card_id" validate:"required_with=MemberID"`
	CardType    string `json:"card_type"`
	UseTDS2     bool   `json:"use_tds2"`
	CallbackURL string `json:"callback_url" validate:"omitempty,url"`
}

// OrderRequest addresses an existing REST order
type OrderRequest struct {
	OrderID string `json:"order_id" validate:"required,max=27"`
	Amount  int64  `json:"amount" validate:"omitempty,gt=0"`
}

// FinalizeRequest completes a 3-D Secure charge
type FinalizeRequest struct {
	AccessID string `json:"access_id" validate:"required"`
}

// EntryRequest registers a legacy transaction
type EntryRequest struct {
	OrderID string `json:"order_id" validate:"required,max=27"`
	Amount  int64  `json:"amount" validate:"required,gt=0"`
	JobCd   string `json:"job_cd" validate:"omitempty,job_code"`
}

// ExecRequest settles a legacy transaction with card data or a token
type ExecRequest struct {
	AccessID     string `json:"access_id" validate:"required"`
	AccessPass   string `json:"access_pass" validate:"required"`
	OrderID      string `json:"order_id" validate:"required,max=27"`
	Method       int    `json:"method" validate:"omitempty,min=1,max=5"`
	CardNo       string `json:"card_no" validate:"omitempty,numeric,min=13,max=19"`
	Expire       string `json:"expire" validate:"omitempty,card_expire"`
	SecurityCode string `json:"security_code" validate:"omitempty,numeric,min=3,max=4"`
	Token        string `json:"token"`
}

// AlterRequest changes the state of a legacy transaction
type AlterRequest struct {
	AccessID   string `json:"access_id" validate:"required"`
	AccessPass string `json:"access_pass" validate:"required"`
	OrderID    string `json:"order_id" validate:"omitempty,max=27"`
	JobCd      string `json:"job_cd" validate:"omitempty,job_code"`
	Amount     int64  `json:"amount" validate:"omitempty,gt=0"`
}

// TransactionService charges cards and manages orders
type TransactionService struct {
	client GatewayClient
}

// NewTransactionService creates a new transaction service
func NewTransactionService(client GatewayClient) *TransactionService {
	return &TransactionService{client: client}
}

// Create charges a card. Either a card token or a member and card id is required.
func (s *TransactionService) Create(ctx context.Context, req ChargeRequest) (map[string]any, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return nil, provider.NewValidationError("order id is required")
	}
	if req.Amount <= 0 {
		return nil, provider.NewValidationError("amount must be positive")
	}

	jobCd := req.JobCd
	if jobCd == "" {
		jobCd = gmo.JobAuth
	}
	if jobCd != gmo.JobAuth && jobCd != gmo.JobCapture && jobCd != gmo.JobSAuth {
		return nil, provider.NewValidationError(fmt.Sprintf("job code %q is not valid for a charge", jobCd))
	}

	credit := map[string]any{"authorizationMode": jobCd}
	switch {
	case req.CardToken != "":
		credit["tokenizedCard"] = tokenizedCard(req.CardToken)
	case req.MemberID != "" && req.CardID != "":
		credit["onfileCard"] = onfileCard(req.MemberID, req.CardType, req.CardID)
	default:
		return nil, provider.NewValidationError("either a card token or a member id and card id is required")
	}
	if req.UseTDS2 {
		credit["tds2Information"] = map[string]any{"useTds2": true}
	}

	currency := req.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	payload := map[string]any{
		"order": map[string]any{
			"orderId":  req.OrderID,
			"amount":   formatAmount(req.Amount),
			"currency": strings.ToUpper(currency),
		},
		"creditInformation": credit,
	}
	if req.CallbackURL != "" {
		payload["merchant"] = map[string]any{"callbackUrl": req.CallbackURL}
	}

	return post(ctx, s.client, "create transaction", gmo.EndpointCharge, payload,
		map[string]any{"order_id": req.OrderID, "amount": req.Amount, "job_cd": jobCd})
}

// Capture sells an authorized order; a zero amount captures the authorized amount
func (s *TransactionService) Capture(ctx context.Context, orderID string, amount int64) (map[string]any, error) {
	payload, err := orderPayload(orderID)
	if err != nil {
		return nil, err
	}
	if amount < 0 {
		return nil, provider.NewValidationError("amount must not be negative")
	}
	if amount > 0 {
		payload["amount"] = formatAmount(amount)
	}

	return post(ctx, s.client, "capture transaction", gmo.EndpointOrderCapture, payload,
		map[string]any{"order_id": orderID, "amount": amount})
}

// Cancel voids an order
func (s *TransactionService) Cancel(ctx context.Context, orderID string) (map[string]any, error) {
	payload, err := orderPayload(orderID)
	if err != nil {
		return nil, err
	}

	return post(ctx, s.client, "cancel transaction", gmo.EndpointOrderCancel, payload,
		map[string]any{"order_id": orderID})
}

// Update changes the amount of an order
func (s *TransactionService) Update(ctx context.Context, orderID string, amount int64) (map[string]any, error) {
	payload, err := orderPayload(orderID)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, provider.NewValidationError("amount must be positive")
	}
	payload["amount"] = formatAmount(amount)

	return post(ctx, s.client, "update transaction", gmo.EndpointOrderChangeAmount, payload,
		map[string]any{"order_id": orderID, "amount": amount})
}

// Inquiry returns the current state of an order
func (s *TransactionService) Inquiry(ctx context.Context, orderID string) (map[string]any, error) {
	payload, err := orderPayload(orderID)
	if err != nil {
		return nil, err
	}

	return post(ctx, s.client, "inquire transaction", gmo.EndpointOrderInquiry, payload,
		map[string]any{"order_id": orderID})
}

// FinalizeThreeDS completes a charge after the payer's 3-D Secure challenge
func (s *TransactionService) FinalizeThreeDS(ctx context.Context, accessID string) (map[string]any, error) {
	if strings.TrimSpace(accessID) == "" {
		return nil, provider.NewValidationError("access id is required")
	}

	return post(ctx, s.client, "finalize 3-D Secure charge", gmo.EndpointTDS2Finalize,
		map[string]any{"accessId": accessID}, nil)
}

// Entry registers a legacy transaction; the job code defaults to AUTH
func (s *TransactionService) Entry(ctx context.Context, req EntryRequest) (map[string]any, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return nil, provider.NewValidationError("order id is required")
	}
	if req.Amount <= 0 {
		return nil, provider.NewValidationError("amount must be positive")
	}
	jobCd, err := jobCode(req.JobCd, gmo.JobAuth)
	if err != nil {
		return nil, err
	}

	payload := shopAuth(s.client)
	payload["OrderID"] = req.OrderID
	payload["JobCd"] = jobCd
	payload["Amount"] = req.Amount

	return post(ctx, s.client, "enter transaction", gmo.EndpointEntryTran, payload,
		map[string]any{"order_id": req.OrderID, "amount": req.Amount, "job_cd": jobCd})
}

// Exec settles an entered legacy transaction with either card data or a token
func (s *TransactionService) Exec(ctx context.Context, req ExecRequest) (map[string]any, error) {
	if req.AccessID == "" || req.AccessPass == "" {
		return nil, provider.NewValidationError("access id and access pass are required")
	}
	if strings.TrimSpace(req.OrderID) == "" {
		return nil, provider.NewValidationError("order id is required")
	}

	if (req.CardNo == "") != (req.Expire == "") {
		return nil, provider.NewValidationError("card number and expire must be given together")
	}

	method := req.Method
	if method == 0 {
		method = 1
	}

	payload := map[string]any{
		"AccessID":   req.AccessID,
		"AccessPass": req.AccessPass,
		"OrderID":    req.OrderID,
		"Method":     method,
	}
	if req.CardNo != "" {
		payload["CardNo"] = req.CardNo
		payload["Expire"] = req.Expire
	}
	if req.SecurityCode != "" {
		payload["SecurityCode"] = req.SecurityCode
	}
	if req.Token != "" {
		payload["Token"] = req.Token
	}

	return post(ctx, s.client, "execute transaction", gmo.EndpointExecTran, payload,
		map[string]any{"order_id": req.OrderID})
}

// Alter changes a legacy transaction. Without a job code it is SALES when an amount is given, VOID otherwise.
func (s *TransactionService) Alter(ctx context.Context, req AlterRequest) (map[string]any, error) {
	if req.AccessID == "" || req.AccessPass == "" {
		return nil, provider.NewValidationError("access id and access pass are required")
	}
	if req.Amount < 0 {
		return nil, provider.NewValidationError("amount must not be negative")
	}

	fallback := gmo.JobVoid
	if req.Amount > 0 {
		fallback = gmo.JobSales
	}
	jobCd, err := jobCode(req.JobCd, fallback)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"AccessID":   req.AccessID,
		"AccessPass": req.AccessPass,
		"JobCd":      jobCd,
	}
	if req.OrderID != "" {
		payload["OrderID"] = req.OrderID
	}
	if req.Amount > 0 {
		payload["Amount"] = req.Amount
	}

	return post(ctx, s.client, "alter transaction", gmo.EndpointAlterTran, payload,
		map[string]any{"order_id": req.OrderID, "amount": req.Amount, "job_cd": jobCd})
}

func orderPayload(orderID string) (map[string]any, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, provider.NewValidationError("order id is required")
	}
	return map[string]any{"orderId": orderID}, nil
}

func jobCode(code, fallback string) (string, error) {
	if code == "" {
		return fallback, nil
	}
	code = strings.ToUpper(code)
	if !gmo.IsJobCode(code) {
		return "", provider.NewValidationError(fmt.Sprintf("unknown job code %q", code))
	}
	return code, nil
}
