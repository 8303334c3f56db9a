package service

import (
	"context"
	"strings"

	"github.com/mstgnz/gmopay/provider"
	"github.com/mstgnz/gmopay/provider/gmo"
)

// MerchantPrefix marks merchant accounts, which the gateway stores as members
const MerchantPrefix = "MER-"

// MerchantRequest creates a merchant account
type MerchantRequest struct {
	MerchantID string `json:"merchant_id" validate:"required,gmo_member_id"`
	Name       string `json:"name" validate:"omitempty,max=255"`
}

// MerchantIDRequest addresses an existing merchant account
type MerchantIDRequest struct {
	MerchantID string `json:"merchant_id" validate:"required,gmo_member_id"`
}

// MerchantService manages merchant accounts
type MerchantService struct {
	client GatewayClient
}

// NewMerchantService creates a new merchant service
func NewMerchantService(client GatewayClient) *MerchantService {
	return &MerchantService{client: client}
}

// Create saves a merchant account as a prefixed member
func (s *MerchantService) Create(ctx context.Context, req MerchantRequest) (map[string]any, error) {
	payload, err := s.payload(req.MerchantID)
	if err != nil {
		return nil, err
	}
	if req.Name != "" {
		payload["MemberName"] = req.Name
	}

	return post(ctx, s.client, "create merchant account", gmo.EndpointSaveMember, payload,
		map[string]any{"merchant_id": req.MerchantID})
}

// Get retrieves a merchant account
func (s *MerchantService) Get(ctx context.Context, merchantID string) (map[string]any, error) {
	payload, err := s.payload(merchantID)
	if err != nil {
		return nil, err
	}

	return post(ctx, s.client, "retrieve merchant account", gmo.EndpointSearchMember, payload,
		map[string]any{"merchant_id": merchantID})
}

// Delete removes a merchant account
func (s *MerchantService) Delete(ctx context.Context, merchantID string) (map[string]any, error) {
	payload, err := s.payload(merchantID)
	if err != nil {
		return nil, err
	}

	return post(ctx, s.client, "delete merchant account", gmo.EndpointDeleteMember, payload,
		map[string]any{"merchant_id": merchantID})
}

func (s *MerchantService) payload(merchantID string) (map[string]any, error) {
	if strings.TrimSpace(merchantID) == "" {
		return nil, provider.NewValidationError("merchant id is required")
	}
	payload := siteAuth(s.client)
	payload["MemberID"] = withPrefix(MerchantPrefix, merchantID)
	return payload, nil
}
